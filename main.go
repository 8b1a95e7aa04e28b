/*  flutbot - Pixelflut image flooding client
    Copyright (C) 2019  David Vogel

    This program is free software: you can redistribute it and/or modify
    it under the terms of the GNU General Public License as published by
    the Free Software Foundation, either version 3 of the License, or
    (at your option) any later version.

    This program is distributed in the hope that it will be useful,
    but WITHOUT ANY WARRANTY; without even the implied warranty of
    MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
    GNU General Public License for more details.

    You should have received a copy of the GNU General Public License
	along with this program.  If not, see <https://www.gnu.org/licenses/>.  */

package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"runtime"
	"syscall"
	"time"

	"github.com/coreos/go-semver/semver"
	colorable "github.com/mattn/go-colorable"
	"github.com/sirupsen/logrus"
	flag "github.com/spf13/pflag"
	"github.com/spf13/viper"
)

var log = logrus.New()

var clientVersion = semver.New("1.0.0")

func main() {
	log.SetReportCaller(true)
	log.SetFormatter(&logrus.TextFormatter{
		ForceColors: true,
		CallerPrettyfier: func(f *runtime.Frame) (string, string) {
			return fmt.Sprintf("%s()", f.Function), ""
		},
	})

	os.MkdirAll(filepath.Join(".", "log"), os.ModePerm)
	f, err := os.OpenFile(filepath.Join(".", "log", time.Now().UTC().Format("2006-01-02T150405")+".log"), os.O_RDWR|os.O_CREATE|os.O_APPEND, 0666)
	if err != nil {
		log.Fatalf("error opening file: %v", err)
	}
	defer f.Close()

	log.SetOutput(io.MultiWriter(colorable.NewColorableStdout(), f)) // TODO: Separate formatting for logfiles
	log.SetLevel(logrus.TraceLevel)

	flag.String("server", "localhost:1234", "address of the pixelflut server")
	flag.String("transport", "tcp", "transport to use (tcp or ws)")
	flag.Int("workers", runtime.NumCPU(), "number of concurrent connections")
	flag.Int("batch", 64, "pixel commands per network write")
	flag.Bool("repeat", false, "keep re-sending the workload until interrupted")
	flag.Uint32("offset-x", 0, "horizontal placement offset")
	flag.Uint32("offset-y", 0, "vertical placement offset")
	flag.Uint("scale", 0, "resize the image to this width before drawing (0 keeps the original size)")
	flag.Bool("alpha", false, "send the alpha channel along with each pixel")
	flag.String("record", "", "capture the command stream into this .fluterec file")
	flag.Parse()

	viper.SetConfigFile(filepath.Join(".", "config.json"))
	if err := viper.ReadInConfig(); err != nil {
		log.Debugf("Can't load config file: %v", err)
	}
	viper.BindPFlags(flag.CommandLine)

	cfg := runConfig{
		Server:     viper.GetString("server"),
		Transport:  viper.GetString("transport"),
		Workers:    viper.GetInt("workers"),
		BatchSize:  viper.GetInt("batch"),
		Repeat:     viper.GetBool("repeat"),
		OffsetX:    viper.GetUint32("offset-x"),
		OffsetY:    viper.GetUint32("offset-y"),
		Scale:      viper.GetUint("scale"),
		Alpha:      viper.GetBool("alpha"),
		RecordPath: viper.GetString("record"),
	}

	args := flag.Args()
	if len(args) < 1 {
		log.Fatalf("No command given. Available commands: size, help, pixel, rect, image, replay")
	}

	ctx := interruptContext()

	if err := runCommand(ctx, cfg, args[0], args[1:]); err != nil {
		log.Fatalf("Command %v failed: %v", args[0], err)
	}
}

// Cancelled on SIGINT or SIGTERM, which is how repeat mode is stopped.
func interruptContext() context.Context {
	ctx, cancel := context.WithCancel(context.Background())

	interrupt := make(chan os.Signal, 1)
	signal.Notify(interrupt, os.Interrupt, syscall.SIGTERM)
	go func() {
		<-interrupt
		log.Info("Interrupted, shutting down")
		cancel()
	}()

	return ctx
}

func runCommand(ctx context.Context, cfg runConfig, command string, args []string) error {
	switch command {
	case "size":
		return cmdSize(cfg)
	case "help":
		return cmdHelp(cfg)
	case "pixel":
		return cmdPixel(cfg, args)
	case "rect":
		return cmdRect(ctx, cfg, args)
	case "image":
		return cmdImage(ctx, cfg, args)
	case "replay":
		return cmdReplay(ctx, cfg, args)
	}

	return fmt.Errorf("%w: unknown command %q", errConfig, command)
}
