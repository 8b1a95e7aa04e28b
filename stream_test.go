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
	"bufio"
	"context"
	"errors"
	"image/color"
	"io/ioutil"
	"net"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync/atomic"
	"testing"
	"time"
)

// Minimal in-process pixelflut server: answers SIZE, counts PX commands.
type fakeServer struct {
	Listener net.Listener
	Size     canvasSize

	PixelCount uint32 // Must be read atomically
}

func newFakeServer(t *testing.T, size canvasSize) *fakeServer {
	listener, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("Can't open listener: %v", err)
	}

	srv := &fakeServer{Listener: listener, Size: size}

	go func() {
		for {
			conn, err := listener.Accept()
			if err != nil {
				return
			}
			go srv.handle(conn)
		}
	}()

	return srv
}

func (srv *fakeServer) handle(conn net.Conn) {
	defer conn.Close()

	scanner := bufio.NewScanner(conn)
	for scanner.Scan() {
		line := scanner.Text()
		switch {
		case line == "SIZE":
			reply := "SIZE " + strconv.FormatUint(uint64(srv.Size.Width), 10) + " " + strconv.FormatUint(uint64(srv.Size.Height), 10) + "\r\n"
			conn.Write([]byte(reply))
		case strings.HasPrefix(line, "PX "):
			atomic.AddUint32(&srv.PixelCount, 1)
		}
	}
}

func (srv *fakeServer) Close() {
	srv.Listener.Close()
}

func Test_runConfig_validate(t *testing.T) {
	tests := []struct {
		workers, batchSize int
		wantErr            bool
	}{
		{1, 1, false},
		{8, 64, false},
		{0, 64, true},
		{8, 0, true},
		{-1, -1, true},
	}

	for _, test := range tests {
		cfg := runConfig{Workers: test.workers, BatchSize: test.batchSize}
		err := cfg.validate()
		if test.wantErr && !errors.Is(err, errConfig) {
			t.Errorf("validate() with workers=%v batch=%v returned %v, want a config error", test.workers, test.batchSize, err)
		}
		if !test.wantErr && err != nil {
			t.Errorf("validate() with workers=%v batch=%v failed: %v", test.workers, test.batchSize, err)
		}
	}
}

func Test_streamImage(t *testing.T) {
	srv := newFakeServer(t, canvasSize{Width: 50, Height: 40})
	defer srv.Close()

	cfg := runConfig{
		Server:    srv.Listener.Addr().String(),
		Transport: "tcp",
		Workers:   3,
		BatchSize: 4,
	}
	img := fillImage(10, 10, color.RGBA{R: 200, G: 100, B: 50, A: 255})

	sum, err := streamImage(context.Background(), cfg, img)
	if err != nil {
		t.Fatalf("Can't stream image: %v", err)
	}

	if sum.Attempted != 100 {
		t.Errorf("Attempted %v pixels, want 100", sum.Attempted)
	}
	if sum.Sent != 100 {
		t.Errorf("Sent %v pixels, want 100", sum.Sent)
	}
	if len(sum.Workers) != 3 {
		t.Errorf("Got %v worker results, want 3", len(sum.Workers))
	}
	for _, result := range sum.Workers {
		if result.Err != nil {
			t.Errorf("Worker %v failed: %v", result.ID, result.Err)
		}
	}

	// The server sees the writes slightly after the workers return
	deadline := time.Now().Add(2 * time.Second)
	for atomic.LoadUint32(&srv.PixelCount) < 100 && time.Now().Before(deadline) {
		time.Sleep(10 * time.Millisecond)
	}
	if got := atomic.LoadUint32(&srv.PixelCount); got != 100 {
		t.Errorf("Server received %v pixel commands, want 100", got)
	}
}

func Test_streamImage_clipped(t *testing.T) {
	srv := newFakeServer(t, canvasSize{Width: 50, Height: 40})
	defer srv.Close()

	cfg := runConfig{
		Server:    srv.Listener.Addr().String(),
		Transport: "tcp",
		Workers:   2,
		BatchSize: 8,
		OffsetX:   45,
		OffsetY:   35,
	}
	// Only the 5x5 top left corner of the image stays on the canvas
	img := fillImage(10, 10, color.RGBA{R: 1, G: 2, B: 3, A: 255})

	sum, err := streamImage(context.Background(), cfg, img)
	if err != nil {
		t.Fatalf("Can't stream image: %v", err)
	}
	if sum.Attempted != 25 || sum.Sent != 25 {
		t.Errorf("Sent %v of %v pixels, want 25 of 25", sum.Sent, sum.Attempted)
	}
}

func Test_streamImage_repeat(t *testing.T) {
	srv := newFakeServer(t, canvasSize{Width: 50, Height: 40})
	defer srv.Close()

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(100 * time.Millisecond)
		cancel()
	}()

	cfg := runConfig{
		Server:    srv.Listener.Addr().String(),
		Transport: "tcp",
		Workers:   2,
		BatchSize: 4,
		Repeat:    true,
	}
	img := fillImage(4, 4, color.RGBA{R: 9, G: 9, B: 9, A: 255})

	sum, err := streamImage(ctx, cfg, img)
	if err != nil {
		t.Fatalf("Can't stream image: %v", err)
	}
	if sum.Sent < 16 {
		t.Errorf("Sent %v pixels before cancellation, want at least one full pass", sum.Sent)
	}
}

func Test_streamImage_badConfig(t *testing.T) {
	img := fillImage(2, 2, color.RGBA{A: 255})

	_, err := streamImage(context.Background(), runConfig{Transport: "tcp", Workers: 0, BatchSize: 4}, img)
	if !errors.Is(err, errConfig) {
		t.Errorf("Streaming with zero workers returned %v, want a config error", err)
	}

	_, err = streamImage(context.Background(), runConfig{Transport: "tcp", Workers: 1, BatchSize: 0}, img)
	if !errors.Is(err, errConfig) {
		t.Errorf("Streaming with zero batch size returned %v, want a config error", err)
	}
}

func Test_replayRecording(t *testing.T) {
	srv := newFakeServer(t, canvasSize{Width: 50, Height: 40})
	defer srv.Close()

	dir, err := ioutil.TempDir("", "flutbot-test")
	if err != nil {
		t.Fatalf("Can't create temp directory: %v", err)
	}
	defer os.RemoveAll(dir)
	path := filepath.Join(dir, "replay.fluterec")

	rec, err := newStreamRecorder(path, "original:1337")
	if err != nil {
		t.Fatalf("Can't create recorder: %v", err)
	}
	rec.WriteBatch([]byte("PX 1 1 aabbcc\nPX 2 2 ddeeff\n"))
	rec.WriteBatch([]byte("PX 3 3 112233\n"))
	rec.Close()

	cfg := runConfig{
		Server:    srv.Listener.Addr().String(),
		Transport: "tcp",
	}
	if err := replayRecording(context.Background(), cfg, path); err != nil {
		t.Fatalf("Can't replay recording: %v", err)
	}

	deadline := time.Now().Add(2 * time.Second)
	for atomic.LoadUint32(&srv.PixelCount) < 3 && time.Now().Before(deadline) {
		time.Sleep(10 * time.Millisecond)
	}
	if got := atomic.LoadUint32(&srv.PixelCount); got != 3 {
		t.Errorf("Server received %v pixel commands, want 3", got)
	}
}
