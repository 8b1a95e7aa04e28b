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
	"image/color"
	"strconv"
)

func cmdSize(cfg runConfig) error {
	dial, err := newDialer(cfg.Transport, cfg.Server)
	if err != nil {
		return err
	}

	size, err := querySize(dial)
	if err != nil {
		return err
	}

	log.Infof("Canvas size is %vx%v", size.Width, size.Height)
	return nil
}

func cmdHelp(cfg runConfig) error {
	dial, err := newDialer(cfg.Transport, cfg.Server)
	if err != nil {
		return err
	}
	t, err := dial()
	if err != nil {
		return err
	}
	defer t.Close()

	help, err := queryHelp(t)
	if err != nil {
		return err
	}

	log.Infof("Server says: %v", help)
	return nil
}

// Sends a single pixel: pixel <x> <y> <rrggbb[aa]>
func cmdPixel(cfg runConfig, args []string) error {
	if len(args) != 3 {
		return fmt.Errorf("%w: usage: pixel <x> <y> <rrggbb[aa]>", errConfig)
	}

	x, err := parseCoord(args[0])
	if err != nil {
		return err
	}
	y, err := parseCoord(args[1])
	if err != nil {
		return err
	}
	r, g, b, a, hasAlpha, err := parseHexColor(args[2])
	if err != nil {
		return err
	}

	dial, err := newDialer(cfg.Transport, cfg.Server)
	if err != nil {
		return err
	}
	t, err := dial()
	if err != nil {
		return err
	}
	defer t.Close()

	cmd := appendPixelCmd(nil, pixel{X: x, Y: y, R: r, G: g, B: b, A: a, HasAlpha: hasAlpha})
	return t.Write(cmd)
}

// Streams a filled rectangle: rect <x0> <y0> <x1> <y1> <rrggbb>
// Both corners are included. The rectangle goes through the same pipeline
// as an image file.
func cmdRect(ctx context.Context, cfg runConfig, args []string) error {
	if len(args) != 5 {
		return fmt.Errorf("%w: usage: rect <x0> <y0> <x1> <y1> <rrggbb>", errConfig)
	}

	x0, err := parseCoord(args[0])
	if err != nil {
		return err
	}
	y0, err := parseCoord(args[1])
	if err != nil {
		return err
	}
	x1, err := parseCoord(args[2])
	if err != nil {
		return err
	}
	y1, err := parseCoord(args[3])
	if err != nil {
		return err
	}
	width, height, err := rectSize(x0, y0, x1, y1)
	if err != nil {
		return err
	}
	r, g, b, a, hasAlpha, err := parseHexColor(args[4])
	if err != nil {
		return err
	}
	if !hasAlpha {
		a = 255
	}
	cfg.Alpha = hasAlpha
	cfg.OffsetX, cfg.OffsetY = x0, y0

	img := fillImage(width, height, color.RGBA{R: r, G: g, B: b, A: a})

	sum, err := streamImage(ctx, cfg, img)
	if err != nil {
		return err
	}
	logSummary(sum)
	return nil
}

// Streams an image file: image <path>
func cmdImage(ctx context.Context, cfg runConfig, args []string) error {
	if len(args) != 1 {
		return fmt.Errorf("%w: usage: image <path>", errConfig)
	}

	img, err := loadImage(args[0], cfg.Scale)
	if err != nil {
		return err
	}

	sum, err := streamImage(ctx, cfg, img)
	if err != nil {
		return err
	}
	logSummary(sum)
	return nil
}

// Replays a recording: replay <path>
func cmdReplay(ctx context.Context, cfg runConfig, args []string) error {
	if len(args) != 1 {
		return fmt.Errorf("%w: usage: replay <path>", errConfig)
	}

	return replayRecording(ctx, cfg, args[0])
}

// Converts two corner coordinates into the dimensions of the rectangle
// spanning them, end coordinates included.
func rectSize(x0, y0, x1, y1 uint32) (width, height int, err error) {
	if x1 < x0 || y1 < y0 {
		return 0, 0, fmt.Errorf("%w: end corner (%v, %v) lies before start corner (%v, %v)", errConfig, x1, y1, x0, y0)
	}
	return int(x1-x0) + 1, int(y1-y0) + 1, nil
}

func parseCoord(s string) (uint32, error) {
	v, err := strconv.ParseUint(s, 10, 32)
	if err != nil {
		return 0, fmt.Errorf("%w: can't parse coordinate %q: %v", errConfig, s, err)
	}
	return uint32(v), nil
}

func logSummary(sum summary) {
	failed := 0
	for _, result := range sum.Workers {
		if result.Err != nil {
			failed++
		}
	}

	if failed > 0 {
		log.Warnf("Sent %v of %v pixels, %v of %v workers failed", sum.Sent, sum.Attempted, failed, len(sum.Workers))
		return
	}
	log.Infof("Sent %v of %v pixels with %v workers", sum.Sent, sum.Attempted, len(sum.Workers))
}
