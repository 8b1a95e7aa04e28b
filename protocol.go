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
	"fmt"
	"strconv"
	"strings"
)

// A single canvas pixel with its absolute target coordinate.
// Alpha is only sent when HasAlpha is set.
type pixel struct {
	X, Y       uint32
	R, G, B, A uint8
	HasAlpha   bool
}

type canvasSize struct {
	Width, Height uint32
}

const hexDigits = "0123456789abcdef"

// Appends the wire command "PX <x> <y> <rrggbb>[aa]\n" for one pixel.
// Appending instead of returning a fresh slice lets the batcher reuse one buffer.
func appendPixelCmd(buf []byte, p pixel) []byte {
	buf = append(buf, "PX "...)
	buf = strconv.AppendUint(buf, uint64(p.X), 10)
	buf = append(buf, ' ')
	buf = strconv.AppendUint(buf, uint64(p.Y), 10)
	buf = append(buf, ' ')
	buf = appendHexByte(buf, p.R)
	buf = appendHexByte(buf, p.G)
	buf = appendHexByte(buf, p.B)
	if p.HasAlpha {
		buf = appendHexByte(buf, p.A)
	}
	return append(buf, '\n')
}

func appendHexByte(buf []byte, b uint8) []byte {
	return append(buf, hexDigits[b>>4], hexDigits[b&0x0F])
}

// Parses a server reply of the form "SIZE <width> <height>".
// The caller has already stripped the line terminator.
func parseSizeReply(line string) (canvasSize, error) {
	if !strings.HasPrefix(line, "SIZE ") {
		return canvasSize{}, fmt.Errorf("%w: unexpected reply %q", errProtocol, line)
	}

	fields := strings.Fields(line[len("SIZE "):])
	if len(fields) != 2 {
		return canvasSize{}, fmt.Errorf("%w: can't find two dimensions in %q", errProtocol, line)
	}

	width, err := strconv.ParseUint(fields[0], 10, 32)
	if err != nil {
		return canvasSize{}, fmt.Errorf("%w: bad width in %q: %v", errProtocol, line, err)
	}
	height, err := strconv.ParseUint(fields[1], 10, 32)
	if err != nil {
		return canvasSize{}, fmt.Errorf("%w: bad height in %q: %v", errProtocol, line, err)
	}

	return canvasSize{Width: uint32(width), Height: uint32(height)}, nil
}

// Queries the canvas dimensions over an already open transport.
// Callers decide whether to retry, there is no retry here.
func queryCanvasSize(t transport) (canvasSize, error) {
	if err := t.Write([]byte("SIZE\n")); err != nil {
		return canvasSize{}, fmt.Errorf("%w: can't send size query: %v", errConnection, err)
	}

	line, err := t.ReadLine()
	if err != nil {
		return canvasSize{}, fmt.Errorf("%w: can't read size reply: %v", errConnection, err)
	}

	return parseSizeReply(line)
}

// Queries the server help text, which is one free-form line.
func queryHelp(t transport) (string, error) {
	if err := t.Write([]byte("HELP\n")); err != nil {
		return "", fmt.Errorf("%w: can't send help query: %v", errConnection, err)
	}

	line, err := t.ReadLine()
	if err != nil {
		return "", fmt.Errorf("%w: can't read help reply: %v", errConnection, err)
	}

	return line, nil
}

// Parses a CLI color of the form "rrggbb" or "rrggbbaa" (case insensitive).
func parseHexColor(s string) (r, g, b, a uint8, hasAlpha bool, err error) {
	if len(s) != 6 && len(s) != 8 {
		return 0, 0, 0, 0, false, fmt.Errorf("%w: color %q must be 6 or 8 hex digits", errConfig, s)
	}

	raw, err := strconv.ParseUint(s, 16, 64)
	if err != nil {
		return 0, 0, 0, 0, false, fmt.Errorf("%w: can't parse color %q: %v", errConfig, s, err)
	}

	if len(s) == 8 {
		return uint8(raw >> 24), uint8(raw >> 16), uint8(raw >> 8), uint8(raw), true, nil
	}
	return uint8(raw >> 16), uint8(raw >> 8), uint8(raw), 0, false, nil
}
