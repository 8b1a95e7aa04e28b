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

import "errors"

// Error kinds, checked with errors.Is at call sites.
// Connection errors are scoped to the one socket that raised them,
// image decode errors are fatal to the whole run.
var (
	errConnection  = errors.New("connection error")
	errProtocol    = errors.New("protocol error")
	errImageDecode = errors.New("image decode error")
	errConfig      = errors.New("config error")
)
