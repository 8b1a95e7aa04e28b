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
	"image"
	"image/color"
	"image/draw"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"
	"os"

	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/webp"

	"github.com/nfnt/resize"
)

// Decodes the image at path. Any format registered above is accepted.
// A scale above zero resizes the image to that width, keeping the aspect ratio.
func loadImage(path string, scale uint) (image.Image, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("%w: can't open %v: %v", errImageDecode, path, err)
	}
	defer file.Close()

	img, format, err := image.Decode(file)
	if err != nil {
		return nil, fmt.Errorf("%w: can't decode %v: %v", errImageDecode, path, err)
	}
	log.Debugf("Decoded %v as %v (%v)", path, format, img.Bounds().Size())

	if scale > 0 {
		img = resize.Resize(scale, 0, img, resize.Lanczos3)
	}

	return img, nil
}

// Creates a uniformly colored image, used to stream filled rectangles
// through the same pipeline as decoded files.
func fillImage(width, height int, c color.RGBA) *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, width, height))
	draw.Draw(img, img.Bounds(), image.NewUniform(c), image.Point{}, draw.Src)
	return img
}

// Flattens an image into pixels in row-major order (y outer, x inner).
// Each image-local coordinate is shifted by the placement offset. The alpha
// channel is only carried along when withAlpha is set; in that case the
// color channels go out straight (non-premultiplied), since the server
// applies the alpha itself when blending.
func rasterize(img image.Image, offsetX, offsetY uint32, withAlpha bool) []pixel {
	bounds := img.Bounds()
	pixels := make([]pixel, 0, bounds.Dx()*bounds.Dy())

	for iy := bounds.Min.Y; iy < bounds.Max.Y; iy++ {
		for ix := bounds.Min.X; ix < bounds.Max.X; ix++ {
			p := pixel{
				X:        offsetX + uint32(ix-bounds.Min.X),
				Y:        offsetY + uint32(iy-bounds.Min.Y),
				HasAlpha: withAlpha,
			}
			if withAlpha {
				c := color.NRGBAModel.Convert(img.At(ix, iy)).(color.NRGBA)
				p.R, p.G, p.B, p.A = c.R, c.G, c.B, c.A
			} else {
				r, g, b, a := img.At(ix, iy).RGBA()
				p.R, p.G, p.B, p.A = uint8(r>>8), uint8(g>>8), uint8(b>>8), uint8(a>>8)
			}
			pixels = append(pixels, p)
		}
	}

	return pixels
}

// Drops every pixel outside the canvas. Coordinates can't be negative, so
// only the upper bounds need checking. Warns once if anything was dropped,
// partial painting is fine and not an error.
func clipPixels(pixels []pixel, size canvasSize) []pixel {
	clipped := make([]pixel, 0, len(pixels))
	for _, p := range pixels {
		if p.X < size.Width && p.Y < size.Height {
			clipped = append(clipped, p)
		}
	}

	if dropped := len(pixels) - len(clipped); dropped > 0 {
		log.Warnf("Image exceeds canvas bounds of %vx%v, %v pixels will not be drawn", size.Width, size.Height, dropped)
	}

	return clipped
}
