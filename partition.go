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

// A group of encoded commands sent with a single write.
type batch struct {
	Payload []byte
	Pixels  int
}

// Splits the pixels into workerCount contiguous shards of near equal size.
// The last shard absorbs the division remainder, so concatenating all shards
// in order yields the input exactly. With fewer pixels than workers the span
// rounds down to zero, leaving the leading shards empty and the whole input
// in the last one.
func partitionPixels(pixels []pixel, workerCount int) [][]pixel {
	shards := make([][]pixel, workerCount)
	span := len(pixels) / workerCount

	for i := 0; i < workerCount; i++ {
		start := span * i
		end := span * (i + 1)
		if i == workerCount-1 {
			end = len(pixels)
		}
		shards[i] = pixels[start:end]
	}

	return shards
}

// Encodes one shard into batches of up to batchSize commands each. Only the
// last batch may be shorter. Every batch owns its payload buffer, as batches
// are written over and over in repeat mode.
func batchPixels(shard []pixel, batchSize int) []batch {
	if len(shard) == 0 {
		return nil
	}

	batches := make([]batch, 0, (len(shard)+batchSize-1)/batchSize)
	for start := 0; start < len(shard); start += batchSize {
		end := start + batchSize
		if end > len(shard) {
			end = len(shard)
		}

		payload := make([]byte, 0, (end-start)*24)
		for _, p := range shard[start:end] {
			payload = appendPixelCmd(payload, p)
		}

		batches = append(batches, batch{
			Payload: payload,
			Pixels:  end - start,
		})
	}

	return batches
}
