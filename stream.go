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
	"image"
	"io"
	"sync"
)

// Immutable settings for one run.
type runConfig struct {
	Server    string
	Transport string
	Workers   int
	BatchSize int
	Repeat    bool

	OffsetX, OffsetY uint32
	Scale            uint
	Alpha            bool

	RecordPath string
}

// Outcome of one run. Attempted counts clipped pixels handed to workers,
// Sent counts pixels that actually went over the wire.
type summary struct {
	Attempted int
	Sent      int
	Workers   []workerResult
}

func (cfg runConfig) validate() error {
	if cfg.Workers < 1 {
		return fmt.Errorf("%w: worker count must be at least 1, got %v", errConfig, cfg.Workers)
	}
	if cfg.BatchSize < 1 {
		return fmt.Errorf("%w: batch size must be at least 1, got %v", errConfig, cfg.BatchSize)
	}
	return nil
}

// Streams an image to the server: query the canvas size, rasterize, clip,
// partition across workers, batch, then send each shard over its own
// connection. In repeat mode the workers loop until the context is cancelled.
// Worker failures don't cancel siblings, they are collected in the summary.
func streamImage(ctx context.Context, cfg runConfig, img image.Image) (summary, error) {
	if err := cfg.validate(); err != nil {
		return summary{}, err
	}

	dial, err := newDialer(cfg.Transport, cfg.Server)
	if err != nil {
		return summary{}, err
	}

	size, err := querySize(dial)
	if err != nil {
		return summary{}, err
	}
	log.Infof("Canvas size is %vx%v", size.Width, size.Height)

	pixels := clipPixels(rasterize(img, cfg.OffsetX, cfg.OffsetY, cfg.Alpha), size)
	if len(pixels) == 0 {
		log.Warnf("Nothing to draw, all pixels are outside the canvas")
		return summary{}, nil
	}

	var rec *streamRecorder
	if cfg.RecordPath != "" {
		rec, err = newStreamRecorder(cfg.RecordPath, cfg.Server)
		if err != nil {
			return summary{}, fmt.Errorf("Can't record to %v: %v", cfg.RecordPath, err)
		}
		defer rec.Close()
	}

	shards := partitionPixels(pixels, cfg.Workers)

	results := make(chan workerResult)
	waitgroup := sync.WaitGroup{}
	for i, shard := range shards {
		w := newWorker(i, batchPixels(shard, cfg.BatchSize), dial, rec)

		waitgroup.Add(1)
		go func() {
			defer waitgroup.Done()
			if cfg.Repeat {
				results <- w.sendForever(ctx)
			} else {
				results <- w.sendOnce()
			}
		}()
	}

	go func() {
		waitgroup.Wait()
		close(results)
	}()

	sum := summary{Attempted: len(pixels)}
	for result := range results {
		if result.Err != nil {
			log.Errorf("Worker %v failed after %v pixels: %v", result.ID, result.PixelsSent, result.Err)
		}
		sum.Sent += result.PixelsSent
		sum.Workers = append(sum.Workers, result)
	}

	return sum, nil
}

// Queries the canvas size over a short-lived connection of the same
// transport kind the workers will use.
func querySize(dial dialFunc) (canvasSize, error) {
	t, err := dial()
	if err != nil {
		return canvasSize{}, err
	}
	defer t.Close()

	return queryCanvasSize(t)
}

// Re-streams a recording over a single connection, in recorded order.
// In repeat mode the whole recording loops until the context is cancelled.
func replayRecording(ctx context.Context, cfg runConfig, path string) error {
	sr, err := openStreamReader(path)
	if err != nil {
		return err
	}
	defer sr.Close()

	log.Infof("Replaying recording of %v (written by version %v)", sr.Server, sr.Version)

	// The recording is replayed from memory, so repeat mode doesn't have to
	// reopen and reparse the file for every pass.
	batches := [][]byte{}
	for {
		payload, err := sr.ReadBatch()
		if err == io.EOF {
			break
		}
		if err != nil {
			return err
		}
		batches = append(batches, payload)
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

	for {
		for _, payload := range batches {
			select {
			case <-ctx.Done():
				return nil
			default:
			}

			if err := t.Write(payload); err != nil {
				return err
			}
		}

		if !cfg.Repeat {
			return nil
		}
	}
}
