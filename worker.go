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
)

// A worker owns one transport and one precomputed batch set. Batches are
// handed over at construction and read-only afterwards, so workers share
// nothing with each other.
type worker struct {
	ID      int
	Batches []batch
	Dial    dialFunc

	Recorder *streamRecorder // Optional, shared between workers, locks internally

	PixelsSent int
}

// Terminal outcome of one worker run.
type workerResult struct {
	ID         int
	PixelsSent int
	Err        error
}

func newWorker(id int, batches []batch, dial dialFunc, rec *streamRecorder) *worker {
	return &worker{
		ID:       id,
		Batches:  batches,
		Dial:     dial,
		Recorder: rec,
	}
}

// Writes every batch once, in order, over a dedicated connection.
// A worker with no batches reports success without dialing at all.
func (w *worker) sendOnce() workerResult {
	if len(w.Batches) == 0 {
		return workerResult{ID: w.ID}
	}

	t, err := w.Dial()
	if err != nil {
		return workerResult{ID: w.ID, Err: err}
	}
	defer t.Close()

	err = w.sendBatches(t)
	return workerResult{ID: w.ID, PixelsSent: w.PixelsSent, Err: err}
}

// Writes the batch set over and over until the context is cancelled or a
// write fails. Cancellation is checked once per batch, so a worker reacts
// within one network write.
func (w *worker) sendForever(ctx context.Context) workerResult {
	if len(w.Batches) == 0 {
		return workerResult{ID: w.ID}
	}

	t, err := w.Dial()
	if err != nil {
		return workerResult{ID: w.ID, Err: err}
	}
	defer t.Close()

	for {
		for i := range w.Batches {
			select {
			case <-ctx.Done():
				return workerResult{ID: w.ID, PixelsSent: w.PixelsSent}
			default:
			}

			if err := w.writeBatch(t, &w.Batches[i]); err != nil {
				return workerResult{ID: w.ID, PixelsSent: w.PixelsSent, Err: err}
			}
		}
	}
}

func (w *worker) sendBatches(t transport) error {
	for i := range w.Batches {
		if err := w.writeBatch(t, &w.Batches[i]); err != nil {
			return err
		}
	}
	return nil
}

func (w *worker) writeBatch(t transport, b *batch) error {
	if err := t.Write(b.Payload); err != nil {
		return fmt.Errorf("worker %v: %w", w.ID, err)
	}
	w.PixelsSent += b.Pixels

	if w.Recorder != nil {
		if err := w.Recorder.WriteBatch(b.Payload); err != nil {
			log.Warnf("Can't record batch: %v", err)
			w.Recorder = nil // Don't retry a broken recording for every batch
		}
	}

	return nil
}
