package pipeline

import (
	"context"
	"time"
)

// Batch sizing constants: target ~100KiB of chunk content per batch,
// clamped to [32, 256] chunks, force-flushed at 512KiB or after 50ms of
// inactivity once the batch has its first chunk.
const (
	batchTargetBytes = 100 * 1024
	batchMinChunks   = 32
	batchMaxChunks   = 256
	batchMaxBytes    = 512 * 1024
	batchIdleDeadline = 50 * time.Millisecond
)

// runBatcher groups parsed files' chunks into adaptively-sized batches.
// A batch flushes when any of these fires: accumulated content reaches
// batchMaxBytes, batchMaxChunks is reached, the idle deadline (armed on
// the batch's first chunk) elapses with no new arrivals, or the upstream
// channel closes. A batch that has reached batchTargetBytes but not yet
// batchMinChunks keeps accepting chunks up to batchMinChunks before being
// eligible to flush on the size trigger — small chunks from prose-like
// files should not force pathologically tiny batches.
func runBatcher(ctx context.Context, in <-chan ParsedFile) <-chan Batch {
	out := make(chan Batch, batchChannelCap)

	go func() {
		defer close(out)

		var cur Batch
		var curBytes int
		var timer *time.Timer
		var timerC <-chan time.Time

		resetBatch := func() {
			cur = Batch{Files: make(map[string]*ParsedFile)}
			curBytes = 0
			if timer != nil {
				timer.Stop()
				timer = nil
				timerC = nil
			}
		}
		resetBatch()

		flush := func() {
			if len(cur.Chunks) == 0 {
				return
			}
			select {
			case out <- cur:
			case <-ctx.Done():
			}
			resetBatch()
		}

		for {
			select {
			case pf, ok := <-in:
				if !ok {
					flush()
					return
				}
				cur.Files[pf.Task.Path] = &pf
				for _, c := range pf.Doc.Chunks {
					cur.Chunks = append(cur.Chunks, chunkUnit{file: pf.Task, chunk: c})
					curBytes += len(c.Content)
				}

				if timer == nil && len(cur.Chunks) > 0 {
					timer = time.NewTimer(batchIdleDeadline)
					timerC = timer.C
				} else if timer != nil {
					if !timer.Stop() {
						<-timerC
					}
					timer.Reset(batchIdleDeadline)
				}

				if curBytes >= batchMaxBytes || len(cur.Chunks) >= batchMaxChunks {
					flush()
					continue
				}
				if curBytes >= batchTargetBytes && len(cur.Chunks) >= batchMinChunks {
					flush()
				}

			case <-timerC:
				flush()

			case <-ctx.Done():
				return
			}
		}
	}()

	return out
}
