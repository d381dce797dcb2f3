// Package runners drives chunk processing with a bounded concurrent pool.
// Admission goes through the queue's running counter: a runner claims a
// chunk only while the pool is below its limit, and a finishing runner
// immediately tries to claim the next one. There is no polling loop.
package runners

import (
	"context"
	"sync"

	"github.com/stevecastle/parallax/jobqueue"
)

// ChunkFunc processes one claimed chunk to completion.
type ChunkFunc func(ctx context.Context, chunk *jobqueue.Chunk) error

// Runners manages the pool of concurrent chunk runners.
type Runners struct {
	queue  *jobqueue.Queue
	fn     ChunkFunc
	mu     sync.Mutex
	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup // signal listener
	jobs   sync.WaitGroup // in-flight chunks
}

// New creates a Runners pool and starts listening for claimable chunks.
func New(ctx context.Context, queue *jobqueue.Queue, fn ChunkFunc) *Runners {
	ctx, cancel := context.WithCancel(ctx)
	r := &Runners{
		queue:  queue,
		fn:     fn,
		ctx:    ctx,
		cancel: cancel,
	}

	r.wg.Add(1)
	go func() {
		defer r.wg.Done()
		for {
			select {
			case <-r.ctx.Done():
				return
			case <-r.queue.Signal:
				r.CheckForChunks()
			}
		}
	}()

	return r
}

// CheckForChunks attempts to claim and run chunks up to the pool limit.
func (r *Runners) CheckForChunks() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.tryClaimAndRun()
}

// tryClaimAndRun claims one chunk if capacity allows and runs it in its
// own goroutine. Callers hold r.mu.
func (r *Runners) tryClaimAndRun() {
	if r.ctx.Err() != nil {
		return
	}
	chunk := r.queue.ClaimChunk()
	if chunk == nil {
		return
	}

	r.jobs.Add(1)
	go func() {
		defer r.jobs.Done()
		err := r.fn(r.ctx, chunk)
		if err != nil {
			_ = r.queue.ErrorChunk(chunk.ID, err)
		} else {
			_ = r.queue.CompleteChunk(chunk.ID)
		}
		// The released slot may admit the next pending chunk.
		r.mu.Lock()
		r.tryClaimAndRun()
		r.mu.Unlock()
	}()
}

// Stop cancels chunk admission: pending chunks are cancelled and no new
// claims happen, but in-flight chunks run to completion. It returns the
// number of chunks that were cancelled before running.
func (r *Runners) Stop() int {
	r.cancel()
	return r.queue.CancelPending()
}

// Shutdown stops admission and waits for the listener and all in-flight
// chunks to finish.
func (r *Runners) Shutdown() {
	r.cancel()
	r.wg.Wait()
	r.jobs.Wait()
}
