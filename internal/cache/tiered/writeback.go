/*
 * Copyright 2024 The TierCache Authors
 *
 * Licensed under the Apache License, Version 2.0 (the "License");
 * you may not use this file except in compliance with the License.
 * You may obtain a copy of the License at
 *
 *     http://www.apache.org/licenses/LICENSE-2.0
 *
 * Unless required by applicable law or agreed to in writing, software
 * distributed under the License is distributed on an "AS IS" BASIS,
 * WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 * See the License for the specific language governing permissions and
 * limitations under the License.
 */

package tiered

import (
	"context"
	"hash/fnv"
	"sync"
	"time"

	"github.com/pkg/errors"

	"github.com/a2z2k25/BUMBA-2.0-sub007/internal/cache"
	"github.com/a2z2k25/BUMBA-2.0-sub007/internal/util/log"
)

// ErrDrainTimeout is returned when Close gives up waiting for in-flight
// background writes
var ErrDrainTimeout = errors.New("timed out draining writeback queue")

// writebackOp is one queued persistent-tier operation. A nil entry marks a
// delete.
type writebackOp struct {
	entry *cache.Entry
	key   string
}

// writebackQueue asynchronously applies stores and deletes to the persistent
// tier with a fixed pool of workers. Operations are dispatched to workers by
// key hash, so operations on the same key are always applied in submission
// order.
type writebackQueue struct {
	store   func(*cache.Entry) error
	remove  func(key string) bool
	queues  []chan writebackOp
	wg      sync.WaitGroup
	pending sync.WaitGroup

	// mtx is read-held across the channel send in submit so close cannot
	// close a worker channel out from under a blocked sender
	mtx    sync.RWMutex
	closed bool
}

// newWritebackQueue starts workers goroutines applying operations via store
// and remove
func newWritebackQueue(workers, depth int, store func(*cache.Entry) error,
	remove func(key string) bool) *writebackQueue {
	q := &writebackQueue{
		store:  store,
		remove: remove,
		queues: make([]chan writebackOp, workers),
	}
	for i := range q.queues {
		q.queues[i] = make(chan writebackOp, depth)
		q.wg.Add(1)
		go q.work(q.queues[i])
	}
	return q
}

func (q *writebackQueue) work(ch <-chan writebackOp) {
	defer q.wg.Done()
	for op := range ch {
		if op.entry == nil {
			q.remove(op.key)
		} else if err := q.store(op.entry); err != nil {
			log.Error("writeback persist failed",
				log.Pairs{"key": op.key, "detail": err.Error()})
		}
		q.pending.Done()
	}
}

// enqueue submits an entry for background persistence, blocking when the
// target worker's queue is full. It returns false once the queue is closed.
func (q *writebackQueue) enqueue(e *cache.Entry) bool {
	return q.submit(writebackOp{entry: e, key: e.Key})
}

// enqueueDelete submits a persistent-tier removal for key, ordered behind any
// earlier queued write to the same key
func (q *writebackQueue) enqueueDelete(key string) bool {
	return q.submit(writebackOp{key: key})
}

func (q *writebackQueue) submit(op writebackOp) bool {
	q.mtx.RLock()
	defer q.mtx.RUnlock()
	if q.closed {
		return false
	}
	q.pending.Add(1)
	h := fnv.New32a()
	h.Write([]byte(op.key))
	q.queues[int(h.Sum32())%len(q.queues)] <- op
	return true
}

// flush blocks until all currently queued operations have been applied, or
// the context is done
func (q *writebackQueue) flush(ctx context.Context) error {
	done := make(chan struct{})
	go func() {
		q.pending.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// close stops accepting operations and waits up to grace for the workers to
// drain their queues. Taking the write lock first waits out any sender still
// inside submit, so the worker channels are only closed once no send can be
// in flight.
func (q *writebackQueue) close(grace time.Duration) error {
	q.mtx.Lock()
	if q.closed {
		q.mtx.Unlock()
		return nil
	}
	q.closed = true
	q.mtx.Unlock()

	for _, ch := range q.queues {
		close(ch)
	}

	done := make(chan struct{})
	go func() {
		q.wg.Wait()
		close(done)
	}()

	if grace <= 0 {
		<-done
		return nil
	}
	select {
	case <-done:
		return nil
	case <-time.After(grace):
		return ErrDrainTimeout
	}
}
