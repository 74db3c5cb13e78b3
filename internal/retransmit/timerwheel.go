// Package retransmit implements a single timer service shared by a Sender,
// replacing the naive one-goroutine-per-outstanding-frame model the
// reference implementation uses (spec.md §9 Design Notes: "per-frame
// cancellable timers"). A min-heap keyed by expiry is serviced by one
// goroutine; cancellation is marking-by-sequence with lazy removal.
package retransmit

import (
	"container/heap"
	"context"
	"sync"
	"time"
)

type entry struct {
	seq      uint32
	expireAt time.Time
	index    int // heap index, maintained by heap.Interface
	live     bool
}

type entryHeap []*entry

func (h entryHeap) Len() int            { return len(h) }
func (h entryHeap) Less(i, j int) bool  { return h[i].expireAt.Before(h[j].expireAt) }
func (h entryHeap) Swap(i, j int)       { h[i], h[j] = h[j], h[i]; h[i].index = i; h[j].index = j }
func (h *entryHeap) Push(x any)         { e := x.(*entry); e.index = len(*h); *h = append(*h, e) }
func (h *entryHeap) Pop() any {
	old := *h
	n := len(old)
	e := old[n-1]
	old[n-1] = nil
	*h = old[:n-1]
	return e
}

// TimerWheel arms, re-arms, and cancels per-sequence timers for a single
// Sender and invokes onExpire(seq) on its own service goroutine when a
// still-live timer fires.
type TimerWheel struct {
	mu       sync.Mutex
	cond     *sync.Cond
	byseq    map[uint32]*entry
	heap     entryHeap
	onExpire func(seq uint32)
	closed   bool
}

// New creates a TimerWheel that calls onExpire for every timer that fires
// while still live (not cancelled in the meantime).
func New(onExpire func(seq uint32)) *TimerWheel {
	tw := &TimerWheel{
		byseq:    make(map[uint32]*entry),
		onExpire: onExpire,
	}
	tw.cond = sync.NewCond(&tw.mu)
	return tw
}

// Arm schedules (or re-arms) a timer for seq to fire after d. Arming an
// already-armed seq cancels the prior timer first.
func (tw *TimerWheel) Arm(seq uint32, d time.Duration) {
	tw.mu.Lock()
	defer tw.mu.Unlock()
	if old, ok := tw.byseq[seq]; ok {
		old.live = false
	}
	e := &entry{seq: seq, expireAt: time.Now().Add(d), live: true}
	tw.byseq[seq] = e
	heap.Push(&tw.heap, e)
	tw.cond.Signal()
}

// Cancel marks the timer for seq as no longer live. A cancelled timer
// never invokes onExpire even if it has already fired and is queued for
// processing — cancellation just flips a flag and removal is lazy.
func (tw *TimerWheel) Cancel(seq uint32) {
	tw.mu.Lock()
	defer tw.mu.Unlock()
	if e, ok := tw.byseq[seq]; ok {
		e.live = false
		delete(tw.byseq, seq)
	}
}

// Outstanding returns the number of currently-live armed timers.
func (tw *TimerWheel) Outstanding() int {
	tw.mu.Lock()
	defer tw.mu.Unlock()
	return len(tw.byseq)
}

// Run services the heap until ctx is cancelled. Intended to be launched
// with `go tw.Run(ctx)`, one goroutine per Sender.
func (tw *TimerWheel) Run(ctx context.Context) {
	go func() {
		<-ctx.Done()
		tw.mu.Lock()
		tw.closed = true
		tw.mu.Unlock()
		tw.cond.Broadcast()
	}()
	for {
		tw.mu.Lock()
		for len(tw.heap) == 0 && !tw.closed {
			tw.cond.Wait()
		}
		if tw.closed && len(tw.heap) == 0 {
			tw.mu.Unlock()
			return
		}
		next := tw.heap[0]
		wait := time.Until(next.expireAt)
		tw.mu.Unlock()

		if wait > 0 {
			t := time.NewTimer(wait)
			select {
			case <-t.C:
			case <-ctx.Done():
				t.Stop()
				return
			}
		}

		tw.mu.Lock()
		if len(tw.heap) == 0 {
			tw.mu.Unlock()
			continue
		}
		e := heap.Pop(&tw.heap).(*entry)
		live := e.live
		if live {
			delete(tw.byseq, e.seq)
		}
		tw.mu.Unlock()

		if live {
			tw.onExpire(e.seq)
		}
	}
}
