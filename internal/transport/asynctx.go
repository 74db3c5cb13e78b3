package transport

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
)

// AsyncTx is a reusable asynchronous packet transmitter that funnels writes
// through a single goroutine (fan-in). It provides non-blocking enqueue
// semantics: if the internal buffer is full, SendPacket invokes the
// configured OnDrop hook and returns its error. This keeps producers (the
// Sender, retransmitting under its own mutex) from blocking behind a slow
// or wedged real transport.
//
// Life-cycle:
//
//	a := NewAsyncTx(ctx, buf, writeFn, hooks)
//	a.SendPacket(packet)
//	a.Close()
type AsyncTx struct {
	mu     sync.Mutex
	ch     chan []byte
	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
	write  func([]byte) error
	hooks  Hooks
	closed atomic.Bool
}

// Hooks customize AsyncTx behavior so callers can wire distinct metrics and
// logging without duplicating the goroutine/buffer plumbing.
type Hooks struct {
	OnError func(error)
	OnAfter func()
	OnDrop  func() error
}

// ErrAsyncTxClosed is returned by SendPacket once Close has been called.
var ErrAsyncTxClosed = errors.New("transport: async tx closed")

// NewAsyncTx constructs an AsyncTx with a buffered channel of size buf.
func NewAsyncTx(parent context.Context, buf int, write func([]byte) error, hooks Hooks) *AsyncTx {
	ctx, cancel := context.WithCancel(parent)
	a := &AsyncTx{
		ch:     make(chan []byte, buf),
		ctx:    ctx,
		cancel: cancel,
		write:  write,
		hooks:  hooks,
	}
	a.wg.Add(1)
	go a.loop()
	return a
}

func (a *AsyncTx) loop() {
	defer a.wg.Done()
	for {
		select {
		case pkt, ok := <-a.ch:
			if !ok {
				return
			}
			if err := a.write(pkt); err != nil {
				if a.hooks.OnError != nil {
					a.hooks.OnError(err)
				}
				continue
			}
			if a.hooks.OnAfter != nil {
				a.hooks.OnAfter()
			}
		case <-a.ctx.Done():
			return
		}
	}
}

// SendPacket queues a packet for asynchronous transmission, or returns the
// drop error (if any) when the buffer is full.
func (a *AsyncTx) SendPacket(pkt []byte) error {
	if a.closed.Load() {
		return ErrAsyncTxClosed
	}
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.closed.Load() {
		return ErrAsyncTxClosed
	}
	select {
	case a.ch <- pkt:
		return nil
	default:
		if a.hooks.OnDrop != nil {
			return a.hooks.OnDrop()
		}
		return nil
	}
}

// Close stops the worker and waits for it to exit.
func (a *AsyncTx) Close() {
	if a.closed.Swap(true) {
		return
	}
	a.cancel()
	a.mu.Lock()
	close(a.ch)
	a.mu.Unlock()
	a.wg.Wait()
}
