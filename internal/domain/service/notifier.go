package service

import (
	"context"
	"sync"
	"telldus-bridge/internal/ports"
)

// DefaultNotifyQueue is the number of pending notifications held before new
// ones are dropped.
const DefaultNotifyQueue = 256

type notification func(context.Context, ports.StateListener)

// notifier delivers state events to listeners from a single goroutine, in
// the order they were queued. Callers never wait on a listener: when the
// queue is full the event is dropped and logged.
type notifier struct {
	listeners []ports.StateListener
	logger    ports.Logger

	mu     sync.RWMutex
	closed bool
	queue  chan queued
	done   chan struct{}
}

type queued struct {
	ctx context.Context
	fn  notification
}

func newNotifier(listeners []ports.StateListener, size int, logger ports.Logger) *notifier {
	n := &notifier{listeners: listeners, logger: logger, done: make(chan struct{})}
	if len(listeners) == 0 {
		close(n.done)
		return n
	}
	if size <= 0 {
		size = DefaultNotifyQueue
	}
	n.queue = make(chan queued, size)
	go n.run()
	return n
}

// notify queues fn for every listener. ctx keeps its values but not its
// cancellation, since delivery outlives the request that caused it.
func (n *notifier) notify(ctx context.Context, event string, fn notification) {
	if len(n.listeners) == 0 {
		return
	}
	n.mu.RLock()
	defer n.mu.RUnlock()
	if n.closed {
		return
	}
	select {
	case n.queue <- queued{ctx: context.WithoutCancel(ctx), fn: fn}:
	default:
		n.logger.Warn("listener queue full, dropping event", "event", event)
	}
}

func (n *notifier) run() {
	defer close(n.done)
	for q := range n.queue {
		for _, l := range n.listeners {
			q.fn(q.ctx, l)
		}
	}
}

// close stops accepting events and waits for queued ones to be delivered.
func (n *notifier) close() {
	n.mu.Lock()
	if !n.closed && n.queue != nil {
		close(n.queue)
	}
	n.closed = true
	n.mu.Unlock()
	<-n.done
}
