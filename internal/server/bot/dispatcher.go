package bot

import (
	"context"
	"fmt"
	"sync"

	"github.com/dmitrijs2005/hronboard/internal/logging"
)

// Handler processes one event.
type Handler interface {
	Handle(ctx context.Context, ev Event) error
}

// Dispatcher serializes events per chat while different chats are handled
// in parallel. Each chat with pending events has exactly one drain goroutine.
type Dispatcher struct {
	handler Handler
	logger  logging.Logger

	mu     sync.Mutex
	queues map[int64][]Event
	wg     sync.WaitGroup
}

func NewDispatcher(handler Handler, logger logging.Logger) *Dispatcher {
	return &Dispatcher{
		handler: handler,
		logger:  logger.With("module", "dispatcher"),
		queues:  make(map[int64][]Event),
	}
}

// Dispatch enqueues ev behind earlier events of the same chat.
func (d *Dispatcher) Dispatch(ctx context.Context, ev Event) {
	d.mu.Lock()
	q, busy := d.queues[ev.ChatID]
	d.queues[ev.ChatID] = append(q, ev)
	d.mu.Unlock()

	if !busy {
		d.wg.Add(1)
		go d.drain(ctx, ev.ChatID)
	}
}

// drain handles the chat's queue until it is empty, then forgets the chat.
func (d *Dispatcher) drain(ctx context.Context, chatID int64) {
	defer d.wg.Done()
	for {
		d.mu.Lock()
		q := d.queues[chatID]
		if len(q) == 0 {
			delete(d.queues, chatID)
			d.mu.Unlock()
			return
		}
		ev := q[0]
		d.queues[chatID] = q[1:]
		d.mu.Unlock()

		d.handle(ctx, ev)
	}
}

func (d *Dispatcher) handle(ctx context.Context, ev Event) {
	defer func() {
		if r := recover(); r != nil {
			d.logger.Error(ctx, "event handler panicked", "chat_id", ev.ChatID, "panic", fmt.Sprint(r))
		}
	}()
	if err := d.handler.Handle(ctx, ev); err != nil {
		d.logger.Warn(ctx, "event handling failed", "chat_id", ev.ChatID, "kind", ev.Kind, "error", err)
	}
}

// Run dispatches events until the channel is closed or ctx is done, then
// waits for in-flight chats to drain.
func (d *Dispatcher) Run(ctx context.Context, events <-chan Event) error {
	defer d.Wait()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case ev, ok := <-events:
			if !ok {
				return nil
			}
			d.Dispatch(ctx, ev)
		}
	}
}

// Wait blocks until every queued event was handled.
func (d *Dispatcher) Wait() {
	d.wg.Wait()
}
