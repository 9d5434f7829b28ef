package bot

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrijs2005/hronboard/internal/logging"
)

type handlerFunc func(ctx context.Context, ev Event) error

func (f handlerFunc) Handle(ctx context.Context, ev Event) error { return f(ctx, ev) }

func TestDispatcher_PreservesOrderPerChat(t *testing.T) {
	var mu sync.Mutex
	seen := map[int64][]string{}
	d := NewDispatcher(handlerFunc(func(_ context.Context, ev Event) error {
		time.Sleep(time.Millisecond)
		mu.Lock()
		seen[ev.ChatID] = append(seen[ev.ChatID], ev.Text)
		mu.Unlock()
		return nil
	}), logging.Discard())

	want := []string{"1", "2", "3", "4", "5"}
	for _, text := range want {
		d.Dispatch(context.Background(), Event{ChatID: 1, Text: text})
		d.Dispatch(context.Background(), Event{ChatID: 2, Text: text})
	}
	d.Wait()

	assert.Equal(t, want, seen[1])
	assert.Equal(t, want, seen[2])
}

func TestDispatcher_ChatsRunInParallel(t *testing.T) {
	release := make(chan struct{})
	done := make(chan int64, 2)
	d := NewDispatcher(handlerFunc(func(_ context.Context, ev Event) error {
		if ev.ChatID == 1 {
			<-release
		}
		done <- ev.ChatID
		return nil
	}), logging.Discard())

	d.Dispatch(context.Background(), Event{ChatID: 1})
	d.Dispatch(context.Background(), Event{ChatID: 2})

	select {
	case id := <-done:
		assert.Equal(t, int64(2), id)
	case <-time.After(time.Second):
		t.Fatal("chat 2 was blocked by chat 1")
	}
	close(release)
	d.Wait()
	assert.Equal(t, int64(1), <-done)
}

func TestDispatcher_RecoversFromPanic(t *testing.T) {
	var handled []string
	d := NewDispatcher(handlerFunc(func(_ context.Context, ev Event) error {
		if ev.Text == "boom" {
			panic("boom")
		}
		handled = append(handled, ev.Text)
		return nil
	}), logging.Discard())

	d.Dispatch(context.Background(), Event{ChatID: 1, Text: "boom"})
	d.Dispatch(context.Background(), Event{ChatID: 1, Text: "after"})
	d.Wait()

	assert.Equal(t, []string{"after"}, handled)
}

func TestDispatcher_RunStopsWhenChannelCloses(t *testing.T) {
	var mu sync.Mutex
	count := 0
	d := NewDispatcher(handlerFunc(func(context.Context, Event) error {
		mu.Lock()
		count++
		mu.Unlock()
		return nil
	}), logging.Discard())

	events := make(chan Event, 3)
	events <- Event{ChatID: 1}
	events <- Event{ChatID: 2}
	events <- Event{ChatID: 1}
	close(events)

	require.NoError(t, d.Run(context.Background(), events))
	assert.Equal(t, 3, count)
}

func TestDispatcher_RunStopsOnCancel(t *testing.T) {
	d := NewDispatcher(handlerFunc(func(context.Context, Event) error { return nil }), logging.Discard())
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := d.Run(ctx, make(chan Event))

	assert.ErrorIs(t, err, context.Canceled)
}
