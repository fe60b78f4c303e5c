package events

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"go.uber.org/zap"
)

func setupRedisBus(t *testing.T, mr *miniredis.Miniredis) *RedisBus {
	t.Helper()
	bus, err := NewRedisBus(context.Background(), "redis://"+mr.Addr(), zap.NewNop())
	if err != nil {
		t.Fatalf("failed to connect bus: %v", err)
	}
	t.Cleanup(func() { bus.Close() })
	return bus
}

func waitFor(t *testing.T, what string, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for !cond() {
		if time.Now().After(deadline) {
			t.Fatalf("timed out waiting for %s", what)
		}
		time.Sleep(5 * time.Millisecond)
	}
}

func subscribers(mr *miniredis.Miniredis) int {
	return mr.PubSubNumSub(journalChannel)[journalChannel]
}

func TestRedisBusInvalidatesPublisherSynchronously(t *testing.T) {
	mr := miniredis.RunT(t)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	writer := setupRedisBus(t, mr)
	reader := setupRedisBus(t, mr)

	var writerCalls, readerCalls atomic.Int32
	writer.Subscribe(func(userID int) {
		if userID == 9 {
			writerCalls.Add(1)
		}
	})
	reader.Subscribe(func(userID int) {
		if userID == 9 {
			readerCalls.Add(1)
		}
	})
	go writer.Relay(ctx, nil)
	go reader.Relay(ctx, nil)
	waitFor(t, "both relays to subscribe", func() bool { return subscribers(mr) == 2 })

	if err := writer.PublishJournalWritten(ctx, 9); err != nil {
		t.Fatalf("publish: %v", err)
	}
	if got := writerCalls.Load(); got != 1 {
		t.Fatalf("expected the publisher's sessions invalidated before publish returns, got %d", got)
	}

	waitFor(t, "the other instance to receive the write", func() bool { return readerCalls.Load() == 1 })
	// The writer's own echo arrives around the same time; give it a chance.
	time.Sleep(50 * time.Millisecond)
	if got := writerCalls.Load(); got != 1 {
		t.Errorf("expected the publisher to drop its own echo, got %d calls", got)
	}
}

func TestRedisBusRelayIgnoresMalformedMessages(t *testing.T) {
	mr := miniredis.RunT(t)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	bus := setupRedisBus(t, mr)
	var got atomic.Int32
	bus.Subscribe(func(userID int) { got.Store(int32(userID)) })
	go bus.Relay(ctx, nil)
	waitFor(t, "relay to subscribe", func() bool { return subscribers(mr) == 1 })

	mr.Publish(journalChannel, "garbage")
	mr.Publish(journalChannel, "other-instance:5")
	waitFor(t, "the valid message to be relayed", func() bool { return got.Load() == 5 })
}

func TestRedisBusRelayResyncsAfterResubscribe(t *testing.T) {
	mr := miniredis.RunT(t)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	bus := setupRedisBus(t, mr)
	bus.retryDelay = 10 * time.Millisecond

	mr.Close()
	var resyncs atomic.Int32
	go bus.Relay(ctx, func() { resyncs.Add(1) })

	// Let the first subscribe attempt fail before Redis comes back.
	time.Sleep(30 * time.Millisecond)
	if err := mr.Restart(); err != nil {
		t.Fatalf("restart redis: %v", err)
	}
	waitFor(t, "relay to resubscribe", func() bool { return subscribers(mr) == 1 })
	waitFor(t, "resync after resubscribe", func() bool { return resyncs.Load() == 1 })
}

func TestParseMessage(t *testing.T) {
	origin, id, err := parseMessage(formatMessage("abc", 12))
	if err != nil || origin != "abc" || id != 12 {
		t.Errorf("expected abc/12, got %s/%d (%v)", origin, id, err)
	}
	for _, bad := range []string{"", "12", ":12", "abc:", "abc:x"} {
		if _, _, err := parseMessage(bad); err == nil {
			t.Errorf("expected error for %q", bad)
		}
	}
}
