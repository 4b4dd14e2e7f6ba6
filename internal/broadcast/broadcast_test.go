package broadcast

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
)

func newTestBus(t *testing.T) *Bus {
	t.Helper()
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })
	return NewBus(rdb)
}

func TestPublishRoundTrip(t *testing.T) {
	bus := newTestBus(t)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	got := make(chan Envelope, 4)
	done := make(chan struct{})
	go func() {
		defer close(done)
		_ = bus.Run(ctx, func(env Envelope) { got <- env })
	}()

	// retry until the subscriber is attached
	var env Envelope
	deadline := time.Now().Add(2 * time.Second)
waiting:
	for {
		bus.Publish("R1", "boardstate", "rnbqkbnr/pppppppp/8/8/8/8/PPPPPPPP/RNBQKBNR w KQkq - 0 1")
		select {
		case env = <-got:
			break waiting
		case <-time.After(20 * time.Millisecond):
			if time.Now().After(deadline) {
				t.Fatal("no envelope delivered")
			}
		}
	}

	if env.Room != "R1" || env.Event != "boardstate" {
		t.Fatalf("unexpected envelope: %+v", env)
	}
	var fen string
	if err := json.Unmarshal(env.Data, &fen); err != nil {
		t.Fatalf("decode data: %v", err)
	}
	if fen == "" {
		t.Fatal("empty payload")
	}

	cancel()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Run did not exit on cancel")
	}
}

func TestPublishStructPayload(t *testing.T) {
	bus := newTestBus(t)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	got := make(chan Envelope, 4)
	go func() { _ = bus.Run(ctx, func(env Envelope) { got <- env }) }()

	type clocks struct {
		W int `json:"w"`
		B int `json:"b"`
	}

	var env Envelope
	deadline := time.Now().Add(2 * time.Second)
waiting:
	for {
		bus.Publish("R2", "timers", clocks{W: 300, B: 299})
		select {
		case env = <-got:
			break waiting
		case <-time.After(20 * time.Millisecond):
			if time.Now().After(deadline) {
				t.Fatal("no envelope delivered")
			}
		}
	}

	var c clocks
	if err := json.Unmarshal(env.Data, &c); err != nil {
		t.Fatalf("decode data: %v", err)
	}
	if c.W != 300 || c.B != 299 {
		t.Fatalf("unexpected clocks: %+v", c)
	}
}
