package core

import (
	"fmt"
	"sync/atomic"
	"testing"
	"time"
)

// mustEvent skips events until one of the given kind arrives.
func mustEvent(t *testing.T, c *Conn, kind EventKind) *Event {
	t.Helper()

	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		select {
		case ev, ok := <-c.Events():
			if !ok {
				t.Fatalf("queue of %s closed while waiting for %v", c.ID, kind)
			}
			if ev.Kind == kind {
				return ev
			}
		default:
			time.Sleep(10 * time.Millisecond)
		}
	}
	t.Fatalf("expected event kind %v not received by %s", kind, c.ID)
	return nil
}

// nextEvent returns the very next queued event and fails if it is not of the given kind.
func nextEvent(t *testing.T, c *Conn, kind EventKind) *Event {
	t.Helper()

	select {
	case ev, ok := <-c.Events():
		if !ok {
			t.Fatalf("queue of %s closed while expecting %v", c.ID, kind)
		}
		if ev.Kind != kind {
			t.Fatalf("%s: expected %v, got %v (%+v)", c.ID, kind, ev.Kind, ev)
		}
		return ev
	case <-time.After(2 * time.Second):
		t.Fatalf("%s: expected %v, got nothing", c.ID, kind)
	}
	return nil
}

// drain discards everything currently queued for c.
func drain(c *Conn) {
	for {
		select {
		case _, ok := <-c.Events():
			if !ok {
				return
			}
		default:
			return
		}
	}
}

func assertNoEvent(t *testing.T, c *Conn) {
	t.Helper()
	select {
	case ev, ok := <-c.Events():
		if ok {
			t.Fatalf("%s: unexpected event %v (%+v)", c.ID, ev.Kind, ev)
		}
	default:
	}
}

type seqIDs struct {
	n atomic.Uint64
}

func (s *seqIDs) NewID() string {
	return fmt.Sprintf("client-%d", s.n.Add(1))
}

func newTestHub() *Hub {
	return NewHub(Options{IDs: &seqIDs{}})
}

// connectAs opens and identifies a connection, discarding the identification events.
func connectAs(t *testing.T, hub *Hub, nickname string) *Conn {
	t.Helper()

	c := NewConn(nickname, 64)
	hub.Connect(c)
	if err := hub.Dispatch(c, &Command{Kind: CommandIdentify, Nickname: nickname}); err != nil {
		t.Fatalf("identify %s: %v", nickname, err)
	}
	mustEvent(t, c, EventRoomsList)
	return c
}
