package core

// Recorder observes outbound delivery outcomes.
type Recorder interface {
	Delivered(kind EventKind)
	Dropped(kind EventKind)
}

type nopRecorder struct{}

func (nopRecorder) Delivered(EventKind) {}
func (nopRecorder) Dropped(EventKind)   {}

// courier hands events to connection queues. Every recipient is attempted independently.
type courier struct {
	rec Recorder
}

func (c courier) send(to *Conn, ev *Event) bool {
	if to.deliver(ev) {
		c.rec.Delivered(ev.Kind)
		return true
	}
	c.rec.Dropped(ev.Kind)
	return false
}

// fanout delivers ev to every recipient and returns how many accepted it.
func (c courier) fanout(to []*Conn, ev *Event) int {
	delivered := 0
	for _, conn := range to {
		if c.send(conn, ev) {
			delivered++
		}
	}
	return delivered
}
