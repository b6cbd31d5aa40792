package core

import (
	"runtime"
	"sort"
	"sync"
	"sync/atomic"
)

// room groups connections subscribed to the same name.
type room struct {
	mu      sync.Mutex
	name    string
	members map[*Conn]uint64 // value is the join sequence number
	// dead is set under mu once the room lost its last member; it is never revived.
	dead bool
}

// Registry tracks room membership. A room exists only while it has members.
//
// Lifecycle hooks passed to join and leave run under the room lock, so the
// notifications they send are ordered with every other create or delete of
// the same name.
//
// Lock order: room.mu before Registry.mu, and room.mu before Registry.connMu.
// Registry.mu is never held while acquiring a room lock.
type Registry struct {
	mu    sync.Mutex
	rooms map[string]*room

	seq atomic.Uint64

	connMu      sync.Mutex
	memberships map[*Conn]map[string]struct{}
}

// NewRegistry constructs an empty registry.
func NewRegistry() *Registry {
	return &Registry{
		rooms:       make(map[string]*room),
		memberships: make(map[*Conn]map[string]struct{}),
	}
}

// Join adds c to the named room, creating the room if needed.
// It reports whether the room had no members before the call.
func (r *Registry) Join(name string, c *Conn) bool {
	created, _ := r.join(name, c, nil)
	return created
}

// join adds c to the room. onCreate, if set, runs under the room lock when
// this call created the room.
func (r *Registry) join(name string, c *Conn, onCreate func()) (created, added bool) {
	for {
		rm := r.lookupOrCreate(name)

		rm.mu.Lock()
		if rm.dead {
			// The last member left after we found it; wait for the map entry to go.
			rm.mu.Unlock()
			runtime.Gosched()
			continue
		}
		if _, exists := rm.members[c]; exists {
			rm.mu.Unlock()
			return false, false
		}
		created = len(rm.members) == 0
		rm.members[c] = r.seq.Add(1)
		r.track(c, name)
		if created && onCreate != nil {
			onCreate()
		}
		rm.mu.Unlock()
		return created, true
	}
}

// Leave removes c from the named room and deletes the room when it becomes empty.
// It reports whether this call emptied the room.
func (r *Registry) Leave(name string, c *Conn) bool {
	_, emptied := r.leave(name, c, nil)
	return emptied
}

// leave removes c from the room. onEmpty, if set, runs under the room lock when
// this call emptied the room, before the name becomes free for a new room.
func (r *Registry) leave(name string, c *Conn, onEmpty func()) (removed, emptied bool) {
	rm := r.lookup(name)
	if rm == nil {
		return false, false
	}

	rm.mu.Lock()
	defer rm.mu.Unlock()

	if rm.dead {
		return false, false
	}
	if _, exists := rm.members[c]; !exists {
		return false, false
	}
	delete(rm.members, c)
	r.untrack(c, name)

	if len(rm.members) > 0 {
		return true, false
	}

	rm.dead = true
	if onEmpty != nil {
		onEmpty()
	}
	r.mu.Lock()
	if r.rooms[name] == rm {
		delete(r.rooms, name)
	}
	r.mu.Unlock()
	return true, true
}

// LeaveAll removes c from every room it belongs to. It returns the rooms left and,
// separately, the subset this call emptied.
func (r *Registry) LeaveAll(c *Conn) (left, emptied []string) {
	return r.leaveAll(c, nil)
}

func (r *Registry) leaveAll(c *Conn, onEmpty func(name string)) (left, emptied []string) {
	for _, name := range r.RoomsOf(c) {
		var hook func()
		if onEmpty != nil {
			hook = func() { onEmpty(name) }
		}
		removed, wasLast := r.leave(name, c, hook)
		if !removed {
			continue
		}
		left = append(left, name)
		if wasLast {
			emptied = append(emptied, name)
		}
	}
	return left, emptied
}

// MembersOf returns the room's members in join order, omitting excluding (which may be nil).
func (r *Registry) MembersOf(name string, excluding *Conn) []*Conn {
	rm := r.lookup(name)
	if rm == nil {
		return nil
	}

	rm.mu.Lock()
	type entry struct {
		conn *Conn
		seq  uint64
	}
	entries := make([]entry, 0, len(rm.members))
	for c, seq := range rm.members {
		if c == excluding {
			continue
		}
		entries = append(entries, entry{conn: c, seq: seq})
	}
	rm.mu.Unlock()

	sort.Slice(entries, func(i, j int) bool { return entries[i].seq < entries[j].seq })

	members := make([]*Conn, len(entries))
	for i, e := range entries {
		members[i] = e.conn
	}
	return members
}

// Contains reports whether c is a member of the named room.
func (r *Registry) Contains(name string, c *Conn) bool {
	rm := r.lookup(name)
	if rm == nil {
		return false
	}
	rm.mu.Lock()
	defer rm.mu.Unlock()
	_, ok := rm.members[c]
	return ok
}

// MemberCount returns the number of members, 0 for unknown rooms.
func (r *Registry) MemberCount(name string) int {
	rm := r.lookup(name)
	if rm == nil {
		return 0
	}
	rm.mu.Lock()
	defer rm.mu.Unlock()
	return len(rm.members)
}

// ActiveRoomNames returns a sorted snapshot of every room that has members.
func (r *Registry) ActiveRoomNames() []string {
	r.mu.Lock()
	rooms := make([]*room, 0, len(r.rooms))
	for _, rm := range r.rooms {
		rooms = append(rooms, rm)
	}
	r.mu.Unlock()

	names := make([]string, 0, len(rooms))
	for _, rm := range rooms {
		rm.mu.Lock()
		if !rm.dead && len(rm.members) > 0 {
			names = append(names, rm.name)
		}
		rm.mu.Unlock()
	}
	sort.Strings(names)
	return names
}

// Len returns the number of active rooms.
func (r *Registry) Len() int {
	return len(r.ActiveRoomNames())
}

// RoomsOf returns the sorted names of the rooms c belongs to.
func (r *Registry) RoomsOf(c *Conn) []string {
	r.connMu.Lock()
	set := r.memberships[c]
	names := make([]string, 0, len(set))
	for name := range set {
		names = append(names, name)
	}
	r.connMu.Unlock()

	sort.Strings(names)
	return names
}

func (r *Registry) lookup(name string) *room {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.rooms[name]
}

func (r *Registry) lookupOrCreate(name string) *room {
	r.mu.Lock()
	defer r.mu.Unlock()
	rm, ok := r.rooms[name]
	if !ok {
		rm = &room{name: name, members: make(map[*Conn]uint64)}
		r.rooms[name] = rm
	}
	return rm
}

func (r *Registry) track(c *Conn, name string) {
	r.connMu.Lock()
	defer r.connMu.Unlock()
	set, ok := r.memberships[c]
	if !ok {
		set = make(map[string]struct{})
		r.memberships[c] = set
	}
	set[name] = struct{}{}
}

func (r *Registry) untrack(c *Conn, name string) {
	r.connMu.Lock()
	defer r.connMu.Unlock()
	set := r.memberships[c]
	delete(set, name)
	if len(set) == 0 {
		delete(r.memberships, c)
	}
}
