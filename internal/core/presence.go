package core

// Presence tells a room's members when one of them goes online or offline.
type Presence struct {
	rooms   *Registry
	dir     *Directory
	courier courier
}

// NewPresence builds a broadcaster over the given registry and directory.
func NewPresence(rooms *Registry, dir *Directory, rec Recorder) *Presence {
	if rec == nil {
		rec = nopRecorder{}
	}
	return &Presence{rooms: rooms, dir: dir, courier: courier{rec: rec}}
}

// Announce sends a presence event about subject to every other member of room.
// A subject without a profile is announced with an empty profile.
func (p *Presence) Announce(room string, subject *Conn, state PresenceState) int {
	profile, _ := p.dir.Lookup(subject)
	return p.courier.fanout(p.rooms.MembersOf(room, subject), &Event{
		Kind:   EventPresence,
		Room:   room,
		Client: profile,
		State:  state,
	})
}
