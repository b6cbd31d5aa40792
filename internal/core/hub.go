package core

import (
	"sync"

	"github.com/rs/zerolog"

	"github.com/vovakirdan/roomrelay/internal/utils"
)

// DefaultLobby is the room every client joins right after identifying.
const DefaultLobby = "lobby"

// IDGenerator produces client identifiers. Implementations must be safe for concurrent use.
type IDGenerator interface {
	NewID() string
}

// Options configures a Hub. Zero values fall back to defaults.
type Options struct {
	Lobby    string
	IDs      IDGenerator
	Recorder Recorder
	Logger   *zerolog.Logger
}

// Hub coordinates connections, rooms and presence. It is the only entry point
// the transport calls into.
type Hub struct {
	lobby    string
	ids      IDGenerator
	rooms    *Registry
	dir      *Directory
	presence *Presence
	courier  courier
	log      *zerolog.Logger

	mu    sync.RWMutex
	conns map[*Conn]struct{}
}

// RoomStat describes one active room.
type RoomStat struct {
	Name    string `json:"name"`
	Members int    `json:"members"`
}

// NewHub creates a new chat hub instance.
func NewHub(opts Options) *Hub {
	if opts.Lobby == "" {
		opts.Lobby = DefaultLobby
	}
	if opts.IDs == nil {
		opts.IDs = utils.UUIDGenerator{}
	}
	if opts.Recorder == nil {
		opts.Recorder = nopRecorder{}
	}
	if opts.Logger == nil {
		nop := zerolog.Nop()
		opts.Logger = &nop
	}

	rooms := NewRegistry()
	dir := NewDirectory()
	return &Hub{
		lobby:    opts.Lobby,
		ids:      opts.IDs,
		rooms:    rooms,
		dir:      dir,
		presence: NewPresence(rooms, dir, opts.Recorder),
		courier:  courier{rec: opts.Recorder},
		log:      opts.Logger,
		conns:    make(map[*Conn]struct{}),
	}
}

// Rooms exposes the hub's registry for read-only inspection.
func (h *Hub) Rooms() *Registry {
	return h.rooms
}

// Directory exposes the hub's connection directory for read-only inspection.
func (h *Hub) Directory() *Directory {
	return h.dir
}

// Connect registers a freshly accepted connection in the anonymous state.
func (h *Hub) Connect(c *Conn) {
	if c.State() == StateClosed {
		return
	}
	h.mu.Lock()
	h.conns[c] = struct{}{}
	h.mu.Unlock()
	h.log.Debug().Str("conn_id", c.ID).Msg("connection opened")
}

// Disconnect announces c offline in each of its rooms, then unwinds every
// membership and forgets its profile. Calling it more than once is a no-op.
func (h *Hub) Disconnect(c *Conn) {
	c.seq.Lock()
	defer c.seq.Unlock()

	if !c.close() {
		return
	}

	h.mu.Lock()
	delete(h.conns, c)
	h.mu.Unlock()

	// c.seq is held, so no join for c can land between these two steps.
	for _, name := range h.rooms.RoomsOf(c) {
		h.presence.Announce(name, c, PresenceOffline)
	}
	h.rooms.leaveAll(c, h.roomRemoved)

	h.dir.Remove(c)
	h.log.Debug().Str("conn_id", c.ID).Msg("connection closed")
}

// Dispatch executes a command on behalf of c. Domain errors are delivered to c as
// an error event and also returned.
func (h *Hub) Dispatch(c *Conn, cmd *Command) error {
	c.seq.Lock()
	defer c.seq.Unlock()

	var err *CoreError
	switch state := c.State(); {
	case state == StateClosed:
		return coreError(ErrConnClosed, ErrCodeConnClosed, "connection is closed")
	case cmd == nil:
		err = coreError(ErrBadRequest, ErrCodeBadRequest, "empty command")
	case cmd.Kind == CommandIdentify:
		err = h.identify(c, cmd)
	case state != StateIdentified:
		err = coreError(ErrNotIdentified, ErrCodeNotIdentified, "identify before "+cmd.Kind.String())
	default:
		err = h.dispatchIdentified(c, cmd)
	}

	if err == nil {
		return nil
	}
	h.courier.send(c, &Event{Kind: EventError, Error: err})
	return err
}

func (h *Hub) dispatchIdentified(c *Conn, cmd *Command) *CoreError {
	switch cmd.Kind {
	case CommandSubscribe, CommandUnsubscribe, CommandChatMessage:
		if cmd.Room == "" {
			return coreError(ErrBadRequest, ErrCodeBadRequest, "room is required")
		}
	}

	switch cmd.Kind {
	case CommandSubscribe:
		h.subscribe(c, cmd.Room)
		return nil
	case CommandUnsubscribe:
		h.unsubscribe(c, cmd.Room)
		return nil
	case CommandChatMessage:
		return h.chatMessage(c, cmd.Room, cmd.Message)
	default:
		return coreError(ErrBadRequest, ErrCodeBadRequest, "unknown command")
	}
}

func (h *Hub) identify(c *Conn, cmd *Command) *CoreError {
	if cmd.Nickname == "" {
		return coreError(ErrBadRequest, ErrCodeBadRequest, "nickname is required")
	}

	if !c.transition(StateAnonymous, StateIdentified) {
		return coreError(ErrAlreadyIdentified, ErrCodeAlreadyIdentified, "connection already identified")
	}
	profile := Profile{
		ClientID: h.ids.NewID(),
		Nickname: cmd.Nickname,
		Extra:    cmd.Extra,
	}
	h.dir.Register(c, profile)

	h.log.Debug().
		Str("conn_id", c.ID).
		Str("client_id", profile.ClientID).
		Str("nickname", profile.Nickname).
		Msg("client identified")

	h.courier.send(c, &Event{Kind: EventReady, ClientID: profile.ClientID})
	h.subscribe(c, h.lobby)
	h.courier.send(c, &Event{Kind: EventRoomsList, Rooms: h.rooms.ActiveRoomNames()})
	return nil
}

func (h *Hub) subscribe(c *Conn, name string) {
	_, added := h.rooms.join(name, c, func() {
		h.log.Debug().Str("room", name).Str("conn_id", c.ID).Msg("room created")
		h.courier.fanout(h.connections(c), &Event{Kind: EventAddRoom, Room: name})
	})
	if added {
		h.presence.Announce(name, c, PresenceOnline)
	}
	h.courier.send(c, &Event{
		Kind:    EventRoomClients,
		Room:    name,
		Clients: h.profiles(h.rooms.MembersOf(name, c)),
	})
}

func (h *Hub) unsubscribe(c *Conn, name string) {
	if !h.rooms.Contains(name, c) {
		return
	}
	// Announce while c is still a member so peers see it leave, not vanish.
	h.presence.Announce(name, c, PresenceOffline)
	h.rooms.leave(name, c, func() { h.roomRemoved(name) })
}

func (h *Hub) chatMessage(c *Conn, name, text string) *CoreError {
	if !h.rooms.Contains(name, c) {
		return coreError(ErrNotInRoom, ErrCodeNotInRoom, "not subscribed to room "+name)
	}
	sender, _ := h.dir.Lookup(c)
	h.courier.fanout(h.rooms.MembersOf(name, c), &Event{
		Kind:    EventChatMessage,
		Room:    name,
		Client:  sender,
		Message: text,
	})
	return nil
}

// roomRemoved runs under the room lock of name.
func (h *Hub) roomRemoved(name string) {
	h.log.Debug().Str("room", name).Msg("room removed")
	h.courier.fanout(h.connections(nil), &Event{Kind: EventRemoveRoom, Room: name})
}

// connections returns every connected connection except the given one (which may be nil).
func (h *Hub) connections(except *Conn) []*Conn {
	h.mu.RLock()
	defer h.mu.RUnlock()
	out := make([]*Conn, 0, len(h.conns))
	for c := range h.conns {
		if c != except {
			out = append(out, c)
		}
	}
	return out
}

func (h *Hub) profiles(conns []*Conn) []Profile {
	out := make([]Profile, 0, len(conns))
	for _, c := range conns {
		if p, ok := h.dir.Lookup(c); ok {
			out = append(out, p)
		}
	}
	return out
}

// ConnectionCount returns the number of open connections, identified or not.
func (h *Hub) ConnectionCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.conns)
}

// ClientCount returns the number of identified connections.
func (h *Hub) ClientCount() int {
	return h.dir.Len()
}

// RoomCount returns the number of active rooms.
func (h *Hub) RoomCount() int {
	return h.rooms.Len()
}

// RoomMembers returns the profiles of a room's members in join order.
func (h *Hub) RoomMembers(name string) []Profile {
	return h.profiles(h.rooms.MembersOf(name, nil))
}

// RoomStats returns every active room with its member count, sorted by name.
func (h *Hub) RoomStats() []RoomStat {
	names := h.rooms.ActiveRoomNames()
	stats := make([]RoomStat, 0, len(names))
	for _, name := range names {
		if n := h.rooms.MemberCount(name); n > 0 {
			stats = append(stats, RoomStat{Name: name, Members: n})
		}
	}
	return stats
}
