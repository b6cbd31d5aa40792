package core

// EventKind is a notification the core emits to clients.
type EventKind int

const (
	// EventReady confirms identification and carries the assigned client id.
	EventReady EventKind = iota
	// EventRoomsList lists every active room.
	EventRoomsList
	// EventAddRoom announces a room that just came into existence.
	EventAddRoom
	// EventRemoveRoom announces a room that lost its last member.
	EventRemoveRoom
	// EventRoomClients lists the other members of a room to a new subscriber.
	EventRoomClients
	// EventPresence notifies room members that a client went online or offline.
	EventPresence
	// EventChatMessage relays a chat message within a room.
	EventChatMessage
	// EventError notifies a client about a domain error.
	EventError
)

func (k EventKind) String() string {
	switch k {
	case EventReady:
		return "ready"
	case EventRoomsList:
		return "roomslist"
	case EventAddRoom:
		return "addroom"
	case EventRemoveRoom:
		return "removeroom"
	case EventRoomClients:
		return "roomclients"
	case EventPresence:
		return "presence"
	case EventChatMessage:
		return "chatmessage"
	case EventError:
		return "error"
	default:
		return "unknown"
	}
}

// PresenceState is the reachability carried by EventPresence.
type PresenceState string

const (
	PresenceOnline  PresenceState = "online"
	PresenceOffline PresenceState = "offline"
)

// Event is sent to clients to describe what happened in the system.
// A single Event may be shared by every recipient of a fan-out and must not be mutated.
type Event struct {
	Kind     EventKind
	Room     string
	Rooms    []string  // EventRoomsList
	ClientID string    // EventReady
	Client   Profile   // EventPresence, EventChatMessage
	Clients  []Profile // EventRoomClients
	Message  string
	State    PresenceState
	Error    *CoreError
}
