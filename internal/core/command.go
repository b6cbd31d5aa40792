package core

// CommandKind describes what the client wants to do.
type CommandKind int

const (
	// CommandIdentify registers the connection's profile and joins the lobby.
	CommandIdentify CommandKind = iota
	// CommandChatMessage delivers a chat message to the other members of a room.
	CommandChatMessage
	// CommandSubscribe joins the client to a room.
	CommandSubscribe
	// CommandUnsubscribe removes the client from a room.
	CommandUnsubscribe
)

func (k CommandKind) String() string {
	switch k {
	case CommandIdentify:
		return "identify"
	case CommandChatMessage:
		return "chatmessage"
	case CommandSubscribe:
		return "subscribe"
	case CommandUnsubscribe:
		return "unsubscribe"
	default:
		return "unknown"
	}
}

// Command represents an action requested by a client.
type Command struct {
	Kind     CommandKind
	Room     string
	Message  string
	Nickname string
	// Extra carries the additional identification fields for CommandIdentify.
	Extra map[string]any
}
