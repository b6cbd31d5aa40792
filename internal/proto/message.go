package proto

import (
	"encoding/json"
	"fmt"
)

// Inbound is the envelope for messages coming from the client.
type Inbound struct {
	Type string          `json:"type"`
	Data json.RawMessage `json:"data"`
}

const (
	InboundTypeConnect     = "connect"
	InboundTypeChatMessage = "chatmessage"
	InboundTypeSubscribe   = "subscribe"
	InboundTypeUnsubscribe = "unsubscribe"

	OutboundTypeEvent = "event"
	OutboundTypeError = "error"

	EventReady       = "ready"
	EventRoomsList   = "roomslist"
	EventAddRoom     = "addroom"
	EventRemoveRoom  = "removeroom"
	EventRoomClients = "roomclients"
	EventPresence    = "presence"
	EventChatMessage = "chatmessage"
)

// ChatMessageData is a chat message from the client.
type ChatMessageData struct {
	Room    string `json:"room"`
	Message string `json:"message"`
}

// RoomData names the room of a subscribe or unsubscribe request.
type RoomData struct {
	Room string `json:"room"`
}

// Outbound is the envelope for messages sent to the client.
type Outbound struct {
	Type  string `json:"type"`
	Event string `json:"event,omitempty"`
	Data  any    `json:"data,omitempty"`
	Error *Error `json:"error,omitempty"`
}

// Profile is a client's identity as it appears on the wire: clientId and nickname
// plus whatever extra fields the client identified with, flattened into one object.
type Profile struct {
	ClientID string
	Nickname string
	Extra    map[string]any
}

func (p Profile) MarshalJSON() ([]byte, error) {
	fields := make(map[string]any, len(p.Extra)+2)
	for k, v := range p.Extra {
		fields[k] = v
	}
	fields["clientId"] = p.ClientID
	fields["nickname"] = p.Nickname
	return json.Marshal(fields)
}

func (p *Profile) UnmarshalJSON(data []byte) error {
	var fields map[string]any
	if err := json.Unmarshal(data, &fields); err != nil {
		return err
	}
	id, err := stringField(fields, "clientId")
	if err != nil {
		return err
	}
	nick, err := stringField(fields, "nickname")
	if err != nil {
		return err
	}
	delete(fields, "clientId")
	delete(fields, "nickname")
	p.ClientID = id
	p.Nickname = nick
	p.Extra = nil
	if len(fields) > 0 {
		p.Extra = fields
	}
	return nil
}

// DecodeIdentify parses the identification payload into a nickname and the remaining
// fields. A client-supplied clientId is discarded; the server assigns its own.
func DecodeIdentify(data json.RawMessage) (string, map[string]any, error) {
	var fields map[string]any
	if err := json.Unmarshal(data, &fields); err != nil {
		return "", nil, err
	}
	nick, err := stringField(fields, "nickname")
	if err != nil {
		return "", nil, err
	}
	delete(fields, "nickname")
	delete(fields, "clientId")
	if len(fields) == 0 {
		fields = nil
	}
	return nick, fields, nil
}

func stringField(fields map[string]any, key string) (string, error) {
	raw, ok := fields[key]
	if !ok || raw == nil {
		return "", nil
	}
	s, ok := raw.(string)
	if !ok {
		return "", fmt.Errorf("%s must be a string", key)
	}
	return s, nil
}

// EventReadyData confirms identification.
type EventReadyData struct {
	ClientID string `json:"clientId"`
}

// EventRoomsListData lists the active rooms.
type EventRoomsListData struct {
	Rooms []string `json:"rooms"`
}

// EventRoomData carries a single room name (addroom, removeroom).
type EventRoomData struct {
	Room string `json:"room"`
}

// EventRoomClientsData lists the other members of a room.
type EventRoomClientsData struct {
	Room    string    `json:"room"`
	Clients []Profile `json:"clients"`
}

// EventPresenceData notifies that a client went online or offline in a room.
type EventPresenceData struct {
	Client Profile `json:"client"`
	State  string  `json:"state"`
	Room   string  `json:"room"`
}

// EventChatMessageData relays a chat message.
type EventChatMessageData struct {
	Client  Profile `json:"client"`
	Message string  `json:"message"`
	Room    string  `json:"room"`
}

// Error describes a protocol-level error response.
type Error struct {
	Code string `json:"code"`
	Msg  string `json:"msg"`
}
