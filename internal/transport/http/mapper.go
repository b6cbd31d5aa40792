package http

import (
	"encoding/json"

	"github.com/vovakirdan/roomrelay/internal/core"
	"github.com/vovakirdan/roomrelay/internal/proto"
)

const (
	errCodeInvalidMessage = "invalid_message"
	errCodeRateLimited    = "rate_limited"
)

// inboundToCommand decodes a frame into a command. Required fields are checked by
// the hub so every transport reports them the same way.
func inboundToCommand(inbound proto.Inbound) (*core.Command, *proto.Error) {
	switch inbound.Type {
	case proto.InboundTypeConnect:
		nickname, extra, err := proto.DecodeIdentify(inbound.Data)
		if err != nil {
			return nil, &proto.Error{Code: core.ErrCodeBadRequest, Msg: "invalid identification payload"}
		}
		return &core.Command{
			Kind:     core.CommandIdentify,
			Nickname: nickname,
			Extra:    extra,
		}, nil
	case proto.InboundTypeSubscribe, proto.InboundTypeUnsubscribe:
		var data proto.RoomData
		if err := json.Unmarshal(inbound.Data, &data); err != nil {
			return nil, &proto.Error{Code: core.ErrCodeBadRequest, Msg: "invalid room payload"}
		}
		kind := core.CommandSubscribe
		if inbound.Type == proto.InboundTypeUnsubscribe {
			kind = core.CommandUnsubscribe
		}
		return &core.Command{Kind: kind, Room: data.Room}, nil
	case proto.InboundTypeChatMessage:
		var msg proto.ChatMessageData
		if err := json.Unmarshal(inbound.Data, &msg); err != nil {
			return nil, &proto.Error{Code: core.ErrCodeBadRequest, Msg: "invalid chat payload"}
		}
		return &core.Command{
			Kind:    core.CommandChatMessage,
			Room:    msg.Room,
			Message: msg.Message,
		}, nil
	default:
		return nil, &proto.Error{Code: errCodeInvalidMessage, Msg: "unknown message type"}
	}
}

func outboundFromEvent(event *core.Event) proto.Outbound {
	switch event.Kind {
	case core.EventReady:
		return eventFrame(proto.EventReady, proto.EventReadyData{ClientID: event.ClientID})
	case core.EventRoomsList:
		rooms := event.Rooms
		if rooms == nil {
			rooms = []string{}
		}
		return eventFrame(proto.EventRoomsList, proto.EventRoomsListData{Rooms: rooms})
	case core.EventAddRoom:
		return eventFrame(proto.EventAddRoom, proto.EventRoomData{Room: event.Room})
	case core.EventRemoveRoom:
		return eventFrame(proto.EventRemoveRoom, proto.EventRoomData{Room: event.Room})
	case core.EventRoomClients:
		return eventFrame(proto.EventRoomClients, proto.EventRoomClientsData{
			Room:    event.Room,
			Clients: profilesToProto(event.Clients),
		})
	case core.EventPresence:
		return eventFrame(proto.EventPresence, proto.EventPresenceData{
			Client: profileToProto(event.Client),
			State:  string(event.State),
			Room:   event.Room,
		})
	case core.EventChatMessage:
		return eventFrame(proto.EventChatMessage, proto.EventChatMessageData{
			Client:  profileToProto(event.Client),
			Message: event.Message,
			Room:    event.Room,
		})
	case core.EventError:
		if event.Error == nil {
			return proto.Outbound{Type: proto.OutboundTypeError, Error: &proto.Error{Code: "unknown", Msg: "unknown error"}}
		}
		return proto.Outbound{
			Type:  proto.OutboundTypeError,
			Error: &proto.Error{Code: event.Error.Code, Msg: event.Error.Message},
		}
	default:
		return proto.Outbound{Type: proto.OutboundTypeEvent}
	}
}

func eventFrame(name string, data any) proto.Outbound {
	return proto.Outbound{Type: proto.OutboundTypeEvent, Event: name, Data: data}
}

func profileToProto(p core.Profile) proto.Profile {
	return proto.Profile{ClientID: p.ClientID, Nickname: p.Nickname, Extra: p.Extra}
}

func profilesToProto(profiles []core.Profile) []proto.Profile {
	out := make([]proto.Profile, 0, len(profiles))
	for _, p := range profiles {
		out = append(out, profileToProto(p))
	}
	return out
}
