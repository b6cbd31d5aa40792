package main

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"

	"github.com/vovakirdan/roomrelay/internal/proto"
)

// frame is proto.Outbound with the payload left raw for per-event decoding.
type frame struct {
	Type  string          `json:"type"`
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data"`
	Error *proto.Error    `json:"error"`
}

func main() {
	if err := run(); err != nil {
		log.Printf("ws_chat: %v", err)
		os.Exit(1)
	}
}

func run() error {
	addr := flag.String("addr", "ws://localhost:4400/ws", "WebSocket address")
	nickname := flag.String("nickname", "cli-user", "nickname to identify with")
	room := flag.String("room", "lobby", "room to chat in")
	flag.Parse()

	baseCtx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	ctx, cancel := context.WithCancel(baseCtx)
	defer cancel()

	conn, _, err := websocket.Dial(ctx, *addr, nil)
	if err != nil {
		return fmt.Errorf("dial: %w", err)
	}
	defer conn.Close(websocket.StatusNormalClosure, "bye")

	if err := send(ctx, conn, proto.InboundTypeConnect, map[string]string{"nickname": *nickname}); err != nil {
		return err
	}
	if *room != "lobby" {
		if err := send(ctx, conn, proto.InboundTypeSubscribe, proto.RoomData{Room: *room}); err != nil {
			return err
		}
	}

	fmt.Printf("Connected to %s as %s in room %s\n", *addr, *nickname, *room)
	fmt.Println("Type messages and press Enter. /join <room>, /leave <room>, /room <room> to switch. Ctrl+C to exit.")

	go func() {
		defer cancel()
		readLoop(ctx, conn)
	}()

	writeLoop(ctx, conn, *room)
	return nil
}

func send(ctx context.Context, conn *websocket.Conn, typ string, data any) error {
	payload, err := json.Marshal(data)
	if err != nil {
		return fmt.Errorf("marshal %s: %w", typ, err)
	}
	if err := wsjson.Write(ctx, conn, proto.Inbound{Type: typ, Data: payload}); err != nil {
		return fmt.Errorf("send %s: %w", typ, err)
	}
	return nil
}

func readLoop(ctx context.Context, conn *websocket.Conn) {
	for {
		var f frame
		if err := wsjson.Read(ctx, conn, &f); err != nil {
			// Treat expected shutdowns quietly.
			if errors.Is(err, context.Canceled) {
				return
			}
			switch websocket.CloseStatus(err) {
			case websocket.StatusNormalClosure, websocket.StatusGoingAway:
				return
			}
			log.Printf("read error: %v", err)
			return
		}

		if f.Type == proto.OutboundTypeError && f.Error != nil {
			fmt.Printf("! %s: %s\n", f.Error.Code, f.Error.Msg)
			continue
		}
		printEvent(f)
	}
}

func printEvent(f frame) {
	switch f.Event {
	case proto.EventReady:
		var evt proto.EventReadyData
		if json.Unmarshal(f.Data, &evt) == nil {
			fmt.Printf("ready, client id %s\n", evt.ClientID)
		}
	case proto.EventRoomsList:
		var evt proto.EventRoomsListData
		if json.Unmarshal(f.Data, &evt) == nil {
			fmt.Printf("rooms: %s\n", strings.Join(evt.Rooms, ", "))
		}
	case proto.EventAddRoom, proto.EventRemoveRoom:
		var evt proto.EventRoomData
		if json.Unmarshal(f.Data, &evt) == nil {
			fmt.Printf("%s %s\n", f.Event, evt.Room)
		}
	case proto.EventRoomClients:
		var evt proto.EventRoomClientsData
		if json.Unmarshal(f.Data, &evt) == nil {
			names := make([]string, 0, len(evt.Clients))
			for _, c := range evt.Clients {
				names = append(names, c.Nickname)
			}
			fmt.Printf("[%s] here: %s\n", evt.Room, strings.Join(names, ", "))
		}
	case proto.EventPresence:
		var evt proto.EventPresenceData
		if json.Unmarshal(f.Data, &evt) == nil {
			fmt.Printf("[%s] %s is %s\n", evt.Room, evt.Client.Nickname, evt.State)
		}
	case proto.EventChatMessage:
		var evt proto.EventChatMessageData
		if json.Unmarshal(f.Data, &evt) == nil {
			fmt.Printf("[%s] %s: %s\n", evt.Room, evt.Client.Nickname, evt.Message)
		}
	default:
		fmt.Printf("event=%s data=%s\n", f.Event, f.Data)
	}
}

func writeLoop(ctx context.Context, conn *websocket.Conn, room string) {
	lines := make(chan string)
	go func() {
		defer close(lines)
		scanner := bufio.NewScanner(os.Stdin)
		for scanner.Scan() {
			lines <- scanner.Text()
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return
		case line, ok := <-lines:
			if !ok {
				return
			}
			text := strings.TrimSpace(line)
			if text == "" {
				continue
			}

			var err error
			switch cmd, arg, _ := strings.Cut(text, " "); cmd {
			case "/join":
				err = send(ctx, conn, proto.InboundTypeSubscribe, proto.RoomData{Room: arg})
			case "/leave":
				err = send(ctx, conn, proto.InboundTypeUnsubscribe, proto.RoomData{Room: arg})
			case "/room":
				room = arg
				fmt.Printf("now chatting in %s\n", room)
			default:
				err = send(ctx, conn, proto.InboundTypeChatMessage, proto.ChatMessageData{Room: room, Message: text})
			}
			if err != nil {
				log.Printf("send error: %v", err)
				return
			}
		}
	}
}
