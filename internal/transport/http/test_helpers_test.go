package http

import (
	"context"
	"encoding/json"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"
	"github.com/rs/zerolog"

	"github.com/vovakirdan/roomrelay/internal/config"
	"github.com/vovakirdan/roomrelay/internal/core"
	"github.com/vovakirdan/roomrelay/internal/proto"
)

// frame mirrors proto.Outbound with raw data so tests can decode per event.
type frame struct {
	Type  string          `json:"type"`
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data"`
	Error *proto.Error    `json:"error"`
}

func startTestServer(t *testing.T) (*httptest.Server, *core.Hub) {
	t.Helper()

	hub := core.NewHub(core.Options{})
	disabledLogger := zerolog.New(nil)

	cfg := config.Default()
	cfg.Addr = ":0"
	cfg.ReadHeaderTimeout = time.Second

	server := NewServer(hub, &cfg, &disabledLogger, nil)
	ts := httptest.NewServer(server.Handler)
	t.Cleanup(ts.Close)

	return ts, hub
}

func dial(t *testing.T, ctx context.Context, ts *httptest.Server) *websocket.Conn {
	t.Helper()

	wsURL := strings.Replace(ts.URL, "http", "ws", 1) + "/ws"
	conn, _, err := websocket.Dial(ctx, wsURL, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	t.Cleanup(func() { conn.Close(websocket.StatusNormalClosure, "done") })
	return conn
}

func send(t *testing.T, ctx context.Context, conn *websocket.Conn, typ string, data any) {
	t.Helper()

	payload, err := json.Marshal(data)
	if err != nil {
		t.Fatalf("marshal %s: %v", typ, err)
	}
	if err := wsjson.Write(ctx, conn, proto.Inbound{Type: typ, Data: payload}); err != nil {
		t.Fatalf("send %s: %v", typ, err)
	}
}

func readFrame(t *testing.T, ctx context.Context, conn *websocket.Conn) frame {
	t.Helper()

	var f frame
	if err := wsjson.Read(ctx, conn, &f); err != nil {
		t.Fatalf("read frame: %v", err)
	}
	return f
}

// readEvent skips frames until the named event arrives and decodes its data into v.
func readEvent(t *testing.T, ctx context.Context, conn *websocket.Conn, event string, v any) {
	t.Helper()

	for {
		f := readFrame(t, ctx, conn)
		if f.Type != proto.OutboundTypeEvent || f.Event != event {
			continue
		}
		if err := json.Unmarshal(f.Data, v); err != nil {
			t.Fatalf("decode %s: %v", event, err)
		}
		return
	}
}

// readError skips frames until an error frame arrives.
func readError(t *testing.T, ctx context.Context, conn *websocket.Conn) *proto.Error {
	t.Helper()

	for {
		f := readFrame(t, ctx, conn)
		if f.Type == proto.OutboundTypeError {
			return f.Error
		}
	}
}

// identify sends the identification frame and waits for the trailing roomslist.
func identify(t *testing.T, ctx context.Context, conn *websocket.Conn, nickname string) string {
	t.Helper()

	send(t, ctx, conn, proto.InboundTypeConnect, map[string]any{"nickname": nickname})
	var ready proto.EventReadyData
	readEvent(t, ctx, conn, proto.EventReady, &ready)
	var list proto.EventRoomsListData
	readEvent(t, ctx, conn, proto.EventRoomsList, &list)
	return ready.ClientID
}
