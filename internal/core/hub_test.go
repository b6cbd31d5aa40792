package core

import (
	"errors"
	"reflect"
	"strconv"
	"sync"
	"testing"
)

func TestHubIdentifySequence(t *testing.T) {
	hub := newTestHub()

	x := NewConn("x", 16)
	hub.Connect(x)
	if x.State() != StateAnonymous {
		t.Fatalf("expected anonymous state, got %v", x.State())
	}

	if err := hub.Dispatch(x, &Command{Kind: CommandIdentify, Nickname: "alice", Extra: map[string]any{"color": "red"}}); err != nil {
		t.Fatalf("identify: %v", err)
	}

	ready := nextEvent(t, x, EventReady)
	if ready.ClientID == "" {
		t.Fatalf("expected client id in ready event")
	}
	clients := nextEvent(t, x, EventRoomClients)
	if clients.Room != DefaultLobby || len(clients.Clients) != 0 {
		t.Fatalf("unexpected lobby roomclients: %+v", clients)
	}
	list := nextEvent(t, x, EventRoomsList)
	if !reflect.DeepEqual(list.Rooms, []string{DefaultLobby}) {
		t.Fatalf("expected [lobby], got %v", list.Rooms)
	}

	profile, ok := hub.Directory().Lookup(x)
	if !ok || profile.ClientID != ready.ClientID || profile.Nickname != "alice" || profile.Extra["color"] != "red" {
		t.Fatalf("unexpected profile: %+v", profile)
	}
	if x.State() != StateIdentified {
		t.Fatalf("expected identified state, got %v", x.State())
	}
}

func TestHubSecondIdentifyRejected(t *testing.T) {
	hub := newTestHub()
	x := connectAs(t, hub, "alice")

	err := hub.Dispatch(x, &Command{Kind: CommandIdentify, Nickname: "again"})
	if !errors.Is(err, ErrAlreadyIdentified) {
		t.Fatalf("expected ErrAlreadyIdentified, got %v", err)
	}
	ev := mustEvent(t, x, EventError)
	if ev.Error.Code != ErrCodeAlreadyIdentified {
		t.Fatalf("unexpected error code %q", ev.Error.Code)
	}
	if p, _ := hub.Directory().Lookup(x); p.Nickname != "alice" {
		t.Fatalf("profile replaced: %+v", p)
	}
}

func TestHubRejectedIdentifyKeepsIDs(t *testing.T) {
	hub := newTestHub()
	x := connectAs(t, hub, "alice")

	_ = hub.Dispatch(x, &Command{Kind: CommandIdentify, Nickname: "again"})
	mustEvent(t, x, EventError)

	y := NewConn("nameless", 8)
	hub.Connect(y)
	err := hub.Dispatch(y, &Command{Kind: CommandIdentify})
	if !errors.Is(err, ErrBadRequest) {
		t.Fatalf("expected ErrBadRequest for empty nickname, got %v", err)
	}
	if y.State() != StateAnonymous {
		t.Fatalf("expected anonymous state after rejection, got %v", y.State())
	}

	z := connectAs(t, hub, "bob")
	if p, _ := hub.Directory().Lookup(z); p.ClientID != "client-2" {
		t.Fatalf("expected the next id to be client-2, got %q", p.ClientID)
	}
}

func TestHubRoomCommandsRequireIdentification(t *testing.T) {
	hub := newTestHub()
	x := NewConn("x", 16)
	hub.Connect(x)

	for _, cmd := range []*Command{
		{Kind: CommandSubscribe, Room: "news"},
		{Kind: CommandUnsubscribe, Room: "news"},
		{Kind: CommandChatMessage, Room: "news", Message: "hi"},
	} {
		err := hub.Dispatch(x, cmd)
		var coreErr *CoreError
		if !errors.As(err, &coreErr) || coreErr.Code != ErrCodeNotIdentified {
			t.Fatalf("%v: expected not_identified, got %v", cmd.Kind, err)
		}
	}
	if hub.Rooms().MemberCount("news") != 0 {
		t.Fatalf("anonymous connection joined a room")
	}
}

func TestHubSubscribeNewRoom(t *testing.T) {
	hub := newTestHub()
	x := connectAs(t, hub, "alice")
	y := connectAs(t, hub, "bob")
	anon := NewConn("anon", 16)
	hub.Connect(anon)
	drain(x)
	drain(y)

	if err := hub.Dispatch(x, &Command{Kind: CommandSubscribe, Room: "news"}); err != nil {
		t.Fatalf("subscribe: %v", err)
	}

	for _, other := range []*Conn{y, anon} {
		ev := nextEvent(t, other, EventAddRoom)
		if ev.Room != "news" {
			t.Fatalf("unexpected addroom: %+v", ev)
		}
	}
	clients := nextEvent(t, x, EventRoomClients)
	if clients.Room != "news" || len(clients.Clients) != 0 {
		t.Fatalf("unexpected roomclients: %+v", clients)
	}
	assertNoEvent(t, x)
}

func TestHubSubscribeExistingRoomAnnouncesPresence(t *testing.T) {
	hub := newTestHub()
	x := connectAs(t, hub, "alice")
	y := connectAs(t, hub, "bob")
	_ = hub.Dispatch(x, &Command{Kind: CommandSubscribe, Room: "news"})
	drain(x)
	drain(y)

	if err := hub.Dispatch(y, &Command{Kind: CommandSubscribe, Room: "news"}); err != nil {
		t.Fatalf("subscribe: %v", err)
	}

	presence := nextEvent(t, x, EventPresence)
	if presence.State != PresenceOnline || presence.Room != "news" || presence.Client.Nickname != "bob" {
		t.Fatalf("unexpected presence: %+v", presence)
	}
	assertNoEvent(t, x)

	clients := nextEvent(t, y, EventRoomClients)
	if len(clients.Clients) != 1 || clients.Clients[0].Nickname != "alice" {
		t.Fatalf("unexpected roomclients: %+v", clients)
	}

	// Subscribing again does not duplicate membership or presence.
	_ = hub.Dispatch(y, &Command{Kind: CommandSubscribe, Room: "news"})
	nextEvent(t, y, EventRoomClients)
	assertNoEvent(t, x)
	if n := hub.Rooms().MemberCount("news"); n != 2 {
		t.Fatalf("expected 2 members, got %d", n)
	}
}

func TestHubChatMessage(t *testing.T) {
	hub := newTestHub()
	x := connectAs(t, hub, "alice")
	y := connectAs(t, hub, "bob")
	z := connectAs(t, hub, "carol")
	_ = hub.Dispatch(x, &Command{Kind: CommandSubscribe, Room: "news"})
	_ = hub.Dispatch(y, &Command{Kind: CommandSubscribe, Room: "news"})
	drain(x)
	drain(y)
	drain(z)

	if err := hub.Dispatch(x, &Command{Kind: CommandChatMessage, Room: "news", Message: "hi"}); err != nil {
		t.Fatalf("chat: %v", err)
	}

	ev := nextEvent(t, y, EventChatMessage)
	xProfile, _ := hub.Directory().Lookup(x)
	if ev.Message != "hi" || ev.Room != "news" || !reflect.DeepEqual(ev.Client, xProfile) {
		t.Fatalf("unexpected chatmessage: %+v", ev)
	}
	assertNoEvent(t, x)
	assertNoEvent(t, z)
}

func TestHubChatMessageRequiresMembership(t *testing.T) {
	hub := newTestHub()
	x := connectAs(t, hub, "alice")
	y := connectAs(t, hub, "bob")
	_ = hub.Dispatch(y, &Command{Kind: CommandSubscribe, Room: "news"})
	drain(y)

	err := hub.Dispatch(x, &Command{Kind: CommandChatMessage, Room: "news", Message: "hi"})
	if !errors.Is(err, ErrNotInRoom) {
		t.Fatalf("expected ErrNotInRoom, got %v", err)
	}
	assertNoEvent(t, y)
}

func TestHubUnsubscribeKeepsNonEmptyRoom(t *testing.T) {
	hub := newTestHub()
	x := connectAs(t, hub, "alice")
	y := connectAs(t, hub, "bob")
	_ = hub.Dispatch(x, &Command{Kind: CommandSubscribe, Room: "news"})
	_ = hub.Dispatch(y, &Command{Kind: CommandSubscribe, Room: "news"})
	drain(x)
	drain(y)

	if err := hub.Dispatch(y, &Command{Kind: CommandUnsubscribe, Room: "news"}); err != nil {
		t.Fatalf("unsubscribe: %v", err)
	}

	presence := nextEvent(t, x, EventPresence)
	yProfile, _ := hub.Directory().Lookup(y)
	if presence.State != PresenceOffline || presence.Room != "news" || !reflect.DeepEqual(presence.Client, yProfile) {
		t.Fatalf("unexpected presence: %+v", presence)
	}
	assertNoEvent(t, x)
	assertNoEvent(t, y)
	if n := hub.Rooms().MemberCount("news"); n != 1 {
		t.Fatalf("expected 1 member, got %d", n)
	}

	// Last member leaves: the room is removed and everyone hears about it.
	if err := hub.Dispatch(x, &Command{Kind: CommandUnsubscribe, Room: "news"}); err != nil {
		t.Fatalf("unsubscribe: %v", err)
	}
	for _, c := range []*Conn{x, y} {
		ev := nextEvent(t, c, EventRemoveRoom)
		if ev.Room != "news" {
			t.Fatalf("unexpected removeroom: %+v", ev)
		}
	}
	if hub.Rooms().Contains("news", x) || hub.Rooms().MemberCount("news") != 0 {
		t.Fatalf("room still populated")
	}
}

func TestHubUnsubscribeNotMemberIsHarmless(t *testing.T) {
	hub := newTestHub()
	x := connectAs(t, hub, "alice")
	drain(x)

	if err := hub.Dispatch(x, &Command{Kind: CommandUnsubscribe, Room: "ghost"}); err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	assertNoEvent(t, x)
}

func TestHubDisconnectAnnouncesOfflineInEveryRoom(t *testing.T) {
	hub := newTestHub()
	x := connectAs(t, hub, "alice")
	y := connectAs(t, hub, "bob")
	for _, room := range []string{"a", "b"} {
		_ = hub.Dispatch(x, &Command{Kind: CommandSubscribe, Room: room})
		_ = hub.Dispatch(y, &Command{Kind: CommandSubscribe, Room: room})
	}
	drain(x)
	drain(y)

	hub.Disconnect(x)

	// lobby, a, b: each produces exactly one offline presence for bob.
	seen := map[string]bool{}
	for range 3 {
		ev := nextEvent(t, y, EventPresence)
		if ev.State != PresenceOffline || ev.Client.Nickname != "alice" {
			t.Fatalf("unexpected presence: %+v", ev)
		}
		seen[ev.Room] = true
	}
	if !seen["lobby"] || !seen["a"] || !seen["b"] {
		t.Fatalf("missing rooms in offline presence: %v", seen)
	}
	assertNoEvent(t, y)

	for _, room := range []string{"lobby", "a", "b"} {
		if hub.Rooms().Contains(room, x) {
			t.Fatalf("disconnected connection still in %s", room)
		}
		if hub.Rooms().MemberCount(room) != 1 {
			t.Fatalf("room %s should keep bob", room)
		}
	}
	if _, ok := hub.Directory().Lookup(x); ok {
		t.Fatalf("profile not removed")
	}
	if x.State() != StateClosed {
		t.Fatalf("expected closed state, got %v", x.State())
	}
	if _, ok := <-x.Events(); ok {
		t.Fatalf("expected closed event queue")
	}

	// Second disconnect and late commands are harmless.
	hub.Disconnect(x)
	if err := hub.Dispatch(x, &Command{Kind: CommandSubscribe, Room: "a"}); !errors.Is(err, ErrConnClosed) {
		t.Fatalf("expected ErrConnClosed, got %v", err)
	}
}

func TestHubDisconnectRemovesEmptiedRooms(t *testing.T) {
	hub := newTestHub()
	x := connectAs(t, hub, "alice")
	y := connectAs(t, hub, "bob")
	_ = hub.Dispatch(x, &Command{Kind: CommandSubscribe, Room: "solo"})
	drain(y)

	hub.Disconnect(x)

	ev := mustEvent(t, y, EventRemoveRoom)
	if ev.Room != "solo" {
		t.Fatalf("unexpected removeroom: %+v", ev)
	}
	if !reflect.DeepEqual(hub.Rooms().ActiveRoomNames(), []string{"lobby"}) {
		t.Fatalf("unexpected active rooms: %v", hub.Rooms().ActiveRoomNames())
	}
	if hub.ConnectionCount() != 1 || hub.ClientCount() != 1 {
		t.Fatalf("unexpected counts: conns=%d clients=%d", hub.ConnectionCount(), hub.ClientCount())
	}
}

func TestHubDisconnectAnnouncesOfflineBeforeRemoveRoom(t *testing.T) {
	hub := newTestHub()
	x := connectAs(t, hub, "alice")
	y := connectAs(t, hub, "bob")
	z := connectAs(t, hub, "carol")
	_ = hub.Dispatch(x, &Command{Kind: CommandSubscribe, Room: "solo"})
	drain(x)
	drain(y)
	drain(z)

	hub.Disconnect(x)

	for _, c := range []*Conn{y, z} {
		presence := nextEvent(t, c, EventPresence)
		if presence.Room != "lobby" || presence.State != PresenceOffline || presence.Client.Nickname != "alice" {
			t.Fatalf("%s: unexpected presence %+v", c.ID, presence)
		}
		removed := nextEvent(t, c, EventRemoveRoom)
		if removed.Room != "solo" {
			t.Fatalf("%s: unexpected removeroom %+v", c.ID, removed)
		}
		assertNoEvent(t, c)
	}
}

func TestHubRoomLifecycleMatchesRegistry(t *testing.T) {
	tests := []struct {
		name      string
		stayer    bool
		wantAlive bool
	}{
		{name: "all leave", stayer: false, wantAlive: false},
		{name: "one stays", stayer: true, wantAlive: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			hub := newTestHub()

			workers := make([]*Conn, 6)
			for i := range workers {
				workers[i] = connectAs(t, hub, "worker-"+strconv.Itoa(i))
			}

			observer := NewConn("observer", 1<<14)
			hub.Connect(observer)
			if err := hub.Dispatch(observer, &Command{Kind: CommandIdentify, Nickname: "observer"}); err != nil {
				t.Fatalf("identify observer: %v", err)
			}
			drain(observer)

			var wg sync.WaitGroup
			for i, w := range workers {
				wg.Add(1)
				go func() {
					defer wg.Done()
					for range 200 {
						_ = hub.Dispatch(w, &Command{Kind: CommandSubscribe, Room: "x"})
						_ = hub.Dispatch(w, &Command{Kind: CommandUnsubscribe, Room: "x"})
						drain(w)
					}
					if tt.stayer && i == 0 {
						_ = hub.Dispatch(w, &Command{Kind: CommandSubscribe, Room: "x"})
					}
				}()
			}
			wg.Wait()

			var last EventKind = -1
			for {
				select {
				case ev := <-observer.Events():
					if (ev.Kind == EventAddRoom || ev.Kind == EventRemoveRoom) && ev.Room == "x" {
						last = ev.Kind
					}
					continue
				default:
				}
				break
			}

			alive := hub.Rooms().MemberCount("x") > 0
			if alive != tt.wantAlive {
				t.Fatalf("expected x alive=%v, got %v", tt.wantAlive, alive)
			}
			sawAlive := last == EventAddRoom
			if sawAlive != alive {
				t.Fatalf("observer's last word on x is %v while registry active=%v", last, hub.Rooms().ActiveRoomNames())
			}
		})
	}
}

func TestHubSlowConsumerDoesNotBlockFanout(t *testing.T) {
	hub := newTestHub()
	x := connectAs(t, hub, "alice")
	slow := NewConn("slow", 1)
	hub.Connect(slow)
	if err := hub.Dispatch(slow, &Command{Kind: CommandIdentify, Nickname: "slow"}); err != nil {
		t.Fatalf("identify: %v", err)
	}
	fast := connectAs(t, hub, "fast")
	_ = hub.Dispatch(slow, &Command{Kind: CommandSubscribe, Room: "news"})
	_ = hub.Dispatch(fast, &Command{Kind: CommandSubscribe, Room: "news"})
	_ = hub.Dispatch(x, &Command{Kind: CommandSubscribe, Room: "news"})
	drain(fast)

	if err := hub.Dispatch(x, &Command{Kind: CommandChatMessage, Room: "news", Message: "hi"}); err != nil {
		t.Fatalf("chat: %v", err)
	}
	if ev := mustEvent(t, fast, EventChatMessage); ev.Message != "hi" {
		t.Fatalf("unexpected message: %+v", ev)
	}
}

func TestHubRoomStats(t *testing.T) {
	hub := newTestHub()
	x := connectAs(t, hub, "alice")
	y := connectAs(t, hub, "bob")
	_ = hub.Dispatch(x, &Command{Kind: CommandSubscribe, Room: "news"})
	_ = y

	want := []RoomStat{{Name: "lobby", Members: 2}, {Name: "news", Members: 1}}
	if got := hub.RoomStats(); !reflect.DeepEqual(got, want) {
		t.Fatalf("expected %v, got %v", want, got)
	}
	if hub.RoomCount() != 2 {
		t.Fatalf("expected 2 rooms, got %d", hub.RoomCount())
	}
}

func TestHubCustomLobby(t *testing.T) {
	hub := NewHub(Options{Lobby: "hall", IDs: &seqIDs{}})
	x := NewConn("x", 16)
	hub.Connect(x)
	_ = hub.Dispatch(x, &Command{Kind: CommandIdentify, Nickname: "alice"})

	list := mustEvent(t, x, EventRoomsList)
	if !reflect.DeepEqual(list.Rooms, []string{"hall"}) {
		t.Fatalf("expected [hall], got %v", list.Rooms)
	}
}
