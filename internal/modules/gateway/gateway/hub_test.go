package gateway

import (
	"encoding/json"
	"strings"
	"testing"
	"time"
)

func newTestHub() *Hub {
	return NewHub(nil, nil, nil, nil)
}

func drainBroadcast(h *Hub) []Message {
	out := []Message{}
	for {
		select {
		case msg := <-h.broadcast:
			out = append(out, msg)
		default:
			return out
		}
	}
}

func TestRegisterTracksRoomsAndUsers(t *testing.T) {
	h := newTestHub()

	h.registerClient(clientMeta{sid: "s1", room: RoomExtension, userID: "u1"})
	h.registerClient(clientMeta{sid: "s2", room: RoomExtension, userID: "u1"})
	h.registerClient(clientMeta{sid: "s3", room: RoomAdmin})

	if got := h.ClientCount(RoomExtension); got != 2 {
		t.Errorf("extension count = %d, want 2", got)
	}
	if got := h.ClientCount(RoomAdmin); got != 1 {
		t.Errorf("admin count = %d, want 1", got)
	}
	if got := h.ClientCount(""); got != 3 {
		t.Errorf("total count = %d, want 3", got)
	}
	if got := h.OnlineUserCount(); got != 1 {
		t.Errorf("online users = %d, want 1", got)
	}
}

func TestRegisterDuplicateSIDSameRoomIsNoop(t *testing.T) {
	h := newTestHub()

	h.registerClient(clientMeta{sid: "s1", room: RoomExtension, userID: "u1"})
	h.registerClient(clientMeta{sid: "s1", room: RoomExtension, userID: "u1"})

	if got := h.ClientCount(RoomExtension); got != 1 {
		t.Errorf("extension count = %d, want 1", got)
	}
	if got := h.OnlineUserCount(); got != 1 {
		t.Errorf("online users = %d, want 1", got)
	}
}

func TestPresenceEventsFireOnFirstAndLastConnection(t *testing.T) {
	h := newTestHub()

	h.registerClient(clientMeta{sid: "s1", room: RoomExtension, userID: "u1"})
	h.registerClient(clientMeta{sid: "s2", room: RoomExtension, userID: "u1"})

	events := drainBroadcast(h)
	if len(events) != 1 || events[0].Event != eventExtensionOnline {
		t.Fatalf("after two connections got events %+v, want single %s", events, eventExtensionOnline)
	}
	if events[0].Room != RoomAdmin {
		t.Errorf("presence event room = %q, want %q", events[0].Room, RoomAdmin)
	}

	h.unregisterClient(clientMeta{sid: "s1"})
	if events := drainBroadcast(h); len(events) != 0 {
		t.Fatalf("after first disconnect got events %+v, want none", events)
	}

	h.unregisterClient(clientMeta{sid: "s2"})
	events = drainBroadcast(h)
	if len(events) != 1 || events[0].Event != eventExtensionOffline {
		t.Fatalf("after last disconnect got events %+v, want single %s", events, eventExtensionOffline)
	}
	if got := h.OnlineUserCount(); got != 0 {
		t.Errorf("online users = %d, want 0", got)
	}
}

func TestUnregisterUnknownSIDIsNoop(t *testing.T) {
	h := newTestHub()

	h.registerClient(clientMeta{sid: "s1", room: RoomExtension, userID: "u1"})
	h.unregisterClient(clientMeta{sid: "nope"})

	if got := h.ClientCount(""); got != 1 {
		t.Errorf("total count = %d, want 1", got)
	}
}

func TestBroadcastUserTargetsUserRoom(t *testing.T) {
	h := newTestHub()

	h.BroadcastUser("u1", "ANALYSIS_COMPLETED", map[string]interface{}{"analysisId": "a1"})

	select {
	case msg := <-h.broadcast:
		if msg.Room != UserRoom("u1") {
			t.Errorf("room = %q, want %q", msg.Room, UserRoom("u1"))
		}
		if msg.Event != "ANALYSIS_COMPLETED" {
			t.Errorf("event = %q, want ANALYSIS_COMPLETED", msg.Event)
		}
	default:
		t.Fatal("no message queued")
	}

	h.BroadcastUser("  ", "ANALYSIS_COMPLETED", nil)
	if events := drainBroadcast(h); len(events) != 0 {
		t.Errorf("blank user queued %+v, want nothing", events)
	}
}

func TestMessageOriginSurvivesFanOut(t *testing.T) {
	in := Message{Event: "ALERT_TRIGGERED", Payload: "p", Room: UserRoom("u1"), Origin: "hub-a"}
	data, err := json.Marshal(in)
	if err != nil {
		t.Fatal(err)
	}

	var out Message
	if err := json.Unmarshal(data, &out); err != nil {
		t.Fatal(err)
	}
	if out.Origin != "hub-a" || out.Room != "user:u1" {
		t.Errorf("round trip = %+v", out)
	}

	data, err = json.Marshal(Message{Event: "X"})
	if err != nil {
		t.Fatal(err)
	}
	if strings.Contains(string(data), "origin") {
		t.Errorf("empty origin serialized: %s", data)
	}
}

func TestNormalizeToken(t *testing.T) {
	cases := []struct {
		in   string
		want string
	}{
		{"", ""},
		{"   ", ""},
		{"abc123", "abc123"},
		{"Bearer abc123", "abc123"},
		{"bearer   abc123  ", "abc123"},
		{"BEARER abc123", "abc123"},
	}
	for _, tc := range cases {
		if got := normalizeToken(tc.in); got != tc.want {
			t.Errorf("normalizeToken(%q) = %q, want %q", tc.in, got, tc.want)
		}
	}
}

func TestFirstValueFromMultiMap(t *testing.T) {
	values := map[string][]string{
		"Authorization": {"Bearer tok"},
		"empty":         {},
		"blank":         {"   "},
	}
	if got := firstValueFromMultiMap(values, "authorization"); got != "Bearer tok" {
		t.Errorf("got %q", got)
	}
	if got := firstValueFromMultiMap(values, "empty"); got != "" {
		t.Errorf("empty list gave %q", got)
	}
	if got := firstValueFromMultiMap(values, "blank"); got != "" {
		t.Errorf("blank value gave %q", got)
	}
	if got := firstValueFromMultiMap(nil, "token"); got != "" {
		t.Errorf("nil map gave %q", got)
	}
}

func TestShortDateKey(t *testing.T) {
	d := time.Date(2026, 3, 7, 15, 0, 0, 0, time.UTC)
	if got := shortDateKey(d); got != "3-7-26" {
		t.Errorf("shortDateKey = %q, want 3-7-26", got)
	}
}

func TestParsePrevLogOption(t *testing.T) {
	if !parsePrevLogOption(nil) {
		t.Error("no args should default to true")
	}
	if parsePrevLogOption([]any{map[string]any{"prevLog": false}}) {
		t.Error("explicit false ignored")
	}
	if !parsePrevLogOption([]any{map[string]any{"prevLog": "yes"}}) {
		t.Error("string yes should be true")
	}
	if parsePrevLogOption([]any{`{"prevLog": 0}`}) {
		t.Error("JSON numeric zero should be false")
	}
	if !parsePrevLogOption([]any{map[string]any{"other": true}}) {
		t.Error("missing key should fall back to true")
	}
}
