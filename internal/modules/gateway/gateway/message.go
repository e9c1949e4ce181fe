package gateway

import (
	"context"
	"encoding/json"
	"strings"

	socketio "github.com/zishang520/socket.io/v2/socket"
)

func (h *Hub) gatewayMessageFormat(event string, payload interface{}, code *int) gatewayPayload {
	return gatewayPayload{
		Type: event,
		Data: payload,
		Code: code,
	}
}

func (h *Hub) emitNamespace(nsp string, msg Message) {
	h.sio.Of(nsp, nil).Emit("message", h.gatewayMessageFormat(msg.Event, msg.Payload, msg.Code))
}

func (h *Hub) emitUser(userID string, msg Message) {
	h.mu.RLock()
	sockets := make([]*socketio.Socket, 0, 2)
	for sid, uid := range h.sidUser {
		if uid != userID {
			continue
		}
		if s, ok := h.sidSocket[sid]; ok && s != nil {
			sockets = append(sockets, s)
		}
	}
	h.mu.RUnlock()

	formatted := h.gatewayMessageFormat(msg.Event, msg.Payload, msg.Code)
	for _, s := range sockets {
		_ = s.Emit("message", formatted)
	}
}

func (h *Hub) deliver(msg Message) {
	switch {
	case msg.Room == RoomAdmin:
		h.emitNamespace(namespaceAdmin, msg)
	case msg.Room == RoomExtension:
		h.emitNamespace(namespaceExtension, msg)
	case msg.Room == "":
		h.emitNamespace(namespaceAdmin, msg)
		h.emitNamespace(namespaceExtension, msg)
	case strings.HasPrefix(msg.Room, userRoomPrefix):
		h.emitUser(strings.TrimPrefix(msg.Room, userRoomPrefix), msg)
	}
}

// subscribeRedis listens for broadcasts from other server instances.
// Messages this instance published come back with its own Origin and are
// skipped, because Run already delivered them locally.
func (h *Hub) subscribeRedis(ctx context.Context) {
	if h.rc == nil {
		return
	}

	pubsub := h.rc.Subscribe(ctx, redisChanAdmin, redisChanExtension)
	defer pubsub.Close()

	ch := pubsub.Channel()
	for {
		select {
		case <-ctx.Done():
			return

		case redisMsg, ok := <-ch:
			if !ok {
				return
			}
			var msg Message
			if err := json.Unmarshal([]byte(redisMsg.Payload), &msg); err != nil {
				continue
			}
			if msg.Origin == h.id {
				continue
			}
			h.deliver(msg)
		}
	}
}
