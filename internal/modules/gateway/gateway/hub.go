package gateway

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"
	"strings"
	"time"

	pkgredis "github.com/clauselens/core/internal/pkg/redis"
	"github.com/google/uuid"
	redis "github.com/redis/go-redis/v9"
	socketio "github.com/zishang520/socket.io/v2/socket"
	"go.uber.org/zap"
)

// NewHub creates the socket hub. adminTokenValidator authorizes dashboard
// connections; sessionValidator resolves an extension session token to a
// user ID. rc may be nil when Redis is not configured, which disables
// cluster fan-out and online stats.
func NewHub(rc *pkgredis.Client, logger *zap.Logger, adminTokenValidator func(string) bool, sessionValidator func(string) (string, bool)) *Hub {
	sio := socketio.NewServer(nil, nil)
	h := &Hub{
		sidRoom:             make(map[string]string),
		sidUser:             make(map[string]string),
		sidSocket:           make(map[string]*socketio.Socket),
		roomCount:           make(map[string]int),
		userConns:           make(map[string]int),
		logSubs:             make(map[string]adminLogSubscription),
		broadcast:           make(chan Message, 256),
		register:            make(chan clientMeta, 256),
		unregister:          make(chan clientMeta, 256),
		id:                  uuid.NewString(),
		rc:                  rc,
		logger:              logger,
		sio:                 sio,
		adminTokenValidator: adminTokenValidator,
		sessionValidator:    sessionValidator,
	}
	h.registerNamespaces()
	return h
}

// Run starts the hub loop and Redis subscriber.
func (h *Hub) Run(ctx context.Context) {
	go h.subscribeRedis(ctx)

	for {
		select {
		case <-ctx.Done():
			h.sio.Close(nil)
			return

		case c := <-h.register:
			h.registerClient(c)

		case c := <-h.unregister:
			h.unregisterClient(c)

		case msg := <-h.broadcast:
			h.deliver(msg)
			if h.rc == nil {
				continue
			}
			msg.Origin = h.id
			channel := redisChanExtension
			if msg.Room == RoomAdmin {
				channel = redisChanAdmin
			}
			data, err := json.Marshal(msg)
			if err != nil {
				continue
			}
			if err := h.rc.Publish(ctx, channel, string(data)); err != nil && h.logger != nil {
				h.logger.Warn("gateway publish failed", zap.String("channel", channel), zap.Error(err))
			}
		}
	}
}

func (h *Hub) registerClient(c clientMeta) {
	userCameOnline := false
	onlineUsers := 0
	connections := 0

	h.mu.Lock()
	if oldRoom, ok := h.sidRoom[c.sid]; ok {
		if oldRoom == c.room {
			h.mu.Unlock()
			return
		}
		if h.roomCount[oldRoom] > 0 {
			h.roomCount[oldRoom]--
		}
	}

	h.sidRoom[c.sid] = c.room
	h.roomCount[c.room]++
	if c.socket != nil {
		h.sidSocket[c.sid] = c.socket
	}
	if c.room == RoomExtension {
		connections = h.roomCount[RoomExtension]
		if c.userID != "" {
			h.sidUser[c.sid] = c.userID
			h.userConns[c.userID]++
			userCameOnline = h.userConns[c.userID] == 1
			onlineUsers = len(h.userConns)
		}
	}
	h.mu.Unlock()

	if userCameOnline {
		h.BroadcastAdmin(eventExtensionOnline, presencePayload(c.userID, onlineUsers))
	}
	if c.room == RoomExtension {
		h.updateDailyOnlineStats(connections)
	}
}

func (h *Hub) unregisterClient(c clientMeta) {
	offlineUser := ""
	onlineUsers := 0

	h.mu.Lock()
	room, ok := h.sidRoom[c.sid]
	if !ok {
		h.mu.Unlock()
		return
	}

	delete(h.sidRoom, c.sid)
	delete(h.sidSocket, c.sid)
	if h.roomCount[room] > 0 {
		h.roomCount[room]--
	}
	if userID, tracked := h.sidUser[c.sid]; tracked {
		delete(h.sidUser, c.sid)
		if h.userConns[userID] > 0 {
			h.userConns[userID]--
		}
		if h.userConns[userID] == 0 {
			delete(h.userConns, userID)
			offlineUser = userID
			onlineUsers = len(h.userConns)
		}
	}
	h.mu.Unlock()

	if offlineUser != "" {
		h.BroadcastAdmin(eventExtensionOffline, presencePayload(offlineUser, onlineUsers))
	}
}

func (h *Hub) updateDailyOnlineStats(currentOnline int) {
	if h.rc == nil || currentOnline < 0 {
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	dateKey := shortDateKey(time.Now())

	maxOnline := 0
	currentMax, err := h.rc.Raw().HGet(ctx, redisKeyMaxOnlineCount, dateKey).Result()
	switch {
	case err == nil:
		if parsed, parseErr := strconv.Atoi(strings.TrimSpace(currentMax)); parseErr == nil {
			maxOnline = parsed
		}
	case err == redis.Nil:
		// no-op
	default:
		if h.logger != nil {
			h.logger.Warn("gateway get max online failed", zap.Error(err))
		}
	}

	if currentOnline > maxOnline {
		if err := h.rc.Raw().HSet(ctx, redisKeyMaxOnlineCount, dateKey, currentOnline).Err(); err != nil && h.logger != nil {
			h.logger.Warn("gateway set max online failed", zap.Error(err))
		}
	}

	if err := h.rc.Raw().HIncrBy(ctx, redisKeyMaxOnlineCountTotal, dateKey, 1).Err(); err != nil && h.logger != nil {
		h.logger.Warn("gateway incr online total failed", zap.Error(err))
	}
}

func shortDateKey(t time.Time) string {
	return t.Format("1-2-06")
}

func presencePayload(userID string, online int) map[string]interface{} {
	return map[string]interface{}{
		"userId":    userID,
		"online":    online,
		"timestamp": time.Now().UTC().Format(time.RFC3339Nano),
	}
}

// UserRoom names the per-user delivery room.
func UserRoom(userID string) string { return userRoomPrefix + userID }

// Broadcast sends an event to all clients in the given room (or all if room="").
func (h *Hub) Broadcast(event string, payload interface{}, room string) {
	h.broadcast <- Message{Event: event, Payload: payload, Room: room}
}

// BroadcastAdmin sends to the admin room only.
func (h *Hub) BroadcastAdmin(event string, payload interface{}) {
	h.Broadcast(event, payload, RoomAdmin)
}

// BroadcastExtension sends to every connected extension client.
func (h *Hub) BroadcastExtension(event string, payload interface{}) {
	h.Broadcast(event, payload, RoomExtension)
}

// BroadcastUser sends to every live connection of one user, across all
// server instances.
func (h *Hub) BroadcastUser(userID, event string, payload interface{}) {
	userID = strings.TrimSpace(userID)
	if userID == "" {
		return
	}
	h.Broadcast(event, payload, UserRoom(userID))
}

// ClientCount returns the number of connected clients (optionally filtered by room).
func (h *Hub) ClientCount(room string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()

	if room == "" {
		return len(h.sidRoom)
	}
	return h.roomCount[room]
}

// OnlineUserCount returns how many distinct users hold at least one live
// extension connection.
func (h *Hub) OnlineUserCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.userConns)
}

// Handler returns the socket.io HTTP handler mounted at /socket.io.
func (h *Hub) Handler() http.Handler {
	return h.sio.ServeHandler(nil)
}
