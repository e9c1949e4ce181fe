package gateway

import (
	"sync"

	pkgredis "github.com/clauselens/core/internal/pkg/redis"
	socketio "github.com/zishang520/socket.io/v2/socket"
	"go.uber.org/zap"
)

const (
	RoomAdmin     = "admin"
	RoomExtension = "extension"

	userRoomPrefix = "user:"

	namespaceAdmin     = "/admin"
	namespaceExtension = "/extension"

	redisChanAdmin     = "cl:gateway:admin"
	redisChanExtension = "cl:gateway:extension"

	redisKeyMaxOnlineCount      = "cl:max_online_count"
	redisKeyMaxOnlineCountTotal = "cl:max_online_count:total"

	eventExtensionOnline  = "EXTENSION_ONLINE"
	eventExtensionOffline = "EXTENSION_OFFLINE"

	nativeLogSnapshotChunkSize = 32 * 1024
)

// Message is the envelope used by hub broadcasts and Redis fan-out.
// Origin carries the publishing instance ID so a clustered hub does not
// re-deliver its own messages when they come back over pub/sub.
type Message struct {
	Event   string      `json:"event"`
	Payload interface{} `json:"payload"`
	Code    *int        `json:"code,omitempty"`
	Room    string      `json:"room,omitempty"`
	Origin  string      `json:"origin,omitempty"`
}

type gatewayPayload struct {
	Type string      `json:"type"`
	Data interface{} `json:"data"`
	Code *int        `json:"code,omitempty"`
}

type clientMeta struct {
	sid    string
	room   string
	userID string
	socket *socketio.Socket
}

type adminLogSubscription struct {
	streamID int
	stopCh   chan struct{}
}

// Hub manages socket.io namespaces and cluster fan-out. Extension clients
// authenticate with a session token and are tracked per user so analysis
// progress and alerts reach only that user's devices.
type Hub struct {
	mu sync.RWMutex

	sidRoom   map[string]string
	sidUser   map[string]string
	sidSocket map[string]*socketio.Socket
	roomCount map[string]int
	userConns map[string]int

	logSubMu sync.Mutex
	logSubs  map[string]adminLogSubscription

	broadcast  chan Message
	register   chan clientMeta
	unregister chan clientMeta

	id                  string
	rc                  *pkgredis.Client
	logger              *zap.Logger
	sio                 *socketio.Server
	adminTokenValidator func(string) bool
	sessionValidator    func(string) (string, bool)
}
