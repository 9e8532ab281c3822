package ws

import (
	"net/http"

	"github.com/rs/zerolog/log"

	"github.com/coder/websocket"

	"github.com/grovehq/grove/internal/server/middleware"
	redisstore "github.com/grovehq/grove/internal/store/redis"
	"github.com/grovehq/grove/internal/tasktree"
)

// Hub manages WebSocket connections backed by Redis pub/sub.
type Hub struct {
	pubsub *redisstore.PubSub
}

// NewHub creates a new WebSocket hub.
func NewHub(pubsub *redisstore.PubSub) *Hub {
	return &Hub{pubsub: pubsub}
}

// ServeTree handles WebSocket connections for task tree updates.
// Subscribes to Redis channel "tree:<ownerID>" and forwards node
// lifecycle events to the connected client.
func (h *Hub) ServeTree(w http.ResponseWriter, r *http.Request) {
	ownerID, ok := middleware.OwnerIDFromContext(r.Context())
	if !ok {
		http.Error(w, "missing owner", http.StatusBadRequest)
		return
	}

	h.serve(w, r, tasktree.TreeChannel(ownerID))
}

// ServeBattles handles WebSocket connections for battle timer updates.
// Subscribes to Redis channel "battle:<ownerID>" and streams countdown
// transitions to the connected client.
func (h *Hub) ServeBattles(w http.ResponseWriter, r *http.Request) {
	ownerID, ok := middleware.OwnerIDFromContext(r.Context())
	if !ok {
		http.Error(w, "missing owner", http.StatusBadRequest)
		return
	}

	h.serve(w, r, redisstore.BattleChannel(ownerID))
}

func (h *Hub) serve(w http.ResponseWriter, r *http.Request, channel string) {
	conn, err := websocket.Accept(w, r, nil)
	if err != nil {
		log.Error().Err(err).Msg("websocket accept")
		return
	}
	defer conn.CloseNow()

	ctx := r.Context()

	messages, cleanup, err := h.pubsub.Subscribe(ctx, channel)
	if err != nil {
		log.Error().Err(err).Msg("websocket subscribe")
		_ = conn.Close(websocket.StatusInternalError, "subscribe failed")
		return
	}
	defer cleanup()

	for {
		select {
		case <-ctx.Done():
			_ = conn.Close(websocket.StatusNormalClosure, "connection closed")
			return
		case msg, msgOK := <-messages:
			if !msgOK {
				_ = conn.Close(websocket.StatusNormalClosure, "channel closed")
				return
			}
			if writeErr := conn.Write(ctx, websocket.MessageText, msg); writeErr != nil {
				log.Debug().Err(writeErr).Msg("websocket write")
				return
			}
		}
	}
}
