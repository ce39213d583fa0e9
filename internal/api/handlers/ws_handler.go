package handlers

import (
	"context"
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/redis/go-redis/v9"
	"github.com/yoockh/yoopersona/internal/services"
	"github.com/yoockh/yoopersona/internal/utils"
)

// WSHandler streams orchestration status events for one interaction.
// Egress only: the orchestrator and poller publish to the interaction's
// Redis channel and this handler forwards payloads until the client
// disconnects or the server shuts down.
type WSHandler struct {
	interactions services.InteractionService
	redis        *redis.Client
	upgrader     websocket.Upgrader
}

func NewWSHandler(interactions services.InteractionService, rdb *redis.Client) *WSHandler {
	return &WSHandler{
		interactions: interactions,
		redis:        rdb,
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool { return true }, // TODO: restrict origin in prod
		},
	}
}

type wsConn struct {
	c  *websocket.Conn
	mu sync.Mutex
}

func (w *wsConn) writeText(b []byte) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.c.SetWriteDeadline(time.Now().Add(10 * time.Second))
	return w.c.WriteMessage(websocket.TextMessage, b)
}

func (h *WSHandler) InteractionWS(c *gin.Context) {
	userID, ok := requireUserID(c)
	if !ok {
		return
	}

	id := c.Param("id")
	if id == "" {
		writeError(c, utils.E(utils.CodeInvalidArgument, "WSHandler.InteractionWS", "missing interaction id", nil))
		return
	}

	// authorize interaction ownership
	rec, err := h.interactions.Get(c.Request.Context(), id)
	if err != nil {
		writeError(c, err)
		return
	}
	if rec.UserID != userID {
		writeError(c, utils.E(utils.CodeForbidden, "WSHandler.InteractionWS", "forbidden", nil))
		return
	}

	conn, err := h.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		// upgrade already wrote response in most cases
		return
	}
	defer conn.Close()

	wc := &wsConn{c: conn}
	ctx, cancel := context.WithCancel(c.Request.Context())
	defer cancel()

	pubsub := h.redis.Subscribe(ctx, services.StatusChannel(id))
	defer pubsub.Close()

	// reader goroutine only detects disconnects; clients send nothing.
	readDone := make(chan struct{})
	go func() {
		defer close(readDone)
		conn.SetPongHandler(func(string) error {
			_ = conn.SetReadDeadline(time.Now().Add(60 * time.Second))
			return nil
		})
		_ = conn.SetReadDeadline(time.Now().Add(60 * time.Second))
		for {
			if _, _, rerr := conn.ReadMessage(); rerr != nil {
				return
			}
		}
	}()

	for {
		select {
		case <-readDone:
			return
		case <-ctx.Done():
			return
		default:
			m, err := pubsub.ReceiveMessage(ctx)
			if err != nil {
				return
			}
			// forward as-is (payload is the event JSON)
			if werr := wc.writeText([]byte(m.Payload)); werr != nil {
				return
			}
		}
	}
}
