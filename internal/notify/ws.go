package notify

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/coursemeet/backend/internal/auth"
	"github.com/coursemeet/backend/pkg/response"
)

const (
	pongWait     = 60 * time.Second
	pingInterval = 50 * time.Second
	writeWait    = 10 * time.Second
	readLimit    = 512
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true // the token query parameter authenticates the socket
	},
}

// WSMessage is the WebSocket message envelope.
type WSMessage struct {
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data,omitempty"`
}

// TokenValidator checks platform login tokens.
type TokenValidator interface {
	Validate(token string) (*auth.Claims, error)
}

// ServeWs handles GET /ws?token=..., pushing the user's notifications over a
// WebSocket. Browsers cannot set headers on the upgrade, so the token travels
// in the query.
func ServeWs(sub Subscriber, tokens TokenValidator, logger *zap.Logger) gin.HandlerFunc {
	if logger == nil {
		logger = zap.NewNop()
	}
	return func(c *gin.Context) {
		token := c.Query("token")
		if token == "" {
			response.BadRequest(c, "token required")
			return
		}
		claims, err := tokens.Validate(token)
		if err != nil {
			response.Unauthorized(c, "invalid or expired token")
			return
		}

		conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
		if err != nil {
			logger.Warn("websocket upgrade failed", zap.Error(err))
			return
		}
		// The request context ends with the hijacked handler; the socket owns its own.
		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()

		send := make(chan WSMessage, streamBuffer)
		stop, err := sub.SubscribeUser(ctx, claims.UserID, func(event string, payload []byte) {
			select {
			case send <- WSMessage{Event: event, Data: payload}:
			default:
				logger.Warn("websocket send buffer full, dropping event", zap.String("user_id", claims.UserID.String()), zap.String("event", event))
			}
		})
		if err != nil {
			logger.Error("subscribe notifications failed", zap.String("user_id", claims.UserID.String()), zap.Error(err))
			_ = conn.WriteControl(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseInternalServerErr, "notifications unavailable"), time.Now().Add(writeWait))
			_ = conn.Close()
			return
		}
		defer stop()

		go writePump(ctx, conn, send)
		readPump(conn)
	}
}

// readPump drains client frames so pongs and close frames are processed.
func readPump(conn *websocket.Conn) {
	defer conn.Close()
	conn.SetReadLimit(readLimit)
	_ = conn.SetReadDeadline(time.Now().Add(pongWait))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(pongWait))
	})
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			return
		}
	}
}

func writePump(ctx context.Context, conn *websocket.Conn, send <-chan WSMessage) {
	ticker := time.NewTicker(pingInterval)
	defer func() {
		ticker.Stop()
		_ = conn.Close()
	}()
	for {
		select {
		case <-ctx.Done():
			return
		case msg := <-send:
			_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.WriteJSON(msg); err != nil {
				return
			}
		case <-ticker.C:
			_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
