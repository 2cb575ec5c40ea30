package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/redis/go-redis/v9"

	"resumate/internal/auth"
	"resumate/internal/tasks"
)

const (
	wsWriteWait    = 5 * time.Second
	wsPingInterval = 30 * time.Second
	wsAuthWait     = 10 * time.Second
	wsMaxMessage   = 4 << 10
)

// WsHandler relays a user's archive notifications over a websocket.
type WsHandler struct {
	redisClient redis.UniversalClient
	authService *auth.AuthService
	logger      *slog.Logger
	upgrader    websocket.Upgrader
}

// NewWsHandler builds the handler. An empty allow list accepts same-host origins only.
func NewWsHandler(redisClient redis.UniversalClient, authService *auth.AuthService, logger *slog.Logger, allowedOrigins []string) *WsHandler {
	return &WsHandler{
		redisClient: redisClient,
		authService: authService,
		logger:      logger,
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool {
				return originAllowed(allowedOrigins, r)
			},
		},
	}
}

func originAllowed(allowed []string, r *http.Request) bool {
	origin := r.Header.Get("Origin")
	if origin == "" {
		return true
	}
	if len(allowed) > 0 {
		return slices.Contains(allowed, origin)
	}
	u, err := url.Parse(origin)
	if err != nil {
		return false
	}
	return strings.EqualFold(u.Host, r.Host)
}

type wsAuthMessage struct {
	Type  string `json:"type"`
	Token string `json:"token"`
}

// wsConn serialises writes and records the first reason the connection ended.
type wsConn struct {
	conn    *websocket.Conn
	writeMu sync.Mutex
	once    sync.Once
	cause   error
	cancel  context.CancelFunc
}

func (w *wsConn) stop(err error) {
	w.once.Do(func() {
		w.cause = err
		w.cancel()
	})
}

func (w *wsConn) write(messageType int, data []byte) error {
	w.writeMu.Lock()
	defer w.writeMu.Unlock()
	_ = w.conn.SetWriteDeadline(time.Now().Add(wsWriteWait))
	return w.conn.WriteMessage(messageType, data)
}

func (w *wsConn) closeWith(code int, text string, err error) {
	w.writeMu.Lock()
	_ = w.conn.WriteControl(websocket.CloseMessage, websocket.FormatCloseMessage(code, text), time.Now().Add(wsWriteWait))
	w.writeMu.Unlock()
	w.stop(err)
}

// HandleConnection upgrades the request. The access token comes either in the token query
// parameter or in a first {"type":"auth"} message.
func (h *WsHandler) HandleConnection(c *gin.Context) {
	var userID uint
	if token := c.Query("token"); token != "" {
		session, err := h.authService.Authenticate(token)
		if err != nil {
			h.logger.Info("websocket token rejected", slog.Any("error", err))
			AbortUnauthorized(c)
			return
		}
		userID = session.UserID
	}

	raw, err := h.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		h.logger.Error("upgrade websocket failed", slog.Any("error", err))
		return
	}
	defer raw.Close()
	raw.SetReadLimit(wsMaxMessage)

	ctx, cancel := context.WithCancel(c.Request.Context())
	defer cancel()
	ws := &wsConn{conn: raw, cancel: cancel}
	log := h.logger.With(slog.String("client_ip", c.ClientIP()))

	if userID == 0 {
		if userID, err = h.awaitAuth(ws); err != nil {
			log.Warn("websocket authentication failed", slog.Any("error", err))
			return
		}
	}
	log = log.With(slog.Uint64("user_id", uint64(userID)))
	log.Info("websocket authenticated")

	go h.drain(ws)
	h.relay(ctx, ws, userID, log)

	if ws.cause != nil && !websocket.IsCloseError(ws.cause, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
		log.Info("websocket connection closed", slog.Any("error", ws.cause))
		return
	}
	log.Info("websocket connection closed")
}

func (h *WsHandler) awaitAuth(ws *wsConn) (uint, error) {
	_ = ws.conn.SetReadDeadline(time.Now().Add(wsAuthWait))
	defer ws.conn.SetReadDeadline(time.Time{})

	_, message, err := ws.conn.ReadMessage()
	if err != nil {
		return 0, fmt.Errorf("read auth message: %w", err)
	}
	var msg wsAuthMessage
	if err := json.Unmarshal(message, &msg); err != nil {
		ws.closeWith(websocket.ClosePolicyViolation, "invalid auth payload", err)
		return 0, fmt.Errorf("decode auth payload: %w", err)
	}
	if msg.Type != "auth" || msg.Token == "" {
		err := errors.New("auth required")
		ws.closeWith(websocket.ClosePolicyViolation, err.Error(), err)
		return 0, err
	}
	session, err := h.authService.Authenticate(msg.Token)
	if err != nil {
		ws.closeWith(websocket.ClosePolicyViolation, "unauthorized", err)
		return 0, fmt.Errorf("authenticate: %w", err)
	}
	return session.UserID, nil
}

// drain reads until the peer goes away. Client messages after auth carry no meaning.
func (h *WsHandler) drain(ws *wsConn) {
	for {
		if _, _, err := ws.conn.ReadMessage(); err != nil {
			ws.stop(err)
			return
		}
	}
}

func (h *WsHandler) relay(ctx context.Context, ws *wsConn, userID uint, log *slog.Logger) {
	channel := tasks.NotifyChannel(userID)
	pubsub := h.redisClient.Subscribe(ctx, channel)
	defer pubsub.Close()
	log.Debug("subscribed", slog.String("channel", channel))

	messages := pubsub.Channel()
	ping := time.NewTicker(wsPingInterval)
	defer ping.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case msg, ok := <-messages:
			if !ok {
				ws.stop(errors.New("notification channel closed"))
				return
			}
			if err := ws.write(websocket.TextMessage, []byte(msg.Payload)); err != nil {
				ws.stop(fmt.Errorf("write notification: %w", err))
				return
			}
		case <-ping.C:
			if err := ws.write(websocket.PingMessage, nil); err != nil {
				ws.stop(fmt.Errorf("write ping: %w", err))
				return
			}
		}
	}
}
