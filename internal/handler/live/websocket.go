package live

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"

	service "github.com/zhouzirui/user-directory/backend/internal/service/directory"
	"github.com/zhouzirui/user-directory/backend/internal/service/session"
	view "github.com/zhouzirui/user-directory/backend/internal/view/directory"
)

const (
	readTimeout  = 60 * time.Second
	writeTimeout = 10 * time.Second
	pingInterval = 54 * time.Second
)

var errSessionMismatch = errors.New("session mismatch")

// Handler serves the live directory view over a websocket. Every connection
// is one mounted view with its own store.
type Handler struct {
	sessions *session.Registry
	logger   zerolog.Logger
	upgrader websocket.Upgrader
}

// New 创建WebSocket处理器
func New(sessions *session.Registry, logger zerolog.Logger) *Handler {
	return &Handler{
		sessions: sessions,
		logger:   logger,
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool {
				return true
			},
			ReadBufferSize:  1024,
			WriteBufferSize: 4096,
		},
	}
}

// RegisterRoutes 注册WebSocket路由
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Get("/ws", h.handleWebSocket)
}

type inboundMessage struct {
	Type      string          `json:"type"`
	SessionID string          `json:"sessionId"`
	Data      json.RawMessage `json:"data"`
	Timestamp int64           `json:"timestamp"`
}

// SearchMessage carries the search input value.
type SearchMessage struct {
	Term string `json:"term"`
}

type outgoingMessage struct {
	Type      string      `json:"type"`
	SessionID string      `json:"sessionId,omitempty"`
	Data      interface{} `json:"data,omitempty"`
	Timestamp int64       `json:"timestamp"`
}

// RenderPayload is the data of a "render" message.
type RenderPayload struct {
	HTML       string        `json:"html"`
	Phase      service.Phase `json:"phase"`
	IsLoading  bool          `json:"isLoading"`
	SearchTerm string        `json:"searchTerm"`
	Count      int           `json:"count"`
}

// liveConn serialises writes; gorilla allows a single concurrent writer.
type liveConn struct {
	mu   sync.Mutex
	conn *websocket.Conn
}

func (c *liveConn) writeJSON(v interface{}) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.conn.SetWriteDeadline(time.Now().Add(writeTimeout))
	return c.conn.WriteJSON(v)
}

func (c *liveConn) writePing() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(writeTimeout))
}

// handleWebSocket 处理WebSocket连接
func (h *Handler) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Warn().Err(err).Msg("websocket upgrade failed")
		return
	}
	defer conn.Close()

	// The fetch lives as long as the connection.
	ctx, cancel := context.WithCancel(r.Context())
	defer cancel()

	sess := h.sessions.Mount(ctx)
	defer h.sessions.Unmount(sess.ID)

	logger := h.logger.With().Str("session_id", sess.ID).Logger()
	logger.Info().Msg("live view connected")

	lc := &liveConn{conn: conn}
	if err := lc.writeJSON(outgoingMessage{
		Type:      "connected",
		SessionID: sess.ID,
		Timestamp: time.Now().Unix(),
	}); err != nil {
		logger.Debug().Err(err).Msg("write connected failed")
		return
	}

	unsubscribe := sess.Store.Observe(func(state service.State) {
		h.sendRender(lc, logger, sess.ID, state)
	})
	defer unsubscribe()

	conn.SetReadDeadline(time.Now().Add(readTimeout))
	conn.SetPongHandler(func(string) error {
		conn.SetReadDeadline(time.Now().Add(readTimeout))
		return nil
	})

	go h.pingLoop(ctx, lc)

	for {
		var msg inboundMessage
		if err := conn.ReadJSON(&msg); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure, websocket.CloseAbnormalClosure) {
				logger.Warn().Err(err).Msg("websocket read error")
			}
			logger.Info().Msg("live view disconnected")
			return
		}

		conn.SetReadDeadline(time.Now().Add(readTimeout))

		target, err := h.resolveSession(sess, msg.SessionID)
		if err != nil {
			h.sendError(lc, logger, err.Error())
			continue
		}

		h.handleMessage(lc, logger, target, &msg)
	}
}

// resolveSession looks up the session a message addresses. An empty id means
// the connection's own session; other connections' sessions are off limits.
func (h *Handler) resolveSession(own *session.Session, id string) (*session.Session, error) {
	if id == "" {
		id = own.ID
	}
	target, err := h.sessions.Get(id)
	if err != nil {
		return nil, err
	}
	if target != own {
		return nil, errSessionMismatch
	}
	return target, nil
}

func (h *Handler) handleMessage(lc *liveConn, logger zerolog.Logger, sess *session.Session, msg *inboundMessage) {
	switch msg.Type {
	case "search":
		var search SearchMessage
		if err := json.Unmarshal(msg.Data, &search); err != nil {
			h.sendError(lc, logger, "invalid search payload")
			return
		}
		sess.Store.SetSearchTerm(search.Term)
	default:
		h.sendError(lc, logger, "unsupported message type: "+msg.Type)
	}
}

func (h *Handler) sendRender(lc *liveConn, logger zerolog.Logger, sessionID string, state service.State) {
	html, err := view.GridHTML(state)
	if err != nil {
		logger.Error().Err(err).Msg("render grid failed")
		return
	}

	msg := outgoingMessage{
		Type:      "render",
		SessionID: sessionID,
		Data: RenderPayload{
			HTML:       html,
			Phase:      state.Phase,
			IsLoading:  state.IsLoading,
			SearchTerm: state.SearchTerm,
			Count:      len(state.Filtered),
		},
		Timestamp: time.Now().Unix(),
	}
	if err := lc.writeJSON(msg); err != nil {
		logger.Debug().Err(err).Msg("write render failed")
	}
}

func (h *Handler) sendError(lc *liveConn, logger zerolog.Logger, message string) {
	msg := outgoingMessage{
		Type:      "error",
		Data:      map[string]string{"message": message},
		Timestamp: time.Now().Unix(),
	}
	if err := lc.writeJSON(msg); err != nil {
		logger.Debug().Err(err).Msg("write error failed")
	}
}

// pingLoop 定期发送ping消息
func (h *Handler) pingLoop(ctx context.Context, lc *liveConn) {
	ticker := time.NewTicker(pingInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := lc.writePing(); err != nil {
				return
			}
		}
	}
}
