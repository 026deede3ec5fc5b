package realtime

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

const (
	// PingInterval and PongWait are used for transport heartbeat.
	PingInterval = 30
	PongWait     = 60

	writeWait   = 10 * time.Second
	sendBufSize = 256
)

// Conn is the socket a Session owns. *websocket.Conn satisfies it.
type Conn interface {
	ReadMessage() (messageType int, p []byte, err error)
	WriteMessage(messageType int, data []byte) error
	SetReadLimit(limit int64)
	SetReadDeadline(t time.Time) error
	SetWriteDeadline(t time.Time) error
	SetPongHandler(h func(appData string) error)
	Close() error
}

// Session is one live browser connection.
// ConnectedAt is fixed; LastActivity and CurrentPage are only touched by the hub loop.
type Session struct {
	ID           string
	ConnectedAt  time.Time
	LastActivity time.Time
	CurrentPage  string // empty until visitor_join
	UserAgent    string
	RemoteAddr   string

	hub       *Hub
	conn      Conn
	send      chan []byte
	closeOnce sync.Once
	logger    *zap.Logger
}

// NewSession wraps conn in a session with a fresh id.
func NewSession(hub *Hub, conn Conn, userAgent, remoteAddr string) *Session {
	now := hub.now()
	id := uuid.New().String()
	return &Session{
		ID:           id,
		ConnectedAt:  now,
		LastActivity: now,
		UserAgent:    userAgent,
		RemoteAddr:   remoteAddr,
		hub:          hub,
		conn:         conn,
		send:         make(chan []byte, sendBufSize),
		logger:       hub.logger.With(zap.String("client_id", id)),
	}
}

// enqueue hands data to the write pump without blocking.
func (s *Session) enqueue(data []byte) bool {
	select {
	case s.send <- data:
		return true
	default:
		return false
	}
}

// close stops the write pump, which sends a close frame and closes the socket.
func (s *Session) close() {
	s.closeOnce.Do(func() { close(s.send) })
}

func (s *Session) readPump() {
	defer func() {
		s.hub.Unregister(s)
		_ = s.conn.Close()
	}()

	s.conn.SetReadLimit(s.hub.cfg.MaxMessageBytes)
	_ = s.conn.SetReadDeadline(time.Now().Add(PongWait * time.Second))
	s.conn.SetPongHandler(func(string) error {
		_ = s.conn.SetReadDeadline(time.Now().Add(PongWait * time.Second))
		return nil
	})

	for {
		_, raw, err := s.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway, websocket.CloseNoStatusReceived) {
				s.logger.Warn("websocket read error", zap.Error(err))
			} else {
				s.logger.Debug("websocket closed", zap.Error(err))
			}
			return
		}
		_ = s.conn.SetReadDeadline(time.Now().Add(PongWait * time.Second))

		var msg WSMessage
		if err := json.Unmarshal(raw, &msg); err != nil {
			s.logger.Warn("discarding malformed frame", zap.Error(err), zap.Int("bytes", len(raw)))
			continue
		}
		if !s.hub.dispatch(s, msg) {
			return
		}
	}
}

func (s *Session) writePump() {
	ticker := time.NewTicker(PingInterval * time.Second)
	defer func() {
		ticker.Stop()
		_ = s.conn.Close()
	}()

	for {
		select {
		case data, ok := <-s.send:
			_ = s.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				_ = s.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := s.conn.WriteMessage(websocket.TextMessage, data); err != nil {
				s.logger.Debug("websocket write failed", zap.Error(err))
				return
			}
		case <-ticker.C:
			_ = s.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := s.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// ServeWs handles the WebSocket upgrade and runs the session until it closes.
// An empty allowedOrigins accepts any origin.
func ServeWs(hub *Hub, logger *zap.Logger, allowedOrigins []string) gin.HandlerFunc {
	upgrader := websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin:     originChecker(allowedOrigins, logger),
	}

	return func(c *gin.Context) {
		conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
		if err != nil {
			logger.Warn("websocket upgrade failed", zap.Error(err))
			return
		}

		s := NewSession(hub, conn, c.Request.UserAgent(), c.ClientIP())
		if err := hub.Register(s); err != nil {
			if !errors.Is(err, ErrHubStopped) {
				logger.Error("register session", zap.Error(err))
			}
			_ = conn.Close()
			return
		}
		s.readPump()
	}
}

func originChecker(allowed []string, logger *zap.Logger) func(r *http.Request) bool {
	set := make(map[string]bool, len(allowed))
	for _, o := range allowed {
		if n, ok := normalizeOrigin(o); ok {
			set[n] = true
		} else if o == "*" {
			return func(*http.Request) bool { return true }
		}
	}
	return func(r *http.Request) bool {
		if len(set) == 0 {
			return true
		}
		origin, ok := normalizeOrigin(r.Header.Get("Origin"))
		if ok && set[origin] {
			return true
		}
		logger.Warn("blocked websocket origin", zap.String("origin", r.Header.Get("Origin")))
		return false
	}
}

func normalizeOrigin(origin string) (string, bool) {
	parsed, err := url.Parse(strings.TrimSpace(origin))
	if err != nil || parsed.Scheme == "" || parsed.Host == "" {
		return "", false
	}
	return strings.ToLower(parsed.Scheme) + "://" + strings.ToLower(parsed.Host), true
}
