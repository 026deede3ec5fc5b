package realtime

import (
	"context"
	"errors"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/rajatjasiwal2001/portfolio/config"
)

// ErrHubStopped is returned once the hub's event loop has exited.
var ErrHubStopped = errors.New("realtime: hub stopped")

const inboundBufSize = 256

// Stats is a point-in-time view of the hub, read through the event loop.
type Stats struct {
	Connected     int       `json:"connected"`
	TotalVisitors int       `json:"totalVisitors"`
	ChatMessages  int       `json:"chatMessages"`
	StartedAt     time.Time `json:"startedAt"`
}

type inboundFrame struct {
	session *Session
	msg     WSMessage
}

// Hub owns the session registry and chat log and runs every mutation of them
// on a single event loop (Run). Transport goroutines only post to its channels.
type Hub struct {
	cfg    config.RealtimeConfig
	logger *zap.Logger
	rand   Randomizer
	now    func() time.Time

	announcements []string
	autoReplies   []string

	registry      *Registry
	chatLog       *ChatLog
	totalVisitors int
	startedAt     time.Time

	register   chan *Session
	unregister chan *Session
	inbound    chan inboundFrame
	deferred   chan string
	stats      chan chan Stats

	wg   sync.WaitGroup
	done chan struct{}
}

// Option customizes a Hub.
type Option func(*Hub)

// WithRandomizer replaces the source used for canned texts and reply delays.
func WithRandomizer(r Randomizer) Option {
	return func(h *Hub) { h.rand = r }
}

// WithClock replaces time.Now.
func WithClock(now func() time.Time) Option {
	return func(h *Hub) { h.now = now }
}

// WithAnnouncements replaces DefaultAnnouncements.
func WithAnnouncements(texts []string) Option {
	return func(h *Hub) { h.announcements = texts }
}

// WithAutoReplies replaces DefaultAutoReplies.
func WithAutoReplies(texts []string) Option {
	return func(h *Hub) { h.autoReplies = texts }
}

// NewHub creates a hub. Call Run to start its event loop.
func NewHub(logger *zap.Logger, cfg config.RealtimeConfig, opts ...Option) *Hub {
	h := &Hub{
		cfg:           cfg,
		logger:        logger,
		rand:          defaultRandomizer(),
		now:           time.Now,
		announcements: DefaultAnnouncements,
		autoReplies:   DefaultAutoReplies,
		registry:      NewRegistry(),
		chatLog:       NewChatLog(cfg.ChatLogCapacity),
		register:      make(chan *Session),
		unregister:    make(chan *Session),
		inbound:       make(chan inboundFrame, inboundBufSize),
		deferred:      make(chan string),
		stats:         make(chan chan Stats),
		done:          make(chan struct{}),
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// Run processes connections, inbound events, deferred replies and sweeps one
// at a time until ctx is cancelled, then closes every registered session.
func (h *Hub) Run(ctx context.Context) {
	defer close(h.done)

	h.startedAt = h.now()
	announce := time.NewTicker(h.cfg.AnnounceInterval)
	sweep := time.NewTicker(h.cfg.SweepInterval)
	defer announce.Stop()
	defer sweep.Stop()

	h.logger.Info("hub started",
		zap.Duration("announce_interval", h.cfg.AnnounceInterval),
		zap.Duration("sweep_interval", h.cfg.SweepInterval),
		zap.Duration("idle_timeout", h.cfg.IdleTimeout),
	)

	for {
		select {
		case <-ctx.Done():
			h.closeAll()
			return
		case s := <-h.register:
			h.connect(s)
		case s := <-h.unregister:
			h.disconnect(s, "closed")
		case in := <-h.inbound:
			h.route(in.session, in.msg)
		case text := <-h.deferred:
			h.sendAutoReply(text)
		case reply := <-h.stats:
			reply <- h.snapshotStats()
		case <-announce.C:
			h.announce()
		case <-sweep.C:
			h.evictIdle(h.now())
		}
	}
}

// Register hands an accepted session to the event loop.
func (h *Hub) Register(s *Session) error {
	select {
	case h.register <- s:
		return nil
	case <-h.done:
		return ErrHubStopped
	}
}

// Unregister reports a transport close or error for s.
func (h *Hub) Unregister(s *Session) {
	select {
	case h.unregister <- s:
	case <-h.done:
	}
}

// dispatch queues an inbound event; false once the hub has stopped.
func (h *Hub) dispatch(s *Session, msg WSMessage) bool {
	select {
	case h.inbound <- inboundFrame{session: s, msg: msg}:
		return true
	case <-h.done:
		return false
	}
}

// Stats asks the event loop for current counters.
func (h *Hub) Stats(ctx context.Context) (Stats, error) {
	reply := make(chan Stats, 1)
	select {
	case h.stats <- reply:
	case <-h.done:
		return Stats{}, ErrHubStopped
	case <-ctx.Done():
		return Stats{}, ctx.Err()
	}
	select {
	case st := <-reply:
		return st, nil
	case <-ctx.Done():
		return Stats{}, ctx.Err()
	}
}

// Wait blocks until Run has returned and every write pump has finished,
// or ctx expires.
func (h *Hub) Wait(ctx context.Context) error {
	select {
	case <-h.done:
	case <-ctx.Done():
		return ctx.Err()
	}

	pumps := make(chan struct{})
	go func() {
		h.wg.Wait()
		close(pumps)
	}()
	select {
	case <-pumps:
		h.logger.Info("hub stopped")
		return nil
	case <-ctx.Done():
		h.logger.Warn("hub shutdown timed out, some sockets may still be open")
		return ctx.Err()
	}
}

func (h *Hub) connect(s *Session) {
	if err := h.registry.Register(s); err != nil {
		h.logger.Error("rejecting session", zap.Error(err))
		_ = s.conn.Close()
		return
	}
	h.totalVisitors++

	h.wg.Add(1)
	go func() {
		defer h.wg.Done()
		s.writePump()
	}()

	count := h.registry.Size()
	s.logger.Info("client connected",
		zap.Int("count", count),
		zap.String("remote_addr", s.RemoteAddr),
		zap.String("user_agent", s.UserAgent),
	)

	h.sendTo(s, EventConnectionEstablished, ConnectionEstablishedPayload{
		ClientID:     s.ID,
		VisitorCount: count,
		ServerTime:   millis(h.now()),
	})
	h.broadcast(EventVisitorCount, VisitorCountPayload{Count: count}, "")
}

// disconnect tears s down once. Later reports for the same session are no-ops.
func (h *Hub) disconnect(s *Session, reason string) {
	if cur, ok := h.registry.Get(s.ID); !ok || cur != s {
		return
	}
	h.registry.Unregister(s.ID)
	s.close()

	count := h.registry.Size()
	s.logger.Info("client disconnected", zap.String("reason", reason), zap.Int("count", count))

	h.broadcast(EventVisitorCount, VisitorCountPayload{Count: count}, "")
	h.broadcast(EventNotification, NotificationPayload{Text: "A visitor left the site", Type: "info"}, "")
}

func (h *Hub) closeAll() {
	sessions := h.registry.Snapshot()
	for _, s := range sessions {
		h.registry.Unregister(s.ID)
		s.close()
	}
	h.logger.Info("closed all client connections", zap.Int("count", len(sessions)))
}

func (h *Hub) snapshotStats() Stats {
	return Stats{
		Connected:     h.registry.Size(),
		TotalVisitors: h.totalVisitors,
		ChatMessages:  h.chatLog.Len(),
		StartedAt:     h.startedAt,
	}
}

// sendTo delivers one event to a single session.
func (h *Hub) sendTo(s *Session, t EventType, payload interface{}) {
	data, err := encode(t, payload)
	if err != nil {
		h.logger.Error("encode event", zap.String("type", string(t)), zap.Error(err))
		return
	}
	if !s.enqueue(data) {
		s.logger.Warn("send buffer full, dropping event", zap.String("type", string(t)))
	}
}

// broadcast fans an event out to a snapshot of the registry, skipping exclude.
// A failed enqueue is logged and never aborts the fan-out.
func (h *Hub) broadcast(t EventType, payload interface{}, exclude string) {
	data, err := encode(t, payload)
	if err != nil {
		h.logger.Error("encode event", zap.String("type", string(t)), zap.Error(err))
		return
	}
	for _, s := range h.registry.Snapshot() {
		if s.ID == exclude {
			continue
		}
		if !s.enqueue(data) {
			s.logger.Warn("send buffer full, dropping event", zap.String("type", string(t)))
		}
	}
}
