package realtime

import (
	"time"

	"go.uber.org/zap"
)

// announce broadcasts one canned live update to everyone.
func (h *Hub) announce() {
	text := pick(h.rand, h.announcements)
	if text == "" {
		return
	}
	h.broadcast(EventLiveUpdate, LiveUpdatePayload{UpdateType: "announcement", Message: text}, "")
	h.logger.Debug("announcement sent", zap.Int("count", h.registry.Size()))
}

// evictIdle force-closes every session whose last activity is older than the
// idle timeout. Each eviction takes the normal disconnect path.
func (h *Hub) evictIdle(now time.Time) {
	var idle []*Session
	h.registry.ForEach(func(s *Session) {
		if now.Sub(s.LastActivity) > h.cfg.IdleTimeout {
			idle = append(idle, s)
		}
	})
	for _, s := range idle {
		s.logger.Info("evicting idle client", zap.Duration("idle", now.Sub(s.LastActivity)))
		h.disconnect(s, "idle")
	}
}
