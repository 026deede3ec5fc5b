package realtime

import (
	"encoding/json"
	"strconv"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// route dispatches one inbound event from s. Runs on the event loop.
func (h *Hub) route(s *Session, msg WSMessage) {
	if cur, ok := h.registry.Get(s.ID); !ok || cur != s {
		h.logger.Debug("event from departed session", zap.String("client_id", s.ID), zap.String("type", string(msg.Type)))
		return
	}
	s.LastActivity = h.now()

	switch msg.Type {
	case EventVisitorJoin:
		h.handleVisitorJoin(s, msg)
	case EventVisitorLeave:
		var p visitorPageData
		_ = decodeData(msg, &p)
		s.logger.Info("visitor left page", zap.String("page", p.Page))
	case EventActivity:
		// LastActivity already refreshed.
	case EventChatMessage:
		h.handleChatMessage(s, msg)
	case EventTyping:
		h.handleTyping(s, msg)
	case EventPing:
		h.sendTo(s, EventPong, PongPayload{Timestamp: millis(h.now())})
	case EventClickTrack:
		var p clickTrackData
		if err := decodeData(msg, &p); err != nil {
			s.logger.Warn("invalid click_track payload", zap.Error(err))
			return
		}
		s.logger.Info("click tracked", zap.String("count", p.Count.String()))
	default:
		s.logger.Info("unknown message type", zap.String("type", string(msg.Type)))
	}
}

func (h *Hub) handleVisitorJoin(s *Session, msg WSMessage) {
	var p visitorPageData
	if err := decodeData(msg, &p); err != nil {
		s.logger.Warn("invalid visitor_join payload", zap.Error(err))
		return
	}
	s.CurrentPage = p.Page
	s.logger.Info("visitor joined", zap.String("page", p.Page))

	h.broadcast(EventNotification, NotificationPayload{
		Text: "New visitor on " + p.Page,
		Type: "info",
	}, s.ID)
}

func (h *Hub) handleTyping(s *Session, msg WSMessage) {
	var p typingData
	if err := decodeData(msg, &p); err != nil {
		s.logger.Warn("invalid typing payload", zap.Error(err))
		return
	}
	h.broadcast(EventUserTyping, UserTypingPayload{ClientID: s.ID, Typing: p.Typing}, s.ID)
}

// handleChatMessage logs and relays a visitor message to everyone, the author
// included, then schedules one canned operator reply.
func (h *Hub) handleChatMessage(s *Session, msg WSMessage) {
	var in ChatMessage
	if err := decodeData(msg, &in); err != nil {
		s.logger.Warn("invalid chat_message payload", zap.Error(err))
		return
	}
	chat := ChatMessage{
		ID:        in.ID,
		Message:   in.Message,
		Timestamp: in.Timestamp,
		Sender:    in.Sender,
		ClientID:  s.ID,
	}
	h.chatLog.Append(chat)
	h.broadcast(EventChatMessage, chat, "")
	s.logger.Info("chat message", zap.String("sender", chat.Sender), zap.Int("length", len(chat.Message)))

	h.scheduleAutoReply()
}

func (h *Hub) scheduleAutoReply() {
	delay := between(h.rand, h.cfg.ReplyMinDelay, h.cfg.ReplyMaxDelay)
	text := pick(h.rand, h.autoReplies)

	time.AfterFunc(delay, func() {
		select {
		case h.deferred <- text:
		case <-h.done:
		}
	})
}

// sendAutoReply broadcasts an operator reply. It is not added to the chat log.
func (h *Hub) sendAutoReply(text string) {
	id, _ := json.Marshal(uuid.New().String())
	h.broadcast(EventChatMessage, ChatMessage{
		ID:        id,
		Message:   text,
		Timestamp: json.RawMessage(strconv.FormatInt(millis(h.now()), 10)),
		Sender:    AdminSender,
	}, "")
}
