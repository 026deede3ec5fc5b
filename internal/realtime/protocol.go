package realtime

import (
	"encoding/json"
	"time"
)

// EventType is the `type` discriminator of the wire envelope.
type EventType string

// Server → client events.
const (
	EventConnectionEstablished EventType = "connection_established"
	EventVisitorCount          EventType = "visitor_count"
	EventNotification          EventType = "notification"
	EventChatMessage           EventType = "chat_message"
	EventUserTyping            EventType = "user_typing"
	EventPong                  EventType = "pong"
	EventLiveUpdate            EventType = "live_update"
)

// Client → server events. chat_message is shared with the outbound set.
const (
	EventVisitorJoin  EventType = "visitor_join"
	EventVisitorLeave EventType = "visitor_leave"
	EventActivity     EventType = "activity"
	EventTyping       EventType = "typing"
	EventPing         EventType = "ping"
	EventClickTrack   EventType = "click_track"
)

// AdminSender labels auto-replies in the chat.
const AdminSender = "admin"

// WSMessage is the WebSocket message envelope.
type WSMessage struct {
	Type EventType       `json:"type"`
	Data json.RawMessage `json:"data,omitempty"`
}

// outbound is the encoded form of a server event.
type outbound struct {
	Type EventType   `json:"type"`
	Data interface{} `json:"data"`
}

func encode(t EventType, payload interface{}) ([]byte, error) {
	return json.Marshal(outbound{Type: t, Data: payload})
}

// decodeData unmarshals the envelope payload. An absent payload decodes as {}.
func decodeData(msg WSMessage, v interface{}) error {
	if len(msg.Data) == 0 || string(msg.Data) == "null" {
		return nil
	}
	return json.Unmarshal(msg.Data, v)
}

// millis returns t as epoch milliseconds, the unit browsers use for timestamps.
func millis(t time.Time) int64 {
	return t.UnixMilli()
}

// ConnectionEstablishedPayload is sent privately to a session right after it connects.
type ConnectionEstablishedPayload struct {
	ClientID     string `json:"clientId"`
	VisitorCount int    `json:"visitorCount"`
	ServerTime   int64  `json:"serverTime"`
}

// VisitorCountPayload carries the number of connected sessions.
type VisitorCountPayload struct {
	Count int `json:"count"`
}

// NotificationPayload is a short presence notice such as a visitor joining a page or leaving.
type NotificationPayload struct {
	Text string `json:"text"`
	Type string `json:"type"`
}

// ChatMessage is both the chat log record and the chat_message payload.
// ID and Timestamp are client supplied and relayed verbatim.
type ChatMessage struct {
	ID        json.RawMessage `json:"id"`
	Message   string          `json:"message"`
	Timestamp json.RawMessage `json:"timestamp"`
	Sender    string          `json:"sender"`
	ClientID  string          `json:"clientId,omitempty"`
}

// UserTypingPayload tells the other visitors that ClientID started or stopped typing.
type UserTypingPayload struct {
	ClientID string `json:"clientId"`
	Typing   bool   `json:"typing"`
}

// PongPayload answers a client ping with the server time in ms.
type PongPayload struct {
	Timestamp int64 `json:"timestamp"`
}

// LiveUpdatePayload is a server-initiated update; announcements use UpdateType "announcement".
type LiveUpdatePayload struct {
	UpdateType string `json:"updateType"`
	Message    string `json:"message"`
}

type visitorPageData struct {
	Page string `json:"page"`
}

type typingData struct {
	Typing bool `json:"typing"`
}

type clickTrackData struct {
	Count json.Number `json:"count"`
}
