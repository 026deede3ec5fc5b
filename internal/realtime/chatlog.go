package realtime

// ChatLog keeps the most recent chat messages, evicting the oldest beyond capacity.
type ChatLog struct {
	capacity int
	messages []ChatMessage
}

// NewChatLog creates a log bounded to capacity entries (minimum 1).
func NewChatLog(capacity int) *ChatLog {
	if capacity <= 0 {
		capacity = 1
	}
	return &ChatLog{capacity: capacity, messages: make([]ChatMessage, 0, capacity)}
}

// Append adds m and drops the oldest entry when full.
func (l *ChatLog) Append(m ChatMessage) {
	if len(l.messages) == l.capacity {
		copy(l.messages, l.messages[1:])
		l.messages = l.messages[:l.capacity-1]
	}
	l.messages = append(l.messages, m)
}

// Len returns the number of stored messages.
func (l *ChatLog) Len() int {
	return len(l.messages)
}

// Messages returns a copy, oldest first.
func (l *ChatLog) Messages() []ChatMessage {
	return append([]ChatMessage(nil), l.messages...)
}
