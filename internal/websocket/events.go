package websocket

import (
	"time"

	"github.com/welldanyogia/webrana-chat-backend/internal/models"
)

// EventType tags every frame pushed to clients
type EventType string

const (
	EventMessage        EventType = "message"
	EventMessageUpdated EventType = "message_updated"
	EventMessageDeleted EventType = "message_deleted"
	EventTyping         EventType = "typing"
	EventPresence       EventType = "presence"
	EventReadReceipt    EventType = "read_receipt"
)

// Presence statuses
const (
	StatusOnline  = "online"
	StatusOffline = "offline"
)

// Event is a broadcast payload
type Event interface {
	Kind() EventType
}

// AttachmentInfo is the client-facing attachment metadata
type AttachmentInfo struct {
	ID       uint   `json:"id"`
	FileName string `json:"file_name"`
	MimeType string `json:"mime_type"`
}

// MessagePayload is the client-facing view of a persisted message. HTTP
// responses use it directly; broadcast events embed it.
type MessagePayload struct {
	ID            uint            `json:"id"`
	Username      string          `json:"username"`
	Content       string          `json:"content"`
	Timestamp     string          `json:"timestamp"`
	EditedAt      string          `json:"edited_at,omitempty"`
	HasAttachment bool            `json:"has_attachment"`
	Attachment    *AttachmentInfo `json:"attachment"`
}

// NewMessagePayload builds the view of a message with its author and
// attachment loaded
func NewMessagePayload(m *models.Message) MessagePayload {
	p := MessagePayload{
		ID:        m.ID,
		Username:  m.Author.Username,
		Content:   m.Content,
		Timestamp: formatTime(m.CreatedAt),
	}
	if m.EditedAt != nil {
		p.EditedAt = formatTime(*m.EditedAt)
	}
	if m.HasAttachment() {
		p.HasAttachment = true
		p.Attachment = &AttachmentInfo{
			ID:       m.Attachment.ID,
			FileName: m.Attachment.DisplayName,
			MimeType: m.Attachment.MimeType,
		}
	}
	return p
}

// MessageEvent announces a new or edited message
type MessageEvent struct {
	Type EventType `json:"type"`
	MessagePayload
}

func (e MessageEvent) Kind() EventType { return e.Type }

// NewMessageEvent announces a freshly sent message
func NewMessageEvent(m *models.Message) MessageEvent {
	return MessageEvent{Type: EventMessage, MessagePayload: NewMessagePayload(m)}
}

// NewMessageUpdatedEvent announces an edit
func NewMessageUpdatedEvent(m *models.Message) MessageEvent {
	return MessageEvent{Type: EventMessageUpdated, MessagePayload: NewMessagePayload(m)}
}

// MessageDeletedEvent announces a removed message
type MessageDeletedEvent struct {
	Type EventType `json:"type"`
	ID   uint      `json:"id"`
}

func (e MessageDeletedEvent) Kind() EventType { return e.Type }

// NewMessageDeletedEvent announces that message id is gone
func NewMessageDeletedEvent(id uint) MessageDeletedEvent {
	return MessageDeletedEvent{Type: EventMessageDeleted, ID: id}
}

// TypingEvent signals that a user started or stopped typing
type TypingEvent struct {
	Type     EventType `json:"type"`
	Username string    `json:"username"`
	IsTyping bool      `json:"is_typing"`
}

func (e TypingEvent) Kind() EventType { return e.Type }

// NewTypingEvent creates a TypingEvent
func NewTypingEvent(username string, isTyping bool) TypingEvent {
	return TypingEvent{Type: EventTyping, Username: username, IsTyping: isTyping}
}

// PresenceEvent signals a connection coming online or going offline
type PresenceEvent struct {
	Type     EventType `json:"type"`
	Username string    `json:"username"`
	Status   string    `json:"status"`
}

func (e PresenceEvent) Kind() EventType { return e.Type }

// NewPresenceEvent creates a PresenceEvent
func NewPresenceEvent(username, status string) PresenceEvent {
	return PresenceEvent{Type: EventPresence, Username: username, Status: status}
}

// ReadReceiptEvent signals that a user has seen a message
type ReadReceiptEvent struct {
	Type      EventType `json:"type"`
	Username  string    `json:"username"`
	MessageID uint      `json:"message_id"`
	Timestamp string    `json:"timestamp"`
}

func (e ReadReceiptEvent) Kind() EventType { return e.Type }

// NewReadReceiptEvent creates a ReadReceiptEvent stamped with at
func NewReadReceiptEvent(username string, messageID uint, at time.Time) ReadReceiptEvent {
	return ReadReceiptEvent{Type: EventReadReceipt, Username: username, MessageID: messageID, Timestamp: formatTime(at)}
}

func formatTime(t time.Time) string {
	return t.UTC().Format(time.RFC3339)
}
