package domain

// WebSocket event types from client.
const (
	EventJoinChat       = "chat:join"
	EventSendMessage    = "chat:message"
	EventSetTyping      = "chat:typing"
	EventUpdateLocation = "location:update"
	EventPing           = "ping"
)

// WebSocket event types to client.
const (
	EventUserStatus      = "user:status"
	EventChatMessage     = "chat:message"
	EventChatTyping      = "chat:typing"
	EventChatNew         = "chat:new"
	EventLocationUpdated = "location:updated"
	EventError           = "error"
	EventPong            = "pong"
)

// Error codes carried by EventError payloads.
const (
	ErrCodeBadRequest = "BAD_REQUEST"
	ErrCodeForbidden  = "FORBIDDEN"
	ErrCodeNotFound   = "NOT_FOUND"
	ErrCodeValidation = "VALIDATION"
	ErrCodeInternal   = "INTERNAL_ERROR"
)

// User presence statuses.
const (
	StatusOnline  = "online"
	StatusOffline = "offline"
)

// Topic names. A connection is subscribed to one topic per chat it
// belongs to plus a private topic keyed by its user id.
func TopicChat(chatID string) string { return "chat:" + chatID }
func TopicUser(userID string) string { return "user:" + userID }

// BaseEvent is the envelope shared by all WebSocket events.
type BaseEvent struct {
	Type string `json:"type"`
}

// Client -> Server events

type JoinChatEvent struct {
	Type   string `json:"type"`
	ChatID string `json:"chat_id"`
}

type SendMessageEvent struct {
	Type    string `json:"type"`
	ChatID  string `json:"chat_id"`
	Content string `json:"content"`
}

type SetTypingEvent struct {
	Type     string `json:"type"`
	ChatID   string `json:"chat_id"`
	IsTyping bool   `json:"is_typing"`
}

type UpdateLocationEvent struct {
	Type      string   `json:"type"`
	Longitude *float64 `json:"longitude"`
	Latitude  *float64 `json:"latitude"`
}

// Server -> Client events

type UserStatusEvent struct {
	Type   string `json:"type"`
	UserID string `json:"user_id"`
	Status string `json:"status"`
}

type ChatMessageEvent struct {
	Type    string   `json:"type"`
	ChatID  string   `json:"chat_id"`
	Message *Message `json:"message"`
}

type ChatTypingEvent struct {
	Type     string `json:"type"`
	ChatID   string `json:"chat_id"`
	UserID   string `json:"user_id"`
	IsTyping bool   `json:"is_typing"`
}

type ChatNewEvent struct {
	Type   string `json:"type"`
	ChatID string `json:"chat_id"`
}

type LocationUpdatedEvent struct {
	Type    string `json:"type"`
	Success bool   `json:"success"`
}

type ErrorEvent struct {
	Type    string `json:"type"`
	Code    string `json:"code"`
	Message string `json:"message"`
}

func NewErrorEvent(code, message string) *ErrorEvent {
	return &ErrorEvent{Type: EventError, Code: code, Message: message}
}
