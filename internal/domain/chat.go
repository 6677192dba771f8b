package domain

import (
	"strings"
	"time"
)

// MediaKind classifies a message attachment.
type MediaKind string

const (
	MediaImage MediaKind = "image"
	MediaVideo MediaKind = "video"
	MediaAudio MediaKind = "audio"
)

// MediaKindFromContentType maps a declared MIME type to a MediaKind.
func MediaKindFromContentType(contentType string) (MediaKind, bool) {
	switch {
	case strings.HasPrefix(contentType, "image/"):
		return MediaImage, true
	case strings.HasPrefix(contentType, "video/"):
		return MediaVideo, true
	case strings.HasPrefix(contentType, "audio/"):
		return MediaAudio, true
	default:
		return "", false
	}
}

// MediaMetadata describes a stored attachment.
type MediaMetadata struct {
	Size     int64  `json:"size"`
	MimeType string `json:"mime_type"`
	Width    int    `json:"width,omitempty"`  // images only
	Height   int    `json:"height,omitempty"` // images only
}

// Media is the descriptor attached to a media-bearing message.
type Media struct {
	Kind      MediaKind     `json:"kind"`
	URL       string        `json:"url"`
	Thumbnail string        `json:"thumbnail,omitempty"`
	Metadata  MediaMetadata `json:"metadata"`
}

// Message is one entry in a chat's append-only log. Messages belong to
// exactly one chat and are never referenced outside it.
type Message struct {
	ID        string    `json:"id"`
	ChatID    string    `json:"chat_id"`
	Seq       int64     `json:"seq"`
	SenderID  string    `json:"sender_id"`
	Content   string    `json:"content"`
	Read      bool      `json:"read"`
	Media     *Media    `json:"media,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

// LastMessage is the denormalized summary of a chat's most recent message.
// After any successful append it always mirrors the tail of the log.
type LastMessage struct {
	Content   string    `json:"content"`
	SenderID  string    `json:"sender_id"`
	CreatedAt time.Time `json:"created_at"`
}

// Chat is a two-party conversation. Participants are immutable after
// creation.
type Chat struct {
	ID           string       `json:"id"`
	Participants [2]string    `json:"participants"`
	LastMessage  *LastMessage `json:"last_message,omitempty"`
	Messages     []Message    `json:"messages,omitempty"`
	CreatedAt    time.Time    `json:"created_at"`
	UpdatedAt    time.Time    `json:"updated_at"`
}

// HasParticipant reports whether userID is one of the chat's two members.
func (c *Chat) HasParticipant(userID string) bool {
	return c.Participants[0] == userID || c.Participants[1] == userID
}

// OtherParticipant returns the peer of userID, or "" if userID is not a
// member.
func (c *Chat) OtherParticipant(userID string) string {
	switch userID {
	case c.Participants[0]:
		return c.Participants[1]
	case c.Participants[1]:
		return c.Participants[0]
	default:
		return ""
	}
}

// CreateChatRequest asks for a two-party chat with the receiver.
type CreateChatRequest struct {
	ReceiverID string `json:"receiver_id" binding:"required"`
}

// SendMessageRequest is the REST body for sending a text message.
type SendMessageRequest struct {
	Content string `json:"content" binding:"required"`
}
