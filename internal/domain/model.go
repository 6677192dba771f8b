package domain

import (
	"time"

	"github.com/Anselwang99/mateFinder/pkg/database"
)

// UserModel is the GORM model for the users table.
type UserModel struct {
	ID           string               `gorm:"type:varchar(36);primaryKey"`
	Name         string               `gorm:"type:varchar(100);not null"`
	Email        string               `gorm:"type:varchar(255);uniqueIndex;not null"`
	PasswordHash string               `gorm:"type:varchar(255);not null"`
	Photo        string               `gorm:"type:varchar(512)"`
	Bio          string               `gorm:"type:text"`
	Interests    database.StringArray `gorm:"type:text"`
	Online       bool                 `gorm:"not null;default:false"`
	Longitude    *float64             `gorm:"index:idx_users_location"`
	Latitude     *float64             `gorm:"index:idx_users_location"`
	LocatedAt    *time.Time
	CreatedAt    time.Time `gorm:"autoCreateTime"`
	UpdatedAt    time.Time `gorm:"autoUpdateTime"`
}

func (UserModel) TableName() string { return "users" }

// ToDomain converts UserModel to a domain User.
func (m *UserModel) ToDomain() *User {
	u := &User{
		ID:           m.ID,
		Name:         m.Name,
		Email:        m.Email,
		PasswordHash: m.PasswordHash,
		Photo:        m.Photo,
		Bio:          m.Bio,
		Interests:    []string(m.Interests),
		Online:       m.Online,
		CreatedAt:    m.CreatedAt,
		UpdatedAt:    m.UpdatedAt,
	}
	if m.Longitude != nil && m.Latitude != nil {
		loc := &Location{Longitude: *m.Longitude, Latitude: *m.Latitude}
		if m.LocatedAt != nil {
			loc.UpdatedAt = *m.LocatedAt
		}
		u.Location = loc
	}
	return u
}

// UserToModel converts a domain User to UserModel.
func UserToModel(u *User) *UserModel {
	m := &UserModel{
		ID:           u.ID,
		Name:         u.Name,
		Email:        u.Email,
		PasswordHash: u.PasswordHash,
		Photo:        u.Photo,
		Bio:          u.Bio,
		Interests:    database.StringArray(u.Interests),
		Online:       u.Online,
		CreatedAt:    u.CreatedAt,
		UpdatedAt:    u.UpdatedAt,
	}
	if u.Location != nil {
		lon, lat, at := u.Location.Longitude, u.Location.Latitude, u.Location.UpdatedAt
		m.Longitude, m.Latitude, m.LocatedAt = &lon, &lat, &at
	}
	return m
}

// ChatModel is the GORM model for the chats table. A chat has exactly two
// participants, fixed at creation; the schema enforces that directly
// instead of a join table.
type ChatModel struct {
	ID string `gorm:"type:varchar(36);primaryKey"`

	ParticipantA string `gorm:"type:varchar(36);not null;index:idx_chats_participant_a;index:idx_chats_pair,unique"`
	ParticipantB string `gorm:"type:varchar(36);not null;index:idx_chats_participant_b;index:idx_chats_pair,unique"`

	// Denormalized summary of the newest message; updated in the same
	// transaction as every append.
	LastMessageContent  string `gorm:"type:text"`
	LastMessageSenderID string `gorm:"type:varchar(36)"`
	LastMessageAt       *time.Time

	CreatedAt time.Time `gorm:"autoCreateTime"`
	UpdatedAt time.Time `gorm:"autoUpdateTime;index"`
}

func (ChatModel) TableName() string { return "chats" }

// ToDomain converts ChatModel to a domain Chat (without messages).
func (m *ChatModel) ToDomain() *Chat {
	c := &Chat{
		ID:           m.ID,
		Participants: [2]string{m.ParticipantA, m.ParticipantB},
		CreatedAt:    m.CreatedAt,
		UpdatedAt:    m.UpdatedAt,
	}
	if m.LastMessageAt != nil {
		c.LastMessage = &LastMessage{
			Content:   m.LastMessageContent,
			SenderID:  m.LastMessageSenderID,
			CreatedAt: *m.LastMessageAt,
		}
	}
	return c
}

// MessageModel is the GORM model for the messages table. Seq is the
// store-assigned write order; within a chat, ordering by Seq is the
// authoritative message order.
type MessageModel struct {
	Seq      int64  `gorm:"primaryKey;autoIncrement"`
	ID       string `gorm:"type:varchar(36);uniqueIndex;not null"`
	ChatID   string `gorm:"type:varchar(36);not null;index:idx_messages_chat"`
	SenderID string `gorm:"type:varchar(36);not null"`
	Content  string `gorm:"type:text;not null"`
	Read     bool   `gorm:"not null;default:false"`

	MediaKind      string `gorm:"type:varchar(16)"`
	MediaURL       string `gorm:"type:varchar(1024)"`
	MediaThumbnail string `gorm:"type:varchar(1024)"`
	MediaSize      int64
	MediaMimeType  string `gorm:"type:varchar(128)"`
	MediaWidth     int
	MediaHeight    int

	CreatedAt time.Time `gorm:"autoCreateTime"`
}

func (MessageModel) TableName() string { return "messages" }

// ToDomain converts MessageModel to a domain Message.
func (m *MessageModel) ToDomain() *Message {
	msg := &Message{
		ID:        m.ID,
		ChatID:    m.ChatID,
		Seq:       m.Seq,
		SenderID:  m.SenderID,
		Content:   m.Content,
		Read:      m.Read,
		CreatedAt: m.CreatedAt,
	}
	if m.MediaKind != "" {
		msg.Media = &Media{
			Kind:      MediaKind(m.MediaKind),
			URL:       m.MediaURL,
			Thumbnail: m.MediaThumbnail,
			Metadata: MediaMetadata{
				Size:     m.MediaSize,
				MimeType: m.MediaMimeType,
				Width:    m.MediaWidth,
				Height:   m.MediaHeight,
			},
		}
	}
	return msg
}

// MessageToModel converts a domain Message to MessageModel.
func MessageToModel(msg *Message) *MessageModel {
	m := &MessageModel{
		Seq:       msg.Seq,
		ID:        msg.ID,
		ChatID:    msg.ChatID,
		SenderID:  msg.SenderID,
		Content:   msg.Content,
		Read:      msg.Read,
		CreatedAt: msg.CreatedAt,
	}
	if msg.Media != nil {
		m.MediaKind = string(msg.Media.Kind)
		m.MediaURL = msg.Media.URL
		m.MediaThumbnail = msg.Media.Thumbnail
		m.MediaSize = msg.Media.Metadata.Size
		m.MediaMimeType = msg.Media.Metadata.MimeType
		m.MediaWidth = msg.Media.Metadata.Width
		m.MediaHeight = msg.Media.Metadata.Height
	}
	return m
}
