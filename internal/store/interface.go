package store

import (
	"context"
	"errors"
	"time"

	"github.com/Anselwang99/mateFinder/internal/domain"
)

var (
	ErrUserNotFound = errors.New("user not found")
	ErrEmailExists  = errors.New("email already exists")
	ErrChatNotFound = errors.New("chat not found")
	ErrChatExists   = errors.New("chat already exists")
)

// NearbyUser pairs a user with the distance from a search point.
type NearbyUser struct {
	User       domain.User
	DistanceKM float64
}

// ChatStore is the durable persistence boundary for users, chats and
// messages. It is the single source of truth for message ordering and
// presence durability.
type ChatStore interface {
	// Users
	CreateUser(ctx context.Context, u *domain.User) error
	FindUserByID(ctx context.Context, id string) (*domain.User, error)
	FindUserByEmail(ctx context.Context, email string) (*domain.User, error)
	UpdateUser(ctx context.Context, u *domain.User) error
	SetUserPresence(ctx context.Context, userID string, online bool, at time.Time) error
	SetUserLocation(ctx context.Context, userID string, lon, lat float64, at time.Time) error
	// MarkAllOffline resets every user's online flag. Called at startup:
	// the in-memory presence registry is empty after a restart, so every
	// user is presumed offline until they reconnect.
	MarkAllOffline(ctx context.Context) error
	FindUsersNear(ctx context.Context, lon, lat, radiusKM float64, excludeUserID string) ([]NearbyUser, error)

	// Chats
	CreateChat(ctx context.Context, participantA, participantB string) (*domain.Chat, error)
	FindChatByID(ctx context.Context, id string) (*domain.Chat, error)
	FindChatWithMessages(ctx context.Context, id string) (*domain.Chat, error)
	FindChatByParticipants(ctx context.Context, userA, userB string) (*domain.Chat, error)
	FindChatsByParticipant(ctx context.Context, userID string) ([]domain.Chat, error)

	// AppendMessage appends msg to the chat's log and updates the
	// denormalized lastMessage summary in the same transaction, so the
	// two can never diverge once the append commits. The message's ID,
	// Seq and CreatedAt are assigned by the store. Returns the updated
	// chat.
	AppendMessage(ctx context.Context, chatID string, msg *domain.Message) (*domain.Chat, error)
}
