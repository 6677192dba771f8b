package service

import (
	"context"
	"errors"

	"github.com/Anselwang99/mateFinder/internal/domain"
)

var (
	ErrNotParticipant  = errors.New("user is not a participant of this chat")
	ErrEmptyContent    = errors.New("message content is empty")
	ErrMissingCoords   = errors.New("longitude and latitude are required")
	ErrInvalidPassword = errors.New("invalid email or password")
	ErrSelfChat        = errors.New("cannot open a chat with yourself")
)

// Conn is one live websocket connection bound to an authenticated
// user. *hub.Client implements it; tests use in-memory fakes.
type Conn interface {
	ID() string
	UserID() string
	Send(message interface{}) error
}

// Broker fans events out to topic subscribers. Implemented by
// *hub.Hub. Subscriptions are keyed by connection ID so a broker
// never holds connection objects the session layer owns.
type Broker interface {
	Subscribe(connID, topic string)
	Unsubscribe(connID, topic string)
	Broadcast(topic string, message interface{}, exclude string) error
	BroadcastAll(message interface{}) error
}

// ChatService is the session manager: it owns the lifecycle of
// authenticated connections and every mutating chat event.
type ChatService interface {
	// Authenticate verifies the handshake token and resolves it to a
	// stored user. It performs no subscriptions or state changes.
	Authenticate(ctx context.Context, token string) (*domain.User, error)

	// HandleConnect runs session initialization for an authenticated
	// connection: presence count, private topic, one topic per chat
	// the user already belongs to, and the online broadcast on the
	// first connection.
	HandleConnect(ctx context.Context, c Conn) error

	// HandleDisconnect decrements presence and broadcasts offline on
	// the last connection. Topic cleanup is the broker's business.
	HandleDisconnect(ctx context.Context, c Conn) error

	HandleJoinChat(ctx context.Context, c Conn, chatID string) error
	HandleSendMessage(ctx context.Context, c Conn, chatID, content string) error
	HandleSetTyping(ctx context.Context, c Conn, chatID string, isTyping bool) error
	HandleUpdateLocation(ctx context.Context, c Conn, longitude, latitude *float64) error

	// SendMessage is the shared validate -> append -> broadcast path
	// used by both the websocket event and the REST endpoint. A nil
	// media sends a plain text message.
	SendMessage(ctx context.Context, senderID, chatID, content string, media *domain.Media) (*domain.Message, error)

	// CreateChat opens (or returns the existing) two-party chat and
	// notifies the receiver on their private topic when it is new.
	CreateChat(ctx context.Context, creatorID, receiverID string) (*domain.Chat, bool, error)

	GetChat(ctx context.Context, userID, chatID string) (*domain.Chat, error)
	ListChats(ctx context.Context, userID string) ([]*domain.Chat, error)
}

// UserService covers accounts, profiles, and location reads.
type UserService interface {
	Signup(ctx context.Context, req *domain.SignupRequest) (*domain.AuthResponse, error)
	Login(ctx context.Context, req *domain.LoginRequest) (*domain.AuthResponse, error)
	GetProfile(ctx context.Context, userID string) (*domain.User, error)
	UpdateProfile(ctx context.Context, userID string, req *domain.UpdateProfileRequest) (*domain.User, error)
	UpdateLocation(ctx context.Context, userID string, longitude, latitude float64) error
	FindNearby(ctx context.Context, userID string, longitude, latitude *float64, distanceKM float64) ([]domain.NearbyUser, error)
}
