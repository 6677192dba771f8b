package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/Anselwang99/mateFinder/internal/audit"
	"github.com/Anselwang99/mateFinder/internal/cache"
	"github.com/Anselwang99/mateFinder/internal/domain"
	"github.com/Anselwang99/mateFinder/internal/events"
	"github.com/Anselwang99/mateFinder/internal/presence"
	"github.com/Anselwang99/mateFinder/internal/store"
	"github.com/Anselwang99/mateFinder/pkg/jwt"
	"github.com/Anselwang99/mateFinder/pkg/log"
)

type chatService struct {
	store    store.ChatStore
	users    cache.UserCache
	tokens   *jwt.Manager
	presence *presence.Registry
	broker   Broker
	producer events.MessageProducer
	cacheTTL time.Duration
}

func NewChatService(
	st store.ChatStore,
	users cache.UserCache,
	tokens *jwt.Manager,
	reg *presence.Registry,
	broker Broker,
	producer events.MessageProducer,
	cacheTTL time.Duration,
) ChatService {
	return &chatService{
		store:    st,
		users:    users,
		tokens:   tokens,
		presence: reg,
		broker:   broker,
		producer: producer,
		cacheTTL: cacheTTL,
	}
}

func (s *chatService) Authenticate(ctx context.Context, token string) (*domain.User, error) {
	claims, err := s.tokens.Verify(token)
	if err != nil {
		return nil, fmt.Errorf("verify token: %w", err)
	}

	user, err := s.lookupUser(ctx, claims.UserID)
	if err != nil {
		return nil, fmt.Errorf("resolve token subject: %w", err)
	}
	return user, nil
}

func (s *chatService) HandleConnect(ctx context.Context, c Conn) error {
	userID := c.UserID()
	first := s.presence.Connect(userID)

	s.broker.Subscribe(c.ID(), domain.TopicUser(userID))

	chats, err := s.store.FindChatsByParticipant(ctx, userID)
	if err != nil {
		// Roll the presence count back so a failed init leaves no trace.
		s.presence.Disconnect(userID)
		s.broker.Unsubscribe(c.ID(), domain.TopicUser(userID))
		return fmt.Errorf("load chats for session: %w", err)
	}
	for i := range chats {
		s.broker.Subscribe(c.ID(), domain.TopicChat(chats[i].ID))
	}

	if first {
		now := time.Now()
		if err := s.store.SetUserPresence(ctx, userID, true, now); err != nil {
			lg := log.Ctx(ctx)
			lg.Warn().Err(err).Str(log.FieldUserID, userID).Msg("failed to persist online flag")
		}
		s.invalidateUser(ctx, userID)
		if err := s.broker.BroadcastAll(&domain.UserStatusEvent{
			Type:   domain.EventUserStatus,
			UserID: userID,
			Status: domain.StatusOnline,
		}); err != nil {
			lg := log.Ctx(ctx)
			lg.Warn().Err(err).Msg("failed to broadcast online status")
		}
	}

	audit.Log(ctx, audit.ActionConnect, userID, "session connected")
	return nil
}

func (s *chatService) HandleDisconnect(ctx context.Context, c Conn) error {
	userID := c.UserID()
	last := s.presence.Disconnect(userID)
	if !last {
		return nil
	}

	now := time.Now()
	if err := s.store.SetUserPresence(ctx, userID, false, now); err != nil {
		lg := log.Ctx(ctx)
		lg.Warn().Err(err).Str(log.FieldUserID, userID).Msg("failed to persist offline flag")
	}
	s.invalidateUser(ctx, userID)

	if err := s.broker.BroadcastAll(&domain.UserStatusEvent{
		Type:   domain.EventUserStatus,
		UserID: userID,
		Status: domain.StatusOffline,
	}); err != nil {
		lg := log.Ctx(ctx)
		lg.Warn().Err(err).Msg("failed to broadcast offline status")
	}

	audit.Log(ctx, audit.ActionDisconnect, userID, "session disconnected")
	return nil
}

func (s *chatService) HandleJoinChat(ctx context.Context, c Conn, chatID string) error {
	if _, err := s.chatForMember(ctx, chatID, c.UserID()); err != nil {
		s.sendScopedError(c, err)
		return err
	}

	// Subscribing twice is a no-op, so rejoining is harmless.
	s.broker.Subscribe(c.ID(), domain.TopicChat(chatID))
	return nil
}

func (s *chatService) HandleSendMessage(ctx context.Context, c Conn, chatID, content string) error {
	if _, err := s.SendMessage(ctx, c.UserID(), chatID, content, nil); err != nil {
		s.sendScopedError(c, err)
		return err
	}
	return nil
}

func (s *chatService) HandleSetTyping(ctx context.Context, c Conn, chatID string, isTyping bool) error {
	if _, err := s.chatForMember(ctx, chatID, c.UserID()); err != nil {
		s.sendScopedError(c, err)
		return err
	}

	// The originator does not need its own typing echo.
	return s.broker.Broadcast(domain.TopicChat(chatID), &domain.ChatTypingEvent{
		Type:     domain.EventChatTyping,
		ChatID:   chatID,
		UserID:   c.UserID(),
		IsTyping: isTyping,
	}, c.ID())
}

func (s *chatService) HandleUpdateLocation(ctx context.Context, c Conn, longitude, latitude *float64) error {
	if longitude == nil || latitude == nil {
		s.sendScopedError(c, ErrMissingCoords)
		return ErrMissingCoords
	}

	if err := s.store.SetUserLocation(ctx, c.UserID(), *longitude, *latitude, time.Now()); err != nil {
		s.sendScopedError(c, err)
		return fmt.Errorf("set location: %w", err)
	}
	s.invalidateUser(ctx, c.UserID())

	audit.Log(ctx, audit.ActionUpdateLocation, c.UserID(), "location updated")
	return c.Send(&domain.LocationUpdatedEvent{Type: domain.EventLocationUpdated, Success: true})
}

// SendMessage validates membership fresh from the store, appends the
// message atomically with the lastMessage summary, and broadcasts the
// committed message to every subscriber of the chat topic including
// the sender's own connections.
func (s *chatService) SendMessage(ctx context.Context, senderID, chatID, content string, media *domain.Media) (*domain.Message, error) {
	if content == "" && media == nil {
		return nil, ErrEmptyContent
	}

	if _, err := s.chatForMember(ctx, chatID, senderID); err != nil {
		return nil, err
	}

	msg := &domain.Message{
		SenderID: senderID,
		Content:  content,
		Media:    media,
	}
	if _, err := s.store.AppendMessage(ctx, chatID, msg); err != nil {
		return nil, fmt.Errorf("append message: %w", err)
	}

	if err := s.broker.Broadcast(domain.TopicChat(chatID), &domain.ChatMessageEvent{
		Type:    domain.EventChatMessage,
		ChatID:  chatID,
		Message: msg,
	}, ""); err != nil {
		lg := log.Ctx(ctx)
		lg.Warn().Err(err).Str(log.FieldChatID, chatID).Msg("failed to broadcast message")
	}

	if err := s.producer.ProduceMessage(ctx, chatID, msg); err != nil {
		lg := log.Ctx(ctx)
		lg.Warn().Err(err).Str(log.FieldChatID, chatID).Msg("failed to archive message")
	}

	action := audit.ActionSendMessage
	if media != nil {
		action = audit.ActionSendMedia
	}
	audit.LogWithDetail(ctx, action, senderID, chatID, "message sent")

	return msg, nil
}

func (s *chatService) CreateChat(ctx context.Context, creatorID, receiverID string) (*domain.Chat, bool, error) {
	if creatorID == receiverID {
		return nil, false, ErrSelfChat
	}
	if _, err := s.lookupUser(ctx, receiverID); err != nil {
		return nil, false, err
	}

	existing, err := s.store.FindChatByParticipants(ctx, creatorID, receiverID)
	if err == nil {
		return existing, false, nil
	}
	if !errors.Is(err, store.ErrChatNotFound) {
		return nil, false, fmt.Errorf("find chat by participants: %w", err)
	}

	chat, err := s.store.CreateChat(ctx, creatorID, receiverID)
	if errors.Is(err, store.ErrChatExists) {
		// Lost a race with a concurrent create for the same pair; return
		// the winner's chat.
		existing, err := s.store.FindChatByParticipants(ctx, creatorID, receiverID)
		if err != nil {
			return nil, false, fmt.Errorf("find chat after create conflict: %w", err)
		}
		return existing, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("create chat: %w", err)
	}

	if err := s.broker.Broadcast(domain.TopicUser(receiverID), &domain.ChatNewEvent{
		Type:   domain.EventChatNew,
		ChatID: chat.ID,
	}, ""); err != nil {
		lg := log.Ctx(ctx)
		lg.Warn().Err(err).Str(log.FieldChatID, chat.ID).Msg("failed to notify receiver of new chat")
	}

	audit.LogWithDetail(ctx, audit.ActionCreateChat, creatorID, chat.ID, "chat created")
	return chat, true, nil
}

func (s *chatService) GetChat(ctx context.Context, userID, chatID string) (*domain.Chat, error) {
	chat, err := s.store.FindChatWithMessages(ctx, chatID)
	if err != nil {
		return nil, err
	}
	if !chat.HasParticipant(userID) {
		return nil, ErrNotParticipant
	}
	return chat, nil
}

func (s *chatService) ListChats(ctx context.Context, userID string) ([]*domain.Chat, error) {
	chats, err := s.store.FindChatsByParticipant(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("list chats: %w", err)
	}
	out := make([]*domain.Chat, len(chats))
	for i := range chats {
		out[i] = &chats[i]
	}
	return out, nil
}

// chatForMember is the fetch-then-check rule applied to every mutating
// event: the chat is read fresh from the store and the caller must be
// one of its two participants.
func (s *chatService) chatForMember(ctx context.Context, chatID, userID string) (*domain.Chat, error) {
	chat, err := s.store.FindChatByID(ctx, chatID)
	if err != nil {
		return nil, err
	}
	if !chat.HasParticipant(userID) {
		return nil, ErrNotParticipant
	}
	return chat, nil
}

// lookupUser reads through the user cache.
func (s *chatService) lookupUser(ctx context.Context, userID string) (*domain.User, error) {
	key := s.users.BuildKeyByID(userID)
	if user, err := s.users.Get(ctx, key); err == nil {
		return user, nil
	} else if !errors.Is(err, cache.ErrCacheMiss) {
		lg := log.Ctx(ctx)
		lg.Warn().Err(err).Msg("user cache read failed")
	}

	user, err := s.store.FindUserByID(ctx, userID)
	if err != nil {
		return nil, err
	}
	if err := s.users.Set(ctx, key, user, s.cacheTTL); err != nil {
		lg := log.Ctx(ctx)
		lg.Warn().Err(err).Msg("user cache write failed")
	}
	return user, nil
}

func (s *chatService) invalidateUser(ctx context.Context, userID string) {
	if err := s.users.Delete(ctx, s.users.BuildKeyByID(userID)); err != nil {
		lg := log.Ctx(ctx)
		lg.Warn().Err(err).Msg("user cache invalidation failed")
	}
}

// sendScopedError maps a failure to an error event delivered only to
// the originating connection. Errors never close the connection.
func (s *chatService) sendScopedError(c Conn, err error) {
	var code, message string
	switch {
	case errors.Is(err, store.ErrChatNotFound):
		code, message = domain.ErrCodeNotFound, "Chat not found"
	case errors.Is(err, store.ErrUserNotFound):
		code, message = domain.ErrCodeNotFound, "User not found"
	case errors.Is(err, ErrNotParticipant):
		code, message = domain.ErrCodeForbidden, "You are not a participant of this chat"
	case errors.Is(err, ErrEmptyContent):
		code, message = domain.ErrCodeValidation, "Message content is required"
	case errors.Is(err, ErrMissingCoords):
		code, message = domain.ErrCodeValidation, "Longitude and latitude are required"
	default:
		code, message = domain.ErrCodeInternal, "Internal error"
	}
	c.Send(domain.NewErrorEvent(code, message))
}
