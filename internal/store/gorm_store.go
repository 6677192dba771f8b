package store

import (
	"context"
	"errors"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/Anselwang99/mateFinder/internal/domain"
)

// GormChatStore implements ChatStore using GORM.
type GormChatStore struct {
	db *gorm.DB
}

// NewGormChatStore creates a GORM-based chat store.
func NewGormChatStore(db *gorm.DB) *GormChatStore {
	return &GormChatStore{db: db}
}

// Migrate runs auto-migration for the store's tables.
func (s *GormChatStore) Migrate() error {
	return s.db.AutoMigrate(&domain.UserModel{}, &domain.ChatModel{}, &domain.MessageModel{})
}

// CreateUser creates a new user.
func (s *GormChatStore) CreateUser(ctx context.Context, u *domain.User) error {
	u.ID = uuid.New().String()

	model := domain.UserToModel(u)
	if err := s.db.WithContext(ctx).Create(model).Error; err != nil {
		return s.handleUserError(err)
	}

	u.CreatedAt = model.CreatedAt
	u.UpdatedAt = model.UpdatedAt
	return nil
}

// FindUserByID retrieves a user by ID.
func (s *GormChatStore) FindUserByID(ctx context.Context, id string) (*domain.User, error) {
	var model domain.UserModel
	if err := s.db.WithContext(ctx).First(&model, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, err
	}
	return model.ToDomain(), nil
}

// FindUserByEmail retrieves a user by email.
func (s *GormChatStore) FindUserByEmail(ctx context.Context, email string) (*domain.User, error) {
	var model domain.UserModel
	if err := s.db.WithContext(ctx).First(&model, "email = ?", email).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, err
	}
	return model.ToDomain(), nil
}

// UpdateUser updates a user's profile fields.
func (s *GormChatStore) UpdateUser(ctx context.Context, u *domain.User) error {
	model := domain.UserToModel(u)
	result := s.db.WithContext(ctx).Model(&domain.UserModel{}).
		Where("id = ?", u.ID).
		Updates(map[string]interface{}{
			"name":      model.Name,
			"photo":     model.Photo,
			"bio":       model.Bio,
			"interests": model.Interests,
		})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ErrUserNotFound
	}

	var updated domain.UserModel
	s.db.WithContext(ctx).First(&updated, "id = ?", u.ID)
	u.UpdatedAt = updated.UpdatedAt
	return nil
}

// SetUserPresence sets a user's online flag and last-updated timestamp.
func (s *GormChatStore) SetUserPresence(ctx context.Context, userID string, online bool, at time.Time) error {
	result := s.db.WithContext(ctx).Model(&domain.UserModel{}).
		Where("id = ?", userID).
		Updates(map[string]interface{}{
			"online":     online,
			"updated_at": at,
		})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ErrUserNotFound
	}
	return nil
}

// SetUserLocation writes a user's position and the server-side timestamp.
func (s *GormChatStore) SetUserLocation(ctx context.Context, userID string, lon, lat float64, at time.Time) error {
	result := s.db.WithContext(ctx).Model(&domain.UserModel{}).
		Where("id = ?", userID).
		Updates(map[string]interface{}{
			"longitude":  lon,
			"latitude":   lat,
			"located_at": at,
		})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ErrUserNotFound
	}
	return nil
}

// MarkAllOffline resets every user's online flag.
func (s *GormChatStore) MarkAllOffline(ctx context.Context) error {
	return s.db.WithContext(ctx).Model(&domain.UserModel{}).
		Where("online = ?", true).
		Update("online", false).Error
}

// FindUsersNear returns users within radiusKM of (lon, lat), nearest
// first, excluding excludeUserID. A bounding-box SQL prefilter narrows
// the candidate set before the exact haversine check.
func (s *GormChatStore) FindUsersNear(ctx context.Context, lon, lat, radiusKM float64, excludeUserID string) ([]NearbyUser, error) {
	minLon, maxLon, minLat, maxLat := boundingBox(lon, lat, radiusKM)

	var models []domain.UserModel
	err := s.db.WithContext(ctx).
		Where("id <> ?", excludeUserID).
		Where("longitude IS NOT NULL AND latitude IS NOT NULL").
		Where("longitude BETWEEN ? AND ?", minLon, maxLon).
		Where("latitude BETWEEN ? AND ?", minLat, maxLat).
		Find(&models).Error
	if err != nil {
		return nil, err
	}

	nearby := make([]NearbyUser, 0, len(models))
	for i := range models {
		m := &models[i]
		d := haversineKM(lon, lat, *m.Longitude, *m.Latitude)
		if d > radiusKM {
			continue
		}
		nearby = append(nearby, NearbyUser{User: *m.ToDomain(), DistanceKM: d})
	}

	sort.Slice(nearby, func(i, j int) bool {
		return nearby[i].DistanceKM < nearby[j].DistanceKM
	})
	return nearby, nil
}

// CreateChat creates a two-party chat. The participant pair is stored in
// lexicographic order so the unique pair index dedups (A,B) and (B,A).
func (s *GormChatStore) CreateChat(ctx context.Context, participantA, participantB string) (*domain.Chat, error) {
	a, b := participantA, participantB
	if a > b {
		a, b = b, a
	}

	model := &domain.ChatModel{
		ID:           uuid.New().String(),
		ParticipantA: a,
		ParticipantB: b,
	}
	if err := s.db.WithContext(ctx).Create(model).Error; err != nil {
		if isUniqueViolation(err) {
			return nil, ErrChatExists
		}
		return nil, err
	}
	return model.ToDomain(), nil
}

// FindChatByID retrieves a chat without its message log.
func (s *GormChatStore) FindChatByID(ctx context.Context, id string) (*domain.Chat, error) {
	var model domain.ChatModel
	if err := s.db.WithContext(ctx).First(&model, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrChatNotFound
		}
		return nil, err
	}
	return model.ToDomain(), nil
}

// FindChatWithMessages retrieves a chat and its full ordered message log.
func (s *GormChatStore) FindChatWithMessages(ctx context.Context, id string) (*domain.Chat, error) {
	chat, err := s.FindChatByID(ctx, id)
	if err != nil {
		return nil, err
	}

	var models []domain.MessageModel
	err = s.db.WithContext(ctx).
		Where("chat_id = ?", id).
		Order("seq ASC").
		Find(&models).Error
	if err != nil {
		return nil, err
	}

	chat.Messages = make([]domain.Message, 0, len(models))
	for i := range models {
		chat.Messages = append(chat.Messages, *models[i].ToDomain())
	}
	return chat, nil
}

// FindChatByParticipants retrieves the chat between the two users, if any.
func (s *GormChatStore) FindChatByParticipants(ctx context.Context, userA, userB string) (*domain.Chat, error) {
	a, b := userA, userB
	if a > b {
		a, b = b, a
	}

	var model domain.ChatModel
	err := s.db.WithContext(ctx).
		First(&model, "participant_a = ? AND participant_b = ?", a, b).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrChatNotFound
		}
		return nil, err
	}
	return model.ToDomain(), nil
}

// FindChatsByParticipant returns all chats the user belongs to, most
// recently updated first.
func (s *GormChatStore) FindChatsByParticipant(ctx context.Context, userID string) ([]domain.Chat, error) {
	var models []domain.ChatModel
	err := s.db.WithContext(ctx).
		Where("participant_a = ? OR participant_b = ?", userID, userID).
		Order("updated_at DESC").
		Find(&models).Error
	if err != nil {
		return nil, err
	}

	chats := make([]domain.Chat, 0, len(models))
	for i := range models {
		chats = append(chats, *models[i].ToDomain())
	}
	return chats, nil
}

// AppendMessage appends msg to the chat's log and refreshes the
// lastMessage summary atomically.
func (s *GormChatStore) AppendMessage(ctx context.Context, chatID string, msg *domain.Message) (*domain.Chat, error) {
	msg.ID = uuid.New().String()
	msg.ChatID = chatID
	msg.CreatedAt = time.Now().UTC()

	model := domain.MessageToModel(msg)
	model.Seq = 0 // assigned by the store

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		// Lock the chat row so concurrent appends to the same chat
		// serialize: Seq assignment and the summary update then happen
		// in the same order.
		var chat domain.ChatModel
		if err := forUpdate(tx).First(&chat, "id = ?", chatID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrChatNotFound
			}
			return err
		}

		if err := tx.Create(model).Error; err != nil {
			return err
		}

		at := model.CreatedAt
		return tx.Model(&domain.ChatModel{}).
			Where("id = ?", chatID).
			Updates(map[string]interface{}{
				"last_message_content":   model.Content,
				"last_message_sender_id": model.SenderID,
				"last_message_at":        at,
				"updated_at":             at,
			}).Error
	})
	if err != nil {
		return nil, err
	}

	msg.Seq = model.Seq
	msg.CreatedAt = model.CreatedAt

	return s.FindChatByID(ctx, chatID)
}

// handleUserError converts database-specific errors to store errors.
func (s *GormChatStore) handleUserError(err error) error {
	if isUniqueViolation(err) && strings.Contains(err.Error(), "email") {
		return ErrEmailExists
	}
	return err
}

// forUpdate locks the selected rows until the surrounding transaction
// commits. The sqlite driver drops the clause; sqlite has a single
// writer, so appends serialize there regardless.
func forUpdate(tx *gorm.DB) *gorm.DB {
	return tx.Clauses(clause.Locking{Strength: "UPDATE"})
}

// isUniqueViolation matches the PostgreSQL / SQLite / MySQL wordings of
// a unique-constraint error.
func isUniqueViolation(err error) bool {
	errStr := err.Error()
	return strings.Contains(errStr, "duplicate key") ||
		strings.Contains(errStr, "UNIQUE constraint") ||
		strings.Contains(errStr, "Duplicate entry")
}
