package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"golang.org/x/crypto/bcrypt"

	"github.com/Anselwang99/mateFinder/internal/audit"
	"github.com/Anselwang99/mateFinder/internal/cache"
	"github.com/Anselwang99/mateFinder/internal/domain"
	"github.com/Anselwang99/mateFinder/internal/store"
	"github.com/Anselwang99/mateFinder/pkg/jwt"
	"github.com/Anselwang99/mateFinder/pkg/log"
)

// DefaultNearbyDistanceKM applies when a nearby search omits distance.
const DefaultNearbyDistanceKM = 10

var ErrNoLocation = errors.New("user has no stored location")

type userService struct {
	store    store.ChatStore
	users    cache.UserCache
	tokens   *jwt.Manager
	cacheTTL time.Duration
}

func NewUserService(st store.ChatStore, users cache.UserCache, tokens *jwt.Manager, cacheTTL time.Duration) UserService {
	return &userService{
		store:    st,
		users:    users,
		tokens:   tokens,
		cacheTTL: cacheTTL,
	}
}

func (s *userService) Signup(ctx context.Context, req *domain.SignupRequest) (*domain.AuthResponse, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}

	user := &domain.User{
		Name:         req.Name,
		Email:        req.Email,
		PasswordHash: string(hash),
	}
	if err := s.store.CreateUser(ctx, user); err != nil {
		return nil, err
	}

	audit.Log(ctx, audit.ActionSignup, user.ID, "user signed up")
	return s.issueToken(user)
}

func (s *userService) Login(ctx context.Context, req *domain.LoginRequest) (*domain.AuthResponse, error) {
	user, err := s.store.FindUserByEmail(ctx, req.Email)
	if err != nil {
		if errors.Is(err, store.ErrUserNotFound) {
			audit.LogWithDetail(ctx, audit.ActionLoginFailed, "", req.Email, "unknown email")
			return nil, ErrInvalidPassword
		}
		return nil, fmt.Errorf("find user by email: %w", err)
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(req.Password)); err != nil {
		audit.Log(ctx, audit.ActionLoginFailed, user.ID, "wrong password")
		return nil, ErrInvalidPassword
	}

	audit.Log(ctx, audit.ActionLogin, user.ID, "user logged in")
	return s.issueToken(user)
}

func (s *userService) GetProfile(ctx context.Context, userID string) (*domain.User, error) {
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

func (s *userService) UpdateProfile(ctx context.Context, userID string, req *domain.UpdateProfileRequest) (*domain.User, error) {
	user, err := s.store.FindUserByID(ctx, userID)
	if err != nil {
		return nil, err
	}

	if req.Name != nil {
		user.Name = *req.Name
	}
	if req.Photo != nil {
		user.Photo = *req.Photo
	}
	if req.Bio != nil {
		user.Bio = *req.Bio
	}
	if req.Interests != nil {
		user.Interests = req.Interests
	}

	if err := s.store.UpdateUser(ctx, user); err != nil {
		return nil, fmt.Errorf("update user: %w", err)
	}
	s.invalidate(ctx, userID)

	audit.Log(ctx, audit.ActionUpdateProfile, userID, "profile updated")
	return user, nil
}

func (s *userService) UpdateLocation(ctx context.Context, userID string, longitude, latitude float64) error {
	if err := s.store.SetUserLocation(ctx, userID, longitude, latitude, time.Now()); err != nil {
		return err
	}
	s.invalidate(ctx, userID)

	audit.Log(ctx, audit.ActionUpdateLocation, userID, "location updated")
	return nil
}

// FindNearby searches around the given point, or around the caller's
// stored location when no point is supplied.
func (s *userService) FindNearby(ctx context.Context, userID string, longitude, latitude *float64, distanceKM float64) ([]domain.NearbyUser, error) {
	if distanceKM <= 0 {
		distanceKM = DefaultNearbyDistanceKM
	}

	var lon, lat float64
	if longitude != nil && latitude != nil {
		lon, lat = *longitude, *latitude
	} else {
		me, err := s.store.FindUserByID(ctx, userID)
		if err != nil {
			return nil, err
		}
		if me.Location == nil {
			return nil, ErrNoLocation
		}
		lon, lat = me.Location.Longitude, me.Location.Latitude
	}

	found, err := s.store.FindUsersNear(ctx, lon, lat, distanceKM, userID)
	if err != nil {
		return nil, fmt.Errorf("nearby search: %w", err)
	}

	out := make([]domain.NearbyUser, len(found))
	for i := range found {
		out[i] = domain.NearbyUser{
			UserResponse: found[i].User.ToResponse(),
			DistanceKM:   found[i].DistanceKM,
		}
	}
	return out, nil
}

func (s *userService) issueToken(user *domain.User) (*domain.AuthResponse, error) {
	token, expiresAt, err := s.tokens.Generate(user.ID, user.Name)
	if err != nil {
		return nil, fmt.Errorf("issue token: %w", err)
	}
	return &domain.AuthResponse{
		User:        user.ToResponse(),
		AccessToken: token,
		ExpiresAt:   expiresAt,
	}, nil
}

func (s *userService) invalidate(ctx context.Context, userID string) {
	if err := s.users.Delete(ctx, s.users.BuildKeyByID(userID)); err != nil {
		lg := log.Ctx(ctx)
		lg.Warn().Err(err).Msg("user cache invalidation failed")
	}
}
