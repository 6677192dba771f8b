package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/Anselwang99/mateFinder/internal/domain"
	"github.com/Anselwang99/mateFinder/internal/media"
	"github.com/Anselwang99/mateFinder/internal/service"
	"github.com/Anselwang99/mateFinder/pkg/jwt"
)

type stubUserService struct {
	signupResp  *domain.AuthResponse
	signupErr   error
	loginErr    error
	profile     *domain.User
	nearby      []domain.NearbyUser
	nearbyErr   error
	lastLon     *float64
	lastLat     *float64
	lastDist    float64
	locationErr error
}

func (s *stubUserService) Signup(ctx context.Context, req *domain.SignupRequest) (*domain.AuthResponse, error) {
	return s.signupResp, s.signupErr
}

func (s *stubUserService) Login(ctx context.Context, req *domain.LoginRequest) (*domain.AuthResponse, error) {
	if s.loginErr != nil {
		return nil, s.loginErr
	}
	return s.signupResp, nil
}

func (s *stubUserService) GetProfile(ctx context.Context, userID string) (*domain.User, error) {
	return s.profile, nil
}

func (s *stubUserService) UpdateProfile(ctx context.Context, userID string, req *domain.UpdateProfileRequest) (*domain.User, error) {
	return s.profile, nil
}

func (s *stubUserService) UpdateLocation(ctx context.Context, userID string, longitude, latitude float64) error {
	return s.locationErr
}

func (s *stubUserService) FindNearby(ctx context.Context, userID string, longitude, latitude *float64, distanceKM float64) ([]domain.NearbyUser, error) {
	s.lastLon, s.lastLat, s.lastDist = longitude, latitude, distanceKM
	return s.nearby, s.nearbyErr
}

type stubChatService struct {
	sendErr error
	sent    *domain.Message
}

func (s *stubChatService) Authenticate(ctx context.Context, token string) (*domain.User, error) {
	return nil, nil
}
func (s *stubChatService) HandleConnect(ctx context.Context, c service.Conn) error    { return nil }
func (s *stubChatService) HandleDisconnect(ctx context.Context, c service.Conn) error { return nil }
func (s *stubChatService) HandleJoinChat(ctx context.Context, c service.Conn, chatID string) error {
	return nil
}
func (s *stubChatService) HandleSendMessage(ctx context.Context, c service.Conn, chatID, content string) error {
	return nil
}
func (s *stubChatService) HandleSetTyping(ctx context.Context, c service.Conn, chatID string, isTyping bool) error {
	return nil
}
func (s *stubChatService) HandleUpdateLocation(ctx context.Context, c service.Conn, longitude, latitude *float64) error {
	return nil
}

func (s *stubChatService) SendMessage(ctx context.Context, senderID, chatID, content string, m *domain.Media) (*domain.Message, error) {
	if s.sendErr != nil {
		return nil, s.sendErr
	}
	s.sent = &domain.Message{ID: "msg-1", ChatID: chatID, SenderID: senderID, Content: content, Media: m}
	return s.sent, nil
}

func (s *stubChatService) CreateChat(ctx context.Context, creatorID, receiverID string) (*domain.Chat, bool, error) {
	return &domain.Chat{ID: "chat-1", Participants: [2]string{creatorID, receiverID}}, true, nil
}

func (s *stubChatService) GetChat(ctx context.Context, userID, chatID string) (*domain.Chat, error) {
	return nil, service.ErrNotParticipant
}

func (s *stubChatService) ListChats(ctx context.Context, userID string) ([]*domain.Chat, error) {
	return nil, nil
}

func newTestRouter(t *testing.T, users *stubUserService, chats *stubChatService) (*gin.Engine, string) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	tokens, err := jwt.NewManager("test-secret", time.Hour, "matefinder")
	if err != nil {
		t.Fatalf("jwt manager: %v", err)
	}
	token, _, err := tokens.Generate("u1", "Alice")
	if err != nil {
		t.Fatalf("generate token: %v", err)
	}

	h := NewHandler(users, chats, media.NewService(nil, media.DefaultConfig()), NewAuthMiddleware(tokens))
	r := gin.New()
	h.RegisterRoutes(r)
	return r, token
}

func do(r *gin.Engine, method, path, token, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestHealth(t *testing.T) {
	r, _ := newTestRouter(t, &stubUserService{}, &stubChatService{})
	w := do(r, http.MethodGet, "/health", "", "")
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
}

func TestProtectedRoutesRequireToken(t *testing.T) {
	r, token := newTestRouter(t, &stubUserService{profile: &domain.User{ID: "u1", Name: "Alice"}}, &stubChatService{})

	if w := do(r, http.MethodGet, "/api/v1/users/me", "", ""); w.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 without token, got %d", w.Code)
	}
	if w := do(r, http.MethodGet, "/api/v1/users/me", "garbage", ""); w.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 with bad token, got %d", w.Code)
	}
	if w := do(r, http.MethodGet, "/api/v1/users/me", token, ""); w.Code != http.StatusOK {
		t.Fatalf("expected 200 with token, got %d: %s", w.Code, w.Body.String())
	}
}

func TestSignupValidation(t *testing.T) {
	users := &stubUserService{signupResp: &domain.AuthResponse{AccessToken: "t"}}
	r, _ := newTestRouter(t, users, &stubChatService{})

	// Short password fails binding before the service is reached.
	w := do(r, http.MethodPost, "/api/v1/auth/signup", "", `{"name":"Al","email":"a@example.com","password":"short"}`)
	if w.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", w.Code)
	}

	w = do(r, http.MethodPost, "/api/v1/auth/signup", "", `{"name":"Alice","email":"a@example.com","password":"long enough"}`)
	if w.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", w.Code, w.Body.String())
	}

	var envelope struct {
		Success bool `json:"success"`
		Data    struct {
			AccessToken string `json:"access_token"`
		} `json:"data"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &envelope); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if !envelope.Success || envelope.Data.AccessToken != "t" {
		t.Fatalf("unexpected envelope: %s", w.Body.String())
	}
}

func TestSendMessageMapsForbidden(t *testing.T) {
	chats := &stubChatService{sendErr: service.ErrNotParticipant}
	r, token := newTestRouter(t, &stubUserService{}, chats)

	w := do(r, http.MethodPost, "/api/v1/chats/c1/messages", token, `{"content":"hi"}`)
	if w.Code != http.StatusForbidden {
		t.Fatalf("expected 403, got %d: %s", w.Code, w.Body.String())
	}
}

func TestGetChatMapsForbidden(t *testing.T) {
	r, token := newTestRouter(t, &stubUserService{}, &stubChatService{})
	w := do(r, http.MethodGet, "/api/v1/chats/c1", token, "")
	if w.Code != http.StatusForbidden {
		t.Fatalf("expected 403, got %d", w.Code)
	}
}

func TestUpdateLocationRequiresBothCoords(t *testing.T) {
	r, token := newTestRouter(t, &stubUserService{}, &stubChatService{})

	if w := do(r, http.MethodPatch, "/api/v1/locations", token, `{"longitude":13.4}`); w.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for missing latitude, got %d", w.Code)
	}
	if w := do(r, http.MethodPatch, "/api/v1/locations", token, `{"longitude":13.4,"latitude":52.5}`); w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", w.Code, w.Body.String())
	}
	// Zero is a valid coordinate, not a missing one.
	if w := do(r, http.MethodPatch, "/api/v1/locations", token, `{"longitude":0,"latitude":0}`); w.Code != http.StatusOK {
		t.Fatalf("expected 200 for zero coords, got %d: %s", w.Code, w.Body.String())
	}
}

func TestFindNearbyParsesQuery(t *testing.T) {
	users := &stubUserService{}
	r, token := newTestRouter(t, users, &stubChatService{})

	w := do(r, http.MethodGet, "/api/v1/locations/nearby?longitude=13.4&latitude=52.5&distance=3", token, "")
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", w.Code, w.Body.String())
	}
	if users.lastLon == nil || *users.lastLon != 13.4 || users.lastLat == nil || *users.lastLat != 52.5 {
		t.Fatalf("coords not parsed: %v %v", users.lastLon, users.lastLat)
	}
	if users.lastDist != 3 {
		t.Fatalf("distance not parsed: %f", users.lastDist)
	}

	// Omitted coordinates fall through as nil for the service to resolve.
	do(r, http.MethodGet, "/api/v1/locations/nearby", token, "")
	if users.lastLon != nil || users.lastLat != nil {
		t.Fatal("expected nil coords when not supplied")
	}
}
