package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/Anselwang99/mateFinder/internal/cache"
	"github.com/Anselwang99/mateFinder/internal/domain"
	"github.com/Anselwang99/mateFinder/internal/store"
	"github.com/Anselwang99/mateFinder/pkg/jwt"
)

func newUserFixture(t *testing.T) (*fakeStore, UserService, *jwt.Manager) {
	t.Helper()
	tokens, err := jwt.NewManager("test-secret", time.Hour, "matefinder")
	if err != nil {
		t.Fatalf("jwt manager: %v", err)
	}
	st := newFakeStore()
	svc := NewUserService(st, cache.NewNoopUserCache(), tokens, time.Minute)
	return st, svc, tokens
}

func TestSignupAndLogin(t *testing.T) {
	_, svc, tokens := newUserFixture(t)
	ctx := context.Background()

	resp, err := svc.Signup(ctx, &domain.SignupRequest{
		Name:     "Alice",
		Email:    "alice@example.com",
		Password: "correct horse",
	})
	if err != nil {
		t.Fatalf("signup: %v", err)
	}
	if resp.AccessToken == "" || resp.User.ID == "" {
		t.Fatalf("incomplete auth response: %+v", resp)
	}

	claims, err := tokens.Verify(resp.AccessToken)
	if err != nil {
		t.Fatalf("issued token must verify: %v", err)
	}
	if claims.UserID != resp.User.ID {
		t.Fatalf("token subject mismatch: %s vs %s", claims.UserID, resp.User.ID)
	}

	logged, err := svc.Login(ctx, &domain.LoginRequest{Email: "alice@example.com", Password: "correct horse"})
	if err != nil {
		t.Fatalf("login: %v", err)
	}
	if logged.User.ID != resp.User.ID {
		t.Fatalf("login resolved wrong user: %s", logged.User.ID)
	}
}

func TestLoginRejectsBadCredentials(t *testing.T) {
	_, svc, _ := newUserFixture(t)
	ctx := context.Background()

	if _, err := svc.Signup(ctx, &domain.SignupRequest{Name: "Alice", Email: "alice@example.com", Password: "correct horse"}); err != nil {
		t.Fatalf("signup: %v", err)
	}

	if _, err := svc.Login(ctx, &domain.LoginRequest{Email: "alice@example.com", Password: "wrong"}); !errors.Is(err, ErrInvalidPassword) {
		t.Fatalf("expected ErrInvalidPassword, got %v", err)
	}
	// Unknown email gets the same answer as a wrong password.
	if _, err := svc.Login(ctx, &domain.LoginRequest{Email: "nobody@example.com", Password: "x"}); !errors.Is(err, ErrInvalidPassword) {
		t.Fatalf("expected ErrInvalidPassword, got %v", err)
	}
}

func TestSignupDuplicateEmail(t *testing.T) {
	_, svc, _ := newUserFixture(t)
	ctx := context.Background()

	req := &domain.SignupRequest{Name: "Alice", Email: "alice@example.com", Password: "correct horse"}
	if _, err := svc.Signup(ctx, req); err != nil {
		t.Fatalf("signup: %v", err)
	}
	if _, err := svc.Signup(ctx, req); !errors.Is(err, store.ErrEmailExists) {
		t.Fatalf("expected ErrEmailExists, got %v", err)
	}
}

func TestUpdateProfilePartial(t *testing.T) {
	st, svc, _ := newUserFixture(t)
	ctx := context.Background()

	u := st.addUser("u1", "Alice")
	bio := "hello"
	updated, err := svc.UpdateProfile(ctx, u.ID, &domain.UpdateProfileRequest{Bio: &bio})
	if err != nil {
		t.Fatalf("update: %v", err)
	}
	if updated.Bio != "hello" {
		t.Fatalf("bio not applied: %q", updated.Bio)
	}
	if updated.Name != "Alice" {
		t.Fatalf("nil fields must stay unchanged, name=%q", updated.Name)
	}
}

func TestFindNearbyFallsBackToStoredLocation(t *testing.T) {
	st, svc, _ := newUserFixture(t)
	ctx := context.Background()

	st.addUser("u1", "Alice")
	if err := svc.UpdateLocation(ctx, "u1", 13.4, 52.5); err != nil {
		t.Fatalf("update location: %v", err)
	}

	bob := st.addUser("u2", "Bob")
	st.nearby = []store.NearbyUser{{User: *bob, DistanceKM: 0.4}}

	got, err := svc.FindNearby(ctx, "u1", nil, nil, 0)
	if err != nil {
		t.Fatalf("nearby: %v", err)
	}
	if len(got) != 1 || got[0].ID != "u2" {
		t.Fatalf("unexpected result: %+v", got)
	}
	if got[0].DistanceKM != 0.4 {
		t.Fatalf("distance lost: %f", got[0].DistanceKM)
	}

	q := st.lastNearbyQuery
	if q.Lon != 13.4 || q.Lat != 52.5 {
		t.Fatalf("expected stored location as search point, got %+v", q)
	}
	if q.RadiusKM != DefaultNearbyDistanceKM {
		t.Fatalf("expected default radius, got %f", q.RadiusKM)
	}
	if q.Exclude != "u1" {
		t.Fatalf("caller must be excluded, got %q", q.Exclude)
	}
}

func TestFindNearbyWithoutAnyLocation(t *testing.T) {
	st, svc, _ := newUserFixture(t)
	st.addUser("u1", "Alice")

	if _, err := svc.FindNearby(context.Background(), "u1", nil, nil, 5); !errors.Is(err, ErrNoLocation) {
		t.Fatalf("expected ErrNoLocation, got %v", err)
	}
}
