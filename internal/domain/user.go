package domain

import (
	"time"
)

// Location is a user's last known position.
type Location struct {
	Longitude float64   `json:"longitude"`
	Latitude  float64   `json:"latitude"`
	UpdatedAt time.Time `json:"updated_at"`
}

// User represents a mateFinder user.
type User struct {
	ID           string    `json:"id"`
	Name         string    `json:"name"`
	Email        string    `json:"email"`
	PasswordHash string    `json:"-"`
	Photo        string    `json:"photo,omitempty"`
	Bio          string    `json:"bio,omitempty"`
	Interests    []string  `json:"interests,omitempty"`
	Online       bool      `json:"online"`
	Location     *Location `json:"location,omitempty"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// SignupRequest represents a registration request.
type SignupRequest struct {
	Name     string `json:"name" binding:"required,min=2,max=100"`
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required,min=8"`
}

// LoginRequest represents a login request.
type LoginRequest struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required"`
}

// UpdateProfileRequest represents a profile update; nil fields are unchanged.
type UpdateProfileRequest struct {
	Name      *string  `json:"name"`
	Photo     *string  `json:"photo"`
	Bio       *string  `json:"bio"`
	Interests []string `json:"interests"`
}

// UpdateLocationRequest carries explicit coordinates. Pointers distinguish
// a missing coordinate from a zero one (0,0 is a valid position).
type UpdateLocationRequest struct {
	Longitude *float64 `json:"longitude" binding:"required"`
	Latitude  *float64 `json:"latitude" binding:"required"`
}

// AuthResponse is returned after signup or login.
type AuthResponse struct {
	User        UserResponse `json:"user"`
	AccessToken string       `json:"access_token"`
	ExpiresAt   int64        `json:"expires_at"`
}

// UserResponse represents a user in API responses.
type UserResponse struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Photo     string    `json:"photo,omitempty"`
	Bio       string    `json:"bio,omitempty"`
	Interests []string  `json:"interests,omitempty"`
	Online    bool      `json:"online"`
	Location  *Location `json:"location,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

// NearbyUser is a UserResponse annotated with the distance from the
// search point.
type NearbyUser struct {
	UserResponse
	DistanceKM float64 `json:"distance_km"`
}

// ToResponse converts User to UserResponse.
func (u *User) ToResponse() UserResponse {
	return UserResponse{
		ID:        u.ID,
		Name:      u.Name,
		Photo:     u.Photo,
		Bio:       u.Bio,
		Interests: u.Interests,
		Online:    u.Online,
		Location:  u.Location,
		CreatedAt: u.CreatedAt,
	}
}
