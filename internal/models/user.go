package models

import (
	"time"

	"github.com/golang-jwt/jwt"
)

// User types.
const (
	RoleCustomer = "customer"
	RoleProvider = "provider"
	RoleAdmin    = "admin"
)

type User struct {
	ID           int64     `json:"id"`
	Email        string    `json:"email"`
	PasswordHash string    `json:"-"`
	FullName     string    `json:"full_name"`
	Phone        string    `json:"phone,omitempty"`
	City         string    `json:"city,omitempty"`
	UserType     string    `json:"user_type"`
	Latitude     *float64  `json:"latitude,omitempty"`
	Longitude    *float64  `json:"longitude,omitempty"`
	FCMToken     string    `json:"-"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// Session is the authenticated identity of the current request. It is built
// by the auth middleware and passed explicitly to services.
type Session struct {
	UserID int64  `json:"user_id"`
	Role   string `json:"role"`
}

func (s Session) Authenticated() bool { return s.UserID > 0 }

func (s Session) Is(role string) bool { return s.Role == role || s.Role == RoleAdmin }

// RefreshSession is a stored refresh token.
type RefreshSession struct {
	ID           int64      `json:"id"`
	UserID       int64      `json:"user_id"`
	Role         string     `json:"role"`
	RefreshToken string     `json:"refresh_token"`
	ExpiresAt    time.Time  `json:"expires_at"`
	RevokedAt    *time.Time `json:"revoked_at,omitempty"`
}

type Claims struct {
	UserID int64  `json:"user_id"`
	Role   string `json:"role"`
	jwt.StandardClaims
}

type Tokens struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
}

type SignUpRequest struct {
	Email     string   `json:"email" validate:"required,email"`
	Password  string   `json:"password" validate:"required,min=6"`
	FullName  string   `json:"full_name" validate:"required"`
	Phone     string   `json:"phone"`
	City      string   `json:"city"`
	UserType  string   `json:"user_type" validate:"omitempty,oneof=customer provider"`
	Latitude  *float64 `json:"latitude" validate:"omitempty,latitude"`
	Longitude *float64 `json:"longitude" validate:"omitempty,longitude"`
}

type SignInRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

type UpdateProfileRequest struct {
	FullName  *string  `json:"full_name"`
	Phone     *string  `json:"phone"`
	City      *string  `json:"city"`
	Latitude  *float64 `json:"latitude" validate:"omitempty,latitude"`
	Longitude *float64 `json:"longitude" validate:"omitempty,longitude"`
}
