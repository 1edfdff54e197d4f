package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"marketBack/internal/models"
	"marketBack/utils"
)

const defaultRefreshTTL = 30 * 24 * time.Hour

// UserStore is the persistence the user service needs.
type UserStore interface {
	CreateUser(ctx context.Context, user models.User) (models.User, error)
	GetUserByID(ctx context.Context, id int64) (models.User, error)
	GetUserByEmail(ctx context.Context, email string) (models.User, error)
	UpdateProfile(ctx context.Context, user models.User) error
	UpdateDeviceToken(ctx context.Context, userID int64, token string) error
	CreateSession(ctx context.Context, s models.RefreshSession) error
	GetSessionByToken(ctx context.Context, token string) (models.RefreshSession, error)
	RevokeSession(ctx context.Context, userID int64, token string) error
	DeleteStaleSessions(ctx context.Context, now time.Time) (int64, error)
}

type UserService struct {
	UserRepo     UserStore
	TokenManager *utils.Manager
	RefreshTTL   time.Duration
	Log          *zap.SugaredLogger
}

// SignUp creates a profile and signs the new user in. The user type defaults
// to customer.
func (s *UserService) SignUp(ctx context.Context, req models.SignUpRequest) (models.User, models.Tokens, error) {
	email := strings.ToLower(strings.TrimSpace(req.Email))
	if email == "" || req.Password == "" || strings.TrimSpace(req.FullName) == "" {
		return models.User{}, models.Tokens{}, models.Invalid("email, password and full name are required")
	}
	userType := req.UserType
	if userType == "" {
		userType = models.RoleCustomer
	}
	if userType != models.RoleCustomer && userType != models.RoleProvider {
		return models.User{}, models.Tokens{}, models.Invalid("user type must be customer or provider")
	}
	if (req.Latitude == nil) != (req.Longitude == nil) {
		return models.User{}, models.Tokens{}, models.Invalid("latitude and longitude must be set together")
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		return models.User{}, models.Tokens{}, fmt.Errorf("hash password: %w", err)
	}

	user, err := s.UserRepo.CreateUser(ctx, models.User{
		Email:        email,
		PasswordHash: string(hash),
		FullName:     strings.TrimSpace(req.FullName),
		Phone:        strings.TrimSpace(req.Phone),
		City:         strings.TrimSpace(req.City),
		UserType:     userType,
		Latitude:     req.Latitude,
		Longitude:    req.Longitude,
	})
	if err != nil {
		return models.User{}, models.Tokens{}, err
	}

	tokens, err := s.issueTokens(ctx, user.ID, user.UserType)
	if err != nil {
		return models.User{}, models.Tokens{}, err
	}
	return user, tokens, nil
}

func (s *UserService) SignIn(ctx context.Context, req models.SignInRequest) (models.Tokens, error) {
	user, err := s.UserRepo.GetUserByEmail(ctx, strings.TrimSpace(req.Email))
	if err != nil {
		if errors.Is(err, models.ErrUserNotFound) {
			return models.Tokens{}, models.ErrInvalidCredentials
		}
		return models.Tokens{}, err
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(req.Password)); err != nil {
		s.Log.Infof("sign in: wrong password for user %d", user.ID)
		return models.Tokens{}, models.ErrInvalidCredentials
	}

	return s.issueTokens(ctx, user.ID, user.UserType)
}

func (s *UserService) issueTokens(ctx context.Context, userID int64, role string) (models.Tokens, error) {
	access, err := s.TokenManager.NewAccessToken(userID, role)
	if err != nil {
		return models.Tokens{}, fmt.Errorf("sign access token: %w", err)
	}
	refresh, err := s.TokenManager.NewRefreshToken()
	if err != nil {
		return models.Tokens{}, fmt.Errorf("refresh token: %w", err)
	}

	ttl := s.RefreshTTL
	if ttl <= 0 {
		ttl = defaultRefreshTTL
	}
	err = s.UserRepo.CreateSession(ctx, models.RefreshSession{
		UserID:       userID,
		Role:         role,
		RefreshToken: refresh,
		ExpiresAt:    time.Now().Add(ttl),
	})
	if err != nil {
		return models.Tokens{}, fmt.Errorf("create session: %w", err)
	}

	return models.Tokens{AccessToken: access, RefreshToken: refresh}, nil
}

// Refresh issues a new access token for a live refresh token. The refresh
// token itself is returned unchanged.
func (s *UserService) Refresh(ctx context.Context, refreshToken string) (models.Tokens, models.Session, error) {
	if refreshToken == "" {
		return models.Tokens{}, models.Session{}, models.ErrInvalidRefreshToken
	}
	sess, err := s.UserRepo.GetSessionByToken(ctx, refreshToken)
	if err != nil {
		return models.Tokens{}, models.Session{}, err
	}
	if !sess.ExpiresAt.After(time.Now()) {
		return models.Tokens{}, models.Session{}, models.ErrInvalidRefreshToken
	}

	access, err := s.TokenManager.NewAccessToken(sess.UserID, sess.Role)
	if err != nil {
		return models.Tokens{}, models.Session{}, fmt.Errorf("sign access token: %w", err)
	}
	return models.Tokens{AccessToken: access, RefreshToken: refreshToken},
		models.Session{UserID: sess.UserID, Role: sess.Role}, nil
}

func (s *UserService) SignOut(ctx context.Context, session models.Session, refreshToken string) error {
	if !session.Authenticated() {
		return models.ErrUnauthorized
	}
	return s.UserRepo.RevokeSession(ctx, session.UserID, refreshToken)
}

func (s *UserService) Me(ctx context.Context, session models.Session) (models.User, error) {
	if !session.Authenticated() {
		return models.User{}, models.ErrUnauthorized
	}
	return s.UserRepo.GetUserByID(ctx, session.UserID)
}

// UpdateProfile applies the non-nil fields of req.
func (s *UserService) UpdateProfile(ctx context.Context, session models.Session, req models.UpdateProfileRequest) (models.User, error) {
	user, err := s.Me(ctx, session)
	if err != nil {
		return models.User{}, err
	}
	if (req.Latitude == nil) != (req.Longitude == nil) {
		return models.User{}, models.Invalid("latitude and longitude must be set together")
	}

	if req.FullName != nil {
		name := strings.TrimSpace(*req.FullName)
		if name == "" {
			return models.User{}, models.Invalid("full name cannot be empty")
		}
		user.FullName = name
	}
	if req.Phone != nil {
		user.Phone = strings.TrimSpace(*req.Phone)
	}
	if req.City != nil {
		user.City = strings.TrimSpace(*req.City)
	}
	if req.Latitude != nil {
		user.Latitude, user.Longitude = req.Latitude, req.Longitude
	}

	if err := s.UserRepo.UpdateProfile(ctx, user); err != nil {
		return models.User{}, err
	}
	return user, nil
}

func (s *UserService) UpdateDeviceToken(ctx context.Context, session models.Session, token string) error {
	if !session.Authenticated() {
		return models.ErrUnauthorized
	}
	return s.UserRepo.UpdateDeviceToken(ctx, session.UserID, strings.TrimSpace(token))
}

// CleanupSessions deletes expired and revoked refresh sessions.
func (s *UserService) CleanupSessions(ctx context.Context) (int64, error) {
	return s.UserRepo.DeleteStaleSessions(ctx, time.Now())
}
