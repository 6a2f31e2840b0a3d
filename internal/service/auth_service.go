package service

import (
	"context"
	"errors"
	"time"

	"thesis-portal/internal/auth"
	"thesis-portal/internal/models"
	"thesis-portal/internal/repository"
	"thesis-portal/pkg/validator"
)

// LoginResult is returned after a successful login
type LoginResult struct {
	Token     string       `json:"token"`
	ExpiresAt time.Time    `json:"expires_at"`
	User      *models.User `json:"user"`
}

// NewUser describes an account created by the seeding tool
type NewUser struct {
	Email              string      `json:"email" validate:"required,email"`
	Password           string      `json:"password" validate:"required,min=8"`
	FirstName          string      `json:"first_name" validate:"required,notblank,max=100"`
	LastName           string      `json:"last_name" validate:"required,notblank,max=100"`
	Role               models.Role `json:"role" validate:"required,oneof=student professor secretary"`
	RegistrationNumber *string     `json:"registration_number" validate:"omitempty,max=20"`
}

// AuthService handles login sessions
type AuthService struct {
	users    *repository.UserRepository
	sessions *repository.SessionRepository
	authSvc  *auth.Service
}

// NewAuthService creates a new auth service
func NewAuthService(users *repository.UserRepository, sessions *repository.SessionRepository, authSvc *auth.Service) *AuthService {
	return &AuthService{users: users, sessions: sessions, authSvc: authSvc}
}

// CreateUser creates an account with a hashed password
func (s *AuthService) CreateUser(ctx context.Context, input NewUser) (*models.User, error) {
	input.Email = validator.SanitizeEmail(input.Email)
	input.FirstName = validator.SanitizeString(input.FirstName)
	input.LastName = validator.SanitizeString(input.LastName)
	if err := validator.ValidateStruct(&input); err != nil {
		return nil, validationError(err)
	}

	hash, err := s.authSvc.HashPassword(input.Password)
	if err != nil {
		return nil, persistence("hash password", err)
	}

	user := &models.User{
		Email:              input.Email,
		PasswordHash:       hash,
		FirstName:          input.FirstName,
		LastName:           input.LastName,
		Role:               input.Role,
		RegistrationNumber: input.RegistrationNumber,
	}
	err = s.users.Create(ctx, user)
	if errors.Is(err, repository.ErrUserExists) {
		return nil, conflict(CodeUserExists, "a user with this email already exists")
	}
	if err != nil {
		return nil, persistence("create user", err)
	}
	return user, nil
}

// Login verifies the credentials and opens a session
func (s *AuthService) Login(ctx context.Context, req models.LoginRequest) (*LoginResult, error) {
	req.Email = validator.SanitizeEmail(req.Email)
	if err := validator.ValidateStruct(&req); err != nil {
		return nil, validationError(err)
	}

	user, err := s.users.GetByEmail(ctx, req.Email)
	if errors.Is(err, repository.ErrUserNotFound) {
		return nil, forbidden(CodeInvalidCredentials, "invalid email or password")
	}
	if err != nil {
		return nil, persistence("get user", err)
	}
	if err := s.authSvc.VerifyPassword(user.PasswordHash, req.Password); err != nil {
		return nil, forbidden(CodeInvalidCredentials, "invalid email or password")
	}

	token, jti, expiresAt, err := s.authSvc.GenerateToken(user.ID, user.Role)
	if err != nil {
		return nil, persistence("generate token", err)
	}
	session := &models.Session{UserID: user.ID, JTI: jti, ExpiresAt: expiresAt}
	if err := s.sessions.Create(ctx, session); err != nil {
		return nil, persistence("create session", err)
	}

	return &LoginResult{
		Token:     token,
		ExpiresAt: expiresAt,
		User:      user,
	}, nil
}

// Authenticate resolves a bearer token to the actor behind it. The token must
// be valid and its session must not have been closed by a logout.
func (s *AuthService) Authenticate(ctx context.Context, token string) (models.Actor, error) {
	claims, err := s.authSvc.ValidateToken(token)
	if err != nil {
		return models.Actor{}, forbidden(CodeInvalidCredentials, "invalid or expired token")
	}
	session, err := s.sessions.GetByJTI(ctx, claims.ID)
	if errors.Is(err, repository.ErrSessionNotFound) {
		return models.Actor{}, forbidden(CodeInvalidCredentials, "session has ended")
	}
	if err != nil {
		return models.Actor{}, persistence("get session", err)
	}
	if session.UserID != claims.UserID {
		return models.Actor{}, forbidden(CodeInvalidCredentials, "invalid or expired token")
	}
	return models.Actor{ID: claims.UserID, Role: claims.Role}, nil
}

// Logout closes the session of token. Expired tokens are accepted.
func (s *AuthService) Logout(ctx context.Context, token string) error {
	jti, err := s.authSvc.ExtractJTI(token)
	if err != nil {
		return forbidden(CodeInvalidCredentials, "invalid token")
	}
	err = s.sessions.DeleteByJTI(ctx, jti)
	if err != nil && !errors.Is(err, repository.ErrSessionNotFound) {
		return persistence("delete session", err)
	}
	return nil
}

// GetUser returns the account of the actor
func (s *AuthService) GetUser(ctx context.Context, actor models.Actor) (*models.User, error) {
	user, err := s.users.GetByID(ctx, actor.ID)
	if errors.Is(err, repository.ErrUserNotFound) {
		return nil, notFound(CodeUserNotFound, "user not found")
	}
	if err != nil {
		return nil, persistence("get user", err)
	}
	return user, nil
}

// CleanupExpiredSessions removes sessions whose tokens have expired
func (s *AuthService) CleanupExpiredSessions(ctx context.Context) (int64, error) {
	n, err := s.sessions.DeleteExpired(ctx)
	if err != nil {
		return 0, persistence("delete expired sessions", err)
	}
	return n, nil
}
