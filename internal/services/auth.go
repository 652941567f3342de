package services

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	"gorm.io/gorm"

	"contactos/internal/domain"
	"contactos/internal/metrics"
	"contactos/internal/util"
	apperrors "contactos/pkg/errors"
)

// LoginResult is returned by a successful login
type LoginResult struct {
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type"`
}

// CreateUserParams describes a new staff account
type CreateUserParams struct {
	Username string
	Email    string
	Password string
	FullName string
	IsAdmin  bool
}

// AuthService authenticates admin staff
type AuthService struct {
	db     *gorm.DB
	tokens *util.TokenIssuer
}

// NewAuthService creates a new auth service
func NewAuthService(db *gorm.DB, tokens *util.TokenIssuer) *AuthService {
	return &AuthService{db: db, tokens: tokens}
}

// Login checks the credentials of a staff account and issues a bearer token
func (s *AuthService) Login(ctx context.Context, username, password string) (*LoginResult, error) {
	username = strings.TrimSpace(username)
	password = strings.TrimSpace(password)

	log.Printf("[AUTH] Login attempt for user: %s", username)
	invalid := apperrors.New(apperrors.ErrCodeUnauthorized, "incorrect username or password")

	var user domain.User
	if err := s.db.WithContext(ctx).Where("username = ?", username).First(&user).Error; err != nil {
		metrics.RecordAuthAttempt(false)
		if errors.Is(err, gorm.ErrRecordNotFound) {
			log.Printf("[AUTH] Login failed: user '%s' not found", username)
			return nil, invalid
		}
		log.Printf("[AUTH] Login failed: database error for user '%s': %v", username, err)
		return nil, fmt.Errorf("failed to load user: %w", err)
	}

	if !util.CheckPasswordHash(password, user.HashedPassword) {
		log.Printf("[AUTH] Login failed: invalid password for user '%s'", username)
		metrics.RecordAuthAttempt(false)
		return nil, invalid
	}

	if !user.CanAccessAdmin() {
		log.Printf("[AUTH] Login failed: user '%s' is inactive or not staff", username)
		metrics.RecordAuthAttempt(false)
		return nil, apperrors.New(apperrors.ErrCodeForbidden, "account cannot access the admin site")
	}

	now := time.Now().UTC()
	if err := s.db.WithContext(ctx).Model(&user).Update("last_login", now).Error; err != nil {
		log.Printf("[AUTH] Warning: failed to record last login for '%s': %v", username, err)
	}

	token, err := s.tokens.GenerateToken(&user)
	if err != nil {
		log.Printf("[AUTH] Login failed: token generation error for user '%s': %v", username, err)
		return nil, fmt.Errorf("failed to generate token: %w", err)
	}

	log.Printf("[AUTH] Login successful for user '%s' (id=%d, admin=%v, staff=%v)", username, user.ID, user.IsAdmin, user.IsStaff)
	metrics.RecordAuthAttempt(true)

	return &LoginResult{
		AccessToken: token,
		TokenType:   "bearer",
	}, nil
}

// Authenticate resolves a bearer token to an active staff user
func (s *AuthService) Authenticate(ctx context.Context, token string) (*domain.User, error) {
	claims, err := s.tokens.ValidateToken(token)
	if err != nil {
		return nil, apperrors.Wrap(apperrors.ErrCodeUnauthorized, "invalid or expired token", err)
	}

	var user domain.User
	if err := s.db.WithContext(ctx).Where("username = ?", claims.Username).First(&user).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.New(apperrors.ErrCodeUnauthorized, "user not found")
		}
		return nil, fmt.Errorf("failed to get user: %w", err)
	}

	if !user.IsActive {
		return nil, apperrors.New(apperrors.ErrCodeUnauthorized, "user account is inactive")
	}
	if !user.CanAccessAdmin() {
		return nil, apperrors.New(apperrors.ErrCodeForbidden, "staff access required")
	}
	return &user, nil
}

// CreateUser creates a staff account, or a superuser when IsAdmin is set
func (s *AuthService) CreateUser(ctx context.Context, p CreateUserParams) (*domain.User, error) {
	username := strings.TrimSpace(p.Username)
	email := strings.ToLower(strings.TrimSpace(p.Email))

	fields := apperrors.FieldErrors{}
	if len(username) < 3 {
		fields["username"] = "username must be at least 3 characters"
	}
	if !emailRegex.MatchString(email) {
		fields["email"] = "invalid email address"
	}
	if len(p.Password) < 8 {
		fields["password"] = "password must be at least 8 characters"
	}
	if len(fields) > 0 {
		return nil, apperrors.Validation(fields)
	}

	var existing int64
	if err := s.db.WithContext(ctx).Model(&domain.User{}).
		Where("username = ? OR email = ?", username, email).Count(&existing).Error; err != nil {
		return nil, fmt.Errorf("failed to check existing users: %w", err)
	}
	if existing > 0 {
		return nil, apperrors.Validation(apperrors.FieldErrors{"username": "a user with that username or email already exists"})
	}

	hashed, err := util.HashPassword(p.Password)
	if err != nil {
		return nil, err
	}

	user := &domain.User{
		Username:       username,
		Email:          email,
		HashedPassword: hashed,
		IsActive:       true,
		IsStaff:        true,
		IsAdmin:        p.IsAdmin,
	}
	if name := strings.TrimSpace(p.FullName); name != "" {
		user.FullName = &name
	}

	if err := s.db.WithContext(ctx).Create(user).Error; err != nil {
		return nil, fmt.Errorf("failed to create user: %w", err)
	}

	log.Printf("[AUTH] Created user '%s' (id=%d, admin=%v)", user.Username, user.ID, user.IsAdmin)
	return user, nil
}
