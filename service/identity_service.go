package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"civicreport-backend/location"
	"civicreport-backend/models"
	"civicreport-backend/repository"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
)

const (
	minUsernameLength = 4
	minMobileLength   = 8
	minPasswordLength = 6
)

// TokenIssuer signs session tokens for authenticated users
type TokenIssuer interface {
	Issue(userID uuid.UUID) (string, error)
}

// IdentityService handles registration, login, passwords and location assignment
type IdentityService struct {
	users      repository.UserStore
	tokens     TokenIssuer
	bcryptCost int
}

// IdentityServiceOption is a functional option for IdentityService
type IdentityServiceOption func(*IdentityService)

// IdentityWithUserStore sets the user store
func IdentityWithUserStore(store repository.UserStore) IdentityServiceOption {
	return func(s *IdentityService) {
		s.users = store
	}
}

// IdentityWithTokenIssuer sets the issuer used at login
func IdentityWithTokenIssuer(t TokenIssuer) IdentityServiceOption {
	return func(s *IdentityService) {
		s.tokens = t
	}
}

// IdentityWithBcryptCost overrides the password hashing cost
func IdentityWithBcryptCost(cost int) IdentityServiceOption {
	return func(s *IdentityService) {
		s.bcryptCost = cost
	}
}

// NewIdentityService creates a new identity service
func NewIdentityService(opts ...IdentityServiceOption) *IdentityService {
	s := &IdentityService{bcryptCost: bcrypt.DefaultCost}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// RegisterRequest represents a request to create an account
type RegisterRequest struct {
	Username     string
	MobileNumber string
	Password     string
}

// RegisterResult represents the result of creating an account
type RegisterResult struct {
	User *models.User
}

// Register creates a new citizen account
func (s *IdentityService) Register(ctx context.Context, req RegisterRequest) (*RegisterResult, error) {
	if s.users == nil {
		return nil, errors.New("user store not set")
	}

	username := strings.TrimSpace(req.Username)
	mobile := strings.TrimSpace(req.MobileNumber)
	if len(username) < minUsernameLength {
		return nil, validationError("username must be at least %d characters", minUsernameLength)
	}
	if len(mobile) < minMobileLength {
		return nil, validationError("mobile number must be at least %d characters", minMobileLength)
	}
	if len(req.Password) < minPasswordLength {
		return nil, validationError("password must be at least %d characters", minPasswordLength)
	}

	hash, err := s.hash(req.Password)
	if err != nil {
		return nil, err
	}

	user := &models.User{
		Username:     username,
		MobileNumber: mobile,
		PasswordHash: hash,
	}
	if err := s.users.Create(ctx, user); err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			return nil, ErrUsernameTaken
		}
		return nil, err
	}

	return &RegisterResult{User: user}, nil
}

// LoginRequest represents a login attempt
type LoginRequest struct {
	Username string
	Password string
}

// LoginResult carries the session token and the authenticated user
type LoginResult struct {
	Token string
	User  *models.User
}

// Login checks credentials and issues a session token
func (s *IdentityService) Login(ctx context.Context, req LoginRequest) (*LoginResult, error) {
	if s.users == nil {
		return nil, errors.New("user store not set")
	}
	if s.tokens == nil {
		return nil, errors.New("token issuer not set")
	}

	user, err := s.users.GetByUsername(ctx, strings.TrimSpace(req.Username))
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrInvalidCredentials
		}
		return nil, err
	}
	if bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(req.Password)) != nil {
		return nil, ErrInvalidCredentials
	}

	token, err := s.tokens.Issue(user.ID)
	if err != nil {
		return nil, err
	}
	return &LoginResult{Token: token, User: user}, nil
}

// Me returns the account of the caller
func (s *IdentityService) Me(ctx context.Context, userID uuid.UUID) (*models.User, error) {
	if s.users == nil {
		return nil, errors.New("user store not set")
	}

	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, err
	}
	return user, nil
}

// ChangePasswordRequest represents a password change by the account owner
type ChangePasswordRequest struct {
	UserID          uuid.UUID
	CurrentPassword string
	NewPassword     string
}

// ChangePassword replaces the caller's password after checking the current one
func (s *IdentityService) ChangePassword(ctx context.Context, req ChangePasswordRequest) error {
	if s.users == nil {
		return errors.New("user store not set")
	}
	if len(req.NewPassword) < minPasswordLength {
		return validationError("new password must be at least %d characters", minPasswordLength)
	}

	user, err := s.users.GetByID(ctx, req.UserID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return ErrUnauthorized
		}
		return err
	}
	if bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(req.CurrentPassword)) != nil {
		return ErrIncorrectPassword
	}

	hash, err := s.hash(req.NewPassword)
	if err != nil {
		return err
	}
	if err := s.users.UpdatePasswordHash(ctx, user.ID, hash); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return ErrUnauthorized
		}
		return err
	}
	return nil
}

// SetLocationRequest assigns the caller's district and municipality
type SetLocationRequest struct {
	UserID       uuid.UUID
	District     string
	Municipality string
}

// SetLocation validates the pair against the reference table and stores it
func (s *IdentityService) SetLocation(ctx context.Context, req SetLocationRequest) (*models.User, error) {
	if s.users == nil {
		return nil, errors.New("user store not set")
	}

	district := strings.TrimSpace(req.District)
	municipality := strings.TrimSpace(req.Municipality)
	if district == "" || municipality == "" {
		return nil, validationError("district and municipality are required")
	}
	if !location.Valid(district, municipality) {
		return nil, validationError("invalid municipality for district")
	}

	user, err := s.users.UpdateLocation(ctx, req.UserID, district, municipality)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrUnauthorized
		}
		return nil, err
	}
	return user, nil
}

// HashPassword hashes a password at the default cost
func HashPassword(password string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", fmt.Errorf("hash password: %w", err)
	}
	return string(hash), nil
}

func (s *IdentityService) hash(password string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), s.bcryptCost)
	if err != nil {
		return "", fmt.Errorf("hash password: %w", err)
	}
	return string(hash), nil
}
