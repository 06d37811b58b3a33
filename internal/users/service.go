package users

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/alcoolio/neighbourgood/internal/domain"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

// ErrInvalidCredentials is returned by Authenticate when the email is
// unknown or the password does not match. The two cases are deliberately
// indistinguishable to the caller.
var ErrInvalidCredentials = errors.New("users: invalid credentials")

var errMissingDatabase = errors.New("users: database handle is required")

// ServiceConfig describes the dependencies for the account service.
type ServiceConfig struct {
	Database *gorm.DB
	Clock    func() time.Time
	Logger   *zap.Logger
}

// Service manages account registration and credential checks.
type Service struct {
	db     *gorm.DB
	clock  func() time.Time
	logger *zap.Logger
}

// NewService constructs the account service.
func NewService(cfg ServiceConfig) (*Service, error) {
	if cfg.Database == nil {
		return nil, errMissingDatabase
	}
	clock := cfg.Clock
	if clock == nil {
		clock = time.Now
	}
	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{db: cfg.Database, clock: clock, logger: logger}, nil
}

// RegisterParams carries the input for account creation.
type RegisterParams struct {
	Email       string
	DisplayName string
	Password    string
	PostalCode  string
}

// Register creates an account with a bcrypt-hashed password.
func (s *Service) Register(ctx context.Context, params RegisterParams) (*User, error) {
	email := strings.ToLower(strings.TrimSpace(params.Email))
	if email == "" || !strings.Contains(email, "@") {
		return nil, domain.Invalid("a valid email address is required")
	}
	displayName := strings.TrimSpace(params.DisplayName)
	if displayName == "" {
		return nil, domain.Invalid("display name is required")
	}
	if len(params.Password) < 8 {
		return nil, domain.Invalid("password must be at least 8 characters")
	}

	var existing User
	err := s.db.WithContext(ctx).Where("email = ?", email).Take(&existing).Error
	if err == nil {
		return nil, domain.Conflict("an account with this email already exists")
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, domain.Internal("account lookup failed", err)
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(params.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, domain.Internal("password hashing failed", err)
	}

	user := User{
		Email:        email,
		DisplayName:  displayName,
		PasswordHash: string(hash),
		PostalCode:   strings.TrimSpace(params.PostalCode),
		CreatedAt:    s.clock().UTC(),
	}
	if err := s.db.WithContext(ctx).Create(&user).Error; err != nil {
		s.logger.Error("account create failed", zap.Error(err), zap.String("email", email))
		return nil, domain.Internal("account create failed", err)
	}

	s.logger.Info("account registered", zap.Uint("user_id", user.ID))
	return &user, nil
}

// Authenticate checks the email/password pair and returns the account.
func (s *Service) Authenticate(ctx context.Context, email, password string) (*User, error) {
	normalized := strings.ToLower(strings.TrimSpace(email))

	var user User
	err := s.db.WithContext(ctx).Where("email = ?", normalized).Take(&user).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrInvalidCredentials
	}
	if err != nil {
		return nil, domain.Internal("account lookup failed", err)
	}

	if bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)) != nil {
		return nil, ErrInvalidCredentials
	}
	return &user, nil
}

// GetByID returns the account with the given id.
func (s *Service) GetByID(ctx context.Context, userID uint) (*User, error) {
	var user User
	err := s.db.WithContext(ctx).Take(&user, userID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, domain.NotFound("user not found")
	}
	if err != nil {
		return nil, domain.Internal("account lookup failed", err)
	}
	return &user, nil
}
