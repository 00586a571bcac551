package auth

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"math/big"
	"net/mail"
	"strings"
	"unicode"

	"github.com/jonboulle/clockwork"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"

	"github.com/tech-arch1tect/seminary/config"
	"github.com/tech-arch1tect/seminary/internal/apperr"
	"github.com/tech-arch1tect/seminary/services/logging"
)

var (
	ErrPasswordHashingFailed = errors.New("failed to hash password")
	ErrInvalidCredentials    = apperr.Unauthorized("invalid credentials")
	ErrAccountDisabled       = apperr.Forbidden("account is disabled")
	ErrUserNotFound          = apperr.NotFound("user not found")
	ErrEmailTaken            = apperr.Conflict("email is already registered")
)

const (
	temporaryPasswordLength = 16
	lowerChars              = "abcdefghijkmnopqrstuvwxyz"
	upperChars              = "ABCDEFGHJKLMNPQRSTUVWXYZ"
	digitChars              = "23456789"
	specialChars            = "!@#$%*-_?"
)

// NewUser describes an account to create. Password is the plain-text
// password and is validated against the configured policy.
type NewUser struct {
	Email              string
	FirstName          string
	LastName           string
	Role               Role
	Password           string
	MustChangePassword bool
}

type Service struct {
	config *config.Config
	db     *gorm.DB
	clock  clockwork.Clock
	logger *logging.Service
}

func NewService(cfg *config.Config, db *gorm.DB, clock clockwork.Clock, logger *logging.Service) *Service {
	if cfg.Auth.BcryptCost < bcrypt.MinCost || cfg.Auth.BcryptCost > bcrypt.MaxCost {
		cfg.Auth.BcryptCost = bcrypt.DefaultCost
	}
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	return &Service{
		config: cfg,
		db:     db,
		clock:  clock,
		logger: logger.Named("auth"),
	}
}

// WithTx returns a copy of the service that runs its queries on tx.
func (s *Service) WithTx(tx *gorm.DB) *Service {
	c := *s
	c.db = tx
	return &c
}

func (s *Service) ValidatePassword(password string) error {
	if len(password) < s.config.Auth.MinLength {
		s.logger.Debug("password validation failed: insufficient length",
			zap.Int("length", len(password)),
			zap.Int("min_required", s.config.Auth.MinLength))
		return apperr.Field("password", fmt.Sprintf("password must be at least %d characters", s.config.Auth.MinLength))
	}

	var hasUpper, hasLower, hasNumber, hasSpecial bool
	for _, char := range password {
		switch {
		case unicode.IsUpper(char):
			hasUpper = true
		case unicode.IsLower(char):
			hasLower = true
		case unicode.IsNumber(char):
			hasNumber = true
		case unicode.IsPunct(char) || unicode.IsSymbol(char):
			hasSpecial = true
		}
	}

	var missing []string
	if s.config.Auth.RequireUpper && !hasUpper {
		missing = append(missing, "one uppercase letter")
	}
	if s.config.Auth.RequireLower && !hasLower {
		missing = append(missing, "one lowercase letter")
	}
	if s.config.Auth.RequireNumber && !hasNumber {
		missing = append(missing, "one number")
	}
	if s.config.Auth.RequireSpecial && !hasSpecial {
		missing = append(missing, "one special character")
	}

	if len(missing) > 0 {
		s.logger.Debug("password validation failed: missing requirements", zap.Strings("missing_requirements", missing))
		return apperr.Field("password", "password must contain at least "+strings.Join(missing, ", "))
	}
	return nil
}

func (s *Service) HashPassword(password string) (string, error) {
	if err := s.ValidatePassword(password); err != nil {
		return "", err
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), s.config.Auth.BcryptCost)
	if err != nil {
		s.logger.Error("password hashing failed", zap.Error(err))
		return "", ErrPasswordHashingFailed
	}
	return string(hash), nil
}

func (s *Service) VerifyPassword(hashedPassword, password string) error {
	if err := bcrypt.CompareHashAndPassword([]byte(hashedPassword), []byte(password)); err != nil {
		return ErrInvalidCredentials
	}
	return nil
}

// GenerateTemporaryPassword returns a random password that satisfies the
// configured policy regardless of which character classes it requires.
func (s *Service) GenerateTemporaryPassword() (string, error) {
	length := max(temporaryPasswordLength, s.config.Auth.MinLength)

	classes := []string{lowerChars, upperChars, digitChars, specialChars}
	all := strings.Join(classes, "")

	buf := make([]byte, 0, length)
	for _, class := range classes {
		c, err := randomChar(class)
		if err != nil {
			return "", err
		}
		buf = append(buf, c)
	}
	for len(buf) < length {
		c, err := randomChar(all)
		if err != nil {
			return "", err
		}
		buf = append(buf, c)
	}

	for i := len(buf) - 1; i > 0; i-- {
		n, err := rand.Int(rand.Reader, big.NewInt(int64(i+1)))
		if err != nil {
			return "", fmt.Errorf("failed to shuffle temporary password: %w", err)
		}
		j := n.Int64()
		buf[i], buf[j] = buf[j], buf[i]
	}
	return string(buf), nil
}

func randomChar(set string) (byte, error) {
	n, err := rand.Int(rand.Reader, big.NewInt(int64(len(set))))
	if err != nil {
		return 0, fmt.Errorf("failed to generate random character: %w", err)
	}
	return set[n.Int64()], nil
}

func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

func (s *Service) CreateUser(ctx context.Context, input NewUser) (*User, error) {
	email := NormalizeEmail(input.Email)
	if _, err := mail.ParseAddress(email); err != nil || email == "" {
		return nil, apperr.Field("email", "must be a valid email address")
	}
	if !input.Role.Valid() {
		return nil, apperr.Field("role", fmt.Sprintf("unknown role %q", input.Role))
	}

	hash, err := s.HashPassword(input.Password)
	if err != nil {
		return nil, err
	}

	var count int64
	if err := s.db.WithContext(ctx).Model(&User{}).Where("email = ?", email).Count(&count).Error; err != nil {
		return nil, fmt.Errorf("failed to check email: %w", err)
	}
	if count > 0 {
		return nil, ErrEmailTaken
	}

	user := &User{
		Email:              email,
		FirstName:          strings.TrimSpace(input.FirstName),
		LastName:           strings.TrimSpace(input.LastName),
		PasswordHash:       hash,
		Role:               input.Role,
		Active:             true,
		MustChangePassword: input.MustChangePassword,
	}
	if err := s.db.WithContext(ctx).Create(user).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return nil, ErrEmailTaken
		}
		s.logger.Error("failed to create user", zap.Error(err), zap.String("email", email))
		return nil, fmt.Errorf("failed to create user: %w", err)
	}

	s.logger.Info("user created", zap.Uint("user_id", user.ID), zap.String("role", string(user.Role)))
	return user, nil
}

// Authenticate checks credentials. Unknown emails and wrong passwords return
// the same error.
func (s *Service) Authenticate(ctx context.Context, email, password string) (*User, error) {
	user, err := s.GetUserByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, ErrUserNotFound) {
			return nil, ErrInvalidCredentials
		}
		return nil, err
	}

	if err := s.VerifyPassword(user.PasswordHash, password); err != nil {
		s.logger.Warn("authentication failed", zap.Uint("user_id", user.ID))
		return nil, err
	}
	if !user.Active {
		return nil, ErrAccountDisabled
	}
	return user, nil
}

func (s *Service) GetUser(ctx context.Context, id uint) (*User, error) {
	var user User
	if err := s.db.WithContext(ctx).First(&user, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, fmt.Errorf("failed to load user: %w", err)
	}
	return &user, nil
}

func (s *Service) GetUserByEmail(ctx context.Context, email string) (*User, error) {
	var user User
	if err := s.db.WithContext(ctx).Where("email = ?", NormalizeEmail(email)).First(&user).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, fmt.Errorf("failed to load user: %w", err)
	}
	return &user, nil
}

func (s *Service) ListUsers(ctx context.Context, role Role) ([]User, error) {
	query := s.db.WithContext(ctx).Order("id")
	if role != "" {
		query = query.Where("role = ?", role)
	}

	var users []User
	if err := query.Find(&users).Error; err != nil {
		return nil, fmt.Errorf("failed to list users: %w", err)
	}
	return users, nil
}

// SetPassword replaces the password of a user and clears the
// must-change-password flag.
func (s *Service) SetPassword(ctx context.Context, userID uint, password string) error {
	hash, err := s.HashPassword(password)
	if err != nil {
		return err
	}

	result := s.db.WithContext(ctx).Model(&User{}).Where("id = ?", userID).
		Updates(map[string]any{"password": hash, "must_change_password": false})
	if result.Error != nil {
		return fmt.Errorf("failed to update password: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return ErrUserNotFound
	}

	s.logger.Info("password updated", zap.Uint("user_id", userID))
	return nil
}

func (s *Service) RecordLogin(ctx context.Context, userID uint) error {
	now := s.clock.Now().UTC()
	if err := s.db.WithContext(ctx).Model(&User{}).Where("id = ?", userID).Update("last_login_at", now).Error; err != nil {
		return fmt.Errorf("failed to record login: %w", err)
	}
	return nil
}

// EnsureAdmin creates the bootstrap administrator unless an account with that
// email already exists.
func (s *Service) EnsureAdmin(ctx context.Context, email, password, firstName, lastName string) (*User, error) {
	existing, err := s.GetUserByEmail(ctx, email)
	if err == nil {
		return existing, nil
	}
	if !errors.Is(err, ErrUserNotFound) {
		return nil, err
	}

	return s.CreateUser(ctx, NewUser{
		Email:     email,
		FirstName: firstName,
		LastName:  lastName,
		Role:      RoleAdmin,
		Password:  password,
	})
}
