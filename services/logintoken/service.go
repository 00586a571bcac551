package logintoken

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"errors"
	"fmt"
	"time"

	"github.com/jonboulle/clockwork"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/tech-arch1tect/seminary/config"
	"github.com/tech-arch1tect/seminary/internal/apperr"
	"github.com/tech-arch1tect/seminary/services/auth"
	"github.com/tech-arch1tect/seminary/services/logging"
)

const minTokenBytes = 32

// ErrInvalidToken is returned for unknown, expired and already used tokens
// alike.
var ErrInvalidToken = apperr.InvalidToken("invalid or expired login token")

type UserLookup interface {
	GetUser(ctx context.Context, id uint) (*auth.User, error)
}

type Service struct {
	db         *gorm.DB
	users      UserLookup
	clock      clockwork.Clock
	logger     *logging.Service
	tokenBytes int
	ttl        map[Purpose]time.Duration
}

func NewService(cfg *config.Config, db *gorm.DB, users UserLookup, clock clockwork.Clock, logger *logging.Service) *Service {
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	return &Service{
		db:         db,
		users:      users,
		clock:      clock,
		logger:     logger.Named("logintoken"),
		tokenBytes: max(cfg.Auth.LoginTokenBytes, minTokenBytes),
		ttl: map[Purpose]time.Duration{
			PurposeAutoLogin:     cfg.Auth.LoginTokenExpiry,
			PurposePasswordReset: cfg.Auth.PasswordResetExpiry,
		},
	}
}

// WithTx returns a copy of the service that runs its queries on tx.
func (s *Service) WithTx(tx *gorm.DB) *Service {
	c := *s
	c.db = tx
	return &c
}

// TTL reports how long tokens of the given purpose stay valid.
func (s *Service) TTL(purpose Purpose) time.Duration {
	return s.ttl[purpose]
}

func (s *Service) Issue(ctx context.Context, userID uint, purpose Purpose) (*LoginToken, error) {
	ttl, ok := s.ttl[purpose]
	if !ok || ttl <= 0 {
		return nil, fmt.Errorf("unsupported token purpose %q", purpose)
	}

	value, err := generateToken(s.tokenBytes)
	if err != nil {
		return nil, err
	}

	now := s.clock.Now().UTC()
	token := &LoginToken{
		UserID:    userID,
		Purpose:   purpose,
		Token:     value,
		CreatedAt: now,
		ExpiresAt: now.Add(ttl),
	}
	if err := s.db.WithContext(ctx).Create(token).Error; err != nil {
		s.logger.Error("failed to persist login token", zap.Error(err), zap.Uint("user_id", userID))
		return nil, fmt.Errorf("failed to create login token: %w", err)
	}

	s.logger.Info("login token issued",
		zap.Uint("user_id", userID),
		zap.String("purpose", string(purpose)),
		zap.Time("expires_at", token.ExpiresAt))
	return token, nil
}

// Redeem consumes a token and returns its owner. The conditional update is
// the only gate: of any number of concurrent callers at most one sees a row
// affected. Tokens of disabled accounts are rejected without being consumed.
func (s *Service) Redeem(ctx context.Context, value string, purpose Purpose, ip string) (*auth.User, error) {
	if value == "" {
		return nil, ErrInvalidToken
	}

	var token LoginToken
	if err := s.db.WithContext(ctx).Where("token = ? AND purpose = ?", value, purpose).First(&token).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			s.logger.Warn("unknown login token presented", zap.String("ip", ip))
			return nil, ErrInvalidToken
		}
		return nil, fmt.Errorf("failed to look up login token: %w", err)
	}

	user, err := s.users.GetUser(ctx, token.UserID)
	if err != nil {
		if errors.Is(err, auth.ErrUserNotFound) {
			return nil, ErrInvalidToken
		}
		return nil, err
	}
	if !user.Active {
		s.logger.Warn("login token presented for disabled account",
			zap.Uint("token_id", token.ID),
			zap.Uint("user_id", user.ID),
			zap.String("ip", ip))
		return nil, ErrInvalidToken
	}

	now := s.clock.Now().UTC()
	result := s.db.WithContext(ctx).Model(&LoginToken{}).
		Where("id = ? AND used = ? AND expires_at > ?", token.ID, false, now).
		Updates(map[string]any{
			"used":       true,
			"used_at":    now,
			"ip_address": ip,
		})
	if result.Error != nil {
		return nil, fmt.Errorf("failed to redeem login token: %w", result.Error)
	}
	if result.RowsAffected != 1 {
		s.logger.Warn("used or expired login token presented",
			zap.Uint("token_id", token.ID),
			zap.Uint("user_id", token.UserID),
			zap.String("ip", ip))
		return nil, ErrInvalidToken
	}

	s.logger.Info("login token redeemed",
		zap.Uint("token_id", token.ID),
		zap.Uint("user_id", user.ID),
		zap.String("purpose", string(purpose)))
	return user, nil
}

func generateToken(n int) (string, error) {
	buf := make([]byte, n)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("failed to generate secure token: %w", err)
	}
	return base64.RawURLEncoding.EncodeToString(buf), nil
}
