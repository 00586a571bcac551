// Package revocation records JWT access tokens that were signed out before
// they expired.
package revocation

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/jonboulle/clockwork"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/tech-arch1tect/seminary/services/logging"
)

type RevokedToken struct {
	ID        uint       `json:"id" gorm:"primaryKey"`
	JTI       string     `json:"jti" gorm:"uniqueIndex;size:64;not null"`
	UserID    uint       `json:"userId" gorm:"index"`
	CreatedAt time.Time  `json:"createdAt"`
	ExpiresAt *time.Time `json:"expiresAt" gorm:"index;not null"`
}

// Service keeps revoked JTIs in the database and caches positive lookups in
// memory until the token would have expired anyway.
type Service struct {
	db     *gorm.DB
	clock  clockwork.Clock
	logger *logging.Service

	mu    sync.RWMutex
	cache map[string]time.Time
}

func NewService(db *gorm.DB, clock clockwork.Clock, logger *logging.Service) *Service {
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	return &Service{
		db:     db,
		clock:  clock,
		logger: logger.Named("revocation"),
		cache:  make(map[string]time.Time),
	}
}

func (s *Service) Revoke(ctx context.Context, jti string, userID uint, expiresAt time.Time) error {
	if jti == "" {
		return errors.New("cannot revoke a token without a JTI")
	}
	expiresAt = expiresAt.UTC()
	if !expiresAt.After(s.clock.Now()) {
		return nil
	}

	row := &RevokedToken{JTI: jti, UserID: userID, ExpiresAt: &expiresAt}
	if err := s.db.WithContext(ctx).Create(row).Error; err != nil && !errors.Is(err, gorm.ErrDuplicatedKey) {
		s.logger.Error("failed to persist revoked token", zap.String("jti", jti), zap.Error(err))
		return fmt.Errorf("failed to revoke token: %w", err)
	}

	s.mu.Lock()
	s.cache[jti] = expiresAt
	s.mu.Unlock()

	s.logger.Info("token revoked", zap.String("jti", jti), zap.Uint("user_id", userID))
	return nil
}

func (s *Service) IsRevoked(ctx context.Context, jti string) (bool, error) {
	now := s.clock.Now().UTC()

	s.mu.RLock()
	expiresAt, ok := s.cache[jti]
	s.mu.RUnlock()
	if ok {
		if now.Before(expiresAt) {
			return true, nil
		}
		s.mu.Lock()
		delete(s.cache, jti)
		s.mu.Unlock()
		return false, nil
	}

	var count int64
	err := s.db.WithContext(ctx).Model(&RevokedToken{}).
		Where("jti = ? AND expires_at > ?", jti, now).
		Count(&count).Error
	if err != nil {
		return false, fmt.Errorf("failed to check revocation: %w", err)
	}
	return count > 0, nil
}

// Load warms the cache with every unexpired revocation.
func (s *Service) Load(ctx context.Context) error {
	var rows []RevokedToken
	if err := s.db.WithContext(ctx).Where("expires_at > ?", s.clock.Now().UTC()).Find(&rows).Error; err != nil {
		return fmt.Errorf("failed to load revoked tokens: %w", err)
	}

	s.mu.Lock()
	for _, row := range rows {
		s.cache[row.JTI] = *row.ExpiresAt
	}
	s.mu.Unlock()

	s.logger.Debug("revoked tokens loaded", zap.Int("count", len(rows)))
	return nil
}
