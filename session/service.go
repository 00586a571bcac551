package session

import (
	"context"
	"errors"
	"fmt"

	"github.com/jonboulle/clockwork"
	"github.com/mileusna/useragent"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/tech-arch1tect/seminary/internal/apperr"
	"github.com/tech-arch1tect/seminary/services/logging"
)

var ErrSessionNotFound = apperr.NotFound("session not found")

// Service tracks sessions created by Login.
type Service struct {
	db      *gorm.DB
	manager *Manager
	clock   clockwork.Clock
	logger  *logging.Service
}

func NewService(db *gorm.DB, manager *Manager, clock clockwork.Clock, logger *logging.Service) *Service {
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	return &Service{db: db, manager: manager, clock: clock, logger: logger.Named("session")}
}

func (s *Service) Track(ctx context.Context, userID uint, token, ipAddress, userAgent string) error {
	now := s.clock.Now().UTC()
	expiresAt := now.Add(s.manager.Lifetime)
	info := ParseDevice(userAgent)

	row := UserSession{
		UserID:     userID,
		Token:      token,
		IPAddress:  ipAddress,
		UserAgent:  truncate(userAgent, 500),
		Browser:    info.Browser,
		OS:         info.OS,
		DeviceType: info.DeviceType,
		CreatedAt:  now,
		LastUsed:   now,
		ExpiresAt:  &expiresAt,
	}
	if err := s.db.WithContext(ctx).Create(&row).Error; err != nil {
		return fmt.Errorf("failed to track session: %w", err)
	}
	return nil
}

// Touch marks the session as used and reports whether it is still tracked.
// A session removed through Revoke reports false.
func (s *Service) Touch(ctx context.Context, token string) (bool, error) {
	now := s.clock.Now().UTC()
	result := s.db.WithContext(ctx).Model(&UserSession{}).
		Where("token = ? AND expires_at > ?", token, now).
		Update("last_used", now)
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected > 0, nil
}

func (s *Service) List(ctx context.Context, userID uint, currentToken string) ([]UserSession, error) {
	var sessions []UserSession
	err := s.db.WithContext(ctx).
		Where("user_id = ? AND expires_at > ?", userID, s.clock.Now().UTC()).
		Order("last_used DESC").
		Find(&sessions).Error
	if err != nil {
		return nil, err
	}

	for i := range sessions {
		sessions[i].Current = sessions[i].Token == currentToken
	}
	return sessions, nil
}

// Revoke removes one of the user's sessions and its server-side data.
func (s *Service) Revoke(ctx context.Context, userID, sessionID uint) error {
	var row UserSession
	if err := s.db.WithContext(ctx).Where("id = ? AND user_id = ?", sessionID, userID).First(&row).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrSessionNotFound
		}
		return err
	}

	if err := s.manager.Store.Delete(row.Token); err != nil {
		s.logger.Warn("failed to delete session data", zap.Error(err), zap.Uint("session_id", row.ID))
	}
	if err := s.db.WithContext(ctx).Delete(&row).Error; err != nil {
		return err
	}

	s.logger.Info("session revoked", zap.Uint("session_id", row.ID), zap.Uint("user_id", userID))
	return nil
}

func (s *Service) Remove(ctx context.Context, token string) error {
	return s.db.WithContext(ctx).Where("token = ?", token).Delete(&UserSession{}).Error
}

type DeviceInfo struct {
	Browser    string `json:"browser"`
	OS         string `json:"os"`
	DeviceType string `json:"deviceType"`
}

func ParseDevice(userAgentString string) DeviceInfo {
	if userAgentString == "" {
		return DeviceInfo{Browser: "Unknown Browser", OS: "Unknown OS", DeviceType: "Unknown"}
	}

	ua := useragent.Parse(userAgentString)

	info := DeviceInfo{Browser: "Unknown Browser", OS: "Unknown OS", DeviceType: "Desktop"}
	switch {
	case ua.Mobile:
		info.DeviceType = "Mobile"
	case ua.Tablet:
		info.DeviceType = "Tablet"
	case ua.Bot:
		info.DeviceType = "Bot"
	}

	if ua.Name != "" {
		info.Browser = joinVersion(ua.Name, ua.Version)
	}
	if ua.OS != "" {
		info.OS = joinVersion(ua.OS, ua.OSVersion)
	}
	return info
}

func joinVersion(name, version string) string {
	if version == "" {
		return name
	}
	return name + " " + version
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}
