package content

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jonboulle/clockwork"
	"gorm.io/gorm"

	"github.com/tech-arch1tect/seminary/internal/apperr"
	"github.com/tech-arch1tect/seminary/services/auth"
	"github.com/tech-arch1tect/seminary/services/logging"
	"github.com/tech-arch1tect/seminary/services/retention"
)

var ErrEntryNotFound = apperr.NotFound("homiletics entry not found")

type NewHomiletics struct {
	Title     string
	Scripture string
	Outline   string
	// ExpiresAt defaults to the end of the next Sunday.
	ExpiresAt *time.Time
}

type HomileticsService struct {
	db     *gorm.DB
	clock  clockwork.Clock
	logger *logging.Service
}

func NewHomileticsService(db *gorm.DB, clock clockwork.Clock, logger *logging.Service) *HomileticsService {
	return &HomileticsService{db: db, clock: clock, logger: logger.Named("homiletics")}
}

func (s *HomileticsService) Submit(ctx context.Context, author *auth.User, input NewHomiletics) (*HomileticsEntry, error) {
	if strings.TrimSpace(input.Title) == "" {
		return nil, apperr.Field("title", "title is required")
	}

	now := s.clock.Now().UTC()
	expires := retention.NextSunday(now)
	if input.ExpiresAt != nil {
		if !input.ExpiresAt.After(now) {
			return nil, apperr.Field("expiresAt", "expiry must be in the future")
		}
		expires = input.ExpiresAt.UTC()
	}

	entry := &HomileticsEntry{
		AuthorID:  author.ID,
		Title:     strings.TrimSpace(input.Title),
		Scripture: input.Scripture,
		Outline:   input.Outline,
		CreatedAt: now,
		ExpiresAt: &expires,
	}
	if err := s.db.WithContext(ctx).Create(entry).Error; err != nil {
		return nil, fmt.Errorf("failed to create homiletics entry: %w", err)
	}
	return entry, nil
}

func (s *HomileticsService) scope(viewer *auth.User) func(*gorm.DB) *gorm.DB {
	return func(db *gorm.DB) *gorm.DB {
		db = db.Scopes(unexpired(s.clock.Now().UTC()))
		if !viewer.HasRole(auth.RoleAdmin, auth.RoleStaff) {
			db = db.Where("author_id = ?", viewer.ID)
		}
		return db
	}
}

// List returns entries visible to viewer. Staff and admins see every entry;
// everyone else sees their own.
func (s *HomileticsService) List(ctx context.Context, viewer *auth.User) ([]HomileticsEntry, error) {
	var entries []HomileticsEntry
	if err := s.db.WithContext(ctx).Scopes(s.scope(viewer)).Order("created_at DESC, id DESC").Find(&entries).Error; err != nil {
		return nil, fmt.Errorf("failed to list homiletics entries: %w", err)
	}
	return entries, nil
}

func (s *HomileticsService) Get(ctx context.Context, viewer *auth.User, id uint) (*HomileticsEntry, error) {
	var entry HomileticsEntry
	if err := s.db.WithContext(ctx).Scopes(s.scope(viewer)).First(&entry, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrEntryNotFound
		}
		return nil, fmt.Errorf("failed to load homiletics entry: %w", err)
	}
	return &entry, nil
}

func (s *HomileticsService) Delete(ctx context.Context, actor *auth.User, id uint) error {
	var entry HomileticsEntry
	if err := s.db.WithContext(ctx).First(&entry, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrEntryNotFound
		}
		return fmt.Errorf("failed to load homiletics entry: %w", err)
	}
	if !canModify(actor, entry.AuthorID) {
		return apperr.ErrForbidden
	}
	return s.db.WithContext(ctx).Delete(&entry).Error
}
