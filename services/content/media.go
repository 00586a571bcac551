package content

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"mime"
	"path/filepath"
	"strings"

	"github.com/gabriel-vasile/mimetype"
	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/tech-arch1tect/seminary/internal/apperr"
	"github.com/tech-arch1tect/seminary/services/auth"
	"github.com/tech-arch1tect/seminary/services/logging"
	"github.com/tech-arch1tect/seminary/services/retention"
	"github.com/tech-arch1tect/seminary/services/storage"
)

const sniffLen = 3072

var ErrMediaNotFound = apperr.NotFound("media not found")

type Upload struct {
	Title       string
	Description string
	Filename    string
	// ContentType is the type declared by the client. It is only used when
	// the content itself is not recognised.
	ContentType string
	Size        int64
	Body        io.Reader
}

type MediaService struct {
	db      *gorm.DB
	store   storage.Store
	clock   clockwork.Clock
	logger  *logging.Service
	maxSize int64
}

func NewMediaService(db *gorm.DB, store storage.Store, clock clockwork.Clock, logger *logging.Service, maxSize int64) *MediaService {
	return &MediaService{db: db, store: store, clock: clock, logger: logger.Named("media"), maxSize: maxSize}
}

// Upload stores the file and records it. Video and audio expire MediaTTL
// after upload.
func (s *MediaService) Upload(ctx context.Context, owner *auth.User, in Upload) (*MediaItem, error) {
	if !owner.HasRole(auth.RoleAdmin, auth.RoleStaff) {
		return nil, apperr.ErrForbidden
	}
	if strings.TrimSpace(in.Title) == "" {
		return nil, apperr.Field("title", "title is required")
	}
	if s.maxSize > 0 && in.Size > s.maxSize {
		return nil, apperr.Field("file", fmt.Sprintf("file exceeds the %d byte limit", s.maxSize))
	}

	head := make([]byte, sniffLen)
	n, err := io.ReadFull(in.Body, head)
	if err != nil && !errors.Is(err, io.ErrUnexpectedEOF) && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("failed to read upload: %w", err)
	}
	head = head[:n]
	if n == 0 {
		return nil, apperr.Field("file", "file is empty")
	}

	contentType, ext := detectType(head, in.ContentType, in.Filename)
	kind := kindOf(contentType)
	key := "media/" + uuid.NewString() + ext

	body := io.MultiReader(bytes.NewReader(head), in.Body)
	if err := s.store.Put(ctx, key, body, in.Size, contentType); err != nil {
		s.logger.Error("failed to store upload", zap.Error(err), zap.String("key", key))
		return nil, fmt.Errorf("failed to store upload: %w", err)
	}

	now := s.clock.Now().UTC()
	item := &MediaItem{
		OwnerID:     owner.ID,
		Title:       strings.TrimSpace(in.Title),
		Description: in.Description,
		Kind:        kind,
		ContentType: contentType,
		Size:        in.Size,
		StoragePath: key,
		UploadedAt:  now,
	}
	if kind.Expires() {
		item.ExpiresAt = retention.ExpiresAfter(now, retention.MediaTTL)
	}

	if err := s.db.WithContext(ctx).Create(item).Error; err != nil {
		if derr := s.store.Delete(context.WithoutCancel(ctx), key); derr != nil {
			s.logger.Warn("failed to remove orphaned upload", zap.Error(derr), zap.String("key", key))
		}
		return nil, fmt.Errorf("failed to record upload: %w", err)
	}

	s.logger.Info("media uploaded",
		zap.Uint("media_id", item.ID),
		zap.String("kind", string(item.Kind)),
		zap.String("content_type", item.ContentType),
		zap.Int64("size", item.Size))
	return item, nil
}

func (s *MediaService) List(ctx context.Context, kind MediaKind) ([]MediaItem, error) {
	query := s.db.WithContext(ctx).Scopes(unexpired(s.clock.Now().UTC())).Order("uploaded_at DESC, id DESC")
	if kind != "" {
		query = query.Where("kind = ?", kind)
	}

	var items []MediaItem
	if err := query.Find(&items).Error; err != nil {
		return nil, fmt.Errorf("failed to list media: %w", err)
	}
	return items, nil
}

func (s *MediaService) Get(ctx context.Context, id uint) (*MediaItem, error) {
	var item MediaItem
	if err := s.db.WithContext(ctx).Scopes(unexpired(s.clock.Now().UTC())).First(&item, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrMediaNotFound
		}
		return nil, fmt.Errorf("failed to load media: %w", err)
	}
	return &item, nil
}

// Open returns the item and a reader over its file. The caller closes it.
func (s *MediaService) Open(ctx context.Context, id uint) (*MediaItem, io.ReadCloser, error) {
	item, err := s.Get(ctx, id)
	if err != nil {
		return nil, nil, err
	}
	rc, err := s.store.Open(ctx, item.StoragePath)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return nil, nil, ErrMediaNotFound
		}
		return nil, nil, err
	}
	return item, rc, nil
}

func (s *MediaService) Delete(ctx context.Context, actor *auth.User, id uint) error {
	var item MediaItem
	if err := s.db.WithContext(ctx).First(&item, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrMediaNotFound
		}
		return fmt.Errorf("failed to load media: %w", err)
	}
	if !canModify(actor, item.OwnerID) {
		return apperr.ErrForbidden
	}

	if err := s.db.WithContext(ctx).Delete(&item).Error; err != nil {
		return fmt.Errorf("failed to delete media: %w", err)
	}
	if err := s.store.Delete(ctx, item.StoragePath); err != nil {
		s.logger.Warn("failed to delete media file", zap.Error(err), zap.String("key", item.StoragePath))
	}
	return nil
}

func detectType(head []byte, declared, filename string) (contentType, ext string) {
	detected := mimetype.Detect(head)
	contentType, ext = detected.String(), detected.Extension()

	if detected.Is("application/octet-stream") || detected.Is("text/plain") {
		if mt, _, err := mime.ParseMediaType(declared); err == nil && mt != "" {
			contentType = mt
		}
		if e := strings.ToLower(filepath.Ext(filename)); validExt(e) {
			ext = e
		}
	}
	if mt, _, err := mime.ParseMediaType(contentType); err == nil {
		contentType = mt
	}
	return contentType, ext
}

func validExt(ext string) bool {
	if len(ext) < 2 || len(ext) > 10 {
		return false
	}
	for _, r := range ext[1:] {
		if (r < 'a' || r > 'z') && (r < '0' || r > '9') {
			return false
		}
	}
	return true
}

func kindOf(contentType string) MediaKind {
	switch {
	case strings.HasPrefix(contentType, "video/"):
		return KindVideo
	case strings.HasPrefix(contentType, "audio/"):
		return KindAudio
	case strings.HasPrefix(contentType, "image/"):
		return KindImage
	default:
		return KindDocument
	}
}
