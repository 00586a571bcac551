package content

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/jonboulle/clockwork"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/tech-arch1tect/seminary/internal/apperr"
	"github.com/tech-arch1tect/seminary/services/auth"
	"github.com/tech-arch1tect/seminary/services/logging"
	"github.com/tech-arch1tect/seminary/services/retention"
)

var ErrPostNotFound = apperr.NotFound("post not found")

type NewPost struct {
	Category PostCategory
	Title    string
	Body     string
	Tags     []string
}

type PostService struct {
	db     *gorm.DB
	clock  clockwork.Clock
	logger *logging.Service
}

func NewPostService(db *gorm.DB, clock clockwork.Clock, logger *logging.Service) *PostService {
	return &PostService{db: db, clock: clock, logger: logger.Named("posts")}
}

func (s *PostService) Create(ctx context.Context, author *auth.User, input NewPost) (*Post, error) {
	if !input.Category.Valid() {
		return nil, apperr.Field("category", fmt.Sprintf("unknown category %q", input.Category))
	}
	if strings.TrimSpace(input.Title) == "" {
		return nil, apperr.Field("title", "title is required")
	}
	if input.Category.Privileged() && !author.HasRole(auth.RoleAdmin, auth.RoleStaff) {
		return nil, apperr.ErrForbidden
	}

	now := s.clock.Now().UTC()
	post := &Post{
		AuthorID:  author.ID,
		Category:  input.Category,
		Title:     strings.TrimSpace(input.Title),
		Body:      input.Body,
		Tags:      normalizeTags(input.Tags),
		CreatedAt: now,
	}
	if input.Category.Expires() {
		post.ExpiresAt = retention.ExpiresAfter(now, retention.PostTTL)
	}

	if err := s.db.WithContext(ctx).Create(post).Error; err != nil {
		return nil, fmt.Errorf("failed to create post: %w", err)
	}

	s.logger.Info("post created",
		zap.Uint("post_id", post.ID),
		zap.String("category", string(post.Category)),
		zap.Uint("author_id", author.ID))
	return post, nil
}

// List returns unexpired posts, newest first.
func (s *PostService) List(ctx context.Context, category PostCategory) ([]Post, error) {
	query := s.db.WithContext(ctx).Scopes(unexpired(s.clock.Now().UTC())).Order("created_at DESC, id DESC")
	if category != "" {
		query = query.Where("category = ?", category)
	}

	var posts []Post
	if err := query.Find(&posts).Error; err != nil {
		return nil, fmt.Errorf("failed to list posts: %w", err)
	}
	return posts, nil
}

func (s *PostService) Get(ctx context.Context, id uint) (*Post, error) {
	var post Post
	err := s.db.WithContext(ctx).Scopes(unexpired(s.clock.Now().UTC())).First(&post, id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrPostNotFound
		}
		return nil, fmt.Errorf("failed to load post: %w", err)
	}
	return &post, nil
}

func (s *PostService) Delete(ctx context.Context, actor *auth.User, id uint) error {
	var post Post
	if err := s.db.WithContext(ctx).First(&post, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrPostNotFound
		}
		return fmt.Errorf("failed to load post: %w", err)
	}
	if !canModify(actor, post.AuthorID) {
		return apperr.ErrForbidden
	}
	if err := s.db.WithContext(ctx).Delete(&post).Error; err != nil {
		return fmt.Errorf("failed to delete post: %w", err)
	}
	return nil
}

func normalizeTags(tags []string) []string {
	out := make([]string, 0, len(tags))
	seen := make(map[string]bool, len(tags))
	for _, tag := range tags {
		tag = strings.ToLower(strings.TrimSpace(tag))
		if tag == "" || seen[tag] {
			continue
		}
		seen[tag] = true
		out = append(out, tag)
	}
	return out
}

func canModify(actor *auth.User, ownerID uint) bool {
	return actor.IsAdmin() || actor.ID == ownerID
}
