package content

import (
	"time"

	"gorm.io/gorm"
)

type StudentStatus string

const (
	StatusEnrolled  StudentStatus = "enrolled"
	StatusGraduated StudentStatus = "graduated"
	StatusWithdrawn StudentStatus = "withdrawn"
)

type Student struct {
	ID         uint          `json:"id" gorm:"primaryKey"`
	UserID     uint          `json:"userId" gorm:"uniqueIndex;not null"`
	Program    string        `json:"program" gorm:"size:100"`
	CohortYear int           `json:"cohortYear"`
	Status     StudentStatus `json:"status" gorm:"size:20;not null;index"`
	MentorID   *uint         `json:"mentorId,omitempty" gorm:"index"`
	CreatedAt  time.Time     `json:"createdAt"`
	UpdatedAt  time.Time     `json:"updatedAt"`
}

type MediaKind string

const (
	KindVideo    MediaKind = "video"
	KindAudio    MediaKind = "audio"
	KindImage    MediaKind = "image"
	KindDocument MediaKind = "document"
)

// Expires reports whether items of this kind are subject to retention.
func (k MediaKind) Expires() bool {
	return k == KindVideo || k == KindAudio
}

type MediaItem struct {
	ID          uint       `json:"id" gorm:"primaryKey"`
	OwnerID     uint       `json:"ownerId" gorm:"not null;index"`
	Title       string     `json:"title" gorm:"size:200;not null"`
	Description string     `json:"description"`
	Kind        MediaKind  `json:"kind" gorm:"size:20;not null;index"`
	ContentType string     `json:"contentType" gorm:"size:100"`
	Size        int64      `json:"size"`
	StoragePath string     `json:"-" gorm:"size:255;not null"`
	UploadedAt  time.Time  `json:"uploadedAt" gorm:"not null"`
	ExpiresAt   *time.Time `json:"expiresAt,omitempty" gorm:"index"`
}

func (MediaItem) TableName() string {
	return "media_items"
}

type PostCategory string

const (
	CategoryAnnouncement   PostCategory = "announcement"
	CategoryTestimony      PostCategory = "testimony"
	CategoryPrayerRequest  PostCategory = "prayer_request"
	CategoryUpdate         PostCategory = "update"
	CategorySundayService  PostCategory = "sunday_service"
	CategoryOutreachReport PostCategory = "outreach_report"
)

var PostCategories = []PostCategory{
	CategoryAnnouncement,
	CategoryTestimony,
	CategoryPrayerRequest,
	CategoryUpdate,
	CategorySundayService,
	CategoryOutreachReport,
}

func (c PostCategory) Valid() bool {
	for _, category := range PostCategories {
		if c == category {
			return true
		}
	}
	return false
}

// Expires reports whether posts in this category are time-boxed.
func (c PostCategory) Expires() bool {
	return c == CategorySundayService || c == CategoryUpdate
}

// Privileged reports whether only staff and admins may post in the category.
func (c PostCategory) Privileged() bool {
	return c == CategoryAnnouncement || c == CategorySundayService
}

type Post struct {
	ID        uint         `json:"id" gorm:"primaryKey"`
	AuthorID  uint         `json:"authorId" gorm:"not null;index"`
	Category  PostCategory `json:"category" gorm:"size:30;not null;index"`
	Title     string       `json:"title" gorm:"size:200;not null"`
	Body      string       `json:"body"`
	Tags      []string     `json:"tags" gorm:"serializer:json"`
	CreatedAt time.Time    `json:"createdAt"`
	ExpiresAt *time.Time   `json:"expiresAt,omitempty" gorm:"index"`
}

type HomileticsEntry struct {
	ID        uint       `json:"id" gorm:"primaryKey"`
	AuthorID  uint       `json:"authorId" gorm:"not null;index"`
	Title     string     `json:"title" gorm:"size:200;not null"`
	Scripture string     `json:"scripture" gorm:"size:200"`
	Outline   string     `json:"outline"`
	CreatedAt time.Time  `json:"createdAt"`
	ExpiresAt *time.Time `json:"expiresAt" gorm:"index"`
}

func (HomileticsEntry) TableName() string {
	return "homiletics_entries"
}

// Models lists every model owned by this package.
func Models() []any {
	return []any{&Student{}, &MediaItem{}, &Post{}, &HomileticsEntry{}}
}

func unexpired(now time.Time) func(*gorm.DB) *gorm.DB {
	return func(db *gorm.DB) *gorm.DB {
		return db.Where("expires_at IS NULL OR expires_at > ?", now)
	}
}
