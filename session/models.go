package session

import (
	"time"
)

// UserSession records a signed-in browser session so users can see and revoke
// their devices.
type UserSession struct {
	ID         uint       `json:"id" gorm:"primaryKey"`
	UserID     uint       `json:"userId" gorm:"not null;index"`
	Token      string     `json:"-" gorm:"uniqueIndex;size:255;not null"`
	IPAddress  string     `json:"ipAddress" gorm:"size:45"`
	UserAgent  string     `json:"userAgent" gorm:"size:500"`
	Browser    string     `json:"browser" gorm:"size:100"`
	OS         string     `json:"os" gorm:"size:100"`
	DeviceType string     `json:"deviceType" gorm:"size:20"`
	Current    bool       `json:"current" gorm:"-"`
	CreatedAt  time.Time  `json:"createdAt"`
	LastUsed   time.Time  `json:"lastUsed"`
	ExpiresAt  *time.Time `json:"expiresAt" gorm:"index;not null"`
}

func (UserSession) TableName() string {
	return "user_sessions"
}
