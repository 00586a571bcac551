package logintoken

import "time"

type Purpose string

const (
	PurposeAutoLogin     Purpose = "auto_login"
	PurposePasswordReset Purpose = "password_reset"
)

// LoginToken is a single-use credential substitute. It is written once at
// issue time and updated once when redeemed.
type LoginToken struct {
	ID        uint       `json:"id" gorm:"primaryKey"`
	UserID    uint       `json:"userId" gorm:"not null;index"`
	Purpose   Purpose    `json:"purpose" gorm:"size:32;not null;index"`
	Token     string     `json:"-" gorm:"size:255;uniqueIndex;not null"`
	CreatedAt time.Time  `json:"createdAt"`
	ExpiresAt time.Time  `json:"expiresAt" gorm:"not null;index"`
	Used      bool       `json:"used" gorm:"not null"`
	UsedAt    *time.Time `json:"usedAt,omitempty"`
	IPAddress string     `json:"ipAddress,omitempty" gorm:"size:64"`
}

func (LoginToken) TableName() string {
	return "login_tokens"
}
