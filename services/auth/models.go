package auth

import "time"

type Role string

const (
	RoleAdmin      Role = "admin"
	RoleStaff      Role = "staff"
	RoleMentor     Role = "mentor"
	RoleStudent    Role = "student"
	RoleAlumni     Role = "alumni"
	RoleMissionary Role = "missionary"
)

var AllRoles = []Role{RoleAdmin, RoleStaff, RoleMentor, RoleStudent, RoleAlumni, RoleMissionary}

func (r Role) Valid() bool {
	for _, role := range AllRoles {
		if r == role {
			return true
		}
	}
	return false
}

type User struct {
	ID                 uint       `json:"id" gorm:"primaryKey"`
	Email              string     `json:"email" gorm:"uniqueIndex;size:255;not null"`
	FirstName          string     `json:"firstName" gorm:"size:100"`
	LastName           string     `json:"lastName" gorm:"size:100"`
	PasswordHash       string     `json:"-" gorm:"column:password;not null"`
	Role               Role       `json:"role" gorm:"size:20;not null;index"`
	Active             bool       `json:"active" gorm:"not null"`
	MustChangePassword bool       `json:"mustChangePassword" gorm:"not null"`
	LastLoginAt        *time.Time `json:"lastLoginAt,omitempty"`
	CreatedAt          time.Time  `json:"createdAt"`
	UpdatedAt          time.Time  `json:"updatedAt"`
}

func (User) TableName() string {
	return "users"
}

func (u *User) FullName() string {
	switch {
	case u.FirstName == "":
		return u.LastName
	case u.LastName == "":
		return u.FirstName
	default:
		return u.FirstName + " " + u.LastName
	}
}

func (u *User) HasRole(roles ...Role) bool {
	for _, r := range roles {
		if u.Role == r {
			return true
		}
	}
	return false
}

func (u *User) IsAdmin() bool {
	return u.Role == RoleAdmin
}
