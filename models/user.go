package models

import (
	"encoding/json"
	"time"

	"gorm.io/gorm"
)

// User roles. Admins may edit or delete any post or comment.
const (
	RoleRegular = "REGULAR"
	RoleAdmin   = "ADMIN"
)

// User represents an account created by local registration or an OAuth
// provider. Passwords are stored as bcrypt hashes only.
type User struct {
	ID           uint           `gorm:"primaryKey" json:"id"`
	Username     string         `gorm:"size:30;uniqueIndex;not null" json:"username"`
	Email        string         `gorm:"size:255;uniqueIndex" json:"email"`
	PasswordHash string         `gorm:"size:255" json:"-"`
	Provider     string         `gorm:"size:32" json:"-"`
	ProviderID   string         `gorm:"size:255" json:"-"`
	Role         string         `gorm:"size:16;not null;default:'REGULAR'" json:"role"`
	CreatedAt    time.Time      `json:"createdAt"`
	UpdatedAt    time.Time      `json:"updatedAt"`
	DeletedAt    gorm.DeletedAt `gorm:"index" json:"-"`
	Profile      Profile        `json:"profile"`
	Posts        []Post         `gorm:"foreignKey:AuthorID" json:"-"`
	Comments     []Comment      `gorm:"foreignKey:AuthorID" json:"-"`
}

// BeforeCreate ensures timestamps are set even when not provided.
func (u *User) BeforeCreate(tx *gorm.DB) error {
	now := time.Now()
	if u.CreatedAt.IsZero() {
		u.CreatedAt = now
	}
	u.UpdatedAt = now
	return nil
}

// IsAdmin reports whether the user holds the admin role.
func (u *User) IsAdmin() bool {
	return u.Role == RoleAdmin
}

// Profile holds the public-facing fields of a user. One row is created
// alongside every User at registration or first OAuth sign-in.
type Profile struct {
	ID           uint      `gorm:"primaryKey" json:"-"`
	UserID       uint      `gorm:"uniqueIndex;not null" json:"-"`
	DisplayName  string    `gorm:"size:50" json:"displayName"`
	Bio          string    `gorm:"size:500" json:"bio"`
	Location     string    `gorm:"size:100" json:"location"`
	Website      string    `gorm:"size:255" json:"website"`
	Interests    string    `gorm:"type:text" json:"-"` // JSON-encoded string list
	MysteryScore int       `gorm:"not null;default:0" json:"mysteryScore"`
	Verified     bool      `gorm:"not null;default:false" json:"verified"`
	Avatar       string    `gorm:"size:512" json:"avatar"`
	CreatedAt    time.Time `json:"-"`
	UpdatedAt    time.Time `json:"-"`
}

// InterestList decodes the stored interests. A missing or malformed
// value decodes to an empty list.
func (p *Profile) InterestList() []string {
	if p.Interests == "" {
		return []string{}
	}
	var out []string
	if err := json.Unmarshal([]byte(p.Interests), &out); err != nil {
		return []string{}
	}
	return out
}

// SetInterests encodes and stores the interest list, capped at ten
// entries.
func (p *Profile) SetInterests(interests []string) {
	if len(interests) > 10 {
		interests = interests[:10]
	}
	b, err := json.Marshal(interests)
	if err != nil {
		return
	}
	p.Interests = string(b)
}

// Follow links a follower to the user being followed. The composite
// unique index guarantees at most one row per pair.
type Follow struct {
	ID          uint      `gorm:"primaryKey" json:"id"`
	FollowerID  uint      `gorm:"not null;uniqueIndex:idx_follow_pair" json:"followerId"`
	FollowingID uint      `gorm:"not null;uniqueIndex:idx_follow_pair;index" json:"followingId"`
	CreatedAt   time.Time `json:"createdAt"`
}
