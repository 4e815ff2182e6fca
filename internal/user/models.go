package user

import (
	"time"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

// Account roles. Moderators post announcements; admins can also remove them.
const (
	RoleUser      = "user"
	RoleModerator = "moderator"
	RoleAdmin     = "admin"
)

// Subscription states mirror the billing provider's vocabulary.
const (
	SubscriptionNone     = "none"
	SubscriptionActive   = "active"
	SubscriptionTrialing = "trialing"
	SubscriptionOverdue  = "overdue"
	SubscriptionCanceled = "canceled"
)

// Email keeps the address together with its verification state.
type Email struct {
	Value    string `gorm:"uniqueIndex;not null" json:"value"`
	Verified bool   `gorm:"not null;default:false" json:"verified"`
}

// Subscription is read by the CRUD layer only; the auth core never touches it.
type Subscription struct {
	Status string    `gorm:"not null;default:none" json:"status"`
	EndsIn time.Time `json:"endsIn"`
}

type User struct {
	ID           uuid.UUID    `gorm:"type:uuid;primaryKey" json:"id"`
	Username     string       `gorm:"uniqueIndex;size:16;not null" json:"username"`
	Email        Email        `gorm:"embedded;embeddedPrefix:email_" json:"email"`
	Password     string       `gorm:"not null" json:"-"`
	Role         string       `gorm:"not null;default:user" json:"role"`
	Birthdate    time.Time    `json:"birthdate"`
	AvatarURL    string       `json:"avatarUrl,omitempty"`
	Subscription Subscription `gorm:"embedded;embeddedPrefix:subscription_" json:"subscription"`

	Following []*User `gorm:"many2many:user_following;joinForeignKey:UserID;joinReferences:FollowingID" json:"-"`
	Blocked   []*User `gorm:"many2many:user_blocked;joinForeignKey:UserID;joinReferences:BlockedID" json:"-"`

	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

func (u *User) BeforeCreate(_ *gorm.DB) error {
	if u.ID == uuid.Nil {
		u.ID = uuid.New()
	}
	return nil
}

// Age in full years, used by the under-13 registration guard.
func (u *User) Age() int {
	now := time.Now()
	years := now.Year() - u.Birthdate.Year()
	if now.YearDay() < u.Birthdate.YearDay() {
		years--
	}
	return years
}

// SetPassword stores a bcrypt hash of the plaintext.
func (u *User) SetPassword(plaintext string) error {
	hash, err := bcrypt.GenerateFromPassword([]byte(plaintext), 12)
	if err != nil {
		return err
	}
	u.Password = string(hash)
	return nil
}

// CheckPassword reports whether plaintext matches the stored hash.
func (u *User) CheckPassword(plaintext string) bool {
	return bcrypt.CompareHashAndPassword([]byte(u.Password), []byte(plaintext)) == nil
}

// IsModerator covers admins too; admin is a superset of moderator.
func (u *User) IsModerator() bool {
	return u.Role == RoleModerator || u.Role == RoleAdmin
}

func (u *User) IsAdmin() bool {
	return u.Role == RoleAdmin
}

// Profile is the public shape of an account.
type Profile struct {
	ID        uuid.UUID `json:"id"`
	Username  string    `json:"username"`
	AvatarURL string    `json:"avatarUrl,omitempty"`
	CreatedAt time.Time `json:"createdAt"`
}

func (u *User) Profile() *Profile {
	return &Profile{
		ID:        u.ID,
		Username:  u.Username,
		AvatarURL: u.AvatarURL,
		CreatedAt: u.CreatedAt,
	}
}
