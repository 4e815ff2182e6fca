package announcement

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Announcement is a staff-authored notice shown to every client.
type Announcement struct {
	ID        uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	Title     string    `gorm:"size:100;not null" json:"title"`
	Body      string    `gorm:"size:1000;not null" json:"body"`
	AuthorID  uuid.UUID `gorm:"type:uuid;not null" json:"author"`
	CreatedAt time.Time `json:"createdAt"`
}

func (a *Announcement) BeforeCreate(_ *gorm.DB) error {
	if a.ID == uuid.Nil {
		a.ID = uuid.New()
	}
	return nil
}
