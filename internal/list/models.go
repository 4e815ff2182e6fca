package list

import (
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"
	"gorm.io/gorm"

	"castive/internal/user"
)

// List is a curated set of movie/TV item ids. Items are external catalog
// references, stored verbatim.
type List struct {
	ID          uuid.UUID      `gorm:"type:uuid;primaryKey" json:"id"`
	Title       string         `gorm:"size:25;not null" json:"title"`
	Description string         `gorm:"size:100" json:"description"`
	OwnerID     uuid.UUID      `gorm:"type:uuid;not null;index" json:"owner"`
	Private     bool           `gorm:"not null;default:false" json:"private"`
	Items       pq.StringArray `gorm:"type:text[]" json:"items"`
	CoverURL    string         `json:"coverUrl,omitempty"`

	Followers []*user.User `gorm:"many2many:list_followers" json:"-"`

	CreatedAt time.Time `json:"createdAt"`
}

func (l *List) BeforeCreate(_ *gorm.DB) error {
	if l.ID == uuid.Nil {
		l.ID = uuid.New()
	}
	return nil
}

// HasItem reports whether itemID is already on the list.
func (l *List) HasItem(itemID string) bool {
	for _, item := range l.Items {
		if item == itemID {
			return true
		}
	}
	return false
}
