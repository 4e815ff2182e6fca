package announcement

import (
	"github.com/google/wire"
	"gorm.io/gorm"
)

func ProvideRepository(db *gorm.DB) Repository {
	return NewGormRepository(db)
}

var Set = wire.NewSet(
	ProvideRepository,
	NewService,
	NewHandler,
)
