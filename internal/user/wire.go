package user

import (
	"github.com/google/wire"
	"gorm.io/gorm"
)

// ProvideRepository is a Wire provider function that creates the gorm-backed
// user Repository.
func ProvideRepository(db *gorm.DB) Repository {
	return NewGormRepository(db)
}

var Set = wire.NewSet(
	ProvideRepository,
	NewService,
	NewHandler,
)
