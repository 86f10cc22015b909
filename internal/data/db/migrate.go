package db

import (
	"fmt"

	"gorm.io/gorm"

	"github.com/tripweaver/tripweaver-backend/internal/domain"
)

func AutoMigrateAll(db *gorm.DB) error {
	return db.AutoMigrate(
		&domain.Trip{},
		&domain.TripStop{},
		&domain.TripDay{},
		&domain.TripItem{},
		&domain.TripRevision{},
	)
}

func MustAutoMigrate(db *gorm.DB) {
	if err := AutoMigrateAll(db); err != nil {
		panic(fmt.Sprintf("automigrate: %v", err))
	}
}
