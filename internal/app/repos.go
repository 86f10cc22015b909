package app

import (
	"gorm.io/gorm"

	triprepo "github.com/tripweaver/tripweaver-backend/internal/data/repos/trip"
	"github.com/tripweaver/tripweaver-backend/internal/platform/logger"
)

type Repos struct {
	Trip         triprepo.TripRepo
	TripRevision triprepo.TripRevisionRepo
}

func wireRepos(db *gorm.DB, log *logger.Logger) Repos {
	log.Info("Wiring repos...")
	return Repos{
		Trip:         triprepo.NewTripRepo(db, log),
		TripRevision: triprepo.NewTripRevisionRepo(db, log),
	}
}
