package trip

import (
	"errors"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/tripweaver/tripweaver-backend/internal/domain"
	"github.com/tripweaver/tripweaver-backend/internal/platform/dbctx"
	"github.com/tripweaver/tripweaver-backend/internal/platform/logger"
)

// TripRevisionRepo appends and reads the immutable revision history.
// Revisions are never updated or deleted.
type TripRevisionRepo interface {
	Create(dbc dbctx.Context, rev *domain.TripRevision) error
	GetByID(dbc dbctx.Context, id uuid.UUID) (*domain.TripRevision, error)
	ListByTrip(dbc dbctx.Context, tripID uuid.UUID) ([]*domain.TripRevision, error)
	LatestVersion(dbc dbctx.Context, tripID uuid.UUID) (int, error)
}

type tripRevisionRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewTripRevisionRepo(db *gorm.DB, baseLog *logger.Logger) TripRevisionRepo {
	return &tripRevisionRepo{
		db:  db,
		log: baseLog.With("repo", "TripRevisionRepo"),
	}
}

func (r *tripRevisionRepo) base(dbc dbctx.Context) *gorm.DB {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}
	return transaction.WithContext(dbc.Ctx)
}

func (r *tripRevisionRepo) Create(dbc dbctx.Context, rev *domain.TripRevision) error {
	return r.base(dbc).Create(rev).Error
}

func (r *tripRevisionRepo) GetByID(dbc dbctx.Context, id uuid.UUID) (*domain.TripRevision, error) {
	if id == uuid.Nil {
		return nil, nil
	}
	var rev domain.TripRevision
	err := r.base(dbc).Where("id = ?", id).First(&rev).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &rev, nil
}

// ListByTrip returns revisions newest-first.
func (r *tripRevisionRepo) ListByTrip(dbc dbctx.Context, tripID uuid.UUID) ([]*domain.TripRevision, error) {
	var out []*domain.TripRevision
	if err := r.base(dbc).
		Where("trip_id = ?", tripID).
		Order("version DESC").
		Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}

func (r *tripRevisionRepo) LatestVersion(dbc dbctx.Context, tripID uuid.UUID) (int, error) {
	var version *int
	err := r.base(dbc).
		Model(&domain.TripRevision{}).
		Select("MAX(version)").
		Where("trip_id = ?", tripID).
		Scan(&version).Error
	if err != nil {
		return 0, err
	}
	if version == nil {
		return 0, nil
	}
	return *version, nil
}
