package trip

import (
	"errors"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/tripweaver/tripweaver-backend/internal/domain"
	"github.com/tripweaver/tripweaver-backend/internal/platform/dbctx"
	"github.com/tripweaver/tripweaver-backend/internal/platform/logger"
)

// PlanTree is the full persisted stops→days→items hierarchy of one trip,
// loaded in display order.
type PlanTree struct {
	Stops []domain.TripStop
	Days  []domain.TripDay
	Items []domain.TripItem
}

type TripRepo interface {
	GetByID(dbc dbctx.Context, id uuid.UUID) (*domain.Trip, error)
	GetByIDForUpdate(dbc dbctx.Context, id uuid.UUID) (*domain.Trip, error)
	LoadPlanTree(dbc dbctx.Context, tripID uuid.UUID) (*PlanTree, error)
	DeletePlanTree(dbc dbctx.Context, tripID uuid.UUID) error
	CreateStop(dbc dbctx.Context, stop *domain.TripStop) error
	CreateDay(dbc dbctx.Context, day *domain.TripDay) error
	CreateItems(dbc dbctx.Context, items []*domain.TripItem) error
	UpdateFieldsByVersion(dbc dbctx.Context, id uuid.UUID, expectedVersion int, updates map[string]interface{}) (bool, error)
}

type tripRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewTripRepo(db *gorm.DB, baseLog *logger.Logger) TripRepo {
	return &tripRepo{
		db:  db,
		log: baseLog.With("repo", "TripRepo"),
	}
}

func (r *tripRepo) base(dbc dbctx.Context) *gorm.DB {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}
	return transaction.WithContext(dbc.Ctx)
}

func (r *tripRepo) GetByID(dbc dbctx.Context, id uuid.UUID) (*domain.Trip, error) {
	if id == uuid.Nil {
		return nil, nil
	}
	var t domain.Trip
	err := r.base(dbc).Where("id = ?", id).First(&t).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &t, nil
}

// GetByIDForUpdate row-locks the trip for the duration of the surrounding
// transaction. The trip row is the unit of mutual exclusion for plan writes.
func (r *tripRepo) GetByIDForUpdate(dbc dbctx.Context, id uuid.UUID) (*domain.Trip, error) {
	if id == uuid.Nil {
		return nil, nil
	}
	var t domain.Trip
	err := r.base(dbc).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("id = ?", id).
		First(&t).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &t, nil
}

func (r *tripRepo) LoadPlanTree(dbc dbctx.Context, tripID uuid.UUID) (*PlanTree, error) {
	tree := &PlanTree{}
	if err := r.base(dbc).
		Where("trip_id = ?", tripID).
		Order("order_index ASC").
		Find(&tree.Stops).Error; err != nil {
		return nil, err
	}
	if err := r.base(dbc).
		Where("trip_id = ?", tripID).
		Order("day_index ASC").
		Find(&tree.Days).Error; err != nil {
		return nil, err
	}
	if err := r.base(dbc).
		Where("trip_id = ?", tripID).
		Order("day_id ASC, order_index ASC").
		Find(&tree.Items).Error; err != nil {
		return nil, err
	}
	return tree, nil
}

// DeletePlanTree hard-deletes items, then days, then stops. Child-first so a
// failure mid-way never leaves orphaned children behind a missing parent.
func (r *tripRepo) DeletePlanTree(dbc dbctx.Context, tripID uuid.UUID) error {
	if err := r.base(dbc).Where("trip_id = ?", tripID).Delete(&domain.TripItem{}).Error; err != nil {
		return err
	}
	if err := r.base(dbc).Where("trip_id = ?", tripID).Delete(&domain.TripDay{}).Error; err != nil {
		return err
	}
	return r.base(dbc).Where("trip_id = ?", tripID).Delete(&domain.TripStop{}).Error
}

func (r *tripRepo) CreateStop(dbc dbctx.Context, stop *domain.TripStop) error {
	return r.base(dbc).Create(stop).Error
}

func (r *tripRepo) CreateDay(dbc dbctx.Context, day *domain.TripDay) error {
	return r.base(dbc).Create(day).Error
}

func (r *tripRepo) CreateItems(dbc dbctx.Context, items []*domain.TripItem) error {
	if len(items) == 0 {
		return nil
	}
	return r.base(dbc).Create(&items).Error
}

// UpdateFieldsByVersion is a compare-and-set on the trip's current_version.
// Returns false when the version moved underneath the caller.
func (r *tripRepo) UpdateFieldsByVersion(dbc dbctx.Context, id uuid.UUID, expectedVersion int, updates map[string]interface{}) (bool, error) {
	res := r.base(dbc).
		Model(&domain.Trip{}).
		Where("id = ? AND current_version = ?", id, expectedVersion).
		Updates(updates)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}
