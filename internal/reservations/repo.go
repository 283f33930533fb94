package reservations

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/stocklane-io/stocklane-backend/pkg/db/models"
	"github.com/stocklane-io/stocklane-backend/pkg/enums"
)

// Repository manages reservation rows.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	Create(ctx context.Context, reservation *models.Reservation) error
	// GetForUpdate loads a tenant's reservation, locked on Postgres so two
	// concurrent commits of the same hold serialize.
	GetForUpdate(ctx context.Context, tenantID, reservationID uuid.UUID) (*models.Reservation, error)
	Get(ctx context.Context, tenantID, reservationID uuid.UUID) (*models.Reservation, error)
	Save(ctx context.Context, reservation *models.Reservation) error
	ListByKey(ctx context.Context, tenantID, storeID, variantID uuid.UUID, status enums.ReservationStatus) ([]models.Reservation, error)
}

type repository struct {
	db *gorm.DB
}

// NewRepository returns a reservation repository bound to the provided database.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

func (r *repository) Create(ctx context.Context, reservation *models.Reservation) error {
	return r.db.WithContext(ctx).Create(reservation).Error
}

func (r *repository) GetForUpdate(ctx context.Context, tenantID, reservationID uuid.UUID) (*models.Reservation, error) {
	q := r.db.WithContext(ctx).
		Where("tenant_id = ? AND id = ?", tenantID, reservationID)
	if r.db.Dialector.Name() == "postgres" {
		q = q.Clauses(clause.Locking{Strength: "UPDATE"})
	}

	var reservation models.Reservation
	err := q.First(&reservation).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &reservation, nil
}

func (r *repository) Get(ctx context.Context, tenantID, reservationID uuid.UUID) (*models.Reservation, error) {
	var reservation models.Reservation
	err := r.db.WithContext(ctx).
		Where("tenant_id = ? AND id = ?", tenantID, reservationID).
		First(&reservation).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &reservation, nil
}

func (r *repository) Save(ctx context.Context, reservation *models.Reservation) error {
	return r.db.WithContext(ctx).
		Model(&models.Reservation{}).
		Where("id = ?", reservation.ID).
		Updates(map[string]any{
			"status":       reservation.Status,
			"committed_at": reservation.CommittedAt,
			"released_at":  reservation.ReleasedAt,
		}).Error
}

func (r *repository) ListByKey(ctx context.Context, tenantID, storeID, variantID uuid.UUID, status enums.ReservationStatus) ([]models.Reservation, error) {
	q := r.db.WithContext(ctx).
		Where("tenant_id = ? AND store_id = ? AND variant_id = ?", tenantID, storeID, variantID)
	if status != "" {
		q = q.Where("status = ?", status)
	}

	var reservations []models.Reservation
	if err := q.Order("created_at ASC").Find(&reservations).Error; err != nil {
		return nil, err
	}
	return reservations, nil
}
