package reservations

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/stocklane-io/stocklane-backend/internal/inventory"
	"github.com/stocklane-io/stocklane-backend/internal/ledger"
	"github.com/stocklane-io/stocklane-backend/internal/stores"
	"github.com/stocklane-io/stocklane-backend/pkg/db"
	"github.com/stocklane-io/stocklane-backend/pkg/db/models"
	"github.com/stocklane-io/stocklane-backend/pkg/enums"
	pkgerrors "github.com/stocklane-io/stocklane-backend/pkg/errors"
	"github.com/stocklane-io/stocklane-backend/pkg/logger"
)

// ReserveInput describes a soft hold request.
type ReserveInput struct {
	TenantID  uuid.UUID
	StoreID   uuid.UUID
	VariantID uuid.UUID
	Quantity  int
	Channel   enums.ReservationChannel
	RefType   string
	RefID     *uuid.UUID
	CreatedBy uuid.UUID
}

// Service manages the reserve, commit and release lifecycle.
type Service interface {
	Reserve(ctx context.Context, input ReserveInput) (*models.Reservation, error)
	Commit(ctx context.Context, tenantID, reservationID, actor uuid.UUID) (*models.Reservation, error)
	Release(ctx context.Context, tenantID, reservationID, actor uuid.UUID) (*models.Reservation, error)
	Get(ctx context.Context, tenantID, reservationID uuid.UUID) (*models.Reservation, error)
}

type service struct {
	client    db.TxRunner
	repo      Repository
	invRepo   inventory.Repository
	ledgerSvc ledger.Service
	storeSvc  stores.Service
	logg      *logger.Logger
}

// NewService wires the reservation service.
func NewService(client db.TxRunner, repo Repository, invRepo inventory.Repository, ledgerSvc ledger.Service, storeSvc stores.Service, logg *logger.Logger) (Service, error) {
	if client == nil {
		return nil, fmt.Errorf("tx runner required")
	}
	if repo == nil {
		return nil, fmt.Errorf("reservation repository required")
	}
	if invRepo == nil {
		return nil, fmt.Errorf("inventory repository required")
	}
	if ledgerSvc == nil {
		return nil, fmt.Errorf("ledger service required")
	}
	return &service{client: client, repo: repo, invRepo: invRepo, ledgerSvc: ledgerSvc, storeSvc: storeSvc, logg: logg}, nil
}

// Reserve places a hold against available stock. It never posts a ledger
// entry; only the reserved counter moves. Stores with backorders enabled may
// hold more than is currently available.
func (s *service) Reserve(ctx context.Context, input ReserveInput) (*models.Reservation, error) {
	if input.TenantID == uuid.Nil || input.StoreID == uuid.Nil || input.VariantID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "tenant, store and variant ids are required")
	}
	if input.CreatedBy == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "created_by is required")
	}
	if input.Quantity <= 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "quantity must be positive")
	}
	if !input.Channel.IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("invalid channel %q", input.Channel))
	}

	var reservation *models.Reservation
	err := s.client.WithTx(ctx, func(tx *gorm.DB) error {
		invRepo := s.invRepo.WithTx(tx)
		item, err := invRepo.LockForUpdate(ctx, input.TenantID, input.StoreID, input.VariantID)
		if err != nil {
			return err
		}

		allowBackorder := false
		if s.storeSvc != nil {
			allowBackorder, err = s.storeSvc.AllowsNegativeStock(ctx, input.TenantID, input.StoreID)
			if err != nil {
				return err
			}
		}
		if !allowBackorder && item.Available() < input.Quantity {
			return pkgerrors.New(pkgerrors.CodeInsufficientStock,
				fmt.Sprintf("requested %d but only %d available", input.Quantity, item.Available())).
				WithDetails(map[string]any{
					"store_id":   input.StoreID.String(),
					"variant_id": input.VariantID.String(),
					"requested":  input.Quantity,
					"available":  item.Available(),
				})
		}

		item.Reserved += input.Quantity
		if err := invRepo.Save(ctx, item); err != nil {
			return err
		}

		reservation = &models.Reservation{
			ID:        uuid.New(),
			TenantID:  input.TenantID,
			StoreID:   input.StoreID,
			VariantID: input.VariantID,
			Quantity:  input.Quantity,
			Status:    enums.ReservationStatusActive,
			RefType:   input.RefType,
			RefID:     input.RefID,
			Channel:   input.Channel,
			CreatedBy: input.CreatedBy,
		}
		return s.repo.WithTx(tx).Create(ctx, reservation)
	})
	if err != nil {
		return nil, err
	}

	if s.logg != nil {
		s.logg.Info(s.logg.WithFields(ctx, map[string]any{
			"reservation_id": reservation.ID.String(),
			"quantity":       reservation.Quantity,
			"channel":        string(reservation.Channel),
		}), "reservation placed")
	}
	return reservation, nil
}

// Commit turns an active hold into a real deduction: one ledger entry with a
// negative delta, reserved dropping by the held quantity, both atomic.
func (s *service) Commit(ctx context.Context, tenantID, reservationID, actor uuid.UUID) (*models.Reservation, error) {
	return s.settle(ctx, tenantID, reservationID, actor, enums.ReservationStatusCommitted)
}

// Release abandons an active hold. Stock never moved, so the ledger entry is
// a zero-delta audit record of the hold coming off.
func (s *service) Release(ctx context.Context, tenantID, reservationID, actor uuid.UUID) (*models.Reservation, error) {
	return s.settle(ctx, tenantID, reservationID, actor, enums.ReservationStatusReleased)
}

func (s *service) settle(ctx context.Context, tenantID, reservationID, actor uuid.UUID, target enums.ReservationStatus) (*models.Reservation, error) {
	if tenantID == uuid.Nil || reservationID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "tenant and reservation ids are required")
	}
	if actor == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "actor is required")
	}

	var reservation *models.Reservation
	err := s.client.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		found, err := repo.GetForUpdate(ctx, tenantID, reservationID)
		if err != nil {
			return err
		}
		if found == nil {
			return pkgerrors.New(pkgerrors.CodeNotFound, fmt.Sprintf("reservation %s not found", reservationID))
		}
		if found.Status != enums.ReservationStatusActive {
			return pkgerrors.New(pkgerrors.CodeStateConflict,
				fmt.Sprintf("reservation %s is %s, not active", reservationID, found.Status)).
				WithDetails(map[string]any{
					"reservation_id": reservationID.String(),
					"status":         string(found.Status),
				})
		}

		post := ledger.PostInput{
			TenantID:      found.TenantID,
			StoreID:       found.StoreID,
			VariantID:     found.VariantID,
			ReservedDelta: -found.Quantity,
			RefID:         &found.ID,
			CreatedBy:     actor,
		}

		now := time.Now().UTC()
		switch target {
		case enums.ReservationStatusCommitted:
			post.QtyDelta = -found.Quantity
			post.RefType = enums.LedgerRefTypeReservationCommit
			if s.storeSvc != nil {
				allow, err := s.storeSvc.AllowsNegativeStock(ctx, found.TenantID, found.StoreID)
				if err != nil {
					return err
				}
				post.AllowNegative = allow
			}
			found.CommittedAt = &now
		case enums.ReservationStatusReleased:
			post.QtyDelta = 0
			post.RefType = enums.LedgerRefTypeReservationRelease
			found.ReleasedAt = &now
		default:
			return pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("unsupported target status %q", target))
		}

		if _, err := s.ledgerSvc.PostTx(ctx, tx, post); err != nil {
			return err
		}

		found.Status = target
		if err := repo.Save(ctx, found); err != nil {
			return err
		}
		reservation = found
		return nil
	})
	if err != nil {
		return nil, err
	}

	if s.logg != nil {
		s.logg.Info(s.logg.WithFields(ctx, map[string]any{
			"reservation_id": reservation.ID.String(),
			"status":         string(reservation.Status),
		}), "reservation settled")
	}
	return reservation, nil
}

func (s *service) Get(ctx context.Context, tenantID, reservationID uuid.UUID) (*models.Reservation, error) {
	if tenantID == uuid.Nil || reservationID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "tenant and reservation ids are required")
	}
	reservation, err := s.repo.Get(ctx, tenantID, reservationID)
	if err != nil {
		return nil, err
	}
	if reservation == nil {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, fmt.Sprintf("reservation %s not found", reservationID))
	}
	return reservation, nil
}
