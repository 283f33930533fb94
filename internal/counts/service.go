package counts

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/stocklane-io/stocklane-backend/internal/inventory"
	"github.com/stocklane-io/stocklane-backend/internal/ledger"
	"github.com/stocklane-io/stocklane-backend/pkg/db"
	"github.com/stocklane-io/stocklane-backend/pkg/db/models"
	"github.com/stocklane-io/stocklane-backend/pkg/enums"
	pkgerrors "github.com/stocklane-io/stocklane-backend/pkg/errors"
	"github.com/stocklane-io/stocklane-backend/pkg/logger"
	"github.com/stocklane-io/stocklane-backend/pkg/outbox"
	"github.com/stocklane-io/stocklane-backend/pkg/outbox/payloads"
)

// OpenInput describes a new count session.
type OpenInput struct {
	TenantID uuid.UUID
	StoreID  uuid.UUID
	Scope    enums.CountScope
	ZoneName string
	// VariantIDs limits a zone count to specific variants. Ignored for
	// full-store counts, which snapshot every tracked key in the store.
	VariantIDs []uuid.UUID
	CreatedBy  uuid.UUID
}

/// Service runs the cycle count lifecycle: open, record, finalize or cancel.
type Service interface {
	Open(ctx context.Context, input OpenInput) (*models.CountSession, error)
	RecordCount(ctx context.Context, tenantID, sessionID, lineID uuid.UUID, countedQty int) (*models.CountLine, error)
	Finalize(ctx context.Context, tenantID, sessionID, actor uuid.UUID) (*models.CountSession, error)
	Cancel(ctx context.Context, tenantID, sessionID uuid.UUID) (*models.CountSession, error)
	Get(ctx context.Context, tenantID, sessionID uuid.UUID) (*models.CountSession, error)
}

type service struct {
	client    db.TxRunner
	repo      Repository
	invRepo   inventory.Repository
	ledgerSvc ledger.Service
	events    *outbox.Service
	logg      *logger.Logger
}

// NewService wires the count service.
func NewService(client db.TxRunner, repo Repository, invRepo inventory.Repository, ledgerSvc ledger.Service, events *outbox.Service, logg *logger.Logger) (Service, error) {
	if client == nil {
		return nil, fmt.Errorf("tx runner required")
	}
	if repo == nil {
		return nil, fmt.Errorf("count repository required")
	}
	if invRepo == nil {
		return nil, fmt.Errorf("inventory repository required")
	}
	if ledgerSvc == nil {
		return nil, fmt.Errorf("ledger service required")
	}
	return &service{client: client, repo: repo, invRepo: invRepo, ledgerSvc: ledgerSvc, events: events, logg: logg}, nil
}

// Open snapshots expected quantities for the scope. The snapshot is taken
// once; stock moving during the count surfaces as variance at finalize.
func (s *service) Open(ctx context.Context, input OpenInput) (*models.CountSession, error) {
	if input.TenantID == uuid.Nil || input.StoreID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "tenant and store ids are required")
	}
	if input.CreatedBy == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "created_by is required")
	}
	if !input.Scope.IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("invalid scope %q", input.Scope))
	}
	if input.Scope == enums.CountScopeZone && len(input.VariantIDs) == 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "zone counts need at least one variant")
	}

	var session *models.CountSession
	err := s.client.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)

		// One open session per store keeps counters from stepping on each
		// other's snapshots.
		open, err := repo.HasOpenSession(ctx, input.TenantID, input.StoreID)
		if err != nil {
			return err
		}
		if open {
			return pkgerrors.New(pkgerrors.CodeConflict,
				fmt.Sprintf("store %s already has an open count session", input.StoreID))
		}

		expected := map[uuid.UUID]int{}
		switch input.Scope {
		case enums.CountScopeFullStore:
			items, err := s.invRepo.WithTx(tx).ListByStore(ctx, input.TenantID, input.StoreID)
			if err != nil {
				return err
			}
			for _, item := range items {
				expected[item.VariantID] = item.OnHand
			}
		case enums.CountScopeZone:
			for _, variantID := range input.VariantIDs {
				item, err := s.invRepo.WithTx(tx).Get(ctx, input.TenantID, input.StoreID, variantID)
				if err != nil {
					return err
				}
				if item != nil {
					expected[variantID] = item.OnHand
				} else {
					expected[variantID] = 0
				}
			}
		}

		session = &models.CountSession{
			ID:        uuid.New(),
			TenantID:  input.TenantID,
			StoreID:   input.StoreID,
			Status:    enums.CountSessionStatusOpen,
			Scope:     input.Scope,
			ZoneName:  input.ZoneName,
			CreatedBy: input.CreatedBy,
		}
		for variantID, qty := range expected {
			session.Lines = append(session.Lines, models.CountLine{
				ID:          uuid.New(),
				SessionID:   session.ID,
				VariantID:   variantID,
				ExpectedQty: qty,
			})
		}
		return repo.Create(ctx, session)
	})
	if err != nil {
		return nil, err
	}
	return session, nil
}

// RecordCount sets the physically counted quantity on a line. Recounting a
// line overwrites the previous value while the session stays open.
func (s *service) RecordCount(ctx context.Context, tenantID, sessionID, lineID uuid.UUID, countedQty int) (*models.CountLine, error) {
	if tenantID == uuid.Nil || sessionID == uuid.Nil || lineID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "tenant, session and line ids are required")
	}
	if countedQty < 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "counted qty must not be negative")
	}

	var line *models.CountLine
	err := s.client.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		session, err := repo.GetForUpdate(ctx, tenantID, sessionID)
		if err != nil {
			return err
		}
		if session == nil {
			return pkgerrors.New(pkgerrors.CodeNotFound, fmt.Sprintf("count session %s not found", sessionID))
		}
		if session.Status != enums.CountSessionStatusOpen {
			return sessionStateError(session)
		}

		for i := range session.Lines {
			if session.Lines[i].ID == lineID {
				line = &session.Lines[i]
				break
			}
		}
		if line == nil {
			return pkgerrors.New(pkgerrors.CodeNotFound,
				fmt.Sprintf("line %s not part of session %s", lineID, sessionID))
		}

		line.CountedQty = &countedQty
		return repo.SaveLine(ctx, line)
	})
	if err != nil {
		return nil, err
	}
	return line, nil
}

// Finalize posts one count_reconcile entry per counted line with nonzero
// variance. Uncounted lines are skipped, not treated as zero.
func (s *service) Finalize(ctx context.Context, tenantID, sessionID, actor uuid.UUID) (*models.CountSession, error) {
	if actor == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "actor is required")
	}

	var session *models.CountSession
	err := s.client.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		found, err := repo.GetForUpdate(ctx, tenantID, sessionID)
		if err != nil {
			return err
		}
		if found == nil {
			return pkgerrors.New(pkgerrors.CodeNotFound, fmt.Sprintf("count session %s not found", sessionID))
		}
		if found.Status != enums.CountSessionStatusOpen {
			return sessionStateError(found)
		}

		totalVariance := 0
		for i := range found.Lines {
			line := &found.Lines[i]
			if line.CountedQty == nil {
				continue
			}
			variance := line.Variance()
			if variance == 0 {
				continue
			}
			totalVariance += variance
			// The physical count is authoritative, so the correction may
			// push on-hand wherever reality says it is.
			_, err := s.ledgerSvc.PostTx(ctx, tx, ledger.PostInput{
				TenantID:      tenantID,
				StoreID:       found.StoreID,
				VariantID:     line.VariantID,
				QtyDelta:      variance,
				RefType:       enums.LedgerRefTypeCountReconcile,
				RefID:         &found.ID,
				CreatedBy:     actor,
				AllowNegative: true,
			})
			if err != nil {
				return err
			}
		}

		now := time.Now().UTC()
		found.Status = enums.CountSessionStatusFinalized
		found.FinalizedAt = &now
		if err := repo.Save(ctx, found); err != nil {
			return err
		}

		if s.events != nil {
			err := s.events.Emit(ctx, tx, outbox.DomainEvent{
				TenantID:      tenantID,
				EventType:     enums.EventCountFinalized,
				AggregateType: enums.AggregateCountSession,
				AggregateID:   found.ID,
				Data: payloads.CountFinalizedEvent{
					SessionID:     found.ID,
					StoreID:       found.StoreID,
					Scope:         found.Scope,
					ZoneName:      found.ZoneName,
					TotalVariance: totalVariance,
					FinalizedAt:   now,
				},
			})
			if err != nil {
				return err
			}
		}
		session = found
		return nil
	})
	if err != nil {
		return nil, err
	}

	if s.logg != nil {
		s.logg.Info(s.logg.WithFields(ctx, map[string]any{
			"session_id": session.ID.String(),
			"store_id":   session.StoreID.String(),
		}), "count session finalized")
	}
	return session, nil
}

func (s *service) Cancel(ctx context.Context, tenantID, sessionID uuid.UUID) (*models.CountSession, error) {
	var session *models.CountSession
	err := s.client.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		found, err := repo.GetForUpdate(ctx, tenantID, sessionID)
		if err != nil {
			return err
		}
		if found == nil {
			return pkgerrors.New(pkgerrors.CodeNotFound, fmt.Sprintf("count session %s not found", sessionID))
		}
		if found.Status != enums.CountSessionStatusOpen {
			return sessionStateError(found)
		}

		now := time.Now().UTC()
		found.Status = enums.CountSessionStatusCancelled
		found.CancelledAt = &now
		if err := repo.Save(ctx, found); err != nil {
			return err
		}
		session = found
		return nil
	})
	if err != nil {
		return nil, err
	}
	return session, nil
}

func (s *service) Get(ctx context.Context, tenantID, sessionID uuid.UUID) (*models.CountSession, error) {
	if tenantID == uuid.Nil || sessionID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "tenant and session ids are required")
	}
	session, err := s.repo.Get(ctx, tenantID, sessionID)
	if err != nil {
		return nil, err
	}
	if session == nil {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, fmt.Sprintf("count session %s not found", sessionID))
	}
	return session, nil
}

func sessionStateError(session *models.CountSession) error {
	return pkgerrors.New(pkgerrors.CodeStateConflict,
		fmt.Sprintf("count session %s is %s, not open", session.ID, session.Status)).
		WithDetails(map[string]any{
			"session_id": session.ID.String(),
			"status":     string(session.Status),
		})
}
