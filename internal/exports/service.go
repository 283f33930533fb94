package exports

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/stocklane-io/stocklane-backend/pkg/db"
	"github.com/stocklane-io/stocklane-backend/pkg/db/models"
	"github.com/stocklane-io/stocklane-backend/pkg/enums"
	pkgerrors "github.com/stocklane-io/stocklane-backend/pkg/errors"
	"github.com/stocklane-io/stocklane-backend/pkg/logger"
	"github.com/stocklane-io/stocklane-backend/pkg/pagination"
)

// Batch is one delta export page. Exactly one of the row slices is populated,
// matching the requested resource.
type Batch struct {
	Resource       enums.ExportResource       `json:"resource"`
	LedgerEntries  []models.StockLedgerEntry  `json:"ledger_entries,omitempty"`
	Transfers      []models.InventoryTransfer `json:"transfers,omitempty"`
	CountSessions  []models.CountSession      `json:"count_sessions,omitempty"`
	PurchaseOrders []models.PurchaseOrder     `json:"purchase_orders,omitempty"`
	Count          int                        `json:"count"`
	HasMore        bool                       `json:"has_more"`
	ExportedAt     time.Time                  `json:"exported_at"`
}

// Service streams rows created since the tenant's last export. Each call
// advances the stored cursor, so a row is handed out once per resource.
// Cursors never rewind; a consumer that loses a batch re-syncs from scratch
// by resetting the cursor row.
type Service interface {
	Export(ctx context.Context, tenantID uuid.UUID, resource enums.ExportResource, limit int) (*Batch, error)
	Cursor(ctx context.Context, tenantID uuid.UUID, resource enums.ExportResource) (*models.ExportCursor, error)
}

type service struct {
	client db.TxRunner
	repo   Repository
	logg   *logger.Logger
}

// NewService wires the delta export service.
func NewService(client db.TxRunner, repo Repository, logg *logger.Logger) (Service, error) {
	if client == nil {
		return nil, fmt.Errorf("tx runner required")
	}
	if repo == nil {
		return nil, fmt.Errorf("export repository required")
	}
	return &service{client: client, repo: repo, logg: logg}, nil
}

func (s *service) Export(ctx context.Context, tenantID uuid.UUID, resource enums.ExportResource, limit int) (*Batch, error) {
	if tenantID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "tenant id is required")
	}
	if !resource.IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("unknown export resource %q", resource))
	}
	fetch := pagination.LimitWithBuffer(limit)
	pageSize := pagination.NormalizeLimit(limit)

	var batch *Batch
	err := s.client.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)

		cursor, err := repo.GetCursorForUpdate(ctx, tenantID, resource)
		if err != nil {
			return err
		}
		var after time.Time
		var afterID uuid.UUID
		if cursor != nil {
			after = cursor.LastExportedAt
			afterID = cursor.LastExportedID
		}

		batch = &Batch{Resource: resource, ExportedAt: time.Now().UTC()}
		var lastID uuid.UUID
		var lastAt time.Time

		switch resource {
		case enums.ExportResourceLedgerEntries:
			rows, err := repo.LedgerEntriesAfter(ctx, tenantID, after, afterID, fetch)
			if err != nil {
				return err
			}
			if len(rows) > pageSize {
				batch.HasMore = true
				rows = rows[:pageSize]
			}
			batch.LedgerEntries = rows
			batch.Count = len(rows)
			if len(rows) > 0 {
				last := rows[len(rows)-1]
				lastID, lastAt = last.ID, last.CreatedAt
			}
		case enums.ExportResourceTransfers:
			rows, err := repo.TransfersAfter(ctx, tenantID, after, afterID, fetch)
			if err != nil {
				return err
			}
			if len(rows) > pageSize {
				batch.HasMore = true
				rows = rows[:pageSize]
			}
			batch.Transfers = rows
			batch.Count = len(rows)
			if len(rows) > 0 {
				last := rows[len(rows)-1]
				lastID, lastAt = last.ID, last.CreatedAt
			}
		case enums.ExportResourceCountSessions:
			rows, err := repo.CountSessionsAfter(ctx, tenantID, after, afterID, fetch)
			if err != nil {
				return err
			}
			if len(rows) > pageSize {
				batch.HasMore = true
				rows = rows[:pageSize]
			}
			batch.CountSessions = rows
			batch.Count = len(rows)
			if len(rows) > 0 {
				last := rows[len(rows)-1]
				lastID, lastAt = last.ID, last.CreatedAt
			}
		case enums.ExportResourcePurchaseOrders:
			rows, err := repo.PurchaseOrdersAfter(ctx, tenantID, after, afterID, fetch)
			if err != nil {
				return err
			}
			if len(rows) > pageSize {
				batch.HasMore = true
				rows = rows[:pageSize]
			}
			batch.PurchaseOrders = rows
			batch.Count = len(rows)
			if len(rows) > 0 {
				last := rows[len(rows)-1]
				lastID, lastAt = last.ID, last.CreatedAt
			}
		}

		if batch.Count == 0 {
			return nil
		}
		return repo.SaveCursor(ctx, &models.ExportCursor{
			TenantID:       tenantID,
			Resource:       resource,
			LastExportedID: lastID,
			LastExportedAt: lastAt,
		})
	})
	if err != nil {
		return nil, err
	}

	if s.logg != nil && batch.Count > 0 {
		lctx := s.logg.WithTenantID(ctx, tenantID.String())
		lctx = s.logg.WithField(lctx, "resource", string(resource))
		s.logg.Info(s.logg.WithField(lctx, "rows", batch.Count), "delta export batch served")
	}
	return batch, nil
}

func (s *service) Cursor(ctx context.Context, tenantID uuid.UUID, resource enums.ExportResource) (*models.ExportCursor, error) {
	if tenantID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "tenant id is required")
	}
	if !resource.IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("unknown export resource %q", resource))
	}
	return s.repo.GetCursorForUpdate(ctx, tenantID, resource)
}
