package ledger

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/stocklane-io/stocklane-backend/internal/inventory"
	"github.com/stocklane-io/stocklane-backend/pkg/db"
	"github.com/stocklane-io/stocklane-backend/pkg/db/models"
	"github.com/stocklane-io/stocklane-backend/pkg/enums"
	pkgerrors "github.com/stocklane-io/stocklane-backend/pkg/errors"
	"github.com/stocklane-io/stocklane-backend/pkg/logger"
	"github.com/stocklane-io/stocklane-backend/pkg/outbox"
	"github.com/stocklane-io/stocklane-backend/pkg/outbox/payloads"
	"github.com/stocklane-io/stocklane-backend/pkg/pagination"
)

// PostInput describes one stock movement to append.
type PostInput struct {
	TenantID  uuid.UUID
	StoreID   uuid.UUID
	VariantID uuid.UUID
	QtyDelta  int
	// ReservedDelta adjusts the soft-hold counter in the same transaction.
	// Only the reservation flows set it; it never appears on the ledger row.
	ReservedDelta int
	RefType       enums.LedgerRefType
	RefID         *uuid.UUID
	CreatedBy     uuid.UUID
	// AllowNegative permits on-hand dropping below zero. Callers derive it
	// from the store's backorder policy, never from client input.
	AllowNegative bool
}

// Page is one page of ledger history. NextSequence is zero on the last page;
// otherwise callers pass it back as after_sequence to continue.
type Page struct {
	Entries      []models.StockLedgerEntry
	NextSequence int64
}

// Service appends and reads stock ledger entries.
type Service interface {
	// Post appends an entry in its own transaction.
	Post(ctx context.Context, input PostInput) (*models.StockLedgerEntry, error)
	// PostTx appends an entry on the caller's transaction. The ledger row,
	// the inventory update and the outbox event commit atomically with
	// whatever else the caller is writing.
	PostTx(ctx context.Context, tx *gorm.DB, input PostInput) (*models.StockLedgerEntry, error)
	ListByKey(ctx context.Context, tenantID, storeID, variantID uuid.UUID, limit int, afterSequence int64) (*Page, error)
	// Search pages entries across the tenant with optional store, variant,
	// ref type and time range filters.
	Search(ctx context.Context, tenantID uuid.UUID, filter EntryFilter, params pagination.Params) ([]models.StockLedgerEntry, string, error)
}

type service struct {
	client  db.TxRunner
	repo    Repository
	invRepo inventory.Repository
	events  *outbox.Service
	logg    *logger.Logger
}

// NewService wires the ledger service.
func NewService(client db.TxRunner, repo Repository, invRepo inventory.Repository, events *outbox.Service, logg *logger.Logger) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("ledger repository required")
	}
	if invRepo == nil {
		return nil, fmt.Errorf("inventory repository required")
	}
	return &service{client: client, repo: repo, invRepo: invRepo, events: events, logg: logg}, nil
}

func (s *service) Post(ctx context.Context, input PostInput) (*models.StockLedgerEntry, error) {
	if s.client == nil {
		return nil, fmt.Errorf("db client required for standalone posts")
	}
	var entry *models.StockLedgerEntry
	err := s.client.WithTx(ctx, func(tx *gorm.DB) error {
		posted, err := s.PostTx(ctx, tx, input)
		if err != nil {
			return err
		}
		entry = posted
		return nil
	})
	if err != nil {
		return nil, err
	}
	return entry, nil
}

func (s *service) PostTx(ctx context.Context, tx *gorm.DB, input PostInput) (*models.StockLedgerEntry, error) {
	if tx == nil {
		return nil, fmt.Errorf("transaction required")
	}
	if err := validatePostInput(input); err != nil {
		return nil, err
	}

	invRepo := s.invRepo.WithTx(tx)
	repo := s.repo.WithTx(tx)

	// The inventory row lock is the per-key serialization point. Sequence
	// assignment, the negative check and the balance write all happen under it.
	item, err := invRepo.LockForUpdate(ctx, input.TenantID, input.StoreID, input.VariantID)
	if err != nil {
		return nil, err
	}

	newOnHand := item.OnHand + input.QtyDelta
	if newOnHand < 0 && !input.AllowNegative {
		return nil, pkgerrors.New(pkgerrors.CodeInsufficientStock,
			fmt.Sprintf("movement would drive on-hand to %d", newOnHand)).
			WithDetails(map[string]any{
				"store_id":   input.StoreID.String(),
				"variant_id": input.VariantID.String(),
				"on_hand":    item.OnHand,
				"qty_delta":  input.QtyDelta,
			})
	}

	newReserved := item.Reserved + input.ReservedDelta
	if newReserved < 0 {
		return nil, pkgerrors.New(pkgerrors.CodeStateConflict,
			fmt.Sprintf("reserved would drop to %d", newReserved))
	}

	seq, err := repo.MaxSequence(ctx, input.TenantID, input.StoreID, input.VariantID)
	if err != nil {
		return nil, err
	}

	entry := &models.StockLedgerEntry{
		ID:           uuid.New(),
		TenantID:     input.TenantID,
		StoreID:      input.StoreID,
		VariantID:    input.VariantID,
		QtyDelta:     input.QtyDelta,
		BalanceAfter: newOnHand,
		RefType:      input.RefType,
		RefID:        input.RefID,
		CreatedBy:    input.CreatedBy,
		Sequence:     seq + 1,
	}
	if err := repo.Create(ctx, entry); err != nil {
		return nil, err
	}

	item.OnHand = newOnHand
	item.Reserved = newReserved
	if err := invRepo.Save(ctx, item); err != nil {
		return nil, err
	}

	if s.events != nil {
		err := s.events.Emit(ctx, tx, outbox.DomainEvent{
			TenantID:      input.TenantID,
			EventType:     enums.EventStockChanged,
			AggregateType: enums.AggregateLedgerEntry,
			AggregateID:   entry.ID,
			Data: payloads.StockChangedEvent{
				LedgerEntryID: entry.ID,
				StoreID:       entry.StoreID,
				VariantID:     entry.VariantID,
				QtyDelta:      entry.QtyDelta,
				BalanceAfter:  entry.BalanceAfter,
				RefType:       entry.RefType,
				RefID:         entry.RefID,
			},
		})
		if err != nil {
			return nil, err
		}
	}

	if s.logg != nil {
		fields := map[string]any{
			"ref_type":      string(entry.RefType),
			"qty_delta":     entry.QtyDelta,
			"balance_after": entry.BalanceAfter,
			"sequence":      entry.Sequence,
		}
		lctx := s.logg.WithStoreID(s.logg.WithVariantID(ctx, entry.VariantID.String()), entry.StoreID.String())
		s.logg.Info(s.logg.WithFields(lctx, fields), "ledger entry posted")
	}
	return entry, nil
}

func (s *service) ListByKey(ctx context.Context, tenantID, storeID, variantID uuid.UUID, limit int, afterSequence int64) (*Page, error) {
	if tenantID == uuid.Nil || storeID == uuid.Nil || variantID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "tenant, store and variant ids are required")
	}
	if afterSequence < 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "after_sequence must not be negative")
	}

	limit = pagination.NormalizeLimit(limit)
	entries, err := s.repo.ListByKey(ctx, tenantID, storeID, variantID, limit+1, afterSequence)
	if err != nil {
		return nil, err
	}

	page := &Page{Entries: entries}
	if len(entries) > limit {
		page.Entries = entries[:limit]
		page.NextSequence = page.Entries[limit-1].Sequence
	}
	return page, nil
}

func (s *service) Search(ctx context.Context, tenantID uuid.UUID, filter EntryFilter, params pagination.Params) ([]models.StockLedgerEntry, string, error) {
	if tenantID == uuid.Nil {
		return nil, "", pkgerrors.New(pkgerrors.CodeValidation, "tenant id is required")
	}
	if filter.RefType != "" && !filter.RefType.IsValid() {
		return nil, "", pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("invalid ref type %q", filter.RefType))
	}
	if !filter.From.IsZero() && !filter.To.IsZero() && filter.To.Before(filter.From) {
		return nil, "", pkgerrors.New(pkgerrors.CodeValidation, "time range end precedes its start")
	}

	cursor, err := pagination.ParseCursor(params.Cursor)
	if err != nil {
		return nil, "", pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid cursor")
	}

	limit := pagination.NormalizeLimit(params.Limit)
	entries, err := s.repo.Search(ctx, tenantID, filter, limit+1, cursor)
	if err != nil {
		return nil, "", err
	}

	next := ""
	if len(entries) > limit {
		entries = entries[:limit]
		last := entries[limit-1]
		next = pagination.EncodeCursor(pagination.Cursor{CreatedAt: last.CreatedAt, ID: last.ID})
	}
	return entries, next, nil
}

func validatePostInput(input PostInput) error {
	if input.TenantID == uuid.Nil {
		return pkgerrors.New(pkgerrors.CodeValidation, "tenant id is required")
	}
	if input.StoreID == uuid.Nil {
		return pkgerrors.New(pkgerrors.CodeValidation, "store id is required")
	}
	if input.VariantID == uuid.Nil {
		return pkgerrors.New(pkgerrors.CodeValidation, "variant id is required")
	}
	if input.CreatedBy == uuid.Nil {
		return pkgerrors.New(pkgerrors.CodeValidation, "created_by is required")
	}
	if !input.RefType.IsValid() {
		return pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("invalid ref type %q", input.RefType))
	}
	if input.QtyDelta == 0 && !input.RefType.AllowsZeroDelta() {
		return pkgerrors.New(pkgerrors.CodeValidation,
			fmt.Sprintf("qty_delta must be nonzero for ref type %q", input.RefType))
	}
	return nil
}
