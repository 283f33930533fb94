package reconcile

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"go.uber.org/multierr"

	"github.com/stocklane-io/stocklane-backend/internal/inventory"
	pkgerrors "github.com/stocklane-io/stocklane-backend/pkg/errors"
	"github.com/stocklane-io/stocklane-backend/pkg/logger"
)

// MismatchKind classifies one detected drift.
type MismatchKind string

const (
	MismatchDeltaSum     MismatchKind = "delta_sum"     // SUM(qty_delta) != on_hand
	MismatchLastBalance  MismatchKind = "last_balance"  // last balance_after != on_hand
	MismatchReservations MismatchKind = "reservations"  // active holds != reserved
	MismatchNegativeHold MismatchKind = "negative_hold" // reserved < 0
)

// Mismatch is one key that failed a check.
type Mismatch struct {
	StoreID   uuid.UUID    `json:"store_id"`
	VariantID uuid.UUID    `json:"variant_id"`
	Kind      MismatchKind `json:"kind"`
	Expected  int64        `json:"expected"`
	Actual    int64        `json:"actual"`
}

// Report summarizes one tenant's reconciliation run.
type Report struct {
	TenantID    uuid.UUID  `json:"tenant_id"`
	CheckedKeys int        `json:"checked_keys"`
	Mismatches  []Mismatch `json:"mismatches"`
}

// Clean reports whether the tenant's books balance.
func (r *Report) Clean() bool {
	return len(r.Mismatches) == 0
}

// Err folds every mismatch into one aggregate error, nil when clean.
func (r *Report) Err() error {
	var err error
	for _, m := range r.Mismatches {
		err = multierr.Append(err, pkgerrors.New(pkgerrors.CodeConflict,
			fmt.Sprintf("%s drift on %s/%s: expected %d, actual %d",
				m.Kind, m.StoreID, m.VariantID, m.Expected, m.Actual)))
	}
	return err
}

// Service verifies that the derived aggregates still agree with the ledger.
// It only ever reads; fixing drift is a human decision. A failing key or
// tenant is logged and folded into the returned error while the sweep keeps
// going, so one bad read never hides the rest of the books.
type Service interface {
	CheckTenant(ctx context.Context, tenantID uuid.UUID) (*Report, error)
	CheckAll(ctx context.Context) ([]Report, error)
}

type service struct {
	repo    Repository
	invRepo inventory.Repository
	logg    *logger.Logger
}

// NewService wires the reconciliation service.
func NewService(repo Repository, invRepo inventory.Repository, logg *logger.Logger) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("reconcile repository required")
	}
	if invRepo == nil {
		return nil, fmt.Errorf("inventory repository required")
	}
	return &service{repo: repo, invRepo: invRepo, logg: logg}, nil
}

func (s *service) CheckTenant(ctx context.Context, tenantID uuid.UUID) (*Report, error) {
	if tenantID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "tenant id is required")
	}

	report := &Report{TenantID: tenantID}

	items, err := s.invRepo.ListByTenant(ctx, tenantID)
	if err != nil {
		return nil, err
	}

	type key struct{ store, variant uuid.UUID }
	onHand := map[key]int{}
	reserved := map[key]int{}
	for _, item := range items {
		k := key{item.StoreID, item.VariantID}
		onHand[k] = item.OnHand
		reserved[k] = item.Reserved
	}

	ledgerSums, err := s.repo.LedgerSums(ctx, tenantID)
	if err != nil {
		return nil, err
	}
	sums := map[key]int64{}
	for _, row := range ledgerSums {
		sums[key{row.StoreID, row.VariantID}] = row.DeltaSum
	}

	holdSums, err := s.repo.ActiveReservationSums(ctx, tenantID)
	if err != nil {
		return nil, err
	}
	holds := map[key]int64{}
	for _, row := range holdSums {
		holds[key{row.StoreID, row.VariantID}] = row.DeltaSum
	}

	// Every key that appears on either side gets checked; a ledger key with
	// no inventory row counts as on-hand zero and vice versa.
	seen := map[key]bool{}
	for k := range onHand {
		seen[k] = true
	}
	for k := range sums {
		seen[k] = true
	}
	for k := range holds {
		seen[k] = true
	}

	var checkErrs error
	for k := range seen {
		report.CheckedKeys++

		if int64(onHand[k]) != sums[k] {
			report.Mismatches = append(report.Mismatches, Mismatch{
				StoreID: k.store, VariantID: k.variant,
				Kind: MismatchDeltaSum, Expected: sums[k], Actual: int64(onHand[k]),
			})
		}

		balance, found, err := s.repo.LastBalance(ctx, tenantID, k.store, k.variant)
		if err != nil {
			if s.logg != nil {
				s.logg.Error(s.logg.WithFields(ctx, map[string]any{
					"tenant_id":  tenantID.String(),
					"store_id":   k.store.String(),
					"variant_id": k.variant.String(),
				}), "reconciliation key check failed", err)
			}
			checkErrs = multierr.Append(checkErrs,
				fmt.Errorf("last balance for %s/%s: %w", k.store, k.variant, err))
		}
		if found && balance != onHand[k] {
			report.Mismatches = append(report.Mismatches, Mismatch{
				StoreID: k.store, VariantID: k.variant,
				Kind: MismatchLastBalance, Expected: int64(balance), Actual: int64(onHand[k]),
			})
		}

		if reserved[k] < 0 {
			report.Mismatches = append(report.Mismatches, Mismatch{
				StoreID: k.store, VariantID: k.variant,
				Kind: MismatchNegativeHold, Expected: 0, Actual: int64(reserved[k]),
			})
		}
		if int64(reserved[k]) != holds[k] {
			report.Mismatches = append(report.Mismatches, Mismatch{
				StoreID: k.store, VariantID: k.variant,
				Kind: MismatchReservations, Expected: holds[k], Actual: int64(reserved[k]),
			})
		}
	}

	if s.logg != nil {
		lctx := s.logg.WithTenantID(ctx, tenantID.String())
		if report.Clean() {
			s.logg.Info(s.logg.WithField(lctx, "checked_keys", report.CheckedKeys), "reconciliation clean")
		} else {
			s.logg.Error(s.logg.WithField(lctx, "mismatches", len(report.Mismatches)),
				"reconciliation drift detected", report.Err())
		}
	}
	return report, checkErrs
}

func (s *service) CheckAll(ctx context.Context) ([]Report, error) {
	tenantIDs, err := s.repo.TenantIDs(ctx)
	if err != nil {
		return nil, err
	}

	var sweepErrs error
	reports := make([]Report, 0, len(tenantIDs))
	for _, tenantID := range tenantIDs {
		report, err := s.CheckTenant(ctx, tenantID)
		if err != nil {
			if s.logg != nil {
				s.logg.Error(s.logg.WithTenantID(ctx, tenantID.String()),
					"tenant reconciliation failed", err)
			}
			sweepErrs = multierr.Append(sweepErrs, fmt.Errorf("tenant %s: %w", tenantID, err))
		}
		if report != nil {
			reports = append(reports, *report)
		}
	}
	return reports, sweepErrs
}
