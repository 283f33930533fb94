package inventory

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	pkgerrors "github.com/stocklane-io/stocklane-backend/pkg/errors"
)

// InTransitSource reports stock on the road toward a store. Implemented by the
// transfer repository; declared here so availability does not depend on the
// transfer package.
type InTransitSource interface {
	InboundOutstanding(ctx context.Context, tenantID, toStoreID, variantID uuid.UUID) (int, error)
}

// Availability is the read-side view of one (store, variant) key.
type Availability struct {
	TenantID  uuid.UUID `json:"tenant_id"`
	StoreID   uuid.UUID `json:"store_id"`
	VariantID uuid.UUID `json:"variant_id"`
	OnHand    int       `json:"on_hand"`
	Reserved  int       `json:"reserved"`
	Available int       `json:"available"`
	InTransit int       `json:"in_transit"`
}

// Service answers availability queries.
type Service interface {
	GetAvailability(ctx context.Context, tenantID, storeID, variantID uuid.UUID) (*Availability, error)
	ListStoreAvailability(ctx context.Context, tenantID, storeID uuid.UUID) ([]Availability, error)
}

type service struct {
	repo    Repository
	transit InTransitSource
}

// NewService wires an inventory read service. The transit source may be nil,
// in which case in-transit quantities report as zero.
func NewService(repo Repository, transit InTransitSource) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("inventory repository required")
	}
	return &service{repo: repo, transit: transit}, nil
}

// GetAvailability returns the aggregate for a key. A key with no movements yet
// reports all zeroes rather than not-found; absence of a row is a valid state.
func (s *service) GetAvailability(ctx context.Context, tenantID, storeID, variantID uuid.UUID) (*Availability, error) {
	if tenantID == uuid.Nil || storeID == uuid.Nil || variantID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "tenant, store and variant ids are required")
	}

	out := &Availability{TenantID: tenantID, StoreID: storeID, VariantID: variantID}

	item, err := s.repo.Get(ctx, tenantID, storeID, variantID)
	if err != nil {
		return nil, err
	}
	if item != nil {
		out.OnHand = item.OnHand
		out.Reserved = item.Reserved
		out.Available = item.Available()
	}

	if s.transit != nil {
		inTransit, err := s.transit.InboundOutstanding(ctx, tenantID, storeID, variantID)
		if err != nil {
			return nil, err
		}
		out.InTransit = inTransit
	}
	return out, nil
}

func (s *service) ListStoreAvailability(ctx context.Context, tenantID, storeID uuid.UUID) ([]Availability, error) {
	if tenantID == uuid.Nil || storeID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "tenant and store ids are required")
	}

	items, err := s.repo.ListByStore(ctx, tenantID, storeID)
	if err != nil {
		return nil, err
	}

	out := make([]Availability, 0, len(items))
	for _, item := range items {
		row := Availability{
			TenantID:  item.TenantID,
			StoreID:   item.StoreID,
			VariantID: item.VariantID,
			OnHand:    item.OnHand,
			Reserved:  item.Reserved,
			Available: item.Available(),
		}
		if s.transit != nil {
			inTransit, err := s.transit.InboundOutstanding(ctx, tenantID, storeID, item.VariantID)
			if err != nil {
				return nil, err
			}
			row.InTransit = inTransit
		}
		out = append(out, row)
	}
	return out, nil
}
