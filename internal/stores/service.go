package stores

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/stocklane-io/stocklane-backend/pkg/db/models"
	pkgerrors "github.com/stocklane-io/stocklane-backend/pkg/errors"
)

// Service exposes store lookups and the per-store backorder policy.
type Service interface {
	RequireActive(ctx context.Context, tenantID, storeID uuid.UUID) (*models.Store, error)
	AllowsNegativeStock(ctx context.Context, tenantID, storeID uuid.UUID) (bool, error)
}

type service struct {
	repo Repository
}

// NewService wires a store service with the provided repository.
func NewService(repo Repository) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("store repository required")
	}
	return &service{repo: repo}, nil
}

func (s *service) RequireActive(ctx context.Context, tenantID, storeID uuid.UUID) (*models.Store, error) {
	if tenantID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "tenant id is required")
	}
	if storeID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "store id is required")
	}

	store, err := s.repo.Get(ctx, tenantID, storeID)
	if err != nil {
		return nil, err
	}
	if store == nil {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, fmt.Sprintf("store %s not found", storeID))
	}
	if !store.Active {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("store %s is inactive", storeID)).
			WithDetails(map[string]any{"store_id": storeID.String()})
	}
	return store, nil
}

// AllowsNegativeStock reports whether the store accepts on-hand going below
// zero. Only outbound sales honor this flag; reservations never oversell.
func (s *service) AllowsNegativeStock(ctx context.Context, tenantID, storeID uuid.UUID) (bool, error) {
	store, err := s.RequireActive(ctx, tenantID, storeID)
	if err != nil {
		return false, err
	}
	return store.BackordersEnabled, nil
}
