package catalog

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/stocklane-io/stocklane-backend/pkg/db/models"
	pkgerrors "github.com/stocklane-io/stocklane-backend/pkg/errors"
)

// Service exposes variant lookups to the inventory core.
type Service interface {
	RequireActive(ctx context.Context, tenantID, variantID uuid.UUID) (*models.Variant, error)
	RequireActiveAll(ctx context.Context, tenantID uuid.UUID, ids []uuid.UUID) (map[uuid.UUID]models.Variant, error)
}

type service struct {
	repo Repository
}

// NewService wires a catalog service with the provided repository.
func NewService(repo Repository) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("catalog repository required")
	}
	return &service{repo: repo}, nil
}

// RequireActive loads a variant and rejects missing or inactive ones. Every
// stock movement goes through this gate before touching the ledger.
func (s *service) RequireActive(ctx context.Context, tenantID, variantID uuid.UUID) (*models.Variant, error) {
	if tenantID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "tenant id is required")
	}
	if variantID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "variant id is required")
	}

	variant, err := s.repo.Get(ctx, tenantID, variantID)
	if err != nil {
		return nil, err
	}
	if variant == nil {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, fmt.Sprintf("variant %s not found", variantID))
	}
	if !variant.Active {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("variant %s is inactive", variantID)).
			WithDetails(map[string]any{"variant_id": variantID.String()})
	}
	return variant, nil
}

// RequireActiveAll validates a batch of variant ids in one query.
func (s *service) RequireActiveAll(ctx context.Context, tenantID uuid.UUID, ids []uuid.UUID) (map[uuid.UUID]models.Variant, error) {
	if tenantID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "tenant id is required")
	}
	if len(ids) == 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "at least one variant id is required")
	}

	variants, err := s.repo.ListByIDs(ctx, tenantID, ids)
	if err != nil {
		return nil, err
	}

	byID := make(map[uuid.UUID]models.Variant, len(variants))
	for _, v := range variants {
		byID[v.ID] = v
	}
	for _, id := range ids {
		v, ok := byID[id]
		if !ok {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, fmt.Sprintf("variant %s not found", id))
		}
		if !v.Active {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("variant %s is inactive", id)).
				WithDetails(map[string]any{"variant_id": id.String()})
		}
	}
	return byID, nil
}
