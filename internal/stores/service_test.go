package stores

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/stocklane-io/stocklane-backend/pkg/db/models"
	pkgerrors "github.com/stocklane-io/stocklane-backend/pkg/errors"
)

type fakeRepository struct {
	getFn func(ctx context.Context, tenantID, storeID uuid.UUID) (*models.Store, error)
}

func (f *fakeRepository) WithTx(tx *gorm.DB) Repository { return f }

func (f *fakeRepository) Get(ctx context.Context, tenantID, storeID uuid.UUID) (*models.Store, error) {
	if f.getFn != nil {
		return f.getFn(ctx, tenantID, storeID)
	}
	return nil, nil
}

func (f *fakeRepository) ListByTenant(ctx context.Context, tenantID uuid.UUID) ([]models.Store, error) {
	return nil, nil
}

func TestRequireActiveStore(t *testing.T) {
	tenantID := uuid.New()
	storeID := uuid.New()

	repo := &fakeRepository{
		getFn: func(ctx context.Context, gotTenant, gotStore uuid.UUID) (*models.Store, error) {
			return &models.Store{ID: storeID, TenantID: tenantID, Name: "Downtown", Active: true}, nil
		},
	}
	svc, err := NewService(repo)
	if err != nil {
		t.Fatalf("unexpected service error: %v", err)
	}

	store, err := svc.RequireActive(context.Background(), tenantID, storeID)
	if err != nil {
		t.Fatalf("RequireActive error: %v", err)
	}
	if store.Name != "Downtown" {
		t.Fatalf("unexpected store: %+v", store)
	}

	if _, err := svc.RequireActive(context.Background(), uuid.Nil, storeID); !pkgerrors.IsCode(err, pkgerrors.CodeValidation) {
		t.Fatalf("expected validation error for nil tenant, got %v", err)
	}
}

func TestRequireActiveStoreMissing(t *testing.T) {
	svc, err := NewService(&fakeRepository{})
	if err != nil {
		t.Fatalf("unexpected service error: %v", err)
	}

	if _, err := svc.RequireActive(context.Background(), uuid.New(), uuid.New()); !pkgerrors.IsCode(err, pkgerrors.CodeNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
}

func TestAllowsNegativeStock(t *testing.T) {
	repo := &fakeRepository{
		getFn: func(ctx context.Context, tenantID, storeID uuid.UUID) (*models.Store, error) {
			return &models.Store{ID: storeID, TenantID: tenantID, Active: true, BackordersEnabled: true}, nil
		},
	}
	svc, err := NewService(repo)
	if err != nil {
		t.Fatalf("unexpected service error: %v", err)
	}

	allowed, err := svc.AllowsNegativeStock(context.Background(), uuid.New(), uuid.New())
	if err != nil {
		t.Fatalf("AllowsNegativeStock error: %v", err)
	}
	if !allowed {
		t.Fatal("expected backorders to be allowed")
	}
}
