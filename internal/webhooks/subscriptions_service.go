package webhooks

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"net/url"

	"github.com/google/uuid"

	"github.com/stocklane-io/stocklane-backend/pkg/db/models"
	"github.com/stocklane-io/stocklane-backend/pkg/db/types"
	"github.com/stocklane-io/stocklane-backend/pkg/enums"
	pkgerrors "github.com/stocklane-io/stocklane-backend/pkg/errors"
	"github.com/stocklane-io/stocklane-backend/pkg/logger"
)

// SubscriptionInput carries the writable subscription fields. An empty Secret
// on create gets a generated one; the caller sees it exactly once in the
// response and stores it on their side.
type SubscriptionInput struct {
	TenantID   uuid.UUID
	URL        string
	Secret     string
	EventTypes []string
}

// SubscriptionService manages the per-tenant webhook endpoint registry.
type SubscriptionService interface {
	Create(ctx context.Context, input SubscriptionInput) (*models.WebhookSubscription, error)
	Update(ctx context.Context, subID uuid.UUID, input SubscriptionInput) (*models.WebhookSubscription, error)
	Get(ctx context.Context, tenantID, subID uuid.UUID) (*models.WebhookSubscription, error)
	List(ctx context.Context, tenantID uuid.UUID) ([]models.WebhookSubscription, error)
	Delete(ctx context.Context, tenantID, subID uuid.UUID) error
}

type subscriptionService struct {
	repo SubscriptionRepository
	logg *logger.Logger
}

// NewSubscriptionService wires the subscription service.
func NewSubscriptionService(repo SubscriptionRepository, logg *logger.Logger) (SubscriptionService, error) {
	if repo == nil {
		return nil, fmt.Errorf("subscription repository required")
	}
	return &subscriptionService{repo: repo, logg: logg}, nil
}

func (s *subscriptionService) Create(ctx context.Context, input SubscriptionInput) (*models.WebhookSubscription, error) {
	if input.TenantID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "tenant id is required")
	}
	eventTypes, err := validateSubscription(input.URL, input.EventTypes)
	if err != nil {
		return nil, err
	}

	secret := input.Secret
	if secret == "" {
		secret, err = generateSecret()
		if err != nil {
			return nil, err
		}
	}

	sub := &models.WebhookSubscription{
		ID:         uuid.New(),
		TenantID:   input.TenantID,
		URL:        input.URL,
		Secret:     secret,
		EventTypes: eventTypes,
		Active:     true,
	}
	if err := s.repo.Create(ctx, sub); err != nil {
		return nil, err
	}
	if s.logg != nil {
		lctx := s.logg.WithTenantID(ctx, input.TenantID.String())
		s.logg.Info(s.logg.WithField(lctx, "subscription_id", sub.ID.String()), "webhook subscription created")
	}
	return sub, nil
}

// Update replaces URL and event types and reactivates the endpoint, clearing
// any accumulated failure count. The secret only changes when one is provided.
func (s *subscriptionService) Update(ctx context.Context, subID uuid.UUID, input SubscriptionInput) (*models.WebhookSubscription, error) {
	sub, err := s.Get(ctx, input.TenantID, subID)
	if err != nil {
		return nil, err
	}
	eventTypes, err := validateSubscription(input.URL, input.EventTypes)
	if err != nil {
		return nil, err
	}

	sub.URL = input.URL
	sub.EventTypes = eventTypes
	if input.Secret != "" {
		sub.Secret = input.Secret
	}
	sub.Active = true
	sub.FailureCount = 0
	if err := s.repo.Save(ctx, sub); err != nil {
		return nil, err
	}
	return sub, nil
}

func (s *subscriptionService) Get(ctx context.Context, tenantID, subID uuid.UUID) (*models.WebhookSubscription, error) {
	if tenantID == uuid.Nil || subID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "tenant and subscription ids are required")
	}
	sub, err := s.repo.Get(ctx, tenantID, subID)
	if err != nil {
		return nil, err
	}
	if sub == nil {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, fmt.Sprintf("webhook subscription %s not found", subID))
	}
	return sub, nil
}

func (s *subscriptionService) List(ctx context.Context, tenantID uuid.UUID) ([]models.WebhookSubscription, error) {
	if tenantID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "tenant id is required")
	}
	return s.repo.ListByTenant(ctx, tenantID)
}

func (s *subscriptionService) Delete(ctx context.Context, tenantID, subID uuid.UUID) error {
	if _, err := s.Get(ctx, tenantID, subID); err != nil {
		return err
	}
	return s.repo.Delete(ctx, tenantID, subID)
}

func validateSubscription(rawURL string, eventTypes []string) (types.StringArray, error) {
	parsed, err := url.Parse(rawURL)
	if err != nil || (parsed.Scheme != "http" && parsed.Scheme != "https") || parsed.Host == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "url must be an absolute http(s) endpoint")
	}
	if len(eventTypes) == 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "at least one event type is required")
	}
	out := make(types.StringArray, 0, len(eventTypes))
	for _, raw := range eventTypes {
		eventType, err := enums.ParseOutboxEventType(raw)
		if err != nil {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, err.Error())
		}
		out = append(out, string(eventType))
	}
	return out, nil
}

func generateSecret() (string, error) {
	buf := make([]byte, 32)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("generating webhook secret: %w", err)
	}
	return "whsec_" + hex.EncodeToString(buf), nil
}
