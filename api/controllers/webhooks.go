package controllers

import (
	"net/http"

	"github.com/stocklane-io/stocklane-backend/api/middleware"
	"github.com/stocklane-io/stocklane-backend/api/responses"
	"github.com/stocklane-io/stocklane-backend/api/validators"
	"github.com/stocklane-io/stocklane-backend/internal/webhooks"
	"github.com/stocklane-io/stocklane-backend/pkg/logger"
)

type webhookSubscriptionRequest struct {
	URL        string   `json:"url" validate:"required,url"`
	Secret     string   `json:"secret,omitempty"`
	EventTypes []string `json:"event_types" validate:"required,min=1"`
}

// WebhookSubscriptionCreate registers a new webhook endpoint. The response
// includes the signing secret; it is the only time a generated secret is
// returned in full.
func WebhookSubscriptionCreate(svc webhooks.SubscriptionService, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()

		var req webhookSubscriptionRequest
		if err := validators.DecodeJSONBody(r, &req); err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		sub, err := svc.Create(ctx, webhooks.SubscriptionInput{
			TenantID:   middleware.TenantID(ctx),
			URL:        req.URL,
			Secret:     req.Secret,
			EventTypes: req.EventTypes,
		})
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, sub)
	}
}

// WebhookSubscriptionUpdate replaces an endpoint's URL and event filter, and
// reactivates it if deliveries had disabled it.
func WebhookSubscriptionUpdate(svc webhooks.SubscriptionService, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()

		subID, err := validators.PathUUID(r, "subscriptionID")
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		var req webhookSubscriptionRequest
		if err := validators.DecodeJSONBody(r, &req); err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		sub, err := svc.Update(ctx, subID, webhooks.SubscriptionInput{
			TenantID:   middleware.TenantID(ctx),
			URL:        req.URL,
			Secret:     req.Secret,
			EventTypes: req.EventTypes,
		})
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		responses.WriteSuccess(w, sub)
	}
}

// WebhookSubscriptionGet fetches one subscription.
func WebhookSubscriptionGet(svc webhooks.SubscriptionService, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()

		subID, err := validators.PathUUID(r, "subscriptionID")
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		sub, err := svc.Get(ctx, middleware.TenantID(ctx), subID)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		responses.WriteSuccess(w, sub)
	}
}

// WebhookSubscriptionList lists the tenant's subscriptions, active or not.
func WebhookSubscriptionList(svc webhooks.SubscriptionService, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()

		subs, err := svc.List(ctx, middleware.TenantID(ctx))
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		responses.WriteSuccess(w, subs)
	}
}

// WebhookSubscriptionDelete removes an endpoint. Pending deliveries for it
// are left to fail out on their own.
func WebhookSubscriptionDelete(svc webhooks.SubscriptionService, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()

		subID, err := validators.PathUUID(r, "subscriptionID")
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		if err := svc.Delete(ctx, middleware.TenantID(ctx), subID); err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		responses.WriteSuccess(w, map[string]any{"deleted": true})
	}
}
