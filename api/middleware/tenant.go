package middleware

import (
	"context"
	"net/http"

	"github.com/google/uuid"

	"github.com/stocklane-io/stocklane-backend/api/responses"
	pkgerrors "github.com/stocklane-io/stocklane-backend/pkg/errors"
	"github.com/stocklane-io/stocklane-backend/pkg/logger"
)

const (
	tenantIDHeader = "X-Tenant-Id"
	actorIDHeader  = "X-Actor-Id"
)

type tenantCtxKey struct{}
type actorCtxKey struct{}

// Tenant requires a well-formed X-Tenant-Id header on every request under it
// and stashes the id in the context. Authentication happens upstream at the
// gateway; this service trusts the forwarded identity headers.
func Tenant(logg *logger.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()

			tenantID, err := uuid.Parse(r.Header.Get(tenantIDHeader))
			if err != nil || tenantID == uuid.Nil {
				responses.WriteError(ctx, logg, w,
					pkgerrors.New(pkgerrors.CodeValidation, "a valid X-Tenant-Id header is required"))
				return
			}
			ctx = context.WithValue(ctx, tenantCtxKey{}, tenantID)

			if raw := r.Header.Get(actorIDHeader); raw != "" {
				if actorID, err := uuid.Parse(raw); err == nil {
					ctx = context.WithValue(ctx, actorCtxKey{}, actorID)
				}
			}

			if logg != nil {
				ctx = logg.WithTenantID(ctx, tenantID.String())
			}
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// TenantID returns the tenant bound to the request context.
func TenantID(ctx context.Context) uuid.UUID {
	if id, ok := ctx.Value(tenantCtxKey{}).(uuid.UUID); ok {
		return id
	}
	return uuid.Nil
}

// ActorID returns the acting user, or uuid.Nil when the header was absent.
func ActorID(ctx context.Context) uuid.UUID {
	if id, ok := ctx.Value(actorCtxKey{}).(uuid.UUID); ok {
		return id
	}
	return uuid.Nil
}
