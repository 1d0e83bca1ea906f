package rbac

import (
	"context"
	"log/slog"
	"net/http"
	"strings"

	"github.com/nivaas-labs/nivaas/internal/platform/httpx"
	"github.com/nivaas-labs/nivaas/internal/shared"
)

// PlatformHeader names the client surface; defaults to web when absent.
const PlatformHeader = "X-Platform"

// SubjectSource loads the evaluation view of a user.
type SubjectSource interface {
	Subject(ctx context.Context, userID string) (Subject, error)
}

// DenialRecorder counts resolver denials, typically Prometheus backed.
type DenialRecorder interface {
	RecordDenial(feature, reason string)
}

// Gate wires feature-access authorization for HTTP handlers.
type Gate struct {
	Resolver *Resolver
	Subjects SubjectSource
	Logger   *slog.Logger
	Metrics  DenialRecorder
}

// Require gates a route on a feature key with no action narrowing.
func (g Gate) Require(feature string) func(http.Handler) http.Handler {
	return g.RequireAction(feature, "")
}

// RequireAction gates a route on a feature key and action. The target society
// comes from header > query > body; a tenant-scoped request without one is a
// caller error rejected here at the boundary, never inside the resolver.
func (g Gate) RequireAction(feature, action string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			identity, ok := shared.IdentityFromContext(r.Context())
			if !ok {
				httpx.Problem(w, http.StatusUnauthorized, "Unauthorized", "authentication required")
				return
			}

			societyID := shared.TargetSociety(r)
			if societyID == "" {
				societyID = identity.SocietyID
			}
			if societyID == "" {
				httpx.Problem(w, http.StatusBadRequest, "Validation Failed", shared.ErrMissingSociety.Error())
				return
			}

			sub, err := g.Subjects.Subject(r.Context(), identity.UserID)
			if err != nil {
				if g.Logger != nil {
					g.Logger.Error("load subject", slog.String("user_id", identity.UserID), slog.Any("error", err))
				}
				httpx.Problem(w, http.StatusInternalServerError, "Internal Error", "")
				return
			}

			access := Access{
				Feature:   feature,
				SocietyID: societyID,
				Platform:  RequestPlatform(r),
				Action:    action,
			}
			decision, err := g.Resolver.Evaluate(r.Context(), sub, access)
			if err != nil {
				if g.Logger != nil {
					g.Logger.Error("evaluate access", slog.String("feature", feature), slog.Any("error", err))
				}
				httpx.Problem(w, http.StatusInternalServerError, "Internal Error", "")
				return
			}
			if !decision.Allowed {
				if g.Metrics != nil {
					g.Metrics.RecordDenial(feature, decision.Reason)
				}
				httpx.Problem(w, http.StatusForbidden, "Forbidden", "feature access denied")
				return
			}

			ctx := ContextWithSubject(r.Context(), sub)
			ctx = ContextWithSociety(ctx, societyID)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// RequestPlatform reads the client platform header, defaulting to web.
func RequestPlatform(r *http.Request) Platform {
	p := Platform(strings.ToLower(strings.TrimSpace(r.Header.Get(PlatformHeader))))
	if KnownPlatform(p) {
		return p
	}
	return PlatformWeb
}

type subjectContextKey struct{}
type societyContextKey struct{}

// ContextWithSubject stores the evaluated subject in context.
func ContextWithSubject(ctx context.Context, sub Subject) context.Context {
	return context.WithValue(ctx, subjectContextKey{}, sub)
}

// SubjectFromContext extracts the subject placed by the gate.
func SubjectFromContext(ctx context.Context) (Subject, bool) {
	sub, ok := ctx.Value(subjectContextKey{}).(Subject)
	return sub, ok
}

// ContextWithSociety stores the resolved target society in context.
func ContextWithSociety(ctx context.Context, societyID string) context.Context {
	return context.WithValue(ctx, societyContextKey{}, societyID)
}

// SocietyFromContext extracts the target society placed by the gate.
func SocietyFromContext(ctx context.Context) string {
	id, _ := ctx.Value(societyContextKey{}).(string)
	return id
}
