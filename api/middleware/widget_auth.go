package middleware

import (
	"context"
	"net/http"
	"strings"

	"github.com/bookingtms/bookingtms-backend/api/responses"
	"github.com/bookingtms/bookingtms-backend/pkg/db/models"
	pkgerrors "github.com/bookingtms/bookingtms-backend/pkg/errors"
	"github.com/bookingtms/bookingtms-backend/pkg/logger"
	"github.com/bookingtms/bookingtms-backend/pkg/security"
)

const (
	widgetKeyHeader = "X-Widget-Key"
	widgetOrgHeader = "X-Widget-Org"
)

type organizationFinder interface {
	FindBySlug(ctx context.Context, slug string) (*models.Organization, error)
}

// WidgetAuth authenticates embed requests with the organization slug plus its
// widget API key. The key is compared against the stored argon2id hash.
func WidgetAuth(orgs organizationFinder, logg *logger.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			slug := strings.TrimSpace(r.Header.Get(widgetOrgHeader))
			key := strings.TrimSpace(r.Header.Get(widgetKeyHeader))
			if slug == "" || key == "" {
				responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeUnauthorized, "missing widget credentials"))
				return
			}

			org, err := orgs.FindBySlug(r.Context(), slug)
			if err != nil {
				responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load organization"))
				return
			}
			if org == nil || !org.IsActive {
				responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeUnauthorized, "unknown organization"))
				return
			}

			ok, err := security.VerifyWidgetKey(key, org.WidgetKeyHash)
			if err != nil || !ok {
				responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeUnauthorized, "invalid widget key"))
				return
			}

			ctx := WithOrganizationID(r.Context(), org.ID)
			if logg != nil {
				ctx = logg.WithFields(ctx, map[string]any{
					"organization_id": org.ID.String(),
					"org_slug":        org.Slug,
				})
			}

			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}
