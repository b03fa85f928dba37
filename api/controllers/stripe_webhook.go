package controllers

import (
	"io"
	"net/http"

	"github.com/bookingtms/bookingtms-backend/api/responses"
	stripewebhook "github.com/bookingtms/bookingtms-backend/internal/webhooks/stripe"
	pkgerrors "github.com/bookingtms/bookingtms-backend/pkg/errors"
	"github.com/bookingtms/bookingtms-backend/pkg/logger"
)

// Stripe caps webhook payloads well under this.
const maxWebhookBody = 1 << 20

// StripeWebhook receives checkout lifecycle events. Signature verification
// and replay handling live in the service; this handler only moves bytes.
func StripeWebhook(svc stripewebhook.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()

		payload, err := io.ReadAll(io.LimitReader(r.Body, maxWebhookBody))
		if err != nil {
			responses.WriteError(ctx, logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "read webhook body"))
			return
		}

		signature := r.Header.Get("Stripe-Signature")
		if signature == "" {
			responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeUnauthorized, "missing stripe signature"))
			return
		}

		if err := svc.VerifyAndHandle(ctx, payload, signature); err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		responses.WriteSuccess(w, nil)
	}
}
