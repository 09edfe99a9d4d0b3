package webhooks

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"strings"

	"github.com/danielmoraes/lecto-backend/api/responses"
	paymentswebhook "github.com/danielmoraes/lecto-backend/internal/webhooks/payments"
	"github.com/danielmoraes/lecto-backend/pkg/asaas"
	pkgerrors "github.com/danielmoraes/lecto-backend/pkg/errors"
	"github.com/danielmoraes/lecto-backend/pkg/logger"
)

const accessTokenHeader = "asaas-access-token"

type PaymentWebhookService interface {
	VerifyToken(token string) bool
	HandleEvent(ctx context.Context, event *asaas.WebhookEvent) (paymentswebhook.Disposition, error)
}

// PaymentWebhook receives Asaas payment notifications. The gateway
// retries on non-2xx, so anything the handler cannot act on but has
// safely recorded still answers 200.
func PaymentWebhook(svc PaymentWebhookService, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()

		if svc == nil {
			responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeInternal, "webhook service unavailable"))
			return
		}

		token := strings.TrimSpace(r.Header.Get(accessTokenHeader))
		if !svc.VerifyToken(token) {
			responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeUnauthorized, "invalid webhook token"))
			return
		}

		payload, err := io.ReadAll(r.Body)
		if err != nil {
			responses.WriteError(ctx, logg, w, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "read request body"))
			return
		}

		var event asaas.WebhookEvent
		if err := json.Unmarshal(payload, &event); err != nil {
			responses.WriteError(ctx, logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "malformed webhook payload"))
			return
		}

		disposition, err := svc.HandleEvent(ctx, &event)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		responses.WriteSuccess(w, map[string]string{"disposition": string(disposition)})
	}
}
