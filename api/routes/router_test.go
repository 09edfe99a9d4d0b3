package routes

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/google/uuid"
	"gorm.io/gorm"

	checkoutsvc "github.com/danielmoraes/lecto-backend/internal/checkout"
	"github.com/danielmoraes/lecto-backend/internal/orders"
	paymentswebhook "github.com/danielmoraes/lecto-backend/internal/webhooks/payments"
	"github.com/danielmoraes/lecto-backend/pkg/asaas"
	"github.com/danielmoraes/lecto-backend/pkg/config"
)

type noopCheckout struct{}

func (noopCheckout) Create(context.Context, checkoutsvc.CreateInput) (*checkoutsvc.CheckoutResult, error) {
	return &checkoutsvc.CheckoutResult{}, nil
}

func (noopCheckout) RetryCharge(context.Context, uuid.UUID) (*checkoutsvc.CheckoutResult, error) {
	return nil, fmt.Errorf("not implemented")
}

type noopOrders struct{}

func (noopOrders) Transition(context.Context, orders.TransitionInput) (*orders.TransitionResult, error) {
	return nil, fmt.Errorf("not implemented")
}

func (noopOrders) ApplyTransition(context.Context, *gorm.DB, orders.TransitionInput) (*orders.TransitionResult, error) {
	return nil, fmt.Errorf("not implemented")
}

func (noopOrders) GetOrder(context.Context, uuid.UUID) (*orders.OrderDetail, error) {
	return &orders.OrderDetail{}, nil
}

type noopWebhook struct{}

func (noopWebhook) VerifyToken(string) bool { return false }

func (noopWebhook) HandleEvent(context.Context, *asaas.WebhookEvent) (paymentswebhook.Disposition, error) {
	return paymentswebhook.DispositionApplied, nil
}

func testRouter() http.Handler {
	cfg := &config.Config{}
	cfg.App.Env = "test"
	return NewRouter(cfg, nil, nil, nil, noopCheckout{}, noopOrders{}, noopWebhook{})
}

func TestRouterHealthLive(t *testing.T) {
	rec := httptest.NewRecorder()
	testRouter().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health/live", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
}

func TestRouterStatusRouteWired(t *testing.T) {
	rec := httptest.NewRecorder()
	target := "/api/v1/checkout/status/" + uuid.NewString()
	testRouter().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, target, nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d (%s)", rec.Code, rec.Body.String())
	}
}

func TestRouterWebhookRequiresToken(t *testing.T) {
	rec := httptest.NewRecorder()
	testRouter().ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/v1/webhooks/payments", nil))
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 without token, got %d", rec.Code)
	}
}

func TestRouterUnknownRoute(t *testing.T) {
	rec := httptest.NewRecorder()
	testRouter().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/v1/unknown", nil))
	if rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", rec.Code)
	}
}
