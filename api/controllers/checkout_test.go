package controllers

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"gorm.io/gorm"

	checkoutsvc "github.com/danielmoraes/lecto-backend/internal/checkout"
	"github.com/danielmoraes/lecto-backend/internal/orders"
	"github.com/danielmoraes/lecto-backend/pkg/enums"
	pkgerrors "github.com/danielmoraes/lecto-backend/pkg/errors"
)

type fakeCheckoutService struct {
	result    *checkoutsvc.CheckoutResult
	err       error
	lastInput checkoutsvc.CreateInput
	calls     int
}

func (f *fakeCheckoutService) Create(_ context.Context, input checkoutsvc.CreateInput) (*checkoutsvc.CheckoutResult, error) {
	f.calls++
	f.lastInput = input
	if f.err != nil {
		return nil, f.err
	}
	return f.result, nil
}

func (f *fakeCheckoutService) RetryCharge(context.Context, uuid.UUID) (*checkoutsvc.CheckoutResult, error) {
	return nil, fmt.Errorf("not implemented")
}

type fakeOrdersService struct {
	detail *orders.OrderDetail
	err    error
}

func (f *fakeOrdersService) Transition(context.Context, orders.TransitionInput) (*orders.TransitionResult, error) {
	return nil, fmt.Errorf("not implemented")
}

func (f *fakeOrdersService) ApplyTransition(context.Context, *gorm.DB, orders.TransitionInput) (*orders.TransitionResult, error) {
	return nil, fmt.Errorf("not implemented")
}

func (f *fakeOrdersService) GetOrder(context.Context, uuid.UUID) (*orders.OrderDetail, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.detail, nil
}

func checkoutBody(t *testing.T, method string) []byte {
	t.Helper()
	body, err := json.Marshal(map[string]any{
		"payment_method": method,
		"product_ids":    []string{uuid.NewString()},
		"email":          "buyer@example.com.br",
		"name":           "Ana Souza",
		"document":       "12345678901",
	})
	if err != nil {
		t.Fatalf("marshal body: %v", err)
	}
	return body
}

func TestCheckoutCreatesOrder(t *testing.T) {
	orderID := uuid.New()
	service := &fakeCheckoutService{result: &checkoutsvc.CheckoutResult{
		OrderID:       orderID,
		Status:        enums.OrderStatusPending,
		PaymentMethod: enums.PaymentMethodPix,
		AmountCents:   19900,
		Currency:      "BRL",
		Pix:           &checkoutsvc.PixResult{Payload: "pix-copy-paste"},
	}}
	handler := Checkout(service, nil)

	req := httptest.NewRequest(http.MethodPost, "/api/v1/checkout", bytes.NewReader(checkoutBody(t, "pix")))
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d (%s)", rec.Code, rec.Body.String())
	}
	if service.calls != 1 {
		t.Fatalf("expected one service call, got %d", service.calls)
	}
	if service.lastInput.PaymentMethod != enums.PaymentMethodPix {
		t.Fatalf("expected pix method, got %s", service.lastInput.PaymentMethod)
	}
	if service.lastInput.UserID != nil {
		t.Fatalf("unauthenticated request must be a guest")
	}
	if !bytes.Contains(rec.Body.Bytes(), []byte(orderID.String())) {
		t.Fatalf("expected order id in response, got %s", rec.Body.String())
	}
	if !bytes.Contains(rec.Body.Bytes(), []byte("pix-copy-paste")) {
		t.Fatalf("expected pix payload in response")
	}
}

func TestCheckoutRejectsUnknownPaymentMethod(t *testing.T) {
	service := &fakeCheckoutService{}
	handler := Checkout(service, nil)

	req := httptest.NewRequest(http.MethodPost, "/api/v1/checkout", bytes.NewReader(checkoutBody(t, "cash")))
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rec.Code)
	}
	if service.calls != 0 {
		t.Fatalf("service must not run on invalid body")
	}
}

func TestCheckoutSurfacesDecline(t *testing.T) {
	service := &fakeCheckoutService{err: pkgerrors.New(pkgerrors.CodePaymentDeclined, "card declined")}
	handler := Checkout(service, nil)

	req := httptest.NewRequest(http.MethodPost, "/api/v1/checkout", bytes.NewReader(checkoutBody(t, "pix")))
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusPaymentRequired {
		t.Fatalf("expected 402, got %d", rec.Code)
	}
	if !bytes.Contains(rec.Body.Bytes(), []byte("card declined")) {
		t.Fatalf("expected decline message, got %s", rec.Body.String())
	}
}

func statusRequest(t *testing.T, handler http.HandlerFunc, orderID string) *httptest.ResponseRecorder {
	t.Helper()
	router := chi.NewRouter()
	router.Get("/api/v1/checkout/status/{orderID}", handler)
	req := httptest.NewRequest(http.MethodGet, "/api/v1/checkout/status/"+orderID, nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	return rec
}

func TestCheckoutStatusReturnsDetail(t *testing.T) {
	orderID := uuid.New()
	service := &fakeOrdersService{detail: &orders.OrderDetail{
		ID:            orderID,
		Status:        enums.OrderStatusProcessing,
		PaymentMethod: enums.PaymentMethodBoleto,
		AmountCents:   4500,
		Currency:      "BRL",
	}}

	rec := statusRequest(t, CheckoutStatus(service, nil), orderID.String())
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d (%s)", rec.Code, rec.Body.String())
	}
	if !bytes.Contains(rec.Body.Bytes(), []byte(orderID.String())) {
		t.Fatalf("expected order id in body, got %s", rec.Body.String())
	}
}

func TestCheckoutStatusRejectsBadID(t *testing.T) {
	rec := statusRequest(t, CheckoutStatus(&fakeOrdersService{}, nil), "not-a-uuid")
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rec.Code)
	}
}

func TestCheckoutStatusUnknownOrder(t *testing.T) {
	service := &fakeOrdersService{err: pkgerrors.New(pkgerrors.CodeNotFound, "order not found")}
	rec := statusRequest(t, CheckoutStatus(service, nil), uuid.NewString())
	if rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", rec.Code)
	}
}
