package gateway

import (
	"context"
	"testing"

	"github.com/danielmoraes/lecto-backend/pkg/asaas"
	"github.com/danielmoraes/lecto-backend/pkg/config"
	"github.com/danielmoraes/lecto-backend/pkg/db/models"
	"github.com/danielmoraes/lecto-backend/pkg/enums"
	pkgerrors "github.com/danielmoraes/lecto-backend/pkg/errors"
	"github.com/google/uuid"
)

type stubAsaasAPI struct {
	createCustomer         func(params asaas.CustomerCreateParams) (*asaas.Customer, error)
	createPayment          func(params asaas.PaymentCreateParams) (*asaas.Payment, error)
	getPayment             func(paymentID string) (*asaas.Payment, error)
	getPixQRCode           func(paymentID string) (*asaas.PixQRCode, error)
	getIdentificationField func(paymentID string) (*asaas.IdentificationField, error)
}

func (s *stubAsaasAPI) CreateCustomer(ctx context.Context, params asaas.CustomerCreateParams) (*asaas.Customer, error) {
	if s.createCustomer != nil {
		return s.createCustomer(params)
	}
	return &asaas.Customer{ID: "cus_1", Name: params.Name, Email: params.Email}, nil
}

func (s *stubAsaasAPI) CreatePayment(ctx context.Context, params asaas.PaymentCreateParams) (*asaas.Payment, error) {
	if s.createPayment != nil {
		return s.createPayment(params)
	}
	panic("not implemented")
}

func (s *stubAsaasAPI) GetPayment(ctx context.Context, paymentID string) (*asaas.Payment, error) {
	if s.getPayment != nil {
		return s.getPayment(paymentID)
	}
	panic("not implemented")
}

func (s *stubAsaasAPI) GetPixQRCode(ctx context.Context, paymentID string) (*asaas.PixQRCode, error) {
	if s.getPixQRCode != nil {
		return s.getPixQRCode(paymentID)
	}
	panic("not implemented")
}

func (s *stubAsaasAPI) GetIdentificationField(ctx context.Context, paymentID string) (*asaas.IdentificationField, error) {
	if s.getIdentificationField != nil {
		return s.getIdentificationField(paymentID)
	}
	panic("not implemented")
}

func (s *stubAsaasAPI) VerifyWebhookToken(token string) bool {
	return token == "expected-token"
}

func testOrder(method enums.PaymentMethod) *models.Order {
	return &models.Order{
		ID:            uuid.New(),
		BuyerEmail:    "buyer@example.com",
		BuyerName:     "Buyer",
		BuyerDocument: "12345678909",
		Status:        enums.OrderStatusPending,
		PaymentMethod: method,
		AmountCents:   19900,
		Currency:      "BRL",
	}
}

func newTestAdapter(t *testing.T, api asaasAPI) Adapter {
	t.Helper()
	a, err := NewAdapter(api, config.AsaasConfig{BoletoDueDays: 3}, nil)
	if err != nil {
		t.Fatalf("adapter constructor failed: %v", err)
	}
	return a
}

func TestChargeCardConfirmed(t *testing.T) {
	api := &stubAsaasAPI{
		createPayment: func(params asaas.PaymentCreateParams) (*asaas.Payment, error) {
			if params.BillingType != asaas.BillingTypeCreditCard {
				t.Fatalf("unexpected billing type %s", params.BillingType)
			}
			if params.CreditCard == nil || params.CreditCardHolderInfo == nil {
				t.Fatal("card payloads missing")
			}
			if params.Value != 199.00 {
				t.Fatalf("unexpected value %.2f", params.Value)
			}
			return &asaas.Payment{ID: "pay_card", Status: asaas.StatusConfirmed, BillingType: params.BillingType}, nil
		},
	}
	adapter := newTestAdapter(t, api)

	resp, err := adapter.Charge(context.Background(), ChargeRequest{
		Order: testOrder(enums.PaymentMethodCreditCard),
		Card: &CardDetails{
			HolderName:    "BUYER NAME",
			Number:        "4111111111111111",
			ExpiryMonth:   "12",
			ExpiryYear:    "2030",
			CCV:           "123",
			PostalCode:    "01310-100",
			AddressNumber: "100",
		},
	})
	if err != nil {
		t.Fatalf("expected success got %v", err)
	}
	if resp.ChargeID != "pay_card" {
		t.Fatalf("unexpected charge id %s", resp.ChargeID)
	}
	if resp.Outcome != enums.PaymentOutcomePaid {
		t.Fatalf("expected paid got %s", resp.Outcome)
	}
	if resp.Pix != nil || resp.Boleto != nil {
		t.Fatal("card charge must carry no async instructions")
	}
}

func TestChargeCardRequiresDetails(t *testing.T) {
	adapter := newTestAdapter(t, &stubAsaasAPI{})

	_, err := adapter.Charge(context.Background(), ChargeRequest{Order: testOrder(enums.PaymentMethodCreditCard)})
	if err == nil {
		t.Fatal("expected validation error")
	}
	typed := pkgerrors.As(err)
	if typed == nil || typed.Code() != pkgerrors.CodeValidation {
		t.Fatalf("expected validation code, got %v", err)
	}
}

func TestChargePixReturnsInstructions(t *testing.T) {
	api := &stubAsaasAPI{
		createPayment: func(params asaas.PaymentCreateParams) (*asaas.Payment, error) {
			if params.BillingType != asaas.BillingTypePix {
				t.Fatalf("unexpected billing type %s", params.BillingType)
			}
			return &asaas.Payment{ID: "pay_pix", Status: asaas.StatusPending, BillingType: params.BillingType}, nil
		},
		getPixQRCode: func(paymentID string) (*asaas.PixQRCode, error) {
			if paymentID != "pay_pix" {
				t.Fatalf("unexpected payment id %s", paymentID)
			}
			return &asaas.PixQRCode{
				EncodedImage:   "aW1hZ2U=",
				Payload:        "00020126580014br.gov.bcb.pix",
				ExpirationDate: "2026-08-29 23:59:59",
			}, nil
		},
	}
	adapter := newTestAdapter(t, api)

	resp, err := adapter.Charge(context.Background(), ChargeRequest{Order: testOrder(enums.PaymentMethodPix)})
	if err != nil {
		t.Fatalf("expected success got %v", err)
	}
	if resp.Outcome != enums.PaymentOutcomePending {
		t.Fatalf("expected pending got %s", resp.Outcome)
	}
	if resp.Pix == nil || resp.Pix.Payload == "" || resp.Pix.EncodedImage == "" {
		t.Fatalf("missing pix instructions %+v", resp.Pix)
	}
	if resp.Pix.ExpiresAt == nil {
		t.Fatal("expected parsed expiration")
	}
}

func TestChargeBoletoReturnsInstructions(t *testing.T) {
	api := &stubAsaasAPI{
		createPayment: func(params asaas.PaymentCreateParams) (*asaas.Payment, error) {
			return &asaas.Payment{
				ID:          "pay_slip",
				Status:      asaas.StatusPending,
				BillingType: params.BillingType,
				BankSlipURL: "https://sandbox.asaas.com/b/pdf/pay_slip",
			}, nil
		},
		getIdentificationField: func(paymentID string) (*asaas.IdentificationField, error) {
			return &asaas.IdentificationField{IdentificationField: "34191.79001 01043.510047 91020.150008 6 99999999999999"}, nil
		},
	}
	adapter := newTestAdapter(t, api)

	resp, err := adapter.Charge(context.Background(), ChargeRequest{Order: testOrder(enums.PaymentMethodBoleto)})
	if err != nil {
		t.Fatalf("expected success got %v", err)
	}
	if resp.Boleto == nil || resp.Boleto.DigitableLine == "" || resp.Boleto.SlipURL == "" {
		t.Fatalf("missing boleto instructions %+v", resp.Boleto)
	}
	if resp.Boleto.DueDate.IsZero() {
		t.Fatal("expected computed due date")
	}
}

func TestClassifyWebhookEvents(t *testing.T) {
	adapter := newTestAdapter(t, &stubAsaasAPI{})

	cases := []struct {
		name    string
		status  string
		billing string
		deleted bool
		want    enums.PaymentOutcome
	}{
		{"pix received", asaas.StatusReceived, asaas.BillingTypePix, false, enums.PaymentOutcomePaid},
		{"card confirmed", asaas.StatusConfirmed, asaas.BillingTypeCreditCard, false, enums.PaymentOutcomePaid},
		{"boleto overdue", asaas.StatusOverdue, asaas.BillingTypeBoleto, false, enums.PaymentOutcomeExpired},
		{"card overdue", asaas.StatusOverdue, asaas.BillingTypeCreditCard, false, enums.PaymentOutcomeDeclined},
		{"refunded", asaas.StatusRefunded, asaas.BillingTypeCreditCard, false, enums.PaymentOutcomeRefunded},
		{"deleted", asaas.StatusPending, asaas.BillingTypePix, true, enums.PaymentOutcomeCanceled},
		{"still pending", asaas.StatusPending, asaas.BillingTypePix, false, enums.PaymentOutcomePending},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got, err := adapter.Classify(&asaas.WebhookEvent{
				ID:    "evt_1",
				Event: asaas.EventPaymentConfirmed,
				Payment: &asaas.Payment{
					ID:          "pay_1",
					Status:      tc.status,
					BillingType: tc.billing,
					Deleted:     tc.deleted,
				},
			})
			if err != nil {
				t.Fatalf("expected success got %v", err)
			}
			if got.Outcome != tc.want {
				t.Fatalf("expected %s got %s", tc.want, got.Outcome)
			}
			if len(got.Raw) == 0 {
				t.Fatal("expected raw payload captured")
			}
		})
	}
}

func TestClassifyRejectsMissingPayment(t *testing.T) {
	adapter := newTestAdapter(t, &stubAsaasAPI{})

	_, err := adapter.Classify(&asaas.WebhookEvent{ID: "evt_2", Event: asaas.EventPaymentReceived})
	if err == nil {
		t.Fatal("expected validation error")
	}
}

func TestPollStatus(t *testing.T) {
	api := &stubAsaasAPI{
		getPayment: func(paymentID string) (*asaas.Payment, error) {
			return &asaas.Payment{ID: paymentID, Status: asaas.StatusReceived, BillingType: asaas.BillingTypePix}, nil
		},
	}
	adapter := newTestAdapter(t, api)

	got, err := adapter.PollStatus(context.Background(), "pay_poll")
	if err != nil {
		t.Fatalf("expected success got %v", err)
	}
	if got.Outcome != enums.PaymentOutcomePaid {
		t.Fatalf("expected paid got %s", got.Outcome)
	}
	if got.ChargeID != "pay_poll" {
		t.Fatalf("unexpected charge id %s", got.ChargeID)
	}
}

func TestVerifyWebhookTokenDelegates(t *testing.T) {
	adapter := newTestAdapter(t, &stubAsaasAPI{})

	if !adapter.VerifyWebhookToken("expected-token") {
		t.Fatal("expected token accepted")
	}
	if adapter.VerifyWebhookToken("wrong") {
		t.Fatal("expected token rejected")
	}
}
