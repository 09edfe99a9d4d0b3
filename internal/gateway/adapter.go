package gateway

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/danielmoraes/lecto-backend/pkg/asaas"
	"github.com/danielmoraes/lecto-backend/pkg/config"
	"github.com/danielmoraes/lecto-backend/pkg/db/models"
	"github.com/danielmoraes/lecto-backend/pkg/enums"
	pkgerrors "github.com/danielmoraes/lecto-backend/pkg/errors"
	"github.com/danielmoraes/lecto-backend/pkg/logger"
)

type asaasAPI interface {
	CreateCustomer(ctx context.Context, params asaas.CustomerCreateParams) (*asaas.Customer, error)
	CreatePayment(ctx context.Context, params asaas.PaymentCreateParams) (*asaas.Payment, error)
	GetPayment(ctx context.Context, paymentID string) (*asaas.Payment, error)
	GetPixQRCode(ctx context.Context, paymentID string) (*asaas.PixQRCode, error)
	GetIdentificationField(ctx context.Context, paymentID string) (*asaas.IdentificationField, error)
	VerifyWebhookToken(token string) bool
}

// CardDetails is the raw card data forwarded to the gateway for a
// synchronous charge. Never persisted.
type CardDetails struct {
	HolderName    string
	Number        string
	ExpiryMonth   string
	ExpiryYear    string
	CCV           string
	PostalCode    string
	AddressNumber string
	Phone         string
}

// ChargeRequest asks the gateway to collect payment for one order.
type ChargeRequest struct {
	Order *models.Order
	Card  *CardDetails
}

// PixInstructions carries what the buyer needs to pay a PIX charge.
type PixInstructions struct {
	Payload      string
	EncodedImage string
	ExpiresAt    *time.Time
}

// BoletoInstructions carries the bank-slip data for a boleto charge.
type BoletoInstructions struct {
	DigitableLine string
	SlipURL       string
	DueDate       time.Time
}

// ChargeResponse reports the created charge and, for async rails, the
// payment instructions.
type ChargeResponse struct {
	ChargeID      string
	Outcome       enums.PaymentOutcome
	GatewayStatus string
	Pix           *PixInstructions
	Boleto        *BoletoInstructions
}

// Classification is the normalized reading of a gateway payload.
type Classification struct {
	ChargeID      string
	Outcome       enums.PaymentOutcome
	GatewayStatus string
	Raw           json.RawMessage
}

// Adapter is the payment gateway boundary. Everything above it speaks
// enums.PaymentOutcome; everything below speaks Asaas.
type Adapter interface {
	Charge(ctx context.Context, req ChargeRequest) (*ChargeResponse, error)
	Classify(event *asaas.WebhookEvent) (*Classification, error)
	PollStatus(ctx context.Context, chargeID string) (*Classification, error)
	VerifyWebhookToken(token string) bool
}

type adapter struct {
	api  asaasAPI
	cfg  config.AsaasConfig
	logg *logger.Logger
}

// NewAdapter builds the Asaas-backed gateway adapter.
func NewAdapter(api asaasAPI, cfg config.AsaasConfig, logg *logger.Logger) (Adapter, error) {
	if api == nil {
		return nil, fmt.Errorf("asaas api required")
	}
	return &adapter{api: api, cfg: cfg, logg: logg}, nil
}

// Charge creates the gateway customer and payment for the order's rail.
// The order must already be persisted: its id is the external reference
// that ties gateway reports back to the row.
func (a *adapter) Charge(ctx context.Context, req ChargeRequest) (*ChargeResponse, error) {
	order := req.Order
	if order == nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "order required")
	}
	if !order.PaymentMethod.IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "invalid payment method")
	}
	if order.PaymentMethod == enums.PaymentMethodCreditCard && req.Card == nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "card details required")
	}

	customer, err := a.api.CreateCustomer(ctx, asaas.CustomerCreateParams{
		Name:              order.BuyerName,
		Email:             order.BuyerEmail,
		CPFCNPJ:           order.BuyerDocument,
		ExternalReference: order.ID.String(),
	})
	if err != nil {
		return nil, err
	}

	params := asaas.PaymentCreateParams{
		Customer:          customer.ID,
		BillingType:       billingTypeFor(order.PaymentMethod),
		Value:             asaas.ValueFromCents(order.AmountCents),
		DueDate:           asaas.DueDate(a.dueDateFor(order.PaymentMethod)),
		Description:       fmt.Sprintf("Pedido %s", order.ID),
		ExternalReference: order.ID.String(),
	}
	if order.PaymentMethod == enums.PaymentMethodCreditCard {
		params.CreditCard = &asaas.CreditCardParams{
			HolderName:  req.Card.HolderName,
			Number:      req.Card.Number,
			ExpiryMonth: req.Card.ExpiryMonth,
			ExpiryYear:  req.Card.ExpiryYear,
			CCV:         req.Card.CCV,
		}
		params.CreditCardHolderInfo = &asaas.CreditCardHolderInfoParams{
			Name:          req.Card.HolderName,
			Email:         order.BuyerEmail,
			CPFCNPJ:       order.BuyerDocument,
			PostalCode:    req.Card.PostalCode,
			AddressNumber: req.Card.AddressNumber,
			Phone:         req.Card.Phone,
		}
	}

	payment, err := a.api.CreatePayment(ctx, params)
	if err != nil {
		return nil, err
	}

	resp := &ChargeResponse{
		ChargeID:      payment.ID,
		Outcome:       outcomeForStatus(payment.Status, order.PaymentMethod),
		GatewayStatus: payment.Status,
	}

	switch order.PaymentMethod {
	case enums.PaymentMethodPix:
		qr, err := a.api.GetPixQRCode(ctx, payment.ID)
		if err != nil {
			return nil, err
		}
		pix := &PixInstructions{Payload: qr.Payload, EncodedImage: qr.EncodedImage}
		if expires, err := time.Parse("2006-01-02 15:04:05", qr.ExpirationDate); err == nil {
			pix.ExpiresAt = &expires
		}
		resp.Pix = pix
	case enums.PaymentMethodBoleto:
		field, err := a.api.GetIdentificationField(ctx, payment.ID)
		if err != nil {
			return nil, err
		}
		resp.Boleto = &BoletoInstructions{
			DigitableLine: field.IdentificationField,
			SlipURL:       payment.BankSlipURL,
			DueDate:       a.dueDateFor(order.PaymentMethod),
		}
	}

	if a.logg != nil {
		logCtx := a.logg.WithFields(ctx, map[string]any{
			"order_id":       order.ID.String(),
			"charge_id":      payment.ID,
			"payment_method": order.PaymentMethod,
			"gateway_status": payment.Status,
		})
		a.logg.Info(logCtx, "gateway charge created")
	}
	return resp, nil
}

// Classify normalizes a webhook event into an outcome.
func (a *adapter) Classify(event *asaas.WebhookEvent) (*Classification, error) {
	if event == nil || event.Payment == nil || event.Payment.ID == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "webhook payload missing payment")
	}
	raw, err := json.Marshal(event)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "marshal webhook payload")
	}
	payment := event.Payment
	status := payment.Status
	if payment.Deleted {
		status = asaas.StatusDeleted
	}
	return &Classification{
		ChargeID:      payment.ID,
		Outcome:       outcomeForStatus(status, methodForBillingType(payment.BillingType)),
		GatewayStatus: status,
		Raw:           raw,
	}, nil
}

// PollStatus fetches the charge and normalizes its current status.
func (a *adapter) PollStatus(ctx context.Context, chargeID string) (*Classification, error) {
	if chargeID == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "charge id required")
	}
	payment, err := a.api.GetPayment(ctx, chargeID)
	if err != nil {
		return nil, err
	}
	raw, err := json.Marshal(payment)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "marshal payment payload")
	}
	status := payment.Status
	if payment.Deleted {
		status = asaas.StatusDeleted
	}
	return &Classification{
		ChargeID:      payment.ID,
		Outcome:       outcomeForStatus(status, methodForBillingType(payment.BillingType)),
		GatewayStatus: status,
		Raw:           raw,
	}, nil
}

func (a *adapter) VerifyWebhookToken(token string) bool {
	return a.api.VerifyWebhookToken(token)
}

func (a *adapter) dueDateFor(method enums.PaymentMethod) time.Time {
	now := time.Now().UTC()
	switch method {
	case enums.PaymentMethodBoleto:
		days := a.cfg.BoletoDueDays
		if days <= 0 {
			days = 3
		}
		return now.AddDate(0, 0, days)
	case enums.PaymentMethodPix:
		expiry := a.cfg.PixExpiry
		if expiry <= 0 {
			expiry = 30 * time.Minute
		}
		return now.Add(expiry)
	default:
		return now
	}
}

func billingTypeFor(method enums.PaymentMethod) string {
	switch method {
	case enums.PaymentMethodPix:
		return asaas.BillingTypePix
	case enums.PaymentMethodBoleto:
		return asaas.BillingTypeBoleto
	default:
		return asaas.BillingTypeCreditCard
	}
}

func methodForBillingType(billingType string) enums.PaymentMethod {
	switch billingType {
	case asaas.BillingTypePix:
		return enums.PaymentMethodPix
	case asaas.BillingTypeBoleto:
		return enums.PaymentMethodBoleto
	default:
		return enums.PaymentMethodCreditCard
	}
}

// outcomeForStatus maps the gateway's status vocabulary onto the
// normalized outcome set. OVERDUE means expiry for async rails; a card
// charge reported OVERDUE is treated as declined.
func outcomeForStatus(status string, method enums.PaymentMethod) enums.PaymentOutcome {
	switch status {
	case asaas.StatusConfirmed, asaas.StatusReceived, asaas.StatusReceivedInCash:
		return enums.PaymentOutcomePaid
	case asaas.StatusPending, asaas.StatusAwaitingRiskReview:
		return enums.PaymentOutcomePending
	case asaas.StatusOverdue:
		if method == enums.PaymentMethodCreditCard {
			return enums.PaymentOutcomeDeclined
		}
		return enums.PaymentOutcomeExpired
	case asaas.StatusRefunded, asaas.StatusRefundRequested, asaas.StatusChargebackRequested:
		return enums.PaymentOutcomeRefunded
	case asaas.StatusDeleted:
		return enums.PaymentOutcomeCanceled
	default:
		return enums.PaymentOutcomeDeclined
	}
}
