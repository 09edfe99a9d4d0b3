package asaas

import "time"

// Billing types accepted by the payments endpoint.
const (
	BillingTypeCreditCard = "CREDIT_CARD"
	BillingTypePix        = "PIX"
	BillingTypeBoleto     = "BOLETO"
)

// Payment statuses returned by the gateway. CONFIRMED means the card
// charge was authorized; RECEIVED means the funds actually settled,
// which is the terminal paid state for PIX and boleto.
const (
	StatusPending             = "PENDING"
	StatusConfirmed           = "CONFIRMED"
	StatusReceived            = "RECEIVED"
	StatusReceivedInCash      = "RECEIVED_IN_CASH"
	StatusOverdue             = "OVERDUE"
	StatusRefunded            = "REFUNDED"
	StatusRefundRequested     = "REFUND_REQUESTED"
	StatusChargebackRequested = "CHARGEBACK_REQUESTED"
	StatusAwaitingRiskReview  = "AWAITING_RISK_ANALYSIS"
	StatusDeleted             = "DELETED"
)

// Webhook event names the platform consumes.
const (
	EventPaymentConfirmed = "PAYMENT_CONFIRMED"
	EventPaymentReceived  = "PAYMENT_RECEIVED"
	EventPaymentOverdue   = "PAYMENT_OVERDUE"
	EventPaymentRefunded  = "PAYMENT_REFUNDED"
	EventPaymentDeleted   = "PAYMENT_DELETED"
)

// CustomerCreateParams carries the fields for POST /customers.
type CustomerCreateParams struct {
	Name              string `json:"name"`
	Email             string `json:"email"`
	CPFCNPJ           string `json:"cpfCnpj"`
	ExternalReference string `json:"externalReference,omitempty"`
}

// Customer is the gateway customer record.
type Customer struct {
	ID      string `json:"id"`
	Name    string `json:"name"`
	Email   string `json:"email"`
	CPFCNPJ string `json:"cpfCnpj"`
}

// CreditCardParams holds raw card data for synchronous charges.
type CreditCardParams struct {
	HolderName  string `json:"holderName"`
	Number      string `json:"number"`
	ExpiryMonth string `json:"expiryMonth"`
	ExpiryYear  string `json:"expiryYear"`
	CCV         string `json:"ccv"`
}

// CreditCardHolderInfoParams is the holder identity the gateway
// requires alongside raw card data.
type CreditCardHolderInfoParams struct {
	Name          string `json:"name"`
	Email         string `json:"email"`
	CPFCNPJ       string `json:"cpfCnpj"`
	PostalCode    string `json:"postalCode"`
	AddressNumber string `json:"addressNumber"`
	Phone         string `json:"phone,omitempty"`
}

// PaymentCreateParams carries the fields for POST /payments.
type PaymentCreateParams struct {
	Customer             string                      `json:"customer"`
	BillingType          string                      `json:"billingType"`
	Value                float64                     `json:"value"`
	DueDate              string                      `json:"dueDate"`
	Description          string                      `json:"description,omitempty"`
	ExternalReference    string                      `json:"externalReference,omitempty"`
	CreditCard           *CreditCardParams           `json:"creditCard,omitempty"`
	CreditCardHolderInfo *CreditCardHolderInfoParams `json:"creditCardHolderInfo,omitempty"`
}

// Payment is the gateway charge record.
type Payment struct {
	ID                string  `json:"id"`
	Customer          string  `json:"customer"`
	BillingType       string  `json:"billingType"`
	Status            string  `json:"status"`
	Value             float64 `json:"value"`
	NetValue          float64 `json:"netValue"`
	DueDate           string  `json:"dueDate"`
	ExternalReference string  `json:"externalReference"`
	InvoiceURL        string  `json:"invoiceUrl"`
	BankSlipURL       string  `json:"bankSlipUrl"`
	Deleted           bool    `json:"deleted"`
}

// PixQRCode is the response of GET /payments/{id}/pixQrCode.
type PixQRCode struct {
	EncodedImage   string `json:"encodedImage"`
	Payload        string `json:"payload"`
	ExpirationDate string `json:"expirationDate"`
}

// IdentificationField is the response of GET /payments/{id}/identificationField.
type IdentificationField struct {
	IdentificationField string `json:"identificationField"`
	NossoNumero         string `json:"nossoNumero"`
	BarCode             string `json:"barCode"`
}

// WebhookEvent is the body the gateway posts to the webhook endpoint.
type WebhookEvent struct {
	ID      string   `json:"id"`
	Event   string   `json:"event"`
	Payment *Payment `json:"payment"`
}

type apiErrorItem struct {
	Code        string `json:"code"`
	Description string `json:"description"`
}

type apiErrorBody struct {
	Errors []apiErrorItem `json:"errors"`
}

// ValueFromCents converts an integer cent amount to the decimal BRL
// value the gateway expects.
func ValueFromCents(cents int64) float64 {
	return float64(cents) / 100
}

// DueDate formats a time as the gateway's date-only field.
func DueDate(t time.Time) string {
	return t.Format("2006-01-02")
}
