package asaas

import (
	"bytes"
	"context"
	"crypto/subtle"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/danielmoraes/lecto-backend/pkg/config"
	pkgerrors "github.com/danielmoraes/lecto-backend/pkg/errors"
	"github.com/danielmoraes/lecto-backend/pkg/logger"
)

const (
	sandboxEnv    = "sandbox"
	productionEnv = "production"

	defaultTimeout = 15 * time.Second
)

var (
	errAPIKeyRequired       = errors.New("asaas api key is required")
	errWebhookTokenRequired = errors.New("asaas webhook token is required")
	errInvalidAsaasEnv      = fmt.Errorf("asaas environment must be %q or %q", sandboxEnv, productionEnv)
	errLoggerRequired       = errors.New("asaas logger is required")
)

var baseURLs = map[string]string{
	sandboxEnv:    "https://sandbox.asaas.com/api/v3",
	productionEnv: "https://api.asaas.com/v3",
}

// Client exposes the Asaas REST primitives with centralized auth,
// logging, and error mapping. The gateway has no Go SDK, so requests
// are issued directly over net/http.
type Client struct {
	httpClient   *http.Client
	apiKey       string
	webhookToken string
	environment  string
	baseURL      string
	logger       *logger.Logger
}

// NewClient initializes the Asaas wrapper and validates the credentials.
func NewClient(ctx context.Context, cfg config.AsaasConfig, logg *logger.Logger) (*Client, error) {
	if logg == nil {
		return nil, errLoggerRequired
	}
	env, err := normalizeEnv(cfg.Environment())
	if err != nil {
		return nil, err
	}

	apiKey := strings.TrimSpace(cfg.APIKey)
	if apiKey == "" {
		return nil, errAPIKeyRequired
	}

	webhookToken := strings.TrimSpace(cfg.WebhookToken)
	if webhookToken == "" {
		return nil, errWebhookTokenRequired
	}

	timeout := cfg.RequestTimeout
	if timeout <= 0 {
		timeout = defaultTimeout
	}

	c := &Client{
		httpClient:   &http.Client{Timeout: timeout},
		apiKey:       apiKey,
		webhookToken: webhookToken,
		environment:  env,
		baseURL:      baseURLs[env],
		logger:       logg,
	}

	logg.Info(ctx, "asaas client initialized")
	return c, nil
}

func normalizeEnv(env string) (string, error) {
	switch strings.TrimSpace(strings.ToLower(env)) {
	case "", sandboxEnv:
		return sandboxEnv, nil
	case productionEnv:
		return productionEnv, nil
	default:
		return "", errInvalidAsaasEnv
	}
}

// Environment reports the normalized Asaas environment.
func (c *Client) Environment() string {
	if c == nil {
		return ""
	}
	return c.environment
}

// VerifyWebhookToken compares the asaas-access-token header value
// against the configured secret in constant time.
func (c *Client) VerifyWebhookToken(token string) bool {
	if c == nil || c.webhookToken == "" {
		return false
	}
	return subtle.ConstantTimeCompare([]byte(token), []byte(c.webhookToken)) == 1
}

// CreateCustomer registers a gateway customer for the buyer.
func (c *Client) CreateCustomer(ctx context.Context, params CustomerCreateParams) (*Customer, error) {
	c.log(ctx, "request", "create_customer", map[string]any{"email": params.Email})

	var customer Customer
	if err := c.do(ctx, http.MethodPost, "/customers", params, &customer); err != nil {
		c.log(ctx, "error", "create_customer", map[string]any{"error": err.Error()})
		return nil, err
	}

	c.log(ctx, "response", "create_customer", map[string]any{"customer_id": customer.ID})
	return &customer, nil
}

// CreatePayment opens a charge. Card charges resolve synchronously in
// the returned status; PIX and boleto come back PENDING.
func (c *Client) CreatePayment(ctx context.Context, params PaymentCreateParams) (*Payment, error) {
	c.log(ctx, "request", "create_payment", map[string]any{
		"billing_type":       params.BillingType,
		"external_reference": params.ExternalReference,
	})

	var payment Payment
	if err := c.do(ctx, http.MethodPost, "/payments", params, &payment); err != nil {
		c.log(ctx, "error", "create_payment", map[string]any{"error": err.Error()})
		return nil, err
	}

	c.log(ctx, "response", "create_payment", map[string]any{
		"payment_id": payment.ID,
		"status":     payment.Status,
	})
	return &payment, nil
}

// GetPayment fetches the current charge state.
func (c *Client) GetPayment(ctx context.Context, paymentID string) (*Payment, error) {
	if strings.TrimSpace(paymentID) == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "payment id is required")
	}
	c.log(ctx, "request", "get_payment", map[string]any{"payment_id": paymentID})

	var payment Payment
	if err := c.do(ctx, http.MethodGet, "/payments/"+paymentID, nil, &payment); err != nil {
		c.log(ctx, "error", "get_payment", map[string]any{"error": err.Error()})
		return nil, err
	}

	c.log(ctx, "response", "get_payment", map[string]any{
		"payment_id": payment.ID,
		"status":     payment.Status,
	})
	return &payment, nil
}

// GetPixQRCode returns the copy-and-paste payload and QR image for a
// PIX charge.
func (c *Client) GetPixQRCode(ctx context.Context, paymentID string) (*PixQRCode, error) {
	if strings.TrimSpace(paymentID) == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "payment id is required")
	}
	c.log(ctx, "request", "get_pix_qrcode", map[string]any{"payment_id": paymentID})

	var qr PixQRCode
	if err := c.do(ctx, http.MethodGet, "/payments/"+paymentID+"/pixQrCode", nil, &qr); err != nil {
		c.log(ctx, "error", "get_pix_qrcode", map[string]any{"error": err.Error()})
		return nil, err
	}
	return &qr, nil
}

// GetIdentificationField returns the typeable boleto line for a charge.
func (c *Client) GetIdentificationField(ctx context.Context, paymentID string) (*IdentificationField, error) {
	if strings.TrimSpace(paymentID) == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "payment id is required")
	}
	c.log(ctx, "request", "get_identification_field", map[string]any{"payment_id": paymentID})

	var field IdentificationField
	if err := c.do(ctx, http.MethodGet, "/payments/"+paymentID+"/identificationField", nil, &field); err != nil {
		c.log(ctx, "error", "get_identification_field", map[string]any{"error": err.Error()})
		return nil, err
	}
	return &field, nil
}

func (c *Client) do(ctx context.Context, method, path string, body any, out any) error {
	var payload io.Reader
	if body != nil {
		encoded, err := json.Marshal(body)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "encoding gateway request")
		}
		payload = bytes.NewReader(encoded)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, payload)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "building gateway request")
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	req.Header.Set("access_token", c.apiKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "calling payment gateway")
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "reading gateway response")
	}

	if resp.StatusCode >= http.StatusBadRequest {
		return c.mapAPIError(resp.StatusCode, raw)
	}

	if out == nil {
		return nil
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "decoding gateway response")
	}
	return nil
}

func (c *Client) mapAPIError(status int, raw []byte) error {
	var body apiErrorBody
	_ = json.Unmarshal(raw, &body)

	description := fmt.Sprintf("gateway returned status %d", status)
	code := ""
	if len(body.Errors) > 0 {
		description = body.Errors[0].Description
		code = body.Errors[0].Code
	}

	if isDeclineCode(code) {
		return pkgerrors.New(pkgerrors.CodePaymentDeclined, description).
			WithDetails(map[string]any{"gateway_code": code})
	}
	if status == http.StatusNotFound {
		return pkgerrors.New(pkgerrors.CodeNotFound, "charge not found at gateway")
	}
	if status == http.StatusUnauthorized || status == http.StatusForbidden {
		return pkgerrors.New(pkgerrors.CodeDependency, "gateway rejected credentials")
	}
	if status >= http.StatusInternalServerError {
		return pkgerrors.New(pkgerrors.CodeDependency, description)
	}
	return pkgerrors.New(pkgerrors.CodeValidation, description)
}

// isDeclineCode matches the gateway error codes raised when a card
// charge is refused.
func isDeclineCode(code string) bool {
	switch code {
	case "invalid_creditCard", "invalid_credit_card", "creditCard_declined":
		return true
	}
	return strings.Contains(strings.ToLower(code), "declin")
}

func (c *Client) log(ctx context.Context, stage, operation string, fields map[string]any) {
	if c == nil || c.logger == nil {
		return
	}
	payload := map[string]any{
		"gateway":   "asaas",
		"stage":     stage,
		"operation": operation,
	}
	for k, v := range fields {
		payload[k] = v
	}
	logCtx := c.logger.WithFields(ctx, payload)
	c.logger.Info(logCtx, "asaas "+operation)
}
