package controllers

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/danielmoraes/lecto-backend/api/middleware"
	"github.com/danielmoraes/lecto-backend/api/responses"
	"github.com/danielmoraes/lecto-backend/api/validators"
	checkoutsvc "github.com/danielmoraes/lecto-backend/internal/checkout"
	"github.com/danielmoraes/lecto-backend/internal/gateway"
	"github.com/danielmoraes/lecto-backend/internal/orders"
	"github.com/danielmoraes/lecto-backend/pkg/enums"
	pkgerrors "github.com/danielmoraes/lecto-backend/pkg/errors"
	"github.com/danielmoraes/lecto-backend/pkg/logger"
)

type checkoutRequest struct {
	PaymentMethod string       `json:"payment_method" validate:"required,oneof=credit_card pix boleto"`
	ProductIDs    []uuid.UUID  `json:"product_ids" validate:"required,min=1"`
	Email         string       `json:"email" validate:"omitempty,email"`
	Name          string       `json:"name" validate:"omitempty,max=200"`
	Document      string       `json:"document" validate:"required,min=11,max=14"`
	Card          *cardRequest `json:"card,omitempty"`
}

type cardRequest struct {
	HolderName    string `json:"holder_name" validate:"required"`
	Number        string `json:"number" validate:"required,min=13,max=19"`
	ExpiryMonth   string `json:"expiry_month" validate:"required,len=2"`
	ExpiryYear    string `json:"expiry_year" validate:"required,len=4"`
	CCV           string `json:"ccv" validate:"required,min=3,max=4"`
	PostalCode    string `json:"postal_code" validate:"required"`
	AddressNumber string `json:"address_number" validate:"required"`
	Phone         string `json:"phone" validate:"omitempty"`
}

// Checkout handles order submission for guests and signed-in buyers.
func Checkout(svc checkoutsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "checkout service unavailable"))
			return
		}

		var payload checkoutRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		input := checkoutsvc.CreateInput{
			UserID:        middleware.UserIDFromContext(r.Context()),
			Email:         payload.Email,
			Name:          payload.Name,
			Document:      payload.Document,
			PaymentMethod: enums.PaymentMethod(payload.PaymentMethod),
			ProductIDs:    payload.ProductIDs,
		}
		if input.Email == "" {
			input.Email = middleware.UserEmailFromContext(r.Context())
		}
		if payload.Card != nil {
			input.Card = &gateway.CardDetails{
				HolderName:    payload.Card.HolderName,
				Number:        payload.Card.Number,
				ExpiryMonth:   payload.Card.ExpiryMonth,
				ExpiryYear:    payload.Card.ExpiryYear,
				CCV:           payload.Card.CCV,
				PostalCode:    payload.Card.PostalCode,
				AddressNumber: payload.Card.AddressNumber,
				Phone:         payload.Card.Phone,
			}
		}

		result, err := svc.Create(r.Context(), input)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccessStatus(w, http.StatusCreated, result)
	}
}

// CheckoutStatus returns the order snapshot and its status history.
func CheckoutStatus(ordersSvc orders.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if ordersSvc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "orders service unavailable"))
			return
		}

		orderID, err := uuid.Parse(chi.URLParam(r, "orderID"))
		if err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid order id"))
			return
		}

		detail, err := ordersSvc.GetOrder(r.Context(), orderID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, detail)
	}
}
