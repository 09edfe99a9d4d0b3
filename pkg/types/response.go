// Package types holds the wire envelopes shared by every endpoint.
package types

type SuccessEnvelope struct {
	Data any `json:"data"`
}

// APIError is the public error shape. Message is only populated for
// codes safe to expose to buyers.
type APIError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Details any    `json:"details,omitempty"`
}

type ErrorEnvelope struct {
	Error APIError `json:"error"`
}
