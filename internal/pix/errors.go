package pix

import (
	"errors"
	"net/http"
)

var (
	ErrOrderNotFound         = errors.New("order not found")
	ErrOrderAlreadyPaid      = errors.New("order already paid")
	ErrOrderCancelled        = errors.New("order is cancelled")
	ErrOrderLocked           = errors.New("a payment for this order is already being created")
	ErrWebhookNotRegistered  = errors.New("pix webhook not registered")
	ErrServiceTimeout        = errors.New("pix service timed out")
	ErrInvalidResponse       = errors.New("pix service returned an invalid response")
	ErrProviderFailed        = errors.New("pix provider request failed")
	ErrProviderNotConfigured = errors.New("pix provider not configured")
)

// HTTPStatus maps a bridge error to the status the API answers with
func HTTPStatus(err error) int {
	switch {
	case err == nil:
		return http.StatusOK
	case errors.Is(err, ErrOrderNotFound):
		return http.StatusNotFound
	case errors.Is(err, ErrOrderAlreadyPaid), errors.Is(err, ErrOrderCancelled), errors.Is(err, ErrOrderLocked):
		return http.StatusConflict
	case errors.Is(err, ErrWebhookNotRegistered):
		return http.StatusBadGateway
	case errors.Is(err, ErrServiceTimeout):
		return http.StatusGatewayTimeout
	case errors.Is(err, ErrProviderNotConfigured):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

// Code maps a bridge error to its machine-readable code
func Code(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrOrderNotFound):
		return "ORDER_NOT_FOUND"
	case errors.Is(err, ErrOrderAlreadyPaid):
		return "ORDER_ALREADY_PAID"
	case errors.Is(err, ErrOrderCancelled):
		return "ORDER_CANCELLED"
	case errors.Is(err, ErrOrderLocked):
		return "ORDER_LOCKED"
	case errors.Is(err, ErrWebhookNotRegistered):
		return "WEBHOOK_NOT_REGISTERED"
	case errors.Is(err, ErrServiceTimeout):
		return "PIX_SERVICE_TIMEOUT"
	case errors.Is(err, ErrInvalidResponse):
		return "INVALID_PIX_RESPONSE"
	case errors.Is(err, ErrProviderNotConfigured):
		return "PIX_PROVIDER_NOT_CONFIGURED"
	default:
		return "PIX_PAYMENT_FAILED"
	}
}
