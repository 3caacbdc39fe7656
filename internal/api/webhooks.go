package api

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"storefront-service/internal/service"
	"storefront-service/internal/signature"

	"github.com/gin-gonic/gin"
)

const (
	authWebhookSignatureHeader = "X-Webhook-Signature"
	maxWebhookBody             = 1 << 20
)

// authEventWebhook accepts database webhooks about auth users. The body must be
// signed with the shared webhook secret.
func (h *Handler) authEventWebhook(c *gin.Context) {
	body, err := io.ReadAll(io.LimitReader(c.Request.Body, maxWebhookBody))
	if err != nil {
		badRequest(c, "Corpo da requisição inválido")
		return
	}

	if err := signature.Verify(h.cfg.AuthWebhookSecret, body, c.GetHeader(authWebhookSignatureHeader)); err != nil {
		if errors.Is(err, signature.ErrNoSecret) {
			abortWithError(c, &AppError{Code: "WEBHOOK_NOT_CONFIGURED", Message: "Webhook não configurado", HTTPStatus: http.StatusServiceUnavailable, Err: err})
			return
		}
		abortWithError(c, &AppError{Code: "INVALID_SIGNATURE", Message: "Assinatura inválida", HTTPStatus: http.StatusUnauthorized, Err: err})
		return
	}

	var ev service.AuthEvent
	if err := json.Unmarshal(body, &ev); err != nil || ev.Type == "" {
		badRequest(c, "Evento inválido")
		return
	}

	outcome, err := h.cfg.AuthEvents.Handle(c.Request.Context(), ev)
	if err != nil {
		if errors.Is(err, service.ErrUnsupportedAuthEvent) {
			badRequest(c, "Evento inválido")
			return
		}
		abortWithError(c, internalError(err))
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "outcome": outcome})
}
