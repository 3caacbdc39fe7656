package api

import (
	"errors"
	"net/http"
	"strings"

	"storefront-service/internal/authadmin"
	"storefront-service/internal/pix"
	"storefront-service/internal/service"

	"github.com/gin-gonic/gin"
)

// AppError is the error body every endpoint answers with
type AppError struct {
	Code       string
	Message    string
	HTTPStatus int
	Err        error
}

func (e *AppError) Error() string {
	if e.Err != nil {
		return e.Code + ": " + e.Err.Error()
	}
	return e.Code + ": " + e.Message
}

func newAppError(code, message string, status int) *AppError {
	return &AppError{Code: code, Message: message, HTTPStatus: status}
}

// ToHTTPError renders the JSON body
func (e *AppError) ToHTTPError() gin.H {
	return gin.H{"error": gin.H{"code": e.Code, "message": e.Message}}
}

func abortWithError(c *gin.Context, appErr *AppError) {
	if appErr.Err != nil {
		_ = c.Error(appErr.Err)
	}
	c.AbortWithStatusJSON(appErr.HTTPStatus, appErr.ToHTTPError())
}

func badRequest(c *gin.Context, message string) {
	abortWithError(c, newAppError("INVALID_REQUEST", message, http.StatusBadRequest))
}

func internalError(err error) *AppError {
	return &AppError{Code: "INTERNAL_ERROR", Message: "Erro interno do servidor", HTTPStatus: http.StatusInternalServerError, Err: err}
}

func mapOrderError(err error) *AppError {
	switch {
	case errors.Is(err, service.ErrOrderNotFound):
		return newAppError("ORDER_NOT_FOUND", "Pedido não encontrado", http.StatusNotFound)
	case errors.Is(err, service.ErrOrderLocked):
		return newAppError("ORDER_LOCKED", "O pedido está sendo atualizado por outro operador", http.StatusConflict)
	case errors.Is(err, service.ErrTransitionNotAllowed):
		return newAppError("TRANSITION_NOT_ALLOWED", "Transição de status não permitida", http.StatusConflict)
	case errors.Is(err, service.ErrInvalidStatus):
		return newAppError("INVALID_STATUS", "Status de pedido inválido", http.StatusBadRequest)
	case errors.Is(err, service.ErrInvalidPaymentStatus):
		return newAppError("INVALID_PAYMENT_STATUS", "Status de pagamento inválido", http.StatusBadRequest)
	case errors.Is(err, service.ErrInvalidInput):
		return newAppError("INVALID_REQUEST", err.Error(), http.StatusBadRequest)
	default:
		return internalError(err)
	}
}

func mapFeatureError(err error) *AppError {
	var depErr *service.DependencyError
	switch {
	case errors.As(err, &depErr):
		return newAppError("MISSING_DEPENDENCIES",
			"Funcionalidades necessárias não estão ativas: "+strings.Join(depErr.Missing, ", "),
			http.StatusUnprocessableEntity)
	case errors.Is(err, service.ErrFeatureNotFound):
		return newAppError("FEATURE_NOT_FOUND", "Funcionalidade não encontrada", http.StatusNotFound)
	case errors.Is(err, service.ErrGrantNotFound):
		return newAppError("GRANT_NOT_FOUND", "O usuário não possui esta funcionalidade", http.StatusNotFound)
	case errors.Is(err, service.ErrInvalidPeriod):
		return newAppError("INVALID_PERIOD", "Tipo de período inválido", http.StatusBadRequest)
	default:
		return internalError(err)
	}
}

func mapAccountError(err error) *AppError {
	var apiErr *authadmin.APIError
	switch {
	case errors.Is(err, service.ErrSelfDelete):
		return newAppError("SELF_DELETE", "Você não pode excluir sua própria conta", http.StatusBadRequest)
	case errors.Is(err, service.ErrUserNotFound):
		return newAppError("USER_NOT_FOUND", "Usuário não encontrado", http.StatusNotFound)
	case errors.Is(err, service.ErrInvalidRole):
		return newAppError("INVALID_ROLE", "Perfil de acesso inválido", http.StatusBadRequest)
	case errors.Is(err, service.ErrInsufficientRole):
		return newAppError("FORBIDDEN", "Permissão insuficiente", http.StatusForbidden)
	case errors.Is(err, service.ErrInvalidInput):
		return newAppError("INVALID_REQUEST", translateMessage(err.Error()), http.StatusBadRequest)
	case errors.As(err, &apiErr):
		status := apiErr.StatusCode
		if status < 400 || status >= 500 {
			status = http.StatusBadGateway
		}
		return &AppError{Code: "AUTH_PROVIDER_ERROR", Message: translateMessage(apiErr.Message), HTTPStatus: status, Err: err}
	default:
		return internalError(err)
	}
}

func mapReportError(err error) *AppError {
	if errors.Is(err, service.ErrInvalidReportDate) {
		return newAppError("INVALID_DATE", "Data do relatório inválida", http.StatusBadRequest)
	}
	return internalError(err)
}

func mapPixError(err error) *AppError {
	appErr := &AppError{Code: pix.Code(err), HTTPStatus: pix.HTTPStatus(err), Err: err}
	switch {
	case errors.Is(err, pix.ErrOrderNotFound):
		appErr.Message = "Pedido não encontrado"
	case errors.Is(err, pix.ErrOrderAlreadyPaid):
		appErr.Message = "Este pedido já foi pago"
	case errors.Is(err, pix.ErrOrderCancelled):
		appErr.Message = "Este pedido foi cancelado"
	case errors.Is(err, pix.ErrOrderLocked):
		appErr.Message = "Um pagamento para este pedido já está sendo gerado"
	case errors.Is(err, pix.ErrWebhookNotRegistered):
		appErr.Message = "O serviço de pagamento PIX não está disponível no momento"
	case errors.Is(err, pix.ErrServiceTimeout):
		appErr.Message = "O serviço de pagamento PIX demorou demais para responder"
	case errors.Is(err, pix.ErrInvalidResponse):
		appErr.Message = "Resposta inválida do serviço de pagamento PIX"
	case errors.Is(err, pix.ErrProviderNotConfigured):
		appErr.Message = "Pagamento PIX não configurado"
	default:
		appErr.Message = "Não foi possível gerar o pagamento PIX"
	}
	return appErr
}

var messageTranslations = []struct {
	match       string
	translation string
}{
	{"invalid login credentials", "Credenciais de login inválidas"},
	{"email not confirmed", "E-mail não confirmado"},
	{"user already registered", "Usuário já cadastrado"},
	{"already been registered", "Já existe um usuário com este e-mail"},
	{"password should be at least", "A senha deve ter pelo menos 6 caracteres"},
	{"password must have at least", "A senha deve ter pelo menos 6 caracteres"},
	{"unable to validate email address", "Endereço de e-mail inválido"},
	{"invalid email", "Endereço de e-mail inválido"},
	{"user not found", "Usuário não encontrado"},
	{"for security purposes", "Por segurança, aguarde alguns segundos antes de tentar novamente"},
	{"email rate limit exceeded", "Limite de envio de e-mails excedido, tente novamente mais tarde"},
	{"token has expired", "Link expirado, solicite um novo"},
	{"new password should be different", "A nova senha deve ser diferente da anterior"},
}

// translateMessage turns a known backend message into Portuguese. Unknown
// messages are returned unchanged.
func translateMessage(msg string) string {
	lower := strings.ToLower(msg)
	for _, t := range messageTranslations {
		if strings.Contains(lower, t.match) {
			return t.translation
		}
	}
	return msg
}
