package api

import (
	"net/http"

	"storefront-service/internal/service"

	"github.com/gin-gonic/gin"
)

func (h *Handler) createUser(c *gin.Context) {
	var req service.CreateUserRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "E-mail e senha são obrigatórios")
		return
	}

	profile, err := h.cfg.Accounts.CreateUser(c.Request.Context(), actorFrom(c), req)
	if err != nil {
		abortWithError(c, mapAccountError(err))
		return
	}
	c.JSON(http.StatusCreated, profile)
}

func (h *Handler) deleteUser(c *gin.Context) {
	if err := h.cfg.Accounts.DeleteUser(c.Request.Context(), actorFrom(c), c.Param("id")); err != nil {
		abortWithError(c, mapAccountError(err))
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *Handler) unbanUser(c *gin.Context) {
	if err := h.cfg.Accounts.UnbanUser(c.Request.Context(), actorFrom(c), c.Param("id")); err != nil {
		abortWithError(c, mapAccountError(err))
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true})
}

type resetPasswordRequest struct {
	Email string `json:"email" binding:"required"`
}

// resetPassword answers the same way whether or not the email is registered
func (h *Handler) resetPassword(c *gin.Context) {
	var req resetPasswordRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "E-mail obrigatório")
		return
	}

	if err := h.cfg.Accounts.RequestPasswordReset(c.Request.Context(), req.Email); err != nil {
		abortWithError(c, mapAccountError(err))
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"message": "Se o e-mail estiver cadastrado, você receberá um link para redefinir sua senha",
	})
}

type dailyReportRequest struct {
	Date string `json:"date"`
}

// generateDailyReport defaults to the previous day when no date is given
func (h *Handler) generateDailyReport(c *gin.Context) {
	var req dailyReportRequest
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			badRequest(c, "Corpo da requisição inválido")
			return
		}
	}

	report, err := h.cfg.Reports.GenerateDaily(c.Request.Context(), req.Date, "manual")
	if err != nil {
		abortWithError(c, mapReportError(err))
		return
	}
	c.JSON(http.StatusOK, report)
}
