package api

import (
	"net/http"

	"storefront-service/internal/models"
	"storefront-service/internal/service"

	"github.com/gin-gonic/gin"
)

func (h *Handler) listFeatures(c *gin.Context) {
	features, err := h.cfg.Features.ListCatalog(c.Request.Context())
	if err != nil {
		abortWithError(c, mapFeatureError(err))
		return
	}
	c.JSON(http.StatusOK, gin.H{"features": features})
}

// ownerOrAdmin aborts unless the caller is the user in the path or an admin
func ownerOrAdmin(c *gin.Context) (string, bool) {
	actor := actorFrom(c)
	userID := c.Param("id")
	if userID != actor.ID && !models.IsAdminRole(actor.Role) {
		abortWithError(c, newAppError("FORBIDDEN", "Permissão insuficiente", http.StatusForbidden))
		return "", false
	}
	return userID, true
}

func (h *Handler) listUserFeatures(c *gin.Context) {
	userID, ok := ownerOrAdmin(c)
	if !ok {
		return
	}

	views, err := h.cfg.Features.ListUserFeatures(c.Request.Context(), userID)
	if err != nil {
		abortWithError(c, mapFeatureError(err))
		return
	}
	c.JSON(http.StatusOK, gin.H{"features": views})
}

func (h *Handler) hasFeature(c *gin.Context) {
	userID, ok := ownerOrAdmin(c)
	if !ok {
		return
	}

	slug := c.Param("slug")
	active, err := h.cfg.Features.HasFeature(c.Request.Context(), userID, slug)
	if err != nil {
		abortWithError(c, mapFeatureError(err))
		return
	}
	c.JSON(http.StatusOK, gin.H{"feature_slug": slug, "active": active})
}

type assignFeatureRequest struct {
	Slug        string `json:"feature_slug" binding:"required"`
	TipoPeriodo string `json:"tipo_periodo" binding:"required"`
	Motivo      string `json:"motivo"`
}

func (h *Handler) assignFeature(c *gin.Context) {
	var req assignFeatureRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "feature_slug e tipo_periodo são obrigatórios")
		return
	}

	view, err := h.cfg.Features.Assign(c.Request.Context(), service.AssignRequest{
		UserID: c.Param("id"),
		Slug:   req.Slug,
		Period: req.TipoPeriodo,
		Reason: req.Motivo,
		Actor:  actorFrom(c).ID,
	})
	if err != nil {
		abortWithError(c, mapFeatureError(err))
		return
	}
	c.JSON(http.StatusOK, view)
}

type revokeFeatureRequest struct {
	Motivo string `json:"motivo"`
}

func (h *Handler) revokeFeature(c *gin.Context) {
	var req revokeFeatureRequest
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			badRequest(c, "Corpo da requisição inválido")
			return
		}
	}

	err := h.cfg.Features.Revoke(c.Request.Context(), c.Param("id"), c.Param("slug"), req.Motivo, actorFrom(c).ID)
	if err != nil {
		abortWithError(c, mapFeatureError(err))
		return
	}
	c.Status(http.StatusNoContent)
}
