package api

import (
	"net/http"
	"strconv"

	"storefront-service/internal/orderstatus"
	"storefront-service/internal/store"

	"github.com/gin-gonic/gin"
)

type statusView struct {
	Status  orderstatus.Status  `json:"status"`
	Text    string              `json:"text"`
	Variant orderstatus.Variant `json:"variant"`
}

func statusViews(statuses []orderstatus.Status) []statusView {
	out := make([]statusView, 0, len(statuses))
	for _, s := range statuses {
		l := orderstatus.LabelFor(string(s))
		out = append(out, statusView{Status: s, Text: l.Text, Variant: l.Variant})
	}
	return out
}

func (h *Handler) listOrderStatuses(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"statuses": statusViews(orderstatus.All()),
		"fallback": orderstatus.Fallback,
	})
}

func (h *Handler) listOrders(c *gin.Context) {
	filter := store.OrderFilter{
		Status:     c.Query("status"),
		CustomerID: c.Query("customer_id"),
		ResellerID: c.Query("reseller_id"),
	}
	var err error
	if v := c.Query("limit"); v != "" {
		if filter.Limit, err = strconv.Atoi(v); err != nil || filter.Limit < 0 {
			badRequest(c, "limit inválido")
			return
		}
	}
	if v := c.Query("offset"); v != "" {
		if filter.Offset, err = strconv.Atoi(v); err != nil || filter.Offset < 0 {
			badRequest(c, "offset inválido")
			return
		}
	}

	orders, err := h.cfg.Orders.ListOrders(c.Request.Context(), filter, actorFrom(c))
	if err != nil {
		abortWithError(c, mapOrderError(err))
		return
	}
	c.JSON(http.StatusOK, gin.H{"orders": orders, "count": len(orders)})
}

func (h *Handler) getOrder(c *gin.Context) {
	details, err := h.cfg.Orders.GetOrder(c.Request.Context(), c.Param("id"), actorFrom(c))
	if err != nil {
		abortWithError(c, mapOrderError(err))
		return
	}
	c.JSON(http.StatusOK, details)
}

func (h *Handler) getTransitions(c *gin.Context) {
	details, err := h.cfg.Orders.GetOrder(c.Request.Context(), c.Param("id"), actorFrom(c))
	if err != nil {
		abortWithError(c, mapOrderError(err))
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"current":     details.Order.Status,
		"label":       details.Label,
		"transitions": statusViews(details.Transitions),
	})
}

type updateStatusRequest struct {
	Status string `json:"status" binding:"required"`
	Note   string `json:"note"`
}

func (h *Handler) updateOrderStatus(c *gin.Context) {
	var req updateStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "Corpo da requisição inválido")
		return
	}

	change, err := h.cfg.Orders.UpdateStatus(c.Request.Context(), c.Param("id"), actorFrom(c), req.Status, req.Note)
	if err != nil {
		abortWithError(c, mapOrderError(err))
		return
	}
	c.JSON(http.StatusOK, change)
}

type updatePaymentStatusRequest struct {
	PaymentStatus string `json:"payment_status" binding:"required"`
}

func (h *Handler) updatePaymentStatus(c *gin.Context) {
	var req updatePaymentStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "Corpo da requisição inválido")
		return
	}

	order, err := h.cfg.Orders.UpdatePaymentStatus(c.Request.Context(), c.Param("id"), req.PaymentStatus)
	if err != nil {
		abortWithError(c, mapOrderError(err))
		return
	}
	c.JSON(http.StatusOK, order)
}

type updateTrackingRequest struct {
	TrackingCode    string `json:"tracking_code" binding:"required"`
	ShippingCarrier string `json:"shipping_carrier"`
}

func (h *Handler) updateTracking(c *gin.Context) {
	var req updateTrackingRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "Código de rastreio obrigatório")
		return
	}

	if err := h.cfg.Orders.UpdateTracking(c.Request.Context(), c.Param("id"), req.TrackingCode, req.ShippingCarrier); err != nil {
		abortWithError(c, mapOrderError(err))
		return
	}
	c.Status(http.StatusNoContent)
}

// createPixPayment only serves callers allowed to see the order
func (h *Handler) createPixPayment(c *gin.Context) {
	orderID := c.Param("id")
	if _, err := h.cfg.Orders.GetOrder(c.Request.Context(), orderID, actorFrom(c)); err != nil {
		abortWithError(c, mapOrderError(err))
		return
	}

	result, err := h.cfg.Pix.CreatePayment(c.Request.Context(), orderID)
	if err != nil {
		abortWithError(c, mapPixError(err))
		return
	}

	status := http.StatusCreated
	if result.Reused {
		status = http.StatusOK
	}
	c.JSON(status, result)
}
