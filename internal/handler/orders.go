package handler

import (
	"context"
	"net/http"

	"catalogdesk/internal/dto"
	"catalogdesk/internal/service"

	"github.com/gin-gonic/gin"
)

// RefreshQueue hands an order refresh to the background workers.
type RefreshQueue interface {
	EnqueueOrdersRefresh(ctx context.Context) (queue string, err error)
}

type OrdersHandler struct {
	svc   service.OrderService
	queue RefreshQueue
}

func NewOrdersHandler(svc service.OrderService, queue RefreshQueue) *OrdersHandler {
	return &OrdersHandler{svc: svc, queue: queue}
}

// List godoc
// @Summary Cached supplier orders
// @Tags orders
// @Security BearerAuth
// @Produce json
// @Param supplier query string false "Supplier ID"
// @Param relevant query bool   false "Only orders that need a follow-up"
// @Param variant  query string false "standard | recent"
// @Param open     query bool   false "Only orders without a log number"
// @Success 200 {object} dto.OrderListResponse
// @Failure 422 {object} apierror.ValidationError
// @Router /v1/orders [get]
func (h *OrdersHandler) List(c *gin.Context) {
	var q dto.OrderListQuery
	if !bindQuery(c, &q) {
		return
	}
	resp, err := h.svc.List(c.Request.Context(), q)
	if err != nil {
		writeServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

// Refresh godoc
// @Summary Reload the order feed
// @Description With async=true the refresh is queued and 202 is returned at once.
// @Tags orders
// @Security BearerAuth
// @Produce json
// @Param async query bool false "Queue instead of waiting"
// @Success 200 {object} dto.RefreshResponse
// @Success 202 {object} dto.JobAcceptedResponse
// @Failure 503 {object} apierror.APIError
// @Router /v1/orders/refresh [post]
func (h *OrdersHandler) Refresh(c *gin.Context) {
	if c.Query("async") == "true" && h.queue != nil {
		queue, err := h.queue.EnqueueOrdersRefresh(c.Request.Context())
		if err != nil {
			writeServiceError(c, err)
			return
		}
		c.JSON(http.StatusAccepted, dto.JobAcceptedResponse{Queued: true, Queue: queue})
		return
	}
	resp, err := h.svc.Refresh(c.Request.Context())
	if err != nil {
		writeServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

// Status godoc
// @Summary When the order cache was last refreshed
// @Tags orders
// @Security BearerAuth
// @Produce json
// @Success 200 {object} dto.OrderStatusResponse
// @Router /v1/orders/status [get]
func (h *OrdersHandler) Status(c *gin.Context) {
	resp, err := h.svc.Status(c.Request.Context())
	if err != nil {
		writeServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}
