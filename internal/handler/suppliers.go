package handler

import (
	"fmt"
	"net/http"

	"catalogdesk/internal/dto"
	"catalogdesk/internal/service"
	"catalogdesk/internal/worker"

	"github.com/gin-gonic/gin"
)

type SuppliersHandler struct {
	suppliers service.SupplierService
	orders    service.OrderService
}

func NewSuppliersHandler(suppliers service.SupplierService, orders service.OrderService) *SuppliersHandler {
	return &SuppliersHandler{suppliers: suppliers, orders: orders}
}

// List godoc
// @Summary Active suppliers
// @Tags suppliers
// @Security BearerAuth
// @Produce json
// @Success 200 {array} dto.SupplierResponse
// @Router /v1/suppliers [get]
func (h *SuppliersHandler) List(c *gin.Context) {
	resp, err := h.suppliers.List(c.Request.Context())
	if err != nil {
		writeServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

// Refresh godoc
// @Summary Reload the supplier feed
// @Tags suppliers
// @Security BearerAuth
// @Produce json
// @Success 200 {object} dto.SupplierRefreshResponse
// @Failure 503 {object} apierror.APIError
// @Router /v1/suppliers/refresh [post]
func (h *SuppliersHandler) Refresh(c *gin.Context) {
	n, err := h.suppliers.Refresh(c.Request.Context())
	if err != nil {
		writeServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, dto.SupplierRefreshResponse{Count: n})
}

// Orders godoc
// @Summary Orders of one supplier
// @Tags suppliers
// @Security BearerAuth
// @Produce json
// @Param id      path  string true  "Supplier ID"
// @Param overdue query bool   false "Only overdue orders"
// @Param variant query string false "standard | recent"
// @Success 200 {object} dto.OrderListResponse
// @Router /v1/suppliers/{id}/orders [get]
func (h *SuppliersHandler) Orders(c *gin.Context) {
	var q dto.SupplierReportQuery
	if !bindQuery(c, &q) {
		return
	}
	resp, err := h.orders.List(c.Request.Context(), dto.OrderListQuery{
		SupplierID: c.Param("id"),
		Relevant:   q.OverdueOnly,
		Variant:    q.Variant,
	})
	if err != nil {
		writeServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

// OrdersPDF godoc
// @Summary Supplier order report as PDF
// @Tags suppliers
// @Security BearerAuth
// @Produce application/pdf
// @Param id      path  string true  "Supplier ID"
// @Param overdue query bool   false "Only overdue orders"
// @Param variant query string false "standard | recent"
// @Success 200 {file} binary
// @Router /v1/suppliers/{id}/orders.pdf [get]
func (h *SuppliersHandler) OrdersPDF(c *gin.Context) {
	var q dto.SupplierReportQuery
	if !bindQuery(c, &q) {
		return
	}
	pdf, filename, err := h.orders.SupplierReportPDF(c.Request.Context(), c.Param("id"), q)
	if err != nil {
		writeServiceError(c, err)
		return
	}
	c.Header("Content-Disposition", fmt.Sprintf(`attachment; filename="%s"`, filename))
	c.Data(http.StatusOK, "application/pdf", pdf)
}

// Mail godoc
// @Summary Email the supplier order report
// @Description The PDF is rendered now and delivered by the email worker.
// @Tags suppliers
// @Security BearerAuth
// @Accept json
// @Produce json
// @Param id   path string                true "Supplier ID"
// @Param body body dto.MailReportRequest true "Recipients"
// @Success 202 {object} dto.JobAcceptedResponse
// @Failure 404 {object} apierror.APIError
// @Failure 422 {object} apierror.ValidationError
// @Router /v1/suppliers/{id}/orders/mail [post]
func (h *SuppliersHandler) Mail(c *gin.Context) {
	var req dto.MailReportRequest
	if !bindAndValidate(c, &req) {
		return
	}
	if err := h.orders.MailSupplierReport(c.Request.Context(), c.Param("id"), req); err != nil {
		writeServiceError(c, err)
		return
	}
	c.JSON(http.StatusAccepted, dto.JobAcceptedResponse{Queued: true, Queue: worker.QueueEmail})
}
