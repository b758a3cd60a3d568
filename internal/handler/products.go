package handler

import (
	"net/http"

	"catalogdesk/internal/apierror"
	"catalogdesk/internal/dto"
	"catalogdesk/internal/middleware"
	"catalogdesk/internal/service"

	"github.com/gin-gonic/gin"
)

type ProductsHandler struct{ svc service.ProductService }

func NewProductsHandler(svc service.ProductService) *ProductsHandler {
	return &ProductsHandler{svc: svc}
}

// List godoc
// @Summary List products
// @Tags products
// @Security BearerAuth
// @Produce json
// @Param page            query int    false "Page (1-based)"
// @Param limit           query int    false "Page size (10, 25, 50, 100)"
// @Param sort            query string false "name | stock | updatedAt | productNumber"
// @Param direction       query string false "asc | desc"
// @Param manufacturer_id query string false "Manufacturer filter"
// @Success 200 {object} dto.ProductPageResponse
// @Failure 503 {object} apierror.APIError
// @Router /v1/products [get]
func (h *ProductsHandler) List(c *gin.Context) {
	var q dto.ProductListQuery
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

// Search godoc
// @Summary Search products by term
// @Tags products
// @Security BearerAuth
// @Produce json
// @Param q     query string false "Search term; empty lists all products"
// @Param page  query int    false "Page (1-based)"
// @Param limit query int    false "Page size"
// @Success 200 {object} dto.ProductPageResponse
// @Router /v1/products/search [get]
func (h *ProductsHandler) Search(c *gin.Context) {
	var q dto.ProductListQuery
	if !bindQuery(c, &q) {
		return
	}
	resp, err := h.svc.Search(c.Request.Context(), q)
	if err != nil {
		writeServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

// Get godoc
// @Summary Get a product
// @Tags products
// @Security BearerAuth
// @Produce json
// @Param id path string true "Product ID"
// @Success 200 {object} model.Product
// @Failure 404 {object} apierror.APIError
// @Router /v1/products/{id} [get]
func (h *ProductsHandler) Get(c *gin.Context) {
	p, err := h.svc.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		writeServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, p)
}

// Detail godoc
// @Summary Product with related products and manufacturer name
// @Tags products
// @Security BearerAuth
// @Produce json
// @Param id path string true "Product ID"
// @Success 200 {object} dto.ProductDetailResponse
// @Failure 404 {object} apierror.APIError
// @Router /v1/products/{id}/detail [get]
func (h *ProductsHandler) Detail(c *gin.Context) {
	resp, err := h.svc.Detail(c.Request.Context(), c.Param("id"))
	if err != nil {
		writeServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

// Related godoc
// @Summary Products sharing the product's name
// @Tags products
// @Security BearerAuth
// @Produce json
// @Param id path string true "Product ID"
// @Success 200 {array} model.Product
// @Router /v1/products/{id}/related [get]
func (h *ProductsHandler) Related(c *gin.Context) {
	resp, err := h.svc.Related(c.Request.Context(), c.Param("id"))
	if err != nil {
		writeServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

// AdoptContent godoc
// @Summary Copy texts from the first related product that has a description
// @Description Nothing is saved; the editor reviews the result and saves it.
// @Tags products
// @Security BearerAuth
// @Produce json
// @Param id path string true "Product ID"
// @Success 200 {object} model.Product
// @Failure 404 {object} apierror.APIError
// @Router /v1/products/{id}/adopt-content [post]
func (h *ProductsHandler) AdoptContent(c *gin.Context) {
	p, err := h.svc.AdoptContent(c.Request.Context(), c.Param("id"))
	if err != nil {
		writeServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, p)
}

// Save godoc
// @Summary Save product content
// @Description With related_ids set, the content goes to those products and the name is left alone.
// @Tags products
// @Security BearerAuth
// @Accept json
// @Produce json
// @Param id   path string                 true "Product ID"
// @Param body body dto.SaveProductRequest true "Product"
// @Success 200 {object} dto.SaveProductResponse
// @Failure 422 {object} apierror.ValidationError
// @Failure 502 {object} apierror.APIError
// @Failure 503 {object} apierror.APIError
// @Router /v1/products/{id} [put]
func (h *ProductsHandler) Save(c *gin.Context) {
	var req dto.SaveProductRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, apierror.New("Invalid JSON: "+err.Error()))
		return
	}
	// The path wins over the body; the service does the validation.
	req.ID = c.Param("id")

	resp, err := h.svc.Save(c.Request.Context(), middleware.UserID(c), req)
	if err != nil {
		writeServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

// Revisions godoc
// @Summary Save history of a product, newest first
// @Tags products
// @Security BearerAuth
// @Produce json
// @Param id path string true "Product ID"
// @Success 200 {array} dto.RevisionResponse
// @Router /v1/products/{id}/revisions [get]
func (h *ProductsHandler) Revisions(c *gin.Context) {
	resp, err := h.svc.Revisions(c.Request.Context(), c.Param("id"))
	if err != nil {
		writeServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

// Sanitize godoc
// @Summary Clean rich-text HTML without saving
// @Tags products
// @Security BearerAuth
// @Accept json
// @Produce json
// @Param body body dto.SanitizeRequest true "HTML"
// @Success 200 {object} dto.SanitizeResponse
// @Router /v1/products/sanitize [post]
func (h *ProductsHandler) Sanitize(c *gin.Context) {
	var req dto.SanitizeRequest
	if !bindAndValidate(c, &req) {
		return
	}
	c.JSON(http.StatusOK, h.svc.Sanitize(req))
}

// ── Lookups ───────────────────────────────────────────────────────────────────

// Manufacturers godoc
// @Summary Manufacturers in collated order
// @Tags catalog
// @Security BearerAuth
// @Produce json
// @Success 200 {array} model.Manufacturer
// @Router /v1/manufacturers [get]
func (h *ProductsHandler) Manufacturers(c *gin.Context) {
	resp, err := h.svc.Manufacturers(c.Request.Context())
	if err != nil {
		writeServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

// Categories godoc
// @Summary Categories in collated order
// @Tags catalog
// @Security BearerAuth
// @Produce json
// @Success 200 {array} model.Category
// @Router /v1/categories [get]
func (h *ProductsHandler) Categories(c *gin.Context) {
	resp, err := h.svc.Categories(c.Request.Context())
	if err != nil {
		writeServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}
