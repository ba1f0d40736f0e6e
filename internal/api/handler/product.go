package handler

import (
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/timmy/prodcat/internal/api/middleware"
	"github.com/timmy/prodcat/internal/domain"
	"github.com/timmy/prodcat/internal/service"
)

const dateLayout = "2006-01-02"

// ProductHandler serves catalog listings.
type ProductHandler struct {
	products *service.ProductService
}

// NewProductHandler creates a new product handler.
func NewProductHandler(products *service.ProductService) *ProductHandler {
	return &ProductHandler{products: products}
}

// List handles GET /api/v1/products.
// Query parameters: barcode, description, family_id, brand_id, branch_id,
// modified_from, modified_to (YYYY-MM-DD), image and has_barcode
// (with|without), page, page_size.
func (h *ProductHandler) List(c *gin.Context) {
	q, err := parseProductQuery(c)
	if err != nil {
		badRequest(c, err.Error())
		return
	}

	page, err := h.products.Search(c.Request.Context(), middleware.Token(c), q)
	if err != nil {
		respondError(c, "Product search", err)
		return
	}
	c.JSON(http.StatusOK, page)
}

// Families handles GET /api/v1/families.
func (h *ProductHandler) Families(c *gin.Context) {
	families, err := h.products.Families(c.Request.Context(), middleware.Token(c))
	if err != nil {
		respondError(c, "List families", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"families": families, "total": len(families)})
}

// Brands handles GET /api/v1/brands.
func (h *ProductHandler) Brands(c *gin.Context) {
	brands, err := h.products.Brands(c.Request.Context(), middleware.Token(c))
	if err != nil {
		respondError(c, "List brands", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"brands": brands, "total": len(brands)})
}

func parseProductQuery(c *gin.Context) (domain.ProductQuery, error) {
	q := domain.ProductQuery{
		Barcode:     c.Query("barcode"),
		Description: c.Query("description"),
		PageSize:    queryInt(c, "page_size", 0),
		PageNumber:  queryInt(c, "page", 1),
	}
	if q.PageNumber < 1 {
		return q, fmt.Errorf("page must be >= 1")
	}

	ids := map[string]*int64{"family_id": &q.FamilyID, "brand_id": &q.BrandID, "branch_id": &q.BranchID}
	for key, dst := range ids {
		raw := c.Query(key)
		if raw == "" {
			continue
		}
		v, err := strconv.ParseInt(raw, 10, 64)
		if err != nil || v < 0 {
			return q, fmt.Errorf("invalid %s %q", key, raw)
		}
		*dst = v
	}

	dates := map[string]**time.Time{"modified_from": &q.ModifiedFrom, "modified_to": &q.ModifiedTo}
	for key, dst := range dates {
		raw := c.Query(key)
		if raw == "" {
			continue
		}
		t, err := time.Parse(dateLayout, raw)
		if err != nil {
			return q, fmt.Errorf("invalid %s %q, want YYYY-MM-DD", key, raw)
		}
		*dst = &t
	}

	var err error
	if q.Image, err = domain.ParsePresence(c.Query("image")); err != nil {
		return q, err
	}
	if q.BarcodeState, err = domain.ParsePresence(c.Query("has_barcode")); err != nil {
		return q, err
	}
	return q, nil
}
