package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/timmy/prodcat/internal/api/middleware"
	"github.com/timmy/prodcat/internal/domain"
	"github.com/timmy/prodcat/internal/service"
)

// ImageHandler serves product image assignment and the image tools.
type ImageHandler struct {
	images *service.ImageService
}

// NewImageHandler creates a new image handler.
func NewImageHandler(images *service.ImageService) *ImageHandler {
	return &ImageHandler{images: images}
}

type saveImageRequest struct {
	DataURL string             `json:"data_url" binding:"required"`
	Source  domain.ImageSource `json:"source"`
}

type dataURLRequest struct {
	DataURL     string `json:"data_url" binding:"required"`
	Description string `json:"description"`
	Code        string `json:"code"`
}

type fetchRequest struct {
	URL string `json:"url" binding:"required"`
}

// Save handles PUT /api/v1/products/:id/image.
func (h *ImageHandler) Save(c *gin.Context) {
	id, ok := productID(c)
	if !ok {
		return
	}
	var req saveImageRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "Invalid request: "+err.Error())
		return
	}

	assignment, err := h.images.Save(c.Request.Context(), middleware.Token(c), id, req.DataURL, req.Source)
	if err != nil {
		respondError(c, "Save image", err)
		return
	}
	c.JSON(http.StatusOK, assignment)
}

// Generate handles POST /api/v1/products/:id/image/generate.
func (h *ImageHandler) Generate(c *gin.Context) {
	if _, ok := productID(c); !ok {
		return
	}
	var req generateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "Invalid request: "+err.Error())
		return
	}

	dataURL, err := h.images.Generate(c.Request.Context(), req.Description, req.Code, req.Barcode)
	if err != nil {
		respondError(c, "Generate image", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data_url": dataURL})
}

// Central handles GET /api/v1/products/:id/image/central?barcode=.
func (h *ImageHandler) Central(c *gin.Context) {
	if _, ok := productID(c); !ok {
		return
	}
	barcode := c.Query("barcode")
	if barcode == "" {
		badRequest(c, "Query parameter 'barcode' is required")
		return
	}

	dataURL, err := h.images.CentralImage(c.Request.Context(), middleware.Token(c), barcode)
	if err != nil {
		respondError(c, "Central image lookup", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data_url": dataURL, "found": dataURL != ""})
}

// History handles GET /api/v1/products/:id/images.
func (h *ImageHandler) History(c *gin.Context) {
	id, ok := productID(c)
	if !ok {
		return
	}
	items, err := h.images.History(c.Request.Context(), id, queryInt(c, "limit", 0))
	if err != nil {
		respondError(c, "Image history", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"images": items, "total": len(items)})
}

// Improve handles POST /api/v1/images/improve.
func (h *ImageHandler) Improve(c *gin.Context) {
	var req dataURLRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "Invalid request: "+err.Error())
		return
	}

	dataURL, err := h.images.Improve(c.Request.Context(), req.DataURL, req.Description, req.Code)
	if err != nil {
		respondError(c, "Improve image", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data_url": dataURL})
}

// Search handles GET /api/v1/images/search?q=&provider=&n=.
func (h *ImageHandler) Search(c *gin.Context) {
	query := c.Query("q")
	if query == "" {
		badRequest(c, "Query parameter 'q' is required")
		return
	}

	urls, err := h.images.SearchWeb(c.Request.Context(), query, c.Query("provider"), queryInt(c, "n", 0))
	if err != nil {
		respondError(c, "Image search", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"urls": urls, "total": len(urls)})
}

// Fetch handles POST /api/v1/images/fetch.
func (h *ImageHandler) Fetch(c *gin.Context) {
	var req fetchRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "Invalid request: "+err.Error())
		return
	}

	dataURL, err := h.images.FetchAsDataURL(c.Request.Context(), req.URL)
	if err != nil {
		respondError(c, "Fetch image", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data_url": dataURL})
}

// OCR handles POST /api/v1/images/ocr.
func (h *ImageHandler) OCR(c *gin.Context) {
	var req dataURLRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "Invalid request: "+err.Error())
		return
	}

	res, err := h.images.OCR(c.Request.Context(), req.DataURL)
	if err != nil {
		respondError(c, "OCR", err)
		return
	}
	c.JSON(http.StatusOK, res)
}
