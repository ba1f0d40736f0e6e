package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/timmy/prodcat/internal/api/middleware"
	"github.com/timmy/prodcat/internal/domain"
	"github.com/timmy/prodcat/internal/richtext"
	"github.com/timmy/prodcat/internal/service"
)

// ObservationHandler serves observation editing and the rich-text converters.
type ObservationHandler struct {
	observations *service.ObservationService
}

// NewObservationHandler creates a new observation handler.
func NewObservationHandler(observations *service.ObservationService) *ObservationHandler {
	return &ObservationHandler{observations: observations}
}

type rtfRequest struct {
	RTF string `json:"rtf"`
}

type htmlRequest struct {
	HTML string `json:"html"`
}

type saveObservationRequest struct {
	HTML   string                   `json:"html"`
	Origin domain.ObservationOrigin `json:"origin"`
}

type generateRequest struct {
	Description string `json:"description"`
	Code        string `json:"code"`
	Barcode     string `json:"barcode"`
}

// ToHTML handles POST /api/v1/richtext/html.
func (h *ObservationHandler) ToHTML(c *gin.Context) {
	var req rtfRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "Invalid request: "+err.Error())
		return
	}
	c.JSON(http.StatusOK, gin.H{"html": richtext.ToHTML(req.RTF)})
}

// ToRTF handles POST /api/v1/richtext/rtf.
func (h *ObservationHandler) ToRTF(c *gin.Context) {
	var req htmlRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "Invalid request: "+err.Error())
		return
	}
	c.JSON(http.StatusOK, gin.H{"rtf": richtext.ToRTF(req.HTML)})
}

// Preview handles GET (query rtf) and POST (body {rtf}) on
// /api/v1/products/:id/observation/preview.
func (h *ObservationHandler) Preview(c *gin.Context) {
	if _, ok := productID(c); !ok {
		return
	}
	rtf := c.Query("rtf")
	if c.Request.Method == http.MethodPost {
		var req rtfRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			badRequest(c, "Invalid request: "+err.Error())
			return
		}
		rtf = req.RTF
	}
	c.JSON(http.StatusOK, gin.H{"html": h.observations.Preview(rtf)})
}

// Save handles PUT /api/v1/products/:id/observation.
func (h *ObservationHandler) Save(c *gin.Context) {
	id, ok := productID(c)
	if !ok {
		return
	}
	var req saveObservationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "Invalid request: "+err.Error())
		return
	}

	res, err := h.observations.Save(c.Request.Context(), middleware.Token(c), id, req.HTML, req.Origin)
	if err != nil {
		respondError(c, "Save observation", err)
		return
	}
	c.JSON(http.StatusOK, res)
}

// Generate handles POST /api/v1/products/:id/observation/generate.
func (h *ObservationHandler) Generate(c *gin.Context) {
	if _, ok := productID(c); !ok {
		return
	}
	var req generateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "Invalid request: "+err.Error())
		return
	}

	out, err := h.observations.Generate(c.Request.Context(), req.Description, req.Code)
	if err != nil {
		respondError(c, "Generate observation", err)
		return
	}
	c.JSON(http.StatusOK, out)
}

// History handles GET /api/v1/products/:id/observation/history.
func (h *ObservationHandler) History(c *gin.Context) {
	id, ok := productID(c)
	if !ok {
		return
	}
	revs, err := h.observations.History(c.Request.Context(), id, queryInt(c, "limit", 0))
	if err != nil {
		respondError(c, "Observation history", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"revisions": revs, "total": len(revs)})
}
