package handler

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/timmy/prodcat/internal/api/middleware"
	"github.com/timmy/prodcat/internal/paging"
	"github.com/timmy/prodcat/internal/service"
)

// statusFor maps a service error to an HTTP status.
func statusFor(err error) int {
	var upstream *service.UpstreamError
	switch {
	case service.IsUnauthorized(err):
		return http.StatusUnauthorized
	case errors.Is(err, service.ErrInvalidArgument),
		errors.Is(err, service.ErrInvalidDataURL),
		errors.Is(err, service.ErrUnsupportedImage),
		errors.Is(err, paging.ErrInvalidPage):
		return http.StatusBadRequest
	case errors.Is(err, service.ErrProviderDisabled):
		return http.StatusServiceUnavailable
	case errors.As(err, &upstream), errors.Is(err, service.ErrEmptyResult):
		return http.StatusBadGateway
	}
	return http.StatusInternalServerError
}

// respondError logs err and writes it as {"error": ...}.
func respondError(c *gin.Context, action string, err error) {
	status := statusFor(err)
	log := middleware.GetLogger(c).WithError(err)
	if status >= http.StatusInternalServerError {
		log.Errorf("%s failed", action)
	} else {
		log.Debugf("%s rejected with %d", action, status)
	}
	c.JSON(status, gin.H{"error": action + ": " + err.Error()})
}

func badRequest(c *gin.Context, msg string) {
	c.JSON(http.StatusBadRequest, gin.H{"error": msg})
}

// productID parses the :id path parameter, writing a 400 when it is invalid.
func productID(c *gin.Context) (int64, bool) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || id <= 0 {
		badRequest(c, "invalid product id")
		return 0, false
	}
	return id, true
}

func queryInt(c *gin.Context, key string, def int) int {
	if v, err := strconv.Atoi(c.Query(key)); err == nil {
		return v
	}
	return def
}
