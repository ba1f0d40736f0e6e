package middleware

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
)

const tokenKey = "catalog_token"

// CatalogToken requires a bearer token and keeps it for the handlers, which
// forward it to the catalog API on the caller's behalf.
func CatalogToken() gin.HandlerFunc {
	return func(c *gin.Context) {
		token, ok := bearerToken(c.GetHeader("Authorization"))
		if !ok {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "missing bearer token"})
			return
		}
		c.Set(tokenKey, token)
		c.Next()
	}
}

// Token returns the token stored by CatalogToken.
func Token(c *gin.Context) string {
	return c.GetString(tokenKey)
}

func bearerToken(header string) (string, bool) {
	scheme, token, found := strings.Cut(strings.TrimSpace(header), " ")
	if !found || !strings.EqualFold(scheme, "Bearer") {
		return "", false
	}
	token = strings.TrimSpace(token)
	return token, token != ""
}
