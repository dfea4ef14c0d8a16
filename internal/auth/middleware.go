package auth

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/akylbek/payment-system/marketplace-payments/internal/interfaces"
	"github.com/akylbek/payment-system/marketplace-payments/internal/models"
	"github.com/akylbek/payment-system/marketplace-payments/internal/telemetry"
)

const principalKey = "auth.principal"

// BearerToken returns the token of an "Authorization: Bearer" header.
func BearerToken(header string) string {
	scheme, token, ok := strings.Cut(strings.TrimSpace(header), " ")
	if !ok || !strings.EqualFold(scheme, "Bearer") {
		return ""
	}
	return strings.TrimSpace(token)
}

// RequireUser aborts with 401 unless the request carries a token the
// authenticator accepts.
func RequireUser(a interfaces.Authenticator) gin.HandlerFunc {
	return func(c *gin.Context) {
		p, err := a.Authenticate(c.Request.Context(), BearerToken(c.GetHeader("Authorization")))
		if err != nil {
			if !errors.Is(err, models.ErrUnauthenticated) {
				telemetry.Logger.Error("Authentication failed", zap.Error(err))
			}
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": models.ErrUnauthenticated.Error()})
			return
		}
		c.Set(principalKey, p)
		c.Next()
	}
}

// PrincipalFrom returns the principal RequireUser stored, or nil.
func PrincipalFrom(c *gin.Context) *models.Principal {
	v, ok := c.Get(principalKey)
	if !ok {
		return nil
	}
	p, _ := v.(*models.Principal)
	return p
}
