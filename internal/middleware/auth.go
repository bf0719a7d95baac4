package middleware

import (
	"net/http"
	"strings"

	"twinconsole/internal/services"

	"github.com/gin-gonic/gin"
)

// OperatorKey is the gin context key holding the authenticated operator.
const OperatorKey = "operator"

// TokenValidator validates operator tokens.
type TokenValidator interface {
	ValidateToken(token string) (*services.OperatorClaims, error)
}

// ExtractToken reads a bearer token from the Authorization header, falling
// back to the token query parameter.
func ExtractToken(c *gin.Context) string {
	authHeader := c.GetHeader("Authorization")
	if len(authHeader) > 7 && strings.EqualFold(authHeader[:7], "Bearer ") {
		return strings.TrimSpace(authHeader[7:])
	}
	return c.Query("token")
}

// OperatorAuthMiddleware requires a valid operator token. A nil validator
// disables the check.
func OperatorAuthMiddleware(validator TokenValidator) gin.HandlerFunc {
	iv := NewInputValidator()
	return func(c *gin.Context) {
		if validator == nil {
			c.Next()
			return
		}

		token := ExtractToken(c)
		if token == "" {
			GlobalSecurityLogger.LogFailedAuth(c.ClientIP(), "missing token")
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "missing token"})
			return
		}
		if !iv.ValidateToken(token) {
			GlobalSecurityLogger.LogFailedAuth(c.ClientIP(), "malformed token")
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "invalid token"})
			return
		}

		claims, err := validator.ValidateToken(token)
		if err != nil {
			GlobalSecurityLogger.LogFailedAuth(c.ClientIP(), "invalid token: "+err.Error())
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "invalid token"})
			return
		}

		c.Set(OperatorKey, claims.Operator)
		c.Next()
	}
}

// Operator returns the authenticated operator, or "" when auth is off.
func Operator(c *gin.Context) string {
	return c.GetString(OperatorKey)
}
