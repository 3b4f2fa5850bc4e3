package auth

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
)

const claimsKey = "claims"

// RequireAuth enforces bearer JWT tokens signed with HS256.
func RequireAuth(signingKey, issuer string) gin.HandlerFunc {
	return func(c *gin.Context) {
		authz := c.GetHeader("Authorization")
		if authz == "" || !strings.HasPrefix(strings.ToLower(authz), "bearer ") {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "missing bearer token"})
			return
		}
		tokenStr := strings.TrimSpace(authz[len("bearer "):])
		claims, err := Parse(tokenStr, signingKey, issuer)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "invalid token"})
			return
		}
		c.Set(claimsKey, claims)
		c.Next()
	}
}

// RequireStaff rejects requests whose token lacks the staff role. Must run
// after RequireAuth.
func RequireStaff() gin.HandlerFunc {
	return func(c *gin.Context) {
		if !FromContext(c).IsStaff() {
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": "staff role required"})
			return
		}
		c.Next()
	}
}

// FromContext returns the claims set by RequireAuth, or zero claims.
func FromContext(c *gin.Context) Claims {
	claimsAny, _ := c.Get(claimsKey)
	claims, _ := claimsAny.(Claims)
	return claims
}
