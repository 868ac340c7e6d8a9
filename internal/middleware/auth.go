package middleware

import (
	"fmt"
	"net/http"
	"slices"
	"strings"

	"anoa.com/boardpush/pkg/response"
	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
)

const claimsKey = "claims"

type AuthMiddleware struct {
	secret []byte
}

// NewAuthMiddleware verifies HS256 tokens issued by the auth service with
// the shared secret.
func NewAuthMiddleware(secret string) *AuthMiddleware {
	return &AuthMiddleware{secret: []byte(secret)}
}

func (m *AuthMiddleware) RequireAuth() gin.HandlerFunc {
	return func(c *gin.Context) {

		tokenString := ""
		authHeader := c.GetHeader("Authorization")

		if authHeader != "" {
			parts := strings.Split(authHeader, " ")
			if len(parts) == 2 && parts[0] == "Bearer" {
				tokenString = parts[1]
			}
		}

		// Fallback to query parameter "token" (useful for WebSockets)
		if tokenString == "" {
			tokenString = c.Query("token")
		}

		if tokenString == "" {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "authorization required"})
			c.Abort()
			return
		}
		token, err := jwt.ParseWithClaims(tokenString, &jwt.RegisteredClaims{}, func(token *jwt.Token) (interface{}, error) {
			if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
				return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
			}
			return m.secret, nil
		})

		if err != nil || !token.Valid {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid or expired token"})
			c.Abort()
			return
		}

		claims, ok := token.Claims.(*jwt.RegisteredClaims)
		if !ok || claims.Subject == "" {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid token claims"})
			c.Abort()
			return
		}

		c.Set(response.UserIDKey, claims.Subject)
		c.Set(claimsKey, claims)
		c.Next()
	}
}

// RequireAudience admits tokens issued for audience. It must run after
// RequireAuth.
func (m *AuthMiddleware) RequireAudience(audience string) gin.HandlerFunc {
	return func(c *gin.Context) {
		raw, exists := c.Get(claimsKey)
		if !exists {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "user not authenticated"})
			c.Abort()
			return
		}

		claims := raw.(*jwt.RegisteredClaims)
		if !slices.Contains(claims.Audience, audience) {
			c.JSON(http.StatusForbidden, gin.H{"error": "token not valid for this endpoint"})
			c.Abort()
			return
		}

		c.Next()
	}
}
