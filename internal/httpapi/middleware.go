package httpapi

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	credAuth "github.com/MrEthical07/credAuth"
	"github.com/MrEthical07/credAuth/middleware"
)

const (
	clientIPKey = "credauth.client_ip"
	claimsKey   = "credauth.claims"
)

// clientIP stores the caller address in the gin context and in the request context the
// engine reads.
func clientIP(trustForwarded bool) gin.HandlerFunc {
	return func(c *gin.Context) {
		ip := ""
		if trustForwarded {
			ip = forwardedFor(c.GetHeader("X-Forwarded-For"))
		}
		if ip == "" {
			ip = c.RemoteIP()
		}

		c.Set(clientIPKey, ip)
		c.Request = c.Request.WithContext(credAuth.WithClientIP(c.Request.Context(), ip))
		c.Next()
	}
}

func forwardedFor(header string) string {
	first, _, _ := strings.Cut(header, ",")
	return strings.TrimSpace(first)
}

// requireAuth rejects the request unless it carries a valid bearer token.
func requireAuth(svc Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		token, ok := middleware.BearerToken(c.GetHeader("Authorization"))
		if !ok {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"message": "Unauthorized. No token"})
			return
		}

		claims, err := svc.ParseToken(c.Request.Context(), token)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"message": "Unauthorized. Invalid token"})
			return
		}

		c.Set(claimsKey, claims)
		c.Request = c.Request.WithContext(middleware.WithClaims(c.Request.Context(), claims))
		c.Next()
	}
}

func claimsFrom(c *gin.Context) (*credAuth.TokenClaims, bool) {
	v, ok := c.Get(claimsKey)
	if !ok {
		return nil, false
	}
	claims, ok := v.(*credAuth.TokenClaims)
	return claims, ok
}
