package middleware

import (
	"errors"
	"net/http"
	"strings"

	"github.com/dgrijalva/jwt-go"
	"github.com/gin-gonic/gin"

	"github.com/acskang/endless-openrouter/config"
)

// Auth validates the bearer token, checks the session epoch and puts the
// claims into the gin context under "user". Tokens issued by a previous
// process carry a stale epoch and are rejected, which forces a re-login
// after every server restart.
func Auth(sessionEpoch string) gin.HandlerFunc {
	return func(c *gin.Context) {
		tokenString := extractToken(c)
		if tokenString == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Authorization token required"})
			return
		}

		claims, err := ParseToken(tokenString, sessionEpoch)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": err.Error()})
			return
		}

		c.Set("user", claims)
		c.Next()
	}
}

// ParseToken verifies the token signature, expiry and session epoch
func ParseToken(tokenString, sessionEpoch string) (jwt.MapClaims, error) {
	token, err := jwt.Parse(tokenString, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, errors.New("unexpected signing method")
		}
		return []byte(config.GlobalConfig.Auth.Secret), nil
	})
	if err != nil {
		return nil, errors.New("invalid or expired token")
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok || !token.Valid {
		return nil, errors.New("invalid token claims")
	}

	epoch, _ := claims["epoch"].(string)
	if epoch != sessionEpoch {
		return nil, errors.New("session expired, please log in again")
	}
	return claims, nil
}

// extractToken reads the token from the Authorization header, falling back
// to the "token" query parameter for websocket clients that cannot set
// headers.
func extractToken(c *gin.Context) string {
	header := c.GetHeader("Authorization")
	if strings.HasPrefix(header, "Bearer ") {
		return strings.TrimPrefix(header, "Bearer ")
	}
	return c.Query("token")
}
