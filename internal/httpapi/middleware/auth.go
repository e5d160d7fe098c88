package middleware

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"

	"github.com/suPer8Hu/im-archive/internal/common"
)

// ActorKey is the gin context key under which the authenticated actor
// (the "sub" claim) is stored.
const ActorKey = "actor"

// AuthRequired validates a Bearer token signed with the shared HMAC secret
// and stores its subject on the context.
func AuthRequired(secret string) gin.HandlerFunc {
	return func(c *gin.Context) {
		header := c.GetHeader("Authorization")
		if header == "" || !strings.HasPrefix(header, "Bearer ") {
			common.Fail(c, http.StatusUnauthorized, 40101, "unauthorized")
			c.Abort()
			return
		}
		tokenStr := strings.TrimPrefix(header, "Bearer ")

		token, err := jwt.Parse(tokenStr, func(t *jwt.Token) (any, error) {
			if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
				return nil, jwt.ErrSignatureInvalid
			}
			return []byte(secret), nil
		})
		if err != nil || !token.Valid {
			common.Fail(c, http.StatusUnauthorized, 40101, "unauthorized")
			c.Abort()
			return
		}

		claims, ok := token.Claims.(jwt.MapClaims)
		if !ok {
			common.Fail(c, http.StatusUnauthorized, 40101, "unauthorized")
			c.Abort()
			return
		}
		sub, _ := claims["sub"].(string)
		c.Set(ActorKey, sub)
		c.Next()
	}
}
