package middleware

import (
	"net/http"
	"strings"

	"txledger/internal/shared"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"go.uber.org/zap"
)

// OperatorClaims identifies the admin-surface caller that triggered a run.
type OperatorClaims struct {
	Operator string `json:"operator"`
	jwt.RegisteredClaims
}

const OperatorKey = "operator"

// AuthMiddleware validates a bearer JWT signed with the configured secret.
// The admin surface has no user accounts of its own; a token simply proves
// the caller holds the shared operator secret, mirroring the teacher's
// pattern of validating tokens before trusting the caller's claims.
type AuthMiddleware struct {
	secret []byte
}

func NewAuthMiddleware(secret string) *AuthMiddleware {
	return &AuthMiddleware{secret: []byte(secret)}
}

func (m *AuthMiddleware) RequireBearer() gin.HandlerFunc {
	return func(c *gin.Context) {
		logger := GetLogger(c)

		authHeader := c.GetHeader("Authorization")
		tokenString := strings.TrimSpace(strings.TrimPrefix(authHeader, "Bearer "))
		if tokenString == "" {
			logger.Warn("authentication failed: missing bearer token", zap.String("path", c.Request.URL.Path))
			shared.RespondWithAppError(c, shared.ErrUnauthorized.WithDetails("reason", "missing bearer token"))
			c.Abort()
			return
		}

		claims := &OperatorClaims{}
		token, err := jwt.ParseWithClaims(tokenString, claims, func(t *jwt.Token) (interface{}, error) {
			if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
				return nil, http.ErrNotSupported
			}
			return m.secret, nil
		})
		if err != nil || !token.Valid {
			logger.Warn("authentication failed: invalid token", zap.Error(err), zap.String("path", c.Request.URL.Path))
			shared.RespondWithAppError(c, shared.ErrUnauthorized.WithDetails("reason", "invalid or expired token"))
			c.Abort()
			return
		}

		c.Set(OperatorKey, claims.Operator)
		c.Next()
	}
}
