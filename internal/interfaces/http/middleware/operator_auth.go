package middleware

import (
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"

	"github.com/turtacn/riskserve/internal/config"
	"github.com/turtacn/riskserve/pkg/constants"
	"github.com/turtacn/riskserve/pkg/errors"
	"github.com/turtacn/riskserve/pkg/logger"
)

// OperatorClaims are the claims expected in an operator bearer token.
type OperatorClaims struct {
	Role string `json:"role"`
	jwt.RegisteredClaims
}

// extractBearer extracts the token from the Authorization header.
func extractBearer(authHeader string) string {
	if authHeader == "" {
		return ""
	}
	parts := strings.Split(authHeader, " ")
	if len(parts) != 2 || !strings.EqualFold(parts[0], "bearer") {
		return ""
	}
	return parts[1]
}

// RequireOperator protects routes that change the model. It accepts HS256 tokens
// signed with the configured secret, issued by the configured issuer and carrying
// role=operator. With auth disabled it lets every request through.
func RequireOperator(cfg *config.AuthConfig, log logger.Logger) gin.HandlerFunc {
	if !cfg.Enabled {
		return func(c *gin.Context) { c.Next() }
	}
	secret := []byte(cfg.HMACSecret)
	parser := jwt.NewParser(
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(cfg.Issuer),
		jwt.WithExpirationRequired(),
	)

	return func(c *gin.Context) {
		tokenStr := extractBearer(c.GetHeader(constants.HeaderAuthorization))
		if tokenStr == "" {
			abort(c, errors.Unauthorized("bearer token required"))
			return
		}

		claims := &OperatorClaims{}
		if _, err := parser.ParseWithClaims(tokenStr, claims, func(*jwt.Token) (interface{}, error) {
			return secret, nil
		}); err != nil {
			log.Warn(c.Request.Context(), "Operator token rejected", logger.Fields{"error": err.Error()})
			abort(c, errors.Unauthorized("invalid bearer token"))
			return
		}

		if claims.Role != constants.OperatorRole {
			log.Warn(c.Request.Context(), "Token without operator role", logger.Fields{"subject": claims.Subject, "role": claims.Role})
			abort(c, errors.Forbidden("operator role required"))
			return
		}

		c.Set(string(constants.ContextKeyOperator), claims.Subject)
		c.Next()
	}
}

func abort(c *gin.Context, err errors.AppError) {
	c.AbortWithStatusJSON(err.HTTPStatus(), errors.ToErrorResponse(err))
}
