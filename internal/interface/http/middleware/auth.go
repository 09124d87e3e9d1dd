package middleware

import (
	"strings"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	apperrors "github.com/xiebiao/bookcatalog/pkg/errors"
	"github.com/xiebiao/bookcatalog/pkg/jwt"
	"github.com/xiebiao/bookcatalog/pkg/logger"
	"github.com/xiebiao/bookcatalog/pkg/response"
)

// AuthMiddleware JWT认证中间件
// 设计说明：
// 1. 只保护写接口（POST/PUT/DELETE），读接口公开
// 2. enabled=false时放行所有请求（本地开发、内部部署）
type AuthMiddleware struct {
	jwtManager *jwt.Manager
	enabled    bool
}

// NewAuthMiddleware 创建认证中间件
func NewAuthMiddleware(jwtManager *jwt.Manager, enabled bool) *AuthMiddleware {
	return &AuthMiddleware{
		jwtManager: jwtManager,
		enabled:    enabled,
	}
}

// RequireAuth 要求请求携带有效的Bearer Token
// 请求头格式：Authorization: Bearer <token>
func (m *AuthMiddleware) RequireAuth() gin.HandlerFunc {
	return func(c *gin.Context) {
		if !m.enabled {
			c.Next()
			return
		}

		authHeader := c.GetHeader("Authorization")
		if authHeader == "" {
			response.Error(c, apperrors.ErrUnauthorized)
			c.Abort()
			return
		}

		parts := strings.SplitN(authHeader, " ", 2)
		if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
			response.Error(c, apperrors.ErrInvalidToken.WithMessage("Token格式错误"))
			c.Abort()
			return
		}

		claims, err := m.jwtManager.ParseToken(parts[1])
		if err != nil {
			response.Error(c, err) // ErrTokenExpired、ErrInvalidToken
			c.Abort()
			return
		}

		// 之后的日志都带上调用方标识
		ctx := c.Request.Context()
		reqLog := logger.FromContext(ctx, zap.L()).With(zap.String("subject", claims.Subject))
		c.Request = c.Request.WithContext(logger.WithContext(ctx, reqLog))

		c.Next()
	}
}
