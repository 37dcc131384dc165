package middleware

import (
	"coursehub_backend/internal/config"
	"coursehub_backend/internal/model"
	"coursehub_backend/internal/util"
	"coursehub_backend/pkg/logger"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

const (
	// PinTokenHeader 管理员 PIN 校验后获得的令牌
	PinTokenHeader = "X-Admin-Pin-Token"
)

func bearerToken(c *gin.Context) string {
	authHeader := c.GetHeader("Authorization")
	if authHeader != "" {
		return strings.TrimPrefix(authHeader, "Bearer ")
	}
	return c.Query("token")
}

func AuthMiddleware(cfg *config.Config) gin.HandlerFunc {
	return func(c *gin.Context) {
		tokenString := bearerToken(c)
		if tokenString == "" {
			util.Unauthorized(c)
			c.Abort()
			return
		}

		claims, err := util.ParseJWT(tokenString, cfg.JWT.Secret)
		if err != nil {
			logger.Log.Debug("JWT解析错误", zap.String("path", c.Request.URL.Path), zap.Error(err))
			util.Unauthorized(c)
			c.Abort()
			return
		}

		c.Set("user", claims)
		c.Next()
	}
}

// OptionalAuthMiddleware 公开接口上尽量识别用户，令牌无效时按匿名处理
func OptionalAuthMiddleware(cfg *config.Config) gin.HandlerFunc {
	return func(c *gin.Context) {
		if tokenString := bearerToken(c); tokenString != "" {
			if claims, err := util.ParseJWT(tokenString, cfg.JWT.Secret); err == nil {
				c.Set("user", claims)
			}
		}
		c.Next()
	}
}

func RoleMiddleware(roles ...model.UserRole) gin.HandlerFunc {
	return func(c *gin.Context) {
		user := util.GetUserFromContext(c)
		if user == nil {
			util.Unauthorized(c)
			c.Abort()
			return
		}

		// 管理员拥有所有权限
		hasRole := user.Role.IsAdmin()
		for _, role := range roles {
			if hasRole {
				break
			}
			hasRole = user.Role == role
		}

		if !hasRole {
			util.Forbidden(c)
			c.Abort()
			return
		}
		c.Next()
	}
}

// AdminPinMiddleware 管理员角色必须携带属于自己且已通过 PIN 校验的 X-Admin-Pin-Token，其他角色直接放行
func AdminPinMiddleware(cfg *config.Config) gin.HandlerFunc {
	return func(c *gin.Context) {
		user := util.GetUserFromContext(c)
		if user == nil {
			util.Unauthorized(c)
			c.Abort()
			return
		}
		if !user.Role.IsAdmin() {
			c.Next()
			return
		}

		pinToken := c.GetHeader(PinTokenHeader)
		if pinToken == "" {
			util.Error(c, http.StatusForbidden, "admin pin verification required")
			c.Abort()
			return
		}

		pinClaims, err := util.ParseJWT(pinToken, cfg.JWT.Secret)
		if err != nil || !pinClaims.PinVerified || pinClaims.UserID != user.UserID {
			util.Error(c, http.StatusForbidden, "admin pin verification required")
			c.Abort()
			return
		}
		c.Next()
	}
}
