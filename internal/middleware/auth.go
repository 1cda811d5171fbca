package middleware

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"Vid_Community/internal/model"
	"Vid_Community/internal/service"

	"github.com/gin-gonic/gin"
)

const (
	ContextUserIDKey = "user_id"
	ContextUserKey   = "user"
)

// Authenticator 由 service.UserService 实现
type Authenticator interface {
	Authenticate(ctx context.Context, access string) (*model.User, error)
}

func unauthorized(c *gin.Context, body gin.H) {
	c.Header("WWW-Authenticate", `Bearer realm="api"`)
	c.AbortWithStatusJSON(http.StatusUnauthorized, body)
}

func AuthMiddleware(auth Authenticator) gin.HandlerFunc {
	return func(c *gin.Context) {
		parts := strings.Fields(c.GetHeader("Authorization"))
		// 非 Bearer 头视为未携带凭证
		if len(parts) == 0 || parts[0] != "Bearer" {
			unauthorized(c, gin.H{"detail": "Authentication credentials were not provided."})
			return
		}
		if len(parts) != 2 {
			unauthorized(c, gin.H{
				"detail": "Authorization header must contain two space-delimited values",
				"code":   "bad_authorization_header",
			})
			return
		}

		user, err := auth.Authenticate(c.Request.Context(), parts[1])
		switch {
		case err == nil:
		case errors.Is(err, service.ErrTokenInvalid):
			unauthorized(c, gin.H{"detail": "Given token not valid for any token type", "code": "token_not_valid"})
			return
		case errors.Is(err, service.ErrUserNotFound):
			unauthorized(c, gin.H{"detail": "User not found", "code": "user_not_found"})
			return
		default:
			_ = c.Error(err)
			c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"detail": "A server error occurred."})
			return
		}

		// 注入当前用户
		c.Set(ContextUserKey, user)
		c.Set(ContextUserIDKey, user.ID)
		c.Next()
	}
}

// CurrentUser 只在 AuthMiddleware 之后的 handler 中调用
func CurrentUser(c *gin.Context) *model.User {
	v, ok := c.Get(ContextUserKey)
	if !ok {
		return nil
	}
	user, _ := v.(*model.User)
	return user
}
