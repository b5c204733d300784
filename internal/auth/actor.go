package auth

import (
	"context"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/mautops/timesheet-gin/internal/model"
)

// Actor 经过认证的操作人
// 由外部身份层提供 {id, role},核心逻辑只依赖 role 做权限判断
type Actor struct {
	ID   string
	Role model.Role
}

type actorCtxKey struct{}

// WithActor 将操作人写入 context
func WithActor(ctx context.Context, actor Actor) context.Context {
	return context.WithValue(ctx, actorCtxKey{}, actor)
}

// ActorFromContext 从 context 读取操作人
func ActorFromContext(ctx context.Context) (Actor, bool) {
	if ctx == nil {
		return Actor{}, false
	}
	actor, ok := ctx.Value(actorCtxKey{}).(Actor)
	return actor, ok
}

// ActorMiddleware 操作人提取中间件
// 配置了 TokenValidator 时验证 Bearer Token 并从 claims 映射角色;
// 未配置时(开发/测试环境)信任 X-Actor-ID / X-Actor-Role 请求头
func ActorMiddleware(validator *TokenValidator) gin.HandlerFunc {
	return func(c *gin.Context) {
		var actor Actor

		if validator != nil {
			token := c.GetHeader("Authorization")
			if token == "" {
				c.JSON(http.StatusUnauthorized, gin.H{
					"code":    401,
					"message": "missing authorization header",
				})
				c.Abort()
				return
			}
			token = strings.TrimPrefix(token, "Bearer ")

			claims, err := validator.ValidateToken(token)
			if err != nil {
				c.JSON(http.StatusUnauthorized, gin.H{
					"code":    401,
					"message": "invalid token",
					"detail":  err.Error(),
				})
				c.Abort()
				return
			}

			actor = Actor{ID: claims.Sub, Role: roleFromClaims(claims)}
		} else {
			actor = Actor{
				ID:   c.GetHeader("X-Actor-ID"),
				Role: model.Role(c.GetHeader("X-Actor-Role")),
			}
		}

		if actor.ID == "" || !actor.Role.Valid() {
			c.JSON(http.StatusUnauthorized, gin.H{
				"code":    401,
				"message": "actor identity is missing or invalid",
			})
			c.Abort()
			return
		}

		c.Set("actor_id", actor.ID)
		c.Set("actor_role", string(actor.Role))
		c.Request = c.Request.WithContext(WithActor(c.Request.Context(), actor))
		c.Next()
	}
}

// RequireAdmin 限制仅超级管理员可访问(维护修复操作)
func RequireAdmin() gin.HandlerFunc {
	return func(c *gin.Context) {
		actor, ok := ActorFromContext(c.Request.Context())
		if !ok || !actor.Role.IsAdmin() {
			c.JSON(http.StatusForbidden, gin.H{
				"code":    403,
				"message": "super_admin role required",
			})
			c.Abort()
			return
		}
		c.Next()
	}
}

// roleFromClaims 从 realm 角色列表映射本服务角色,取权限最高者
func roleFromClaims(claims *TokenClaims) model.Role {
	ranked := []model.Role{
		model.RoleSuperAdmin,
		model.RoleManagement,
		model.RoleManager,
		model.RoleLead,
		model.RoleEmployee,
	}
	for _, want := range ranked {
		for _, have := range claims.RealmAccess.Roles {
			if model.Role(have) == want {
				return want
			}
		}
	}
	return model.RoleEmployee
}
