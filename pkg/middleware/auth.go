package middleware

import (
	"context"
	"fmt"
	"net/http"
	"strings"

	"modular-shop-backend/pkg/models"
	"modular-shop-backend/pkg/utils"
)

// ContextKey 用于在context中存储用户信息的键
type ContextKey string

const (
	UserContextKey ContextKey = "user"
)

// TokenValidator is the part of the token service the middleware needs.
type TokenValidator interface {
	ExtractUserFromToken(token string) (*models.AuthUser, error)
}

// bearerToken 从Authorization头提取token；格式不正确返回空串
func bearerToken(r *http.Request) (string, bool) {
	authHeader := strings.TrimSpace(r.Header.Get("Authorization"))
	if authHeader == "" {
		return "", false
	}
	scheme, token, ok := strings.Cut(authHeader, " ")
	if !ok || !strings.EqualFold(scheme, "Bearer") {
		return "", true
	}
	return strings.TrimSpace(token), true
}

// AuthMiddleware JWT认证中间件：缺失、格式错误、无效或过期的token一律返回401
func AuthMiddleware(tokens TokenValidator) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			tokenString, present := bearerToken(r)
			if !present {
				utils.WriteUnauthorizedResponse(w, "Missing authorization header")
				return
			}
			if tokenString == "" {
				utils.WriteUnauthorizedResponse(w, "Invalid authorization header format")
				return
			}

			user, err := tokens.ExtractUserFromToken(tokenString)
			if err != nil {
				utils.WriteUnauthorizedResponse(w, "Invalid or expired token")
				return
			}

			next.ServeHTTP(w, r.WithContext(WithUser(r.Context(), user)))
		})
	}
}

// OptionalAuthMiddleware 可选的认证中间件（不强制要求认证）
func OptionalAuthMiddleware(tokens TokenValidator) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if tokenString, _ := bearerToken(r); tokenString != "" {
				if user, err := tokens.ExtractUserFromToken(tokenString); err == nil {
					r = r.WithContext(WithUser(r.Context(), user))
				}
			}
			next.ServeHTTP(w, r)
		})
	}
}

// RequireGroups 要求已认证用户至少属于其中一个组
// 未认证返回401，已认证但不在组内返回403
func RequireGroups(groups ...string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			user, ok := GetUserFromContext(r.Context())
			if !ok {
				utils.WriteUnauthorizedResponse(w, "Authentication required")
				return
			}
			if !user.InAnyGroup(groups...) {
				utils.WriteForbiddenResponse(w, fmt.Sprintf("Requires membership in one of: %s", strings.Join(groups, ", ")))
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// WithUser 将用户信息添加到context中
func WithUser(ctx context.Context, user *models.AuthUser) context.Context {
	return context.WithValue(ctx, UserContextKey, user)
}

// GetUserFromContext 从context中获取用户信息
func GetUserFromContext(ctx context.Context) (*models.AuthUser, bool) {
	user, ok := ctx.Value(UserContextKey).(*models.AuthUser)
	return user, ok && user != nil
}

// RequireUser 要求用户必须已认证的辅助函数
func RequireUser(ctx context.Context) (*models.AuthUser, error) {
	user, ok := GetUserFromContext(ctx)
	if !ok {
		return nil, fmt.Errorf("user not authenticated")
	}
	return user, nil
}
