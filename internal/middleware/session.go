// Package middleware はHTTPミドルウェアを提供する。
package middleware

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"

	"github.com/hitoshi/plantshop/internal/model"
)

// SessionCookieName はセッショントークンを保持するCookieの名前。
const SessionCookieName = "session_token"

// storeRetryAfterSeconds はストア障害時に返すRetry-Afterの秒数。
const storeRetryAfterSeconds = "5"

// AuthMethod はリクエストの認証方式を表す。
type AuthMethod string

const (
	// AuthMethodNone はトークンが提示されていないことを表す。
	AuthMethodNone AuthMethod = ""
	// AuthMethodCookie はsession_token Cookieで認証されたことを表す。
	AuthMethodCookie AuthMethod = "cookie"
	// AuthMethodBearer はAuthorization: Bearerヘッダーで認証されたことを表す。
	AuthMethodBearer AuthMethod = "bearer"
)

// contextKey はコンテキストに値を格納するための型安全なキー。
type contextKey string

var (
	userContextKey       = contextKey("user")
	authMethodContextKey = contextKey("auth_method")
)

// SessionResolver はトークンから現在のユーザーを解決するインターフェース。
// auth.Serviceが実装する。
type SessionResolver interface {
	ResolveSession(ctx context.Context, token string) (*model.User, error)
}

// TokenFromRequest はリクエストからセッショントークンを取り出す。
// Cookieを優先し、なければAuthorization: Bearerヘッダーを参照する。
func TokenFromRequest(r *http.Request) (string, AuthMethod) {
	if cookie, err := r.Cookie(SessionCookieName); err == nil && cookie.Value != "" {
		return cookie.Value, AuthMethodCookie
	}

	header := r.Header.Get("Authorization")
	scheme, token, ok := strings.Cut(header, " ")
	if ok && strings.EqualFold(scheme, "Bearer") {
		if token = strings.TrimSpace(token); token != "" {
			return token, AuthMethodBearer
		}
	}
	return "", AuthMethodNone
}

// NewSessionMiddleware はリクエストのトークンからユーザーを解決し、
// コンテキストに注入するミドルウェアを返す。
// 未認証でもリクエストは通過させ、認可は後段のミドルウェアに任せる。
// ストア障害時は匿名として扱わず503を返す。
func NewSessionMiddleware(resolver SessionResolver) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token, method := TokenFromRequest(r)
			if token == "" {
				next.ServeHTTP(w, r)
				return
			}

			user, err := resolver.ResolveSession(r.Context(), token)
			if err != nil {
				slog.Error("failed to resolve session",
					slog.String("path", r.URL.Path),
					slog.String("error", err.Error()),
				)
				if errors.Is(err, model.ErrStoreUnavailable) {
					w.Header().Set("Retry-After", storeRetryAfterSeconds)
					WriteErrorResponse(w, http.StatusServiceUnavailable, model.NewStoreUnavailableError())
					return
				}
				WriteInternalServerError(w)
				return
			}
			if user == nil {
				next.ServeHTTP(w, r)
				return
			}

			ctx := ContextWithUser(r.Context(), user)
			ctx = ContextWithAuthMethod(ctx, method)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// RequireSession は認証済みユーザーのいないリクエストに401を返すミドルウェア。
// NewSessionMiddlewareの後に配置する。
func RequireSession(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if UserFromContext(r.Context()) == nil {
			WriteErrorResponse(w, http.StatusUnauthorized, model.NewUnauthorizedError())
			return
		}
		next.ServeHTTP(w, r)
	})
}

// UserFromContext はリクエストコンテキストから認証済みユーザーを取得する。
// 匿名の場合はnilを返す。
func UserFromContext(ctx context.Context) *model.User {
	user, _ := ctx.Value(userContextKey).(*model.User)
	return user
}

// UserIDFromContext はリクエストコンテキストからユーザーIDを取得する。
func UserIDFromContext(ctx context.Context) (string, error) {
	user := UserFromContext(ctx)
	if user == nil || user.ID == "" {
		return "", fmt.Errorf("user ID not found in context")
	}
	return user.ID, nil
}

// AuthMethodFromContext はリクエストの認証方式を返す。
func AuthMethodFromContext(ctx context.Context) AuthMethod {
	method, _ := ctx.Value(authMethodContextKey).(AuthMethod)
	return method
}

// ContextWithUser はコンテキストにユーザーを注入する。
// テストやミドルウェア以外のコンテキスト生成で使用する。
func ContextWithUser(ctx context.Context, user *model.User) context.Context {
	return context.WithValue(ctx, userContextKey, user)
}

// ContextWithAuthMethod はコンテキストに認証方式を注入する。
func ContextWithAuthMethod(ctx context.Context, method AuthMethod) context.Context {
	return context.WithValue(ctx, authMethodContextKey, method)
}
