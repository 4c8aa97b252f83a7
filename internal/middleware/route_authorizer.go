package middleware

import (
	"log/slog"
	"net/http"

	"github.com/hitoshi/plantshop/internal/access"
)

// NewRouteAuthorizer はページ経路のアクセス制御を行うミドルウェアを返す。
// NewSessionMiddlewareの後、すべてのページハンドラーより前に配置する。
// 許可されない場合は303 See Otherでログイン画面またはホームへ遷移させる。
func NewRouteAuthorizer(policy *access.Policy) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			state := access.StateOf(UserFromContext(r.Context()))
			decision := policy.Decide(state, r.URL.RequestURI())
			if decision.Outcome == access.Allow {
				next.ServeHTTP(w, r)
				return
			}

			slog.Info("route access redirected",
				slog.String("path", r.URL.Path),
				slog.String("state", state.String()),
				slog.String("location", decision.Location),
			)
			http.Redirect(w, r, decision.Location, http.StatusSeeOther)
		})
	}
}
