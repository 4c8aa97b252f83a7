package handler

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/hitoshi/plantshop/internal/auth"
	"github.com/hitoshi/plantshop/internal/metrics"
	"github.com/hitoshi/plantshop/internal/middleware"
	"github.com/hitoshi/plantshop/internal/model"
)

// AuthServiceInterface は認証ハンドラーが必要とするサービスインターフェース。
type AuthServiceInterface interface {
	Login(ctx context.Context, email, password string, rememberMe bool) (*auth.LoginResult, error)
	Register(ctx context.Context, name, email, password string) (*model.User, error)
	Logout(ctx context.Context, token string) error
}

// LoginRecorder はログイン結果を記録するインターフェース。
type LoginRecorder interface {
	RecordLogin(result string)
}

// AuthHandlerConfig は認証ハンドラーの設定。
type AuthHandlerConfig struct {
	CookieDomain string
	CookieSecure bool
}

// AuthHandler はパスワード認証関連のHTTPハンドラー。
type AuthHandler struct {
	service  AuthServiceInterface
	recorder LoginRecorder
	config   AuthHandlerConfig
	now      func() time.Time
}

// NewAuthHandler はAuthHandlerを生成する。recorderはnilでもよい。
func NewAuthHandler(service AuthServiceInterface, recorder LoginRecorder, config AuthHandlerConfig) *AuthHandler {
	return &AuthHandler{
		service:  service,
		recorder: recorder,
		config:   config,
		now:      time.Now,
	}
}

type loginRequest struct {
	Email      string `json:"email"`
	Password   string `json:"password"`
	RememberMe bool   `json:"rememberMe"`
}

type loginResponse struct {
	User      userResponse `json:"user"`
	Token     string       `json:"token"`
	ExpiresAt time.Time    `json:"expiresAt"`
}

type registerRequest struct {
	Name     string `json:"name"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

type userEnvelope struct {
	User userResponse `json:"user"`
}

// Login はメールアドレスとパスワードで認証し、セッションCookieを設定する。
// POST /auth/login
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := decodeJSON(w, r, &req); err != nil {
		handleServiceError(w, err)
		return
	}
	if strings.TrimSpace(req.Email) == "" || req.Password == "" {
		writeAPIErrorResponse(w, http.StatusBadRequest, model.NewValidationError("メールアドレスとパスワードを入力してください"))
		return
	}

	result, err := h.service.Login(r.Context(), req.Email, req.Password, req.RememberMe)
	if err != nil {
		if errors.Is(err, model.NewInvalidCredentialsError()) {
			h.record(metrics.LoginFailure)
		} else {
			h.record(metrics.LoginError)
		}
		handleServiceError(w, err)
		return
	}
	h.record(metrics.LoginSuccess)

	h.setSessionCookie(w, result.Token, req.RememberMe)

	writeJSON(w, http.StatusOK, loginResponse{
		User:      toUserResponse(result.User),
		Token:     result.Token.Token,
		ExpiresAt: result.Token.ExpiresAt,
	})
}

// Register は新規ユーザーを登録する。セッションは発行しない。
// POST /auth/register
func (h *AuthHandler) Register(w http.ResponseWriter, r *http.Request) {
	var req registerRequest
	if err := decodeJSON(w, r, &req); err != nil {
		handleServiceError(w, err)
		return
	}

	user, err := h.service.Register(r.Context(), req.Name, req.Email, req.Password)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, userEnvelope{User: toUserResponse(user)})
}

// Logout は提示されたトークンを失効させ、セッションCookieを削除する。
// 失効処理に失敗してもCookieは削除し、成功を返す。
// POST /auth/logout
func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	if token, _ := middleware.TokenFromRequest(r); token != "" {
		if err := h.service.Logout(r.Context(), token); err != nil {
			slog.Error("failed to revoke token on logout", slog.String("error", err.Error()))
		}
	}

	h.clearSessionCookie(w)
	writeJSON(w, http.StatusOK, successResponse{Success: true})
}

// Me は現在のログインユーザー情報を返す。
// GET /auth/me
func (h *AuthHandler) Me(w http.ResponseWriter, r *http.Request) {
	user := currentUser(w, r)
	if user == nil {
		return
	}
	writeJSON(w, http.StatusOK, userEnvelope{User: toUserResponse(user)})
}

// setSessionCookie はセッションCookieを設定する。
// rememberMeでない場合はブラウザ終了で破棄されるセッションCookieとする。
func (h *AuthHandler) setSessionCookie(w http.ResponseWriter, token *auth.IssuedToken, rememberMe bool) {
	cookie := &http.Cookie{
		Name:     middleware.SessionCookieName,
		Value:    token.Token,
		Path:     "/",
		Domain:   h.config.CookieDomain,
		HttpOnly: true,
		Secure:   h.config.CookieSecure,
		SameSite: http.SameSiteLaxMode,
	}
	if rememberMe {
		cookie.Expires = token.ExpiresAt
		cookie.MaxAge = int(token.ExpiresAt.Sub(h.now()).Seconds())
	}
	http.SetCookie(w, cookie)
}

func (h *AuthHandler) clearSessionCookie(w http.ResponseWriter) {
	clearSessionCookie(w, h.config)
}

func (h *AuthHandler) record(result string) {
	if h.recorder != nil {
		h.recorder.RecordLogin(result)
	}
}

// clearSessionCookie はセッションCookieを削除する。
func clearSessionCookie(w http.ResponseWriter, config AuthHandlerConfig) {
	http.SetCookie(w, &http.Cookie{
		Name:     middleware.SessionCookieName,
		Value:    "",
		Path:     "/",
		Domain:   config.CookieDomain,
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   config.CookieSecure,
		SameSite: http.SameSiteLaxMode,
	})
}
