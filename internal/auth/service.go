// Package auth はパスワード認証、セッショントークンの発行・検証・失効を提供する。
package auth

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/mail"
	"sync"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"

	"github.com/hitoshi/plantshop/internal/model"
	"github.com/hitoshi/plantshop/internal/repository"
)

// MinBcryptCost はパスワードハッシュに使う最小ワークファクター。
const MinBcryptCost = 12

// 入力値の上限。
const (
	MaxNameLength  = 100
	MaxEmailLength = 254
)

// TextSanitizer は表示名からマークアップを取り除くインターフェース。
type TextSanitizer interface {
	SanitizeText(raw string) string
}

// ServiceConfig は認証サービスの設定。
type ServiceConfig struct {
	BcryptCost int
}

// LoginResult はログイン成功時の結果。
type LoginResult struct {
	User  *model.User
	Token *IssuedToken
}

// Service は認証に関するビジネスロジックを提供する。
type Service struct {
	userRepo    repository.UserRepository
	revocations repository.RevocationRepository
	tokens      *TokenService
	sanitizer   TextSanitizer
	cost        int
	now         func() time.Time

	dummyOnce sync.Once
	dummyHash string
}

// NewService はServiceを生成する。
// BcryptCostがMinBcryptCost未満の場合はMinBcryptCostに引き上げる。
func NewService(
	userRepo repository.UserRepository,
	revocations repository.RevocationRepository,
	tokens *TokenService,
	sanitizer TextSanitizer,
	config ServiceConfig,
) *Service {
	cost := config.BcryptCost
	if cost < MinBcryptCost {
		cost = MinBcryptCost
	}
	return &Service{
		userRepo:    userRepo,
		revocations: revocations,
		tokens:      tokens,
		sanitizer:   sanitizer,
		cost:        cost,
		now:         time.Now,
	}
}

// Login はメールアドレスとパスワードで認証し、セッショントークンを発行する。
// 未登録メールアドレスとパスワード不一致は同一のエラーを返す。
// 未登録の場合もダミーハッシュとの比較を行い、応答時間から登録有無を推測できないようにする。
func (s *Service) Login(ctx context.Context, email, password string, rememberMe bool) (*LoginResult, error) {
	email = model.NormalizeEmail(email)

	user, err := s.userRepo.FindByEmail(ctx, email)
	if err != nil {
		return nil, fmt.Errorf("failed to find user: %w", err)
	}

	if user == nil {
		VerifyPassword(s.dummy(), password)
		slog.Info("login failed", slog.String("reason", "unknown_email"))
		return nil, model.NewInvalidCredentialsError()
	}
	if !VerifyPassword(user.PasswordHash, password) {
		slog.Info("login failed",
			slog.String("reason", "password_mismatch"),
			slog.String("user_id", user.ID),
		)
		return nil, model.NewInvalidCredentialsError()
	}

	token, err := s.tokens.Issue(user, rememberMe)
	if err != nil {
		return nil, fmt.Errorf("failed to issue token: %w", err)
	}

	slog.Info("user logged in",
		slog.String("user_id", user.ID),
		slog.Bool("remember_me", rememberMe),
	)
	return &LoginResult{User: user, Token: token}, nil
}

// ResolveSession はトークンから現在のユーザーを解決する。
// トークンが空・無効・失効済み、またはユーザーが存在しない場合は(nil, nil)を返し、匿名として扱う。
// ロールはトークンではなくストアから取得する。
func (s *Service) ResolveSession(ctx context.Context, token string) (*model.User, error) {
	if token == "" {
		return nil, nil
	}

	claims, err := s.tokens.Verify(token)
	if err != nil {
		return nil, nil
	}

	if s.revocations != nil {
		revoked, err := s.revocations.IsRevoked(ctx, claims.ID)
		if err != nil {
			return nil, fmt.Errorf("failed to check token revocation: %w", err)
		}
		if revoked {
			return nil, nil
		}
	}

	user, err := s.userRepo.FindByID(ctx, claims.Subject)
	if err != nil {
		return nil, fmt.Errorf("failed to find user: %w", err)
	}
	return user, nil
}

// Register は新規ユーザーを登録する。ロールは常にcustomerで、セッションは発行しない。
func (s *Service) Register(ctx context.Context, name, email, password string) (*model.User, error) {
	name = s.sanitizer.SanitizeText(name)
	if name == "" {
		return nil, model.NewValidationError("名前を入力してください")
	}
	if utf8.RuneCountInString(name) > MaxNameLength {
		return nil, model.NewValidationError(fmt.Sprintf("名前は%d文字以内で入力してください", MaxNameLength))
	}

	email = model.NormalizeEmail(email)
	if err := validateEmail(email); err != nil {
		return nil, err
	}
	if err := ValidatePassword(password); err != nil {
		return nil, err
	}

	existing, err := s.userRepo.FindByEmail(ctx, email)
	if err != nil {
		return nil, fmt.Errorf("failed to find user: %w", err)
	}
	if existing != nil {
		return nil, model.NewDuplicateEmailError()
	}

	hash, err := HashPassword(password, s.cost)
	if err != nil {
		return nil, err
	}

	now := s.now()
	user := &model.User{
		ID:           uuid.NewString(),
		Email:        email,
		Name:         name,
		PasswordHash: hash,
		Role:         model.RoleCustomer,
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	if err := s.userRepo.Create(ctx, user); err != nil {
		// 事前確認と挿入の間に同じメールアドレスが登録された場合
		if errors.Is(err, repository.ErrConflict) {
			return nil, model.NewDuplicateEmailError()
		}
		return nil, fmt.Errorf("failed to create user: %w", err)
	}

	slog.Info("user registered",
		slog.String("user_id", user.ID),
		slog.String("email", user.Email),
	)
	return user, nil
}

// Logout はトークンを失効リストに登録する。
// 無効なトークンは無視し、エラーを返さない。
func (s *Service) Logout(ctx context.Context, token string) error {
	claims, err := s.tokens.Verify(token)
	if err != nil {
		return nil
	}

	if s.revocations != nil {
		err := s.revocations.Revoke(ctx, &model.RevokedToken{
			JTI:       claims.ID,
			UserID:    claims.Subject,
			ExpiresAt: claims.ExpiresAt.Time,
			RevokedAt: s.now(),
		})
		// ユーザー削除済みの場合は記録不要
		if err != nil && !errors.Is(err, repository.ErrForeignKey) {
			return fmt.Errorf("failed to revoke token: %w", err)
		}
	}

	slog.Info("user logged out", slog.String("user_id", claims.Subject))
	return nil
}

// dummy はタイミング均一化用のハッシュを返す。初回呼び出し時に1度だけ生成する。
func (s *Service) dummy() string {
	s.dummyOnce.Do(func() {
		hash, err := HashPassword(uuid.NewString(), s.cost)
		if err != nil {
			slog.Error("failed to generate dummy hash", slog.String("error", err.Error()))
			return
		}
		s.dummyHash = hash
	})
	return s.dummyHash
}

func validateEmail(email string) error {
	if email == "" {
		return model.NewValidationError("メールアドレスを入力してください")
	}
	if len(email) > MaxEmailLength {
		return model.NewValidationError("メールアドレスが長すぎます")
	}
	addr, err := mail.ParseAddress(email)
	if err != nil || addr.Address != email {
		return model.NewValidationError("メールアドレスの形式が正しくありません")
	}
	return nil
}
