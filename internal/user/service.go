// Package user はユーザー管理のドメインロジックを提供する。
package user

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/hitoshi/plantshop/internal/model"
	"github.com/hitoshi/plantshop/internal/repository"
)

// Service はユーザー管理のサービス層。
// 退会処理とロール変更のビジネスロジックを提供する。
type Service struct {
	userRepo repository.UserRepository
}

// NewService はServiceの新しいインスタンスを生成する。
func NewService(userRepo repository.UserRepository) *Service {
	return &Service{userRepo: userRepo}
}

// Withdraw はユーザーの退会処理を実行する。
// cart、wishlist、revoked_tokensはusersからのCASCADE削除で消える。
// カタログ商品は共有データとして残す。
func (s *Service) Withdraw(ctx context.Context, userID string) error {
	user, err := s.userRepo.FindByID(ctx, userID)
	if err != nil {
		return fmt.Errorf("ユーザーの取得に失敗しました: %w", err)
	}
	if user == nil {
		return model.NewUserNotFoundError()
	}

	slog.Info("withdrawal started", slog.String("user_id", userID))

	if err := s.userRepo.DeleteByID(ctx, userID); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return model.NewUserNotFoundError()
		}
		return fmt.Errorf("ユーザーの削除に失敗しました: %w", err)
	}

	slog.Info("withdrawal completed", slog.String("user_id", userID))
	return nil
}

// ChangeRole はメールアドレスで指定したユーザーのロールを変更する。
// 管理者への昇格はHTTP経由では行わず、運用コマンドからのみ呼び出す。
func (s *Service) ChangeRole(ctx context.Context, email string, role model.Role) (*model.User, error) {
	if !role.Valid() {
		return nil, model.NewValidationError(fmt.Sprintf("不明なロールです: %s", role))
	}

	email = model.NormalizeEmail(email)
	user, err := s.userRepo.FindByEmail(ctx, email)
	if err != nil {
		return nil, fmt.Errorf("ユーザーの取得に失敗しました: %w", err)
	}
	if user == nil {
		return nil, model.NewUserNotFoundError()
	}
	if user.Role == role {
		return user, nil
	}

	if err := s.userRepo.UpdateRole(ctx, user.ID, role); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, model.NewUserNotFoundError()
		}
		return nil, fmt.Errorf("ロールの更新に失敗しました: %w", err)
	}

	slog.Info("user role changed",
		slog.String("user_id", user.ID),
		slog.String("from", string(user.Role)),
		slog.String("to", string(role)),
	)
	user.Role = role
	return user, nil
}
