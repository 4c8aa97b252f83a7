// Package ledger はカートとお気に入りの整合性ルールを提供する。
//
// 同一ユーザー・同一商品の重複行はストアの一意制約とUPSERTで防ぎ、
// 合計金額・合計数量は保存せず読み取りのたびに導出する。
package ledger

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/hitoshi/plantshop/internal/model"
	"github.com/hitoshi/plantshop/internal/repository"
)

// MaxQuantity はカート項目1件の数量上限。加算後の合計にも適用される。
const MaxQuantity = model.MaxCartQuantity

// 操作名。メトリクスのラベルに使う。
const (
	OpCartAdd        = "cart_add"
	OpCartUpdate     = "cart_update"
	OpCartRemove     = "cart_remove"
	OpWishlistAdd    = "wishlist_add"
	OpWishlistRemove = "wishlist_remove"
)

// MutationRecorder はカート・お気に入りの変更回数を記録する。
type MutationRecorder interface {
	RecordLedgerMutation(op string)
}

// Service はカートとお気に入りのサービス層。
type Service struct {
	carts     repository.CartRepository
	wishlists repository.WishlistRepository
	plants    repository.PlantRepository
	recorder  MutationRecorder
	now       func() time.Time
}

// NewService はServiceの新しいインスタンスを生成する。recorderはnilでもよい。
func NewService(
	carts repository.CartRepository,
	wishlists repository.WishlistRepository,
	plants repository.PlantRepository,
	recorder MutationRecorder,
) *Service {
	return &Service{
		carts:     carts,
		wishlists: wishlists,
		plants:    plants,
		recorder:  recorder,
		now:       time.Now,
	}
}

// AddToCart は商品をカートに追加する。
// 同一商品が既にカートにある場合は新しい行を作らず数量を加算する。
func (s *Service) AddToCart(ctx context.Context, ownerID, plantID string, quantity int) (*model.CartEntry, error) {
	if err := validateQuantity(quantity); err != nil {
		return nil, err
	}
	if err := s.requirePlant(ctx, plantID); err != nil {
		return nil, err
	}

	now := s.now()
	entry, err := s.carts.AddOrIncrement(ctx, &model.CartEntry{
		ID:        uuid.NewString(),
		UserID:    ownerID,
		PlantID:   plantID,
		Quantity:  quantity,
		AddedAt:   now,
		UpdatedAt: now,
	})
	if errors.Is(err, repository.ErrConflict) {
		// 一意制約違反は呼び出し側に見せず、加算として1回だけ再試行する
		entry, err = s.carts.Increment(ctx, ownerID, plantID, quantity)
		if err == nil && entry == nil {
			err = fmt.Errorf("cart entry vanished during retry: user=%s plant=%s", ownerID, plantID)
		}
	}
	if errors.Is(err, repository.ErrForeignKey) {
		return nil, model.NewItemNotFoundError(plantID)
	}
	if errors.Is(err, repository.ErrQuantityLimit) {
		return nil, model.NewInvalidQuantityError(quantity)
	}
	if err != nil {
		return nil, fmt.Errorf("カートへの追加に失敗しました: %w", err)
	}

	s.record(OpCartAdd)
	slog.Debug("cart entry upserted",
		slog.String("user_id", ownerID),
		slog.String("plant_id", plantID),
		slog.Int("quantity", entry.Quantity),
	)
	return entry, nil
}

// UpdateQuantity はカート項目の数量を設定する。
// 項目が存在しないか呼び出し元の所有でない場合はNotFoundを返す。
func (s *Service) UpdateQuantity(ctx context.Context, callerID, entryID string, quantity int) (*model.CartEntry, error) {
	if err := validateQuantity(quantity); err != nil {
		return nil, err
	}
	if !isUUID(entryID) {
		return nil, model.NewCartEntryNotFoundError(entryID)
	}

	entry, err := s.carts.UpdateQuantity(ctx, callerID, entryID, quantity)
	if err != nil {
		return nil, fmt.Errorf("カート数量の更新に失敗しました: %w", err)
	}
	if entry == nil {
		return nil, model.NewCartEntryNotFoundError(entryID)
	}

	s.record(OpCartUpdate)
	return entry, nil
}

// RemoveFromCart はカート項目を削除する。
// 所有する項目が見つからない場合（2回目の削除を含む）はNotFoundを返す。
func (s *Service) RemoveFromCart(ctx context.Context, ownerID, entryID string) error {
	if !isUUID(entryID) {
		return model.NewCartEntryNotFoundError(entryID)
	}

	removed, err := s.carts.Delete(ctx, ownerID, entryID)
	if err != nil {
		return fmt.Errorf("カート項目の削除に失敗しました: %w", err)
	}
	if !removed {
		return model.NewCartEntryNotFoundError(entryID)
	}

	s.record(OpCartRemove)
	return nil
}

// ListCart はカートの内容を商品情報と合計値付きで返す。
func (s *Service) ListCart(ctx context.Context, ownerID string) (*model.CartSummary, error) {
	lines, err := s.carts.ListByUserID(ctx, ownerID)
	if err != nil {
		return nil, fmt.Errorf("カートの取得に失敗しました: %w", err)
	}
	if lines == nil {
		lines = []model.CartLine{}
	}
	summary := model.Summarize(lines)
	return &summary, nil
}

// TotalPrice はカートの合計金額を現在の商品価格から導出する。
func (s *Service) TotalPrice(ctx context.Context, ownerID string) (model.Money, error) {
	summary, err := s.ListCart(ctx, ownerID)
	if err != nil {
		return 0, err
	}
	return summary.TotalPrice, nil
}

// TotalItems はカート内の数量の合計を返す。
func (s *Service) TotalItems(ctx context.Context, ownerID string) (int, error) {
	summary, err := s.ListCart(ctx, ownerID)
	if err != nil {
		return 0, err
	}
	return summary.TotalItems, nil
}

// AddToWishlist は商品をお気に入りに追加する。
// 登録済みの場合は重複を作らず既存の項目を返す。
func (s *Service) AddToWishlist(ctx context.Context, ownerID, plantID string) (*model.WishlistEntry, error) {
	if err := s.requirePlant(ctx, plantID); err != nil {
		return nil, err
	}

	add := func() (*model.WishlistEntry, error) {
		return s.wishlists.Add(ctx, &model.WishlistEntry{
			ID:      uuid.NewString(),
			UserID:  ownerID,
			PlantID: plantID,
			AddedAt: s.now(),
		})
	}
	entry, err := add()
	if errors.Is(err, repository.ErrConflict) {
		// 並行する追加・削除と競合した場合は1回だけ再試行する
		entry, err = add()
	}
	if errors.Is(err, repository.ErrForeignKey) {
		return nil, model.NewItemNotFoundError(plantID)
	}
	if err != nil {
		return nil, fmt.Errorf("お気に入りへの追加に失敗しました: %w", err)
	}

	s.record(OpWishlistAdd)
	return entry, nil
}

// RemoveFromWishlist は商品をお気に入りから削除する。
// 削除対象がない場合はNotFoundを返す。
func (s *Service) RemoveFromWishlist(ctx context.Context, ownerID, plantID string) error {
	if !isUUID(plantID) {
		return model.NewWishlistEntryNotFoundError(plantID)
	}

	removed, err := s.wishlists.Delete(ctx, ownerID, plantID)
	if err != nil {
		return fmt.Errorf("お気に入りの削除に失敗しました: %w", err)
	}
	if !removed {
		return model.NewWishlistEntryNotFoundError(plantID)
	}

	s.record(OpWishlistRemove)
	return nil
}

// IsInWishlist は商品がお気に入りに登録されているかを返す。
func (s *Service) IsInWishlist(ctx context.Context, ownerID, plantID string) (bool, error) {
	if !isUUID(plantID) {
		return false, nil
	}
	entry, err := s.wishlists.FindByUserAndPlant(ctx, ownerID, plantID)
	if err != nil {
		return false, fmt.Errorf("お気に入りの確認に失敗しました: %w", err)
	}
	return entry != nil, nil
}

// ListWishlist はお気に入りの内容を商品情報付きで返す。
func (s *Service) ListWishlist(ctx context.Context, ownerID string) ([]model.WishlistLine, error) {
	lines, err := s.wishlists.ListByUserID(ctx, ownerID)
	if err != nil {
		return nil, fmt.Errorf("お気に入りの取得に失敗しました: %w", err)
	}
	if lines == nil {
		lines = []model.WishlistLine{}
	}
	return lines, nil
}

// requirePlant は商品の存在を確認する。存在しない場合はItemNotFoundを返す。
func (s *Service) requirePlant(ctx context.Context, plantID string) error {
	if !isUUID(plantID) {
		return model.NewItemNotFoundError(plantID)
	}
	plant, err := s.plants.FindByID(ctx, plantID)
	if err != nil {
		return fmt.Errorf("商品の取得に失敗しました: %w", err)
	}
	if plant == nil {
		return model.NewItemNotFoundError(plantID)
	}
	return nil
}

func (s *Service) record(op string) {
	if s.recorder != nil {
		s.recorder.RecordLedgerMutation(op)
	}
}

func validateQuantity(quantity int) error {
	if quantity < 1 || quantity > MaxQuantity {
		return model.NewInvalidQuantityError(quantity)
	}
	return nil
}

func isUUID(s string) bool {
	_, err := uuid.Parse(s)
	return err == nil
}
