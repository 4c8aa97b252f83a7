// Package catalog はカタログ商品の閲覧機能を提供する。
// 商品データは読み取り専用で、ここでは更新しない。
package catalog

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/hitoshi/plantshop/internal/model"
	"github.com/hitoshi/plantshop/internal/repository"
	"github.com/hitoshi/plantshop/internal/security"
)

// Service はカタログ閲覧のサービス層。
type Service struct {
	plants    repository.PlantRepository
	sanitizer security.ContentSanitizerService
}

// NewService はServiceの新しいインスタンスを生成する。
func NewService(plants repository.PlantRepository, sanitizer security.ContentSanitizerService) *Service {
	return &Service{plants: plants, sanitizer: sanitizer}
}

// List は絞り込み条件に一致する商品一覧を返す。
func (s *Service) List(ctx context.Context, filter model.PlantFilter) ([]*model.Plant, error) {
	plants, err := s.plants.List(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("商品一覧の取得に失敗しました: %w", err)
	}
	if plants == nil {
		plants = []*model.Plant{}
	}
	for _, p := range plants {
		s.clean(p)
	}
	return plants, nil
}

// Get は商品を1件取得する。存在しない場合はItemNotFoundを返す。
func (s *Service) Get(ctx context.Context, id string) (*model.Plant, error) {
	if _, err := uuid.Parse(id); err != nil {
		return nil, model.NewItemNotFoundError(id)
	}
	p, err := s.plants.FindByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("商品の取得に失敗しました: %w", err)
	}
	if p == nil {
		return nil, model.NewItemNotFoundError(id)
	}
	s.clean(p)
	return p, nil
}

// clean は説明文HTMLをサニタイズする。
func (s *Service) clean(p *model.Plant) {
	if s.sanitizer != nil {
		p.Description = s.sanitizer.Sanitize(p.Description)
	}
}
