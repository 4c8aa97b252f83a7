// Package memory はリポジトリインターフェースのインメモリ実装を提供する。
// サービス層・ハンドラ層のテストでPostgreSQLの代わりに使う。
// 一意制約とCASCADE削除をPostgreSQLのスキーマと同じ規則で再現する。
package memory

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/hitoshi/plantshop/internal/model"
	"github.com/hitoshi/plantshop/internal/repository"
)

// Store は全テーブルを保持するインメモリストア。並行利用できる。
type Store struct {
	mu       sync.Mutex
	users    map[string]*model.User
	plants   map[string]*model.Plant
	cart     map[string]*model.CartEntry
	wishlist map[string]*model.WishlistEntry
	revoked  map[string]*model.RevokedToken

	failErr error
}

// NewStore は空のStoreを生成する。
func NewStore() *Store {
	return &Store{
		users:    make(map[string]*model.User),
		plants:   make(map[string]*model.Plant),
		cart:     make(map[string]*model.CartEntry),
		wishlist: make(map[string]*model.WishlistEntry),
		revoked:  make(map[string]*model.RevokedToken),
	}
}

// FailWith は以降の全操作がerrを返すようにする。nilで解除する。
func (s *Store) FailWith(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.failErr = err
}

// PutUser はユーザーを登録する。既存の同一IDは上書きする。
func (s *Store) PutUser(u *model.User) {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := *u
	s.users[u.ID] = &cp
}

// PutPlant はカタログに商品を登録する。
func (s *Store) PutPlant(p *model.Plant) {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := *p
	s.plants[p.ID] = &cp
}

// DeletePlant はカタログから商品を削除し、参照するカート・お気に入りをCASCADE削除する。
func (s *Store) DeletePlant(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.plants, id)
	for k, e := range s.cart {
		if e.PlantID == id {
			delete(s.cart, k)
		}
	}
	for k, e := range s.wishlist {
		if e.PlantID == id {
			delete(s.wishlist, k)
		}
	}
}

// CartRowCount は(user, plant)に一致するカート行数を返す。
func (s *Store) CartRowCount(userID, plantID string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for _, e := range s.cart {
		if e.UserID == userID && e.PlantID == plantID {
			n++
		}
	}
	return n
}

// WishlistRowCount は(user, plant)に一致するお気に入り行数を返す。
func (s *Store) WishlistRowCount(userID, plantID string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for _, e := range s.wishlist {
		if e.UserID == userID && e.PlantID == plantID {
			n++
		}
	}
	return n
}

// Users はUserRepositoryの実装を返す。
func (s *Store) Users() *UserRepo { return &UserRepo{s: s} }

// Plants はPlantRepositoryの実装を返す。
func (s *Store) Plants() *PlantRepo { return &PlantRepo{s: s} }

// Carts はCartRepositoryの実装を返す。
func (s *Store) Carts() *CartRepo { return &CartRepo{s: s} }

// Wishlists はWishlistRepositoryの実装を返す。
func (s *Store) Wishlists() *WishlistRepo { return &WishlistRepo{s: s} }

// Revocations はRevocationRepositoryの実装を返す。
func (s *Store) Revocations() *RevocationRepo { return &RevocationRepo{s: s} }

// Stats はStatsRepositoryの実装を返す。
func (s *Store) Stats() *StatsRepo { return &StatsRepo{s: s} }

// lock はロックを取得し、障害注入中ならそのエラーを返す。
func (s *Store) lock(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	if s.failErr != nil {
		err := s.failErr
		s.mu.Unlock()
		return err
	}
	return nil
}

// UserRepo はインメモリのUserRepository。
type UserRepo struct{ s *Store }

func (r *UserRepo) FindByID(ctx context.Context, id string) (*model.User, error) {
	if err := r.s.lock(ctx); err != nil {
		return nil, err
	}
	defer r.s.mu.Unlock()
	u, ok := r.s.users[id]
	if !ok {
		return nil, nil
	}
	cp := *u
	return &cp, nil
}

func (r *UserRepo) FindByEmail(ctx context.Context, email string) (*model.User, error) {
	if err := r.s.lock(ctx); err != nil {
		return nil, err
	}
	defer r.s.mu.Unlock()
	for _, u := range r.s.users {
		if u.Email == email {
			cp := *u
			return &cp, nil
		}
	}
	return nil, nil
}

func (r *UserRepo) Create(ctx context.Context, user *model.User) error {
	if err := r.s.lock(ctx); err != nil {
		return err
	}
	defer r.s.mu.Unlock()
	for _, u := range r.s.users {
		if u.Email == user.Email {
			return repository.ErrConflict
		}
	}
	cp := *user
	r.s.users[user.ID] = &cp
	return nil
}

func (r *UserRepo) UpdateRole(ctx context.Context, id string, role model.Role) error {
	if err := r.s.lock(ctx); err != nil {
		return err
	}
	defer r.s.mu.Unlock()
	u, ok := r.s.users[id]
	if !ok {
		return repository.ErrNotFound
	}
	u.Role = role
	u.UpdatedAt = time.Now()
	return nil
}

func (r *UserRepo) DeleteByID(ctx context.Context, id string) error {
	if err := r.s.lock(ctx); err != nil {
		return err
	}
	defer r.s.mu.Unlock()
	if _, ok := r.s.users[id]; !ok {
		return repository.ErrNotFound
	}
	delete(r.s.users, id)
	for k, e := range r.s.cart {
		if e.UserID == id {
			delete(r.s.cart, k)
		}
	}
	for k, e := range r.s.wishlist {
		if e.UserID == id {
			delete(r.s.wishlist, k)
		}
	}
	for k, e := range r.s.revoked {
		if e.UserID == id {
			delete(r.s.revoked, k)
		}
	}
	return nil
}

// PlantRepo はインメモリのPlantRepository。
type PlantRepo struct{ s *Store }

func (r *PlantRepo) FindByID(ctx context.Context, id string) (*model.Plant, error) {
	if err := r.s.lock(ctx); err != nil {
		return nil, err
	}
	defer r.s.mu.Unlock()
	p, ok := r.s.plants[id]
	if !ok {
		return nil, nil
	}
	cp := *p
	return &cp, nil
}

func (r *PlantRepo) List(ctx context.Context, filter model.PlantFilter) ([]*model.Plant, error) {
	if err := r.s.lock(ctx); err != nil {
		return nil, err
	}
	defer r.s.mu.Unlock()

	var plants []*model.Plant
	for _, p := range r.s.plants {
		if filter.InStockOnly && !p.InStock {
			continue
		}
		if filter.Category != "" && p.Category != filter.Category {
			continue
		}
		cp := *p
		plants = append(plants, &cp)
	}
	sort.Slice(plants, func(i, j int) bool {
		if plants[i].Name != plants[j].Name {
			return plants[i].Name < plants[j].Name
		}
		return plants[i].ID < plants[j].ID
	})

	limit := filter.Limit
	if limit <= 0 {
		limit = repository.DefaultPlantListLimit
	}
	if limit > repository.MaxPlantListLimit {
		limit = repository.MaxPlantListLimit
	}
	offset := max(filter.Offset, 0)
	if offset >= len(plants) {
		return nil, nil
	}
	end := min(offset+limit, len(plants))
	return plants[offset:end], nil
}

// CartRepo はインメモリのCartRepository。
type CartRepo struct{ s *Store }

func (r *CartRepo) findLocked(userID, plantID string) *model.CartEntry {
	for _, e := range r.s.cart {
		if e.UserID == userID && e.PlantID == plantID {
			return e
		}
	}
	return nil
}

func (r *CartRepo) AddOrIncrement(ctx context.Context, entry *model.CartEntry) (*model.CartEntry, error) {
	if err := r.s.lock(ctx); err != nil {
		return nil, err
	}
	defer r.s.mu.Unlock()
	if _, ok := r.s.users[entry.UserID]; !ok {
		return nil, repository.ErrForeignKey
	}
	if _, ok := r.s.plants[entry.PlantID]; !ok {
		return nil, repository.ErrForeignKey
	}
	if existing := r.findLocked(entry.UserID, entry.PlantID); existing != nil {
		if existing.Quantity+entry.Quantity > model.MaxCartQuantity {
			return nil, repository.ErrQuantityLimit
		}
		existing.Quantity += entry.Quantity
		existing.UpdatedAt = entry.UpdatedAt
		cp := *existing
		return &cp, nil
	}
	cp := *entry
	r.s.cart[entry.ID] = &cp
	out := cp
	return &out, nil
}

func (r *CartRepo) Increment(ctx context.Context, userID, plantID string, delta int) (*model.CartEntry, error) {
	if err := r.s.lock(ctx); err != nil {
		return nil, err
	}
	defer r.s.mu.Unlock()
	existing := r.findLocked(userID, plantID)
	if existing == nil {
		return nil, nil
	}
	if existing.Quantity+delta > model.MaxCartQuantity {
		return nil, repository.ErrQuantityLimit
	}
	existing.Quantity += delta
	existing.UpdatedAt = time.Now()
	cp := *existing
	return &cp, nil
}

func (r *CartRepo) UpdateQuantity(ctx context.Context, userID, entryID string, quantity int) (*model.CartEntry, error) {
	if err := r.s.lock(ctx); err != nil {
		return nil, err
	}
	defer r.s.mu.Unlock()
	e, ok := r.s.cart[entryID]
	if !ok || e.UserID != userID {
		return nil, nil
	}
	e.Quantity = quantity
	e.UpdatedAt = time.Now()
	cp := *e
	return &cp, nil
}

func (r *CartRepo) Delete(ctx context.Context, userID, entryID string) (bool, error) {
	if err := r.s.lock(ctx); err != nil {
		return false, err
	}
	defer r.s.mu.Unlock()
	e, ok := r.s.cart[entryID]
	if !ok || e.UserID != userID {
		return false, nil
	}
	delete(r.s.cart, entryID)
	return true, nil
}

func (r *CartRepo) ListByUserID(ctx context.Context, userID string) ([]model.CartLine, error) {
	if err := r.s.lock(ctx); err != nil {
		return nil, err
	}
	defer r.s.mu.Unlock()
	var lines []model.CartLine
	for _, e := range r.s.cart {
		if e.UserID != userID {
			continue
		}
		p := r.s.plants[e.PlantID]
		lines = append(lines, model.CartLine{
			CartEntry: *e,
			PlantName: p.Name,
			UnitPrice: p.Price,
			InStock:   p.InStock,
			ImageURL:  p.ImageURL,
		})
	}
	sort.Slice(lines, func(i, j int) bool {
		if !lines[i].AddedAt.Equal(lines[j].AddedAt) {
			return lines[i].AddedAt.Before(lines[j].AddedAt)
		}
		return lines[i].ID < lines[j].ID
	})
	return lines, nil
}

// WishlistRepo はインメモリのWishlistRepository。
type WishlistRepo struct{ s *Store }

func (r *WishlistRepo) findLocked(userID, plantID string) *model.WishlistEntry {
	for _, e := range r.s.wishlist {
		if e.UserID == userID && e.PlantID == plantID {
			return e
		}
	}
	return nil
}

func (r *WishlistRepo) Add(ctx context.Context, entry *model.WishlistEntry) (*model.WishlistEntry, error) {
	if err := r.s.lock(ctx); err != nil {
		return nil, err
	}
	defer r.s.mu.Unlock()
	if _, ok := r.s.users[entry.UserID]; !ok {
		return nil, repository.ErrForeignKey
	}
	if _, ok := r.s.plants[entry.PlantID]; !ok {
		return nil, repository.ErrForeignKey
	}
	if existing := r.findLocked(entry.UserID, entry.PlantID); existing != nil {
		cp := *existing
		return &cp, nil
	}
	cp := *entry
	r.s.wishlist[entry.ID] = &cp
	out := cp
	return &out, nil
}

func (r *WishlistRepo) FindByUserAndPlant(ctx context.Context, userID, plantID string) (*model.WishlistEntry, error) {
	if err := r.s.lock(ctx); err != nil {
		return nil, err
	}
	defer r.s.mu.Unlock()
	e := r.findLocked(userID, plantID)
	if e == nil {
		return nil, nil
	}
	cp := *e
	return &cp, nil
}

func (r *WishlistRepo) Delete(ctx context.Context, userID, plantID string) (bool, error) {
	if err := r.s.lock(ctx); err != nil {
		return false, err
	}
	defer r.s.mu.Unlock()
	e := r.findLocked(userID, plantID)
	if e == nil {
		return false, nil
	}
	delete(r.s.wishlist, e.ID)
	return true, nil
}

func (r *WishlistRepo) ListByUserID(ctx context.Context, userID string) ([]model.WishlistLine, error) {
	if err := r.s.lock(ctx); err != nil {
		return nil, err
	}
	defer r.s.mu.Unlock()
	var lines []model.WishlistLine
	for _, e := range r.s.wishlist {
		if e.UserID != userID {
			continue
		}
		p := r.s.plants[e.PlantID]
		lines = append(lines, model.WishlistLine{
			WishlistEntry: *e,
			PlantName:     p.Name,
			Price:         p.Price,
			InStock:       p.InStock,
			ImageURL:      p.ImageURL,
		})
	}
	sort.Slice(lines, func(i, j int) bool {
		if !lines[i].AddedAt.Equal(lines[j].AddedAt) {
			return lines[i].AddedAt.After(lines[j].AddedAt)
		}
		return strings.Compare(lines[i].ID, lines[j].ID) < 0
	})
	return lines, nil
}

// RevocationRepo はインメモリのRevocationRepository。
type RevocationRepo struct{ s *Store }

func (r *RevocationRepo) Revoke(ctx context.Context, token *model.RevokedToken) error {
	if err := r.s.lock(ctx); err != nil {
		return err
	}
	defer r.s.mu.Unlock()
	if _, ok := r.s.users[token.UserID]; !ok {
		return repository.ErrForeignKey
	}
	if _, ok := r.s.revoked[token.JTI]; ok {
		return nil
	}
	cp := *token
	r.s.revoked[token.JTI] = &cp
	return nil
}

func (r *RevocationRepo) IsRevoked(ctx context.Context, jti string) (bool, error) {
	if err := r.s.lock(ctx); err != nil {
		return false, err
	}
	defer r.s.mu.Unlock()
	_, ok := r.s.revoked[jti]
	return ok, nil
}

func (r *RevocationRepo) DeleteExpired(ctx context.Context, before time.Time) (int64, error) {
	if err := r.s.lock(ctx); err != nil {
		return 0, err
	}
	defer r.s.mu.Unlock()
	var n int64
	for k, t := range r.s.revoked {
		if t.ExpiresAt.Before(before) {
			delete(r.s.revoked, k)
			n++
		}
	}
	return n, nil
}

// StatsRepo はインメモリのStatsRepository。
type StatsRepo struct{ s *Store }

func (r *StatsRepo) Dashboard(ctx context.Context) (*model.DashboardStats, error) {
	if err := r.s.lock(ctx); err != nil {
		return nil, err
	}
	defer r.s.mu.Unlock()
	st := &model.DashboardStats{
		Users:         len(r.s.users),
		Plants:        len(r.s.plants),
		CartEntries:   len(r.s.cart),
		WishlistItems: len(r.s.wishlist),
	}
	for _, u := range r.s.users {
		if u.Role == model.RoleAdmin {
			st.Admins++
		} else {
			st.Customers++
		}
	}
	for _, p := range r.s.plants {
		if !p.InStock {
			st.OutOfStock++
		}
	}
	return st, nil
}

// compile-time interface checks
var (
	_ repository.UserRepository       = (*UserRepo)(nil)
	_ repository.PlantRepository      = (*PlantRepo)(nil)
	_ repository.CartRepository       = (*CartRepo)(nil)
	_ repository.WishlistRepository   = (*WishlistRepo)(nil)
	_ repository.RevocationRepository = (*RevocationRepo)(nil)
	_ repository.StatsRepository      = (*StatsRepo)(nil)
)
