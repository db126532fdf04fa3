// Package memstore はテスト用のインメモリ実装。
// 全てのrepositoryの約束とTxの巻き戻しを再現する
package memstore

import (
	"context"
	"sort"
	"strings"
	"sync"

	"marketplace/internal/domain/model"
	repo "marketplace/internal/repository"

	"github.com/shopspring/decimal"
)

type Store struct {
	// Txを直列にする（行ロックの代わり）
	txMu sync.Mutex
	mu   sync.RWMutex

	users      map[int64]model.User
	categories map[int64]model.Category
	products   map[int64]model.Product
	reviews    map[int64]model.Review
	nextID     int64

	// 操作名 -> 返すエラー
	failures map[string]error
}

func New() *Store {
	return &Store{
		users:      map[int64]model.User{},
		categories: map[int64]model.Category{},
		products:   map[int64]model.Product{},
		reviews:    map[int64]model.Review{},
		failures:   map[string]error{},
	}
}

// 次の呼び出しから op（例: "UpdateRating"）でerrを返す。nilで解除
func (s *Store) FailOn(op string, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err == nil {
		delete(s.failures, op)
		return
	}
	s.failures[op] = err
}

func (s *Store) fail(op string) error {
	return s.failures[op]
}

func (s *Store) id() int64 {
	s.nextID++
	return s.nextID
}

// ===== seed / inspect =====

func (s *Store) AddUser(u model.User) model.User {
	s.mu.Lock()
	defer s.mu.Unlock()
	u.ID = s.id()
	s.users[u.ID] = u
	return u
}

func (s *Store) AddCategory(c model.Category) model.Category {
	s.mu.Lock()
	defer s.mu.Unlock()
	c.ID = s.id()
	s.categories[c.ID] = c
	return c
}

func (s *Store) SetCategoryActive(id int64, active bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	c := s.categories[id]
	c.IsActive = active
	s.categories[id] = c
}

func (s *Store) AddProduct(p model.Product) model.Product {
	s.mu.Lock()
	defer s.mu.Unlock()
	p.ID = s.id()
	s.products[p.ID] = p
	return p
}

// 有効無効を問わず取得
func (s *Store) Product(id int64) (model.Product, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	p, ok := s.products[id]
	return p, ok
}

func (s *Store) Review(id int64) (model.Review, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	r, ok := s.reviews[id]
	return r, ok
}

func (s *Store) ReviewCount() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.reviews)
}

// ===== repositories =====

func (s *Store) Users() repo.UserRepository           { return userRepo{s} }
func (s *Store) Products() repo.ProductRepository     { return productRepo{s} }
func (s *Store) Categories() repo.CategoryRepository { return categoryRepo{s} }
func (s *Store) Reviews() repo.ReviewRepository       { return reviewRepo{s} }

// ===== tx =====

type snapshot struct {
	users      map[int64]model.User
	categories map[int64]model.Category
	products   map[int64]model.Product
	reviews    map[int64]model.Review
	nextID     int64
}

func cloneMap[K comparable, V any](m map[K]V) map[K]V {
	out := make(map[K]V, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}

func (s *Store) snapshot() snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return snapshot{
		users:      cloneMap(s.users),
		categories: cloneMap(s.categories),
		products:   cloneMap(s.products),
		reviews:    cloneMap(s.reviews),
		nextID:     s.nextID,
	}
}

func (s *Store) restore(snap snapshot) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.users = snap.users
	s.categories = snap.categories
	s.products = snap.products
	s.reviews = snap.reviews
	s.nextID = snap.nextID
}

func (s *Store) WithinTx(ctx context.Context, fn func(r repo.TxRepos) error) error {
	s.txMu.Lock()
	defer s.txMu.Unlock()

	if err := ctx.Err(); err != nil {
		return err
	}

	snap := s.snapshot()
	if err := fn(s); err != nil {
		s.restore(snap)
		return err
	}
	return nil
}

var (
	_ repo.TransactionManager = (*Store)(nil)
	_ repo.TxRepos            = (*Store)(nil)
)

// ===== users =====

type userRepo struct{ s *Store }

func (r userRepo) Create(_ context.Context, u *model.User) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if err := r.s.fail("CreateUser"); err != nil {
		return err
	}
	for _, cur := range r.s.users {
		if strings.EqualFold(cur.Email, u.Email) {
			return repo.ErrDuplicate
		}
	}
	u.ID = r.s.id()
	r.s.users[u.ID] = *u
	return nil
}

func (r userRepo) FindByID(_ context.Context, id int64) (*model.User, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	u, ok := r.s.users[id]
	if !ok {
		return nil, nil
	}
	return &u, nil
}

func (r userRepo) FindByEmail(_ context.Context, email string) (*model.User, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	for _, u := range r.s.users {
		if u.Email == email {
			u := u
			return &u, nil
		}
	}
	return nil, nil
}

// ===== categories =====

type categoryRepo struct{ s *Store }

func (r categoryRepo) FindActiveByID(_ context.Context, id int64) (model.Category, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	c, ok := r.s.categories[id]
	if !ok || !c.IsActive {
		return model.Category{}, repo.ErrNotFound
	}
	return c, nil
}

// ===== products =====

type productRepo struct{ s *Store }

// 呼び出し側でRLock済み
func (r productRepo) visible(p model.Product) bool {
	if !p.IsActive {
		return false
	}
	c, ok := r.s.categories[p.CategoryID]
	return ok && c.IsActive
}

func match(p model.Product, f repo.ProductFilter) bool {
	if f.CategoryID != nil && p.CategoryID != *f.CategoryID {
		return false
	}
	if f.MinPrice != nil && p.Price.LessThan(*f.MinPrice) {
		return false
	}
	if f.MaxPrice != nil && p.Price.GreaterThan(*f.MaxPrice) {
		return false
	}
	if f.InStock != nil && (p.Stock > 0) != *f.InStock {
		return false
	}
	if f.SellerID != nil && p.SellerID != *f.SellerID {
		return false
	}
	if f.CreatedAt != nil && !p.CreatedAt.Equal(*f.CreatedAt) {
		return false
	}
	return true
}

func (r productRepo) filtered(f repo.ProductFilter) []model.Product {
	out := []model.Product{}
	for _, p := range r.s.products {
		if r.visible(p) && match(p, f) {
			out = append(out, p)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

func (r productRepo) List(_ context.Context, f repo.ProductFilter, page int, pageSize int) ([]model.Product, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	if err := r.s.fail("List"); err != nil {
		return nil, err
	}

	all := r.filtered(f)
	if pageSize < 0 {
		return all, nil
	}
	start := (page - 1) * pageSize
	if start >= len(all) {
		return []model.Product{}, nil
	}
	end := start + pageSize
	if end > len(all) {
		end = len(all)
	}
	return all[start:end], nil
}

func (r productRepo) Count(_ context.Context, f repo.ProductFilter) (int64, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	if err := r.s.fail("Count"); err != nil {
		return 0, err
	}
	return int64(len(r.filtered(f))), nil
}

func (r productRepo) ListByCategory(ctx context.Context, categoryID int64) ([]model.Product, error) {
	return r.List(ctx, repo.ProductFilter{CategoryID: &categoryID}, 1, -1)
}

func (r productRepo) FindActiveByID(_ context.Context, id int64) (model.Product, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	p, ok := r.s.products[id]
	if !ok || !p.IsActive {
		return model.Product{}, repo.ErrNotFound
	}
	return p, nil
}

func (r productRepo) LockActiveByID(ctx context.Context, id int64) (model.Product, error) {
	return r.FindActiveByID(ctx, id)
}

func (r productRepo) LockByID(_ context.Context, id int64) (model.Product, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	p, ok := r.s.products[id]
	if !ok {
		return model.Product{}, repo.ErrNotFound
	}
	return p, nil
}

func (r productRepo) Create(_ context.Context, p model.Product) (model.Product, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if err := r.s.fail("CreateProduct"); err != nil {
		return model.Product{}, err
	}
	p.ID = r.s.id()
	r.s.products[p.ID] = p
	return p, nil
}

func (r productRepo) Update(_ context.Context, p model.Product) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if err := r.s.fail("UpdateProduct"); err != nil {
		return err
	}
	cur, ok := r.s.products[p.ID]
	if !ok {
		return repo.ErrNotFound
	}
	cur.Name = p.Name
	cur.Description = p.Description
	cur.Price = p.Price
	cur.ImageURL = p.ImageURL
	cur.Stock = p.Stock
	cur.CategoryID = p.CategoryID
	cur.UpdatedAt = p.UpdatedAt
	r.s.products[p.ID] = cur
	return nil
}

func (r productRepo) Deactivate(_ context.Context, id int64) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	cur, ok := r.s.products[id]
	if !ok || !cur.IsActive {
		return repo.ErrNotFound
	}
	cur.IsActive = false
	r.s.products[id] = cur
	return nil
}

func (r productRepo) UpdateRating(_ context.Context, id int64, rating decimal.Decimal) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if err := r.s.fail("UpdateRating"); err != nil {
		return err
	}
	cur, ok := r.s.products[id]
	if !ok {
		return repo.ErrNotFound
	}
	cur.Rating = rating
	r.s.products[id] = cur
	return nil
}

// ===== reviews =====

type reviewRepo struct{ s *Store }

func (r reviewRepo) activeWhere(keep func(model.Review) bool) []model.Review {
	out := []model.Review{}
	for _, rv := range r.s.reviews {
		if rv.IsActive && keep(rv) {
			out = append(out, rv)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

func (r reviewRepo) ListActive(_ context.Context) ([]model.Review, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	return r.activeWhere(func(model.Review) bool { return true }), nil
}

func (r reviewRepo) ListActiveByProduct(_ context.Context, productID int64) ([]model.Review, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	return r.activeWhere(func(rv model.Review) bool { return rv.ProductID == productID }), nil
}

func (r reviewRepo) FindActiveByID(_ context.Context, id int64) (model.Review, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	rv, ok := r.s.reviews[id]
	if !ok || !rv.IsActive {
		return model.Review{}, repo.ErrNotFound
	}
	return rv, nil
}

func (r reviewRepo) ExistsForUserAndProduct(_ context.Context, userID int64, productID int64) (bool, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	for _, rv := range r.s.reviews {
		if rv.UserID == userID && rv.ProductID == productID {
			return true, nil
		}
	}
	return false, nil
}

// (user_id, product_id)の一意制約を再現
func (r reviewRepo) Create(_ context.Context, rv model.Review) (model.Review, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if err := r.s.fail("CreateReview"); err != nil {
		return model.Review{}, err
	}
	for _, cur := range r.s.reviews {
		if cur.UserID == rv.UserID && cur.ProductID == rv.ProductID {
			return model.Review{}, repo.ErrDuplicate
		}
	}
	rv.ID = r.s.id()
	r.s.reviews[rv.ID] = rv
	return rv, nil
}

func (r reviewRepo) Deactivate(_ context.Context, id int64) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	cur, ok := r.s.reviews[id]
	if !ok || !cur.IsActive {
		return repo.ErrNotFound
	}
	cur.IsActive = false
	r.s.reviews[id] = cur
	return nil
}

func (r reviewRepo) ActiveGradeStats(_ context.Context, productID int64) (int64, int64, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	if err := r.s.fail("ActiveGradeStats"); err != nil {
		return 0, 0, err
	}
	var sum, count int64
	for _, rv := range r.s.reviews {
		if rv.IsActive && rv.ProductID == productID {
			sum += int64(rv.Grade)
			count++
		}
	}
	return sum, count, nil
}
