package repository

import (
	"context"

	"marketplace/internal/domain/model"
	repo "marketplace/internal/repository"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type ProductGormRepository struct {
	db *gorm.DB
}

// DI
func NewProductGormRepository(db *gorm.DB) *ProductGormRepository {
	return &ProductGormRepository{db: db}
}

var _ repo.ProductRepository = (*ProductGormRepository)(nil)

// 公開商品のみを、条件/ページング付きで返す。id昇順
func (r *ProductGormRepository) List(ctx context.Context, f repo.ProductFilter, page int, pageSize int) ([]model.Product, error) {
	products := []model.Product{}

	offset := (page - 1) * pageSize
	err := r.db.WithContext(ctx).
		Model(&model.Product{}).
		Scopes(visibleProducts, productFilter(f)).
		Order("products.id asc").
		Offset(offset).
		Limit(pageSize).
		Find(&products).Error
	if err != nil {
		return []model.Product{}, err
	}
	return products, nil
}

// Listと同じ条件の件数
func (r *ProductGormRepository) Count(ctx context.Context, f repo.ProductFilter) (int64, error) {
	var total int64
	err := r.db.WithContext(ctx).
		Model(&model.Product{}).
		Scopes(visibleProducts, productFilter(f)).
		Count(&total).Error
	if err != nil {
		return 0, err
	}
	return total, nil
}

func (r *ProductGormRepository) ListByCategory(ctx context.Context, categoryID int64) ([]model.Product, error) {
	return r.List(ctx, repo.ProductFilter{CategoryID: &categoryID}, 1, -1)
}

// IDで有効な商品を取得
func (r *ProductGormRepository) FindActiveByID(ctx context.Context, id int64) (model.Product, error) {
	var p model.Product
	err := r.db.WithContext(ctx).
		Scopes(activeProducts).
		Where("products.id = ?", id).
		First(&p).Error
	if err != nil {
		return model.Product{}, translate(err)
	}
	return p, nil
}

// SELECT ... FOR UPDATE。Tx外で呼ぶとロックはすぐ外れる
func (r *ProductGormRepository) LockActiveByID(ctx context.Context, id int64) (model.Product, error) {
	var p model.Product
	err := r.db.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		Scopes(activeProducts).
		Where("products.id = ?", id).
		First(&p).Error
	if err != nil {
		return model.Product{}, translate(err)
	}
	return p, nil
}

func (r *ProductGormRepository) LockByID(ctx context.Context, id int64) (model.Product, error) {
	var p model.Product
	err := r.db.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("products.id = ?", id).
		First(&p).Error
	if err != nil {
		return model.Product{}, translate(err)
	}
	return p, nil
}

// 商品の作成
func (r *ProductGormRepository) Create(ctx context.Context, p model.Product) (model.Product, error) {
	if err := r.db.WithContext(ctx).Create(&p).Error; err != nil {
		return model.Product{}, translate(err)
	}
	return p, nil
}

// 商品の更新（全置換）。nilの説明/画像もNULLで上書きする
func (r *ProductGormRepository) Update(ctx context.Context, p model.Product) error {
	res := r.db.WithContext(ctx).Model(&model.Product{}).Where("id = ?", p.ID).Updates(map[string]interface{}{
		"name":        p.Name,
		"description": p.Description,
		"price":       p.Price,
		"image_url":   p.ImageURL,
		"stock":       p.Stock,
		"category_id": p.CategoryID,
		"updated_at":  p.UpdatedAt,
	})
	if res.Error != nil {
		return translate(res.Error)
	}
	if res.RowsAffected == 0 {
		return repo.ErrNotFound
	}
	return nil
}

// 商品削除（論理）
func (r *ProductGormRepository) Deactivate(ctx context.Context, id int64) error {
	res := r.db.WithContext(ctx).
		Model(&model.Product{}).
		Scopes(activeProducts).
		Where("products.id = ?", id).
		Update("is_active", false)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return repo.ErrNotFound
	}
	return nil
}

// 評価の書き込み。レビューの再計算からだけ呼ぶ
func (r *ProductGormRepository) UpdateRating(ctx context.Context, id int64, rating decimal.Decimal) error {
	res := r.db.WithContext(ctx).
		Model(&model.Product{}).
		Where("id = ?", id).
		UpdateColumn("rating", rating)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return repo.ErrNotFound
	}
	return nil
}
