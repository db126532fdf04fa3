package repository

import (
	"errors"

	"marketplace/internal/domain/model"
	repo "marketplace/internal/repository"

	"github.com/jackc/pgx/v5/pgconn"
	"gorm.io/gorm"
)

// postgres unique_violation
const pgUniqueViolation = "23505"

// 論理削除されていない行だけ。全ての読み取りはここを通す
func active(table string) func(*gorm.DB) *gorm.DB {
	return func(db *gorm.DB) *gorm.DB {
		return db.Where(table+".is_active = ?", true)
	}
}

var (
	activeProducts   = active("products")
	activeCategories = active("categories")
	activeReviews    = active("reviews")
)

// 公開商品（商品もカテゴリも有効）。
// Scopesを入れ子にすると適用順が後ろにずれるので直接呼ぶ
func visibleProducts(db *gorm.DB) *gorm.DB {
	sub := activeCategories(
		db.Session(&gorm.Session{NewDB: true}).
			Model(&model.Category{}).
			Select("categories.id"),
	)

	return activeProducts(db).Where("products.category_id IN (?)", sub)
}

// 指定された条件だけANDで足す
func productFilter(f repo.ProductFilter) func(*gorm.DB) *gorm.DB {
	return func(db *gorm.DB) *gorm.DB {
		if f.CategoryID != nil {
			db = db.Where("products.category_id = ?", *f.CategoryID)
		}
		if f.MinPrice != nil {
			db = db.Where("products.price >= ?", *f.MinPrice)
		}
		if f.MaxPrice != nil {
			db = db.Where("products.price <= ?", *f.MaxPrice)
		}
		if f.InStock != nil {
			if *f.InStock {
				db = db.Where("products.stock > ?", 0)
			} else {
				db = db.Where("products.stock = ?", 0)
			}
		}
		if f.SellerID != nil {
			db = db.Where("products.seller_id = ?", *f.SellerID)
		}
		if f.CreatedAt != nil {
			db = db.Where("products.created_at = ?", *f.CreatedAt)
		}
		return db
	}
}

// gorm/pgのエラーをrepositoryの番兵エラーへ
func translate(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return repo.ErrNotFound
	}
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return repo.ErrDuplicate
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == pgUniqueViolation {
		return repo.ErrDuplicate
	}
	return err
}
