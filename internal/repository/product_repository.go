package repository

import (
	"context"
	"errors"
	"time"

	"marketplace/internal/domain/model"

	"github.com/shopspring/decimal"
)

var (
	// 見つからない、または論理削除済み
	ErrNotFound = errors.New("not found")
	// 一意制約違反
	ErrDuplicate = errors.New("duplicate")
)

// 一覧の絞り込み条件。nilの項目は条件に含めない
type ProductFilter struct {
	CategoryID *int64
	MinPrice   *decimal.Decimal
	MaxPrice   *decimal.Decimal
	InStock    *bool
	SellerID   *int64
	CreatedAt  *time.Time
}

// 商品の永続化だけを約束。
// 「公開」= 商品が有効かつカテゴリが有効
type ProductRepository interface {
	// 公開商品をid昇順でページング
	List(ctx context.Context, f ProductFilter, page int, pageSize int) ([]model.Product, error)
	// Listと同じ条件の件数（ページングなし）
	Count(ctx context.Context, f ProductFilter) (int64, error)
	// カテゴリ内の公開商品（id昇順）
	ListByCategory(ctx context.Context, categoryID int64) ([]model.Product, error)

	// 有効な商品を1件。無効ならErrNotFound
	FindActiveByID(ctx context.Context, id int64) (model.Product, error)
	// 有効な商品を行ロック付きで取得（Tx内で使う）
	LockActiveByID(ctx context.Context, id int64) (model.Product, error)
	// 有効無効を問わず行ロック付きで取得（Tx内で使う）
	LockByID(ctx context.Context, id int64) (model.Product, error)

	Create(ctx context.Context, p model.Product) (model.Product, error)
	// 可変項目の全置換（id, seller_id, is_active, ratingは触らない）
	Update(ctx context.Context, p model.Product) error
	Deactivate(ctx context.Context, id int64) error
	UpdateRating(ctx context.Context, id int64, rating decimal.Decimal) error
}
