package usecase

import (
	"context"
	"errors"
	"strings"
	"time"

	"marketplace/internal/domain/model"
	"marketplace/internal/domain/policy"
	repo "marketplace/internal/repository"
	"marketplace/internal/validator"

	"github.com/shopspring/decimal"
)

const (
	DefaultPageSize = 20
	MaxPageSize     = 100
)

type ProductUsecase struct {
	products   repo.ProductRepository
	categories repo.CategoryRepository
	tx         repo.TransactionManager
	validate   *validator.Validator
	clock      Clock
}

// DI
func NewProductUsecase(
	products repo.ProductRepository,
	categories repo.CategoryRepository,
	tx repo.TransactionManager,
	validate *validator.Validator,
	clock Clock,
) *ProductUsecase {
	return &ProductUsecase{
		products:   products,
		categories: categories,
		tx:         tx,
		validate:   validate,
		clock:      clock,
	}
}

// GET /productsの入力DTO。nilの条件は使わない
type ListProductsInput struct {
	Page       int
	PageSize   int
	CategoryID *int64
	MinPrice   *decimal.Decimal
	MaxPrice   *decimal.Decimal
	InStock    *bool
	SellerID   *int64
	CreatedAt  *time.Time
}

type ProductListOutput struct {
	Items    []model.Product `json:"items"`
	Total    int64           `json:"total"`
	Page     int             `json:"page"`
	PageSize int             `json:"page_size"`
}

// 作成・更新の入力（更新は全置換）
type ProductInput struct {
	Name        string          `json:"name" validate:"required,min=3,max=100"`
	Description *string         `json:"description" validate:"omitempty,max=500"`
	Price       decimal.Decimal `json:"price" validate:"price"`
	ImageURL    *string         `json:"image_url" validate:"omitempty,max=200"`
	Stock       int64           `json:"stock" validate:"gte=0"`
	CategoryID  int64           `json:"category_id" validate:"gt=0"`
}

func (in ProductInput) normalized() ProductInput {
	in.Name = strings.TrimSpace(in.Name)
	return in
}

// 件数とページは別クエリ。同じスナップショットである保証はない
func (u *ProductUsecase) ListProducts(ctx context.Context, in ListProductsInput) (ProductListOutput, error) {
	if in.Page < 1 {
		return ProductListOutput{}, invalidArgument("invalid page")
	}
	if in.PageSize < 1 || in.PageSize > MaxPageSize {
		return ProductListOutput{}, invalidArgument("invalid page_size")
	}
	if in.MinPrice != nil && in.MinPrice.IsNegative() {
		return ProductListOutput{}, invalidArgument("min_price must be >= 0")
	}
	if in.MaxPrice != nil && in.MaxPrice.IsNegative() {
		return ProductListOutput{}, invalidArgument("max_price must be >= 0")
	}
	if in.MinPrice != nil && in.MaxPrice != nil && in.MinPrice.GreaterThan(*in.MaxPrice) {
		return ProductListOutput{}, invalidArgument("min_price must be <= max_price")
	}

	f := repo.ProductFilter{
		CategoryID: in.CategoryID,
		MinPrice:   in.MinPrice,
		MaxPrice:   in.MaxPrice,
		InStock:    in.InStock,
		SellerID:   in.SellerID,
		CreatedAt:  in.CreatedAt,
	}

	total, err := u.products.Count(ctx, f)
	if err != nil {
		return ProductListOutput{}, storage(err)
	}
	items, err := u.products.List(ctx, f, in.Page, in.PageSize)
	if err != nil {
		return ProductListOutput{}, storage(err)
	}

	return ProductListOutput{
		Items:    items,
		Total:    total,
		Page:     in.Page,
		PageSize: in.PageSize,
	}, nil
}

// 商品が無効なら404、カテゴリが無効なら400
func (u *ProductUsecase) GetProduct(ctx context.Context, productID int64) (model.Product, error) {
	if productID <= 0 {
		return model.Product{}, invalidArgument("invalid product id")
	}

	p, err := u.products.FindActiveByID(ctx, productID)
	if errors.Is(err, repo.ErrNotFound) {
		return model.Product{}, notFound("product not found or inactive")
	}
	if err != nil {
		return model.Product{}, storage(err)
	}

	if err := requireActiveCategory(ctx, u.categories, p.CategoryID); err != nil {
		return model.Product{}, err
	}
	return p, nil
}

func (u *ProductUsecase) ListProductsByCategory(ctx context.Context, categoryID int64) ([]model.Product, error) {
	if categoryID <= 0 {
		return nil, invalidArgument("invalid category id")
	}

	_, err := u.categories.FindActiveByID(ctx, categoryID)
	if errors.Is(err, repo.ErrNotFound) {
		return nil, notFound("category not found or inactive")
	}
	if err != nil {
		return nil, storage(err)
	}

	items, err := u.products.ListByCategory(ctx, categoryID)
	if err != nil {
		return nil, storage(err)
	}
	return items, nil
}

func (u *ProductUsecase) CreateProduct(ctx context.Context, p *model.Principal, in ProductInput) (model.Product, error) {
	if d := policy.Precheck(p, policy.ActionCreateProduct); !d.Allowed {
		return model.Product{}, denied(d)
	}
	in = in.normalized()
	if err := u.validate.Struct(in); err != nil {
		return model.Product{}, invalidInput(err)
	}

	var created model.Product
	err := u.tx.WithinTx(ctx, func(r repo.TxRepos) error {
		if err := requireActiveCategory(ctx, r.Categories(), in.CategoryID); err != nil {
			return err
		}

		now := u.clock.Now()
		c, err := r.Products().Create(ctx, model.Product{
			Name:        in.Name,
			Description: in.Description,
			Price:       in.Price,
			ImageURL:    in.ImageURL,
			Stock:       in.Stock,
			Rating:      decimal.Zero,
			IsActive:    true,
			CategoryID:  in.CategoryID,
			SellerID:    p.UserID,
			CreatedAt:   now,
			UpdatedAt:   now,
		})
		if err != nil {
			return storage(err)
		}
		created = c
		return nil
	})
	if err != nil {
		return model.Product{}, storage(err)
	}
	return created, nil
}

// 可変項目を全置換。id, seller_id, is_active, ratingはそのまま
func (u *ProductUsecase) UpdateProduct(ctx context.Context, p *model.Principal, productID int64, in ProductInput) (model.Product, error) {
	if d := policy.Precheck(p, policy.ActionUpdateProduct); !d.Allowed {
		return model.Product{}, denied(d)
	}
	if productID <= 0 {
		return model.Product{}, invalidArgument("invalid product id")
	}
	in = in.normalized()
	if err := u.validate.Struct(in); err != nil {
		return model.Product{}, invalidInput(err)
	}

	var updated model.Product
	err := u.tx.WithinTx(ctx, func(r repo.TxRepos) error {
		cur, err := lockActiveProduct(ctx, r.Products(), productID)
		if err != nil {
			return err
		}
		if d := policy.Decide(p, policy.ActionUpdateProduct, cur.SellerID); !d.Allowed {
			return denied(d)
		}
		if err := requireActiveCategory(ctx, r.Categories(), in.CategoryID); err != nil {
			return err
		}

		next := cur
		next.Name = in.Name
		next.Description = in.Description
		next.Price = in.Price
		next.ImageURL = in.ImageURL
		next.Stock = in.Stock
		next.CategoryID = in.CategoryID
		next.UpdatedAt = u.clock.Now()

		if err := r.Products().Update(ctx, next); err != nil {
			if errors.Is(err, repo.ErrNotFound) {
				return notFound("product not found or inactive")
			}
			return storage(err)
		}
		updated = next
		return nil
	})
	if err != nil {
		return model.Product{}, storage(err)
	}
	return updated, nil
}

// 論理削除。削除後の商品（is_active=false）を返す
func (u *ProductUsecase) DeleteProduct(ctx context.Context, p *model.Principal, productID int64) (model.Product, error) {
	if d := policy.Precheck(p, policy.ActionDeleteProduct); !d.Allowed {
		return model.Product{}, denied(d)
	}
	if productID <= 0 {
		return model.Product{}, invalidArgument("invalid product id")
	}

	var deleted model.Product
	err := u.tx.WithinTx(ctx, func(r repo.TxRepos) error {
		cur, err := lockActiveProduct(ctx, r.Products(), productID)
		if err != nil {
			return err
		}
		if d := policy.Decide(p, policy.ActionDeleteProduct, cur.SellerID); !d.Allowed {
			return denied(d)
		}

		if err := r.Products().Deactivate(ctx, productID); err != nil {
			if errors.Is(err, repo.ErrNotFound) {
				return notFound("product not found or inactive")
			}
			return storage(err)
		}
		cur.IsActive = false
		deleted = cur
		return nil
	})
	if err != nil {
		return model.Product{}, storage(err)
	}
	return deleted, nil
}

func lockActiveProduct(ctx context.Context, products repo.ProductRepository, productID int64) (model.Product, error) {
	p, err := products.LockActiveByID(ctx, productID)
	if errors.Is(err, repo.ErrNotFound) {
		return model.Product{}, notFound("product not found or inactive")
	}
	if err != nil {
		return model.Product{}, storage(err)
	}
	return p, nil
}

// 割り当て先カテゴリは存在して有効であること
func requireActiveCategory(ctx context.Context, categories repo.CategoryRepository, categoryID int64) error {
	_, err := categories.FindActiveByID(ctx, categoryID)
	if errors.Is(err, repo.ErrNotFound) {
		return invalidArgument("category not found or inactive")
	}
	if err != nil {
		return storage(err)
	}
	return nil
}
