package usecase

import (
	"context"
	"errors"

	"marketplace/internal/domain/model"
	"marketplace/internal/domain/policy"
	repo "marketplace/internal/repository"
	"marketplace/internal/validator"

	"github.com/shopspring/decimal"
)

type ReviewUsecase struct {
	products   repo.ProductRepository
	categories repo.CategoryRepository
	reviews    repo.ReviewRepository
	tx         repo.TransactionManager
	validate   *validator.Validator
	clock      Clock
}

// DI
func NewReviewUsecase(
	products repo.ProductRepository,
	categories repo.CategoryRepository,
	reviews repo.ReviewRepository,
	tx repo.TransactionManager,
	validate *validator.Validator,
	clock Clock,
) *ReviewUsecase {
	return &ReviewUsecase{
		products:   products,
		categories: categories,
		reviews:    reviews,
		tx:         tx,
		validate:   validate,
		clock:      clock,
	}
}

type CreateReviewInput struct {
	ProductID int64   `json:"product_id" validate:"gt=0"`
	Comment   *string `json:"comment"`
	Grade     int     `json:"grade" validate:"min=1,max=5"`
}

func (u *ReviewUsecase) ListReviews(ctx context.Context) ([]model.Review, error) {
	reviews, err := u.reviews.ListActive(ctx)
	if err != nil {
		return nil, storage(err)
	}
	return reviews, nil
}

func (u *ReviewUsecase) ListReviewsByProduct(ctx context.Context, productID int64) ([]model.Review, error) {
	if productID <= 0 {
		return nil, invalidArgument("invalid product id")
	}
	if _, err := visibleProduct(ctx, u.products.FindActiveByID, u.categories, productID); err != nil {
		return nil, err
	}

	reviews, err := u.reviews.ListActiveByProduct(ctx, productID)
	if err != nil {
		return nil, storage(err)
	}
	return reviews, nil
}

// レビュー作成。重複確認・挿入・評価の再計算を1つのTxで行う。
// 商品行をロックするので同じ商品への作成/削除は直列になる
func (u *ReviewUsecase) CreateReview(ctx context.Context, p *model.Principal, in CreateReviewInput) (model.Review, error) {
	if d := policy.Precheck(p, policy.ActionCreateReview); !d.Allowed {
		return model.Review{}, denied(d)
	}
	if err := u.validate.Struct(in); err != nil {
		return model.Review{}, invalidInput(err)
	}

	var created model.Review
	err := u.tx.WithinTx(ctx, func(r repo.TxRepos) error {
		product, err := visibleProduct(ctx, r.Products().LockActiveByID, r.Categories(), in.ProductID)
		if err != nil {
			return err
		}

		//論理削除済みのレビューがあっても再投稿は不可
		exists, err := r.Reviews().ExistsForUserAndProduct(ctx, p.UserID, product.ID)
		if err != nil {
			return storage(err)
		}
		if exists {
			return conflict("a review for this product already exists")
		}

		rv, err := r.Reviews().Create(ctx, model.Review{
			UserID:      p.UserID,
			ProductID:   product.ID,
			Comment:     in.Comment,
			CommentDate: u.clock.Now(),
			Grade:       in.Grade,
			IsActive:    true,
		})
		if errors.Is(err, repo.ErrDuplicate) {
			return conflict("a review for this product already exists")
		}
		if err != nil {
			return storage(err)
		}

		if _, err := recomputeRating(ctx, r, product.ID); err != nil {
			return err
		}
		created = rv
		return nil
	})
	if err != nil {
		return model.Review{}, storage(err)
	}
	return created, nil
}

// 投稿者か管理者だけ。削除後のレビュー（is_active=false）を返す
func (u *ReviewUsecase) DeleteReview(ctx context.Context, p *model.Principal, reviewID int64) (model.Review, error) {
	if d := policy.Precheck(p, policy.ActionDeleteReview); !d.Allowed {
		return model.Review{}, denied(d)
	}
	if reviewID <= 0 {
		return model.Review{}, invalidArgument("invalid review id")
	}

	var deleted model.Review
	err := u.tx.WithinTx(ctx, func(r repo.TxRepos) error {
		rv, err := r.Reviews().FindActiveByID(ctx, reviewID)
		if errors.Is(err, repo.ErrNotFound) {
			return notFound("review not found or inactive")
		}
		if err != nil {
			return storage(err)
		}
		if d := policy.Decide(p, policy.ActionDeleteReview, rv.UserID); !d.Allowed {
			return denied(d)
		}

		//商品が論理削除済みでも評価は再計算する
		if _, err := r.Products().LockByID(ctx, rv.ProductID); err != nil {
			return storage(err)
		}

		//同時に削除された場合はここで0件になる
		if err := r.Reviews().Deactivate(ctx, reviewID); err != nil {
			if errors.Is(err, repo.ErrNotFound) {
				return notFound("review not found or inactive")
			}
			return storage(err)
		}

		if _, err := recomputeRating(ctx, r, rv.ProductID); err != nil {
			return err
		}
		rv.IsActive = false
		deleted = rv
		return nil
	})
	if err != nil {
		return model.Review{}, storage(err)
	}
	return deleted, nil
}

// 有効レビュー全体から評価を出し直す（差分更新はしない）
func recomputeRating(ctx context.Context, r repo.TxRepos, productID int64) (decimal.Decimal, error) {
	sum, count, err := r.Reviews().ActiveGradeStats(ctx, productID)
	if err != nil {
		return decimal.Zero, storage(err)
	}

	rating := model.Rating(sum, count)
	if err := r.Products().UpdateRating(ctx, productID, rating); err != nil {
		return decimal.Zero, storage(err)
	}
	return rating, nil
}

// 公開商品（商品もカテゴリも有効）でなければ404
func visibleProduct(
	ctx context.Context,
	find func(ctx context.Context, id int64) (model.Product, error),
	categories repo.CategoryRepository,
	productID int64,
) (model.Product, error) {
	product, err := find(ctx, productID)
	if errors.Is(err, repo.ErrNotFound) {
		return model.Product{}, notFound("product not found or inactive")
	}
	if err != nil {
		return model.Product{}, storage(err)
	}

	_, err = categories.FindActiveByID(ctx, product.CategoryID)
	if errors.Is(err, repo.ErrNotFound) {
		return model.Product{}, notFound("product not found or inactive")
	}
	if err != nil {
		return model.Product{}, storage(err)
	}
	return product, nil
}
