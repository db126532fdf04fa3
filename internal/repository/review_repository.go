package repository

import (
	"context"

	"marketplace/internal/domain/model"
)

type ReviewRepository interface {
	// 有効なレビュー全件（id昇順）
	ListActive(ctx context.Context) ([]model.Review, error)
	// 商品ごとの有効なレビュー（id昇順）
	ListActiveByProduct(ctx context.Context, productID int64) ([]model.Review, error)

	// 有効なレビューを1件。無効ならErrNotFound
	FindActiveByID(ctx context.Context, id int64) (model.Review, error)

	// 有効無効を問わず (user, product) のレビューがあるか
	ExistsForUserAndProduct(ctx context.Context, userID int64, productID int64) (bool, error)

	// 一意制約違反はErrDuplicate
	Create(ctx context.Context, r model.Review) (model.Review, error)
	Deactivate(ctx context.Context, id int64) error

	// 有効レビューのgrade合計と件数
	ActiveGradeStats(ctx context.Context, productID int64) (sum int64, count int64, err error)
}
