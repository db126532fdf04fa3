package repository

import (
	"context"

	"marketplace/internal/domain/model"
)

// カテゴリは有効性の確認にだけ使う
type CategoryRepository interface {
	// 有効なカテゴリを1件。無効ならErrNotFound
	FindActiveByID(ctx context.Context, id int64) (model.Category, error)
}
