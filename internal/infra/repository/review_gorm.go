package repository

import (
	"context"

	"marketplace/internal/domain/model"
	repo "marketplace/internal/repository"

	"gorm.io/gorm"
)

type ReviewGormRepository struct {
	db *gorm.DB
}

func NewReviewGormRepository(db *gorm.DB) *ReviewGormRepository {
	return &ReviewGormRepository{db: db}
}

var _ repo.ReviewRepository = (*ReviewGormRepository)(nil)

func (r *ReviewGormRepository) ListActive(ctx context.Context) ([]model.Review, error) {
	reviews := []model.Review{}
	err := r.db.WithContext(ctx).
		Scopes(activeReviews).
		Order("reviews.id asc").
		Find(&reviews).Error
	if err != nil {
		return []model.Review{}, err
	}
	return reviews, nil
}

func (r *ReviewGormRepository) ListActiveByProduct(ctx context.Context, productID int64) ([]model.Review, error) {
	reviews := []model.Review{}
	err := r.db.WithContext(ctx).
		Scopes(activeReviews).
		Where("reviews.product_id = ?", productID).
		Order("reviews.id asc").
		Find(&reviews).Error
	if err != nil {
		return []model.Review{}, err
	}
	return reviews, nil
}

func (r *ReviewGormRepository) FindActiveByID(ctx context.Context, id int64) (model.Review, error) {
	var rv model.Review
	err := r.db.WithContext(ctx).
		Scopes(activeReviews).
		Where("reviews.id = ?", id).
		First(&rv).Error
	if err != nil {
		return model.Review{}, translate(err)
	}
	return rv, nil
}

// is_activeは見ない。論理削除済みでも「投稿済み」とみなす
func (r *ReviewGormRepository) ExistsForUserAndProduct(ctx context.Context, userID int64, productID int64) (bool, error) {
	var n int64
	err := r.db.WithContext(ctx).
		Model(&model.Review{}).
		Where("reviews.user_id = ? AND reviews.product_id = ?", userID, productID).
		Count(&n).Error
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

func (r *ReviewGormRepository) Create(ctx context.Context, rv model.Review) (model.Review, error) {
	if err := r.db.WithContext(ctx).Create(&rv).Error; err != nil {
		return model.Review{}, translate(err)
	}
	return rv, nil
}

func (r *ReviewGormRepository) Deactivate(ctx context.Context, id int64) error {
	res := r.db.WithContext(ctx).
		Model(&model.Review{}).
		Scopes(activeReviews).
		Where("reviews.id = ?", id).
		Update("is_active", false)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return repo.ErrNotFound
	}
	return nil
}

type gradeStats struct {
	Total int64
	Cnt   int64
}

func (r *ReviewGormRepository) ActiveGradeStats(ctx context.Context, productID int64) (int64, int64, error) {
	var s gradeStats
	err := r.db.WithContext(ctx).
		Model(&model.Review{}).
		Select("COALESCE(SUM(reviews.grade), 0) AS total, COUNT(*) AS cnt").
		Scopes(activeReviews).
		Where("reviews.product_id = ?", productID).
		Scan(&s).Error
	if err != nil {
		return 0, 0, err
	}
	return s.Total, s.Cnt, nil
}
