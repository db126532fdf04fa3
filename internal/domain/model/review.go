package model

import (
	"time"

	"github.com/shopspring/decimal"
)

const (
	MinGrade = 1
	MaxGrade = 5
)

// レビュー。(user_id, product_id)は論理削除後も一意
type Review struct {
	ID          int64     `gorm:"primaryKey;autoIncrement" json:"id"`
	UserID      int64     `gorm:"not null;index;uniqueIndex:uq_reviews_user_product" json:"user_id"`
	ProductID   int64     `gorm:"not null;index;uniqueIndex:uq_reviews_user_product" json:"product_id"`
	Comment     *string   `gorm:"type:text" json:"comment"`
	CommentDate time.Time `gorm:"not null" json:"comment_date"`
	Grade       int       `gorm:"not null;check:check_grade_range,grade >= 1 AND grade <= 5" json:"grade"`
	IsActive    bool      `gorm:"not null;default:true;index" json:"is_active"`
}

// 有効レビューの合計と件数から平均評価を出す（小数2桁、四捨五入）
func Rating(sum, count int64) decimal.Decimal {
	if count <= 0 {
		return decimal.Zero
	}
	return decimal.NewFromInt(sum).DivRound(decimal.NewFromInt(count), 2)
}
