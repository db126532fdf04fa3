package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// 商品。削除はis_active=falseにするだけ
type Product struct {
	ID          int64           `gorm:"primaryKey;autoIncrement" json:"id"`
	Name        string          `gorm:"type:varchar(100);not null" json:"name"`
	Description *string         `gorm:"type:varchar(500)" json:"description"`
	Price       decimal.Decimal `gorm:"type:numeric(10,2);not null" json:"price"`
	ImageURL    *string         `gorm:"column:image_url;type:varchar(200)" json:"image_url"`
	Stock       int64           `gorm:"not null;default:0" json:"stock"`
	// レビューから再計算される。直接更新しない
	Rating     decimal.Decimal `gorm:"type:numeric(3,2);not null;default:0" json:"rating"`
	IsActive   bool            `gorm:"not null;default:true;index" json:"is_active"`
	CategoryID int64           `gorm:"not null;index" json:"category_id"`
	SellerID   int64           `gorm:"not null;index" json:"seller_id"`
	CreatedAt  time.Time       `gorm:"not null;autoCreateTime" json:"created_at"`
	UpdatedAt  time.Time       `gorm:"not null;autoUpdateTime" json:"updated_at"`
}
