package model

// カテゴリ。親子関係は保存のみで辿らない
type Category struct {
	ID       int64  `gorm:"primaryKey;autoIncrement" json:"id"`
	Name     string `gorm:"type:varchar(50);not null" json:"name"`
	ParentID *int64 `gorm:"index" json:"parent_id"`
	IsActive bool   `gorm:"not null;default:true" json:"is_active"`
}
