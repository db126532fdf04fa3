package db

import (
	"fmt"

	"marketplace/internal/config"
	"marketplace/internal/domain/model"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// Connect はDBに接続して *gorm.DB を返す。
func Connect(cfg config.Config) (*gorm.DB, error) {
	level := logger.Warn
	if cfg.LogLevel == "debug" {
		level = logger.Info
	}

	return gorm.Open(postgres.Open(cfg.DSN()), &gorm.Config{
		Logger:         logger.Default.LogMode(level),
		TranslateError: true,
	})
}

type foreignKey struct {
	model any
	name  string
	ddl   string
}

// テーブル作成と外部キー付与。何度実行してもよい
func Migrate(db *gorm.DB) error {
	if err := db.AutoMigrate(
		&model.User{},
		&model.Category{},
		&model.Product{},
		&model.Review{},
	); err != nil {
		return fmt.Errorf("automigrate: %w", err)
	}

	//関連フィールドを持たないので外部キーは明示的に張る
	fks := []foreignKey{
		{&model.Product{}, "fk_products_category", `ALTER TABLE products ADD CONSTRAINT fk_products_category FOREIGN KEY (category_id) REFERENCES categories(id)`},
		{&model.Product{}, "fk_products_seller", `ALTER TABLE products ADD CONSTRAINT fk_products_seller FOREIGN KEY (seller_id) REFERENCES users(id)`},
		{&model.Review{}, "fk_reviews_product", `ALTER TABLE reviews ADD CONSTRAINT fk_reviews_product FOREIGN KEY (product_id) REFERENCES products(id)`},
		{&model.Review{}, "fk_reviews_user", `ALTER TABLE reviews ADD CONSTRAINT fk_reviews_user FOREIGN KEY (user_id) REFERENCES users(id)`},
	}

	m := db.Migrator()
	for _, fk := range fks {
		if m.HasConstraint(fk.model, fk.name) {
			continue
		}
		if err := db.Exec(fk.ddl).Error; err != nil {
			return fmt.Errorf("add %s: %w", fk.name, err)
		}
	}
	return nil
}
