package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"marketplace/internal/config"
	"marketplace/internal/handler"
	"marketplace/internal/infra/cache"
	"marketplace/internal/infra/db"
	infraRepo "marketplace/internal/infra/repository"
	"marketplace/internal/server"
	"marketplace/internal/usecase"
	"marketplace/internal/validator"

	"github.com/labstack/gommon/log"
)

func main() {
	cfg, err := config.LoadWithDotenv(".env")
	if err != nil {
		log.Fatalf("config: %v", err)
	}
	log.SetLevel(cfg.LogLvl())

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	//DB接続
	gormDB, err := db.Connect(cfg)
	if err != nil {
		log.Fatalf("db connect: %v", err)
	}
	if err := db.Migrate(gormDB); err != nil {
		log.Fatalf("db migrate: %v", err)
	}

	//Redisはなくても起動する（レート制限なし）
	rdb, err := cache.NewRedisClient(ctx, cfg)
	if err != nil {
		log.Warnf("redis unavailable, rate limit disabled: %v", err)
	}

	//Repository（GORM実装）生成
	userRepo := infraRepo.NewUserGormRepository(gormDB)
	productRepo := infraRepo.NewProductGormRepository(gormDB)
	categoryRepo := infraRepo.NewCategoryGormRepository(gormDB)
	reviewRepo := infraRepo.NewReviewGormRepository(gormDB)
	txm := infraRepo.NewTxManagerGorm(gormDB)

	v := validator.New()
	clock := usecase.SystemClock{}

	//Usecase生成
	productUC := usecase.NewProductUsecase(productRepo, categoryRepo, txm, v, clock)
	reviewUC := usecase.NewReviewUsecase(productRepo, categoryRepo, reviewRepo, txm, v, clock)
	authUC := usecase.NewAuthUsecase(
		userRepo,
		usecase.NewBcryptPasswordHasher(12),
		usecase.NewTokenIssuer(cfg.JWTSecret, cfg.AccessTokenTTL),
		v,
		clock,
	)

	e := server.New(cfg.LogLvl(), v)
	server.RegisterRoutes(e, cfg, server.Handlers{
		Auth:    handler.NewAuthHandler(authUC),
		Product: handler.NewProductHandler(productUC),
		Review:  handler.NewReviewHandler(reviewUC),
	}, userRepo, rdb)

	if err := server.Run(ctx, e, ":"+cfg.Port); err != nil {
		log.Errorf("server: %v", err)
		os.Exit(1)
	}

	if rdb != nil {
		_ = rdb.Close()
	}
	if sqlDB, err := gormDB.DB(); err == nil {
		_ = sqlDB.Close()
	}
	log.Info("server stopped")
}
