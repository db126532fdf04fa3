package server

import (
	"net/http"
	"time"

	"marketplace/internal/config"
	"marketplace/internal/handler"
	"marketplace/internal/middleware"
	"marketplace/internal/repository"

	"github.com/labstack/echo/v4"
	"github.com/redis/go-redis/v9"
)

type Handlers struct {
	Auth    *handler.AuthHandler
	Product *handler.ProductHandler
	Review  *handler.ReviewHandler
}

// rdbはnil可（レート制限なし）
func RegisterRoutes(e *echo.Echo, cfg config.Config, h Handlers, userRepo repository.UserRepository, rdb *redis.Client) {
	e.GET("/healthz", func(c echo.Context) error {
		return c.JSON(http.StatusOK, map[string]string{"status": "ok"})
	})

	limit := middleware.RateLimit(rdb, cfg.RateLimitPerMinute, time.Minute)

	h.Auth.RegisterRoutes(e)
	h.Product.RegisterRoutes(e, cfg, userRepo, limit)
	h.Review.RegisterRoutes(e, cfg, userRepo, limit)
}
