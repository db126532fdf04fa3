package handler

import (
	"net/http"
	"strconv"

	"marketplace/internal/config"
	"marketplace/internal/middleware"
	"marketplace/internal/repository"
	"marketplace/internal/usecase"

	"github.com/labstack/echo/v4"
)

// /reviews のAPI
type ReviewHandler struct {
	uc *usecase.ReviewUsecase
}

// DI
func NewReviewHandler(uc *usecase.ReviewUsecase) *ReviewHandler {
	return &ReviewHandler{uc: uc}
}

func (h *ReviewHandler) RegisterRoutes(e *echo.Echo, cfg config.Config, userRepo repository.UserRepository, limit echo.MiddlewareFunc) {
	e.GET("/reviews", h.list)
	// :idは商品ID
	e.GET("/reviews/:id/reviews", h.byProduct)

	authed := e.Group("/reviews")
	authed.Use(middleware.AuthJWT(cfg))
	authed.Use(middleware.LoadPrincipal(userRepo))
	authed.Use(limit)

	authed.POST("", h.create)
	authed.DELETE("/:id", h.delete)
}

func (h *ReviewHandler) list(c echo.Context) error {
	items, err := h.uc.ListReviews(c.Request().Context())
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, items)
}

func (h *ReviewHandler) byProduct(c echo.Context) error {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		return badRequest(c, "invalid id")
	}

	items, err := h.uc.ListReviewsByProduct(c.Request().Context(), id)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, items)
}

func (h *ReviewHandler) create(c echo.Context) error {
	var req usecase.CreateReviewInput
	if err := c.Bind(&req); err != nil {
		return badRequest(c, "invalid body")
	}

	rv, err := h.uc.CreateReview(c.Request().Context(), middleware.PrincipalFrom(c), req)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusCreated, rv)
}

func (h *ReviewHandler) delete(c echo.Context) error {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		return badRequest(c, "invalid id")
	}

	rv, err := h.uc.DeleteReview(c.Request().Context(), middleware.PrincipalFrom(c), id)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, rv)
}
