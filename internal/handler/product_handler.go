package handler

import (
	"net/http"
	"strconv"
	"time"

	"marketplace/internal/config"
	"marketplace/internal/domain/model"
	"marketplace/internal/middleware"
	"marketplace/internal/repository"
	"marketplace/internal/usecase"

	"github.com/labstack/echo/v4"
	"github.com/shopspring/decimal"
)

// /products のAPI
type ProductHandler struct {
	uc *usecase.ProductUsecase
}

// DI
func NewProductHandler(uc *usecase.ProductUsecase) *ProductHandler {
	return &ProductHandler{uc: uc}
}

// 公開ルートと出品者ルートを登録
func (h *ProductHandler) RegisterRoutes(e *echo.Echo, cfg config.Config, userRepo repository.UserRepository, limit echo.MiddlewareFunc) {
	e.GET("/products", h.list)
	e.GET("/products/:id", h.detail)
	e.GET("/products/category/:category_id", h.byCategory)

	seller := e.Group("/products")
	seller.Use(middleware.AuthJWT(cfg))
	seller.Use(middleware.LoadPrincipal(userRepo))
	seller.Use(middleware.RequireRole(model.RoleSeller))
	seller.Use(limit)

	seller.POST("", h.create)
	seller.PUT("/:id", h.update)
	seller.DELETE("/:id", h.delete)
}

func (h *ProductHandler) list(c echo.Context) error {
	in, msg := parseListQuery(c)
	if msg != "" {
		return badRequest(c, msg)
	}

	out, err := h.uc.ListProducts(c.Request().Context(), in)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, out)
}

// クエリを入力DTOへ。失敗時はエラーメッセージを返す
func parseListQuery(c echo.Context) (usecase.ListProductsInput, string) {
	in := usecase.ListProductsInput{Page: 1, PageSize: usecase.DefaultPageSize}

	if v := c.QueryParam("page"); v != "" {
		p, err := strconv.Atoi(v)
		if err != nil {
			return in, "invalid page"
		}
		in.Page = p
	}

	if v := c.QueryParam("page_size"); v != "" {
		s, err := strconv.Atoi(v)
		if err != nil {
			return in, "invalid page_size"
		}
		in.PageSize = s
	}

	if v := c.QueryParam("category_id"); v != "" {
		id, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			return in, "invalid category_id"
		}
		in.CategoryID = &id
	}

	if v := c.QueryParam("min_price"); v != "" {
		d, err := decimal.NewFromString(v)
		if err != nil {
			return in, "invalid min_price"
		}
		in.MinPrice = &d
	}

	if v := c.QueryParam("max_price"); v != "" {
		d, err := decimal.NewFromString(v)
		if err != nil {
			return in, "invalid max_price"
		}
		in.MaxPrice = &d
	}

	if v := c.QueryParam("in_stock"); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return in, "invalid in_stock"
		}
		in.InStock = &b
	}

	if v := c.QueryParam("seller_id"); v != "" {
		id, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			return in, "invalid seller_id"
		}
		in.SellerID = &id
	}

	if v := c.QueryParam("created_at"); v != "" {
		t, err := time.Parse(time.RFC3339, v)
		if err != nil {
			return in, "invalid created_at"
		}
		in.CreatedAt = &t
	}

	return in, ""
}

func (h *ProductHandler) detail(c echo.Context) error {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		return badRequest(c, "invalid id")
	}

	p, err := h.uc.GetProduct(c.Request().Context(), id)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, p)
}

func (h *ProductHandler) byCategory(c echo.Context) error {
	id, err := strconv.ParseInt(c.Param("category_id"), 10, 64)
	if err != nil {
		return badRequest(c, "invalid category_id")
	}

	items, err := h.uc.ListProductsByCategory(c.Request().Context(), id)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, items)
}

func (h *ProductHandler) create(c echo.Context) error {
	var req usecase.ProductInput
	if err := c.Bind(&req); err != nil {
		return badRequest(c, "invalid body")
	}

	p, err := h.uc.CreateProduct(c.Request().Context(), middleware.PrincipalFrom(c), req)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusCreated, p)
}

func (h *ProductHandler) update(c echo.Context) error {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		return badRequest(c, "invalid id")
	}

	var req usecase.ProductInput
	if err := c.Bind(&req); err != nil {
		return badRequest(c, "invalid body")
	}

	p, err := h.uc.UpdateProduct(c.Request().Context(), middleware.PrincipalFrom(c), id, req)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, p)
}

func (h *ProductHandler) delete(c echo.Context) error {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		return badRequest(c, "invalid id")
	}

	p, err := h.uc.DeleteProduct(c.Request().Context(), middleware.PrincipalFrom(c), id)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, p)
}
