package usecase_test

import (
	"testing"
	"time"

	"marketplace/internal/domain/model"
	"marketplace/internal/testutil/memstore"
	"marketplace/internal/usecase"
	"marketplace/internal/validator"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fixedClock struct{ t time.Time }

func (c fixedClock) Now() time.Time { return c.t }

var testNow = time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)

type fixture struct {
	store    *memstore.Store
	products *usecase.ProductUsecase
	reviews  *usecase.ReviewUsecase

	cat    model.Category
	seller *model.Principal
	other  *model.Principal
	buyer  *model.Principal
	admin  *model.Principal
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	s := memstore.New()
	v := validator.New()
	clock := fixedClock{t: testNow}

	f := &fixture{
		store:    s,
		products: usecase.NewProductUsecase(s.Products(), s.Categories(), s, v, clock),
		reviews:  usecase.NewReviewUsecase(s.Products(), s.Categories(), s.Reviews(), s, v, clock),
		cat:      s.AddCategory(model.Category{Name: "Books", IsActive: true}),
	}
	f.seller = f.principal(model.RoleSeller)
	f.other = f.principal(model.RoleSeller)
	f.buyer = f.principal(model.RoleBuyer)
	f.admin = f.principal(model.RoleAdmin)
	return f
}

func (f *fixture) principal(role model.Role) *model.Principal {
	u := f.store.AddUser(model.User{Role: role, IsActive: true})
	p := u.Principal()
	return &p
}

// 公開状態の商品を直接入れる
func (f *fixture) seedProduct(t *testing.T, mutate func(p *model.Product)) model.Product {
	t.Helper()
	p := model.Product{
		Name:       "Seeded product",
		Price:      dec("10.00"),
		Stock:      5,
		IsActive:   true,
		CategoryID: f.cat.ID,
		SellerID:   f.seller.UserID,
		CreatedAt:  testNow,
		UpdatedAt:  testNow,
	}
	if mutate != nil {
		mutate(&p)
	}
	return f.store.AddProduct(p)
}

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func ptr[T any](v T) *T {
	return &v
}

func assertKind(t *testing.T, err error, want usecase.Kind) {
	t.Helper()
	require.Error(t, err)
	assert.Equal(t, want, usecase.KindOf(err), "err=%v", err)
}

func ids(items []model.Product) []int64 {
	out := make([]int64, 0, len(items))
	for _, p := range items {
		out = append(out, p.ID)
	}
	return out
}
