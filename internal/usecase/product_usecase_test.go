package usecase_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"marketplace/internal/domain/model"
	repo "marketplace/internal/repository"
	"marketplace/internal/usecase"
	"marketplace/internal/validator"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

// =====================
// Mocks
// =====================

type productRepoMock struct{ mock.Mock }

func (m *productRepoMock) List(ctx context.Context, f repo.ProductFilter, page int, pageSize int) ([]model.Product, error) {
	args := m.Called(ctx, f, page, pageSize)
	items, _ := args.Get(0).([]model.Product)
	return items, args.Error(1)
}

func (m *productRepoMock) Count(ctx context.Context, f repo.ProductFilter) (int64, error) {
	args := m.Called(ctx, f)
	return args.Get(0).(int64), args.Error(1)
}

func (m *productRepoMock) ListByCategory(ctx context.Context, categoryID int64) ([]model.Product, error) {
	panic("not used")
}

func (m *productRepoMock) FindActiveByID(ctx context.Context, id int64) (model.Product, error) {
	args := m.Called(ctx, id)
	p, _ := args.Get(0).(model.Product)
	return p, args.Error(1)
}

func (m *productRepoMock) LockActiveByID(ctx context.Context, id int64) (model.Product, error) {
	panic("not used")
}

func (m *productRepoMock) LockByID(ctx context.Context, id int64) (model.Product, error) {
	panic("not used")
}

func (m *productRepoMock) Create(ctx context.Context, p model.Product) (model.Product, error) {
	panic("not used")
}

func (m *productRepoMock) Update(ctx context.Context, p model.Product) error {
	panic("not used")
}

func (m *productRepoMock) Deactivate(ctx context.Context, id int64) error {
	panic("not used")
}

func (m *productRepoMock) UpdateRating(ctx context.Context, id int64, rating decimal.Decimal) error {
	panic("not used")
}

type txManagerMock struct{ mock.Mock }

func (m *txManagerMock) WithinTx(ctx context.Context, fn func(r repo.TxRepos) error) error {
	args := m.Called(ctx)
	return args.Error(0)
}

func newMockedProductUsecase(pRepo *productRepoMock, tx *txManagerMock) *usecase.ProductUsecase {
	return usecase.NewProductUsecase(pRepo, nil, tx, validator.New(), fixedClock{t: testNow})
}

// =====================
// ListProducts
// =====================

func TestProductUsecase_ListProducts_InvalidInput_NoStorage(t *testing.T) {
	cases := []struct {
		name string
		in   usecase.ListProductsInput
		msg  string
	}{
		{"page zero", usecase.ListProductsInput{Page: 0, PageSize: 20}, "invalid page"},
		{"page_size zero", usecase.ListProductsInput{Page: 1, PageSize: 0}, "invalid page_size"},
		{"page_size over max", usecase.ListProductsInput{Page: 1, PageSize: 101}, "invalid page_size"},
		{"negative min", usecase.ListProductsInput{Page: 1, PageSize: 20, MinPrice: ptr(dec("-1"))}, "min_price must be >= 0"},
		{"negative max", usecase.ListProductsInput{Page: 1, PageSize: 20, MaxPrice: ptr(dec("-0.01"))}, "max_price must be >= 0"},
		{"min over max", usecase.ListProductsInput{Page: 1, PageSize: 20, MinPrice: ptr(dec("50")), MaxPrice: ptr(dec("10"))}, "min_price must be <= max_price"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			pRepo := new(productRepoMock)
			uc := newMockedProductUsecase(pRepo, new(txManagerMock))

			_, err := uc.ListProducts(context.Background(), tc.in)
			assertKind(t, err, usecase.KindInvalidArgument)
			assert.Contains(t, err.Error(), tc.msg)
			pRepo.AssertNotCalled(t, "Count", mock.Anything, mock.Anything)
			pRepo.AssertNotCalled(t, "List", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
		})
	}
}

func TestProductUsecase_ListProducts_StorageError(t *testing.T) {
	pRepo := new(productRepoMock)
	uc := newMockedProductUsecase(pRepo, new(txManagerMock))

	pRepo.On("Count", mock.Anything, repo.ProductFilter{}).Return(int64(0), errors.New("connection reset"))

	_, err := uc.ListProducts(context.Background(), usecase.ListProductsInput{Page: 1, PageSize: 20})
	assertKind(t, err, usecase.KindStorageUnavailable)
	pRepo.AssertExpectations(t)
}

func TestProductUsecase_ListProducts_Timeout(t *testing.T) {
	pRepo := new(productRepoMock)
	uc := newMockedProductUsecase(pRepo, new(txManagerMock))

	pRepo.On("Count", mock.Anything, repo.ProductFilter{}).Return(int64(0), context.DeadlineExceeded)

	_, err := uc.ListProducts(context.Background(), usecase.ListProductsInput{Page: 1, PageSize: 20})
	assertKind(t, err, usecase.KindStorageUnavailable)
	ue, ok := usecase.AsError(err)
	require.True(t, ok)
	assert.Equal(t, "db timeout", ue.Message)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

// 25件をpage_size=10で2ページ目 => 11〜20件目
func TestProductUsecase_ListProducts_Pagination(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	var all []int64
	for i := 0; i < 25; i++ {
		all = append(all, f.seedProduct(t, nil).ID)
	}

	out, err := f.products.ListProducts(ctx, usecase.ListProductsInput{Page: 2, PageSize: 10})
	require.NoError(t, err)
	assert.Equal(t, int64(25), out.Total)
	assert.Equal(t, 2, out.Page)
	assert.Equal(t, 10, out.PageSize)
	assert.Equal(t, all[10:20], ids(out.Items))

	out, err = f.products.ListProducts(ctx, usecase.ListProductsInput{Page: 3, PageSize: 10})
	require.NoError(t, err)
	assert.Equal(t, all[20:], ids(out.Items))

	//最終ページの先は空、totalは変わらない
	out, err = f.products.ListProducts(ctx, usecase.ListProductsInput{Page: 4, PageSize: 10})
	require.NoError(t, err)
	assert.Empty(t, out.Items)
	assert.Equal(t, int64(25), out.Total)
}

func TestProductUsecase_ListProducts_Filters(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	other := f.store.AddCategory(model.Category{Name: "Games", IsActive: true})
	later := testNow.Add(time.Hour)

	cheap := f.seedProduct(t, func(p *model.Product) { p.Price = dec("5.00") })
	mid := f.seedProduct(t, func(p *model.Product) { p.Price = dec("20.00"); p.Stock = 0 })
	pricey := f.seedProduct(t, func(p *model.Product) { p.Price = dec("99.99"); p.CategoryID = other.ID })
	byOther := f.seedProduct(t, func(p *model.Product) { p.SellerID = f.other.UserID; p.CreatedAt = later })
	hidden := f.seedProduct(t, func(p *model.Product) { p.IsActive = false })

	cases := []struct {
		name string
		in   usecase.ListProductsInput
		want []int64
	}{
		{"no filter", usecase.ListProductsInput{}, []int64{cheap.ID, mid.ID, pricey.ID, byOther.ID}},
		{"category", usecase.ListProductsInput{CategoryID: &other.ID}, []int64{pricey.ID}},
		{"min price inclusive", usecase.ListProductsInput{MinPrice: ptr(dec("20"))}, []int64{mid.ID, pricey.ID}},
		{"max price inclusive", usecase.ListProductsInput{MaxPrice: ptr(dec("10"))}, []int64{cheap.ID, byOther.ID}},
		{"price range", usecase.ListProductsInput{MinPrice: ptr(dec("6")), MaxPrice: ptr(dec("50"))}, []int64{mid.ID, byOther.ID}},
		{"in stock", usecase.ListProductsInput{InStock: ptr(true)}, []int64{cheap.ID, pricey.ID, byOther.ID}},
		{"out of stock", usecase.ListProductsInput{InStock: ptr(false)}, []int64{mid.ID}},
		{"seller", usecase.ListProductsInput{SellerID: &f.other.UserID}, []int64{byOther.ID}},
		{"created_at", usecase.ListProductsInput{CreatedAt: &later}, []int64{byOther.ID}},
		{"combined", usecase.ListProductsInput{SellerID: &f.seller.UserID, InStock: ptr(true), MaxPrice: ptr(dec("50"))}, []int64{cheap.ID}},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			in := tc.in
			in.Page, in.PageSize = 1, 100

			out, err := f.products.ListProducts(ctx, in)
			require.NoError(t, err)
			assert.Equal(t, tc.want, ids(out.Items))
			assert.Equal(t, int64(len(tc.want)), out.Total)
			assert.NotContains(t, ids(out.Items), hidden.ID)
		})
	}
}

// カテゴリが無効になると一覧から消える
func TestProductUsecase_ListProducts_HidesRetiredCategory(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	retired := f.store.AddCategory(model.Category{Name: "Old", IsActive: true})
	keep := f.seedProduct(t, nil)
	gone := f.seedProduct(t, func(p *model.Product) { p.CategoryID = retired.ID })
	f.store.SetCategoryActive(retired.ID, false)

	out, err := f.products.ListProducts(ctx, usecase.ListProductsInput{Page: 1, PageSize: 20})
	require.NoError(t, err)
	assert.Equal(t, []int64{keep.ID}, ids(out.Items))
	assert.NotContains(t, ids(out.Items), gone.ID)
}

// =====================
// GetProduct / ListProductsByCategory
// =====================

func TestProductUsecase_GetProduct(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	visible := f.seedProduct(t, nil)
	inactive := f.seedProduct(t, func(p *model.Product) { p.IsActive = false })
	retired := f.store.AddCategory(model.Category{Name: "Old", IsActive: false})
	stranded := f.seedProduct(t, func(p *model.Product) { p.CategoryID = retired.ID })

	got, err := f.products.GetProduct(ctx, visible.ID)
	require.NoError(t, err)
	assert.Equal(t, visible.ID, got.ID)

	_, err = f.products.GetProduct(ctx, inactive.ID)
	assertKind(t, err, usecase.KindNotFound)

	_, err = f.products.GetProduct(ctx, 9999)
	assertKind(t, err, usecase.KindNotFound)

	_, err = f.products.GetProduct(ctx, stranded.ID)
	assertKind(t, err, usecase.KindInvalidArgument)

	_, err = f.products.GetProduct(ctx, 0)
	assertKind(t, err, usecase.KindInvalidArgument)
}

func TestProductUsecase_ListProductsByCategory(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	a := f.seedProduct(t, nil)
	b := f.seedProduct(t, nil)
	f.seedProduct(t, func(p *model.Product) { p.IsActive = false })
	retired := f.store.AddCategory(model.Category{Name: "Old", IsActive: false})

	items, err := f.products.ListProductsByCategory(ctx, f.cat.ID)
	require.NoError(t, err)
	assert.Equal(t, []int64{a.ID, b.ID}, ids(items))

	_, err = f.products.ListProductsByCategory(ctx, retired.ID)
	assertKind(t, err, usecase.KindNotFound)

	_, err = f.products.ListProductsByCategory(ctx, 9999)
	assertKind(t, err, usecase.KindNotFound)

	_, err = f.products.ListProductsByCategory(ctx, -1)
	assertKind(t, err, usecase.KindInvalidArgument)
}

// =====================
// CreateProduct
// =====================

func validProductInput(categoryID int64) usecase.ProductInput {
	return usecase.ProductInput{
		Name:        "  Go Programming  ",
		Description: ptr("a book"),
		Price:       dec("39.90"),
		ImageURL:    ptr("https://img.example.com/go.png"),
		Stock:       3,
		CategoryID:  categoryID,
	}
}

func TestProductUsecase_CreateProduct_Success(t *testing.T) {
	f := newFixture(t)

	p, err := f.products.CreateProduct(context.Background(), f.seller, validProductInput(f.cat.ID))
	require.NoError(t, err)

	assert.NotZero(t, p.ID)
	assert.Equal(t, "Go Programming", p.Name)
	assert.Equal(t, f.seller.UserID, p.SellerID)
	assert.True(t, p.IsActive)
	assert.True(t, p.Rating.IsZero())
	assert.True(t, p.Price.Equal(dec("39.9")))
	assert.Equal(t, testNow, p.CreatedAt)

	stored, ok := f.store.Product(p.ID)
	require.True(t, ok)
	assert.Equal(t, p.Name, stored.Name)
}

func TestProductUsecase_CreateProduct_Denied(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	in := validProductInput(f.cat.ID)

	_, err := f.products.CreateProduct(ctx, nil, in)
	assertKind(t, err, usecase.KindUnauthenticated)

	_, err = f.products.CreateProduct(ctx, &model.Principal{UserID: f.seller.UserID, Role: model.RoleSeller, Active: false}, in)
	assertKind(t, err, usecase.KindUnauthenticated)

	_, err = f.products.CreateProduct(ctx, f.buyer, in)
	assertKind(t, err, usecase.KindForbidden)

	_, err = f.products.CreateProduct(ctx, f.admin, in)
	assertKind(t, err, usecase.KindForbidden)
}

func TestProductUsecase_CreateProduct_InvalidInput(t *testing.T) {
	f := newFixture(t)
	retired := f.store.AddCategory(model.Category{Name: "Old", IsActive: false})

	cases := []struct {
		name   string
		mutate func(in *usecase.ProductInput)
	}{
		{"name too short", func(in *usecase.ProductInput) { in.Name = " ab " }},
		{"name too long", func(in *usecase.ProductInput) { in.Name = string(make([]byte, 101)) }},
		{"zero price", func(in *usecase.ProductInput) { in.Price = decimal.Zero }},
		{"negative price", func(in *usecase.ProductInput) { in.Price = dec("-1") }},
		{"three decimals", func(in *usecase.ProductInput) { in.Price = dec("1.005") }},
		{"negative stock", func(in *usecase.ProductInput) { in.Stock = -1 }},
		{"missing category", func(in *usecase.ProductInput) { in.CategoryID = 0 }},
		{"unknown category", func(in *usecase.ProductInput) { in.CategoryID = 9999 }},
		{"retired category", func(in *usecase.ProductInput) { in.CategoryID = retired.ID }},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			in := validProductInput(f.cat.ID)
			tc.mutate(&in)

			_, err := f.products.CreateProduct(context.Background(), f.seller, in)
			assertKind(t, err, usecase.KindInvalidArgument)
		})
	}
}

// =====================
// UpdateProduct / DeleteProduct
// =====================

func TestProductUsecase_UpdateProduct_FullReplace(t *testing.T) {
	f := newFixture(t)
	orig := f.seedProduct(t, func(p *model.Product) {
		p.Rating = dec("4.50")
		p.Description = ptr("old")
	})
	games := f.store.AddCategory(model.Category{Name: "Games", IsActive: true})

	in := usecase.ProductInput{Name: "Renamed", Price: dec("12.34"), Stock: 0, CategoryID: games.ID}
	got, err := f.products.UpdateProduct(context.Background(), f.seller, orig.ID, in)
	require.NoError(t, err)

	stored, _ := f.store.Product(orig.ID)
	for _, p := range []model.Product{got, stored} {
		assert.Equal(t, "Renamed", p.Name)
		assert.Nil(t, p.Description)
		assert.True(t, p.Price.Equal(dec("12.34")))
		assert.Equal(t, int64(0), p.Stock)
		assert.Equal(t, games.ID, p.CategoryID)
		assert.Equal(t, orig.SellerID, p.SellerID)
		assert.True(t, p.Rating.Equal(dec("4.5")))
		assert.True(t, p.IsActive)
	}
}

func TestProductUsecase_UpdateProduct_NotOwner(t *testing.T) {
	f := newFixture(t)
	orig := f.seedProduct(t, nil)

	in := validProductInput(f.cat.ID)
	_, err := f.products.UpdateProduct(context.Background(), f.other, orig.ID, in)
	assertKind(t, err, usecase.KindForbidden)

	stored, _ := f.store.Product(orig.ID)
	assert.Equal(t, orig.Name, stored.Name)
}

func TestProductUsecase_UpdateProduct_Missing(t *testing.T) {
	f := newFixture(t)
	gone := f.seedProduct(t, func(p *model.Product) { p.IsActive = false })

	_, err := f.products.UpdateProduct(context.Background(), f.seller, gone.ID, validProductInput(f.cat.ID))
	assertKind(t, err, usecase.KindNotFound)

	_, err = f.products.UpdateProduct(context.Background(), f.seller, 9999, validProductInput(f.cat.ID))
	assertKind(t, err, usecase.KindNotFound)
}

// 無効カテゴリに置かれた商品も持ち主は編集できる
func TestProductUsecase_UpdateProduct_StrandedProduct(t *testing.T) {
	f := newFixture(t)
	retired := f.store.AddCategory(model.Category{Name: "Old", IsActive: true})
	p := f.seedProduct(t, func(p *model.Product) { p.CategoryID = retired.ID })
	f.store.SetCategoryActive(retired.ID, false)

	_, err := f.products.UpdateProduct(context.Background(), f.seller, p.ID, validProductInput(retired.ID))
	assertKind(t, err, usecase.KindInvalidArgument)

	got, err := f.products.UpdateProduct(context.Background(), f.seller, p.ID, validProductInput(f.cat.ID))
	require.NoError(t, err)
	assert.Equal(t, f.cat.ID, got.CategoryID)
}

func TestProductUsecase_DeleteProduct(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	p := f.seedProduct(t, nil)

	_, err := f.products.DeleteProduct(ctx, f.other, p.ID)
	assertKind(t, err, usecase.KindForbidden)

	_, err = f.products.DeleteProduct(ctx, f.buyer, p.ID)
	assertKind(t, err, usecase.KindForbidden)

	deleted, err := f.products.DeleteProduct(ctx, f.seller, p.ID)
	require.NoError(t, err)
	assert.False(t, deleted.IsActive)
	assert.Equal(t, p.ID, deleted.ID)

	_, err = f.products.GetProduct(ctx, p.ID)
	assertKind(t, err, usecase.KindNotFound)

	_, err = f.products.DeleteProduct(ctx, f.seller, p.ID)
	assertKind(t, err, usecase.KindNotFound)

	out, err := f.products.ListProducts(ctx, usecase.ListProductsInput{Page: 1, PageSize: 20})
	require.NoError(t, err)
	assert.Zero(t, out.Total)
}

func TestProductUsecase_DeleteProduct_StorageError(t *testing.T) {
	tx := new(txManagerMock)
	uc := newMockedProductUsecase(new(productRepoMock), tx)

	seller := &model.Principal{UserID: 1, Role: model.RoleSeller, Active: true}
	tx.On("WithinTx", mock.Anything).Return(errors.New("serialization failure"))

	_, err := uc.DeleteProduct(context.Background(), seller, 5)
	assertKind(t, err, usecase.KindStorageUnavailable)
	tx.AssertExpectations(t)
}

// category + 価格帯 + 2ページ目 => 条件に合う11〜20件目（id昇順）
func TestProductUsecase_ListProducts_FilteredSecondPage(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	other := f.store.AddCategory(model.Category{Name: "Games", IsActive: true})

	var want []int64
	for i := 0; i < 30; i++ {
		price := decimal.NewFromInt(int64(5 + i*2)) // 5, 7, ... 63
		inRange := f.seedProduct(t, func(p *model.Product) { p.Price = price })
		if !price.LessThan(dec("10")) && !price.GreaterThan(dec("50")) {
			want = append(want, inRange.ID)
		}
		//別カテゴリの同価格は対象外
		f.seedProduct(t, func(p *model.Product) { p.Price = price; p.CategoryID = other.ID })
	}
	require.Len(t, want, 20)

	out, err := f.products.ListProducts(ctx, usecase.ListProductsInput{
		Page:       2,
		PageSize:   10,
		CategoryID: &f.cat.ID,
		MinPrice:   ptr(dec("10")),
		MaxPrice:   ptr(dec("50")),
	})
	require.NoError(t, err)
	assert.Equal(t, int64(20), out.Total)
	assert.Equal(t, want[10:20], ids(out.Items))
}
