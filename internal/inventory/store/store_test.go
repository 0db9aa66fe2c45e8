package store

import (
	"context"
	"testing"

	ierrors "github.com/abgdnv/storekeeper/internal/inventory/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"
)

// StoreSuite checks the Store contract. Runners decide which engine open returns.
type StoreSuite struct {
	suite.Suite
	ctx   context.Context
	open  func() Store
	store Store
	owned bool // close the store after each test
}

func (s *StoreSuite) SetupTest() {
	s.ctx = context.Background()
	s.store = s.open()
	require.NoError(s.T(), s.store.EnsureSchema(s.ctx))
}

func (s *StoreSuite) TearDownTest() {
	if s.owned {
		assert.NoError(s.T(), s.store.Close())
	}
}

func TestInMemoryStore(t *testing.T) {
	suite.Run(t, &StoreSuite{
		open:  NewInMemoryStore,
		owned: true,
	})
}

func TestSQLiteStore(t *testing.T) {
	suite.Run(t, &StoreSuite{
		open: func() Store {
			st, err := NewSQLiteStore(":memory:", false)
			require.NoError(t, err)
			return st
		},
		owned: true,
	})
}

// createTestProduct is a helper function to create a product for testing purposes.
func (s *StoreSuite) createTestProduct(name string, price float64, quantity int) *Product {
	s.T().Helper()
	product, err := s.store.Create(s.ctx, name, price, quantity)
	require.NoError(s.T(), err, "createTestProduct helper failed to create product")
	return product
}

func (s *StoreSuite) sell(p *Product, quantity int, date string) *Sale {
	s.T().Helper()
	sale, err := s.store.RecordSale(s.ctx, p.ID, p.Quantity-quantity, Sale{
		ProductName: p.Name,
		Quantity:    quantity,
		TotalPrice:  float64(quantity) * p.Price,
		Date:        date,
	})
	require.NoError(s.T(), err)
	return sale
}

func (s *StoreSuite) TestCreateAndFindAll() {
	a := s.createTestProduct("Pen", 1000, 50)
	b := s.createTestProduct("Notebook", 25000.5, 0)

	products, err := s.store.FindAll(s.ctx)

	require.NoError(s.T(), err)
	require.Len(s.T(), products, 2)
	assert.NotZero(s.T(), a.ID)
	assert.Greater(s.T(), b.ID, a.ID)
	assert.Equal(s.T(), Product{ID: a.ID, Name: "Pen", Price: 1000, Quantity: 50}, products[0])
	assert.Equal(s.T(), Product{ID: b.ID, Name: "Notebook", Price: 25000.5, Quantity: 0}, products[1])
}

func (s *StoreSuite) TestFindAll_Empty() {
	products, err := s.store.FindAll(s.ctx)

	require.NoError(s.T(), err)
	assert.Empty(s.T(), products)
}

func (s *StoreSuite) TestCreate_DuplicateName() {
	s.createTestProduct("Pen", 1000, 50)

	_, err := s.store.Create(s.ctx, "Pen", 2000, 1)

	require.ErrorIs(s.T(), err, ierrors.ErrStorage)
	products, err := s.store.FindAll(s.ctx)
	require.NoError(s.T(), err)
	require.Len(s.T(), products, 1)
	assert.Equal(s.T(), 1000.0, products[0].Price)
}

func (s *StoreSuite) TestCreate_NameIsCaseSensitive() {
	s.createTestProduct("Pen", 1000, 50)

	_, err := s.store.Create(s.ctx, "pen", 1000, 50)

	require.NoError(s.T(), err)
}

func (s *StoreSuite) TestEnsureSchema_Idempotent() {
	s.createTestProduct("Pen", 1000, 50)

	require.NoError(s.T(), s.store.EnsureSchema(s.ctx))

	products, err := s.store.FindAll(s.ctx)
	require.NoError(s.T(), err)
	assert.Len(s.T(), products, 1)
}

func (s *StoreSuite) TestUpdate() {
	created := s.createTestProduct("Pen", 1000, 50)

	err := s.store.Update(s.ctx, created.ID, "Blue Pen", 0, 0)

	require.NoError(s.T(), err)
	products, err := s.store.FindAll(s.ctx)
	require.NoError(s.T(), err)
	assert.Equal(s.T(), Product{ID: created.ID, Name: "Blue Pen", Price: 0, Quantity: 0}, products[0])
}

func (s *StoreSuite) TestUpdate_NotFound() {
	err := s.store.Update(s.ctx, 9999, "Ghost", 1, 1)

	require.ErrorIs(s.T(), err, ierrors.ErrProductNotFound)
}

func (s *StoreSuite) TestUpdate_RenameOntoExistingName() {
	s.createTestProduct("Pen", 1000, 50)
	other := s.createTestProduct("Pencil", 500, 10)

	err := s.store.Update(s.ctx, other.ID, "Pen", 500, 10)

	require.ErrorIs(s.T(), err, ierrors.ErrStorage)
}

func (s *StoreSuite) TestUpdateQuantity() {
	created := s.createTestProduct("Pen", 1000, 50)

	require.NoError(s.T(), s.store.UpdateQuantity(s.ctx, created.ID, 7))

	products, err := s.store.FindAll(s.ctx)
	require.NoError(s.T(), err)
	assert.Equal(s.T(), 7, products[0].Quantity)
}

func (s *StoreSuite) TestUpdateQuantity_NotFound() {
	err := s.store.UpdateQuantity(s.ctx, 9999, 1)

	require.ErrorIs(s.T(), err, ierrors.ErrProductNotFound)
}

func (s *StoreSuite) TestDeleteByID_KeepsSales() {
	created := s.createTestProduct("Pen", 1000, 50)
	s.sell(created, 10, "1403-01-01")

	require.NoError(s.T(), s.store.DeleteByID(s.ctx, created.ID))

	products, err := s.store.FindAll(s.ctx)
	require.NoError(s.T(), err)
	assert.Empty(s.T(), products)
	total, err := s.store.SumSales(s.ctx, DateRange{})
	require.NoError(s.T(), err)
	assert.InDelta(s.T(), 10000, total, 1e-9)
}

func (s *StoreSuite) TestDeleteByID_NotFound() {
	err := s.store.DeleteByID(s.ctx, 9999)

	require.ErrorIs(s.T(), err, ierrors.ErrProductNotFound)
}

func (s *StoreSuite) TestRecordSale() {
	created := s.createTestProduct("Pen", 1000, 50)

	sale := s.sell(created, 10, "1403-01-01")

	assert.NotZero(s.T(), sale.ID)
	assert.Equal(s.T(), "Pen", sale.ProductName)
	products, err := s.store.FindAll(s.ctx)
	require.NoError(s.T(), err)
	assert.Equal(s.T(), 40, products[0].Quantity)
	sales, err := s.store.FindSales(s.ctx, DateRange{})
	require.NoError(s.T(), err)
	require.Len(s.T(), sales, 1)
	assert.Equal(s.T(), *sale, sales[0])
}

func (s *StoreSuite) TestRecordSale_UnknownProduct() {
	_, err := s.store.RecordSale(s.ctx, 9999, 0, Sale{ProductName: "Ghost", Quantity: 1, TotalPrice: 1, Date: "1403-01-01"})

	require.ErrorIs(s.T(), err, ierrors.ErrProductNotFound)
	sales, err := s.store.FindSales(s.ctx, DateRange{})
	require.NoError(s.T(), err)
	assert.Empty(s.T(), sales)
}

func (s *StoreSuite) TestSumSales() {
	pen := s.createTestProduct("Pen", 1000, 100)
	s.sell(pen, 1, "1402-12-29")
	pen.Quantity = 99
	s.sell(pen, 2, "1403-01-01")
	pen.Quantity = 97
	s.sell(pen, 3, "1403-01-15")
	pen.Quantity = 94
	s.sell(pen, 4, "1403-02-01")

	testCases := []struct {
		name     string
		r        DateRange
		expected float64
	}{
		{name: "unbounded", r: DateRange{}, expected: 10000},
		{name: "inclusive bounds", r: DateRange{Start: "1403-01-01", End: "1403-01-15"}, expected: 5000},
		{name: "single day", r: DateRange{Start: "1403-02-01", End: "1403-02-01"}, expected: 4000},
		{name: "no rows", r: DateRange{Start: "1404-01-01", End: "1404-12-29"}, expected: 0},
		{name: "only start is treated as unbounded", r: DateRange{Start: "1403-02-01"}, expected: 10000},
	}
	for _, tc := range testCases {
		s.Run(tc.name, func() {
			total, err := s.store.SumSales(s.ctx, tc.r)
			require.NoError(s.T(), err)
			assert.InDelta(s.T(), tc.expected, total, 1e-9)
		})
	}
}

func (s *StoreSuite) TestSumSales_Empty() {
	total, err := s.store.SumSales(s.ctx, DateRange{})

	require.NoError(s.T(), err)
	assert.Zero(s.T(), total)
}

func (s *StoreSuite) TestFindSales_Range() {
	pen := s.createTestProduct("Pen", 1000, 100)
	s.sell(pen, 1, "1403-01-01")
	pen.Quantity = 99
	s.sell(pen, 2, "1403-05-01")

	sales, err := s.store.FindSales(s.ctx, DateRange{Start: "1403-04-01", End: "1403-12-29"})

	require.NoError(s.T(), err)
	require.Len(s.T(), sales, 1)
	assert.Equal(s.T(), "1403-05-01", sales[0].Date)
	assert.Equal(s.T(), 2, sales[0].Quantity)
}

func (s *StoreSuite) TestDeleteAllSales() {
	pen := s.createTestProduct("Pen", 1000, 100)
	s.sell(pen, 1, "1403-01-01")
	pen.Quantity = 99
	s.sell(pen, 2, "1403-01-02")

	n, err := s.store.DeleteAllSales(s.ctx)

	require.NoError(s.T(), err)
	assert.Equal(s.T(), int64(2), n)
	total, err := s.store.SumSales(s.ctx, DateRange{})
	require.NoError(s.T(), err)
	assert.Zero(s.T(), total)
	products, err := s.store.FindAll(s.ctx)
	require.NoError(s.T(), err)
	assert.Equal(s.T(), 97, products[0].Quantity)
}
