// Package store provides the storage engines for products and sales.
package store

import (
	"context"
)

// Product is a row of the products table.
type Product struct {
	ID       int64   `gorm:"primaryKey;autoIncrement"`
	Name     string  `gorm:"type:text;uniqueIndex;not null"`
	Price    float64 `gorm:"type:real"`
	Quantity int     `gorm:"type:integer"`
}

// TableName returns the table name for Product model.
func (Product) TableName() string {
	return "products"
}

// Sale is a row of the sales table. It is a historical snapshot: the product is
// referenced by name only, so renaming or deleting the product leaves it intact.
type Sale struct {
	ID          int64   `gorm:"primaryKey;autoIncrement"`
	ProductName string  `gorm:"type:text"`
	Quantity    int     `gorm:"type:integer"`
	TotalPrice  float64 `gorm:"type:real"`
	Date        string  `gorm:"type:text"`
}

// TableName returns the table name for Sale model.
func (Sale) TableName() string {
	return "sales"
}

// DateRange is an inclusive range of calendar date strings.
// The range only applies when both bounds are set.
type DateRange struct {
	Start string
	End   string
}

// Bounded reports whether both bounds are present.
func (r DateRange) Bounded() bool {
	return r.Start != "" && r.End != ""
}

// ProductStore is an interface for product storage operations.
type ProductStore interface {
	// FindAll returns all products in id order.
	// Returns an empty slice if no products exist.
	FindAll(ctx context.Context) ([]Product, error)

	// Create inserts a new product.
	// Returns ErrStorage if the engine rejects the row (e.g. a duplicate name).
	Create(ctx context.Context, name string, price float64, quantity int) (*Product, error)

	// Update overwrites a product's details.
	// Returns ErrProductNotFound if no product exists with the given ID.
	Update(ctx context.Context, id int64, name string, price float64, quantity int) error

	// UpdateQuantity overwrites the stock quantity of a product.
	// Returns ErrProductNotFound if no product exists with the given ID.
	UpdateQuantity(ctx context.Context, id int64, quantity int) error

	// DeleteByID removes a product by its ID.
	// Returns ErrProductNotFound if no product exists with the given ID.
	DeleteByID(ctx context.Context, id int64) error
}

// SaleStore is an interface for sales history operations.
type SaleStore interface {
	// RecordSale sets the remaining quantity of the sold product and appends
	// the sale row in a single transaction.
	RecordSale(ctx context.Context, productID int64, remaining int, sale Sale) (*Sale, error)

	// SumSales returns the sum of total_price over the range, 0 when empty.
	SumSales(ctx context.Context, r DateRange) (float64, error)

	// FindSales returns the sales in the range in id order.
	FindSales(ctx context.Context, r DateRange) ([]Sale, error)

	// DeleteAllSales removes every sale row and returns how many were removed.
	DeleteAllSales(ctx context.Context) (int64, error)
}

// Store is the storage engine used by the inventory service.
type Store interface {
	ProductStore
	SaleStore

	// EnsureSchema creates the tables if they do not exist. Safe on a populated store.
	EnsureSchema(ctx context.Context) error

	// Close releases the engine's resources.
	Close() error
}
