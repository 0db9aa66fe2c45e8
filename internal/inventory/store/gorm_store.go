package store

import (
	"context"
	"errors"
	"fmt"

	ierrors "github.com/abgdnv/storekeeper/internal/inventory/errors"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// GormStore implements Store on top of GORM. The default engine is an embedded SQLite file.
type GormStore struct {
	db *gorm.DB
}

// NewSQLiteStore opens (or creates) the SQLite database at path.
// Use ":memory:" for a throwaway database.
func NewSQLiteStore(path string, debug bool) (*GormStore, error) {
	logLevel := logger.Silent
	if debug {
		logLevel = logger.Info
	}

	db, err := gorm.Open(sqlite.Open(path), &gorm.Config{
		Logger: logger.Default.LogMode(logLevel),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to open sqlite database %s: %w", path, err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get sql.DB: %w", err)
	}
	// single writer; also keeps ":memory:" on one connection
	sqlDB.SetMaxOpenConns(1)

	return NewGormStore(db), nil
}

// NewGormStore wraps an already opened GORM handle.
func NewGormStore(db *gorm.DB) *GormStore {
	return &GormStore{db: db}
}

// EnsureSchema runs GORM auto-migration for both tables.
func (g *GormStore) EnsureSchema(ctx context.Context) error {
	if err := g.db.WithContext(ctx).AutoMigrate(&Product{}, &Sale{}); err != nil {
		return storageErr("create schema", err)
	}
	return nil
}

// FindAll retrieves all products in id order.
func (g *GormStore) FindAll(ctx context.Context) ([]Product, error) {
	var products []Product
	if err := g.db.WithContext(ctx).Order("id").Find(&products).Error; err != nil {
		return nil, storageErr("find products", err)
	}
	return products, nil
}

// Create saves a new product to the database.
func (g *GormStore) Create(ctx context.Context, name string, price float64, quantity int) (*Product, error) {
	product := Product{Name: name, Price: price, Quantity: quantity}
	if err := g.db.WithContext(ctx).Create(&product).Error; err != nil {
		return nil, storageErr("create product", err)
	}
	return &product, nil
}

// Update overwrites an existing product.
func (g *GormStore) Update(ctx context.Context, id int64, name string, price float64, quantity int) error {
	// map form so zero price/quantity are written too
	result := g.db.WithContext(ctx).Model(&Product{}).Where("id = ?", id).Updates(map[string]any{
		"name":     name,
		"price":    price,
		"quantity": quantity,
	})
	if err := result.Error; err != nil {
		return storageErr("update product", err)
	}
	if result.RowsAffected == 0 {
		return ierrors.ErrProductNotFound
	}
	return nil
}

// UpdateQuantity overwrites the quantity of a product.
func (g *GormStore) UpdateQuantity(ctx context.Context, id int64, quantity int) error {
	return updateQuantity(g.db.WithContext(ctx), id, quantity)
}

// DeleteByID removes a product by ID.
func (g *GormStore) DeleteByID(ctx context.Context, id int64) error {
	result := g.db.WithContext(ctx).Delete(&Product{}, "id = ?", id)
	if err := result.Error; err != nil {
		return storageErr("delete product", err)
	}
	if result.RowsAffected == 0 {
		return ierrors.ErrProductNotFound
	}
	return nil
}

// RecordSale updates the stock and inserts the sale in one transaction.
func (g *GormStore) RecordSale(ctx context.Context, productID int64, remaining int, sale Sale) (*Sale, error) {
	err := g.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := updateQuantity(tx, productID, remaining); err != nil {
			return err
		}
		if err := tx.Create(&sale).Error; err != nil {
			return storageErr("record sale", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &sale, nil
}

// SumSales returns the total of total_price in the range, 0 for no rows.
func (g *GormStore) SumSales(ctx context.Context, r DateRange) (float64, error) {
	var total float64
	q := g.db.WithContext(ctx).Model(&Sale{})
	if r.Bounded() {
		q = q.Where("date BETWEEN ? AND ?", r.Start, r.End)
	}
	if err := q.Select("COALESCE(SUM(total_price), 0)").Row().Scan(&total); err != nil {
		return 0, storageErr("sum sales", err)
	}
	return total, nil
}

// FindSales retrieves the sales in the range in id order.
func (g *GormStore) FindSales(ctx context.Context, r DateRange) ([]Sale, error) {
	var sales []Sale
	q := g.db.WithContext(ctx).Order("id")
	if r.Bounded() {
		q = q.Where("date BETWEEN ? AND ?", r.Start, r.End)
	}
	if err := q.Find(&sales).Error; err != nil {
		return nil, storageErr("find sales", err)
	}
	return sales, nil
}

// DeleteAllSales removes the whole sales history.
func (g *GormStore) DeleteAllSales(ctx context.Context) (int64, error) {
	result := g.db.WithContext(ctx).Where("1 = 1").Delete(&Sale{})
	if err := result.Error; err != nil {
		return 0, storageErr("clear sales", err)
	}
	return result.RowsAffected, nil
}

// Close closes the database connection.
func (g *GormStore) Close() error {
	sqlDB, err := g.db.DB()
	if err != nil {
		return fmt.Errorf("failed to get sql.DB: %w", err)
	}
	if err := sqlDB.Close(); err != nil {
		return fmt.Errorf("failed to close database: %w", err)
	}
	return nil
}

func updateQuantity(db *gorm.DB, id int64, quantity int) error {
	result := db.Model(&Product{}).Where("id = ?", id).Update("quantity", quantity)
	if err := result.Error; err != nil {
		return storageErr("update product quantity", err)
	}
	if result.RowsAffected == 0 {
		return ierrors.ErrProductNotFound
	}
	return nil
}

// storageErr marks an engine failure as ErrStorage while keeping the cause.
func storageErr(op string, err error) error {
	if errors.Is(err, ierrors.ErrStorage) {
		return err
	}
	return fmt.Errorf("failed to %s: %w: %w", op, ierrors.ErrStorage, err)
}
