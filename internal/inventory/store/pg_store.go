package store

import (
	"context"

	ierrors "github.com/abgdnv/storekeeper/internal/inventory/errors"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

const pgSchema = `
CREATE TABLE IF NOT EXISTS products (
    id       BIGSERIAL PRIMARY KEY,
    name     TEXT NOT NULL UNIQUE,
    price    DOUBLE PRECISION,
    quantity INTEGER
);
CREATE TABLE IF NOT EXISTS sales (
    id           BIGSERIAL PRIMARY KEY,
    product_name TEXT,
    quantity     INTEGER,
    total_price  DOUBLE PRECISION,
    date         TEXT
);`

// dates are compared byte-wise, independent of the database collation
const pgDateFilter = ` WHERE date COLLATE "C" BETWEEN $1 AND $2`

// PgStore implements Store using PostgreSQL as the data store.
type PgStore struct {
	db *pgxpool.Pool
}

// execer is satisfied by both the pool and a transaction.
type execer interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
}

// NewPgStore creates a new instance of Store using a PostgreSQL connection pool.
func NewPgStore(dbp *pgxpool.Pool) *PgStore {
	return &PgStore{db: dbp}
}

// EnsureSchema creates the products and sales tables if missing.
func (p *PgStore) EnsureSchema(ctx context.Context) error {
	if _, err := p.db.Exec(ctx, pgSchema); err != nil {
		return storageErr("create schema", err)
	}
	return nil
}

// FindAll retrieves all products in id order.
func (p *PgStore) FindAll(ctx context.Context) ([]Product, error) {
	rows, err := p.db.Query(ctx, "SELECT id, name, price, quantity FROM products ORDER BY id")
	if err != nil {
		return nil, storageErr("find products", err)
	}
	products, err := pgx.CollectRows(rows, pgx.RowToStructByPos[Product])
	if err != nil {
		return nil, storageErr("find products", err)
	}
	return products, nil
}

// Create adds a new product.
// Returns ErrStorage if the insert is rejected, e.g. by the unique name constraint.
func (p *PgStore) Create(ctx context.Context, name string, price float64, quantity int) (*Product, error) {
	product := Product{Name: name, Price: price, Quantity: quantity}
	err := p.db.QueryRow(ctx,
		"INSERT INTO products (name, price, quantity) VALUES ($1, $2, $3) RETURNING id",
		name, price, quantity,
	).Scan(&product.ID)
	if err != nil {
		return nil, storageErr("create product", err)
	}
	return &product, nil
}

// Update modifies an existing product's details.
// Returns ErrProductNotFound if no product exists with the given ID.
func (p *PgStore) Update(ctx context.Context, id int64, name string, price float64, quantity int) error {
	tag, err := p.db.Exec(ctx,
		"UPDATE products SET name = $1, price = $2, quantity = $3 WHERE id = $4",
		name, price, quantity, id,
	)
	if err != nil {
		return storageErr("update product", err)
	}
	if tag.RowsAffected() == 0 {
		return ierrors.ErrProductNotFound
	}
	return nil
}

// UpdateQuantity adjusts the stock quantity of a product.
// Returns ErrProductNotFound if no product exists with the given ID.
func (p *PgStore) UpdateQuantity(ctx context.Context, id int64, quantity int) error {
	return pgUpdateQuantity(ctx, p.db, id, quantity)
}

// DeleteByID removes a product by its unique identifier.
// Returns ErrProductNotFound if no product exists with the given ID.
func (p *PgStore) DeleteByID(ctx context.Context, id int64) error {
	tag, err := p.db.Exec(ctx, "DELETE FROM products WHERE id = $1", id)
	if err != nil {
		return storageErr("delete product", err)
	}
	if tag.RowsAffected() == 0 {
		return ierrors.ErrProductNotFound
	}
	return nil
}

// RecordSale updates the stock and inserts the sale in one transaction.
func (p *PgStore) RecordSale(ctx context.Context, productID int64, remaining int, sale Sale) (*Sale, error) {
	err := pgx.BeginFunc(ctx, p.db, func(tx pgx.Tx) error {
		if err := pgUpdateQuantity(ctx, tx, productID, remaining); err != nil {
			return err
		}
		err := tx.QueryRow(ctx,
			"INSERT INTO sales (product_name, quantity, total_price, date) VALUES ($1, $2, $3, $4) RETURNING id",
			sale.ProductName, sale.Quantity, sale.TotalPrice, sale.Date,
		).Scan(&sale.ID)
		if err != nil {
			return storageErr("record sale", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &sale, nil
}

// SumSales returns the sum of total_price in the range, 0 when there are no rows.
func (p *PgStore) SumSales(ctx context.Context, r DateRange) (float64, error) {
	query := "SELECT COALESCE(SUM(total_price), 0)::float8 FROM sales"
	var args []any
	if r.Bounded() {
		query += pgDateFilter
		args = append(args, r.Start, r.End)
	}
	var total float64
	if err := p.db.QueryRow(ctx, query, args...).Scan(&total); err != nil {
		return 0, storageErr("sum sales", err)
	}
	return total, nil
}

// FindSales retrieves the sales in the range in id order.
func (p *PgStore) FindSales(ctx context.Context, r DateRange) ([]Sale, error) {
	query := "SELECT id, product_name, quantity, total_price, date FROM sales"
	var args []any
	if r.Bounded() {
		query += pgDateFilter
		args = append(args, r.Start, r.End)
	}
	query += " ORDER BY id"
	rows, err := p.db.Query(ctx, query, args...)
	if err != nil {
		return nil, storageErr("find sales", err)
	}
	sales, err := pgx.CollectRows(rows, pgx.RowToStructByPos[Sale])
	if err != nil {
		return nil, storageErr("find sales", err)
	}
	return sales, nil
}

// DeleteAllSales removes every sales row.
func (p *PgStore) DeleteAllSales(ctx context.Context) (int64, error) {
	tag, err := p.db.Exec(ctx, "DELETE FROM sales")
	if err != nil {
		return 0, storageErr("clear sales", err)
	}
	return tag.RowsAffected(), nil
}

// Close closes the connection pool.
func (p *PgStore) Close() error {
	p.db.Close()
	return nil
}

func pgUpdateQuantity(ctx context.Context, db execer, id int64, quantity int) error {
	tag, err := db.Exec(ctx, "UPDATE products SET quantity = $1 WHERE id = $2", quantity, id)
	if err != nil {
		return storageErr("update product quantity", err)
	}
	if tag.RowsAffected() == 0 {
		return ierrors.ErrProductNotFound
	}
	return nil
}
