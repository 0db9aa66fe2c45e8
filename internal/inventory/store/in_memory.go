package store

import (
	"context"
	"fmt"
	"sort"
	"sync"

	ierrors "github.com/abgdnv/storekeeper/internal/inventory/errors"
)

// inMemory implements Store using in-process maps. Nothing survives Close.
type inMemory struct {
	mu         sync.RWMutex
	products   map[int64]Product
	sales      []Sale
	nextID     int64
	nextSaleID int64
}

// NewInMemoryStore creates a new instance of Store backed by process memory.
func NewInMemoryStore() Store {
	return &inMemory{
		products:   make(map[int64]Product),
		nextID:     1,
		nextSaleID: 1,
	}
}

// EnsureSchema is a no-op, the maps exist from construction.
func (s *inMemory) EnsureSchema(_ context.Context) error {
	return nil
}

// FindAll retrieves all products in id order.
func (s *inMemory) FindAll(_ context.Context) ([]Product, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	list := make([]Product, 0, len(s.products))
	for _, p := range s.products {
		list = append(list, p)
	}
	sort.Slice(list, func(i, j int) bool { return list[i].ID < list[j].ID })
	return list, nil
}

// Create creates a new product and returns it.
func (s *inMemory) Create(_ context.Context, name string, price float64, quantity int) (*Product, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.nameTaken(name, 0) {
		return nil, fmt.Errorf("%w: UNIQUE constraint failed: products.name", ierrors.ErrStorage)
	}
	product := Product{
		ID:       s.nextID,
		Name:     name,
		Price:    price,
		Quantity: quantity,
	}
	s.nextID++
	s.products[product.ID] = product

	return &product, nil
}

// Update overwrites a product by its ID.
func (s *inMemory) Update(_ context.Context, id int64, name string, price float64, quantity int) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.products[id]; !exists {
		return ierrors.ErrProductNotFound
	}
	if s.nameTaken(name, id) {
		return fmt.Errorf("%w: UNIQUE constraint failed: products.name", ierrors.ErrStorage)
	}
	s.products[id] = Product{ID: id, Name: name, Price: price, Quantity: quantity}
	return nil
}

// UpdateQuantity overwrites the quantity of a product.
func (s *inMemory) UpdateQuantity(_ context.Context, id int64, quantity int) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.setQuantity(id, quantity)
}

// DeleteByID deletes a product by its ID.
func (s *inMemory) DeleteByID(_ context.Context, id int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.products[id]; !exists {
		return ierrors.ErrProductNotFound
	}
	delete(s.products, id)
	return nil
}

// RecordSale updates the quantity and appends the sale under one lock.
func (s *inMemory) RecordSale(_ context.Context, productID int64, remaining int, sale Sale) (*Sale, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.setQuantity(productID, remaining); err != nil {
		return nil, err
	}
	sale.ID = s.nextSaleID
	s.nextSaleID++
	s.sales = append(s.sales, sale)
	return &sale, nil
}

// SumSales sums total prices over the range.
func (s *inMemory) SumSales(_ context.Context, r DateRange) (float64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var total float64
	for _, sale := range s.sales {
		if inRange(sale.Date, r) {
			total += sale.TotalPrice
		}
	}
	return total, nil
}

// FindSales returns the sales in the range.
func (s *inMemory) FindSales(_ context.Context, r DateRange) ([]Sale, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	list := make([]Sale, 0, len(s.sales))
	for _, sale := range s.sales {
		if inRange(sale.Date, r) {
			list = append(list, sale)
		}
	}
	return list, nil
}

// DeleteAllSales drops the sales history.
func (s *inMemory) DeleteAllSales(_ context.Context) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	n := int64(len(s.sales))
	s.sales = nil
	return n, nil
}

// Close is a no-op.
func (s *inMemory) Close() error {
	return nil
}

func (s *inMemory) setQuantity(id int64, quantity int) error {
	p, exists := s.products[id]
	if !exists {
		return ierrors.ErrProductNotFound
	}
	p.Quantity = quantity
	s.products[id] = p
	return nil
}

// nameTaken reports whether another product than except already uses name.
func (s *inMemory) nameTaken(name string, except int64) bool {
	for id, p := range s.products {
		if id != except && p.Name == name {
			return true
		}
	}
	return false
}

// inRange mirrors SQL "date BETWEEN start AND end" on strings.
func inRange(date string, r DateRange) bool {
	if !r.Bounded() {
		return true
	}
	return date >= r.Start && date <= r.End
}
