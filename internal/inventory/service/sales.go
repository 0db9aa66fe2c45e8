package service

import (
	"context"
	"fmt"
	"log/slog"

	ierrors "github.com/abgdnv/storekeeper/internal/inventory/errors"
	"github.com/abgdnv/storekeeper/internal/inventory/store"
	"github.com/shopspring/decimal"
)

// SaleReceipt describes a completed sale.
type SaleReceipt struct {
	SaleID      int64
	ProductID   int64
	ProductName string
	UnitPrice   float64
	Quantity    int
	TotalPrice  float64
	Remaining   int
	Date        string
}

// SaleDto is a row of the sales history.
type SaleDto struct {
	ID          int64   `json:"id"`
	ProductName string  `json:"product_name"`
	Quantity    int     `json:"quantity"`
	TotalPrice  float64 `json:"total_price"`
	Date        string  `json:"date"`
}

// SellProduct sells quantity units of the product named name.
// The cache is reloaded before the stock check so that the check sees the stored quantity.
func (s *Service) SellProduct(ctx context.Context, name string, quantity int) (*SaleReceipt, error) {
	if quantity <= 0 {
		return nil, fmt.Errorf("%w: quantity to sell must be positive", ierrors.ErrValidation)
	}
	if err := s.Reload(ctx); err != nil {
		return nil, err
	}

	product, found := s.cached(name)
	if !found {
		return nil, fmt.Errorf("%w: %q", ierrors.ErrProductNotFound, name)
	}
	if product.Quantity < quantity {
		return nil, fmt.Errorf("%w: %d requested, %d available", ierrors.ErrInsufficientStock, quantity, product.Quantity)
	}

	total := lineTotal(product.Price, quantity)
	remaining := product.Quantity - quantity
	sale, err := s.repository.RecordSale(ctx, product.ID, remaining, store.Sale{
		ProductName: product.Name,
		Quantity:    quantity,
		TotalPrice:  total.InexactFloat64(),
		Date:        s.calendar.Today(),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to sell product %q: %w", name, err)
	}

	s.mu.Lock()
	s.sessionSales = s.sessionSales.Add(total)
	s.mu.Unlock()

	s.logger.InfoContext(ctx, "product sold",
		slog.Int64("sale_id", sale.ID), slog.String("name", product.Name),
		slog.Int("quantity", quantity), slog.Float64("total", sale.TotalPrice),
		slog.Int("remaining", remaining), slog.String("date", sale.Date))

	s.reloadAfterWrite(ctx)

	receipt := &SaleReceipt{
		SaleID:      sale.ID,
		ProductID:   product.ID,
		ProductName: product.Name,
		UnitPrice:   product.Price,
		Quantity:    quantity,
		TotalPrice:  sale.TotalPrice,
		Remaining:   remaining,
		Date:        sale.Date,
	}
	s.events.Publish(TopicSaleRecorded, *receipt)
	return receipt, nil
}

// sumPlaces is the precision a storage engine's floating-point SUM is rounded to
// before truncation, so that 0.1 summed ten times reports 1 and not 0.
const sumPlaces = 6

// SalesReport returns the integer part of the sales total in the range.
// Without both bounds every sale is counted. No sales yields 0.
func (s *Service) SalesReport(ctx context.Context, r DateRange) (int64, error) {
	total, err := s.repository.SumSales(ctx, r)
	if err != nil {
		return 0, fmt.Errorf("failed to compute sales report: %w", err)
	}
	return decimal.NewFromFloat(total).Round(sumPlaces).IntPart(), nil
}

// SalesHistory returns the sales in the range in insertion order.
func (s *Service) SalesHistory(ctx context.Context, r DateRange) ([]SaleDto, error) {
	sales, err := s.repository.FindSales(ctx, r)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch sales: %w", err)
	}
	dtos := make([]SaleDto, len(sales))
	for i, sale := range sales {
		dtos[i] = SaleDto{
			ID:          sale.ID,
			ProductName: sale.ProductName,
			Quantity:    sale.Quantity,
			TotalPrice:  sale.TotalPrice,
			Date:        sale.Date,
		}
	}
	return dtos, nil
}

// ClearSalesHistory deletes all sales. The session total is left as is.
func (s *Service) ClearSalesHistory(ctx context.Context) error {
	n, err := s.repository.DeleteAllSales(ctx)
	if err != nil {
		return fmt.Errorf("failed to clear sales history: %w", err)
	}
	s.logger.InfoContext(ctx, "sales history cleared", slog.Int64("deleted", n))
	return nil
}

// SessionSales returns the running total of this process's sales.
func (s *Service) SessionSales() float64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.sessionSales.InexactFloat64()
}
