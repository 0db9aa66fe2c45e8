// Package service provides the inventory logic on top of a storage engine.
//
// Service keeps an in-memory copy of the products table. The copy is replaced
// by Reload after every mutation, and before every sale, so duplicate checks
// and searches can run without a round-trip. Between reloads the cache can lag
// behind a writer outside this process.
package service

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"math"
	"strings"
	"sync"

	ierrors "github.com/abgdnv/storekeeper/internal/inventory/errors"
	"github.com/abgdnv/storekeeper/internal/inventory/store"
	"github.com/abgdnv/storekeeper/internal/platform/calendar"
	"github.com/go-playground/validator/v10"
	"github.com/shopspring/decimal"
)

// Event topics published by Service.
const (
	// TopicProductsReloaded carries the new snapshot as []ProductDto.
	TopicProductsReloaded = "inventory:products:reloaded"
	// TopicSaleRecorded carries the SaleReceipt of a successful sale.
	TopicSaleRecorded = "inventory:sale:recorded"
)

// InventoryService defines the operations offered to the presentation layer.
type InventoryService interface {
	// AddProduct creates a product after trimming its name.
	// Returns ErrValidation, ErrDuplicateName (checked against the cache) or ErrStorage.
	AddProduct(ctx context.Context, name string, price float64, quantity int) (*ProductDto, error)

	// EditProduct overwrites a product by id. The new name is not checked against
	// the cache; the storage engine's unique index is the only guard.
	// Returns ErrValidation, ErrProductNotFound or ErrStorage.
	EditProduct(ctx context.Context, id int64, name string, price float64, quantity int) error

	// SellProduct reloads the cache, then sells quantity units of the product with
	// exactly this name and records the sale.
	// Returns ErrValidation, ErrProductNotFound or ErrInsufficientStock.
	SellProduct(ctx context.Context, name string, quantity int) (*SaleReceipt, error)

	// UpdateProductQuantity overwrites the stock of a product. No lower bound is enforced.
	UpdateProductQuantity(ctx context.Context, id int64, quantity int) error

	// RemoveProduct deletes a product by id. Its sales stay in the history.
	RemoveProduct(ctx context.Context, id int64) error

	// SearchProduct returns cached products whose name contains namePart, ignoring case.
	SearchProduct(namePart string) []ProductDto

	// SalesReport sums the sales in the range, truncated to an integer like TotalInventoryValue.
	SalesReport(ctx context.Context, r DateRange) (int64, error)

	// SalesHistory returns the sales in the range.
	SalesHistory(ctx context.Context, r DateRange) ([]SaleDto, error)

	// ClearSalesHistory deletes every sale.
	ClearSalesHistory(ctx context.Context) error

	// TotalInventoryValue returns the sum of price x quantity over the cache, truncated.
	TotalInventoryValue() int64

	// LowStock reloads the cache and returns products with quantity <= threshold.
	LowStock(ctx context.Context, threshold int) ([]ProductDto, error)

	// SessionSales returns the total sold since this Service was created.
	// It is not persisted and can differ from SalesReport.
	SessionSales() float64

	// Products returns a copy of the cached snapshot.
	Products() []ProductDto

	// Reload replaces the cache with a fresh read of the products table.
	Reload(ctx context.Context) error
}

// DateRange is an inclusive range of calendar dates; see store.DateRange.
type DateRange = store.DateRange

// Publisher delivers change notifications. github.com/asaskevich/EventBus satisfies it.
type Publisher interface {
	Publish(topic string, args ...interface{})
}

// Service implements InventoryService.
type Service struct {
	repository store.Store
	calendar   calendar.Calendar
	events     Publisher
	logger     *slog.Logger
	validate   *validator.Validate

	mu           sync.RWMutex
	products     []store.Product
	sessionSales decimal.Decimal
}

var _ InventoryService = (*Service)(nil)

// Option configures a Service.
type Option func(*Service)

// WithCalendar sets the calendar used to date sales. Defaults to Jalali.
func WithCalendar(c calendar.Calendar) Option {
	return func(s *Service) { s.calendar = c }
}

// WithPublisher sets the receiver of change events.
func WithPublisher(p Publisher) Option {
	return func(s *Service) { s.events = p }
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(s *Service) { s.logger = l }
}

// New creates the service: it ensures the schema exists and loads the cache.
func New(ctx context.Context, repo store.Store, opts ...Option) (*Service, error) {
	s := &Service{
		repository: repo,
		events:     nopPublisher{},
		logger:     slog.New(slog.NewTextHandler(io.Discard, nil)),
		validate:   validator.New(validator.WithRequiredStructEnabled()),
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.calendar == nil {
		cal, err := calendar.New("jalali", nil)
		if err != nil {
			return nil, err
		}
		s.calendar = cal
	}

	if err := repo.EnsureSchema(ctx); err != nil {
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}
	if err := s.Reload(ctx); err != nil {
		return nil, err
	}
	return s, nil
}

// ProductDto represents a product as seen by callers.
type ProductDto struct {
	ID       int64   `json:"id"       csv:"id"`
	Name     string  `json:"name"     csv:"name"`
	Price    float64 `json:"price"    csv:"price"`
	Quantity int     `json:"quantity" csv:"quantity"`
}

// productInput holds the user-editable fields of a product.
type productInput struct {
	Name     string  `validate:"required"`
	Price    float64 `validate:"min=0"`
	Quantity int     `validate:"min=0"`
}

// Reload replaces the cache with the current products table and publishes the snapshot.
func (s *Service) Reload(ctx context.Context) error {
	products, err := s.repository.FindAll(ctx)
	if err != nil {
		return fmt.Errorf("failed to reload products: %w", err)
	}

	s.mu.Lock()
	s.products = products
	s.mu.Unlock()

	s.logger.DebugContext(ctx, "product cache reloaded", slog.Int("count", len(products)))
	s.events.Publish(TopicProductsReloaded, toDtos(products))
	return nil
}

// reloadAfterWrite refreshes the cache once a write has been committed.
// A failure is logged and leaves the cache stale until the next reload.
func (s *Service) reloadAfterWrite(ctx context.Context) {
	if err := s.Reload(ctx); err != nil {
		s.logger.WarnContext(ctx, "product cache is stale", slog.Any("error", err))
	}
}

// Products returns a copy of the cached snapshot in load order.
func (s *Service) Products() []ProductDto {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return toDtos(s.products)
}

// AddProduct validates and inserts a new product, then reloads the cache.
func (s *Service) AddProduct(ctx context.Context, name string, price float64, quantity int) (*ProductDto, error) {
	in := productInput{Name: strings.TrimSpace(name), Price: price, Quantity: quantity}
	if err := s.validateInput(in); err != nil {
		return nil, err
	}
	if _, found := s.cached(in.Name); found {
		return nil, fmt.Errorf("%w: %q", ierrors.ErrDuplicateName, in.Name)
	}

	created, err := s.repository.Create(ctx, in.Name, in.Price, in.Quantity)
	if err != nil {
		s.logger.WarnContext(ctx, "product insert rejected", slog.String("name", in.Name), slog.Any("error", err))
		return nil, fmt.Errorf("failed to add product %q: %w", in.Name, err)
	}
	s.logger.InfoContext(ctx, "product added",
		slog.Int64("id", created.ID), slog.String("name", created.Name),
		slog.Float64("price", created.Price), slog.Int("quantity", created.Quantity))

	s.reloadAfterWrite(ctx)
	return toDto(created), nil
}

// EditProduct overwrites a product by id and reloads the cache.
func (s *Service) EditProduct(ctx context.Context, id int64, name string, price float64, quantity int) error {
	in := productInput{Name: strings.TrimSpace(name), Price: price, Quantity: quantity}
	if err := s.validateInput(in); err != nil {
		return err
	}
	if err := s.repository.Update(ctx, id, in.Name, in.Price, in.Quantity); err != nil {
		return fmt.Errorf("failed to edit product with ID %d: %w", id, err)
	}
	s.logger.InfoContext(ctx, "product edited",
		slog.Int64("id", id), slog.String("name", in.Name),
		slog.Float64("price", in.Price), slog.Int("quantity", in.Quantity))
	s.reloadAfterWrite(ctx)
	return nil
}

// UpdateProductQuantity overwrites a product's quantity and reloads the cache.
func (s *Service) UpdateProductQuantity(ctx context.Context, id int64, quantity int) error {
	if err := s.repository.UpdateQuantity(ctx, id, quantity); err != nil {
		return fmt.Errorf("failed to update quantity for product with ID %d: %w", id, err)
	}
	s.logger.InfoContext(ctx, "product quantity updated", slog.Int64("id", id), slog.Int("quantity", quantity))
	s.reloadAfterWrite(ctx)
	return nil
}

// RemoveProduct deletes a product by id and reloads the cache.
func (s *Service) RemoveProduct(ctx context.Context, id int64) error {
	if err := s.repository.DeleteByID(ctx, id); err != nil {
		return fmt.Errorf("failed to remove product with ID %d: %w", id, err)
	}
	s.logger.InfoContext(ctx, "product removed", slog.Int64("id", id))
	s.reloadAfterWrite(ctx)
	return nil
}

// SearchProduct matches namePart against the cache, case-insensitively.
// An empty namePart matches every product.
func (s *Service) SearchProduct(namePart string) []ProductDto {
	needle := strings.ToLower(strings.TrimSpace(namePart))

	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]ProductDto, 0)
	for _, p := range s.products {
		if strings.Contains(strings.ToLower(p.Name), needle) {
			result = append(result, *toDto(&p))
		}
	}
	return result
}

// TotalInventoryValue sums price x quantity over the cache in exact decimal and
// truncates toward zero.
func (s *Service) TotalInventoryValue() int64 {
	s.mu.RLock()
	defer s.mu.RUnlock()

	total := decimal.Zero
	for _, p := range s.products {
		total = total.Add(lineTotal(p.Price, p.Quantity))
	}
	return total.IntPart()
}

// LowStock reloads the cache and returns products with quantity <= threshold.
func (s *Service) LowStock(ctx context.Context, threshold int) ([]ProductDto, error) {
	if err := s.Reload(ctx); err != nil {
		return nil, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]ProductDto, 0)
	for _, p := range s.products {
		if p.Quantity <= threshold {
			result = append(result, *toDto(&p))
		}
	}
	return result, nil
}

func (s *Service) validateInput(in productInput) error {
	if math.IsNaN(in.Price) || math.IsInf(in.Price, 0) {
		return fmt.Errorf("%w: price must be a finite number", ierrors.ErrValidation)
	}
	if err := s.validate.Struct(in); err != nil {
		return fmt.Errorf("%w: %s", ierrors.ErrValidation, describe(err))
	}
	return nil
}

// cached looks a product up by exact name in the cache.
func (s *Service) cached(name string) (store.Product, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, p := range s.products {
		if p.Name == name {
			return p, true
		}
	}
	return store.Product{}, false
}

// describe turns validator errors into a short user-facing message.
func describe(err error) string {
	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) || len(fieldErrs) == 0 {
		return err.Error()
	}
	fe := fieldErrs[0]
	switch {
	case fe.Field() == "Name" && fe.Tag() == "required":
		return "product name cannot be empty"
	case fe.Tag() == "min":
		return strings.ToLower(fe.Field()) + " must not be negative"
	default:
		return fmt.Sprintf("%s failed on %q", strings.ToLower(fe.Field()), fe.Tag())
	}
}

// lineTotal is price x quantity in exact decimal arithmetic. Both the stored
// sale totals and the inventory value are built from it.
func lineTotal(price float64, quantity int) decimal.Decimal {
	return decimal.NewFromFloat(price).Mul(decimal.NewFromInt(int64(quantity)))
}

// toDto converts a store.Product to a ProductDto.
func toDto(product *store.Product) *ProductDto {
	return &ProductDto{
		ID:       product.ID,
		Name:     product.Name,
		Price:    product.Price,
		Quantity: product.Quantity,
	}
}

func toDtos(products []store.Product) []ProductDto {
	dtos := make([]ProductDto, len(products))
	for i := range products {
		dtos[i] = *toDto(&products[i])
	}
	return dtos
}

type nopPublisher struct{}

func (nopPublisher) Publish(string, ...interface{}) {}
