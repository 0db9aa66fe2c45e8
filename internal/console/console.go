// Package console is a line-oriented front end for the inventory service.
//
// Commands are read one per line. Arguments are separated by "|" so that
// product names may contain spaces, e.g. "add Blue Pen|25000|10".
package console

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"sync"
	"text/tabwriter"

	"github.com/abgdnv/storekeeper/internal/export"
	"github.com/abgdnv/storekeeper/internal/inventory/service"
	"github.com/abgdnv/storekeeper/internal/platform/logger"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

const prompt = "> "

// Subscriber registers event handlers. github.com/asaskevich/EventBus satisfies it.
type Subscriber interface {
	Subscribe(topic string, fn interface{}) error
}

// Options configures a Console.
type Options struct {
	Currency          string
	LowStockThreshold int
	Logger            *slog.Logger
}

// Console runs the read-eval-print loop.
type Console struct {
	svc       service.InventoryService
	exporter  *export.Exporter
	in        io.Reader
	out       io.Writer
	logger    *slog.Logger
	printer   *message.Printer
	currency  string
	threshold int

	lines <-chan string

	mu       sync.Mutex
	snapshot []service.ProductDto // last published snapshot, nil once rendered
	warnings []string
}

// New creates a console reading commands from in and writing to out.
// It subscribes to the service's events on bus.
func New(svc service.InventoryService, exporter *export.Exporter, bus Subscriber, in io.Reader, out io.Writer, opts Options) (*Console, error) {
	c := &Console{
		svc:       svc,
		exporter:  exporter,
		in:        in,
		out:       out,
		logger:    opts.Logger,
		printer:   message.NewPrinter(language.English),
		currency:  opts.Currency,
		threshold: opts.LowStockThreshold,
	}
	if c.logger == nil {
		c.logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	if err := bus.Subscribe(service.TopicProductsReloaded, c.onProductsReloaded); err != nil {
		return nil, fmt.Errorf("failed to subscribe to %s: %w", service.TopicProductsReloaded, err)
	}
	if err := bus.Subscribe(service.TopicSaleRecorded, c.onSaleRecorded); err != nil {
		return nil, fmt.Errorf("failed to subscribe to %s: %w", service.TopicSaleRecorded, err)
	}
	return c, nil
}

// Run shows the product table and processes commands until quit, end of
// input or cancellation of ctx. Only cancellation returns an error.
func (c *Console) Run(ctx context.Context) error {
	c.lines = readLines(ctx, c.in)

	c.renderProducts(c.svc.Products())
	c.println("Type \"help\" for the list of commands.")
	for {
		fmt.Fprint(c.out, prompt)
		line, ok, err := c.next(ctx)
		if err != nil {
			return err
		}
		if !ok {
			c.println("")
			return nil
		}
		if !c.safeExecute(logger.WithOperation(ctx), line) {
			return nil
		}
		c.flushEvents()
	}
}

// safeExecute runs a command and recovers from a panic in it.
func (c *Console) safeExecute(ctx context.Context, line string) (proceed bool) {
	defer func() {
		if rvr := recover(); rvr != nil {
			c.logger.ErrorContext(ctx, "panic recovered", slog.Any("panic", rvr), slog.String("line", line))
			c.println("Error: internal error, see the log for details.")
			proceed = true
		}
	}()
	return c.execute(ctx, line)
}

// next returns the next input line. ok is false at end of input.
func (c *Console) next(ctx context.Context) (line string, ok bool, err error) {
	select {
	case <-ctx.Done():
		return "", false, ctx.Err()
	case line, ok = <-c.lines:
		return line, ok, nil
	}
}

// readLines feeds the lines of r into a channel that is closed at EOF.
// The goroutine can outlive ctx while blocked on a read.
func readLines(ctx context.Context, r io.Reader) <-chan string {
	lines := make(chan string)
	go func() {
		defer close(lines)
		scanner := bufio.NewScanner(r)
		for scanner.Scan() {
			select {
			case lines <- scanner.Text():
			case <-ctx.Done():
				return
			}
		}
	}()
	return lines
}

// confirm asks a yes/no question. Anything but y or yes is a no.
func (c *Console) confirm(ctx context.Context, question string) (bool, error) {
	fmt.Fprintf(c.out, "%s (y/n) ", question)
	answer, ok, err := c.next(ctx)
	if err != nil || !ok {
		return false, err
	}
	switch strings.ToLower(strings.TrimSpace(answer)) {
	case "y", "yes":
		return true, nil
	default:
		return false, nil
	}
}

func (c *Console) onProductsReloaded(products []service.ProductDto) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.snapshot = products
}

func (c *Console) onSaleRecorded(receipt service.SaleReceipt) {
	if receipt.Remaining > c.threshold {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.warnings = append(c.warnings,
		c.printer.Sprintf("Warning: only %d left of %s.", receipt.Remaining, receipt.ProductName))
}

// flushEvents prints what the events of the last command left behind.
func (c *Console) flushEvents() {
	c.mu.Lock()
	snapshot, warnings := c.snapshot, c.warnings
	c.snapshot, c.warnings = nil, nil
	c.mu.Unlock()

	if snapshot != nil {
		c.renderProducts(snapshot)
	}
	for _, w := range warnings {
		c.println(w)
	}
}

// discardSnapshot drops a pending snapshot for commands that print their own table.
func (c *Console) discardSnapshot() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.snapshot = nil
}

func (c *Console) renderProducts(products []service.ProductDto) {
	tw := tabwriter.NewWriter(c.out, 0, 0, 2, ' ', 0)
	fmt.Fprintf(tw, "ID\tName\tQuantity\tPrice (%s)\n", c.currency)
	for _, p := range products {
		fmt.Fprintf(tw, "%d\t%s\t%s\t%s\n", p.ID, p.Name, c.printer.Sprintf("%d", p.Quantity), c.price(p.Price))
	}
	_ = tw.Flush()
}

func (c *Console) renderSales(sales []service.SaleDto) {
	tw := tabwriter.NewWriter(c.out, 0, 0, 2, ' ', 0)
	fmt.Fprintf(tw, "ID\tDate\tProduct\tQuantity\tTotal (%s)\n", c.currency)
	for _, s := range sales {
		fmt.Fprintf(tw, "%d\t%s\t%s\t%s\t%s\n", s.ID, s.Date, s.ProductName, c.printer.Sprintf("%d", s.Quantity), c.price(s.TotalPrice))
	}
	_ = tw.Flush()
}

// amount formats an integral sum with thousands separators and the currency unit.
func (c *Console) amount(v int64) string {
	return c.printer.Sprintf("%d %s", v, c.currency)
}

// price formats a unit price, dropping the fraction when it is zero.
func (c *Console) price(v float64) string {
	if v == float64(int64(v)) {
		return c.printer.Sprintf("%d", int64(v))
	}
	return c.printer.Sprintf("%.2f", v)
}

func (c *Console) println(s string) {
	fmt.Fprintln(c.out, s)
}
