package console

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	ierrors "github.com/abgdnv/storekeeper/internal/inventory/errors"
	"github.com/abgdnv/storekeeper/internal/inventory/service"
	"github.com/abgdnv/storekeeper/internal/platform/calendar"
	"github.com/abgdnv/storekeeper/internal/platform/digits"
	"github.com/spf13/cast"
)

const helpText = `Commands:
  list                                 show all products
  add NAME|PRICE|QTY                   add a product
  edit ID|NAME|PRICE|QTY               overwrite a product
  sell NAME|QTY                        sell a product
  setqty ID|QTY                        set the quantity in stock
  search TEXT                          find products by name
  remove ID                            delete a product
  report [START|END]                   total sales, optionally between two dates
  history [START|END]                  list sales, optionally between two dates
  inventory                            total inventory value
  session                              sales made since start
  lowstock                             products running out
  clear                                delete the sales history
  export products FILE.csv             write products to a CSV file
  export sales FILE.xlsx [START|END]   write sales to a workbook
  help                                 show this text
  quit                                 exit
Dates are YYYY-MM-DD.`

var errBadNumber = errors.New("invalid number")

// execute runs one command line. It returns false when the console should stop.
func (c *Console) execute(ctx context.Context, line string) bool {
	line = strings.TrimSpace(line)
	if line == "" {
		return true
	}
	verb, rest, _ := strings.Cut(line, " ")
	verb = strings.ToLower(verb)
	rest = strings.TrimSpace(rest)
	c.logger.DebugContext(ctx, "command received", slog.String("command", verb))

	var err error
	switch verb {
	case "quit", "exit":
		return false
	case "help":
		c.println(helpText)
	case "list":
		err = c.svc.Reload(ctx)
	case "add":
		err = c.add(ctx, rest)
	case "edit":
		err = c.edit(ctx, rest)
	case "sell":
		err = c.sell(ctx, rest)
	case "setqty":
		err = c.setQuantity(ctx, rest)
	case "search":
		c.search(rest)
	case "remove":
		err = c.remove(ctx, rest)
	case "report":
		err = c.report(ctx, rest)
	case "history":
		err = c.history(ctx, rest)
	case "inventory":
		c.println(c.printer.Sprintf("Total inventory value based on product prices: %s", c.amount(c.svc.TotalInventoryValue())))
	case "session":
		c.println(c.printer.Sprintf("Sales in this session: %s", c.amount(int64(c.svc.SessionSales()))))
	case "lowstock":
		err = c.lowStock(ctx)
	case "clear":
		err = c.clear(ctx)
	case "export":
		err = c.export(ctx, rest)
	default:
		c.println(fmt.Sprintf("Unknown command %q. Type \"help\" for the list of commands.", verb))
	}

	if err != nil {
		if errors.Is(err, context.Canceled) {
			return false
		}
		c.logger.DebugContext(ctx, "command failed", slog.String("command", verb), slog.Any("error", err))
		c.println("Error: " + userMessage(err))
	}
	return true
}

func (c *Console) add(ctx context.Context, rest string) error {
	args, err := fields(rest, 3)
	if err != nil {
		return err
	}
	price, err := parseOptionalFloat(args[1])
	if err != nil {
		return err
	}
	quantity, err := parseOptionalInt(args[2])
	if err != nil {
		return err
	}
	if _, err := c.svc.AddProduct(ctx, args[0], price, quantity); err != nil {
		return err
	}
	c.println("Product added successfully.")
	return nil
}

func (c *Console) edit(ctx context.Context, rest string) error {
	args, err := fields(rest, 4)
	if err != nil {
		return err
	}
	id, err := parseID(args[0])
	if err != nil {
		return err
	}
	price, err := parseFloat(args[2])
	if err != nil {
		return err
	}
	quantity, err := parseInt(args[3])
	if err != nil {
		return err
	}
	if err := c.svc.EditProduct(ctx, id, args[1], price, quantity); err != nil {
		return err
	}
	c.println("Product updated successfully.")
	return nil
}

func (c *Console) sell(ctx context.Context, rest string) error {
	args, err := fields(rest, 2)
	if err != nil {
		return err
	}
	quantity, err := parseInt(args[1])
	if err != nil {
		return err
	}
	receipt, err := c.svc.SellProduct(ctx, args[0], quantity)
	if err != nil {
		return err
	}
	c.println("Total price: " + c.amount(int64(receipt.TotalPrice)))
	return nil
}

func (c *Console) setQuantity(ctx context.Context, rest string) error {
	args, err := fields(rest, 2)
	if err != nil {
		return err
	}
	id, err := parseID(args[0])
	if err != nil {
		return err
	}
	quantity, err := parseInt(args[1])
	if err != nil {
		return err
	}
	if err := c.svc.UpdateProductQuantity(ctx, id, quantity); err != nil {
		return err
	}
	c.println("Quantity updated successfully.")
	return nil
}

func (c *Console) search(rest string) {
	results := c.svc.SearchProduct(rest)
	if len(results) == 0 {
		c.println("No product found.")
		return
	}
	c.renderProducts(results)
}

func (c *Console) remove(ctx context.Context, rest string) error {
	id, err := parseID(rest)
	if err != nil {
		return err
	}
	ok, err := c.confirm(ctx, "Are you sure you want to delete this product?")
	if err != nil || !ok {
		return err
	}
	if err := c.svc.RemoveProduct(ctx, id); err != nil {
		return err
	}
	c.println("Product deleted successfully.")
	return nil
}

func (c *Console) report(ctx context.Context, rest string) error {
	r, err := dateRange(rest)
	if err != nil {
		return err
	}
	total, err := c.svc.SalesReport(ctx, r)
	if err != nil {
		return err
	}
	if r.Bounded() {
		c.println(fmt.Sprintf("Total sales between %s and %s: %s", r.Start, r.End, c.amount(total)))
	} else {
		c.println("Total sales: " + c.amount(total))
	}
	return nil
}

func (c *Console) history(ctx context.Context, rest string) error {
	r, err := dateRange(rest)
	if err != nil {
		return err
	}
	sales, err := c.svc.SalesHistory(ctx, r)
	if err != nil {
		return err
	}
	if len(sales) == 0 {
		c.println("No sales found.")
		return nil
	}
	c.renderSales(sales)
	return nil
}

func (c *Console) lowStock(ctx context.Context) error {
	results, err := c.svc.LowStock(ctx, c.threshold)
	if err != nil {
		return err
	}
	c.discardSnapshot()
	if len(results) == 0 {
		c.println("No low-stock products found.")
		return nil
	}
	c.renderProducts(results)
	return nil
}

func (c *Console) clear(ctx context.Context) error {
	ok, err := c.confirm(ctx, "Delete all sales history?")
	if err != nil || !ok {
		return err
	}
	if err := c.svc.ClearSalesHistory(ctx); err != nil {
		return err
	}
	c.println("Sales history cleared.")
	return nil
}

func (c *Console) export(ctx context.Context, rest string) error {
	parts := strings.Fields(rest)
	if len(parts) < 2 {
		return fmt.Errorf("%w: usage: export products FILE.csv | export sales FILE.xlsx [START|END]", ierrors.ErrValidation)
	}
	kind, name := strings.ToLower(parts[0]), parts[1]

	var path string
	var err error
	switch kind {
	case "products":
		if len(parts) > 2 {
			return fmt.Errorf("%w: unexpected arguments after the file name", ierrors.ErrValidation)
		}
		path, err = c.exporter.ProductsCSV(name, c.svc.Products())
	case "sales":
		var r service.DateRange
		if r, err = dateRange(strings.Join(parts[2:], " ")); err != nil {
			return err
		}
		var sales []service.SaleDto
		if sales, err = c.svc.SalesHistory(ctx, r); err != nil {
			return err
		}
		path, err = c.exporter.SalesXLSX(name, sales)
	default:
		return fmt.Errorf("%w: unknown export %q", ierrors.ErrValidation, kind)
	}
	if err != nil {
		return err
	}
	c.println("Exported to " + path)
	return nil
}

// fields splits n "|"-separated arguments and trims each of them.
func fields(rest string, n int) ([]string, error) {
	if rest == "" {
		return nil, fmt.Errorf("%w: missing arguments", ierrors.ErrValidation)
	}
	args := strings.Split(rest, "|")
	if len(args) != n {
		return nil, fmt.Errorf("%w: expected %d arguments separated by |, got %d", ierrors.ErrValidation, n, len(args))
	}
	for i := range args {
		args[i] = strings.TrimSpace(args[i])
	}
	return args, nil
}

// dateRange parses "" or "START|END". Both bounds are required when any is given.
func dateRange(rest string) (service.DateRange, error) {
	if strings.TrimSpace(rest) == "" {
		return service.DateRange{}, nil
	}
	args, err := fields(rest, 2)
	if err != nil {
		return service.DateRange{}, err
	}
	start, err := calendar.NormalizeDate(args[0])
	if err != nil {
		return service.DateRange{}, err
	}
	end, err := calendar.NormalizeDate(args[1])
	if err != nil {
		return service.DateRange{}, err
	}
	if start == "" || end == "" {
		return service.DateRange{}, fmt.Errorf("%w: both a start and an end date are required", ierrors.ErrValidation)
	}
	return service.DateRange{Start: start, End: end}, nil
}

// numeric normalizes digits and drops leading zeros so that "08" is not read as octal.
func numeric(s string) string {
	s = strings.TrimSpace(digits.Normalize(s))
	sign := ""
	if strings.HasPrefix(s, "-") || strings.HasPrefix(s, "+") {
		sign, s = s[:1], s[1:]
	}
	if trimmed := strings.TrimLeft(s, "0"); trimmed != s {
		if trimmed == "" || trimmed[0] == '.' {
			trimmed = "0" + trimmed
		}
		s = trimmed
	}
	return sign + s
}

func parseInt(s string) (int, error) {
	n, err := cast.ToIntE(numeric(s))
	if err != nil {
		return 0, errBadNumber
	}
	return n, nil
}

func parseID(s string) (int64, error) {
	n, err := cast.ToInt64E(numeric(s))
	if err != nil {
		return 0, errBadNumber
	}
	return n, nil
}

func parseFloat(s string) (float64, error) {
	f, err := cast.ToFloat64E(numeric(s))
	if err != nil {
		return 0, errBadNumber
	}
	return f, nil
}

// parseOptionalInt reads an empty field as 0.
func parseOptionalInt(s string) (int, error) {
	if strings.TrimSpace(s) == "" {
		return 0, nil
	}
	return parseInt(s)
}

// parseOptionalFloat reads an empty field as 0.
func parseOptionalFloat(s string) (float64, error) {
	if strings.TrimSpace(s) == "" {
		return 0, nil
	}
	return parseFloat(s)
}

// userMessage turns an error into the text shown to the user.
func userMessage(err error) string {
	switch {
	case errors.Is(err, errBadNumber):
		return "Please enter valid numeric values."
	case errors.Is(err, ierrors.ErrDuplicateName):
		return "A product with this name already exists."
	case errors.Is(err, ierrors.ErrProductNotFound):
		return "Product not found."
	case errors.Is(err, ierrors.ErrInsufficientStock):
		return "Not enough quantity in stock."
	case errors.Is(err, ierrors.ErrStorage):
		return "Database error: " + err.Error()
	case errors.Is(err, calendar.ErrInvalidDate):
		return calendar.ErrInvalidDate.Error()
	default:
		return err.Error()
	}
}
