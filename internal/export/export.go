// Package export writes product and sales snapshots to spreadsheet files.
package export

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/360EntSecGroup-Skylar/excelize"
	"github.com/abgdnv/storekeeper/internal/inventory/service"
	"github.com/gocarina/gocsv"
)

// SalesSheet is the worksheet the sales workbook is written to.
const SalesSheet = "Sheet1"

var salesHeader = []string{"ID", "Product", "Quantity", "Total", "Date"}

// Exporter writes export files into a base directory.
type Exporter struct {
	dir    string
	logger *slog.Logger
}

// New creates an Exporter rooted at dir.
func New(dir string, logger *slog.Logger) *Exporter {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &Exporter{dir: dir, logger: logger}
}

// Path resolves name against the export directory. Absolute names are kept.
func (e *Exporter) Path(name string) string {
	if filepath.IsAbs(name) {
		return name
	}
	return filepath.Join(e.dir, name)
}

// ProductsCSV writes products to the CSV file name and returns its path.
func (e *Exporter) ProductsCSV(name string, products []service.ProductDto) (string, error) {
	path := e.Path(name)
	f, err := os.Create(path)
	if err != nil {
		return "", fmt.Errorf("failed to create %s: %w", path, err)
	}
	if err := Products(f, products); err != nil {
		_ = f.Close()
		return "", err
	}
	if err := f.Close(); err != nil {
		return "", fmt.Errorf("failed to close %s: %w", path, err)
	}
	e.logger.Info("products exported", slog.String("path", path), slog.Int("rows", len(products)))
	return path, nil
}

// SalesXLSX writes sales to the workbook name and returns its path.
func (e *Exporter) SalesXLSX(name string, sales []service.SaleDto) (string, error) {
	path := e.Path(name)
	if err := salesWorkbook(sales).SaveAs(path); err != nil {
		return "", fmt.Errorf("failed to save %s: %w", path, err)
	}
	e.logger.Info("sales exported", slog.String("path", path), slog.Int("rows", len(sales)))
	return path, nil
}

// Products writes products as CSV with an id,name,price,quantity header.
func Products(w io.Writer, products []service.ProductDto) error {
	if products == nil {
		products = []service.ProductDto{}
	}
	if err := gocsv.Marshal(products, w); err != nil {
		return fmt.Errorf("failed to write products csv: %w", err)
	}
	return nil
}

// Sales writes sales as an XLSX workbook: a header row, then one row per sale.
func Sales(w io.Writer, sales []service.SaleDto) error {
	if err := salesWorkbook(sales).Write(w); err != nil {
		return fmt.Errorf("failed to write sales workbook: %w", err)
	}
	return nil
}

func salesWorkbook(sales []service.SaleDto) *excelize.File {
	xlsx := excelize.NewFile()
	for col, title := range salesHeader {
		xlsx.SetCellValue(SalesSheet, cell(col, 1), title)
	}
	for i, s := range sales {
		row := i + 2
		xlsx.SetCellValue(SalesSheet, cell(0, row), s.ID)
		xlsx.SetCellValue(SalesSheet, cell(1, row), s.ProductName)
		xlsx.SetCellValue(SalesSheet, cell(2, row), s.Quantity)
		xlsx.SetCellValue(SalesSheet, cell(3, row), s.TotalPrice)
		xlsx.SetCellValue(SalesSheet, cell(4, row), s.Date)
	}
	return xlsx
}

// cell returns the A1-style reference of a zero-based column and one-based row.
func cell(col, row int) string {
	return fmt.Sprintf("%c%d", 'A'+col, row)
}
