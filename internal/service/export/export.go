// Package export downloads backend CSV exports and converts or forwards them.
package export

import (
	"bytes"
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/xuri/excelize/v2"
	"go.uber.org/zap"

	"github.com/mamadbah2/partsdesk/internal/repository/sheets"
	client "github.com/mamadbah2/partsdesk/pkg/clients/inventory"
)

// Kind selects which backend export to download.
type Kind string

const (
	KindItems Kind = "items"
	KindSales Kind = "sales"
)

// Format is the file format handed to the caller.
type Format string

const (
	FormatCSV  Format = "csv"
	FormatXLSX Format = "xlsx"
)

const (
	ContentTypeCSV  = "text/csv"
	ContentTypeXLSX = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
)

// ErrSheetsDisabled is returned by SyncSheets when no spreadsheet is configured.
var ErrSheetsDisabled = errors.New("google sheets export is not configured")

// File is a downloaded export ready to be served or written.
type File struct {
	Name        string
	ContentType string
	Data        []byte
}

// ParseKind validates a user supplied export kind.
func ParseKind(raw string) (Kind, error) {
	switch Kind(strings.ToLower(strings.TrimSpace(raw))) {
	case KindItems:
		return KindItems, nil
	case KindSales:
		return KindSales, nil
	default:
		return "", fmt.Errorf("unknown export %q, expected items or sales", raw)
	}
}

// ParseFormat validates a user supplied format. Empty means CSV.
func ParseFormat(raw string) (Format, error) {
	switch Format(strings.ToLower(strings.TrimSpace(raw))) {
	case "", FormatCSV:
		return FormatCSV, nil
	case FormatXLSX:
		return FormatXLSX, nil
	default:
		return "", fmt.Errorf("unknown format %q, expected csv or xlsx", raw)
	}
}

// FileName is the dated download name, e.g. stock_items_2026-10-19.csv.
func FileName(kind Kind, format Format, at time.Time) string {
	prefix := "stock_items"
	if kind == KindSales {
		prefix = "sales_history"
	}
	return fmt.Sprintf("%s_%s.%s", prefix, at.Format("2006-01-02"), format)
}

// Options configures a Service. Sheets may be nil.
type Options struct {
	Sheets     sheets.Repository
	SheetRange string
	Dir        string
	Logger     *zap.Logger
}

// Service produces export files from the backend.
type Service struct {
	client     client.Client
	sheets     sheets.Repository
	sheetRange string
	dir        string
	logger     *zap.Logger
	now        func() time.Time
}

// NewService builds an export service.
func NewService(c client.Client, opts Options) *Service {
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}
	return &Service{
		client:     c,
		sheets:     opts.Sheets,
		sheetRange: opts.SheetRange,
		dir:        opts.Dir,
		logger:     opts.Logger,
		now:        time.Now,
	}
}

// Download fetches an export from the backend in the requested format.
func (s *Service) Download(ctx context.Context, kind Kind, format Format) (*File, error) {
	data, err := s.fetch(ctx, kind)
	if err != nil {
		return nil, err
	}

	file := &File{
		Name:        FileName(kind, format, s.now()),
		ContentType: ContentTypeCSV,
		Data:        data,
	}
	if format == FormatXLSX {
		xlsx, err := CSVToXLSX(data, string(kind))
		if err != nil {
			return nil, fmt.Errorf("convert %s export: %w", kind, err)
		}
		file.ContentType = ContentTypeXLSX
		file.Data = xlsx
	}

	s.logger.Debug("export downloaded", zap.String("kind", string(kind)), zap.String("file", file.Name), zap.Int("bytes", len(file.Data)))
	return file, nil
}

// Save downloads an export and writes it into the export directory,
// returning the written path.
func (s *Service) Save(ctx context.Context, kind Kind, format Format) (string, error) {
	file, err := s.Download(ctx, kind, format)
	if err != nil {
		return "", err
	}
	return s.Write(file)
}

// Write stores file in the export directory.
func (s *Service) Write(file *File) (string, error) {
	dir := s.dir
	if dir == "" {
		dir = "."
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("create export dir: %w", err)
	}

	path := filepath.Join(dir, file.Name)
	if err := os.WriteFile(path, file.Data, 0o644); err != nil {
		return "", fmt.Errorf("write export %s: %w", path, err)
	}

	s.logger.Info("export written", zap.String("path", path))
	return path, nil
}

// SyncSheets mirrors the items export into the configured sheet range.
func (s *Service) SyncSheets(ctx context.Context) error {
	if s.sheets == nil {
		return ErrSheetsDisabled
	}

	data, err := s.fetch(ctx, KindItems)
	if err != nil {
		return err
	}
	records, err := parseCSV(data)
	if err != nil {
		return fmt.Errorf("parse items export: %w", err)
	}

	rows := make([][]interface{}, 0, len(records))
	for i, record := range records {
		row := make([]interface{}, len(record))
		for j, value := range record {
			if i == 0 {
				row[j] = value
				continue
			}
			row[j] = cellValue(value)
		}
		rows = append(rows, row)
	}

	if err := s.sheets.ReplaceRange(ctx, s.sheetRange, rows); err != nil {
		return fmt.Errorf("sync items to sheets: %w", err)
	}

	s.logger.Info("items synced to sheets", zap.String("range", s.sheetRange), zap.Int("rows", len(rows)))
	return nil
}

func (s *Service) fetch(ctx context.Context, kind Kind) ([]byte, error) {
	switch kind {
	case KindItems:
		return s.client.ExportItems(ctx)
	case KindSales:
		return s.client.ExportSales(ctx)
	default:
		return nil, fmt.Errorf("unknown export kind %q", kind)
	}
}

// CSVToXLSX renders a CSV blob as a single-sheet workbook. Numeric cells are
// stored as numbers, the header row as text.
func CSVToXLSX(data []byte, sheetName string) ([]byte, error) {
	records, err := parseCSV(data)
	if err != nil {
		return nil, err
	}

	f := excelize.NewFile()
	defer func() { _ = f.Close() }()

	sheet := f.GetSheetName(f.GetActiveSheetIndex())
	if sheetName != "" && sheetName != sheet {
		if err := f.SetSheetName(sheet, sheetName); err != nil {
			return nil, fmt.Errorf("rename sheet: %w", err)
		}
		sheet = sheetName
	}

	for i, record := range records {
		row := make([]interface{}, len(record))
		for j, value := range record {
			if i == 0 {
				row[j] = value
				continue
			}
			row[j] = cellValue(value)
		}

		cell, err := excelize.CoordinatesToCellName(1, i+1)
		if err != nil {
			return nil, err
		}
		if err := f.SetSheetRow(sheet, cell, &row); err != nil {
			return nil, fmt.Errorf("write row %d: %w", i+1, err)
		}
	}

	buf := &bytes.Buffer{}
	if err := f.Write(buf); err != nil {
		return nil, fmt.Errorf("write workbook: %w", err)
	}
	return buf.Bytes(), nil
}

func parseCSV(data []byte) ([][]string, error) {
	r := csv.NewReader(bytes.NewReader(data))
	r.FieldsPerRecord = -1
	r.TrimLeadingSpace = true
	return r.ReadAll()
}

func cellValue(value string) interface{} {
	if n, err := strconv.Atoi(value); err == nil {
		return n
	}
	if f, err := strconv.ParseFloat(value, 64); err == nil {
		return f
	}
	return value
}
