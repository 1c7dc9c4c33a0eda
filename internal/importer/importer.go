package importer

import (
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/xuri/excelize/v2"

	"github.com/example/phrasebot/internal/database"
	"github.com/example/phrasebot/pkg/models"
)

// Config defines the import configuration
type Config struct {
	FilePath        string // Path to the Excel or CSV file
	GermanColumn    string // Column with the German phrase
	EnglishColumn   string // Column with the English translation
	ExampleColumn   string // Column with an example sentence
	FrequencyColumn string // Column with the relative frequency
	LevelColumn     string // Column with the CEFR level
	SheetName       string // Name of the sheet to import
	StartRow        int    // The row to start importing from (1-based index)
}

// DefaultConfig returns the default import configuration
func DefaultConfig() Config {
	return Config{
		GermanColumn:    "A",
		EnglishColumn:   "B",
		ExampleColumn:   "C",
		FrequencyColumn: "D",
		LevelColumn:     "E",
		SheetName:       "Sheet1",
		StartRow:        2, // Skip the header row
	}
}

// Result holds the result of an import operation
type Result struct {
	TotalProcessed int
	Created        int
	Updated        int
	Skipped        int
	Errors         []string
}

// Importer loads catalog items from Excel or CSV files.
type Importer struct {
	items *database.ItemRepository
}

// New creates an importer writing through the given repository.
func New(items *database.ItemRepository) *Importer {
	return &Importer{items: items}
}

// ImportItems imports phrases from an Excel or CSV file, dispatching on the
// file extension.
func (imp *Importer) ImportItems(ctx context.Context, config Config) (*Result, error) {
	if strings.ToLower(filepath.Ext(config.FilePath)) == ".csv" {
		return imp.importFromCSV(ctx, config)
	}
	return imp.importFromExcel(ctx, config)
}

// importFromExcel imports phrases from an Excel file
func (imp *Importer) importFromExcel(ctx context.Context, config Config) (*Result, error) {
	f, err := excelize.OpenFile(config.FilePath)
	if err != nil {
		return nil, fmt.Errorf("failed to open Excel file: %v", err)
	}
	defer f.Close()

	rows, err := f.GetRows(config.SheetName)
	if err != nil {
		return nil, fmt.Errorf("failed to get rows: %v", err)
	}

	result := &Result{Errors: make([]string, 0)}
	for i, row := range rows {
		if i < config.StartRow-1 {
			continue
		}
		result.TotalProcessed++
		if err := imp.processRow(ctx, rowValues(row, config), result); err != nil {
			result.Errors = append(result.Errors, fmt.Sprintf("Row %d: %v", i+1, err))
		}
	}
	return result, nil
}

// importFromCSV imports phrases from a CSV file with the same column layout
func (imp *Importer) importFromCSV(ctx context.Context, config Config) (*Result, error) {
	file, err := os.Open(config.FilePath)
	if err != nil {
		return nil, fmt.Errorf("failed to open CSV file: %v", err)
	}
	defer file.Close()

	reader := csv.NewReader(file)
	reader.FieldsPerRecord = -1 // Allow variable number of fields
	reader.LazyQuotes = true

	result := &Result{Errors: make([]string, 0)}
	rowNum := 0
	for {
		row, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("error reading CSV: %v", err)
		}
		rowNum++
		if rowNum < config.StartRow {
			continue
		}
		result.TotalProcessed++
		if err := imp.processRow(ctx, rowValues(row, config), result); err != nil {
			result.Errors = append(result.Errors, fmt.Sprintf("Row %d: %v", rowNum, err))
		}
	}
	return result, nil
}

// rowFields is one parsed catalog row before validation.
type rowFields struct {
	german    string
	english   string
	example   string
	frequency string
	level     string
}

func rowValues(row []string, config Config) rowFields {
	cell := func(column string) string {
		if column == "" {
			return ""
		}
		if idx := columnToIndex(column); idx >= 0 && idx < len(row) {
			return strings.TrimSpace(row[idx])
		}
		return ""
	}
	return rowFields{
		german:    cell(config.GermanColumn),
		english:   cell(config.EnglishColumn),
		example:   cell(config.ExampleColumn),
		frequency: cell(config.FrequencyColumn),
		level:     cell(config.LevelColumn),
	}
}

// processRow validates one row and creates or updates the catalog item.
func (imp *Importer) processRow(ctx context.Context, fields rowFields, result *Result) error {
	if fields.german == "" || fields.english == "" {
		result.Skipped++
		return nil
	}

	frequency := 0
	if fields.frequency != "" {
		n, err := strconv.Atoi(fields.frequency)
		if err != nil || n < 0 {
			return fmt.Errorf("invalid frequency %q", fields.frequency)
		}
		frequency = n
	}

	existing, err := imp.items.GetByGermanAndLevel(ctx, fields.german, fields.level)
	if err != nil {
		return err
	}
	if existing != nil {
		existing.English = fields.english
		existing.Example = fields.example
		existing.Frequency = frequency
		if err := imp.items.Update(ctx, existing); err != nil {
			return err
		}
		result.Updated++
		return nil
	}

	item := &models.Item{
		German:    fields.german,
		English:   fields.english,
		Example:   fields.example,
		Frequency: frequency,
		Level:     fields.level,
	}
	if err := imp.items.Create(ctx, item); err != nil {
		return err
	}
	result.Created++
	return nil
}

// columnToIndex converts an Excel column letter ("A", "B", ... "AA") to a
// zero-based index.
func columnToIndex(column string) int {
	column = strings.ToUpper(strings.TrimSpace(column))
	idx := 0
	for _, c := range column {
		if c < 'A' || c > 'Z' {
			return -1
		}
		idx = idx*26 + int(c-'A') + 1
	}
	return idx - 1
}
