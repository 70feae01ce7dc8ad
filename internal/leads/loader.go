package leads

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// Loader reads a lead log from a file format.
type Loader interface {
	CanLoad(filename string) bool
	Load(path, sheet string) (*Table, error)
	Sheets(path string) ([]string, error)
}

var registry []Loader

// Register adds a loader implementation to the registry.
func Register(l Loader) {
	registry = append(registry, l)
}

func init() {
	Register(csvLoader{})
	Register(xlsxLoader{})
}

var (
	// ErrUnsupported indicates a file extension no loader handles.
	ErrUnsupported = errors.New("unsupported lead file format")
	// ErrSheetNotFound indicates the workbook lacks the requested sheet.
	ErrSheetNotFound = errors.New("sheet not found")
	// ErrMissingColumn indicates a required header is absent.
	ErrMissingColumn = errors.New("missing required column")
)

// Load reads the lead log from path. An empty sheet selects DefaultSheet.
func Load(path, sheet string) (*Table, error) {
	if _, err := os.Stat(path); err != nil {
		return nil, fmt.Errorf("open lead file: %w", err)
	}
	if strings.TrimSpace(sheet) == "" {
		sheet = DefaultSheet
	}
	l, err := loaderFor(path)
	if err != nil {
		return nil, err
	}
	return l.Load(path, sheet)
}

// Sheets lists the sheets available in path.
func Sheets(path string) ([]string, error) {
	l, err := loaderFor(path)
	if err != nil {
		return nil, err
	}
	return l.Sheets(path)
}

func loaderFor(path string) (Loader, error) {
	for _, l := range registry {
		if l.CanLoad(path) {
			return l, nil
		}
	}
	ext := strings.ToLower(filepath.Ext(path))
	if ext == ".xls" {
		return nil, fmt.Errorf("%w: %s (legacy Excel workbooks are not read; re-save the file as .xlsx)", ErrUnsupported, ext)
	}
	return nil, fmt.Errorf("%w: %s", ErrUnsupported, ext)
}

// buildTable maps raw records (header first) onto leads.
func buildTable(source, sheet string, records [][]string) (*Table, error) {
	t := &Table{Source: filepath.Base(source), Sheet: sheet}
	if len(records) == 0 {
		return nil, fmt.Errorf("%w: %s (empty sheet)", ErrMissingColumn, ColSalesRep)
	}
	header := make([]string, len(records[0]))
	hasRep := false
	for i, h := range records[0] {
		header[i] = canonicalColumn(h)
		if header[i] == ColSalesRep {
			hasRep = true
		}
	}
	if !hasRep {
		return nil, fmt.Errorf("%w: %s", ErrMissingColumn, ColSalesRep)
	}
	t.Columns = header
	for _, rec := range records[1:] {
		var l Lead
		empty := true
		for i, v := range rec {
			if i >= len(header) || header[i] == "" {
				continue
			}
			v = strings.TrimSpace(v)
			if v != "" {
				empty = false
			}
			l.set(header[i], v)
		}
		if empty {
			t.Skipped++
			continue
		}
		t.Rows = append(t.Rows, l)
	}
	return t, nil
}
