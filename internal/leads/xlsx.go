package leads

import (
	"fmt"
	"strings"

	"github.com/xuri/excelize/v2"
)

type xlsxLoader struct{}

func (xlsxLoader) CanLoad(filename string) bool {
	name := strings.ToLower(filename)
	return strings.HasSuffix(name, ".xlsx") || strings.HasSuffix(name, ".xlsm")
}

func (xlsxLoader) Sheets(path string) ([]string, error) {
	f, err := excelize.OpenFile(path)
	if err != nil {
		return nil, fmt.Errorf("open xlsx: %w", err)
	}
	defer f.Close()
	return f.GetSheetList(), nil
}

// Load reads the named sheet. Cells are read raw so date columns can be
// normalized from day serials regardless of their display format.
func (xlsxLoader) Load(path, sheet string) (*Table, error) {
	f, err := excelize.OpenFile(path)
	if err != nil {
		return nil, fmt.Errorf("open xlsx: %w", err)
	}
	defer f.Close()

	name, ok := matchSheet(f.GetSheetList(), sheet)
	if !ok {
		return nil, fmt.Errorf("%w: %q (available: %s)", ErrSheetNotFound, sheet, strings.Join(f.GetSheetList(), ", "))
	}

	date1904 := false
	if props, err := f.GetWorkbookProps(); err == nil && props.Date1904 != nil {
		date1904 = *props.Date1904
	}

	rows, err := f.Rows(name)
	if err != nil {
		return nil, fmt.Errorf("read sheet %s: %w", name, err)
	}
	defer rows.Close()

	var records [][]string
	var dateCols map[int]bool
	for rows.Next() {
		cols, err := rows.Columns(excelize.Options{RawCellValue: true})
		if err != nil {
			return nil, fmt.Errorf("read row: %w", err)
		}
		if dateCols == nil {
			dateCols = map[int]bool{}
			for i, h := range cols {
				switch canonicalColumn(h) {
				case ColActionDate, ColDueDate:
					dateCols[i] = true
				}
			}
		} else {
			for i := range cols {
				if dateCols[i] {
					cols[i] = normalizeSerial(cols[i], date1904)
				}
			}
		}
		records = append(records, cols)
	}
	if err := rows.Error(); err != nil {
		return nil, fmt.Errorf("read sheet %s: %w", name, err)
	}
	return buildTable(path, name, records)
}

func matchSheet(sheets []string, want string) (string, bool) {
	for _, s := range sheets {
		if s == want {
			return s, true
		}
	}
	for _, s := range sheets {
		if strings.EqualFold(strings.TrimSpace(s), strings.TrimSpace(want)) {
			return s, true
		}
	}
	return "", false
}

func normalizeSerial(v string, date1904 bool) string {
	serial, ok := excelSerial(strings.TrimSpace(v))
	if !ok {
		return v
	}
	t, err := excelize.ExcelDateToTime(serial, date1904)
	if err != nil {
		return v
	}
	return FormatDate(t)
}
