package leads

import (
	"strconv"
	"strings"
	"time"

	"github.com/xuri/excelize/v2"
)

// Slash dates are month-first; day-first layouts come last and only match
// values month-first rejects, such as 13/01/2024.
var dateLayouts = []string{
	time.RFC3339, "2006-01-02T15:04:05.999999999", "2006-01-02T15:04:05", "2006-01-02T15:04",
	"2006-01-02", "2006/01/02", "2006-01-02 15:04", "2006-01-02 15:04:05",
	"01/02/2006", "1/2/2006", "1/2/2006 15:04", "1/2/2006 15:04:05",
	"01-02-06", "1/2/06", "2 Jan 2006", "Jan 2, 2006",
	"02/01/2006", "2/1/2006",
}

// ParseDate interprets a cell as a date. Excel serial numbers are accepted.
func ParseDate(s string) (time.Time, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, false
	}
	for _, l := range dateLayouts {
		if t, err := time.Parse(l, s); err == nil {
			return t, true
		}
	}
	if serial, ok := excelSerial(s); ok {
		if t, err := excelize.ExcelDateToTime(serial, false); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

// excelSerial accepts plausible spreadsheet day serials (1900-01-01 .. 9999-12-31).
func excelSerial(s string) (float64, bool) {
	f, err := strconv.ParseFloat(s, 64)
	if err != nil || f < 1 || f > 2958465 {
		return 0, false
	}
	return f, true
}

// FormatDate renders a parsed date, keeping the clock only when it is set.
func FormatDate(t time.Time) string {
	if t.Hour() == 0 && t.Minute() == 0 && t.Second() == 0 {
		return t.Format("2006-01-02")
	}
	return t.Format("2006-01-02 15:04")
}
