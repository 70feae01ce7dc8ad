package metrics

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// ErrInvalidRange is returned for half-open or inverted ranges.
var ErrInvalidRange = errors.New("invalid date range")

// ParseRange builds a range from YYYY-MM-DD bounds. Both empty means no
// range (nil). A single bound or start after end is an error.
func ParseRange(from, to string) (*DateRange, error) {
	from, to = strings.TrimSpace(from), strings.TrimSpace(to)
	if from == "" && to == "" {
		return nil, nil
	}
	if from == "" || to == "" {
		return nil, fmt.Errorf("%w: both from and to are required", ErrInvalidRange)
	}
	start, err := time.Parse(dateLayout, from)
	if err != nil {
		return nil, fmt.Errorf("%w: from %q: expected YYYY-MM-DD", ErrInvalidRange, from)
	}
	end, err := time.Parse(dateLayout, to)
	if err != nil {
		return nil, fmt.Errorf("%w: to %q: expected YYYY-MM-DD", ErrInvalidRange, to)
	}
	if start.After(end) {
		return nil, fmt.Errorf("%w: %s is after %s", ErrInvalidRange, from, to)
	}
	return &DateRange{Start: start, End: end}, nil
}

const dateLayout = "2006-01-02"
