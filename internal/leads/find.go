package leads

import (
	"errors"
	"fmt"
	"sort"
	"strings"

	lev "github.com/agnivade/levenshtein"
)

// ErrLeadNotFound is returned when no row matches a lead name.
var ErrLeadNotFound = errors.New("lead not found")

// NotFoundError carries close matches for a missed lookup.
type NotFoundError struct {
	Name        string
	Suggestions []string
}

func (e *NotFoundError) Error() string {
	if len(e.Suggestions) == 0 {
		return fmt.Sprintf("lead not found: %q", e.Name)
	}
	return fmt.Sprintf("lead not found: %q (did you mean %s?)", e.Name, strings.Join(e.Suggestions, ", "))
}

func (e *NotFoundError) Unwrap() error { return ErrLeadNotFound }

// FindLead returns the first lead whose name matches, ignoring case and
// surrounding whitespace. Candidates are searched within rep when set.
func (t *Table) FindLead(rep, name string) (Lead, error) {
	want := strings.ToLower(strings.TrimSpace(name))
	var pool []Lead
	if rep != "" {
		pool = t.ForRep(rep)
	} else if t != nil {
		pool = t.Rows
	}
	for _, l := range pool {
		if strings.ToLower(l.Name) == want && want != "" {
			return l, nil
		}
	}
	return Lead{}, &NotFoundError{Name: name, Suggestions: suggest(pool, want, 3)}
}

func suggest(pool []Lead, want string, n int) []string {
	type cand struct {
		name string
		dist int
	}
	seen := map[string]bool{}
	var cs []cand
	for _, l := range pool {
		if l.Name == "" || seen[l.Name] {
			continue
		}
		seen[l.Name] = true
		d := lev.ComputeDistance(want, strings.ToLower(l.Name))
		if d > maxDistance(want) {
			continue
		}
		cs = append(cs, cand{l.Name, d})
	}
	sort.SliceStable(cs, func(i, j int) bool { return cs[i].dist < cs[j].dist })
	var out []string
	for i := 0; i < len(cs) && i < n; i++ {
		out = append(out, cs[i].name)
	}
	return out
}

func maxDistance(q string) int {
	if n := len(q) / 3; n > 2 {
		return n
	}
	return 2
}
