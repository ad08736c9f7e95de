package tabular

import (
	"encoding/json"
	"fmt"
	"sort"
	"strconv"
)

// Table is a row collection. Delimited and spreadsheet rows keep their cell
// values aligned with Header; JSON Lines rows keep the original line.
type Table struct {
	Format  Format
	Header  []string
	Records []Record
}

// Record is one input row.
type Record struct {
	Values []string
	Raw    json.RawMessage
	Object map[string]any
}

// Len returns the number of records.
func (t *Table) Len() int { return len(t.Records) }

// Columns lists the available column names. For JSON Lines these are the
// keys seen across all objects, sorted.
func (t *Table) Columns() []string {
	if t.Format != JSONL {
		return t.Header
	}
	seen := map[string]struct{}{}
	for _, r := range t.Records {
		for k := range r.Object {
			seen[k] = struct{}{}
		}
	}
	cols := make([]string, 0, len(seen))
	for k := range seen {
		cols = append(cols, k)
	}
	sort.Strings(cols)
	return cols
}

// Texts returns the value of column for every record in order. Missing
// values become empty strings.
func (t *Table) Texts(column string) ([]string, error) {
	out := make([]string, len(t.Records))
	if t.Format == JSONL {
		found := false
		for i, r := range t.Records {
			v, ok := r.Object[column]
			if !ok {
				continue
			}
			found = true
			out[i] = stringify(v)
		}
		if !found && len(t.Records) > 0 {
			return nil, fmt.Errorf("%w: %q (available: %v)", ErrColumnNotFound, column, t.Columns())
		}
		return out, nil
	}

	col := -1
	for i, h := range t.Header {
		if h == column {
			col = i
			break
		}
	}
	if col < 0 {
		return nil, fmt.Errorf("%w: %q (available: %v)", ErrColumnNotFound, column, t.Header)
	}
	for i, r := range t.Records {
		if col < len(r.Values) {
			out[i] = r.Values[col]
		}
	}
	return out, nil
}

// Filter returns a table holding only the records at keep, in original
// order. Indices out of range are ignored.
func (t *Table) Filter(keep []int) *Table {
	want := make(map[int]bool, len(keep))
	for _, k := range keep {
		want[k] = true
	}
	out := &Table{Format: t.Format, Header: t.Header}
	for i, r := range t.Records {
		if want[i] {
			out.Records = append(out.Records, r)
		}
	}
	return out
}

func stringify(v any) string {
	switch x := v.(type) {
	case nil:
		return ""
	case string:
		return x
	case float64:
		return strconv.FormatFloat(x, 'f', -1, 64)
	case bool:
		return strconv.FormatBool(x)
	default:
		b, err := json.Marshal(x)
		if err != nil {
			return fmt.Sprint(x)
		}
		return string(b)
	}
}
