package frame

import (
	"encoding/csv"
	"fmt"
	"io"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/araddon/dateparse"
)

// ReadOptions controls CSV decoding.
type ReadOptions struct {
	// Schema maps column names to kind specs accepted by ParseKind. Columns
	// not listed are inferred.
	Schema map[string]string
	// Comma is the field delimiter; zero means ','.
	Comma rune
}

// ParseSchema parses "col=kind,col=kind" into a schema map.
func ParseSchema(def string) (map[string]string, error) {
	schema := map[string]string{}
	if strings.TrimSpace(def) == "" {
		return schema, nil
	}
	for _, part := range strings.Split(def, ",") {
		name, kind, ok := strings.Cut(part, "=")
		if !ok || strings.TrimSpace(name) == "" {
			return nil, fmt.Errorf("invalid schema entry %q, want col=kind", part)
		}
		if _, _, _, err := ParseKind(kind); err != nil {
			return nil, err
		}
		schema[strings.TrimSpace(name)] = strings.TrimSpace(kind)
	}
	return schema, nil
}

func isMissingCell(s string) bool {
	return s == "" || s == "NA"
}

// ReadCSV decodes a CSV document with a header row into a frame.
func ReadCSV(r io.Reader, opts ReadOptions) (*Frame, error) {
	cr := csv.NewReader(r)
	if opts.Comma != 0 {
		cr.Comma = opts.Comma
	}
	cr.TrimLeadingSpace = true

	records, err := cr.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("read csv: %w", err)
	}
	if len(records) == 0 {
		return nil, fmt.Errorf("read csv: missing header row")
	}

	header := records[0]
	body := records[1:]
	cols := make([]*Column, 0, len(header))
	for j, name := range header {
		name = strings.TrimSpace(name)
		raw := make([]string, len(body))
		for i, rec := range body {
			if j < len(rec) {
				raw[i] = strings.TrimSpace(rec[j])
			}
		}

		var col *Column
		if def, ok := opts.Schema[name]; ok {
			kind, unit, levels, err := ParseKind(def)
			if err != nil {
				return nil, fmt.Errorf("column %s: %w", name, err)
			}
			col, err = parseColumn(name, kind, unit, levels, raw)
			if err != nil {
				return nil, err
			}
		} else {
			col = inferColumn(name, raw)
		}
		cols = append(cols, col)
	}

	return New(cols...)
}

func inferColumn(name string, raw []string) *Column {
	for _, kind := range []Kind{KindInt, KindFloat, KindBool, KindDate} {
		if col, err := parseColumn(name, kind, "", nil, raw); err == nil {
			return col
		}
	}
	col, _ := parseColumn(name, KindString, "", nil, raw)
	return col
}

func parseColumn(name string, kind Kind, unit string, levels []string, raw []string) (*Column, error) {
	n := len(raw)
	col := &Column{Name: name, Kind: kind, Unit: unit}
	var missing []bool
	markMissing := func(i int) {
		if missing == nil {
			missing = make([]bool, n)
		}
		missing[i] = true
	}

	switch kind {
	case KindInt:
		col.Ints = make([]int64, n)
	case KindFloat, KindElapsed:
		col.Floats = make([]float64, n)
	case KindString, KindFactor:
		col.Strings = make([]string, n)
	case KindBool:
		col.Bools = make([]bool, n)
	case KindDate:
		col.Times = make([]time.Time, n)
	}

	for i, s := range raw {
		if isMissingCell(s) {
			markMissing(i)
			continue
		}
		switch kind {
		case KindInt:
			v, err := strconv.ParseInt(s, 10, 64)
			if err != nil {
				return nil, fmt.Errorf("column %s row %d: %q is not an integer", name, i+1, s)
			}
			col.Ints[i] = v
		case KindFloat, KindElapsed:
			v, err := strconv.ParseFloat(s, 64)
			if err != nil {
				return nil, fmt.Errorf("column %s row %d: %q is not a number", name, i+1, s)
			}
			col.Floats[i] = v
		case KindString, KindFactor:
			col.Strings[i] = s
		case KindBool:
			v, err := parseBool(s)
			if err != nil {
				return nil, fmt.Errorf("column %s row %d: %w", name, i+1, err)
			}
			col.Bools[i] = v
		case KindDate:
			t, err := ParseDate(s)
			if err != nil {
				return nil, fmt.Errorf("column %s row %d: %w", name, i+1, err)
			}
			col.Times[i] = t
		}
	}
	col.Missing = missing

	if kind == KindFactor {
		if levels == nil {
			levels = distinctSorted(col)
		}
		col.Levels = levels
		if err := col.Validate(); err != nil {
			return nil, err
		}
	}
	return col, nil
}

func parseBool(s string) (bool, error) {
	switch s {
	case "TRUE", "true", "True", "T":
		return true, nil
	case "FALSE", "false", "False", "F":
		return false, nil
	}
	return false, fmt.Errorf("%q is not a logical value", s)
}

// ParseDate parses a calendar date in any of the common layouts, in UTC.
func ParseDate(s string) (time.Time, error) {
	t, err := dateparse.ParseIn(s, time.UTC)
	if err != nil {
		return time.Time{}, fmt.Errorf("%q is not a date", s)
	}
	return t, nil
}

func distinctSorted(c *Column) []string {
	seen := map[string]bool{}
	var out []string
	for i, v := range c.Strings {
		if c.IsMissing(i) || seen[v] {
			continue
		}
		seen[v] = true
		out = append(out, v)
	}
	sort.Strings(out)
	return out
}

// WriteCSV encodes the frame with a header row. Missing cells are written as NA.
func WriteCSV(w io.Writer, f *Frame) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(f.Names()); err != nil {
		return fmt.Errorf("write csv header: %w", err)
	}
	row := make([]string, len(f.cols))
	for i := 0; i < f.Len(); i++ {
		for j, c := range f.cols {
			row[j] = c.Format(i)
		}
		if err := cw.Write(row); err != nil {
			return fmt.Errorf("write csv row %d: %w", i+1, err)
		}
	}
	cw.Flush()
	return cw.Error()
}
