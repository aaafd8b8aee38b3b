// Package frame holds the in-memory columnar table used to move longitudinal
// records through the augmentation pipeline. A Column is a tagged variant: the
// Kind decides which backing slice carries the values, and an optional
// Missing mask marks absent cells.
package frame

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// Kind identifies the value representation of a column.
type Kind int

const (
	KindInt Kind = iota
	KindFloat
	KindString
	KindBool
	KindFactor
	KindDate
	KindElapsed
)

// DateLayout is the canonical rendering of calendar dates.
const DateLayout = "2006-01-02"

var kindNames = map[Kind]string{
	KindInt:     "int",
	KindFloat:   "float",
	KindString:  "string",
	KindBool:    "bool",
	KindFactor:  "factor",
	KindDate:    "date",
	KindElapsed: "elapsed",
}

func (k Kind) String() string {
	if s, ok := kindNames[k]; ok {
		return s
	}
	return fmt.Sprintf("kind(%d)", int(k))
}

// ParseKind parses a kind name. Elapsed kinds may carry a unit after a colon
// ("elapsed:days") and factors may carry ordered levels separated by "|"
// ("factor:alive|inside|outside").
func ParseKind(s string) (kind Kind, unit string, levels []string, err error) {
	name, arg, _ := strings.Cut(strings.TrimSpace(s), ":")
	switch strings.ToLower(name) {
	case "int", "integer":
		return KindInt, "", nil, nil
	case "float", "num", "numeric":
		return KindFloat, "", nil, nil
	case "string", "str", "text":
		return KindString, "", nil, nil
	case "bool", "logical":
		return KindBool, "", nil, nil
	case "factor":
		if arg != "" {
			levels = strings.Split(arg, "|")
		}
		return KindFactor, "", levels, nil
	case "date":
		return KindDate, "", nil, nil
	case "elapsed", "difftime":
		if arg == "" {
			arg = "days"
		}
		return KindElapsed, arg, nil, nil
	}
	return 0, "", nil, fmt.Errorf("unknown column kind %q", s)
}

// Column is a named, typed vector of cells.
type Column struct {
	Name   string
	Kind   Kind
	Unit   string   // KindElapsed only
	Levels []string // KindFactor only, in order

	Ints    []int64
	Floats  []float64 // KindFloat and KindElapsed
	Strings []string  // KindString and KindFactor
	Bools   []bool
	Times   []time.Time

	// Missing is nil when the column has no missing cells.
	Missing []bool
}

func NewIntColumn(name string, values []int64) *Column {
	return &Column{Name: name, Kind: KindInt, Ints: values}
}

func NewFloatColumn(name string, values []float64) *Column {
	return &Column{Name: name, Kind: KindFloat, Floats: values}
}

func NewStringColumn(name string, values []string) *Column {
	return &Column{Name: name, Kind: KindString, Strings: values}
}

func NewBoolColumn(name string, values []bool) *Column {
	return &Column{Name: name, Kind: KindBool, Bools: values}
}

// NewFactorColumn builds an ordered categorical column. Values outside levels
// are rejected by Validate.
func NewFactorColumn(name string, levels, values []string) *Column {
	return &Column{Name: name, Kind: KindFactor, Levels: levels, Strings: values}
}

func NewDateColumn(name string, values []time.Time) *Column {
	return &Column{Name: name, Kind: KindDate, Times: values}
}

func NewElapsedColumn(name, unit string, values []float64) *Column {
	return &Column{Name: name, Kind: KindElapsed, Unit: unit, Floats: values}
}

// WithMissing attaches a missing mask and returns the column.
func (c *Column) WithMissing(mask []bool) *Column {
	c.Missing = mask
	return c
}

// Len returns the number of cells.
func (c *Column) Len() int {
	switch c.Kind {
	case KindInt:
		return len(c.Ints)
	case KindFloat, KindElapsed:
		return len(c.Floats)
	case KindString, KindFactor:
		return len(c.Strings)
	case KindBool:
		return len(c.Bools)
	case KindDate:
		return len(c.Times)
	}
	return 0
}

// Validate checks that the backing slice matches the kind and that the
// missing mask and factor values are consistent.
func (c *Column) Validate() error {
	if c.Name == "" {
		return fmt.Errorf("column name is required")
	}
	if _, ok := kindNames[c.Kind]; !ok {
		return fmt.Errorf("column %s: unknown kind %d", c.Name, int(c.Kind))
	}
	if c.Missing != nil && len(c.Missing) != c.Len() {
		return fmt.Errorf("column %s: missing mask has %d entries for %d cells", c.Name, len(c.Missing), c.Len())
	}
	if c.Kind == KindFactor {
		known := make(map[string]bool, len(c.Levels))
		for _, l := range c.Levels {
			if known[l] {
				return fmt.Errorf("column %s: duplicate level %q", c.Name, l)
			}
			known[l] = true
		}
		for i, v := range c.Strings {
			if c.IsMissing(i) {
				continue
			}
			if !known[v] {
				return fmt.Errorf("column %s: value %q is not a declared level", c.Name, v)
			}
		}
	}
	return nil
}

// IsMissing reports whether cell i is absent.
func (c *Column) IsMissing(i int) bool {
	return c.Missing != nil && c.Missing[i]
}

// HasMissing reports whether any cell is absent.
func (c *Column) HasMissing() bool {
	for _, m := range c.Missing {
		if m {
			return true
		}
	}
	return false
}

// IsTemporal reports whether the column holds time points.
func (c *Column) IsTemporal() bool {
	return c.Kind == KindDate || c.Kind == KindElapsed
}

// LevelIndex returns the position of a factor value in Levels.
func (c *Column) LevelIndex(v string) int {
	for i, l := range c.Levels {
		if l == v {
			return i
		}
	}
	return -1
}

// Key renders cell i as a grouping key. Missing cells render as "".
func (c *Column) Key(i int) string {
	if c.IsMissing(i) {
		return ""
	}
	return c.Format(i)
}

// Format renders cell i as text. Missing cells render as "NA".
func (c *Column) Format(i int) string {
	if c.IsMissing(i) {
		return "NA"
	}
	switch c.Kind {
	case KindInt:
		return strconv.FormatInt(c.Ints[i], 10)
	case KindFloat, KindElapsed:
		return strconv.FormatFloat(c.Floats[i], 'f', -1, 64)
	case KindString, KindFactor:
		return c.Strings[i]
	case KindBool:
		if c.Bools[i] {
			return "TRUE"
		}
		return "FALSE"
	case KindDate:
		return FormatTime(c.Times[i])
	}
	return ""
}

// Value returns cell i as a plain Go value suitable for JSON encoding, or nil
// when the cell is missing.
func (c *Column) Value(i int) interface{} {
	if c.IsMissing(i) {
		return nil
	}
	switch c.Kind {
	case KindInt:
		return c.Ints[i]
	case KindFloat, KindElapsed:
		return c.Floats[i]
	case KindString, KindFactor:
		return c.Strings[i]
	case KindBool:
		return c.Bools[i]
	case KindDate:
		return FormatTime(c.Times[i])
	}
	return nil
}

// Number returns cell i of a numeric column as a float64. It reports false
// for missing cells and non-numeric kinds.
func (c *Column) Number(i int) (float64, bool) {
	if c.IsMissing(i) {
		return 0, false
	}
	switch c.Kind {
	case KindInt:
		return float64(c.Ints[i]), true
	case KindFloat, KindElapsed:
		return c.Floats[i], true
	}
	return 0, false
}

// FormatTime renders a date as YYYY-MM-DD, or as RFC 3339 when it carries a
// clock component.
func FormatTime(t time.Time) string {
	h, m, s := t.Clock()
	if h == 0 && m == 0 && s == 0 && t.Nanosecond() == 0 {
		return t.Format(DateLayout)
	}
	return t.Format(time.RFC3339)
}

// Take gathers the given rows into a new column with the same schema.
func (c *Column) Take(rows []int) *Column {
	out := c.emptyLike(len(rows))
	for _, i := range rows {
		out.appendFrom(c, i)
	}
	return out
}

// emptyLike returns a column with the same name and schema and no cells.
func (c *Column) emptyLike(capacity int) *Column {
	out := &Column{Name: c.Name, Kind: c.Kind, Unit: c.Unit}
	if c.Levels != nil {
		out.Levels = append([]string(nil), c.Levels...)
	}
	switch c.Kind {
	case KindInt:
		out.Ints = make([]int64, 0, capacity)
	case KindFloat, KindElapsed:
		out.Floats = make([]float64, 0, capacity)
	case KindString, KindFactor:
		out.Strings = make([]string, 0, capacity)
	case KindBool:
		out.Bools = make([]bool, 0, capacity)
	case KindDate:
		out.Times = make([]time.Time, 0, capacity)
	}
	if c.Missing != nil {
		out.Missing = make([]bool, 0, capacity)
	}
	return out
}

func (c *Column) appendFrom(src *Column, i int) {
	switch c.Kind {
	case KindInt:
		c.Ints = append(c.Ints, src.Ints[i])
	case KindFloat, KindElapsed:
		c.Floats = append(c.Floats, src.Floats[i])
	case KindString, KindFactor:
		c.Strings = append(c.Strings, src.Strings[i])
	case KindBool:
		c.Bools = append(c.Bools, src.Bools[i])
	case KindDate:
		c.Times = append(c.Times, src.Times[i])
	}
	if c.Missing != nil {
		c.Missing = append(c.Missing, src.IsMissing(i))
	}
}
