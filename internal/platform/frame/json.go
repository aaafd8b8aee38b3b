package frame

import (
	"bytes"
	"encoding/json"
	"fmt"
	"time"
)

// Output representations of a frame.
const (
	FormatColumnar = "columnar"
	FormatRows     = "rows"
)

type jsonColumn struct {
	Name   string            `json:"name"`
	Kind   string            `json:"kind"`
	Unit   string            `json:"unit,omitempty"`
	Levels []string          `json:"levels,omitempty"`
	Values []json.RawMessage `json:"values"`
}

type jsonFrame struct {
	Columns []jsonColumn `json:"columns"`
}

var jsonNull = json.RawMessage("null")

// MarshalJSON encodes the frame in its compact columnar form.
func (f *Frame) MarshalJSON() ([]byte, error) {
	out := jsonFrame{Columns: make([]jsonColumn, 0, len(f.cols))}
	for _, c := range f.cols {
		jc := jsonColumn{Name: c.Name, Kind: c.Kind.String(), Unit: c.Unit, Levels: c.Levels}
		jc.Values = make([]json.RawMessage, c.Len())
		for i := range jc.Values {
			v := c.Value(i)
			if v == nil {
				jc.Values[i] = jsonNull
				continue
			}
			b, err := json.Marshal(v)
			if err != nil {
				return nil, fmt.Errorf("encode %s[%d]: %w", c.Name, i, err)
			}
			jc.Values[i] = b
		}
		out.Columns = append(out.Columns, jc)
	}
	return json.Marshal(out)
}

// UnmarshalJSON decodes the columnar form produced by MarshalJSON.
func (f *Frame) UnmarshalJSON(data []byte) error {
	var in jsonFrame
	if err := json.Unmarshal(data, &in); err != nil {
		return err
	}
	decoded := &Frame{index: make(map[string]int, len(in.Columns))}
	for _, jc := range in.Columns {
		kind, unit, _, err := ParseKind(jc.Kind)
		if err != nil {
			return fmt.Errorf("column %s: %w", jc.Name, err)
		}
		if jc.Unit != "" {
			unit = jc.Unit
		}
		c, err := decodeColumn(jc, kind, unit)
		if err != nil {
			return err
		}
		if err := decoded.AddColumn(c); err != nil {
			return err
		}
	}
	*f = *decoded
	return nil
}

func decodeColumn(jc jsonColumn, kind Kind, unit string) (*Column, error) {
	n := len(jc.Values)
	c := (&Column{Name: jc.Name, Kind: kind, Unit: unit, Levels: jc.Levels}).emptyLike(n)
	c.Missing = make([]bool, 0, n)
	anyMissing := false

	for i, raw := range jc.Values {
		isNull := bytes.Equal(bytes.TrimSpace(raw), jsonNull)
		if isNull {
			anyMissing = true
		}
		c.Missing = append(c.Missing, isNull)
		var err error
		switch kind {
		case KindInt:
			var v int64
			if !isNull {
				err = json.Unmarshal(raw, &v)
			}
			c.Ints = append(c.Ints, v)
		case KindFloat, KindElapsed:
			var v float64
			if !isNull {
				err = json.Unmarshal(raw, &v)
			}
			c.Floats = append(c.Floats, v)
		case KindString, KindFactor:
			var v string
			if !isNull {
				err = json.Unmarshal(raw, &v)
			}
			c.Strings = append(c.Strings, v)
		case KindBool:
			var v bool
			if !isNull {
				err = json.Unmarshal(raw, &v)
			}
			c.Bools = append(c.Bools, v)
		case KindDate:
			var t time.Time
			if !isNull {
				var s string
				if err = json.Unmarshal(raw, &s); err == nil {
					t, err = ParseDate(s)
				}
			}
			c.Times = append(c.Times, t)
		}
		if err != nil {
			return nil, fmt.Errorf("decode %s[%d]: %w", jc.Name, i, err)
		}
	}
	if !anyMissing {
		c.Missing = nil
	}
	if kind == KindFactor && c.Levels == nil {
		c.Levels = distinctSorted(c)
	}
	return c, nil
}

// Encode renders the frame as JSON in the requested representation.
func Encode(f *Frame, format string) ([]byte, error) {
	switch format {
	case "", FormatColumnar:
		return json.Marshal(f)
	case FormatRows:
		return json.Marshal(f.Records())
	}
	return nil, fmt.Errorf("unknown output format %q", format)
}
