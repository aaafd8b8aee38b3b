package frame

import (
	"fmt"
)

// Frame is an ordered set of equal-length named columns.
type Frame struct {
	cols  []*Column
	index map[string]int
}

// New builds a frame from the given columns.
func New(cols ...*Column) (*Frame, error) {
	f := &Frame{index: make(map[string]int, len(cols))}
	for _, c := range cols {
		if err := f.AddColumn(c); err != nil {
			return nil, err
		}
	}
	return f, nil
}

// MustNew is New for statically known columns; it panics on error.
func MustNew(cols ...*Column) *Frame {
	f, err := New(cols...)
	if err != nil {
		panic(err)
	}
	return f
}

// Len returns the number of rows. An empty frame has zero rows.
func (f *Frame) Len() int {
	if len(f.cols) == 0 {
		return 0
	}
	return f.cols[0].Len()
}

// Names returns the column names in order.
func (f *Frame) Names() []string {
	names := make([]string, len(f.cols))
	for i, c := range f.cols {
		names[i] = c.Name
	}
	return names
}

// Columns returns the columns in order. The slice must not be modified.
func (f *Frame) Columns() []*Column {
	return f.cols
}

// Column looks up a column by name.
func (f *Frame) Column(name string) (*Column, bool) {
	i, ok := f.index[name]
	if !ok {
		return nil, false
	}
	return f.cols[i], true
}

// AddColumn appends a column. Names must be unique and lengths must match.
func (f *Frame) AddColumn(c *Column) error {
	if c == nil {
		return fmt.Errorf("nil column")
	}
	if err := c.Validate(); err != nil {
		return err
	}
	if f.index == nil {
		f.index = make(map[string]int)
	}
	if _, dup := f.index[c.Name]; dup {
		return fmt.Errorf("duplicate column %q", c.Name)
	}
	if len(f.cols) > 0 && c.Len() != f.Len() {
		return fmt.Errorf("column %s has %d rows, frame has %d", c.Name, c.Len(), f.Len())
	}
	f.index[c.Name] = len(f.cols)
	f.cols = append(f.cols, c)
	return nil
}

// Take gathers the given rows, in the given order, into a new frame.
func (f *Frame) Take(rows []int) *Frame {
	out := &Frame{index: make(map[string]int, len(f.cols))}
	for i, c := range f.cols {
		out.cols = append(out.cols, c.Take(rows))
		out.index[c.Name] = i
	}
	return out
}

// Records converts the frame to its row-oriented form.
func (f *Frame) Records() []map[string]interface{} {
	n := f.Len()
	out := make([]map[string]interface{}, n)
	for i := 0; i < n; i++ {
		rec := make(map[string]interface{}, len(f.cols))
		for _, c := range f.cols {
			rec[c.Name] = c.Value(i)
		}
		out[i] = rec
	}
	return out
}
