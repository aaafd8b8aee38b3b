// Package polish finds transitions of one subject that share a time point in
// an augmented table, and optionally collapses them.
package polish

import (
	"fmt"

	"github.com/ehr/multistate/internal/domain/augment"
	"github.com/ehr/multistate/internal/platform/frame"
)

type Mode int

const (
	// ModeReport lists same-time groups and leaves the table unchanged.
	ModeReport Mode = iota
	// ModeCollapse keeps only the last row of every same-time group.
	ModeCollapse
)

func ParseMode(s string) (Mode, error) {
	switch s {
	case "", "report":
		return ModeReport, nil
	case "collapse":
		return ModeCollapse, nil
	}
	return 0, fmt.Errorf("unknown polish mode %q", s)
}

type Options struct {
	SubjectColumn string
	Mode          Mode
}

// Group is a run of consecutive rows of one subject at the same time point.
type Group struct {
	Subject  string   `json:"subject"`
	Time     float64  `json:"time"`
	Rows     []int    `json:"rows"`
	Statuses []string `json:"statuses"`
	// Conflict is set when the rows lead to different states.
	Conflict bool `json:"conflict"`
}

type Result struct {
	Frame     *frame.Frame
	Groups    []Group
	Conflicts int
	Redundant int
	Dropped   int
}

// Polish groups rows sharing (subject, relative time). The time axis is found
// by name: augmented_int for date inputs, augmented_num for elapsed ones.
func Polish(f *frame.Frame, opts Options) (*Result, error) {
	if opts.SubjectColumn == "" {
		return nil, &augment.ConfigurationError{Param: "subject_column", Reason: "column name is required"}
	}
	subject, ok := f.Column(opts.SubjectColumn)
	if !ok {
		return nil, &augment.SchemaError{Column: opts.SubjectColumn, Reason: "column not found"}
	}
	status, ok := f.Column(augment.ColStatus)
	if !ok {
		return nil, &augment.SchemaError{Column: augment.ColStatus, Reason: "column not found; input is not an augmented table"}
	}
	axis, err := locateAxis(f)
	if err != nil {
		return nil, err
	}

	res := &Result{Frame: f}
	n := f.Len()
	for i := 0; i < n; {
		j := i + 1
		if !axis.IsMissing(i) {
			for j < n && !axis.IsMissing(j) &&
				subject.Key(j) == subject.Key(i) &&
				timeAt(axis, j) == timeAt(axis, i) {
				j++
			}
		}
		if j-i > 1 {
			g := Group{Subject: subject.Key(i), Time: timeAt(axis, i)}
			for r := i; r < j; r++ {
				g.Rows = append(g.Rows, r)
				g.Statuses = append(g.Statuses, status.Key(r))
				if status.Key(r) != status.Key(i) {
					g.Conflict = true
				}
			}
			if g.Conflict {
				res.Conflicts++
			} else {
				res.Redundant++
			}
			res.Groups = append(res.Groups, g)
		}
		i = j
	}

	if opts.Mode == ModeCollapse && len(res.Groups) > 0 {
		drop := make(map[int]bool)
		for _, g := range res.Groups {
			// The last row is the state reached at that instant; terminal
			// rows are always last within a subject.
			for _, r := range g.Rows[:len(g.Rows)-1] {
				drop[r] = true
			}
		}
		keep := make([]int, 0, n-len(drop))
		for i := 0; i < n; i++ {
			if !drop[i] {
				keep = append(keep, i)
			}
		}
		res.Frame = f.Take(keep)
		res.Dropped = len(drop)
	}
	return res, nil
}

func locateAxis(f *frame.Frame) (*frame.Column, error) {
	if c, ok := f.Column(augment.ColAugmentedInt); ok {
		if c.Kind != frame.KindInt {
			return nil, &augment.SchemaError{Column: c.Name, Reason: fmt.Sprintf("expected integer day counts, got %s", c.Kind)}
		}
		return c, nil
	}
	if c, ok := f.Column(augment.ColAugmentedNum); ok {
		// Integral offsets written as text read back as ints.
		if c.Kind != frame.KindFloat && c.Kind != frame.KindElapsed && c.Kind != frame.KindInt {
			return nil, &augment.SchemaError{Column: c.Name, Reason: fmt.Sprintf("expected a numeric time axis, got %s", c.Kind)}
		}
		return c, nil
	}
	return nil, &augment.SchemaError{
		Column: augment.ColAugmentedInt,
		Reason: fmt.Sprintf("neither %s nor %s present; input is not an augmented table", augment.ColAugmentedInt, augment.ColAugmentedNum),
	}
}

func timeAt(c *frame.Column, i int) float64 {
	if c.Kind == frame.KindInt {
		return float64(c.Ints[i])
	}
	return c.Floats[i]
}
