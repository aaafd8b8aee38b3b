package augment

import (
	"fmt"
	"time"

	"github.com/ehr/multistate/internal/platform/frame"
)

// Names of the time axis columns. The axis name depends only on the temporal
// family of the input, so downstream passes can find it without configuration.
const (
	ColAugmented    = "augmented"
	ColAugmentedInt = "augmented_int"
	ColAugmentedNum = "augmented_num"
)

// Family is the temporal representation shared by the interval columns.
type Family int

const (
	FamilyDate Family = iota + 1
	FamilyElapsed
)

func (f Family) String() string {
	switch f {
	case FamilyDate:
		return "date"
	case FamilyElapsed:
		return "elapsed"
	}
	return "unknown"
}

// AxisColumn returns the name of the relative time column for the family.
func (f Family) AxisColumn() string {
	if f == FamilyDate {
		return ColAugmentedInt
	}
	return ColAugmentedNum
}

func familyOf(c *frame.Column) (Family, bool) {
	switch c.Kind {
	case frame.KindDate:
		return FamilyDate, true
	case frame.KindElapsed:
		return FamilyElapsed, true
	}
	return 0, false
}

// notTemporal reports a start, end or censoring column of the wrong kind.
// Plain numbers need a declared unit before they count as elapsed time.
func notTemporal(c *frame.Column) error {
	reason := fmt.Sprintf("expected a date or elapsed-time column, got %s", c.Kind)
	if c.Kind == frame.KindInt || c.Kind == frame.KindFloat {
		reason += fmt.Sprintf("; declare it as elapsed time, e.g. %s=elapsed:days", c.Name)
	}
	return &SchemaError{Column: c.Name, Reason: reason}
}

// resolveFamily checks that start, end and censoring share one family (and
// one unit for elapsed quantities).
func resolveFamily(b *bound) (Family, error) {
	fam, ok := familyOf(b.start)
	if !ok {
		return 0, notTemporal(b.start)
	}
	for _, c := range []*frame.Column{b.end, b.censoring} {
		other, ok := familyOf(c)
		if !ok {
			return 0, notTemporal(c)
		}
		if other != fam {
			return 0, &SchemaError{Column: c.Name, Reason: fmt.Sprintf("temporal type %s does not match %s column %q", other, fam, b.start.Name)}
		}
		if fam == FamilyElapsed && c.Unit != b.start.Unit {
			return 0, &SchemaError{Column: c.Name, Reason: fmt.Sprintf("unit %q does not match unit %q of column %q", c.Unit, b.start.Unit, b.start.Name)}
		}
	}
	return fam, nil
}

// instant is a time point in either family. Date instants also carry their
// civil day number so both families compare and subtract as numbers.
type instant struct {
	t  time.Time
	x  float64
	ok bool
}

func instantAt(c *frame.Column, i int) instant {
	if c.IsMissing(i) {
		return instant{}
	}
	if c.Kind == frame.KindDate {
		t := c.Times[i]
		return instant{t: t, x: float64(civilDay(t)), ok: true}
	}
	return instant{x: c.Floats[i], ok: true}
}

// civilDay is the number of calendar days since 1970-01-01 for the date part
// of t, ignoring the clock.
func civilDay(t time.Time) int64 {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC).Unix() / 86400
}

// later returns the later of two instants; missing if either is missing.
func later(a, b instant) instant {
	if !a.ok || !b.ok {
		return instant{}
	}
	if b.x > a.x || (b.x == a.x && b.t.After(a.t)) {
		return b
	}
	return a
}

// atOrAfter reports whether a is not before b. Missing operands compare false.
func atOrAfter(a, b instant) bool {
	return a.ok && b.ok && a.x >= b.x
}
