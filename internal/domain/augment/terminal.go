package augment

import (
	"fmt"
	"math"
	"sort"

	"github.com/ehr/multistate/internal/platform/frame"
)

// TerminalState is the canonical condition of a subject at censoring.
type TerminalState int

const (
	Alive TerminalState = iota
	DeadInside
	DeadOutside
	// Dead comes from a two-level coding; inside or outside is resolved per
	// subject from the position of the last episode.
	Dead
)

func (s TerminalState) String() string {
	switch s {
	case Alive:
		return "alive"
	case DeadInside:
		return "dead-inside"
	case DeadOutside:
		return "dead-outside"
	case Dead:
		return "dead"
	}
	return fmt.Sprintf("terminal(%d)", int(s))
}

// terminalCoding decodes the terminal column once into canonical states.
type terminalCoding struct {
	levels int // 2 or 3
	states []TerminalState
}

func (tc *terminalCoding) state(i int) TerminalState {
	return tc.states[i]
}

// decodeTerminal resolves the representation of the terminal column.
//
// Three-level codings map to alive / dead inside / dead outside in order:
// integers {0,1,2}, a factor with three levels, or three distinct strings in
// alphabetical order. Two-level codings map to alive / dead: integers {0,1},
// logicals, a two-level factor, or two distinct strings in alphabetical order.
// Integer columns whose two observed values include 2 are a partially observed
// three-level coding.
func decodeTerminal(c *frame.Column) (*terminalCoding, error) {
	n := c.Len()
	tc := &terminalCoding{states: make([]TerminalState, n)}
	bad := func(reason string) error {
		return &SchemaError{Column: c.Name, Reason: reason}
	}

	switch c.Kind {
	case frame.KindInt, frame.KindFloat:
		codes := make([]int64, n)
		distinct := map[int64]bool{}
		for i := 0; i < n; i++ {
			if c.IsMissing(i) {
				continue
			}
			v, err := integralCode(c, i)
			if err != nil {
				return nil, bad(err.Error())
			}
			codes[i] = v
			distinct[v] = true
		}
		switch {
		case len(distinct) == 3:
			if !subset(distinct, 0, 1, 2) {
				return nil, bad(fmt.Sprintf("three-level integer coding must use {0,1,2}, got %v", keys(distinct)))
			}
			tc.levels = 3
		case len(distinct) == 2 && subset(distinct, 0, 1):
			tc.levels = 2
		case len(distinct) == 2 && subset(distinct, 0, 1, 2):
			tc.levels = 3
		case len(distinct) == 2:
			return nil, bad(fmt.Sprintf("two-level integer coding must use {0,1}, got %v", keys(distinct)))
		default:
			return nil, bad(fmt.Sprintf("expected 2 or 3 distinct terminal codes, got %d", len(distinct)))
		}
		for i, v := range codes {
			tc.states[i] = fromPosition(int(v), tc.levels)
		}

	case frame.KindBool:
		distinct := map[bool]bool{}
		for i, v := range c.Bools {
			if !c.IsMissing(i) {
				distinct[v] = true
			}
		}
		if len(distinct) != 2 {
			return nil, bad(fmt.Sprintf("expected 2 distinct terminal codes, got %d", len(distinct)))
		}
		tc.levels = 2
		for i, v := range c.Bools {
			if v {
				tc.states[i] = Dead
			}
		}

	case frame.KindFactor:
		if len(c.Levels) != 2 && len(c.Levels) != 3 {
			return nil, bad(fmt.Sprintf("expected a factor with 2 or 3 levels, got %d", len(c.Levels)))
		}
		tc.levels = len(c.Levels)
		for i, v := range c.Strings {
			if c.IsMissing(i) {
				continue
			}
			tc.states[i] = fromPosition(c.LevelIndex(v), tc.levels)
		}

	case frame.KindString:
		seen := map[string]bool{}
		var distinct []string
		for i, v := range c.Strings {
			if c.IsMissing(i) || seen[v] {
				continue
			}
			seen[v] = true
			distinct = append(distinct, v)
		}
		if len(distinct) != 2 && len(distinct) != 3 {
			return nil, bad(fmt.Sprintf("expected 2 or 3 distinct terminal codes, got %d", len(distinct)))
		}
		sort.Strings(distinct)
		pos := make(map[string]int, len(distinct))
		for i, v := range distinct {
			pos[v] = i
		}
		tc.levels = len(distinct)
		for i, v := range c.Strings {
			if c.IsMissing(i) {
				continue
			}
			tc.states[i] = fromPosition(pos[v], tc.levels)
		}

	default:
		return nil, bad(fmt.Sprintf("terminal codes cannot be of kind %s", c.Kind))
	}
	return tc, nil
}

func fromPosition(pos, levels int) TerminalState {
	if levels == 2 {
		if pos == 0 {
			return Alive
		}
		return Dead
	}
	return TerminalState(pos)
}

func integralCode(c *frame.Column, i int) (int64, error) {
	if c.Kind == frame.KindInt {
		return c.Ints[i], nil
	}
	v := c.Floats[i]
	if v != math.Trunc(v) {
		return 0, fmt.Errorf("terminal code %v is not an integer", v)
	}
	return int64(v), nil
}

func subset(set map[int64]bool, allowed ...int64) bool {
	ok := make(map[int64]bool, len(allowed))
	for _, a := range allowed {
		ok[a] = true
	}
	for v := range set {
		if !ok[v] {
			return false
		}
	}
	return true
}

func keys(set map[int64]bool) []int64 {
	out := make([]int64, 0, len(set))
	for v := range set {
		out = append(out, v)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}
