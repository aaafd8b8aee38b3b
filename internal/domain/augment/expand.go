package augment

import (
	"fmt"
	"sort"
)

// Vocabulary positions.
const (
	stateIn = iota
	stateOut
	stateTerminal
)

type transition struct {
	src   int // input row the transition derives from
	state int // vocabulary position
	seq   int // 1-based episode count within the subject
	at    instant
}

type subject struct {
	key  string
	rows []int // input rows in input order
}

type expansion struct {
	rows     []transition
	anchor   instant
	warnings []string
}

// groupSubjects partitions input rows by subject in first-appearance order.
func groupSubjects(b *bound, n int) []subject {
	pos := map[string]int{}
	var out []subject
	for i := 0; i < n; i++ {
		key := b.subject.Key(i)
		p, ok := pos[key]
		if !ok {
			p = len(out)
			pos[key] = p
			out = append(out, subject{key: key})
		}
		out[p].rows = append(out[p].rows, i)
	}
	return out
}

// sortEpisodes orders a subject's rows by episode index; rows without an
// index go last and ties keep input order.
func (a *augmenter) sortEpisodes(rows []int) []int {
	sorted := append([]int(nil), rows...)
	sort.SliceStable(sorted, func(i, j int) bool {
		vi, oki := a.b.episodeIndex(sorted[i])
		vj, okj := a.b.episodeIndex(sorted[j])
		if oki != okj {
			return oki
		}
		return vi < vj
	})
	return sorted
}

func (a *augmenter) expand(s subject) (*expansion, error) {
	b := a.b
	eps := a.sortEpisodes(s.rows)
	last := eps[len(eps)-1]
	exp := &expansion{rows: make([]transition, 0, 2*len(eps))}

	if b.terminal.IsMissing(last) {
		return nil, &DataQualityError{
			Column: b.terminal.Name,
			Row:    last,
			Count:  1,
			Reason: fmt.Sprintf("subject %q has no terminal code on its last episode", s.key),
		}
	}
	state := a.terminal.state(last)
	censor := instantAt(b.censoring, last)
	for _, r := range eps[:len(eps)-1] {
		if b.terminal.IsMissing(r) || a.terminal.state(r) != state {
			exp.warnings = append(exp.warnings, fmt.Sprintf("subject %q: terminal code varies across episodes, using the last one", s.key))
			break
		}
	}
	for _, r := range eps[:len(eps)-1] {
		if c := instantAt(b.censoring, r); c.ok != censor.ok || c.x != censor.x {
			exp.warnings = append(exp.warnings, fmt.Sprintf("subject %q: censoring time varies across episodes, using the last one", s.key))
			break
		}
	}

	lastEnd := instantAt(b.end, last)
	if state == Dead {
		// Two-level coding: the death falls inside the last episode when that
		// episode does not end before censoring.
		if atOrAfter(lastEnd, censor) {
			state = DeadInside
		} else {
			state = DeadOutside
		}
	}

	exp.anchor = instantAt(b.start, eps[0])
	for i, r := range eps[:len(eps)-1] {
		exp.rows = append(exp.rows,
			transition{src: r, state: stateIn, seq: i + 1, at: instantAt(b.start, r)},
			transition{src: r, state: stateOut, seq: i + 1, at: instantAt(b.end, r)},
		)
	}

	k := len(eps)
	switch state {
	case DeadInside:
		exp.rows = append(exp.rows, transition{src: last, state: stateTerminal, seq: k, at: lastEnd})
	case DeadOutside:
		exp.rows = append(exp.rows,
			transition{src: last, state: stateIn, seq: k, at: instantAt(b.start, last)},
			transition{src: last, state: stateTerminal, seq: k, at: later(lastEnd, censor)},
		)
	default:
		exp.rows = append(exp.rows,
			transition{src: last, state: stateIn, seq: k, at: instantAt(b.start, last)},
			transition{src: last, state: stateOut, seq: k, at: later(lastEnd, censor)},
		)
	}

	for i := 1; i < len(exp.rows); i++ {
		prev, cur := exp.rows[i-1].at, exp.rows[i].at
		if prev.ok && cur.ok && cur.x < prev.x {
			exp.warnings = append(exp.warnings, fmt.Sprintf("subject %q: transition times decrease at episode %d, intervals overlap", s.key, exp.rows[i].seq))
			break
		}
	}
	return exp, nil
}
