package augment

import (
	"sort"
	"time"

	"github.com/ehr/multistate/internal/platform/frame"
)

// build assembles the output table: the input columns gathered per emitted
// row, followed by the time and status columns.
func (a *augmenter) build(in *frame.Frame, exps []*expansion) (*frame.Frame, error) {
	total := 0
	for _, e := range exps {
		total += len(e.rows)
	}

	src := make([]int, 0, total)
	states := make([]int64, 0, total)
	labels := make([]string, 0, total)
	seqLabels := make([]string, 0, total)
	points := make([]instant, 0, total)
	anchors := make([]instant, 0, total)
	for _, e := range exps {
		for _, t := range e.rows {
			label := a.vocab[t.state]
			src = append(src, t.src)
			states = append(states, int64(t.state))
			labels = append(labels, label)
			seqLabels = append(seqLabels, sequenceLabel(label, t.seq))
			points = append(points, t.at)
			anchors = append(anchors, e.anchor)
		}
	}

	out := in.Take(src)
	cols := a.timeColumns(points, anchors)
	cols = append(cols,
		frame.NewFactorColumn(ColStatus, append([]string(nil), a.vocab...), labels),
		frame.NewIntColumn(ColStatusNum, states),
		frame.NewStringColumn(ColSeqStatus, seqLabels),
	)
	if a.b.secondary != nil {
		cols = append(cols, a.expandedColumns(exps, total)...)
	}
	for _, c := range cols {
		if err := out.AddColumn(c); err != nil {
			return nil, err
		}
	}
	return out, nil
}

func (a *augmenter) timeColumns(points, anchors []instant) []*frame.Column {
	n := len(points)
	var missing []bool
	for i, p := range points {
		if !p.ok || !anchors[i].ok {
			if missing == nil {
				missing = make([]bool, n)
			}
			missing[i] = true
		}
	}
	// Absolute points can be present while the anchor is missing.
	var absMissing []bool
	for i, p := range points {
		if !p.ok {
			if absMissing == nil {
				absMissing = make([]bool, n)
			}
			absMissing[i] = true
		}
	}

	if a.family == FamilyDate {
		abs := make([]time.Time, n)
		rel := make([]int64, n)
		for i, p := range points {
			abs[i] = p.t
			if p.ok && anchors[i].ok {
				rel[i] = int64(p.x - anchors[i].x)
			}
		}
		return []*frame.Column{
			frame.NewDateColumn(ColAugmented, abs).WithMissing(absMissing),
			frame.NewIntColumn(ColAugmentedInt, rel).WithMissing(missing),
		}
	}

	abs := make([]float64, n)
	rel := make([]float64, n)
	for i, p := range points {
		abs[i] = p.x
		if p.ok && anchors[i].ok {
			rel[i] = p.x - anchors[i].x
		}
	}
	unit := a.b.start.Unit
	return []*frame.Column{
		frame.NewElapsedColumn(ColAugmented, unit, abs).WithMissing(absMissing),
		frame.NewElapsedColumn(ColAugmentedNum, unit, rel).WithMissing(missing),
	}
}

// expandedColumns refines each status with the secondary value of its input
// row. The default sentinel keeps the plain status. Codes are
// 3*rank + status_num, where rank is 0 for the sentinel and the 1-based
// alphabetical rank of the value otherwise, so status_num == code % 3.
func (a *augmenter) expandedColumns(exps []*expansion, total int) []*frame.Column {
	sec := a.b.secondary
	secondaryValue := func(i int) string {
		v := sec.Key(i)
		if v == "" {
			return SecondaryDefault
		}
		return v
	}

	seen := map[string]bool{}
	var values []string
	for i := 0; i < sec.Len(); i++ {
		v := secondaryValue(i)
		if v == SecondaryDefault || seen[v] {
			continue
		}
		seen[v] = true
		values = append(values, v)
	}
	sort.Strings(values)
	rank := make(map[string]int, len(values))
	for i, v := range values {
		rank[v] = i + 1
	}

	levels := make([]string, 0, 3*(len(values)+1))
	levels = append(levels, a.vocab...)
	for _, v := range values {
		for _, l := range a.vocab {
			levels = append(levels, l+expandedSeparator+v)
		}
	}

	labels := make([]string, 0, total)
	codes := make([]int64, 0, total)
	seqLabels := make([]string, 0, total)
	for _, e := range exps {
		for _, t := range e.rows {
			r := rank[secondaryValue(t.src)]
			code := 3*r + t.state
			labels = append(labels, levels[code])
			codes = append(codes, int64(code))
			seqLabels = append(seqLabels, sequenceLabel(levels[code], t.seq))
		}
	}
	return []*frame.Column{
		frame.NewFactorColumn(ColStatusExp, levels, labels),
		frame.NewIntColumn(ColStatusExpNum, codes),
		frame.NewStringColumn(ColSeqStatusExp, seqLabels),
	}
}
