// Package augment expands interval-based longitudinal records into a
// long-format table of directional state transitions for multi-state
// survival models.
//
// Every input row is one episode of a subject, bounded by a start and an end
// time, with a per-subject censoring time and terminal code. Each episode
// becomes an IN row at its start and an OUT row at its end; the subject's last
// episode closes with the terminal row instead, or collapses to a single
// terminal row when the death falls inside it. The output carries a relative
// time axis anchored at the subject's first episode start and status labels
// drawn from a three-label vocabulary.
package augment

import (
	"context"
	"fmt"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/ehr/multistate/internal/platform/frame"
)

// Output column names.
const (
	ColStatus       = "status"
	ColStatusNum    = "status_num"
	ColSeqStatus    = "n_status"
	ColStatusExp    = "status_exp"
	ColStatusExpNum = "status_exp_num"
	ColSeqStatusExp = "n_status_exp"
)

// Result is the augmented table plus run diagnostics.
type Result struct {
	Frame    *frame.Frame
	Family   Family
	Subjects int
	Warnings []string
}

type augmenter struct {
	b        *bound
	terminal *terminalCoding
	family   Family
	vocab    []string
}

// Augment validates the input and expands every subject's episodes into
// transition rows. It returns either a complete table or an error; no partial
// output is produced. The input frame is not modified.
func Augment(ctx context.Context, f *frame.Frame, roles Roles, opts Options) (*Result, error) {
	vocab, err := opts.vocabulary()
	if err != nil {
		return nil, err
	}
	if f == nil {
		return nil, &ConfigurationError{Param: "table", Reason: "input table is required"}
	}

	b, err := bindRoles(f, roles)
	if err != nil {
		return nil, err
	}
	tc, err := decodeTerminal(b.terminal)
	if err != nil {
		return nil, err
	}
	if opts.ValidateMissing {
		if err := checkMissing(b); err != nil {
			return nil, err
		}
	}
	fam, err := resolveFamily(b)
	if err != nil {
		return nil, err
	}
	if err := checkCollisions(f, fam, b.secondary != nil); err != nil {
		return nil, err
	}

	log := opts.logger()
	progress := opts.progress()
	started := time.Now()

	a := &augmenter{b: b, terminal: tc, family: fam, vocab: vocab}
	subjects := groupSubjects(b, f.Len())
	progress.Info().
		Int("rows", f.Len()).
		Int("subjects", len(subjects)).
		Int("terminal_levels", tc.levels).
		Str("family", fam.String()).
		Msg("augmenting")

	expansions, err := a.expandAll(ctx, subjects, opts.Workers, func(done int) {
		if done%1000 == 0 {
			progress.Debug().Int("subjects_done", done).Msg("augment progress")
		}
	})
	if err != nil {
		return nil, err
	}

	res := &Result{Family: fam, Subjects: len(subjects)}
	for _, e := range expansions {
		for _, w := range e.warnings {
			log.Warn().Msg(w)
			res.Warnings = append(res.Warnings, w)
		}
	}

	res.Frame, err = a.build(f, expansions)
	if err != nil {
		return nil, err
	}

	progress.Info().
		Int("rows_out", res.Frame.Len()).
		Dur("elapsed", time.Since(started)).
		Msg("augmentation complete")
	return res, nil
}

// expandAll runs the per-subject expansion, fanning out when workers > 1.
// The returned slice follows subject order, and when several subjects fail
// the error of the earliest one is reported.
func (a *augmenter) expandAll(ctx context.Context, subjects []subject, workers int, tick func(int)) ([]*expansion, error) {
	out := make([]*expansion, len(subjects))

	if workers < 2 {
		for i, s := range subjects {
			if err := ctx.Err(); err != nil {
				return nil, err
			}
			e, err := a.expand(s)
			if err != nil {
				return nil, err
			}
			out[i] = e
			tick(i + 1)
		}
		return out, nil
	}

	errs := make([]error, len(subjects))
	var g errgroup.Group
	g.SetLimit(workers)
	for i := range subjects {
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			out[i], errs[i] = a.expand(subjects[i])
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	for _, err := range errs {
		if err != nil {
			return nil, err
		}
	}
	tick(len(subjects))
	return out, nil
}

func checkMissing(b *bound) error {
	for _, c := range []*frame.Column{b.subject, b.episode, b.terminal, b.start, b.end} {
		first, count := -1, 0
		for i := 0; i < c.Len(); i++ {
			if c.IsMissing(i) {
				if first < 0 {
					first = i
				}
				count++
			}
		}
		if count > 0 {
			return &DataQualityError{Column: c.Name, Row: first, Count: count}
		}
	}
	return nil
}

func checkCollisions(f *frame.Frame, fam Family, secondary bool) error {
	names := []string{ColAugmented, fam.AxisColumn(), ColStatus, ColStatusNum, ColSeqStatus}
	if secondary {
		names = append(names, ColStatusExp, ColStatusExpNum, ColSeqStatusExp)
	}
	for _, n := range names {
		if _, exists := f.Column(n); exists {
			return &SchemaError{Column: n, Reason: "input already has a column with an output name"}
		}
	}
	return nil
}

// sequenceLabel composes a status label with an episode count.
func sequenceLabel(label string, seq int) string {
	return fmt.Sprintf("%s%s%d", label, sequenceSeparator, seq)
}
