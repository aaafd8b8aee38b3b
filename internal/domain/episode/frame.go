package episode

import (
	"fmt"
	"strconv"
	"time"

	"github.com/ehr/multistate/internal/domain/augment"
	"github.com/ehr/multistate/internal/platform/frame"
)

// Canonical column names of an episode frame.
const (
	ColSubject   = "subject_id"
	ColEpisode   = "episode_index"
	ColTerminal  = "terminal_code"
	ColStart     = "interval_start"
	ColEnd       = "interval_end"
	ColCensoring = "censoring_time"
	ColSecondary = "secondary_status"
)

// DefaultRoles binds the canonical columns produced by ToFrame.
func DefaultRoles() augment.Roles {
	return augment.Roles{
		Subject:   ColSubject,
		Episode:   ColEpisode,
		Terminal:  ColTerminal,
		Start:     ColStart,
		End:       ColEnd,
		Censoring: ColCensoring,
		Secondary: ColSecondary,
	}
}

// ToFrame lays episodes out as a date-family augmentation input. Terminal
// codes become an integer column when every present code is an integer,
// and a string column otherwise.
func ToFrame(eps []*Episode) (*frame.Frame, error) {
	n := len(eps)
	subjects := make([]string, n)
	indices := make([]int64, n)
	starts := make([]time.Time, n)
	ends := make([]time.Time, n)
	censor := make([]time.Time, n)
	secondary := make([]string, n)
	codes := make([]string, n)

	var idxMiss, codeMiss, startMiss, endMiss, censorMiss, secMiss mask
	for i, e := range eps {
		subjects[i] = e.SubjectID
		if e.EpisodeIndex != nil {
			indices[i] = int64(*e.EpisodeIndex)
		} else {
			idxMiss.set(i, n)
		}
		if e.TerminalCode != nil {
			codes[i] = *e.TerminalCode
		} else {
			codeMiss.set(i, n)
		}
		putTime(starts, &startMiss, i, n, e.IntervalStart)
		putTime(ends, &endMiss, i, n, e.IntervalEnd)
		putTime(censor, &censorMiss, i, n, e.CensoringTime)
		if e.SecondaryStatus != nil {
			secondary[i] = *e.SecondaryStatus
		} else {
			secMiss.set(i, n)
		}
	}

	return frame.New(
		frame.NewStringColumn(ColSubject, subjects),
		frame.NewIntColumn(ColEpisode, indices).WithMissing(idxMiss),
		terminalColumn(codes, codeMiss),
		frame.NewDateColumn(ColStart, starts).WithMissing(startMiss),
		frame.NewDateColumn(ColEnd, ends).WithMissing(endMiss),
		frame.NewDateColumn(ColCensoring, censor).WithMissing(censorMiss),
		frame.NewStringColumn(ColSecondary, secondary).WithMissing(secMiss),
	)
}

// mask is a lazily allocated missing mask; it stays nil while no cell is
// missing.
type mask []bool

func (m *mask) set(i, n int) {
	if *m == nil {
		*m = make([]bool, n)
	}
	(*m)[i] = true
}

func putTime(dst []time.Time, m *mask, i, n int, t *time.Time) {
	if t == nil {
		m.set(i, n)
		return
	}
	dst[i] = t.UTC()
}

func terminalColumn(codes []string, missing mask) *frame.Column {
	ints := make([]int64, len(codes))
	for i, s := range codes {
		if missing != nil && missing[i] {
			continue
		}
		v, err := strconv.ParseInt(s, 10, 64)
		if err != nil {
			return frame.NewStringColumn(ColTerminal, codes).WithMissing(missing)
		}
		ints[i] = v
	}
	return frame.NewIntColumn(ColTerminal, ints).WithMissing(missing)
}

// FromFrame reads episodes out of a loaded table using the given role
// mapping. The start, end and censoring columns must hold dates.
func FromFrame(f *frame.Frame, roles augment.Roles) ([]*Episode, error) {
	col := func(role, name string, required bool) (*frame.Column, error) {
		if name == "" {
			if required {
				return nil, &augment.ConfigurationError{Param: role, Reason: "column name is required"}
			}
			return nil, nil
		}
		c, ok := f.Column(name)
		if !ok {
			return nil, &augment.SchemaError{Column: name, Reason: "column not found"}
		}
		return c, nil
	}
	dateCol := func(role, name string) (*frame.Column, error) {
		c, err := col(role, name, true)
		if err != nil {
			return nil, err
		}
		if c.Kind != frame.KindDate {
			return nil, &augment.SchemaError{Column: name, Reason: fmt.Sprintf("expected dates, got %s", c.Kind)}
		}
		return c, nil
	}

	subject, err := col("subject", roles.Subject, true)
	if err != nil {
		return nil, err
	}
	index, err := col("episode", roles.Episode, true)
	if err != nil {
		return nil, err
	}
	if index.Kind != frame.KindInt && index.Kind != frame.KindFloat {
		return nil, &augment.SchemaError{Column: index.Name, Reason: fmt.Sprintf("expected numeric episode indices, got %s", index.Kind)}
	}
	terminal, err := col("terminal", roles.Terminal, true)
	if err != nil {
		return nil, err
	}
	start, err := dateCol("start", roles.Start)
	if err != nil {
		return nil, err
	}
	end, err := dateCol("end", roles.End)
	if err != nil {
		return nil, err
	}
	censor, err := dateCol("censoring", roles.Censoring)
	if err != nil {
		return nil, err
	}
	secondary, err := col("secondary", roles.Secondary, false)
	if err != nil {
		return nil, err
	}

	out := make([]*Episode, f.Len())
	for i := range out {
		e := &Episode{SubjectID: subject.Key(i)}
		if x, ok := index.Number(i); ok {
			v := int(x)
			e.EpisodeIndex = &v
		}
		e.TerminalCode = terminalCode(terminal, i)
		e.IntervalStart = optTime(start, i)
		e.IntervalEnd = optTime(end, i)
		e.CensoringTime = optTime(censor, i)
		if secondary != nil {
			e.SecondaryStatus = optString(secondary, i)
		}
		out[i] = e
	}
	return out, nil
}

func optString(c *frame.Column, i int) *string {
	if c.IsMissing(i) {
		return nil
	}
	s := c.Format(i)
	if c.Kind == frame.KindBool {
		s = "0"
		if c.Bools[i] {
			s = "1"
		}
	}
	return &s
}

// terminalCode stores factor codes by level position so the declared
// level order survives a round trip through storage.
func terminalCode(c *frame.Column, i int) *string {
	if c.Kind != frame.KindFactor || c.IsMissing(i) {
		return optString(c, i)
	}
	s := strconv.Itoa(c.LevelIndex(c.Strings[i]))
	return &s
}

func optTime(c *frame.Column, i int) *time.Time {
	if c.IsMissing(i) {
		return nil
	}
	t := c.Times[i]
	return &t
}
