package episode

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"

	"github.com/ehr/multistate/internal/domain/augment"
	"github.com/ehr/multistate/internal/platform/frame"
)

func day(s string) *time.Time {
	t, err := time.Parse("2006-01-02", s)
	if err != nil {
		panic(err)
	}
	return &t
}

func intp(v int) *int { return &v }
func strp(s string) *string { return &s }

func sampleEpisodes() []*Episode {
	return []*Episode{
		{SubjectID: "p1", EpisodeIndex: intp(1), TerminalCode: strp("0"),
			IntervalStart: day("2024-01-01"), IntervalEnd: day("2024-01-11"), CensoringTime: day("2024-01-11")},
		{SubjectID: "p2", EpisodeIndex: intp(1), TerminalCode: strp("2"),
			IntervalStart: day("2024-01-01"), IntervalEnd: day("2024-01-06"), CensoringTime: day("2024-01-21")},
		{SubjectID: "p2", EpisodeIndex: intp(2), TerminalCode: strp("2"),
			IntervalStart: day("2024-01-06"), IntervalEnd: day("2024-01-13"), CensoringTime: day("2024-01-21"),
			SecondaryStatus: strp("icu")},
	}
}

func TestToFrame_IntegerTerminalCodes(t *testing.T) {
	f, err := ToFrame(sampleEpisodes())
	if err != nil {
		t.Fatalf("ToFrame() error: %v", err)
	}
	if f.Len() != 3 {
		t.Fatalf("expected 3 rows, got %d", f.Len())
	}
	want := []string{ColSubject, ColEpisode, ColTerminal, ColStart, ColEnd, ColCensoring, ColSecondary}
	if diff := cmp.Diff(want, f.Names()); diff != "" {
		t.Errorf("column names mismatch (-want +got):\n%s", diff)
	}

	term, _ := f.Column(ColTerminal)
	if term.Kind != frame.KindInt {
		t.Fatalf("expected integer terminal column, got %s", term.Kind)
	}
	if diff := cmp.Diff([]int64{0, 2, 2}, term.Ints); diff != "" {
		t.Errorf("terminal codes mismatch (-want +got):\n%s", diff)
	}

	sec, _ := f.Column(ColSecondary)
	if !sec.IsMissing(0) || !sec.IsMissing(1) || sec.IsMissing(2) {
		t.Errorf("unexpected secondary missing mask: %v", sec.Missing)
	}
	idx, _ := f.Column(ColEpisode)
	if idx.HasMissing() {
		t.Error("expected no missing episode indices")
	}
}

func TestToFrame_StringTerminalCodes(t *testing.T) {
	eps := sampleEpisodes()
	eps[0].TerminalCode = strp("alive")
	eps[1].TerminalCode = nil

	f, err := ToFrame(eps)
	if err != nil {
		t.Fatalf("ToFrame() error: %v", err)
	}
	term, _ := f.Column(ColTerminal)
	if term.Kind != frame.KindString {
		t.Fatalf("expected string terminal column, got %s", term.Kind)
	}
	if !term.IsMissing(1) {
		t.Error("expected row 1 terminal code to be missing")
	}
}

func TestToFrame_Empty(t *testing.T) {
	f, err := ToFrame(nil)
	if err != nil {
		t.Fatalf("ToFrame() error: %v", err)
	}
	if f.Len() != 0 {
		t.Errorf("expected empty frame, got %d rows", f.Len())
	}
}

func TestFromFrame_RoundTrip(t *testing.T) {
	eps := sampleEpisodes()
	f, err := ToFrame(eps)
	if err != nil {
		t.Fatalf("ToFrame() error: %v", err)
	}
	got, err := FromFrame(f, DefaultRoles())
	if err != nil {
		t.Fatalf("FromFrame() error: %v", err)
	}
	if diff := cmp.Diff(eps, got); diff != "" {
		t.Errorf("round trip mismatch (-want +got):\n%s", diff)
	}
}

func TestFromFrame_NonDateInterval(t *testing.T) {
	f := frame.MustNew(
		frame.NewStringColumn("id", []string{"a"}),
		frame.NewIntColumn("k", []int64{1}),
		frame.NewIntColumn("code", []int64{0}),
		frame.NewFloatColumn("from", []float64{0}),
		frame.NewFloatColumn("to", []float64{10}),
		frame.NewFloatColumn("cens", []float64{10}),
	)
	roles := augment.Roles{Subject: "id", Episode: "k", Terminal: "code", Start: "from", End: "to", Censoring: "cens"}
	_, err := FromFrame(f, roles)
	var se *augment.SchemaError
	if !errors.As(err, &se) {
		t.Fatalf("expected SchemaError, got %v", err)
	}
	if se.Column != "from" {
		t.Errorf("expected column from, got %s", se.Column)
	}
}

func TestFromFrame_MissingRole(t *testing.T) {
	f, _ := ToFrame(sampleEpisodes())
	roles := DefaultRoles()
	roles.Terminal = ""
	_, err := FromFrame(f, roles)
	var ce *augment.ConfigurationError
	if !errors.As(err, &ce) {
		t.Fatalf("expected ConfigurationError, got %v", err)
	}
}

func TestToFrame_FeedsAugment(t *testing.T) {
	f, err := ToFrame(sampleEpisodes())
	if err != nil {
		t.Fatalf("ToFrame() error: %v", err)
	}
	res, err := augment.Augment(context.Background(), f, DefaultRoles(), augment.Options{})
	if err != nil {
		t.Fatalf("Augment() error: %v", err)
	}
	// p1 alive with one episode: IN, OUT. p2 dead outside with two: IN, OUT, IN, DEAD.
	if res.Frame.Len() != 6 {
		t.Fatalf("expected 6 rows, got %d", res.Frame.Len())
	}
	status, _ := res.Frame.Column(augment.ColStatus)
	want := []string{"IN", "OUT", "IN", "OUT", "IN", "DEAD"}
	if diff := cmp.Diff(want, status.Strings); diff != "" {
		t.Errorf("status mismatch (-want +got):\n%s", diff)
	}
	rel, _ := res.Frame.Column(augment.ColAugmentedInt)
	if diff := cmp.Diff([]int64{0, 10, 0, 5, 5, 20}, rel.Ints); diff != "" {
		t.Errorf("relative days mismatch (-want +got):\n%s", diff)
	}
}

func TestFromFrame_FactorTerminalKeepsLevelOrder(t *testing.T) {
	jan := func(d int) time.Time { return time.Date(2024, 1, d, 0, 0, 0, 0, time.UTC) }
	f := frame.MustNew(
		frame.NewStringColumn("id", []string{"a", "b", "c"}),
		frame.NewIntColumn("k", []int64{1, 1, 1}),
		frame.NewFactorColumn("dead", []string{"no", "in", "out"}, []string{"no", "in", "out"}),
		frame.NewDateColumn("from", []time.Time{jan(1), jan(1), jan(1)}),
		frame.NewDateColumn("to", []time.Time{jan(11), jan(6), jan(6)}),
		frame.NewDateColumn("cens", []time.Time{jan(11), jan(6), jan(21)}),
	)
	roles := augment.Roles{Subject: "id", Episode: "k", Terminal: "dead", Start: "from", End: "to", Censoring: "cens"}
	eps, err := FromFrame(f, roles)
	if err != nil {
		t.Fatalf("FromFrame() error: %v", err)
	}
	var codes []string
	for _, e := range eps {
		codes = append(codes, *e.TerminalCode)
	}
	if diff := cmp.Diff([]string{"0", "1", "2"}, codes); diff != "" {
		t.Errorf("stored codes mismatch (-want +got):\n%s", diff)
	}

	reloaded, err := ToFrame(eps)
	if err != nil {
		t.Fatalf("ToFrame() error: %v", err)
	}
	res, err := augment.Augment(context.Background(), reloaded, DefaultRoles(), augment.Options{})
	if err != nil {
		t.Fatalf("Augment() error: %v", err)
	}
	status, _ := res.Frame.Column(augment.ColStatus)
	if diff := cmp.Diff([]string{"IN", "OUT", "IN", "DEAD", "IN", "DEAD"}, status.Strings); diff != "" {
		t.Errorf("status mismatch (-want +got):\n%s", diff)
	}
	rel, _ := res.Frame.Column(augment.ColAugmentedInt)
	if diff := cmp.Diff([]int64{0, 10, 0, 5, 0, 20}, rel.Ints); diff != "" {
		t.Errorf("relative days mismatch (-want +got):\n%s", diff)
	}
}
