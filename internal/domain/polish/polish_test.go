package polish

import (
	"context"
	"errors"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/ehr/multistate/internal/domain/augment"
	"github.com/ehr/multistate/internal/platform/frame"
)

// augmented expands a small cohort: A is alive, B leaves and re-enters on
// day 5 and dies after follow-up ends.
func augmented(t *testing.T) *frame.Frame {
	t.Helper()
	in := frame.MustNew(
		frame.NewStringColumn("id", []string{"A", "B", "B"}),
		frame.NewIntColumn("ep", []int64{1, 1, 2}),
		frame.NewIntColumn("term", []int64{0, 2, 2}),
		frame.NewElapsedColumn("start", "days", []float64{0, 0, 5}),
		frame.NewElapsedColumn("end", "days", []float64{10, 5, 12}),
		frame.NewElapsedColumn("censor", "days", []float64{10, 20, 20}),
	)
	res, err := augment.Augment(context.Background(), in, augment.Roles{
		Subject: "id", Episode: "ep", Terminal: "term", Start: "start", End: "end", Censoring: "censor",
	}, augment.Options{})
	if err != nil {
		t.Fatalf("Augment() error: %v", err)
	}
	return res.Frame
}

func TestPolish_Report(t *testing.T) {
	f := augmented(t)
	res, err := Polish(f, Options{SubjectColumn: "id"})
	if err != nil {
		t.Fatalf("Polish() error: %v", err)
	}
	want := []Group{{Subject: "B", Time: 5, Rows: []int{3, 4}, Statuses: []string{"OUT", "IN"}, Conflict: true}}
	if diff := cmp.Diff(want, res.Groups); diff != "" {
		t.Errorf("groups mismatch (-want +got):\n%s", diff)
	}
	if res.Conflicts != 1 || res.Redundant != 0 || res.Dropped != 0 {
		t.Errorf("unexpected counts: %+v", res)
	}
	if res.Frame != f {
		t.Error("report mode must return the input table")
	}
}

func TestPolish_Collapse(t *testing.T) {
	res, err := Polish(augmented(t), Options{SubjectColumn: "id", Mode: ModeCollapse})
	if err != nil {
		t.Fatalf("Polish() error: %v", err)
	}
	if res.Dropped != 1 || res.Frame.Len() != 5 {
		t.Fatalf("dropped %d, %d rows left", res.Dropped, res.Frame.Len())
	}
	status, _ := res.Frame.Column(augment.ColStatus)
	if diff := cmp.Diff([]string{"IN", "OUT", "IN", "IN", "DEAD"}, status.Strings); diff != "" {
		t.Errorf("status mismatch (-want +got):\n%s", diff)
	}
}

func TestPolish_RedundantGroup(t *testing.T) {
	f := frame.MustNew(
		frame.NewStringColumn("id", []string{"a", "a", "a", "b"}),
		frame.NewIntColumn(augment.ColAugmentedInt, []int64{0, 0, 3, 0}),
		frame.NewStringColumn(augment.ColStatus, []string{"IN", "IN", "OUT", "IN"}),
	)
	res, err := Polish(f, Options{SubjectColumn: "id", Mode: ModeCollapse})
	if err != nil {
		t.Fatalf("Polish() error: %v", err)
	}
	if res.Redundant != 1 || res.Conflicts != 0 {
		t.Errorf("unexpected counts: %+v", res)
	}
	ids, _ := res.Frame.Column("id")
	if diff := cmp.Diff([]string{"a", "a", "b"}, ids.Strings); diff != "" {
		t.Errorf("ids mismatch (-want +got):\n%s", diff)
	}
}

func TestPolish_MissingTimesNeverGroup(t *testing.T) {
	f := frame.MustNew(
		frame.NewStringColumn("id", []string{"a", "a"}),
		frame.NewIntColumn(augment.ColAugmentedInt, []int64{0, 0}).WithMissing([]bool{true, true}),
		frame.NewStringColumn(augment.ColStatus, []string{"IN", "OUT"}),
	)
	res, err := Polish(f, Options{SubjectColumn: "id"})
	if err != nil {
		t.Fatalf("Polish() error: %v", err)
	}
	if len(res.Groups) != 0 {
		t.Errorf("expected no groups, got %+v", res.Groups)
	}
}

func TestPolish_IntegerElapsedAxis(t *testing.T) {
	f := frame.MustNew(
		frame.NewStringColumn("id", []string{"a", "a", "a", "a"}),
		frame.NewIntColumn(augment.ColAugmentedNum, []int64{0, 5, 5, 20}),
		frame.NewStringColumn(augment.ColStatus, []string{"IN", "OUT", "IN", "DEAD"}),
	)
	res, err := Polish(f, Options{SubjectColumn: "id"})
	if err != nil {
		t.Fatalf("Polish() error: %v", err)
	}
	want := []Group{{Subject: "a", Time: 5, Rows: []int{1, 2}, Statuses: []string{"OUT", "IN"}, Conflict: true}}
	if diff := cmp.Diff(want, res.Groups); diff != "" {
		t.Errorf("groups mismatch (-want +got):\n%s", diff)
	}
}

func TestPolish_Errors(t *testing.T) {
	noStatus := frame.MustNew(
		frame.NewStringColumn("id", []string{"a"}),
		frame.NewIntColumn(augment.ColAugmentedInt, []int64{0}),
	)
	noAxis := frame.MustNew(
		frame.NewStringColumn("id", []string{"a"}),
		frame.NewStringColumn(augment.ColStatus, []string{"IN"}),
	)
	stringAxis := frame.MustNew(
		frame.NewStringColumn("id", []string{"a"}),
		frame.NewStringColumn(augment.ColAugmentedInt, []string{"0"}),
		frame.NewStringColumn(augment.ColStatus, []string{"IN"}),
	)

	tests := []struct {
		name    string
		f       *frame.Frame
		subject string
		config  bool
	}{
		{"no subject column name", noStatus, "", true},
		{"unknown subject column", noStatus, "patient", false},
		{"no status column", noStatus, "id", false},
		{"no time axis", noAxis, "id", false},
		{"non-integer day axis", stringAxis, "id", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Polish(tt.f, Options{SubjectColumn: tt.subject})
			var ce *augment.ConfigurationError
			var se *augment.SchemaError
			if tt.config && !errors.As(err, &ce) {
				t.Fatalf("expected ConfigurationError, got %v", err)
			}
			if !tt.config && !errors.As(err, &se) {
				t.Fatalf("expected SchemaError, got %v", err)
			}
		})
	}
}

func TestParseMode(t *testing.T) {
	for in, want := range map[string]Mode{"": ModeReport, "report": ModeReport, "collapse": ModeCollapse} {
		got, err := ParseMode(in)
		if err != nil || got != want {
			t.Errorf("ParseMode(%q) = %v, %v", in, got, err)
		}
	}
	if _, err := ParseMode("merge"); err == nil {
		t.Error("expected error for unknown mode")
	}
}
