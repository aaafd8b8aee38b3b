package frame

import (
	"encoding/json"
	"strings"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
)

func TestFrameJSON_RoundTrip(t *testing.T) {
	f := MustNew(
		NewStringColumn("id", []string{"a", "b"}),
		NewFactorColumn("status", []string{"IN", "OUT", "DEAD"}, []string{"IN", "DEAD"}),
		NewElapsedColumn("t", "hours", []float64{0, 1.5}),
		NewDateColumn("d", []time.Time{time.Date(2024, 2, 29, 0, 0, 0, 0, time.UTC), {}}).WithMissing([]bool{false, true}),
	)
	data, err := json.Marshal(f)
	if err != nil {
		t.Fatalf("Marshal() error: %v", err)
	}
	var back Frame
	if err := json.Unmarshal(data, &back); err != nil {
		t.Fatalf("Unmarshal() error: %v", err)
	}

	if diff := cmp.Diff(f.Names(), back.Names()); diff != "" {
		t.Errorf("names mismatch (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff(f.Records(), back.Records()); diff != "" {
		t.Errorf("records mismatch (-want +got):\n%s", diff)
	}
	status, _ := back.Column("status")
	if diff := cmp.Diff([]string{"IN", "OUT", "DEAD"}, status.Levels); diff != "" {
		t.Errorf("levels mismatch (-want +got):\n%s", diff)
	}
	tc, _ := back.Column("t")
	if tc.Kind != KindElapsed || tc.Unit != "hours" {
		t.Errorf("elapsed column decoded as %s %q", tc.Kind, tc.Unit)
	}
}

func TestFrameJSON_UnmarshalErrors(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{"unknown kind", `{"columns":[{"name":"a","kind":"uuid","values":[]}]}`},
		{"wrong value type", `{"columns":[{"name":"a","kind":"int","values":["x"]}]}`},
		{"bad date", `{"columns":[{"name":"a","kind":"date","values":["not a date"]}]}`},
		{"ragged", `{"columns":[{"name":"a","kind":"int","values":[1]},{"name":"b","kind":"int","values":[1,2]}]}`},
		{"undeclared level", `{"columns":[{"name":"a","kind":"factor","levels":["x"],"values":["y"]}]}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var f Frame
			if err := json.Unmarshal([]byte(tt.body), &f); err == nil {
				t.Error("expected error")
			}
		})
	}
}

func TestEncode(t *testing.T) {
	f := MustNew(NewIntColumn("n", []int64{7}))

	columnar, err := Encode(f, "")
	if err != nil {
		t.Fatalf("Encode() error: %v", err)
	}
	if !strings.HasPrefix(string(columnar), `{"columns":`) {
		t.Errorf("unexpected columnar form: %s", columnar)
	}

	rows, err := Encode(f, FormatRows)
	if err != nil {
		t.Fatalf("Encode() error: %v", err)
	}
	if string(rows) != `[{"n":7}]` {
		t.Errorf("unexpected rows form: %s", rows)
	}

	if _, err := Encode(f, "xml"); err == nil {
		t.Error("expected error for unknown format")
	}
}
