package frame

import (
	"bytes"
	"strings"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
)

const sampleCSV = `id,ep,dead,admit,los,flag,note
p1,1,0,2024-01-01,2.5,TRUE,first
p2,1,1,2024/01/03,NA,F,
p2,2,1,,4,T,NA
`

func TestReadCSV_Inference(t *testing.T) {
	f, err := ReadCSV(strings.NewReader(sampleCSV), ReadOptions{})
	if err != nil {
		t.Fatalf("ReadCSV() error: %v", err)
	}
	if f.Len() != 3 {
		t.Fatalf("expected 3 rows, got %d", f.Len())
	}

	wantKinds := map[string]Kind{
		"id": KindString, "ep": KindInt, "dead": KindInt, "admit": KindDate,
		"los": KindFloat, "flag": KindBool, "note": KindString,
	}
	for name, kind := range wantKinds {
		c, ok := f.Column(name)
		if !ok {
			t.Fatalf("column %s missing", name)
		}
		if c.Kind != kind {
			t.Errorf("column %s: kind %s, want %s", name, c.Kind, kind)
		}
	}

	admit, _ := f.Column("admit")
	if !admit.Times[1].Equal(time.Date(2024, 1, 3, 0, 0, 0, 0, time.UTC)) {
		t.Errorf("admit[1] = %v", admit.Times[1])
	}
	if !admit.IsMissing(2) || admit.IsMissing(0) {
		t.Errorf("unexpected admit mask %v", admit.Missing)
	}
	los, _ := f.Column("los")
	if !los.IsMissing(1) || los.Floats[2] != 4 {
		t.Errorf("unexpected los %v %v", los.Floats, los.Missing)
	}
	note, _ := f.Column("note")
	if diff := cmp.Diff([]bool{false, true, true}, note.Missing); diff != "" {
		t.Errorf("note mask mismatch (-want +got):\n%s", diff)
	}
}

func TestReadCSV_Schema(t *testing.T) {
	schema, err := ParseSchema("dead=factor:0|1|2, los=elapsed:weeks, ep=float")
	if err != nil {
		t.Fatalf("ParseSchema() error: %v", err)
	}
	f, err := ReadCSV(strings.NewReader(sampleCSV), ReadOptions{Schema: schema})
	if err != nil {
		t.Fatalf("ReadCSV() error: %v", err)
	}
	dead, _ := f.Column("dead")
	if dead.Kind != KindFactor {
		t.Fatalf("dead kind = %s", dead.Kind)
	}
	if diff := cmp.Diff([]string{"0", "1", "2"}, dead.Levels); diff != "" {
		t.Errorf("levels mismatch (-want +got):\n%s", diff)
	}
	los, _ := f.Column("los")
	if los.Kind != KindElapsed || los.Unit != "weeks" {
		t.Errorf("los = %s %q", los.Kind, los.Unit)
	}
	ep, _ := f.Column("ep")
	if ep.Kind != KindFloat {
		t.Errorf("ep kind = %s", ep.Kind)
	}
}

func TestReadCSV_Delimiter(t *testing.T) {
	f, err := ReadCSV(strings.NewReader("a;b\n1;x\n"), ReadOptions{Comma: ';'})
	if err != nil {
		t.Fatalf("ReadCSV() error: %v", err)
	}
	if diff := cmp.Diff([]string{"a", "b"}, f.Names()); diff != "" {
		t.Errorf("names mismatch (-want +got):\n%s", diff)
	}
}

func TestReadCSV_Errors(t *testing.T) {
	tests := []struct {
		name   string
		input  string
		schema map[string]string
	}{
		{"empty", "", nil},
		{"schema type mismatch", sampleCSV, map[string]string{"id": "int"}},
		{"unknown kind", sampleCSV, map[string]string{"id": "uuid"}},
		{"level not declared", sampleCSV, map[string]string{"dead": "factor:0|2"}},
		{"duplicate header", "a,a\n1,2\n", nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := ReadCSV(strings.NewReader(tt.input), ReadOptions{Schema: tt.schema}); err == nil {
				t.Error("expected error")
			}
		})
	}
}

func TestParseSchema(t *testing.T) {
	got, err := ParseSchema("")
	if err != nil || len(got) != 0 {
		t.Errorf("ParseSchema(\"\") = %v, %v", got, err)
	}
	for _, bad := range []string{"start", "=date", "start=clock"} {
		if _, err := ParseSchema(bad); err == nil {
			t.Errorf("ParseSchema(%q): expected error", bad)
		}
	}
}

func TestWriteCSV_RoundTrip(t *testing.T) {
	f := MustNew(
		NewStringColumn("id", []string{"a", "b"}),
		NewIntColumn("n", []int64{1, 2}).WithMissing([]bool{false, true}),
		NewDateColumn("d", []time.Time{time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC), {}}).WithMissing([]bool{false, true}),
		NewBoolColumn("b", []bool{true, false}),
	)
	var buf bytes.Buffer
	if err := WriteCSV(&buf, f); err != nil {
		t.Fatalf("WriteCSV() error: %v", err)
	}
	want := "id,n,d,b\na,1,2024-05-01,TRUE\nb,NA,NA,FALSE\n"
	if buf.String() != want {
		t.Errorf("WriteCSV() =\n%s\nwant\n%s", buf.String(), want)
	}

	back, err := ReadCSV(&buf, ReadOptions{})
	if err != nil {
		t.Fatalf("ReadCSV() error: %v", err)
	}
	if diff := cmp.Diff(f.Records(), back.Records()); diff != "" {
		t.Errorf("round trip mismatch (-want +got):\n%s", diff)
	}
}
