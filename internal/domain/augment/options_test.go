package augment

import (
	"errors"
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestParseVocabulary(t *testing.T) {
	tests := []struct {
		in   string
		want []string
	}{
		{"", nil},
		{"   ", nil},
		{"IN,OUT,DEAD", []string{"IN", "OUT", "DEAD"}},
		{" in , out ,dead ", []string{"in", "out", "dead"}},
		{"A,B", []string{"A", "B"}},
	}
	for _, tt := range tests {
		if diff := cmp.Diff(tt.want, ParseVocabulary(tt.in)); diff != "" {
			t.Errorf("ParseVocabulary(%q) mismatch (-want +got):\n%s", tt.in, diff)
		}
	}
}

func TestValidateVocabulary(t *testing.T) {
	tests := []struct {
		name  string
		vocab []string
		ok    bool
	}{
		{"default", DefaultVocabulary(), true},
		{"custom", []string{"enter", "leave", "die"}, true},
		{"too short", []string{"IN", "OUT"}, false},
		{"too long", []string{"IN", "OUT", "DEAD", "LOST"}, false},
		{"empty label", []string{"IN", "", "DEAD"}, false},
		{"duplicate", []string{"IN", "OUT", "IN"}, false},
		{"nil", nil, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateVocabulary(tt.vocab)
			if tt.ok {
				if err != nil {
					t.Errorf("unexpected error: %v", err)
				}
				return
			}
			var ce *ConfigurationError
			if !errors.As(err, &ce) {
				t.Fatalf("expected ConfigurationError, got %v", err)
			}
			if ce.Param != "label_vocabulary" {
				t.Errorf("Param = %q", ce.Param)
			}
		})
	}
}

func TestOptions_VocabularyIsCopied(t *testing.T) {
	labels := []string{"IN", "OUT", "DEAD"}
	v, err := Options{Vocabulary: labels}.vocabulary()
	if err != nil {
		t.Fatal(err)
	}
	v[0] = "changed"
	if labels[0] != "IN" {
		t.Error("caller's vocabulary was modified")
	}
}
