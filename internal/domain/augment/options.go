package augment

import (
	"fmt"
	"strings"

	"github.com/rs/zerolog"
)

// SecondaryDefault is the secondary status value that falls back to the
// plain three-state label.
const SecondaryDefault = "df"

const (
	sequenceSeparator = "."
	expandedSeparator = "_"
)

// DefaultVocabulary returns the default labels for the entering, released and
// terminal states.
func DefaultVocabulary() []string {
	return []string{"IN", "OUT", "DEAD"}
}

// ParseVocabulary splits a comma separated label list.
func ParseVocabulary(s string) []string {
	if strings.TrimSpace(s) == "" {
		return nil
	}
	parts := strings.Split(s, ",")
	for i := range parts {
		parts[i] = strings.TrimSpace(parts[i])
	}
	return parts
}

// Options tunes an augmentation run.
type Options struct {
	// Vocabulary holds the labels for the entering, released and terminal
	// states, in that order. Nil means DefaultVocabulary.
	Vocabulary []string
	// ValidateMissing scans the role columns for missing values before any
	// expansion and fails on the first one found.
	ValidateMissing bool
	// Workers bounds the number of subjects expanded concurrently. Values
	// below 2 run sequentially.
	Workers int
	// Verbose enables progress messages. Warnings are logged regardless.
	Verbose bool
	Logger  *zerolog.Logger
}

// ValidateVocabulary checks that v has exactly three distinct, non-empty labels.
func ValidateVocabulary(v []string) error {
	if len(v) != 3 {
		return &ConfigurationError{Param: "label_vocabulary", Reason: fmt.Sprintf("expected 3 labels, got %d", len(v))}
	}
	seen := make(map[string]bool, 3)
	for _, l := range v {
		if l == "" {
			return &ConfigurationError{Param: "label_vocabulary", Reason: "labels must not be empty"}
		}
		if seen[l] {
			return &ConfigurationError{Param: "label_vocabulary", Reason: fmt.Sprintf("duplicate label %q", l)}
		}
		seen[l] = true
	}
	return nil
}

func (o Options) vocabulary() ([]string, error) {
	v := o.Vocabulary
	if v == nil {
		v = DefaultVocabulary()
	}
	if err := ValidateVocabulary(v); err != nil {
		return nil, err
	}
	return append([]string(nil), v...), nil
}

func (o Options) logger() zerolog.Logger {
	if o.Logger == nil {
		return zerolog.Nop()
	}
	return *o.Logger
}

func (o Options) progress() zerolog.Logger {
	if !o.Verbose {
		return zerolog.Nop()
	}
	return o.logger()
}
