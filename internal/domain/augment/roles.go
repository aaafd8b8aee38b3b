package augment

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/ehr/multistate/internal/platform/frame"
)

// Roles maps each input role to a column name. Secondary is optional.
type Roles struct {
	Subject   string `yaml:"subject" json:"subject" validate:"required"`
	Episode   string `yaml:"episode" json:"episode" validate:"required"`
	Terminal  string `yaml:"terminal" json:"terminal" validate:"required"`
	Start     string `yaml:"start" json:"start" validate:"required"`
	End       string `yaml:"end" json:"end" validate:"required"`
	Censoring string `yaml:"censoring" json:"censoring" validate:"required"`
	Secondary string `yaml:"secondary,omitempty" json:"secondary,omitempty"`
}

// LoadRoles reads a YAML role mapping file.
func LoadRoles(path string) (Roles, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Roles{}, fmt.Errorf("read roles file: %w", err)
	}
	return ParseRoles(data)
}

// ParseRoles decodes a YAML role mapping.
func ParseRoles(data []byte) (Roles, error) {
	var r Roles
	if err := yaml.Unmarshal(data, &r); err != nil {
		return Roles{}, fmt.Errorf("parse roles: %w", err)
	}
	return r, nil
}

// Merge fills the empty roles of r from other.
func (r Roles) Merge(other Roles) Roles {
	pick := func(a, b string) string {
		if a != "" {
			return a
		}
		return b
	}
	return Roles{
		Subject:   pick(r.Subject, other.Subject),
		Episode:   pick(r.Episode, other.Episode),
		Terminal:  pick(r.Terminal, other.Terminal),
		Start:     pick(r.Start, other.Start),
		End:       pick(r.End, other.End),
		Censoring: pick(r.Censoring, other.Censoring),
		Secondary: pick(r.Secondary, other.Secondary),
	}
}

func (r Roles) required() []struct{ role, column string } {
	return []struct{ role, column string }{
		{"subject", r.Subject},
		{"episode", r.Episode},
		{"terminal", r.Terminal},
		{"start", r.Start},
		{"end", r.End},
		{"censoring", r.Censoring},
	}
}

// bound holds the columns resolved once from Roles.
type bound struct {
	subject   *frame.Column
	episode   *frame.Column
	terminal  *frame.Column
	start     *frame.Column
	end       *frame.Column
	censoring *frame.Column
	secondary *frame.Column // nil when no secondary refinement
}

func bindRoles(f *frame.Frame, r Roles) (*bound, error) {
	for _, req := range r.required() {
		if req.column == "" {
			return nil, &ConfigurationError{Param: req.role + "_column", Reason: "column name is required"}
		}
	}
	lookup := func(name string) (*frame.Column, error) {
		c, ok := f.Column(name)
		if !ok {
			return nil, &SchemaError{Column: name, Reason: "column not found"}
		}
		return c, nil
	}

	b := &bound{}
	targets := []struct {
		name string
		dst  **frame.Column
	}{
		{r.Subject, &b.subject},
		{r.Episode, &b.episode},
		{r.Terminal, &b.terminal},
		{r.Start, &b.start},
		{r.End, &b.end},
		{r.Censoring, &b.censoring},
	}
	for _, t := range targets {
		c, err := lookup(t.name)
		if err != nil {
			return nil, err
		}
		*t.dst = c
	}
	if r.Secondary != "" {
		c, err := lookup(r.Secondary)
		if err != nil {
			return nil, err
		}
		b.secondary = c
	}

	switch b.episode.Kind {
	case frame.KindInt, frame.KindFloat:
	default:
		return nil, &SchemaError{Column: r.Episode, Reason: fmt.Sprintf("episode index must be numeric, got %s", b.episode.Kind)}
	}
	return b, nil
}

// episodeIndex returns the ordinal of row i and whether it is present.
func (b *bound) episodeIndex(i int) (float64, bool) {
	return b.episode.Number(i)
}
