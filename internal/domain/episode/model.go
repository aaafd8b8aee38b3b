package episode

import (
	"time"

	"github.com/google/uuid"
)

// Episode maps to the episode table: one observation interval of a subject
// within a cohort. Nullable columns are pointers.
type Episode struct {
	ID              uuid.UUID  `db:"id" json:"id"`
	Cohort          string     `db:"cohort" json:"cohort"`
	SubjectID       string     `db:"subject_id" json:"subject_id"`
	EpisodeIndex    *int       `db:"episode_index" json:"episode_index,omitempty"`
	TerminalCode    *string    `db:"terminal_code" json:"terminal_code,omitempty"`
	IntervalStart   *time.Time `db:"interval_start" json:"interval_start,omitempty"`
	IntervalEnd     *time.Time `db:"interval_end" json:"interval_end,omitempty"`
	CensoringTime   *time.Time `db:"censoring_time" json:"censoring_time,omitempty"`
	SecondaryStatus *string    `db:"secondary_status" json:"secondary_status,omitempty"`
	CreatedAt       time.Time  `db:"created_at" json:"created_at"`
}
