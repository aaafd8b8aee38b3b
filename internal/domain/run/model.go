package run

import (
	"time"

	"github.com/google/uuid"
)

// Run maps to the augment_run table: one stored augmentation of a cohort.
type Run struct {
	ID         uuid.UUID `db:"id" json:"id"`
	Cohort     string    `db:"cohort" json:"cohort"`
	Vocabulary []string  `db:"vocabulary" json:"vocabulary"`
	Secondary  bool      `db:"secondary" json:"secondary"`
	Polished   bool      `db:"polished" json:"polished"`
	Family     string    `db:"family" json:"family"`
	Subjects   int       `db:"subjects" json:"subjects"`
	Rows       int       `db:"row_count" json:"rows"`
	Warnings   []string  `db:"warnings" json:"warnings"`
	CreatedBy  *string   `db:"created_by" json:"created_by,omitempty"`
	CreatedAt  time.Time `db:"created_at" json:"created_at"`
}

// Row maps to augmented_row. Record holds every output column of the row;
// subject and status are lifted out for filtering.
type Row struct {
	RunID     uuid.UUID              `db:"run_id" json:"run_id"`
	Index     int                    `db:"row_index" json:"index"`
	SubjectID string                 `db:"subject_id" json:"subject_id"`
	Status    *string                `db:"status" json:"status,omitempty"`
	StatusNum *int                   `db:"status_num" json:"status_num,omitempty"`
	Record    map[string]interface{} `db:"record" json:"record"`
}
