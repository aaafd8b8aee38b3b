package augment

import (
	"errors"
	"fmt"
)

// ConfigurationError reports caller-supplied parameters that are
// inconsistent on their own, independent of the data.
type ConfigurationError struct {
	Param  string
	Reason string
}

func (e *ConfigurationError) Error() string {
	return fmt.Sprintf("configuration error: %s: %s", e.Param, e.Reason)
}

// SchemaError reports an input column whose shape, type or encoding does not
// fit its role.
type SchemaError struct {
	Column string
	Reason string
}

func (e *SchemaError) Error() string {
	return fmt.Sprintf("schema error: column %q: %s", e.Column, e.Reason)
}

// DataQualityError reports missing values in a required column.
type DataQualityError struct {
	Column string
	Row    int // first offending row, 0-based
	Count  int
	Reason string
}

func (e *DataQualityError) Error() string {
	if e.Reason != "" {
		return fmt.Sprintf("data quality error: column %q: %s", e.Column, e.Reason)
	}
	return fmt.Sprintf("data quality error: column %q has %d missing value(s), first at row %d", e.Column, e.Count, e.Row+1)
}

// IsValidationError reports whether err is one of the augmentation error kinds.
func IsValidationError(err error) bool {
	var ce *ConfigurationError
	var se *SchemaError
	var de *DataQualityError
	return errors.As(err, &ce) || errors.As(err, &se) || errors.As(err, &de)
}
