package catalog

import "fmt"

// SchemaCacheError reports a patch that referenced a column absent from the
// store's cached schema description. It implements the classification
// interfaces consumed by internal/writeretry, so callers can distinguish a
// stale cache from a genuinely broken write.
type SchemaCacheError struct {
	Table  string
	Column string
}

func (e *SchemaCacheError) Error() string {
	return fmt.Sprintf("could not find the %q column of %q in the schema cache", e.Column, e.Table)
}

// ErrorKind classifies the error for retry policy decisions.
func (e *SchemaCacheError) ErrorKind() string { return "schema_cache" }

// MissingColumn names the column the schema cache could not find.
func (e *SchemaCacheError) MissingColumn() string { return e.Column }
