package indexer

import "fmt"

// SchemaValidationError reports a raw record missing a required field or
// failing type/range validation. The record is excluded from the load and
// reported; it never aborts the batch.
type SchemaValidationError struct {
	Field  string
	Reason string
}

func (e *SchemaValidationError) Error() string {
	return fmt.Sprintf("schema validation failed for field %q: %s", e.Field, e.Reason)
}

// LoadConflictError reports a uniqueness violation the supersede policy cannot
// resolve, such as two records with the same natural key in one batch and no
// determinable recency.
type LoadConflictError struct {
	Table string
	Key   string
}

func (e *LoadConflictError) Error() string {
	return fmt.Sprintf("load conflict on %s: ambiguous duplicate for key %q", e.Table, e.Key)
}
