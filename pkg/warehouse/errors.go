package warehouse

import "fmt"

// StorageUnavailableError reports a connection or transaction failure at the
// storage boundary. It is fatal to the current run; no partial commit is left
// behind, so the next scheduled run can safely retry.
type StorageUnavailableError struct {
	Op  string
	Err error
}

func (e *StorageUnavailableError) Error() string {
	return fmt.Sprintf("storage unavailable during %s: %v", e.Op, e.Err)
}

func (e *StorageUnavailableError) Unwrap() error { return e.Err }
