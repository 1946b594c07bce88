package warehouse

import (
	"context"
	"database/sql"
	"hash/fnv"
)

// WithTableTx runs fn inside a single transaction holding exclusive write
// access to the given table: the in-process table lock for the duration of the
// transaction, plus a Postgres advisory lock when the backend is Postgres
// (released automatically at commit or rollback). DuckDB is single-writer, so
// the process lock alone is sufficient there.
//
// Either all statements issued by fn are committed or none are. Any failure is
// wrapped in StorageUnavailableError.
func WithTableTx(ctx context.Context, db DB, table string, fn func(tx *sql.Tx) error) error {
	unlock := db.LockTable(table)
	defer unlock()

	conn, err := db.Conn(ctx)
	if err != nil {
		return err
	}
	defer conn.Close()

	tx, err := conn.BeginTx(ctx, nil)
	if err != nil {
		return &StorageUnavailableError{Op: "begin transaction", Err: err}
	}

	if db.Backend() == BackendPostgres {
		if _, err := tx.ExecContext(ctx, "SELECT pg_advisory_xact_lock($1)", tableLockKey(table)); err != nil {
			_ = tx.Rollback()
			return &StorageUnavailableError{Op: "acquire advisory lock", Err: err}
		}
	}

	if err := fn(tx); err != nil {
		_ = tx.Rollback()
		return err
	}

	if err := tx.Commit(); err != nil {
		return &StorageUnavailableError{Op: "commit transaction", Err: err}
	}
	return nil
}

func tableLockKey(table string) int64 {
	h := fnv.New64a()
	_, _ = h.Write([]byte("risklake:" + table))
	return int64(h.Sum64())
}
