// Package db holds small database/sql helpers shared by storage code.
package db

import "database/sql"

// WithTx executes fn within a transaction: Begin, Rollback on error,
// Commit on success.
func WithTx(db *sql.DB, fn func(tx *sql.Tx) error) error {
	tx, err := db.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback() //nolint:errcheck // rollback after commit is a no-op

	if err := fn(tx); err != nil {
		return err
	}
	return tx.Commit()
}
