package db

import (
	"database/sql"
	"errors"
	"testing"

	_ "modernc.org/sqlite"
)

func openTestDB(t *testing.T) *sql.DB {
	t.Helper()
	sqlDB, err := sql.Open("sqlite", ":memory:")
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	t.Cleanup(func() { _ = sqlDB.Close() })
	if _, err := sqlDB.Exec(`CREATE TABLE items (id INTEGER PRIMARY KEY)`); err != nil {
		t.Fatalf("create table: %v", err)
	}
	return sqlDB
}

func countItems(t *testing.T, sqlDB *sql.DB) int {
	t.Helper()
	var n int
	if err := sqlDB.QueryRow(`SELECT COUNT(*) FROM items`).Scan(&n); err != nil {
		t.Fatalf("count: %v", err)
	}
	return n
}

func TestWithTxCommits(t *testing.T) {
	sqlDB := openTestDB(t)

	err := WithTx(sqlDB, func(tx *sql.Tx) error {
		_, err := tx.Exec(`INSERT INTO items (id) VALUES (1)`)
		return err
	})
	if err != nil {
		t.Fatalf("WithTx: %v", err)
	}
	if n := countItems(t, sqlDB); n != 1 {
		t.Errorf("rows = %d, want 1", n)
	}
}

func TestWithTxRollsBackOnError(t *testing.T) {
	sqlDB := openTestDB(t)
	boom := errors.New("boom")

	err := WithTx(sqlDB, func(tx *sql.Tx) error {
		if _, err := tx.Exec(`INSERT INTO items (id) VALUES (1)`); err != nil {
			return err
		}
		return boom
	})
	if !errors.Is(err, boom) {
		t.Fatalf("WithTx = %v, want boom", err)
	}
	if n := countItems(t, sqlDB); n != 0 {
		t.Errorf("rows = %d, want 0 after rollback", n)
	}
}
