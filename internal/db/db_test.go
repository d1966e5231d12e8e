package db

import (
	"context"
	"database/sql"
	"errors"
	"path/filepath"
	"testing"
	"time"
)

func openTestDB(t *testing.T) *sql.DB {
	t.Helper()
	conn, err := Open(Config{Path: filepath.Join(t.TempDir(), "test.db")})
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	t.Cleanup(func() { conn.Close() })
	if _, err := conn.Exec(`CREATE TABLE items (name TEXT NOT NULL)`); err != nil {
		t.Fatalf("create table: %v", err)
	}
	return conn
}

func countItems(t *testing.T, conn *sql.DB) int {
	t.Helper()
	var n int
	if err := conn.QueryRow(`SELECT count(*) FROM items`).Scan(&n); err != nil {
		t.Fatalf("count: %v", err)
	}
	return n
}

func TestWithTxCommits(t *testing.T) {
	conn := openTestDB(t)
	err := WithTx(context.Background(), conn, time.Second, func(tx *sql.Tx) error {
		_, err := tx.Exec(`INSERT INTO items(name) VALUES ('kept')`)
		return err
	})
	if err != nil {
		t.Fatalf("with tx: %v", err)
	}
	if n := countItems(t, conn); n != 1 {
		t.Fatalf("items = %d, want 1", n)
	}
}

func TestWithTxRollsBackOnError(t *testing.T) {
	conn := openTestDB(t)
	boom := errors.New("boom")
	err := WithTx(context.Background(), conn, time.Second, func(tx *sql.Tx) error {
		if _, err := tx.Exec(`INSERT INTO items(name) VALUES ('discarded')`); err != nil {
			return err
		}
		return boom
	})
	if !errors.Is(err, boom) {
		t.Fatalf("err = %v, want wrapped boom", err)
	}
	if n := countItems(t, conn); n != 0 {
		t.Fatalf("items = %d after rollback, want 0", n)
	}
}

func TestWithTxReleasesConnections(t *testing.T) {
	conn := openTestDB(t)
	// More iterations than the pool holds; a leaked connection would make a
	// later acquisition time out.
	for i := 0; i < DefaultPoolSize+DefaultMaxOverflow+5; i++ {
		err := WithTx(context.Background(), conn, 500*time.Millisecond, func(tx *sql.Tx) error {
			_, err := tx.Exec(`INSERT INTO items(name) VALUES ('n')`)
			return err
		})
		if err != nil {
			t.Fatalf("iteration %d: %v", i, err)
		}
	}
}
