package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"path/filepath"
	"runtime"
	"testing"

	"github.com/uptrace/bun"
)

func openTestDB(t *testing.T) *DB {
	t.Helper()
	dbPath := filepath.Join(t.TempDir(), "test.db")
	db, err := OpenDB(dbPath)
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	t.Cleanup(func() {
		_ = db.Close()
	})
	_, file, _, ok := runtime.Caller(0)
	if !ok {
		t.Fatalf("runtime caller unavailable")
	}
	migrationsDir := filepath.Join(filepath.Dir(file), "migrations")
	if err := ApplyMigrations(context.Background(), db, migrationsDir); err != nil {
		t.Fatalf("apply migrations: %v", err)
	}
	return db
}

const insertWorker = `INSERT INTO workers (name) VALUES (?)`

func countWorkers(t *testing.T, db *DB, name string) int {
	t.Helper()
	var count int
	err := db.WithReadTx(context.Background(), func(ctx context.Context, tx bun.Tx) error {
		return tx.NewRaw(`SELECT COUNT(*) FROM workers WHERE name = ?`, name).Scan(ctx, &count)
	})
	if err != nil {
		t.Fatalf("count workers: %v", err)
	}
	return count
}

func TestWithWriteTxRollsBackOnError(t *testing.T) {
	db := openTestDB(t)

	boom := errors.New("boom")
	err := db.WithWriteTx(context.Background(), func(ctx context.Context, tx bun.Tx) error {
		if _, err := tx.ExecContext(ctx, insertWorker, "rollback-worker"); err != nil {
			return err
		}
		return boom
	})
	if !errors.Is(err, boom) {
		t.Fatalf("expected boom error, got: %v", err)
	}
	if count := countWorkers(t, db, "rollback-worker"); count != 0 {
		t.Fatalf("expected rollback to remove insert, count=%d", count)
	}
}

func TestWithWriteTxCommitsOnSuccess(t *testing.T) {
	db := openTestDB(t)

	err := db.WithWriteTx(context.Background(), func(ctx context.Context, tx bun.Tx) error {
		_, err := tx.ExecContext(ctx, insertWorker, "commit-worker")
		return err
	})
	if err != nil {
		t.Fatalf("write tx failed: %v", err)
	}
	if count := countWorkers(t, db, "commit-worker"); count != 1 {
		t.Fatalf("expected committed insert, count=%d", count)
	}
}

func TestWithReadTxRejectsWrite(t *testing.T) {
	db := openTestDB(t)

	err := db.WithReadTx(context.Background(), func(ctx context.Context, tx bun.Tx) error {
		_, err := tx.ExecContext(ctx, insertWorker, "read-only-worker")
		return err
	})
	if err == nil && countWorkers(t, db, "read-only-worker") > 0 {
		t.Fatalf("expected write in read tx to be blocked; write succeeded")
	}
}

func TestNilDBReturnsError(t *testing.T) {
	var db *DB
	if err := db.WithWriteTx(context.Background(), func(context.Context, bun.Tx) error { return nil }); err == nil {
		t.Fatalf("expected error for nil db")
	}
	if !IsNoRows(fmt.Errorf("wrap: %w", sql.ErrNoRows)) {
		t.Fatalf("expected IsNoRows to see wrapped sql.ErrNoRows")
	}
}
