package repo

import (
	"context"
	"database/sql"
	"fmt"

	_ "modernc.org/sqlite"
)

// NewSQLiteRepo opens path (":memory:" is fine) with a single connection so that
// an in-memory database is shared by every statement.
func NewSQLiteRepo(ctx context.Context, path string) (*SQLRepo, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}
	db.SetMaxOpenConns(1)
	if _, err := db.ExecContext(ctx, `PRAGMA journal_mode=WAL`); err != nil && path != ":memory:" {
		_ = db.Close()
		return nil, fmt.Errorf("sqlite pragma: %w", err)
	}
	return NewSQLRepo(ctx, db)
}
