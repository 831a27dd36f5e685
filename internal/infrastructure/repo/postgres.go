package repo

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	"farmcart-backend/internal/domain"

	_ "github.com/lib/pq"
)

// SQLRepo stores orders and wallet snapshots as JSON documents keyed by id.
// The statements run unchanged on Postgres and SQLite.
type SQLRepo struct {
	db *sql.DB
}

func NewPostgresRepo(ctx context.Context, dsn string) (*SQLRepo, error) {
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, err
	}
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("postgres ping: %w", err)
	}
	return NewSQLRepo(ctx, db)
}

// NewSQLRepo wraps an open handle and creates the tables if needed.
func NewSQLRepo(ctx context.Context, db *sql.DB) (*SQLRepo, error) {
	r := &SQLRepo{db: db}
	if err := r.init(ctx); err != nil {
		return nil, err
	}
	return r, nil
}

func (r *SQLRepo) Close() error { return r.db.Close() }

func (r *SQLRepo) init(ctx context.Context) error {
	_, err := r.db.ExecContext(ctx, `CREATE TABLE IF NOT EXISTS orders (
		id TEXT PRIMARY KEY,
		customer_id TEXT NOT NULL,
		status TEXT NOT NULL,
		created_at BIGINT NOT NULL,
		updated_at BIGINT NOT NULL,
		body TEXT NOT NULL
	)`)
	if err != nil {
		return fmt.Errorf("create orders: %w", err)
	}
	_, err = r.db.ExecContext(ctx, `CREATE TABLE IF NOT EXISTS wallets (
		account_id TEXT PRIMARY KEY,
		balance TEXT NOT NULL,
		updated_at BIGINT NOT NULL,
		body TEXT NOT NULL
	)`)
	if err != nil {
		return fmt.Errorf("create wallets: %w", err)
	}
	_, err = r.db.ExecContext(ctx, `CREATE TABLE IF NOT EXISTS wallet_transactions (
		id TEXT PRIMARY KEY,
		account_id TEXT NOT NULL,
		seq INTEGER NOT NULL,
		type TEXT NOT NULL,
		status TEXT NOT NULL,
		body TEXT NOT NULL
	)`)
	if err != nil {
		return fmt.Errorf("create wallet_transactions: %w", err)
	}
	return nil
}

func (r *SQLRepo) PutOrder(ctx context.Context, o *domain.Order) error {
	body, err := json.Marshal(o)
	if err != nil {
		return err
	}
	_, err = r.db.ExecContext(ctx, `INSERT INTO orders (id,customer_id,status,created_at,updated_at,body)
		VALUES ($1,$2,$3,$4,$5,$6)
		ON CONFLICT (id) DO UPDATE SET customer_id=excluded.customer_id,status=excluded.status,updated_at=excluded.updated_at,body=excluded.body`,
		o.ID, o.CustomerID, string(o.Status), o.CreatedAt.UnixNano(), o.UpdatedAt.UnixNano(), string(body))
	return err
}

func (r *SQLRepo) LoadOrders(ctx context.Context) ([]domain.Order, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT body FROM orders ORDER BY created_at ASC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []domain.Order
	for rows.Next() {
		var body string
		if err := rows.Scan(&body); err != nil {
			return nil, err
		}
		var o domain.Order
		if err := json.Unmarshal([]byte(body), &o); err != nil {
			return nil, fmt.Errorf("decode order: %w", err)
		}
		out = append(out, o)
	}
	return out, rows.Err()
}

func (r *SQLRepo) LoadOrder(ctx context.Context, id string) (*domain.Order, bool, error) {
	var body string
	err := r.db.QueryRowContext(ctx, `SELECT body FROM orders WHERE id=$1`, id).Scan(&body)
	if err == sql.ErrNoRows {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	var o domain.Order
	if err := json.Unmarshal([]byte(body), &o); err != nil {
		return nil, false, fmt.Errorf("decode order %s: %w", id, err)
	}
	return &o, true, nil
}

// PutWallet writes the wallet row and every transaction in one database transaction.
func (r *SQLRepo) PutWallet(ctx context.Context, s *domain.WalletSnapshot) error {
	wb, err := json.Marshal(s.Wallet)
	if err != nil {
		return err
	}
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()
	if _, err := tx.ExecContext(ctx, `INSERT INTO wallets (account_id,balance,updated_at,body)
		VALUES ($1,$2,$3,$4)
		ON CONFLICT (account_id) DO UPDATE SET balance=excluded.balance,updated_at=excluded.updated_at,body=excluded.body`,
		s.Wallet.AccountID, s.Wallet.Balance.String(), s.Wallet.UpdatedAt.UnixNano(), string(wb)); err != nil {
		return err
	}
	stmt, err := tx.PrepareContext(ctx, `INSERT INTO wallet_transactions (id,account_id,seq,type,status,body)
		VALUES ($1,$2,$3,$4,$5,$6)
		ON CONFLICT (id) DO UPDATE SET status=excluded.status,body=excluded.body`)
	if err != nil {
		return err
	}
	defer stmt.Close()
	for i, t := range s.Transactions {
		b, err := json.Marshal(t)
		if err != nil {
			return err
		}
		if _, err := stmt.ExecContext(ctx, t.ID, s.Wallet.AccountID, i, string(t.Type), string(t.Status), string(b)); err != nil {
			return err
		}
	}
	return tx.Commit()
}

func (r *SQLRepo) LoadWallet(ctx context.Context, accountID string) (*domain.WalletSnapshot, bool, error) {
	var wb string
	err := r.db.QueryRowContext(ctx, `SELECT body FROM wallets WHERE account_id=$1`, accountID).Scan(&wb)
	if err == sql.ErrNoRows {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	s := &domain.WalletSnapshot{}
	if err := json.Unmarshal([]byte(wb), &s.Wallet); err != nil {
		return nil, false, fmt.Errorf("decode wallet: %w", err)
	}
	rows, err := r.db.QueryContext(ctx, `SELECT body FROM wallet_transactions WHERE account_id=$1 ORDER BY seq ASC`, accountID)
	if err != nil {
		return nil, false, err
	}
	defer rows.Close()
	for rows.Next() {
		var b string
		if err := rows.Scan(&b); err != nil {
			return nil, false, err
		}
		var t domain.Transaction
		if err := json.Unmarshal([]byte(b), &t); err != nil {
			return nil, false, fmt.Errorf("decode transaction: %w", err)
		}
		s.Transactions = append(s.Transactions, t)
	}
	return s, true, rows.Err()
}
