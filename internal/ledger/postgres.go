package ledger

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// PostgresRepository keeps the ledger in PostgreSQL.
type PostgresRepository struct {
	db *pgxpool.Pool
}

// NewPostgresRepository constructs a Postgres-backed ledger repository.
func NewPostgresRepository(db *pgxpool.Pool) *PostgresRepository {
	return &PostgresRepository{db: db}
}

// EnsureSchema creates the ledger table when missing.
func (r *PostgresRepository) EnsureSchema(ctx context.Context) error {
	if _, err := r.db.Exec(ctx, `CREATE TABLE IF NOT EXISTS ledger_transactions (
        seq BIGSERIAL PRIMARY KEY,
        tx_id TEXT NOT NULL UNIQUE,
        customer TEXT NOT NULL,
        payload JSONB NOT NULL,
        created_at TIMESTAMPTZ NOT NULL DEFAULT now()
    )`); err != nil {
		return fmt.Errorf("create ledger table: %w", err)
	}
	if _, err := r.db.Exec(ctx, `CREATE INDEX IF NOT EXISTS ledger_transactions_customer_idx
        ON ledger_transactions (lower(customer))`); err != nil {
		return fmt.Errorf("create ledger index: %w", err)
	}
	return nil
}

// Insert appends tx unless its identifier is already stored.
func (r *PostgresRepository) Insert(ctx context.Context, tx Transaction) error {
	payload, err := json.Marshal(tx)
	if err != nil {
		return fmt.Errorf("encode transaction: %w", err)
	}
	cmd, err := r.db.Exec(ctx, `INSERT INTO ledger_transactions (tx_id, customer, payload)
        VALUES ($1, $2, $3) ON CONFLICT (tx_id) DO NOTHING`, tx.ID, tx.Customer, payload)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return ErrDuplicateTransaction
	}
	return nil
}

// List returns every record, most recent first.
func (r *PostgresRepository) List(ctx context.Context) ([]Transaction, error) {
	rows, err := r.db.Query(ctx, `SELECT payload FROM ledger_transactions ORDER BY seq DESC`)
	if err != nil {
		return nil, err
	}
	return collect(rows)
}

// ByCustomer returns the records of customer, most recent first.
func (r *PostgresRepository) ByCustomer(ctx context.Context, customer string) ([]Transaction, error) {
	rows, err := r.db.Query(ctx, `SELECT payload FROM ledger_transactions
        WHERE lower(customer) = lower($1) ORDER BY seq DESC`, customer)
	if err != nil {
		return nil, err
	}
	return collect(rows)
}

// Clear deletes every record.
func (r *PostgresRepository) Clear(ctx context.Context) error {
	_, err := r.db.Exec(ctx, `DELETE FROM ledger_transactions`)
	return err
}

func collect(rows pgx.Rows) ([]Transaction, error) {
	defer rows.Close()
	out := []Transaction{}
	for rows.Next() {
		var payload []byte
		if err := rows.Scan(&payload); err != nil {
			return nil, err
		}
		var tx Transaction
		if err := json.Unmarshal(payload, &tx); err != nil {
			return nil, fmt.Errorf("decode transaction: %w", err)
		}
		out = append(out, tx)
	}
	return out, rows.Err()
}
