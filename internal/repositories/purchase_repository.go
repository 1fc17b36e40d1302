package repositories

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sync"

	"github.com/ituby/GenieAI-sub000/internal/models"
)

// ErrNotFound wraps sql.ErrNoRows for clarity.
var ErrNotFound = errors.New("not found")

type PurchaseRepository struct {
	DB *sql.DB

	once sync.Once
	err  error
}

func NewPurchaseRepository(db *sql.DB) *PurchaseRepository {
	return &PurchaseRepository{DB: db}
}

func (r *PurchaseRepository) ensureSchema(ctx context.Context) error {
	r.once.Do(func() {
		const ddl = `
CREATE TABLE IF NOT EXISTS purchase_transactions (
    id BIGSERIAL PRIMARY KEY,
    transaction_id VARCHAR(255) NOT NULL UNIQUE,
    user_id INT NOT NULL,
    platform VARCHAR(16) NOT NULL,
    product_id VARCHAR(255) NOT NULL DEFAULT '',
    valid BOOLEAN NOT NULL DEFAULT FALSE,
    raw_receipt TEXT,
    created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
);
CREATE INDEX IF NOT EXISTS idx_purchase_transactions_user ON purchase_transactions (user_id);
`
		_, r.err = r.DB.ExecContext(ctx, ddl)
	})
	return r.err
}

// Save stores a transaction once. The second return value is true when the
// transaction id was already present, which keeps receipt validation
// idempotent across store redeliveries.
func (r *PurchaseRepository) Save(ctx context.Context, txn models.PurchaseTransaction) (alreadyProcessed bool, err error) {
	if err := r.ensureSchema(ctx); err != nil {
		return false, err
	}
	if txn.TransactionID == "" {
		return false, fmt.Errorf("transaction_id is required")
	}
	res, err := r.DB.ExecContext(ctx, `
INSERT INTO purchase_transactions (transaction_id, user_id, platform, product_id, valid, raw_receipt)
VALUES ($1, $2, $3, $4, $5, $6)
ON CONFLICT (transaction_id) DO NOTHING`,
		txn.TransactionID, txn.UserID, txn.Platform, txn.ProductID, txn.Valid, txn.Receipt)
	if err != nil {
		return false, err
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return affected == 0, nil
}

func (r *PurchaseRepository) IsProcessed(ctx context.Context, transactionID string) (bool, error) {
	if err := r.ensureSchema(ctx); err != nil {
		return false, err
	}
	var exists bool
	err := r.DB.QueryRowContext(ctx,
		`SELECT EXISTS(SELECT 1 FROM purchase_transactions WHERE transaction_id = $1)`,
		transactionID).Scan(&exists)
	return exists, err
}

func (r *PurchaseRepository) ListByUser(ctx context.Context, userID int) ([]models.PurchaseTransaction, error) {
	if err := r.ensureSchema(ctx); err != nil {
		return nil, err
	}
	rows, err := r.DB.QueryContext(ctx, `
SELECT id, transaction_id, user_id, platform, product_id, valid, created_at
FROM purchase_transactions WHERE user_id = $1 ORDER BY created_at DESC`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var txns []models.PurchaseTransaction
	for rows.Next() {
		var t models.PurchaseTransaction
		if err := rows.Scan(&t.ID, &t.TransactionID, &t.UserID, &t.Platform,
			&t.ProductID, &t.Valid, &t.CreatedAt); err != nil {
			return nil, err
		}
		txns = append(txns, t)
	}
	return txns, rows.Err()
}

// GetOwner returns the user that first submitted a transaction id.
func (r *PurchaseRepository) GetOwner(ctx context.Context, transactionID string) (int, error) {
	if err := r.ensureSchema(ctx); err != nil {
		return 0, err
	}
	var userID int
	err := r.DB.QueryRowContext(ctx,
		`SELECT user_id FROM purchase_transactions WHERE transaction_id = $1`,
		transactionID).Scan(&userID)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, ErrNotFound
	}
	return userID, err
}
