package repositories

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/ituby/GenieAI-sub000/internal/models"
)

// TokenRepository owns the token ledger. users.token_balance is kept in sync
// inside the same transaction so reads stay cheap; the ledger remains the
// source of truth.
type TokenRepository struct {
	DB *sql.DB
}

func (r *TokenRepository) Credit(ctx context.Context, userID, amount int, kind, reference string) error {
	if amount <= 0 {
		return fmt.Errorf("credit amount must be positive, got %d", amount)
	}
	return r.apply(ctx, userID, amount, kind, reference)
}

// Debit subtracts tokens, failing with ErrInsufficientTokens when the balance
// would go negative. The balance check and the ledger write share one
// transaction so concurrent debits cannot overspend.
func (r *TokenRepository) Debit(ctx context.Context, userID, amount int, kind, reference string) error {
	if amount <= 0 {
		return fmt.Errorf("debit amount must be positive, got %d", amount)
	}
	return r.apply(ctx, userID, -amount, kind, reference)
}

func (r *TokenRepository) apply(ctx context.Context, userID, amount int, kind, reference string) error {
	tx, err := r.DB.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	var balance int
	err = tx.QueryRowContext(ctx,
		`SELECT token_balance FROM users WHERE id = $1 FOR UPDATE`, userID).Scan(&balance)
	if err != nil {
		if err == sql.ErrNoRows {
			return models.ErrUserNotFound
		}
		return err
	}
	if balance+amount < 0 {
		return models.ErrInsufficientTokens
	}

	if _, err := tx.ExecContext(ctx, `
INSERT INTO token_ledger (user_id, amount, kind, reference, created_at)
VALUES ($1, $2, $3, $4, NOW())`, userID, amount, kind, reference); err != nil {
		return err
	}
	if _, err := tx.ExecContext(ctx,
		`UPDATE users SET token_balance = token_balance + $1 WHERE id = $2`, amount, userID); err != nil {
		return err
	}
	return tx.Commit()
}

func (r *TokenRepository) Balance(ctx context.Context, userID int) (int, error) {
	var balance int
	err := r.DB.QueryRowContext(ctx,
		`SELECT token_balance FROM users WHERE id = $1`, userID).Scan(&balance)
	if err == sql.ErrNoRows {
		return 0, models.ErrUserNotFound
	}
	return balance, err
}

func (r *TokenRepository) ListLedger(ctx context.Context, userID, limit int) ([]models.TokenLedgerEntry, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := r.DB.QueryContext(ctx, `
SELECT id, user_id, amount, kind, reference, created_at
FROM token_ledger WHERE user_id = $1 ORDER BY id DESC LIMIT $2`, userID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var entries []models.TokenLedgerEntry
	for rows.Next() {
		var e models.TokenLedgerEntry
		if err := rows.Scan(&e.ID, &e.UserID, &e.Amount, &e.Kind, &e.Reference, &e.CreatedAt); err != nil {
			return nil, err
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}
