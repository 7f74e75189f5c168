package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/rl1809/zoo-retail/internal/core/domain"
)

func (a *SQLAdapter) CreateTransaction(ctx context.Context, checkoutID string, total int64) (domain.Transaction, error) {
	tx := domain.Transaction{
		ID:          uuid.NewString(),
		CheckoutID:  checkoutID,
		TotalAmount: total,
		CreatedAt:   a.now(),
	}
	if err := insertTransaction(ctx, a.db, tx); err != nil {
		return domain.Transaction{}, err
	}
	return tx, nil
}

func (a *SQLAdapter) CreateSaleLines(ctx context.Context, lines []domain.SaleLine) error {
	if len(lines) == 0 {
		return nil
	}

	tx, err := a.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	if err := insertSaleLines(ctx, tx, lines); err != nil {
		return err
	}
	return tx.Commit()
}

// RecordSale writes the transaction and its lines in one database transaction.
// The TransactionID of the given lines is ignored and set to the new id.
func (a *SQLAdapter) RecordSale(ctx context.Context, checkoutID string, total int64, lines []domain.SaleLine) (domain.Transaction, error) {
	sale := domain.Transaction{
		ID:          uuid.NewString(),
		CheckoutID:  checkoutID,
		TotalAmount: total,
		CreatedAt:   a.now(),
	}

	tx, err := a.db.BeginTxx(ctx, nil)
	if err != nil {
		return domain.Transaction{}, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	if err := insertTransaction(ctx, tx, sale); err != nil {
		return domain.Transaction{}, err
	}

	withID := make([]domain.SaleLine, len(lines))
	for i, l := range lines {
		l.TransactionID = sale.ID
		withID[i] = l
	}
	if err := insertSaleLines(ctx, tx, withID); err != nil {
		return domain.Transaction{}, err
	}

	if err := tx.Commit(); err != nil {
		return domain.Transaction{}, fmt.Errorf("commit: %w", err)
	}
	return sale, nil
}

func (a *SQLAdapter) GetTransaction(ctx context.Context, transactionID string) (*domain.Transaction, error) {
	var tx domain.Transaction
	err := a.db.GetContext(ctx, &tx, a.db.Rebind(`
		SELECT transaction_id, checkout_id, total_amount_cents, created_at
		FROM transactions WHERE transaction_id = ?`), transactionID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("query transaction: %w", err)
	}
	return &tx, nil
}

func (a *SQLAdapter) ListSaleLines(ctx context.Context, transactionID string) ([]domain.SaleLine, error) {
	var lines []domain.SaleLine
	if err := a.db.SelectContext(ctx, &lines, a.db.Rebind(`
		SELECT transaction_id, item_id, quantity, price_at_sale_cents
		FROM sale_items WHERE transaction_id = ? ORDER BY item_id`), transactionID); err != nil {
		return nil, fmt.Errorf("query sale lines: %w", err)
	}
	return lines, nil
}

func insertTransaction(ctx context.Context, ext sqlx.ExtContext, tx domain.Transaction) error {
	_, err := ext.ExecContext(ctx, ext.Rebind(`
		INSERT INTO transactions (transaction_id, checkout_id, total_amount_cents, created_at)
		VALUES (?, ?, ?, ?)`),
		tx.ID, tx.CheckoutID, tx.TotalAmount, tx.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert transaction: %w", err)
	}
	return nil
}

func insertSaleLines(ctx context.Context, ext sqlx.ExtContext, lines []domain.SaleLine) error {
	for _, l := range lines {
		_, err := ext.ExecContext(ctx, ext.Rebind(`
			INSERT INTO sale_items (transaction_id, item_id, quantity, price_at_sale_cents)
			VALUES (?, ?, ?, ?)`),
			l.TransactionID, l.ItemID, l.Quantity, l.PriceAtSale,
		)
		if err != nil {
			return fmt.Errorf("insert sale line %s: %w", l.ItemID, err)
		}
	}
	return nil
}
