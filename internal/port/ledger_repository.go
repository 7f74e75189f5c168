package port

import (
	"context"

	"github.com/rl1809/zoo-retail/internal/core/domain"
)

type LedgerRepository interface {
	// CreateTransaction records the financial header of a sale; the ledger assigns the ID
	CreateTransaction(ctx context.Context, checkoutID string, total int64) (domain.Transaction, error)

	// CreateSaleLines records all lines of a transaction, all or nothing
	CreateSaleLines(ctx context.Context, lines []domain.SaleLine) error

	// GetTransaction retrieves a transaction by ID, nil if it does not exist
	GetTransaction(ctx context.Context, transactionID string) (*domain.Transaction, error)

	// ListSaleLines returns the lines recorded for a transaction
	ListSaleLines(ctx context.Context, transactionID string) ([]domain.SaleLine, error)
}

// AtomicLedger is implemented by ledgers able to write a transaction and its
// lines in one database transaction.
type AtomicLedger interface {
	RecordSale(ctx context.Context, checkoutID string, total int64, lines []domain.SaleLine) (domain.Transaction, error)
}
