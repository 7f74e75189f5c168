package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/rl1809/zoo-retail/internal/core/domain"
	"github.com/rl1809/zoo-retail/internal/logging"
	"github.com/rl1809/zoo-retail/internal/metrics"
	"github.com/rl1809/zoo-retail/internal/port"
	"github.com/rl1809/zoo-retail/internal/telemetry"
)

const (
	checkoutKeyPrefix      = "checkout:"
	defaultCheckoutTimeout = 5 * time.Second
)

// Confirmation is returned when every step of a checkout succeeded.
type Confirmation struct {
	TransactionID string            `json:"transaction_id"`
	CheckoutID    string            `json:"checkout_id"`
	Total         int64             `json:"total_cents"`
	Lines         []domain.SaleLine `json:"lines"`
	Stock         []StockUpdate     `json:"stock"`
	CreatedAt     time.Time         `json:"created_at"`
}

type CheckoutService struct {
	catalog   port.CatalogRepository
	ledger    port.LedgerRepository
	cache     port.CacheRepository
	publisher port.EventPublisher
	metrics   *metrics.CheckoutMetrics
	timeout   time.Duration
}

type CheckoutOption func(*CheckoutService)

// WithCheckoutGuard enables the duplicate-submission guard.
func WithCheckoutGuard(cache port.CacheRepository) CheckoutOption {
	return func(s *CheckoutService) { s.cache = cache }
}

func WithEventPublisher(p port.EventPublisher) CheckoutOption {
	return func(s *CheckoutService) { s.publisher = p }
}

func WithCheckoutMetrics(m *metrics.CheckoutMetrics) CheckoutOption {
	return func(s *CheckoutService) { s.metrics = m }
}

// WithCheckoutTimeout bounds a checkout once it has been detached from the caller.
func WithCheckoutTimeout(d time.Duration) CheckoutOption {
	return func(s *CheckoutService) {
		if d > 0 {
			s.timeout = d
		}
	}
}

func NewCheckoutService(catalog port.CatalogRepository, ledger port.LedgerRepository, opts ...CheckoutOption) *CheckoutService {
	s := &CheckoutService{
		catalog: catalog,
		ledger:  ledger,
		timeout: defaultCheckoutTimeout,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Checkout commits a cart: transaction, sale lines, then one conditional stock
// decrement per line in cart order. It never rolls back a recorded transaction;
// failures after step one come back as ErrPartialCommit with the per-line detail.
func (s *CheckoutService) Checkout(ctx context.Context, cart *domain.Cart) (*Confirmation, error) {
	start := time.Now()
	ctx, span := telemetry.Tracer().Start(ctx, "checkout", trace.WithAttributes(
		attribute.String("checkout.id", cart.ID),
		attribute.Int("checkout.lines", cart.Len()),
	))
	defer span.End()

	conf, err := s.checkout(ctx, cart)

	outcome := outcomeOf(err)
	elapsed := time.Since(start)
	s.metrics.ObserveCheckout(outcome, elapsed)

	fields := logging.Fields{
		CheckoutID: cart.ID,
		Step:       "checkout",
		Status:     outcome,
		DurationMS: elapsed.Milliseconds(),
		Error:      logging.ErrString(err),
	}
	if conf != nil {
		fields.TxID = conf.TransactionID
	}
	var cerr *CheckoutError
	if errors.As(err, &cerr) {
		fields.TxID = cerr.TransactionID
	}
	logging.Log(fields)

	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, outcome)
	}
	return conf, err
}

func (s *CheckoutService) checkout(ctx context.Context, cart *domain.Cart) (*Confirmation, error) {
	lines := cart.Lines()
	if len(lines) == 0 {
		return nil, validationError(cart.ID, "cart is empty")
	}
	for _, l := range lines {
		if l.Quantity <= 0 {
			return nil, validationError(cart.ID, "line %s has non-positive quantity %d", l.ItemID, l.Quantity)
		}
	}
	total := cart.Total()

	if s.cache != nil {
		ok, err := s.cache.SetIdempotency(ctx, checkoutKeyPrefix+cart.ID)
		if err != nil {
			return nil, &CheckoutError{Kind: ErrLedgerUnavailable, CheckoutID: cart.ID, Err: fmt.Errorf("idempotency check failed: %w", err)}
		}
		if !ok {
			return nil, &CheckoutError{Kind: ErrDuplicateCheckout, CheckoutID: cart.ID}
		}
	}

	// A client that goes away must not leave a half-applied checkout behind a
	// cancelled context; the remaining steps run to completion or timeout.
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), s.timeout)
	defer cancel()

	tx, saleLines, err := s.record(ctx, cart.ID, total, lines)
	if err != nil {
		return nil, err
	}

	applied, failed := s.decrementAll(ctx, lines)
	if len(failed) > 0 {
		s.publish(ctx, domain.SaleEvent{
			Type:          domain.EventSalePartialCommit,
			TransactionID: tx.ID,
			CheckoutID:    cart.ID,
			Total:         total,
			FailedItems:   failedIDs(failed),
			OccurredAt:    time.Now().UTC(),
		})
		return nil, &CheckoutError{
			Kind:          ErrPartialCommit,
			CheckoutID:    cart.ID,
			TransactionID: tx.ID,
			Failed:        failed,
			Applied:       applied,
		}
	}

	s.publish(ctx, domain.SaleEvent{
		Type:          domain.EventSaleRecorded,
		TransactionID: tx.ID,
		CheckoutID:    cart.ID,
		Total:         total,
		OccurredAt:    time.Now().UTC(),
	})

	return &Confirmation{
		TransactionID: tx.ID,
		CheckoutID:    cart.ID,
		Total:         tx.TotalAmount,
		Lines:         saleLines,
		Stock:         applied,
		CreatedAt:     tx.CreatedAt,
	}, nil
}

// record runs steps one and two. Any error it returns is a *CheckoutError.
func (s *CheckoutService) record(ctx context.Context, checkoutID string, total int64, lines []domain.CartLine) (domain.Transaction, []domain.SaleLine, error) {
	ctx, span := telemetry.Tracer().Start(ctx, "checkout.record")
	defer span.End()

	if atomic, ok := s.ledger.(port.AtomicLedger); ok {
		tx, err := atomic.RecordSale(ctx, checkoutID, total, domain.SaleLinesFromCart("", lines))
		if err != nil {
			s.releaseGuard(ctx, checkoutID)
			return domain.Transaction{}, nil, &CheckoutError{Kind: ErrLedgerUnavailable, CheckoutID: checkoutID, Err: fmt.Errorf("record sale: %w", err)}
		}
		return tx, domain.SaleLinesFromCart(tx.ID, lines), nil
	}

	tx, err := s.ledger.CreateTransaction(ctx, checkoutID, total)
	if err != nil {
		s.releaseGuard(ctx, checkoutID)
		return domain.Transaction{}, nil, &CheckoutError{Kind: ErrLedgerUnavailable, CheckoutID: checkoutID, Err: fmt.Errorf("create transaction: %w", err)}
	}
	span.SetAttributes(attribute.String("transaction.id", tx.ID))

	saleLines := domain.SaleLinesFromCart(tx.ID, lines)
	if err := s.ledger.CreateSaleLines(ctx, saleLines); err != nil {
		failed := make([]LineFailure, 0, len(lines))
		for _, l := range lines {
			failed = append(failed, LineFailure{ItemID: l.ItemID, Quantity: l.Quantity, Reason: "sale lines not recorded", Err: ErrNotAttempted})
		}
		s.publish(ctx, domain.SaleEvent{
			Type:          domain.EventSalePartialCommit,
			TransactionID: tx.ID,
			CheckoutID:    checkoutID,
			Total:         total,
			FailedItems:   failedIDs(failed),
			OccurredAt:    time.Now().UTC(),
		})
		return tx, nil, &CheckoutError{
			Kind:          ErrPartialCommit,
			CheckoutID:    checkoutID,
			TransactionID: tx.ID,
			Failed:        failed,
			Err:           fmt.Errorf("create sale lines: %w", err),
		}
	}
	return tx, saleLines, nil
}

// decrementAll applies lines in order and stops at the first rejection.
func (s *CheckoutService) decrementAll(ctx context.Context, lines []domain.CartLine) ([]StockUpdate, []LineFailure) {
	ctx, span := telemetry.Tracer().Start(ctx, "checkout.decrement_stock")
	defer span.End()

	var applied []StockUpdate
	var failed []LineFailure
	for i, line := range lines {
		newCount, err := s.catalog.DecrementStock(ctx, line.ItemID, line.Quantity)
		if err != nil {
			s.metrics.ObserveDecrement("rejected")
			failed = append(failed, lineFailure(line, err))
			for _, rest := range lines[i+1:] {
				failed = append(failed, LineFailure{
					ItemID:   rest.ItemID,
					Quantity: rest.Quantity,
					Reason:   "not attempted",
					Err:      ErrNotAttempted,
				})
			}
			span.SetAttributes(attribute.String("failed.item_id", line.ItemID))
			break
		}
		s.metrics.ObserveDecrement("applied")
		applied = append(applied, StockUpdate{ItemID: line.ItemID, Quantity: line.Quantity, NewCount: newCount})
	}
	return applied, failed
}

func lineFailure(line domain.CartLine, err error) LineFailure {
	f := LineFailure{ItemID: line.ItemID, Quantity: line.Quantity, Err: err}

	var shortage *domain.StockShortage
	switch {
	case errors.As(err, &shortage):
		available := shortage.Available
		f.Available = &available
		f.Reason = "insufficient stock"
	case errors.Is(err, domain.ErrItemNotFound):
		f.Reason = "item not found"
	default:
		f.Reason = "store error: " + err.Error()
	}
	return f
}

func failedIDs(failed []LineFailure) []string {
	ids := make([]string, 0, len(failed))
	for _, f := range failed {
		ids = append(ids, f.ItemID)
	}
	return ids
}

func (s *CheckoutService) releaseGuard(ctx context.Context, checkoutID string) {
	if s.cache == nil {
		return
	}
	if err := s.cache.ClearIdempotency(ctx, checkoutKeyPrefix+checkoutID); err != nil {
		logging.Log(logging.Fields{CheckoutID: checkoutID, Step: "release_guard", Status: "error", Error: err.Error()})
	}
}

func (s *CheckoutService) publish(ctx context.Context, event domain.SaleEvent) {
	if s.publisher == nil {
		return
	}
	if err := s.publisher.Publish(ctx, event); err != nil {
		logging.Log(logging.Fields{
			CheckoutID: event.CheckoutID,
			TxID:       event.TransactionID,
			Step:       "publish",
			Status:     "error",
			Message:    string(event.Type),
			Error:      err.Error(),
		})
	}
}

// Transaction returns a recorded transaction with its lines for operator inspection.
func (s *CheckoutService) Transaction(ctx context.Context, who domain.Identity, transactionID string) (*domain.Transaction, []domain.SaleLine, error) {
	if !who.Role.CanManageStock() {
		return nil, nil, ErrForbidden
	}
	tx, err := s.ledger.GetTransaction(ctx, transactionID)
	if err != nil {
		return nil, nil, fmt.Errorf("get transaction: %w", err)
	}
	if tx == nil {
		return nil, nil, nil
	}
	lines, err := s.ledger.ListSaleLines(ctx, transactionID)
	if err != nil {
		return nil, nil, fmt.Errorf("list sale lines: %w", err)
	}
	return tx, lines, nil
}

func outcomeOf(err error) string {
	switch {
	case err == nil:
		return "success"
	case errors.Is(err, ErrValidation):
		return "validation"
	case errors.Is(err, ErrDuplicateCheckout):
		return "duplicate"
	case errors.Is(err, ErrLedgerUnavailable):
		return "ledger_unavailable"
	case errors.Is(err, ErrPartialCommit):
		return "partial_commit"
	default:
		return "error"
	}
}
