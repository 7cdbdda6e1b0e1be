package ledger

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/pharma-chain/pharma_chain/internal/logging"
	"github.com/pharma-chain/pharma_chain/internal/metrics"
)

// ErrDuplicateTransaction indicates a record with the same identifier is
// already in the ledger.
var ErrDuplicateTransaction = errors.New("duplicate transaction")

const dateLayout = "2006-01-02T15:04:05.000Z07:00"

// Repository persists ledger records. List returns the most recent record
// first; ByCustomer matches the customer case-insensitively.
type Repository interface {
	Insert(ctx context.Context, tx Transaction) error
	List(ctx context.Context) ([]Transaction, error)
	ByCustomer(ctx context.Context, customer string) ([]Transaction, error)
	Clear(ctx context.Context) error
}

// Ledger is the append-only store of completed purchases.
type Ledger struct {
	mu      sync.Mutex
	repo    Repository
	logger  *slog.Logger
	metrics *metrics.Metrics
	now     func() time.Time
	lastTS  int64
}

// New builds a ledger over repo.
func New(repo Repository, logger *slog.Logger, m *metrics.Metrics) *Ledger {
	if logger == nil {
		logger = logging.Discard()
	}
	return &Ledger{
		repo:    repo,
		logger:  logger.With(slog.String("component", "ledger")),
		metrics: m,
		now:     time.Now,
	}
}

// Append stores tx at the head of the ledger and returns the stored record.
// A missing identifier, date or timestamp is filled in; timestamps assigned
// here strictly increase.
func (l *Ledger) Append(ctx context.Context, tx Transaction) (Transaction, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	tx = tx.clone()
	now := l.now()
	if tx.Timestamp == 0 {
		ts := now.UnixMilli()
		if ts <= l.lastTS {
			ts = l.lastTS + 1
		}
		tx.Timestamp = ts
	}
	if tx.Timestamp > l.lastTS {
		l.lastTS = tx.Timestamp
	}
	if tx.ID == "" {
		tx.ID = fmt.Sprintf("tx_%d_%s", tx.Timestamp, strings.ReplaceAll(uuid.NewString(), "-", "")[:9])
	}
	if tx.Date == "" {
		tx.Date = time.UnixMilli(tx.Timestamp).UTC().Format(dateLayout)
	}
	if tx.Medicine == nil {
		tx.Medicine = []LineItem{}
	}

	if err := l.repo.Insert(ctx, tx); err != nil {
		return Transaction{}, err
	}
	l.metrics.LedgerAppend()
	l.logger.Info("transaction appended",
		slog.String("id", tx.ID),
		slog.String("customer", tx.Customer),
		slog.String("price_eth", string(tx.PriceETH)),
	)
	return tx.clone(), nil
}

// ByAccount returns the records owned by account, most recent first. An
// empty account matches nothing.
func (l *Ledger) ByAccount(ctx context.Context, account string) ([]Transaction, error) {
	account = strings.TrimSpace(account)
	if account == "" {
		return []Transaction{}, nil
	}
	return l.repo.ByCustomer(ctx, account)
}

// TotalByAccount sums the prices of account's records.
func (l *Ledger) TotalByAccount(ctx context.Context, account string) (decimal.Decimal, error) {
	txs, err := l.ByAccount(ctx, account)
	if err != nil {
		return decimal.Zero, err
	}
	return Total(txs), nil
}

// All returns every record, most recent first.
func (l *Ledger) All(ctx context.Context) ([]Transaction, error) {
	return l.repo.List(ctx)
}

// TotalAll sums the prices of every record.
func (l *Ledger) TotalAll(ctx context.Context) (decimal.Decimal, error) {
	txs, err := l.repo.List(ctx)
	if err != nil {
		return decimal.Zero, err
	}
	return Total(txs), nil
}

// Clear empties the ledger.
func (l *Ledger) Clear(ctx context.Context) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if err := l.repo.Clear(ctx); err != nil {
		return err
	}
	l.logger.Warn("ledger cleared")
	return nil
}

// Total sums PriceETH over txs. Unparseable and negative prices count as zero.
func Total(txs []Transaction) decimal.Decimal {
	total := decimal.Zero
	for _, tx := range txs {
		if p := tx.PriceETH.Decimal(); p.IsPositive() {
			total = total.Add(p)
		}
	}
	return total
}
