package checkout

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/pharma-chain/pharma_chain/internal/gateway"
	"github.com/pharma-chain/pharma_chain/internal/ledger"
	"github.com/pharma-chain/pharma_chain/internal/logging"
	"github.com/pharma-chain/pharma_chain/internal/notification"
)

var (
	// ErrEmptyCart indicates a purchase without line items.
	ErrEmptyCart = errors.New("purchase has no items")
	// ErrInvalidItem indicates a line item without a name or with a non-positive quantity.
	ErrInvalidItem = errors.New("invalid purchase item")
	// ErrInvalidPrice indicates a missing, malformed or negative price.
	ErrInvalidPrice = errors.New("invalid price")
	// ErrMissingCustomer indicates a purchase without an owning account.
	ErrMissingCustomer = errors.New("customer account is required")
)

// Reporter forwards completed purchases to the backend.
type Reporter interface {
	RecordPurchase(ctx context.Context, p gateway.Purchase) error
}

// PurchaseInput captures a completed on-chain purchase.
type PurchaseInput struct {
	ClientTxID  string
	Customer    string
	Medicine    []ledger.LineItem
	PriceETH    ledger.Price
	PriceUSD    ledger.Price
	TxHash      string
	ChainID     int64
	BlockNumber uint64
	Status      string
}

// Result describes the recorded purchase. Reported is false when the
// backend could not be told; the ledger record stands either way.
type Result struct {
	Transaction ledger.Transaction
	Reported    bool
}

// Service records purchases in the ledger and reports them to the backend.
type Service struct {
	ledger   *ledger.Ledger
	reporter Reporter
	notifier notification.Notifier
	logger   *slog.Logger
}

// NewService constructs a checkout service. reporter and notifier may be nil.
func NewService(l *ledger.Ledger, reporter Reporter, notifier notification.Notifier, logger *slog.Logger) *Service {
	if logger == nil {
		logger = logging.Discard()
	}
	return &Service{ledger: l, reporter: reporter, notifier: notifier, logger: logger.With(slog.String("component", "checkout"))}
}

// Record appends a purchase to the ledger, then reports it.
func (s *Service) Record(ctx context.Context, in PurchaseInput) (Result, error) {
	if err := validate(in); err != nil {
		return Result{}, err
	}
	status := in.Status
	if status == "" {
		status = "completed"
	}

	tx, err := s.ledger.Append(ctx, ledger.Transaction{
		ID:          in.ClientTxID,
		Customer:    strings.TrimSpace(in.Customer),
		Medicine:    in.Medicine,
		PriceETH:    in.PriceETH,
		PriceUSD:    in.PriceUSD,
		TxHash:      in.TxHash,
		ChainID:     in.ChainID,
		BlockNumber: in.BlockNumber,
		Status:      status,
	})
	if err != nil {
		return Result{}, err
	}

	res := Result{Transaction: tx}
	if s.reporter != nil {
		if err := s.reporter.RecordPurchase(ctx, toPurchase(tx)); err != nil {
			s.logger.Warn("purchase report failed", slog.String("id", tx.ID), slog.Any("error", err))
		} else {
			res.Reported = true
		}
	}

	if s.notifier != nil {
		_ = s.notifier.Send(ctx, notification.Message{
			Kind:        notification.KindPurchaseRecorded,
			Destination: tx.Customer,
			Body:        fmt.Sprintf("Purchase %s recorded for %s ETH", tx.ID, tx.PriceETH),
		})
	}
	return res, nil
}

func validate(in PurchaseInput) error {
	if strings.TrimSpace(in.Customer) == "" {
		return ErrMissingCustomer
	}
	if len(in.Medicine) == 0 {
		return ErrEmptyCart
	}
	for _, item := range in.Medicine {
		if strings.TrimSpace(item.Name) == "" || item.Qty <= 0 {
			return fmt.Errorf("%w: %q x %d", ErrInvalidItem, item.Name, item.Qty)
		}
	}
	price, err := decimal.NewFromString(strings.TrimSpace(string(in.PriceETH)))
	if err != nil || price.IsNegative() {
		return fmt.Errorf("%w: %q", ErrInvalidPrice, in.PriceETH)
	}
	return nil
}

func toPurchase(tx ledger.Transaction) gateway.Purchase {
	items := make([]gateway.PurchaseItem, 0, len(tx.Medicine))
	for _, item := range tx.Medicine {
		items = append(items, gateway.PurchaseItem{Name: item.Name, Qty: item.Qty})
	}
	return gateway.Purchase{
		Customer:    tx.Customer,
		Medicine:    items,
		PriceETH:    string(tx.PriceETH),
		PriceUSD:    string(tx.PriceUSD),
		TxHash:      tx.TxHash,
		ChainID:     tx.ChainID,
		BlockNumber: tx.BlockNumber,
		Status:      tx.Status,
	}
}
