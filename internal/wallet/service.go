package wallet

import (
	"context"
	"time"

	"github.com/pharma-chain/pharma_chain/internal/gateway"
	"github.com/pharma-chain/pharma_chain/internal/ledger"
)

// Service resolves the ledger account of a session and summarises it.
type Service struct {
	ledger *ledger.Ledger
	now    func() time.Time
}

// NewService builds a wallet service over the purchase ledger.
func NewService(l *ledger.Ledger) *Service {
	return &Service{ledger: l, now: time.Now}
}

// AccountFor picks the connected wallet when there is one, else the wallet
// address of the profile.
func (s *Service) AccountFor(user *gateway.User, connected string) (string, error) {
	if connected != "" {
		return NormalizeAddress(connected)
	}
	if user != nil && user.WalletAddress != "" {
		return NormalizeAddress(user.WalletAddress)
	}
	return "", ErrNoAccount
}

// Summary returns the history and total spent by account.
func (s *Service) Summary(ctx context.Context, account string) (Summary, error) {
	txs, err := s.ledger.ByAccount(ctx, account)
	if err != nil {
		return Summary{}, err
	}
	return Summary{
		Account:      account,
		Transactions: txs,
		Total:        ledger.Total(txs),
		AsOf:         s.now().UTC(),
	}, nil
}
