package wallet

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/pharma-chain/pharma_chain/internal/ledger"
)

// Summary is the purchase history of one account.
type Summary struct {
	Account      string
	Transactions []ledger.Transaction
	Total        decimal.Decimal
	AsOf         time.Time
}
