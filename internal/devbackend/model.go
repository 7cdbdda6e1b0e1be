package devbackend

import "time"

const roleAdmin = "admin"

// User is an account registered with the reference backend.
type User struct {
	ID            string
	Phone         string
	PasswordHash  []byte
	WalletAddress string
	Role          string
	CreatedAt     time.Time
}

// PurchaseItem is one purchased line.
type PurchaseItem struct {
	Name string `json:"name"`
	Qty  int    `json:"qty"`
}

// Purchase is a purchase reported by a storefront client.
type Purchase struct {
	Customer    string         `json:"customer"`
	Medicine    []PurchaseItem `json:"medicine"`
	PriceETH    float64        `json:"price_eth"`
	PriceUSD    float64        `json:"price_usd"`
	TxHash      string         `json:"tx_hash,omitempty"`
	ChainID     int64          `json:"chain_id,omitempty"`
	BlockNumber uint64         `json:"block_number,omitempty"`
	Status      string         `json:"status"`
	Timestamp   time.Time      `json:"timestamp"`
}

// otpSession is the server-side OTP state for one phone number.
type otpSession struct {
	Code      string
	Attempts  int
	ExpiresAt time.Time
}
