package ledger

import (
	"bytes"
	"encoding/json"
	"strings"

	"github.com/shopspring/decimal"
)

// LineItem is one purchased product.
type LineItem struct {
	Name string `json:"name"`
	Qty  int    `json:"qty"`
}

// Price is a decimal amount kept as the text it was received in. Only the
// leading numeric part counts ("0.05 ETH" is 0.05); text without one counts
// as zero.
type Price string

// UnmarshalJSON accepts a JSON string, a JSON number or null.
func (p *Price) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if bytes.Equal(data, []byte("null")) {
		*p = ""
		return nil
	}
	if len(data) > 0 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*p = Price(s)
		return nil
	}
	*p = Price(data)
	return nil
}

// Decimal parses the leading numeric part of the price, returning zero when
// there is none.
func (p Price) Decimal() decimal.Decimal {
	d, err := decimal.NewFromString(numericPrefix(strings.TrimSpace(string(p))))
	if err != nil {
		return decimal.Zero
	}
	return d
}

// numericPrefix returns the longest prefix of s of the form
// [sign]digits[.digits][e[sign]digits].
func numericPrefix(s string) string {
	i := 0
	if i < len(s) && (s[i] == '+' || s[i] == '-') {
		i++
	}
	intStart := i
	for i < len(s) && isDigit(s[i]) {
		i++
	}
	digits := i - intStart
	if i < len(s) && s[i] == '.' {
		j := i + 1
		for j < len(s) && isDigit(s[j]) {
			j++
		}
		if j-i-1 > 0 || digits > 0 {
			digits += j - i - 1
			i = j
		}
	}
	if digits == 0 {
		return ""
	}
	end := i
	if i < len(s) && (s[i] == 'e' || s[i] == 'E') {
		j := i + 1
		if j < len(s) && (s[j] == '+' || s[j] == '-') {
			j++
		}
		expStart := j
		for j < len(s) && isDigit(s[j]) {
			j++
		}
		if j > expStart {
			end = j
		}
	}
	return strings.TrimSuffix(s[:end], ".")
}

func isDigit(b byte) bool { return b >= '0' && b <= '9' }

// Transaction is an immutable purchase record. Customer is the owning
// account, usually a wallet address, matched case-insensitively.
type Transaction struct {
	ID          string     `json:"id"`
	Customer    string     `json:"customer"`
	Medicine    []LineItem `json:"medicine"`
	PriceETH    Price      `json:"price_eth"`
	PriceUSD    Price      `json:"price_usd,omitempty"`
	TxHash      string     `json:"tx_hash,omitempty"`
	ChainID     int64      `json:"chain_id,omitempty"`
	BlockNumber uint64     `json:"block_number,omitempty"`
	Date        string     `json:"date"`
	Timestamp   int64      `json:"timestamp"`
	Status      string     `json:"status,omitempty"`
}

func (t Transaction) clone() Transaction {
	if t.Medicine != nil {
		items := make([]LineItem, len(t.Medicine))
		copy(items, t.Medicine)
		t.Medicine = items
	}
	return t
}
