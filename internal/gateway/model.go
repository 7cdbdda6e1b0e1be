package gateway

import "encoding/json"

// ActionLogin is returned by the start-registration endpoint when the phone
// number already has an account.
const ActionLogin = "LOGIN"

// StartResult is the start-registration response.
type StartResult struct {
	Action       string `json:"action,omitempty"`
	Message      string `json:"message,omitempty"`
	OTPDisplayed string `json:"otp_displayed,omitempty"`
}

// User is the identity returned by the "who am I" endpoint. Known fields are
// decoded into the struct; every field the backend sent is kept in Profile.
type User struct {
	ID            string         `json:"id,omitempty"`
	Phone         string         `json:"phone"`
	WalletAddress string         `json:"wallet_address,omitempty"`
	Username      string         `json:"username,omitempty"`
	Role          string         `json:"role,omitempty"`
	CreatedAt     string         `json:"created_at,omitempty"`
	Profile       map[string]any `json:"-"`
}

type userFields User

// Clone returns a copy of u that shares no state with it.
func (u *User) Clone() *User {
	if u == nil {
		return nil
	}
	c := *u
	if u.Profile != nil {
		c.Profile = make(map[string]any, len(u.Profile))
		for k, v := range u.Profile {
			c.Profile[k] = v
		}
	}
	return &c
}

// UnmarshalJSON decodes the typed fields and keeps the raw profile map.
func (u *User) UnmarshalJSON(data []byte) error {
	var fields userFields
	if err := json.Unmarshal(data, &fields); err != nil {
		return err
	}
	var profile map[string]any
	if err := json.Unmarshal(data, &profile); err != nil {
		return err
	}
	*u = User(fields)
	u.Profile = profile
	return nil
}

// MarshalJSON emits the profile fields with the typed fields layered on top.
func (u User) MarshalJSON() ([]byte, error) {
	out := make(map[string]any, len(u.Profile)+6)
	for k, v := range u.Profile {
		out[k] = v
	}
	typed, err := json.Marshal(userFields(u))
	if err != nil {
		return nil, err
	}
	var fields map[string]any
	if err := json.Unmarshal(typed, &fields); err != nil {
		return nil, err
	}
	for k, v := range fields {
		out[k] = v
	}
	return json.Marshal(out)
}

// PurchaseItem is one purchased line.
type PurchaseItem struct {
	Name string `json:"name"`
	Qty  int    `json:"qty"`
}

// Purchase is the payload of the purchase-report endpoint.
type Purchase struct {
	Customer    string         `json:"customer"`
	Medicine    []PurchaseItem `json:"medicine"`
	PriceETH    string         `json:"price_eth"`
	PriceUSD    string         `json:"price_usd,omitempty"`
	TxHash      string         `json:"tx_hash,omitempty"`
	ChainID     int64          `json:"chain_id,omitempty"`
	BlockNumber uint64         `json:"block_number,omitempty"`
	Status      string         `json:"status,omitempty"`
}

type loginRequest struct {
	Phone    string `json:"phone"`
	Password string `json:"password"`
}

type loginResponse struct {
	AccessToken string `json:"access_token"`
}

type startRequest struct {
	Phone string `json:"phone"`
}

type verifyRequest struct {
	Phone   string `json:"phone"`
	OTPCode string `json:"otp_code"`
}

type verifyResponse struct {
	TempToken string `json:"temp_token"`
}

type setPasswordRequest struct {
	Phone     string `json:"phone"`
	Password  string `json:"password"`
	TempToken string `json:"temp_token"`
}

type messageResponse struct {
	Message string `json:"message"`
}
