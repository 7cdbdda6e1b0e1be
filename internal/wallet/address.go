package wallet

import (
	"errors"
	"strings"
)

var (
	// ErrInvalidAddress is returned for strings that are not 0x-prefixed 20 byte hex addresses.
	ErrInvalidAddress = errors.New("invalid wallet address")
	// ErrNoAccount is returned when neither a connected wallet nor a profile address is known.
	ErrNoAccount = errors.New("no wallet address for this session")
)

// NormalizeAddress validates addr and returns it lower-cased.
func NormalizeAddress(addr string) (string, error) {
	addr = strings.TrimSpace(addr)
	if len(addr) != 42 || !strings.HasPrefix(strings.ToLower(addr[:2]), "0x") {
		return "", ErrInvalidAddress
	}
	for _, r := range addr[2:] {
		switch {
		case r >= '0' && r <= '9', r >= 'a' && r <= 'f', r >= 'A' && r <= 'F':
		default:
			return "", ErrInvalidAddress
		}
	}
	return "0x" + strings.ToLower(addr[2:]), nil
}
