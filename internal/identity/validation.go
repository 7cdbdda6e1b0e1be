package identity

import "fmt"

const (
	minPhoneDigits    = 10
	maxPhoneDigits    = 11
	minPasswordLength = 6
)

func validatePhone(phone string) error {
	if phone == "" {
		return &ValidationError{Field: "phone", Reason: "required"}
	}
	if !digitsOnly(phone) {
		return &ValidationError{Field: "phone", Reason: "digits only"}
	}
	if len(phone) < minPhoneDigits || len(phone) > maxPhoneDigits {
		return &ValidationError{Field: "phone", Reason: fmt.Sprintf("must be %d to %d digits", minPhoneDigits, maxPhoneDigits)}
	}
	return nil
}

func validateCode(code string) error {
	if code == "" {
		return &ValidationError{Field: "otp_code", Reason: "required"}
	}
	if !digitsOnly(code) {
		return &ValidationError{Field: "otp_code", Reason: "digits only"}
	}
	return nil
}

func validatePassword(password string) error {
	if len(password) < minPasswordLength {
		return &ValidationError{Field: "password", Reason: fmt.Sprintf("must be at least %d characters", minPasswordLength)}
	}
	return nil
}

func digitsOnly(s string) bool {
	for i := 0; i < len(s); i++ {
		if s[i] < '0' || s[i] > '9' {
			return false
		}
	}
	return true
}
