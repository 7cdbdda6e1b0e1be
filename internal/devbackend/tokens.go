package devbackend

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

const actionSetPassword = "set_password_allowed"

var errTokenInvalid = errors.New("invalid token")

type accessClaims struct {
	Phone string `json:"phone"`
	jwt.RegisteredClaims
}

type tempClaims struct {
	Phone  string `json:"phone"`
	Action string `json:"action"`
	jwt.RegisteredClaims
}

type tokenIssuer struct {
	secret    []byte
	accessTTL time.Duration
	tempTTL   time.Duration
	now       func() time.Time
}

func (t tokenIssuer) access(user User) (string, error) {
	now := t.now()
	claims := accessClaims{
		Phone: user.Phone,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   user.ID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(t.accessTTL)),
		},
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(t.secret)
}

func (t tokenIssuer) temp(phone string) (string, error) {
	now := t.now()
	claims := tempClaims{
		Phone:  phone,
		Action: actionSetPassword,
		RegisteredClaims: jwt.RegisteredClaims{
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(t.tempTTL)),
		},
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(t.secret)
}

func (t tokenIssuer) parseAccess(raw string) (accessClaims, error) {
	var claims accessClaims
	if _, err := jwt.ParseWithClaims(raw, &claims, t.keyFunc, t.parserOptions()...); err != nil {
		return accessClaims{}, err
	}
	if claims.Subject == "" {
		return accessClaims{}, errTokenInvalid
	}
	return claims, nil
}

func (t tokenIssuer) parseTemp(raw string) (tempClaims, error) {
	var claims tempClaims
	if _, err := jwt.ParseWithClaims(raw, &claims, t.keyFunc, t.parserOptions()...); err != nil {
		return tempClaims{}, err
	}
	if claims.Action != actionSetPassword {
		return tempClaims{}, errTokenInvalid
	}
	return claims, nil
}

func (t tokenIssuer) keyFunc(*jwt.Token) (any, error) {
	return t.secret, nil
}

func (t tokenIssuer) parserOptions() []jwt.ParserOption {
	return []jwt.ParserOption{
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithTimeFunc(t.now),
	}
}
