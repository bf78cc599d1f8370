package security

import (
	"fmt"
	"strconv"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// mfaExchangeClaims binds a pending second-factor check to a user.
type mfaExchangeClaims struct {
	jwt.RegisteredClaims
}

// SignMFAToken issues a signed exchange token for a password-verified user
// awaiting a second factor. The token expires after ttl.
func SignMFAToken(secret string, userID uint64, ttl time.Duration, now time.Time) (string, error) {
	if secret == "" {
		return "", fmt.Errorf("mfa token: empty signing secret")
	}
	claims := mfaExchangeClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   strconv.FormatUint(userID, 10),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, errSign := token.SignedString([]byte(secret))
	if errSign != nil {
		return "", fmt.Errorf("mfa token: sign: %w", errSign)
	}
	return signed, nil
}

// ParseMFAToken verifies an exchange token and returns the bound user ID.
// Any signature, format, or expiry problem fails closed with an error.
func ParseMFAToken(secret, token string) (uint64, error) {
	parsed, errParse := jwt.ParseWithClaims(token, &mfaExchangeClaims{}, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %v", t.Header["alg"])
		}
		return []byte(secret), nil
	})
	if errParse != nil {
		return 0, fmt.Errorf("mfa token: %w", errParse)
	}
	claims, ok := parsed.Claims.(*mfaExchangeClaims)
	if !ok || !parsed.Valid {
		return 0, fmt.Errorf("mfa token: invalid claims")
	}
	userID, errAtoi := strconv.ParseUint(claims.Subject, 10, 64)
	if errAtoi != nil || userID == 0 {
		return 0, fmt.Errorf("mfa token: invalid subject")
	}
	return userID, nil
}
