package security

import (
	"time"

	"github.com/pquerna/otp"
	"github.com/pquerna/otp/totp"
)

// ValidateTOTP checks a TOTP code against the secret, tolerating a clock
// drift of two 30-second steps in either direction.
func ValidateTOTP(code, secret string, now time.Time) bool {
	if code == "" || secret == "" {
		return false
	}
	ok, errValidate := totp.ValidateCustom(code, secret, now, totp.ValidateOpts{
		Period:    30,
		Skew:      2,
		Digits:    otp.DigitsSix,
		Algorithm: otp.AlgorithmSHA1,
	})
	return errValidate == nil && ok
}
