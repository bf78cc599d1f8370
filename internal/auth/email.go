package auth

import "strings"

// dotInsensitiveDomains treat dots in the local part as decoration.
var dotInsensitiveDomains = map[string]bool{
	"gmail.com":      true,
	"googlemail.com": true,
}

// SanitizeEmail lowercases and trims an email address.
func SanitizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// CanonicalizeEmail reduces an address to the form used for lookups so
// duplicate-looking accounts collapse to one: plus-suffixes are stripped,
// and dots are removed for providers that ignore them.
func CanonicalizeEmail(email string) string {
	email = SanitizeEmail(email)
	at := strings.LastIndex(email, "@")
	if at <= 0 {
		return email
	}
	local, domain := email[:at], email[at+1:]
	if plus := strings.Index(local, "+"); plus >= 0 {
		local = local[:plus]
	}
	if dotInsensitiveDomains[domain] {
		local = strings.ReplaceAll(local, ".", "")
	}
	if local == "" {
		return email
	}
	return local + "@" + domain
}
