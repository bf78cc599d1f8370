package auth

import "github.com/maskbox/maskbox/internal/models"

// Identity is the resolved acting party of a request. Exactly one of the
// two variants holds: bearer-credential auth carries the API key, session
// auth leaves Key nil. Elevation state exists only for the former.
type Identity struct {
	User *models.User
	Key  *models.APIKey
}

// ViaAPIKey reports whether the identity was resolved from a bearer credential.
func (id *Identity) ViaAPIKey() bool {
	return id != nil && id.Key != nil
}
