// Package social exchanges third-party provider tokens for verified email
// addresses. The providers themselves are external collaborators; only the
// single "token to verified email" call is modeled here.
package social

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/go-resty/resty/v2"
)

// Provider names accepted by the exchange endpoints.
const (
	ProviderFacebook = "facebook"
	ProviderGoogle   = "google"
)

// Profile is the verified identity returned by a provider.
type Profile struct {
	Email string
	Name  string
	Raw   json.RawMessage
}

// Exchanger turns a provider access token into a verified profile.
type Exchanger interface {
	Exchange(ctx context.Context, providerToken string) (*Profile, error)
}

// providerProfile maps the JSON shape both providers share.
type providerProfile struct {
	Email string `json:"email"`
	Name  string `json:"name"`
}

// FacebookExchanger resolves profiles through the Facebook Graph API.
type FacebookExchanger struct {
	client *resty.Client
}

// NewFacebookExchanger constructs a FacebookExchanger.
func NewFacebookExchanger() *FacebookExchanger {
	return &FacebookExchanger{
		client: resty.New().
			SetBaseURL("https://graph.facebook.com").
			SetTimeout(10 * time.Second),
	}
}

// Exchange implements Exchanger.
func (e *FacebookExchanger) Exchange(ctx context.Context, providerToken string) (*Profile, error) {
	resp, errGet := e.client.R().
		SetContext(ctx).
		SetQueryParam("fields", "email,name").
		SetQueryParam("access_token", providerToken).
		Get("/me")
	if errGet != nil {
		return nil, fmt.Errorf("facebook exchange: %w", errGet)
	}
	return parseProfile("facebook", resp)
}

// GoogleExchanger resolves profiles through the Google userinfo endpoint.
type GoogleExchanger struct {
	client *resty.Client
}

// NewGoogleExchanger constructs a GoogleExchanger.
func NewGoogleExchanger() *GoogleExchanger {
	return &GoogleExchanger{
		client: resty.New().
			SetBaseURL("https://www.googleapis.com").
			SetTimeout(10 * time.Second),
	}
}

// Exchange implements Exchanger.
func (e *GoogleExchanger) Exchange(ctx context.Context, providerToken string) (*Profile, error) {
	resp, errGet := e.client.R().
		SetContext(ctx).
		SetAuthToken(providerToken).
		Get("/oauth2/v2/userinfo")
	if errGet != nil {
		return nil, fmt.Errorf("google exchange: %w", errGet)
	}
	return parseProfile("google", resp)
}

func parseProfile(provider string, resp *resty.Response) (*Profile, error) {
	if resp.IsError() {
		return nil, fmt.Errorf("%s exchange: provider returned %s", provider, resp.Status())
	}
	var parsed providerProfile
	if errUnmarshal := json.Unmarshal(resp.Body(), &parsed); errUnmarshal != nil {
		return nil, fmt.Errorf("%s exchange: parse profile: %w", provider, errUnmarshal)
	}
	if parsed.Email == "" {
		return nil, fmt.Errorf("%s exchange: profile has no verified email", provider)
	}
	return &Profile{Email: parsed.Email, Name: parsed.Name, Raw: resp.Body()}, nil
}
