package auth

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
)

// googleUserinfoURL is Google's OpenID userinfo endpoint. The response is
// much larger than what we unmarshal; Sub is the stable account identifier.
const googleUserinfoURL = "https://www.googleapis.com/oauth2/v3/userinfo"

// googleUser is the slice of the userinfo response we care about.
type googleUser struct {
	Sub  string `json:"sub"`  // Google's stable account ID — never changes
	Name string `json:"name"` // display name (may be empty)
}

// GoogleProvider runs the OAuth 2.0 Authorization Code flow against Google.
//
// The flow:
//  1. Redirect the browser to Google's consent page (AuthURL).
//  2. Google calls back with a short-lived code.
//  3. Exchange trades the code for an access token server-to-server (the
//     ClientSecret never reaches the browser) and fetches the userinfo.
//
// The returned ExternalIdentity is the black-box output the rest of the
// system consumes — no other component knows OAuth exists.
type GoogleProvider struct {
	config *oauth2.Config
}

// NewGoogleProvider creates a provider from OAuth app credentials.
// callbackURL must exactly match the redirect URI registered with Google.
func NewGoogleProvider(clientID, clientSecret, callbackURL string) *GoogleProvider {
	return &GoogleProvider{
		config: &oauth2.Config{
			ClientID:     clientID,
			ClientSecret: clientSecret,
			RedirectURL:  callbackURL,
			Scopes:       []string{"openid", "profile"},
			Endpoint:     google.Endpoint,
		},
	}
}

// AuthURL returns the consent-page URL for the given CSRF state. The caller
// stores state in a short-lived cookie and verifies it on callback.
func (p *GoogleProvider) AuthURL(state string) string {
	return p.config.AuthCodeURL(state, oauth2.AccessTypeOnline)
}

// Exchange completes the flow: code → access token → verified identity.
func (p *GoogleProvider) Exchange(ctx context.Context, code string) (*ExternalIdentity, error) {
	token, err := p.config.Exchange(ctx, code)
	if err != nil {
		return nil, fmt.Errorf("auth: exchanging OAuth code: %w", err)
	}

	client := p.config.Client(ctx, token)
	resp, err := client.Get(googleUserinfoURL)
	if err != nil {
		return nil, fmt.Errorf("auth: calling userinfo endpoint: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("auth: userinfo endpoint returned status %d", resp.StatusCode)
	}

	var gu googleUser
	if err := json.NewDecoder(resp.Body).Decode(&gu); err != nil {
		return nil, fmt.Errorf("auth: decoding userinfo response: %w", err)
	}
	if gu.Sub == "" {
		return nil, fmt.Errorf("auth: userinfo response missing subject")
	}

	return &ExternalIdentity{
		Provider:    "google",
		ProviderID:  gu.Sub,
		DisplayName: gu.Name,
	}, nil
}
