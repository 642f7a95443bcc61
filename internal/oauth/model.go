// Package oauth implements the analyzer's OAuth2/OIDC authorization
// server: client/user/grant/token storage, PKCE verification, JWT
// issuance and validation (HS256 always, RS256 when configured),
// discovery and JWKS documents, RFC 7662 introspection, and the
// login/consent session state machine backing the /authorize flow.
package oauth

import "time"

// Client is a registered OAuth2 client application.
type Client struct {
	ID            string
	Secret        string // empty for a public client
	RedirectURIs  []string
	DefaultScope  string
	AllowedGrants []string // "authorization_code", "refresh_token"
}

// AllowsRedirect reports whether uri is one of the client's registered
// redirect URIs.
func (c Client) AllowsRedirect(uri string) bool {
	for _, u := range c.RedirectURIs {
		if u == uri {
			return true
		}
	}
	return false
}

// User is a resource-owner account authenticated via the login form.
type User struct {
	Username     string
	CryptHash    string // $1$/$5$/$6$/$apr1$ style hash, see crypt.go
	Permissions  []string
	DisplayName  string
	Email        string
}

// Grant is an issued authorization code awaiting exchange at /token.
// CodeChallenge/Method are empty when the request didn't use PKCE.
type Grant struct {
	Code            string
	ClientID        string
	Username        string
	RedirectURI     string
	Scope           string
	CodeChallenge   string
	ChallengeMethod string
	ExpiresAt       time.Time
}

// Expired reports whether the grant's authorization code has aged out.
// Authorization codes are single-use and short-lived (RFC 6749 §4.1.2
// recommends 10 minutes maximum).
func (g Grant) Expired(now time.Time) bool {
	return now.After(g.ExpiresAt)
}

// RefreshRecord tracks an issued refresh token so /token can mint a
// fresh access token without re-running the authorization_code flow.
type RefreshRecord struct {
	Token    string
	ClientID string
	Username string
	Scope    string
}
