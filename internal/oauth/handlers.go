package oauth

import (
	"crypto/rand"
	"encoding/hex"
	"encoding/json"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	apimw "github.com/sctg-development/photoacoustic-core/internal/api/middleware"
)

// Server wires the client/user/grant stores, the login/consent
// session store, and a JWT Issuer into the handlers that implement
// the authorization-code (with optional PKCE) and refresh_token
// grants, discovery, JWKS, userinfo and introspection.
type Server struct {
	Clients  *ClientStore
	Users    *UserStore
	Grants   *GrantStore
	Sessions *SessionStore
	Issuer   *Issuer
	BaseURL  string

	logger       *slog.Logger
	loginLimiter *apimw.IPRateLimiter
}

func NewServer(clients *ClientStore, users *UserStore, grants *GrantStore, sessions *SessionStore, issuer *Issuer, baseURL string, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	return &Server{
		Clients:      clients,
		Users:        users,
		Grants:       grants,
		Sessions:     sessions,
		Issuer:       issuer,
		BaseURL:      baseURL,
		logger:       logger,
		loginLimiter: apimw.NewIPRateLimiter(apimw.AuthRateLimitConfig()),
	}
}

// Routes mounts the authorization server's endpoints onto r. /login and
// /token are the credential- and code-guessing surfaces, so both run
// behind the stricter per-IP brute-force limiter; the rest of the flow
// (discovery, authorize, consent, userinfo, introspect) does not take a
// password or client secret and is left at the outer API rate limit.
func (s *Server) Routes(r chi.Router) {
	r.Get("/.well-known/openid-configuration", s.handleDiscovery)
	r.Get("/.well-known/jwks.json", s.handleJWKS)
	r.Get("/authorize", s.handleAuthorizeGet)
	r.With(apimw.RateLimit(s.loginLimiter)).Post("/login", s.handleLogin)
	r.Post("/consent", s.handleConsent)
	r.With(apimw.RateLimit(s.loginLimiter)).Post("/token", s.handleToken)
	r.Get("/userinfo", s.handleUserinfo)
	r.Post("/introspect", s.handleIntrospect)
}

func (s *Server) handleDiscovery(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.Issuer.Discovery(s.BaseURL))
}

func (s *Server) handleJWKS(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.Issuer.JWKS())
}

// handleAuthorizeGet starts (or resumes) the login/consent dance for
// GET /authorize?response_type=code&client_id=...&redirect_uri=...
// &scope=...&state=...&code_challenge=...&code_challenge_method=...
func (s *Server) handleAuthorizeGet(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	if q.Get("response_type") != "code" {
		writeOAuthError(w, http.StatusBadRequest, "unsupported_response_type", "only the authorization code flow is supported")
		return
	}
	clientID := q.Get("client_id")
	client, ok := s.Clients.Get(clientID)
	if !ok {
		writeOAuthError(w, http.StatusBadRequest, "invalid_client", "unknown client_id")
		return
	}
	redirectURI := q.Get("redirect_uri")
	if redirectURI == "" {
		redirectURI = firstOrEmpty(client.RedirectURIs)
	}
	if !client.AllowsRedirect(redirectURI) {
		writeOAuthError(w, http.StatusBadRequest, "invalid_request", "redirect_uri is not registered for this client")
		return
	}

	sess, err := s.Sessions.Start(clientID)
	if err != nil {
		writeOAuthError(w, http.StatusInternalServerError, "server_error", err.Error())
		return
	}
	scope := q.Get("scope")
	if scope == "" {
		scope = client.DefaultScope
	}
	sess.Scope = scope

	writeJSON(w, http.StatusOK, map[string]string{
		"session_id":            sess.ID,
		"state":                 sess.State.String(),
		"client_id":             clientID,
		"redirect_uri":          redirectURI,
		"scope":                 scope,
		"oauth_state":           q.Get("state"),
		"code_challenge":        q.Get("code_challenge"),
		"code_challenge_method": q.Get("code_challenge_method"),
	})
}

// handleLogin advances StateUnauthenticated -> StateLoginSubmitted ->
// StateAuthenticated, verifying the submitted credentials against the
// stored crypt hash. Invalid credentials drop the session back to
// StateUnauthenticated so the caller can retry.
func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req struct {
		SessionID string `json:"session_id"`
		Username  string `json:"username"`
		Password  string `json:"password"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeOAuthError(w, http.StatusBadRequest, "invalid_request", "malformed login payload")
		return
	}

	if _, err := s.Sessions.Advance(req.SessionID, StateLoginSubmitted); err != nil {
		writeOAuthError(w, http.StatusBadRequest, "invalid_request", err.Error())
		return
	}

	user, ok := s.Users.Get(req.Username)
	valid := false
	if ok {
		var err error
		valid, err = VerifyCryptPassword(req.Password, user.CryptHash)
		if err != nil {
			s.logger.Warn("crypt hash verification failed", "username", req.Username, "error", err)
		}
	}

	if !valid {
		if _, err := s.Sessions.Advance(req.SessionID, StateUnauthenticated); err != nil {
			s.logger.Warn("unexpected session transition failure", "error", err)
		}
		writeOAuthError(w, http.StatusUnauthorized, "access_denied", "invalid username or password")
		return
	}

	sess, err := s.Sessions.Advance(req.SessionID, StateAuthenticated)
	if err != nil {
		writeOAuthError(w, http.StatusInternalServerError, "server_error", err.Error())
		return
	}
	sess.Username = req.Username

	sess, err = s.Sessions.Advance(req.SessionID, StateConsentShown)
	if err != nil {
		writeOAuthError(w, http.StatusInternalServerError, "server_error", err.Error())
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{
		"session_id": sess.ID,
		"state":      sess.State.String(),
		"scope":      sess.Scope,
	})
}

// handleConsent advances StateConsentShown -> StateCodeIssued (allow)
// or StateErrorRedirect (deny), minting a single-use authorization
// code on allow.
func (s *Server) handleConsent(w http.ResponseWriter, r *http.Request) {
	var req struct {
		SessionID           string `json:"session_id"`
		Allow                bool   `json:"allow"`
		RedirectURI          string `json:"redirect_uri"`
		CodeChallenge        string `json:"code_challenge"`
		CodeChallengeMethod  string `json:"code_challenge_method"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeOAuthError(w, http.StatusBadRequest, "invalid_request", "malformed consent payload")
		return
	}

	sess := s.Sessions.Get(req.SessionID)
	if sess == nil {
		writeOAuthError(w, http.StatusBadRequest, "invalid_request", "unknown or expired session")
		return
	}

	if !req.Allow {
		if _, err := s.Sessions.Advance(req.SessionID, StateErrorRedirect); err != nil {
			writeOAuthError(w, http.StatusInternalServerError, "server_error", err.Error())
			return
		}
		s.Sessions.Finish(req.SessionID)
		writeJSON(w, http.StatusOK, map[string]string{"error": "access_denied"})
		return
	}

	code, err := randomToken(24)
	if err != nil {
		writeOAuthError(w, http.StatusInternalServerError, "server_error", err.Error())
		return
	}
	s.Grants.PutGrant(Grant{
		Code:            code,
		ClientID:        sess.ClientID,
		Username:        sess.Username,
		RedirectURI:     req.RedirectURI,
		Scope:           sess.Scope,
		CodeChallenge:   req.CodeChallenge,
		ChallengeMethod: req.CodeChallengeMethod,
		ExpiresAt:       time.Now().Add(10 * time.Minute),
	})

	if _, err := s.Sessions.Advance(req.SessionID, StateCodeIssued); err != nil {
		writeOAuthError(w, http.StatusInternalServerError, "server_error", err.Error())
		return
	}
	s.Sessions.Finish(req.SessionID)

	writeJSON(w, http.StatusOK, map[string]string{"code": code})
}

// handleToken implements POST /token for grant_type=authorization_code
// (with PKCE verification) and grant_type=refresh_token.
func (s *Server) handleToken(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		writeOAuthError(w, http.StatusBadRequest, "invalid_request", "malformed form body")
		return
	}

	clientID, clientSecret, ok := r.BasicAuth()
	if !ok {
		clientID = r.FormValue("client_id")
		clientSecret = r.FormValue("client_secret")
	}
	client, ok := s.Clients.Get(clientID)
	if !ok || (client.Secret != "" && client.Secret != clientSecret) {
		writeOAuthError(w, http.StatusUnauthorized, "invalid_client", "client authentication failed")
		return
	}

	switch r.FormValue("grant_type") {
	case "authorization_code":
		s.handleAuthorizationCodeGrant(w, r, client)
	case "refresh_token":
		s.handleRefreshTokenGrant(w, r, client)
	default:
		writeOAuthError(w, http.StatusBadRequest, "unsupported_grant_type", "only authorization_code and refresh_token are supported")
	}
}

func (s *Server) handleAuthorizationCodeGrant(w http.ResponseWriter, r *http.Request, client Client) {
	code := r.FormValue("code")
	grant, ok := s.Grants.TakeGrant(code, time.Now())
	if !ok {
		writeOAuthError(w, http.StatusBadRequest, "invalid_grant", "authorization code is unknown, expired or already used")
		return
	}
	if grant.ClientID != client.ID {
		writeOAuthError(w, http.StatusBadRequest, "invalid_grant", "authorization code was not issued to this client")
		return
	}
	if redirectURI := r.FormValue("redirect_uri"); redirectURI != "" && redirectURI != grant.RedirectURI {
		writeOAuthError(w, http.StatusBadRequest, "invalid_grant", "redirect_uri does not match the authorization request")
		return
	}
	if !VerifyPKCE(grant.ChallengeMethod, r.FormValue("code_verifier"), grant.CodeChallenge) {
		writeOAuthError(w, http.StatusBadRequest, "invalid_grant", "code_verifier does not match the recorded code_challenge")
		return
	}

	s.issueTokenResponse(w, client, grant.Username, grant.Scope, true)
}

func (s *Server) handleRefreshTokenGrant(w http.ResponseWriter, r *http.Request, client Client) {
	token := r.FormValue("refresh_token")
	record, ok := s.Grants.GetRefresh(token)
	if !ok || record.ClientID != client.ID {
		writeOAuthError(w, http.StatusBadRequest, "invalid_grant", "refresh token is unknown or was issued to a different client")
		return
	}
	s.Grants.RevokeRefresh(token)
	s.issueTokenResponse(w, client, record.Username, record.Scope, true)
}

func (s *Server) issueTokenResponse(w http.ResponseWriter, client Client, username, scope string, withRefresh bool) {
	alg := "HS256"
	if s.Issuer.SupportsRS256() {
		alg = "RS256"
	}

	var metadata map[string]interface{}
	if user, ok := s.Users.Get(username); ok {
		metadata = map[string]interface{}{"permissions": user.Permissions, "display_name": user.DisplayName}
	}

	accessToken, err := s.Issuer.Issue(alg, username, client.ID, scope, metadata)
	if err != nil {
		writeOAuthError(w, http.StatusInternalServerError, "server_error", err.Error())
		return
	}

	resp := map[string]interface{}{
		"access_token": accessToken,
		"token_type":   "Bearer",
		"scope":        scope,
	}

	if withRefresh {
		refreshToken, err := randomToken(32)
		if err != nil {
			writeOAuthError(w, http.StatusInternalServerError, "server_error", err.Error())
			return
		}
		s.Grants.PutRefresh(RefreshRecord{Token: refreshToken, ClientID: client.ID, Username: username, Scope: scope})
		resp["refresh_token"] = refreshToken
	}

	writeJSON(w, http.StatusOK, resp)
}

// handleUserinfo implements the OIDC UserInfo endpoint: a bare bearer
// token lookup that returns the claims embedded in the access token.
func (s *Server) handleUserinfo(w http.ResponseWriter, r *http.Request) {
	token := bearerToken(r)
	if token == "" {
		writeOAuthError(w, http.StatusUnauthorized, "invalid_token", "missing bearer token")
		return
	}
	claims, err := s.Issuer.Validate(token)
	if err != nil {
		writeOAuthError(w, http.StatusUnauthorized, "invalid_token", err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"sub":      claims.Subject,
		"scope":    claims.Scope,
		"metadata": claims.Metadata,
	})
}

// handleIntrospect implements RFC 7662 token introspection.
func (s *Server) handleIntrospect(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		writeOAuthError(w, http.StatusBadRequest, "invalid_request", "malformed form body")
		return
	}
	token := r.FormValue("token")
	claims, err := s.Issuer.Validate(token)
	if err != nil {
		writeJSON(w, http.StatusOK, map[string]interface{}{"active": false})
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"active": true,
		"sub":    claims.Subject,
		"aud":    claims.Audience,
		"iss":    claims.Issuer,
		"exp":    claims.ExpiresAt.Unix(),
		"iat":    claims.IssuedAt.Unix(),
		"jti":    claims.ID,
		"scope":  claims.Scope,
	})
}

func bearerToken(r *http.Request) string {
	h := r.Header.Get("Authorization")
	const prefix = "Bearer "
	if !strings.HasPrefix(h, prefix) {
		return ""
	}
	return strings.TrimPrefix(h, prefix)
}

func randomToken(byteLen int) (string, error) {
	b := make([]byte, byteLen)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return hex.EncodeToString(b), nil
}

func firstOrEmpty(items []string) string {
	if len(items) == 0 {
		return ""
	}
	return items[0]
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeOAuthError(w http.ResponseWriter, status int, code, description string) {
	writeJSON(w, status, map[string]string{"error": code, "error_description": description})
}
