package oauth

import (
	"crypto/rand"
	"crypto/rsa"
	"crypto/sha256"
	"encoding/base64"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
)

func newTestServer(t *testing.T) (*Server, *httptest.Server) {
	t.Helper()
	clients := NewClientStore()
	clients.Register(Client{
		ID:            "test-client",
		RedirectURIs:  []string{"https://app.example/callback"},
		DefaultScope:  "measurements",
		AllowedGrants: []string{"authorization_code", "refresh_token"},
	})

	users := NewUserStore()
	hash, err := md5Crypt("correct-password", "$1$testsalt$", "$1$")
	if err != nil {
		t.Fatalf("md5Crypt: %v", err)
	}
	users.Put(User{Username: "alice", CryptHash: hash, Permissions: []string{"read"}, DisplayName: "Alice"})

	grants := NewGrantStore()
	sessions := NewSessionStore(time.Minute)
	issuer := NewIssuer("https://analyzer.example/oauth", []byte("test-secret"), time.Hour)

	srv := NewServer(clients, users, grants, sessions, issuer, "https://analyzer.example/oauth", nil)

	r := chi.NewRouter()
	srv.Routes(r)
	ts := httptest.NewServer(r)
	t.Cleanup(ts.Close)
	return srv, ts
}

// TestAuthorizationCodeFlowWithPKCE exercises scenario S6: an
// authorization code issued with a S256 code_challenge exchanges
// successfully with the matching code_verifier, and fails with
// invalid_grant for any other verifier.
func TestAuthorizationCodeFlowWithPKCE(t *testing.T) {
	_, ts := newTestServer(t)

	verifier := "correct-verifier-1234567890123456789012345"
	sum := sha256.Sum256([]byte(verifier))
	challenge := base64.RawURLEncoding.EncodeToString(sum[:])

	resp, err := http.Get(ts.URL + "/authorize?response_type=code&client_id=test-client&redirect_uri=https://app.example/callback&scope=measurements&code_challenge=" + challenge + "&code_challenge_method=S256")
	if err != nil {
		t.Fatalf("GET /authorize: %v", err)
	}
	var authResp map[string]string
	if err := json.NewDecoder(resp.Body).Decode(&authResp); err != nil {
		t.Fatalf("decode /authorize response: %v", err)
	}
	resp.Body.Close()
	sessionID := authResp["session_id"]
	if sessionID == "" {
		t.Fatal("no session_id returned from /authorize")
	}

	loginBody := `{"session_id":"` + sessionID + `","username":"alice","password":"correct-password"}`
	resp, err = http.Post(ts.URL+"/login", "application/json", strings.NewReader(loginBody))
	if err != nil {
		t.Fatalf("POST /login: %v", err)
	}
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("POST /login status = %d", resp.StatusCode)
	}
	resp.Body.Close()

	consentBody := `{"session_id":"` + sessionID + `","allow":true,"redirect_uri":"https://app.example/callback","code_challenge":"` + challenge + `","code_challenge_method":"S256"}`
	resp, err = http.Post(ts.URL+"/consent", "application/json", strings.NewReader(consentBody))
	if err != nil {
		t.Fatalf("POST /consent: %v", err)
	}
	var consentResp map[string]string
	if err := json.NewDecoder(resp.Body).Decode(&consentResp); err != nil {
		t.Fatalf("decode /consent response: %v", err)
	}
	resp.Body.Close()
	code := consentResp["code"]
	if code == "" {
		t.Fatal("no code returned from /consent")
	}

	// Wrong verifier must fail with invalid_grant.
	badForm := url.Values{
		"grant_type":    {"authorization_code"},
		"code":          {code},
		"client_id":     {"test-client"},
		"redirect_uri":  {"https://app.example/callback"},
		"code_verifier": {"not-the-right-verifier"},
	}
	resp, err = http.PostForm(ts.URL+"/token", badForm)
	if err != nil {
		t.Fatalf("POST /token (bad verifier): %v", err)
	}
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("bad verifier status = %d, want 400", resp.StatusCode)
	}
	var errResp map[string]string
	json.NewDecoder(resp.Body).Decode(&errResp)
	resp.Body.Close()
	if errResp["error"] != "invalid_grant" {
		t.Errorf("error = %q, want invalid_grant", errResp["error"])
	}

	// The failed attempt above consumed the code (TakeGrant deletes it
	// on every lookup) -- request a fresh code to exchange correctly.
	resp, err = http.Get(ts.URL + "/authorize?response_type=code&client_id=test-client&redirect_uri=https://app.example/callback&scope=measurements&code_challenge=" + challenge + "&code_challenge_method=S256")
	if err != nil {
		t.Fatalf("GET /authorize (2nd): %v", err)
	}
	json.NewDecoder(resp.Body).Decode(&authResp)
	resp.Body.Close()
	sessionID = authResp["session_id"]

	resp, err = http.Post(ts.URL+"/login", "application/json", strings.NewReader(`{"session_id":"`+sessionID+`","username":"alice","password":"correct-password"}`))
	if err != nil {
		t.Fatalf("POST /login (2nd): %v", err)
	}
	resp.Body.Close()

	resp, err = http.Post(ts.URL+"/consent", "application/json", strings.NewReader(`{"session_id":"`+sessionID+`","allow":true,"redirect_uri":"https://app.example/callback","code_challenge":"`+challenge+`","code_challenge_method":"S256"}`))
	if err != nil {
		t.Fatalf("POST /consent (2nd): %v", err)
	}
	json.NewDecoder(resp.Body).Decode(&consentResp)
	resp.Body.Close()
	code = consentResp["code"]

	goodForm := url.Values{
		"grant_type":    {"authorization_code"},
		"code":          {code},
		"client_id":     {"test-client"},
		"redirect_uri":  {"https://app.example/callback"},
		"code_verifier": {verifier},
	}
	resp, err = http.PostForm(ts.URL+"/token", goodForm)
	if err != nil {
		t.Fatalf("POST /token (good verifier): %v", err)
	}
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("good verifier status = %d, want 200", resp.StatusCode)
	}
	var tokenResp map[string]interface{}
	json.NewDecoder(resp.Body).Decode(&tokenResp)
	resp.Body.Close()
	if tokenResp["access_token"] == nil || tokenResp["access_token"] == "" {
		t.Error("no access_token in successful token response")
	}
	if tokenResp["refresh_token"] == nil || tokenResp["refresh_token"] == "" {
		t.Error("no refresh_token in successful token response")
	}

	// Replaying the code that was just exchanged fails: TakeGrant
	// deleted it on the successful exchange above.
	resp, err = http.PostForm(ts.URL+"/token", goodForm)
	if err != nil {
		t.Fatalf("POST /token (replay): %v", err)
	}
	if resp.StatusCode != http.StatusBadRequest {
		t.Errorf("replaying a used code status = %d, want 400", resp.StatusCode)
	}
	resp.Body.Close()
}

// TestTokenEndpointRS256AndJWKS exercises scenario S7: an RS256
// access token validates with the server's own issuer against the
// key published via JWKS, with the expected aud/iss/exp claims.
func TestTokenEndpointRS256AndJWKS(t *testing.T) {
	priv, err := rsa.GenerateKey(rand.Reader, 2048)
	if err != nil {
		t.Fatalf("GenerateKey: %v", err)
	}

	clients := NewClientStore()
	clients.Register(Client{ID: "rs-client", RedirectURIs: []string{"https://app.example/cb"}, DefaultScope: "openid"})
	users := NewUserStore()
	grants := NewGrantStore()
	sessions := NewSessionStore(time.Minute)
	issuer := NewIssuer("https://analyzer.example/oauth", []byte("unused"), time.Hour)
	issuer.WithRS256(priv, &priv.PublicKey, "kid-test")

	srv := NewServer(clients, users, grants, sessions, issuer, "https://analyzer.example/oauth", nil)

	token, err := srv.Issuer.Issue("RS256", "bob", "rs-client", "openid", nil)
	if err != nil {
		t.Fatalf("Issue: %v", err)
	}

	claims, err := srv.Issuer.Validate(token)
	if err != nil {
		t.Fatalf("Validate: %v", err)
	}
	if claims.Audience[0] != "rs-client" {
		t.Errorf("aud = %v, want rs-client", claims.Audience)
	}
	if claims.Issuer != "https://analyzer.example/oauth" {
		t.Errorf("iss = %q", claims.Issuer)
	}
	if !claims.ExpiresAt.Time.After(time.Now()) {
		t.Error("exp is not in the future")
	}

	jwks := srv.Issuer.JWKS()
	if len(jwks.Keys) != 1 || jwks.Keys[0].Kid != "kid-test" {
		t.Fatalf("unexpected JWKS: %+v", jwks)
	}
}

func TestLoginRejectsWrongPassword(t *testing.T) {
	_, ts := newTestServer(t)

	resp, err := http.Get(ts.URL + "/authorize?response_type=code&client_id=test-client&redirect_uri=https://app.example/callback&scope=measurements")
	if err != nil {
		t.Fatalf("GET /authorize: %v", err)
	}
	var authResp map[string]string
	json.NewDecoder(resp.Body).Decode(&authResp)
	resp.Body.Close()

	resp, err = http.Post(ts.URL+"/login", "application/json", strings.NewReader(`{"session_id":"`+authResp["session_id"]+`","username":"alice","password":"wrong-password"}`))
	if err != nil {
		t.Fatalf("POST /login: %v", err)
	}
	if resp.StatusCode != http.StatusUnauthorized {
		t.Errorf("status = %d, want 401", resp.StatusCode)
	}
	resp.Body.Close()
}

func TestDiscoveryDocumentServed(t *testing.T) {
	_, ts := newTestServer(t)
	resp, err := http.Get(ts.URL + "/.well-known/openid-configuration")
	if err != nil {
		t.Fatalf("GET discovery: %v", err)
	}
	defer resp.Body.Close()
	var doc DiscoveryDocument
	if err := json.NewDecoder(resp.Body).Decode(&doc); err != nil {
		t.Fatalf("decode discovery doc: %v", err)
	}
	if doc.Issuer != "https://analyzer.example/oauth" {
		t.Errorf("issuer = %q", doc.Issuer)
	}
	if doc.TokenEndpoint == "" {
		t.Error("empty token_endpoint")
	}
}
