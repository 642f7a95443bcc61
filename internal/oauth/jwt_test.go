package oauth

import (
	"crypto/rand"
	"crypto/rsa"
	"testing"
	"time"
)

func TestIssuerHS256RoundTrip(t *testing.T) {
	is := NewIssuer("https://analyzer.example/oauth", []byte("test-secret"), time.Hour)

	token, err := is.Issue("HS256", "alice", "client-a", "measurements", map[string]interface{}{"permissions": []string{"read"}})
	if err != nil {
		t.Fatalf("Issue: %v", err)
	}

	claims, err := is.Validate(token)
	if err != nil {
		t.Fatalf("Validate: %v", err)
	}
	if claims.Subject != "alice" {
		t.Errorf("Subject = %q, want alice", claims.Subject)
	}
	if len(claims.Audience) != 1 || claims.Audience[0] != "client-a" {
		t.Errorf("Audience = %v, want [client-a]", claims.Audience)
	}
	if claims.Issuer != "https://analyzer.example/oauth" {
		t.Errorf("Issuer = %q", claims.Issuer)
	}
	if !claims.ExpiresAt.Time.After(time.Now()) {
		t.Error("ExpiresAt is not in the future")
	}
}

func TestIssuerRS256RequiresKeyPair(t *testing.T) {
	is := NewIssuer("https://analyzer.example/oauth", []byte("secret"), time.Hour)
	if is.SupportsRS256() {
		t.Fatal("SupportsRS256 true before WithRS256 was called")
	}
	if _, err := is.Issue("RS256", "alice", "client-a", "openid", nil); err == nil {
		t.Error("expected an error issuing RS256 without a key pair")
	}
}

func TestIssuerRS256RoundTripAndJWKS(t *testing.T) {
	priv, err := rsa.GenerateKey(rand.Reader, 2048)
	if err != nil {
		t.Fatalf("GenerateKey: %v", err)
	}

	is := NewIssuer("https://analyzer.example/oauth", []byte("unused"), time.Hour)
	is.WithRS256(priv, &priv.PublicKey, "kid-1")

	token, err := is.Issue("RS256", "bob", "client-b", "openid profile", nil)
	if err != nil {
		t.Fatalf("Issue: %v", err)
	}

	claims, err := is.Validate(token)
	if err != nil {
		t.Fatalf("Validate: %v", err)
	}
	if claims.Audience[0] != "client-b" {
		t.Errorf("Audience = %v", claims.Audience)
	}
	if claims.Issuer != "https://analyzer.example/oauth" {
		t.Errorf("Issuer = %q", claims.Issuer)
	}
	if !claims.ExpiresAt.Time.After(time.Now()) {
		t.Error("ExpiresAt is not in the future")
	}

	jwks := is.JWKS()
	if len(jwks.Keys) != 1 {
		t.Fatalf("JWKS has %d keys, want 1", len(jwks.Keys))
	}
	if jwks.Keys[0].Kid != "kid-1" || jwks.Keys[0].Kty != "RSA" || jwks.Keys[0].Alg != "RS256" {
		t.Errorf("unexpected JWK: %+v", jwks.Keys[0])
	}
}

func TestIssuerRejectsWrongIssuer(t *testing.T) {
	issuerA := NewIssuer("https://a.example/oauth", []byte("secret"), time.Hour)
	issuerB := NewIssuer("https://b.example/oauth", []byte("secret"), time.Hour)

	token, err := issuerA.Issue("HS256", "alice", "client-a", "openid", nil)
	if err != nil {
		t.Fatalf("Issue: %v", err)
	}
	if _, err := issuerB.Validate(token); err == nil {
		t.Error("expected validation against a different issuer to fail")
	}
}

func TestDiscoveryAdvertisesRS256OnlyWhenConfigured(t *testing.T) {
	is := NewIssuer("https://analyzer.example/oauth", []byte("secret"), time.Hour)
	doc := is.Discovery("https://analyzer.example/oauth")
	for _, alg := range doc.IDTokenSigningAlgValuesSupported {
		if alg == "RS256" {
			t.Fatal("RS256 advertised without a key pair configured")
		}
	}

	priv, err := rsa.GenerateKey(rand.Reader, 2048)
	if err != nil {
		t.Fatalf("GenerateKey: %v", err)
	}
	is.WithRS256(priv, &priv.PublicKey, "kid-1")
	doc = is.Discovery("https://analyzer.example/oauth")
	found := false
	for _, alg := range doc.IDTokenSigningAlgValuesSupported {
		if alg == "RS256" {
			found = true
		}
	}
	if !found {
		t.Error("RS256 not advertised after WithRS256 was called")
	}
}
