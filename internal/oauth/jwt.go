package oauth

import (
	"crypto/rsa"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v4"
	"github.com/google/uuid"
)

// Claims is the JWT payload issued by the authorization server. It
// embeds the registered claims and adds the scope string plus an open
// metadata bag for extension claims (permissions, display name) that
// resource servers may want without a round trip to /userinfo.
type Claims struct {
	jwt.RegisteredClaims
	Scope    string                 `json:"scope"`
	Metadata map[string]interface{} `json:"metadata,omitempty"`
}

// Issuer mints and validates access/ID tokens. HS256 is always
// available from hmacSecret; RS256 is additionally available once
// both rsaPrivate and rsaPublic are set, mirroring the reference
// server's "both PEM keys configured" gate.
type Issuer struct {
	issuer     string
	hmacSecret []byte
	rsaPrivate *rsa.PrivateKey
	rsaPublic  *rsa.PublicKey
	rsaKeyID   string
	validFor   time.Duration
}

// NewIssuer builds an Issuer with HS256 support only.
func NewIssuer(issuerURL string, hmacSecret []byte, validFor time.Duration) *Issuer {
	return &Issuer{issuer: issuerURL, hmacSecret: hmacSecret, validFor: validFor}
}

// WithRS256 enables RS256 signing/verification alongside HS256. kid
// identifies the key in the published JWKS document.
func (is *Issuer) WithRS256(private *rsa.PrivateKey, public *rsa.PublicKey, kid string) *Issuer {
	is.rsaPrivate = private
	is.rsaPublic = public
	is.rsaKeyID = kid
	return is
}

// SupportsRS256 reports whether both RSA keys were configured.
func (is *Issuer) SupportsRS256() bool {
	return is.rsaPrivate != nil && is.rsaPublic != nil
}

// Issue mints a signed token for subject sub, audience (client_id)
// aud, scope, and extension metadata. alg selects jwt.SigningMethodHS256
// or jwt.SigningMethodRS256; RS256 requires WithRS256 to have been
// called first.
func (is *Issuer) Issue(alg, sub, aud, scope string, metadata map[string]interface{}) (string, error) {
	now := time.Now()
	claims := Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   sub,
			Audience:  jwt.ClaimStrings{aud},
			Issuer:    is.issuer,
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(is.validFor)),
			ID:        uuid.NewString(),
		},
		Scope:    scope,
		Metadata: metadata,
	}

	switch alg {
	case "HS256":
		token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
		return token.SignedString(is.hmacSecret)
	case "RS256":
		if !is.SupportsRS256() {
			return "", fmt.Errorf("oauth: RS256 requested but no RSA key pair configured")
		}
		token := jwt.NewWithClaims(jwt.SigningMethodRS256, claims)
		token.Header["kid"] = is.rsaKeyID
		return token.SignedString(is.rsaPrivate)
	default:
		return "", fmt.Errorf("oauth: unsupported signing algorithm %q", alg)
	}
}

// Validate parses and verifies a token, selecting the verification key
// from the JWT header's own alg field rather than a caller-supplied
// expectation, matching the reference guard's support for either
// scheme on the same endpoint.
func (is *Issuer) Validate(tokenString string) (*Claims, error) {
	claims := &Claims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(t *jwt.Token) (interface{}, error) {
		switch t.Method.(type) {
		case *jwt.SigningMethodHMAC:
			return is.hmacSecret, nil
		case *jwt.SigningMethodRSA:
			if !is.SupportsRS256() {
				return nil, fmt.Errorf("oauth: RS256 token presented but no RSA key pair configured")
			}
			return is.rsaPublic, nil
		default:
			return nil, fmt.Errorf("oauth: unexpected signing method %v", t.Header["alg"])
		}
	})
	if err != nil {
		return nil, fmt.Errorf("oauth: validate token: %w", err)
	}
	if !token.Valid {
		return nil, fmt.Errorf("oauth: token failed validation")
	}
	if claims.Issuer != is.issuer {
		return nil, fmt.Errorf("oauth: unexpected issuer %q", claims.Issuer)
	}
	return claims, nil
}

// JWK is the RFC 7517 JSON Web Key representation of the RSA public
// key, as published at /.well-known/jwks.json.
type JWK struct {
	Kty string `json:"kty"`
	Use string `json:"use"`
	Alg string `json:"alg"`
	Kid string `json:"kid"`
	N   string `json:"n"`
	E   string `json:"e"`
}

// JWKS is an RFC 7517 JSON Web Key Set document.
type JWKS struct {
	Keys []JWK `json:"keys"`
}
