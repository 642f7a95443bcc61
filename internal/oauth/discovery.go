package oauth

import (
	"encoding/base64"
	"encoding/binary"
)

// DiscoveryDocument is the subset of OpenID Connect Discovery 1.0
// metadata this server publishes at /.well-known/openid-configuration.
type DiscoveryDocument struct {
	Issuer                            string   `json:"issuer"`
	AuthorizationEndpoint             string   `json:"authorization_endpoint"`
	TokenEndpoint                     string   `json:"token_endpoint"`
	UserinfoEndpoint                  string   `json:"userinfo_endpoint"`
	IntrospectionEndpoint             string   `json:"introspection_endpoint"`
	JWKSURI                           string   `json:"jwks_uri"`
	ResponseTypesSupported            []string `json:"response_types_supported"`
	GrantTypesSupported               []string `json:"grant_types_supported"`
	SubjectTypesSupported             []string `json:"subject_types_supported"`
	IDTokenSigningAlgValuesSupported  []string `json:"id_token_signing_alg_values_supported"`
	ScopesSupported                   []string `json:"scopes_supported"`
	ClaimsSupported                   []string `json:"claims_supported"`
	CodeChallengeMethodsSupported     []string `json:"code_challenge_methods_supported"`
}

// Discovery builds the discovery document for this issuer. The
// signing-algorithm list always includes HS256 and adds RS256 only
// when an RSA key pair is configured, so clients never advertise a
// capability the token endpoint can't actually produce.
func (is *Issuer) Discovery(baseURL string) DiscoveryDocument {
	algs := []string{"HS256"}
	if is.SupportsRS256() {
		algs = append(algs, "RS256")
	}
	return DiscoveryDocument{
		Issuer:                           is.issuer,
		AuthorizationEndpoint:            baseURL + "/authorize",
		TokenEndpoint:                    baseURL + "/token",
		UserinfoEndpoint:                 baseURL + "/userinfo",
		IntrospectionEndpoint:            baseURL + "/introspect",
		JWKSURI:                          baseURL + "/.well-known/jwks.json",
		ResponseTypesSupported:           []string{"code"},
		GrantTypesSupported:              []string{"authorization_code", "refresh_token"},
		SubjectTypesSupported:            []string{"public"},
		IDTokenSigningAlgValuesSupported: algs,
		ScopesSupported:                  []string{"openid", "profile", "measurements", "control"},
		ClaimsSupported:                  []string{"sub", "iss", "aud", "exp", "iat", "nbf", "jti", "scope"},
		CodeChallengeMethodsSupported:    []string{"S256", "plain"},
	}
}

// JWKS publishes the RSA public key as a JSON Web Key Set. It returns
// an empty key list when RS256 isn't configured — HS256-only
// deployments have no public key to publish.
func (is *Issuer) JWKS() JWKS {
	if !is.SupportsRS256() {
		return JWKS{Keys: []JWK{}}
	}
	n := is.rsaPublic.N.Bytes()
	e := make([]byte, 8)
	binary.BigEndian.PutUint64(e, uint64(is.rsaPublic.E))
	// trim to the minimal big-endian representation of E (almost always 3 bytes, 0x10001)
	for len(e) > 1 && e[0] == 0 {
		e = e[1:]
	}
	return JWKS{Keys: []JWK{{
		Kty: "RSA",
		Use: "sig",
		Alg: "RS256",
		Kid: is.rsaKeyID,
		N:   base64.RawURLEncoding.EncodeToString(n),
		E:   base64.RawURLEncoding.EncodeToString(e),
	}}}
}
