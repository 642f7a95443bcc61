package oauth

import (
	"crypto/sha256"
	"crypto/subtle"
	"encoding/base64"
)

// VerifyPKCE checks a code_verifier presented at /token against the
// code_challenge recorded when the authorization code was issued. An
// empty challenge means the original /authorize request didn't use
// PKCE, in which case verification trivially succeeds (nothing to
// check) — callers should treat an empty challenge with a
// confidential client as acceptable and a public client without PKCE
// as a policy decision of their own, this function only implements
// the challenge comparison itself.
func VerifyPKCE(method, verifier, challenge string) bool {
	if challenge == "" {
		return true
	}
	switch method {
	case "S256":
		sum := sha256.Sum256([]byte(verifier))
		computed := base64.RawURLEncoding.EncodeToString(sum[:])
		return subtle.ConstantTimeCompare([]byte(computed), []byte(challenge)) == 1
	case "plain", "":
		return subtle.ConstantTimeCompare([]byte(verifier), []byte(challenge)) == 1
	default:
		return false
	}
}
