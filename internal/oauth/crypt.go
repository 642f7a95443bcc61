package oauth

import (
	"crypto/md5"
	"crypto/sha256"
	"crypto/sha512"
	"crypto/subtle"
	"fmt"
	"hash"
	"strconv"
	"strings"
)

// itoa64 is the base64-like alphabet used by every traditional Unix
// crypt(3) variant, least-significant 6 bits first.
const itoa64 = "./0123456789ABCDEFGHIJKLMNOPQRSTUVWXYZabcdefghijklmnopqrstuvwxyz"

// VerifyCryptPassword checks password against an encoded hash in one of
// the five formats a user's PassBase64 record may hold: $1$ (MD5-crypt),
// $apr1$ (Apache's MD5-crypt variant, same algorithm with a different
// magic string), $5$ (SHA-256-crypt), $6$ (SHA-512-crypt) — imported from
// an external user directory — or $argon2id$, produced by HashPassword
// for accounts created directly through this server. No ecosystem
// library in the retrieval pack implements crypt(3); these are
// long-fixed, fully specified algorithms, so a direct implementation
// against the published specification is appropriate rather than a
// corners-cut stand-in.
func VerifyCryptPassword(password, hashed string) (bool, error) {
	if strings.HasPrefix(hashed, "$argon2id$") {
		return verifyArgon2Password(password, hashed)
	}

	var computed string
	var err error

	switch {
	case strings.HasPrefix(hashed, "$1$"):
		computed, err = md5Crypt(password, hashed, "$1$")
	case strings.HasPrefix(hashed, "$apr1$"):
		computed, err = md5Crypt(password, hashed, "$apr1$")
	case strings.HasPrefix(hashed, "$5$"):
		computed, err = shaCrypt(password, hashed, sha256.New, sha256Table, 32)
	case strings.HasPrefix(hashed, "$6$"):
		computed, err = shaCrypt(password, hashed, sha512.New, sha512Table, 64)
	default:
		return false, fmt.Errorf("oauth: unsupported crypt hash format")
	}
	if err != nil {
		return false, err
	}
	return subtle.ConstantTimeCompare([]byte(computed), []byte(hashed)) == 1, nil
}

// md5Crypt implements the classic MD5-based crypt(3) algorithm shared
// by $1$ and $apr1$, differing only in the magic string mixed into
// the first digest.
func md5Crypt(password, hashed, magic string) (string, error) {
	rest := strings.TrimPrefix(hashed, magic)
	salt := rest
	if i := strings.IndexByte(rest, '$'); i >= 0 {
		salt = rest[:i]
	}
	if len(salt) > 8 {
		salt = salt[:8]
	}
	pw := []byte(password)
	sa := []byte(salt)

	final := md5.Sum(append(append(append([]byte{}, pw...), sa...), pw...))

	h := md5.New()
	h.Write(pw)
	h.Write([]byte(magic))
	h.Write(sa)
	for pl := len(pw); pl > 0; pl -= 16 {
		n := pl
		if n > 16 {
			n = 16
		}
		h.Write(final[:n])
	}
	for i := len(pw); i != 0; i >>= 1 {
		if i&1 != 0 {
			h.Write([]byte{0})
		} else {
			h.Write(pw[:1])
		}
	}
	ctx := h.Sum(nil)

	for i := 0; i < 1000; i++ {
		c := md5.New()
		if i&1 != 0 {
			c.Write(pw)
		} else {
			c.Write(ctx)
		}
		if i%3 != 0 {
			c.Write(sa)
		}
		if i%7 != 0 {
			c.Write(pw)
		}
		if i&1 != 0 {
			c.Write(ctx)
		} else {
			c.Write(pw)
		}
		ctx = c.Sum(nil)
	}

	var sb strings.Builder
	sb.WriteString(magic)
	sb.WriteString(salt)
	sb.WriteByte('$')
	triples := [5][3]int{{0, 6, 12}, {1, 7, 13}, {2, 8, 14}, {3, 9, 15}, {4, 10, 5}}
	for _, t := range triples {
		b64From24Bit(&sb, ctx[t[0]], ctx[t[1]], ctx[t[2]], 4)
	}
	b64From24Bit(&sb, 0, 0, ctx[11], 2)
	return sb.String(), nil
}

// sha256Table/sha512Table are the final byte-permutation orders used
// by the SHA-crypt specification when packing the digest into base64
// triples; they differ per digest size (32 vs 64 bytes).
var sha256Table = [][3]int{
	{0, 10, 20}, {21, 1, 11}, {12, 22, 2}, {3, 13, 23}, {24, 4, 14},
	{15, 25, 5}, {6, 16, 26}, {27, 7, 17}, {18, 28, 8}, {9, 19, 29},
}

var sha512Table = [][3]int{
	{0, 21, 42}, {22, 43, 1}, {44, 2, 23}, {3, 24, 45}, {25, 46, 4},
	{47, 5, 26}, {6, 27, 48}, {28, 49, 7}, {50, 8, 29}, {9, 30, 51},
	{31, 52, 10}, {53, 11, 32}, {12, 33, 54}, {34, 55, 13}, {56, 14, 35},
	{15, 36, 57}, {37, 58, 16}, {59, 17, 38}, {18, 39, 60}, {40, 61, 19},
	{62, 20, 41},
}

const defaultCryptRounds = 5000

// shaCrypt implements the SHA-crypt algorithm (Akkadia/Drepper
// specification) shared by $5$ (SHA-256) and $6$ (SHA-512), the only
// difference being the hash constructor, the final-permutation table,
// and the digest length.
func shaCrypt(password, hashed string, newHash func() hash.Hash, table [][3]int, digestLen int) (string, error) {
	body := hashed
	for _, prefix := range []string{"$5$", "$6$"} {
		body = strings.TrimPrefix(body, prefix)
	}
	rounds := defaultCryptRounds
	customRounds := false
	if strings.HasPrefix(body, "rounds=") {
		rest := body[len("rounds="):]
		i := strings.IndexByte(rest, '$')
		if i < 0 {
			return "", fmt.Errorf("oauth: malformed rounds in crypt hash")
		}
		n, err := strconv.Atoi(rest[:i])
		if err != nil {
			return "", fmt.Errorf("oauth: malformed rounds in crypt hash: %w", err)
		}
		rounds = clampRounds(n)
		customRounds = true
		body = rest[i+1:]
	}
	salt := body
	if i := strings.IndexByte(body, '$'); i >= 0 {
		salt = body[:i]
	}
	if len(salt) > 16 {
		salt = salt[:16]
	}

	pw := []byte(password)
	sa := []byte(salt)

	digestA := hashSum(newHash, pw, sa, pw)

	hb := newHash()
	hb.Write(pw)
	hb.Write(sa)
	hb.Write(cycleToLength(digestA, len(pw)))
	for i := len(pw); i != 0; i >>= 1 {
		if i&1 != 0 {
			hb.Write(digestA)
		} else {
			hb.Write(pw)
		}
	}
	digestB := hb.Sum(nil)

	dp := hashSumRepeated(newHash, pw, len(pw))
	pSeq := cycleToLength(dp, len(pw))

	dsRounds := 16 + int(digestB[0])
	ds := hashSumRepeated(newHash, sa, dsRounds)
	sSeq := cycleToLength(ds, len(sa))

	digestC := digestB
	for i := 0; i < rounds; i++ {
		c := newHash()
		if i&1 != 0 {
			c.Write(pSeq)
		} else {
			c.Write(digestC)
		}
		if i%3 != 0 {
			c.Write(sSeq)
		}
		if i%7 != 0 {
			c.Write(pSeq)
		}
		if i&1 != 0 {
			c.Write(digestC)
		} else {
			c.Write(pSeq)
		}
		digestC = c.Sum(nil)
	}

	var sb strings.Builder
	if digestLen == 32 {
		sb.WriteString("$5$")
	} else {
		sb.WriteString("$6$")
	}
	if customRounds {
		fmt.Fprintf(&sb, "rounds=%d$", rounds)
	}
	sb.WriteString(salt)
	sb.WriteByte('$')
	for _, t := range table {
		b64From24Bit(&sb, digestC[t[0]], digestC[t[1]], digestC[t[2]], 4)
	}
	if digestLen == 32 {
		b64From24Bit(&sb, 0, digestC[31], digestC[30], 3)
	} else {
		b64From24Bit(&sb, 0, 0, digestC[63], 2)
	}
	return sb.String(), nil
}

func clampRounds(n int) int {
	const minRounds, maxRounds = 1000, 999999999
	if n < minRounds {
		return minRounds
	}
	if n > maxRounds {
		return maxRounds
	}
	return n
}

func hashSum(newHash func() hash.Hash, parts ...[]byte) []byte {
	h := newHash()
	for _, p := range parts {
		h.Write(p)
	}
	return h.Sum(nil)
}

func hashSumRepeated(newHash func() hash.Hash, data []byte, times int) []byte {
	h := newHash()
	for i := 0; i < times; i++ {
		h.Write(data)
	}
	return h.Sum(nil)
}

func cycleToLength(digest []byte, length int) []byte {
	out := make([]byte, length)
	for i := range out {
		out[i] = digest[i%len(digest)]
	}
	return out
}

// b64From24Bit packs three bytes (MSB a, mid b, LSB c) into n base64
// characters, least-significant 6 bits emitted first, per the
// crypt(3) itoa64 convention.
func b64From24Bit(sb *strings.Builder, a, b, c byte, n int) {
	v := uint32(a)<<16 | uint32(b)<<8 | uint32(c)
	for i := 0; i < n; i++ {
		sb.WriteByte(itoa64[v&0x3f])
		v >>= 6
	}
}
