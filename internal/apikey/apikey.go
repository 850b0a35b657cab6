// Package apikey generates the opaque secrets presented by API consumers as
// ApiKey.Secret (spec.md §3), following pkg/secrets' HKDF domain-separation
// pattern for deriving non-reversible material from high-entropy random
// input.
package apikey

import (
	"crypto/rand"
	"crypto/sha256"
	"encoding/base32"
	"errors"
	"io"
	"strings"

	"golang.org/x/crypto/hkdf"
)

// prefix identifies the secret as belonging to this gateway when it shows
// up in logs or leaked in the wild, the same way Stripe/GitHub token
// prefixes do.
const prefix = "gwk_"

// entropyBytes is the size of the random seed backing each secret; 20 bytes
// (160 bits) matches common API token designs.
const entropyBytes = 20

// fingerprintInfo domain-separates the HKDF fingerprint derivation from any
// other use of HKDF in the codebase (pkg/secrets uses its own saltInfo for
// the same reason).
const fingerprintInfo = "apigateway-key-fingerprint-v1"

// ErrGenerationFailed wraps an underlying crypto/rand or HKDF failure.
var ErrGenerationFailed = errors.New("apikey: failed to generate secret")

var encoding = base32.StdEncoding.WithPadding(base32.NoPadding)

// Generate returns a new opaque secret of the form "gwk_<base32>" along with
// its Fingerprint, a short non-reversible identifier suitable for display
// ("gwk_...3F9Q") and for correlating support tickets without storing the
// raw secret in plaintext logs.
func Generate() (secret, fingerprint string, err error) {
	seed := make([]byte, entropyBytes)
	if _, err := rand.Read(seed); err != nil {
		return "", "", errors.Join(ErrGenerationFailed, err)
	}

	secret = prefix + strings.ToLower(encoding.EncodeToString(seed))

	fp, err := Fingerprint(secret)
	if err != nil {
		return "", "", err
	}
	return secret, fp, nil
}

// Fingerprint derives a deterministic, non-reversible 8-character
// fingerprint for secret, used to display "...3F9Q"-style suffixes without
// ever storing or re-deriving the original secret from it.
func Fingerprint(secret string) (string, error) {
	hkdfReader := hkdf.New(sha256.New, []byte(secret), nil, []byte(fingerprintInfo))
	out := make([]byte, 5)
	if _, err := io.ReadFull(hkdfReader, out); err != nil {
		return "", errors.Join(ErrGenerationFailed, err)
	}
	return strings.ToUpper(encoding.EncodeToString(out))[:8], nil
}
