package security

import (
	"crypto/rand"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"
	"fmt"

	"saas-api-console/internal/domain/model"
)

// GeneratedKey is a freshly minted credential. FullKey is shown to the user
// once; Prefix is the non-secret display form; Digest is what the metering
// verifier compares against.
type GeneratedKey struct {
	FullKey string
	Prefix  string
	Digest  string
}

// GenerateAPIKey mints a key of the form ak_live_<64 hex> (or ak_test_).
func GenerateAPIKey(env model.Environment) (*GeneratedKey, error) {
	raw := make([]byte, 32)
	if _, err := rand.Read(raw); err != nil {
		return nil, fmt.Errorf("keygen: %w", err)
	}
	body := hex.EncodeToString(raw)

	envPrefix := "ak_live_"
	if env == model.EnvTest {
		envPrefix = "ak_test_"
	}
	full := envPrefix + body

	sum := sha256.Sum256([]byte(full))

	return &GeneratedKey{
		FullKey: full,
		Prefix:  fmt.Sprintf("%s%s...%s", envPrefix, body[:8], body[len(body)-4:]),
		Digest:  hex.EncodeToString(sum[:]),
	}, nil
}

// VerifyAPIKey reports whether providedKey hashes to digest.
func VerifyAPIKey(providedKey, digest string) bool {
	sum := sha256.Sum256([]byte(providedKey))
	computed := hex.EncodeToString(sum[:])
	return subtle.ConstantTimeCompare([]byte(computed), []byte(digest)) == 1
}
