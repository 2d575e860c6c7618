package installer

import (
	"crypto/ed25519"
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"fmt"
	"strings"

	"github.com/osaurus-ai/osaurus/internal/apperr"
)

// Verifier checks an artifact's SHA-256 checksum and, when present, its
// Ed25519 detached signature against a spec's declared public keys.
// Grounded on the teacher's internal/marketplace/verification.go, with
// the "signature present but no matching key" case made fail-closed per
// spec §4.E step 3 rather than silently skipped.
type Verifier struct{}

func NewVerifier() *Verifier { return &Verifier{} }

// VerifyChecksum compares the SHA-256 of data to expectedHex, case-insensitively.
func (*Verifier) VerifyChecksum(data []byte, expectedHex string) error {
	sum := sha256.Sum256(data)
	computed := hex.EncodeToString(sum[:])
	if !strings.EqualFold(computed, expectedHex) {
		return apperr.New(apperr.ChecksumMismatch, fmt.Sprintf("checksum mismatch: expected %s, got %s", expectedHex, computed))
	}
	return nil
}

// VerifySignature verifies an Ed25519 detached signature over data
// using the "ed25519" scheme key from publicKeys. Any other declared
// scheme (e.g. one requiring a hash this verifier does not support) is
// rejected with a diagnostic error rather than silently accepted.
func (*Verifier) VerifySignature(data []byte, signatureB64 string, publicKeys map[string]string) error {
	if signatureB64 == "" {
		return nil
	}
	keyB64, ok := publicKeys["ed25519"]
	if !ok {
		return apperr.New(apperr.SignatureInvalid, "artifact carries a signature but the spec declares no matching ed25519 public key")
	}
	key, err := base64.StdEncoding.DecodeString(keyB64)
	if err != nil || len(key) != ed25519.PublicKeySize {
		return apperr.Wrap(apperr.SignatureInvalid, "invalid ed25519 public key in spec", err)
	}
	sig, err := base64.StdEncoding.DecodeString(signatureB64)
	if err != nil || len(sig) != ed25519.SignatureSize {
		return apperr.Wrap(apperr.SignatureInvalid, "invalid signature encoding", err)
	}
	if !ed25519.Verify(ed25519.PublicKey(key), data, sig) {
		return apperr.New(apperr.SignatureInvalid, "ed25519 signature verification failed")
	}
	return nil
}
