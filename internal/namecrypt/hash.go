package namecrypt

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"

	"golang.org/x/crypto/hkdf"
)

// Domain prefixes. The version suffix enables future algorithm migration.
const (
	DomainFingerprint = "fdn/provenance/fingerprint/v1"
	DomainKey         = "fdn/provenance/key/v1"
)

// KeySize is the AES-128 key length in bytes.
const KeySize = 16

// hashWithDomain computes SHA-256 hash with domain separation.
// Format: SHA256(domain + 0x00 + data)
func hashWithDomain(domain string, data []byte) string {
	h := sha256.New()
	h.Write([]byte(domain))
	h.Write([]byte{0x00})
	h.Write(data)
	return hex.EncodeToString(h.Sum(nil))
}

// Fingerprint returns the lookup key for a current base name.
// It is one-way; only someone who already knows the name can find its record.
func Fingerprint(current string) string {
	return hashWithDomain(DomainFingerprint, []byte(current))
}

// DeriveKey returns the AES-128 key for records whose current name is
// current. The salt differs from the fingerprint domain so a stored
// fingerprint never doubles as key material.
func DeriveKey(current string) ([]byte, error) {
	r := hkdf.New(sha256.New, []byte(current), []byte(DomainKey), nil)
	key := make([]byte, KeySize)
	if _, err := io.ReadFull(r, key); err != nil {
		return nil, fmt.Errorf("derive key: %w", err)
	}
	return key, nil
}
