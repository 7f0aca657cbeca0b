// Package namecrypt implements the self-keyed scheme that protects rename
// provenance.
//
// A provenance record is indexed by a fingerprint of the current base name
// and carries the previous base name encrypted under a key derived from that
// same current name. Whoever holds the file can recover its history; the
// store alone reveals nothing and no key material is ever persisted.
//
// # Fixed Contract
//
//   - Fingerprint: SHA-256(domain + 0x00 + name), hex encoded
//   - Key: HKDF-SHA256(ikm=name, salt=key domain), 16 bytes (AES-128)
//   - Cipher: AES-128-CBC, PKCS#7 padding, all-zero IV
//
// Changing any of these invalidates every stored record. Names are used as
// raw bytes; no normalization happens between fingerprinting and key
// derivation.
package namecrypt
