package namecrypt

import (
	"bytes"
	"crypto/aes"
	"crypto/cipher"
	"errors"
	"fmt"
)

// zeroIV is part of the on-disk contract. Records written by earlier
// versions cannot be opened with any other IV.
var zeroIV = make([]byte, aes.BlockSize)

// ErrDecrypt reports a ciphertext that does not open under the given name:
// wrong length, bad padding, or a key that does not match.
var ErrDecrypt = errors.New("namecrypt: decrypt failed")

// Seal encrypts plaintext under the key derived from current.
func Seal(current string, plaintext []byte) ([]byte, error) {
	block, err := newBlock(current)
	if err != nil {
		return nil, err
	}

	padded := pad(plaintext, aes.BlockSize)
	out := make([]byte, len(padded))
	cipher.NewCBCEncrypter(block, zeroIV).CryptBlocks(out, padded)
	return out, nil
}

// Open decrypts a blob produced by Seal with the same current name.
// Every failure wraps ErrDecrypt.
func Open(current string, blob []byte) ([]byte, error) {
	if len(blob) == 0 || len(blob)%aes.BlockSize != 0 {
		return nil, fmt.Errorf("%w: ciphertext length %d is not a positive multiple of %d",
			ErrDecrypt, len(blob), aes.BlockSize)
	}

	block, err := newBlock(current)
	if err != nil {
		return nil, err
	}

	out := make([]byte, len(blob))
	cipher.NewCBCDecrypter(block, zeroIV).CryptBlocks(out, blob)

	plain, err := unpad(out, aes.BlockSize)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrDecrypt, err)
	}
	return plain, nil
}

func newBlock(current string) (cipher.Block, error) {
	key, err := DeriveKey(current)
	if err != nil {
		return nil, err
	}
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, fmt.Errorf("new cipher: %w", err)
	}
	return block, nil
}

// pad applies PKCS#7 padding. A full block is appended when the input is
// already aligned.
func pad(data []byte, size int) []byte {
	n := size - len(data)%size
	return append(bytes.Clone(data), bytes.Repeat([]byte{byte(n)}, n)...)
}

func unpad(data []byte, size int) ([]byte, error) {
	if len(data) == 0 {
		return nil, errors.New("empty plaintext")
	}
	n := int(data[len(data)-1])
	if n == 0 || n > size || n > len(data) {
		return nil, fmt.Errorf("invalid padding length %d", n)
	}
	for _, b := range data[len(data)-n:] {
		if int(b) != n {
			return nil, errors.New("invalid padding bytes")
		}
	}
	return data[:len(data)-n], nil
}
