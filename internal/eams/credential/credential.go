// Package credential reproduces the password obfuscation the CAS login form
// applies in the browser before submitting.
package credential

import (
	"bytes"
	"crypto/aes"
	"crypto/cipher"
	"encoding/base64"
	"errors"
	"strings"

	"eamsassist-backend/internal/eams"

	"github.com/mazen160/go-random"
)

// Alphabet excludes visually confusable characters (I, L, O, U, V, g, l, o,
// q, u, v, 0, 1, 9).
const Alphabet = "ABCDEFGHJKMNPQRSTWXYZabcdefhijkmnprstwxyz2345678"

const (
	ivLength     = 16
	prefixLength = 64
)

// RandomString picks n characters from Alphabet.
func RandomString(n int) (string, error) {
	return random.Random(n, Alphabet, true)
}

// Encode obfuscates password with salt.
//
// The returned string is always usable: when salt is empty or the cipher
// rejects it, the raw password comes back together with an
// *eams.EncodingError so the caller can degrade softly and report it.
func Encode(password, salt string) (string, error) {
	if salt == "" {
		return password, &eams.EncodingError{Err: errors.New("no salt")}
	}
	prefix, err := RandomString(prefixLength)
	if err != nil {
		return password, &eams.EncodingError{Err: err}
	}
	iv, err := RandomString(ivLength)
	if err != nil {
		return password, &eams.EncodingError{Err: err}
	}
	encoded, err := encrypt(prefix+password, salt, iv)
	if err != nil {
		return password, &eams.EncodingError{Err: err}
	}
	return encoded, nil
}

func encrypt(plaintext, salt, iv string) (string, error) {
	block, err := aes.NewCipher([]byte(strings.TrimSpace(salt)))
	if err != nil {
		return "", err
	}
	padded := pkcs7Pad([]byte(plaintext), block.BlockSize())
	out := make([]byte, len(padded))
	cipher.NewCBCEncrypter(block, []byte(iv)).CryptBlocks(out, padded)
	return base64.StdEncoding.EncodeToString(out), nil
}

// Decrypt is the remote side of Encode. The IV only affects the first
// block of CBC output, which lies inside the discarded random prefix, so the
// password is recovered without knowing it.
func Decrypt(encoded, salt string) (string, error) {
	raw, err := base64.StdEncoding.DecodeString(encoded)
	if err != nil {
		return "", err
	}
	block, err := aes.NewCipher([]byte(strings.TrimSpace(salt)))
	if err != nil {
		return "", err
	}
	if len(raw) == 0 || len(raw)%block.BlockSize() != 0 {
		return "", errors.New("ciphertext is not a whole number of blocks")
	}
	iv := make([]byte, block.BlockSize())
	out := make([]byte, len(raw))
	cipher.NewCBCDecrypter(block, iv).CryptBlocks(out, raw)
	out, err = pkcs7Unpad(out, block.BlockSize())
	if err != nil {
		return "", err
	}
	if len(out) < prefixLength {
		return "", errors.New("plaintext shorter than the random prefix")
	}
	return string(out[prefixLength:]), nil
}

func pkcs7Pad(data []byte, blockSize int) []byte {
	n := blockSize - len(data)%blockSize
	return append(data, bytes.Repeat([]byte{byte(n)}, n)...)
}

func pkcs7Unpad(data []byte, blockSize int) ([]byte, error) {
	if len(data) == 0 {
		return nil, errors.New("empty plaintext")
	}
	n := int(data[len(data)-1])
	if n == 0 || n > blockSize || n > len(data) {
		return nil, errors.New("invalid padding")
	}
	for _, b := range data[len(data)-n:] {
		if int(b) != n {
			return nil, errors.New("invalid padding")
		}
	}
	return data[:len(data)-n], nil
}
