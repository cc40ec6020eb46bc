package nju

import (
	"crypto/aes"
	"crypto/cipher"
	"encoding/base64"
	"fmt"
	"strings"
)

// EncryptPassword applies the CAS portal's client-side password transform:
// AES-128-CBC with the page-provided salt as key, an all-'a' IV, and a
// 64-byte 'a' prefix before the password, PKCS#7 padded and base64 encoded.
// The portal's JavaScript normally randomizes prefix and IV; constant
// filler is accepted by the server and keeps the output deterministic.
func EncryptPassword(password, salt string) (string, error) {
	block, err := aes.NewCipher([]byte(salt))
	if err != nil {
		return "", fmt.Errorf("password salt: %w", err)
	}

	plain := []byte(strings.Repeat("a", 64) + password)
	plain = pkcs7Pad(plain, aes.BlockSize)

	iv := []byte(strings.Repeat("a", aes.BlockSize))
	out := make([]byte, len(plain))
	cipher.NewCBCEncrypter(block, iv).CryptBlocks(out, plain)

	return base64.StdEncoding.EncodeToString(out), nil
}

func pkcs7Pad(b []byte, size int) []byte {
	n := size - len(b)%size
	for i := 0; i < n; i++ {
		b = append(b, byte(n))
	}
	return b
}
