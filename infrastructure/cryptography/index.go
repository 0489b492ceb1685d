package cryptography

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"io"
	"os"
)

// EncryptedPayload is the envelope persisted for a biometric descriptor. The
// auth tag is kept separately from the ciphertext so tampering is detected on
// decrypt.
type EncryptedPayload struct {
	Ciphertext string
	IV         string
	AuthTag    string
}

// EncryptData seals payload with AES-256-GCM under the hex key in ENC_KEY
// (or keyString when supplied) and returns ciphertext, nonce and auth tag as
// hex strings.
func EncryptData(payload []byte, keyString *string) (*EncryptedPayload, error) {
	gcm, err := newGCM(keyString)
	if err != nil {
		return nil, err
	}

	iv := make([]byte, gcm.NonceSize())
	if _, err := io.ReadFull(rand.Reader, iv); err != nil {
		return nil, fmt.Errorf("failed to generate IV: %w", err)
	}

	sealed := gcm.Seal(nil, iv, payload, nil)
	tagStart := len(sealed) - gcm.Overhead()
	return &EncryptedPayload{
		Ciphertext: hex.EncodeToString(sealed[:tagStart]),
		IV:         hex.EncodeToString(iv),
		AuthTag:    hex.EncodeToString(sealed[tagStart:]),
	}, nil
}

// DecryptData opens an envelope produced by EncryptData. A tampered
// ciphertext or mismatched auth tag fails the GCM open.
func DecryptData(payload EncryptedPayload, keyString *string) ([]byte, error) {
	gcm, err := newGCM(keyString)
	if err != nil {
		return nil, err
	}

	ciphertext, err := hex.DecodeString(payload.Ciphertext)
	if err != nil {
		return nil, fmt.Errorf("invalid ciphertext encoding: %w", err)
	}
	iv, err := hex.DecodeString(payload.IV)
	if err != nil {
		return nil, fmt.Errorf("invalid iv encoding: %w", err)
	}
	authTag, err := hex.DecodeString(payload.AuthTag)
	if err != nil {
		return nil, fmt.Errorf("invalid auth tag encoding: %w", err)
	}
	if len(iv) != gcm.NonceSize() {
		return nil, fmt.Errorf("iv must be %d bytes", gcm.NonceSize())
	}

	plaintext, err := gcm.Open(nil, iv, append(ciphertext, authTag...), nil)
	if err != nil {
		return nil, fmt.Errorf("decryption failed: %w", err)
	}
	return plaintext, nil
}

func newGCM(keyString *string) (cipher.AEAD, error) {
	if keyString == nil {
		envKey := os.Getenv("ENC_KEY")
		keyString = &envKey
	}
	key, err := hex.DecodeString(*keyString)
	if err != nil {
		return nil, fmt.Errorf("invalid key format: %w", err)
	}
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, fmt.Errorf("failed to create cipher: %w", err)
	}
	return cipher.NewGCM(block)
}
