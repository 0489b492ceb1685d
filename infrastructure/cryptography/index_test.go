package cryptography

import (
	"strings"
	"testing"
)

var testKey = strings.Repeat("ab", 32) // 32 byte key, hex encoded

func TestEncryptDecryptRoundTrip(t *testing.T) {
	payload := []byte(`[0.1,0.2,0.3]`)

	sealed, err := EncryptData(payload, &testKey)
	if err != nil {
		t.Fatalf("encrypt failed: %v", err)
	}
	if sealed.Ciphertext == "" || sealed.IV == "" || sealed.AuthTag == "" {
		t.Fatal("envelope fields must all be populated")
	}

	opened, err := DecryptData(*sealed, &testKey)
	if err != nil {
		t.Fatalf("decrypt failed: %v", err)
	}
	if string(opened) != string(payload) {
		t.Errorf("round trip changed payload: %q vs %q", opened, payload)
	}
}

func TestDecryptRejectsTampering(t *testing.T) {
	sealed, err := EncryptData([]byte("descriptor data"), &testKey)
	if err != nil {
		t.Fatalf("encrypt failed: %v", err)
	}

	tampered := *sealed
	tampered.AuthTag = strings.Repeat("00", 16)
	if _, err := DecryptData(tampered, &testKey); err == nil {
		t.Error("mismatched auth tag must fail decryption")
	}

	wrongKey := strings.Repeat("cd", 32)
	if _, err := DecryptData(*sealed, &wrongKey); err == nil {
		t.Error("wrong key must fail decryption")
	}
}

func TestEncryptRejectsBadKey(t *testing.T) {
	badKey := "not-hex"
	if _, err := EncryptData([]byte("data"), &badKey); err == nil {
		t.Error("invalid key encoding must be rejected")
	}

	shortKey := "abcd"
	if _, err := EncryptData([]byte("data"), &shortKey); err == nil {
		t.Error("short key must be rejected")
	}
}
