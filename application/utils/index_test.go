package utils

import (
	"testing"
)

func TestDescriptorEncodingRoundTrip(t *testing.T) {
	original := []float64{0.123456789, -0.5, 1, 0, 0.000001, -0.999999}

	encoded, err := EncodeDescriptor(original)
	if err != nil {
		t.Fatalf("encode failed: %v", err)
	}
	decoded, err := DecodeBase64Descriptor(encoded)
	if err != nil {
		t.Fatalf("decode failed: %v", err)
	}
	if len(decoded) != len(original) {
		t.Fatalf("length changed: %d vs %d", len(decoded), len(original))
	}
	for i := range original {
		if decoded[i] != original[i] {
			t.Errorf("component %d changed: %v vs %v", i, decoded[i], original[i])
		}
	}
}

func TestDecodeBase64Descriptor(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		wantErr bool
	}{
		{name: "not base64", input: "!!not-base64!!", wantErr: true},
		{name: "base64 but not json", input: "bm90IGpzb24=", wantErr: true},
		{name: "json but not an array", input: "eyJhIjoxfQ==", wantErr: true},
		{name: "valid array", input: "WzAuMSwwLjIsMC4zXQ==", wantErr: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := DecodeBase64Descriptor(tt.input)
			if (err != nil) != tt.wantErr {
				t.Errorf("DecodeBase64Descriptor(%q) error = %v, wantErr %v", tt.input, err, tt.wantErr)
			}
		})
	}
}

func TestGenerateULIDString(t *testing.T) {
	a := GenerateULIDString()
	b := GenerateULIDString()
	if len(a) != 26 {
		t.Errorf("ulid length = %d, want 26", len(a))
	}
	if a == b {
		t.Error("consecutive ulids must differ")
	}
}
