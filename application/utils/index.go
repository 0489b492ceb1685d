package utils

import (
	"encoding/base64"
	"encoding/json"
	"fmt"
	"time"

	"github.com/oklog/ulid/v2"
)

func GenerateULIDString() string {
	return ulid.MustNew(ulid.Timestamp(time.Now()), ulid.DefaultEntropy()).String()
}

func GetStringPointer(text string) *string {
	return &text
}

func GetBooleanPointer(data bool) *bool {
	return &data
}

func GetFloat64Pointer(data float64) *float64 {
	return &data
}

func GetUIntPointer(data uint) *uint {
	return &data
}

// DecodeBase64Descriptor decodes a base64-encoded JSON numeric array into a
// face descriptor vector. The encoding must round-trip exactly, so only
// standard base64 is accepted.
func DecodeBase64Descriptor(data string) ([]float64, error) {
	raw, err := base64.StdEncoding.DecodeString(data)
	if err != nil {
		return nil, fmt.Errorf("descriptor is not valid base64: %w", err)
	}
	var descriptor []float64
	if err := json.Unmarshal(raw, &descriptor); err != nil {
		return nil, fmt.Errorf("descriptor is not a JSON numeric array: %w", err)
	}
	return descriptor, nil
}

// EncodeDescriptor is the inverse of DecodeBase64Descriptor.
func EncodeDescriptor(descriptor []float64) (string, error) {
	raw, err := json.Marshal(descriptor)
	if err != nil {
		return "", err
	}
	return base64.StdEncoding.EncodeToString(raw), nil
}

func HasItemString(arr *[]string, target string) bool {
	for _, v := range *arr {
		if v == target {
			return true
		}
	}
	return false
}
