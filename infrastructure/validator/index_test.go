package validator

import (
	"testing"
	"time"

	"veridoc.mx/application/biometry"
	"veridoc.mx/application/constants"
	"veridoc.mx/application/controller/dto"
	"veridoc.mx/application/utils"
)

func validDescriptor(t *testing.T) string {
	t.Helper()
	encoded, err := utils.EncodeDescriptor(make([]float64, constants.DESCRIPTOR_LENGTH))
	if err != nil {
		t.Fatalf("failed to encode descriptor: %v", err)
	}
	return encoded
}

func TestValidateRegisterBiometricDTO(t *testing.T) {
	proof := &biometry.LivenessProof{Challenge: biometry.ChallengeBlink, Timestamp: time.Now()}

	tests := []struct {
		name    string
		payload dto.RegisterBiometricDTO
		wantErr bool
	}{
		{
			name: "valid payload",
			payload: dto.RegisterBiometricDTO{
				Type:       "face",
				Descriptor: "",
				Proof:      proof,
			},
		},
		{
			name: "unknown biometric type",
			payload: dto.RegisterBiometricDTO{
				Type:       "iris",
				Descriptor: "",
				Proof:      proof,
			},
			wantErr: true,
		},
		{
			name: "missing proof",
			payload: dto.RegisterBiometricDTO{
				Type:       "face",
				Descriptor: "",
			},
			wantErr: true,
		},
		{
			name: "unknown challenge in the proof",
			payload: dto.RegisterBiometricDTO{
				Type:       "face",
				Descriptor: "",
				Proof:      &biometry.LivenessProof{Challenge: biometry.ChallengeType("wink"), Timestamp: time.Now()},
			},
			wantErr: true,
		},
		{
			name: "empty challenge is allowed",
			payload: dto.RegisterBiometricDTO{
				Type:       "face",
				Descriptor: "",
				Proof:      &biometry.LivenessProof{Timestamp: time.Now()},
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tt.payload.Descriptor = validDescriptor(t)
			errs := ValidatorInstance.ValidateStruct(tt.payload)
			if tt.wantErr && errs == nil {
				t.Error("expected validation errors, got none")
			}
			if !tt.wantErr && errs != nil {
				t.Errorf("unexpected validation errors: %v", *errs)
			}
		})
	}
}

func TestValidateFaceDescriptorRule(t *testing.T) {
	short, err := utils.EncodeDescriptor([]float64{1, 2, 3})
	if err != nil {
		t.Fatalf("failed to encode descriptor: %v", err)
	}

	base := dto.VerifyBiometricDTO{
		Type:  "face",
		Proof: &biometry.LivenessProof{Challenge: biometry.ChallengeBlink, Timestamp: time.Now()},
	}

	base.Descriptor = validDescriptor(t)
	if errs := ValidatorInstance.ValidateStruct(base); errs != nil {
		t.Errorf("full-length descriptor should pass, got %v", *errs)
	}

	base.Descriptor = short
	if errs := ValidatorInstance.ValidateStruct(base); errs == nil {
		t.Error("short descriptor must fail validation")
	}

	base.Descriptor = "not base64!!!"
	if errs := ValidatorInstance.ValidateStruct(base); errs == nil {
		t.Error("undecodable descriptor must fail validation")
	}
}
