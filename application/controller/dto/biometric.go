package dto

import "veridoc.mx/application/biometry"

type RegisterBiometricDTO struct {
	Type            string                  `json:"type" validate:"required,biometric_type"`
	Descriptor      string                  `json:"descriptor" validate:"required,face_descriptor"`
	Proof           *biometry.LivenessProof `json:"proof" validate:"required"`
	CustomThreshold *float64                `json:"customThreshold" validate:"omitempty,gt=0,lte=1"`
	Metadata        map[string]any          `json:"metadata"`
}

type VerifyBiometricDTO struct {
	Type       string                  `json:"type" validate:"required,biometric_type"`
	Descriptor string                  `json:"descriptor" validate:"required,face_descriptor"`
	Proof      *biometry.LivenessProof `json:"proof" validate:"required"`
}

type LivenessCheckDTO struct {
	Proof *biometry.LivenessProof `json:"proof" validate:"required"`
}
