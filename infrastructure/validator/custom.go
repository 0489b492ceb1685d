package validator

import (
	"github.com/go-playground/validator/v10"
	"veridoc.mx/application/constants"
	"veridoc.mx/application/utils"
)

func validateFaceDescriptor(fl validator.FieldLevel) bool {
	descriptor, err := utils.DecodeBase64Descriptor(fl.Field().String())
	if err != nil {
		return false
	}
	return len(descriptor) == constants.DESCRIPTOR_LENGTH
}

func validateBiometricType(fl validator.FieldLevel) bool {
	value := fl.Field().String()
	return value == "face" || value == "fingerprint"
}

func validateChallengeType(fl validator.FieldLevel) bool {
	switch fl.Field().String() {
	case "blink", "smile", "head-turn", "nod", "mouth-open", "sequence", "generic":
		return true
	}
	return false
}
