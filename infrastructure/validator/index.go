package validator

import (
	"fmt"

	"github.com/go-playground/validator/v10"
	"veridoc.mx/infrastructure/logger"
)

var validate = validator.New()

func init() {
	validate.RegisterValidation("face_descriptor", validateFaceDescriptor)
	validate.RegisterValidation("biometric_type", validateBiometricType)
	validate.RegisterValidation("challenge", validateChallengeType)
}

type Validator struct{}

func (v *Validator) ValidateStruct(payload interface{}) *[]error {
	return validateStruct(payload)
}

func (v *Validator) ValidateValue(value any, rules string) error {
	return validate.Var(value, rules)
}

var ValidatorInstance = Validator{}

func validateStruct(payload interface{}) *[]error {
	err := validate.Struct(payload)
	if err == nil {
		return nil
	}
	validationErrors, ok := err.(validator.ValidationErrors)
	if !ok {
		logger.Error("unexpected error type from struct validation", logger.LoggerOptions{
			Key:  "error",
			Data: err,
		})
		errs := []error{err}
		return &errs
	}
	errs := make([]error, 0, len(validationErrors))
	for _, fieldErr := range validationErrors {
		errs = append(errs, fmt.Errorf("%s failed validation on the %s rule", fieldErr.Field(), fieldErr.Tag()))
	}
	return &errs
}
