package controller

import (
	"context"
	"errors"
	"math/rand"
	"net/http"
	"time"

	apperrors "veridoc.mx/application/appErrors"
	"veridoc.mx/application/biometry"
	"veridoc.mx/application/constants"
	"veridoc.mx/application/controller/dto"
	"veridoc.mx/application/interfaces"
	"veridoc.mx/application/utils"
	"veridoc.mx/entities"
	"veridoc.mx/infrastructure/database/repository/cache"
	server_response "veridoc.mx/infrastructure/serverResponse"
	"veridoc.mx/infrastructure/validator"
)

// RegisterBiometric enrolls a face descriptor for the authenticated user.
func RegisterBiometric(ctx *interfaces.ApplicationContext[dto.RegisterBiometricDTO]) {
	validationErr := validator.ValidatorInstance.ValidateStruct(ctx.Body)
	if validationErr != nil {
		apperrors.ValidationFailedError(ctx.Ctx, validationErr, ctx.DeviceID)
		return
	}

	result, err := biometry.BiometricService.Register(context.TODO(), biometry.RegisterInput{
		UserID:          ctx.GetStringContextData("UserID"),
		Type:            entities.BiometricType(ctx.Body.Type),
		Descriptor:      ctx.Body.Descriptor,
		Proof:           ctx.Body.Proof,
		CustomThreshold: ctx.Body.CustomThreshold,
		Metadata:        ctx.Body.Metadata,
		IPAddress:       utils.GetStringPointer(ctx.GetStringContextData("IPAddress")),
		UserAgent:       &ctx.UserAgent,
	})
	if err != nil {
		respondBiometryError(ctx.Ctx, err, ctx.DeviceID)
		return
	}

	server_response.Responder.Respond(ctx.Ctx, http.StatusCreated, "biometric data registered 🎉", result, nil, nil, nil)
}

// VerifyBiometric runs the full verification pipeline against the user's
// registered descriptor.
func VerifyBiometric(ctx *interfaces.ApplicationContext[dto.VerifyBiometricDTO]) {
	validationErr := validator.ValidatorInstance.ValidateStruct(ctx.Body)
	if validationErr != nil {
		apperrors.ValidationFailedError(ctx.Ctx, validationErr, ctx.DeviceID)
		return
	}

	result, err := biometry.BiometricService.Verify(context.TODO(), biometry.VerifyInput{
		UserID:     ctx.GetStringContextData("UserID"),
		Type:       entities.BiometricType(ctx.Body.Type),
		Descriptor: ctx.Body.Descriptor,
		Proof:      ctx.Body.Proof,
		IPAddress:  utils.GetStringPointer(ctx.GetStringContextData("IPAddress")),
		UserAgent:  &ctx.UserAgent,
	})
	if err != nil {
		respondBiometryError(ctx.Ctx, err, ctx.DeviceID)
		return
	}

	if result.Locked && result.Outcome == nil {
		server_response.Responder.Respond(ctx.Ctx, http.StatusLocked,
			"Too many failed attempts. Biometric verification is temporarily locked 🔒", map[string]any{
				"lockUntil": result.LockUntil,
			}, nil, &constants.BIOMETRIC_TEMPORARY_LOCK, &ctx.DeviceID)
		return
	}

	message := "verification completed"
	var responseCode *uint
	if !result.Outcome.Verified {
		responseCode = &constants.LIVENESS_CHECK_FAILED
		message = "verification failed"
	}
	server_response.Responder.Respond(ctx.Ctx, http.StatusOK, message, result, nil, responseCode, &ctx.DeviceID)
}

// CheckLiveness runs a standalone liveness check. Failure is reported in the
// payload, not as an error status.
func CheckLiveness(ctx *interfaces.ApplicationContext[dto.LivenessCheckDTO]) {
	validationErr := validator.ValidatorInstance.ValidateStruct(ctx.Body)
	if validationErr != nil {
		apperrors.ValidationFailedError(ctx.Ctx, validationErr, ctx.DeviceID)
		return
	}

	result := biometry.BiometricService.CheckLiveness(ctx.Body.Proof)
	server_response.Responder.Respond(ctx.Ctx, http.StatusOK, "liveness check completed", result, nil, nil, &ctx.DeviceID)
}

// RemoveBiometricData retires all the user's biometric records.
func RemoveBiometricData(ctx *interfaces.ApplicationContext[any]) {
	removed, err := biometry.BiometricService.RemoveUserBiometricData(
		ctx.GetStringContextData("UserID"),
		utils.GetStringPointer(ctx.GetStringContextData("IPAddress")),
		&ctx.UserAgent,
	)
	if err != nil {
		respondBiometryError(ctx.Ctx, err, ctx.DeviceID)
		return
	}

	server_response.Responder.Respond(ctx.Ctx, http.StatusOK, "biometric data removed 🚮", map[string]any{
		"recordsDeactivated": removed,
	}, nil, nil, &ctx.DeviceID)
}

var issuableChallenges = []biometry.ChallengeType{
	biometry.ChallengeBlink,
	biometry.ChallengeSmile,
	biometry.ChallengeHeadTurn,
	biometry.ChallengeNod,
	biometry.ChallengeMouthOpen,
}

// GenerateChallenge issues a random liveness challenge with a single-use nonce
// cached for the challenge's freshness window.
func GenerateChallenge(ctx *interfaces.ApplicationContext[any]) {
	challenge := issuableChallenges[rand.Intn(len(issuableChallenges))]
	nonce := utils.GenerateULIDString()
	ttl := time.Second * 30

	saved := cache.Cache.CreateEntry(biometry.ChallengeNonceKey(nonce), string(challenge), ttl)
	if !saved {
		apperrors.FatalServerError(ctx.Ctx, errors.New("could not persist challenge nonce"), ctx.DeviceID)
		return
	}

	server_response.Responder.Respond(ctx.Ctx, http.StatusOK, "challenge generated", map[string]any{
		"challenge":  challenge,
		"nonce":      nonce,
		"ttlSeconds": int(ttl.Seconds()),
	}, nil, nil, &ctx.DeviceID)
}

// SystemHealthCheck reports whether the verification core and its backing
// services are wired and reachable.
func SystemHealthCheck(ctx *interfaces.ApplicationContext[any]) {
	ready := biometry.BiometricService != nil
	status := "healthy"
	code := http.StatusOK
	if !ready {
		status = "degraded"
		code = http.StatusServiceUnavailable
	}
	server_response.Responder.Respond(ctx.Ctx, code, "system health", map[string]any{
		"status":           status,
		"verificationCore": ready,
		"timestamp":        time.Now(),
	}, nil, nil, &ctx.DeviceID)
}

func respondBiometryError(ctx any, err error, deviceID string) {
	var validationErr *biometry.ValidationError
	var notFoundErr *biometry.NotFoundError
	switch {
	case errors.As(err, &validationErr):
		apperrors.ClientError(ctx, validationErr.Message, nil, nil, deviceID)
	case errors.As(err, &notFoundErr):
		if notFoundErr.Entity == "biometric record" {
			server_response.Responder.Respond(ctx, http.StatusNotFound,
				"No biometric data registered for this account 🤷", nil, nil, &constants.BIOMETRIC_NOT_REGISTERED, &deviceID)
			return
		}
		apperrors.NotFoundError(ctx, notFoundErr.Error(), &deviceID)
	default:
		apperrors.FatalServerError(ctx, err, deviceID)
	}
}
