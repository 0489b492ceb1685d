package apperrors

import (
	"fmt"
	"net/http"

	"veridoc.mx/infrastructure/logger"
	server_response "veridoc.mx/infrastructure/serverResponse"
)

func NotFoundError(ctx interface{}, message string, deviceID *string) {
	server_response.Responder.Respond(ctx, http.StatusNotFound, message, nil, nil, nil, deviceID)
}

func ValidationFailedError(ctx interface{}, errMessages *[]error, deviceID string) {
	server_response.Responder.Respond(ctx, http.StatusUnprocessableEntity, "Payload validation failed 🙄", nil, *errMessages, nil, &deviceID)
}

func EntityAlreadyExistsError(ctx interface{}, message string, deviceID string) {
	server_response.Responder.Respond(ctx, http.StatusConflict, message, nil, nil, nil, &deviceID)
}

func AuthenticationError(ctx interface{}, message string, deviceID string) {
	server_response.Responder.Respond(ctx, http.StatusUnauthorized, message, nil, nil, nil, &deviceID)
}

func ExternalDependencyError(ctx interface{}, serviceName string, statusCode string, err error, deviceID string) {
	logger.Error(err.Error(), logger.LoggerOptions{
		Key: fmt.Sprintf("error with %s. status code %s", serviceName, statusCode),
	})
	server_response.Responder.Respond(ctx, http.StatusServiceUnavailable,
		"Our service is temporarily down 😢. Our team is working to fix it. Please check back later.", nil, nil, nil, &deviceID)
}

func ErrorProcessingPayload(ctx interface{}, deviceID *string) {
	server_response.Responder.Respond(ctx, http.StatusBadRequest, "Abnormal payload passed 🤨", nil, nil, nil, deviceID)
}

func FatalServerError(ctx interface{}, err error, deviceID string) {
	logger.Error("fatal server error", logger.LoggerOptions{
		Key:  "error",
		Data: err,
	})
	server_response.Responder.Respond(ctx, http.StatusInternalServerError,
		"Our service is temporarily down 😢. Our team is working to fix it. Please check back later.", nil, nil, nil, &deviceID)
}

func UnknownError(ctx interface{}, err error, responseCode *uint, deviceID string) {
	server_response.Responder.Respond(ctx, http.StatusBadRequest,
		"Something went wrong somewhere 😭. Please check back later.", nil, nil, responseCode, &deviceID)
}

func CustomError(ctx interface{}, msg string, responseCode *uint, deviceID string) {
	server_response.Responder.Respond(ctx, http.StatusBadRequest, msg, nil, nil, responseCode, &deviceID)
}

func UnsupportedUserAgent(ctx interface{}, deviceID string) {
	server_response.Responder.Respond(ctx, http.StatusBadRequest,
		"unsupported user agent 👮🏻‍♂️", nil, nil, nil, &deviceID)
}

func MalformedHeader(ctx interface{}, deviceID *string) {
	server_response.Responder.Respond(ctx, http.StatusBadRequest,
		"malformed header information 👮🏻‍♂️", nil, nil, nil, deviceID)
}

func ClientError(ctx interface{}, msg string, errs []error, responseCode *uint, deviceID string) {
	server_response.Responder.Respond(ctx, http.StatusBadRequest, msg, nil, errs, responseCode, &deviceID)
}
