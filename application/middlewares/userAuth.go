package middlewares

import (
	"strings"

	"github.com/golang-jwt/jwt/v4"
	apperrors "veridoc.mx/application/appErrors"
	"veridoc.mx/application/interfaces"
	"veridoc.mx/infrastructure/auth"
)

func UserAuthenticationMiddleware(ctx *interfaces.ApplicationContext[any]) (*interfaces.ApplicationContext[any], bool) {
	authHeader := ctx.GetHeader("Authorization")
	if authHeader == nil || !strings.HasPrefix(*authHeader, "Bearer ") {
		apperrors.AuthenticationError(ctx.Ctx, "provide an auth token", ctx.DeviceID)
		return nil, false
	}

	token, err := auth.DecodeAuthToken(strings.TrimPrefix(*authHeader, "Bearer "))
	if err != nil {
		apperrors.AuthenticationError(ctx.Ctx, "this session has expired", ctx.DeviceID)
		return nil, false
	}
	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		apperrors.AuthenticationError(ctx.Ctx, "this session has expired", ctx.DeviceID)
		return nil, false
	}
	userID, ok := claims["userID"].(string)
	if !ok || userID == "" {
		apperrors.AuthenticationError(ctx.Ctx, "this session has expired", ctx.DeviceID)
		return nil, false
	}
	if deviceID, ok := claims["deviceID"].(string); ok && deviceID != ctx.DeviceID {
		apperrors.AuthenticationError(ctx.Ctx, "this token was issued to a different device", ctx.DeviceID)
		return nil, false
	}

	ctx.SetContextData("UserID", userID)
	if email, ok := claims["email"].(string); ok {
		ctx.SetContextData("Email", email)
	}
	return ctx, true
}
