package middlewares

import (
	"errors"

	apperrors "veridoc.mx/application/appErrors"
	"veridoc.mx/application/interfaces"
	"veridoc.mx/infrastructure/useragent"
)

func UserAgentMiddleware(ctx *interfaces.ApplicationContext[any], clientIP string) (*interfaces.ApplicationContext[any], bool) {
	agent := ctx.GetHeader("User-Agent")
	if agent == nil {
		apperrors.ClientError(ctx.Ctx, "missing user-agent header 🤨", []error{errors.New("user agent header missing")}, nil, "")
		return nil, false
	}
	agentDetails := useragent.ParseUserAgent(*agent)
	if agentDetails.Bot {
		apperrors.UnsupportedUserAgent(ctx.Ctx, "")
		return nil, false
	}
	ctx.UserAgent = *agent
	deviceID := ctx.GetHeader("X-Device-Id")
	if deviceID == nil || *deviceID == "" {
		apperrors.MalformedHeader(ctx.Ctx, nil)
		return nil, false
	}
	ctx.DeviceID = *deviceID
	ctx.SetContextData("IPAddress", clientIP)
	return ctx, true
}
