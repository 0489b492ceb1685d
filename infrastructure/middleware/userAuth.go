package middlewares

import (
	"github.com/gin-gonic/gin"
	"veridoc.mx/application/interfaces"
	"veridoc.mx/application/middlewares"
)

func UserAuthenticationMiddleware() gin.HandlerFunc {
	return func(ctx *gin.Context) {
		savedCtx := (ctx.MustGet("AppContext")).(*interfaces.ApplicationContext[any])
		appContext, next := middlewares.UserAuthenticationMiddleware(&interfaces.ApplicationContext[any]{
			Ctx:       ctx,
			Keys:      savedCtx.Keys,
			Header:    ctx.Request.Header,
			DeviceID:  savedCtx.DeviceID,
			UserAgent: savedCtx.UserAgent,
		})
		if next {
			ctx.Set("AppContext", appContext)
			ctx.Next()
		}
	}
}
