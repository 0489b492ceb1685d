package routev1

import (
	"github.com/gin-gonic/gin"
	apperrors "veridoc.mx/application/appErrors"
	"veridoc.mx/application/controller"
	"veridoc.mx/application/controller/dto"
	"veridoc.mx/application/interfaces"
)

func BiometricRouter(router *gin.RouterGroup) {
	biometricRouter := router.Group("/biometric")
	{
		biometricRouter.POST("/register", func(ctx *gin.Context) {
			appContext := ctx.MustGet("AppContext").(*interfaces.ApplicationContext[any])
			var body dto.RegisterBiometricDTO
			if err := ctx.ShouldBindJSON(&body); err != nil {
				apperrors.ErrorProcessingPayload(ctx, appContext.GetHeader("X-Device-Id"))
				return
			}
			controller.RegisterBiometric(&interfaces.ApplicationContext[dto.RegisterBiometricDTO]{
				Ctx:       ctx,
				Body:      &body,
				Keys:      appContext.Keys,
				DeviceID:  appContext.DeviceID,
				UserAgent: appContext.UserAgent,
			})
		})

		biometricRouter.POST("/verify", func(ctx *gin.Context) {
			appContext := ctx.MustGet("AppContext").(*interfaces.ApplicationContext[any])
			var body dto.VerifyBiometricDTO
			if err := ctx.ShouldBindJSON(&body); err != nil {
				apperrors.ErrorProcessingPayload(ctx, appContext.GetHeader("X-Device-Id"))
				return
			}
			controller.VerifyBiometric(&interfaces.ApplicationContext[dto.VerifyBiometricDTO]{
				Ctx:       ctx,
				Body:      &body,
				Keys:      appContext.Keys,
				DeviceID:  appContext.DeviceID,
				UserAgent: appContext.UserAgent,
			})
		})

		biometricRouter.POST("/liveness-check", func(ctx *gin.Context) {
			appContext := ctx.MustGet("AppContext").(*interfaces.ApplicationContext[any])
			var body dto.LivenessCheckDTO
			if err := ctx.ShouldBindJSON(&body); err != nil {
				apperrors.ErrorProcessingPayload(ctx, appContext.GetHeader("X-Device-Id"))
				return
			}
			controller.CheckLiveness(&interfaces.ApplicationContext[dto.LivenessCheckDTO]{
				Ctx:       ctx,
				Body:      &body,
				Keys:      appContext.Keys,
				DeviceID:  appContext.DeviceID,
				UserAgent: appContext.UserAgent,
			})
		})

		biometricRouter.GET("/generate-challenge", func(ctx *gin.Context) {
			appContext := ctx.MustGet("AppContext").(*interfaces.ApplicationContext[any])
			controller.GenerateChallenge(&interfaces.ApplicationContext[any]{
				Ctx:      ctx,
				DeviceID: appContext.DeviceID,
			})
		})

		biometricRouter.GET("/health", func(ctx *gin.Context) {
			appContext := ctx.MustGet("AppContext").(*interfaces.ApplicationContext[any])
			controller.SystemHealthCheck(&interfaces.ApplicationContext[any]{
				Ctx:      ctx,
				DeviceID: appContext.DeviceID,
			})
		})

		biometricRouter.DELETE("/data", func(ctx *gin.Context) {
			appContext := ctx.MustGet("AppContext").(*interfaces.ApplicationContext[any])
			controller.RemoveBiometricData(&interfaces.ApplicationContext[any]{
				Ctx:       ctx,
				Keys:      appContext.Keys,
				DeviceID:  appContext.DeviceID,
				UserAgent: appContext.UserAgent,
			})
		})
	}
}
