package infrastructure

import (
	"fmt"
	"net/http"
	"os"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	apperrors "veridoc.mx/application/appErrors"
	"veridoc.mx/infrastructure/logger"
	middlewares "veridoc.mx/infrastructure/middleware"
	ratelimit "veridoc.mx/infrastructure/ratelimit"
	webRoutev1 "veridoc.mx/infrastructure/routes/ginRouter/web/v1"
	server_response "veridoc.mx/infrastructure/serverResponse"
	startup "veridoc.mx/infrastructure/startUp"
)

type ginServer struct{}

var Server ginServer

func (s *ginServer) Start() {
	err := godotenv.Load()
	if err != nil {
		logger.Info("error loading env variables")
	}

	startup.StartServices()
	defer startup.CleanUpServices()

	server := gin.Default()
	origins := []string{}
	if os.Getenv("GIN_MODE") == "debug" {
		origins = append(origins, "http://localhost:5173")
	} else if os.Getenv("GIN_MODE") == "release" {
		origins = append(origins, "https://veridoc.mx", "https://www.veridoc.mx")
	}
	corsConfig := cors.Config{
		AllowOrigins:     origins,
		AllowMethods:     []string{"GET", "POST", "PUT", "DELETE"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Authorization", "X-Device-Id", "User-Agent"},
		ExposeHeaders:    []string{"Content-Length"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}
	server.Use(cors.New(corsConfig))
	server.Use(ratelimit.TokenBucketPerIP())

	v1 := server.Group("/api")
	v1.Use(middlewares.UserAgentMiddleware())

	routerV1 := v1.Group("/v1")
	routerV1.Use(middlewares.UserAuthenticationMiddleware())
	{
		webRoutev1.BiometricRouter(routerV1)
	}

	server.GET("/ping", func(ctx *gin.Context) {
		server_response.Responder.Respond(ctx, http.StatusOK, "pong!", nil, nil, nil, nil)
	})

	server.NoRoute(func(ctx *gin.Context) {
		apperrors.NotFoundError(ctx, fmt.Sprintf("%s %s does not exist", ctx.Request.Method, ctx.Request.URL), nil)
	})

	gin_mode := os.Getenv("GIN_MODE")
	port := os.Getenv("PORT")
	if gin_mode == "debug" || gin_mode == "release" {
		logger.Info(fmt.Sprintf("Server starting on PORT %s", port))
		server.Run(fmt.Sprintf(":%s", port))
	} else {
		panic(fmt.Sprintf("invalid gin mode used - %s", gin_mode))
	}
}
