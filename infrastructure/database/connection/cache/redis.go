package cache

import (
	"context"
	"os"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
	"veridoc.mx/infrastructure/logger"
)

type RedisClient struct {
	Client *redis.Client
}

var (
	instance *RedisClient
	once     sync.Once
)

func GetInstance() (*RedisClient, error) {
	var connErr error
	once.Do(func() {
		client := redis.NewClient(&redis.Options{
			Addr:     os.Getenv("REDIS_ADDR"),
			Password: os.Getenv("REDIS_PASSWORD"),
		})
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := client.Ping(ctx).Err(); err != nil {
			logger.Warning("could not ping redis", logger.LoggerOptions{
				Key:  "error",
				Data: err,
			})
			connErr = err
		}
		instance = &RedisClient{Client: client}
		logger.Info("connected to redis successfully")
	})
	return instance, connErr
}
