package main

import (
	"context"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"github.com/rs/zerolog/log"

	"github.com/edudisplej/loopplan/internal/db"
	"github.com/edudisplej/loopplan/internal/draft"
	"github.com/edudisplej/loopplan/internal/model"
	"github.com/edudisplej/loopplan/internal/publish"
	"github.com/edudisplej/loopplan/internal/redis"
	"github.com/edudisplej/loopplan/internal/session"
)

func main() {
	if err := godotenv.Load(); err != nil {
		log.Debug().Msg("no .env file, using process environment")
	}
	env := LoadEnvironment()

	// initialize PostgreSQL
	if err := db.Init(env.DatabaseURL); err != nil {
		log.Fatal().Err(err).Msg("db init failed")
	}

	// run pending migrations
	if err := db.RunMigrations(env.MigrationsPath); err != nil {
		log.Fatal().Err(err).Msg("db migrate failed")
	}

	store := db.NewStore()

	// draft cache: redis when configured, in-process otherwise
	var cache draft.KeyValueCache = draft.NewMemoryCache()
	if env.RedisAddress != "" {
		redisCache := redis.NewCache(env.RedisAddress, env.RedisUsername, env.RedisPassword)
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		if err := redisCache.Ping(ctx); err != nil {
			log.Fatal().Err(err).Msg("redis ping failed")
		}
		cancel()
		cache = redisCache
	} else {
		log.Warn().Msg("REDIS_ADDRESS not set, drafts will not survive restarts")
	}

	// MQTT notifier is optional
	var notifier publish.Notifier
	if env.MQTTBrokerURL != "" {
		mqttNotifier, err := publish.NewMQTTNotifier(env.MQTTBrokerURL, env.MQTTClientID)
		if err != nil {
			log.Fatal().Err(err).Msg("mqtt connect failed")
		}
		defer mqttNotifier.Close()
		notifier = mqttNotifier
	}

	technical := model.TechnicalItem(0, "Unconfigured")
	sessions := session.NewManager(store, cache, notifier, technical)

	if env.Environment == "production" {
		gin.SetMode(gin.ReleaseMode)
	}
	r := gin.Default()
	RegisterRoutes(r, env, store, sessions, technical)

	log.Info().Str("address", env.ServerAddress).Msg("listening")
	if err := r.Run(env.ServerAddress); err != nil {
		log.Fatal().Err(err).Msg("server error")
	}
}
