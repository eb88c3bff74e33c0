package main

import (
	"net/http"

	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"

	"murmur/configs"
	"murmur/server"
)

var (
	logger = logrus.New()
)

// Main function to start the relay
func main() {
	godotenv.Load()

	var (
		bundles  server.BundleStore
		messages server.MessageStore
	)
	if configs.RedisAddress != "" {
		store := server.NewRedisStore(
			redis.NewClient(&redis.Options{Addr: configs.RedisAddress}),
			configs.InitialMessageTTL,
		)
		bundles, messages = store, store
		logger.Infof("Using redis stores at %s", configs.RedisAddress)
	} else {
		store := server.NewMemoryStore(configs.InitialMessageTTL)
		bundles, messages = store, store
		logger.Info("Using in-memory stores")
	}

	s := server.NewServer(bundles, messages, logger)

	logger.Infof("Relay running on http://%s", configs.ServerAddress)
	if err := http.ListenAndServe(configs.ServerAddress, s.Router()); err != nil {
		logger.Fatalf("Error starting server: %v", err)
	}
}
