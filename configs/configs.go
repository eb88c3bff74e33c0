package configs

import (
	"os"
	"time"
)

var (
	HKDFInfo = []byte("murmur-session")

	ServerAddress = envOr("SERVER_ADDRESS", "localhost:8080")
	// RedisAddress selects the redis-backed relay stores when non-empty.
	RedisAddress = os.Getenv("REDIS_ADDR")

	KeysPath      = "/keys"
	MessagesPath  = "/messages"
	WebSocketPath = "/ws"

	// InitialMessageTTL bounds both queued initial messages and the wait for
	// the second peer on the live bridge.
	InitialMessageTTL = 60 * time.Second

	// OneTimePrekeyCount is how many one-time prekeys each bundle publication mints.
	OneTimePrekeyCount = 10
)

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
