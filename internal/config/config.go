package config

import (
	"os"
	"strconv"

	"github.com/joho/godotenv"
)

// Config is the relay's environment-driven configuration. An
// optional .env file is loaded first; real environment variables win.
type Config struct {
	Addr     string
	Port     int
	MongoURI string // empty keeps rooms purely in-memory
	MongoDB  string
}

func Load() Config {
	// missing .env is fine
	_ = godotenv.Load()

	return Config{
		Addr:     getenv("BOARDSYNC_ADDR", "127.0.0.1"),
		Port:     getenvInt("BOARDSYNC_PORT", 8080),
		MongoURI: getenv("BOARDSYNC_MONGO_URI", ""),
		MongoDB:  getenv("BOARDSYNC_MONGO_DB", "boardsync"),
	}
}

func getenv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func getenvInt(key string, def int) int {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return def
	}
	return n
}
