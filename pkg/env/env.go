package env

import (
	"os"
	"strconv"

	"log/slog"

	"github.com/joho/godotenv"
)

func init() {
	// .env (default)
	godotenv.Load()

	// .env.local # local user specific (git ignored)
	godotenv.Overload(".env.local")
}

func Must(key string) string {
	res := os.Getenv(key)
	if len(res) == 0 {
		slog.Error("env var must be set", "key", key)
		os.Exit(1)
	}
	return res
}

func Get(key string, def string) string {
	s := os.Getenv(key)
	if len(s) == 0 {
		return def // return default
	}
	return s
}

func GetBool(key string) bool {
	b, _ := strconv.ParseBool(os.Getenv(key))
	return b
}

func GetInt(key string, def int) int {
	i, err := strconv.Atoi(os.Getenv(key))
	if err != nil {
		return def
	}
	return i
}
