package config

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"
)

type Config struct {
	AppName  string
	Port     string
	DBPath   string
	Currency string
	AmqpURL  string
}

// Load reads .env when present and falls back to defaults for anything unset.
func Load() Config {
	if err := godotenv.Load(); err != nil {
		fmt.Println("no .env file, using environment")
	}

	return Config{
		AppName:  getenv("APP_NAME", "LODGEKEEP"),
		Port:     getenv("PORT", "3000"),
		DBPath:   getenv("DB_PATH", "./lodgekeep.db"),
		Currency: getenv("CURRENCY", "USD"),
		AmqpURL:  os.Getenv("AMQP_URL"),
	}
}

func getenv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
