package config

import (
	"log"
	"os"
	"time"

	"github.com/joho/godotenv"
)

const defaultTransferTimeout = 5 * time.Second

type Config struct {
	Port            string
	StorageDriver   string
	DBUrl           string
	MongoURL        string
	MongoDB         string
	RedisAddr       string
	TransferTimeout time.Duration
}

func LoadConfig() Config {
	err := godotenv.Load()
	if err != nil {
		log.Println(".env file not found, using defaults")
	}

	port := os.Getenv("PORT")
	if port == "" {
		port = "8080"
	}

	driver := os.Getenv("STORAGE_DRIVER")
	if driver == "" {
		driver = "memory"
	}

	mongoDB := os.Getenv("MONGO_DB")
	if mongoDB == "" {
		mongoDB = "bankcore"
	}

	timeout := defaultTransferTimeout
	if raw := os.Getenv("TRANSFER_TIMEOUT"); raw != "" {
		if parsed, err := time.ParseDuration(raw); err == nil && parsed > 0 {
			timeout = parsed
		} else {
			log.Println("invalid TRANSFER_TIMEOUT, using default")
		}
	}

	return Config{
		Port:            port,
		StorageDriver:   driver,
		DBUrl:           os.Getenv("DB_URL"),
		MongoURL:        os.Getenv("MONGO_URL"),
		MongoDB:         mongoDB,
		RedisAddr:       os.Getenv("REDIS_ADDR"),
		TransferTimeout: timeout,
	}
}
