package config

import (
	"fmt"
	"log"
	"os"

	"github.com/joho/godotenv"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

// Config is read from the environment, .env included when present.
type Config struct {
	Addr string

	DBDriver string // "sqlite" | "postgres"
	DBPath   string // sqlite file

	AWSRegion string
	SNSFCMArn string
}

func Load() Config {
	if err := godotenv.Load(); err != nil {
		log.Println("no .env file, using environment")
	}

	cfg := Config{
		Addr:      getenv("ADDR", ":8080"),
		DBDriver:  getenv("DB_DRIVER", "sqlite"),
		DBPath:    getenv("DB_PATH", "chowtrack.db"),
		AWSRegion: getenv("AWS_REGION", "ap-south-1"),
		SNSFCMArn: os.Getenv("SNS_FCM_ARN"),
	}
	return cfg
}

func getenv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

// OpenDB connects per DB_DRIVER. Postgres reuses the usual DB_* variables,
// sqlite only needs a file path.
func OpenDB(cfg Config) (*gorm.DB, error) {
	switch cfg.DBDriver {
	case "postgres":
		dsn := fmt.Sprintf("host=%s user=%s password=%s dbname=%s port=%s sslmode=disable",
			os.Getenv("DB_HOST"),
			os.Getenv("DB_USER"),
			os.Getenv("DB_PASSWORD"),
			os.Getenv("DB_NAME"),
			os.Getenv("DB_PORT"),
		)
		return gorm.Open(postgres.Open(dsn), &gorm.Config{})
	default:
		return gorm.Open(sqlite.Open(cfg.DBPath), &gorm.Config{})
	}
}
