package config

import (
	"fmt"
	"log"
	"os"

	"github.com/joho/godotenv"
	_ "github.com/lib/pq"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"

	"github.com/medstore/api/internal/models"
)

type Config struct {
	DB_HOST          string
	DB_PORT          string
	DB_USER          string
	DB_PASSWORD      string
	DB_NAME          string
	ES_URL           string
	ES_USER          string
	ES_PASSWORD      string
	JWT_SECRET       string
	REFRESH_SECRET   string
	KAFKA_ADDRESS    string
	CLOUDINARY_URL   string
	GATEWAY_URL      string
	GATEWAY_KEY_ID   string
	GATEWAY_SECRET   string
	NOTIFY_URL       string
	NOTIFY_API_KEY   string
	NOTIFY_FROM      string
	LOG_LEVEL        string
}

func LoadConfig() (*Config, error) {
	if err := godotenv.Load(".env"); err != nil {
		log.Printf("Notice: .env file not found: %v. Using system environment variables", err)
	}

	config := &Config{
		DB_HOST:        os.Getenv("DB_HOST"),
		DB_PORT:        os.Getenv("DB_PORT"),
		DB_USER:        os.Getenv("DB_USER"),
		DB_PASSWORD:    os.Getenv("DB_PASSWORD"),
		DB_NAME:        os.Getenv("DB_NAME"),
		ES_URL:         os.Getenv("ES_URL"),
		ES_USER:        os.Getenv("ES_USER"),
		ES_PASSWORD:    os.Getenv("ES_PASSWORD"),
		JWT_SECRET:     os.Getenv("JWT_SECRET"),
		REFRESH_SECRET: os.Getenv("REFRESH_SECRET"),
		KAFKA_ADDRESS:  os.Getenv("KAFKA_ADDRESS"),
		CLOUDINARY_URL: os.Getenv("CLOUDINARY_URL"),
		GATEWAY_URL:    os.Getenv("GATEWAY_URL"),
		GATEWAY_KEY_ID: os.Getenv("GATEWAY_KEY_ID"),
		GATEWAY_SECRET: os.Getenv("GATEWAY_SECRET"),
		NOTIFY_URL:     os.Getenv("NOTIFY_URL"),
		NOTIFY_API_KEY: os.Getenv("NOTIFY_API_KEY"),
		NOTIFY_FROM:    os.Getenv("NOTIFY_FROM"),
		LOG_LEVEL:      os.Getenv("LOG_LEVEL"),
	}

	return config, nil
}

func InitDB() (*gorm.DB, error) {
	configuration, _ := LoadConfig()

	dsn := fmt.Sprintf(
		"postgres://%s:%s@%s:%s/%s?sslmode=disable",
		configuration.DB_USER,
		configuration.DB_PASSWORD,
		configuration.DB_HOST,
		configuration.DB_PORT,
		configuration.DB_NAME,
	)
	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}
	if err := Migrate(db); err != nil {
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}
	return db, nil
}

func Migrate(db *gorm.DB) error {
	return db.AutoMigrate(
		&models.Product{},
		&models.User{},
		&models.RefreshToken{},
		&models.CartItem{},
		&models.Order{},
		&models.OrderItem{},
		&models.Prescription{},
	)
}
