package config

import (
	"fmt"
	"log"
	"os"

	"github.com/jkor2/lifeof/models"

	"github.com/joho/godotenv"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

var DB *gorm.DB

func InitDB() {
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, relying on process environment")
	}

	dsn := fmt.Sprintf("host=%s user=%s password=%s dbname=%s port=%s sslmode=disable",
		os.Getenv("DB_HOST"),
		os.Getenv("DB_USER"),
		os.Getenv("DB_PASSWORD"),
		os.Getenv("DB_NAME"),
		os.Getenv("DB_PORT"),
	)

	var err error
	DB, err = gorm.Open(postgres.Open(dsn), &gorm.Config{})
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}

	err = DB.AutoMigrate(
		&models.DailyEntry{},
		&models.EntryAttribute{},
		&models.EntryNote{},
		&models.AttributeDefinition{},
		&models.WhoopToken{},
		&models.WhoopRecovery{},
		&models.WhoopSleep{},
		&models.WhoopWorkout{},
	)
	if err != nil {
		log.Fatalf("AutoMigrate failed: %v", err)
	}
}
