package config

import (
	"log"
	"os"
	"strconv"

	"github.com/joho/godotenv"
)

type Config struct {
	DBHost     string
	DBPort     string
	DBUser     string
	DBPassword string
	DBName     string
	JWTSecret  string
	ServerPort string

	// Spreadsheet uploads
	MaxUploadMB int

	// Email delivery. When SendgridKey is empty, mails go to the console.
	SendgridKey string
	FromName    string
	FromEmail   string

	// Azure OpenAI (question validation jobs)
	AzureEndpoint   string
	AzureKey        string
	AzureDeployment string
	AzureAPIVersion string
}

func LoadConfig() (*Config, error) {
	err := godotenv.Load()
	if err != nil {
		log.Println("Error loading .env file, using environment variables")
	}

	return &Config{
		DBHost:     getEnv("DB_HOST", "localhost"),
		DBPort:     getEnv("DB_PORT", "5432"),
		DBUser:     getEnv("DB_USER", "postgres"),
		DBPassword: getEnv("DB_PASSWORD", "postgres"),
		DBName:     getEnv("DB_NAME", "carabin"),
		JWTSecret:  getEnv("JWT_SECRET", "secret"),
		ServerPort: getEnv("SERVER_PORT", "8080"),

		MaxUploadMB: getEnvInt("MAX_UPLOAD_MB", 10),

		SendgridKey: getEnv("SENDGRID_API_KEY", ""),
		FromName:    getEnv("MAIL_FROM_NAME", "Carabin"),
		FromEmail:   getEnv("MAIL_FROM_EMAIL", "no-reply@carabin.app"),

		AzureEndpoint:   getEnv("AZURE_OPENAI_ENDPOINT", ""),
		AzureKey:        getEnv("AZURE_OPENAI_KEY", ""),
		AzureDeployment: getEnv("AZURE_OPENAI_DEPLOYMENT", "gpt-4o-mini"),
		AzureAPIVersion: getEnv("AZURE_OPENAI_API_VERSION", "2024-02-15-preview"),
	}, nil
}

func getEnv(key, defaultValue string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value, exists := os.LookupEnv(key); exists {
		if n, err := strconv.Atoi(value); err == nil {
			return n
		}
	}
	return defaultValue
}
