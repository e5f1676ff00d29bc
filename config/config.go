package config

import (
	"log"
	"time"

	"github.com/spf13/viper"
)

// Config holds all configuration values.
type Config struct {
	AppPort           string `mapstructure:"APP_PORT"`
	DatabaseURL       string `mapstructure:"DATABASE_URL"`
	DatabaseName      string `mapstructure:"DATABASE_NAME"`
	Env               string `mapstructure:"ENV"`
	JWTSecret         string `mapstructure:"JWT_SECRET"`
	LogLevel          string `mapstructure:"LOG_LEVEL"`
	MaxRequestsPerMin int    `mapstructure:"MAX_REQUESTS_PER_MIN"`

	// Redis configuration.
	RedisAddr     string `mapstructure:"REDIS_ADDR"`
	RedisPassword string `mapstructure:"REDIS_PASSWORD"`
	RedisCacheDB  int    `mapstructure:"REDIS_CACHE_DB"`
	RedisAuthDB   int    `mapstructure:"REDIS_AUTH_DB"`
	RedisQueueDB  int    `mapstructure:"REDIS_QUEUE_DB"`

	// Negotiation policy.
	NegotiationWindowHours    int     `mapstructure:"NEGOTIATION_WINDOW_HOURS"`
	NegotiationMaxProviders   int     `mapstructure:"NEGOTIATION_MAX_PROVIDERS"`
	NegotiationAcceptFraction float64 `mapstructure:"NEGOTIATION_ACCEPT_FRACTION"`
	NegotiationSearchRadiusKM float64 `mapstructure:"NEGOTIATION_SEARCH_RADIUS_KM"`

	// Messaging transports.
	TelegramBotToken     string `mapstructure:"TELEGRAM_BOT_TOKEN"`
	TelegramWebhookToken string `mapstructure:"TELEGRAM_WEBHOOK_TOKEN"`
	TwilioAccountSID     string `mapstructure:"TWILIO_ACCOUNT_SID"`
	TwilioAuthToken      string `mapstructure:"TWILIO_AUTH_TOKEN"`
	TwilioWhatsAppFrom   string `mapstructure:"TWILIO_WHATSAPP_FROM"`

	// Intelligence and push.
	GeminiAPIKey      string `mapstructure:"GEMINI_API_KEY"`
	FirebaseCredsFile string `mapstructure:"FIREBASE_CREDS_FILE"`
}

var AppConfig Config

func LoadConfig() {
	// Look for a config file named "config.yaml" in the current and "config" directory.
	viper.SetConfigName("config")
	viper.SetConfigType("yaml")
	viper.AddConfigPath(".")
	viper.AddConfigPath("./config")
	// Automatically use environment variables where available.
	viper.AutomaticEnv()

	// Set default values.
	viper.SetDefault("APP_PORT", "8080")
	viper.SetDefault("ENV", "development")
	viper.SetDefault("LOG_LEVEL", "info")
	viper.SetDefault("MAX_REQUESTS_PER_MIN", 100)
	viper.SetDefault("REDIS_ADDR", "localhost:6379")
	viper.SetDefault("REDIS_PASSWORD", "")
	viper.SetDefault("REDIS_CACHE_DB", 0)
	viper.SetDefault("REDIS_AUTH_DB", 1)
	viper.SetDefault("REDIS_QUEUE_DB", 2)
	viper.SetDefault("DATABASE_URL", "mongodb://localhost:27017")
	viper.SetDefault("DATABASE_NAME", "molbhav")
	viper.SetDefault("NEGOTIATION_WINDOW_HOURS", 24)
	viper.SetDefault("NEGOTIATION_MAX_PROVIDERS", 10)
	viper.SetDefault("NEGOTIATION_ACCEPT_FRACTION", 0.70)
	viper.SetDefault("NEGOTIATION_SEARCH_RADIUS_KM", 5.0)
	viper.SetDefault("TELEGRAM_BOT_TOKEN", "")
	viper.SetDefault("TELEGRAM_WEBHOOK_TOKEN", "")
	viper.SetDefault("TWILIO_ACCOUNT_SID", "")
	viper.SetDefault("TWILIO_AUTH_TOKEN", "")
	viper.SetDefault("TWILIO_WHATSAPP_FROM", "")
	viper.SetDefault("GEMINI_API_KEY", "")
	viper.SetDefault("FIREBASE_CREDS_FILE", "")

	if err := viper.ReadInConfig(); err != nil {
		log.Println("No config file found, using environment variables only")
	}

	if err := viper.Unmarshal(&AppConfig); err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}
}

func GetEnv() string {
	return AppConfig.Env
}

func IsProduction() bool {
	return GetEnv() == "production"
}

// NegotiationWindow returns the per-request negotiation lifetime.
func NegotiationWindow() time.Duration {
	hours := AppConfig.NegotiationWindowHours
	if hours <= 0 {
		hours = 24
	}
	return time.Duration(hours) * time.Hour
}
