package config

import (
	"log"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

type Config struct {
	DBDriver      string `yaml:"dbDriver"`
	DBDSN         string `yaml:"dbDsn"`
	ServerPort    string `yaml:"serverPort"`
	SessionSecret string `yaml:"sessionSecret"`
	JWTSecret     string `yaml:"jwtSecret"`
	LogLevel      string `yaml:"logLevel"`

	AccessTokenTTL time.Duration `yaml:"accessTokenTTL"`

	BlobRoot    string `yaml:"blobRoot"`
	BlobBaseURL string `yaml:"blobBaseURL"`

	// AllowReviewEditAfterCompletion lets reviewers change their rating
	// once both tracks have evaluated a group.
	AllowReviewEditAfterCompletion bool          `yaml:"allowReviewEditAfterCompletion"`
	ExtensionWindow                time.Duration `yaml:"extensionWindow"`

	AdminUsername string `yaml:"adminUsername"`
	AdminPassword string `yaml:"adminPassword"`
}

func Load() *Config {
	_ = godotenv.Load()

	cfg := &Config{
		DBDriver:      getEnv("DB_DRIVER", "postgres"),
		DBDSN:         os.Getenv("DB_DSN"),
		ServerPort:    os.Getenv("SERVER_PORT"),
		SessionSecret: os.Getenv("SESSION_SECRET"),
		JWTSecret:     os.Getenv("JWT_SECRET"),
		LogLevel:      getEnv("LOG_LEVEL", "info"),

		AccessTokenTTL: getDuration("ACCESS_TOKEN_TTL", 12*time.Hour),

		BlobRoot:    getEnv("BLOB_ROOT", "./data/blobs"),
		BlobBaseURL: getEnv("BLOB_BASE_URL", "/files"),

		AllowReviewEditAfterCompletion: getBool("ALLOW_REVIEW_EDIT_AFTER_COMPLETION", false),
		ExtensionWindow:                getDuration("EXTENSION_WINDOW", 7*24*time.Hour),

		AdminUsername: getEnv("ADMIN_USERNAME", "admin@fyp.local"),
		AdminPassword: getEnv("ADMIN_PASSWORD", "Admin123!"),
	}

	if path := os.Getenv("CONFIG_FILE"); path != "" {
		if err := readConfig(path, cfg); err != nil {
			log.Fatalf("failed to read config file %s: %v", path, err)
		}
	}

	if cfg.DBDSN == "" {
		log.Fatal("DB_DSN is not set")
	}
	if cfg.ServerPort == "" {
		cfg.ServerPort = "8080"
	}
	if cfg.SessionSecret == "" {
		log.Fatal("SESSION_SECRET is not set")
	}
	if cfg.JWTSecret == "" {
		cfg.JWTSecret = cfg.SessionSecret
	}

	return cfg
}

// readConfig overlays the YAML file onto cfg; keys missing from the file
// keep their env values.
func readConfig(filePath string, cfg *Config) error {
	data, err := os.ReadFile(filePath)
	if err != nil {
		return err
	}
	return yaml.Unmarshal(data, cfg)
}

func getEnv(key, fallback string) string {
	if value, ok := os.LookupEnv(key); ok && value != "" {
		return value
	}
	return fallback
}

func getDuration(key string, fallback time.Duration) time.Duration {
	if value, ok := os.LookupEnv(key); ok {
		parsed, err := time.ParseDuration(value)
		if err == nil {
			return parsed
		}
	}
	return fallback
}

func getBool(key string, fallback bool) bool {
	if value, ok := os.LookupEnv(key); ok {
		parsed, err := strconv.ParseBool(value)
		if err == nil {
			return parsed
		}
	}
	return fallback
}
