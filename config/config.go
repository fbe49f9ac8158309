package config

import (
	"log"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Config stores the application configuration.
type Config struct {
	ListenAddr string

	FFmpegPath       string
	AudioBitrate     string // e.g., "192k"
	TranscodeTimeout time.Duration
	UploadDir        string // Base directory for all uploads
	AudioUploadDir   string // Subdirectory for audio files: UploadDir/audio
	MaxUploadSize    int64  // Maximum accepted upload size in bytes

	DBHost     string
	DBPort     string
	DBUser     string
	DBPassword string
	DBName     string

	RedisHost     string
	RedisPort     string
	RedisPassword string
	RedisDB       int

	JWTSecret string

	// MinIO mirror for transcoded audio. Disabled when MinioEndpoint is empty.
	MinioEndpoint  string
	MinioAccessKey string
	MinioSecretKey string
	MinioBucket    string
	MinioUseSSL    bool

	// Operator alerting on pipeline failures.
	SMTPHost   string
	SMTPPort   string
	SMTPUser   string
	SMTPPass   string
	MailFrom   string
	AdminEmail string

	LogLevel string
	LogPath  string
}

// getEnv gets an environment variable or returns a default value.
func getEnv(key, fallback string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return fallback
}

// getEnvInt gets an environment variable as int or returns a default value.
func getEnvInt(key string, fallback int) int {
	if value, exists := os.LookupEnv(key); exists {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return fallback
}

// getEnvBool gets an environment variable as bool or returns a default value.
func getEnvBool(key string, fallback bool) bool {
	if value, exists := os.LookupEnv(key); exists {
		if boolVal, err := strconv.ParseBool(value); err == nil {
			return boolVal
		}
	}
	return fallback
}

// getEnvDuration gets an environment variable as a duration or returns a default value.
func getEnvDuration(key string, fallback time.Duration) time.Duration {
	if value, exists := os.LookupEnv(key); exists {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return fallback
}

// Load loads configuration from environment variables (via .env file) or defaults.
func Load() *Config {
	// Attempt to load .env file. godotenv.Load() will not override existing env vars.
	err := godotenv.Load()
	if err != nil {
		log.Println("No .env file found or error loading .env, relying on existing environment variables and defaults.")
	}

	uploadBase := getEnv("UPLOAD_DIR", "uploads")

	return &Config{
		ListenAddr: getEnv("LISTEN_ADDR", ":8080"),

		FFmpegPath:       getEnv("FFMPEG_PATH", "ffmpeg"),
		AudioBitrate:     getEnv("AUDIO_BITRATE", "192k"),
		TranscodeTimeout: getEnvDuration("TRANSCODE_TIMEOUT", 10*time.Minute),
		UploadDir:        uploadBase,
		AudioUploadDir:   filepath.Join(uploadBase, "audio"),
		MaxUploadSize:    int64(getEnvInt("MAX_UPLOAD_MB", 500)) << 20,

		DBHost:     getEnv("DB_HOST", "127.0.0.1"),
		DBPort:     getEnv("DB_PORT", "3306"),
		DBUser:     getEnv("DB_USER", "root"),
		DBPassword: os.Getenv("DB_PASSWORD"), // For password, better not to have a hardcoded default
		DBName:     getEnv("DB_NAME", "audiopub"),

		RedisHost:     getEnv("REDIS_HOST", "127.0.0.1"),
		RedisPort:     getEnv("REDIS_PORT", "6379"),
		RedisPassword: getEnv("REDIS_PASSWORD", ""),
		RedisDB:       getEnvInt("REDIS_DB", 0),

		JWTSecret: getEnv("JWT_SECRET", "audiopub-dev-secret"),

		MinioEndpoint:  os.Getenv("MINIO_ENDPOINT"),
		MinioAccessKey: os.Getenv("MINIO_ACCESS_KEY"),
		MinioSecretKey: os.Getenv("MINIO_SECRET_KEY"),
		MinioBucket:    getEnv("MINIO_BUCKET", "audiopub"),
		MinioUseSSL:    getEnvBool("MINIO_USE_SSL", false),

		SMTPHost:   getEnv("SMTP_HOST", "127.0.0.1"),
		SMTPPort:   getEnv("SMTP_PORT", "25"),
		SMTPUser:   os.Getenv("SMTP_USER"),
		SMTPPass:   os.Getenv("SMTP_PASS"),
		MailFrom:   getEnv("MAIL_FROM", "audiopub@localhost"),
		AdminEmail: getEnv("ADMIN_EMAIL", ""),

		LogLevel: getEnv("LOG_LEVEL", "info"),
		LogPath:  getEnv("LOG_PATH", ""),
	}
}
