package config

import (
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config holds all configuration for the sync daemon.
// It follows the 12-factor app methodology by prioritizing environment variables.
type Config struct {
	Server Server
	Remote Remote
	Sync   Sync
	Upload Upload
	Redis  Redis
	S3     S3
}

type Server struct {
	Port        string
	Environment string
	// Secret used to verify session tokens issued by the auth service.
	SessionSecret string
}

// Remote describes the upstream chat service endpoints.
type Remote struct {
	APIBaseURL     string
	WebsocketURL   string
	RequestTimeout time.Duration
}

// Sync carries the timer windows driving the typing, scroll and tombstone
// state machines. All values are overridable; defaults match the product
// behavior the presentation layer was built against.
type Sync struct {
	TypingDebounce     time.Duration // local is-typing idle window (D1)
	TypingExpiry       time.Duration // peer typing expiry with no refresh (D2)
	ScrollPause        time.Duration // auto-follow suppression after a scroll
	TombstoneRetention time.Duration // deleted-ID retention for late broadcasts
}

// Upload is the attachment acceptance policy. Validation is metadata-only:
// extension allow-list plus byte size, never content sniffing.
type Upload struct {
	MaxSizeBytes    int64
	ImageExtensions []string
	VideoExtensions []string
}

type Redis struct {
	Addr     string
	Password string
	DB       int
	// Zero disables the history cache entirely.
	HistoryTTL  time.Duration
	LastSeenTTL time.Duration
}

type S3 struct {
	Region     string
	Bucket     string
	AccessKey  string
	SecretKey  string
	Endpoint   string
	PublicBase string
}

const defaultMaxUploadMB = 300

// LoadConfig loads configuration from environment variables.
func LoadConfig() (*Config, error) {
	// Load .env file if it exists
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using environment variables")
	}

	return &Config{
		Server: Server{
			Port:          getEnv("SERVER_PORT", "8090"),
			Environment:   getEnv("APP_ENV", "development"),
			SessionSecret: getEnv("SESSION_SECRET", ""),
		},
		Remote: Remote{
			APIBaseURL:     getEnv("REMOTE_API_URL", "http://localhost:8080"),
			WebsocketURL:   getEnv("REMOTE_WS_URL", "ws://localhost:8080/ws"),
			RequestTimeout: getEnvAsDuration("REQUEST_TIMEOUT", 10*time.Second),
		},
		Sync: Sync{
			TypingDebounce:     getEnvAsDuration("TYPING_DEBOUNCE", 1500*time.Millisecond),
			TypingExpiry:       getEnvAsDuration("TYPING_EXPIRY", 1500*time.Millisecond),
			ScrollPause:        getEnvAsDuration("SCROLL_PAUSE", 500*time.Millisecond),
			TombstoneRetention: getEnvAsDuration("TOMBSTONE_RETENTION", 5*time.Minute),
		},
		Upload: Upload{
			MaxSizeBytes:    int64(getEnvAsInt("UPLOAD_MAX_MB", defaultMaxUploadMB)) * 1024 * 1024,
			ImageExtensions: getEnvAsList("UPLOAD_IMAGE_EXTENSIONS", []string{"jpg", "jpeg", "png", "gif", "webp", "bmp"}),
			VideoExtensions: getEnvAsList("UPLOAD_VIDEO_EXTENSIONS", []string{"mp4", "webm", "mov", "avi", "mkv"}),
		},
		Redis: Redis{
			Addr:        getEnv("REDIS_ADDR", ""),
			Password:    getEnv("REDIS_PASSWORD", ""),
			DB:          getEnvAsInt("REDIS_DB", 0),
			HistoryTTL:  getEnvAsDuration("CACHE_HISTORY_TTL", 24*time.Hour),
			LastSeenTTL: getEnvAsDuration("CACHE_LASTSEEN_TTL", 7*24*time.Hour),
		},
		S3: S3{
			Region:     getEnv("S3_REGION", ""),
			Bucket:     getEnv("S3_BUCKET", ""),
			AccessKey:  getEnv("S3_ACCESS_KEY", ""),
			SecretKey:  getEnv("S3_SECRET_KEY", ""),
			Endpoint:   getEnv("S3_ENDPOINT", ""),
			PublicBase: getEnv("S3_PUBLIC_BASE", ""),
		},
	}, nil
}

func getEnv(key, fallback string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return fallback
}

func getEnvAsInt(key string, fallback int) int {
	strValue := getEnv(key, "")
	if value, err := strconv.Atoi(strValue); err == nil {
		return value
	}
	return fallback
}

func getEnvAsDuration(key string, fallback time.Duration) time.Duration {
	strValue := getEnv(key, "")
	if value, err := time.ParseDuration(strValue); err == nil {
		return value
	}
	return fallback
}

func getEnvAsList(key string, fallback []string) []string {
	strValue := getEnv(key, "")
	if strValue == "" {
		return fallback
	}
	parts := strings.Split(strValue, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if trimmed := strings.TrimSpace(p); trimmed != "" {
			out = append(out, strings.ToLower(trimmed))
		}
	}
	if len(out) == 0 {
		return fallback
	}
	return out
}
