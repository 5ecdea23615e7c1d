package config

import (
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config stores the application configuration.
// Every backing service is optional; an empty host/endpoint disables it.
type Config struct {
	HTTPAddr string
	LogLevel string
	LogFile  string

	// Sanity 内容存储
	SanityProjectID  string
	SanityDataset    string
	SanityAPIVersion string
	SanityToken      string
	SanityUseCDN     bool

	CatalogFile     string        // Local JSON catalog, used when no CMS project is configured
	CatalogCacheTTL time.Duration // TTL of the redis catalog cache

	DBDriver   string // mysql, sqlite or none
	DBHost     string
	DBPort     string
	DBUser     string
	DBPassword string
	DBName     string
	SQLitePath string

	// Redis配置
	RedisHost     string
	RedisPort     string
	RedisPassword string
	RedisDB       int

	// MinIO配置
	MinioEndpoint  string
	MinioAccessKey string
	MinioSecretKey string
	MinioBucket    string
	MinioUseSSL    bool
	MinioRegion    string

	// 播放器 / 可视化
	AudioBackend      string // speaker or headless
	AudioSampleRate   int
	AnalyserFFTSize   int
	VisualizerSamples int
	VisualizerMode    string // frequency or waveform
	FrameRate         int
	BroadcastRate     int
	AccentOverrides   map[string]string
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

func getEnvBool(key string, fallback bool) bool {
	if value, exists := os.LookupEnv(key); exists {
		if b, err := strconv.ParseBool(value); err == nil {
			return b
		}
	}
	return fallback
}

func getEnvDuration(key string, fallback time.Duration) time.Duration {
	if value, exists := os.LookupEnv(key); exists {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return fallback
}

// parseOverrides parses "keyword=#hex,keyword2=#hex" into a map.
func parseOverrides(raw string) map[string]string {
	out := make(map[string]string)
	for _, pair := range strings.Split(raw, ",") {
		k, v, ok := strings.Cut(strings.TrimSpace(pair), "=")
		if !ok {
			continue
		}
		k = strings.ToLower(strings.TrimSpace(k))
		v = strings.TrimSpace(v)
		if k == "" || v == "" {
			continue
		}
		out[k] = v
	}
	return out
}

// DefaultAccentOverrides is the built-in title keyword → accent color table.
func DefaultAccentOverrides() map[string]string {
	return map[string]string{
		"zehir":     "#87e8a8",
		"hatalarım": "#ccad73",
		"hatalarim": "#ccad73",
	}
}

// Load loads configuration from environment variables (via .env file) or defaults.
func Load() *Config {
	// godotenv.Load() will not override existing env vars.
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found or error loading .env, relying on existing environment variables and defaults.")
	}

	overrides := DefaultAccentOverrides()
	for k, v := range parseOverrides(getEnv("ACCENT_OVERRIDES", "")) {
		overrides[k] = v
	}

	return &Config{
		HTTPAddr: getEnv("HTTP_ADDR", ":8080"),
		LogLevel: getEnv("LOG_LEVEL", "info"),
		LogFile:  getEnv("LOG_FILE", ""),

		SanityProjectID:  getEnv("SANITY_PROJECT_ID", ""),
		SanityDataset:    getEnv("SANITY_DATASET", "production"),
		SanityAPIVersion: getEnv("SANITY_API_VERSION", "2024-01-01"),
		SanityToken:      os.Getenv("SANITY_TOKEN"),
		SanityUseCDN:     getEnvBool("SANITY_USE_CDN", true),

		CatalogFile:     getEnv("CATALOG_FILE", ""),
		CatalogCacheTTL: getEnvDuration("CATALOG_CACHE_TTL", 5*time.Minute),

		DBDriver:   getEnv("DB_DRIVER", "none"),
		DBHost:     getEnv("DB_HOST", "127.0.0.1"),
		DBPort:     getEnv("DB_PORT", "3306"),
		DBUser:     getEnv("DB_USER", "root"),
		DBPassword: os.Getenv("DB_PASSWORD"), // no hardcoded default for secrets
		DBName:     getEnv("DB_NAME", "voidfm"),
		SQLitePath: getEnv("SQLITE_PATH", "voidfm.db"),

		RedisHost:     getEnv("REDIS_HOST", ""),
		RedisPort:     getEnv("REDIS_PORT", "6379"),
		RedisPassword: getEnv("REDIS_PASSWORD", ""),
		RedisDB:       getEnvInt("REDIS_DB", 0),

		MinioEndpoint:  getEnv("MINIO_ENDPOINT", ""),
		MinioAccessKey: getEnv("MINIO_ACCESS_KEY", ""),
		MinioSecretKey: os.Getenv("MINIO_SECRET_KEY"),
		MinioBucket:    getEnv("MINIO_BUCKET", "voidfm"),
		MinioUseSSL:    getEnvBool("MINIO_USE_SSL", false),
		MinioRegion:    getEnv("MINIO_REGION", ""),

		AudioBackend:      getEnv("AUDIO_BACKEND", "speaker"),
		AudioSampleRate:   getEnvInt("AUDIO_SAMPLE_RATE", 44100),
		AnalyserFFTSize:   getEnvInt("ANALYSER_FFT_SIZE", 256),
		VisualizerSamples: getEnvInt("VISUALIZER_SAMPLES", 48),
		VisualizerMode:    getEnv("VISUALIZER_MODE", "frequency"),
		FrameRate:         getEnvInt("FRAME_RATE", 60),
		BroadcastRate:     getEnvInt("BROADCAST_RATE", 30),
		AccentOverrides:   overrides,
	}
}
