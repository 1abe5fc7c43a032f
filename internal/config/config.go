package config

import (
	_ "embed"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

//go:embed defaults.yaml
var defaultsYAML []byte

type Config struct {
	Recognition RecognitionConfig `yaml:"recognition"`
	Database    DatabaseConfig    `yaml:"database"`
	Camera      CameraConfig      `yaml:"camera"`
	Web         WebConfig         `yaml:"web"`
	Cache       CacheConfig       `yaml:"cache"`
	Log         LogConfig         `yaml:"log"`
}

// RecognitionConfig points at the face-recognition service that performs
// enrollment and check-in/check-out matching.
type RecognitionConfig struct {
	URL     string        `yaml:"url"`
	Timeout time.Duration `yaml:"timeout"`
}

type DatabaseConfig struct {
	Driver       string `yaml:"driver"` // mysql or postgres
	URL          string `yaml:"url"`    // DSN (mysql) or connection URL (postgres)
	MaxOpenConns int    `yaml:"max_open_conns"`
	MaxIdleConns int    `yaml:"max_idle_conns"`
}

// CameraConfig selects the capture device. SnapshotURL takes precedence over Dir.
type CameraConfig struct {
	SnapshotURL string `yaml:"snapshot_url"`
	Dir         string `yaml:"dir"`
	Width       int    `yaml:"width"`
	Height      int    `yaml:"height"`
	JPEGQuality int    `yaml:"jpeg_quality"`
}

type WebConfig struct {
	Host           string   `yaml:"host"`
	Port           int      `yaml:"port"`
	AllowedOrigins []string `yaml:"allowed_origins"`
	RateLimit      float64  `yaml:"rate_limit"` // kiosk submissions per second
	RateBurst      int      `yaml:"rate_burst"`
}

type CacheConfig struct {
	RedisURL string        `yaml:"redis_url"` // empty keeps the stats cache in memory
	StatsTTL time.Duration `yaml:"stats_ttl"`
}

type LogConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"` // console or json
}

// envInt reads an environment variable and parses it as a positive integer.
// Returns the default value if the env var is unset, empty, or invalid.
func envInt(key string, defaultVal int) int {
	s := os.Getenv(key)
	if s == "" {
		return defaultVal
	}
	if n, err := strconv.Atoi(s); err == nil && n > 0 {
		return n
	}
	return defaultVal
}

func envFloat(key string, defaultVal float64) float64 {
	s := os.Getenv(key)
	if s == "" {
		return defaultVal
	}
	if f, err := strconv.ParseFloat(s, 64); err == nil && f > 0 {
		return f
	}
	return defaultVal
}

func envDuration(key string, defaultVal time.Duration) time.Duration {
	s := os.Getenv(key)
	if s == "" {
		return defaultVal
	}
	if d, err := time.ParseDuration(s); err == nil && d > 0 {
		return d
	}
	return defaultVal
}

func envString(key, defaultVal string) string {
	if s := os.Getenv(key); s != "" {
		return s
	}
	return defaultVal
}

func envList(key string, defaultVal []string) []string {
	s := os.Getenv(key)
	if s == "" {
		return defaultVal
	}
	var out []string
	for item := range strings.SplitSeq(s, ",") {
		if item = strings.TrimSpace(item); item != "" {
			out = append(out, item)
		}
	}
	return out
}

// Defaults returns the configuration embedded in the binary.
func Defaults() Config {
	var cfg Config
	if err := yaml.Unmarshal(defaultsYAML, &cfg); err != nil {
		// This is an embedded file so this error should never happen in practice
		panic("failed to unmarshal embedded defaults.yaml: " + err.Error())
	}
	return cfg
}

func Load() *Config {
	d := Defaults()

	return &Config{
		Recognition: RecognitionConfig{
			URL:     strings.TrimSuffix(envString("RECOGNITION_URL", d.Recognition.URL), "/"),
			Timeout: envDuration("RECOGNITION_TIMEOUT", d.Recognition.Timeout),
		},
		Database: DatabaseConfig{
			Driver:       strings.ToLower(envString("DATABASE_DRIVER", d.Database.Driver)),
			URL:          os.Getenv("DATABASE_URL"),
			MaxOpenConns: envInt("DATABASE_MAX_OPEN_CONNS", d.Database.MaxOpenConns),
			MaxIdleConns: envInt("DATABASE_MAX_IDLE_CONNS", d.Database.MaxIdleConns),
		},
		Camera: CameraConfig{
			SnapshotURL: os.Getenv("CAMERA_SNAPSHOT_URL"),
			Dir:         os.Getenv("CAMERA_DIR"),
			Width:       envInt("CAMERA_WIDTH", d.Camera.Width),
			Height:      envInt("CAMERA_HEIGHT", d.Camera.Height),
			JPEGQuality: envInt("CAMERA_JPEG_QUALITY", d.Camera.JPEGQuality),
		},
		Web: WebConfig{
			Host:           envString("WEB_HOST", d.Web.Host),
			Port:           envInt("WEB_PORT", d.Web.Port),
			AllowedOrigins: envList("WEB_ALLOWED_ORIGINS", d.Web.AllowedOrigins),
			RateLimit:      envFloat("WEB_RATE_LIMIT", d.Web.RateLimit),
			RateBurst:      envInt("WEB_RATE_BURST", d.Web.RateBurst),
		},
		Cache: CacheConfig{
			RedisURL: os.Getenv("REDIS_URL"),
			StatsTTL: envDuration("STATS_CACHE_TTL", d.Cache.StatsTTL),
		},
		Log: LogConfig{
			Level:  envString("LOG_LEVEL", d.Log.Level),
			Format: envString("LOG_FORMAT", d.Log.Format),
		},
	}
}
