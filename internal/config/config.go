package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Chat room access policies.
const (
	ChatAccessOpen     = "open"
	ChatAccessAccepted = "accepted"
)

// Config holds all configuration for the application
type Config struct {
	Server    ServerConfig    `yaml:"server"`
	Database  DatabaseConfig  `yaml:"database"`
	Redis     RedisConfig     `yaml:"redis"`
	JWT       JWTConfig       `yaml:"jwt"`
	AWS       AWSConfig       `yaml:"aws"`
	APNS      APNSConfig      `yaml:"apns"`
	Geocoding GeocodingConfig `yaml:"geocoding"`
	Chat      ChatConfig      `yaml:"chat"`
	Matching  MatchingConfig  `yaml:"matching"`
	Retention RetentionConfig `yaml:"retention"`
	Log       LogConfig       `yaml:"log"`
}

// ServerConfig holds server configuration
type ServerConfig struct {
	Port int    `yaml:"port"`
	Host string `yaml:"host"`
}

// DatabaseConfig holds database configuration
type DatabaseConfig struct {
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	User     string `yaml:"user"`
	Password string `yaml:"password"`
	DBName   string `yaml:"dbname"`
	SSLMode  string `yaml:"sslmode"`
}

// RedisConfig holds the geocode-cache Redis configuration. An empty
// Addr disables the cache.
type RedisConfig struct {
	Addr     string `yaml:"addr"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db"`
}

// JWTConfig holds JWT configuration
type JWTConfig struct {
	Secret string `yaml:"secret"`
}

// AWSConfig holds S3 configuration for job attachments
type AWSConfig struct {
	Region   string `yaml:"region"`
	S3Bucket string `yaml:"s3_bucket"`
	Endpoint string `yaml:"endpoint"` // optional custom endpoint
}

// APNSConfig holds push-notification configuration. Push is disabled
// when CertPath is empty.
type APNSConfig struct {
	CertPath     string `yaml:"cert_path"`
	CertPassword string `yaml:"cert_password"`
	Topic        string `yaml:"topic"`
	Production   bool   `yaml:"production"`
}

// GeocodingConfig holds reverse-geocoding configuration
type GeocodingConfig struct {
	BaseURL         string `yaml:"base_url"`
	APIKey          string `yaml:"api_key"`
	TimeoutSeconds  int    `yaml:"timeout_seconds"`
	CacheTTLMinutes int    `yaml:"cache_ttl_minutes"`
}

// ChatConfig holds chat-room policy configuration
type ChatConfig struct {
	// Access is "open" (any authenticated user may join a job's chat)
	// or "accepted" (job owner and accepted applicant only).
	Access string `yaml:"access"`
}

// MatchingConfig holds applicant-matching configuration
type MatchingConfig struct {
	MaxDistanceKm float64 `yaml:"max_distance_km"`
}

// RetentionConfig holds the location-history sweeper configuration
type RetentionConfig struct {
	Cron       string `yaml:"cron"`
	MaxAgeDays int    `yaml:"max_age_days"`
}

// LogConfig holds logging configuration
type LogConfig struct {
	Level string `yaml:"level"`
}

// Load reads configuration from a YAML file
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	cfg.applyDefaults()
	return &cfg, nil
}

func (c *Config) applyDefaults() {
	if c.Geocoding.TimeoutSeconds <= 0 {
		c.Geocoding.TimeoutSeconds = 5
	}
	if c.Geocoding.CacheTTLMinutes <= 0 {
		c.Geocoding.CacheTTLMinutes = 24 * 60
	}
	if c.Chat.Access == "" {
		c.Chat.Access = ChatAccessOpen
	}
	if c.Matching.MaxDistanceKm <= 0 {
		c.Matching.MaxDistanceKm = 50
	}
	if c.Retention.Cron == "" {
		c.Retention.Cron = "0 3 * * *"
	}
	if c.Retention.MaxAgeDays <= 0 {
		c.Retention.MaxAgeDays = 30
	}
}

// DSN returns the PostgreSQL connection string
func (c *DatabaseConfig) DSN() string {
	return fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		c.Host, c.Port, c.User, c.Password, c.DBName, c.SSLMode)
}
