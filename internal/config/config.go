package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
	_ "time/tzdata"

	"gopkg.in/yaml.v2"
)

const (
	defaultAddress        = ":4001"
	defaultRateLimit      = 200
	defaultAccessTTL      = 20 * time.Hour
	defaultRefreshTTL     = 30 * 24 * time.Hour
	defaultTimeZone       = "Asia/Kolkata"
	defaultMinDuration    = 1
	defaultMaxDuration    = 8
	defaultCurrency       = "INR"
	defaultMapsTimeout    = 5 * time.Second
	defaultGeoCacheTTL    = 10 * time.Minute
	defaultSessionCheck   = "@every 2m"
	defaultExpirySweep    = "@every 15m"
	defaultStaleAfter     = 24 * time.Hour
	defaultConfigFilePath = "config/config.yaml"
)

type Config struct {
	Env    string `yaml:"env"`
	Server struct {
		Address        string   `yaml:"address"`
		AllowedOrigins []string `yaml:"allowed_origins"`
		RateLimit      int      `yaml:"rate_limit_per_minute"`
	} `yaml:"server"`
	Database struct {
		URL          string `yaml:"url"`
		MaxIdleConns int    `yaml:"max_idle_conns"`
		MaxOpenConns int    `yaml:"max_open_conns"`
	} `yaml:"database"`
	Redis struct {
		Addr     string `yaml:"addr"`
		Password string `yaml:"password"`
		DB       int    `yaml:"db"`
	} `yaml:"redis"`
	Auth struct {
		JWTSecret  string        `yaml:"jwt_secret"`
		AccessTTL  time.Duration `yaml:"access_ttl"`
		RefreshTTL time.Duration `yaml:"refresh_ttl"`
	} `yaml:"auth"`
	Booking struct {
		TimeZone    string        `yaml:"time_zone"`
		MinDuration int           `yaml:"min_duration_hours"`
		MaxDuration int           `yaml:"max_duration_hours"`
		StaleAfter  time.Duration `yaml:"stale_after"`
	} `yaml:"booking"`
	Payment struct {
		KeyID     string `yaml:"key_id"`
		KeySecret string `yaml:"key_secret"`
		BaseURL   string `yaml:"base_url"`
		Currency  string `yaml:"currency"`
	} `yaml:"payment"`
	Maps struct {
		APIKey   string        `yaml:"api_key"`
		BaseURL  string        `yaml:"base_url"`
		Timeout  time.Duration `yaml:"timeout"`
		CacheTTL time.Duration `yaml:"cache_ttl"`
	} `yaml:"maps"`
	Notify struct {
		FirebaseCredentials string `yaml:"firebase_credentials"`
		SendGridKey         string `yaml:"sendgrid_key"`
		SenderEmail         string `yaml:"sender_email"`
		SenderName          string `yaml:"sender_name"`
	} `yaml:"notify"`
	Storage struct {
		Bucket    string `yaml:"bucket"`
		Region    string `yaml:"region"`
		Endpoint  string `yaml:"endpoint"`
		AccessKey string `yaml:"access_key"`
		SecretKey string `yaml:"secret_key"`
		PublicURL string `yaml:"public_url"`
	} `yaml:"storage"`
	Jobs struct {
		SessionCheck string `yaml:"session_check"`
		ExpirySweep  string `yaml:"expiry_sweep"`
	} `yaml:"jobs"`
}

func defaults() Config {
	var cfg Config
	cfg.Env = "development"
	cfg.Server.Address = defaultAddress
	cfg.Server.AllowedOrigins = []string{"http://localhost:3000", "http://localhost:5173"}
	cfg.Server.RateLimit = defaultRateLimit
	cfg.Database.MaxIdleConns = 5
	cfg.Database.MaxOpenConns = 25
	cfg.Auth.AccessTTL = defaultAccessTTL
	cfg.Auth.RefreshTTL = defaultRefreshTTL
	cfg.Booking.TimeZone = defaultTimeZone
	cfg.Booking.MinDuration = defaultMinDuration
	cfg.Booking.MaxDuration = defaultMaxDuration
	cfg.Booking.StaleAfter = defaultStaleAfter
	cfg.Payment.Currency = defaultCurrency
	cfg.Maps.Timeout = defaultMapsTimeout
	cfg.Maps.CacheTTL = defaultGeoCacheTTL
	cfg.Notify.SenderName = "Local Services"
	cfg.Jobs.SessionCheck = defaultSessionCheck
	cfg.Jobs.ExpirySweep = defaultExpirySweep
	return cfg
}

// LoadConfig builds the configuration from defaults, an optional YAML file
// (CONFIG_PATH, or config/config.yaml when present) and environment variables.
func LoadConfig() (Config, error) {
	cfg := defaults()

	path := os.Getenv("CONFIG_PATH")
	explicit := path != ""
	if !explicit {
		path = defaultConfigFilePath
	}
	data, err := os.ReadFile(path)
	switch {
	case err == nil:
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return Config{}, fmt.Errorf("parse %s: %w", path, err)
		}
	case explicit || !errors.Is(err, os.ErrNotExist):
		return Config{}, fmt.Errorf("read %s: %w", path, err)
	}

	if err := applyEnv(&cfg); err != nil {
		return Config{}, err
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func applyEnv(cfg *Config) error {
	readStringEnv("APP_ENV", &cfg.Env)
	if port := os.Getenv("PORT"); port != "" {
		cfg.Server.Address = ":" + strings.TrimPrefix(port, ":")
	}
	if v := os.Getenv("ALLOWED_ORIGINS"); v != "" {
		cfg.Server.AllowedOrigins = splitList(v)
	}
	readStringEnv("DATABASE_URL", &cfg.Database.URL)
	readStringEnv("REDIS_ADDR", &cfg.Redis.Addr)
	readStringEnv("REDIS_PASSWORD", &cfg.Redis.Password)
	readStringEnv("JWT_SECRET", &cfg.Auth.JWTSecret)
	readStringEnv("BOOKING_TIME_ZONE", &cfg.Booking.TimeZone)
	readStringEnv("RAZORPAY_KEY_ID", &cfg.Payment.KeyID)
	readStringEnv("RAZORPAY_KEY_SECRET", &cfg.Payment.KeySecret)
	readStringEnv("RAZORPAY_BASE_URL", &cfg.Payment.BaseURL)
	readStringEnv("PAYMENT_CURRENCY", &cfg.Payment.Currency)
	readStringEnv("GOOGLE_MAPS_API_KEY", &cfg.Maps.APIKey)
	readStringEnv("GOOGLE_MAPS_BASE_URL", &cfg.Maps.BaseURL)
	readStringEnv("FIREBASE_CREDENTIALS", &cfg.Notify.FirebaseCredentials)
	readStringEnv("SENDGRID_API_KEY", &cfg.Notify.SendGridKey)
	readStringEnv("SENDER_EMAIL", &cfg.Notify.SenderEmail)
	readStringEnv("S3_BUCKET", &cfg.Storage.Bucket)
	readStringEnv("S3_REGION", &cfg.Storage.Region)
	readStringEnv("S3_ENDPOINT", &cfg.Storage.Endpoint)
	readStringEnv("S3_ACCESS_KEY", &cfg.Storage.AccessKey)
	readStringEnv("S3_SECRET_KEY", &cfg.Storage.SecretKey)
	readStringEnv("S3_PUBLIC_URL", &cfg.Storage.PublicURL)

	ints := []struct {
		name string
		dst  *int
	}{
		{"RATE_LIMIT_PER_MINUTE", &cfg.Server.RateLimit},
		{"DB_MAX_IDLE_CONNS", &cfg.Database.MaxIdleConns},
		{"DB_MAX_OPEN_CONNS", &cfg.Database.MaxOpenConns},
		{"REDIS_DB", &cfg.Redis.DB},
		{"BOOKING_MIN_HOURS", &cfg.Booking.MinDuration},
		{"BOOKING_MAX_HOURS", &cfg.Booking.MaxDuration},
	}
	for _, e := range ints {
		if v, err := readIntEnv(e.name); err != nil {
			return fmt.Errorf("parse %s: %w", e.name, err)
		} else if v != nil {
			*e.dst = *v
		}
	}

	durations := []struct {
		name string
		dst  *time.Duration
	}{
		{"ACCESS_TOKEN_TTL", &cfg.Auth.AccessTTL},
		{"REFRESH_TOKEN_TTL", &cfg.Auth.RefreshTTL},
		{"MAPS_TIMEOUT", &cfg.Maps.Timeout},
		{"GEO_CACHE_TTL", &cfg.Maps.CacheTTL},
		{"BOOKING_STALE_AFTER", &cfg.Booking.StaleAfter},
	}
	for _, e := range durations {
		if v := os.Getenv(e.name); v != "" {
			d, err := time.ParseDuration(v)
			if err != nil {
				return fmt.Errorf("parse %s: %w", e.name, err)
			}
			*e.dst = d
		}
	}
	return nil
}

// Validate rejects configurations the server cannot start with.
func (c Config) Validate() error {
	if c.Database.URL == "" {
		return errors.New("database url is required")
	}
	if c.Auth.JWTSecret == "" {
		return errors.New("jwt secret is required")
	}
	if c.Booking.MinDuration < 1 || c.Booking.MaxDuration < c.Booking.MinDuration {
		return fmt.Errorf("invalid booking duration bounds %d..%d", c.Booking.MinDuration, c.Booking.MaxDuration)
	}
	if _, err := time.LoadLocation(c.Booking.TimeZone); err != nil {
		return fmt.Errorf("invalid booking time zone %q: %w", c.Booking.TimeZone, err)
	}
	if c.Server.RateLimit <= 0 {
		return errors.New("rate limit must be positive")
	}
	return nil
}

// Location returns the marketplace time zone. Validate has already checked it.
func (c Config) Location() *time.Location {
	loc, err := time.LoadLocation(c.Booking.TimeZone)
	if err != nil {
		return time.UTC
	}
	return loc
}

func readStringEnv(name string, dst *string) {
	if v := strings.TrimSpace(os.Getenv(name)); v != "" {
		*dst = v
	}
}

func readIntEnv(name string) (*int, error) {
	value := os.Getenv(name)
	if value == "" {
		return nil, nil
	}
	v, err := strconv.Atoi(value)
	if err != nil {
		return nil, err
	}
	return &v, nil
}

func splitList(v string) []string {
	var out []string
	for _, part := range strings.Split(v, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}
