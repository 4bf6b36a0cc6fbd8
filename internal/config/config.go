package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"civleAPI/internal/daykey"
	"civleAPI/internal/logger"
)

// Config is built once at startup and handed to every component.
type Config struct {
	Port          string `yaml:"port" validate:"required,numeric"`
	StorageDir    string `yaml:"storageDir" validate:"required"`
	ChallengesDir string `yaml:"challengesDir" validate:"required"`
	BlocklistPath string `yaml:"blocklistPath"`

	AccessKey     string `yaml:"accessKey"`
	AccessKeyFile string `yaml:"accessKeyFile"`

	Timezone        string        `yaml:"timezone" validate:"required"`
	MaxEntries      int           `yaml:"maxEntries" validate:"gt=0,lte=1000"`
	LeaderboardSize int           `yaml:"leaderboardSize" validate:"gt=0,ltefield=MaxEntries"`
	SweepInterval   time.Duration `yaml:"sweepInterval" validate:"gt=0"`
	MaxBodyBytes    int64         `yaml:"maxBodyBytes" validate:"gt=0"`

	AllowedOrigins []string `yaml:"allowedOrigins" validate:"required,min=1"`
	RateLimit      float64  `yaml:"rateLimit" validate:"gt=0"`
	RateBurst      int      `yaml:"rateBurst" validate:"gt=0"`

	MetricsUser string `yaml:"metricsUser"`
	MetricsPass string `yaml:"metricsPass"`
	PprofSecret string `yaml:"pprofSecret"`

	Debug bool `yaml:"debug"`
}

func Default() *Config {
	return &Config{
		Port:            "8000",
		StorageDir:      "./storage",
		ChallengesDir:   "./day_challenges",
		BlocklistPath:   "./data/bad-words.txt",
		AccessKeyFile:   "endpoint_key.txt",
		Timezone:        daykey.DefaultTimezone,
		MaxEntries:      100,
		LeaderboardSize: 20,
		SweepInterval:   24 * time.Hour,
		MaxBodyBytes:    10 << 20,
		AllowedOrigins:  []string{"*"},
		RateLimit:       5,
		RateBurst:       30,
	}
}

func (c *Config) ScoresDir() string {
	return filepath.Join(c.StorageDir, "scores")
}

func (c *Config) ScreenshotsDir() string {
	return filepath.Join(c.StorageDir, "screenshots")
}

// Load resolves configuration from defaults, an optional YAML file, the
// environment (after .env) and the access key file, then validates it.
func Load(path string) (*Config, error) {
	if os.Getenv("APP_ENV") != "production" {
		if err := godotenv.Load(); err != nil {
			logger.Debug("No .env file loaded: %v", err)
		}
	}

	cfg := Default()

	if path == "" {
		path = os.Getenv("CONFIG_FILE")
	}
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read config file %s: %w", path, err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse config file %s: %w", path, err)
		}
	}

	if err := applyEnv(cfg); err != nil {
		return nil, err
	}

	if cfg.AccessKey == "" && cfg.AccessKeyFile != "" {
		key, err := os.ReadFile(cfg.AccessKeyFile)
		switch {
		case err == nil:
			cfg.AccessKey = strings.TrimSpace(string(key))
		case errors.Is(err, os.ErrNotExist):
			logger.Warn("Access key file %s not found; admin endpoints will reject every request", cfg.AccessKeyFile)
		default:
			return nil, fmt.Errorf("read access key file %s: %w", cfg.AccessKeyFile, err)
		}
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) Validate() error {
	validate := validator.New()
	err := validate.Struct(c)
	if err == nil {
		return nil
	}

	var invalid *validator.InvalidValidationError
	if errors.As(err, &invalid) {
		return fmt.Errorf("config validator: %w", err)
	}

	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return err
	}
	messages := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		messages = append(messages, fmt.Sprintf("field '%s' failed '%s' (value: '%v')", fe.Namespace(), fe.Tag(), fe.Value()))
	}
	return fmt.Errorf("invalid config:\n- %s", strings.Join(messages, "\n- "))
}

func applyEnv(cfg *Config) error {
	setString := func(key string, dst *string) {
		if v := os.Getenv(key); v != "" {
			*dst = v
		}
	}
	setString("PORT", &cfg.Port)
	setString("STORAGE_DIR", &cfg.StorageDir)
	setString("CHALLENGES_DIR", &cfg.ChallengesDir)
	setString("BLOCKLIST_PATH", &cfg.BlocklistPath)
	setString("ACCESS_KEY", &cfg.AccessKey)
	setString("ACCESS_KEY_FILE", &cfg.AccessKeyFile)
	setString("TIMEZONE", &cfg.Timezone)
	setString("METRICS_USER", &cfg.MetricsUser)
	setString("METRICS_PASS", &cfg.MetricsPass)
	setString("PPROF_SECRET", &cfg.PprofSecret)

	if v := os.Getenv("ALLOWED_ORIGINS"); v != "" {
		var origins []string
		for _, o := range strings.Split(v, ",") {
			if o = strings.TrimSpace(o); o != "" {
				origins = append(origins, o)
			}
		}
		cfg.AllowedOrigins = origins
	}

	ints := map[string]*int{
		"MAX_ENTRIES":      &cfg.MaxEntries,
		"LEADERBOARD_SIZE": &cfg.LeaderboardSize,
		"RATE_BURST":       &cfg.RateBurst,
	}
	for key, dst := range ints {
		if v := os.Getenv(key); v != "" {
			n, err := strconv.Atoi(v)
			if err != nil {
				return fmt.Errorf("%s: %w", key, err)
			}
			*dst = n
		}
	}

	if v := os.Getenv("MAX_BODY_BYTES"); v != "" {
		n, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			return fmt.Errorf("MAX_BODY_BYTES: %w", err)
		}
		cfg.MaxBodyBytes = n
	}
	if v := os.Getenv("RATE_LIMIT"); v != "" {
		f, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return fmt.Errorf("RATE_LIMIT: %w", err)
		}
		cfg.RateLimit = f
	}
	if v := os.Getenv("SWEEP_INTERVAL"); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("SWEEP_INTERVAL: %w", err)
		}
		cfg.SweepInterval = d
	}
	if v := os.Getenv("DEBUG"); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return fmt.Errorf("DEBUG: %w", err)
		}
		cfg.Debug = b
	}
	return nil
}
