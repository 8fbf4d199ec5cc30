package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// ErrMissingCredentials is returned when base URL or client credentials are absent.
var ErrMissingCredentials = errors.New("missing Authenta credentials")

type Config struct {
	BaseURL      string
	ClientID     string
	ClientSecret string

	PollInterval time.Duration
	Timeout      time.Duration // Maksymalny czas oczekiwania na przetworzenie
	HTTPTimeout  time.Duration

	OutputDirectory string
	LogDirectory    string
	DatabasePath    string

	ProgressPort  int // 0 = serwer postępu wyłączony
	ProgressToken string
}

// configFile mirrors the optional YAML file (authenta.yaml).
type configFile struct {
	API struct {
		BaseURL      string `yaml:"base_url"`
		ClientID     string `yaml:"client_id"`
		ClientSecret string `yaml:"client_secret"`
	} `yaml:"api"`
	Polling struct {
		IntervalSeconds int `yaml:"interval_seconds"`
		TimeoutSeconds  int `yaml:"timeout_seconds"`
	} `yaml:"polling"`
	Paths struct {
		Output   string `yaml:"output"`
		Logs     string `yaml:"logs"`
		Database string `yaml:"database"`
	} `yaml:"paths"`
	Progress struct {
		Port  int    `yaml:"port"`
		Token string `yaml:"token"`
	} `yaml:"progress"`
}

// Load resolves configuration in order: defaults -> YAML file -> .env -> environment.
func Load() (*Config, error) {
	cfg := &Config{
		PollInterval:    5 * time.Second,
		Timeout:         5 * time.Minute,
		HTTPTimeout:     60 * time.Second,
		OutputDirectory: filepath.Join(".", "output"),
		LogDirectory:    filepath.Join(".", "logs"),
		DatabasePath:    filepath.Join(".", "data", "authenta.db"),
	}

	path := getEnv("AUTHENTA_CONFIG", "authenta.yaml")
	if err := cfg.applyFile(path); err != nil {
		return nil, err
	}

	// .env nie nadpisuje zmiennych już ustawionych w środowisku
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("failed to load .env: %w", err)
	}

	cfg.applyEnv()
	return cfg, nil
}

func (c *Config) applyFile(path string) error {
	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("failed to read config file %s: %w", path, err)
	}

	var file configFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return fmt.Errorf("failed to parse config file %s: %w", path, err)
	}

	setString(&c.BaseURL, file.API.BaseURL)
	setString(&c.ClientID, file.API.ClientID)
	setString(&c.ClientSecret, file.API.ClientSecret)
	setSeconds(&c.PollInterval, file.Polling.IntervalSeconds)
	setSeconds(&c.Timeout, file.Polling.TimeoutSeconds)
	setString(&c.OutputDirectory, file.Paths.Output)
	setString(&c.LogDirectory, file.Paths.Logs)
	setString(&c.DatabasePath, file.Paths.Database)
	if file.Progress.Port > 0 {
		c.ProgressPort = file.Progress.Port
	}
	setString(&c.ProgressToken, file.Progress.Token)
	return nil
}

func (c *Config) applyEnv() {
	c.BaseURL = getEnv("AUTHENTA_BASE_URL", c.BaseURL)
	c.ClientID = getEnv("AUTHENTA_CLIENT_ID", c.ClientID)
	c.ClientSecret = getEnv("AUTHENTA_CLIENT_SECRET", c.ClientSecret)
	c.PollInterval = getEnvAsSeconds("POLL_INTERVAL", c.PollInterval)
	c.Timeout = getEnvAsSeconds("PROCESS_TIMEOUT", c.Timeout)
	c.HTTPTimeout = getEnvAsSeconds("HTTP_TIMEOUT", c.HTTPTimeout)
	c.OutputDirectory = getEnv("OUTPUT_DIR", c.OutputDirectory)
	c.LogDirectory = getEnv("LOG_DIR", c.LogDirectory)
	c.DatabasePath = getEnv("DB_PATH", c.DatabasePath)
	c.ProgressPort = getEnvAsInt("PROGRESS_PORT", c.ProgressPort)
	c.ProgressToken = getEnv("PROGRESS_TOKEN", c.ProgressToken)
}

// Validate reports every missing credential field at once.
func (c *Config) Validate() error {
	var missing []string
	if c.BaseURL == "" {
		missing = append(missing, "AUTHENTA_BASE_URL")
	}
	if c.ClientID == "" {
		missing = append(missing, "AUTHENTA_CLIENT_ID")
	}
	if c.ClientSecret == "" {
		missing = append(missing, "AUTHENTA_CLIENT_SECRET")
	}
	if len(missing) > 0 {
		return fmt.Errorf("%w: %s", ErrMissingCredentials, strings.Join(missing, ", "))
	}
	return nil
}

func setString(dst *string, value string) {
	if value != "" {
		*dst = value
	}
}

func setSeconds(dst *time.Duration, seconds int) {
	if seconds > 0 {
		*dst = time.Duration(seconds) * time.Second
	}
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func getEnvAsSeconds(key string, defaultValue time.Duration) time.Duration {
	if seconds := getEnvAsInt(key, 0); seconds > 0 {
		return time.Duration(seconds) * time.Second
	}
	return defaultValue
}
