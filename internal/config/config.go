package config

import (
	"fmt"
	"os"
	"strconv"
	"time"
)

type Config struct {
	// Discord webhooks
	NewsWebhookURL string // article digests
	IPWebhookURL   string // blocklist alerts

	// Mistral settings
	MistralAPIKey   string
	MistralEndpoint string
	MistralModel    string

	// Gemini settings (summarizer fallback)
	GeminiAPIKey string

	// AI budget per run (0 = unlimited)
	MaxMistralRequests int
	MaxGeminiRequests  int
	MaxAIRequests      int

	// News watch settings
	SitesConfigPath    string
	ProcessedFile      string
	MaxArticlesPerRun  int
	MinContentLength   int
	DuplicateThreshold int
	ShuffleSources     bool
	DeliveryPause      time.Duration

	// Blocklist settings
	BlocklistURL string
	SeenIPsFile  string

	// Geolocation settings
	GeoAPIURL string
	GeoAPIKey string
	DataDir   string

	// App settings
	Debug          bool
	LogFile        string
	RequestTimeout time.Duration
	RetryAttempts  int
	RetryDelay     time.Duration
}

// Load builds the configuration from the environment with defaults. Required
// keys are checked per job via the Validate* methods, since each binary needs
// a different subset.
func Load() *Config {
	cfg := &Config{
		// Default values
		MistralEndpoint:    "https://api.mistral.ai/v1",
		MistralModel:       "mistral-large-latest",
		MaxMistralRequests: 5,
		MaxGeminiRequests:  3,
		MaxAIRequests:      8,
		SitesConfigPath:    "configs/sites.yaml",
		ProcessedFile:      "processed_articles.txt",
		MaxArticlesPerRun:  3,
		MinContentLength:   200,
		DuplicateThreshold: 3,
		DeliveryPause:      time.Second,
		SeenIPsFile:        "logs/seen_ips.log",
		GeoAPIURL:          "https://ipgeolocation.abstractapi.com/v1/",
		DataDir:            "data",
		LogFile:            "App.log",
		RequestTimeout:     30 * time.Second,
		RetryAttempts:      3,
		RetryDelay:         time.Second,
	}

	cfg.NewsWebhookURL = os.Getenv("DISCORD_WEBHOOK_URL")
	cfg.IPWebhookURL = os.Getenv("WEBHOOK_URL_IP")
	cfg.MistralAPIKey = os.Getenv("MISTRAL_API_KEY")
	cfg.GeminiAPIKey = os.Getenv("GEMINI_API_KEY")
	cfg.BlocklistURL = os.Getenv("BLOCKLIST_URL")
	cfg.GeoAPIKey = os.Getenv("ABSTRACT_API_KEY")

	if v := os.Getenv("MISTRAL_API_ENDPOINT"); v != "" {
		cfg.MistralEndpoint = v
	}
	if v := os.Getenv("MISTRAL_MODEL"); v != "" {
		cfg.MistralModel = v
	}
	if v := os.Getenv("GEO_API_URL"); v != "" {
		cfg.GeoAPIURL = v
	}

	cfg.SitesConfigPath = getEnvOrDefault("SITES_CONFIG_PATH", cfg.SitesConfigPath)
	cfg.ProcessedFile = getEnvOrDefault("PROCESSED_FILE", cfg.ProcessedFile)
	cfg.SeenIPsFile = getEnvOrDefault("SEEN_IPS_FILE", cfg.SeenIPsFile)
	cfg.DataDir = getEnvOrDefault("DATA_DIR", cfg.DataDir)
	cfg.LogFile = getEnvOrDefault("LOG_FILE", cfg.LogFile)

	cfg.MaxArticlesPerRun = getEnvIntOrDefault("MAX_ARTICLES_PER_RUN", cfg.MaxArticlesPerRun)
	cfg.MinContentLength = getEnvIntOrDefault("MIN_CONTENT_LENGTH", cfg.MinContentLength)
	cfg.DuplicateThreshold = getEnvIntOrDefault("DUPLICATE_THRESHOLD", cfg.DuplicateThreshold)
	cfg.MaxMistralRequests = getEnvIntOrDefault("MAX_MISTRAL_REQUESTS", cfg.MaxMistralRequests)
	cfg.MaxGeminiRequests = getEnvIntOrDefault("MAX_GEMINI_REQUESTS", cfg.MaxGeminiRequests)
	cfg.MaxAIRequests = getEnvIntOrDefault("MAX_AI_REQUESTS", cfg.MaxAIRequests)
	cfg.RetryAttempts = getEnvIntOrDefault("RETRY_ATTEMPTS", cfg.RetryAttempts)

	if v := os.Getenv("REQUEST_TIMEOUT_SECONDS"); v != "" {
		if val, err := strconv.Atoi(v); err == nil && val > 0 {
			cfg.RequestTimeout = time.Duration(val) * time.Second
		}
	}
	if v := os.Getenv("DELIVERY_PAUSE_MS"); v != "" {
		if val, err := strconv.Atoi(v); err == nil && val >= 0 {
			cfg.DeliveryPause = time.Duration(val) * time.Millisecond
		}
	}

	if os.Getenv("SHUFFLE_SOURCES") == "true" {
		cfg.ShuffleSources = true
	}
	if os.Getenv("DEBUG") == "true" {
		cfg.Debug = true
	}

	return cfg
}

func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvIntOrDefault(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

// ValidateVeille checks the keys the news watch job cannot run without.
func (c *Config) ValidateVeille() error {
	if c.NewsWebhookURL == "" {
		return fmt.Errorf("DISCORD_WEBHOOK_URL is required")
	}
	if c.MistralAPIKey == "" {
		return fmt.Errorf("MISTRAL_API_KEY is required")
	}
	return nil
}

// ValidateBadIP checks the keys the blocklist diff job cannot run without.
func (c *Config) ValidateBadIP() error {
	if c.BlocklistURL == "" {
		return fmt.Errorf("BLOCKLIST_URL is required")
	}
	if c.IPWebhookURL == "" {
		return fmt.Errorf("WEBHOOK_URL_IP is required")
	}
	return nil
}

// ValidateMapBadIP checks the keys the geolocation batch cannot run without.
func (c *Config) ValidateMapBadIP() error {
	if c.BlocklistURL == "" {
		return fmt.Errorf("BLOCKLIST_URL is required")
	}
	if c.GeoAPIKey == "" {
		return fmt.Errorf("ABSTRACT_API_KEY is required")
	}
	if c.MistralAPIKey == "" {
		return fmt.Errorf("MISTRAL_API_KEY is required")
	}
	return nil
}
