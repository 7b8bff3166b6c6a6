package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"
)

type Config struct {
	ServerPort  string   `env:"PORT" envDefault:"5000"`
	DatabaseURL string   `env:"DATABASE_URL,required"`
	JWTSecret   string   `env:"JWT_SECRET,required"`
	LogLevel    string   `env:"LOG_LEVEL" envDefault:"info"`
	LogFormat   string   `env:"LOG_FORMAT" envDefault:"text"`
	CORSOrigins []string `env:"CORS_ORIGINS" envSeparator:"," envDefault:"*"`

	// Per-IP request budget for the public API.
	RateLimitMax    int           `env:"RATE_LIMIT_MAX" envDefault:"100"`
	RateLimitWindow time.Duration `env:"RATE_LIMIT_WINDOW" envDefault:"15m"`

	IPOSyncEnabled  bool          `env:"IPO_SYNC_ENABLED" envDefault:"true"`
	IPOSyncInterval time.Duration `env:"IPO_SYNC_INTERVAL" envDefault:"24h"`
	IPOScrapeURL    string        `env:"IPO_SCRAPE_URL" envDefault:"https://www.chittorgarh.com/report/mainboard-ipo-list-in-india-bse-nse/83/"`

	FinnhubAPIKey      string `env:"FINNHUB_API_KEY"`
	AlphaVantageAPIKey string `env:"ALPHA_VANTAGE_API_KEY"`
	PolygonAPIKey      string `env:"POLYGON_API_KEY"`
	RapidAPIKey        string `env:"RAPIDAPI_KEY"`
	RapidAPIHost       string `env:"RAPIDAPI_HOST" envDefault:"latest-stock-price.p.rapidapi.com"`
}

// LoadConfig reads envFile (when present) into the process environment and
// parses the result. A missing .env file is not an error.
func LoadConfig(envFile string) (*Config, error) {
	if envFile == "" {
		envFile = ".env"
	}
	if err := godotenv.Load(envFile); err != nil {
		logrus.WithField("env_file", envFile).Warn("Error loading .env file, using system environment variables")
	}

	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("parse env: %w", err)
	}
	return cfg, nil
}

// ConfigureLogging applies the log level and format to the global logrus
// logger.
func (c *Config) ConfigureLogging() {
	level, err := logrus.ParseLevel(c.LogLevel)
	if err != nil {
		logrus.Warnf("Invalid LOG_LEVEL value: %s, using info", c.LogLevel)
		level = logrus.InfoLevel
	}
	logrus.SetLevel(level)

	if strings.EqualFold(c.LogFormat, "json") {
		logrus.SetFormatter(&logrus.JSONFormatter{})
	} else {
		logrus.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	}
}
