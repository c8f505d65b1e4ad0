package config

import (
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Config holds all configuration for the application.
type Config struct {
	Logger    Logger    `mapstructure:"logger"`
	Server    Server    `mapstructure:"server"`
	Database  Database  `mapstructure:"database"`
	Functions Functions `mapstructure:"functions"`
	Journal   Journal   `mapstructure:"journal"`
	Tracing   Tracing   `mapstructure:"tracing"`
}

// Server holds the configuration for the web server.
type Server struct {
	Port      int    `mapstructure:"port"`
	StaticDir string `mapstructure:"static_dir"`
}

// Database holds the configuration for the database.
type Database struct {
	DSN string `mapstructure:"dsn"`
}

// Functions holds the configuration for the remote analysis and payment functions.
type Functions struct {
	BaseURL        string        `mapstructure:"base_url"`
	APIKey         string        `mapstructure:"api_key"`
	RateLimit      float64       `mapstructure:"rate_limit"`
	RateLimitBurst int           `mapstructure:"rate_limit_burst"`
	Timeout        time.Duration `mapstructure:"timeout"`
}

// Journal holds the configuration for journal behaviour.
type Journal struct {
	DailyTradeLimit    bool          `mapstructure:"daily_trade_limit"`
	RefreshInterval    time.Duration `mapstructure:"refresh_interval"`
	AnalysisBatchSize  int           `mapstructure:"analysis_batch_size"`
	AnalysisCreditCost int           `mapstructure:"analysis_credit_cost"`
	DefaultUser        string        `mapstructure:"default_user"`
}

// Tracing toggles the OpenTelemetry stdout exporter.
type Tracing struct {
	Enabled bool `mapstructure:"enabled"`
}

// Logger holds the configuration for the logger.
type Logger struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
	File   string `mapstructure:"file"`
}

// LoadConfig reads configuration from file or environment variables.
// A .env file in the working directory is loaded first when present.
func LoadConfig(path string) (config Config, err error) {
	_ = godotenv.Load()

	v := viper.New()
	v.AddConfigPath(path)
	v.SetConfigName("config") // name of config file (without extension)
	v.SetConfigType("yml")

	// Allow environment variables to override config file
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	setDefaults(v)

	err = v.ReadInConfig()
	if err != nil {
		return
	}

	err = v.Unmarshal(&config)
	return
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("logger.level", "info")
	v.SetDefault("logger.format", "console")
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.static_dir", "./web/static")
	v.SetDefault("database.dsn", "journal.db")
	v.SetDefault("functions.rate_limit", 5) // requests per second
	v.SetDefault("functions.rate_limit_burst", 2)
	v.SetDefault("functions.timeout", 30*time.Second)
	v.SetDefault("journal.daily_trade_limit", true)
	v.SetDefault("journal.refresh_interval", time.Hour)
	v.SetDefault("journal.analysis_batch_size", 20)
	v.SetDefault("journal.analysis_credit_cost", 1)
	v.SetDefault("journal.default_user", "local")
	v.SetDefault("tracing.enabled", false)
}
