package config

import (
	"log"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"
)

type Config struct {
	Bitfinex BitfinexConfig `mapstructure:"bitfinex"`
	Log      LogConfig      `mapstructure:"log"`
	Postgres PostgresConfig `mapstructure:"postgres"`
}

type BitfinexConfig struct {
	WS       WSConfig       `mapstructure:"ws"`
	Dispatch DispatchConfig `mapstructure:"dispatch"`

	// Quota is the per-connection subscription ceiling enforced locally
	// before any subscribe command goes out.
	Quota int `mapstructure:"quota"`

	// Pairs to subscribe at startup, e.g. ["BTCUSD", "ETHUSD"].
	Pairs []string `mapstructure:"pairs"`

	// CandleTimeframe for the candle subscriptions, e.g. "1m".
	CandleTimeframe string `mapstructure:"candle_timeframe"`

	Environment string `mapstructure:"environment"` // "dev" or "prod"
}

type WSConfig struct {
	URL     string        `mapstructure:"url"`
	Timeout time.Duration `mapstructure:"timeout"`
}

// DispatchConfig sizes the shared callback worker pool.
type DispatchConfig struct {
	Workers   int `mapstructure:"workers"`
	QueueSize int `mapstructure:"queue_size"`
}

// Options defines the logger configuration options.
type LogConfig struct {
	Level       string `mapstructure:"level"`       // log level: "debug", "info", "warn", "error"
	Format      string `mapstructure:"format"`      // log format: "json" or "console"
	OutputFile  string `mapstructure:"output_file"` // file path to store logs (optional)
	Environment string `mapstructure:"environment"` // environment: "dev" or "prod"
}

// Load loads application configuration using Viper.
// It reads from config.yaml and overrides with environment variables.
func Load() *Config {
	v := viper.New()

	v.SetConfigName("config") // config.yaml
	v.SetConfigType("yaml")

	// TODO: env path
	ex, _ := os.Executable()
	if strings.Contains(ex, "go-build") {
		pwd, _ := os.Getwd()
		v.AddConfigPath(filepath.Join(pwd, "../../config"))
	} else {
		v.AddConfigPath(filepath.Join(filepath.Dir(ex), "../config"))
	}

	v.SetDefault("bitfinex.quota", 50)
	v.SetDefault("bitfinex.candle_timeframe", "1m")
	v.SetDefault("bitfinex.dispatch.workers", 4)
	v.SetDefault("bitfinex.dispatch.queue_size", 256)

	// Support environment variables with dot notation (e.g., BITFINEX_WS_URL)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		log.Fatalf("failed to read config: %v", err)
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		log.Fatalf("failed to unmarshal config: %v", err)
	}

	return &cfg
}
