// Package config loads and validates the run configuration from YAML.
package config

import (
	"os"
	"time"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"

	"github.com/helios-trade/helios/internal/strategy"
	"github.com/helios-trade/helios/internal/types"
	"github.com/helios-trade/helios/pkg/errors"
)

// Default configuration values.
const (
	DefaultMaxPositions    = 5
	DefaultRiskPerTrade    = 0.02
	DefaultCooldownSeconds = 60
	DefaultMaxRetries      = 3
	DefaultRetryBase       = 2.0
	DefaultCacheTTLSeconds = 300
	DefaultDataSource      = "alpaca"
)

// AlpacaConfig holds Alpaca credentials and environment selection. Empty
// credentials fall back to the ALPACA_KEY and ALPACA_SECRET environment
// variables at client construction.
type AlpacaConfig struct {
	APIKey    string `json:"api_key"    jsonschema:"description=Alpaca API key"    yaml:"api_key"`
	APISecret string `json:"api_secret" jsonschema:"description=Alpaca API secret" yaml:"api_secret"`
	Paper     bool   `json:"paper"      jsonschema:"description=Use the paper trading environment" yaml:"paper"`
}

// StrategyConfig selects and parameterizes one strategy instance.
type StrategyConfig struct {
	Type        string                     `json:"type"         jsonschema:"required,description=Strategy type,enum=ma_crossover" validate:"required,oneof=ma_crossover" yaml:"type"`
	MACrossover strategy.MACrossoverConfig `json:"ma_crossover" jsonschema:"description=Moving average crossover parameters"                                            yaml:"ma_crossover"`
}

// Config is the full run configuration.
type Config struct {
	Symbols         []string         `json:"symbols"           jsonschema:"required,description=Symbols to trade" validate:"required,min=1,dive,required" yaml:"symbols"`
	Strategies      []StrategyConfig `json:"strategies"        jsonschema:"required,description=Strategies to run" validate:"required,min=1,dive"         yaml:"strategies"`
	Alpaca          AlpacaConfig     `json:"alpaca"            jsonschema:"description=Alpaca credentials and environment"                                yaml:"alpaca"`
	DataSource      string           `json:"data_source"       jsonschema:"description=Bar source,enum=alpaca,enum=polygon,enum=binance" validate:"omitempty,oneof=alpaca polygon binance" yaml:"data_source"`
	PolygonAPIKey   string           `json:"polygon_api_key"   jsonschema:"description=Polygon API key (data_source=polygon)"                             yaml:"polygon_api_key"`
	MaxPositions    int              `json:"max_positions"     jsonschema:"description=Concurrent position cap" validate:"omitempty,gt=0"                 yaml:"max_positions"`
	RiskPerTrade    float64          `json:"risk_per_trade"    jsonschema:"description=Equity fraction risked per trade" validate:"omitempty,gt=0,lte=1"  yaml:"risk_per_trade"`
	Timeframe       types.Timeframe  `json:"timeframe"         jsonschema:"description=Default bar timeframe"                                             yaml:"timeframe"`
	MarketHoursOnly bool             `json:"market_hours_only" jsonschema:"description=Trade only while the market is open"                               yaml:"market_hours_only"`
	CooldownSeconds int              `json:"cooldown_seconds"  jsonschema:"description=Seconds between cycles" validate:"omitempty,gt=0"                  yaml:"cooldown_seconds"`
	MaxRetries      int              `json:"max_retries"       jsonschema:"description=API retry attempts" validate:"omitempty,gt=0"                      yaml:"max_retries"`
	RetryBase       float64          `json:"retry_base"        jsonschema:"description=Exponential backoff base in seconds" validate:"omitempty,gt=1"     yaml:"retry_base"`
	CacheTTLSeconds int              `json:"cache_ttl_seconds" jsonschema:"description=Bar cache TTL in seconds" validate:"omitempty,gt=0"                yaml:"cache_ttl_seconds"`
	JournalPath     string           `json:"journal_path"      jsonschema:"description=DuckDB journal path; empty disables journaling"                    yaml:"journal_path"`
	ServerAddr      string           `json:"server_addr"       jsonschema:"description=Status server listen address; empty disables the server"          yaml:"server_addr"`
}

// Load reads, defaults and validates a config file.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrapf(errors.ErrCodeInvalidConfiguration, err, "failed to read config %s", path)
	}

	return Parse(data)
}

// Parse parses YAML bytes into a validated Config.
func Parse(data []byte) (*Config, error) {
	var config Config
	if err := yaml.Unmarshal(data, &config); err != nil {
		return nil, errors.Wrap(errors.ErrCodeInvalidConfiguration, "failed to parse config", err)
	}

	config.applyDefaults()

	if err := config.Validate(); err != nil {
		return nil, err
	}

	return &config, nil
}

func (c *Config) applyDefaults() {
	if c.DataSource == "" {
		c.DataSource = DefaultDataSource
	}

	if c.MaxPositions == 0 {
		c.MaxPositions = DefaultMaxPositions
	}

	if c.RiskPerTrade == 0 {
		c.RiskPerTrade = DefaultRiskPerTrade
	}

	if c.Timeframe == "" {
		c.Timeframe = types.Timeframe1H
	}

	if c.CooldownSeconds == 0 {
		c.CooldownSeconds = DefaultCooldownSeconds
	}

	if c.MaxRetries == 0 {
		c.MaxRetries = DefaultMaxRetries
	}

	if c.RetryBase == 0 {
		c.RetryBase = DefaultRetryBase
	}

	if c.CacheTTLSeconds == 0 {
		c.CacheTTLSeconds = DefaultCacheTTLSeconds
	}
}

// Validate checks the configuration after defaults are applied.
func (c *Config) Validate() error {
	validate := validator.New()
	if err := validate.Struct(c); err != nil {
		return errors.Wrap(errors.ErrCodeInvalidConfiguration, "invalid config", err)
	}

	if !c.Timeframe.Valid() {
		return errors.Newf(errors.ErrCodeInvalidTimeframe, "unknown timeframe %q", c.Timeframe)
	}

	if c.DataSource == "polygon" && c.PolygonAPIKey == "" {
		return errors.New(errors.ErrCodeMissingParameter, "polygon data source requires polygon_api_key")
	}

	return nil
}

// Cooldown returns the cooldown as a duration.
func (c *Config) Cooldown() time.Duration {
	return time.Duration(c.CooldownSeconds) * time.Second
}

// CacheTTL returns the cache TTL as a duration.
func (c *Config) CacheTTL() time.Duration {
	return time.Duration(c.CacheTTLSeconds) * time.Second
}
