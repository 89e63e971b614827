package config

import (
	"fmt"
	"log"
	"strings"

	"github.com/spf13/viper"
)

// Config is the root configuration object assembled by Load. Every
// sub-config mirrors a concern of the ingestion engine; there is no
// mutable package-level state once Load returns.
type Config struct {
	Server      ServerConfig
	Database    DatabaseConfig
	Redis       RedisConfig
	Logging     LoggingConfig
	Auth        AuthConfig
	AI          AIConfig
	ExchangeFX  ExchangeFXConfig
	Run         RunConfig
	Concurrency ConcurrencyConfig
	RateLimit   RateLimitConfig
}

type ServerConfig struct {
	Port string
	Host string
}

type DatabaseConfig struct {
	URL  string
	Host string
	Port int
	User string
	Pass string
	Name string
}

type RedisConfig struct {
	Addr     string
	Password string
	DB       int
}

type LoggingConfig struct {
	Level  string
	Format string
}

type AuthConfig struct {
	JWTSecret     string
	JWTExpiration string
}

// AIConfig configures the C10 AI Categorizer's genai-backed port.
type AIConfig struct {
	APIKey      string
	Model       string
	Temperature float64
	BatchSize   int
	ContextSize int
}

// ExchangeFXConfig configures the C4 Currency Converter's HTTP rate port.
type ExchangeFXConfig struct {
	BaseURL        string
	APIKey         string
	TargetCurrency string
}

// RunConfig carries the C8/C9/C12 tunables spec.md section 6 names explicitly.
type RunConfig struct {
	HistoryLookbackDays  int
	FuzzyMatchThreshold  float64
	AmountTolerancePct   float64
	WeightAI             float64
	WeightHistory        float64
	ConsensusBonus       float64
	ConflictPenalty      float64
	ManualOverrideWeight float64
	ManualOverrideBoost  float64
	MinHistoricalMatches int
	MaxRetryAttempts     int
	BaseBackoffSeconds   int
	ForceRecategorize    bool
}

type ConcurrencyConfig struct {
	NormalizationParallelism  int
	CategorizationParallelism int
}

type RateLimitConfig struct {
	RequestsPerSecond int
	Burst             int
}

// Load initializes and loads configuration using Viper, following the same
// .env-plus-environment-variables convention as the ambient stack this
// engine was adapted from.
func Load() (*Config, error) {
	viper.SetConfigName(".env")
	viper.SetConfigType("env")
	viper.AddConfigPath(".")
	viper.AddConfigPath("../")

	viper.AutomaticEnv()
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))

	setDefaults()

	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); ok {
			log.Printf("no .env file found, using environment variables and defaults")
		} else {
			return nil, fmt.Errorf("reading config file: %w", err)
		}
	}

	cfg := &Config{
		Server: ServerConfig{
			Port: viper.GetString("PORT"),
			Host: viper.GetString("HOST"),
		},
		Database: DatabaseConfig{
			URL:  viper.GetString("DATABASE_URL"),
			Host: viper.GetString("DB_HOST"),
			Port: viper.GetInt("DB_PORT"),
			User: viper.GetString("DB_USER"),
			Pass: viper.GetString("DB_PASSWORD"),
			Name: viper.GetString("DB_NAME"),
		},
		Redis: RedisConfig{
			Addr:     viper.GetString("REDIS_ADDR"),
			Password: viper.GetString("REDIS_PASSWORD"),
			DB:       viper.GetInt("REDIS_DB"),
		},
		Logging: LoggingConfig{
			Level:  viper.GetString("LOG_LEVEL"),
			Format: viper.GetString("LOG_FORMAT"),
		},
		Auth: AuthConfig{
			JWTSecret:     viper.GetString("JWT_SECRET"),
			JWTExpiration: viper.GetString("JWT_EXPIRATION"),
		},
		AI: AIConfig{
			APIKey:      viper.GetString("GEMINI_API_KEY"),
			Model:       viper.GetString("AI_MODEL"),
			Temperature: viper.GetFloat64("AI_TEMPERATURE"),
			BatchSize:   viper.GetInt("AI_BATCH_SIZE"),
			ContextSize: viper.GetInt("AI_CONTEXT_SIZE"),
		},
		ExchangeFX: ExchangeFXConfig{
			BaseURL:        viper.GetString("FX_BASE_URL"),
			APIKey:         viper.GetString("FX_API_KEY"),
			TargetCurrency: viper.GetString("FX_TARGET_CURRENCY"),
		},
		Run: RunConfig{
			HistoryLookbackDays:  viper.GetInt("HISTORY_LOOKBACK_DAYS"),
			FuzzyMatchThreshold:  viper.GetFloat64("FUZZY_MATCH_THRESHOLD"),
			AmountTolerancePct:   viper.GetFloat64("AMOUNT_TOLERANCE_PCT"),
			WeightAI:             viper.GetFloat64("CONFIDENCE_WEIGHT_AI"),
			WeightHistory:        viper.GetFloat64("CONFIDENCE_WEIGHT_HISTORY"),
			ConsensusBonus:       viper.GetFloat64("CONFIDENCE_CONSENSUS_BONUS"),
			ConflictPenalty:      viper.GetFloat64("CONFIDENCE_CONFLICT_PENALTY"),
			ManualOverrideWeight: viper.GetFloat64("MANUAL_OVERRIDE_WEIGHT"),
			ManualOverrideBoost:  viper.GetFloat64("CONFIDENCE_MANUAL_OVERRIDE_BOOST"),
			MinHistoricalMatches: viper.GetInt("CONFIDENCE_MIN_HISTORICAL_MATCHES"),
			MaxRetryAttempts:     viper.GetInt("MAX_RETRY_ATTEMPTS"),
			BaseBackoffSeconds:   viper.GetInt("BASE_BACKOFF_SECONDS"),
			ForceRecategorize:    viper.GetBool("FORCE_RECATEGORIZE"),
		},
		Concurrency: ConcurrencyConfig{
			NormalizationParallelism:  viper.GetInt("NORMALIZATION_PARALLELISM"),
			CategorizationParallelism: viper.GetInt("CATEGORIZATION_PARALLELISM"),
		},
		RateLimit: RateLimitConfig{
			RequestsPerSecond: viper.GetInt("RATE_LIMIT_RPS"),
			Burst:             viper.GetInt("RATE_LIMIT_BURST"),
		},
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// validate checks cross-field invariants that setDefaults/env vars cannot
// enforce on their own, such as the confidence weights summing to 1.0.
func (c *Config) validate() error {
	sum := c.Run.WeightAI + c.Run.WeightHistory
	if sum < 0.99 || sum > 1.01 {
		return fmt.Errorf("config: confidence_weight_ai + confidence_weight_history must sum to 1.0, got %.4f", sum)
	}
	return nil
}

func setDefaults() {
	viper.SetDefault("PORT", "8080")
	viper.SetDefault("HOST", "0.0.0.0")
	viper.SetDefault("GIN_MODE", "release")

	viper.SetDefault("DATABASE_URL", "")
	viper.SetDefault("DB_HOST", "localhost")
	viper.SetDefault("DB_PORT", 5432)
	viper.SetDefault("DB_USER", "txledger")
	viper.SetDefault("DB_PASSWORD", "txledger")
	viper.SetDefault("DB_NAME", "txledger")

	viper.SetDefault("REDIS_ADDR", "localhost:6379")
	viper.SetDefault("REDIS_PASSWORD", "")
	viper.SetDefault("REDIS_DB", 0)

	viper.SetDefault("LOG_LEVEL", "info")
	viper.SetDefault("LOG_FORMAT", "json")

	viper.SetDefault("JWT_SECRET", "change-me-in-production")
	viper.SetDefault("JWT_EXPIRATION", "24h")

	viper.SetDefault("GEMINI_API_KEY", "")
	viper.SetDefault("AI_MODEL", "gemini-2.0-flash")
	viper.SetDefault("AI_TEMPERATURE", 0.2)
	viper.SetDefault("AI_BATCH_SIZE", 10)
	viper.SetDefault("AI_CONTEXT_SIZE", 5)

	viper.SetDefault("FX_BASE_URL", "https://cdn.moneyconvert.net/api/latest.json")
	viper.SetDefault("FX_API_KEY", "")
	viper.SetDefault("FX_TARGET_CURRENCY", "GBP")

	viper.SetDefault("HISTORY_LOOKBACK_DAYS", 90)
	viper.SetDefault("FUZZY_MATCH_THRESHOLD", 0.6)
	viper.SetDefault("AMOUNT_TOLERANCE_PCT", 0.10)
	viper.SetDefault("CONFIDENCE_WEIGHT_AI", 0.6)
	viper.SetDefault("CONFIDENCE_WEIGHT_HISTORY", 0.4)
	viper.SetDefault("CONFIDENCE_CONSENSUS_BONUS", 15.0)
	viper.SetDefault("CONFIDENCE_CONFLICT_PENALTY", -15.0)
	viper.SetDefault("CONFIDENCE_MIN_HISTORICAL_MATCHES", 2)
	viper.SetDefault("CONFIDENCE_MANUAL_OVERRIDE_BOOST", 5.0)
	viper.SetDefault("MANUAL_OVERRIDE_WEIGHT", 2.0)
	viper.SetDefault("MAX_RETRY_ATTEMPTS", 5)
	viper.SetDefault("BASE_BACKOFF_SECONDS", 2)
	viper.SetDefault("FORCE_RECATEGORIZE", false)

	viper.SetDefault("NORMALIZATION_PARALLELISM", 8)
	viper.SetDefault("CATEGORIZATION_PARALLELISM", 1)

	viper.SetDefault("RATE_LIMIT_RPS", 100)
	viper.SetDefault("RATE_LIMIT_BURST", 200)
}

// IsProduction returns true if running with GIN_MODE=release.
func IsProduction() bool {
	return viper.GetString("GIN_MODE") == "release"
}

// IsDevelopment returns true if running with GIN_MODE=debug.
func IsDevelopment() bool {
	return viper.GetString("GIN_MODE") == "debug"
}
