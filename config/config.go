package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
	"github.com/xhit/go-str2duration/v2"
)

// ErrMissingCredential is returned when a required token or API key is empty.
var ErrMissingCredential = errors.New("missing credential")

// Store drivers accepted by store.driver.
const (
	StoreFile     = "file"
	StoreBuntDB   = "buntdb"
	StoreRedis    = "redis"
	StorePostgres = "postgres"
)

type Config struct {
	Environment   string              `mapstructure:"environment"`
	Asset         AssetConfig         `mapstructure:"asset"`
	Telegram      TelegramConfig      `mapstructure:"telegram"`
	CoinMarketCap CoinMarketCapConfig `mapstructure:"coinmarketcap"`
	NewsData      NewsDataConfig      `mapstructure:"newsdata"`
	Broadcast     BroadcastConfig     `mapstructure:"broadcast"`
	Store         StoreConfig         `mapstructure:"store"`
	Log           LogConfig           `mapstructure:"log"`
	Postgres      PostgresConfig      `mapstructure:"postgres"`
	Redis         RedisConfig         `mapstructure:"redis"`
	Secrets       SecretsConfig       `mapstructure:"secrets"`
}

// AssetConfig names the coin being tracked.
type AssetConfig struct {
	Symbol  string `mapstructure:"symbol"`  // e.g. "DOGE"
	Name    string `mapstructure:"name"`    // e.g. "Dogecoin"
	Convert string `mapstructure:"convert"` // quote currency, e.g. "USD"
}

type TelegramConfig struct {
	Token       string        `mapstructure:"token"`
	Timeout     time.Duration `mapstructure:"timeout"`      // per send
	PollTimeout time.Duration `mapstructure:"poll_timeout"` // long polling
}

type CoinMarketCapConfig struct {
	BaseURL string        `mapstructure:"base_url"`
	APIKey  string        `mapstructure:"api_key"`
	Timeout time.Duration `mapstructure:"timeout"`
}

type NewsDataConfig struct {
	BaseURL        string        `mapstructure:"base_url"`
	APIKey         string        `mapstructure:"api_key"`
	Query          string        `mapstructure:"query"`
	Language       string        `mapstructure:"language"`
	Timeout        time.Duration `mapstructure:"timeout"`
	CommandLimit   int           `mapstructure:"command_limit"`   // articles sent for /news
	BroadcastLimit int           `mapstructure:"broadcast_limit"` // articles included in a broadcast
}

type BroadcastConfig struct {
	Interval    string `mapstructure:"interval"` // "30m", "1h", "1d"
	Concurrency int    `mapstructure:"concurrency"`
}

type StoreConfig struct {
	Driver string `mapstructure:"driver"` // file, buntdb, redis, postgres
	Path   string `mapstructure:"path"`   // file and buntdb drivers
}

type RedisConfig struct {
	Addr     string `mapstructure:"addr"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
	Key      string `mapstructure:"key"`
}

// Options defines the logger configuration options.
type LogConfig struct {
	Level       string `mapstructure:"level"`       // log level: "debug", "info", "warn", "error"
	Format      string `mapstructure:"format"`      // log format: "json" or "console"
	OutputFile  string `mapstructure:"output_file"` // file path to store logs (optional)
	Environment string `mapstructure:"environment"` // environment: "dev" or "prod"
}

// Load loads application configuration using Viper.
// It reads an optional .env file and config.yaml (searched in dir, ./config and .)
// and overrides both with environment variables.
func Load(dir string) (*Config, error) {
	if err := loadDotEnv(dir); err != nil {
		return nil, err
	}

	v := viper.New()

	v.SetConfigName("config") // config.yaml
	v.SetConfigType("yaml")
	if dir != "" {
		v.AddConfigPath(dir)
	}
	v.AddConfigPath("./config")
	v.AddConfigPath(".")

	setDefaults(v)

	// Support environment variables with dot notation (e.g., TELEGRAM_TOKEN)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Names used by earlier deployments of the bot
	_ = v.BindEnv("telegram.token", "TELEGRAM_TOKEN", "TELEGRAM_BOT_TOKEN")
	_ = v.BindEnv("coinmarketcap.api_key", "COINMARKETCAP_API_KEY")
	_ = v.BindEnv("newsdata.api_key", "NEWSDATA_API_KEY")

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("failed to read config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}
	if cfg.Log.Environment == "" {
		cfg.Log.Environment = cfg.Environment
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("environment", "dev")

	v.SetDefault("asset.symbol", "DOGE")
	v.SetDefault("asset.name", "Dogecoin")
	v.SetDefault("asset.convert", "USD")

	v.SetDefault("telegram.token", "")
	v.SetDefault("telegram.timeout", 15*time.Second)
	v.SetDefault("telegram.poll_timeout", 10*time.Second)

	v.SetDefault("coinmarketcap.base_url", "https://pro-api.coinmarketcap.com")
	v.SetDefault("coinmarketcap.api_key", "")
	v.SetDefault("coinmarketcap.timeout", 30*time.Second)

	v.SetDefault("newsdata.base_url", "https://newsdata.io")
	v.SetDefault("newsdata.api_key", "")
	v.SetDefault("newsdata.query", "Dogecoin")
	v.SetDefault("newsdata.language", "en")
	v.SetDefault("newsdata.timeout", 30*time.Second)
	v.SetDefault("newsdata.command_limit", 5)
	v.SetDefault("newsdata.broadcast_limit", 1)

	v.SetDefault("broadcast.interval", "30m")
	v.SetDefault("broadcast.concurrency", 5)

	v.SetDefault("store.driver", StoreFile)
	v.SetDefault("store.path", "data/subscribed_users.txt")

	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "console")
	v.SetDefault("log.output_file", "")
	v.SetDefault("log.environment", "")

	v.SetDefault("postgres.host", "localhost")
	v.SetDefault("postgres.port", 5432)
	v.SetDefault("postgres.user", "postgres")
	v.SetDefault("postgres.password", "")
	v.SetDefault("postgres.dbname", "dogenews")
	v.SetDefault("postgres.sslmode", "disable")
	v.SetDefault("postgres.timezone", "UTC")
	v.SetDefault("postgres.create_db", false)

	v.SetDefault("redis.addr", "localhost:6379")
	v.SetDefault("redis.password", "")
	v.SetDefault("redis.db", 0)
	v.SetDefault("redis.key", "dogenews:subscribers")

	v.SetDefault("secrets.telegram_token_param", "")
	v.SetDefault("secrets.coinmarketcap_key_param", "")
	v.SetDefault("secrets.newsdata_key_param", "")
	v.SetDefault("secrets.postgres_password_param", "")
}

// loadDotEnv loads dir/.env (or ./.env) into the process environment when present.
// Variables already set in the environment win.
func loadDotEnv(dir string) error {
	path := ".env"
	if dir != "" {
		path = filepath.Join(dir, ".env")
	}
	if _, err := os.Stat(path); err != nil {
		return nil
	}
	if err := godotenv.Load(path); err != nil {
		return fmt.Errorf("failed to load %s: %w", path, err)
	}
	return nil
}

// Validate checks the settings that do not depend on credentials.
func (c *Config) Validate() error {
	switch c.Store.Driver {
	case StoreFile, StoreBuntDB:
		if c.Store.Path == "" {
			return fmt.Errorf("store.path is required for driver %q", c.Store.Driver)
		}
	case StoreRedis, StorePostgres:
	default:
		return fmt.Errorf("unknown store driver %q", c.Store.Driver)
	}

	if c.Asset.Symbol == "" || c.Asset.Convert == "" {
		return errors.New("asset.symbol and asset.convert are required")
	}
	if c.Broadcast.Concurrency < 1 {
		return fmt.Errorf("broadcast.concurrency must be positive, got %d", c.Broadcast.Concurrency)
	}
	if c.NewsData.CommandLimit < 1 {
		return fmt.Errorf("newsdata.command_limit must be positive, got %d", c.NewsData.CommandLimit)
	}
	if c.NewsData.BroadcastLimit < 0 {
		return errors.New("newsdata.broadcast_limit must not be negative")
	}
	if _, err := c.Broadcast.Period(); err != nil {
		return err
	}
	return nil
}

// CheckCredentials reports every empty credential needed to talk to Telegram
// and the data sources.
func (c *Config) CheckCredentials() error {
	var missing []string
	if c.Telegram.Token == "" {
		missing = append(missing, "telegram.token")
	}
	if c.CoinMarketCap.APIKey == "" {
		missing = append(missing, "coinmarketcap.api_key")
	}
	if c.NewsData.APIKey == "" {
		missing = append(missing, "newsdata.api_key")
	}
	if len(missing) > 0 {
		return fmt.Errorf("%w: %s", ErrMissingCredential, strings.Join(missing, ", "))
	}
	return nil
}

// Period parses the broadcast interval. Day and week units are accepted.
func (b BroadcastConfig) Period() (time.Duration, error) {
	d, err := str2duration.ParseDuration(b.Interval)
	if err != nil {
		return 0, fmt.Errorf("invalid broadcast.interval %q: %w", b.Interval, err)
	}
	if d <= 0 {
		return 0, fmt.Errorf("broadcast.interval must be positive, got %q", b.Interval)
	}
	return d, nil
}
