package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"time"

	"github.com/caarlos0/env/v11"
	"gopkg.in/yaml.v3"
)

// Config struct to hold the configuration settings
type Config struct {
	Postgres      PostgresConfig      `yaml:"postgres"`
	HTTP          HTTPConfig          `yaml:"http"`
	Game          GameConfig          `yaml:"game"`
	Relay         RelayConfig         `yaml:"relay"`
	Telegram      TelegramConfig      `yaml:"telegram"`
	Whitelist     WhitelistConfig     `yaml:"whitelist"`
	WebApp        WebAppConfig        `yaml:"webapp"`
	Observability ObservabilityConfig `yaml:"observability"`
}

// PostgresConfig holds Postgres configuration.
type PostgresConfig struct {
	DSN string `yaml:"dsn" env:"DATABASE_URL"`
}

// HTTPConfig holds the API listener settings.
type HTTPConfig struct {
	Addr           string   `yaml:"addr" env:"HTTP_ADDR"`
	AppSecret      string   `yaml:"app_secret" env:"APP_SECRET"`
	AllowedOrigins []string `yaml:"allowed_origins" env:"ALLOWED_ORIGINS" envSeparator:","`
	RateLimit      float64  `yaml:"rate_limit" env:"HTTP_RATE_LIMIT"`
	RateBurst      int      `yaml:"rate_burst" env:"HTTP_RATE_BURST"`
}

// GameConfig holds the game rules.
type GameConfig struct {
	TeamSize      int    `yaml:"team_size" env:"TEAM_SIZE"`
	ArticlePoints int    `yaml:"article_points" env:"ARTICLE_POINTS"`
	PhotoPoints   int    `yaml:"photo_points" env:"PHOTO_POINTS"`
	ProofPoints   int    `yaml:"proof_points" env:"PROOF_POINTS"`
	ProofsDir     string `yaml:"proofs_dir" env:"PROOFS_DIR"`
}

// RelayConfig holds the moderation relay loop settings.
type RelayConfig struct {
	PollInterval    time.Duration `yaml:"poll_interval" env:"ADMIN_POLL_INTERVAL"`
	BackoffBase     time.Duration `yaml:"backoff_base" env:"RELAY_BACKOFF_BASE"`
	BackoffMax      time.Duration `yaml:"backoff_max" env:"RELAY_BACKOFF_MAX"`
	BackoffSleepCap time.Duration `yaml:"backoff_sleep_cap" env:"RELAY_BACKOFF_SLEEP_CAP"`
	SeenCapacity    int           `yaml:"seen_capacity" env:"RELAY_SEEN_CAPACITY"`
	SeenRetain      int           `yaml:"seen_retain" env:"RELAY_SEEN_RETAIN"`
	SendRate        float64       `yaml:"send_rate" env:"RELAY_SEND_RATE"`
}

// TelegramConfig holds the bot credentials. An empty token disables the relay.
type TelegramConfig struct {
	Token        string `yaml:"token" env:"BOT_TOKEN"`
	ReviewChatID int64  `yaml:"review_chat_id" env:"ADMIN_CHAT_ID"`
}

// WebAppConfig holds the Mini App settings. Launches are verified against
// Telegram.Token; an empty token disables the signed endpoints.
type WebAppConfig struct {
	InitDataMaxAge     time.Duration `yaml:"init_data_max_age" env:"WEBAPP_INIT_DATA_MAX_AGE"`
	CoordinatorContact string        `yaml:"coordinator_contact" env:"COORDINATOR_CONTACT"`
	CoordinatorPhone   string        `yaml:"coordinator_phone" env:"COORDINATOR_PHONE"`
}

// WhitelistConfig points at the participant whitelist file (.csv or .xlsx).
type WhitelistConfig struct {
	Path   string `yaml:"path" env:"WHITELIST_PATH"`
	Strict bool   `yaml:"strict" env:"WHITELIST_STRICT"`
}

// ObservabilityConfig holds configuration for observability components
type ObservabilityConfig struct {
	MetricsAddress string `yaml:"metrics_address" env:"METRICS_ADDRESS"`
	Environment    string `yaml:"environment" env:"ENV"`
}

// Default returns the configuration used when neither the file nor the
// environment set a value.
func Default() Config {
	return Config{
		HTTP: HTTPConfig{
			Addr:      ":8080",
			AppSecret: "dev-secret",
			RateLimit: 10,
			RateBurst: 20,
		},
		Game: GameConfig{
			TeamSize:      7,
			ArticlePoints: 1,
			PhotoPoints:   1,
			ProofPoints:   1,
			ProofsDir:     "./data/proofs",
		},
		Relay: RelayConfig{
			PollInterval:    5 * time.Second,
			BackoffBase:     time.Second,
			BackoffMax:      60 * time.Second,
			BackoffSleepCap: 15 * time.Second,
			SeenCapacity:    10000,
			SeenRetain:      4000,
			SendRate:        20,
		},
		WebApp: WebAppConfig{
			InitDataMaxAge: 24 * time.Hour,
		},
		Observability: ObservabilityConfig{
			MetricsAddress: ":9090",
			Environment:    "production",
		},
	}
}

// LoadConfig loads the configuration from a YAML file, then applies
// environment overrides. A missing file is not an error.
func LoadConfig(filename string) (*Config, error) {
	cfg := Default()

	if filename != "" {
		data, err := os.ReadFile(filename)
		switch {
		case err == nil:
			if err := yaml.Unmarshal(data, &cfg); err != nil {
				return nil, fmt.Errorf("failed to unmarshal config: %w", err)
			}
		case errors.Is(err, fs.ErrNotExist):
		default:
			return nil, fmt.Errorf("failed to read config: %w", err)
		}
	}

	if err := env.Parse(&cfg); err != nil {
		return nil, fmt.Errorf("failed to apply environment overrides: %w", err)
	}

	if err := cfg.normalize(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// normalize clamps relay timings and rejects values the game cannot run with.
func (c *Config) normalize() error {
	if c.Game.TeamSize < 1 {
		return fmt.Errorf("game.team_size must be positive, got %d", c.Game.TeamSize)
	}
	if c.Relay.PollInterval < time.Second {
		c.Relay.PollInterval = time.Second
	}
	if c.Relay.BackoffBase <= 0 {
		c.Relay.BackoffBase = time.Second
	}
	if c.Relay.BackoffMax < c.Relay.BackoffBase {
		c.Relay.BackoffMax = c.Relay.BackoffBase
	}
	if c.Relay.BackoffSleepCap <= 0 {
		c.Relay.BackoffSleepCap = c.Relay.BackoffMax
	}
	if c.WebApp.InitDataMaxAge < 0 {
		c.WebApp.InitDataMaxAge = 0
	}
	if c.Relay.SeenCapacity < 1 {
		return fmt.Errorf("relay.seen_capacity must be positive, got %d", c.Relay.SeenCapacity)
	}
	if c.Relay.SeenRetain < 0 || c.Relay.SeenRetain > c.Relay.SeenCapacity {
		c.Relay.SeenRetain = c.Relay.SeenCapacity
	}
	return nil
}
