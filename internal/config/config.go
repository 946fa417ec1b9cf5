package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// EnvPrefix prefixes environment overrides, e.g. HSTRACKER_LOG_PATH.
const EnvPrefix = "HSTRACKER"

// Card database sources.
const (
	CardSourceJSON     = "json"
	CardSourcePostgres = "postgres"
	CardSourceSQLite   = "sqlite"
)

// Config is the tracker configuration.
type Config struct {
	Log     LogConfig     `mapstructure:"log"`
	Deck    DeckConfig    `mapstructure:"deck"`
	Player  PlayerConfig  `mapstructure:"player"`
	Cards   CardsConfig   `mapstructure:"cards"`
	Server  ServerConfig  `mapstructure:"server"`
	Replay  ReplayConfig  `mapstructure:"replay"`
	Logging LoggingConfig `mapstructure:"logging"`
	Parser  ParserConfig  `mapstructure:"parser"`
}

// LogConfig locates the game client's Power.log.
type LogConfig struct {
	Path         string        `mapstructure:"path"`
	PollInterval time.Duration `mapstructure:"poll_interval"`
	FromStart    bool          `mapstructure:"from_start"`
}

// DeckConfig holds the optional deck code used for deck elimination.
type DeckConfig struct {
	Code string `mapstructure:"code"`
}

// PlayerConfig overrides local player detection. Friendly is 0 to
// auto-detect, or the player slot 1 or 2.
type PlayerConfig struct {
	Friendly int `mapstructure:"friendly"`
}

// CardsConfig selects where card names and texts come from.
type CardsConfig struct {
	Source      string `mapstructure:"source"`
	Path        string `mapstructure:"path"`
	Locale      string `mapstructure:"locale"`
	DatabaseURL string `mapstructure:"database_url"`
}

// ServerConfig holds the snapshot transports.
type ServerConfig struct {
	GRPC      GRPCConfig      `mapstructure:"grpc"`
	WebSocket WebSocketConfig `mapstructure:"websocket"`
}

// GRPCConfig configures the gRPC snapshot service. An empty address
// disables it.
type GRPCConfig struct {
	Address              string `mapstructure:"address"`
	MaxConcurrentStreams int    `mapstructure:"max_concurrent_streams"`
}

// WebSocketConfig configures the snapshot broadcast hub. An empty address
// disables it.
type WebSocketConfig struct {
	Address string `mapstructure:"address"`
	Path    string `mapstructure:"path"`
}

// ReplayConfig controls snapshot replay recording.
type ReplayConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	Dir     string `mapstructure:"dir"`
}

// LoggingConfig configures the zap logger.
type LoggingConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// ParserConfig bounds log tree traversal.
type ParserConfig struct {
	MaxDepth int `mapstructure:"max_depth"`
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("log.path", "Logs/Power.log")
	v.SetDefault("log.poll_interval", 500*time.Millisecond)
	v.SetDefault("log.from_start", true)
	v.SetDefault("deck.code", "")
	v.SetDefault("player.friendly", 0)
	v.SetDefault("cards.source", CardSourceJSON)
	v.SetDefault("cards.path", "cards.json")
	v.SetDefault("cards.locale", "enUS")
	v.SetDefault("cards.database_url", "")
	v.SetDefault("server.grpc.address", ":50051")
	v.SetDefault("server.grpc.max_concurrent_streams", 100)
	v.SetDefault("server.websocket.address", ":8080")
	v.SetDefault("server.websocket.path", "/ws")
	v.SetDefault("replay.enabled", false)
	v.SetDefault("replay.dir", "replays")
	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "console")
	v.SetDefault("parser.max_depth", 50)
}

// Load reads the YAML file at path, applies HSTRACKER_* environment
// overrides and validates the result. A missing file is fine when path is
// empty; defaults and environment are used alone.
func Load(path string) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to decode config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate reports every invalid setting at once.
func (c *Config) Validate() error {
	var errs []error
	if c.Log.Path == "" {
		errs = append(errs, errors.New("log.path is required"))
	}
	if c.Log.PollInterval <= 0 {
		errs = append(errs, fmt.Errorf("log.poll_interval must be positive, got %s", c.Log.PollInterval))
	}
	if c.Player.Friendly < 0 || c.Player.Friendly > 2 {
		errs = append(errs, fmt.Errorf("player.friendly must be 0, 1 or 2, got %d", c.Player.Friendly))
	}
	switch c.Cards.Source {
	case CardSourceJSON, CardSourceSQLite:
		if c.Cards.Path == "" {
			errs = append(errs, fmt.Errorf("cards.path is required for source %q", c.Cards.Source))
		}
	case CardSourcePostgres:
		if c.Cards.DatabaseURL == "" {
			errs = append(errs, errors.New("cards.database_url is required for source \"postgres\""))
		}
	default:
		errs = append(errs, fmt.Errorf("unknown cards.source %q", c.Cards.Source))
	}
	if c.Replay.Enabled && c.Replay.Dir == "" {
		errs = append(errs, errors.New("replay.dir is required when replay is enabled"))
	}
	if c.Parser.MaxDepth <= 0 {
		errs = append(errs, fmt.Errorf("parser.max_depth must be positive, got %d", c.Parser.MaxDepth))
	}
	if err := errors.Join(errs...); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}
	return nil
}
