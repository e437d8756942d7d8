package core

import (
	"errors"
	"fmt"
	"time"
)

// Configuration defaults.
const (
	DefaultTouhouDBBaseURL  = "https://touhoudb.com"
	DefaultTouhouDBLanguage = "Default"
	DefaultTouhouDBTimeout  = 10 * time.Second

	DefaultServerHost = "0.0.0.0"
	DefaultServerPort = 8080

	DefaultPollInterval = 3 * time.Second
	DefaultHistoryPath  = "./tohoinfo_history.db"
	DefaultHistorySize  = 10000

	DefaultLogLevel  = "info"
	DefaultLogFormat = "auto"
)

var errInvalidConfig = errors.New("invalid configuration")

type Config struct {
	TouhouDB TouhouDBConfig
	Spotify  SpotifyConfig
	Matching MatchingConfig
	Server   ServerConfig
	Log      LogConfig
	App      AppConfig
}

type TouhouDBConfig struct {
	BaseURL  string
	Language string
	Timeout  time.Duration
}

type SpotifyConfig struct {
	ClientID     string
	ClientSecret string
	RedirectURL  string
	TokenPath    string
}

type MatchingConfig struct {
	// StripTags replaces the default decoration tags removed from titles when non-empty.
	StripTags     []string
	LinkService   string
	OverridesFile string
}

type ServerConfig struct {
	Host         string
	Port         int
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
}

type LogConfig struct {
	Level  string
	Format string
}

type AppConfig struct {
	PollInterval time.Duration
	HistoryPath  string
	HistorySize  int
}

func DefaultConfig() *Config {
	return &Config{
		TouhouDB: TouhouDBConfig{
			BaseURL:  DefaultTouhouDBBaseURL,
			Language: DefaultTouhouDBLanguage,
			Timeout:  DefaultTouhouDBTimeout,
		},
		Spotify: SpotifyConfig{
			RedirectURL: "http://127.0.0.1:8080/callback",
			TokenPath:   "./spotify_token.json",
		},
		Matching: MatchingConfig{
			LinkService: DefaultLinkService,
		},
		Server: ServerConfig{
			Host:         DefaultServerHost,
			Port:         DefaultServerPort,
			ReadTimeout:  10 * time.Second,
			WriteTimeout: 10 * time.Second,
		},
		Log: LogConfig{
			Level:  DefaultLogLevel,
			Format: DefaultLogFormat,
		},
		App: AppConfig{
			PollInterval: DefaultPollInterval,
			HistoryPath:  DefaultHistoryPath,
			HistorySize:  DefaultHistorySize,
		},
	}
}

// Validate checks the values every command needs. Spotify credentials are
// checked by the watch command only.
func (c *Config) Validate() error {
	if c.TouhouDB.BaseURL == "" {
		return fmt.Errorf("%w: touhoudb base url is required", errInvalidConfig)
	}
	if c.TouhouDB.Timeout <= 0 {
		return fmt.Errorf("%w: touhoudb timeout must be positive", errInvalidConfig)
	}
	if c.Matching.LinkService == "" {
		return fmt.Errorf("%w: link service is required", errInvalidConfig)
	}
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("%w: server port %d out of range", errInvalidConfig, c.Server.Port)
	}
	if c.App.PollInterval <= 0 {
		return fmt.Errorf("%w: poll interval must be positive", errInvalidConfig)
	}
	if c.App.HistorySize <= 0 {
		return fmt.Errorf("%w: history size must be positive", errInvalidConfig)
	}
	switch c.Log.Format {
	case "json", "console", "auto":
	default:
		return fmt.Errorf("%w: unknown log format %q", errInvalidConfig, c.Log.Format)
	}
	return nil
}

// ValidateSpotify checks the credentials the player source needs.
func (c *Config) ValidateSpotify() error {
	if c.Spotify.ClientID == "" || c.Spotify.ClientSecret == "" {
		return fmt.Errorf("%w: spotify client id and secret are required", errInvalidConfig)
	}
	return nil
}
