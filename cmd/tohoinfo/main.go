// Package main provides the TohoInfo CLI application entry point.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/mattn/go-isatty"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"github.com/subosito/gotenv"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"golang.org/x/sync/errgroup"

	"tohoinfo/internal/core"
	httpserver "tohoinfo/internal/http"
	"tohoinfo/internal/overrides"
	"tohoinfo/internal/spotify"
	"tohoinfo/internal/store"
	"tohoinfo/internal/touhoudb"
	"tohoinfo/pkg/fuzzy"
)

const envPrefix = "TOHOINFO"

var version = "dev"

var (
	cfgFile string
	config  *core.Config
	logger  *zap.Logger
)

var rootCmd = &cobra.Command{
	Use:   "tohoinfo",
	Short: "TohoInfo - Touhou original identification for Spotify",
	Long: `TohoInfo watches the track playing on Spotify, finds it on TouhouDB and resolves
the original Touhou composition it arranges, together with its game and character.`,
	RunE:         runTohoInfo,
	SilenceUsage: true,
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func init() {
	cobra.OnInitialize(initConfig)

	defaults := core.DefaultConfig()
	flags := rootCmd.PersistentFlags()

	flags.StringVar(&cfgFile, "config", "", "config file (default is .env)")
	flags.String("log-level", defaults.Log.Level, "log level (debug, info, warn, error)")
	flags.String("log-format", defaults.Log.Format, "log format (json, console, auto)")
	flags.String("touhoudb-base-url", defaults.TouhouDB.BaseURL, "TouhouDB base URL")
	flags.String("touhoudb-language", defaults.TouhouDB.Language, "TouhouDB display language preference")
	flags.Duration("touhoudb-timeout", defaults.TouhouDB.Timeout, "TouhouDB request timeout")
	flags.String("spotify-client-id", "", "Spotify client ID")
	flags.String("spotify-client-secret", "", "Spotify client secret")
	flags.String("spotify-redirect-url", defaults.Spotify.RedirectURL, "Spotify OAuth redirect URL")
	flags.String("spotify-token-path", defaults.Spotify.TokenPath, "Spotify OAuth token file")
	flags.StringSlice("title-strip-tags", nil, "Decoration tags stripped from titles (default: built-in list)")
	flags.String("link-service", defaults.Matching.LinkService, "Streaming service used for original links")
	flags.String("overrides-file", "", "Override table file (.json or .toml)")
	flags.String("server-host", defaults.Server.Host, "HTTP server host")
	flags.Int("server-port", defaults.Server.Port, "HTTP server port")
	flags.Duration("poll-interval", defaults.App.PollInterval, "Player poll interval")
	flags.String("history-path", defaults.App.HistoryPath, "Identification history database")
	flags.Int("history-size", defaults.App.HistorySize, "Maximum number of tracks kept in history")
	flags.Bool("generate-env-example", false, "Generate .env.example file from current configuration and exit")

	if err := viper.BindPFlags(flags); err != nil {
		fmt.Fprintf(os.Stderr, "Failed to bind flags: %v\n", err)
		os.Exit(1)
	}

	rootCmd.AddCommand(newIdentifyCmd(), newNormalizeCmd())
}

func initConfig() {
	envFile := ".env"
	if cfgFile != "" {
		envFile = cfgFile
	}

	if err := gotenv.Load(envFile); err != nil {
		if !os.IsNotExist(err) {
			fmt.Fprintf(os.Stderr, "Error loading .env file: %v\n", err)
		}
	}

	viper.SetEnvPrefix(envPrefix)
	viper.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	viper.AutomaticEnv()

	config = buildConfig()
	logger = buildLogger(config.Log.Level, config.Log.Format)
}

func buildConfig() *core.Config {
	cfg := core.DefaultConfig()

	configureTouhouDB(cfg)
	configureSpotify(cfg)
	configureMatching(cfg)
	configureServer(cfg)
	configureApp(cfg)

	return cfg
}

func configureTouhouDB(cfg *core.Config) {
	if baseURL := viper.GetString("touhoudb-base-url"); baseURL != "" {
		cfg.TouhouDB.BaseURL = baseURL
	}
	if language := viper.GetString("touhoudb-language"); language != "" {
		cfg.TouhouDB.Language = language
	}
	if timeout := viper.GetDuration("touhoudb-timeout"); timeout > 0 {
		cfg.TouhouDB.Timeout = timeout
	}
}

func configureSpotify(cfg *core.Config) {
	cfg.Spotify.ClientID = viper.GetString("spotify-client-id")
	cfg.Spotify.ClientSecret = viper.GetString("spotify-client-secret")
	if redirectURL := viper.GetString("spotify-redirect-url"); redirectURL != "" {
		cfg.Spotify.RedirectURL = redirectURL
	}
	if tokenPath := viper.GetString("spotify-token-path"); tokenPath != "" {
		cfg.Spotify.TokenPath = tokenPath
	}
}

func configureMatching(cfg *core.Config) {
	cfg.Matching.StripTags = viper.GetStringSlice("title-strip-tags")
	if service := viper.GetString("link-service"); service != "" {
		cfg.Matching.LinkService = service
	}
	cfg.Matching.OverridesFile = viper.GetString("overrides-file")
}

func configureServer(cfg *core.Config) {
	if host := viper.GetString("server-host"); host != "" {
		cfg.Server.Host = host
	}
	if port := viper.GetInt("server-port"); port != 0 {
		cfg.Server.Port = port
	}
	if level := viper.GetString("log-level"); level != "" {
		cfg.Log.Level = level
	}
	if format := viper.GetString("log-format"); format != "" {
		cfg.Log.Format = format
	}
}

func configureApp(cfg *core.Config) {
	if interval := viper.GetDuration("poll-interval"); interval > 0 {
		cfg.App.PollInterval = interval
	}
	if path := viper.GetString("history-path"); path != "" {
		cfg.App.HistoryPath = path
	}
	if size := viper.GetInt("history-size"); size != 0 {
		cfg.App.HistorySize = size
	}
}

func buildLogger(level, format string) *zap.Logger {
	var zapLevel zapcore.Level
	switch strings.ToLower(level) {
	case "debug":
		zapLevel = zapcore.DebugLevel
	case "info":
		zapLevel = zapcore.InfoLevel
	case "warn":
		zapLevel = zapcore.WarnLevel
	case "error":
		zapLevel = zapcore.ErrorLevel
	default:
		zapLevel = zapcore.InfoLevel
	}

	cfg := zap.NewProductionConfig()
	if useConsoleEncoding(format, os.Stderr.Fd()) {
		cfg.Encoding = "console"
		cfg.EncoderConfig = zap.NewDevelopmentEncoderConfig()
	}
	cfg.Level = zap.NewAtomicLevelAt(zapLevel)

	builtLogger, err := cfg.Build()
	if err != nil {
		panic(fmt.Sprintf("Failed to build logger: %v", err))
	}

	return builtLogger
}

func useConsoleEncoding(format string, fd uintptr) bool {
	switch strings.ToLower(format) {
	case "console":
		return true
	case "json":
		return false
	default:
		return isatty.IsTerminal(fd) || isatty.IsCygwinTerminal(fd)
	}
}

func runTohoInfo(cmd *cobra.Command, _ []string) error {
	if viper.GetBool("generate-env-example") {
		return generateEnvExample(cmd)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	logger.Info("Starting TohoInfo",
		zap.String("version", version),
		zap.String("touhoudb", config.TouhouDB.BaseURL),
		zap.String("link_service", config.Matching.LinkService),
		zap.Duration("poll_interval", config.App.PollInterval))

	if err := validateConfig(); err != nil {
		return fmt.Errorf("configuration validation failed: %w", err)
	}

	svcs, err := initializeServices(ctx)
	if err != nil {
		return err
	}
	defer svcs.close()

	return runServices(ctx, svcs)
}

func validateConfig() error {
	if err := config.Validate(); err != nil {
		return err
	}
	return config.ValidateSpotify()
}

type services struct {
	spotify    *spotify.Client
	history    *store.History
	httpServer *httpserver.Server
	watcher    *core.Watcher
}

func (s *services) close() {
	if err := s.history.Close(); err != nil {
		logger.Debug("Failed to close history", zap.Error(err))
	}
}

func initializeServices(ctx context.Context) (*services, error) {
	metrics := httpserver.NewMetrics()

	identifier, err := buildIdentifier(config, logger, metrics)
	if err != nil {
		return nil, err
	}

	spotifyClient := spotify.NewClient(&config.Spotify, logger.Named("spotify"))
	if authErr := spotifyClient.Authenticate(ctx); authErr != nil {
		return nil, fmt.Errorf("failed to authenticate with Spotify: %w", authErr)
	}

	history, err := store.OpenHistory(ctx, config.App.HistoryPath, config.App.HistorySize, logger.Named("history"))
	if err != nil {
		return nil, fmt.Errorf("failed to open history: %w", err)
	}

	state := &httpserver.State{}
	tracker := core.NewTracker(logger.Named("tracker"), metrics, state, history)
	watcher := core.NewWatcher(spotifyClient, identifier, tracker, config.App.PollInterval, logger.Named("watcher"))
	httpServer := httpserver.NewServer(&config.Server, logger.Named("http"), metrics, state,
		httpserver.WithHistory(history),
		httpserver.WithPlayer(spotifyClient))

	return &services{
		spotify:    spotifyClient,
		history:    history,
		httpServer: httpServer,
		watcher:    watcher,
	}, nil
}

// buildIdentifier wires the TouhouDB client, override table and resolution chain.
func buildIdentifier(cfg *core.Config, log *zap.Logger, metrics core.Metrics) (*core.Identifier, error) {
	client, err := touhoudb.New(cfg.TouhouDB.BaseURL,
		touhoudb.WithLanguage(cfg.TouhouDB.Language),
		touhoudb.WithTimeout(cfg.TouhouDB.Timeout),
		touhoudb.WithUserAgent("tohoinfo/"+version))
	if err != nil {
		return nil, fmt.Errorf("failed to create TouhouDB client: %w", err)
	}

	table, err := overrides.Load(cfg.Matching.OverridesFile, log.Named("overrides"))
	if err != nil {
		return nil, fmt.Errorf("failed to load overrides: %w", err)
	}

	var normalizerOpts []fuzzy.Option
	if len(cfg.Matching.StripTags) > 0 {
		normalizerOpts = append(normalizerOpts, fuzzy.WithStripTags(cfg.Matching.StripTags...))
	}

	resolver := core.NewResolver(table, client, log.Named("resolver"),
		core.WithLinkService(cfg.Matching.LinkService),
		core.WithResolverMetrics(metrics))

	return core.NewIdentifier(fuzzy.NewNormalizer(normalizerOpts...), client, resolver, log.Named("identifier"),
		core.WithImageLookup(client),
		core.WithBrowseURL(client.SongPageURL),
		core.WithMetrics(metrics)), nil
}

func runServices(ctx context.Context, svcs *services) error {
	g, gCtx := errgroup.WithContext(ctx)

	g.Go(func() error {
		return svcs.httpServer.Start(gCtx)
	})

	g.Go(func() error {
		return svcs.watcher.Run(gCtx)
	})

	logger.Info("TohoInfo started successfully",
		zap.String("http_addr", fmt.Sprintf("%s:%d", config.Server.Host, config.Server.Port)))

	if err := g.Wait(); err != nil {
		logger.Error("TohoInfo stopped with error", zap.Error(err))
		return err
	}

	logger.Info("TohoInfo stopped gracefully")
	return nil
}
