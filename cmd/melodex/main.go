// Package main provides the melodex CLI application entry point.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"golang.org/x/sync/errgroup"

	"melodex/internal/cache"
	"melodex/internal/core"
	"melodex/internal/engine"
	httpserver "melodex/internal/http"
	"melodex/internal/providers"
	"melodex/internal/recs"
	"melodex/internal/store"
	"melodex/pkg/classify"
)

var (
	cfgFile string
	config  *core.Config
	logger  *zap.Logger
)

var rootCmd = &cobra.Command{
	Use:   "melodex",
	Short: "Melodex - multi-provider music resolution service",
	Long: `Melodex resolves free-text searches and platform links (YouTube, Spotify,
JioSaavn) into playable tracks, filling results across providers in priority
order and caching resolutions in process.`,
	RunE: runMelodex,
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func init() {
	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is .env)")
	rootCmd.PersistentFlags().String("log-level", "info", "log level (debug, info, warn, error)")
	rootCmd.PersistentFlags().String("youtube-api-key", "", "YouTube Data API key")
	rootCmd.PersistentFlags().String("spotify-client-id", "", "Spotify client ID")
	rootCmd.PersistentFlags().String("spotify-client-secret", "", "Spotify client secret")
	rootCmd.PersistentFlags().String("proxy-base-url", "", "search proxy base URL (optional)")
	rootCmd.PersistentFlags().String("recs-api-key", "", "recommendation API key (optional)")
	rootCmd.PersistentFlags().String("store-path", "", "SQLite database path")
	rootCmd.PersistentFlags().String("auth-tokens", "", "bearer token to user mapping (token:user,...)")
	rootCmd.PersistentFlags().Int("server-port", 8080, "HTTP server port")

	if err := viper.BindPFlags(rootCmd.PersistentFlags()); err != nil {
		fmt.Fprintf(os.Stderr, "Failed to bind flags: %v\n", err)
		os.Exit(1)
	}
}

func initConfig() {
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		viper.AddConfigPath(".")
		viper.SetConfigName(".env")
		viper.SetConfigType("env")
	}

	viper.SetEnvPrefix("MELODEX")
	viper.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	viper.AutomaticEnv()

	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			fmt.Fprintf(os.Stderr, "Error reading config file: %v\n", err)
			os.Exit(1)
		}
	}

	config = buildConfig()
	logger = buildLogger(config.Log.Level)
}

func buildConfig() *core.Config {
	cfg := core.DefaultConfig()

	cfg.YouTube.APIKey = viper.GetString("youtube-api-key")
	if url := viper.GetString("youtube-base-url"); url != "" {
		cfg.YouTube.BaseURL = url
	}

	cfg.Spotify.ClientID = viper.GetString("spotify-client-id")
	cfg.Spotify.ClientSecret = viper.GetString("spotify-client-secret")

	if url := viper.GetString("jiosaavn-base-url"); url != "" {
		cfg.JioSaavn.BaseURL = url
	}

	cfg.Proxy.BaseURL = viper.GetString("proxy-base-url")

	if quota := viper.GetInt("search-quota"); quota > 0 {
		cfg.Search.Quota = quota
	}
	if quota := viper.GetInt("search-spotify-quota"); quota > 0 {
		cfg.Search.SpotifyQuota = quota
	}

	if ttl := viper.GetDuration("cache-query-ttl"); ttl > 0 {
		cfg.Cache.QueryTTL = ttl
	}
	if capacity := viper.GetInt("cache-track-capacity"); capacity > 0 {
		cfg.Cache.TrackCapacity = capacity
	}

	cfg.Recs.APIKey = viper.GetString("recs-api-key")
	if url := viper.GetString("recs-base-url"); url != "" {
		cfg.Recs.BaseURL = url
	}
	if model := viper.GetString("recs-model"); model != "" {
		cfg.Recs.Model = model
	}

	if path := viper.GetString("store-path"); path != "" {
		cfg.Store.Path = path
	}

	if host := viper.GetString("server-host"); host != "" {
		cfg.Server.Host = host
	}
	cfg.Server.Port = viper.GetInt("server-port")
	cfg.Server.AuthTokens = viper.GetString("auth-tokens")

	cfg.Log.Level = viper.GetString("log-level")

	return cfg
}

func buildLogger(level string) *zap.Logger {
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
	cfg.Level = zap.NewAtomicLevelAt(zapLevel)

	builtLogger, err := cfg.Build()
	if err != nil {
		panic(fmt.Sprintf("Failed to build logger: %v", err))
	}

	return builtLogger
}

func runMelodex(_ *cobra.Command, _ []string) error {
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	logger.Info("Starting melodex",
		zap.String("version", "1.0.0"),
		zap.Bool("proxy_configured", config.Proxy.BaseURL != ""),
		zap.Bool("recs_configured", config.Recs.APIKey != ""))

	if err := validateConfig(); err != nil {
		return fmt.Errorf("configuration validation failed: %w", err)
	}

	queryCache := cache.NewQueryCache(config.Cache.QueryTTL)
	trackCache, err := cache.NewTrackCache(config.Cache.TrackCapacity)
	if err != nil {
		return fmt.Errorf("failed to create track cache: %w", err)
	}

	saavn := providers.NewJioSaavn(&config.JioSaavn, logger.Named("jiosaavn"))
	youtube := providers.NewYouTube(&config.YouTube, logger.Named("youtube"))
	spotifyClient := providers.NewSpotify(ctx, &config.Spotify, logger.Named("spotify"))
	proxy := providers.NewProxy(&config.Proxy, logger.Named("proxy"))

	resolver := engine.New(
		classify.New(),
		saavn,
		youtube,
		spotifyClient,
		proxy,
		queryCache,
		trackCache,
		config.Search,
		logger.Named("engine"),
	)

	persistence, err := store.Open(&config.Store, logger.Named("store"))
	if err != nil {
		return fmt.Errorf("failed to open store: %w", err)
	}
	defer persistence.Close()

	var recommender core.Recommender
	if config.Recs.APIKey != "" {
		client, err := recs.New(&config.Recs, logger.Named("recs"))
		if err != nil {
			return fmt.Errorf("failed to create recommendation client: %w", err)
		}
		recommender = client
	}

	httpServer := httpserver.NewServer(
		&config.Server,
		resolver,
		persistence,
		httpserver.NewTokenAuth(config.Server.AuthTokens),
		recommender,
		logger.Named("http"),
	)

	g, gCtx := errgroup.WithContext(ctx)

	g.Go(func() error {
		return httpServer.Start(gCtx)
	})

	logger.Info("Melodex started successfully",
		zap.String("http_addr", fmt.Sprintf("%s:%d", config.Server.Host, config.Server.Port)))

	if err := g.Wait(); err != nil {
		logger.Error("Melodex stopped with error", zap.Error(err))
		return err
	}

	logger.Info("Melodex stopped gracefully")
	return nil
}

func validateConfig() error {
	if config.YouTube.APIKey == "" {
		return fmt.Errorf("youTube API key is required")
	}

	if config.Spotify.ClientID == "" {
		return fmt.Errorf("spotify client ID is required")
	}

	if config.Spotify.ClientSecret == "" {
		return fmt.Errorf("spotify client secret is required")
	}

	if config.Cache.TrackCapacity <= 0 {
		return fmt.Errorf("track cache capacity must be positive")
	}

	if config.Server.Port <= 0 || config.Server.Port > 65535 {
		return fmt.Errorf("server port must be between 1 and 65535")
	}

	return nil
}
