package main

import (
	"context"
	"errors"
	"os"

	"github.com/desertthunder/spindle/internal/services"
	"github.com/desertthunder/spindle/internal/shared"
	"github.com/urfave/cli/v3"
	"golang.org/x/oauth2"
)

const defaultConfigPath = "config.toml"

func main() {
	logger := shared.NewLogger(nil)

	configPath := defaultConfigPath
	if p := os.Getenv("SPINDLE_CONFIG"); p != "" {
		configPath = p
	}

	config := shared.DefaultConfig()
	if _, err := os.Stat(configPath); err == nil {
		if loadedConfig, err := shared.LoadConfig(configPath); err == nil {
			config = loadedConfig
		} else {
			logger.Warn("failed to load config, using defaults", "path", configPath, "error", err)
		}
	}
	shared.SetLogLevel(logger, shared.ParseLogLevel(config.Logging.Level))

	runner := NewRunner(RunnerOpts{
		Config:     config,
		ConfigPath: configPath,
		Logger:     logger,
	})

	if spotify := connectSpotify(context.Background(), runner); spotify != nil {
		runner.spotify = spotify
	}

	app := &cli.Command{
		Name:     "spindle",
		Usage:    "Control Spotify playback and keep a local copy of your saved tracks",
		Version:  "0.1.0",
		Commands: runner.register(),
	}

	if err := app.Run(context.Background(), os.Args); err != nil {
		if errors.Is(err, shared.ErrNotImplemented) {
			logger.Warn("not implemented")
			os.Exit(0)
		}
		logger.Fatalf("application error: %v", err)
	}
}

// connectSpotify builds an authenticated Spotify service from the stored credentials.
//
// Returns nil when credentials or tokens are missing; commands report that on use.
func connectSpotify(ctx context.Context, r *Runner) *services.SpotifyService {
	creds := r.config.Credentials.Spotify
	if creds.ClientID == "" || creds.ClientSecret == "" || creds.AccessToken == "" {
		return nil
	}

	svc, err := services.NewSpotifyService(creds.Map())
	if err != nil {
		r.logger.Debug("spotify service unavailable", "error", err)
		return nil
	}

	svc.SetTokenRefreshCallback(func(token *oauth2.Token) {
		if err := r.saveTokens(token); err != nil {
			r.logger.Warn("failed to persist refreshed token", "error", err)
		}
	})
	if err := svc.Authenticate(ctx, creds.Map()); err != nil {
		r.logger.Debug("spotify authentication failed", "error", err)
		return nil
	}
	if market := r.config.Library.Market; market != "" {
		svc.SetMarket(market)
	}
	return svc
}
