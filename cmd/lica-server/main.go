package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io/fs"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/cognicore/lica/internal/logging"
	"github.com/cognicore/lica/internal/server"
	"github.com/cognicore/lica/pkg/lica/config"
	"github.com/cognicore/lica/pkg/lica/personalize"
)

func main() {
	var (
		configPath = flag.String("config", "", "YAML config file (optional)")
		envFile    = flag.String("env", ".env", "Dotenv file with LICA_* overrides")
	)
	flag.Parse()

	cfg, err := loadConfig(*configPath, *envFile, os.Getenv)
	if err != nil {
		fmt.Fprintln(os.Stderr, "config:", err)
		os.Exit(2)
	}

	log, err := logging.New(cfg.LogLevel, cfg.LogPretty)
	if err != nil {
		fmt.Fprintln(os.Stderr, "config:", err)
		os.Exit(2)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	loader := config.NewLoader(cfg)
	c, err := loader.Load(ctx)
	if err != nil {
		log.Fatal().Err(err).Str("source", loader.Source()).Msg("failed to build classifier")
	}
	st := c.Index().Stats()
	log.Info().
		Str("source", loader.Source()).
		Int("keywords", st.Keywords).
		Int("collisions", st.Collisions).
		Msg("classifier ready")

	srv := server.New(c, personalize.Profile(cfg.Interests), log)

	// only a plain directory can change underneath us
	if cfg.DataDir != "" && cfg.Database == "" {
		go func() {
			if err := srv.Watch(ctx, cfg.DataDir, loader.Load); err != nil {
				log.Error().Err(err).Msg("dataset watcher stopped")
			}
		}()
	}

	errCh := make(chan error, 1)
	go func() { errCh <- srv.Start(cfg.Listen) }()

	select {
	case err := <-errCh:
		if err != nil {
			log.Fatal().Err(err).Msg("server failed")
		}
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			log.Error().Err(err).Msg("shutdown failed")
		}
		log.Info().Msg("server stopped")
	}
}

// loadConfig reads the YAML file (or defaults), then applies LICA_* values.
// Real environment variables win over the dotenv file.
func loadConfig(path, envFile string, getenv func(string) string) (*config.Config, error) {
	cfg := config.Default()
	if path != "" {
		var err error
		if cfg, err = config.Load(path); err != nil {
			return nil, err
		}
	}

	dotenv := map[string]string{}
	if envFile != "" {
		vals, err := godotenv.Read(envFile)
		switch {
		case err == nil:
			dotenv = vals
		case !errors.Is(err, fs.ErrNotExist):
			return nil, fmt.Errorf("read %s: %w", envFile, err)
		}
	}

	err := cfg.ApplyEnv(func(key string) string {
		if v := getenv(key); v != "" {
			return v
		}
		return dotenv[key]
	})
	if err != nil {
		return nil, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}
