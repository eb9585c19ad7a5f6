package main

import (
	"context"
	"fmt"
	"log"
	"os"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
	"github.com/spf13/cobra"

	"github.com/SmartLoan360X/server/internal/agent/graph"
	"github.com/SmartLoan360X/server/internal/agent/model"
	"github.com/SmartLoan360X/server/internal/agent/repo"
	"github.com/SmartLoan360X/server/internal/api"
	"github.com/SmartLoan360X/server/internal/core"
	"github.com/SmartLoan360X/server/internal/events"
	"github.com/SmartLoan360X/server/internal/upload"
	logx "github.com/SmartLoan360X/server/pkg/logger"
	pkgredis "github.com/SmartLoan360X/server/pkg/redis"
)

// AppConfig defines all configurable parameters of the assistant,
// sourced from environment variables (loaded from .env for local runs).
type AppConfig struct {
	Environment core.Environment `envconfig:"ENVIRONMENT" default:"development"`
	LogLevel    string           `envconfig:"LOG_LEVEL"`

	// Infrastructure
	Redis pkgredis.Config
	NATS  events.Config
	HTTP  api.Config

	// LLM provider. An empty key runs the assistant offline.
	APIKey  string `envconfig:"GEMINI_API_KEY"`
	BaseURL string `envconfig:"GEMINI_BASE_URL"`

	// Agent configs
	Response     model.ResponseModelConfig
	Underwriting model.UnderwritingConfig
	Session      model.SessionConfig
	KYC          model.KYCConfig
	Upload       model.UploadConfig
	Letter       model.LetterConfig
}

func loadConfig(envFile string) (AppConfig, error) {
	if err := godotenv.Load(envFile); err != nil {
		log.Printf("Warning: Could not load %s file: %v", envFile, err)
	}
	var cfg AppConfig
	if err := envconfig.Process("", &cfg); err != nil {
		return cfg, fmt.Errorf("process environment config: %w", err)
	}
	return cfg, nil
}

// app holds the wired components shared by the serve and chat commands.
type app struct {
	cfg          AppConfig
	orchestrator *graph.Orchestrator
	uploads      *upload.Store
	closers      []func()
}

func (a *app) Close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		a.closers[i]()
	}
}

// bootstrap wires the shared components. fallback receives domain events when
// NATS is not configured.
func bootstrap(ctx context.Context, cfg AppConfig, fallback events.Publisher) (*app, error) {
	logx.Init(logx.LoggerOpts{Environment: cfg.Environment, Level: cfg.LogLevel})
	a := &app{cfg: cfg}

	var sessions model.SessionRepository = repo.NewMemorySessionRepository()
	if cfg.Redis.Enabled() {
		rdb, err := cfg.Redis.New(ctx)
		if err != nil {
			return nil, fmt.Errorf("initialise redis client: %w", err)
		}
		a.closers = append(a.closers, func() { _ = rdb.Close() })
		sessions = repo.NewRedisSessionRepository(rdb, cfg.Session.TTL)
		logx.Info().Msg("Connected to Redis successfully")
	} else {
		logx.Warn().Msg("REDIS_URL not set, sessions are kept in memory")
	}

	publisher := fallback
	if cfg.NATS.Enabled() {
		p, err := events.Connect(cfg.NATS)
		if err != nil {
			a.Close()
			return nil, err
		}
		a.closers = append(a.closers, p.Close)
		publisher = p
	}

	store, err := upload.NewStore(cfg.Upload)
	if err != nil {
		a.Close()
		return nil, err
	}
	a.uploads = store

	o, err := graph.BuildResponseGraph(ctx, graph.Config{
		APIKey:        cfg.APIKey,
		BaseURL:       cfg.BaseURL,
		ResponseModel: cfg.Response,
		Underwriting:  cfg.Underwriting,
		Session:       cfg.Session,
		KYC:           cfg.KYC,
		Letter:        cfg.Letter,
		Sessions:      sessions,
		Publisher:     publisher,
	})
	if err != nil {
		a.Close()
		return nil, fmt.Errorf("build graph: %w", err)
	}
	a.orchestrator = o
	return a, nil
}

func newRootCmd() *cobra.Command {
	var envFile string
	root := &cobra.Command{
		Use:           "smartloan",
		Short:         "SmartLoan360X conversational loan assistant",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVar(&envFile, "env-file", ".env", "dotenv file to load before reading the environment")

	root.AddCommand(newServeCmd(&envFile), newChatCmd(&envFile))
	return root
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}
