package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"github.com/nats-io/nats.go"
	"github.com/nats-io/nats.go/micro"
	"github.com/urfave/cli/v3"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gopkg.in/yaml.v3"

	"github.com/flarexio/ragbox"
	"github.com/flarexio/ragbox/persistence/chromem"
	"github.com/flarexio/ragbox/persistence/disk"
	"github.com/flarexio/ragbox/provider/openai"

	mcpE "github.com/flarexio/ragbox/mcp"
	httpT "github.com/flarexio/ragbox/transport/http"
	natsT "github.com/flarexio/ragbox/transport/nats"
)

func main() {
	// .env is optional
	_ = godotenv.Load()

	cmd := &cli.Command{
		Name:  "ragbox",
		Usage: "Session-scoped document store with retrieval-grounded answers",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "path",
				Usage:   "Path to the RAGBox data directory",
				Sources: cli.EnvVars("RAGBOX_PATH"),
			},
			&cli.StringFlag{
				Name:    "env",
				Usage:   "Logging environment (development, production)",
				Value:   "development",
				Sources: cli.EnvVars("RAGBOX_ENV"),
			},
			&cli.StringFlag{
				Name:    "log-level",
				Usage:   "Override the log level (debug, info, warn, error)",
				Sources: cli.EnvVars("LOG_LEVEL"),
			},
			&cli.StringFlag{
				Name:    "openai-api-key",
				Usage:   "API key of the OpenAI-compatible provider",
				Sources: cli.EnvVars("OPENAI_API_KEY"),
			},
			&cli.StringFlag{
				Name:    "openai-base-url",
				Usage:   "Base URL of the OpenAI-compatible provider",
				Sources: cli.EnvVars("OPENAI_BASE_URL"),
			},
			&cli.StringFlag{
				Name:    "nats",
				Usage:   "NATS server URL; the NATS transport is disabled when empty",
				Sources: cli.EnvVars("NATS_URL"),
			},
			&cli.StringFlag{
				Name:    "nats-creds",
				Usage:   "NATS user credentials file",
				Sources: cli.EnvVars("NATS_CREDS"),
			},
			&cli.StringFlag{
				Name:  "edge-id",
				Usage: "Edge ID used in the NATS topic",
			},
			&cli.BoolFlag{
				Name:  "http",
				Usage: "Enable HTTP transport",
				Value: true,
			},
			&cli.StringFlag{
				Name:    "port",
				Usage:   "HTTP server port",
				Value:   "5000",
				Sources: cli.EnvVars("PORT"),
			},
		},
		Action: run,
	}

	err := cmd.Run(context.Background(), os.Args)
	if err != nil {
		log.Fatal(err.Error())
	}
}

func newLogger(env string, level string) (*zap.Logger, error) {
	var cfg zap.Config
	switch env {
	case "production", "prod":
		cfg = zap.NewProductionConfig()
	case "development", "dev", "local":
		cfg = zap.NewDevelopmentConfig()
	default:
		return nil, fmt.Errorf("unknown environment %q for logger", env)
	}

	if level != "" {
		var lvl zapcore.Level
		if err := lvl.UnmarshalText([]byte(level)); err != nil {
			return nil, fmt.Errorf("invalid log level %q: %w", level, err)
		}

		cfg.Level = zap.NewAtomicLevelAt(lvl)
	}

	return cfg.Build(zap.AddStacktrace(zapcore.ErrorLevel))
}

func loadConfig(path string) (ragbox.Config, error) {
	var cfg ragbox.Config

	f, err := os.Open(filepath.Join(path, "config.yaml"))
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return cfg, nil
		}

		return cfg, err
	}
	defer f.Close()

	if err := yaml.NewDecoder(f).Decode(&cfg); err != nil {
		return cfg, err
	}

	return cfg, nil
}

func run(ctx context.Context, cmd *cli.Command) error {
	path := cmd.String("path")
	if path == "" {
		homeDir, err := os.UserHomeDir()
		if err != nil {
			return err
		}

		path = filepath.Join(homeDir, ".flarex", "ragbox")
	}

	log, err := newLogger(cmd.String("env"), cmd.String("log-level"))
	if err != nil {
		return err
	}
	defer log.Sync()

	zap.ReplaceGlobals(log)

	cfg, err := loadConfig(path)
	if err != nil {
		return err
	}

	if cfg.Storage.Path == "" {
		cfg.Storage.Path = filepath.Join(path, "uploads")
	}

	if apiKey := cmd.String("openai-api-key"); apiKey != "" {
		cfg.Provider.APIKey = apiKey
	}

	if baseURL := cmd.String("openai-base-url"); baseURL != "" {
		cfg.Provider.BaseURL = baseURL
	}

	if cfg.Provider.APIKey == "" {
		log.Warn("no provider api key configured; uploads and questions will fail")
	}

	docs, err := disk.NewDocumentStore(cfg.Storage)
	if err != nil {
		return err
	}

	indexes := chromem.NewIndexStore(docs, cfg.Vector)

	provider := openai.NewClient(cfg.Provider.OpenAI())

	svc := ragbox.NewService(cfg, docs, indexes, provider, provider)
	defer svc.Close()

	svc = ragbox.LoggingMiddleware(log)(svc)
	svc = ragbox.InstrumentingMiddleware(ragbox.NewPrometheusMetrics("ragbox"))(svc)

	endpoints := ragbox.MakeEndpoints(svc)

	// Add NATS Transport
	if natsURL := cmd.String("nats"); natsURL != "" {
		edgeID := cmd.String("edge-id")
		if edgeID == "" {
			idBytes, err := os.ReadFile(filepath.Join(path, "id"))
			if err != nil {
				return err
			}

			edgeID = strings.TrimSpace(string(idBytes))
		}

		opts := []nats.Option{
			nats.Name("RAGBox Server - " + edgeID),
		}

		if creds := cmd.String("nats-creds"); creds != "" {
			opts = append(opts, nats.UserCredentials(creds))
		}

		nc, err := nats.Connect(natsURL, opts...)
		if err != nil {
			return err
		}
		defer nc.Drain()

		srv, err := micro.AddService(nc, micro.Config{
			Name:    "ragbox",
			Version: "1.0.0",
		})

		if err != nil {
			return err
		}
		defer srv.Stop()

		topic := "edges." + edgeID + ".ragbox"

		root := srv.AddGroup(topic)
		natsT.AddEndpoints(root, endpoints)

		log.Info("nats transport enabled", zap.String("topic", topic))
	}

	if cmd.Bool("http") {
		r := gin.Default()
		httpT.AddRouters(r, endpoints)
		httpT.AddMetricsRouter(r)
		httpT.AddStreamableRouters(r, mcpE.MakeEndpoints(svc))

		srv := &http.Server{
			Addr:    ":" + cmd.String("port"),
			Handler: r,
		}

		go func() {
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				log.Error(err.Error())
			}
		}()

		defer func() {
			ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()

			srv.Shutdown(ctx)
		}()

		log.Info("http transport enabled", zap.String("addr", srv.Addr))
	}

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	sign := <-quit

	log.Info("graceful shutdown", zap.String("signal", sign.String()))
	return nil
}
