package cli

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/apimimic/mimicd/pkg/config"
	"github.com/apimimic/mimicd/pkg/engine"
	"github.com/apimimic/mimicd/pkg/logging"
	"github.com/apimimic/mimicd/pkg/persist"
)

// shutdownTimeout bounds graceful shutdown before the process exits anyway.
const shutdownTimeout = 15 * time.Second

type serveFlags struct {
	configPath    string
	apiPath       string
	authPath      string
	endpointsPath string

	host string
	port int

	redisAddr     string
	redisPassword string
	redisDB       int
	redisPrefix   string

	logLevel    string
	logFormat   string
	historySize int
}

var serveFlagVals serveFlags

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the mock server",
	Long: `Start the mock server from a configuration file.

Configuration is either one combined document (--config) or the three
separate documents (--api, --auth, --endpoints). The endpoint set can be
reloaded at runtime with SIGHUP or POST /__mimicd/reload; a reload that
fails validation keeps the current configuration serving.`,
	Example: `  # Combined config on the default port
  mimicd serve --config mocks.json

  # Split documents, custom port
  mimicd serve --api api.json --auth auth.json --endpoints endpoints.json --port 3000

  # Redis-backed entity store for stateful endpoints
  mimicd serve --config mocks.json --redis-addr localhost:6379`,
	RunE: func(cmd *cobra.Command, _ []string) error {
		return runServe(cmd.Context(), serveFlagVals)
	},
}

func init() {
	f := serveCmd.Flags()
	f.StringVarP(&serveFlagVals.configPath, "config", "c", "", "combined configuration file (JSON or YAML)")
	f.StringVar(&serveFlagVals.apiPath, "api", "", "API metadata document")
	f.StringVar(&serveFlagVals.authPath, "auth", "", "auth-method declarations document")
	f.StringVar(&serveFlagVals.endpointsPath, "endpoints", "", "endpoint list document")
	f.StringVar(&serveFlagVals.host, "host", "", "listen host (default all interfaces)")
	f.IntVarP(&serveFlagVals.port, "port", "p", 8080, "listen port")
	f.StringVar(&serveFlagVals.redisAddr, "redis-addr", "", "Redis address for the entity store (host:port); in-memory store when empty")
	f.StringVar(&serveFlagVals.redisPassword, "redis-password", "", "Redis password")
	f.IntVar(&serveFlagVals.redisDB, "redis-db", 0, "Redis database number")
	f.StringVar(&serveFlagVals.redisPrefix, "redis-prefix", "mimicd:", "key prefix for stored entities")
	f.StringVar(&serveFlagVals.logLevel, "log-level", "info", "log level (debug, info, warn, error)")
	f.StringVar(&serveFlagVals.logFormat, "log-format", "text", "log format (text, json)")
	f.IntVar(&serveFlagVals.historySize, "history-size", 1000, "request history capacity")
}

func loadConfig(flags serveFlags) (*config.Document, error) {
	if flags.configPath != "" {
		return config.Load(flags.configPath)
	}
	if flags.endpointsPath != "" {
		return config.LoadFiles(flags.apiPath, flags.authPath, flags.endpointsPath)
	}
	return nil, fmt.Errorf("either --config or --endpoints is required")
}

func runServe(ctx context.Context, flags serveFlags) error {
	log := logging.New(logging.Options{Level: flags.logLevel, Format: flags.logFormat})

	doc, err := loadConfig(flags)
	if err != nil {
		return err
	}
	snap, err := engine.BuildSnapshot(doc)
	if err != nil {
		return err
	}
	log.Info("configuration loaded", "api", doc.API.Name, "endpoints", len(doc.Endpoints))

	var store persist.Store
	if flags.redisAddr != "" {
		store, err = persist.NewRedisStore(ctx, persist.RedisOptions{
			Addr:      flags.redisAddr,
			Password:  flags.redisPassword,
			DB:        flags.redisDB,
			KeyPrefix: flags.redisPrefix,
		})
		if err != nil {
			return err
		}
		log.Info("entity store connected", "backend", "redis", "addr", flags.redisAddr)
	} else {
		store = persist.NewMemoryStore()
		log.Info("entity store in memory; entities are lost on restart")
	}

	eng := engine.New(snap, engine.Options{
		Store:       store,
		Logger:      log,
		HistorySize: flags.historySize,
		Reload: func() (*engine.Snapshot, error) { return reloadSnapshot(flags) },
	})

	server := engine.NewServer(eng, engine.ServerOptions{Host: flags.host, Port: flags.port})

	errCh := make(chan error, 1)
	go func() {
		errCh <- server.Start()
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM, syscall.SIGHUP)
	defer signal.Stop(sigCh)

	for {
		select {
		case err := <-errCh:
			return err
		case sig := <-sigCh:
			if sig == syscall.SIGHUP {
				if newSnap, err := reloadSnapshot(flags); err != nil {
					log.Error("reload failed, keeping current configuration", "error", err)
				} else {
					eng.Swap(newSnap)
				}
				continue
			}
			log.Info("shutting down", "signal", sig.String())
			shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
			defer cancel()
			return server.Shutdown(shutdownCtx)
		}
	}
}

func reloadSnapshot(flags serveFlags) (*engine.Snapshot, error) {
	doc, err := loadConfig(flags)
	if err != nil {
		return nil, err
	}
	return engine.BuildSnapshot(doc)
}
