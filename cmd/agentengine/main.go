package main

import (
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	engine "github.com/asmbli/agentengine"
	"github.com/asmbli/agentengine/mcpserver"
	redisstore "github.com/asmbli/agentengine/storage/redis"
	sqlitestore "github.com/asmbli/agentengine/storage/sqlite"
	"github.com/asmbli/agentengine/templates"

	goredis "github.com/redis/go-redis/v9"
)

var (
	// Version info (set by ldflags)
	Version   = "dev"
	GitCommit = "unknown"
	BuildDate = "unknown"
)

func main() {
	var (
		dataDir     = flag.String("data", "", "data directory (default: ~/.agentengine)")
		backend     = flag.String("backend", "file", "storage backend (file, sqlite, redis, memory)")
		redisAddr   = flag.String("redis-addr", "localhost:6379", "redis address (backend=redis)")
		catalogDir  = flag.String("catalog", "", "directory of template JSON files to watch")
		documentID  = flag.String("document", "", "canvas document id to load on startup")
		logLevel    = flag.String("log-level", "info", "log level (debug, info, warn, error)")
		showVersion = flag.Bool("version", false, "show version information")
	)
	flag.Parse()

	if *showVersion {
		fmt.Printf("agentengine %s (%s) built %s\n", Version, GitCommit, BuildDate)
		os.Exit(0)
	}

	// Logs go to stderr; stdout belongs to the MCP transport.
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: parseLogLevel(*logLevel),
	}))
	slog.SetDefault(logger)

	if *dataDir == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			logger.Error("cannot determine home directory", "error", err)
			os.Exit(1)
		}
		*dataDir = filepath.Join(home, ".agentengine")
	}
	if err := os.MkdirAll(*dataDir, 0755); err != nil {
		logger.Error("cannot create data directory", "dir", *dataDir, "error", err)
		os.Exit(1)
	}

	storage, closeStorage, err := openStorage(*backend, *dataDir, *redisAddr)
	if err != nil {
		logger.Error("failed to open storage", "backend", *backend, "error", err)
		os.Exit(1)
	}
	defer closeStorage()

	store := engine.NewDocumentStore(storage)

	// Canvas engine, optionally resumed from a stored document.
	var opts []engine.Option
	if *documentID != "" {
		doc, err := store.LoadDocument(*documentID)
		if err != nil {
			logger.Error("failed to load document", "id", *documentID, "error", err)
			os.Exit(1)
		}
		opts = append(opts, engine.WithDocument(doc))
	}
	canvas, err := engine.NewCanvasEngine(opts...)
	if err != nil {
		logger.Error("failed to create canvas engine", "error", err)
		os.Exit(1)
	}

	unsubChange := canvas.OnDocumentChange(func(change engine.DocumentChange) {
		logger.Debug("document changed", "type", change.Type, "element", change.ElementID)
		if err := store.SaveDocument(canvas.GetState()); err != nil {
			logger.Warn("failed to persist document", "error", err)
		}
	})
	defer unsubChange()

	unsubErr := canvas.OnError(func(err error) {
		logger.Error("canvas engine error", "error", err)
	})
	defer unsubErr()

	// Template catalog seeded with the built-in templates.
	manager := engine.NewTemplateManager(templates.Builtin()...)
	unsubCatalog := manager.OnCatalogChange(func(event engine.TemplateEvent) {
		logger.Debug("catalog changed", "type", event.Type, "template", event.TemplateID, "source", event.Source)
	})
	defer unsubCatalog()

	if *catalogDir != "" {
		watcher := engine.NewCatalogWatcher(manager)
		if err := watcher.Start(engine.CatalogWatcherConfig{
			Dir:           *catalogDir,
			DebounceDelay: engine.DefaultDebounceDelay * time.Millisecond,
		}); err != nil {
			logger.Error("failed to start catalog watcher", "dir", *catalogDir, "error", err)
			os.Exit(1)
		}
		defer watcher.Stop()
		logger.Info("watching template catalog", "dir", *catalogDir)
	}

	// Shut the process down cleanly on SIGINT/SIGTERM. ServeStdio also
	// returns when stdin closes, which is the usual MCP shutdown path.
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigCh
		logger.Info("received signal, shutting down", "signal", sig)
		os.Exit(0)
	}()

	srv := mcpserver.New(mcpserver.Deps{
		Templates: manager,
		Canvas:    canvas,
	})

	logger.Info("starting MCP stdio server",
		"version", Version,
		"backend", *backend,
		"templates", len(manager.AllTemplates()),
	)
	if err := srv.ServeStdio(); err != nil {
		logger.Error("MCP server error", "error", err)
		os.Exit(1)
	}
}

func openStorage(backend, dataDir, redisAddr string) (engine.Storage, func(), error) {
	switch backend {
	case "file":
		s, err := engine.NewFileStorage(filepath.Join(dataDir, "storage"))
		if err != nil {
			return nil, nil, err
		}
		return s, func() {}, nil
	case "sqlite":
		s, err := sqlitestore.Open(filepath.Join(dataDir, "agentengine.db"))
		if err != nil {
			return nil, nil, err
		}
		return s, func() { s.Close() }, nil
	case "redis":
		client := goredis.NewClient(&goredis.Options{Addr: redisAddr})
		s := redisstore.New(client, "agentengine")
		return s, func() { client.Close() }, nil
	case "memory":
		return engine.NewMemoryStorage(), func() {}, nil
	default:
		return nil, nil, fmt.Errorf("unknown storage backend %q", backend)
	}
}

func parseLogLevel(level string) slog.Level {
	switch level {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
