// Package main provides the entry point for tally.
//
// tally is a calculator service providing:
// - REST API for programmatic access
// - MCP server so AI assistants can use the calculator as a tool
// - Interactive REPL for the terminal
// - Persistent per-session calculator state
//
// Usage:
//
//	tally                    Start the service (default)
//	tally serve              Start the service
//	tally repl               Start an interactive calculator
//	tally mcp                Start MCP server (stdio mode)
//	tally version            Show version
//	tally status             Show service status
//	tally stop               Stop the running service
package main

import (
	"fmt"
	"os"

	"github.com/tallyhq/tally/internal/api"
	"github.com/tallyhq/tally/internal/config"
	"github.com/tallyhq/tally/internal/logger"
	"github.com/tallyhq/tally/internal/mcp"
	"github.com/tallyhq/tally/internal/repl"
	"github.com/tallyhq/tally/internal/service"
	"github.com/tallyhq/tally/pkg/calc"
	"github.com/tallyhq/tally/pkg/session"
)

// version is set via -ldflags at build time
var version = "dev"

func main() {
	// Set version in API package
	api.SetVersion(version)

	if len(os.Args) < 2 {
		// Default: start service
		if err := cmdServe(); err != nil {
			fmt.Fprintf(os.Stderr, "error: %v\n", err)
			os.Exit(1)
		}
		return
	}

	var err error
	switch os.Args[1] {
	case "serve", "start":
		err = cmdServe()
	case "repl", "calc":
		err = cmdREPL()
	case "mcp", "mcp-server":
		err = cmdMCP()
	case "version", "-v", "--version":
		cmdVersion()
	case "status":
		err = cmdStatus()
	case "stop":
		err = cmdStop()
	case "help", "-h", "--help":
		printUsage()
	default:
		fmt.Fprintf(os.Stderr, "unknown command: %s\n", os.Args[1])
		printUsage()
		os.Exit(1)
	}

	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func printUsage() {
	fmt.Println(`tally - Calculator service

Usage:
  tally [command]

Commands:
  serve         Start the service (default)
  repl          Start an interactive calculator
  mcp           Start MCP server (stdio mode for AI assistants)
  version       Show version information
  status        Show service status
  stop          Stop the running service
  help          Show this help

Configuration:
  Config file: ~/.tally/config.yaml (or $APPDATA/tally on Windows)

Examples:
  tally                              Start the service
  tally repl                         Calculate interactively
  curl localhost:8230/health         Check service health
  curl localhost:8230/sessions       List calculator sessions`)
}

func cmdVersion() {
	fmt.Printf("tally version %s\n", version)
}

// loadKeymap resolves the keymap for the configured profile, falling
// back to the defaults when none is set.
func loadKeymap(cfg *config.Config) (*calc.Keymap, error) {
	if cfg.Sessions.Keymap == "" {
		return calc.DefaultKeymap(), nil
	}
	km, err := calc.LoadKeymap(cfg.Sessions.Keymap)
	if err != nil {
		return nil, fmt.Errorf("load keymap %s: %w", cfg.Sessions.Keymap, err)
	}
	return km, nil
}

// newStore builds the session store per the persistence settings.
func newStore(cfg *config.Config) (*session.Store, error) {
	km, err := loadKeymap(cfg)
	if err != nil {
		return nil, err
	}

	dir := ""
	if cfg.Sessions.Persist {
		dir = cfg.SessionsDir()
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("create sessions directory: %w", err)
		}
	}

	return session.NewStore(dir, session.WithKeymap(km))
}

func cmdServe() error {
	// Load configuration
	cfg, err := config.Load(config.DefaultConfigPath())
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	log := logger.SetupLogger(cfg)
	defer logger.Stop()

	// Check if already running
	if running, pid := service.IsRunning(cfg); running {
		return fmt.Errorf("service already running (PID %d)", pid)
	}

	// Create session store
	store, err := newStore(cfg)
	if err != nil {
		return fmt.Errorf("create store: %w", err)
	}

	// Create API server
	apiServer := api.NewServer(cfg, store)

	// Create daemon
	daemon := service.NewDaemon(cfg)
	daemon.OnShutdown(func() {
		if err := store.SaveAll(); err != nil {
			log.Warn().Err(err).Msg("Save sessions on shutdown")
		}
	})

	// Reload logging settings when the config file changes
	watcher, err := config.NewWatcher(config.DefaultConfigPath(), func(next *config.Config) {
		logger.SetupLogger(next)
	})
	if err == nil {
		if err := watcher.Start(); err == nil {
			defer watcher.Stop()
		}
	}

	// Start service
	if err := daemon.Start(apiServer.Handler()); err != nil {
		return fmt.Errorf("start daemon: %w", err)
	}

	fmt.Printf("tally v%s started on %s\n", version, cfg.Address())
	fmt.Printf("API: http://%s/sessions\n", cfg.Address())

	// Wait for shutdown signal
	daemon.Wait()

	return nil
}

func cmdREPL() error {
	cfg, err := config.Load(config.DefaultConfigPath())
	if err != nil {
		cfg = config.DefaultConfig()
	}

	km, err := loadKeymap(cfg)
	if err != nil {
		return err
	}

	sess := session.NewMemorySession("repl", km)
	return repl.New(sess, os.Stdin, os.Stdout).Run()
}

func cmdStatus() error {
	cfg, err := config.Load(config.DefaultConfigPath())
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	running, pid := service.IsRunning(cfg)
	if running {
		fmt.Printf("tally: running (PID %d)\n", pid)
		fmt.Printf("Address: %s\n", cfg.Address())
	} else {
		fmt.Println("tally: stopped")
	}

	return nil
}

func cmdStop() error {
	cfg, err := config.Load(config.DefaultConfigPath())
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	running, pid := service.IsRunning(cfg)
	if !running {
		fmt.Println("tally is not running")
		return nil
	}

	fmt.Printf("Stopping tally (PID %d)...\n", pid)
	if err := service.StopRunning(cfg); err != nil {
		return err
	}

	fmt.Println("tally stopped")
	return nil
}

func cmdMCP() error {
	// Load config; stdio mode works with defaults when none exists
	cfg, err := config.Load(config.DefaultConfigPath())
	if err != nil {
		cfg = config.DefaultConfig()
	}

	store, err := newStore(cfg)
	if err != nil {
		return fmt.Errorf("create store: %w", err)
	}
	defer func() {
		_ = store.SaveAll()
	}()

	mcpServer := mcp.NewServer(store, cfg.MCP.Session, version)
	return mcpServer.ServeStdio()
}
