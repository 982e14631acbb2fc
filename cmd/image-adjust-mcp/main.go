package main

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/ironsheep/image-adjust-mcp/internal/config"
	"github.com/ironsheep/image-adjust-mcp/internal/handoff"
	"github.com/ironsheep/image-adjust-mcp/internal/server"
)

// Version information - set by ldflags during build
var (
	Version   = "dev"
	BuildTime = "unknown"
	GitCommit = "unknown"
)

func main() {
	// Handle --version and -v flags
	if len(os.Args) > 1 {
		switch os.Args[1] {
		case "--version", "-v", "version":
			fmt.Printf("image-adjust-mcp %s\n", Version)
			fmt.Printf("  Build time: %s\n", BuildTime)
			fmt.Printf("  Git commit: %s\n", GitCommit)
			return
		case "--help", "-h", "help":
			fmt.Println("image-adjust-mcp - MCP server for interactive image adjustment and export")
			fmt.Println()
			fmt.Println("Usage: image-adjust-mcp [options]")
			fmt.Println()
			fmt.Println("Options:")
			fmt.Println("  --version, -v    Print version information")
			fmt.Println("  --help, -h       Print this help message")
			fmt.Println()
			fmt.Println("Environment variables:")
			fmt.Println("  IMAGE_ADJUST_CONFIG=path        YAML configuration file")
			fmt.Println("  IMAGE_ADJUST_LOG_LEVEL=debug    Log level (debug, info, warn, error)")
			fmt.Println("  IMAGE_ADJUST_STORE=path         SQLite handoff store, or \"memory\"")
			fmt.Println()
			fmt.Println("This server communicates via MCP protocol over stdin/stdout.")
			fmt.Println("Configure it in your MCP client (e.g., Claude Desktop).")
			return
		}
	}

	cfg, err := config.FromEnv()
	if err != nil {
		fmt.Fprintf(os.Stderr, "image-adjust-mcp: %v\n", err)
		os.Exit(1)
	}

	// Log to stderr (stdout is for MCP protocol)
	level, _ := cfg.SlogLevel()
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
	logger.Debug("starting", "version", Version, "built", BuildTime, "commit", GitCommit,
		"store", cfg.Store.Driver)

	if err := run(cfg, logger); err != nil {
		logger.Error("server error", "error", err)
		os.Exit(1)
	}
}

func run(cfg *config.Config, logger *slog.Logger) error {
	store, err := handoff.Open(cfg.Store.Driver, cfg.Store.Path)
	if err != nil {
		return fmt.Errorf("failed to open handoff store: %w", err)
	}
	defer store.Close()

	return server.New(cfg, store, logger).Run()
}
