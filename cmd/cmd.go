// Package cmd provides CLI commands for Kanpan.
//
// Commands:
//   - serve: HTTP API server with SSE streaming (chat + research reports)
//   - version: build and configuration information
//
// Signal handling and graceful shutdown are implemented via context
// cancellation.
package cmd

import (
	"fmt"
	"log/slog"
	"os"
)

// Execute is the main entry point for the Kanpan CLI application.
func Execute() error {
	// Initialize logger once at entry point
	level := slog.LevelInfo
	if os.Getenv("DEBUG") != "" {
		level = slog.LevelDebug
	}
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level})))

	if len(os.Args) < 2 {
		runHelp()
		return nil
	}

	switch os.Args[1] {
	case "serve":
		return runServe()
	case "version", "--version", "-v":
		runVersion()
		return nil
	case "help", "--help", "-h":
		runHelp()
		return nil
	default:
		return fmt.Errorf("unknown command: %s", os.Args[1])
	}
}

// runHelp displays the help message.
func runHelp() {
	fmt.Println("Kanpan - AI research report and chat server")
	fmt.Println()
	fmt.Println("Usage:")
	fmt.Println("  kanpan serve [addr] Start HTTP API server (default: 127.0.0.1:3500)")
	fmt.Println("  kanpan --version    Show version information")
	fmt.Println("  kanpan --help       Show this help")
	fmt.Println()
	fmt.Println("Environment Variables:")
	fmt.Println("  GEMINI_API_KEY     Required for the gemini provider")
	fmt.Println("  OPENAI_API_KEY     Required for the openai provider")
	fmt.Println("  TUSHARE_TOKEN      Required for serve: financial data provider token")
	fmt.Println("  DEBUG              Optional: Enable debug logging")
	fmt.Println()
	fmt.Println("Learn more: https://github.com/kanpan0/kanpan")
}
