// Package main provides the stdio MCP entry point for the ThirdOp
// reasoning server. This version requires no external databases: feedback
// is stored in SQLite under the data directory.
package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/thirdop-reasoning-server/internal/config"
	"github.com/thirdop-reasoning-server/internal/mcp"
)

func main() {
	// Load lightweight configuration
	cfg := config.LoadLiteConfig()

	// stdout belongs to the MCP protocol; logs go to stderr.
	log.SetOutput(os.Stderr)
	log.Printf("Starting ThirdOp reasoning MCP server")
	log.Printf("Data directory: %s", cfg.DataDir)

	// Create MCP server
	server, err := mcp.NewServer(cfg)
	if err != nil {
		log.Fatalf("Failed to create MCP server: %v", err)
	}
	defer server.Close()

	// Setup graceful shutdown
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Handle shutdown signals
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		<-sigChan
		log.Println("Shutdown signal received, gracefully shutting down...")
		cancel()
	}()

	// Start MCP server
	if err := server.Run(ctx); err != nil {
		log.Fatalf("MCP server failed: %v", err)
	}

	log.Println("ThirdOp reasoning MCP server stopped")
}
