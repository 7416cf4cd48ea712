// Package main is the entry point for the terminal-awareness MCP server.
// It exposes shell command execution and liveness classification as MCP
// tools over newline-delimited JSON-RPC on stdio.
package main

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"go.uber.org/zap"

	"github.com/vladnoskv/mcp-terminal-awareness/internal/completionsink"
	"github.com/vladnoskv/mcp-terminal-awareness/internal/config"
	"github.com/vladnoskv/mcp-terminal-awareness/internal/logging"
	"github.com/vladnoskv/mcp-terminal-awareness/internal/sessionstore"
	"github.com/vladnoskv/mcp-terminal-awareness/internal/terminalmcp"
)

func main() {
	cfg := config.Load()

	log, err := logging.NewLogger(logging.Config{
		Level:      cfg.LogLevel,
		Format:     cfg.LogFormat,
		OutputPath: "stderr",
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	logging.SetDefault(log)
	defer func() { _ = log.Sync() }()

	log.Info("starting terminal-awareness",
		zap.Bool("use_pty", cfg.UsePTY),
		zap.Int("max_sessions", cfg.MaxSessions),
		zap.Duration("session_timeout", cfg.SessionTimeout))

	store := sessionstore.New(cfg.SessionTimeout)
	sink := completionsink.Logging{Log: func(rec completionsink.Record) {
		log.Debug("session completed",
			zap.String("command", rec.Command),
			zap.Int("exit_code", rec.ExitCode),
			zap.Int64("duration_ms", rec.DurationMs))
	}}

	srv := terminalmcp.New(cfg, store, sink, log)

	run(srv, log)
}

// run serves the MCP server until stdin closes or a shutdown signal
// arrives, then exits with a status code matching the outcome.
func run(srv *terminalmcp.Server, log *logging.Logger) {
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	done := make(chan error, 1)
	go func() { done <- srv.ServeStdio() }()

	select {
	case err := <-done:
		if err != nil {
			log.Error("terminal-awareness stopped with error", zap.Error(err))
			os.Exit(1)
		}
		log.Info("terminal-awareness stopped: stdin closed")
		os.Exit(0)
	case sig := <-quit:
		log.Info("terminal-awareness shutting down", zap.String("signal", sig.String()))
		os.Exit(0)
	}
}
