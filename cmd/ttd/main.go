// File path: cmd/ttd/main.go
package main

import (
	"context"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/nicodishanthj/talkdata/internal/api"
	"github.com/nicodishanthj/talkdata/internal/catalog"
	"github.com/nicodishanthj/talkdata/internal/common"
	"github.com/nicodishanthj/talkdata/internal/llm"
	"github.com/nicodishanthj/talkdata/internal/orchestrator"
	"github.com/nicodishanthj/talkdata/internal/prompt"
	"github.com/nicodishanthj/talkdata/internal/session"
)

func main() {
	logger := common.Logger()

	if err := godotenv.Load(); err != nil {
		logger.Warn("talkdata: .env file not loaded", "error", err)
	} else {
		logger.Info("talkdata: environment loaded from .env")
	}

	addr := flag.String("addr", ":8082", "listen address")
	catalogPath := flag.String("catalog", "", "path to the SQLite catalog database")
	execTimeout := flag.String("exec-timeout", "", "per-query execution time limit (e.g. 10s)")
	oracleTimeout := flag.String("oracle-timeout", "", "timeout for a single oracle call")
	flag.Parse()

	logger.Info("talkdata: startup initiated", "addr", *addr)

	catalogCfg := catalog.LoadConfig()
	if trimmed := strings.TrimSpace(*catalogPath); trimmed != "" {
		catalogCfg.Path = trimmed
	}
	store, err := catalog.Open(catalogCfg)
	if err != nil {
		logger.Error("talkdata: catalog open failed", "path", catalogCfg.Path, "error", err)
		fmt.Println("catalog error:", err)
		os.Exit(1)
	}
	defer store.Close()
	logger.Info("talkdata: catalog ready", "path", catalogCfg.Path)

	registry := session.NewRegistry(store)
	defer registry.Close()

	provider := llm.NewProvider()
	logger.Info("talkdata: llm provider ready", "provider", provider.Name())

	builder := prompt.NewBuilder(prompt.LoadConfig())

	orchCfg := orchestrator.LoadConfig()
	if trimmed := strings.TrimSpace(*execTimeout); trimmed != "" {
		dur, err := time.ParseDuration(trimmed)
		if err != nil {
			logger.Error("talkdata: invalid exec timeout", "value", trimmed, "error", err)
			fmt.Println("exec timeout error:", err)
			os.Exit(1)
		}
		orchCfg.ExecTimeout = dur
	}
	if trimmed := strings.TrimSpace(*oracleTimeout); trimmed != "" {
		dur, err := time.ParseDuration(trimmed)
		if err != nil {
			logger.Error("talkdata: invalid oracle timeout", "value", trimmed, "error", err)
			fmt.Println("oracle timeout error:", err)
			os.Exit(1)
		}
		orchCfg.OracleTimeout = dur
	}
	orch := orchestrator.New(registry, provider, builder, store, orchCfg)

	server, err := api.NewServer(registry, store, orch, provider, builder)
	if err != nil {
		logger.Error("talkdata: server construction failed", "error", err)
		fmt.Println("server error:", err)
		os.Exit(1)
	}

	httpServer := &http.Server{
		Addr:              *addr,
		Handler:           server,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("talkdata: server listening", "addr", *addr, "health", "/healthz")
		fmt.Printf("Serving on %s\n", *addr)
		errCh <- httpServer.ListenAndServe()
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)

	select {
	case sig := <-stop:
		logger.Info("talkdata: shutdown signal received", "signal", sig.String())
	case err := <-errCh:
		if err != nil && err != http.ErrServerClosed {
			logger.Error("talkdata: server stopped", "error", err)
			fmt.Println("server stopped:", err)
			os.Exit(1)
		}
		return
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		logger.Error("talkdata: graceful shutdown failed", "error", err)
	}
	logger.Info("talkdata: shutdown complete")
}
