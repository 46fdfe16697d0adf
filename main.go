package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/Myykall/techhelper-ai/internal/chat"
	"github.com/Myykall/techhelper-ai/internal/config"
	"github.com/Myykall/techhelper-ai/internal/notify"
	"github.com/Myykall/techhelper-ai/internal/policy"
	"github.com/Myykall/techhelper-ai/internal/provider"
	"github.com/Myykall/techhelper-ai/internal/store"
	transporthttp "github.com/Myykall/techhelper-ai/internal/transport/http"
	"github.com/Myykall/techhelper-ai/internal/transport/ws"
)

func main() {
	// Load configuration
	cfg := config.Load()

	log.Printf("Starting chat gateway...")
	log.Printf("HTTP Port: %d", cfg.HTTPPort)
	log.Printf("AI provider: %s", cfg.Provider)

	// Resolve the configured provider. A misconfigured provider is not
	// fatal: the gateway degrades to placeholder responses.
	var prov provider.Provider
	registry, err := provider.NewRegistry(cfg)
	if err != nil {
		log.Printf("WARN: failed to build provider registry: %v", err)
		log.Printf("Falling back to placeholder responses")
	} else if prov, err = registry.Resolve(""); err != nil {
		log.Printf("WARN: failed to initialize provider %q: %v", cfg.Provider, err)
		log.Printf("Falling back to placeholder responses")
		prov = nil
	} else {
		log.Printf("AI provider ready: %s", prov.Name())
	}

	// Initialize session store
	sessions := store.NewMemory("")

	// Initialize escalation notifier
	var notifier notify.Notifier
	if cfg.EscalationDB != "" {
		sqliteLog, err := notify.NewSQLiteLog(cfg.EscalationDB)
		if err != nil {
			log.Printf("WARN: failed to open escalation database: %v", err)
			notifier = notify.LogNotifier{}
		} else {
			defer sqliteLog.Close()
			notifier = sqliteLog
		}
	} else {
		notifier = notify.LogNotifier{}
	}

	// Initialize escalation policy engine
	ctx := context.Background()
	policyEngine, err := policy.NewEngine(ctx, policy.DefaultPolicy)
	if err != nil {
		log.Fatalf("Failed to initialize policy engine: %v", err)
	}

	// Initialize orchestrator and transports
	orchestrator := chat.New(sessions, prov)
	handler := transporthttp.NewHandler(orchestrator, sessions, notifier, policyEngine, cfg.Provider)
	server := transporthttp.NewServer(handler)
	ws.NewServer(orchestrator, sessions).RegisterRoutes(server)

	// Reap idle sessions in the background
	reapDone := make(chan struct{})
	go func() {
		ticker := time.NewTicker(cfg.ReapInterval)
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				if removed := sessions.Reap(cfg.SessionMaxAge); removed > 0 {
					log.Printf("Reaped %d idle sessions", removed)
				}
			case <-reapDone:
				return
			}
		}
	}()

	// Start server
	go func() {
		addr := fmt.Sprintf(":%d", cfg.HTTPPort)
		if err := server.Start(addr); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Failed to start server: %v", err)
		}
	}()

	log.Printf("Chat gateway started on port %d", cfg.HTTPPort)

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Println("Shutting down chat gateway...")
	close(reapDone)

	// Graceful shutdown
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Printf("Failed to shutdown server gracefully: %v", err)
	}

	log.Println("Chat gateway stopped")
}
