package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"knowledge-chat-be/internal/bootstrap"
	"knowledge-chat-be/internal/config"
	"knowledge-chat-be/internal/server"
	"knowledge-chat-be/internal/tracer"
	"knowledge-chat-be/pkg/database"

	"github.com/fatih/color"
	"gorm.io/gorm"
)

func main() {
	// 1. Load Configuration
	cfg := config.Load()

	// 2. Tracer (no-op unless OTEL_ENABLED=true)
	shutdownTracer := tracer.InitTracer(cfg.App.InstanceID)
	defer shutdownTracer(context.Background())

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// 3. Database is optional
	var gormDB *gorm.DB
	if cfg.Database.Connection != "" {
		db, err := database.NewGormDBFromDSN(cfg.Database.Connection, cfg.App.Environment)
		if err != nil {
			log.Panicf("Unable to connect to GORM DB: %v", err)
		}
		gormDB = db
	}

	// 4. Bootstrap Dependencies (Container)
	container, err := bootstrap.NewContainer(ctx, gormDB, cfg)
	if err != nil {
		log.Fatalf("[FATAL] %v", err)
	}
	defer container.Close()

	// 5. Background Services
	if err := container.ConsumerService.Consume(ctx); err != nil {
		log.Fatalf("[FATAL] Failed to start refresh consumer: %v", err)
	}

	container.KnowledgeManager.LoadLastRun(ctx)
	if cfg.Knowledge.RefreshOnStart {
		if err := container.KnowledgeService.RefreshLocal(ctx, "startup"); err != nil {
			log.Printf("[WARN] Failed to queue startup refresh: %v", err)
		}
	}
	if cfg.Knowledge.RefreshInterval > 0 {
		go container.KnowledgeManager.RunEvery(ctx, cfg.Knowledge.RefreshInterval)
	}

	go container.Invalidator.Run(ctx)

	if container.AuditService != nil {
		if err := container.AuditService.Start(ctx); err != nil {
			log.Printf("[WARN] Failed to start chat event audit: %v", err)
		}
	}

	// 6. Server
	srv := server.New(cfg, container)

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			log.Printf("[WARN] Server shutdown: %v", err)
		}
	}()

	color.New(color.FgCyan, color.Bold).Printf("knowledge-chat-be [%s] provider=%s model=%s\n",
		cfg.App.InstanceID, cfg.Ai.LLMProvider, cfg.Ai.LLMModel)

	if err := srv.Run(); err != nil {
		log.Printf("[ERROR] %v", err)
	}
}
