package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"knowledge-base-be/internal/bootstrap"
	"knowledge-base-be/internal/config"
	"knowledge-base-be/internal/queue"
	"knowledge-base-be/pkg/database"

	"github.com/hibiken/asynq"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg := config.Load()

	gormDB, err := database.NewGormDBFromDSN(cfg.Database.Connection)
	if err != nil {
		log.Fatalf("Unable to connect to GORM DB: %v", err)
	}

	container := bootstrap.NewContainer(gormDB, cfg)
	defer container.QueueClient.Close()

	if err := container.Store.EnsureBucket(ctx); err != nil {
		log.Fatalf("Unable to ensure raw bucket: %v", err)
	}

	// Lifecycle events raised by the pipeline land in the audit log here too.
	go func() {
		if err := container.AuditService.Consume(ctx); err != nil {
			log.Printf("Background Audit Consumer Error: %v", err)
		}
	}()

	srv := asynq.NewServer(asynq.RedisClientOpt{
		Addr:     cfg.Queue.RedisAddr,
		Password: cfg.Queue.RedisPassword,
		DB:       cfg.Queue.RedisDB,
	}, asynq.Config{
		Concurrency: cfg.Queue.Concurrency,
		Queues:      queue.Priorities(),
	})

	go func() {
		<-ctx.Done()
		srv.Shutdown()
	}()

	log.Printf("Worker is running (concurrency: %d)", cfg.Queue.Concurrency)
	if err := srv.Run(container.Processor.Handler()); err != nil {
		log.Printf("worker stopped: %v", err)
		os.Exit(1)
	}
}
