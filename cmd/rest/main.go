package main

import (
	"context"
	"log"

	"knowledge-base-be/internal/bootstrap"
	"knowledge-base-be/internal/config"
	"knowledge-base-be/internal/server"
	"knowledge-base-be/internal/tracer"
	"knowledge-base-be/pkg/database"
)

func main() {
	// 1. Load Configuration
	cfg := config.Load()

	// 2. Initialize Tracer
	shutdownTracer := tracer.InitTracer(cfg)
	defer shutdownTracer(context.Background())

	// 3. Initialize Database
	gormDB, err := database.NewGormDBFromDSN(cfg.Database.Connection)
	if err != nil {
		log.Panicf("Unable to connect to GORM DB: %v", err)
	}

	// 4. Bootstrap Dependencies (Container)
	container := bootstrap.NewContainer(gormDB, cfg)
	defer container.QueueClient.Close()

	if err := container.Store.EnsureBucket(context.Background()); err != nil {
		log.Panicf("Unable to ensure raw bucket: %v", err)
	}

	// 5. Start Background Services
	go func() {
		log.Println("Background: Starting Audit Consumer...")
		if err := container.AuditService.Consume(context.Background()); err != nil {
			log.Printf("Background Audit Consumer Error: %v", err)
		}
	}()

	// 6. Initialize Server
	srv := server.New(cfg, container)

	// 7. Run Server
	log.Fatal(srv.Run())
}
