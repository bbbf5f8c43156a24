package main

import (
	"context"
	"flag"
	"log"
	"os"

	"knowledge-base-be/internal/config"
	"knowledge-base-be/internal/model"
	"knowledge-base-be/internal/repository/specification"
	"knowledge-base-be/internal/repository/unitofwork"
	"knowledge-base-be/pkg/database"
	"knowledge-base-be/pkg/embedding"

	"github.com/fatih/color"
	"gorm.io/gorm"
)

func main() {
	reembed := flag.Bool("reembed", false, "re-embed chunks whose model version differs from the configured model")
	flag.Parse()

	cfg := config.Load()

	dsn := cfg.Database.Connection
	if dsn == "" {
		log.Fatal("Error: DB_CONNECTION_STRING is not set")
	}

	db, err := database.NewGormDBFromDSN(dsn)
	if err != nil {
		log.Fatal("Error: Failed to connect to database:", err)
	}

	color.Cyan("Starting GORM migration...")

	// 1. Pre-Migration: Extensions (things AutoMigrate doesn't handle)
	setupSQL := []string{
		`CREATE EXTENSION IF NOT EXISTS pgcrypto;`,
		`CREATE EXTENSION IF NOT EXISTS vector;`,
	}
	for _, sql := range setupSQL {
		if err := db.Exec(sql).Error; err != nil {
			log.Printf("Warn: Failed to execute setup SQL: %v. Continuing...", err)
		}
	}

	// 2. AutoMigrate all models
	models := []interface{}{
		&model.Document{},
		&model.Chunk{},
		&model.IngestionTask{},
	}
	if err := db.AutoMigrate(models...); err != nil {
		log.Fatalf("Error: AutoMigrate failed: %v", err)
	}

	// 3. Bring the vector column to the configured dimension. A dimension
	// change drops the old vectors; -reembed refills them below.
	dimChanged, err := database.EnsureVectorDimension(db, "chunks", "embedding", cfg.Ai.EmbeddingDim, "idx_chunks_embedding")
	if err != nil {
		log.Fatalf("Error: Failed to set vector dimension: %v", err)
	}
	if dimChanged {
		color.Yellow("Vector column set to vector(%d); existing embeddings were cleared.", cfg.Ai.EmbeddingDim)
		if !*reembed {
			color.Yellow("Run again with -reembed to refill the index.")
		}
	}

	// 4. Post-Migration: search indexes AutoMigrate cannot express
	postMigrationSQL := []string{
		// Approximate nearest neighbour index for cosine search.
		`CREATE INDEX IF NOT EXISTS idx_chunks_embedding ON chunks
		 USING ivfflat (embedding vector_cosine_ops) WITH (lists = 100);`,

		// Full-text index backing keyword search.
		`CREATE INDEX IF NOT EXISTS idx_chunks_text_fts ON chunks
		 USING gin (to_tsvector('simple', text));`,
	}
	for _, sql := range postMigrationSQL {
		if err := db.Exec(sql).Error; err != nil {
			log.Printf("Warn: Failed to execute post-migration SQL: %v", err)
		}
	}

	color.Green("Success: Database migration completed via GORM.")

	if *reembed {
		if err := reembedChunks(db, cfg); err != nil {
			color.Red("Re-embedding failed: %v", err)
			os.Exit(1)
		}
		color.Green("Success: Re-embedding completed.")
	}
}

// reembedChunks upgrades the index to the configured embedding model: every
// chunk carrying a stale model version gets a fresh vector. Text and offsets
// are untouched, so this is safe to run while the API serves traffic.
func reembedChunks(db *gorm.DB, cfg *config.Config) error {
	ctx := context.Background()

	var provider embedding.Provider
	if cfg.Ai.EmbeddingProvider == "openai" {
		provider = embedding.NewOpenAIProvider(cfg.Ai.OpenAIAPIKey, cfg.Ai.OpenAIBaseURL, cfg.Ai.EmbeddingModel, cfg.Ai.EmbeddingDim)
	} else {
		provider = embedding.NewOllamaProvider(cfg.Ai.OllamaBaseURL, cfg.Ai.EmbeddingModel, cfg.Ai.EmbeddingDim)
	}

	uowFactory := unitofwork.NewRepositoryFactory(db)
	uow := uowFactory.NewUnitOfWork(ctx)
	chunkRepo := uow.ChunkRepository()

	batchSize := cfg.Ingest.EmbedBatchSize
	if batchSize <= 0 {
		batchSize = 1
	}

	total := 0
	for {
		// Each pass re-reads from the start; converted chunks no longer match.
		stale, err := chunkRepo.FindAll(ctx,
			specification.NotModelVersion{Version: provider.ModelVersion()},
			specification.Pagination{Limit: batchSize},
		)
		if err != nil {
			return err
		}
		if len(stale) == 0 {
			break
		}

		texts := make([]string, len(stale))
		for i, c := range stale {
			texts[i] = c.Text
		}
		vectors, err := provider.Embed(ctx, texts)
		if err != nil {
			return err
		}

		for i, c := range stale {
			if err := chunkRepo.ReplaceEmbedding(ctx, c.Id, vectors[i], provider.ModelVersion()); err != nil {
				return err
			}
		}
		total += len(stale)
		color.Yellow("Re-embedded %d chunks so far...", total)
	}

	log.Printf("Re-embedded %d chunks to model %s", total, provider.ModelVersion())
	return nil
}
