package main

import (
	"context"
	"log"
	"os"

	"multimodal-rag-be/internal/config"
	"multimodal-rag-be/internal/entity"
	"multimodal-rag-be/internal/model"
	"multimodal-rag-be/internal/repository/unitofwork"
	"multimodal-rag-be/pkg/database"
	"multimodal-rag-be/pkg/rag/prompt"

	"github.com/fatih/color"
)

func main() {
	// 1. Load Configuration
	cfg := config.Load()
	if cfg.Database.Connection == "" {
		color.Red("Error: DB_CONNECTION_STRING is not set")
		os.Exit(1)
	}

	// 2. Connect to Database using existing GORM helpers
	db, err := database.NewGormDBFromDSN(cfg.Database.Connection, cfg.DatabaseOptions()...)
	if err != nil {
		log.Fatal("Error: Failed to connect to database:", err)
	}

	color.Cyan("Starting GORM Migration...")

	// 3. Pre-Migration: Extensions (Things GORM AutoMigrate doesn't do)
	color.Cyan("Step 1: Setting up Extensions...")

	setupSQL := []string{
		`CREATE EXTENSION IF NOT EXISTS pgcrypto;`,
		`CREATE EXTENSION IF NOT EXISTS vector;`,
	}

	for _, sql := range setupSQL {
		if err := db.Exec(sql).Error; err != nil {
			color.Yellow("Warn: Failed to execute setup SQL: %v. Continuing...", err)
		}
	}

	// 4. AutoMigrate All Models
	models := []interface{}{
		&model.ChatSession{},
		&model.ChatMessage{},
		&model.ChatCitation{},
		&model.MessageFeedback{},
		&model.ClientPrompt{},
		&model.ChunkEmbedding{},
		&model.ChatTurnAbandonment{},
	}
	color.Cyan("Step 2: Running AutoMigrate for %d Tables...", len(models))

	if err := db.AutoMigrate(models...); err != nil {
		color.Red("Error: AutoMigrate failed: %v", err)
		os.Exit(1)
	}

	// 5. Post-Migration: constraints AutoMigrate cannot express
	color.Cyan("Step 3: Adding constraints...")

	postMigrationSQL := []string{
		`DO $$ BEGIN
		   IF NOT EXISTS (SELECT 1 FROM pg_constraint WHERE conname = 'chk_message_feedbacks_rating') THEN
		     ALTER TABLE message_feedbacks ADD CONSTRAINT chk_message_feedbacks_rating CHECK (rating IN (-1, 1));
		   END IF;
		 END $$;`,
		`DO $$ BEGIN
		   IF NOT EXISTS (SELECT 1 FROM pg_constraint WHERE conname = 'chk_chunk_embeddings_modality') THEN
		     ALTER TABLE chunk_embeddings ADD CONSTRAINT chk_chunk_embeddings_modality CHECK (modality IN ('text', 'image'));
		   END IF;
		 END $$;`,
	}

	for _, sql := range postMigrationSQL {
		if err := db.Exec(sql).Error; err != nil {
			color.Yellow("Warn: Failed to execute post-migration SQL: %v", err)
		}
	}

	// 6. Seed the default prompt for the configured default client
	if clientId := cfg.Retrieval.DefaultClientId; clientId != "" {
		color.Cyan("Step 4: Seeding prompt for client %q...", clientId)

		ctx := context.Background()
		source := prompt.NewRepositorySource(unitofwork.NewRepositoryFactory(db))
		existing, err := source.FindByClientId(ctx, clientId)
		if err != nil {
			color.Red("Error: Failed to look up prompt: %v", err)
			os.Exit(1)
		}
		if existing != nil {
			color.Yellow("Prompt for %q already exists (version %d), leaving it alone", clientId, existing.Version)
		} else if _, err := source.Upsert(ctx, &entity.ClientPrompt{
			ClientId:     clientId,
			Name:         cfg.Prompt.DefaultName,
			SystemPrompt: cfg.Prompt.DefaultSystemPrompt,
			Template:     cfg.Prompt.DefaultTemplate,
			IsActive:     true,
		}); err != nil {
			color.Red("Error: Failed to seed prompt: %v", err)
			os.Exit(1)
		}
	}

	color.Green("Migration completed successfully")
}
