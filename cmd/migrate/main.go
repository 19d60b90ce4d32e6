package main

import (
	"context"
	"log"
	"os"

	"docrag-be/internal/model"
	"docrag-be/pkg/database"
	"docrag-be/pkg/fulltext"

	"github.com/joho/godotenv"
)

func main() {
	// 1. Load Environment Variables
	if err := godotenv.Load(); err != nil {
		log.Println("Info: No .env file found, using system env")
	}

	dsn := os.Getenv("DB_CONNECTION_STRING")
	if dsn == "" {
		log.Fatal("Error: DB_CONNECTION_STRING is not set")
	}

	// 2. Connect to Database using existing GORM helpers
	db, err := database.NewGormDBFromDSN(dsn, true)
	if err != nil {
		log.Fatal("Error: Failed to connect to database:", err)
	}

	log.Println("Starting GORM Migration...")

	// 3. Pre-Migration: Extensions
	log.Println("Step 1: Setting up Extensions...")

	setupSQL := []string{
		`CREATE EXTENSION IF NOT EXISTS pgcrypto;`,
		`CREATE EXTENSION IF NOT EXISTS vector;`,
	}

	for _, sql := range setupSQL {
		if err := db.Exec(sql).Error; err != nil {
			log.Printf("Warn: Failed to execute setup SQL: %v. Continuing...", err)
		}
	}

	// 4. AutoMigrate All Models
	log.Println("Step 2: Running AutoMigrate...")

	models := []interface{}{
		&model.Collection{},
		&model.Document{},
		&model.Version{},
		&model.Chunk{},
		&model.DeadLetter{},
	}

	if err := db.AutoMigrate(models...); err != nil {
		log.Fatalf("Error: AutoMigrate failed: %v", err)
	}

	// 5. Post-Migration: indexes AutoMigrate cannot express
	log.Println("Step 3: Creating Indexes...")

	postMigrationSQL := []string{
		// At most one active version per document.
		`CREATE UNIQUE INDEX IF NOT EXISTS idx_document_versions_one_active
		 ON document_versions (document_id) WHERE is_active;`,

		`CREATE INDEX IF NOT EXISTS idx_chunks_embedding_hnsw
		 ON chunks USING hnsw (embedding vector_cosine_ops);`,
	}

	for _, sql := range postMigrationSQL {
		if err := db.Exec(sql).Error; err != nil {
			log.Printf("Warn: Failed to execute post-migration SQL: %v", err)
		}
	}

	// 6. Full-text index table and its GIN index
	if err := fulltext.NewPostgresIndex(db).EnsureSchema(context.Background()); err != nil {
		log.Fatalf("Error: Full-text schema failed: %v", err)
	}

	log.Println("✅ Success: Database migration completed successfully via GORM.")
}
