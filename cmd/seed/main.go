package main

import (
	"bufio"
	"context"
	"encoding/json"
	"log"
	"os"

	"multimodal-rag-be/internal/config"
	"multimodal-rag-be/internal/entity"
	"multimodal-rag-be/internal/repository/unitofwork"
	"multimodal-rag-be/pkg/database"

	"github.com/alecthomas/kong"
	"github.com/fatih/color"
	"github.com/google/uuid"
)

// fixture is one line of a pre-embedded JSONL file.
type fixture struct {
	ChunkId    string                 `json:"chunk_id"`
	Modality   string                 `json:"modality"`
	ClientId   string                 `json:"client_id"`
	DocumentId string                 `json:"document_id"`
	Page       int                    `json:"page"`
	Offset     int                    `json:"offset"`
	Content    string                 `json:"content"`
	SourceUri  string                 `json:"source_uri"`
	Metadata   map[string]interface{} `json:"metadata"`
	Vector     []float32              `json:"vector"`
}

var (
	args struct {
		File   string `help:"JSONL file of pre-embedded chunks" default:"fixtures/chunks.jsonl" type:"existingfile"`
		Batch  int    `help:"Rows per insert" default:"200"`
		Verify bool   `help:"Read the seeded rows back and report missing chunks" default:"true" negatable:""`
	}
)

// Loads already-embedded chunks for local development. It never calls an embedding provider.
func main() {
	_ = kong.Parse(&args)

	cfg := config.Load()
	if cfg.Database.Connection == "" {
		color.Red("Error: DB_CONNECTION_STRING is not set")
		os.Exit(1)
	}

	db, err := database.NewGormDBFromDSN(cfg.Database.Connection, cfg.DatabaseOptions()...)
	if err != nil {
		log.Fatal("Error: Failed to connect to database:", err)
	}

	f, err := os.Open(args.File)
	if err != nil {
		log.Fatalf("Error: Failed to open %s: %v", args.File, err)
	}
	defer f.Close()

	ctx := context.Background()
	repo := unitofwork.NewRepositoryFactory(db).NewUnitOfWork(ctx).ChunkEmbeddingRepository()

	var (
		batch   []*entity.ChunkEmbedding
		total   int
		skipped int
		written = seeded{}
	)
	flush := func() {
		if len(batch) == 0 {
			return
		}
		if err := repo.CreateBulk(ctx, batch); err != nil {
			color.Red("Error: Failed to insert batch: %v", err)
			os.Exit(1)
		}
		for _, e := range batch {
			written.add(e)
		}
		total += len(batch)
		batch = batch[:0]
	}

	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 1024*1024), 16*1024*1024)
	for line := 1; scanner.Scan(); line++ {
		var fx fixture
		if err := json.Unmarshal(scanner.Bytes(), &fx); err != nil {
			color.Yellow("Skipping line %d: %v", line, err)
			skipped++
			continue
		}
		modality := entity.Modality(fx.Modality)
		if fx.ChunkId == "" || !modality.Valid() || len(fx.Vector) == 0 {
			color.Yellow("Skipping line %d: chunk_id, modality and vector are required", line)
			skipped++
			continue
		}

		batch = append(batch, &entity.ChunkEmbedding{
			Id:         uuid.New(),
			ChunkId:    fx.ChunkId,
			Modality:   modality,
			ClientId:   fx.ClientId,
			DocumentId: fx.DocumentId,
			Page:       fx.Page,
			Offset:     fx.Offset,
			Content:    fx.Content,
			SourceUri:  fx.SourceUri,
			Metadata:   fx.Metadata,
			Vector:     fx.Vector,
		})
		if len(batch) >= args.Batch {
			flush()
		}
	}
	if err := scanner.Err(); err != nil {
		log.Fatalf("Error: Failed to read %s: %v", args.File, err)
	}
	flush()

	color.Green("Seeded %d chunk embeddings (%d skipped)", total, skipped)

	if !args.Verify {
		return
	}
	missing, err := missingChunks(ctx, repo, written)
	if err != nil {
		log.Fatalf("Error: Failed to verify seeded chunks: %v", err)
	}
	if len(missing) > 0 {
		for _, key := range missing {
			color.Red("Missing after seed: %s", key)
		}
		os.Exit(1)
	}
	color.Green("Verified %d chunk embeddings", total)
}
