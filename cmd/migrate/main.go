package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"time"

	"authenta/internal/client"
	"authenta/internal/config"
	"authenta/internal/dto"
	"authenta/internal/logger"
	"authenta/internal/model"
	"authenta/internal/repository/sqlite"
	"authenta/internal/service/media"
)

// Imports the media records known to the Authenta API into the local ledger,
// so records created from another machine show up in history and the
// progress server.
func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	dbPath := flag.String("db", cfg.DatabasePath, "Database path")
	status := flag.String("status", "", "Only import records with this status")
	modelType := flag.String("model", "", "Only import records of this model type")
	pageSize := flag.Int("page-size", 50, "Records requested per page")
	maxPages := flag.Int("max-pages", 100, "Stop after this many pages")
	flag.Parse()

	fmt.Printf("Importing media from %s to database %s\n", cfg.BaseURL, *dbPath)

	c, err := client.NewFromConfig(cfg)
	if err != nil {
		log.Fatalf("Failed to create client: %v", err)
	}

	db, err := sqlite.New(*dbPath)
	if err != nil {
		log.Fatalf("Failed to open database: %v", err)
	}
	defer db.Close()

	repo := sqlite.NewMediaRepository(db)
	orchestrator := media.NewOrchestrator(c, cfg, logger.Discard(), nil)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	imported, skipped := 0, 0
	for page := 1; page <= *maxPages; page++ {
		list, err := orchestrator.ListMediaPage(ctx, &dto.MediaFilters{
			Status:    *status,
			ModelType: *modelType,
			Page:      page,
			PageSize:  *pageSize,
		})
		if err != nil {
			log.Fatalf("Failed to list media (page %d): %v", page, err)
		}

		for _, record := range list.Items {
			if record.MID == "" {
				skipped++
				continue
			}
			if err := repo.Upsert(mergeWithLedger(repo, record)); err != nil {
				log.Printf("⚠️  Skipping %s: %v", record.MID, err)
				skipped++
				continue
			}
			imported++
		}

		if len(list.Items) < *pageSize || (list.Total > 0 && page*(*pageSize) >= list.Total) {
			break
		}
	}

	fmt.Printf("✅ Successfully imported %d records\n", imported)
	if skipped > 0 {
		fmt.Printf("⚠️  Skipped %d records (missing mid or errors)\n", skipped)
	}

	// Show stats
	entries, err := repo.GetAll(nil)
	if err == nil {
		perStatus := make(map[string]int)
		for _, entry := range entries {
			perStatus[entry.Record.NormalizedStatus()]++
		}
		fmt.Printf("\n📊 Ledger Statistics:\n")
		fmt.Printf("   Total records: %d\n", len(entries))
		for s, count := range perStatus {
			fmt.Printf("      - %s: %d\n", s, count)
		}
	}
}

// mergeWithLedger keeps the upload URL and file path of a record created locally.
func mergeWithLedger(repo *sqlite.MediaRepository, record model.MediaRecord) *model.StoredMedia {
	entry := &model.StoredMedia{Record: record, UpdatedAt: time.Now()}
	if existing, err := repo.GetByMID(record.MID); err == nil && existing != nil {
		entry.UploadURL = existing.UploadURL
		entry.FilePath = existing.FilePath
	}
	return entry
}
