package main

import (
	"flag"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strings"

	"motioncam/internal/config"
	"motioncam/internal/model"
	"motioncam/internal/repository/sqlite"
	"motioncam/internal/service/flash"

	"github.com/google/uuid"
)

func main() {
	cfg := config.Load()

	flashDir := flag.String("flash", cfg.StorageRoot, "Flash storage directory")
	dbPath := flag.String("db", cfg.DatabasePath, "Database path")
	dryRun := flag.Bool("dry-run", false, "List untracked captures without registering them")
	flag.Parse()

	fmt.Printf("Registering captures from %s in %s\n", *flashDir, *dbPath)

	if err := os.MkdirAll(filepath.Dir(*dbPath), 0755); err != nil {
		log.Fatalf("Failed to create database directory: %v", err)
	}

	db, err := sqlite.New(*dbPath)
	if err != nil {
		log.Fatalf("Failed to open database: %v", err)
	}
	defer db.Close()
	repo := sqlite.NewCaptureRepository(db)

	store := flash.NewDirStore(*flashDir)
	if err := store.Mount(false); err != nil {
		log.Fatalf("Failed to open flash storage: %v", err)
	}

	entries, err := store.List()
	if err != nil {
		log.Fatalf("Failed to list flash storage: %v", err)
	}

	// A fresh boot id keeps these out of the current device run, so the
	// sweeper treats them as leftovers from an earlier boot.
	bootID := "import-" + uuid.NewString()

	registered, skipped := 0, 0
	for _, entry := range entries {
		name := strings.TrimPrefix(entry.Path, "/")
		if strings.Contains(name, "/") || !strings.HasSuffix(name, model.ArtifactSuffix) {
			continue
		}

		existing, err := repo.GetByLocalPath(entry.Path)
		if err != nil {
			log.Fatalf("Failed to look up %s: %v", entry.Path, err)
		}
		if existing != nil {
			skipped++
			continue
		}

		stamp := strings.TrimSuffix(name, model.ArtifactSuffix)
		artifact := model.NewCaptureArtifact(stamp, entry.Size, entry.ModTime)

		if *dryRun {
			fmt.Printf("  would register %s (%d bytes)\n", artifact.LocalPath, artifact.Size)
			registered++
			continue
		}

		if _, err := repo.Insert(model.NewCaptureRecord(bootID, artifact)); err != nil {
			log.Printf("Skipping %s: %v", artifact.LocalPath, err)
			skipped++
			continue
		}
		registered++
	}

	if registered == 0 {
		fmt.Println("No untracked captures found")
		return
	}

	fmt.Printf("Registered %d capture(s) as pending upload\n", registered)
	if skipped > 0 {
		fmt.Printf("Skipped %d file(s) already tracked or failing\n", skipped)
	}

	total, err := repo.GetTotalCount(&model.CaptureFilter{Status: model.RecordPending})
	if err == nil {
		fmt.Printf("\nPending uploads: %d\n", total)
	}
}
