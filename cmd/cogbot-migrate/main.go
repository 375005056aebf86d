// Command cogbot-migrate applies cogbot's pending schema migrations to
// an existing primary/reference database pair, backing each one up
// first unless run with --dry-run.
//
// Ground rule carried over from the teacher's warren-migrate: always
// back up before touching a live database. Where warren-migrate copied
// a bbolt file byte-for-byte, this tool uses SQLite's own VACUUM INTO,
// since the primary/reference pair are plain database/sql SQLite files
// rather than a single embedded KV store.
package main

import (
	"database/sql"
	"flag"
	"fmt"
	"log"
	"os"

	_ "modernc.org/sqlite"

	"github.com/cogbot/cogbot/pkg/storage"
)

var (
	primaryPath   = flag.String("primary-db", "./cogbot.db", "Path to the primary database")
	referencePath = flag.String("reference-db", "./cogbot-reference.db", "Path to the reference database")
	dryRun        = flag.Bool("dry-run", false, "Report pending migrations without applying or backing anything up")
	backupDir     = flag.String("backup-dir", "", "Directory to write backups into (default: alongside each database)")
)

func main() {
	flag.Parse()
	log.SetFlags(log.LstdFlags | log.Lshortfile)
	log.Println("cogbot database migration tool")
	log.Println("===============================")

	for _, path := range []string{*primaryPath, *referencePath} {
		if _, err := os.Stat(path); os.IsNotExist(err) {
			log.Fatalf("database not found at %s (pass --primary-db/--reference-db or run cogbot once to create it)", path)
		}
	}

	log.Printf("Primary database:   %s", *primaryPath)
	log.Printf("Reference database: %s", *referencePath)
	log.Printf("Dry run: %v", *dryRun)

	if !*dryRun {
		if err := backupDatabase(*primaryPath, backupPathFor(*primaryPath)); err != nil {
			log.Fatalf("backup primary database: %v", err)
		}
		log.Printf("Backup created: %s", backupPathFor(*primaryPath))

		if err := backupDatabase(*referencePath, backupPathFor(*referencePath)); err != nil {
			log.Fatalf("backup reference database: %v", err)
		}
		log.Printf("Backup created: %s", backupPathFor(*referencePath))
	} else {
		log.Println("[DRY RUN] Would back up both databases before migrating.")
	}

	log.Println("\nApplying migrations (storage.Open migrates both databases to latest)...")
	if *dryRun {
		log.Println("[DRY RUN] Skipping storage.Open — no changes made.")
		log.Println("\nDry run completed. Run without --dry-run to apply migrations.")
		return
	}

	store, err := storage.Open(*primaryPath, *referencePath)
	if err != nil {
		log.Fatalf("migration failed: %v", err)
	}
	defer store.Close()

	log.Println("\n✓ Migration completed successfully!")
	log.Printf("Backups retained at %s and %s — delete them once the migration is verified.",
		backupPathFor(*primaryPath), backupPathFor(*referencePath))
}

func backupPathFor(dbPath string) string {
	if *backupDir != "" {
		return *backupDir + "/" + baseName(dbPath) + ".backup"
	}
	return dbPath + ".backup"
}

func baseName(path string) string {
	for i := len(path) - 1; i >= 0; i-- {
		if path[i] == '/' {
			return path[i+1:]
		}
	}
	return path
}

// backupDatabase opens src read-only and writes a consistent point-in-
// time copy to dst using SQLite's VACUUM INTO, run before any migration
// touches the live file.
func backupDatabase(src, dst string) error {
	db, err := sql.Open("sqlite", src+"?_pragma=busy_timeout(5000)")
	if err != nil {
		return fmt.Errorf("open %s: %w", src, err)
	}
	defer db.Close()

	if err := db.Ping(); err != nil {
		return fmt.Errorf("ping %s: %w", src, err)
	}

	if _, err := db.Exec(fmt.Sprintf("VACUUM INTO '%s'", dst)); err != nil {
		return fmt.Errorf("vacuum into %s: %w", dst, err)
	}
	return nil
}
