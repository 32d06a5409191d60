package main

import (
	"database/sql"
	"errors"
	"fmt"
	"log"
	"os"
	"path/filepath"

	_ "github.com/mattn/go-sqlite3"

	"github.com/Authority98/feedo-sub000/internal/api"
	dbstore "github.com/Authority98/feedo-sub000/internal/db"
)

// MigrateIfNeeded imports a legacy JSON snapshot into sqlite exactly once:
// only when the sqlite file does not exist yet and a snapshot is present.
func MigrateIfNeeded(snapshotPath, sqlitePath, migrationsDir string) error {
	if sqlitePath == "" {
		return errSQLitePathRequired
	}
	if _, err := os.Stat(sqlitePath); err == nil {
		return nil // already migrated
	} else if !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("check sqlite file: %w", err)
	}
	if snapshotPath == "" {
		return nil
	}

	snapshot, err := api.LoadSnapshot(snapshotPath)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("load legacy snapshot: %w", err)
	}

	log.Printf("First run detected, starting one-time data migration from legacy snapshot %s...", snapshotPath)

	if err := os.MkdirAll(filepath.Dir(sqlitePath), 0o755); err != nil {
		return fmt.Errorf("create sqlite dir: %w", err)
	}
	dsn := fmt.Sprintf("file:%s?cache=shared&_busy_timeout=5000", filepath.ToSlash(sqlitePath))
	sqliteDB, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return fmt.Errorf("open sqlite: %w", err)
	}
	defer func() {
		if cerr := sqliteDB.Close(); cerr != nil {
			log.Printf("warning: failed to close sqlite db: %v", cerr)
		}
	}()

	if err := dbstore.RunMigrations(sqliteDB, migrationsDir); err != nil {
		return fmt.Errorf("run migrations: %w", err)
	}
	dst, err := dbstore.NewSQLiteStore(sqliteDB)
	if err != nil {
		return fmt.Errorf("init sqlite store: %w", err)
	}

	copySnapshotToStore(snapshot, dst)
	log.Printf("Data migration completed successfully.")
	return nil
}

func copySnapshotToStore(snap *api.Snapshot, dst api.Store) {
	for _, u := range snap.Users {
		if u != nil {
			dst.AddUser(u)
		}
	}
	for _, pt := range snap.ProfileTypes {
		if pt != nil {
			dst.AddProfileType(pt)
		}
	}
	for userID, docs := range snap.Answers {
		for _, doc := range docs {
			if doc == nil {
				continue
			}
			// version tokens restart at 1 in the new store; clients refetch
			// documents on startup so no writer holds an old token
			if _, ok := dst.PutSectionAnswers(userID, doc, 0); !ok {
				log.Printf("warning: skipped answer import for user=%s section=%s", userID, doc.ID)
			}
		}
	}
	for _, e := range snap.Audit {
		dst.AddAudit(e)
	}
}
