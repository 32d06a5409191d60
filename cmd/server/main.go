package main

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/joho/godotenv"
	_ "github.com/mattn/go-sqlite3"

	"github.com/Authority98/feedo-sub000/internal/api"
	dbstore "github.com/Authority98/feedo-sub000/internal/db"
	"github.com/Authority98/feedo-sub000/internal/middleware"
	"github.com/Authority98/feedo-sub000/internal/storage"
	"github.com/Authority98/feedo-sub000/internal/utils"
)

func main() {
	// .env is optional; real deployments set the environment directly
	_ = godotenv.Load()

	addr := utils.SafeEnv("FEEDO_ADDR", ":8080")
	commit := os.Getenv("FEEDO_COMMIT")
	buildTime := os.Getenv("FEEDO_BUILD_TIME")

	store, err := buildStore()
	if err != nil {
		log.Fatalf("init store: %v", err)
	}
	files := buildFileStore()
	debounce := time.Duration(utils.IntEnv("FEEDO_AUTOSAVE_MS", 1000)) * time.Millisecond

	rt := api.NewRouter(api.Options{Store: store, Files: files, AutosaveDebounce: debounce})
	defer rt.Close()

	mux := http.NewServeMux()
	rt.Register(mux)
	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]any{
			"ok":         true,
			"name":       "Feedo API",
			"commit":     commit,
			"build_time": buildTime,
		})
	})
	mux.HandleFunc("/version", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]any{
			"commit":     commit,
			"build_time": buildTime,
		})
	})

	// static frontend bundle, when baked into the image
	if staticDir := os.Getenv("FEEDO_STATIC_DIR"); staticDir != "" {
		mux.Handle("/", http.FileServer(http.Dir(staticDir)))
	}

	handler := middleware.NoStore(middleware.SecureHeaders(middleware.CORS(middleware.WithAuth(mux))))

	log.Printf("feedo server listening on %s", addr)
	if err := http.ListenAndServe(addr, handler); err != nil {
		log.Fatalf("server error: %v", err)
	}
}

// buildStore prefers sqlite when FEEDO_SQLITE_PATH is set, importing a legacy
// JSON snapshot on first run; otherwise it falls back to the snapshot-backed
// memory store (or pure in-memory when neither path is configured).
func buildStore() (api.Store, error) {
	sqlitePath := os.Getenv("FEEDO_SQLITE_PATH")
	legacyPath := os.Getenv("FEEDO_DB_PATH")
	if sqlitePath == "" {
		if legacyPath != "" {
			return api.NewMemoryStoreFromPath(legacyPath)
		}
		return api.NewMemoryStore(), nil
	}

	if err := MigrateIfNeeded(legacyPath, sqlitePath, os.Getenv("FEEDO_MIGRATIONS_DIR")); err != nil {
		return nil, err
	}
	if err := os.MkdirAll(filepath.Dir(sqlitePath), 0o755); err != nil {
		return nil, fmt.Errorf("create sqlite dir: %w", err)
	}
	dsn := fmt.Sprintf("file:%s?cache=shared&_busy_timeout=5000", filepath.ToSlash(sqlitePath))
	sqliteDB, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	if err := dbstore.RunMigrations(sqliteDB, os.Getenv("FEEDO_MIGRATIONS_DIR")); err != nil {
		return nil, fmt.Errorf("run migrations: %w", err)
	}
	return dbstore.NewStore(sqliteDB)
}

// buildFileStore wires the S3-compatible upload backend; uploads stay
// disabled when no endpoint is configured.
func buildFileStore() *storage.FileStore {
	endpoint := os.Getenv("FEEDO_S3_ENDPOINT")
	if endpoint == "" {
		return nil
	}
	fs, err := storage.NewFileStore(storage.Config{
		Endpoint:      endpoint,
		AccessKey:     os.Getenv("FEEDO_S3_ACCESS_KEY"),
		SecretKey:     os.Getenv("FEEDO_S3_SECRET_KEY"),
		Bucket:        utils.SafeEnv("FEEDO_S3_BUCKET", "feedo-uploads"),
		UseSSL:        utils.BoolEnv("FEEDO_S3_SSL", false),
		PublicBaseURL: os.Getenv("FEEDO_S3_PUBLIC_URL"),
	})
	if err != nil {
		log.Printf("uploads disabled: %v", err)
		return nil
	}
	return fs
}

var errSQLitePathRequired = errors.New("sqlite path is required")
