package config

import (
	"os"
	"path/filepath"
	"time"

	"github.com/joho/godotenv"
)

// Config carries the workspace layout and remote service settings for
// one batch run. All values come from the environment (optionally via a
// .env file) with defaults matching the standard workspace layout.
type Config struct {
	WorkspaceDir string
	InputDir     string
	ScratchDir   string
	OutputDir    string
	LogDir       string
	DBFile       string

	// SourcePath is the single multi-page scan this batch processes.
	SourcePath string

	ProjectID      string
	BucketName     string
	CollectionName string

	// PublishDelay lets remote storage settle between merge and publish.
	PublishDelay time.Duration
}

// Load reads configuration from the environment. A missing .env file is
// not an error; explicit environment variables win over file entries.
func Load() Config {
	_ = godotenv.Load()

	workspace := GetEnv("WORKSPACE_DIR", filepath.Join(mustGetwd(), "workspace"))

	cfg := Config{
		WorkspaceDir:   workspace,
		InputDir:       filepath.Join(workspace, "input"),
		ScratchDir:     filepath.Join(workspace, "scratch-split"),
		OutputDir:      filepath.Join(workspace, "output-final"),
		LogDir:         filepath.Join(workspace, "logs"),
		DBFile:         filepath.Join(workspace, "db", "documents_splitter.db"),
		ProjectID:      GetEnv("GCP_PROJECT", ""),
		BucketName:     GetEnv("STORAGE_BUCKET", "shalix-automation-dev.appspot.com"),
		CollectionName: GetEnv("FIRESTORE_COLLECTION", "documents"),
		PublishDelay:   2 * time.Second,
	}
	cfg.SourcePath = filepath.Join(cfg.InputDir, GetEnv("SOURCE_FILE", "single.pdf"))
	return cfg
}

// GetEnv is a helper to read an environment variable or return a default value.
func GetEnv(key, fallback string) string {
	if value, ok := os.LookupEnv(key); ok {
		return value
	}
	return fallback
}

func mustGetwd() string {
	wd, err := os.Getwd()
	if err != nil {
		return "."
	}
	return wd
}
