package settings

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/surakshasphere/sentinel/internal/config"
)

// Repository defines persistence operations for the runtime settings.
type Repository interface {
	Load(ctx context.Context) (*config.Settings, error)
	Save(ctx context.Context, settings *config.Settings) error
}

// FileRepository persists the runtime settings to a JSON file on disk.
type FileRepository struct {
	// path is the filesystem location of the JSON settings file.
	path string
	// mu protects concurrent access to the settings file.
	mu sync.Mutex
}

// ErrNotFound is returned when the settings file does not exist yet.
var ErrNotFound = errors.New("settings not found")

// NewFileRepository creates a repository that reads/writes JSON at the provided path.
func NewFileRepository(path string) *FileRepository {
	return &FileRepository{
		path: filepath.Clean(path),
	}
}

// Load reads the settings from disk.
func (r *FileRepository) Load(_ context.Context) (*config.Settings, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	contents, err := os.ReadFile(r.path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, ErrNotFound
		}

		return nil, fmt.Errorf("read settings file: %w", err)
	}

	var settings config.Settings
	if err = json.Unmarshal(contents, &settings); err != nil {
		return nil, fmt.Errorf("decode settings file: %w", err)
	}

	return &settings, nil
}

// Save writes the settings to disk in JSON representation.
func (r *FileRepository) Save(_ context.Context, settings *config.Settings) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	data, err := json.MarshalIndent(settings, "", "  ")
	if err != nil {
		return fmt.Errorf("encode settings: %w", err)
	}

	if err = os.WriteFile(r.path, data, config.DefaultFilePermissions); err != nil {
		return fmt.Errorf("write settings file: %w", err)
	}

	return nil
}
