package settings

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"go.uber.org/zap"
)

// DefaultModelID is used when no persisted settings exist yet.
const DefaultModelID = "Tongyi-MAI/Z-Image-Turbo"

// Settings is the runtime-mutable generation configuration. It is persisted
// to config.json after every mutation and loaded once at process start.
type Settings struct {
	CacheDir   string `json:"cache_dir"`
	ModelID    string `json:"model_id"`
	CPUOffload bool   `json:"cpu_offload"`
}

func defaults() Settings {
	return Settings{
		ModelID:    DefaultModelID,
		CacheDir:   "",
		CPUOffload: false,
	}
}

// Store owns the settings document. Reads return copies; mutations go
// through Update, which persists before returning. Persistence failures are
// logged, never propagated: the in-memory document still reflects the change.
type Store struct {
	path    string
	logger  *zap.Logger
	mu      sync.Mutex
	current Settings
}

func NewStore(path string, logger *zap.Logger) *Store {
	s := &Store{
		path:   path,
		logger: logger.Named("settings"),
	}
	s.current = s.load()

	return s
}

func (s *Store) load() Settings {
	cfg := defaults()

	data, err := os.ReadFile(s.path)
	if err != nil {
		if !os.IsNotExist(err) {
			s.logger.Error("Failed to read settings file, using defaults", zap.Error(err))
		}
		return cfg
	}

	if err := json.Unmarshal(data, &cfg); err != nil {
		s.logger.Error("Malformed settings file, using defaults", zap.Error(err))
		return defaults()
	}

	if cfg.ModelID == "" {
		cfg.ModelID = DefaultModelID
	}

	return cfg
}

func (s *Store) Get() Settings {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.current
}

// Update applies mut to the current settings, persists the result and
// returns it.
func (s *Store) Update(mut func(*Settings)) Settings {
	s.mu.Lock()
	defer s.mu.Unlock()

	mut(&s.current)
	if err := s.save(s.current); err != nil {
		s.logger.Error("Failed to persist settings", zap.Error(err))
	}

	return s.current
}

// save writes the full document to a temp file and renames it over the old
// one, so a crash mid-write cannot corrupt previously good state.
func (s *Store) save(cfg Settings) error {
	data, err := json.MarshalIndent(cfg, "", "    ")
	if err != nil {
		return fmt.Errorf("failed to marshal settings: %w", err)
	}

	if err := os.MkdirAll(filepath.Dir(s.path), os.ModePerm); err != nil {
		return fmt.Errorf("failed to create settings directory: %w", err)
	}

	tmpPath := s.path + ".tmp"
	if err := os.WriteFile(tmpPath, data, 0644); err != nil {
		return fmt.Errorf("failed to write settings: %w", err)
	}

	if err := os.Rename(tmpPath, s.path); err != nil {
		return fmt.Errorf("failed to move settings into place: %w", err)
	}

	return nil
}
