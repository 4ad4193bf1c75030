package repository

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"DemandCast/internal/domain/models"
	domrepo "DemandCast/internal/domain/repository"
	applogger "DemandCast/pkg/logger"
)

const activeMarker = "ACTIVE"

// FSArtifactStore keeps model artifacts as JSON files in a directory.
// Each version is an immutable <version>.json; an ACTIVE file holds the
// version currently being served. Writes go through a temp file and rename
// so a crash never leaves a half-written artifact or marker.
type FSArtifactStore struct {
	dir string
	mu  sync.Mutex
	l   *applogger.Logger
}

func NewFSArtifactStore(dir string) (*FSArtifactStore, error) {
	if dir == "" {
		return nil, fmt.Errorf("artifact dir is required")
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create artifact dir: %w", err)
	}
	return &FSArtifactStore{dir: dir}, nil
}

// SetLogger injects a structured logger.
func (s *FSArtifactStore) SetLogger(l *applogger.Logger) { s.l = l }

var _ domrepo.ArtifactStore = (*FSArtifactStore)(nil)

// LoadActive returns the published artifact, or models.ErrModelNotLoaded
// when nothing has been published yet.
func (s *FSArtifactStore) LoadActive(ctx context.Context) (*models.ModelArtifact, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	raw, err := os.ReadFile(filepath.Join(s.dir, activeMarker))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, models.ErrModelNotLoaded
		}
		return nil, &models.PersistenceError{Op: "load_active", Err: err}
	}
	version := strings.TrimSpace(string(raw))
	if version == "" {
		return nil, models.ErrModelNotLoaded
	}

	data, err := os.ReadFile(s.artifactPath(version))
	if err != nil {
		return nil, &models.PersistenceError{Op: "load_active", Err: err}
	}
	var a models.ModelArtifact
	if err := json.Unmarshal(data, &a); err != nil {
		return nil, &models.PersistenceError{Op: "load_active", Err: err}
	}
	return &a, nil
}

// Publish writes the artifact then repoints the active marker. The marker
// flips only after the artifact file is fully on disk.
func (s *FSArtifactStore) Publish(ctx context.Context, a *models.ModelArtifact) error {
	if a == nil || a.Version == "" {
		return fmt.Errorf("artifact version is required")
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	data, err := json.MarshalIndent(a, "", "  ")
	if err != nil {
		return &models.PersistenceError{Op: "publish", Err: err}
	}
	if err := s.writeAtomic(s.artifactPath(a.Version), data); err != nil {
		return &models.PersistenceError{Op: "publish", Err: err}
	}
	if err := s.writeAtomic(filepath.Join(s.dir, activeMarker), []byte(a.Version+"\n")); err != nil {
		return &models.PersistenceError{Op: "publish", Err: err}
	}
	if s.l != nil {
		s.l.Info("model artifact published",
			applogger.String("version", a.Version),
			applogger.Int("training_samples", a.TrainingSamples),
		)
	}
	return nil
}

func (s *FSArtifactStore) artifactPath(version string) string {
	return filepath.Join(s.dir, version+".json")
}

func (s *FSArtifactStore) writeAtomic(path string, data []byte) error {
	tmp, err := os.CreateTemp(s.dir, ".tmp-*")
	if err != nil {
		return err
	}
	name := tmp.Name()
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(name)
		return err
	}
	if err := tmp.Close(); err != nil {
		os.Remove(name)
		return err
	}
	return os.Rename(name, path)
}
