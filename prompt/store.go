package prompt

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"sync"

	"gopkg.in/yaml.v3"
)

// ManifestFile optionally maps template names to files in a prompt directory.
const ManifestFile = "prompts.yaml"

// Store resolves prompt templates by name.
type Store interface {
	Load(name string) (*Template, error)
}

// Manifest is the schema of prompts.yaml.
type Manifest struct {
	Templates map[string]string `yaml:"templates"`
}

// FileStore reads templates from a directory. A template named n lives in
// the file the manifest assigns to n, or in n.txt. Missing files resolve to
// the built-in fallback.
type FileStore struct {
	dir    string
	logger *slog.Logger

	once     sync.Once
	manifest Manifest
	err      error
}

var _ Store = (*FileStore)(nil)

func NewFileStore(dir string, logger *slog.Logger) *FileStore {
	if logger == nil {
		logger = slog.Default()
	}
	return &FileStore{dir: dir, logger: logger}
}

func (s *FileStore) loadManifest() {
	path := filepath.Join(s.dir, ManifestFile)
	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return
	}
	if err != nil {
		s.err = fmt.Errorf("read prompt manifest: %w", err)
		return
	}
	if err := yaml.Unmarshal(data, &s.manifest); err != nil {
		s.err = fmt.Errorf("parse prompt manifest %s: %w", path, err)
	}
}

// Path returns the file a template name resolves to.
func (s *FileStore) Path(name string) (string, error) {
	s.once.Do(s.loadManifest)
	if s.err != nil {
		return "", s.err
	}

	file, ok := s.manifest.Templates[name]
	if !ok {
		file = name + ".txt"
	}
	if filepath.IsAbs(file) {
		return file, nil
	}
	return filepath.Join(s.dir, file), nil
}

func (s *FileStore) Load(name string) (*Template, error) {
	path, err := s.Path(name)
	if err != nil {
		return nil, err
	}

	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		s.logger.Warn("prompt template not found, using fallback", "name", name, "path", path)
		return Fallback(), nil
	}
	if err != nil {
		return nil, fmt.Errorf("read prompt %s: %w", name, err)
	}

	s.logger.Debug("loaded prompt template", "name", name, "path", path)
	return Parse(name, string(data))
}

// StaticStore serves a single in-memory template for every name.
type StaticStore struct {
	Template *Template
}

func (s StaticStore) Load(string) (*Template, error) {
	if s.Template == nil {
		return Fallback(), nil
	}
	return s.Template, nil
}
