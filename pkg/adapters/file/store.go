package file

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/aretw0/playground/pkg/codec"
	"github.com/aretw0/playground/pkg/domain"
	"github.com/aretw0/playground/pkg/ports"
)

// Store implements ports.PlaygroundStore using the local filesystem.
// Each playground is one JSON or YAML file named after its ID.
type Store struct {
	BasePath string
	Format   codec.Format
}

var _ ports.PlaygroundStore = (*Store)(nil)

// Option configures a Store.
type Option func(*Store)

// WithFormat selects the file format used by Save. Load reads either format.
func WithFormat(f codec.Format) Option {
	return func(s *Store) {
		s.Format = f
	}
}

// New creates a new Store with the given base path.
// If basePath is empty, it defaults to ".playground/playgrounds".
func New(basePath string, opts ...Option) *Store {
	if basePath == "" {
		basePath = filepath.Join(".playground", "playgrounds")
	}
	s := &Store{BasePath: basePath, Format: codec.JSON}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func validID(id string) error {
	if id == "" {
		return fmt.Errorf("playground id cannot be empty")
	}
	if strings.ContainsAny(id, `/\`) || id == "." || id == ".." {
		return fmt.Errorf("invalid playground id %q", id)
	}
	return nil
}

// Save persists the playground atomically.
// It writes to a temporary file first, syncs it and then renames it to the destination.
func (s *Store) Save(ctx context.Context, p *domain.Playground) error {
	if err := validID(p.ID); err != nil {
		return err
	}
	if err := os.MkdirAll(s.BasePath, 0755); err != nil {
		return fmt.Errorf("failed to ensure playground directory: %w", err)
	}

	data, err := codec.Marshal(s.Format, p)
	if err != nil {
		return fmt.Errorf("failed to marshal playground: %w", err)
	}

	// Same directory, so the rename stays on one filesystem.
	tmpFile, err := os.CreateTemp(s.BasePath, "tmp-"+p.ID+"-*")
	if err != nil {
		return fmt.Errorf("failed to create temp file: %w", err)
	}
	tmpPath := tmpFile.Name()
	defer func() {
		_ = tmpFile.Close()
		_ = os.Remove(tmpPath)
	}()

	if _, err := tmpFile.Write(data); err != nil {
		return fmt.Errorf("failed to write to temp file: %w", err)
	}
	if err := tmpFile.Sync(); err != nil {
		return fmt.Errorf("failed to fsync temp file: %w", err)
	}
	if err := tmpFile.Close(); err != nil {
		return fmt.Errorf("failed to close temp file: %w", err)
	}

	// A stale copy in the other format would shadow this one on Load.
	for _, path := range s.paths(p.ID) {
		if filepath.Ext(path) == s.Format.Ext() {
			continue
		}
		if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
			return fmt.Errorf("failed to remove stale playground file: %w", err)
		}
	}

	destPath := filepath.Join(s.BasePath, p.ID+s.Format.Ext())
	// Windows cannot rename over an existing file.
	if _, err := os.Stat(destPath); err == nil {
		if err := os.Remove(destPath); err != nil {
			return fmt.Errorf("failed to remove existing playground file for overwrite: %w", err)
		}
	}
	if err := os.Rename(tmpPath, destPath); err != nil {
		return fmt.Errorf("failed to rename temp file: %w", err)
	}
	return nil
}

func (s *Store) paths(id string) []string {
	return []string{
		filepath.Join(s.BasePath, id+codec.JSON.Ext()),
		filepath.Join(s.BasePath, id+codec.YAML.Ext()),
		filepath.Join(s.BasePath, id+".yml"),
	}
}

// Load reads a playground saved in any supported format.
func (s *Store) Load(ctx context.Context, id string) (*domain.Playground, error) {
	if err := validID(id); err != nil {
		return nil, err
	}

	for _, path := range s.paths(id) {
		data, err := os.ReadFile(path)
		if os.IsNotExist(err) {
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("failed to read playground file: %w", err)
		}

		f, _ := codec.FormatOf(path)
		var p domain.Playground
		if err := codec.Unmarshal(f, data, &p); err != nil {
			return nil, fmt.Errorf("failed to unmarshal playground %s: %w", id, err)
		}
		return &p, nil
	}
	return nil, fmt.Errorf("%w: %s", domain.ErrPlaygroundNotFound, id)
}

// Delete removes the playground files.
func (s *Store) Delete(ctx context.Context, id string) error {
	if err := validID(id); err != nil {
		return err
	}
	for _, path := range s.paths(id) {
		if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
			return fmt.Errorf("failed to delete playground file: %w", err)
		}
	}
	return nil
}

// List returns the IDs of all saved playgrounds, sorted.
func (s *Store) List(ctx context.Context) ([]string, error) {
	entries, err := os.ReadDir(s.BasePath)
	if err != nil {
		if os.IsNotExist(err) {
			return []string{}, nil
		}
		return nil, fmt.Errorf("failed to list playgrounds: %w", err)
	}

	seen := map[string]bool{}
	ids := []string{}
	for _, entry := range entries {
		name := entry.Name()
		if entry.IsDir() || strings.HasPrefix(name, "tmp-") {
			continue
		}
		ext := filepath.Ext(name)
		if _, err := codec.ParseFormat(ext); err != nil || ext == "" {
			continue
		}
		id := strings.TrimSuffix(name, ext)
		if !seen[id] {
			seen[id] = true
			ids = append(ids, id)
		}
	}
	sort.Strings(ids)
	return ids, nil
}
