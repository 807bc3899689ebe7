package contentstore

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

type localConfig struct {
	Dir string `json:"dir"`
}

type localStore struct {
	dir string
}

func init() {
	Register("dir", createLocalStore)
}

func createLocalStore(args interface{}) (Store, error) {
	cfg := &localConfig{}
	if err := decodeConfig(args, cfg); err != nil {
		return nil, err
	}
	if cfg.Dir == "" {
		return nil, fmt.Errorf("content_store.dir is required")
	}
	info, err := os.Stat(cfg.Dir)
	if err != nil {
		return nil, fmt.Errorf("content dir: %w", err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("content dir %s is not a directory", cfg.Dir)
	}
	return &localStore{dir: cfg.Dir}, nil
}

func (s *localStore) List(ctx context.Context) ([]Entry, error) {
	files, err := os.ReadDir(s.dir)
	if err != nil {
		return nil, err
	}
	entries := make([]Entry, 0, len(files))
	for _, file := range files {
		if file.IsDir() || !strings.HasSuffix(file.Name(), ".md") {
			continue
		}
		info, err := file.Info()
		if err != nil {
			continue
		}
		entries = append(entries, Entry{Key: file.Name(), Mtime: info.ModTime().Unix()})
	}
	sort.Slice(entries, func(i, j int) bool { return entries[i].Key < entries[j].Key })
	return entries, nil
}

func (s *localStore) Read(ctx context.Context, key string) ([]byte, error) {
	// Keys come from List, but never trust them enough to escape the dir.
	clean := filepath.Base(key)
	return os.ReadFile(filepath.Join(s.dir, clean))
}
