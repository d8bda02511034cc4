package cache

import (
	"context"
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"go.uber.org/zap"
)

const (
	filePrefix = "cache_"
	fileSuffix = ".json"
)

// FileStore keeps one JSON file per key in a directory.
type FileStore struct {
	dir string
	settings
}

func NewFileStore(dir string, opts ...Option) *FileStore {
	if dir == "" {
		dir = "."
	}
	return &FileStore{
		dir:      dir,
		settings: newSettings(opts),
	}
}

func (s *FileStore) Backend() string {
	return "file"
}

func (s *FileStore) path(key string) string {
	return filepath.Join(s.dir, filePrefix+key+fileSuffix)
}

func (s *FileStore) Get(ctx context.Context, key string) ([]byte, bool) {
	data, err := os.ReadFile(s.path(key))
	if err != nil {
		if !errors.Is(err, fs.ErrNotExist) {
			s.logger.Warn("Failed to read cache entry", zap.String("cache_key", key), zap.Error(err))
		}
		return nil, false
	}

	e, err := decodeEntry(data)
	if err != nil {
		s.logger.Warn("Ignoring unreadable cache entry", zap.String("cache_key", key), zap.Error(err))
		return nil, false
	}

	if !s.fresh(e.WrittenAt) {
		return nil, false
	}

	return e.Payload, true
}

func (s *FileStore) Put(ctx context.Context, key string, payload []byte) {
	data, err := encodeEntry(s.now(), payload)
	if err != nil {
		s.logger.Warn("Failed to encode cache entry", zap.String("cache_key", key), zap.Error(err))
		return
	}

	if err := s.write(key, data); err != nil {
		s.logger.Warn("Failed to write cache entry", zap.String("cache_key", key), zap.Error(err))
	}
}

// write replaces the entry atomically so concurrent readers never see a partial file.
func (s *FileStore) write(key string, data []byte) error {
	if err := os.MkdirAll(s.dir, 0o755); err != nil {
		return err
	}

	tmp, err := os.CreateTemp(s.dir, filePrefix+"*.tmp")
	if err != nil {
		return err
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}

	return os.Rename(tmp.Name(), s.path(key))
}

func (s *FileStore) Sweep(ctx context.Context) int {
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		if !errors.Is(err, fs.ErrNotExist) {
			s.logger.Warn("Failed to list cache directory", zap.String("dir", s.dir), zap.Error(err))
		}
		return 0
	}

	removed := 0
	for _, de := range entries {
		name := de.Name()
		if de.IsDir() || !strings.HasPrefix(name, filePrefix) || !strings.HasSuffix(name, fileSuffix) {
			continue
		}

		path := filepath.Join(s.dir, name)
		writtenAt, ok := s.writtenAt(path, de)
		if !ok || !s.expired(writtenAt) {
			continue
		}

		if err := os.Remove(path); err != nil {
			s.logger.Warn("Failed to remove stale cache entry", zap.String("path", path), zap.Error(err))
			continue
		}
		removed++
	}

	if removed > 0 {
		s.logger.Info("Removed stale cache entries", zap.Int("removed", removed), zap.String("dir", s.dir))
	}

	return removed
}

// writtenAt prefers the timestamp inside the entry and falls back to the file's mtime.
func (s *FileStore) writtenAt(path string, de os.DirEntry) (time.Time, bool) {
	if data, err := os.ReadFile(path); err == nil {
		if e, err := decodeEntry(data); err == nil {
			return e.WrittenAt, true
		}
	}

	info, err := de.Info()
	if err != nil {
		s.logger.Warn("Failed to stat cache entry", zap.String("path", path), zap.Error(err))
		return time.Time{}, false
	}
	return info.ModTime(), true
}
