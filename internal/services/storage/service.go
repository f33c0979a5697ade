// Package storage manages backup artifacts in a single directory.
package storage

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"path/filepath"
	"strings"
	"time"

	"github.com/Flocio/AgrisaleWS-sub002/internal/models"
	"github.com/rs/zerolog"
	"github.com/spf13/afero"
)

const tempPrefix = ".tmp-"

// FileStat holds the file system metadata of one artifact.
type FileStat struct {
	Size         int64
	ModifiedTime time.Time
}

// Service defines the interface for backup storage operations.
type Service interface {
	List(ctx context.Context) ([]models.BackupRecord, error)
	Write(ctx context.Context, name string, payload []byte) (string, error)
	Delete(ctx context.Context, path string) error
	StatAll(ctx context.Context, paths []string) (map[string]FileStat, error)
	Read(ctx context.Context, path string) ([]byte, error)
	Dir() string
}

// Impl implements the storage Service interface on an afero filesystem.
type Impl struct {
	fs     afero.Fs
	dir    string
	logger zerolog.Logger
}

// New creates a storage service rooted at dir on the OS filesystem.
func New(logger zerolog.Logger, dir string) (*Impl, error) {
	return NewWithFs(logger, afero.NewOsFs(), dir)
}

// NewWithFs creates a storage service with a custom filesystem (for testing).
func NewWithFs(logger zerolog.Logger, fsys afero.Fs, dir string) (*Impl, error) {
	abs, err := filepath.Abs(dir)
	if err != nil {
		return nil, fmt.Errorf("resolving backup directory: %w", err)
	}
	return &Impl{fs: fsys, dir: abs, logger: logger}, nil
}

// Dir returns the absolute backup directory.
func (s *Impl) Dir() string {
	return s.dir
}

// List returns every artifact in the backup directory. Size and modified time
// are read at call time. A missing directory yields an empty list.
func (s *Impl) List(_ context.Context) ([]models.BackupRecord, error) {
	infos, err := afero.ReadDir(s.fs, s.dir)
	if errors.Is(err, fs.ErrNotExist) {
		return []models.BackupRecord{}, nil
	}
	if err != nil {
		return nil, models.NewStorageIOError("list", s.dir, err)
	}

	records := make([]models.BackupRecord, 0, len(infos))
	for _, info := range infos {
		if !info.Mode().IsRegular() || strings.HasPrefix(info.Name(), tempPrefix) {
			continue
		}
		records = append(records, models.BackupRecord{
			FileName:     info.Name(),
			Path:         filepath.Join(s.dir, info.Name()),
			Size:         info.Size(),
			ModifiedTime: info.ModTime(),
		})
	}
	return records, nil
}

// Write stores payload under name and returns its path. The file appears
// atomically via a temp file and rename. Existing names are never overwritten.
func (s *Impl) Write(_ context.Context, name string, payload []byte) (string, error) {
	if name == "" || name != filepath.Base(name) || strings.HasPrefix(name, tempPrefix) {
		return "", fmt.Errorf("%w: %q", models.ErrInvalidBackupPath, name)
	}

	if err := s.fs.MkdirAll(s.dir, 0o755); err != nil {
		return "", models.NewStorageIOError("write", s.dir, err)
	}

	target := filepath.Join(s.dir, name)
	if _, err := s.fs.Stat(target); err == nil {
		return "", models.NewStorageIOError("write", target, fs.ErrExist)
	}

	tmp, err := afero.TempFile(s.fs, s.dir, tempPrefix+"*")
	if err != nil {
		return "", models.NewStorageIOError("write", target, err)
	}
	tmpName := tmp.Name()
	cleanup := func() { _ = s.fs.Remove(tmpName) }

	if _, err := tmp.Write(payload); err != nil {
		_ = tmp.Close()
		cleanup()
		return "", models.NewStorageIOError("write", target, err)
	}
	if err := tmp.Sync(); err != nil {
		_ = tmp.Close()
		cleanup()
		return "", models.NewStorageIOError("write", target, err)
	}
	if err := tmp.Close(); err != nil {
		cleanup()
		return "", models.NewStorageIOError("write", target, err)
	}
	if err := s.fs.Rename(tmpName, target); err != nil {
		cleanup()
		return "", models.NewStorageIOError("write", target, err)
	}

	s.logger.Debug().
		Str("path", target).
		Int("bytes", len(payload)).
		Msg("backup written")

	return target, nil
}

// Delete removes the artifact at path. Paths outside the backup directory are rejected.
func (s *Impl) Delete(_ context.Context, path string) error {
	target, err := s.resolve(path)
	if err != nil {
		return err
	}
	if err := s.fs.Remove(target); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("%s: %w", filepath.Base(target), models.ErrBackupNotFound)
		}
		return models.NewStorageIOError("delete", target, err)
	}
	s.logger.Debug().Str("path", target).Msg("backup deleted")
	return nil
}

// StatAll returns metadata for each path that exists. Missing files are omitted.
func (s *Impl) StatAll(_ context.Context, paths []string) (map[string]FileStat, error) {
	out := make(map[string]FileStat, len(paths))
	for _, p := range paths {
		target, err := s.resolve(p)
		if err != nil {
			return nil, err
		}
		info, err := s.fs.Stat(target)
		if errors.Is(err, fs.ErrNotExist) {
			continue
		}
		if err != nil {
			return nil, models.NewStorageIOError("stat", target, err)
		}
		out[p] = FileStat{Size: info.Size(), ModifiedTime: info.ModTime()}
	}
	return out, nil
}

// Read returns the content of the artifact at path.
func (s *Impl) Read(_ context.Context, path string) ([]byte, error) {
	target, err := s.resolve(path)
	if err != nil {
		return nil, err
	}
	data, err := afero.ReadFile(s.fs, target)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("%s: %w", filepath.Base(target), models.ErrBackupNotFound)
	}
	if err != nil {
		return nil, models.NewStorageIOError("read", target, err)
	}
	return data, nil
}

// resolve accepts a bare file name or a path and returns the cleaned absolute
// path, which must be a direct child of the backup directory.
func (s *Impl) resolve(path string) (string, error) {
	if path == "" {
		return "", fmt.Errorf("%w: empty path", models.ErrInvalidBackupPath)
	}
	target := path
	if !filepath.IsAbs(target) {
		if target != filepath.Base(target) {
			return "", fmt.Errorf("%w: %q", models.ErrInvalidBackupPath, path)
		}
		target = filepath.Join(s.dir, target)
	}
	target = filepath.Clean(target)
	if filepath.Dir(target) != s.dir || target == s.dir {
		return "", fmt.Errorf("%w: %q is outside %s", models.ErrInvalidBackupPath, path, s.dir)
	}
	return target, nil
}
