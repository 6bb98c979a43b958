// Package storage keeps uploaded thumbnail files on the local filesystem.
package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"
)

// tempPrefix marks in-flight writes. Files carrying it are never listed or
// served.
const tempPrefix = ".upload-"

// ErrInvalidRef is returned for refs that would escape the base directory.
var ErrInvalidRef = errors.New("invalid asset reference")

// Asset describes one stored file.
type Asset struct {
	Ref     string
	Size    int64
	ModTime time.Time
}

// FSAssetStore stores assets as flat files under BaseDir. Refs are paths
// relative to BaseDir.
type FSAssetStore struct {
	BaseDir string
}

func NewFSAssetStore(baseDir string) *FSAssetStore {
	return &FSAssetStore{
		BaseDir: baseDir,
	}
}

// Path returns the on-disk location of ref.
func (s *FSAssetStore) Path(ref string) (string, error) {
	if ref == "" || !filepath.IsLocal(ref) {
		return "", fmt.Errorf("%w: %q", ErrInvalidRef, ref)
	}
	return filepath.Join(s.BaseDir, ref), nil
}

// Put writes r to ref. The bytes land in a temp file next to the target and are
// synced before the rename, so a reader never observes a partial file. An
// existing file at ref is replaced.
func (s *FSAssetStore) Put(ctx context.Context, ref string, r io.Reader) error {
	target, err := s.Path(ref)
	if err != nil {
		return err
	}

	tmp, err := os.CreateTemp(filepath.Dir(target), tempPrefix+"*")
	if err != nil {
		return fmt.Errorf("failed to create temp file: %w", err)
	}
	tmpName := tmp.Name()
	committed := false
	defer func() {
		if !committed {
			tmp.Close()
			os.Remove(tmpName)
		}
	}()

	if _, err := io.Copy(tmp, r); err != nil {
		return fmt.Errorf("failed to write asset: %w", err)
	}
	if err := tmp.Chmod(0644); err != nil {
		return fmt.Errorf("failed to set asset permissions: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		return fmt.Errorf("failed to sync asset: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("failed to close asset: %w", err)
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := os.Rename(tmpName, target); err != nil {
		return fmt.Errorf("failed to move asset into place: %w", err)
	}
	committed = true
	return nil
}

// Delete removes ref. A file that is already gone is not an error.
func (s *FSAssetStore) Delete(ctx context.Context, ref string) error {
	target, err := s.Path(ref)
	if err != nil {
		return err
	}
	if err := os.Remove(target); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("failed to delete asset: %w", err)
	}
	return nil
}

// Exists reports whether ref is present as a regular file.
func (s *FSAssetStore) Exists(ctx context.Context, ref string) (bool, error) {
	target, err := s.Path(ref)
	if err != nil {
		return false, err
	}
	info, err := os.Stat(target)
	if errors.Is(err, fs.ErrNotExist) {
		return false, nil
	} else if err != nil {
		return false, fmt.Errorf("failed to stat asset: %w", err)
	}
	return info.Mode().IsRegular(), nil
}

// List returns every committed file directly under BaseDir. A missing base
// directory holds no assets.
func (s *FSAssetStore) List(ctx context.Context) ([]Asset, error) {
	entries, err := os.ReadDir(s.BaseDir)
	if errors.Is(err, fs.ErrNotExist) {
		return []Asset{}, nil
	} else if err != nil {
		return nil, fmt.Errorf("failed to read asset directory: %w", err)
	}

	assets := make([]Asset, 0, len(entries))
	for _, entry := range entries {
		if !entry.Type().IsRegular() || IsTemp(entry.Name()) {
			continue
		}
		info, err := entry.Info()
		if errors.Is(err, fs.ErrNotExist) {
			// removed between ReadDir and Info
			continue
		} else if err != nil {
			return nil, fmt.Errorf("failed to stat asset %s: %w", entry.Name(), err)
		}
		assets = append(assets, Asset{
			Ref:     entry.Name(),
			Size:    info.Size(),
			ModTime: info.ModTime(),
		})
	}
	return assets, nil
}

// IsTemp reports whether name belongs to an in-flight write.
func IsTemp(name string) bool {
	return strings.HasPrefix(filepath.Base(name), tempPrefix)
}
