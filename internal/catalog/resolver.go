package catalog

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"vectortube/internal/errs"
)

// fallbackName replaces original filenames that carry nothing usable.
const fallbackName = "upload"

// Resolved is where an upload will be stored. Dir is absolute and exists;
// Name is the flat file name under it and doubles as the asset ref.
type Resolved struct {
	Dir  string
	Name string
}

// PathResolver derives storage locations for uploads.
//
// Names are "<unix-millis>-<original>", so two uploads collide only when they
// share an original name within the same millisecond. In that case the later
// write replaces the earlier file.
type PathResolver struct {
	root string
	now  func() time.Time
}

func NewPathResolver(root string, now func() time.Time) *PathResolver {
	if now == nil {
		now = time.Now
	}
	return &PathResolver{root: root, now: now}
}

// Resolve makes sure the storage directory exists and names the file.
func (p *PathResolver) Resolve(originalName string) (Resolved, error) {
	dir, err := filepath.Abs(p.root)
	if err != nil {
		return Resolved{}, errs.Wrap(errs.IO, "resolve", "failed to resolve storage root", err)
	}
	if err := ensureDir(dir); err != nil {
		return Resolved{}, errs.Wrap(errs.IO, "resolve", "failed to create storage directory", err)
	}

	return Resolved{
		Dir:  dir,
		Name: fmt.Sprintf("%d-%s", p.now().UnixMilli(), sanitizeName(originalName)),
	}, nil
}

func ensureDir(dir string) error {
	info, err := os.Stat(dir)
	if err == nil {
		if !info.IsDir() {
			return fmt.Errorf("%s is not a directory", dir)
		}
		return nil
	}
	if !errors.Is(err, fs.ErrNotExist) {
		return err
	}
	// MkdirAll tolerates a concurrent creator
	return os.MkdirAll(dir, 0755)
}

func sanitizeName(name string) string {
	name = strings.ReplaceAll(name, "\\", "/")
	name = filepath.Base(name)
	name = strings.Map(func(r rune) rune {
		if r == '/' || r == 0 {
			return '_'
		}
		return r
	}, name)
	name = strings.TrimLeft(name, ".")
	if name == "" {
		return fallbackName
	}
	return name
}
