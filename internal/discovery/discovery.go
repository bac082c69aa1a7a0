package discovery

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"go.uber.org/multierr"
	"go.uber.org/zap"
)

// ErrNotDirectory is returned when the walk root exists but is not a directory.
var ErrNotDirectory = errors.New("source is not a directory")

// FileItem is a regular file found under the source tree.
type FileItem struct {
	Path  string
	Bytes int64
}

// Size implements binpack.Sizer.
func (f FileItem) Size() int64 {
	return f.Bytes
}

func (f FileItem) String() string {
	return f.Path
}

// Option configures Walk.
type Option func(*walker)

// WithLogger sets the logger used to report skipped entries.
func WithLogger(logger *zap.Logger) Option {
	return func(w *walker) {
		w.logger = logger
	}
}

// WithExcludes skips entries whose base name matches any of the glob patterns.
// Matching directories are not descended into.
func WithExcludes(patterns ...string) Option {
	return func(w *walker) {
		w.excludes = append(w.excludes, patterns...)
	}
}

type walker struct {
	logger   *zap.Logger
	excludes []string
}

// followRootLink returns root with a trailing separator when root is a
// symlink, so WalkDir descends into the link target while item paths stay
// under the name the caller gave.
func followRootLink(root string) (string, error) {
	info, err := os.Lstat(root)
	if err != nil {
		return "", fmt.Errorf("stat source: %w", err)
	}
	if info.Mode()&fs.ModeSymlink == 0 || strings.HasSuffix(root, string(filepath.Separator)) {
		return root, nil
	}
	return root + string(filepath.Separator), nil
}

// Walk returns one FileItem per regular file below root. Directories,
// symlinks and special files are not returned. A root that is itself a
// symlink to a directory is followed; links below it are not. Entries that cannot be read
// are logged and skipped; failing to read root itself is an error.
func Walk(ctx context.Context, root string, opts ...Option) ([]FileItem, error) {
	w := &walker{logger: zap.NewNop()}
	for _, opt := range opts {
		opt(w)
	}
	if err := validatePatterns(w.excludes); err != nil {
		return nil, err
	}

	info, err := os.Stat(root)
	if err != nil {
		return nil, fmt.Errorf("stat source: %w", err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("%w: %s", ErrNotDirectory, root)
	}

	walkRoot, err := followRootLink(root)
	if err != nil {
		return nil, err
	}

	var items []FileItem
	err = filepath.WalkDir(walkRoot, func(path string, d fs.DirEntry, walkErr error) error {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}
		if walkErr != nil {
			if path == walkRoot {
				return walkErr
			}
			w.logger.Warn("skipping unreadable entry", zap.String("path", path), zap.Error(walkErr))
			if d != nil && d.IsDir() {
				return fs.SkipDir
			}
			return nil
		}

		if path != walkRoot && w.excluded(d.Name()) {
			w.logger.Debug("excluded entry", zap.String("path", path))
			if d.IsDir() {
				return fs.SkipDir
			}
			return nil
		}

		if !d.Type().IsRegular() {
			return nil
		}

		fi, err := d.Info()
		if err != nil {
			w.logger.Warn("skipping file without metadata", zap.String("path", path), zap.Error(err))
			return nil
		}
		items = append(items, FileItem{Path: path, Bytes: fi.Size()})
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("walk %s: %w", root, err)
	}

	w.logger.Debug("source walked", zap.String("root", root), zap.Int("files", len(items)))
	return items, nil
}

func (w *walker) excluded(name string) bool {
	for _, pattern := range w.excludes {
		if ok, _ := filepath.Match(pattern, name); ok {
			return true
		}
	}
	return false
}

func validatePatterns(patterns []string) error {
	var errs error
	for _, pattern := range patterns {
		if _, err := filepath.Match(pattern, ""); err != nil {
			errs = multierr.Append(errs, fmt.Errorf("exclude pattern %q: %w", pattern, err))
		}
	}
	return errs
}
