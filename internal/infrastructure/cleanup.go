package infrastructure

import (
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"go.uber.org/zap"

	"github.com/yourusername/sldl-jobs/pkg/logger"
)

// SideFileCleaner removes the index files sldl leaves next to downloads
type SideFileCleaner struct {
	patterns    []string
	multiLogger *logger.MultiLogger
}

// NewSideFileCleaner creates a cleaner for base-name glob patterns
func NewSideFileCleaner(patterns []string, multiLogger *logger.MultiLogger) *SideFileCleaner {
	return &SideFileCleaner{
		patterns:    patterns,
		multiLogger: multiLogger,
	}
}

// Clean deletes every file under root whose base name matches a pattern,
// then removes directories left empty by those deletions. root itself is
// never removed. Errors are collected and the sweep continues.
func (c *SideFileCleaner) Clean(root string) ([]string, error) {
	if root == "" || len(c.patterns) == 0 {
		return nil, nil
	}
	if _, err := os.Stat(root); err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}

	var removed []string
	var errs []error
	touched := make(map[string]bool)

	walkErr := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			errs = append(errs, err)
			if d != nil && d.IsDir() && path != root {
				return filepath.SkipDir
			}
			return nil
		}
		if d.IsDir() || !c.matches(d.Name()) {
			return nil
		}
		if err := os.Remove(path); err != nil {
			errs = append(errs, err)
			return nil
		}
		removed = append(removed, path)
		touched[filepath.Dir(path)] = true
		return nil
	})
	if walkErr != nil {
		errs = append(errs, walkErr)
	}

	c.pruneEmptyDirs(root, touched)

	err := errors.Join(errs...)
	if len(removed) > 0 || err != nil {
		c.multiLogger.LogJobEvent("side_files_cleaned",
			zap.String("root", root),
			zap.Int("removed", len(removed)),
			zap.NamedError("errors", err))
	}
	return removed, err
}

func (c *SideFileCleaner) matches(name string) bool {
	for _, pattern := range c.patterns {
		if ok, _ := filepath.Match(pattern, name); ok {
			return true
		}
	}
	return false
}

// pruneEmptyDirs walks upward from each touched directory, deepest first,
// removing directories that are now empty
func (c *SideFileCleaner) pruneEmptyDirs(root string, touched map[string]bool) {
	cleanRoot := filepath.Clean(root)

	dirs := make([]string, 0, len(touched))
	for dir := range touched {
		dirs = append(dirs, dir)
	}
	sort.Slice(dirs, func(i, k int) bool {
		return strings.Count(dirs[i], string(filepath.Separator)) > strings.Count(dirs[k], string(filepath.Separator))
	})

	for _, dir := range dirs {
		for dir = filepath.Clean(dir); dir != cleanRoot && strings.HasPrefix(dir, cleanRoot); dir = filepath.Dir(dir) {
			entries, err := os.ReadDir(dir)
			if err != nil || len(entries) > 0 {
				break
			}
			if err := os.Remove(dir); err != nil {
				break
			}
		}
	}
}
