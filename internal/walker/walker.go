package walker

import (
	"context"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
)

// FileInfo holds metadata about a discovered dump file.
type FileInfo struct {
	Path    string
	RelPath string
	Size    int64
}

// skipDirs are never descended into.
var skipDirs = []string{
	".git",
	".svn",
	".hg",
	"__pycache__",
	"checkpoints",
}

// Walk traverses the directory tree rooted at root and sends discovered
// files on the returned channel in lexical path order, so corpus positions
// are stable across runs. It only emits non-empty files whose extension is in
// allowedExts. root may also name a single file. Cancelling ctx stops the walk
// and closes both channels, so a consumer that quits early must cancel it.
func Walk(ctx context.Context, root string, allowedExts map[string]bool) (<-chan FileInfo, <-chan error) {
	files := make(chan FileInfo, 64)
	errs := make(chan error, 1)

	go func() {
		defer close(files)
		defer close(errs)

		absRoot, err := filepath.Abs(root)
		if err != nil {
			errs <- err
			return
		}
		st, err := os.Stat(absRoot)
		if err != nil {
			errs <- err
			return
		}
		if !st.IsDir() {
			if allowed(absRoot, allowedExts) && st.Size() > 0 {
				select {
				case files <- FileInfo{Path: absRoot, RelPath: filepath.Base(absRoot), Size: st.Size()}:
				case <-ctx.Done():
				}
			}
			return
		}

		err = filepath.WalkDir(absRoot, func(path string, d fs.DirEntry, err error) error {
			if err != nil {
				return nil // skip errors, keep walking
			}

			if d.IsDir() {
				if path != absRoot && skipDir(d.Name()) {
					return filepath.SkipDir
				}
				return nil
			}

			// Skip symlinks.
			if d.Type()&fs.ModeSymlink != 0 {
				return nil
			}
			if !allowed(path, allowedExts) {
				return nil
			}

			info, err := d.Info()
			if err != nil || info.Size() == 0 {
				return nil
			}

			relPath, _ := filepath.Rel(absRoot, path)
			select {
			case files <- FileInfo{Path: path, RelPath: filepath.ToSlash(relPath), Size: info.Size()}:
				return nil
			case <-ctx.Done():
				return ctx.Err()
			}
		})
		if err != nil && ctx.Err() == nil {
			errs <- err
		}
	}()

	return files, errs
}

func allowed(path string, exts map[string]bool) bool {
	return exts[strings.TrimPrefix(filepath.Ext(path), ".")]
}

func skipDir(name string) bool {
	for _, s := range skipDirs {
		if name == s {
			return true
		}
	}
	return false
}
