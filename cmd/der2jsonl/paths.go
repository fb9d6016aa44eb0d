package main

import (
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
)

// normalizeExt trims whitespace, strips a single leading dot, and lowercases
// an extension given on the --ext flag.
func normalizeExt(raw string) string {
	ext := strings.ToLower(strings.TrimSpace(raw))
	return strings.TrimPrefix(ext, ".")
}

// expandPaths turns the CLI's positional arguments into a flat list of
// regular files to decode. Directories are walked recursively without
// following symbolic links; exts, if non-nil, filters the files found by
// that walk by normalized extension (the leading dot stripped from both
// sides before comparing). A file named directly in args is always kept.
func expandPaths(args []string, exts map[string]bool) ([]string, error) {
	var files []string

	for _, arg := range args {
		info, err := os.Lstat(arg)
		if err != nil {
			return nil, fmt.Errorf("stat %q: %w", arg, err)
		}

		if !info.IsDir() {
			files = append(files, arg)
			continue
		}

		err = filepath.WalkDir(arg, func(path string, d fs.DirEntry, err error) error {
			if err != nil {
				return err
			}
			if d.Type()&fs.ModeSymlink != 0 {
				return nil
			}
			if d.IsDir() {
				return nil
			}
			if matchesExt(path, exts) {
				files = append(files, path)
			}
			return nil
		})
		if err != nil {
			return nil, fmt.Errorf("walk %q: %w", arg, err)
		}
	}

	return files, nil
}

// matchesExt reports whether path's extension is in exts. A nil exts
// matches everything.
func matchesExt(path string, exts map[string]bool) bool {
	if exts == nil {
		return true
	}
	return exts[normalizeExt(filepath.Ext(path))]
}
