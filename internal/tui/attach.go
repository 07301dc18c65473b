package tui

import (
	"fmt"
	"mime"
	"os"
	"path/filepath"

	"github.com/bmatcuk/doublestar/v4"
)

// expandAttachments resolves a path or glob pattern to staged files.
// Directories are skipped; metadata is captured now, content is opened at
// dispatch time.
func expandAttachments(pattern string) ([]stagedFile, error) {
	matches, err := doublestar.FilepathGlob(pattern)
	if err != nil {
		return nil, fmt.Errorf("bad pattern: %w", err)
	}

	// A plain path with no glob metacharacters should still stage, and
	// should report a real error when missing.
	if len(matches) == 0 {
		if _, statErr := os.Stat(pattern); statErr == nil {
			matches = []string{pattern}
		}
	}

	var staged []stagedFile
	for _, match := range matches {
		info, err := os.Stat(match)
		if err != nil {
			return nil, fmt.Errorf("stat %s: %w", match, err)
		}
		if info.IsDir() {
			continue
		}
		staged = append(staged, stagedFile{
			path: match,
			name: filepath.Base(match),
			mime: mimeTypeFor(match),
			size: info.Size(),
		})
	}
	return staged, nil
}

func mimeTypeFor(path string) string {
	if t := mime.TypeByExtension(filepath.Ext(path)); t != "" {
		return t
	}
	return "application/octet-stream"
}
