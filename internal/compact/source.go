package compact

import (
	"context"
	"os"
	"path/filepath"
)

// FileEntry is one entry of the host's flat directory listing.
type FileEntry struct {
	Path       string `json:"path"`
	IsDir      bool   `json:"is_dir"`
	ParentPath string `json:"parent_path,omitempty"`
}

// ContentReader reads file contents on behalf of the engine. The engine
// never opens files itself.
type ContentReader interface {
	ReadFileContent(ctx context.Context, path string) (string, error)
}

// ContentReaderFunc adapts a function to ContentReader.
type ContentReaderFunc func(ctx context.Context, path string) (string, error)

func (f ContentReaderFunc) ReadFileContent(ctx context.Context, path string) (string, error) {
	return f(ctx, path)
}

// OSReader reads from the local filesystem.
type OSReader struct{}

func (OSReader) ReadFileContent(ctx context.Context, path string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return "", err
	}
	return string(data), nil
}

// Walk lists root recursively as FileEntry values with absolute paths.
// Directories on the skip list are reported but not descended into.
func Walk(root string) ([]FileEntry, error) {
	absRoot, err := filepath.Abs(root)
	if err != nil {
		return nil, err
	}

	var entries []FileEntry
	err = filepath.Walk(absRoot, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if path == absRoot {
			return nil
		}

		entries = append(entries, FileEntry{
			Path:       path,
			IsDir:      info.IsDir(),
			ParentPath: filepath.Dir(path),
		})

		if info.IsDir() && SkipDirs[info.Name()] {
			return filepath.SkipDir
		}
		return nil
	})
	return entries, err
}
