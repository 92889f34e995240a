package storage

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/tendant/tryon-pipeline/internal/export"
)

// FilesystemSaver writes exported files into a local directory
type FilesystemSaver struct {
	baseDir string
}

// NewFilesystemSaver creates the directory if needed
func NewFilesystemSaver(baseDir string) (*FilesystemSaver, error) {
	if err := os.MkdirAll(baseDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create base directory: %w", err)
	}
	return &FilesystemSaver{baseDir: baseDir}, nil
}

// Save writes f under its own name, adding a numeric suffix when the name is taken.
// It returns the path written.
func (fs *FilesystemSaver) Save(ctx context.Context, f export.File) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	if f.Name == "" || filepath.Base(f.Name) != f.Name {
		return "", fmt.Errorf("invalid file name %q", f.Name)
	}

	path, err := fs.freePath(f.Name)
	if err != nil {
		return "", err
	}

	tmp, err := os.CreateTemp(fs.baseDir, ".tryon-*")
	if err != nil {
		return "", fmt.Errorf("failed to create temp file: %w", err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(f.Data); err != nil {
		tmp.Close()
		return "", fmt.Errorf("failed to write file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return "", fmt.Errorf("failed to close file: %w", err)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		return "", fmt.Errorf("failed to move file into place: %w", err)
	}
	return path, nil
}

// freePath returns the first unused path for name
func (fs *FilesystemSaver) freePath(name string) (string, error) {
	ext := filepath.Ext(name)
	stem := strings.TrimSuffix(name, ext)
	candidate := name
	for i := 1; ; i++ {
		path, err := safeJoin(fs.baseDir, candidate)
		if err != nil {
			return "", err
		}
		exists, err := fs.Exists(context.Background(), candidate)
		if err != nil {
			return "", err
		}
		if !exists {
			return path, nil
		}
		candidate = fmt.Sprintf("%s-%d%s", stem, i, ext)
	}
}

// Exists checks if a file exists at the given key
func (fs *FilesystemSaver) Exists(ctx context.Context, key string) (bool, error) {
	path, err := safeJoin(fs.baseDir, key)
	if err != nil {
		return false, err
	}

	_, err = os.Stat(path)
	if err != nil {
		if os.IsNotExist(err) {
			return false, nil
		}
		return false, fmt.Errorf("failed to stat file: %w", err)
	}
	return true, nil
}
