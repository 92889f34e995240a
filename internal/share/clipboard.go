package share

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sync"
)

// MemoryClipboard keeps the last copied text in memory
type MemoryClipboard struct {
	mu   sync.Mutex
	text string
}

// WriteText replaces the clipboard contents
func (c *MemoryClipboard) WriteText(ctx context.Context, text string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.text = text
	return nil
}

// Text returns the clipboard contents
func (c *MemoryClipboard) Text() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.text
}

// FileClipboard writes copied text to a file, for headless hosts
type FileClipboard struct {
	Path string
}

// WriteText replaces the file with text
func (c *FileClipboard) WriteText(ctx context.Context, text string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if c.Path == "" {
		return fmt.Errorf("clipboard file not configured")
	}
	if err := os.MkdirAll(filepath.Dir(c.Path), 0755); err != nil {
		return fmt.Errorf("failed to create clipboard directory: %w", err)
	}
	tmp := c.Path + ".tmp"
	if err := os.WriteFile(tmp, []byte(text), 0600); err != nil {
		return fmt.Errorf("failed to write clipboard: %w", err)
	}
	return os.Rename(tmp, c.Path)
}
