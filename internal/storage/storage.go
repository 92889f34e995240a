// Package storage persists exported try-on images and reads source photos
// back from the same backends: a local directory, an embedded simple-content
// service, or a simple-content HTTP API.
package storage

import (
	"fmt"
	"mime"
	"path/filepath"
	"strings"
)

// Metadata describes a stored object
type Metadata struct {
	Size        int64
	ContentType string
}

// safeJoin joins key onto baseDir and rejects keys that escape it
func safeJoin(baseDir, key string) (string, error) {
	base := filepath.Clean(baseDir)
	path := filepath.Join(base, key)
	if path != base && !strings.HasPrefix(path, base+string(filepath.Separator)) {
		return "", fmt.Errorf("invalid key %q: path traversal detected", key)
	}
	return path, nil
}

// fileName picks a name for content that only carries a MIME type
func fileName(id, mimeType string) string {
	mt, _, _ := mime.ParseMediaType(mimeType)
	switch mt {
	case "image/jpeg":
		return id + ".jpg"
	case "image/png":
		return id + ".png"
	case "image/webp":
		return id + ".webp"
	}
	exts, _ := mime.ExtensionsByType(mt)
	if len(exts) == 0 {
		return id
	}
	return id + exts[0]
}
