package storage

import (
	"bytes"
	"context"
	"fmt"
	"io"

	"github.com/google/uuid"
	"github.com/tendant/simple-content/pkg/simplecontent"

	"github.com/tendant/tryon-pipeline/internal/acquisition"
	"github.com/tendant/tryon-pipeline/internal/export"
)

// ContentSaver uploads exported files to a simple-content service
type ContentSaver struct {
	service  simplecontent.Service
	ownerID  uuid.UUID
	tenantID uuid.UUID
}

// NewContentSaver creates a saver that uploads on behalf of owner and tenant
func NewContentSaver(service simplecontent.Service, ownerID, tenantID uuid.UUID) *ContentSaver {
	return &ContentSaver{
		service:  service,
		ownerID:  ownerID,
		tenantID: tenantID,
	}
}

// Save uploads f and returns a content:// location for it
func (cs *ContentSaver) Save(ctx context.Context, f export.File) (string, error) {
	content, err := cs.service.UploadContent(ctx, simplecontent.UploadContentRequest{
		OwnerID:      cs.ownerID,
		TenantID:     cs.tenantID,
		Name:         "Virtual Try-On",
		DocumentType: f.MimeType,
		Reader:       bytes.NewReader(f.Data),
		FileName:     f.Name,
		Tags:         []string{"tryon", "export"},
	})
	if err != nil {
		return "", fmt.Errorf("failed to upload content: %w", err)
	}
	return "content://" + content.ID.String(), nil
}

// ContentReader provides read access to source photos stored in simple-content
type ContentReader struct {
	service simplecontent.Service
}

// NewContentReader creates a new content reader using simple-content service
func NewContentReader(service simplecontent.Service) *ContentReader {
	return &ContentReader{
		service: service,
	}
}

// GetReader returns a reader for content by content ID
func (cr *ContentReader) GetReader(ctx context.Context, contentID string) (io.ReadCloser, error) {
	id, err := uuid.Parse(contentID)
	if err != nil {
		return nil, fmt.Errorf("invalid content ID: %w", err)
	}

	reader, err := cr.service.DownloadContent(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to download content: %w", err)
	}
	return reader, nil
}

// GetMetadata returns size and MIME type for content
func (cr *ContentReader) GetMetadata(ctx context.Context, contentID string) (*Metadata, error) {
	id, err := uuid.Parse(contentID)
	if err != nil {
		return nil, fmt.Errorf("invalid content ID: %w", err)
	}

	details, err := cr.service.GetContentDetails(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to get content details: %w", err)
	}
	return &Metadata{
		Size:        details.FileSize,
		ContentType: details.MimeType,
	}, nil
}

// File describes stored content as an upload candidate. The content is
// downloaded when the upload strategy opens it.
func (cr *ContentReader) File(ctx context.Context, contentID string) (acquisition.File, error) {
	meta, err := cr.GetMetadata(ctx, contentID)
	if err != nil {
		return acquisition.File{}, err
	}
	return acquisition.File{
		Name:     fileName(contentID, meta.ContentType),
		MimeType: meta.ContentType,
		Size:     meta.Size,
		Open: func() (io.ReadCloser, error) {
			return cr.GetReader(ctx, contentID)
		},
	}, nil
}
