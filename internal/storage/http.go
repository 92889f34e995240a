package storage

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/textproto"

	"github.com/tendant/tryon-pipeline/internal/acquisition"
	"github.com/tendant/tryon-pipeline/internal/export"
)

// HTTPSaver uploads exported files through the simple-content HTTP API
type HTTPSaver struct {
	baseURL    string
	ownerID    string
	tenantID   string
	httpClient *http.Client
}

// NewHTTPSaver creates a new HTTP-based saver
func NewHTTPSaver(baseURL, ownerID, tenantID string) *HTTPSaver {
	return &HTTPSaver{
		baseURL:    baseURL,
		ownerID:    ownerID,
		tenantID:   tenantID,
		httpClient: &http.Client{},
	}
}

// Save posts f as a multipart upload and returns the created content's URL
func (s *HTTPSaver) Save(ctx context.Context, f export.File) (string, error) {
	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	fields := map[string]string{
		"owner_id":      s.ownerID,
		"tenant_id":     s.tenantID,
		"name":          "Virtual Try-On",
		"document_type": f.MimeType,
		"tags":          "tryon,export",
	}
	for k, v := range fields {
		if err := mw.WriteField(k, v); err != nil {
			return "", fmt.Errorf("failed to write field %s: %w", k, err)
		}
	}

	header := make(textproto.MIMEHeader)
	header.Set("Content-Disposition", fmt.Sprintf(`form-data; name="file"; filename=%q`, f.Name))
	header.Set("Content-Type", f.MimeType)
	part, err := mw.CreatePart(header)
	if err != nil {
		return "", fmt.Errorf("failed to create file part: %w", err)
	}
	if _, err := part.Write(f.Data); err != nil {
		return "", fmt.Errorf("failed to write file part: %w", err)
	}
	if err := mw.Close(); err != nil {
		return "", fmt.Errorf("failed to finish multipart body: %w", err)
	}

	url := fmt.Sprintf("%s/api/v1/contents", s.baseURL)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, &body)
	if err != nil {
		return "", fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", mw.FormDataContentType())

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("failed to upload content: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusCreated {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return "", fmt.Errorf("upload failed with status %d: %s", resp.StatusCode, string(msg))
	}

	var created struct {
		ID string `json:"id"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&created); err != nil {
		return "", fmt.Errorf("failed to decode response: %w", err)
	}
	if created.ID == "" {
		return "", fmt.Errorf("no ID in response")
	}
	return fmt.Sprintf("%s/api/v1/contents/%s", s.baseURL, created.ID), nil
}

// HTTPContentReader provides read access to source photos via the simple-content HTTP API
type HTTPContentReader struct {
	baseURL    string
	httpClient *http.Client
}

// NewHTTPContentReader creates a new HTTP-based content reader
func NewHTTPContentReader(baseURL string) *HTTPContentReader {
	return &HTTPContentReader{
		baseURL:    baseURL,
		httpClient: &http.Client{},
	}
}

// File downloads content into memory as an upload candidate
func (cr *HTTPContentReader) File(ctx context.Context, contentID string) (acquisition.File, error) {
	resp, err := cr.get(ctx, contentID)
	if err != nil {
		return acquisition.File{}, err
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return acquisition.File{}, fmt.Errorf("failed to read content: %w", err)
	}
	mimeType := resp.Header.Get("Content-Type")
	return acquisition.NewFile(fileName(contentID, mimeType), mimeType, data), nil
}

func (cr *HTTPContentReader) get(ctx context.Context, contentID string) (*http.Response, error) {
	url := fmt.Sprintf("%s/api/v1/contents/%s/download", cr.baseURL, contentID)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	resp, err := cr.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to download content: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		resp.Body.Close()
		return nil, fmt.Errorf("download failed with status %d", resp.StatusCode)
	}
	return resp, nil
}
