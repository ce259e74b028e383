package remote

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// HTTPDoer abstracts the HTTP client for testing.
type HTTPDoer interface {
	Do(req *http.Request) (*http.Response, error)
}

// CredentialSource supplies the bearer credential attached to every request.
// The client only checks for presence, never inspects the contents.
type CredentialSource interface {
	Token() (string, bool)
}

// HTTPClient speaks the object-store REST API:
//
//	POST   /v1/folders                          find-or-create app folder
//	GET    /v1/folders/{id}/files/{name}        read file contents
//	PUT    /v1/folders/{id}/files/{name}        create-or-update file
//	DELETE /v1/folders/{id}/files/{name}        delete file
//	GET    /v1/folders/{id}/files?prefix=...    list files
//
// File names may contain slashes (the Backups subfolder); they are
// path-escaped per segment.
type HTTPClient struct {
	baseURL    string
	appFolder  string
	httpClient HTTPDoer
	creds      CredentialSource
}

// Config holds HTTP client configuration.
type Config struct {
	// BaseURL of the object-store service, without a trailing slash.
	BaseURL string

	// AppFolderName is the per-user application folder (default "Satchel").
	AppFolderName string

	// HTTPClient overrides the transport (default: 30s timeout client).
	HTTPClient HTTPDoer
}

// NewHTTPClient creates a remote client using creds for authorization.
func NewHTTPClient(cfg Config, creds CredentialSource) *HTTPClient {
	if cfg.AppFolderName == "" {
		cfg.AppFolderName = "Satchel"
	}
	if cfg.HTTPClient == nil {
		cfg.HTTPClient = &http.Client{Timeout: 30 * time.Second}
	}
	return &HTTPClient{
		baseURL:    strings.TrimRight(cfg.BaseURL, "/"),
		appFolder:  cfg.AppFolderName,
		httpClient: cfg.HTTPClient,
		creds:      creds,
	}
}

// FindOrCreateAppFolder implements Client.FindOrCreateAppFolder.
func (c *HTTPClient) FindOrCreateAppFolder(ctx context.Context) (FolderID, error) {
	body, err := json.Marshal(map[string]string{"name": c.appFolder})
	if err != nil {
		return "", fmt.Errorf("failed to marshal folder request: %w", err)
	}

	data, _, err := c.do(ctx, http.MethodPost, c.baseURL+"/v1/folders", body)
	if err != nil {
		return "", err
	}

	var folder struct {
		ID FolderID `json:"id"`
	}
	if err := json.Unmarshal(data, &folder); err != nil {
		return "", fmt.Errorf("failed to parse folder response: %w", err)
	}
	if folder.ID == "" {
		return "", fmt.Errorf("folder response missing id")
	}
	return folder.ID, nil
}

// ReadNamedFile implements Client.ReadNamedFile.
func (c *HTTPClient) ReadNamedFile(ctx context.Context, folder FolderID, name string) ([]byte, error) {
	data, _, err := c.do(ctx, http.MethodGet, c.fileURL(folder, name), nil)
	if err != nil {
		return nil, err
	}
	return data, nil
}

// WriteNamedFile implements Client.WriteNamedFile.
func (c *HTTPClient) WriteNamedFile(ctx context.Context, folder FolderID, name string, data []byte) (FileID, error) {
	respData, _, err := c.do(ctx, http.MethodPut, c.fileURL(folder, name), data)
	if err != nil {
		return "", err
	}

	var file struct {
		ID FileID `json:"id"`
	}
	if err := json.Unmarshal(respData, &file); err != nil {
		return "", fmt.Errorf("failed to parse write response: %w", err)
	}
	return file.ID, nil
}

// DeleteNamedFile implements Client.DeleteNamedFile.
func (c *HTTPClient) DeleteNamedFile(ctx context.Context, folder FolderID, name string) (bool, error) {
	_, status, err := c.do(ctx, http.MethodDelete, c.fileURL(folder, name), nil)
	if err != nil {
		if status == http.StatusNotFound {
			return false, nil
		}
		return false, err
	}
	return true, nil
}

// ListFiles implements Client.ListFiles.
func (c *HTTPClient) ListFiles(ctx context.Context, folder FolderID, prefix string) ([]FileInfo, error) {
	u := fmt.Sprintf("%s/v1/folders/%s/files", c.baseURL, url.PathEscape(string(folder)))
	if prefix != "" {
		u += "?prefix=" + url.QueryEscape(prefix)
	}

	data, _, err := c.do(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, err
	}

	var listing struct {
		Files []FileInfo `json:"files"`
	}
	if err := json.Unmarshal(data, &listing); err != nil {
		return nil, fmt.Errorf("failed to parse file listing: %w", err)
	}
	return listing.Files, nil
}

// fileURL builds the URL for a named file, escaping each path segment so
// names like "Backups/satchel_...json" address the subfolder.
func (c *HTTPClient) fileURL(folder FolderID, name string) string {
	segments := strings.Split(name, "/")
	for i, seg := range segments {
		segments[i] = url.PathEscape(seg)
	}
	return fmt.Sprintf("%s/v1/folders/%s/files/%s",
		c.baseURL, url.PathEscape(string(folder)), strings.Join(segments, "/"))
}

// do performs one authenticated request and maps failure statuses onto the
// package error taxonomy. The returned status is set even on error.
func (c *HTTPClient) do(ctx context.Context, method, u string, body []byte) ([]byte, int, error) {
	token, ok := c.creds.Token()
	if !ok {
		return nil, 0, ErrUnauthorized
	}

	var reader io.Reader
	if body != nil {
		reader = bytes.NewReader(body)
	}

	req, err := http.NewRequestWithContext(ctx, method, u, reader)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to build request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+token)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, 0, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, resp.StatusCode, fmt.Errorf("failed to read response: %w", err)
	}

	switch {
	case resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden:
		return nil, resp.StatusCode, ErrUnauthorized
	case resp.StatusCode == http.StatusNotFound:
		return nil, resp.StatusCode, ErrNotFound
	case resp.StatusCode >= 400:
		return nil, resp.StatusCode, &StatusError{Code: resp.StatusCode, Body: truncate(string(data), 200)}
	}

	return data, resp.StatusCode, nil
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
