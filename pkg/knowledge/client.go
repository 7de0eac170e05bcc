package knowledge

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"knowledge-chat-be/internal/pkg/logger"
)

const (
	listTimeout     = 30 * time.Second
	downloadTimeout = 60 * time.Second
)

// Item is one active knowledge file as advertised by the content store.
type Item struct {
	FilePath string `json:"file_path"`
	Filename string `json:"filename"`
	Title    string `json:"title"`
}

// Client talks to the content store that owns the knowledge files.
type Client struct {
	baseURL    string
	httpClient *http.Client
	logger     logger.ILogger
}

func NewClient(baseURL string, log logger.ILogger) *Client {
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{},
		logger:     log,
	}
}

// ListActive returns the active knowledge files. Any failure is logged and
// yields an empty list.
func (c *Client) ListActive(ctx context.Context) []Item {
	ctx, cancel := context.WithTimeout(ctx, listTimeout)
	defer cancel()

	body, err := c.get(ctx, c.baseURL+"/knowledge/active")
	if err != nil {
		c.logger.Error("KnowledgeClient", "Error fetching knowledge files", map[string]interface{}{"error": err.Error()})
		return nil
	}

	var items []Item
	if err := json.Unmarshal(body, &items); err != nil {
		c.logger.Error("KnowledgeClient", "Error parsing knowledge list", map[string]interface{}{"error": err.Error()})
		return nil
	}

	c.logger.Info("KnowledgeClient", "Fetched active knowledge files", map[string]interface{}{"count": len(items)})
	return items
}

// Download returns the file bytes, or nil when the download failed.
func (c *Client) Download(ctx context.Context, filePath string) []byte {
	ctx, cancel := context.WithTimeout(ctx, downloadTimeout)
	defer cancel()

	body, err := c.get(ctx, c.baseURL+"/storage/"+escapePath(filePath))
	if err != nil {
		c.logger.Error("KnowledgeClient", "Error downloading file", map[string]interface{}{
			"file_path": filePath,
			"error":     err.Error(),
		})
		return nil
	}
	return body
}

func (c *Client) get(ctx context.Context, target string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return nil, err
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("unexpected status %d from %s", resp.StatusCode, target)
	}
	return io.ReadAll(resp.Body)
}

// escapePath escapes each segment but keeps the separators.
func escapePath(p string) string {
	segments := strings.Split(strings.TrimLeft(p, "/"), "/")
	for i, s := range segments {
		segments[i] = url.PathEscape(s)
	}
	return strings.Join(segments, "/")
}
