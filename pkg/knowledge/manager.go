package knowledge

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"knowledge-chat-be/internal/pkg/logger"
	"knowledge-chat-be/pkg/history"
	"knowledge-chat-be/pkg/llm"
)

const logModule = "KnowledgeManager"

var ErrRefreshRunning = errors.New("knowledge refresh already in progress")

// Catalog lists and fetches knowledge files.
type Catalog interface {
	ListActive(ctx context.Context) []Item
	Download(ctx context.Context, filePath string) []byte
}

// RunRecorder persists refresh runs.
type RunRecorder interface {
	Record(ctx context.Context, status Status) error
	Last(ctx context.Context) (*Status, error)
}

// Notifier is told when a refresh finishes.
type Notifier interface {
	PublishKnowledgeRefreshed(ctx context.Context, filesProcessed int, refreshErr string)
}

// Status describes the most recent refresh.
type Status struct {
	IsRunning      bool       `json:"is_running"`
	LastRefresh    *time.Time `json:"last_refresh"`
	FilesProcessed int        `json:"files_processed"`
	Error          *string    `json:"error"`
	StartTime      *time.Time `json:"start_time"`
	EndTime        *time.Time `json:"end_time"`
	Titles         []string   `json:"titles,omitempty"`
}

// Document is an uploaded knowledge file.
type Document struct {
	Title    string
	Filename string
	Part     llm.Part
}

// Manager owns the grounding document set used to seed new sessions.
// Readers never block on a refresh; they see the previous set until the new
// one is swapped in whole.
type Manager struct {
	catalog  Catalog
	files    llm.FileStore
	recorder RunRecorder
	notifier Notifier
	logger   logger.ILogger
	tempDir  string

	docs atomic.Pointer[[]Document]

	mu     sync.Mutex
	status Status
}

func NewManager(catalog Catalog, files llm.FileStore, recorder RunRecorder, notifier Notifier, log logger.ILogger) *Manager {
	m := &Manager{
		catalog:  catalog,
		files:    files,
		recorder: recorder,
		notifier: notifier,
		logger:   log,
	}
	m.docs.Store(&[]Document{})
	return m
}

func (m *Manager) WithTempDir(dir string) *Manager {
	m.tempDir = dir
	return m
}

// Documents returns the current grounding parts in catalog order.
func (m *Manager) Documents() []llm.Part {
	docs := *m.docs.Load()
	parts := make([]llm.Part, len(docs))
	for i, d := range docs {
		parts[i] = d.Part
	}
	return parts
}

func (m *Manager) Count() int {
	return len(*m.docs.Load())
}

// Status returns a copy of the refresh status.
func (m *Manager) Status() Status {
	m.mu.Lock()
	defer m.mu.Unlock()
	s := m.status
	s.Titles = append([]string(nil), m.status.Titles...)
	return s
}

// IsRunning reports whether a refresh is in progress.
func (m *Manager) IsRunning() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.status.IsRunning
}

// LoadLastRun seeds the status from the recorder; the document set itself is
// not restored since file handles are per process.
func (m *Manager) LoadLastRun(ctx context.Context) {
	if m.recorder == nil {
		return
	}
	last, err := m.recorder.Last(ctx)
	if err != nil {
		m.logger.Warn(logModule, "Could not load last refresh run", map[string]interface{}{"error": err.Error()})
		return
	}
	if last == nil {
		return
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	m.status = *last
	m.status.IsRunning = false
}

// Refresh rebuilds the document set from the catalog and returns how many
// documents it now holds. Sessions that already exist keep their grounding.
func (m *Manager) Refresh(ctx context.Context) (int, error) {
	m.mu.Lock()
	if m.status.IsRunning {
		m.mu.Unlock()
		m.logger.Info(logModule, "Refresh already in progress, skipping", nil)
		return m.Count(), ErrRefreshRunning
	}
	start := time.Now()
	m.status.IsRunning = true
	m.status.StartTime = &start
	m.status.Error = nil
	m.mu.Unlock()

	m.logger.Info(logModule, "Refreshing knowledge base", nil)

	var refreshErr error
	var docs []Document
	func() {
		defer func() {
			if r := recover(); r != nil {
				refreshErr = errors.New("refresh panicked")
				m.logger.Error(logModule, "Refresh panicked", map[string]interface{}{"panic": r})
			}
		}()
		docs, refreshErr = m.collect(ctx)
	}()

	if refreshErr == nil {
		m.docs.Store(&docs)
	}
	m.finish(ctx, docs, refreshErr)

	if refreshErr != nil {
		return m.Count(), refreshErr
	}
	m.logger.Info(logModule, "Knowledge base refreshed", map[string]interface{}{
		"files_processed": len(docs),
	})
	return len(docs), nil
}

func (m *Manager) finish(ctx context.Context, docs []Document, refreshErr error) {
	end := time.Now()

	m.mu.Lock()
	m.status.IsRunning = false
	m.status.EndTime = &end
	if refreshErr != nil {
		msg := refreshErr.Error()
		m.status.Error = &msg
	} else {
		m.status.FilesProcessed = len(docs)
		m.status.LastRefresh = &end
		m.status.Titles = titles(docs)
	}
	snapshot := m.status
	m.mu.Unlock()

	if m.recorder != nil {
		if err := m.recorder.Record(ctx, snapshot); err != nil {
			m.logger.Warn(logModule, "Failed to record refresh run", map[string]interface{}{"error": err.Error()})
		}
	}
	if m.notifier != nil {
		errMsg := ""
		if snapshot.Error != nil {
			errMsg = *snapshot.Error
		}
		m.notifier.PublishKnowledgeRefreshed(ctx, snapshot.FilesProcessed, errMsg)
	}
}

func titles(docs []Document) []string {
	out := make([]string, len(docs))
	for i, d := range docs {
		out[i] = d.Title
	}
	return out
}

func (m *Manager) collect(ctx context.Context) ([]Document, error) {
	if m.files == nil {
		return nil, llm.ErrFilesUnsupported
	}

	items := m.catalog.ListActive(ctx)
	if len(items) == 0 {
		m.logger.Info(logModule, "No active knowledge files found", nil)
		return []Document{}, nil
	}

	docs := make([]Document, 0, len(items))
	for _, item := range items {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		doc, ok := m.process(ctx, item)
		if ok {
			docs = append(docs, doc)
		}
	}
	return docs, nil
}

func (m *Manager) process(ctx context.Context, item Item) (Document, bool) {
	title := item.Title
	if title == "" {
		title = "Unknown"
	}
	if item.FilePath == "" || item.Filename == "" {
		m.logger.Warn(logModule, "Missing file path or filename", map[string]interface{}{"title": title})
		return Document{}, false
	}

	data := m.catalog.Download(ctx, item.FilePath)
	if data == nil {
		m.logger.Warn(logModule, "Failed to download file", map[string]interface{}{"filename": item.Filename})
		return Document{}, false
	}

	path, err := history.StageTempFile(m.tempDir, item.Filename, data)
	if err != nil {
		m.logger.Error(logModule, "Failed to stage file", map[string]interface{}{
			"filename": item.Filename,
			"error":    err.Error(),
		})
		return Document{}, false
	}
	defer func() {
		if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
			m.logger.Warn(logModule, "Cleanup error", map[string]interface{}{"path": path, "error": err.Error()})
		}
	}()

	ref, err := m.files.Upload(ctx, path, DetectMIME(item.Filename), item.Filename)
	if err != nil {
		m.logger.Error(logModule, "Error processing knowledge file", map[string]interface{}{
			"title": title,
			"error": err.Error(),
		})
		return Document{}, false
	}

	m.logger.Info(logModule, "Processed knowledge file", map[string]interface{}{
		"title":    title,
		"filename": item.Filename,
	})
	return Document{
		Title:    title,
		Filename: item.Filename,
		Part:     llm.FilePart(ref.URI, ref.MIMEType),
	}, true
}

// DetectMIME maps a filename to the MIME type used for upload.
func DetectMIME(filename string) string {
	switch strings.ToLower(filepath.Ext(filename)) {
	case ".txt", ".json":
		return "text/plain"
	default:
		return "application/pdf"
	}
}

// RunEvery refreshes on every tick until ctx is done. A non-positive
// interval disables the loop.
func (m *Manager) RunEvery(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		return
	}
	m.logger.Info(logModule, "Periodic refresh started", map[string]interface{}{"interval": interval.String()})

	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if _, err := m.Refresh(ctx); err != nil && !errors.Is(err, ErrRefreshRunning) {
				m.logger.Error(logModule, "Periodic refresh failed", map[string]interface{}{"error": err.Error()})
			}
		}
	}
}
