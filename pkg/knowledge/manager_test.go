package knowledge

import (
	"context"
	"errors"
	"fmt"
	"os"
	"sync"
	"testing"
	"time"

	"knowledge-chat-be/internal/pkg/logger"
	"knowledge-chat-be/pkg/llm"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeCatalog struct {
	items   []Item
	files   map[string][]byte
	block   chan struct{}
	started chan struct{}
}

func (c *fakeCatalog) ListActive(ctx context.Context) []Item {
	if c.started != nil {
		close(c.started)
	}
	if c.block != nil {
		<-c.block
	}
	return c.items
}

func (c *fakeCatalog) Download(ctx context.Context, filePath string) []byte {
	return c.files[filePath]
}

type fakeFiles struct {
	mu      sync.Mutex
	fail    map[string]bool
	uploads []string
}

func (f *fakeFiles) Upload(ctx context.Context, path, mimeType, displayName string) (*llm.FileRef, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, err := os.Stat(path); err != nil {
		return nil, err
	}
	if f.fail[displayName] {
		return nil, errors.New("upload rejected")
	}
	f.uploads = append(f.uploads, displayName)
	return &llm.FileRef{URI: "files/" + displayName, MIMEType: mimeType, DisplayName: displayName}, nil
}

type memoryRecorder struct {
	runs []Status
}

func (r *memoryRecorder) Record(ctx context.Context, status Status) error {
	r.runs = append(r.runs, status)
	return nil
}

func (r *memoryRecorder) Last(ctx context.Context) (*Status, error) {
	if len(r.runs) == 0 {
		return nil, nil
	}
	s := r.runs[len(r.runs)-1]
	return &s, nil
}

type countingNotifier struct {
	calls int
	last  int
}

func (n *countingNotifier) PublishKnowledgeRefreshed(ctx context.Context, filesProcessed int, refreshErr string) {
	n.calls++
	n.last = filesProcessed
}

func TestRefreshBuildsDocumentSet(t *testing.T) {
	catalog := &fakeCatalog{
		items: []Item{
			{FilePath: "a", Filename: "guide.pdf", Title: "Guide"},
			{FilePath: "b", Filename: "notes.txt"},
			{FilePath: "", Filename: "orphan.pdf", Title: "No path"},
			{FilePath: "c", Filename: "missing.pdf"},
			{FilePath: "d", Filename: "bad.json"},
		},
		files: map[string][]byte{
			"a": []byte("%PDF"),
			"b": []byte("text"),
			"d": []byte("{}"),
		},
	}
	files := &fakeFiles{fail: map[string]bool{"bad.json": true}}
	recorder := &memoryRecorder{}
	notifier := &countingNotifier{}
	m := NewManager(catalog, files, recorder, notifier, logger.NewNopLogger()).WithTempDir(t.TempDir())

	n, err := m.Refresh(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, n)
	assert.Equal(t, []llm.Part{
		llm.FilePart("files/guide.pdf", "application/pdf"),
		llm.FilePart("files/notes.txt", "text/plain"),
	}, m.Documents())

	status := m.Status()
	assert.False(t, status.IsRunning)
	assert.Equal(t, 2, status.FilesProcessed)
	assert.Nil(t, status.Error)
	assert.NotNil(t, status.LastRefresh)
	assert.Equal(t, []string{"Guide", "Unknown"}, status.Titles)

	require.Len(t, recorder.runs, 1)
	assert.Equal(t, 1, notifier.calls)
	assert.Equal(t, 2, notifier.last)
}

func TestRefreshRejectsConcurrentRun(t *testing.T) {
	catalog := &fakeCatalog{block: make(chan struct{}), started: make(chan struct{})}
	m := NewManager(catalog, &fakeFiles{}, nil, nil, logger.NewNopLogger())

	done := make(chan error, 1)
	go func() {
		_, err := m.Refresh(context.Background())
		done <- err
	}()
	<-catalog.started

	assert.True(t, m.IsRunning())
	_, err := m.Refresh(context.Background())
	assert.ErrorIs(t, err, ErrRefreshRunning)

	close(catalog.block)
	require.NoError(t, <-done)
	assert.False(t, m.IsRunning())
}

func TestRefreshKeepsPreviousSetOnFailure(t *testing.T) {
	catalog := &fakeCatalog{
		items: []Item{{FilePath: "a", Filename: "a.pdf"}},
		files: map[string][]byte{"a": []byte("x")},
	}
	m := NewManager(catalog, &fakeFiles{}, nil, nil, logger.NewNopLogger())
	_, err := m.Refresh(context.Background())
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = m.Refresh(ctx)
	require.Error(t, err)

	assert.Equal(t, 1, m.Count())
	status := m.Status()
	require.NotNil(t, status.Error)
	assert.Equal(t, 1, status.FilesProcessed)
}

func TestRefreshWithoutFileStore(t *testing.T) {
	m := NewManager(&fakeCatalog{}, nil, nil, nil, logger.NewNopLogger())
	_, err := m.Refresh(context.Background())
	assert.ErrorIs(t, err, llm.ErrFilesUnsupported)
}

func TestLoadLastRun(t *testing.T) {
	now := time.Now()
	recorder := &memoryRecorder{runs: []Status{{IsRunning: true, FilesProcessed: 4, LastRefresh: &now}}}
	m := NewManager(&fakeCatalog{}, &fakeFiles{}, recorder, nil, logger.NewNopLogger())

	m.LoadLastRun(context.Background())

	status := m.Status()
	assert.False(t, status.IsRunning)
	assert.Equal(t, 4, status.FilesProcessed)
	assert.Equal(t, 0, m.Count())
}

func TestDetectMIME(t *testing.T) {
	for name, want := range map[string]string{
		"a.TXT":  "text/plain",
		"b.json": "text/plain",
		"c.pdf":  "application/pdf",
		"d":      "application/pdf",
	} {
		assert.Equal(t, want, DetectMIME(name), fmt.Sprintf("filename %q", name))
	}
}

func TestRunEveryStopsWithContext(t *testing.T) {
	m := NewManager(&fakeCatalog{}, &fakeFiles{}, nil, nil, logger.NewNopLogger())
	ctx, cancel := context.WithCancel(context.Background())

	done := make(chan struct{})
	go func() {
		m.RunEvery(ctx, 5*time.Millisecond)
		close(done)
	}()

	assert.Eventually(t, func() bool { return m.Status().LastRefresh != nil }, time.Second, 5*time.Millisecond)
	cancel()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("RunEvery did not stop")
	}
}
