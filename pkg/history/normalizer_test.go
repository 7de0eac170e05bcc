package history

import (
	"context"
	"errors"
	"os"
	"sync"
	"testing"

	"knowledge-chat-be/internal/pkg/logger"
	"knowledge-chat-be/pkg/llm"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeFileStore struct {
	mu       sync.Mutex
	failFor  map[string]bool
	uploaded []string
	contents map[string]string
	paths    []string
}

func newFakeFileStore() *fakeFileStore {
	return &fakeFileStore{failFor: map[string]bool{}, contents: map[string]string{}}
}

func (f *fakeFileStore) Upload(ctx context.Context, path, mimeType, displayName string) (*llm.FileRef, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.paths = append(f.paths, path)
	if f.failFor[displayName] {
		return nil, errors.New("upload rejected")
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	f.contents[displayName] = string(data)
	f.uploaded = append(f.uploaded, displayName)
	return &llm.FileRef{URI: "files/" + displayName, MIMEType: mimeType, DisplayName: displayName}, nil
}

func newTestNormalizer(t *testing.T, files llm.FileStore) *Normalizer {
	return NewNormalizer(files, logger.NewNopLogger()).WithTempDir(t.TempDir())
}

func texts(turn llm.Turn) []string {
	out := make([]string, 0, len(turn.Parts))
	for _, p := range turn.Parts {
		if p.IsFile() {
			out = append(out, "file:"+p.FileURI)
			continue
		}
		out = append(out, p.Text)
	}
	return out
}

func TestResolveRole(t *testing.T) {
	tests := []struct {
		in    string
		want  llm.Role
		known bool
	}{
		{"", llm.RoleUser, true},
		{"user", llm.RoleUser, true},
		{"Human", llm.RoleUser, true},
		{"assistant", llm.RoleAssistant, true},
		{"model", llm.RoleAssistant, true},
		{"system", llm.RoleUser, false},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, known := ResolveRole(tt.in)
			assert.Equal(t, tt.want, got)
			assert.Equal(t, tt.known, known)
		})
	}
}

func TestNormalizeDropsEmptyEntries(t *testing.T) {
	n := newTestNormalizer(t, newFakeFileStore())

	turns := n.Normalize(context.Background(), []Entry{
		Structured("user", ""),
		Structured("user", "", Attachment{OriginalName: "none.pdf", MimeType: "application/pdf"}),
		Opaque(""),
		Mapping("assistant", "kept"),
	})

	require.Len(t, turns, 1)
	assert.Equal(t, llm.RoleAssistant, turns[0].Role)
	assert.Equal(t, []string{"kept"}, texts(turns[0]))
}

func TestNormalizeKeepsWhitespaceContent(t *testing.T) {
	n := newTestNormalizer(t, nil)

	turns := n.Normalize(context.Background(), []Entry{Structured("user", "   ")})

	require.Len(t, turns, 1)
	assert.Equal(t, []string{"   "}, texts(turns[0]))
}

func TestNormalizeUploadsAttachmentsWithoutContent(t *testing.T) {
	files := newFakeFileStore()
	n := newTestNormalizer(t, files)

	entries, err := ParseEntries([]byte(`[{"role": "user", "attachments": [{"original_name": "only.txt", "mime_type": "text/plain", "content_base64": "aGk="}]}]`))
	require.NoError(t, err)

	turns := n.Normalize(context.Background(), entries)
	require.Len(t, turns, 1)
	assert.Equal(t, []string{"file:files/only.txt"}, texts(turns[0]))
	assert.Equal(t, "hi", files.contents["only.txt"])
}

func TestNormalizeUploadsAttachments(t *testing.T) {
	files := newFakeFileStore()
	n := newTestNormalizer(t, files)

	turns := n.Normalize(context.Background(), []Entry{
		Structured("user", "see attached",
			Attachment{OriginalName: "notes.txt", MimeType: "text/plain", ContentBase64: "aGVsbG8="},
			Attachment{OriginalName: "raw.txt", MimeType: "text/plain", Content: []byte("raw bytes")},
		),
	})

	require.Len(t, turns, 1)
	assert.Equal(t, []string{"see attached", "file:files/notes.txt", "file:files/raw.txt"}, texts(turns[0]))
	assert.Equal(t, "hello", files.contents["notes.txt"])
	assert.Equal(t, "raw bytes", files.contents["raw.txt"])

	// staged files are gone after upload
	for _, p := range files.paths {
		_, err := os.Stat(p)
		assert.True(t, os.IsNotExist(err), p)
	}
}

func TestNormalizeSkipsFailedAttachments(t *testing.T) {
	files := newFakeFileStore()
	files.failFor["broken.pdf"] = true
	n := newTestNormalizer(t, files)

	turns := n.Normalize(context.Background(), []Entry{
		Structured("user", "",
			Attachment{OriginalName: "broken.pdf", MimeType: "application/pdf", ContentBase64: "aGk="},
			Attachment{OriginalName: "bad64.pdf", MimeType: "application/pdf", ContentBase64: "!!!"},
			Attachment{OriginalName: "ok.pdf", MimeType: "application/pdf", ContentBase64: "aGk="},
		),
	})

	require.Len(t, turns, 1)
	assert.Equal(t, []string{"file:files/ok.pdf"}, texts(turns[0]))
	assert.Len(t, files.paths, 2)
	for _, p := range files.paths {
		_, err := os.Stat(p)
		assert.True(t, os.IsNotExist(err), p)
	}
}

func TestNormalizeAllAttachmentsUnresolvable(t *testing.T) {
	files := newFakeFileStore()
	files.failFor["x.pdf"] = true
	n := newTestNormalizer(t, files)

	turns := n.Normalize(context.Background(), []Entry{
		Structured("user", "", Attachment{OriginalName: "x.pdf", MimeType: "application/pdf", ContentBase64: "aGk="}),
	})
	assert.Empty(t, turns)
}

func TestNormalizeWithoutFileStore(t *testing.T) {
	n := newTestNormalizer(t, nil)

	turns := n.Normalize(context.Background(), []Entry{
		Structured("user", "text", Attachment{OriginalName: "a.pdf", ContentBase64: "aGk="}),
	})
	require.Len(t, turns, 1)
	assert.Equal(t, []string{"text"}, texts(turns[0]))
}

func TestNormalizeIgnoresAttachmentsOnMappings(t *testing.T) {
	files := newFakeFileStore()
	n := newTestNormalizer(t, files)

	e := Mapping("user", "hi")
	e.Attachments = []Attachment{{OriginalName: "a.txt", ContentBase64: "aGk="}}

	turns := n.Normalize(context.Background(), []Entry{e})
	require.Len(t, turns, 1)
	assert.Empty(t, files.uploaded)
}

func TestNormalizeOpaqueIsUserText(t *testing.T) {
	n := newTestNormalizer(t, nil)

	turns := n.Normalize(context.Background(), []Entry{Opaque("loose")})
	require.Len(t, turns, 1)
	assert.Equal(t, llm.RoleUser, turns[0].Role)
}

func TestStageTempFileSanitizesName(t *testing.T) {
	dir := t.TempDir()
	path, err := StageTempFile(dir, "../../etc/pass*wd", []byte("x"))
	require.NoError(t, err)
	defer os.Remove(path)

	assert.Contains(t, path, dir)
	assert.Contains(t, path, "_pass_wd")
}
