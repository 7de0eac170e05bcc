package knowledge

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"knowledge-chat-be/internal/pkg/logger"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestClientListActive(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/knowledge/active", r.URL.Path)
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`[{"file_path":"docs/a.pdf","filename":"a.pdf","title":"Handbook"}]`))
	}))
	defer srv.Close()

	items := NewClient(srv.URL+"/", logger.NewNopLogger()).ListActive(context.Background())
	require.Len(t, items, 1)
	assert.Equal(t, Item{FilePath: "docs/a.pdf", Filename: "a.pdf", Title: "Handbook"}, items[0])
}

func TestClientListActiveFailuresYieldEmpty(t *testing.T) {
	cases := map[string]http.HandlerFunc{
		"server error": func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusInternalServerError)
		},
		"invalid json": func(w http.ResponseWriter, r *http.Request) {
			w.Write([]byte(`{not json`))
		},
	}
	for name, handler := range cases {
		t.Run(name, func(t *testing.T) {
			srv := httptest.NewServer(handler)
			defer srv.Close()

			assert.Empty(t, NewClient(srv.URL, logger.NewNopLogger()).ListActive(context.Background()))
		})
	}
}

func TestClientDownload(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/storage/docs/my file.txt" {
			w.Write([]byte("hello"))
			return
		}
		w.WriteHeader(http.StatusNotFound)
	}))
	defer srv.Close()

	c := NewClient(srv.URL, logger.NewNopLogger())
	assert.Equal(t, []byte("hello"), c.Download(context.Background(), "docs/my file.txt"))
	assert.Nil(t, c.Download(context.Background(), "docs/missing.txt"))
}
