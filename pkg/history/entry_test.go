package history

import (
	"encoding/json"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseEntries(t *testing.T) {
	raw := json.RawMessage(`[
		{"role": "user", "content": "hello", "attachments": [{"original_name": "a.txt", "mime_type": "text/plain", "content_base64": "aGk="}]},
		{"type": "assistant", "content": "hi"},
		{"role": "assistant", "content": 42},
		"just text",
		7,
		null,
		{"foo": "bar"}
	]`)

	entries, err := ParseEntries(raw)
	require.NoError(t, err)
	require.Len(t, entries, 7)

	assert.Equal(t, KindStructured, entries[0].Kind)
	assert.Equal(t, "user", entries[0].Role)
	require.Len(t, entries[0].Attachments, 1)
	assert.Equal(t, "aGk=", entries[0].Attachments[0].ContentBase64)

	assert.Equal(t, Mapping("assistant", "hi"), entries[1])

	// content of the wrong type falls back to the loose shape
	assert.Equal(t, Mapping("assistant", "42"), entries[2])

	assert.Equal(t, Opaque("just text"), entries[3])
	assert.Equal(t, Opaque("7"), entries[4])
	assert.Equal(t, Opaque(""), entries[5])
	assert.Equal(t, Mapping("", ""), entries[6])
}

func TestParseEntriesAttachmentsWithoutContent(t *testing.T) {
	entries, err := ParseEntries(json.RawMessage(`[{"role": "user", "attachments": [{"original_name": "a.txt", "mime_type": "text/plain", "content_base64": "aGk="}]}]`))
	require.NoError(t, err)
	require.Len(t, entries, 1)

	assert.Equal(t, KindStructured, entries[0].Kind)
	assert.Equal(t, "", entries[0].Content)
	require.Len(t, entries[0].Attachments, 1)
}

func TestParseEntriesEmpty(t *testing.T) {
	for _, raw := range []string{"", "null", "  "} {
		entries, err := ParseEntries(json.RawMessage(raw))
		assert.NoError(t, err)
		assert.Nil(t, entries)
	}
}

func TestParseEntriesRejectsNonArray(t *testing.T) {
	_, err := ParseEntries(json.RawMessage(`{"role":"user"}`))
	assert.True(t, errors.Is(err, ErrInvalidHistory))

	_, err = ParseEntriesString(`[{"role":`)
	assert.True(t, errors.Is(err, ErrInvalidHistory))
}

func TestKindString(t *testing.T) {
	assert.Equal(t, "structured", KindStructured.String())
	assert.Equal(t, "mapping", KindMapping.String())
	assert.Equal(t, "opaque", KindOpaque.String())
}
