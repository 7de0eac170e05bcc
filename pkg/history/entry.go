package history

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
)

var ErrInvalidHistory = errors.New("history must be a JSON array")

// Kind tells which shape a raw history entry arrived in. It is resolved once,
// when the entry is parsed, so normalization never inspects raw fields again.
type Kind int

const (
	// KindStructured carries role, content and optional attachments.
	KindStructured Kind = iota
	// KindMapping is a loose object; role may come from "role" or "type".
	KindMapping
	// KindOpaque is any other value, taken as literal user text.
	KindOpaque
)

func (k Kind) String() string {
	switch k {
	case KindStructured:
		return "structured"
	case KindMapping:
		return "mapping"
	default:
		return "opaque"
	}
}

// Attachment describes a file that was part of a past message.
// ContentBase64 wins over Content when both are set.
type Attachment struct {
	OriginalName  string `json:"original_name"`
	MimeType      string `json:"mime_type"`
	ContentBase64 string `json:"content_base64,omitempty"`
	Content       []byte `json:"-"`
}

// Entry is one past message as supplied by the caller.
type Entry struct {
	Kind        Kind
	Role        string
	Content     string
	Attachments []Attachment
}

func Structured(role, content string, attachments ...Attachment) Entry {
	return Entry{Kind: KindStructured, Role: role, Content: content, Attachments: attachments}
}

func Mapping(role, content string) Entry {
	return Entry{Kind: KindMapping, Role: role, Content: content}
}

func Opaque(text string) Entry {
	return Entry{Kind: KindOpaque, Content: text}
}

type structuredWire struct {
	Role        string       `json:"role"`
	Content     string       `json:"content"`
	Attachments []Attachment `json:"attachments"`
}

// ParseEntries decodes a JSON array of heterogeneous history entries.
// A missing or null payload means "no history".
func ParseEntries(raw json.RawMessage) ([]Entry, error) {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")) {
		return nil, nil
	}

	var items []json.RawMessage
	if err := json.Unmarshal(trimmed, &items); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidHistory, err)
	}

	entries := make([]Entry, 0, len(items))
	for _, item := range items {
		entries = append(entries, classify(item))
	}
	return entries, nil
}

// ParseEntriesString is ParseEntries for form fields.
func ParseEntriesString(raw string) ([]Entry, error) {
	if strings.TrimSpace(raw) == "" {
		return nil, nil
	}
	return ParseEntries(json.RawMessage(raw))
}

func classify(item json.RawMessage) Entry {
	item = bytes.TrimSpace(item)
	if len(item) == 0 || item[0] != '{' {
		return Opaque(literalText(item))
	}

	var fields map[string]json.RawMessage
	if err := json.Unmarshal(item, &fields); err != nil {
		return Opaque(literalText(item))
	}

	_, hasRole := fields["role"]
	_, hasContent := fields["content"]
	_, hasAttachments := fields["attachments"]
	if hasRole && (hasContent || hasAttachments) {
		var wire structuredWire
		if err := json.Unmarshal(item, &wire); err == nil {
			return Structured(wire.Role, wire.Content, wire.Attachments...)
		}
	}

	role := scalarText(fields["role"])
	if role == "" {
		role = scalarText(fields["type"])
	}
	return Mapping(role, scalarText(fields["content"]))
}

// scalarText returns strings unquoted and numbers or booleans verbatim.
// Objects, arrays and null yield "".
func scalarText(raw json.RawMessage) string {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 {
		return ""
	}
	switch raw[0] {
	case '"':
		var s string
		if err := json.Unmarshal(raw, &s); err != nil {
			return ""
		}
		return s
	case '{', '[', 'n':
		return ""
	default:
		return string(raw)
	}
}

func literalText(raw json.RawMessage) string {
	raw = bytes.TrimSpace(raw)
	if len(raw) > 0 && raw[0] == '"' {
		return scalarText(raw)
	}
	if bytes.Equal(raw, []byte("null")) {
		return ""
	}
	return string(raw)
}
