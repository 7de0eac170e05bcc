package history

import (
	"context"
	"encoding/base64"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"knowledge-chat-be/internal/pkg/logger"
	"knowledge-chat-be/pkg/llm"
)

const logModule = "HistoryNormalizer"

// Normalizer turns raw history entries into role-tagged turns, uploading
// attachments to the file store on the way.
type Normalizer struct {
	files   llm.FileStore
	logger  logger.ILogger
	tempDir string
}

// NewNormalizer accepts a nil file store; attachments are then skipped.
func NewNormalizer(files llm.FileStore, log logger.ILogger) *Normalizer {
	return &Normalizer{
		files:  files,
		logger: log,
	}
}

// WithTempDir sets where decoded attachments are staged before upload.
func (n *Normalizer) WithTempDir(dir string) *Normalizer {
	n.tempDir = dir
	return n
}

// ResolveRole maps caller role names onto the two canonical roles.
// ok is false when the name was not recognised and the user default was applied.
func ResolveRole(name string) (role llm.Role, ok bool) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "", "user", "human":
		return llm.RoleUser, true
	case "assistant", "model", "bot", "ai":
		return llm.RoleAssistant, true
	default:
		return llm.RoleUser, false
	}
}

// Normalize returns one turn per entry that produced at least one part.
// Adjacent turns may still share a role; see Merge.
func (n *Normalizer) Normalize(ctx context.Context, entries []Entry) []llm.Turn {
	turns := make([]llm.Turn, 0, len(entries))
	for i, e := range entries {
		turn, ok := n.normalizeEntry(ctx, i, e)
		if !ok {
			continue
		}
		turns = append(turns, turn)
	}
	return turns
}

// Reconcile runs normalize, merge and trim in order.
func (n *Normalizer) Reconcile(ctx context.Context, entries []Entry) []llm.Turn {
	return TrimLeading(Merge(n.Normalize(ctx, entries)))
}

func (n *Normalizer) normalizeEntry(ctx context.Context, index int, e Entry) (llm.Turn, bool) {
	role := llm.RoleUser
	if e.Kind != KindOpaque {
		var known bool
		role, known = ResolveRole(e.Role)
		if !known {
			n.logger.Warn(logModule, "Unknown role, treating as user", map[string]interface{}{
				"index": index,
				"role":  e.Role,
			})
		}
	}

	var parts []llm.Part
	if e.Content != "" {
		parts = append(parts, llm.TextPart(e.Content))
	}

	if e.Kind == KindStructured {
		for _, a := range e.Attachments {
			part, ok := n.attachmentPart(ctx, index, a)
			if ok {
				parts = append(parts, part)
			}
		}
	}

	if len(parts) == 0 {
		if e.Kind == KindOpaque {
			n.logger.Warn(logModule, "Skipping malformed history item", map[string]interface{}{
				"index": index,
			})
		}
		return llm.Turn{}, false
	}
	return llm.Turn{Role: role, Parts: parts}, true
}

func (n *Normalizer) attachmentPart(ctx context.Context, index int, a Attachment) (llm.Part, bool) {
	data, err := decodeAttachment(a)
	if err != nil {
		n.logger.Warn(logModule, "Skipping undecodable attachment", map[string]interface{}{
			"index": index,
			"name":  a.OriginalName,
			"error": err.Error(),
		})
		return llm.Part{}, false
	}
	if len(data) == 0 {
		return llm.Part{}, false
	}

	ref, err := n.upload(ctx, data, a.MimeType, a.OriginalName)
	if err != nil {
		n.logger.Warn(logModule, "Skipping attachment after failed upload", map[string]interface{}{
			"index": index,
			"name":  a.OriginalName,
			"error": err.Error(),
		})
		return llm.Part{}, false
	}
	return llm.FilePart(ref.URI, ref.MIMEType), true
}

func decodeAttachment(a Attachment) ([]byte, error) {
	if a.ContentBase64 != "" {
		data, err := base64.StdEncoding.DecodeString(a.ContentBase64)
		if err != nil {
			return nil, fmt.Errorf("decode base64: %w", err)
		}
		return data, nil
	}
	return a.Content, nil
}

// upload stages data in a temp file for the duration of the upload.
func (n *Normalizer) upload(ctx context.Context, data []byte, mimeType, displayName string) (*llm.FileRef, error) {
	if n.files == nil {
		return nil, llm.ErrFilesUnsupported
	}

	path, err := StageTempFile(n.tempDir, displayName, data)
	if err != nil {
		return nil, err
	}
	defer func() {
		if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
			n.logger.Warn(logModule, "Failed to remove staged attachment", map[string]interface{}{
				"path":  path,
				"error": err.Error(),
			})
		}
	}()

	return n.files.Upload(ctx, path, mimeType, displayName)
}

var unsafeNameChars = strings.NewReplacer("/", "_", "\\", "_", "*", "_")

// StageTempFile writes data to a new temp file whose name ends with displayName.
// The caller removes the file.
func StageTempFile(dir, displayName string, data []byte) (string, error) {
	suffix := unsafeNameChars.Replace(filepath.Base(displayName))
	if suffix == "." || suffix == "" {
		suffix = "file"
	}

	f, err := os.CreateTemp(dir, "upload-*_"+suffix)
	if err != nil {
		return "", fmt.Errorf("create temp file: %w", err)
	}
	path := f.Name()

	if _, err := f.Write(data); err != nil {
		f.Close()
		os.Remove(path)
		return "", fmt.Errorf("write temp file: %w", err)
	}
	if err := f.Close(); err != nil {
		os.Remove(path)
		return "", fmt.Errorf("close temp file: %w", err)
	}
	return path, nil
}
