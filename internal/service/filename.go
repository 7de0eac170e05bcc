package service

import (
	"path/filepath"
	"regexp"
	"strings"

	"github.com/google/uuid"
	"golang.org/x/text/unicode/norm"
)

var (
	unsafeFilenameChars = regexp.MustCompile(`[^\p{L}\p{M}\p{N}_\s.-]`)
	filenameRuns        = regexp.MustCompile(`[\s_]+`)
)

// sanitizeFilename makes an uploaded base name safe for the local filesystem.
func sanitizeFilename(name string) string {
	if name == "" {
		return "unnamed_file"
	}
	name = norm.NFKD.String(name)
	name = unsafeFilenameChars.ReplaceAllString(name, "_")
	name = filenameRuns.ReplaceAllString(name, "_")
	name = strings.Trim(name, ". ")
	if name == "" {
		return "unnamed_file"
	}
	return name
}

// stagedFilename returns a unique temp name that keeps the original extension.
func stagedFilename(original string) string {
	base := filepath.Base(original)
	ext := filepath.Ext(base)
	stem := strings.TrimSuffix(base, ext)
	if original == "" {
		stem, ext = "file", ""
	}
	return strings.ReplaceAll(uuid.NewString(), "-", "") + "_" + sanitizeFilename(stem) + ext
}
