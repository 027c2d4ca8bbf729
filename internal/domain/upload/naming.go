package upload

import (
	"encoding/hex"
	"fmt"
	"path/filepath"
	"strings"
	"time"
	"unicode"
	"unicode/utf8"

	"github.com/gabriel-vasile/mimetype"
	"github.com/google/uuid"
)

const maxNameLen = 80

// GenerateName returns "<unix-millis>-<8 hex>-<sanitized original>".
func GenerateName(originalName, mimeType string) string {
	return uniquenessToken() + "-" + sanitizeName(originalName, mimeType)
}

func uniquenessToken() string {
	id := uuid.New()
	return fmt.Sprintf("%d-%s", time.Now().UnixMilli(), hex.EncodeToString(id[:4]))
}

// sanitizeName keeps the last path element of name and reduces it to
// letters, digits, '-', '_' and '.', so the result can never leave the
// destination directory.
func sanitizeName(name, mimeType string) string {
	if i := strings.LastIndexAny(name, `/\`); i >= 0 {
		name = name[i+1:]
	}

	name = strings.Map(func(r rune) rune {
		switch {
		case unicode.IsControl(r):
			return -1
		case unicode.IsLetter(r), unicode.IsDigit(r), r == '-', r == '_', r == '.':
			return r
		default:
			return '_'
		}
	}, name)
	name = strings.TrimLeft(name, ".")

	if strings.Trim(name, "_") == "" {
		return "file" + extensionFor(mimeType)
	}
	if len(name) > maxNameLen {
		ext := filepath.Ext(name)
		if len(ext) > 16 {
			ext = ""
		}
		name = truncate(strings.TrimSuffix(name, ext), maxNameLen-len(ext)) + ext
	}
	return name
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	s = s[:n]
	for len(s) > 0 && !utf8.ValidString(s) {
		s = s[:len(s)-1]
	}
	return s
}

func extensionFor(mimeType string) string {
	if m := mimetype.Lookup(mimeType); m != nil && m.Extension() != "" {
		return m.Extension()
	}
	return ".bin"
}

// validStoredName reports whether name could have been produced by
// GenerateName, i.e. it is a single safe path element.
func validStoredName(name string) bool {
	if name == "" || name == "." || name == ".." || strings.HasPrefix(name, ".") {
		return false
	}
	for _, r := range name {
		if r == '/' || r == '\\' || unicode.IsControl(r) {
			return false
		}
	}
	return true
}
