// Package storage hosts uploaded worksheet files and hands back the public
// URL that is saved on the worksheet.
package storage

import (
	"context"
	"fmt"
	"io"
	"path"
	"regexp"
	"strings"

	"github.com/google/uuid"
)

// FileStore persists a file under key and returns the URL it can be downloaded from
type FileStore interface {
	Put(ctx context.Context, key string, body io.Reader, size int64, contentType string) (string, error)
	// Delete removes the file under key. A missing file is not an error.
	Delete(ctx context.Context, key string) error
}

var whitespaceRun = regexp.MustCompile(`\s+`)

// Slug lowercases a title and replaces each run of whitespace with an underscore
func Slug(title string) string {
	return whitespaceRun.ReplaceAllString(strings.ToLower(strings.TrimSpace(title)), "_")
}

// WorksheetKey builds a unique object key for an uploaded worksheet file:
// worksheets/<slug>-<first 8 chars of a uuid><ext>
func WorksheetKey(title, filename string) string {
	ext := strings.ToLower(path.Ext(filename))
	return fmt.Sprintf("worksheets/%s-%s%s", Slug(title), uuid.NewString()[:8], ext)
}

// validKey rejects keys that could escape the store's root
func validKey(key string) error {
	if key == "" || strings.HasPrefix(key, "/") || strings.Contains(key, "\\") {
		return fmt.Errorf("invalid storage key %q", key)
	}
	for _, part := range strings.Split(key, "/") {
		if part == ".." || part == "." || part == "" {
			return fmt.Errorf("invalid storage key %q", key)
		}
	}
	return nil
}
