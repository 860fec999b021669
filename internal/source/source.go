// Package source abstracts where document bytes come from and owns the
// staging directory that decouples long-running index workers from the
// original files.
package source

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
)

// Source provides a readable byte stream plus the metadata the indexer
// records about a document's origin.
type Source interface {
	Open() (io.ReadCloser, error)
	DisplayName() string
	MIMEHint() string
	SizeBytes() int64
}

// FileSource reads a document from a local file path.
type FileSource struct {
	path string
	mime string
	size int64
}

// NewFile creates a Source for a local file. The MIME hint is derived
// from the extension; format dispatch falls back to the suffix anyway.
func NewFile(path string) (*FileSource, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("stat source: %w", err)
	}
	if info.IsDir() {
		return nil, fmt.Errorf("source is a directory: %s", path)
	}
	return &FileSource{
		path: path,
		mime: mimeForExt(filepath.Ext(path)),
		size: info.Size(),
	}, nil
}

// Open returns the file's byte stream.
func (f *FileSource) Open() (io.ReadCloser, error) { return os.Open(f.path) }

// DisplayName returns the base filename.
func (f *FileSource) DisplayName() string { return filepath.Base(f.path) }

// MIMEHint returns the extension-derived MIME type, or "".
func (f *FileSource) MIMEHint() string { return f.mime }

// SizeBytes returns the file size at stat time.
func (f *FileSource) SizeBytes() int64 { return f.size }

// Path returns the underlying file path.
func (f *FileSource) Path() string { return f.path }

var extMIMEs = map[string]string{
	".pdf":  "application/pdf",
	".docx": "application/vnd.openxmlformats-officedocument.wordprocessingml.document",
	".xlsx": "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet",
	".txt":  "text/plain",
	".md":   "text/markdown",
	".csv":  "text/csv",
	".json": "application/json",
	".xml":  "application/xml",
}

func mimeForExt(ext string) string {
	return extMIMEs[strings.ToLower(ext)]
}
