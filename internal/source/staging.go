package source

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/cespare/xxhash/v2"
	"github.com/charmbracelet/log"
)

// DefaultStagingCapBytes caps how much of one document is staged.
const DefaultStagingCapBytes = 100 << 20 // 100 MiB

// Staging copies source bytes into a private directory before indexing,
// so workers never depend on the original file staying readable.
type Staging struct {
	dir      string
	capBytes int64
}

// StagedFile describes one staged copy.
type StagedFile struct {
	Path        string
	DisplayName string
	MIME        string
	SizeBytes   int64
	Hash        string // xxh64 of the staged bytes
}

// NewStaging opens (creating if needed) the staging directory under root.
func NewStaging(root string, capBytes int64) (*Staging, error) {
	if capBytes <= 0 {
		capBytes = DefaultStagingCapBytes
	}
	dir := filepath.Join(root, "rag", "staging")
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("creating staging dir: %w", err)
	}
	return &Staging{dir: dir, capBytes: capBytes}, nil
}

// Dir returns the staging directory.
func (st *Staging) Dir() string { return st.dir }

// Stage copies a source into the staging directory. The staged file is
// named by the content hash, which makes repeated staging of identical
// bytes idempotent.
func (st *Staging) Stage(src Source) (*StagedFile, error) {
	if src.SizeBytes() > st.capBytes {
		return nil, fmt.Errorf("source %q exceeds staging cap: %d > %d bytes",
			src.DisplayName(), src.SizeBytes(), st.capBytes)
	}

	r, err := src.Open()
	if err != nil {
		return nil, fmt.Errorf("opening source: %w", err)
	}
	defer r.Close()

	tmp, err := os.CreateTemp(st.dir, "stage-*")
	if err != nil {
		return nil, fmt.Errorf("creating staged file: %w", err)
	}
	tmpPath := tmp.Name()

	hasher := xxhash.New()
	n, err := io.Copy(io.MultiWriter(tmp, hasher), io.LimitReader(r, st.capBytes+1))
	if cerr := tmp.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		os.Remove(tmpPath)
		return nil, fmt.Errorf("staging source: %w", err)
	}
	if n > st.capBytes {
		os.Remove(tmpPath)
		return nil, fmt.Errorf("source %q exceeds staging cap while copying", src.DisplayName())
	}

	hash := fmt.Sprintf("%016x", hasher.Sum64())
	final := filepath.Join(st.dir, hash+strings.ToLower(filepath.Ext(src.DisplayName())))
	if err := os.Rename(tmpPath, final); err != nil {
		os.Remove(tmpPath)
		return nil, fmt.Errorf("finalizing staged file: %w", err)
	}

	return &StagedFile{
		Path:        final,
		DisplayName: src.DisplayName(),
		MIME:        src.MIMEHint(),
		SizeBytes:   n,
		Hash:        hash,
	}, nil
}

// Contains reports whether path lives inside the staging directory.
func (st *Staging) Contains(path string) bool {
	abs, err := filepath.Abs(path)
	if err != nil {
		return false
	}
	dir, err := filepath.Abs(st.dir)
	if err != nil {
		return false
	}
	return strings.HasPrefix(abs, dir+string(filepath.Separator))
}

// Remove deletes a staged file. Best effort: failures are logged, not
// returned, and paths outside the staging dir are ignored.
func (st *Staging) Remove(path string) {
	if !st.Contains(path) {
		return
	}
	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		log.Debug("Failed to remove staged file", "path", path, "error", err)
	}
}

// Clear deletes every staged file.
func (st *Staging) Clear() error {
	entries, err := os.ReadDir(st.dir)
	if err != nil {
		return fmt.Errorf("enumerating staging dir: %w", err)
	}
	for _, entry := range entries {
		if err := os.RemoveAll(filepath.Join(st.dir, entry.Name())); err != nil {
			return fmt.Errorf("removing staged %s: %w", entry.Name(), err)
		}
	}
	return nil
}
