package source

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/charmbracelet/log"
	gitignore "github.com/sabhiram/go-gitignore"

	"github.com/nickcecere/lrag/internal/extract"
)

// ignoreFileName holds exclusion patterns for recursive ingestion, in
// gitignore syntax. Only the file at the walk root is read; copies in
// subdirectories are not consulted.
const ignoreFileName = ".lragignore"

// CollectFiles walks root and returns sources for every supported
// document, honoring .lragignore patterns and any extra ignore patterns.
func CollectFiles(root string, extraPatterns []string) ([]*FileSource, error) {
	absRoot, err := filepath.Abs(root)
	if err != nil {
		return nil, fmt.Errorf("resolving root: %w", err)
	}
	info, err := os.Stat(absRoot)
	if err != nil {
		return nil, fmt.Errorf("root does not exist: %w", err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("root is not a directory: %s", absRoot)
	}

	ignorer := buildIgnorer(absRoot, extraPatterns)

	var sources []*FileSource
	err = filepath.WalkDir(absRoot, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			log.Debug("Skipping inaccessible path", "path", path, "error", err)
			return nil
		}

		relPath, relErr := filepath.Rel(absRoot, path)
		if relErr != nil {
			relPath = path
		}

		if d.IsDir() {
			if relPath != "." && (d.Name()[0] == '.' || ignorer.MatchesPath(relPath+"/")) {
				return filepath.SkipDir
			}
			return nil
		}

		if ignorer.MatchesPath(relPath) {
			return nil
		}
		if _, err := extract.Detect(d.Name(), ""); err != nil {
			return nil
		}

		src, err := NewFile(path)
		if err != nil {
			log.Warn("Skipping unreadable file", "path", path, "error", err)
			return nil
		}
		sources = append(sources, src)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("walking %s: %w", absRoot, err)
	}
	return sources, nil
}

func buildIgnorer(root string, extraPatterns []string) *gitignore.GitIgnore {
	patterns := append([]string(nil), extraPatterns...)

	ignorePath := filepath.Join(root, ignoreFileName)
	if _, err := os.Stat(ignorePath); err == nil {
		if gi, err := gitignore.CompileIgnoreFileAndLines(ignorePath, patterns...); err == nil {
			return gi
		}
		log.Warn("Failed to parse ignore file", "path", ignorePath)
	}
	return gitignore.CompileIgnoreLines(patterns...)
}
