package ingest

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/joseph-ayodele/invoice-analyzer/internal/core/extract"
	"github.com/joseph-ayodele/invoice-analyzer/internal/entity"
)

// EnsureFolder creates the working folder if it does not exist yet.
func EnsureFolder(dir string) error {
	if strings.TrimSpace(dir) == "" {
		return errors.New("working folder is required")
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create working folder %s: %w", dir, err)
	}
	return nil
}

// ListDocuments returns every PDF directly inside dir, sorted by path.
// Hidden files and subdirectories are skipped.
func ListDocuments(dir string) ([]entity.Document, error) {
	if strings.TrimSpace(dir) == "" {
		return nil, errors.New("working folder is required")
	}

	var docs []entity.Document
	err := filepath.WalkDir(dir, func(path string, d fs.DirEntry, walkErr error) error {
		if walkErr != nil {
			return walkErr
		}
		if d.IsDir() {
			if path != dir {
				return filepath.SkipDir
			}
			return nil
		}
		if IsHidden(path) || !AllowedExt(filepath.Ext(path)) {
			return nil
		}
		docs = append(docs, entity.Document{ID: extract.InvoiceID(path), Path: path})
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("walk %s: %w", dir, err)
	}

	sort.Slice(docs, func(i, j int) bool { return docs[i].Path < docs[j].Path })
	return docs, nil
}
