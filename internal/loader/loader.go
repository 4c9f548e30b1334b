// Package loader turns a source file into page-level documents.
package loader

import (
	"crypto/sha1"
	"encoding/hex"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/ledongthuc/pdf"
	"github.com/pkg/errors"

	"agentchat/internal/domain"
)

// ErrNoContent is returned when a file yields no extractable text.
var ErrNoContent = errors.New("document has no extractable text")

// Load reads path and returns its documents. PDFs produce one document per
// non-empty page; plain text and markdown files produce a single document.
func Load(path string) ([]domain.Document, error) {
	if _, err := os.Stat(path); err != nil {
		return nil, errors.Wrapf(err, "cannot load %s", path)
	}
	var (
		docs []domain.Document
		err  error
	)
	switch strings.ToLower(filepath.Ext(path)) {
	case ".pdf":
		docs, err = loadPDF(path)
	case ".txt", ".md":
		docs, err = loadText(path)
	default:
		return nil, errors.Errorf("unsupported document type %q", filepath.Ext(path))
	}
	if err != nil {
		return nil, err
	}
	if len(docs) == 0 {
		return nil, errors.Wrap(ErrNoContent, path)
	}
	return docs, nil
}

func loadPDF(path string) ([]domain.Document, error) {
	f, r, err := pdf.Open(path)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to open pdf %s", path)
	}
	defer f.Close()

	base := hashString(path)
	var docs []domain.Document
	for i := 1; i <= r.NumPage(); i++ {
		p := r.Page(i)
		if p.V.IsNull() {
			continue
		}
		text, err := p.GetPlainText(nil)
		if err != nil {
			return nil, errors.Wrapf(err, "failed to extract page %d of %s", i, path)
		}
		if strings.TrimSpace(text) == "" {
			continue
		}
		docs = append(docs, domain.Document{
			ID:      base + "-p" + strconv.Itoa(i),
			Path:    path,
			Page:    i,
			Content: text,
		})
	}
	return docs, nil
}

func loadText(path string) ([]domain.Document, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to read %s", path)
	}
	if strings.TrimSpace(string(data)) == "" {
		return nil, nil
	}
	return []domain.Document{{
		ID:      hashString(path),
		Path:    path,
		Page:    1,
		Content: string(data),
	}}, nil
}

func hashString(s string) string {
	h := sha1.Sum([]byte(s))
	return hex.EncodeToString(h[:8])
}
