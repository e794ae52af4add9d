// Package docs renders the AsciiDoc reference pages served under /docs.
package docs

import (
	"bytes"
	"context"
	"embed"
	"fmt"
	"io/fs"
	"sort"
	"strings"
	"sync"

	"github.com/bytesparadise/libasciidoc"
	"github.com/bytesparadise/libasciidoc/pkg/configuration"
)

// Content holds the reference pages shipped with the binary. api.adoc is
// generated by cmd/docgen from the handler annotations in internal/api.
//
//go:embed *.adoc
var Content embed.FS

type Service struct {
	fsys  fs.FS
	cache map[string]string // filename -> html content
	mu    sync.RWMutex
}

// NewService serves pages from fsys. A nil fsys uses Content.
func NewService(fsys fs.FS) *Service {
	if fsys == nil {
		fsys = Content
	}
	return &Service{
		fsys:  fsys,
		cache: make(map[string]string),
	}
}

// GetDoc returns the HTML body for an .adoc page, rendering it on first use.
func (s *Service) GetDoc(ctx context.Context, filename string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}

	s.mu.RLock()
	content, ok := s.cache[filename]
	s.mu.RUnlock()
	if ok {
		return content, nil
	}

	data, err := fs.ReadFile(s.fsys, filename)
	if err != nil {
		return "", fmt.Errorf("failed to read doc file: %w", err)
	}

	output := bytes.NewBuffer(nil)
	config := configuration.NewConfiguration(configuration.WithHeaderFooter(false))
	if _, err := libasciidoc.Convert(bytes.NewReader(data), output, config); err != nil {
		return "", fmt.Errorf("failed to convert asciidoc: %w", err)
	}

	html := output.String()
	s.mu.Lock()
	s.cache[filename] = html
	s.mu.Unlock()
	return html, nil
}

// ListDocs returns the available page names, sorted.
func (s *Service) ListDocs() ([]string, error) {
	entries, err := fs.ReadDir(s.fsys, ".")
	if err != nil {
		return nil, err
	}

	var docs []string
	for _, entry := range entries {
		if !entry.IsDir() && strings.HasSuffix(entry.Name(), ".adoc") {
			docs = append(docs, entry.Name())
		}
	}
	sort.Strings(docs)
	return docs, nil
}
