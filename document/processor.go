package document

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"golang.org/x/text/unicode/norm"
)

// DefaultChunkSize is the default number of characters per chunk.
const DefaultChunkSize = 500

// DefaultChunkOverlap is the default number of overlapping characters
// between consecutive chunks.
const DefaultChunkOverlap = 100

// Processor loads files through the loader registry and splits the
// result into fixed-size chunks.
type Processor struct {
	chunkSize int
	overlap   int
	loaders   map[string]Loader // keyed by lowercase extension incl. dot
}

// Option configures a Processor.
type Option func(*Processor)

// WithChunkSize sets the chunk size in characters.
func WithChunkSize(size int) Option {
	return func(p *Processor) {
		if size > 0 {
			p.chunkSize = size
		}
	}
}

// WithOverlap sets the overlap between chunks in characters.
func WithOverlap(overlap int) Option {
	return func(p *Processor) {
		if overlap >= 0 {
			p.overlap = overlap
		}
	}
}

// NewProcessor creates a Processor with the built-in text loaders.
func NewProcessor(opts ...Option) *Processor {
	p := &Processor{
		chunkSize: DefaultChunkSize,
		overlap:   DefaultChunkOverlap,
		loaders:   make(map[string]Loader),
	}
	for _, opt := range opts {
		opt(p)
	}
	if p.overlap >= p.chunkSize {
		p.overlap = p.chunkSize / 4
	}

	p.RegisterLoader(".txt", &TextLoader{})
	p.RegisterLoader(".md", &MarkdownLoader{})
	p.RegisterLoader(".markdown", &MarkdownLoader{})
	p.RegisterLoader(".csv", &CSVLoader{})
	return p
}

// RegisterLoader installs a loader for the given extension (with dot).
// Last write wins, so callers can replace the built-ins.
func (p *Processor) RegisterLoader(ext string, l Loader) {
	p.loaders[strings.ToLower(ext)] = l
}

// Supported reports whether a loader is registered for path's extension.
func (p *Processor) Supported(path string) bool {
	_, ok := p.loaders[strings.ToLower(filepath.Ext(path))]
	return ok
}

// LoadFiles loads every regular file in paths that has a registered
// loader. Files with no loader or that are not regular files are
// skipped. A loader failure aborts the whole batch.
func (p *Processor) LoadFiles(paths []string) ([]Page, error) {
	var pages []Page
	for _, path := range paths {
		info, err := os.Stat(path)
		if err != nil || !info.Mode().IsRegular() {
			continue
		}
		loader, ok := p.loaders[strings.ToLower(filepath.Ext(path))]
		if !ok {
			continue
		}
		loaded, err := loader.Load(path, filepath.Base(path))
		if err != nil {
			return nil, &ProcessingError{Path: path, Err: err}
		}
		pages = append(pages, loaded...)
	}
	return pages, nil
}

// SplitChunks splits pages into overlapping fixed-size chunks. Chunk
// indexes run per source file so chunk IDs stay unique across pages of
// the same document. Content is NFC-normalized before splitting.
func (p *Processor) SplitChunks(pages []Page) []Chunk {
	var chunks []Chunk
	perSource := make(map[string]int)

	for _, page := range pages {
		content := norm.NFC.String(strings.TrimSpace(page.Content))
		if content == "" {
			continue
		}
		for _, part := range p.split(content) {
			idx := perSource[page.Source]
			perSource[page.Source]++

			meta := map[string]any{
				"source":      page.Source,
				"chunk_index": idx,
			}
			if page.FileType != "" {
				meta["file_type"] = page.FileType
			}
			if page.PageNumber != nil {
				meta["page_number"] = *page.PageNumber
			}
			for k, v := range page.Metadata {
				if v != nil {
					meta[k] = v
				}
			}

			chunks = append(chunks, Chunk{
				ID:         fmt.Sprintf("doc_%s_%d", page.Source, idx),
				Content:    part,
				Source:     page.Source,
				PageNumber: page.PageNumber,
				ChunkIndex: idx,
				Metadata:   meta,
			})
		}
	}
	return chunks
}

// split cuts content into chunkSize-character pieces with overlap,
// respecting rune boundaries.
func (p *Processor) split(content string) []string {
	runes := []rune(content)
	if len(runes) <= p.chunkSize {
		return []string{content}
	}

	step := p.chunkSize - p.overlap
	var parts []string
	for start := 0; start < len(runes); start += step {
		end := start + p.chunkSize
		if end > len(runes) {
			end = len(runes)
		}
		part := strings.TrimSpace(string(runes[start:end]))
		if part != "" {
			parts = append(parts, part)
		}
		if end == len(runes) {
			break
		}
	}
	return parts
}
