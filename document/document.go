// Package document handles document loading and chunking for ingestion.
// Format-specific parsing lives behind the Loader interface; plain
// text, Markdown, and CSV loaders ship built in, and heavier formats
// (PDF, DOCX, PPTX) plug into the same registry.
package document

import "fmt"

// Page is one logical page of a loaded document. Loaders that have no
// page concept produce a single Page per file.
type Page struct {
	Content    string
	Source     string // basename of the originating file
	PageNumber *int
	FileType   string
	Metadata   map[string]any
}

// Chunk is a fixed-size slice of page content ready for embedding.
type Chunk struct {
	ID         string
	Content    string
	Source     string
	PageNumber *int
	ChunkIndex int
	Metadata   map[string]any
}

// Loader parses one file format into pages.
type Loader interface {
	// Load reads the file at path. source is the basename to record on
	// every produced page.
	Load(path, source string) ([]Page, error)
}

// ProcessingError reports a failure while loading one file.
type ProcessingError struct {
	Path string
	Err  error
}

func (e *ProcessingError) Error() string {
	return fmt.Sprintf("document processing error: %s: %v", e.Path, e.Err)
}

func (e *ProcessingError) Unwrap() error { return e.Err }
