// Package vectorstore persists document chunk embeddings in SQLite and
// serves cosine-similarity search over them.
package vectorstore

import (
	"context"
	"database/sql"
	"encoding/binary"
	"encoding/json"
	"fmt"
	"math"
	"sort"
	"time"

	_ "modernc.org/sqlite" // SQLite driver
)

const schema = `
CREATE TABLE IF NOT EXISTS vectors (
	id          TEXT PRIMARY KEY,
	namespace   TEXT NOT NULL,
	source      TEXT NOT NULL,
	content     TEXT NOT NULL,
	chunk_index INTEGER NOT NULL DEFAULT 0,
	page_number INTEGER,
	metadata    TEXT NOT NULL DEFAULT '{}',
	embedding   BLOB NOT NULL,
	created_at  DATETIME NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_vectors_namespace ON vectors(namespace);
`

// Record is one chunk plus its embedding, ready to store.
type Record struct {
	ID         string
	Content    string
	Source     string
	ChunkIndex int
	PageNumber *int
	Metadata   map[string]any
	Embedding  []float32
}

// Match is one search result, ranked by cosine similarity.
type Match struct {
	ID       string
	Score    float64
	Content  string
	Source   string
	Metadata map[string]any
}

// Store persists embeddings in a SQLite database.
type Store struct {
	db *sql.DB
}

// NewStore opens (or creates) a SQLite database at dbPath and ensures
// the vectors table exists. The caller is responsible for calling Close.
func NewStore(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite %s: %w", dbPath, err)
	}
	db.SetMaxOpenConns(1) // prevent SQLITE_BUSY
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("create schema: %w", err)
	}
	return &Store{db: db}, nil
}

// Close releases the underlying database connection.
func (s *Store) Close() error { return s.db.Close() }

// Add upserts records under namespace in one transaction. A record
// whose ID already exists is replaced.
func (s *Store) Add(ctx context.Context, namespace string, records []Record) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	now := time.Now().UTC()
	for _, rec := range records {
		metadata, _ := json.Marshal(rec.Metadata)
		_, err := tx.ExecContext(ctx, `
			INSERT OR REPLACE INTO vectors
				(id, namespace, source, content, chunk_index, page_number, metadata, embedding, created_at)
			VALUES (?,?,?,?,?,?,?,?,?)`,
			rec.ID, namespace, rec.Source, rec.Content, rec.ChunkIndex,
			nullInt(rec.PageNumber), string(metadata), encodeVector(rec.Embedding), now,
		)
		if err != nil {
			return fmt.Errorf("insert vector %s: %w", rec.ID, err)
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	return nil
}

// Search scans namespace and returns the topK records ranked by cosine
// similarity to query. The scan is brute force; fine for the corpus
// sizes a single upload produces.
func (s *Store) Search(ctx context.Context, namespace string, query []float32, topK int) ([]Match, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, content, source, metadata, embedding FROM vectors WHERE namespace = ?`, namespace)
	if err != nil {
		return nil, fmt.Errorf("query vectors: %w", err)
	}
	defer rows.Close()

	var matches []Match
	for rows.Next() {
		var m Match
		var metadataJSON string
		var blob []byte
		if err := rows.Scan(&m.ID, &m.Content, &m.Source, &metadataJSON, &blob); err != nil {
			return nil, fmt.Errorf("scan vector: %w", err)
		}
		vec, err := decodeVector(blob)
		if err != nil {
			return nil, fmt.Errorf("decode vector %s: %w", m.ID, err)
		}
		_ = json.Unmarshal([]byte(metadataJSON), &m.Metadata)
		m.Score = cosine(query, vec)
		matches = append(matches, m)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	sort.SliceStable(matches, func(i, j int) bool { return matches[i].Score > matches[j].Score })
	if topK > 0 && len(matches) > topK {
		matches = matches[:topK]
	}
	return matches, nil
}

// Count returns the number of stored vectors in namespace.
func (s *Store) Count(ctx context.Context, namespace string) (int, error) {
	var n int
	err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM vectors WHERE namespace = ?`, namespace).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("count vectors: %w", err)
	}
	return n, nil
}

// encodeVector packs a float32 slice as little-endian bytes.
func encodeVector(vec []float32) []byte {
	buf := make([]byte, 4*len(vec))
	for i, v := range vec {
		binary.LittleEndian.PutUint32(buf[i*4:], math.Float32bits(v))
	}
	return buf
}

// decodeVector unpacks little-endian bytes into a float32 slice.
func decodeVector(buf []byte) ([]float32, error) {
	if len(buf)%4 != 0 {
		return nil, fmt.Errorf("embedding blob length %d is not a multiple of 4", len(buf))
	}
	vec := make([]float32, len(buf)/4)
	for i := range vec {
		vec[i] = math.Float32frombits(binary.LittleEndian.Uint32(buf[i*4:]))
	}
	return vec, nil
}

// cosine computes cosine similarity between two vectors. Mismatched
// lengths or zero vectors score 0.
func cosine(a, b []float32) float64 {
	if len(a) != len(b) || len(a) == 0 {
		return 0
	}
	var dot, na, nb float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		na += float64(a[i]) * float64(a[i])
		nb += float64(b[i]) * float64(b[i])
	}
	if na == 0 || nb == 0 {
		return 0
	}
	return dot / (math.Sqrt(na) * math.Sqrt(nb))
}

func nullInt(v *int) any {
	if v == nil {
		return nil
	}
	return *v
}
