package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite" // SQLite driver
)

// ErrNotFound is returned when no document has the requested id.
var ErrNotFound = errors.New("document not found")

// Document sources.
const (
	SourceUpload     = "upload"
	SourceConfluence = "confluence"
)

// Document is a stored document: extracted text plus upload metadata. The
// original bytes are not kept; Content is the cleaned extraction output.
type Document struct {
	ID         int64
	Name       string // original file name or page title
	Source     string // SourceUpload or SourceConfluence
	Extension  string
	TypeLabel  string
	Size       int64
	Content    string
	URL        string // source page URL for confluence documents
	UploadedAt time.Time
}

// Stats summarizes the stored corpus.
type Stats struct {
	Total      int64
	Uploaded   int64
	Confluence int64
	TotalSize  int64
}

const schema = `
CREATE TABLE IF NOT EXISTS documents (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	name TEXT NOT NULL,
	source TEXT NOT NULL,
	extension TEXT NOT NULL DEFAULT '',
	type_label TEXT NOT NULL DEFAULT '',
	size INTEGER NOT NULL DEFAULT 0,
	content TEXT NOT NULL,
	url TEXT NOT NULL DEFAULT '',
	uploaded_at DATETIME NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_documents_source ON documents(source);
`

// Store persists documents in a single SQLite database file.
type Store struct {
	db   *sql.DB
	path string
}

// Open opens the document database at path, creating the file, its parent
// directory and the schema when missing.
func Open(path string) (*Store, error) {
	if dir := filepath.Dir(path); dir != "" && dir != "." {
		if err := os.MkdirAll(dir, 0o700); err != nil {
			return nil, fmt.Errorf("creating data directory: %w", err)
		}
	}
	db, err := sql.Open("sqlite", path+"?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)")
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("applying schema: %w", err)
	}
	return &Store{db: db, path: path}, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// Path returns the database file path.
func (s *Store) Path() string {
	return s.path
}

// Save inserts a document and returns its assigned id. A zero UploadedAt is
// filled with the current time.
func (s *Store) Save(ctx context.Context, doc Document) (int64, error) {
	if doc.UploadedAt.IsZero() {
		doc.UploadedAt = time.Now().UTC()
	}
	res, err := s.db.ExecContext(ctx, `
		INSERT INTO documents (name, source, extension, type_label, size, content, url, uploaded_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`, doc.Name, doc.Source, doc.Extension, doc.TypeLabel, doc.Size, doc.Content, doc.URL, doc.UploadedAt)
	if err != nil {
		return 0, fmt.Errorf("saving document: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("reading inserted id: %w", err)
	}
	return id, nil
}

// Get retrieves a document by id.
func (s *Store) Get(ctx context.Context, id int64) (Document, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, name, source, extension, type_label, size, content, url, uploaded_at
		FROM documents WHERE id = ?
	`, id)
	doc, err := scanDocument(row)
	if errors.Is(err, sql.ErrNoRows) {
		return Document{}, ErrNotFound
	}
	if err != nil {
		return Document{}, fmt.Errorf("scanning document: %w", err)
	}
	return doc, nil
}

// List returns every stored document in ascending id order.
func (s *Store) List(ctx context.Context) ([]Document, error) {
	return s.query(ctx, `
		SELECT id, name, source, extension, type_label, size, content, url, uploaded_at
		FROM documents ORDER BY id
	`)
}

// Search returns documents whose name or content contains the term, in
// ascending id order. Matching is case-insensitive for ASCII per SQLite LIKE.
func (s *Store) Search(ctx context.Context, term string) ([]Document, error) {
	pattern := "%" + term + "%"
	return s.query(ctx, `
		SELECT id, name, source, extension, type_label, size, content, url, uploaded_at
		FROM documents WHERE name LIKE ? OR content LIKE ?
		ORDER BY id
	`, pattern, pattern)
}

// Delete removes a document by id.
func (s *Store) Delete(ctx context.Context, id int64) error {
	res, err := s.db.ExecContext(ctx, "DELETE FROM documents WHERE id = ?", id)
	if err != nil {
		return fmt.Errorf("deleting document: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("reading affected rows: %w", err)
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

// Stats reports corpus totals in one query.
func (s *Store) Stats(ctx context.Context) (Stats, error) {
	var st Stats
	err := s.db.QueryRowContext(ctx, `
		SELECT COUNT(*),
			COALESCE(SUM(CASE WHEN source = ? THEN 1 ELSE 0 END), 0),
			COALESCE(SUM(CASE WHEN source = ? THEN 1 ELSE 0 END), 0),
			COALESCE(SUM(size), 0)
		FROM documents
	`, SourceUpload, SourceConfluence).Scan(&st.Total, &st.Uploaded, &st.Confluence, &st.TotalSize)
	if err != nil {
		return Stats{}, fmt.Errorf("reading stats: %w", err)
	}
	return st, nil
}

func (s *Store) query(ctx context.Context, q string, args ...any) ([]Document, error) {
	rows, err := s.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, fmt.Errorf("querying documents: %w", err)
	}
	defer rows.Close()

	var docs []Document
	for rows.Next() {
		doc, err := scanDocument(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning document: %w", err)
		}
		docs = append(docs, doc)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating documents: %w", err)
	}
	return docs, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanDocument(row rowScanner) (Document, error) {
	var doc Document
	err := row.Scan(&doc.ID, &doc.Name, &doc.Source, &doc.Extension, &doc.TypeLabel,
		&doc.Size, &doc.Content, &doc.URL, &doc.UploadedAt)
	return doc, err
}
