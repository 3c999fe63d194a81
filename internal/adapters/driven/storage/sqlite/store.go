package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite" // SQLite driver

	"github.com/custodia-labs/ragsample/internal/adapters/driven/storage/sqlite/migrations"
	"github.com/custodia-labs/ragsample/internal/adapters/driven/storage/vecmath"
	"github.com/custodia-labs/ragsample/internal/core/domain"
	"github.com/custodia-labs/ragsample/internal/core/ports/driven"
)

// Ensure Store implements the interface.
var _ driven.EmbeddingStore = (*Store)(nil)

// Store is a SQLite-backed embedding store.
type Store struct {
	db   *sql.DB
	path string
}

// DefaultPath returns ~/.ragsample/embeddings.db.
func DefaultPath() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("getting home directory: %w", err)
	}
	return filepath.Join(home, ".ragsample", "embeddings.db"), nil
}

// NewStore opens (creating if needed) the database at path.
// An empty path uses DefaultPath.
func NewStore(path string) (*Store, error) {
	if path == "" {
		p, err := DefaultPath()
		if err != nil {
			return nil, err
		}
		path = p
	}

	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return nil, fmt.Errorf("creating data directory: %w", err)
	}

	// WAL lets searches run while a batch is being written.
	db, err := sql.Open("sqlite", path+"?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)")
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	s := &Store{db: db, path: path}
	if err := s.migrate(migrations.FS); err != nil {
		db.Close()
		return nil, fmt.Errorf("running migrations: %w", err)
	}
	return s, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// Path returns the database file path.
func (s *Store) Path() string {
	return s.path
}

// migrate runs all pending migrations and records their versions.
func (s *Store) migrate(fsys fs.FS) error {
	_, err := s.db.Exec(`
		CREATE TABLE IF NOT EXISTS schema_migrations (
			version INTEGER PRIMARY KEY,
			applied_at DATETIME DEFAULT CURRENT_TIMESTAMP
		)
	`)
	if err != nil {
		return fmt.Errorf("creating schema_migrations table: %w", err)
	}

	var currentVersion int
	row := s.db.QueryRow("SELECT COALESCE(MAX(version), 0) FROM schema_migrations")
	if err := row.Scan(&currentVersion); err != nil {
		return fmt.Errorf("getting current version: %w", err)
	}

	entries, err := fs.ReadDir(fsys, ".")
	if err != nil {
		return fmt.Errorf("reading migrations directory: %w", err)
	}

	var upFiles []string
	for _, entry := range entries {
		if name := entry.Name(); strings.HasSuffix(name, ".up.sql") {
			upFiles = append(upFiles, name)
		}
	}
	sort.Strings(upFiles)

	for _, name := range upFiles {
		// "001_embeddings.up.sql" -> 1
		var version int
		if _, err := fmt.Sscanf(name, "%d_", &version); err != nil {
			continue
		}
		if version <= currentVersion {
			continue
		}

		content, err := fs.ReadFile(fsys, name)
		if err != nil {
			return fmt.Errorf("reading migration %s: %w", name, err)
		}
		if _, err := s.db.Exec(string(content)); err != nil {
			return fmt.Errorf("executing migration %s: %w", name, err)
		}
		if _, err := s.db.Exec("INSERT INTO schema_migrations (version) VALUES (?)", version); err != nil {
			return fmt.Errorf("recording migration %s: %w", name, err)
		}
	}

	return nil
}

// Add stores an embedding under a random id.
func (s *Store) Add(ctx context.Context, embedding []float32, segment domain.TextSegment) (string, error) {
	ids, err := s.AddAll(ctx, [][]float32{embedding}, []domain.TextSegment{segment})
	if err != nil {
		return "", err
	}
	return ids[0], nil
}

// AddAll stores a batch in one transaction.
func (s *Store) AddAll(ctx context.Context, embeddings [][]float32, segments []domain.TextSegment) ([]string, error) {
	if len(embeddings) != len(segments) {
		return nil, fmt.Errorf("%w: %d embeddings but %d segments",
			domain.ErrInvalidInput, len(embeddings), len(segments))
	}
	if len(embeddings) == 0 {
		return nil, nil
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("beginning transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO embeddings (id, vector, dimensions, text, metadata, created_at)
		VALUES (?, ?, ?, ?, ?, ?)
	`)
	if err != nil {
		return nil, fmt.Errorf("preparing insert: %w", err)
	}
	defer stmt.Close()

	now := time.Now().UTC()
	ids := make([]string, len(embeddings))
	for i, emb := range embeddings {
		md, err := json.Marshal(segments[i].Metadata)
		if err != nil {
			return nil, fmt.Errorf("marshalling metadata: %w", err)
		}
		ids[i] = uuid.NewString()
		if _, err := stmt.ExecContext(ctx, ids[i], vecmath.Encode(emb), len(emb),
			segments[i].Text, string(md), now); err != nil {
			return nil, fmt.Errorf("inserting embedding: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("committing embeddings: %w", err)
	}
	return ids, nil
}

// AddWithID stores an embedding without a segment under id, replacing any
// existing row.
func (s *Store) AddWithID(ctx context.Context, id string, embedding []float32) error {
	if id == "" {
		return fmt.Errorf("%w: empty id", domain.ErrInvalidInput)
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO embeddings (id, vector, dimensions, text, metadata, created_at)
		VALUES (?, ?, ?, NULL, '{}', ?)
		ON CONFLICT(id) DO UPDATE SET
			vector = excluded.vector,
			dimensions = excluded.dimensions
	`, id, vecmath.Encode(embedding), len(embedding), time.Now().UTC())
	if err != nil {
		return fmt.Errorf("saving embedding %s: %w", id, err)
	}
	return nil
}

// Search ranks every stored vector of the query's dimensionality.
func (s *Store) Search(ctx context.Context, req domain.SearchRequest) ([]domain.SearchMatch, error) {
	if req.MaxResults <= 0 {
		return nil, fmt.Errorf("%w: maxResults must be positive, got %d", domain.ErrInvalidInput, req.MaxResults)
	}

	rows, err := s.db.QueryContext(ctx,
		"SELECT id, vector, text, metadata FROM embeddings WHERE dimensions = ?", len(req.Embedding))
	if err != nil {
		return nil, fmt.Errorf("querying embeddings: %w", err)
	}
	defer rows.Close()

	var matches []domain.SearchMatch
	for rows.Next() {
		var (
			id, metadataJSON string
			blob             []byte
			text             sql.NullString
		)
		if err := rows.Scan(&id, &blob, &text, &metadataJSON); err != nil {
			return nil, fmt.Errorf("scanning embedding: %w", err)
		}

		var md domain.Metadata
		if err := json.Unmarshal([]byte(metadataJSON), &md); err != nil {
			return nil, fmt.Errorf("unmarshalling metadata of %s: %w", id, err)
		}

		vec := vecmath.Decode(blob)
		matches = append(matches, domain.SearchMatch{
			Score:     vecmath.Relevance(vecmath.Cosine(req.Embedding, vec)),
			ID:        id,
			Embedding: vec,
			Segment:   domain.TextSegment{Text: text.String, Metadata: md},
		})
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating embeddings: %w", err)
	}

	return vecmath.Rank(matches, req.MaxResults, req.MinScore), nil
}

// Count returns the number of stored embeddings.
func (s *Store) Count(ctx context.Context) (int, error) {
	var n int
	if err := s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM embeddings").Scan(&n); err != nil {
		return 0, fmt.Errorf("counting embeddings: %w", err)
	}
	return n, nil
}
