// Package store is the durable status store for processed pages. It is
// the single source of truth for what a batch has done and what remains:
// every other component communicates state changes through it.
package store

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"

	_ "modernc.org/sqlite"

	"github.com/shalix/document-engine/internal/models"
)

const schema = `
CREATE TABLE IF NOT EXISTS documents (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    doc_kind TEXT NOT NULL,
    status TEXT NOT NULL,
    doc_number TEXT,
    client_id TEXT,
    tax_id TEXT,
    issued_at TEXT,
    page_index INTEGER,
    amount REAL,
    artifact_path TEXT
);

CREATE INDEX IF NOT EXISTS idx_documents_status ON documents(status);
`

// Store wraps the sqlite connection holding the documents table.
//
// Mutations between Begin and Commit share one transaction, giving each
// pipeline phase a single commit boundary. Outside a phase transaction
// every statement commits on its own, which is what the publisher wants
// for its per-record commits.
type Store struct {
	db *sql.DB
	tx *sql.Tx
}

// Group is the set of page records sharing one business key, in
// (doc_number ASC, amount DESC) query order.
type Group struct {
	DocNumber string
	Records   []models.PageRecord
}

// Open opens (creating if necessary) the database at dbPath and ensures
// the schema exists. The parent directory is created idempotently.
func Open(dbPath string) (*Store, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0o755); err != nil {
		return nil, fmt.Errorf("failed to create db directory: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ensure schema: %w", err)
	}
	return &Store{db: db}, nil
}

// Close closes the underlying connection. An open phase transaction is
// rolled back, leaving only fully-committed phases durable.
func (s *Store) Close() error {
	if s.tx != nil {
		_ = s.tx.Rollback()
		s.tx = nil
	}
	return s.db.Close()
}

// Begin starts a phase transaction. All mutations until Commit are
// staged together.
func (s *Store) Begin() error {
	if s.tx != nil {
		return fmt.Errorf("phase transaction already open")
	}
	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin phase transaction: %w", err)
	}
	s.tx = tx
	return nil
}

// Commit ends the current phase transaction.
func (s *Store) Commit() error {
	if s.tx == nil {
		return fmt.Errorf("no phase transaction open")
	}
	err := s.tx.Commit()
	s.tx = nil
	if err != nil {
		return fmt.Errorf("failed to commit phase: %w", err)
	}
	return nil
}

type querier interface {
	Exec(query string, args ...any) (sql.Result, error)
	Query(query string, args ...any) (*sql.Rows, error)
}

func (s *Store) q() querier {
	if s.tx != nil {
		return s.tx
	}
	return s.db
}

// InsertPage inserts a new page record and returns its assigned id.
func (s *Store) InsertPage(rec models.PageRecord) (int64, error) {
	res, err := s.q().Exec(`
        INSERT INTO documents (doc_kind, status, doc_number, client_id, tax_id, issued_at, page_index, amount, artifact_path)
        VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		string(rec.DocKind), string(rec.Status), rec.DocNumber, rec.ClientID,
		rec.TaxID, rec.IssuedAt, rec.PageIndex, rec.Amount, rec.ArtifactPath)
	if err != nil {
		return 0, fmt.Errorf("failed to insert page record: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("failed to read inserted id: %w", err)
	}
	return id, nil
}

// FindByStatus returns all records in the given status, ordered by
// (doc_number ASC, amount DESC). The descending amount ordering makes a
// page with a genuine non-zero total the first member of its group.
func (s *Store) FindByStatus(status models.Status) ([]models.PageRecord, error) {
	rows, err := s.q().Query(`
        SELECT id, doc_kind, status, doc_number, client_id, tax_id, issued_at, page_index, amount, artifact_path
        FROM documents
        WHERE status = ?
        ORDER BY doc_number, amount DESC`, string(status))
	if err != nil {
		return nil, fmt.Errorf("failed to query records by status: %w", err)
	}
	defer rows.Close()

	var records []models.PageRecord
	for rows.Next() {
		var rec models.PageRecord
		if err := rows.Scan(&rec.ID, &rec.DocKind, &rec.Status, &rec.DocNumber, &rec.ClientID,
			&rec.TaxID, &rec.IssuedAt, &rec.PageIndex, &rec.Amount, &rec.ArtifactPath); err != nil {
			return nil, fmt.Errorf("failed to scan page record: %w", err)
		}
		records = append(records, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate page records: %w", err)
	}
	return records, nil
}

// FindGroupsByStatus returns the records in the given status grouped by
// doc_number, groups ordered by doc_number and members by amount DESC.
func (s *Store) FindGroupsByStatus(status models.Status) ([]Group, error) {
	records, err := s.FindByStatus(status)
	if err != nil {
		return nil, err
	}

	var groups []Group
	index := map[string]int{}
	for _, rec := range records {
		i, ok := index[rec.DocNumber]
		if !ok {
			i = len(groups)
			index[rec.DocNumber] = i
			groups = append(groups, Group{DocNumber: rec.DocNumber})
		}
		groups[i].Records = append(groups[i].Records, rec)
	}
	return groups, nil
}

// UpdateStatusWhere transitions all records of one logical document from
// one status to another. The from-status guard is part of the single
// UPDATE statement, so records already past that state are untouched and
// re-runs are idempotent. Returns the number of records transitioned.
func (s *Store) UpdateStatusWhere(docNumber, clientID string, kind models.DocKind, from, to models.Status) (int64, error) {
	res, err := s.q().Exec(`
        UPDATE documents SET status = ?
        WHERE doc_number = ? AND client_id = ? AND doc_kind = ? AND status = ?`,
		string(to), docNumber, clientID, string(kind), string(from))
	if err != nil {
		return 0, fmt.Errorf("failed to update status for document %s: %w", docNumber, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to read affected rows: %w", err)
	}
	return n, nil
}

// UpdateStatusByID transitions a single record unconditionally. Used by
// the publisher, whose transitions out of READY are per-record.
func (s *Store) UpdateStatusByID(id int64, to models.Status) error {
	if _, err := s.q().Exec(`UPDATE documents SET status = ? WHERE id = ?`, string(to), id); err != nil {
		return fmt.Errorf("failed to update status for record %d: %w", id, err)
	}
	return nil
}
