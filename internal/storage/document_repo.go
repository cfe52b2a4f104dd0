package storage

//go:generate go run go.uber.org/mock/mockgen@latest -destination=mocks/mock_document_store.go -package=mocks kbchat/internal/storage DocumentStore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
)

// ErrNotFound is returned when a record is not found.
var ErrNotFound = errors.New("record not found")

// DocumentStore defines the interface for document storage operations.
type DocumentStore interface {
	// GetByID gets a document by its ID. Returns ErrNotFound if not found.
	GetByID(ctx context.Context, id string) (*DocumentRecord, error)
	// GetByTitle gets a document by its unique title. Returns ErrNotFound
	// if not found.
	GetByTitle(ctx context.Context, title string) (*DocumentRecord, error)
	// Insert inserts a new document. The doc.ID must be set (UUID).
	Insert(ctx context.Context, doc *DocumentRecord) error
	// UpdateHash updates a document's content hash after re-ingestion.
	UpdateHash(ctx context.Context, id, hash string) error
	// Delete removes a document; its chunks cascade.
	Delete(ctx context.Context, id string) error
}

// DocumentRepo provides methods for document operations.
// It implements the DocumentStore interface.
type DocumentRepo struct {
	db *sql.DB
}

// NewDocumentRepo creates a new DocumentRepo.
func NewDocumentRepo(db *sql.DB) *DocumentRepo {
	return &DocumentRepo{db: db}
}

// GetByID gets a document by its ID. Returns ErrNotFound if not found.
func (r *DocumentRepo) GetByID(ctx context.Context, id string) (*DocumentRecord, error) {
	return r.get(ctx, "SELECT id, title, hash, created_at, updated_at FROM documents WHERE id = ?", id)
}

// GetByTitle gets a document by its unique title. Returns ErrNotFound if not found.
func (r *DocumentRepo) GetByTitle(ctx context.Context, title string) (*DocumentRecord, error) {
	return r.get(ctx, "SELECT id, title, hash, created_at, updated_at FROM documents WHERE title = ?", title)
}

func (r *DocumentRepo) get(ctx context.Context, query string, arg any) (*DocumentRecord, error) {
	var doc DocumentRecord
	err := r.db.QueryRowContext(ctx, query, arg).
		Scan(&doc.ID, &doc.Title, &doc.Hash, &doc.CreatedAt, &doc.UpdatedAt)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query document: %w", err)
	}
	return &doc, nil
}

// Insert inserts a new document. The doc.ID must be set (UUID).
func (r *DocumentRepo) Insert(ctx context.Context, doc *DocumentRecord) error {
	_, err := r.db.ExecContext(ctx,
		"INSERT INTO documents (id, title, hash) VALUES (?, ?, ?)",
		doc.ID, doc.Title, doc.Hash,
	)
	if err != nil {
		return fmt.Errorf("failed to insert document: %w", err)
	}
	return nil
}

// UpdateHash updates a document's content hash after re-ingestion.
func (r *DocumentRepo) UpdateHash(ctx context.Context, id, hash string) error {
	_, err := r.db.ExecContext(ctx,
		"UPDATE documents SET hash = ?, updated_at = CURRENT_TIMESTAMP WHERE id = ?",
		hash, id,
	)
	if err != nil {
		return fmt.Errorf("failed to update document hash: %w", err)
	}
	return nil
}

// Delete removes a document; its chunks cascade.
func (r *DocumentRepo) Delete(ctx context.Context, id string) error {
	_, err := r.db.ExecContext(ctx, "DELETE FROM documents WHERE id = ?", id)
	if err != nil {
		return fmt.Errorf("failed to delete document: %w", err)
	}
	return nil
}
