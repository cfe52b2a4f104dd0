package storage

//go:generate go run go.uber.org/mock/mockgen@latest -destination=mocks/mock_chunk_store.go -package=mocks kbchat/internal/storage ChunkStore

import (
	"context"
	"database/sql"
	"fmt"
)

// ChunkStore defines the interface for chunk storage operations. The
// review workflow reads and writes content, quality_score, status and
// auto_approved through this interface only; it never touches
// embeddings, which live in the vector store.
type ChunkStore interface {
	// Insert inserts a single chunk into the database.
	// The chunk.ID must be set (UUID) before calling this method.
	Insert(ctx context.Context, chunk *ChunkRecord) error
	// DeleteByDocument deletes all chunks for a given document ID.
	DeleteByDocument(ctx context.Context, documentID string) error
	// ListIDsByDocument returns all chunk IDs for a document, ordered by
	// chunk_index.
	ListIDsByDocument(ctx context.Context, documentID string) ([]string, error)
	// ListByDocument returns all chunks for a document, ordered by chunk_index.
	ListByDocument(ctx context.Context, documentID string) ([]ChunkRecord, error)
	// ListActive returns every chunk eligible for retrieval: active and
	// approved (manually or automatically) or modified.
	ListActive(ctx context.Context) ([]ChunkRecord, error)
	// GetByID gets a chunk by its ID. Returns ErrNotFound if not found.
	GetByID(ctx context.Context, id string) (*ChunkRecord, error)
	// SetReview applies a review decision to a chunk. A rejected chunk
	// is soft-deleted (is_active=0). A non-nil content replaces the
	// chunk text, for the modified status.
	SetReview(ctx context.Context, id, status string, content *string) error
}

// ChunkRepo provides methods for chunk operations.
// It implements the ChunkStore interface.
type ChunkRepo struct {
	db *sql.DB
}

// NewChunkRepo creates a new ChunkRepo.
func NewChunkRepo(db *sql.DB) *ChunkRepo {
	return &ChunkRepo{db: db}
}

const chunkColumns = `id, document_id, chunk_index, content, quality_score, status,
	auto_approved, is_active, has_header, is_qa_pair, is_table, is_list,
	start_offset, end_offset, pooling_strategy, source_segment_count,
	estimated_tokens, document_similarity, created_at, updated_at`

// Insert inserts a single chunk into the database.
// The chunk.ID must be set (UUID) before calling this method.
func (r *ChunkRepo) Insert(ctx context.Context, chunk *ChunkRecord) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO chunks (id, document_id, chunk_index, content, quality_score, status,
			auto_approved, is_active, has_header, is_qa_pair, is_table, is_list,
			start_offset, end_offset, pooling_strategy, source_segment_count,
			estimated_tokens, document_similarity)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		chunk.ID, chunk.DocumentID, chunk.ChunkIndex, chunk.Content, chunk.QualityScore, chunk.Status,
		chunk.AutoApproved, chunk.IsActive, chunk.HasHeader, chunk.IsQAPair, chunk.IsTable, chunk.IsList,
		chunk.StartOffset, chunk.EndOffset, chunk.PoolingStrategy, chunk.SourceSegmentCount,
		chunk.EstimatedTokens, chunk.DocumentSimilarity,
	)
	if err != nil {
		return fmt.Errorf("failed to insert chunk: %w", err)
	}
	return nil
}

// DeleteByDocument deletes all chunks for a given document ID.
// Used when re-ingesting a document to remove old chunks before inserting new ones.
func (r *ChunkRepo) DeleteByDocument(ctx context.Context, documentID string) error {
	_, err := r.db.ExecContext(ctx, "DELETE FROM chunks WHERE document_id = ?", documentID)
	if err != nil {
		return fmt.Errorf("failed to delete chunks by document: %w", err)
	}
	return nil
}

// ListIDsByDocument returns all chunk IDs for a document, ordered by chunk_index.
// Returns an empty slice if no chunks exist (not an error).
// Used to get vector store point IDs for deletion before re-ingesting.
func (r *ChunkRepo) ListIDsByDocument(ctx context.Context, documentID string) ([]string, error) {
	rows, err := r.db.QueryContext(ctx,
		"SELECT id FROM chunks WHERE document_id = ? ORDER BY chunk_index",
		documentID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to query chunk IDs: %w", err)
	}
	defer func() {
		_ = rows.Close()
	}()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("failed to scan chunk ID: %w", err)
		}
		ids = append(ids, id)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("row iteration error: %w", err)
	}

	return ids, nil
}

// ListByDocument returns all chunks for a document, ordered by chunk_index.
func (r *ChunkRepo) ListByDocument(ctx context.Context, documentID string) ([]ChunkRecord, error) {
	return r.list(ctx,
		"SELECT "+chunkColumns+" FROM chunks WHERE document_id = ? ORDER BY chunk_index",
		documentID,
	)
}

// ListActive returns every chunk eligible for retrieval: active and
// approved (manually or automatically) or modified. Used to rebuild the
// lexical index at startup.
func (r *ChunkRepo) ListActive(ctx context.Context) ([]ChunkRecord, error) {
	return r.list(ctx,
		"SELECT "+chunkColumns+" FROM chunks WHERE is_active = 1 AND status IN (?, ?) ORDER BY document_id, chunk_index",
		StatusApproved, StatusModified,
	)
}

func (r *ChunkRepo) list(ctx context.Context, query string, args ...any) ([]ChunkRecord, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query chunks: %w", err)
	}
	defer func() {
		_ = rows.Close()
	}()

	var chunks []ChunkRecord
	for rows.Next() {
		var c ChunkRecord
		if err := scanChunk(rows.Scan, &c); err != nil {
			return nil, fmt.Errorf("failed to scan chunk: %w", err)
		}
		chunks = append(chunks, c)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("row iteration error: %w", err)
	}

	return chunks, nil
}

// GetByID gets a chunk by its ID. Returns ErrNotFound if not found.
func (r *ChunkRepo) GetByID(ctx context.Context, id string) (*ChunkRecord, error) {
	var c ChunkRecord
	row := r.db.QueryRowContext(ctx, "SELECT "+chunkColumns+" FROM chunks WHERE id = ?", id)
	err := scanChunk(row.Scan, &c)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query chunk: %w", err)
	}
	return &c, nil
}

// SetReview applies a review decision to a chunk. A rejected chunk is
// soft-deleted (is_active=0). A non-nil content replaces the chunk text.
// A manual decision always clears auto_approved.
func (r *ChunkRepo) SetReview(ctx context.Context, id, status string, content *string) error {
	isActive := status != StatusRejected

	var res sql.Result
	var err error
	if content != nil {
		res, err = r.db.ExecContext(ctx,
			`UPDATE chunks SET status = ?, content = ?, is_active = ?, auto_approved = 0,
				updated_at = CURRENT_TIMESTAMP WHERE id = ?`,
			status, *content, isActive, id,
		)
	} else {
		res, err = r.db.ExecContext(ctx,
			`UPDATE chunks SET status = ?, is_active = ?, auto_approved = 0,
				updated_at = CURRENT_TIMESTAMP WHERE id = ?`,
			status, isActive, id,
		)
	}
	if err != nil {
		return fmt.Errorf("failed to update chunk review: %w", err)
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to read affected rows: %w", err)
	}
	if affected == 0 {
		return ErrNotFound
	}
	return nil
}

func scanChunk(scan func(...any) error, c *ChunkRecord) error {
	return scan(
		&c.ID, &c.DocumentID, &c.ChunkIndex, &c.Content, &c.QualityScore, &c.Status,
		&c.AutoApproved, &c.IsActive, &c.HasHeader, &c.IsQAPair, &c.IsTable, &c.IsList,
		&c.StartOffset, &c.EndOffset, &c.PoolingStrategy, &c.SourceSegmentCount,
		&c.EstimatedTokens, &c.DocumentSimilarity,
		&c.CreatedAt, &c.UpdatedAt,
	)
}
