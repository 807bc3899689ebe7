package vectorstore

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/lib/pq"
	"github.com/pgvector/pgvector-go"

	apperr "github.com/readmate/readmate/internal/pkg/errors"
)

// PgvectorStore keeps chunk embeddings in a Postgres table with a pgvector
// column and delegates nearest-neighbor search to the `<=>` cosine distance
// operator.
type PgvectorStore struct {
	db *sql.DB
}

func NewPgvectorStore(db *sql.DB) *PgvectorStore {
	return &PgvectorStore{db: db}
}

const upsertChunkSQL = `
	INSERT INTO chunk_embeddings
		(chunk_id, source_doc_id, chapter_title, section, sequence_index, content, embedding, mtime)
	VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	ON CONFLICT (chunk_id) DO UPDATE SET
		source_doc_id = EXCLUDED.source_doc_id,
		chapter_title = EXCLUDED.chapter_title,
		section = EXCLUDED.section,
		sequence_index = EXCLUDED.sequence_index,
		content = EXCLUDED.content,
		embedding = EXCLUDED.embedding,
		mtime = EXCLUDED.mtime
`

const deleteChunksSQL = `DELETE FROM chunk_embeddings WHERE chunk_id = ANY($1)`

func (s *PgvectorStore) Upsert(ctx context.Context, records []Record) error {
	return s.Replace(ctx, records, nil)
}

// Replace runs the upserts and the retirements in one transaction so a
// mid-write failure never leaves a document with a mixed old/new record set.
func (s *PgvectorStore) Replace(ctx context.Context, records []Record, retireIDs []string) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("%w: begin replace: %v", apperr.ErrIndexUnavailable, err)
	}
	defer tx.Rollback()
	for _, rec := range records {
		_, err := tx.ExecContext(ctx, upsertChunkSQL,
			rec.ChunkID,
			rec.SourceDocID,
			rec.ChapterTitle,
			rec.Section,
			rec.SequenceIndex,
			rec.Content,
			pgvector.NewVector(rec.Embedding),
			rec.Mtime,
		)
		if err != nil {
			return fmt.Errorf("%w: upsert chunk %s: %v", apperr.ErrIndexUnavailable, rec.ChunkID, err)
		}
	}
	if len(retireIDs) > 0 {
		if _, err := tx.ExecContext(ctx, deleteChunksSQL, pq.Array(retireIDs)); err != nil {
			return fmt.Errorf("%w: retire chunks: %v", apperr.ErrIndexUnavailable, err)
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("%w: commit replace: %v", apperr.ErrIndexUnavailable, err)
	}
	return nil
}

func (s *PgvectorStore) Search(ctx context.Context, vector []float32, k int) ([]Match, error) {
	if k <= 0 {
		k = 5
	}
	// 1 - cosine_distance gives the similarity the validator thresholds on.
	// Ties are broken in SQL the same way the memory store breaks them.
	const query = `
		SELECT chunk_id, source_doc_id, chapter_title, section, sequence_index, content,
			1 - (embedding <=> $1) AS score
		FROM chunk_embeddings
		ORDER BY embedding <=> $1, sequence_index, chunk_id
		LIMIT $2
	`
	rows, err := s.db.QueryContext(ctx, query, pgvector.NewVector(vector), k)
	if err != nil {
		return nil, fmt.Errorf("%w: search: %v", apperr.ErrIndexUnavailable, err)
	}
	defer rows.Close()
	var matches []Match
	for rows.Next() {
		var m Match
		if err := rows.Scan(
			&m.Record.ChunkID,
			&m.Record.SourceDocID,
			&m.Record.ChapterTitle,
			&m.Record.Section,
			&m.Record.SequenceIndex,
			&m.Record.Content,
			&m.Score,
		); err != nil {
			return nil, fmt.Errorf("%w: scan: %v", apperr.ErrIndexUnavailable, err)
		}
		matches = append(matches, m)
	}
	return matches, rows.Err()
}

func (s *PgvectorStore) ListIDsByDoc(ctx context.Context, docID string) ([]string, error) {
	const query = `SELECT chunk_id FROM chunk_embeddings WHERE source_doc_id = $1 ORDER BY chunk_id`
	rows, err := s.db.QueryContext(ctx, query, docID)
	if err != nil {
		return nil, fmt.Errorf("%w: list ids: %v", apperr.ErrIndexUnavailable, err)
	}
	defer rows.Close()
	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}
