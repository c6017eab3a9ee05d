package pgdb

import (
	"context"

	"github.com/pgvector/pgvector-go"
)

const upsertEntityDocument = `
INSERT INTO entity_documents (entity_id, source, entity_type, title, content, refs, ts, embedding)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
ON CONFLICT (entity_id) DO UPDATE SET
    source = EXCLUDED.source,
    entity_type = EXCLUDED.entity_type,
    title = EXCLUDED.title,
    content = EXCLUDED.content,
    refs = EXCLUDED.refs,
    ts = EXCLUDED.ts,
    embedding = EXCLUDED.embedding
`

type UpsertEntityDocumentParams struct {
	EntityID   string
	Source     string
	EntityType string
	Title      string
	Content    string
	Refs       string
	Ts         string
	Embedding  pgvector.Vector
}

func (q *Queries) UpsertEntityDocument(ctx context.Context, arg UpsertEntityDocumentParams) error {
	_, err := q.db.Exec(ctx, upsertEntityDocument,
		arg.EntityID,
		arg.Source,
		arg.EntityType,
		arg.Title,
		arg.Content,
		arg.Refs,
		arg.Ts,
		arg.Embedding,
	)
	return err
}

const getAllEntityDocuments = `
SELECT entity_id, source, entity_type, title, content, refs, ts
FROM entity_documents
ORDER BY entity_id
`

type EntityDocument struct {
	EntityID   string
	Source     string
	EntityType string
	Title      string
	Content    string
	Refs       string
	Ts         string
}

func (q *Queries) GetAllEntityDocuments(ctx context.Context) ([]EntityDocument, error) {
	rows, err := q.db.Query(ctx, getAllEntityDocuments)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var items []EntityDocument
	for rows.Next() {
		var d EntityDocument
		if err := rows.Scan(
			&d.EntityID,
			&d.Source,
			&d.EntityType,
			&d.Title,
			&d.Content,
			&d.Refs,
			&d.Ts,
		); err != nil {
			return nil, err
		}
		items = append(items, d)
	}
	return items, rows.Err()
}

const findSimilarEntityDocuments = `
SELECT entity_id, source, entity_type, title, content, refs, ts,
       embedding <-> $1 AS distance
FROM entity_documents
WHERE ($2 = '' OR entity_id <> $2)
  AND ($3 = '' OR source <> $3)
ORDER BY embedding <-> $1
LIMIT $4
`

type FindSimilarEntityDocumentsParams struct {
	Embedding       pgvector.Vector
	ExcludeEntityID string
	ExcludeSource   string
	Limit           int32
}

type FindSimilarEntityDocumentsRow struct {
	EntityDocument
	Distance float64
}

func (q *Queries) FindSimilarEntityDocuments(ctx context.Context, arg FindSimilarEntityDocumentsParams) ([]FindSimilarEntityDocumentsRow, error) {
	rows, err := q.db.Query(ctx, findSimilarEntityDocuments,
		arg.Embedding,
		arg.ExcludeEntityID,
		arg.ExcludeSource,
		arg.Limit,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var items []FindSimilarEntityDocumentsRow
	for rows.Next() {
		var r FindSimilarEntityDocumentsRow
		if err := rows.Scan(
			&r.EntityID,
			&r.Source,
			&r.EntityType,
			&r.Title,
			&r.Content,
			&r.Refs,
			&r.Ts,
			&r.Distance,
		); err != nil {
			return nil, err
		}
		items = append(items, r)
	}
	return items, rows.Err()
}
