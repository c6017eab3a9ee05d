package pgdb

import (
	"context"
)

const upsertEntityMetadata = `
INSERT INTO entity_metadata (entity_id, source, entity_type, title, content_preview, refs, ts)
VALUES ($1, $2, $3, $4, $5, $6, $7)
ON CONFLICT (entity_id) DO UPDATE SET
    source = EXCLUDED.source,
    entity_type = EXCLUDED.entity_type,
    title = EXCLUDED.title,
    content_preview = EXCLUDED.content_preview,
    refs = EXCLUDED.refs,
    ts = EXCLUDED.ts
`

type UpsertEntityMetadataParams struct {
	EntityID       string
	Source         string
	EntityType     string
	Title          string
	ContentPreview string
	Refs           string
	Ts             string
}

func (q *Queries) UpsertEntityMetadata(ctx context.Context, arg UpsertEntityMetadataParams) error {
	_, err := q.db.Exec(ctx, upsertEntityMetadata,
		arg.EntityID,
		arg.Source,
		arg.EntityType,
		arg.Title,
		arg.ContentPreview,
		arg.Refs,
		arg.Ts,
	)
	return err
}

const getEntityMetadata = `
SELECT entity_id, source, entity_type, title, content_preview, refs, ts
FROM entity_metadata
WHERE entity_id = $1
`

type EntityMetadata struct {
	EntityID       string
	Source         string
	EntityType     string
	Title          string
	ContentPreview string
	Refs           string
	Ts             string
}

func (q *Queries) GetEntityMetadata(ctx context.Context, entityID string) (EntityMetadata, error) {
	row := q.db.QueryRow(ctx, getEntityMetadata, entityID)
	var m EntityMetadata
	err := row.Scan(
		&m.EntityID,
		&m.Source,
		&m.EntityType,
		&m.Title,
		&m.ContentPreview,
		&m.Refs,
		&m.Ts,
	)
	return m, err
}

const listTicketsWithConnectionCounts = `
SELECT em.entity_id, em.title, em.refs,
       COUNT(ec.target_entity_id) AS connection_count
FROM entity_metadata em
LEFT JOIN entity_connections ec ON em.entity_id = ec.source_entity_id
WHERE em.source = $1
GROUP BY em.entity_id, em.title, em.refs
ORDER BY connection_count DESC, em.entity_id
`

type ListTicketsWithConnectionCountsRow struct {
	EntityID        string
	Title           string
	Refs            string
	ConnectionCount int64
}

func (q *Queries) ListTicketsWithConnectionCounts(ctx context.Context, source string) ([]ListTicketsWithConnectionCountsRow, error) {
	rows, err := q.db.Query(ctx, listTicketsWithConnectionCounts, source)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var items []ListTicketsWithConnectionCountsRow
	for rows.Next() {
		var r ListTicketsWithConnectionCountsRow
		if err := rows.Scan(&r.EntityID, &r.Title, &r.Refs, &r.ConnectionCount); err != nil {
			return nil, err
		}
		items = append(items, r)
	}
	return items, rows.Err()
}
