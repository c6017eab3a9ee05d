package pgdb

import (
	"context"
)

const upsertConnection = `
INSERT INTO entity_connections
    (source_entity_id, source_type, target_entity_id, target_type, connection_type, confidence_score, match_reason)
VALUES ($1, $2, $3, $4, $5, $6, $7)
ON CONFLICT (source_entity_id, target_entity_id) DO UPDATE SET
    source_type = EXCLUDED.source_type,
    target_type = EXCLUDED.target_type,
    connection_type = EXCLUDED.connection_type,
    confidence_score = EXCLUDED.confidence_score,
    match_reason = EXCLUDED.match_reason
`

type UpsertConnectionParams struct {
	SourceEntityID  string
	SourceType      string
	TargetEntityID  string
	TargetType      string
	ConnectionType  string
	ConfidenceScore float64
	MatchReason     string
}

func (q *Queries) UpsertConnection(ctx context.Context, arg UpsertConnectionParams) error {
	_, err := q.db.Exec(ctx, upsertConnection,
		arg.SourceEntityID,
		arg.SourceType,
		arg.TargetEntityID,
		arg.TargetType,
		arg.ConnectionType,
		arg.ConfidenceScore,
		arg.MatchReason,
	)
	return err
}

const getConnections = `
SELECT ec.target_entity_id, ec.target_type, ec.connection_type,
       ec.confidence_score, ec.match_reason,
       COALESCE(em.entity_type, ''), COALESCE(em.title, ''), COALESCE(em.content_preview, '')
FROM entity_connections ec
LEFT JOIN entity_metadata em ON ec.target_entity_id = em.entity_id
WHERE ec.source_entity_id = $1
  AND ec.confidence_score >= $2
  AND ($3 = '' OR ec.target_type = $3)
ORDER BY ec.confidence_score DESC, ec.target_entity_id
`

type GetConnectionsParams struct {
	SourceEntityID string
	MinConfidence  float64
	TargetType     string
}

type GetConnectionsRow struct {
	TargetEntityID  string
	TargetType      string
	ConnectionType  string
	ConfidenceScore float64
	MatchReason     string
	EntityType      string
	Title           string
	ContentPreview  string
}

func (q *Queries) GetConnections(ctx context.Context, arg GetConnectionsParams) ([]GetConnectionsRow, error) {
	rows, err := q.db.Query(ctx, getConnections, arg.SourceEntityID, arg.MinConfidence, arg.TargetType)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var items []GetConnectionsRow
	for rows.Next() {
		var r GetConnectionsRow
		if err := rows.Scan(
			&r.TargetEntityID,
			&r.TargetType,
			&r.ConnectionType,
			&r.ConfidenceScore,
			&r.MatchReason,
			&r.EntityType,
			&r.Title,
			&r.ContentPreview,
		); err != nil {
			return nil, err
		}
		items = append(items, r)
	}
	return items, rows.Err()
}

const countConnections = `
SELECT COUNT(*) FROM entity_connections
`

func (q *Queries) CountConnections(ctx context.Context) (int64, error) {
	row := q.db.QueryRow(ctx, countConnections)
	var count int64
	err := row.Scan(&count)
	return count, err
}

const getConnectionTypeCounts = `
SELECT connection_type, COUNT(*) AS cnt
FROM entity_connections
GROUP BY connection_type
ORDER BY cnt DESC
`

type GetConnectionTypeCountsRow struct {
	ConnectionType string
	Cnt            int64
}

func (q *Queries) GetConnectionTypeCounts(ctx context.Context) ([]GetConnectionTypeCountsRow, error) {
	rows, err := q.db.Query(ctx, getConnectionTypeCounts)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var items []GetConnectionTypeCountsRow
	for rows.Next() {
		var r GetConnectionTypeCountsRow
		if err := rows.Scan(&r.ConnectionType, &r.Cnt); err != nil {
			return nil, err
		}
		items = append(items, r)
	}
	return items, rows.Err()
}

const getConnectionPairCounts = `
SELECT source_type || ' -> ' || target_type AS pair, COUNT(*) AS cnt
FROM entity_connections
GROUP BY pair
ORDER BY cnt DESC
LIMIT 10
`

type GetConnectionPairCountsRow struct {
	Pair string
	Cnt  int64
}

func (q *Queries) GetConnectionPairCounts(ctx context.Context) ([]GetConnectionPairCountsRow, error) {
	rows, err := q.db.Query(ctx, getConnectionPairCounts)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var items []GetConnectionPairCountsRow
	for rows.Next() {
		var r GetConnectionPairCountsRow
		if err := rows.Scan(&r.Pair, &r.Cnt); err != nil {
			return nil, err
		}
		items = append(items, r)
	}
	return items, rows.Err()
}

const getTopConnectedEntities = `
SELECT source_entity_id, COUNT(*) AS cnt
FROM entity_connections
GROUP BY source_entity_id
ORDER BY cnt DESC
LIMIT $1
`

type GetTopConnectedEntitiesRow struct {
	SourceEntityID string
	Cnt            int64
}

func (q *Queries) GetTopConnectedEntities(ctx context.Context, limit int32) ([]GetTopConnectedEntitiesRow, error) {
	rows, err := q.db.Query(ctx, getTopConnectedEntities, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var items []GetTopConnectedEntitiesRow
	for rows.Next() {
		var r GetTopConnectedEntitiesRow
		if err := rows.Scan(&r.SourceEntityID, &r.Cnt); err != nil {
			return nil, err
		}
		items = append(items, r)
	}
	return items, rows.Err()
}
