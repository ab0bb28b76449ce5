package journal

import (
	"context"
	"database/sql"
	"fmt"
	"time"
)

const historyColumns = "id, unit_id, entity, entity_id, from_status, to_status, actor_id, created_at"

// RecordTransition appends a transition to the history table.
func (c conn) RecordTransition(ctx context.Context, entry *HistoryEntry) error {
	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = time.Now().UTC()
	}
	res, err := c.execWithRetry(ctx,
		"INSERT INTO transition_history (unit_id, entity, entity_id, from_status, to_status, actor_id, created_at) VALUES (?, ?, ?, ?, ?, ?, ?)",
		entry.UnitID,
		entry.Entity,
		entry.EntityID,
		entry.From,
		entry.To,
		nullableInt64(entry.ActorID),
		formatTime(entry.CreatedAt),
	)
	if err != nil {
		return fmt.Errorf("insert transition history: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return fmt.Errorf("last insert id: %w", err)
	}
	entry.ID = id
	return nil
}

// History returns transitions for one entity, oldest first.
func (c conn) History(ctx context.Context, entity string, entityID int64) ([]*HistoryEntry, error) {
	return c.queryHistory(ctx,
		"SELECT "+historyColumns+" FROM transition_history WHERE entity = ? AND entity_id = ? ORDER BY id",
		entity, entityID)
}

// RecentHistory returns the latest transitions across all entities, newest
// first.
func (c conn) RecentHistory(ctx context.Context, limit int) ([]*HistoryEntry, error) {
	if limit <= 0 {
		limit = 50
	}
	return c.queryHistory(ctx,
		"SELECT "+historyColumns+" FROM transition_history ORDER BY id DESC LIMIT ?", limit)
}

func (c conn) queryHistory(ctx context.Context, query string, args ...any) ([]*HistoryEntry, error) {
	rows, err := c.q.QueryContext(ensureContext(ctx), query, args...)
	if err != nil {
		return nil, fmt.Errorf("query transition history: %w", err)
	}
	defer rows.Close()

	var entries []*HistoryEntry
	for rows.Next() {
		var (
			e       HistoryEntry
			actor   sql.NullInt64
			created sql.NullString
		)
		if err := rows.Scan(&e.ID, &e.UnitID, &e.Entity, &e.EntityID, &e.From, &e.To, &actor, &created); err != nil {
			return nil, fmt.Errorf("scan transition history: %w", err)
		}
		if actor.Valid {
			id := actor.Int64
			e.ActorID = &id
		}
		e.CreatedAt = parseTime(created)
		entries = append(entries, &e)
	}
	return entries, rows.Err()
}
