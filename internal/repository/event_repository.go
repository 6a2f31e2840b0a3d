package repository

import (
	"context"
	"fmt"

	"thesis-portal/internal/models"
)

// EventRepository appends and reads the thesis audit trail.
// Events are never updated. They are only deleted together with an unassigned topic.
type EventRepository struct {
	db DBTX
}

// NewEventRepository creates a new event repository
func NewEventRepository(db DBTX) *EventRepository {
	return &EventRepository{db: db}
}

// Append records a state change
func (r *EventRepository) Append(ctx context.Context, event *models.ThesisEvent) error {
	query := `
		INSERT INTO thesis_events (thesis_id, status, created_by)
		VALUES ($1, $2, $3)
		RETURNING id, event_date
	`
	err := r.db.QueryRowContext(ctx, query, event.ThesisID, event.Status, event.CreatedBy).
		Scan(&event.ID, &event.EventDate)
	if err != nil {
		return fmt.Errorf("failed to append thesis event: %w", err)
	}
	return nil
}

// DeleteByThesis removes the events of a deleted topic
func (r *EventRepository) DeleteByThesis(ctx context.Context, thesisID uint) (int64, error) {
	result, err := r.db.ExecContext(ctx, `DELETE FROM thesis_events WHERE thesis_id = $1`, thesisID)
	if err != nil {
		return 0, fmt.Errorf("failed to delete thesis events: %w", err)
	}
	return result.RowsAffected()
}

// ListByThesis returns the events of a thesis in the order they were appended.
// Ids are allocated while the thesis row is locked, so they follow commit order
// even when event_date values of overlapping transactions interleave.
func (r *EventRepository) ListByThesis(ctx context.Context, thesisID uint) ([]models.ThesisEvent, error) {
	query := `
		SELECT id, thesis_id, status, created_by, event_date
		FROM thesis_events
		WHERE thesis_id = $1
		ORDER BY id
	`
	rows, err := r.db.QueryContext(ctx, query, thesisID)
	if err != nil {
		return nil, fmt.Errorf("failed to list thesis events: %w", err)
	}
	defer rows.Close()

	events := []models.ThesisEvent{}
	for rows.Next() {
		var e models.ThesisEvent
		if err := rows.Scan(&e.ID, &e.ThesisID, &e.Status, &e.CreatedBy, &e.EventDate); err != nil {
			return nil, fmt.Errorf("failed to scan thesis event: %w", err)
		}
		events = append(events, e)
	}
	return events, rows.Err()
}
