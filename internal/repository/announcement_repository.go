package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"thesis-portal/internal/models"
)

var ErrAnnouncementNotFound = errors.New("announcement not found")

// AnnouncementRepository handles examination announcement database operations
type AnnouncementRepository struct {
	db DBTX
}

// NewAnnouncementRepository creates a new announcement repository
func NewAnnouncementRepository(db DBTX) *AnnouncementRepository {
	return &AnnouncementRepository{db: db}
}

// Upsert creates the thesis announcement or replaces its details
func (r *AnnouncementRepository) Upsert(ctx context.Context, a *models.Announcement) error {
	query := `
		INSERT INTO announcements (thesis_id, exam_date, exam_time, exam_type, location_or_link)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (thesis_id)
		DO UPDATE SET
			exam_date = EXCLUDED.exam_date,
			exam_time = EXCLUDED.exam_time,
			exam_type = EXCLUDED.exam_type,
			location_or_link = EXCLUDED.location_or_link,
			updated_at = NOW()
		RETURNING id, created_at, updated_at
	`
	err := r.db.QueryRowContext(ctx, query, a.ThesisID, a.ExamDate, a.ExamTime, a.ExamType, a.LocationOrLink).
		Scan(&a.ID, &a.CreatedAt, &a.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to upsert announcement: %w", err)
	}
	return nil
}

// GetByThesis retrieves the announcement of a thesis
func (r *AnnouncementRepository) GetByThesis(ctx context.Context, thesisID uint) (*models.Announcement, error) {
	query := `
		SELECT id, thesis_id, exam_date, exam_time, exam_type, location_or_link, created_at, updated_at
		FROM announcements
		WHERE thesis_id = $1
	`
	a := &models.Announcement{}
	err := r.db.QueryRowContext(ctx, query, thesisID).Scan(
		&a.ID,
		&a.ThesisID,
		&a.ExamDate,
		&a.ExamTime,
		&a.ExamType,
		&a.LocationOrLink,
		&a.CreatedAt,
		&a.UpdatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrAnnouncementNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get announcement: %w", err)
	}
	return a, nil
}

// Exists reports whether the thesis has an announcement
func (r *AnnouncementRepository) Exists(ctx context.Context, thesisID uint) (bool, error) {
	var exists bool
	err := r.db.QueryRowContext(ctx, `SELECT EXISTS (SELECT 1 FROM announcements WHERE thesis_id = $1)`, thesisID).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("failed to check announcement: %w", err)
	}
	return exists, nil
}
