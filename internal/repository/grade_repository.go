package repository

import (
	"context"
	"fmt"

	"github.com/lib/pq"

	"thesis-portal/internal/models"
)

const gradeColumns = `
	g.id, g.thesis_id, g.professor_id, u.first_name || ' ' || u.last_name, g.type,
	g.grade, g.comment, g.comment_encrypted, g.created_at, g.updated_at`

// GradeRepository handles committee grade database operations
type GradeRepository struct {
	db DBTX
}

// NewGradeRepository creates a new grade repository
func NewGradeRepository(db DBTX) *GradeRepository {
	return &GradeRepository{db: db}
}

// Upsert creates the professor's final grade or overwrites the existing one
func (r *GradeRepository) Upsert(ctx context.Context, grade *models.Grade) error {
	query := `
		INSERT INTO grades (thesis_id, professor_id, type, grade, comment, comment_encrypted)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (thesis_id, professor_id, type)
		DO UPDATE SET
			grade = EXCLUDED.grade,
			comment = EXCLUDED.comment,
			comment_encrypted = EXCLUDED.comment_encrypted,
			updated_at = NOW()
		RETURNING id, grade, created_at, updated_at
	`

	grade.Type = models.GradeTypeFinal
	err := r.db.QueryRowContext(ctx, query,
		grade.ThesisID,
		grade.ProfessorID,
		grade.Type,
		grade.Grade,
		grade.Comment,
		grade.CommentEncrypted,
	).Scan(&grade.ID, &grade.Grade, &grade.CreatedAt, &grade.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to upsert grade: %w", err)
	}
	return nil
}

// ListByThesis returns every final grade of a thesis
func (r *GradeRepository) ListByThesis(ctx context.Context, thesisID uint) ([]models.Grade, error) {
	query := `
		SELECT ` + gradeColumns + `
		FROM grades g
		JOIN users u ON u.id = g.professor_id
		WHERE g.thesis_id = $1 AND g.type = $2
		ORDER BY g.created_at, g.id
	`
	return r.list(ctx, query, thesisID, models.GradeTypeFinal)
}

// ListForProfessors returns the final grades given by the listed professors only
func (r *GradeRepository) ListForProfessors(ctx context.Context, thesisID uint, professorIDs []uint) ([]models.Grade, error) {
	ids := make([]int64, len(professorIDs))
	for i, id := range professorIDs {
		ids[i] = int64(id)
	}

	query := `
		SELECT ` + gradeColumns + `
		FROM grades g
		JOIN users u ON u.id = g.professor_id
		WHERE g.thesis_id = $1 AND g.type = $2 AND g.professor_id = ANY($3)
		ORDER BY g.created_at, g.id
	`
	return r.list(ctx, query, thesisID, models.GradeTypeFinal, pq.Array(ids))
}

func (r *GradeRepository) list(ctx context.Context, query string, args ...any) ([]models.Grade, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list grades: %w", err)
	}
	defer rows.Close()

	grades := []models.Grade{}
	for rows.Next() {
		var g models.Grade
		if err := rows.Scan(
			&g.ID,
			&g.ThesisID,
			&g.ProfessorID,
			&g.ProfessorName,
			&g.Type,
			&g.Grade,
			&g.Comment,
			&g.CommentEncrypted,
			&g.CreatedAt,
			&g.UpdatedAt,
		); err != nil {
			return nil, fmt.Errorf("failed to scan grade: %w", err)
		}
		grades = append(grades, g)
	}
	return grades, rows.Err()
}
