package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/lib/pq"

	"thesis-portal/internal/lifecycle"
	"thesis-portal/internal/models"
)

var (
	ErrThesisNotFound         = errors.New("thesis not found")
	ErrStudentAlreadyAssigned = errors.New("student already has a thesis")
)

const thesisColumns = `
	id, title, description, state, student_id, instructor_id, member1_id, member2_id,
	draft_file, additional_links, protocol_number, final_grade, nimertis_link,
	activation_timestamp, assigned_at, created_at, updated_at`

// ThesisRepository handles thesis database operations
type ThesisRepository struct {
	db DBTX
}

// NewThesisRepository creates a new thesis repository
func NewThesisRepository(db DBTX) *ThesisRepository {
	return &ThesisRepository{db: db}
}

// Create inserts a new unassigned topic
func (r *ThesisRepository) Create(ctx context.Context, thesis *models.Thesis) error {
	query := `
		INSERT INTO theses (title, description, state, instructor_id)
		VALUES ($1, $2, $3, $4)
		RETURNING id, created_at, updated_at
	`

	thesis.State = lifecycle.Unassigned
	thesis.AdditionalLinks = []string{}
	err := r.db.QueryRowContext(ctx, query, thesis.Title, thesis.Description, thesis.State, thesis.InstructorID).
		Scan(&thesis.ID, &thesis.CreatedAt, &thesis.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to create thesis: %w", err)
	}
	return nil
}

// GetByID retrieves a thesis by ID
func (r *ThesisRepository) GetByID(ctx context.Context, id uint) (*models.Thesis, error) {
	return r.get(ctx, `SELECT `+thesisColumns+` FROM theses WHERE id = $1`, id)
}

// GetByIDForUpdate retrieves a thesis and locks its row until the transaction ends.
// Concurrent callers on the same thesis block here, which serializes decisions
// based on committee and grade counts.
func (r *ThesisRepository) GetByIDForUpdate(ctx context.Context, id uint) (*models.Thesis, error) {
	return r.get(ctx, `SELECT `+thesisColumns+` FROM theses WHERE id = $1 FOR UPDATE`, id)
}

// StudentHasThesis reports whether the student is already assigned to a thesis
func (r *ThesisRepository) StudentHasThesis(ctx context.Context, studentID uint) (bool, error) {
	var exists bool
	err := r.db.QueryRowContext(ctx, `SELECT EXISTS (SELECT 1 FROM theses WHERE student_id = $1)`, studentID).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("failed to check student thesis: %w", err)
	}
	return exists, nil
}

// Assign sets the student of a topic and moves it to UnderAssignment.
// The partial unique index on student_id rejects a second thesis for the same
// student, including one assigned by a concurrent transaction.
func (r *ThesisRepository) Assign(ctx context.Context, id, studentID uint, at time.Time) error {
	query := `
		UPDATE theses
		SET state = $2, student_id = $3, assigned_at = $4, updated_at = NOW()
		WHERE id = $1
	`
	err := r.execOne(ctx, "assign thesis", query, id, lifecycle.UnderAssignment, studentID, at)
	if isUniqueViolation(err) {
		return ErrStudentAlreadyAssigned
	}
	return err
}

// ClearAssignment removes the student and returns the topic to Unassigned
func (r *ThesisRepository) ClearAssignment(ctx context.Context, id uint) error {
	query := `
		UPDATE theses
		SET state = $2, student_id = NULL, assigned_at = NULL, updated_at = NOW()
		WHERE id = $1
	`
	return r.execOne(ctx, "clear assignment", query, id, lifecycle.Unassigned)
}

// Activate records the two committee members and moves the thesis to Active
func (r *ThesisRepository) Activate(ctx context.Context, id, member1ID, member2ID uint, at time.Time) error {
	query := `
		UPDATE theses
		SET state = $2, member1_id = $3, member2_id = $4, activation_timestamp = $5, updated_at = NOW()
		WHERE id = $1
	`
	return r.execOne(ctx, "activate thesis", query, id, lifecycle.Active, member1ID, member2ID, at)
}

// UpdateState sets the thesis state
func (r *ThesisRepository) UpdateState(ctx context.Context, id uint, state lifecycle.State) error {
	query := `UPDATE theses SET state = $2, updated_at = NOW() WHERE id = $1`
	return r.execOne(ctx, "update thesis state", query, id, state)
}

// SetDraft records the draft file reference and supporting links
func (r *ThesisRepository) SetDraft(ctx context.Context, id uint, draftFile string, links []string) error {
	if links == nil {
		links = []string{}
	}
	query := `UPDATE theses SET draft_file = $2, additional_links = $3, updated_at = NOW() WHERE id = $1`
	return r.execOne(ctx, "set draft", query, id, draftFile, pq.Array(links))
}

// SetNimertisLink records the institutional repository link
func (r *ThesisRepository) SetNimertisLink(ctx context.Context, id uint, link string) error {
	query := `UPDATE theses SET nimertis_link = $2, updated_at = NOW() WHERE id = $1`
	return r.execOne(ctx, "set nimertis link", query, id, link)
}

// SetProtocolNumber records the general assembly approval number
func (r *ThesisRepository) SetProtocolNumber(ctx context.Context, id uint, number string) error {
	query := `UPDATE theses SET protocol_number = $2, updated_at = NOW() WHERE id = $1`
	return r.execOne(ctx, "set protocol number", query, id, number)
}

// SetFinalGrade writes the aggregated final grade
func (r *ThesisRepository) SetFinalGrade(ctx context.Context, id uint, grade float64) error {
	query := `UPDATE theses SET final_grade = $2, updated_at = NOW() WHERE id = $1`
	return r.execOne(ctx, "set final grade", query, id, grade)
}

// Delete removes a thesis row
func (r *ThesisRepository) Delete(ctx context.Context, id uint) error {
	return r.execOne(ctx, "delete thesis", `DELETE FROM theses WHERE id = $1`, id)
}

func (r *ThesisRepository) get(ctx context.Context, query string, id uint) (*models.Thesis, error) {
	thesis, err := scanThesis(r.db.QueryRowContext(ctx, query, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrThesisNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get thesis: %w", err)
	}
	return thesis, nil
}

func (r *ThesisRepository) execOne(ctx context.Context, op, query string, args ...any) error {
	result, err := r.db.ExecContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("failed to %s: %w", op, err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to %s: %w", op, err)
	}
	if rowsAffected == 0 {
		return ErrThesisNotFound
	}
	return nil
}

func scanThesis(row rowScanner) (*models.Thesis, error) {
	t := &models.Thesis{}
	err := row.Scan(
		&t.ID,
		&t.Title,
		&t.Description,
		&t.State,
		&t.StudentID,
		&t.InstructorID,
		&t.Member1ID,
		&t.Member2ID,
		&t.DraftFile,
		pq.Array(&t.AdditionalLinks),
		&t.ProtocolNumber,
		&t.FinalGrade,
		&t.NimertisLink,
		&t.ActivationTimestamp,
		&t.AssignedAt,
		&t.CreatedAt,
		&t.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	if t.AdditionalLinks == nil {
		t.AdditionalLinks = []string{}
	}
	return t, nil
}
