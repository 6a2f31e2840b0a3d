package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/jmoiron/sqlx"

	"thesis-portal/internal/lifecycle"
	"thesis-portal/internal/models"
)

// QueryRepository serves read-only views that join several tables.
// Rows map onto the models through their db tags.
type QueryRepository struct {
	db *sqlx.DB
}

// NewQueryRepository creates a new read model repository
func NewQueryRepository(db *sql.DB) *QueryRepository {
	return &QueryRepository{db: sqlx.NewDb(db, "postgres")}
}

const summarySelect = `
	SELECT t.id, t.title, t.state, t.instructor_id,
	       i.first_name || ' ' || i.last_name AS instructor_name,
	       t.student_id,
	       s.first_name || ' ' || s.last_name AS student_name,
	       t.final_grade, t.updated_at
	FROM theses t
	JOIN users i ON i.id = t.instructor_id
	LEFT JOIN users s ON s.id = t.student_id`

// ListThesesForProfessor lists theses the professor supervises or sits on
func (r *QueryRepository) ListThesesForProfessor(ctx context.Context, professorID uint, state *lifecycle.State) ([]models.ThesisSummary, error) {
	query := summarySelect + `
		WHERE (t.instructor_id = $1 OR t.member1_id = $1 OR t.member2_id = $1)
		  AND ($2::text IS NULL OR t.state = $2::text)
		ORDER BY t.updated_at DESC, t.id`
	return r.selectSummaries(ctx, query, professorID, stateArg(state))
}

// ListThesesForStudent lists the theses assigned to the student
func (r *QueryRepository) ListThesesForStudent(ctx context.Context, studentID uint, state *lifecycle.State) ([]models.ThesisSummary, error) {
	query := summarySelect + `
		WHERE t.student_id = $1
		  AND ($2::text IS NULL OR t.state = $2::text)
		ORDER BY t.updated_at DESC, t.id`
	return r.selectSummaries(ctx, query, studentID, stateArg(state))
}

// ListThesesInStates lists theses whose state is one of states
func (r *QueryRepository) ListThesesInStates(ctx context.Context, states ...lifecycle.State) ([]models.ThesisSummary, error) {
	query, args, err := sqlx.In(summarySelect+` WHERE t.state IN (?) ORDER BY t.updated_at DESC, t.id`, states)
	if err != nil {
		return nil, fmt.Errorf("failed to build thesis listing: %w", err)
	}
	return r.selectSummaries(ctx, r.db.Rebind(query), args...)
}

func (r *QueryRepository) selectSummaries(ctx context.Context, query string, args ...any) ([]models.ThesisSummary, error) {
	summaries := []models.ThesisSummary{}
	if err := r.db.SelectContext(ctx, &summaries, query, args...); err != nil {
		return nil, fmt.Errorf("failed to list theses: %w", err)
	}
	return summaries, nil
}

// ListPendingInvitations lists the professor's open invitations with thesis context
func (r *QueryRepository) ListPendingInvitations(ctx context.Context, professorID uint) ([]models.PendingInvitation, error) {
	query := `
		SELECT ci.id, ci.thesis_id, ci.professor_id,
		       p.first_name || ' ' || p.last_name AS professor_name,
		       ci.role, ci.status, ci.invitation_date, ci.acceptance_date, ci.denial_date,
		       t.title AS thesis_title,
		       i.first_name || ' ' || i.last_name AS instructor_name,
		       COALESCE(s.first_name || ' ' || s.last_name, '') AS student_name
		FROM committee_invitations ci
		JOIN theses t ON t.id = ci.thesis_id
		JOIN users p ON p.id = ci.professor_id
		JOIN users i ON i.id = t.instructor_id
		LEFT JOIN users s ON s.id = t.student_id
		WHERE ci.professor_id = $1 AND ci.status = $2
		ORDER BY ci.invitation_date, ci.id`

	invitations := []models.PendingInvitation{}
	if err := r.db.SelectContext(ctx, &invitations, query, professorID, models.InvitationPending); err != nil {
		return nil, fmt.Errorf("failed to list pending invitations: %w", err)
	}
	return invitations, nil
}

// GetProtocol assembles the examination protocol data of a thesis
func (r *QueryRepository) GetProtocol(ctx context.Context, thesisID uint) (*models.ProtocolRecord, error) {
	header := `
		SELECT t.id AS thesis_id, t.title, t.state,
		       COALESCE(s.first_name || ' ' || s.last_name, '') AS student_name,
		       s.registration_number,
		       t.protocol_number, t.activation_timestamp, t.final_grade
		FROM theses t
		LEFT JOIN users s ON s.id = t.student_id
		WHERE t.id = $1`

	record := &models.ProtocolRecord{}
	err := r.db.GetContext(ctx, record, header, thesisID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrThesisNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get protocol header: %w", err)
	}

	committee := `
		SELECT c.professor_id,
		       u.first_name || ' ' || u.last_name AS name,
		       c.role,
		       g.grade,
		       g.updated_at AS graded_at
		FROM theses t
		CROSS JOIN LATERAL (VALUES
			(t.instructor_id, $2::text, 1),
			(t.member1_id, $3::text, 2),
			(t.member2_id, $3::text, 3)
		) AS c(professor_id, role, position)
		JOIN users u ON u.id = c.professor_id
		LEFT JOIN grades g ON g.thesis_id = t.id AND g.professor_id = c.professor_id AND g.type = $4
		WHERE t.id = $1
		ORDER BY c.position`

	record.Committee = []models.ProtocolMember{}
	err = r.db.SelectContext(ctx, &record.Committee, committee,
		thesisID, models.ProtocolRoleInstructor, models.ProtocolRoleMember, models.GradeTypeFinal)
	if err != nil {
		return nil, fmt.Errorf("failed to get protocol committee: %w", err)
	}

	return record, nil
}

func stateArg(state *lifecycle.State) any {
	if state == nil {
		return nil
	}
	return string(*state)
}
