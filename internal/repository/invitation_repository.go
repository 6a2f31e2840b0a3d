package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"thesis-portal/internal/models"
)

var (
	ErrInvitationNotFound  = errors.New("invitation not found")
	ErrDuplicateInvitation = errors.New("professor already invited to this thesis")
)

const invitationColumns = `
	ci.id, ci.thesis_id, ci.professor_id, u.first_name || ' ' || u.last_name, ci.role,
	ci.status, ci.invitation_date, ci.acceptance_date, ci.denial_date`

// InvitationRepository handles committee invitation database operations
type InvitationRepository struct {
	db DBTX
}

// NewInvitationRepository creates a new invitation repository
func NewInvitationRepository(db DBTX) *InvitationRepository {
	return &InvitationRepository{db: db}
}

// Create inserts a pending invitation. A repeated (thesis, professor) pair
// returns ErrDuplicateInvitation.
func (r *InvitationRepository) Create(ctx context.Context, inv *models.CommitteeInvitation) error {
	query := `
		INSERT INTO committee_invitations (thesis_id, professor_id, role, status)
		VALUES ($1, $2, $3, $4)
		RETURNING id, invitation_date
	`

	inv.Role = models.CommitteeRoleMember
	inv.Status = models.InvitationPending
	err := r.db.QueryRowContext(ctx, query, inv.ThesisID, inv.ProfessorID, inv.Role, inv.Status).
		Scan(&inv.ID, &inv.InvitationDate)
	if isUniqueViolation(err) {
		return ErrDuplicateInvitation
	}
	if err != nil {
		return fmt.Errorf("failed to create invitation: %w", err)
	}
	return nil
}

// GetByID retrieves an invitation with the invitee's display name
func (r *InvitationRepository) GetByID(ctx context.Context, id uint) (*models.CommitteeInvitation, error) {
	query := `
		SELECT ` + invitationColumns + `
		FROM committee_invitations ci
		JOIN users u ON u.id = ci.professor_id
		WHERE ci.id = $1
	`
	inv, err := scanInvitation(r.db.QueryRowContext(ctx, query, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrInvitationNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get invitation: %w", err)
	}
	return inv, nil
}

// CountAccepted counts accepted member invitations of a thesis
func (r *InvitationRepository) CountAccepted(ctx context.Context, thesisID uint) (int, error) {
	query := `
		SELECT COUNT(*) FROM committee_invitations
		WHERE thesis_id = $1 AND status = $2 AND role = $3
	`
	var count int
	err := r.db.QueryRowContext(ctx, query, thesisID, models.InvitationAccepted, models.CommitteeRoleMember).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to count accepted invitations: %w", err)
	}
	return count, nil
}

// Accept marks a pending invitation accepted
func (r *InvitationRepository) Accept(ctx context.Context, id uint, at time.Time) error {
	query := `
		UPDATE committee_invitations
		SET status = $2, acceptance_date = $3
		WHERE id = $1 AND status = $4
	`
	return r.execOne(ctx, "accept invitation", query, id, models.InvitationAccepted, at, models.InvitationPending)
}

// Decline marks a pending invitation declined
func (r *InvitationRepository) Decline(ctx context.Context, id uint, at time.Time) error {
	query := `
		UPDATE committee_invitations
		SET status = $2, denial_date = $3
		WHERE id = $1 AND status = $4
	`
	return r.execOne(ctx, "decline invitation", query, id, models.InvitationDeclined, at, models.InvitationPending)
}

// DeclineAllPending force-declines every pending invitation of a thesis
func (r *InvitationRepository) DeclineAllPending(ctx context.Context, thesisID uint, at time.Time) (int64, error) {
	query := `
		UPDATE committee_invitations
		SET status = $2, denial_date = $3
		WHERE thesis_id = $1 AND status = $4
	`
	result, err := r.db.ExecContext(ctx, query, thesisID, models.InvitationDeclined, at, models.InvitationPending)
	if err != nil {
		return 0, fmt.Errorf("failed to decline pending invitations: %w", err)
	}
	return result.RowsAffected()
}

// ListAcceptedProfessorIDs returns accepted members in acceptance order
func (r *InvitationRepository) ListAcceptedProfessorIDs(ctx context.Context, thesisID uint) ([]uint, error) {
	query := `
		SELECT professor_id FROM committee_invitations
		WHERE thesis_id = $1 AND status = $2 AND role = $3
		ORDER BY acceptance_date, id
	`
	rows, err := r.db.QueryContext(ctx, query, thesisID, models.InvitationAccepted, models.CommitteeRoleMember)
	if err != nil {
		return nil, fmt.Errorf("failed to list accepted invitations: %w", err)
	}
	defer rows.Close()

	var ids []uint
	for rows.Next() {
		var id uint
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("failed to scan professor id: %w", err)
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

// ListByThesis returns all invitations of a thesis, oldest first
func (r *InvitationRepository) ListByThesis(ctx context.Context, thesisID uint) ([]models.CommitteeInvitation, error) {
	query := `
		SELECT ` + invitationColumns + `
		FROM committee_invitations ci
		JOIN users u ON u.id = ci.professor_id
		WHERE ci.thesis_id = $1
		ORDER BY ci.invitation_date, ci.id
	`
	rows, err := r.db.QueryContext(ctx, query, thesisID)
	if err != nil {
		return nil, fmt.Errorf("failed to list invitations: %w", err)
	}
	defer rows.Close()

	invitations := []models.CommitteeInvitation{}
	for rows.Next() {
		inv, err := scanInvitation(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan invitation: %w", err)
		}
		invitations = append(invitations, *inv)
	}
	return invitations, rows.Err()
}

// DeleteByThesis hard-deletes every invitation of a thesis
func (r *InvitationRepository) DeleteByThesis(ctx context.Context, thesisID uint) (int64, error) {
	result, err := r.db.ExecContext(ctx, `DELETE FROM committee_invitations WHERE thesis_id = $1`, thesisID)
	if err != nil {
		return 0, fmt.Errorf("failed to delete invitations: %w", err)
	}
	return result.RowsAffected()
}

func (r *InvitationRepository) execOne(ctx context.Context, op, query string, args ...any) error {
	result, err := r.db.ExecContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("failed to %s: %w", op, err)
	}
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to %s: %w", op, err)
	}
	if rowsAffected == 0 {
		return ErrInvitationNotFound
	}
	return nil
}

func scanInvitation(row rowScanner) (*models.CommitteeInvitation, error) {
	inv := &models.CommitteeInvitation{}
	err := row.Scan(
		&inv.ID,
		&inv.ThesisID,
		&inv.ProfessorID,
		&inv.ProfessorName,
		&inv.Role,
		&inv.Status,
		&inv.InvitationDate,
		&inv.AcceptanceDate,
		&inv.DenialDate,
	)
	if err != nil {
		return nil, err
	}
	return inv, nil
}
