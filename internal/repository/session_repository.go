package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"thesis-portal/internal/models"
)

var ErrSessionNotFound = errors.New("session not found or expired")

// SessionRepository handles session database operations
type SessionRepository struct {
	db DBTX
}

// NewSessionRepository creates a new session repository
func NewSessionRepository(db DBTX) *SessionRepository {
	return &SessionRepository{db: db}
}

// Create creates a new session
func (r *SessionRepository) Create(ctx context.Context, session *models.Session) error {
	query := `
		INSERT INTO sessions (user_id, jti, expires_at)
		VALUES ($1, $2, $3)
		RETURNING id, created_at
	`

	err := r.db.QueryRowContext(ctx, query, session.UserID, session.JTI, session.ExpiresAt).
		Scan(&session.ID, &session.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to create session: %w", err)
	}

	return nil
}

// GetByJTI retrieves an unexpired session by JTI
func (r *SessionRepository) GetByJTI(ctx context.Context, jti string) (*models.Session, error) {
	query := `
		SELECT id, user_id, jti, expires_at, created_at
		FROM sessions
		WHERE jti = $1 AND expires_at > $2
	`

	session := &models.Session{}
	err := r.db.QueryRowContext(ctx, query, jti, time.Now()).Scan(
		&session.ID,
		&session.UserID,
		&session.JTI,
		&session.ExpiresAt,
		&session.CreatedAt,
	)

	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrSessionNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get session: %w", err)
	}

	return session, nil
}

// DeleteByJTI deletes a session by JTI
func (r *SessionRepository) DeleteByJTI(ctx context.Context, jti string) error {
	_, err := r.db.ExecContext(ctx, `DELETE FROM sessions WHERE jti = $1`, jti)
	if err != nil {
		return fmt.Errorf("failed to delete session: %w", err)
	}
	return nil
}

// DeleteExpired deletes all expired sessions and returns how many were removed
func (r *SessionRepository) DeleteExpired(ctx context.Context) (int64, error) {
	result, err := r.db.ExecContext(ctx, `DELETE FROM sessions WHERE expires_at < $1`, time.Now())
	if err != nil {
		return 0, fmt.Errorf("failed to delete expired sessions: %w", err)
	}
	return result.RowsAffected()
}
