package repository

import (
	"context"
	"database/sql"

	"thesis-portal/internal/database"
)

// Store groups the repositories taking part in workflow transactions
type Store struct {
	db *sql.DB

	Users         *UserRepository
	Theses        *ThesisRepository
	Invitations   *InvitationRepository
	Events        *EventRepository
	Grades        *GradeRepository
	Announcements *AnnouncementRepository
	Canceled      *CanceledThesisRepository
}

// NewStore creates a store whose repositories run on the connection pool
func NewStore(db *sql.DB) *Store {
	return &Store{
		db:            db,
		Users:         NewUserRepository(db),
		Theses:        NewThesisRepository(db),
		Invitations:   NewInvitationRepository(db),
		Events:        NewEventRepository(db),
		Grades:        NewGradeRepository(db),
		Announcements: NewAnnouncementRepository(db),
		Canceled:      NewCanceledThesisRepository(db),
	}
}

// InTx runs fn with a store bound to a single transaction. Every repository call
// made through the argument store commits or rolls back together.
func (s *Store) InTx(ctx context.Context, fn func(tx *Store) error) error {
	return database.WithTx(ctx, s.db, func(tx *sql.Tx) error {
		return fn(&Store{
			db:            s.db,
			Users:         NewUserRepository(tx),
			Theses:        NewThesisRepository(tx),
			Invitations:   NewInvitationRepository(tx),
			Events:        NewEventRepository(tx),
			Grades:        NewGradeRepository(tx),
			Announcements: NewAnnouncementRepository(tx),
			Canceled:      NewCanceledThesisRepository(tx),
		})
	})
}
