package service

import (
	"context"
	"errors"
	"log/slog"
	"slices"
	"time"

	"thesis-portal/internal/lifecycle"
	"thesis-portal/internal/models"
	"thesis-portal/internal/repository"
)

// Notifier delivers workflow notifications. Calls happen after commit and
// failures never undo the operation that triggered them.
type Notifier interface {
	InvitationReceived(ctx context.Context, professor, student *models.User, thesis *models.Thesis) error
	CommitteeCompleted(ctx context.Context, recipients []models.User, thesis *models.Thesis) error
	ThesisFinalized(ctx context.Context, student *models.User, thesis *models.Thesis) error
}

// CommentCipher encrypts grade comments at rest
type CommentCipher interface {
	EncryptComment(ctx context.Context, thesisID, professorID uint, plaintext string) (string, error)
	DecryptComment(ctx context.Context, thesisID, professorID uint, ciphertext string) (string, error)
}

func requireRole(actor models.Actor, roles ...models.Role) error {
	if slices.Contains(roles, actor.Role) {
		return nil
	}
	return forbidden(CodeForbidden, "operation not permitted for role "+string(actor.Role))
}

// lockThesis loads the thesis row FOR UPDATE inside tx
func lockThesis(ctx context.Context, tx *repository.Store, id uint) (*models.Thesis, error) {
	thesis, err := tx.Theses.GetByIDForUpdate(ctx, id)
	if errors.Is(err, repository.ErrThesisNotFound) {
		return nil, notFound(CodeThesisNotFound, "thesis not found")
	}
	if err != nil {
		return nil, persistence("lock thesis", err)
	}
	return thesis, nil
}

// checkTransition validates a state change against the lifecycle table
func checkTransition(from, to lifecycle.State, trigger lifecycle.Trigger) error {
	err := lifecycle.Check(from, to, trigger)
	switch {
	case err == nil:
		return nil
	case errors.Is(err, lifecycle.ErrTriggerNotAllowed):
		return forbidden(CodeForbidden, err.Error())
	default:
		return conflict(CodeInvalidTransition, err.Error())
	}
}

// triggerFor resolves which lifecycle trigger the actor represents for a thesis
func triggerFor(actor models.Actor, thesis *models.Thesis) (lifecycle.Trigger, bool) {
	switch {
	case actor.Role == models.RoleSecretary:
		return lifecycle.BySecretary, true
	case actor.Role == models.RoleProfessor && actor.ID == thesis.InstructorID:
		return lifecycle.ByInstructor, true
	default:
		return "", false
	}
}

// recordEvent appends a state change signed with the actor's current full name
func recordEvent(ctx context.Context, tx *repository.Store, thesisID uint, status lifecycle.State, actorID uint) error {
	user, err := tx.Users.GetByID(ctx, actorID)
	if err != nil {
		return persistence("resolve event actor", err)
	}
	event := &models.ThesisEvent{ThesisID: thesisID, Status: status, CreatedBy: user.FullName()}
	if err := tx.Events.Append(ctx, event); err != nil {
		return persistence("append thesis event", err)
	}
	return nil
}

// afterCommit runs notification callbacks, logging failures
type afterCommit []func(ctx context.Context) error

func (a *afterCommit) add(fn func(ctx context.Context) error) {
	*a = append(*a, fn)
}

func (a afterCommit) run(ctx context.Context) {
	ctx = context.WithoutCancel(ctx)
	for _, fn := range a {
		if err := fn(ctx); err != nil {
			slog.Warn("Notification failed", "error", err)
		}
	}
}

type clock func() time.Time

func (c clock) now() time.Time {
	if c == nil {
		return time.Now()
	}
	return c()
}
