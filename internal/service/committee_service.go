package service

import (
	"context"
	"errors"

	"thesis-portal/internal/lifecycle"
	"thesis-portal/internal/models"
	"thesis-portal/internal/repository"
	"thesis-portal/pkg/validator"
)

// committeeSize is the number of accepted invitations that completes a committee
const committeeSize = 2

// CommitteeService handles committee invitations and their responses
type CommitteeService struct {
	store    *repository.Store
	queries  *repository.QueryRepository
	notifier Notifier
	clock    clock
}

// NewCommitteeService creates a new committee service. notifier may be nil.
func NewCommitteeService(store *repository.Store, queries *repository.QueryRepository, notifier Notifier) *CommitteeService {
	return &CommitteeService{store: store, queries: queries, notifier: notifier}
}

// Invite creates a pending invitation from the thesis student to a professor
func (s *CommitteeService) Invite(ctx context.Context, actor models.Actor, thesisID uint, req models.InviteRequest) (*models.CommitteeInvitation, error) {
	if err := validator.ValidateStruct(&req); err != nil {
		return nil, validationError(err)
	}

	var (
		invitation *models.CommitteeInvitation
		professor  *models.User
		thesis     *models.Thesis
	)
	err := s.store.InTx(ctx, func(tx *repository.Store) error {
		var err error
		thesis, err = lockThesis(ctx, tx, thesisID)
		if err != nil {
			return err
		}
		if actor.Role != models.RoleStudent || !thesis.IsStudent(actor.ID) {
			return forbidden(CodeForbidden, "only the assigned student can invite committee members")
		}
		if thesis.State != lifecycle.UnderAssignment {
			return conflict(CodeInvalidState, "invitations can only be sent while the thesis is under assignment")
		}

		professor, err = tx.Users.GetByID(ctx, req.ProfessorID)
		if errors.Is(err, repository.ErrUserNotFound) {
			return notFound(CodeUserNotFound, "professor not found")
		}
		if err != nil {
			return persistence("get professor", err)
		}
		if professor.Role != models.RoleProfessor {
			return validationError(&validator.ValidationError{
				Fields: map[string]string{"professor_id": "professor_id must reference a professor"},
			})
		}
		if professor.ID == thesis.InstructorID {
			return conflict(CodeInstructorNotInvitable, "the instructor is already part of the committee")
		}

		invitation = &models.CommitteeInvitation{
			ThesisID:    thesisID,
			ProfessorID: professor.ID,
		}
		err = tx.Invitations.Create(ctx, invitation)
		if errors.Is(err, repository.ErrDuplicateInvitation) {
			return conflict(CodeDuplicateInvitation, "this professor has already been invited")
		}
		if err != nil {
			return persistence("create invitation", err)
		}
		invitation.ProfessorName = professor.FullName()
		return nil
	})
	if err != nil {
		return nil, wrap("invite professor", err)
	}

	if s.notifier != nil {
		var hooks afterCommit
		hooks.add(func(ctx context.Context) error {
			student, err := s.store.Users.GetByID(ctx, actor.ID)
			if err != nil {
				return err
			}
			return s.notifier.InvitationReceived(ctx, professor, student, thesis)
		})
		hooks.run(ctx)
	}
	return invitation, nil
}

// Respond records a professor's decision on a pending invitation.
//
// The thesis row is locked for the whole decision, so concurrent accepts on
// the same thesis are serialized. The second acceptance completes the
// committee: remaining pending invitations are declined, the two accepted
// professors become members in acceptance order and the thesis becomes Active.
// Any accept after that fails with COMMITTEE_FULL.
func (s *CommitteeService) Respond(ctx context.Context, actor models.Actor, thesisID, invitationID uint, req models.RespondInvitationRequest) (*models.InvitationResult, error) {
	if err := validator.ValidateStruct(&req); err != nil {
		return nil, validationError(err)
	}

	result := &models.InvitationResult{}
	var activated *models.Thesis
	err := s.store.InTx(ctx, func(tx *repository.Store) error {
		thesis, err := lockThesis(ctx, tx, thesisID)
		if err != nil {
			return err
		}

		invitation, err := tx.Invitations.GetByID(ctx, invitationID)
		if errors.Is(err, repository.ErrInvitationNotFound) || (err == nil && invitation.ThesisID != thesisID) {
			return notFound(CodeInvitationNotFound, "invitation not found")
		}
		if err != nil {
			return persistence("get invitation", err)
		}
		if invitation.ProfessorID != actor.ID {
			return forbidden(CodeForbidden, "only the invited professor can respond")
		}

		accepted, err := tx.Invitations.CountAccepted(ctx, thesisID)
		if err != nil {
			return persistence("count accepted invitations", err)
		}
		// Invitations declined on completion still report the full committee
		if req.Decision == models.DecisionAccept && accepted >= committeeSize {
			return conflict(CodeCommitteeFull, "the committee is already complete")
		}
		if invitation.Status != models.InvitationPending {
			return notFound(CodeInvitationNotFound, "no pending invitation found")
		}

		now := s.clock.now()
		result.ThesisState = thesis.State
		result.AcceptedCount = accepted

		if req.Decision == models.DecisionDecline {
			if err := tx.Invitations.Decline(ctx, invitation.ID, now); err != nil {
				return persistence("decline invitation", err)
			}
			result.Invitation, err = tx.Invitations.GetByID(ctx, invitation.ID)
			return err
		}

		if err := tx.Invitations.Accept(ctx, invitation.ID, now); err != nil {
			return persistence("accept invitation", err)
		}
		accepted++
		result.AcceptedCount = accepted

		if accepted == committeeSize {
			if err := s.completeCommittee(ctx, tx, thesis, actor); err != nil {
				return err
			}
			result.CommitteeComplete = true
			result.ThesisState = lifecycle.Active
			if activated, err = tx.Theses.GetByID(ctx, thesisID); err != nil {
				return err
			}
		}

		result.Invitation, err = tx.Invitations.GetByID(ctx, invitation.ID)
		return err
	})
	if err != nil {
		return nil, wrap("respond to invitation", err)
	}

	if activated != nil && s.notifier != nil {
		var hooks afterCommit
		hooks.add(func(ctx context.Context) error {
			recipients, err := s.participants(ctx, activated)
			if err != nil {
				return err
			}
			return s.notifier.CommitteeCompleted(ctx, recipients, activated)
		})
		hooks.run(ctx)
	}
	return result, nil
}

func (s *CommitteeService) completeCommittee(ctx context.Context, tx *repository.Store, thesis *models.Thesis, actor models.Actor) error {
	if err := checkTransition(thesis.State, lifecycle.Active, lifecycle.ByCommittee); err != nil {
		return err
	}
	if _, err := tx.Invitations.DeclineAllPending(ctx, thesis.ID, s.clock.now()); err != nil {
		return persistence("decline pending invitations", err)
	}

	members, err := tx.Invitations.ListAcceptedProfessorIDs(ctx, thesis.ID)
	if err != nil {
		return persistence("list accepted professors", err)
	}
	if len(members) != committeeSize {
		return conflict(CodeCommitteeFull, "unexpected number of accepted invitations")
	}

	if err := tx.Theses.Activate(ctx, thesis.ID, members[0], members[1], s.clock.now()); err != nil {
		return persistence("activate thesis", err)
	}
	return recordEvent(ctx, tx, thesis.ID, lifecycle.Active, actor.ID)
}

// participants returns the student and all committee professors of a thesis
func (s *CommitteeService) participants(ctx context.Context, thesis *models.Thesis) ([]models.User, error) {
	ids := thesis.CommitteeIDs()
	if thesis.StudentID != nil {
		ids = append(ids, *thesis.StudentID)
	}
	users := make([]models.User, 0, len(ids))
	for _, id := range ids {
		user, err := s.store.Users.GetByID(ctx, id)
		if err != nil {
			return nil, err
		}
		users = append(users, *user)
	}
	return users, nil
}

// ListInvitations returns every invitation of a thesis in invitation order
func (s *CommitteeService) ListInvitations(ctx context.Context, actor models.Actor, thesisID uint) ([]models.CommitteeInvitation, error) {
	denied := forbidden(CodeForbidden, "students can only view invitations of their own thesis")
	thesis, err := s.store.Theses.GetByID(ctx, thesisID)
	if errors.Is(err, repository.ErrThesisNotFound) {
		if actor.Role == models.RoleStudent {
			return nil, denied
		}
		return nil, notFound(CodeThesisNotFound, "thesis not found")
	}
	if err != nil {
		return nil, persistence("get thesis", err)
	}
	if actor.Role == models.RoleStudent && !thesis.IsStudent(actor.ID) {
		return nil, denied
	}

	invitations, err := s.store.Invitations.ListByThesis(ctx, thesisID)
	if err != nil {
		return nil, persistence("list invitations", err)
	}
	return invitations, nil
}

// ListMyInvitations returns the calling professor's pending invitations
func (s *CommitteeService) ListMyInvitations(ctx context.Context, actor models.Actor) ([]models.PendingInvitation, error) {
	if err := requireRole(actor, models.RoleProfessor); err != nil {
		return nil, err
	}
	invitations, err := s.queries.ListPendingInvitations(ctx, actor.ID)
	if err != nil {
		return nil, persistence("list pending invitations", err)
	}
	return invitations, nil
}
