package service

import (
	"context"
	"errors"
	"time"

	"thesis-portal/internal/lifecycle"
	"thesis-portal/internal/models"
	"thesis-portal/internal/repository"
	"thesis-portal/pkg/validator"
)

// ThesisService handles topic management and the secretary/instructor side of the lifecycle
type ThesisService struct {
	store    *repository.Store
	queries  *repository.QueryRepository
	notifier Notifier
	clock    clock
}

// NewThesisService creates a new thesis service. notifier may be nil.
func NewThesisService(store *repository.Store, queries *repository.QueryRepository, notifier Notifier) *ThesisService {
	return &ThesisService{store: store, queries: queries, notifier: notifier}
}

// CreateTopic publishes a new unassigned topic owned by the calling professor
func (s *ThesisService) CreateTopic(ctx context.Context, actor models.Actor, req models.CreateTopicRequest) (*models.Thesis, error) {
	if err := requireRole(actor, models.RoleProfessor); err != nil {
		return nil, err
	}
	req.Title = validator.SanitizeString(req.Title)
	req.Description = validator.SanitizeString(req.Description)
	if err := validator.ValidateStruct(&req); err != nil {
		return nil, validationError(err)
	}

	thesis := &models.Thesis{
		Title:        req.Title,
		Description:  req.Description,
		InstructorID: actor.ID,
	}
	err := s.store.InTx(ctx, func(tx *repository.Store) error {
		if err := tx.Theses.Create(ctx, thesis); err != nil {
			return persistence("create topic", err)
		}
		return recordEvent(ctx, tx, thesis.ID, lifecycle.Unassigned, actor.ID)
	})
	if err != nil {
		return nil, wrap("create topic", err)
	}
	return thesis, nil
}

// DeleteTopic removes an unassigned topic together with its invitations and events
func (s *ThesisService) DeleteTopic(ctx context.Context, actor models.Actor, thesisID uint) error {
	err := s.store.InTx(ctx, func(tx *repository.Store) error {
		thesis, err := lockThesis(ctx, tx, thesisID)
		if err != nil {
			return err
		}
		if actor.Role != models.RoleProfessor || thesis.InstructorID != actor.ID {
			return forbidden(CodeForbidden, "only the instructor can delete the topic")
		}
		if thesis.State != lifecycle.Unassigned {
			return conflict(CodeInvalidState, "only unassigned topics can be deleted")
		}
		if _, err := tx.Invitations.DeleteByThesis(ctx, thesisID); err != nil {
			return persistence("delete topic invitations", err)
		}
		if _, err := tx.Events.DeleteByThesis(ctx, thesisID); err != nil {
			return persistence("delete topic events", err)
		}
		if err := tx.Theses.Delete(ctx, thesisID); err != nil {
			return persistence("delete topic", err)
		}
		return nil
	})
	return wrap("delete topic", err)
}

// AssignTopic assigns a student to an unassigned topic
func (s *ThesisService) AssignTopic(ctx context.Context, actor models.Actor, thesisID uint, req models.AssignTopicRequest) (*models.Thesis, error) {
	if err := validator.ValidateStruct(&req); err != nil {
		return nil, validationError(err)
	}

	var result *models.Thesis
	err := s.store.InTx(ctx, func(tx *repository.Store) error {
		thesis, err := lockThesis(ctx, tx, thesisID)
		if err != nil {
			return err
		}
		if !s.isInstructor(actor, thesis) {
			return forbidden(CodeForbidden, "only the instructor can assign the topic")
		}
		if err := checkTransition(thesis.State, lifecycle.UnderAssignment, lifecycle.ByInstructor); err != nil {
			return err
		}

		student, err := tx.Users.GetByID(ctx, req.StudentID)
		if errors.Is(err, repository.ErrUserNotFound) {
			return notFound(CodeUserNotFound, "student not found")
		}
		if err != nil {
			return persistence("get student", err)
		}
		if student.Role != models.RoleStudent {
			return validationError(&validator.ValidationError{
				Fields: map[string]string{"student_id": "student_id must reference a student"},
			})
		}

		taken, err := tx.Theses.StudentHasThesis(ctx, student.ID)
		if err != nil {
			return persistence("check student thesis", err)
		}
		if taken {
			return conflict(CodeStudentAlreadyAssigned, "student already has a thesis")
		}

		err = tx.Theses.Assign(ctx, thesisID, student.ID, s.clock.now())
		if errors.Is(err, repository.ErrStudentAlreadyAssigned) {
			return conflict(CodeStudentAlreadyAssigned, "student already has a thesis")
		}
		if err != nil {
			return persistence("assign topic", err)
		}
		if err := recordEvent(ctx, tx, thesisID, lifecycle.UnderAssignment, actor.ID); err != nil {
			return err
		}
		result, err = tx.Theses.GetByID(ctx, thesisID)
		return err
	})
	if err != nil {
		return nil, wrap("assign topic", err)
	}
	return result, nil
}

// RollbackAssignment returns a topic under assignment to Unassigned.
// The student is detached and every invitation of the thesis is removed.
func (s *ThesisService) RollbackAssignment(ctx context.Context, actor models.Actor, thesisID uint) (*models.Thesis, error) {
	var result *models.Thesis
	err := s.store.InTx(ctx, func(tx *repository.Store) error {
		thesis, err := lockThesis(ctx, tx, thesisID)
		if err != nil {
			return err
		}
		if !s.isInstructor(actor, thesis) {
			return forbidden(CodeForbidden, "only the instructor can roll back the assignment")
		}
		if err := checkTransition(thesis.State, lifecycle.Unassigned, lifecycle.ByInstructor); err != nil {
			return err
		}
		if _, err := tx.Invitations.DeleteByThesis(ctx, thesisID); err != nil {
			return persistence("delete invitations", err)
		}
		if err := tx.Theses.ClearAssignment(ctx, thesisID); err != nil {
			return persistence("clear assignment", err)
		}
		if err := recordEvent(ctx, tx, thesisID, lifecycle.Unassigned, actor.ID); err != nil {
			return err
		}
		result, err = tx.Theses.GetByID(ctx, thesisID)
		return err
	})
	if err != nil {
		return nil, wrap("rollback assignment", err)
	}
	return result, nil
}

// TransitionToExamination moves an active thesis to UnderExamination.
// Both the instructor and the secretary may trigger it.
func (s *ThesisService) TransitionToExamination(ctx context.Context, actor models.Actor, thesisID uint) (*models.Thesis, error) {
	return s.transition(ctx, actor, thesisID, lifecycle.UnderExamination, "transition to examination")
}

// FinalizeThesis marks a thesis under examination as completed and notifies the student
func (s *ThesisService) FinalizeThesis(ctx context.Context, actor models.Actor, thesisID uint) (*models.Thesis, error) {
	if err := requireRole(actor, models.RoleSecretary); err != nil {
		return nil, err
	}
	thesis, err := s.transition(ctx, actor, thesisID, lifecycle.Completed, "finalize thesis")
	if err != nil {
		return nil, err
	}

	if s.notifier != nil && thesis.StudentID != nil {
		var hooks afterCommit
		hooks.add(func(ctx context.Context) error {
			student, err := s.store.Users.GetByID(ctx, *thesis.StudentID)
			if err != nil {
				return err
			}
			return s.notifier.ThesisFinalized(ctx, student, thesis)
		})
		hooks.run(ctx)
	}
	return thesis, nil
}

func (s *ThesisService) transition(ctx context.Context, actor models.Actor, thesisID uint, to lifecycle.State, op string) (*models.Thesis, error) {
	var result *models.Thesis
	err := s.store.InTx(ctx, func(tx *repository.Store) error {
		thesis, err := lockThesis(ctx, tx, thesisID)
		if err != nil {
			return err
		}
		trigger, ok := triggerFor(actor, thesis)
		if !ok {
			return forbidden(CodeForbidden, "not allowed to change the state of this thesis")
		}
		if err := checkTransition(thesis.State, to, trigger); err != nil {
			return err
		}
		if err := tx.Theses.UpdateState(ctx, thesisID, to); err != nil {
			return persistence(op, err)
		}
		if err := recordEvent(ctx, tx, thesisID, to, actor.ID); err != nil {
			return err
		}
		result, err = tx.Theses.GetByID(ctx, thesisID)
		return err
	})
	if err != nil {
		return nil, wrap(op, err)
	}
	return result, nil
}

// CancelThesis cancels a thesis by general assembly decision. The thesis row
// moves to canceled_theses under the same id.
func (s *ThesisService) CancelThesis(ctx context.Context, actor models.Actor, thesisID uint, req models.CancelThesisRequest) (*models.CanceledThesis, error) {
	if err := requireRole(actor, models.RoleSecretary); err != nil {
		return nil, err
	}
	req.Reason = validator.SanitizeString(req.Reason)
	req.AssemblyNumber = validator.SanitizeString(req.AssemblyNumber)
	if err := validator.ValidateStruct(&req); err != nil {
		return nil, validationError(err)
	}

	var canceled *models.CanceledThesis
	err := s.store.InTx(ctx, func(tx *repository.Store) error {
		thesis, err := lockThesis(ctx, tx, thesisID)
		if err != nil {
			return err
		}
		if err := checkTransition(thesis.State, lifecycle.Canceled, lifecycle.BySecretary); err != nil {
			return err
		}

		canceled = &models.CanceledThesis{
			ID:             thesis.ID,
			Title:          thesis.Title,
			Description:    thesis.Description,
			StudentID:      thesis.StudentID,
			InstructorID:   thesis.InstructorID,
			Member1ID:      thesis.Member1ID,
			Member2ID:      thesis.Member2ID,
			PreviousState:  thesis.State,
			Reason:         req.Reason,
			AssemblyNumber: req.AssemblyNumber,
			AssemblyYear:   req.AssemblyYear,
			CanceledBy:     actor.ID,
		}
		if err := tx.Canceled.Create(ctx, canceled); err != nil {
			return persistence("record cancellation", err)
		}
		if err := tx.Theses.Delete(ctx, thesisID); err != nil {
			return persistence("remove canceled thesis", err)
		}
		return recordEvent(ctx, tx, thesisID, lifecycle.Canceled, actor.ID)
	})
	if err != nil {
		return nil, wrap("cancel thesis", err)
	}
	return canceled, nil
}

// UploadDraft records the draft file reference and additional links of the student's thesis
func (s *ThesisService) UploadDraft(ctx context.Context, actor models.Actor, thesisID uint, req models.UploadDraftRequest) (*models.Thesis, error) {
	req.DraftFile = validator.SanitizeString(req.DraftFile)
	if req.AdditionalLinks == nil {
		req.AdditionalLinks = []string{}
	}
	if err := validator.ValidateStruct(&req); err != nil {
		return nil, validationError(err)
	}

	return s.updateAsStudent(ctx, actor, thesisID, "upload draft", func(tx *repository.Store, thesis *models.Thesis) error {
		if thesis.State != lifecycle.UnderExamination {
			return conflict(CodeNotUnderExamination, "the draft can only be uploaded while the thesis is under examination")
		}
		return tx.Theses.SetDraft(ctx, thesisID, req.DraftFile, req.AdditionalLinks)
	})
}

// SetNimertisLink records the institutional repository link of the student's thesis
func (s *ThesisService) SetNimertisLink(ctx context.Context, actor models.Actor, thesisID uint, req models.NimertisLinkRequest) (*models.Thesis, error) {
	req.URL = validator.SanitizeString(req.URL)
	if err := validator.ValidateStruct(&req); err != nil {
		return nil, validationError(err)
	}

	return s.updateAsStudent(ctx, actor, thesisID, "set nimertis link", func(tx *repository.Store, thesis *models.Thesis) error {
		if thesis.State != lifecycle.UnderExamination && thesis.State != lifecycle.Completed {
			return conflict(CodeInvalidState, "the repository link can only be set after the examination has started")
		}
		return tx.Theses.SetNimertisLink(ctx, thesisID, req.URL)
	})
}

func (s *ThesisService) updateAsStudent(ctx context.Context, actor models.Actor, thesisID uint, op string, fn func(tx *repository.Store, thesis *models.Thesis) error) (*models.Thesis, error) {
	var result *models.Thesis
	err := s.store.InTx(ctx, func(tx *repository.Store) error {
		thesis, err := lockThesis(ctx, tx, thesisID)
		if err != nil {
			return err
		}
		if actor.Role != models.RoleStudent || !thesis.IsStudent(actor.ID) {
			return forbidden(CodeForbidden, "only the assigned student can update this thesis")
		}
		if err := fn(tx, thesis); err != nil {
			return err
		}
		result, err = tx.Theses.GetByID(ctx, thesisID)
		return err
	})
	if err != nil {
		return nil, wrap(op, err)
	}
	return result, nil
}

// SubmitAnnouncement records or replaces the examination details
func (s *ThesisService) SubmitAnnouncement(ctx context.Context, actor models.Actor, thesisID uint, req models.AnnouncementRequest) (*models.Announcement, error) {
	req.LocationOrLink = validator.SanitizeString(req.LocationOrLink)
	if err := validator.ValidateStruct(&req); err != nil {
		return nil, validationError(err)
	}
	examDate, err := time.Parse(time.DateOnly, req.ExamDate)
	if err != nil {
		return nil, validationError(err)
	}

	announcement := &models.Announcement{
		ThesisID:       thesisID,
		ExamDate:       examDate,
		ExamTime:       req.ExamTime,
		ExamType:       req.ExamType,
		LocationOrLink: req.LocationOrLink,
	}
	_, err = s.updateAsStudent(ctx, actor, thesisID, "submit announcement", func(tx *repository.Store, thesis *models.Thesis) error {
		if thesis.State != lifecycle.UnderExamination {
			return conflict(CodeNotUnderExamination, "examination details can only be set while the thesis is under examination")
		}
		return tx.Announcements.Upsert(ctx, announcement)
	})
	if err != nil {
		return nil, err
	}
	return announcement, nil
}

// RecordApprovalProtocol stores the general assembly protocol number of an active thesis
func (s *ThesisService) RecordApprovalProtocol(ctx context.Context, actor models.Actor, thesisID uint, req models.ApprovalProtocolRequest) (*models.Thesis, error) {
	if err := requireRole(actor, models.RoleSecretary); err != nil {
		return nil, err
	}
	req.ProtocolNumber = validator.SanitizeString(req.ProtocolNumber)
	if err := validator.ValidateStruct(&req); err != nil {
		return nil, validationError(err)
	}

	var result *models.Thesis
	err := s.store.InTx(ctx, func(tx *repository.Store) error {
		thesis, err := lockThesis(ctx, tx, thesisID)
		if err != nil {
			return err
		}
		if thesis.State != lifecycle.Active {
			return conflict(CodeInvalidState, "the approval protocol can only be recorded for active theses")
		}
		if err := tx.Theses.SetProtocolNumber(ctx, thesisID, req.ProtocolNumber); err != nil {
			return persistence("record approval protocol", err)
		}
		result, err = tx.Theses.GetByID(ctx, thesisID)
		return err
	})
	if err != nil {
		return nil, wrap("record approval protocol", err)
	}
	return result, nil
}

// Students get the same error for a missing thesis and for someone else's
var errStudentNotOwner = forbidden(CodeForbidden, "students can only view their own thesis")

// GetThesis returns a thesis with participant names. Canceled theses are
// served from their cancellation record.
func (s *ThesisService) GetThesis(ctx context.Context, actor models.Actor, thesisID uint) (*models.ThesisDetails, error) {
	details := &models.ThesisDetails{}

	thesis, err := s.store.Theses.GetByID(ctx, thesisID)
	switch {
	case err == nil:
		details.Thesis = *thesis
	case errors.Is(err, repository.ErrThesisNotFound):
		canceled, cerr := s.store.Canceled.GetByID(ctx, thesisID)
		if errors.Is(cerr, repository.ErrCanceledThesisNotFound) {
			if actor.Role == models.RoleStudent {
				return nil, errStudentNotOwner
			}
			return nil, notFound(CodeThesisNotFound, "thesis not found")
		}
		if cerr != nil {
			return nil, persistence("get canceled thesis", cerr)
		}
		details.Thesis = models.Thesis{
			ID:              canceled.ID,
			Title:           canceled.Title,
			Description:     canceled.Description,
			State:           lifecycle.Canceled,
			StudentID:       canceled.StudentID,
			InstructorID:    canceled.InstructorID,
			Member1ID:       canceled.Member1ID,
			Member2ID:       canceled.Member2ID,
			AdditionalLinks: []string{},
			UpdatedAt:       canceled.CanceledAt,
		}
		details.Cancellation = &models.CancellationInfo{
			PreviousState:  canceled.PreviousState,
			Reason:         canceled.Reason,
			AssemblyNumber: canceled.AssemblyNumber,
			AssemblyYear:   canceled.AssemblyYear,
			CanceledBy:     canceled.CanceledBy,
			CanceledAt:     canceled.CanceledAt,
		}
	default:
		return nil, persistence("get thesis", err)
	}

	if actor.Role == models.RoleStudent && !details.IsStudent(actor.ID) {
		return nil, errStudentNotOwner
	}

	if err := s.resolveNames(ctx, details); err != nil {
		return nil, persistence("resolve thesis participants", err)
	}

	if details.State != lifecycle.Canceled {
		announcement, err := s.store.Announcements.GetByThesis(ctx, thesisID)
		switch {
		case err == nil:
			details.Announcement = announcement
		case !errors.Is(err, repository.ErrAnnouncementNotFound):
			return nil, persistence("get announcement", err)
		}
	}

	return details, nil
}

func (s *ThesisService) resolveNames(ctx context.Context, details *models.ThesisDetails) error {
	name := func(id *uint) (*string, error) {
		if id == nil {
			return nil, nil
		}
		user, err := s.store.Users.GetByID(ctx, *id)
		if err != nil {
			return nil, err
		}
		full := user.FullName()
		return &full, nil
	}

	instructor, err := name(&details.InstructorID)
	if err != nil {
		return err
	}
	details.InstructorName = *instructor
	if details.StudentName, err = name(details.StudentID); err != nil {
		return err
	}
	if details.Member1Name, err = name(details.Member1ID); err != nil {
		return err
	}
	details.Member2Name, err = name(details.Member2ID)
	return err
}

// ListTheses returns the theses visible to the actor, optionally filtered by state.
// Professors see theses they supervise or sit on the committee of, students their
// own thesis and the secretary active theses and theses under examination.
func (s *ThesisService) ListTheses(ctx context.Context, actor models.Actor, state *lifecycle.State) ([]models.ThesisSummary, error) {
	if state != nil && !state.Valid() {
		return nil, validationError(&validator.ValidationError{
			Fields: map[string]string{"state": "state must be a known thesis state"},
		})
	}

	var (
		theses []models.ThesisSummary
		err    error
	)
	switch actor.Role {
	case models.RoleProfessor:
		theses, err = s.queries.ListThesesForProfessor(ctx, actor.ID, state)
	case models.RoleStudent:
		theses, err = s.queries.ListThesesForStudent(ctx, actor.ID, state)
	case models.RoleSecretary:
		states := []lifecycle.State{lifecycle.Active, lifecycle.UnderExamination}
		if state != nil {
			states = []lifecycle.State{*state}
		}
		theses, err = s.queries.ListThesesInStates(ctx, states...)
	default:
		return nil, forbidden(CodeForbidden, "unknown role")
	}
	if err != nil {
		return nil, persistence("list theses", err)
	}
	return theses, nil
}

// GetTimeline returns the status history of a thesis with consecutive
// duplicate statuses collapsed.
func (s *ThesisService) GetTimeline(ctx context.Context, actor models.Actor, thesisID uint) ([]models.TimelineEntry, error) {
	if _, err := s.GetThesis(ctx, actor, thesisID); err != nil {
		return nil, err
	}
	events, err := s.store.Events.ListByThesis(ctx, thesisID)
	if err != nil {
		return nil, persistence("list thesis events", err)
	}
	return collapseTimeline(events), nil
}

func collapseTimeline(events []models.ThesisEvent) []models.TimelineEntry {
	timeline := make([]models.TimelineEntry, 0, len(events))
	for _, event := range events {
		if n := len(timeline); n > 0 && timeline[n-1].Status == event.Status {
			continue
		}
		timeline = append(timeline, models.TimelineEntry{
			Status:    event.Status,
			CreatedBy: event.CreatedBy,
			EventDate: event.EventDate,
		})
	}
	return timeline
}

// ListAvailableStudents returns students that can still be assigned a topic
func (s *ThesisService) ListAvailableStudents(ctx context.Context, actor models.Actor) ([]models.User, error) {
	if err := requireRole(actor, models.RoleProfessor); err != nil {
		return nil, err
	}
	students, err := s.store.Users.ListAvailableStudents(ctx)
	if err != nil {
		return nil, persistence("list available students", err)
	}
	return students, nil
}

func (s *ThesisService) isInstructor(actor models.Actor, thesis *models.Thesis) bool {
	return actor.Role == models.RoleProfessor && thesis.InstructorID == actor.ID
}
