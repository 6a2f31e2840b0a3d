package service

import (
	"context"
	"errors"

	"thesis-portal/internal/models"
	"thesis-portal/internal/repository"
)

// ProtocolService assembles the examination protocol of a thesis
type ProtocolService struct {
	store      *repository.Store
	queries    *repository.QueryRepository
	department string
}

// NewProtocolService creates a new protocol service
func NewProtocolService(store *repository.Store, queries *repository.QueryRepository, department string) *ProtocolService {
	return &ProtocolService{store: store, queries: queries, department: department}
}

// GetProtocol returns the protocol data. Only committee members and the secretary may read it.
func (s *ProtocolService) GetProtocol(ctx context.Context, actor models.Actor, thesisID uint) (*models.ProtocolRecord, error) {
	// Only the secretary may learn that a thesis does not exist
	denied := forbidden(CodeNotCommitteeMember, "only the committee and the secretary can view the protocol")
	record, err := s.queries.GetProtocol(ctx, thesisID)
	if errors.Is(err, repository.ErrThesisNotFound) {
		if actor.Role != models.RoleSecretary {
			return nil, denied
		}
		return nil, notFound(CodeThesisNotFound, "thesis not found")
	}
	if err != nil {
		return nil, persistence("get protocol", err)
	}

	if actor.Role != models.RoleSecretary && !onCommittee(record, actor) {
		return nil, denied
	}

	record.Department = s.department
	announcement, err := s.store.Announcements.GetByThesis(ctx, thesisID)
	switch {
	case err == nil:
		record.Announcement = announcement
	case !errors.Is(err, repository.ErrAnnouncementNotFound):
		return nil, persistence("get announcement", err)
	}
	return record, nil
}

func onCommittee(record *models.ProtocolRecord, actor models.Actor) bool {
	if actor.Role != models.RoleProfessor {
		return false
	}
	for _, member := range record.Committee {
		if member.ProfessorID == actor.ID {
			return true
		}
	}
	return false
}
