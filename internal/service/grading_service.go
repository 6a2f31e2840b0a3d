package service

import (
	"context"
	"errors"
	"math"

	"thesis-portal/internal/lifecycle"
	"thesis-portal/internal/models"
	"thesis-portal/internal/repository"
	"thesis-portal/pkg/validator"
)

// GradingService records committee grades and derives the final grade
type GradingService struct {
	store  *repository.Store
	cipher CommentCipher
}

// NewGradingService creates a new grading service. With a nil cipher grade
// comments are stored as plain text.
func NewGradingService(store *repository.Store, cipher CommentCipher) *GradingService {
	return &GradingService{store: store, cipher: cipher}
}

// SubmitGrade records or overwrites the calling professor's final grade.
//
// Once the instructor and both members have graded, the thesis final grade is
// set to the mean of the three grades rounded to two decimals. A resubmission
// recomputes it.
func (s *GradingService) SubmitGrade(ctx context.Context, actor models.Actor, thesisID uint, req models.SubmitGradeRequest) (*models.GradeResult, error) {
	if err := validator.ValidateStruct(&req); err != nil {
		return nil, validationError(err)
	}

	result := &models.GradeResult{}
	err := s.store.InTx(ctx, func(tx *repository.Store) error {
		thesis, err := lockThesis(ctx, tx, thesisID)
		if err != nil {
			return err
		}
		if thesis.State != lifecycle.UnderExamination {
			return conflict(CodeNotUnderExamination, "grades can only be submitted while the thesis is under examination")
		}
		if actor.Role != models.RoleProfessor || !thesis.IsCommitteeMember(actor.ID) {
			return forbidden(CodeNotCommitteeMember, "only committee members can grade this thesis")
		}
		if thesis.DraftFile == nil || *thesis.DraftFile == "" {
			return conflict(CodeDraftFileMissing, "the student has not uploaded a draft")
		}
		announced, err := tx.Announcements.Exists(ctx, thesisID)
		if err != nil {
			return persistence("check announcement", err)
		}
		if !announced {
			return conflict(CodeExaminationDetailsMissing, "the examination details have not been announced")
		}

		grade := &models.Grade{
			ThesisID:    thesisID,
			ProfessorID: actor.ID,
			Grade:       *req.Grade,
			Comment:     validator.SanitizeString(req.Comment),
		}
		plaintext := grade.Comment
		if s.cipher != nil && grade.Comment != "" {
			grade.Comment, err = s.cipher.EncryptComment(ctx, thesisID, actor.ID, plaintext)
			if err != nil {
				return persistence("encrypt grade comment", err)
			}
			grade.CommentEncrypted = true
		}
		if err := tx.Grades.Upsert(ctx, grade); err != nil {
			return persistence("save grade", err)
		}
		grade.Comment = plaintext

		professor, err := tx.Users.GetByID(ctx, actor.ID)
		if err != nil {
			return persistence("get professor", err)
		}
		grade.ProfessorName = professor.FullName()
		result.Grade = grade

		committee := thesis.CommitteeIDs()
		if len(committee) != 3 {
			return nil
		}
		grades, err := tx.Grades.ListForProfessors(ctx, thesisID, committee)
		if err != nil {
			return persistence("list committee grades", err)
		}
		if len(grades) != len(committee) {
			return nil
		}

		values := make([]float64, len(grades))
		for i, g := range grades {
			values[i] = g.Grade
		}
		final := FinalGrade(values)
		if err := tx.Theses.SetFinalGrade(ctx, thesisID, final); err != nil {
			return persistence("set final grade", err)
		}
		result.AllGradesSubmitted = true
		result.FinalGrade = &final
		return nil
	})
	if err != nil {
		return nil, wrap("submit grade", err)
	}
	return result, nil
}

// GetGrades returns the grades of a thesis to its committee and the secretary
func (s *GradingService) GetGrades(ctx context.Context, actor models.Actor, thesisID uint) ([]models.Grade, error) {
	// Only the secretary may learn that a thesis does not exist
	denied := forbidden(CodeNotCommitteeMember, "only the committee and the secretary can view grades")
	thesis, err := s.store.Theses.GetByID(ctx, thesisID)
	if errors.Is(err, repository.ErrThesisNotFound) {
		if actor.Role != models.RoleSecretary {
			return nil, denied
		}
		return nil, notFound(CodeThesisNotFound, "thesis not found")
	}
	if err != nil {
		return nil, persistence("get thesis", err)
	}
	if actor.Role != models.RoleSecretary && !(actor.Role == models.RoleProfessor && thesis.IsCommitteeMember(actor.ID)) {
		return nil, denied
	}

	grades, err := s.store.Grades.ListByThesis(ctx, thesisID)
	if err != nil {
		return nil, persistence("list grades", err)
	}
	for i := range grades {
		if !grades[i].CommentEncrypted {
			continue
		}
		if s.cipher == nil {
			grades[i].Comment = ""
			continue
		}
		grades[i].Comment, err = s.cipher.DecryptComment(ctx, thesisID, grades[i].ProfessorID, grades[i].Comment)
		if err != nil {
			return nil, persistence("decrypt grade comment", err)
		}
	}
	return grades, nil
}

// FinalGrade returns the arithmetic mean of grades rounded to two decimals,
// with halves rounded away from zero.
func FinalGrade(grades []float64) float64 {
	if len(grades) == 0 {
		return 0
	}
	var sum float64
	for _, g := range grades {
		sum += g
	}
	return math.Round(sum/float64(len(grades))*100) / 100
}
