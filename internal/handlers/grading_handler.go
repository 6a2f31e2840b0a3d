package handlers

import (
	"net/http"

	"thesis-portal/internal/models"
	"thesis-portal/internal/service"
)

// GradingHandler handles grade submission
type GradingHandler struct {
	grading *service.GradingService
}

// NewGradingHandler creates a new grading handler
func NewGradingHandler(grading *service.GradingService) *GradingHandler {
	return &GradingHandler{grading: grading}
}

// SubmitGrade records or replaces the caller's grade
// @Summary Submit a grade
// @Description The final grade is computed once all three committee members have graded.
// @Tags Grading
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path int true "Thesis ID"
// @Param request body models.SubmitGradeRequest true "Grade between 0 and 10"
// @Success 200 {object} models.GradeResult
// @Failure 400 {object} ErrorResponse
// @Failure 403 {object} ErrorResponse
// @Failure 409 {object} ErrorResponse
// @Router /theses/{id}/grades [post]
func (h *GradingHandler) SubmitGrade(w http.ResponseWriter, r *http.Request) {
	handleAction(w, r, http.StatusOK, func(r *http.Request, actor models.Actor, id uint, req models.SubmitGradeRequest) (*models.GradeResult, error) {
		return h.grading.SubmitGrade(r.Context(), actor, id, req)
	})
}

// GetGrades lists the grades of a thesis
// @Summary List grades
// @Tags Grading
// @Produce json
// @Security BearerAuth
// @Param id path int true "Thesis ID"
// @Success 200 {array} models.Grade
// @Failure 403 {object} ErrorResponse
// @Failure 404 {object} ErrorResponse
// @Router /theses/{id}/grades [get]
func (h *GradingHandler) GetGrades(w http.ResponseWriter, r *http.Request) {
	actor, ok := requireActor(w, r)
	if !ok {
		return
	}
	thesisID, ok := pathID(w, r, "id")
	if !ok {
		return
	}

	grades, err := h.grading.GetGrades(r.Context(), actor, thesisID)
	if err != nil {
		respondWithServiceError(w, r, err)
		return
	}
	respondWithJSON(w, http.StatusOK, grades)
}
