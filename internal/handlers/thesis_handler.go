package handlers

import (
	"context"
	"net/http"

	"thesis-portal/internal/lifecycle"
	"thesis-portal/internal/models"
	"thesis-portal/internal/service"
)

// ThesisHandler handles topic, lifecycle and student workflow requests
type ThesisHandler struct {
	theses *service.ThesisService
}

// NewThesisHandler creates a new thesis handler
func NewThesisHandler(theses *service.ThesisService) *ThesisHandler {
	return &ThesisHandler{theses: theses}
}

// handleAction decodes the body, runs fn for the path thesis and writes the result
func handleAction[Req, Resp any](w http.ResponseWriter, r *http.Request, status int, fn func(r *http.Request, actor models.Actor, thesisID uint, req Req) (Resp, error)) {
	actor, ok := requireActor(w, r)
	if !ok {
		return
	}
	thesisID, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	var req Req
	if !decodeJSON(w, r, &req) {
		return
	}

	resp, err := fn(r, actor, thesisID, req)
	if err != nil {
		respondWithServiceError(w, r, err)
		return
	}
	respondWithJSON(w, status, resp)
}

// CreateTopic creates a new unassigned topic
// @Summary Create a thesis topic
// @Tags Topics
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body models.CreateTopicRequest true "Topic"
// @Success 201 {object} models.Thesis
// @Failure 400 {object} ErrorResponse
// @Failure 403 {object} ErrorResponse
// @Router /topics [post]
func (h *ThesisHandler) CreateTopic(w http.ResponseWriter, r *http.Request) {
	actor, ok := requireActor(w, r)
	if !ok {
		return
	}
	var req models.CreateTopicRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	thesis, err := h.theses.CreateTopic(r.Context(), actor, req)
	if err != nil {
		respondWithServiceError(w, r, err)
		return
	}
	respondWithJSON(w, http.StatusCreated, thesis)
}

// DeleteTopic deletes an unassigned topic
// @Summary Delete a thesis topic
// @Tags Topics
// @Security BearerAuth
// @Param id path int true "Thesis ID"
// @Success 204
// @Failure 403 {object} ErrorResponse
// @Failure 404 {object} ErrorResponse
// @Failure 409 {object} ErrorResponse
// @Router /topics/{id} [delete]
func (h *ThesisHandler) DeleteTopic(w http.ResponseWriter, r *http.Request) {
	actor, ok := requireActor(w, r)
	if !ok {
		return
	}
	thesisID, ok := pathID(w, r, "id")
	if !ok {
		return
	}

	if err := h.theses.DeleteTopic(r.Context(), actor, thesisID); err != nil {
		respondWithServiceError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// ListTheses lists the theses visible to the caller
// @Summary List theses
// @Tags Theses
// @Produce json
// @Security BearerAuth
// @Param state query string false "Filter by state"
// @Success 200 {array} models.ThesisSummary
// @Failure 400 {object} ErrorResponse
// @Router /theses [get]
func (h *ThesisHandler) ListTheses(w http.ResponseWriter, r *http.Request) {
	actor, ok := requireActor(w, r)
	if !ok {
		return
	}

	var state *lifecycle.State
	if s := r.URL.Query().Get("state"); s != "" {
		st := lifecycle.State(s)
		state = &st
	}

	theses, err := h.theses.ListTheses(r.Context(), actor, state)
	if err != nil {
		respondWithServiceError(w, r, err)
		return
	}
	respondWithJSON(w, http.StatusOK, theses)
}

// GetThesis returns one thesis, canceled theses included
// @Summary Get a thesis
// @Tags Theses
// @Produce json
// @Security BearerAuth
// @Param id path int true "Thesis ID"
// @Success 200 {object} models.ThesisDetails
// @Failure 403 {object} ErrorResponse
// @Failure 404 {object} ErrorResponse
// @Router /theses/{id} [get]
func (h *ThesisHandler) GetThesis(w http.ResponseWriter, r *http.Request) {
	actor, ok := requireActor(w, r)
	if !ok {
		return
	}
	thesisID, ok := pathID(w, r, "id")
	if !ok {
		return
	}

	details, err := h.theses.GetThesis(r.Context(), actor, thesisID)
	if err != nil {
		respondWithServiceError(w, r, err)
		return
	}
	respondWithJSON(w, http.StatusOK, details)
}

// GetTimeline returns the status history of a thesis
// @Summary Thesis timeline
// @Tags Theses
// @Produce json
// @Security BearerAuth
// @Param id path int true "Thesis ID"
// @Success 200 {array} models.TimelineEntry
// @Failure 404 {object} ErrorResponse
// @Router /theses/{id}/timeline [get]
func (h *ThesisHandler) GetTimeline(w http.ResponseWriter, r *http.Request) {
	actor, ok := requireActor(w, r)
	if !ok {
		return
	}
	thesisID, ok := pathID(w, r, "id")
	if !ok {
		return
	}

	timeline, err := h.theses.GetTimeline(r.Context(), actor, thesisID)
	if err != nil {
		respondWithServiceError(w, r, err)
		return
	}
	respondWithJSON(w, http.StatusOK, timeline)
}

// AssignTopic assigns a student to a topic
// @Summary Assign a student
// @Tags Theses
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path int true "Thesis ID"
// @Param request body models.AssignTopicRequest true "Student"
// @Success 200 {object} models.Thesis
// @Failure 400 {object} ErrorResponse
// @Failure 409 {object} ErrorResponse
// @Router /theses/{id}/assign [post]
func (h *ThesisHandler) AssignTopic(w http.ResponseWriter, r *http.Request) {
	handleAction(w, r, http.StatusOK, func(r *http.Request, actor models.Actor, id uint, req models.AssignTopicRequest) (*models.Thesis, error) {
		return h.theses.AssignTopic(r.Context(), actor, id, req)
	})
}

// RollbackAssignment returns an assigned topic to Unassigned
// @Summary Roll back an assignment
// @Tags Theses
// @Produce json
// @Security BearerAuth
// @Param id path int true "Thesis ID"
// @Success 200 {object} models.Thesis
// @Failure 409 {object} ErrorResponse
// @Router /theses/{id}/rollback [post]
func (h *ThesisHandler) RollbackAssignment(w http.ResponseWriter, r *http.Request) {
	h.bodiless(w, r, h.theses.RollbackAssignment)
}

// TransitionToExamination moves an active thesis under examination
// @Summary Start the examination
// @Tags Theses
// @Produce json
// @Security BearerAuth
// @Param id path int true "Thesis ID"
// @Success 200 {object} models.Thesis
// @Failure 403 {object} ErrorResponse
// @Failure 409 {object} ErrorResponse
// @Router /theses/{id}/examination [post]
func (h *ThesisHandler) TransitionToExamination(w http.ResponseWriter, r *http.Request) {
	h.bodiless(w, r, h.theses.TransitionToExamination)
}

// FinalizeThesis marks a graded thesis as completed
// @Summary Finalize a thesis
// @Tags Secretary
// @Produce json
// @Security BearerAuth
// @Param id path int true "Thesis ID"
// @Success 200 {object} models.Thesis
// @Failure 403 {object} ErrorResponse
// @Failure 409 {object} ErrorResponse
// @Router /theses/{id}/finalize [post]
func (h *ThesisHandler) FinalizeThesis(w http.ResponseWriter, r *http.Request) {
	h.bodiless(w, r, h.theses.FinalizeThesis)
}

func (h *ThesisHandler) bodiless(w http.ResponseWriter, r *http.Request, fn func(ctx context.Context, actor models.Actor, id uint) (*models.Thesis, error)) {
	actor, ok := requireActor(w, r)
	if !ok {
		return
	}
	thesisID, ok := pathID(w, r, "id")
	if !ok {
		return
	}

	thesis, err := fn(r.Context(), actor, thesisID)
	if err != nil {
		respondWithServiceError(w, r, err)
		return
	}
	respondWithJSON(w, http.StatusOK, thesis)
}

// CancelThesis cancels a thesis by general assembly decision
// @Summary Cancel a thesis
// @Tags Secretary
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path int true "Thesis ID"
// @Param request body models.CancelThesisRequest true "Assembly decision"
// @Success 200 {object} models.CanceledThesis
// @Failure 400 {object} ErrorResponse
// @Failure 409 {object} ErrorResponse
// @Router /theses/{id}/cancel [post]
func (h *ThesisHandler) CancelThesis(w http.ResponseWriter, r *http.Request) {
	handleAction(w, r, http.StatusOK, func(r *http.Request, actor models.Actor, id uint, req models.CancelThesisRequest) (*models.CanceledThesis, error) {
		return h.theses.CancelThesis(r.Context(), actor, id, req)
	})
}

// UploadDraft records the draft file and supporting links
// @Summary Upload the draft
// @Tags Student
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path int true "Thesis ID"
// @Param request body models.UploadDraftRequest true "Draft"
// @Success 200 {object} models.Thesis
// @Failure 400 {object} ErrorResponse
// @Failure 409 {object} ErrorResponse
// @Router /theses/{id}/draft [put]
func (h *ThesisHandler) UploadDraft(w http.ResponseWriter, r *http.Request) {
	handleAction(w, r, http.StatusOK, func(r *http.Request, actor models.Actor, id uint, req models.UploadDraftRequest) (*models.Thesis, error) {
		return h.theses.UploadDraft(r.Context(), actor, id, req)
	})
}

// SubmitAnnouncement records the examination details
// @Summary Submit the examination announcement
// @Tags Student
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path int true "Thesis ID"
// @Param request body models.AnnouncementRequest true "Examination details"
// @Success 200 {object} models.Announcement
// @Failure 400 {object} ErrorResponse
// @Failure 409 {object} ErrorResponse
// @Router /theses/{id}/announcement [put]
func (h *ThesisHandler) SubmitAnnouncement(w http.ResponseWriter, r *http.Request) {
	handleAction(w, r, http.StatusOK, func(r *http.Request, actor models.Actor, id uint, req models.AnnouncementRequest) (*models.Announcement, error) {
		return h.theses.SubmitAnnouncement(r.Context(), actor, id, req)
	})
}

// SetNimertisLink records the repository link of the final text
// @Summary Set the Nimertis link
// @Tags Student
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path int true "Thesis ID"
// @Param request body models.NimertisLinkRequest true "Link"
// @Success 200 {object} models.Thesis
// @Failure 400 {object} ErrorResponse
// @Failure 409 {object} ErrorResponse
// @Router /theses/{id}/nimertis [put]
func (h *ThesisHandler) SetNimertisLink(w http.ResponseWriter, r *http.Request) {
	handleAction(w, r, http.StatusOK, func(r *http.Request, actor models.Actor, id uint, req models.NimertisLinkRequest) (*models.Thesis, error) {
		return h.theses.SetNimertisLink(r.Context(), actor, id, req)
	})
}

// RecordApprovalProtocol records the general assembly approval number
// @Summary Record the approval protocol
// @Tags Secretary
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path int true "Thesis ID"
// @Param request body models.ApprovalProtocolRequest true "Protocol number"
// @Success 200 {object} models.Thesis
// @Failure 400 {object} ErrorResponse
// @Failure 409 {object} ErrorResponse
// @Router /theses/{id}/approval-protocol [put]
func (h *ThesisHandler) RecordApprovalProtocol(w http.ResponseWriter, r *http.Request) {
	handleAction(w, r, http.StatusOK, func(r *http.Request, actor models.Actor, id uint, req models.ApprovalProtocolRequest) (*models.Thesis, error) {
		return h.theses.RecordApprovalProtocol(r.Context(), actor, id, req)
	})
}

// ListAvailableStudents lists students without a thesis
// @Summary Students available for assignment
// @Tags Topics
// @Produce json
// @Security BearerAuth
// @Success 200 {array} models.User
// @Router /students/available [get]
func (h *ThesisHandler) ListAvailableStudents(w http.ResponseWriter, r *http.Request) {
	actor, ok := requireActor(w, r)
	if !ok {
		return
	}

	students, err := h.theses.ListAvailableStudents(r.Context(), actor)
	if err != nil {
		respondWithServiceError(w, r, err)
		return
	}
	respondWithJSON(w, http.StatusOK, students)
}
