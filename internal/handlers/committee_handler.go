package handlers

import (
	"log/slog"
	"net/http"

	"thesis-portal/internal/models"
	"thesis-portal/internal/service"
)

// CommitteeHandler handles committee invitation requests
type CommitteeHandler struct {
	committee *service.CommitteeService
}

// NewCommitteeHandler creates a new committee handler
func NewCommitteeHandler(committee *service.CommitteeService) *CommitteeHandler {
	return &CommitteeHandler{committee: committee}
}

// Invite invites a professor to the committee of the caller's thesis
// @Summary Invite a committee member
// @Tags Committee
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path int true "Thesis ID"
// @Param request body models.InviteRequest true "Professor"
// @Success 201 {object} models.CommitteeInvitation
// @Failure 400 {object} ErrorResponse
// @Failure 403 {object} ErrorResponse
// @Failure 409 {object} ErrorResponse
// @Router /theses/{id}/invitations [post]
func (h *CommitteeHandler) Invite(w http.ResponseWriter, r *http.Request) {
	handleAction(w, r, http.StatusCreated, func(r *http.Request, actor models.Actor, id uint, req models.InviteRequest) (*models.CommitteeInvitation, error) {
		return h.committee.Invite(r.Context(), actor, id, req)
	})
}

// Respond accepts or declines an invitation
// @Summary Respond to an invitation
// @Description The second acceptance completes the committee and activates the thesis.
// @Tags Committee
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path int true "Thesis ID"
// @Param invitationId path int true "Invitation ID"
// @Param request body models.RespondInvitationRequest true "Decision"
// @Success 200 {object} models.InvitationResult
// @Failure 400 {object} ErrorResponse
// @Failure 404 {object} ErrorResponse
// @Failure 409 {object} ErrorResponse "Committee already complete"
// @Router /theses/{id}/invitations/{invitationId}/respond [post]
func (h *CommitteeHandler) Respond(w http.ResponseWriter, r *http.Request) {
	actor, ok := requireActor(w, r)
	if !ok {
		return
	}
	thesisID, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	invitationID, ok := pathID(w, r, "invitationId")
	if !ok {
		return
	}
	var req models.RespondInvitationRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	result, err := h.committee.Respond(r.Context(), actor, thesisID, invitationID, req)
	if err != nil {
		respondWithServiceError(w, r, err)
		return
	}
	if result.CommitteeComplete {
		slog.Info("Committee completed", "thesis_id", thesisID, "professor_id", actor.ID)
	}
	respondWithJSON(w, http.StatusOK, result)
}

// ListInvitations lists the invitations of a thesis
// @Summary List thesis invitations
// @Tags Committee
// @Produce json
// @Security BearerAuth
// @Param id path int true "Thesis ID"
// @Success 200 {array} models.CommitteeInvitation
// @Failure 403 {object} ErrorResponse
// @Failure 404 {object} ErrorResponse
// @Router /theses/{id}/invitations [get]
func (h *CommitteeHandler) ListInvitations(w http.ResponseWriter, r *http.Request) {
	actor, ok := requireActor(w, r)
	if !ok {
		return
	}
	thesisID, ok := pathID(w, r, "id")
	if !ok {
		return
	}

	invitations, err := h.committee.ListInvitations(r.Context(), actor, thesisID)
	if err != nil {
		respondWithServiceError(w, r, err)
		return
	}
	respondWithJSON(w, http.StatusOK, invitations)
}

// ListMyInvitations lists the caller's pending invitations
// @Summary My pending invitations
// @Tags Committee
// @Produce json
// @Security BearerAuth
// @Success 200 {array} models.PendingInvitation
// @Router /invitations/my [get]
func (h *CommitteeHandler) ListMyInvitations(w http.ResponseWriter, r *http.Request) {
	actor, ok := requireActor(w, r)
	if !ok {
		return
	}

	invitations, err := h.committee.ListMyInvitations(r.Context(), actor)
	if err != nil {
		respondWithServiceError(w, r, err)
		return
	}
	respondWithJSON(w, http.StatusOK, invitations)
}
