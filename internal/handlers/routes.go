package handlers

import (
	"net/http"

	"thesis-portal/internal/middleware"
	"thesis-portal/internal/models"
)

// Handlers groups every API handler for route registration
type Handlers struct {
	Auth      *AuthHandler
	Theses    *ThesisHandler
	Committee *CommitteeHandler
	Grading   *GradingHandler
	Protocol  *ProtocolHandler
	Health    *HealthHandler
}

// Register mounts the API on mux. Role checks here only gate the obvious
// cases; the services enforce ownership and committee membership.
func (h *Handlers) Register(mux *http.ServeMux, authMw *middleware.AuthMiddleware) {
	protected := func(handler http.HandlerFunc, roles ...models.Role) http.Handler {
		if len(roles) == 0 {
			return authMw.Authenticate(handler)
		}
		return authMw.Authenticate(middleware.RequireRole(roles...)(handler))
	}

	// Public routes
	mux.HandleFunc("POST /api/v1/auth/login", h.Auth.Login)
	mux.HandleFunc("GET /health", h.Health.Health)

	// Any authenticated user
	mux.Handle("POST /api/v1/auth/logout", protected(h.Auth.Logout))
	mux.Handle("GET /api/v1/auth/me", protected(h.Auth.Me))
	mux.Handle("GET /api/v1/theses", protected(h.Theses.ListTheses))
	mux.Handle("GET /api/v1/theses/{id}", protected(h.Theses.GetThesis))
	mux.Handle("GET /api/v1/theses/{id}/timeline", protected(h.Theses.GetTimeline))
	mux.Handle("GET /api/v1/theses/{id}/invitations", protected(h.Committee.ListInvitations))

	// Professor routes
	mux.Handle("POST /api/v1/topics", protected(h.Theses.CreateTopic, models.RoleProfessor))
	mux.Handle("DELETE /api/v1/topics/{id}", protected(h.Theses.DeleteTopic, models.RoleProfessor))
	mux.Handle("POST /api/v1/theses/{id}/assign", protected(h.Theses.AssignTopic, models.RoleProfessor))
	mux.Handle("POST /api/v1/theses/{id}/rollback", protected(h.Theses.RollbackAssignment, models.RoleProfessor))
	mux.Handle("POST /api/v1/theses/{id}/invitations/{invitationId}/respond", protected(h.Committee.Respond, models.RoleProfessor))
	mux.Handle("GET /api/v1/invitations/my", protected(h.Committee.ListMyInvitations, models.RoleProfessor))
	mux.Handle("POST /api/v1/theses/{id}/grades", protected(h.Grading.SubmitGrade, models.RoleProfessor))
	mux.Handle("GET /api/v1/students/available", protected(h.Theses.ListAvailableStudents, models.RoleProfessor))

	// Student routes
	mux.Handle("POST /api/v1/theses/{id}/invitations", protected(h.Committee.Invite, models.RoleStudent))
	mux.Handle("PUT /api/v1/theses/{id}/draft", protected(h.Theses.UploadDraft, models.RoleStudent))
	mux.Handle("PUT /api/v1/theses/{id}/announcement", protected(h.Theses.SubmitAnnouncement, models.RoleStudent))
	mux.Handle("PUT /api/v1/theses/{id}/nimertis", protected(h.Theses.SetNimertisLink, models.RoleStudent))

	// Secretary routes
	mux.Handle("PUT /api/v1/theses/{id}/approval-protocol", protected(h.Theses.RecordApprovalProtocol, models.RoleSecretary))
	mux.Handle("POST /api/v1/theses/{id}/finalize", protected(h.Theses.FinalizeThesis, models.RoleSecretary))
	mux.Handle("POST /api/v1/theses/{id}/cancel", protected(h.Theses.CancelThesis, models.RoleSecretary))

	// Shared between roles
	mux.Handle("POST /api/v1/theses/{id}/examination", protected(h.Theses.TransitionToExamination, models.RoleProfessor, models.RoleSecretary))
	mux.Handle("GET /api/v1/theses/{id}/grades", protected(h.Grading.GetGrades, models.RoleProfessor, models.RoleSecretary))
	mux.Handle("GET /api/v1/theses/{id}/protocol", protected(h.Protocol.GetProtocol, models.RoleProfessor, models.RoleSecretary))
}
