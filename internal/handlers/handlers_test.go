package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"thesis-portal/internal/lifecycle"
	"thesis-portal/internal/middleware"
	"thesis-portal/internal/models"
	"thesis-portal/internal/service"
)

func TestStatusFor(t *testing.T) {
	tests := []struct {
		err  error
		want int
	}{
		{&service.Error{Kind: service.KindValidation}, http.StatusBadRequest},
		{&service.Error{Kind: service.KindNotFound}, http.StatusNotFound},
		{&service.Error{Kind: service.KindAuthorization, Code: service.CodeForbidden}, http.StatusForbidden},
		{&service.Error{Kind: service.KindAuthorization, Code: service.CodeInvalidCredentials}, http.StatusUnauthorized},
		{&service.Error{Kind: service.KindConflict, Code: service.CodeCommitteeFull}, http.StatusConflict},
		{errors.New("boom"), http.StatusInternalServerError},
	}

	for _, tt := range tests {
		if got := statusFor(tt.err); got != tt.want {
			t.Errorf("statusFor(%v) = %d, want %d", tt.err, got, tt.want)
		}
	}
}

func TestRespondWithServiceError(t *testing.T) {
	t.Run("validation fields are exposed", func(t *testing.T) {
		rr := httptest.NewRecorder()
		respondWithServiceError(rr, httptest.NewRequest(http.MethodPost, "/", nil), &service.Error{
			Kind:    service.KindValidation,
			Code:    service.CodeValidationFailed,
			Message: "grade is required",
			Fields:  map[string]string{"grade": "grade is required"},
		})

		var body ErrorResponse
		if err := json.NewDecoder(rr.Body).Decode(&body); err != nil {
			t.Fatal(err)
		}
		if rr.Code != http.StatusBadRequest || body.Fields["grade"] == "" || body.Code != service.CodeValidationFailed {
			t.Errorf("Unexpected response %d %+v", rr.Code, body)
		}
	})

	t.Run("persistence details are hidden", func(t *testing.T) {
		rr := httptest.NewRecorder()
		err := fmt.Errorf("submit grade: %w", &service.Error{
			Kind:    service.KindPersistence,
			Code:    service.CodeInternal,
			Message: "internal error",
			Err:     errors.New(`pq: relation "grades" does not exist`),
		})
		respondWithServiceError(rr, httptest.NewRequest(http.MethodPost, "/", nil), err)

		if rr.Code != http.StatusInternalServerError {
			t.Errorf("Status = %d", rr.Code)
		}
		if strings.Contains(rr.Body.String(), "pq:") {
			t.Errorf("Database error leaked: %s", rr.Body.String())
		}
	})
}

func TestPathID(t *testing.T) {
	mux := http.NewServeMux()
	var got uint
	mux.HandleFunc("GET /theses/{id}", func(w http.ResponseWriter, r *http.Request) {
		id, ok := pathID(w, r, "id")
		if ok {
			got = id
			w.WriteHeader(http.StatusOK)
		}
	})

	for path, want := range map[string]int{
		"/theses/12":          http.StatusOK,
		"/theses/0":           http.StatusBadRequest,
		"/theses/-1":          http.StatusBadRequest,
		"/theses/abc":         http.StatusBadRequest,
		"/theses/99999999999": http.StatusBadRequest,
	} {
		rr := httptest.NewRecorder()
		mux.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, path, nil))
		if rr.Code != want {
			t.Errorf("%s: status %d, want %d", path, rr.Code, want)
		}
	}
	if got != 12 {
		t.Errorf("Parsed id = %d, want 12", got)
	}
}

func TestDecodeJSON(t *testing.T) {
	for _, body := range []string{"", "{", `{"grade": "high"}`} {
		rr := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(body))
		var dst models.SubmitGradeRequest
		if decodeJSON(rr, req, &dst) {
			t.Errorf("decodeJSON(%q) should fail", body)
		}
		if rr.Code != http.StatusBadRequest {
			t.Errorf("decodeJSON(%q) status %d", body, rr.Code)
		}
	}
}

func TestNormalizeSlices(t *testing.T) {
	activated := time.Date(2026, 5, 4, 10, 0, 0, 0, time.UTC)
	details := &models.ThesisDetails{
		Thesis: models.Thesis{ID: 3, Title: "Raft", State: lifecycle.Active, ActivationTimestamp: &activated},
	}

	rr := httptest.NewRecorder()
	if err := JSONResponse(rr, details); err != nil {
		t.Fatal(err)
	}
	out := rr.Body.String()
	if !strings.Contains(out, `"additional_links":[]`) {
		t.Errorf("Nil slice should encode as []: %s", out)
	}
	if !strings.Contains(out, `"activation_timestamp":"2026-05-04T10:00:00Z"`) {
		t.Errorf("Time pointer lost: %s", out)
	}

	rr = httptest.NewRecorder()
	var summaries []models.ThesisSummary
	if err := JSONResponse(rr, summaries); err != nil {
		t.Fatal(err)
	}
	if strings.TrimSpace(rr.Body.String()) != "[]" {
		t.Errorf("Nil list should encode as [], got %s", rr.Body.String())
	}
}

func TestRenderProtocol(t *testing.T) {
	grade := 8.0
	number := "42/2026"
	page, err := renderProtocol(&models.ProtocolRecord{
		ThesisID:       1,
		Title:          `Consensus <img src=x onerror=alert(1)>`,
		Department:     "Department of Computer Engineering and Informatics",
		StudentName:    "Student No1",
		ProtocolNumber: &number,
		FinalGrade:     &grade,
		Committee: []models.ProtocolMember{
			{ProfessorID: 1, Name: "Irene Instructor", Role: models.ProtocolRoleInstructor, Grade: &grade},
			{ProfessorID: 2, Name: "Professor No1", Role: models.ProtocolRoleMember},
		},
		Announcement: &models.Announcement{
			ExamDate:       time.Date(2026, 6, 15, 0, 0, 0, 0, time.UTC),
			ExamTime:       "10:30",
			ExamType:       models.ExamInPerson,
			LocationOrLink: "Room B2",
		},
	})
	if err != nil {
		t.Fatal(err)
	}

	html := string(page)
	for _, want := range []string{"Final grade: 8.00", "42/2026", "15/06/2026 10:30", "Irene Instructor", "Room B2"} {
		if !strings.Contains(html, want) {
			t.Errorf("Protocol missing %q", want)
		}
	}
	if strings.Contains(html, "<img") {
		t.Error("Title must be escaped")
	}
	if !strings.Contains(html, "<td>-</td>") {
		t.Error("Missing grades should render as -")
	}
}

func TestHealth(t *testing.T) {
	ok := HealthCheckerFunc(func(context.Context) error { return nil })
	down := HealthCheckerFunc(func(context.Context) error { return errors.New("down") })

	rr := httptest.NewRecorder()
	NewHealthHandler("1.0.0", map[string]HealthChecker{"database": ok}).Health(rr, httptest.NewRequest(http.MethodGet, "/health", nil))
	if rr.Code != http.StatusOK {
		t.Errorf("Healthy status = %d", rr.Code)
	}

	rr = httptest.NewRecorder()
	NewHealthHandler("1.0.0", map[string]HealthChecker{"database": ok, "vault": down}).Health(rr, httptest.NewRequest(http.MethodGet, "/health", nil))
	var body HealthResponse
	if err := json.NewDecoder(rr.Body).Decode(&body); err != nil {
		t.Fatal(err)
	}
	if rr.Code != http.StatusServiceUnavailable || body.Components["vault"] != "error" || body.Components["database"] != "ok" {
		t.Errorf("Unexpected health %d %+v", rr.Code, body)
	}
}

type staticAuthenticator map[string]models.Actor

func (s staticAuthenticator) Authenticate(_ context.Context, token string) (models.Actor, error) {
	actor, ok := s[token]
	if !ok {
		return models.Actor{}, &service.Error{Kind: service.KindAuthorization, Code: service.CodeInvalidCredentials}
	}
	return actor, nil
}

func TestRouteGuards(t *testing.T) {
	// Services are nil: every request below must be rejected before reaching them
	h := &Handlers{
		Auth:      NewAuthHandler(nil),
		Theses:    NewThesisHandler(nil),
		Committee: NewCommitteeHandler(nil),
		Grading:   NewGradingHandler(nil),
		Protocol:  NewProtocolHandler(nil),
		Health:    NewHealthHandler("test", nil),
	}
	mux := http.NewServeMux()
	h.Register(mux, middleware.NewAuthMiddleware(staticAuthenticator{
		"student":   {ID: 1, Role: models.RoleStudent},
		"professor": {ID: 2, Role: models.RoleProfessor},
		"secretary": {ID: 3, Role: models.RoleSecretary},
	}))

	tests := []struct {
		method, path, token string
		want                int
	}{
		{http.MethodGet, "/api/v1/theses", "", http.StatusUnauthorized},
		{http.MethodGet, "/api/v1/theses", "forged", http.StatusUnauthorized},
		{http.MethodPost, "/api/v1/topics", "student", http.StatusForbidden},
		{http.MethodPost, "/api/v1/theses/1/grades", "secretary", http.StatusForbidden},
		{http.MethodPost, "/api/v1/theses/1/invitations", "professor", http.StatusForbidden},
		{http.MethodPost, "/api/v1/theses/1/finalize", "professor", http.StatusForbidden},
		{http.MethodGet, "/api/v1/theses/1/protocol", "student", http.StatusForbidden},
		{http.MethodPost, "/api/v1/theses/abc/assign", "professor", http.StatusBadRequest},
		{http.MethodGet, "/health", "", http.StatusOK},
	}

	for _, tt := range tests {
		t.Run(tt.method+" "+tt.path+" as "+tt.token, func(t *testing.T) {
			req := httptest.NewRequest(tt.method, tt.path, nil)
			if tt.token != "" {
				req.Header.Set("Authorization", "Bearer "+tt.token)
			}
			rr := httptest.NewRecorder()
			mux.ServeHTTP(rr, req)
			if rr.Code != tt.want {
				t.Errorf("Status = %d, want %d: %s", rr.Code, tt.want, rr.Body.String())
			}
		})
	}
}
