package handlers

import (
	"bytes"
	"fmt"
	"html/template"
	"log/slog"
	"net/http"
	"time"

	"thesis-portal/internal/models"
	"thesis-portal/internal/service"
)

// ProtocolHandler serves the examination protocol
type ProtocolHandler struct {
	protocols *service.ProtocolService
}

// NewProtocolHandler creates a new protocol handler
func NewProtocolHandler(protocols *service.ProtocolService) *ProtocolHandler {
	return &ProtocolHandler{protocols: protocols}
}

var protocolFuncs = template.FuncMap{
	"date": func(t *time.Time) string {
		if t == nil {
			return "-"
		}
		return t.Format("02/01/2006")
	},
	"grade": func(g *float64) string {
		if g == nil {
			return "-"
		}
		return fmt.Sprintf("%.2f", *g)
	},
	"text": func(s *string) string {
		if s == nil || *s == "" {
			return "-"
		}
		return *s
	},
	"inc": func(i int) int { return i + 1 },
}

var protocolTemplate = template.Must(template.New("protocol").Funcs(protocolFuncs).Parse(`<!DOCTYPE html>
<html>
<head>
    <meta charset="UTF-8">
    <title>Examination protocol: {{.Title}}</title>
    <style>
        body { font-family: "Times New Roman", serif; max-width: 800px; margin: 40px auto; color: #000; }
        h1, h2 { text-align: center; }
        table { width: 100%; border-collapse: collapse; margin: 20px 0; }
        th, td { border: 1px solid #000; padding: 6px 10px; text-align: left; }
        .meta td:first-child { width: 35%; font-weight: bold; }
        .final { font-size: 1.2em; font-weight: bold; text-align: right; }
        @media print { body { margin: 0; } }
    </style>
</head>
<body>
    <h1>{{.Department}}</h1>
    <h2>Thesis Examination Protocol</h2>
    <table class="meta">
        <tr><td>Thesis</td><td>{{.Title}}</td></tr>
        <tr><td>Student</td><td>{{.StudentName}}</td></tr>
        <tr><td>Registration number</td><td>{{text .RegistrationNumber}}</td></tr>
        <tr><td>Assembly approval protocol</td><td>{{text .ProtocolNumber}}</td></tr>
        <tr><td>Assignment activated</td><td>{{date .ActivationTimestamp}}</td></tr>
        {{with .Announcement}}
        <tr><td>Examination</td><td>{{.ExamDate.Format "02/01/2006"}} {{.ExamTime}} ({{.ExamType}})</td></tr>
        <tr><td>Location</td><td>{{.LocationOrLink}}</td></tr>
        {{end}}
    </table>
    <table>
        <thead><tr><th>#</th><th>Committee member</th><th>Role</th><th>Grade</th></tr></thead>
        <tbody>
        {{range $i, $m := .Committee}}
            <tr><td>{{inc $i}}</td><td>{{$m.Name}}</td><td>{{$m.Role}}</td><td>{{grade $m.Grade}}</td></tr>
        {{end}}
        </tbody>
    </table>
    <p class="final">Final grade: {{grade .FinalGrade}}</p>
</body>
</html>
`))

// renderProtocol writes record as a printable HTML page
func renderProtocol(record *models.ProtocolRecord) ([]byte, error) {
	var buf bytes.Buffer
	if err := protocolTemplate.Execute(&buf, record); err != nil {
		return nil, fmt.Errorf("failed to render protocol: %w", err)
	}
	return buf.Bytes(), nil
}

// GetProtocol returns the examination protocol as JSON or printable HTML
// @Summary Examination protocol
// @Tags Grading
// @Produce json,html
// @Security BearerAuth
// @Param id path int true "Thesis ID"
// @Param format query string false "json (default) or html"
// @Success 200 {object} models.ProtocolRecord
// @Failure 403 {object} ErrorResponse
// @Failure 404 {object} ErrorResponse
// @Router /theses/{id}/protocol [get]
func (h *ProtocolHandler) GetProtocol(w http.ResponseWriter, r *http.Request) {
	actor, ok := requireActor(w, r)
	if !ok {
		return
	}
	thesisID, ok := pathID(w, r, "id")
	if !ok {
		return
	}

	record, err := h.protocols.GetProtocol(r.Context(), actor, thesisID)
	if err != nil {
		respondWithServiceError(w, r, err)
		return
	}

	switch r.URL.Query().Get("format") {
	case "", "json":
		respondWithJSON(w, http.StatusOK, record)
	case "html":
		page, err := renderProtocol(record)
		if err != nil {
			slog.Error("Failed to render protocol", "thesis_id", thesisID, "error", err)
			respondWithError(w, http.StatusInternalServerError, service.CodeInternal, "internal error")
			return
		}
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		w.WriteHeader(http.StatusOK)
		if _, err := w.Write(page); err != nil {
			slog.Debug("Failed to write protocol", "error", err)
		}
	default:
		respondWithError(w, http.StatusBadRequest, service.CodeValidationFailed, "format must be json or html")
	}
}
