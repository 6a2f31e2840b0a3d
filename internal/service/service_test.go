package service

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"thesis-portal/internal/lifecycle"
	"thesis-portal/internal/models"
)

func TestFinalGrade(t *testing.T) {
	tests := []struct {
		name   string
		grades []float64
		want   float64
	}{
		{"whole mean", []float64{7, 8, 9}, 8},
		{"repeating decimal", []float64{8.5, 9, 9}, 8.83},
		{"rounds down", []float64{7, 8, 10}, 8.33},
		{"half rounds away from zero", []float64{8, 8.125, 8.25}, 8.13},
		{"bounds", []float64{0, 10, 10}, 6.67},
		{"all zero", []float64{0, 0, 0}, 0},
		{"no grades", nil, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := FinalGrade(tt.grades); got != tt.want {
				t.Errorf("FinalGrade(%v) = %v, want %v", tt.grades, got, tt.want)
			}
		})
	}
}

func TestCollapseTimeline(t *testing.T) {
	base := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
	event := func(minutes int, status lifecycle.State, by string) models.ThesisEvent {
		return models.ThesisEvent{Status: status, CreatedBy: by, EventDate: base.Add(time.Duration(minutes) * time.Minute)}
	}

	timeline := collapseTimeline([]models.ThesisEvent{
		event(0, lifecycle.Unassigned, "Irene Instructor"),
		event(1, lifecycle.UnderAssignment, "Irene Instructor"),
		event(2, lifecycle.UnderAssignment, "Irene Instructor"),
		event(3, lifecycle.Unassigned, "Irene Instructor"),
		event(4, lifecycle.UnderAssignment, "Irene Instructor"),
		event(5, lifecycle.Active, "Professor No2"),
	})

	want := []lifecycle.State{
		lifecycle.Unassigned,
		lifecycle.UnderAssignment,
		lifecycle.Unassigned,
		lifecycle.UnderAssignment,
		lifecycle.Active,
	}
	if got := statuses(timeline); fmt.Sprint(got) != fmt.Sprint(want) {
		t.Fatalf("collapseTimeline() = %v, want %v", got, want)
	}
	if !timeline[1].EventDate.Equal(base.Add(time.Minute)) {
		t.Errorf("A collapsed run keeps its first event, got %v", timeline[1].EventDate)
	}

	if got := collapseTimeline(nil); got == nil || len(got) != 0 {
		t.Errorf("Empty history should give an empty timeline, got %#v", got)
	}
}

func TestErrorKinds(t *testing.T) {
	err := fmt.Errorf("respond: %w", conflict(CodeCommitteeFull, "the committee is already complete"))
	if KindOf(err) != KindConflict || CodeOf(err) != CodeCommitteeFull {
		t.Errorf("Wrapped error lost its kind: %s/%s", KindOf(err), CodeOf(err))
	}

	plain := errors.New("connection reset")
	if KindOf(plain) != KindPersistence || CodeOf(plain) != CodeInternal {
		t.Errorf("Untyped errors are persistence failures: %s/%s", KindOf(plain), CodeOf(plain))
	}

	wrapped := wrap("list grades", plain)
	var svcErr *Error
	if !errors.As(wrapped, &svcErr) {
		t.Fatalf("wrap() should return *Error, got %T", wrapped)
	}
	if svcErr.Message != "internal error" || !errors.Is(wrapped, plain) {
		t.Errorf("Persistence errors hide details but keep the cause: %+v", svcErr)
	}

	typed := notFound(CodeThesisNotFound, "thesis not found")
	if wrap("get thesis", typed) != error(typed) {
		t.Error("wrap() must pass typed errors through")
	}
	if wrap("noop", nil) != nil {
		t.Error("wrap(nil) must be nil")
	}
}

func TestCheckTransitionMapping(t *testing.T) {
	if err := checkTransition(lifecycle.Active, lifecycle.UnderExamination, lifecycle.ByInstructor); err != nil {
		t.Errorf("Unexpected error: %v", err)
	}

	err := checkTransition(lifecycle.Unassigned, lifecycle.Completed, lifecycle.BySecretary)
	if KindOf(err) != KindConflict || CodeOf(err) != CodeInvalidTransition {
		t.Errorf("Missing edge should be a conflict, got %v", err)
	}

	err = checkTransition(lifecycle.UnderExamination, lifecycle.Completed, lifecycle.ByInstructor)
	if KindOf(err) != KindAuthorization {
		t.Errorf("Wrong trigger should be an authorization error, got %v", err)
	}
}

func TestTriggerFor(t *testing.T) {
	thesis := &models.Thesis{InstructorID: 5}

	tests := []struct {
		actor   models.Actor
		trigger lifecycle.Trigger
		ok      bool
	}{
		{models.Actor{ID: 5, Role: models.RoleProfessor}, lifecycle.ByInstructor, true},
		{models.Actor{ID: 6, Role: models.RoleProfessor}, "", false},
		{models.Actor{ID: 9, Role: models.RoleSecretary}, lifecycle.BySecretary, true},
		{models.Actor{ID: 5, Role: models.RoleStudent}, "", false},
	}
	for _, tt := range tests {
		trigger, ok := triggerFor(tt.actor, thesis)
		if trigger != tt.trigger || ok != tt.ok {
			t.Errorf("triggerFor(%+v) = %q, %v", tt.actor, trigger, ok)
		}
	}
}

func TestValidationHappensBeforePersistence(t *testing.T) {
	ctx := context.Background()
	professor := models.Actor{ID: 1, Role: models.RoleProfessor}
	student := models.Actor{ID: 2, Role: models.RoleStudent}

	// A nil store would panic if any of these reached the database
	grading := NewGradingService(nil, nil)
	for _, grade := range []*float64{nil, ptr(-0.01), ptr(10.01)} {
		_, err := grading.SubmitGrade(ctx, professor, 1, models.SubmitGradeRequest{Grade: grade})
		if KindOf(err) != KindValidation {
			t.Errorf("SubmitGrade(%v) should fail validation, got %v", grade, err)
		}
	}

	committee := NewCommitteeService(nil, nil, nil)
	if _, err := committee.Invite(ctx, student, 1, models.InviteRequest{}); KindOf(err) != KindValidation {
		t.Errorf("Invite without professor should fail validation, got %v", err)
	}
	_, err := committee.Respond(ctx, professor, 1, 1, models.RespondInvitationRequest{Decision: "later"})
	var svcErr *Error
	if !errors.As(err, &svcErr) || svcErr.Kind != KindValidation || svcErr.Fields["decision"] == "" {
		t.Errorf("Respond with unknown decision should report the field, got %v", err)
	}

	theses := NewThesisService(nil, nil, nil)
	if _, err := theses.CancelThesis(ctx, models.Actor{ID: 3, Role: models.RoleSecretary}, 1, models.CancelThesisRequest{
		Reason: "withdrawn", AssemblyNumber: "12", AssemblyYear: "20x4",
	}); KindOf(err) != KindValidation {
		t.Errorf("Non-numeric assembly year should fail validation, got %v", err)
	}
	if _, err := theses.CreateTopic(ctx, student, models.CreateTopicRequest{Title: "x"}); KindOf(err) != KindAuthorization {
		t.Errorf("Students cannot create topics, got %v", err)
	}
}

func ptr(f float64) *float64 { return &f }
