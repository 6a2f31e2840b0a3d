package validator

import (
	"errors"
	"math"
	"strings"
	"testing"
)

type gradeInput struct {
	Grade   *float64 `json:"grade" validate:"required,gte=0,lte=10"`
	Comment string   `json:"comment" validate:"max=10"`
}

type topicInput struct {
	Title string   `json:"title" validate:"required,notblank"`
	Links []string `json:"links" validate:"dive,url"`
}

func ptr(f float64) *float64 { return &f }

func TestValidateStructGradeBounds(t *testing.T) {
	tests := []struct {
		name  string
		grade *float64
		valid bool
	}{
		{"lower bound", ptr(0), true},
		{"upper bound", ptr(10), true},
		{"inside range", ptr(7.25), true},
		{"below range", ptr(-0.01), false},
		{"above range", ptr(10.01), false},
		{"missing", nil, false},
		{"not a number", ptr(math.NaN()), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateStruct(&gradeInput{Grade: tt.grade})
			if (err == nil) != tt.valid {
				t.Errorf("ValidateStruct() error = %v, valid = %v", err, tt.valid)
			}
		})
	}
}

func TestValidationErrorUsesJSONNames(t *testing.T) {
	err := ValidateStruct(&gradeInput{Grade: ptr(11), Comment: "far too long comment"})

	var verr *ValidationError
	if !errors.As(err, &verr) {
		t.Fatalf("Expected *ValidationError, got %T: %v", err, err)
	}

	if _, ok := verr.Fields["grade"]; !ok {
		t.Errorf("Expected grade field error, got %v", verr.Fields)
	}
	if _, ok := verr.Fields["comment"]; !ok {
		t.Errorf("Expected comment field error, got %v", verr.Fields)
	}
	if !strings.HasPrefix(verr.Fields["grade"], "grade ") {
		t.Errorf("Message should name the JSON field: %q", verr.Fields["grade"])
	}
}

func TestNotBlank(t *testing.T) {
	err := ValidateStruct(&topicInput{Title: "   "})

	var verr *ValidationError
	if !errors.As(err, &verr) {
		t.Fatalf("Expected *ValidationError, got %v", err)
	}
	if verr.Fields["title"] != "title cannot be blank" {
		t.Errorf("Unexpected message: %q", verr.Fields["title"])
	}

	if err := ValidateStruct(&topicInput{Title: "Distributed ledgers"}); err != nil {
		t.Errorf("Unexpected error: %v", err)
	}
}

func TestDiveURLs(t *testing.T) {
	err := ValidateStruct(&topicInput{
		Title: "Thesis",
		Links: []string{"https://example.org/code", "not a url"},
	})

	var verr *ValidationError
	if !errors.As(err, &verr) {
		t.Fatalf("Expected *ValidationError, got %v", err)
	}
	if _, ok := verr.Fields["links[1]"]; !ok {
		t.Errorf("Expected links[1] error, got %v", verr.Fields)
	}
}

func TestValidateEmail(t *testing.T) {
	if err := ValidateEmail("secretary@ceid.example.edu"); err != nil {
		t.Errorf("Unexpected error: %v", err)
	}

	err := ValidateEmail("invalid-email")
	if err == nil {
		t.Fatal("Expected error for invalid email")
	}
	if !strings.HasPrefix(err.Error(), "email ") {
		t.Errorf("Unexpected message: %q", err.Error())
	}
}

func TestSanitizeEmail(t *testing.T) {
	if got := SanitizeEmail("  Prof.Smith@Example.COM\x00 "); got != "prof.smith@example.com" {
		t.Errorf("SanitizeEmail() = %q", got)
	}
}
