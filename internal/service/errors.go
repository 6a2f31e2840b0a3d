package service

import (
	"errors"
	"fmt"
	"log/slog"

	"thesis-portal/pkg/validator"
)

// Kind classifies a service failure so callers can branch without parsing messages
type Kind int

const (
	KindPersistence Kind = iota
	KindValidation
	KindNotFound
	KindAuthorization
	KindConflict
)

func (k Kind) String() string {
	switch k {
	case KindValidation:
		return "validation"
	case KindNotFound:
		return "not_found"
	case KindAuthorization:
		return "authorization"
	case KindConflict:
		return "conflict"
	default:
		return "persistence"
	}
}

// Stable machine-readable error codes
const (
	CodeValidationFailed          = "VALIDATION_FAILED"
	CodeThesisNotFound            = "THESIS_NOT_FOUND"
	CodeInvitationNotFound        = "INVITATION_NOT_FOUND"
	CodeUserNotFound              = "USER_NOT_FOUND"
	CodeForbidden                 = "FORBIDDEN"
	CodeNotCommitteeMember        = "NOT_COMMITTEE_MEMBER"
	CodeDuplicateInvitation       = "DUPLICATE_INVITATION"
	CodeCommitteeFull             = "COMMITTEE_FULL"
	CodeDraftFileMissing          = "DRAFT_FILE_MISSING"
	CodeExaminationDetailsMissing = "EXAMINATION_DETAILS_MISSING"
	CodeNotUnderExamination       = "THESIS_NOT_UNDER_EXAMINATION"
	CodeInvalidTransition         = "INVALID_TRANSITION"
	CodeInvalidState              = "INVALID_STATE"
	CodeStudentAlreadyAssigned    = "STUDENT_ALREADY_ASSIGNED"
	CodeInstructorNotInvitable    = "INSTRUCTOR_NOT_INVITABLE"
	CodeInvalidCredentials        = "INVALID_CREDENTIALS"
	CodeUserExists                = "USER_EXISTS"
	CodeInternal                  = "INTERNAL_ERROR"
)

// Error is the typed error returned by every workflow operation
type Error struct {
	Kind    Kind
	Code    string
	Message string
	Fields  map[string]string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *Error) Unwrap() error {
	return e.Err
}

// KindOf returns the kind of err. Errors that are not *Error are persistence failures.
func KindOf(err error) Kind {
	var svcErr *Error
	if errors.As(err, &svcErr) {
		return svcErr.Kind
	}
	return KindPersistence
}

// CodeOf returns the machine code of err, or CodeInternal
func CodeOf(err error) string {
	var svcErr *Error
	if errors.As(err, &svcErr) {
		return svcErr.Code
	}
	return CodeInternal
}

func validationError(err error) *Error {
	e := &Error{Kind: KindValidation, Code: CodeValidationFailed, Message: err.Error()}
	var verr *validator.ValidationError
	if errors.As(err, &verr) {
		e.Fields = verr.Fields
	}
	return e
}

func notFound(code, message string) *Error {
	return &Error{Kind: KindNotFound, Code: code, Message: message}
}

func forbidden(code, message string) *Error {
	return &Error{Kind: KindAuthorization, Code: code, Message: message}
}

func conflict(code, message string) *Error {
	return &Error{Kind: KindConflict, Code: code, Message: message}
}

// persistence logs the underlying failure and returns a generic error
func persistence(op string, err error) *Error {
	slog.Error("Persistence failure", "operation", op, "error", err)
	return &Error{Kind: KindPersistence, Code: CodeInternal, Message: "internal error", Err: err}
}

// wrap passes typed errors through and turns anything else into a persistence error
func wrap(op string, err error) error {
	if err == nil {
		return nil
	}
	var svcErr *Error
	if errors.As(err, &svcErr) {
		return err
	}
	return persistence(op, err)
}
