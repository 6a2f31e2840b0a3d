package models

import (
	"slices"
	"time"

	"thesis-portal/internal/lifecycle"
)

// Role is the single role a portal user holds
type Role string

const (
	RoleStudent   Role = "student"
	RoleProfessor Role = "professor"
	RoleSecretary Role = "secretary"
)

// Valid reports whether r is a known role
func (r Role) Valid() bool {
	return r == RoleStudent || r == RoleProfessor || r == RoleSecretary
}

// User represents a user in the system
type User struct {
	ID                 uint      `json:"id" db:"id"`
	Email              string    `json:"email" db:"email"`
	PasswordHash       string    `json:"-" db:"password_hash"`
	FirstName          string    `json:"first_name" db:"first_name"`
	LastName           string    `json:"last_name" db:"last_name"`
	Role               Role      `json:"role" db:"role"`
	RegistrationNumber *string   `json:"registration_number,omitempty" db:"registration_number"`
	CreatedAt          time.Time `json:"created_at" db:"created_at"`
	UpdatedAt          time.Time `json:"updated_at" db:"updated_at"`
}

// FullName returns "First Last"
func (u *User) FullName() string {
	return u.FirstName + " " + u.LastName
}

// Session represents an issued access token that has not been revoked
type Session struct {
	ID        uint      `json:"id" db:"id"`
	UserID    uint      `json:"user_id" db:"user_id"`
	JTI       string    `json:"jti" db:"jti"`
	ExpiresAt time.Time `json:"expires_at" db:"expires_at"`
	CreatedAt time.Time `json:"created_at" db:"created_at"`
}

// Actor is the authenticated caller of a business operation
type Actor struct {
	ID   uint
	Role Role
}

// Thesis is the aggregate root of the workflow
type Thesis struct {
	ID                  uint            `json:"id"`
	Title               string          `json:"title"`
	Description         string          `json:"description"`
	State               lifecycle.State `json:"state"`
	StudentID           *uint           `json:"student_id,omitempty"`
	InstructorID        uint            `json:"instructor_id"`
	Member1ID           *uint           `json:"member1_id,omitempty"`
	Member2ID           *uint           `json:"member2_id,omitempty"`
	DraftFile           *string         `json:"draft_file,omitempty"`
	AdditionalLinks     []string        `json:"additional_links"`
	ProtocolNumber      *string         `json:"protocol_number,omitempty"`
	FinalGrade          *float64        `json:"final_grade,omitempty"`
	NimertisLink        *string         `json:"nimertis_link,omitempty"`
	ActivationTimestamp *time.Time      `json:"activation_timestamp,omitempty"`
	AssignedAt          *time.Time      `json:"assigned_at,omitempty"`
	CreatedAt           time.Time       `json:"created_at"`
	UpdatedAt           time.Time       `json:"updated_at"`
}

// CommitteeIDs returns the instructor followed by the accepted members.
// Members are omitted until the committee is complete.
func (t *Thesis) CommitteeIDs() []uint {
	ids := []uint{t.InstructorID}
	if t.Member1ID != nil {
		ids = append(ids, *t.Member1ID)
	}
	if t.Member2ID != nil {
		ids = append(ids, *t.Member2ID)
	}
	return ids
}

// IsCommitteeMember reports whether professorID grades this thesis
func (t *Thesis) IsCommitteeMember(professorID uint) bool {
	return slices.Contains(t.CommitteeIDs(), professorID)
}

// IsStudent reports whether userID is the assigned student
func (t *Thesis) IsStudent(userID uint) bool {
	return t.StudentID != nil && *t.StudentID == userID
}

// ThesisSummary is a listing row with participant names resolved
type ThesisSummary struct {
	ID             uint            `json:"id" db:"id"`
	Title          string          `json:"title" db:"title"`
	State          lifecycle.State `json:"state" db:"state"`
	InstructorID   uint            `json:"instructor_id" db:"instructor_id"`
	InstructorName string          `json:"instructor_name" db:"instructor_name"`
	StudentID      *uint           `json:"student_id,omitempty" db:"student_id"`
	StudentName    *string         `json:"student_name,omitempty" db:"student_name"`
	FinalGrade     *float64        `json:"final_grade,omitempty" db:"final_grade"`
	UpdatedAt      time.Time       `json:"updated_at" db:"updated_at"`
}

// ThesisDetails is the single-thesis view, covering canceled theses too
type ThesisDetails struct {
	Thesis
	StudentName    *string           `json:"student_name,omitempty"`
	InstructorName string            `json:"instructor_name"`
	Member1Name    *string           `json:"member1_name,omitempty"`
	Member2Name    *string           `json:"member2_name,omitempty"`
	Cancellation   *CancellationInfo `json:"cancellation,omitempty"`
	Announcement   *Announcement     `json:"announcement,omitempty"`
}

// CancellationInfo carries the general assembly decision that canceled a thesis
type CancellationInfo struct {
	PreviousState  lifecycle.State `json:"previous_state"`
	Reason         string          `json:"reason"`
	AssemblyNumber string          `json:"assembly_number"`
	AssemblyYear   string          `json:"assembly_year"`
	CanceledBy     uint            `json:"canceled_by"`
	CanceledAt     time.Time       `json:"canceled_at"`
}

// InvitationStatus is the status of a committee invitation
type InvitationStatus string

const (
	InvitationPending  InvitationStatus = "pending"
	InvitationAccepted InvitationStatus = "accepted"
	InvitationDeclined InvitationStatus = "declined"
)

// CommitteeRoleMember is the only role a committee invitation carries
const CommitteeRoleMember = "member"

// Decision is a professor's answer to an invitation
type Decision string

const (
	DecisionAccept  Decision = "accept"
	DecisionDecline Decision = "decline"
)

// CommitteeInvitation invites a professor to sit on a thesis committee
type CommitteeInvitation struct {
	ID             uint             `json:"id" db:"id"`
	ThesisID       uint             `json:"thesis_id" db:"thesis_id"`
	ProfessorID    uint             `json:"professor_id" db:"professor_id"`
	ProfessorName  string           `json:"professor_name" db:"professor_name"`
	Role           string           `json:"role" db:"role"`
	Status         InvitationStatus `json:"status" db:"status"`
	InvitationDate time.Time        `json:"invitation_date" db:"invitation_date"`
	AcceptanceDate *time.Time       `json:"acceptance_date,omitempty" db:"acceptance_date"`
	DenialDate     *time.Time       `json:"denial_date,omitempty" db:"denial_date"`
}

// PendingInvitation is a professor's open invitation with its thesis context
type PendingInvitation struct {
	CommitteeInvitation
	ThesisTitle    string `json:"thesis_title" db:"thesis_title"`
	InstructorName string `json:"instructor_name" db:"instructor_name"`
	StudentName    string `json:"student_name" db:"student_name"`
}

// InvitationResult is returned after a professor responds to an invitation
type InvitationResult struct {
	Invitation        *CommitteeInvitation `json:"invitation"`
	CommitteeComplete bool                 `json:"committee_complete"`
	AcceptedCount     int                  `json:"accepted_count"`
	ThesisState       lifecycle.State      `json:"thesis_state"`
}

// ThesisEvent is one append-only audit record of a state change
type ThesisEvent struct {
	ID        uint            `json:"id" db:"id"`
	ThesisID  uint            `json:"thesis_id" db:"thesis_id"`
	Status    lifecycle.State `json:"status" db:"status"`
	CreatedBy string          `json:"created_by" db:"created_by"`
	EventDate time.Time       `json:"event_date" db:"event_date"`
}

// GradeTypeFinal is the only grade type recorded by committee members
const GradeTypeFinal = "final"

// Grade is a committee member's final grade for a thesis
type Grade struct {
	ID               uint      `json:"id" db:"id"`
	ThesisID         uint      `json:"thesis_id" db:"thesis_id"`
	ProfessorID      uint      `json:"professor_id" db:"professor_id"`
	ProfessorName    string    `json:"professor_name" db:"professor_name"`
	Type             string    `json:"type" db:"type"`
	Grade            float64   `json:"grade" db:"grade"`
	Comment          string    `json:"comment" db:"comment"`
	CommentEncrypted bool      `json:"-" db:"comment_encrypted"`
	CreatedAt        time.Time `json:"created_at" db:"created_at"`
	UpdatedAt        time.Time `json:"updated_at" db:"updated_at"`
}

// GradeResult is returned after a grade submission
type GradeResult struct {
	Grade              *Grade   `json:"grade"`
	AllGradesSubmitted bool     `json:"all_grades_submitted"`
	FinalGrade         *float64 `json:"final_grade"`
}

// Examination types
const (
	ExamInPerson = "in-person"
	ExamOnline   = "online"
)

// Announcement holds the examination details of a thesis
type Announcement struct {
	ID             uint      `json:"id" db:"id"`
	ThesisID       uint      `json:"thesis_id" db:"thesis_id"`
	ExamDate       time.Time `json:"exam_date" db:"exam_date"`
	ExamTime       string    `json:"exam_time" db:"exam_time"`
	ExamType       string    `json:"exam_type" db:"exam_type"`
	LocationOrLink string    `json:"location_or_link" db:"location_or_link"`
	CreatedAt      time.Time `json:"created_at" db:"created_at"`
	UpdatedAt      time.Time `json:"updated_at" db:"updated_at"`
}

// CanceledThesis is the record a thesis row moves into when it is canceled
type CanceledThesis struct {
	ID             uint            `json:"id"`
	Title          string          `json:"title"`
	Description    string          `json:"description"`
	StudentID      *uint           `json:"student_id,omitempty"`
	InstructorID   uint            `json:"instructor_id"`
	Member1ID      *uint           `json:"member1_id,omitempty"`
	Member2ID      *uint           `json:"member2_id,omitempty"`
	PreviousState  lifecycle.State `json:"previous_state"`
	Reason         string          `json:"reason"`
	AssemblyNumber string          `json:"assembly_number"`
	AssemblyYear   string          `json:"assembly_year"`
	CanceledBy     uint            `json:"canceled_by"`
	CanceledAt     time.Time       `json:"canceled_at"`
}

// TimelineEntry is one status boundary in a thesis timeline
type TimelineEntry struct {
	Status    lifecycle.State `json:"status"`
	CreatedBy string          `json:"created_by"`
	EventDate time.Time       `json:"event_date"`
}

// Committee roles on the examination protocol
const (
	ProtocolRoleInstructor = "instructor"
	ProtocolRoleMember     = "member"
)

// ProtocolMember is one committee professor on the examination protocol
type ProtocolMember struct {
	ProfessorID uint       `json:"professor_id" db:"professor_id"`
	Name        string     `json:"name" db:"name"`
	Role        string     `json:"role" db:"role"`
	Grade       *float64   `json:"grade,omitempty" db:"grade"`
	GradedAt    *time.Time `json:"graded_at,omitempty" db:"graded_at"`
}

// ProtocolRecord is the structured data behind the printable examination protocol
type ProtocolRecord struct {
	ThesisID            uint             `json:"thesis_id" db:"thesis_id"`
	Title               string           `json:"title" db:"title"`
	State               lifecycle.State  `json:"state" db:"state"`
	Department          string           `json:"department" db:"-"`
	StudentName         string           `json:"student_name" db:"student_name"`
	RegistrationNumber  *string          `json:"registration_number,omitempty" db:"registration_number"`
	ProtocolNumber      *string          `json:"protocol_number,omitempty" db:"protocol_number"`
	ActivationTimestamp *time.Time       `json:"activation_timestamp,omitempty" db:"activation_timestamp"`
	FinalGrade          *float64         `json:"final_grade,omitempty" db:"final_grade"`
	Committee           []ProtocolMember `json:"committee" db:"-"`
	Announcement        *Announcement    `json:"announcement,omitempty" db:"-"`
}

// Request payloads. Field validation uses go-playground/validator tags.

// LoginRequest represents a login request
type LoginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

// CreateTopicRequest creates a new unassigned thesis topic
type CreateTopicRequest struct {
	Title       string `json:"title" validate:"required,notblank,max=500"`
	Description string `json:"description" validate:"max=10000"`
}

// AssignTopicRequest assigns a student to a topic
type AssignTopicRequest struct {
	StudentID uint `json:"student_id" validate:"required"`
}

// InviteRequest invites a professor to the committee
type InviteRequest struct {
	ProfessorID uint `json:"professor_id" validate:"required"`
}

// RespondInvitationRequest accepts or declines an invitation
type RespondInvitationRequest struct {
	Decision Decision `json:"decision" validate:"required,oneof=accept decline"`
}

// SubmitGradeRequest submits a committee member's final grade
type SubmitGradeRequest struct {
	Grade   *float64 `json:"grade" validate:"required,gte=0,lte=10"`
	Comment string   `json:"comment" validate:"max=5000"`
}

// UploadDraftRequest records the draft file reference and supporting links
type UploadDraftRequest struct {
	DraftFile       string   `json:"draft_file" validate:"required,notblank,max=1000"`
	AdditionalLinks []string `json:"additional_links" validate:"max=20,dive,url"`
}

// AnnouncementRequest submits the examination details
type AnnouncementRequest struct {
	ExamDate       string `json:"exam_date" validate:"required,datetime=2006-01-02"`
	ExamTime       string `json:"exam_time" validate:"required,datetime=15:04"`
	ExamType       string `json:"exam_type" validate:"required,oneof=in-person online"`
	LocationOrLink string `json:"location_or_link" validate:"required,notblank,max=1000"`
}

// NimertisLinkRequest records the institutional repository link
type NimertisLinkRequest struct {
	URL string `json:"url" validate:"required,url,max=1000"`
}

// ApprovalProtocolRequest records the general assembly approval number
type ApprovalProtocolRequest struct {
	ProtocolNumber string `json:"protocol_number" validate:"required,notblank,max=100"`
}

// CancelThesisRequest cancels a thesis by general assembly decision
type CancelThesisRequest struct {
	Reason         string `json:"reason" validate:"required,notblank,max=2000"`
	AssemblyNumber string `json:"assembly_number" validate:"required,notblank,max=50"`
	AssemblyYear   string `json:"assembly_year" validate:"required,len=4,numeric"`
}
