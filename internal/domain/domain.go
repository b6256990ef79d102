package domain

// Roles recognized by the lifecycle engine.
const (
	RoleAdmin           = "admin"
	RoleDirectionMember = "direction_member"
	RoleDepartmentHead  = "department_head"
	RoleSupervisor      = "supervisor"
	RoleIntern          = "intern"
)

// Actor identifies the caller of an engine operation after identity resolution.
type Actor struct {
	ID   int64  `json:"id"`
	Role string `json:"role" enum:"admin,direction_member,department_head,supervisor,intern"`
}

type Person struct {
	ID        int64  `json:"id"`
	Name      string `json:"name"`
	Role      string `json:"role" enum:"admin,direction_member,department_head,supervisor,intern"`
	Active    bool   `json:"active"`
	Available bool   `json:"available"`
	CreatedAt string `json:"created_at" format:"date-time"`
}

type Department struct {
	ID   int64  `json:"id"`
	Name string `json:"name"`
}

type Domain struct {
	ID           int64  `json:"id"`
	Name         string `json:"name"`
	DepartmentID int64  `json:"department_id"`
}

// InternshipRequest statuses.
const (
	RequestPending  = "pending"
	RequestAccepted = "accepted"
	RequestRejected = "rejected"
)

type InternshipRequest struct {
	ID                int64   `json:"id"`
	InternIDs         []int64 `json:"intern_ids"`
	DirectionMemberID int64   `json:"direction_member_id"`
	DocumentPath      *string `json:"document_path,omitempty"`
	Status            string  `json:"status" enum:"pending,accepted,rejected"`
	Comment           *string `json:"comment,omitempty"`
	CreatedAt         string  `json:"created_at" format:"date-time"`
}

// AgreementRequest stored statuses. "pending" is never stored: it is a
// projection reported when both role sections are complete and no decision
// has been made yet.
const (
	AgreementInProgress = "in_progress"
	AgreementPending    = "pending"
	AgreementAccepted   = "accepted"
	AgreementRejected   = "rejected"
)

type AgreementRequest struct {
	ID        int64  `json:"id"`
	RequestID int64  `json:"request_id"`
	Status    string `json:"status" enum:"in_progress,pending,accepted,rejected"`

	// Direction-member section. DepartmentID and DomainID are write-once.
	ThemeName          string `json:"theme_name,omitempty"`
	DepartmentID       *int64 `json:"department_id,omitempty"`
	DomainID           *int64 `json:"domain_id,omitempty"`
	NatureOfInternship string `json:"nature_of_internship,omitempty"`
	Institution        string `json:"institution,omitempty"`
	Specialty          string `json:"specialty,omitempty"`
	DegreeSought       string `json:"degree_sought,omitempty"`
	DepartmentHeadID   *int64 `json:"department_head_id,omitempty"`

	// Department-head section.
	HostService          *string `json:"host_service,omitempty"`
	StartDate            string  `json:"start_date,omitempty" format:"date"`
	EndDate              string  `json:"end_date,omitempty" format:"date"`
	SessionsPerWeek      int     `json:"sessions_per_week,omitempty"`
	SessionDurationHours int     `json:"session_duration_hours,omitempty"`
	SupervisorID         *int64  `json:"supervisor_id,omitempty"`

	CreatedAt string `json:"created_at" format:"date-time"`
	UpdatedAt string `json:"updated_at" format:"date-time"`
}

// Terminal reports whether no further transition is permitted.
func (a AgreementRequest) Terminal() bool {
	return a.Status == AgreementAccepted || a.Status == AgreementRejected
}

// DirectionSectionComplete reports whether every direction-member-owned
// field has been provided.
func (a AgreementRequest) DirectionSectionComplete() bool {
	return a.ThemeName != "" &&
		a.DepartmentID != nil &&
		a.DomainID != nil &&
		a.NatureOfInternship != "" &&
		a.Institution != "" &&
		a.Specialty != "" &&
		a.DegreeSought != "" &&
		a.DepartmentHeadID != nil
}

// HeadSectionComplete reports whether every department-head-owned field
// has been provided.
func (a AgreementRequest) HeadSectionComplete() bool {
	return a.HostService != nil && *a.HostService != "" &&
		a.StartDate != "" &&
		a.EndDate != "" &&
		a.SessionsPerWeek > 0 &&
		a.SessionDurationHours > 0 &&
		a.SupervisorID != nil
}

// EffectiveStatus collapses the stored status with the completeness
// projection: an undecided agreement with both sections complete reads
// as "pending".
func (a AgreementRequest) EffectiveStatus() string {
	if a.Status == AgreementInProgress && a.DirectionSectionComplete() && a.HeadSectionComplete() {
		return AgreementPending
	}
	return a.Status
}

// Convention statuses.
const (
	ConventionPending  = "pending"
	ConventionAccepted = "accepted"
	ConventionRejected = "rejected"
)

type Convention struct {
	ID           int64   `json:"id"`
	StageID      int64   `json:"stage_id"`
	DocumentPath string  `json:"document_path"`
	Status       string  `json:"status" enum:"pending,accepted,rejected"`
	Comment      *string `json:"comment,omitempty"`
	CreatedAt    string  `json:"created_at" format:"date-time"`
}

// Stage statuses.
const (
	StagePending   = "pending"
	StageActive    = "active"
	StageCompleted = "completed"
	StageCancelled = "cancelled"
	StageExtended  = "extended"
)

// StageStatuses lists the admissible stage status values.
var StageStatuses = []string{StagePending, StageActive, StageCompleted, StageCancelled, StageExtended}

// Stage is a frozen snapshot of an accepted agreement; later assignment
// changes on the agreement do not propagate here.
type Stage struct {
	ID                 int64   `json:"id"`
	AgreementRequestID int64   `json:"agreement_request_id"`
	InternIDs          []int64 `json:"intern_ids"`
	SupervisorID       int64   `json:"supervisor_id"`
	DepartmentID       int64   `json:"department_id"`
	DomainID           int64   `json:"domain_id"`
	StartDate          string  `json:"start_date" format:"date"`
	EndDate            string  `json:"end_date" format:"date"`
	Status             string  `json:"status" enum:"pending,active,completed,cancelled,extended"`
	CreatedAt          string  `json:"created_at" format:"date-time"`
}

// DepositRequest statuses.
const (
	DepositPending  = "pending"
	DepositApproved = "approved"
	DepositRejected = "rejected"
	DepositArchived = "archived"
)

type DepositRequest struct {
	ID             int64    `json:"id"`
	StageID        int64    `json:"stage_id"`
	SupervisorName string   `json:"supervisor_name"`
	InternNames    []string `json:"intern_names"`
	ThemeLines     []string `json:"theme_lines,omitempty"`
	SubmittedAt    string   `json:"submitted_at" format:"date-time"`
	Status         string   `json:"status" enum:"pending,approved,rejected,archived"`
	ValidatedBy    *int64   `json:"validated_by,omitempty"`
	ValidatedAt    *string  `json:"validated_at,omitempty" format:"date-time"`
}

type Event struct {
	ID         int64  `json:"id"`
	TS         string `json:"ts" format:"date-time"`
	Type       string `json:"type"`
	EntityKind string `json:"entity_kind"`
	EntityID   int64  `json:"entity_id,omitempty"`
	ActorID    int64  `json:"actor_id"`
	Payload    string `json:"payload_json"`
}

type APIKey struct {
	ID        string `json:"id"`
	PersonID  int64  `json:"person_id"`
	Name      string `json:"name,omitempty"`
	KeyHash   string `json:"key_hash"`
	CreatedAt string `json:"created_at" format:"date-time"`
}
