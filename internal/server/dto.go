package server

import (
	"stagehub/internal/domain"
)

type PersonResponse struct {
	ID        int64  `json:"id"`
	Name      string `json:"name"`
	Role      string `json:"role"`
	Active    bool   `json:"active"`
	Available bool   `json:"available"`
	CreatedAt string `json:"created_at"`
}

func personResponse(p domain.Person) PersonResponse {
	return PersonResponse{
		ID:        p.ID,
		Name:      p.Name,
		Role:      p.Role,
		Active:    p.Active,
		Available: p.Available,
		CreatedAt: p.CreatedAt,
	}
}

func mapPeople(in []domain.Person) []PersonResponse {
	out := make([]PersonResponse, 0, len(in))
	for _, p := range in {
		out = append(out, personResponse(p))
	}
	return out
}

type RequestResponse struct {
	ID                int64   `json:"id"`
	InternIDs         []int64 `json:"intern_ids"`
	DirectionMemberID int64   `json:"direction_member_id"`
	DocumentPath      *string `json:"document_path,omitempty"`
	Status            string  `json:"status"`
	Comment           *string `json:"comment,omitempty"`
	CreatedAt         string  `json:"created_at"`
}

func requestResponse(r domain.InternshipRequest) RequestResponse {
	return RequestResponse{
		ID:                r.ID,
		InternIDs:         r.InternIDs,
		DirectionMemberID: r.DirectionMemberID,
		DocumentPath:      r.DocumentPath,
		Status:            r.Status,
		Comment:           r.Comment,
		CreatedAt:         r.CreatedAt,
	}
}

func mapRequests(in []domain.InternshipRequest) []RequestResponse {
	out := make([]RequestResponse, 0, len(in))
	for _, r := range in {
		out = append(out, requestResponse(r))
	}
	return out
}

type AgreementResponse struct {
	ID        int64  `json:"id"`
	RequestID int64  `json:"request_id"`
	Status    string `json:"status"`

	ThemeName          string `json:"theme_name,omitempty"`
	DepartmentID       *int64 `json:"department_id,omitempty"`
	DomainID           *int64 `json:"domain_id,omitempty"`
	NatureOfInternship string `json:"nature_of_internship,omitempty"`
	Institution        string `json:"institution,omitempty"`
	Specialty          string `json:"specialty,omitempty"`
	DegreeSought       string `json:"degree_sought,omitempty"`
	DepartmentHeadID   *int64 `json:"department_head_id,omitempty"`

	HostService          *string `json:"host_service,omitempty"`
	StartDate            string  `json:"start_date,omitempty"`
	EndDate              string  `json:"end_date,omitempty"`
	SessionsPerWeek      int     `json:"sessions_per_week,omitempty"`
	SessionDurationHours int     `json:"session_duration_hours,omitempty"`
	SupervisorID         *int64  `json:"supervisor_id,omitempty"`

	CreatedAt string `json:"created_at"`
	UpdatedAt string `json:"updated_at"`
}

// agreementResponse reports the effective status, so a complete but
// undecided agreement reads as pending.
func agreementResponse(a domain.AgreementRequest) AgreementResponse {
	return AgreementResponse{
		ID:                   a.ID,
		RequestID:            a.RequestID,
		Status:               a.EffectiveStatus(),
		ThemeName:            a.ThemeName,
		DepartmentID:         a.DepartmentID,
		DomainID:             a.DomainID,
		NatureOfInternship:   a.NatureOfInternship,
		Institution:          a.Institution,
		Specialty:            a.Specialty,
		DegreeSought:         a.DegreeSought,
		DepartmentHeadID:     a.DepartmentHeadID,
		HostService:          a.HostService,
		StartDate:            a.StartDate,
		EndDate:              a.EndDate,
		SessionsPerWeek:      a.SessionsPerWeek,
		SessionDurationHours: a.SessionDurationHours,
		SupervisorID:         a.SupervisorID,
		CreatedAt:            a.CreatedAt,
		UpdatedAt:            a.UpdatedAt,
	}
}

func mapAgreements(in []domain.AgreementRequest) []AgreementResponse {
	out := make([]AgreementResponse, 0, len(in))
	for _, a := range in {
		out = append(out, agreementResponse(a))
	}
	return out
}

type StageResponse struct {
	ID                 int64   `json:"id"`
	AgreementRequestID int64   `json:"agreement_request_id"`
	InternIDs          []int64 `json:"intern_ids"`
	SupervisorID       int64   `json:"supervisor_id"`
	DepartmentID       int64   `json:"department_id"`
	DomainID           int64   `json:"domain_id"`
	StartDate          string  `json:"start_date"`
	EndDate            string  `json:"end_date"`
	Status             string  `json:"status"`
	CreatedAt          string  `json:"created_at"`
}

func stageResponse(s domain.Stage) StageResponse {
	return StageResponse{
		ID:                 s.ID,
		AgreementRequestID: s.AgreementRequestID,
		InternIDs:          s.InternIDs,
		SupervisorID:       s.SupervisorID,
		DepartmentID:       s.DepartmentID,
		DomainID:           s.DomainID,
		StartDate:          s.StartDate,
		EndDate:            s.EndDate,
		Status:             s.Status,
		CreatedAt:          s.CreatedAt,
	}
}

func mapStages(in []domain.Stage) []StageResponse {
	out := make([]StageResponse, 0, len(in))
	for _, s := range in {
		out = append(out, stageResponse(s))
	}
	return out
}

type ConventionResponse struct {
	ID           int64   `json:"id"`
	StageID      int64   `json:"stage_id"`
	DocumentPath string  `json:"document_path"`
	Status       string  `json:"status"`
	Comment      *string `json:"comment,omitempty"`
	CreatedAt    string  `json:"created_at"`
}

func conventionResponse(c domain.Convention) ConventionResponse {
	return ConventionResponse{
		ID:           c.ID,
		StageID:      c.StageID,
		DocumentPath: c.DocumentPath,
		Status:       c.Status,
		Comment:      c.Comment,
		CreatedAt:    c.CreatedAt,
	}
}

type DepositResponse struct {
	ID             int64    `json:"id"`
	StageID        int64    `json:"stage_id"`
	SupervisorName string   `json:"supervisor_name"`
	InternNames    []string `json:"intern_names"`
	ThemeLines     []string `json:"theme_lines,omitempty"`
	SubmittedAt    string   `json:"submitted_at"`
	Status         string   `json:"status"`
	ValidatedBy    *int64   `json:"validated_by,omitempty"`
	ValidatedAt    *string  `json:"validated_at,omitempty"`
}

func depositResponse(d domain.DepositRequest) DepositResponse {
	return DepositResponse{
		ID:             d.ID,
		StageID:        d.StageID,
		SupervisorName: d.SupervisorName,
		InternNames:    d.InternNames,
		ThemeLines:     d.ThemeLines,
		SubmittedAt:    d.SubmittedAt,
		Status:         d.Status,
		ValidatedBy:    d.ValidatedBy,
		ValidatedAt:    d.ValidatedAt,
	}
}

func mapDeposits(in []domain.DepositRequest) []DepositResponse {
	out := make([]DepositResponse, 0, len(in))
	for _, d := range in {
		out = append(out, depositResponse(d))
	}
	return out
}

type EventResponse struct {
	ID         int64  `json:"id"`
	TS         string `json:"ts"`
	Type       string `json:"type"`
	EntityKind string `json:"entity_kind"`
	EntityID   int64  `json:"entity_id,omitempty"`
	ActorID    int64  `json:"actor_id"`
	Payload    string `json:"payload_json,omitempty"`
}

func mapEvents(in []domain.Event) []EventResponse {
	out := make([]EventResponse, 0, len(in))
	for _, e := range in {
		out = append(out, EventResponse{
			ID:         e.ID,
			TS:         e.TS,
			Type:       e.Type,
			EntityKind: e.EntityKind,
			EntityID:   e.EntityID,
			ActorID:    e.ActorID,
			Payload:    e.Payload,
		})
	}
	return out
}
