package engine

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"stagehub/internal/domain"
	"stagehub/internal/engine/fault"
	"stagehub/internal/events"
	"stagehub/internal/repo"
)

// DirectionSectionOptions carry the fields owned by the direction
// member. Nil fields are left untouched.
type DirectionSectionOptions struct {
	ThemeName          *string
	DepartmentID       *int64
	DomainID           *int64
	NatureOfInternship *string
	Institution        *string
	Specialty          *string
	DegreeSought       *string
	DepartmentHeadID   *int64
}

// UpdateAgreementDirection fills in the direction member's section of an
// undecided agreement. DepartmentID and DomainID are write-once: once
// set they can be repeated but never changed.
func (e Engine) UpdateAgreementDirection(ctx context.Context, actor domain.Actor, id int64, opts DirectionSectionOptions) (domain.AgreementRequest, error) {
	if err := requireRole(actor, domain.RoleDirectionMember, domain.RoleAdmin); err != nil {
		return domain.AgreementRequest{}, err
	}

	tx, err := e.DB.BeginTx(ctx, nil)
	if err != nil {
		return domain.AgreementRequest{}, err
	}
	defer tx.Rollback()

	a, err := e.Repo.GetAgreementTx(ctx, tx, id)
	if err != nil {
		return domain.AgreementRequest{}, err
	}
	if a.Terminal() {
		return domain.AgreementRequest{}, fault.InvalidTransitionError{Entity: "agreement", From: a.Status}
	}

	if opts.DepartmentID != nil {
		if a.DepartmentID != nil && *a.DepartmentID != *opts.DepartmentID {
			return domain.AgreementRequest{}, fault.FieldLockedError{Field: "department_id"}
		}
		if _, err := e.Repo.GetDepartmentTx(ctx, tx, *opts.DepartmentID); errors.Is(err, repo.ErrNotFound) {
			return domain.AgreementRequest{}, fault.ValidationError{Field: "department_id", Reason: "unknown department"}
		} else if err != nil {
			return domain.AgreementRequest{}, err
		}
	}
	if opts.DomainID != nil {
		if a.DomainID != nil && *a.DomainID != *opts.DomainID {
			return domain.AgreementRequest{}, fault.FieldLockedError{Field: "domain_id"}
		}
		deptID := opts.DepartmentID
		if deptID == nil {
			deptID = a.DepartmentID
		}
		if deptID == nil {
			return domain.AgreementRequest{}, fault.ValidationError{Field: "domain_id", Reason: "department must be set before domain"}
		}
		if err := e.requireDomainInDepartment(ctx, tx, *opts.DomainID, *deptID); err != nil {
			return domain.AgreementRequest{}, err
		}
	}
	if opts.DepartmentHeadID != nil {
		if err := e.requireAssignable(ctx, tx, *opts.DepartmentHeadID, domain.RoleDepartmentHead, a.DepartmentHeadID); err != nil {
			return domain.AgreementRequest{}, err
		}
	}
	if opts.ThemeName != nil && *opts.ThemeName == "" {
		return domain.AgreementRequest{}, fault.ValidationError{Field: "theme_name", Reason: "must not be empty"}
	}

	patch := repo.AgreementPatch{
		ThemeName:          opts.ThemeName,
		DepartmentID:       opts.DepartmentID,
		DomainID:           opts.DomainID,
		NatureOfInternship: opts.NatureOfInternship,
		Institution:        opts.Institution,
		Specialty:          opts.Specialty,
		DegreeSought:       opts.DegreeSought,
		DepartmentHeadID:   opts.DepartmentHeadID,
	}
	return e.applyAgreementPatch(ctx, tx, actor, id, patch, "agreement.direction_updated")
}

// HeadSectionOptions carry the fields owned by the department head.
type HeadSectionOptions struct {
	HostService          *string
	StartDate            *string
	EndDate              *string
	SessionsPerWeek      *int
	SessionDurationHours *int
	SupervisorID         *int64
}

// UpdateAgreementHead fills in the department head's section of an
// undecided agreement.
func (e Engine) UpdateAgreementHead(ctx context.Context, actor domain.Actor, id int64, opts HeadSectionOptions) (domain.AgreementRequest, error) {
	if err := requireRole(actor, domain.RoleDepartmentHead, domain.RoleAdmin); err != nil {
		return domain.AgreementRequest{}, err
	}

	tx, err := e.DB.BeginTx(ctx, nil)
	if err != nil {
		return domain.AgreementRequest{}, err
	}
	defer tx.Rollback()

	a, err := e.Repo.GetAgreementTx(ctx, tx, id)
	if err != nil {
		return domain.AgreementRequest{}, err
	}
	if a.Terminal() {
		return domain.AgreementRequest{}, fault.InvalidTransitionError{Entity: "agreement", From: a.Status}
	}
	if actor.Role == domain.RoleDepartmentHead && (a.DepartmentHeadID == nil || *a.DepartmentHeadID != actor.ID) {
		return domain.AgreementRequest{}, fault.ForbiddenError{Role: actor.Role, Required: "assigned department head"}
	}

	if opts.StartDate != nil {
		if err := parseDate("start_date", *opts.StartDate); err != nil {
			return domain.AgreementRequest{}, err
		}
	}
	if opts.EndDate != nil {
		if err := parseDate("end_date", *opts.EndDate); err != nil {
			return domain.AgreementRequest{}, err
		}
	}
	start, end := a.StartDate, a.EndDate
	if opts.StartDate != nil {
		start = *opts.StartDate
	}
	if opts.EndDate != nil {
		end = *opts.EndDate
	}
	if start != "" && end != "" && !dateBefore(start, end) {
		return domain.AgreementRequest{}, fault.ValidationError{Field: "end_date", Reason: "must be after start_date"}
	}
	if opts.SessionsPerWeek != nil && *opts.SessionsPerWeek <= 0 {
		return domain.AgreementRequest{}, fault.ValidationError{Field: "sessions_per_week", Reason: "must be positive"}
	}
	if opts.SessionDurationHours != nil && *opts.SessionDurationHours <= 0 {
		return domain.AgreementRequest{}, fault.ValidationError{Field: "session_duration_hours", Reason: "must be positive"}
	}
	if opts.SupervisorID != nil {
		if err := e.requireAssignable(ctx, tx, *opts.SupervisorID, domain.RoleSupervisor, a.SupervisorID); err != nil {
			return domain.AgreementRequest{}, err
		}
	}

	patch := repo.AgreementPatch{
		HostService:          opts.HostService,
		StartDate:            opts.StartDate,
		EndDate:              opts.EndDate,
		SessionsPerWeek:      opts.SessionsPerWeek,
		SessionDurationHours: opts.SessionDurationHours,
		SupervisorID:         opts.SupervisorID,
	}
	return e.applyAgreementPatch(ctx, tx, actor, id, patch, "agreement.head_updated")
}

// applyAgreementPatch finishes a section update inside the caller's
// transaction. Validation happened on a snapshot; the status guard in
// the UPDATE is what makes a concurrent decision safe, never the
// snapshot.
func (e Engine) applyAgreementPatch(ctx context.Context, tx *sql.Tx, actor domain.Actor, id int64, patch repo.AgreementPatch, evtType string) (domain.AgreementRequest, error) {
	won, err := e.Repo.UpdateAgreementTx(ctx, tx, id, patch, e.timestamp())
	if err != nil {
		return domain.AgreementRequest{}, err
	}
	if !won {
		a, err := e.Repo.GetAgreementTx(ctx, tx, id)
		if err != nil {
			return domain.AgreementRequest{}, err
		}
		return domain.AgreementRequest{}, fault.InvalidTransitionError{Entity: "agreement", From: a.Status}
	}
	if err := e.Events.Append(ctx, tx, evtType, "agreement", id, actor.ID, nil); err != nil {
		return domain.AgreementRequest{}, err
	}
	a, err := e.Repo.GetAgreementTx(ctx, tx, id)
	if err != nil {
		return domain.AgreementRequest{}, err
	}
	if err := tx.Commit(); err != nil {
		return domain.AgreementRequest{}, err
	}
	return a, nil
}

// DecideAgreement accepts or rejects an agreement. Acceptance requires
// both sections complete and creates the stage snapshot in the same
// transaction, so an accepted agreement always has exactly one stage.
func (e Engine) DecideAgreement(ctx context.Context, actor domain.Actor, id int64, accept bool) (domain.AgreementRequest, error) {
	if err := requireRole(actor, domain.RoleDirectionMember, domain.RoleAdmin); err != nil {
		return domain.AgreementRequest{}, err
	}
	status := domain.AgreementRejected
	if accept {
		status = domain.AgreementAccepted
	}

	tx, err := e.DB.BeginTx(ctx, nil)
	if err != nil {
		return domain.AgreementRequest{}, err
	}
	defer tx.Rollback()

	a, err := e.Repo.GetAgreementTx(ctx, tx, id)
	if err != nil {
		return domain.AgreementRequest{}, err
	}
	if accept && a.EffectiveStatus() != domain.AgreementPending {
		if a.Terminal() {
			return domain.AgreementRequest{}, fault.InvalidTransitionError{Entity: "agreement", From: a.Status, To: status}
		}
		return domain.AgreementRequest{}, fault.ValidationError{Field: "status", Reason: "both sections must be complete before acceptance"}
	}

	won, err := e.Repo.DecideAgreementTx(ctx, tx, id, status, e.timestamp())
	if err != nil {
		return domain.AgreementRequest{}, err
	}
	if !won {
		a, err := e.Repo.GetAgreementTx(ctx, tx, id)
		if err != nil {
			return domain.AgreementRequest{}, err
		}
		return domain.AgreementRequest{}, fault.InvalidTransitionError{Entity: "agreement", From: a.Status, To: status}
	}

	if accept {
		req, err := e.Repo.GetRequestTx(ctx, tx, a.RequestID)
		if err != nil {
			return domain.AgreementRequest{}, err
		}
		stage := domain.Stage{
			AgreementRequestID: a.ID,
			InternIDs:          req.InternIDs,
			SupervisorID:       *a.SupervisorID,
			DepartmentID:       *a.DepartmentID,
			DomainID:           *a.DomainID,
			StartDate:          a.StartDate,
			EndDate:            a.EndDate,
			Status:             domain.StagePending,
			CreatedAt:          e.timestamp(),
		}
		stageID, err := e.Repo.InsertStageTx(ctx, tx, stage)
		if err != nil {
			return domain.AgreementRequest{}, err
		}
		if err := e.Events.Append(ctx, tx, "stage.created", "stage", stageID, actor.ID, events.EventPayload{
			"agreement_id": a.ID,
		}); err != nil {
			return domain.AgreementRequest{}, err
		}
	}
	if err := e.Events.Append(ctx, tx, "agreement.decided", "agreement", id, actor.ID, events.EventPayload{
		"status": status,
	}); err != nil {
		return domain.AgreementRequest{}, err
	}
	a, err = e.Repo.GetAgreementTx(ctx, tx, id)
	if err != nil {
		return domain.AgreementRequest{}, err
	}
	if err := tx.Commit(); err != nil {
		return domain.AgreementRequest{}, err
	}
	return a, nil
}

// DeleteAgreement hard-deletes an agreement request. Agreements with a
// stage cannot be deleted.
func (e Engine) DeleteAgreement(ctx context.Context, actor domain.Actor, id int64) error {
	if err := requireRole(actor, domain.RoleAdmin); err != nil {
		return err
	}

	tx, err := e.DB.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if _, err := e.Repo.GetAgreementTx(ctx, tx, id); err != nil {
		return err
	}
	if _, err := e.Repo.GetStageByAgreementTx(ctx, tx, id); err == nil {
		return fault.ConflictError{Reason: "agreement has a dependent stage"}
	} else if !errors.Is(err, repo.ErrNotFound) {
		return err
	}
	if err := e.Repo.DeleteAgreementTx(ctx, tx, id); err != nil {
		return err
	}
	if err := e.Events.Append(ctx, tx, "agreement.deleted", "agreement", id, actor.ID, nil); err != nil {
		return err
	}
	return tx.Commit()
}

func dateBefore(start, end string) bool {
	s, err := time.Parse("2006-01-02", start)
	if err != nil {
		return false
	}
	t, err := time.Parse("2006-01-02", end)
	if err != nil {
		return false
	}
	return s.Before(t)
}
