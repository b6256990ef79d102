package engine

import (
	"context"
	"errors"
	"strings"

	"stagehub/internal/domain"
	"stagehub/internal/engine/fault"
	"stagehub/internal/events"
	"stagehub/internal/repo"
)

var stageTransitions = map[string][]string{
	domain.StagePending:   {domain.StageActive, domain.StageCancelled},
	domain.StageActive:    {domain.StageCompleted, domain.StageCancelled, domain.StageExtended},
	domain.StageExtended:  {domain.StageCompleted, domain.StageCancelled},
	domain.StageCompleted: {},
	domain.StageCancelled: {},
}

func stageTransitionAllowed(from, to string) bool {
	for _, t := range stageTransitions[from] {
		if t == to {
			return true
		}
	}
	return false
}

// SetStageStatus moves a stage along its lifecycle. Supervisors may only
// touch their own stages; direction members and admins may touch any.
func (e Engine) SetStageStatus(ctx context.Context, actor domain.Actor, id int64, to string) (domain.Stage, error) {
	if err := requireRole(actor, domain.RoleSupervisor, domain.RoleDirectionMember, domain.RoleAdmin); err != nil {
		return domain.Stage{}, err
	}
	valid := false
	for _, s := range domain.StageStatuses {
		if s == to {
			valid = true
		}
	}
	if !valid {
		return domain.Stage{}, fault.ValidationError{Field: "status", Reason: "unknown status " + to}
	}

	tx, err := e.DB.BeginTx(ctx, nil)
	if err != nil {
		return domain.Stage{}, err
	}
	defer tx.Rollback()

	s, err := e.Repo.GetStageTx(ctx, tx, id)
	if err != nil {
		return domain.Stage{}, err
	}
	if actor.Role == domain.RoleSupervisor && s.SupervisorID != actor.ID {
		return domain.Stage{}, fault.ForbiddenError{Role: actor.Role, Required: "assigned supervisor"}
	}
	if !stageTransitionAllowed(s.Status, to) {
		return domain.Stage{}, fault.InvalidTransitionError{Entity: "stage", From: s.Status, To: to}
	}

	won, err := e.Repo.SetStageStatusTx(ctx, tx, id, s.Status, to)
	if err != nil {
		return domain.Stage{}, err
	}
	if !won {
		// Lost a race since the snapshot read; re-read to report the
		// actual blocking status.
		s, err := e.Repo.GetStageTx(ctx, tx, id)
		if err != nil {
			return domain.Stage{}, err
		}
		return domain.Stage{}, fault.InvalidTransitionError{Entity: "stage", From: s.Status, To: to}
	}
	if err := e.Events.Append(ctx, tx, "stage.status_changed", "stage", id, actor.ID, events.EventPayload{
		"from": s.Status,
		"to":   to,
	}); err != nil {
		return domain.Stage{}, err
	}
	s, err = e.Repo.GetStageTx(ctx, tx, id)
	if err != nil {
		return domain.Stage{}, err
	}
	if err := tx.Commit(); err != nil {
		return domain.Stage{}, err
	}
	return s, nil
}

// ExtendStage pushes out the end date of a running stage and marks it
// extended.
func (e Engine) ExtendStage(ctx context.Context, actor domain.Actor, id int64, endDate string) (domain.Stage, error) {
	if err := requireRole(actor, domain.RoleSupervisor, domain.RoleAdmin); err != nil {
		return domain.Stage{}, err
	}
	if err := parseDate("end_date", endDate); err != nil {
		return domain.Stage{}, err
	}

	tx, err := e.DB.BeginTx(ctx, nil)
	if err != nil {
		return domain.Stage{}, err
	}
	defer tx.Rollback()

	s, err := e.Repo.GetStageTx(ctx, tx, id)
	if err != nil {
		return domain.Stage{}, err
	}
	if actor.Role == domain.RoleSupervisor && s.SupervisorID != actor.ID {
		return domain.Stage{}, fault.ForbiddenError{Role: actor.Role, Required: "assigned supervisor"}
	}
	if !dateBefore(s.EndDate, endDate) {
		return domain.Stage{}, fault.ValidationError{Field: "end_date", Reason: "must be after the current end date"}
	}

	won, err := e.Repo.ExtendStageTx(ctx, tx, id, endDate)
	if err != nil {
		return domain.Stage{}, err
	}
	if !won {
		return domain.Stage{}, fault.InvalidTransitionError{Entity: "stage", From: s.Status, To: domain.StageExtended}
	}
	if err := e.Events.Append(ctx, tx, "stage.extended", "stage", id, actor.ID, events.EventPayload{
		"end_date": endDate,
	}); err != nil {
		return domain.Stage{}, err
	}
	s, err = e.Repo.GetStageTx(ctx, tx, id)
	if err != nil {
		return domain.Stage{}, err
	}
	if err := tx.Commit(); err != nil {
		return domain.Stage{}, err
	}
	return s, nil
}

// AttachConvention files the signed convention document for a stage.
// The first attachment creates the convention; later ones replace the
// document on the current convention regardless of its status.
func (e Engine) AttachConvention(ctx context.Context, actor domain.Actor, stageID int64, documentPath string) (domain.Convention, error) {
	if err := requireRole(actor, domain.RoleSupervisor, domain.RoleDirectionMember, domain.RoleAdmin); err != nil {
		return domain.Convention{}, err
	}
	if documentPath == "" {
		return domain.Convention{}, fault.ValidationError{Field: "document_path", Reason: "required"}
	}
	if e.Blobs != nil && !e.Blobs.Exists(documentPath) {
		return domain.Convention{}, fault.ValidationError{Field: "document_path", Reason: "unknown document"}
	}

	tx, err := e.DB.BeginTx(ctx, nil)
	if err != nil {
		return domain.Convention{}, err
	}
	defer tx.Rollback()

	s, err := e.Repo.GetStageTx(ctx, tx, stageID)
	if err != nil {
		return domain.Convention{}, err
	}
	if actor.Role == domain.RoleSupervisor && s.SupervisorID != actor.ID {
		return domain.Convention{}, fault.ForbiddenError{Role: actor.Role, Required: "assigned supervisor"}
	}

	c, err := e.Repo.GetConventionByStageTx(ctx, tx, stageID)
	switch {
	case err == nil:
		if err := e.Repo.SetConventionDocumentTx(ctx, tx, c.ID, documentPath); err != nil {
			return domain.Convention{}, err
		}
		c.DocumentPath = documentPath
		if err := e.Events.Append(ctx, tx, "convention.document_replaced", "convention", c.ID, actor.ID, events.EventPayload{
			"stage_id": stageID,
		}); err != nil {
			return domain.Convention{}, err
		}
	case errors.Is(err, repo.ErrNotFound):
		c = domain.Convention{
			StageID:      stageID,
			DocumentPath: documentPath,
			Status:       domain.ConventionPending,
			CreatedAt:    e.timestamp(),
		}
		c.ID, err = e.Repo.InsertConventionTx(ctx, tx, c)
		if err != nil {
			if isUniqueViolation(err) {
				return domain.Convention{}, fault.ConflictError{Reason: "stage already has a convention"}
			}
			return domain.Convention{}, err
		}
		if err := e.Events.Append(ctx, tx, "convention.created", "convention", c.ID, actor.ID, events.EventPayload{
			"stage_id": stageID,
		}); err != nil {
			return domain.Convention{}, err
		}
	default:
		return domain.Convention{}, err
	}
	if err := tx.Commit(); err != nil {
		return domain.Convention{}, err
	}
	return c, nil
}

// DecideConvention accepts or rejects a pending convention. Acceptance
// activates the stage in the same transaction. A rejection must carry a
// comment so the supervisor knows what to fix.
func (e Engine) DecideConvention(ctx context.Context, actor domain.Actor, id int64, accept bool, comment *string) (domain.Convention, error) {
	if err := requireRole(actor, domain.RoleDirectionMember, domain.RoleAdmin); err != nil {
		return domain.Convention{}, err
	}
	status := domain.ConventionRejected
	if accept {
		status = domain.ConventionAccepted
	} else if comment == nil || *comment == "" {
		return domain.Convention{}, fault.ValidationError{Field: "comment", Reason: "rejection requires a comment"}
	}

	tx, err := e.DB.BeginTx(ctx, nil)
	if err != nil {
		return domain.Convention{}, err
	}
	defer tx.Rollback()

	won, err := e.Repo.DecideConventionTx(ctx, tx, id, status, comment)
	if err != nil {
		return domain.Convention{}, err
	}
	if !won {
		c, err := e.Repo.GetConventionTx(ctx, tx, id)
		if err != nil {
			return domain.Convention{}, err
		}
		return domain.Convention{}, fault.InvalidTransitionError{Entity: "convention", From: c.Status, To: status}
	}
	c, err := e.Repo.GetConventionTx(ctx, tx, id)
	if err != nil {
		return domain.Convention{}, err
	}
	if accept {
		if _, err := e.Repo.SetStageStatusTx(ctx, tx, c.StageID, domain.StagePending, domain.StageActive); err != nil {
			return domain.Convention{}, err
		}
	}
	if err := e.Events.Append(ctx, tx, "convention.decided", "convention", id, actor.ID, events.EventPayload{
		"status": status,
	}); err != nil {
		return domain.Convention{}, err
	}
	if err := tx.Commit(); err != nil {
		return domain.Convention{}, err
	}
	return c, nil
}

func isUniqueViolation(err error) bool {
	return err != nil && strings.Contains(err.Error(), "UNIQUE constraint failed")
}
