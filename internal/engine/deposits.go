package engine

import (
	"context"

	"stagehub/internal/domain"
	"stagehub/internal/engine/fault"
	"stagehub/internal/events"
)

// DepositCreateOptions carry the submission of a dissertation deposit.
type DepositCreateOptions struct {
	StageID    int64
	ThemeLines []string
}

// CreateDeposit records a dissertation deposit for a completed stage.
// Supervisor and intern names are snapshotted from the directory at
// submission time so later directory edits never rewrite a deposit.
func (e Engine) CreateDeposit(ctx context.Context, actor domain.Actor, opts DepositCreateOptions) (domain.DepositRequest, error) {
	if err := requireRole(actor, domain.RoleSupervisor, domain.RoleAdmin); err != nil {
		return domain.DepositRequest{}, err
	}

	tx, err := e.DB.BeginTx(ctx, nil)
	if err != nil {
		return domain.DepositRequest{}, err
	}
	defer tx.Rollback()

	s, err := e.Repo.GetStageTx(ctx, tx, opts.StageID)
	if err != nil {
		return domain.DepositRequest{}, err
	}
	if actor.Role == domain.RoleSupervisor && s.SupervisorID != actor.ID {
		return domain.DepositRequest{}, fault.ForbiddenError{Role: actor.Role, Required: "assigned supervisor"}
	}
	if s.Status != domain.StageCompleted {
		return domain.DepositRequest{}, fault.InvalidTransitionError{Entity: "stage", From: s.Status}
	}

	supervisor, err := e.Repo.GetPersonTx(ctx, tx, s.SupervisorID)
	if err != nil {
		return domain.DepositRequest{}, err
	}
	var internNames []string
	for _, internID := range s.InternIDs {
		p, err := e.Repo.GetPersonTx(ctx, tx, internID)
		if err != nil {
			return domain.DepositRequest{}, err
		}
		internNames = append(internNames, p.Name)
	}

	d := domain.DepositRequest{
		StageID:        opts.StageID,
		SupervisorName: supervisor.Name,
		InternNames:    internNames,
		ThemeLines:     opts.ThemeLines,
		SubmittedAt:    e.timestamp(),
		Status:         domain.DepositPending,
	}
	d.ID, err = e.Repo.InsertDepositTx(ctx, tx, d)
	if err != nil {
		return domain.DepositRequest{}, err
	}
	if err := e.Events.Append(ctx, tx, "deposit.created", "deposit", d.ID, actor.ID, events.EventPayload{
		"stage_id": opts.StageID,
	}); err != nil {
		return domain.DepositRequest{}, err
	}
	if err := tx.Commit(); err != nil {
		return domain.DepositRequest{}, err
	}
	return d, nil
}

// DecideDeposit approves or rejects a pending deposit and stamps the
// validator.
func (e Engine) DecideDeposit(ctx context.Context, actor domain.Actor, id int64, approve bool) (domain.DepositRequest, error) {
	if err := requireRole(actor, domain.RoleDirectionMember, domain.RoleAdmin); err != nil {
		return domain.DepositRequest{}, err
	}
	status := domain.DepositRejected
	if approve {
		status = domain.DepositApproved
	}

	tx, err := e.DB.BeginTx(ctx, nil)
	if err != nil {
		return domain.DepositRequest{}, err
	}
	defer tx.Rollback()

	won, err := e.Repo.DecideDepositTx(ctx, tx, id, status, actor.ID, e.timestamp())
	if err != nil {
		return domain.DepositRequest{}, err
	}
	if !won {
		d, err := e.Repo.GetDepositTx(ctx, tx, id)
		if err != nil {
			return domain.DepositRequest{}, err
		}
		return domain.DepositRequest{}, fault.InvalidTransitionError{Entity: "deposit", From: d.Status, To: status}
	}
	if err := e.Events.Append(ctx, tx, "deposit.decided", "deposit", id, actor.ID, events.EventPayload{
		"status": status,
	}); err != nil {
		return domain.DepositRequest{}, err
	}
	d, err := e.Repo.GetDepositTx(ctx, tx, id)
	if err != nil {
		return domain.DepositRequest{}, err
	}
	if err := tx.Commit(); err != nil {
		return domain.DepositRequest{}, err
	}
	return d, nil
}

// ArchiveDeposit moves a decided deposit out of the working set.
func (e Engine) ArchiveDeposit(ctx context.Context, actor domain.Actor, id int64) (domain.DepositRequest, error) {
	if err := requireRole(actor, domain.RoleAdmin); err != nil {
		return domain.DepositRequest{}, err
	}

	tx, err := e.DB.BeginTx(ctx, nil)
	if err != nil {
		return domain.DepositRequest{}, err
	}
	defer tx.Rollback()

	won, err := e.Repo.ArchiveDepositTx(ctx, tx, id)
	if err != nil {
		return domain.DepositRequest{}, err
	}
	if !won {
		d, err := e.Repo.GetDepositTx(ctx, tx, id)
		if err != nil {
			return domain.DepositRequest{}, err
		}
		return domain.DepositRequest{}, fault.InvalidTransitionError{Entity: "deposit", From: d.Status, To: domain.DepositArchived}
	}
	if err := e.Events.Append(ctx, tx, "deposit.archived", "deposit", id, actor.ID, nil); err != nil {
		return domain.DepositRequest{}, err
	}
	d, err := e.Repo.GetDepositTx(ctx, tx, id)
	if err != nil {
		return domain.DepositRequest{}, err
	}
	if err := tx.Commit(); err != nil {
		return domain.DepositRequest{}, err
	}
	return d, nil
}
