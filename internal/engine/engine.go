package engine

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"stagehub/internal/blob"
	"stagehub/internal/config"
	"stagehub/internal/domain"
	"stagehub/internal/engine/fault"
	"stagehub/internal/events"
	"stagehub/internal/repo"
)

type Engine struct {
	DB     *sql.DB
	Repo   repo.Repo
	Events events.Writer
	Config *config.Config
	Blobs  *blob.Store
	Now    func() time.Time
}

func New(db *sql.DB, cfg *config.Config) Engine {
	return Engine{
		DB:     db,
		Repo:   repo.Repo{DB: db},
		Events: events.Writer{DB: db},
		Config: cfg,
		Now:    time.Now,
	}
}

func (e Engine) now() time.Time {
	if e.Now != nil {
		return e.Now()
	}
	return time.Now()
}

func (e Engine) timestamp() string {
	return e.now().UTC().Format(time.RFC3339)
}

// requireRole gates a mutation on the caller's resolved role.
func requireRole(actor domain.Actor, roles ...string) error {
	for _, r := range roles {
		if actor.Role == r {
			return nil
		}
	}
	required := ""
	for i, r := range roles {
		if i > 0 {
			required += " or "
		}
		required += r
	}
	return fault.ForbiddenError{Role: actor.Role, Required: required}
}

func parseDate(field, value string) error {
	if _, err := time.Parse("2006-01-02", value); err != nil {
		return fault.ValidationError{Field: field, Reason: "must be a YYYY-MM-DD date"}
	}
	return nil
}

// RequestCreateOptions are parameters for opening an internship request.
type RequestCreateOptions struct {
	InternIDs    []int64
	DocumentPath *string
}

// CreateRequest opens a new internship request on behalf of a direction
// member. Every listed intern must resolve to an active intern.
func (e Engine) CreateRequest(ctx context.Context, actor domain.Actor, opts RequestCreateOptions) (domain.InternshipRequest, error) {
	if err := requireRole(actor, domain.RoleDirectionMember, domain.RoleAdmin); err != nil {
		return domain.InternshipRequest{}, err
	}
	if len(opts.InternIDs) == 0 {
		return domain.InternshipRequest{}, fault.ValidationError{Field: "intern_ids", Reason: "at least one intern is required"}
	}
	seen := map[int64]bool{}
	for _, id := range opts.InternIDs {
		if seen[id] {
			return domain.InternshipRequest{}, fault.ValidationError{Field: "intern_ids", Reason: "duplicate intern"}
		}
		seen[id] = true
	}
	if opts.DocumentPath != nil && *opts.DocumentPath != "" && e.Blobs != nil && !e.Blobs.Exists(*opts.DocumentPath) {
		return domain.InternshipRequest{}, fault.ValidationError{Field: "document_path", Reason: "unknown document"}
	}

	tx, err := e.DB.BeginTx(ctx, nil)
	if err != nil {
		return domain.InternshipRequest{}, err
	}
	defer tx.Rollback()

	for _, id := range opts.InternIDs {
		if err := e.requireActivePerson(ctx, tx, id, domain.RoleIntern); err != nil {
			return domain.InternshipRequest{}, err
		}
	}

	req := domain.InternshipRequest{
		InternIDs:         opts.InternIDs,
		DirectionMemberID: actor.ID,
		DocumentPath:      opts.DocumentPath,
		Status:            domain.RequestPending,
		CreatedAt:         e.timestamp(),
	}
	req.ID, err = e.Repo.InsertRequestTx(ctx, tx, req)
	if err != nil {
		return domain.InternshipRequest{}, err
	}
	if err := e.Events.Append(ctx, tx, "request.created", "request", req.ID, actor.ID, events.EventPayload{
		"intern_ids": req.InternIDs,
	}); err != nil {
		return domain.InternshipRequest{}, err
	}
	if err := tx.Commit(); err != nil {
		return domain.InternshipRequest{}, err
	}
	return req, nil
}

// DecideRequest accepts or rejects a pending request. Acceptance opens
// the agreement negotiation in the same transaction, so a request never
// reads accepted without its agreement existing. A rejection must carry
// a comment.
func (e Engine) DecideRequest(ctx context.Context, actor domain.Actor, id int64, accept bool, comment *string) (domain.InternshipRequest, error) {
	if err := requireRole(actor, domain.RoleAdmin); err != nil {
		return domain.InternshipRequest{}, err
	}
	status := domain.RequestRejected
	if accept {
		status = domain.RequestAccepted
	} else if comment == nil || *comment == "" {
		return domain.InternshipRequest{}, fault.ValidationError{Field: "comment", Reason: "rejection requires a comment"}
	}

	tx, err := e.DB.BeginTx(ctx, nil)
	if err != nil {
		return domain.InternshipRequest{}, err
	}
	defer tx.Rollback()

	won, err := e.Repo.DecideRequestTx(ctx, tx, id, status, comment)
	if err != nil {
		return domain.InternshipRequest{}, err
	}
	if !won {
		req, err := e.Repo.GetRequestTx(ctx, tx, id)
		if err != nil {
			return domain.InternshipRequest{}, err
		}
		return domain.InternshipRequest{}, fault.InvalidTransitionError{Entity: "request", From: req.Status, To: status}
	}
	if accept {
		now := e.timestamp()
		agreementID, err := e.Repo.InsertAgreementTx(ctx, tx, domain.AgreementRequest{
			RequestID: id,
			Status:    domain.AgreementInProgress,
			CreatedAt: now,
			UpdatedAt: now,
		})
		if err != nil {
			return domain.InternshipRequest{}, err
		}
		if err := e.Events.Append(ctx, tx, "agreement.opened", "agreement", agreementID, actor.ID, events.EventPayload{
			"request_id": id,
		}); err != nil {
			return domain.InternshipRequest{}, err
		}
	}
	if err := e.Events.Append(ctx, tx, "request.decided", "request", id, actor.ID, events.EventPayload{
		"status": status,
	}); err != nil {
		return domain.InternshipRequest{}, err
	}
	req, err := e.Repo.GetRequestTx(ctx, tx, id)
	if err != nil {
		return domain.InternshipRequest{}, err
	}
	if err := tx.Commit(); err != nil {
		return domain.InternshipRequest{}, err
	}
	return req, nil
}

// DeleteRequest hard-deletes a request. Requests with a live agreement
// cannot be deleted; delete the agreement first.
func (e Engine) DeleteRequest(ctx context.Context, actor domain.Actor, id int64) error {
	if err := requireRole(actor, domain.RoleAdmin); err != nil {
		return err
	}

	tx, err := e.DB.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if _, err := e.Repo.GetRequestTx(ctx, tx, id); err != nil {
		return err
	}
	if _, err := e.Repo.GetAgreementByRequestTx(ctx, tx, id); err == nil {
		return fault.ConflictError{Reason: "request has a dependent agreement"}
	} else if !errors.Is(err, repo.ErrNotFound) {
		return err
	}
	if err := e.Repo.DeleteRequestTx(ctx, tx, id); err != nil {
		return err
	}
	if err := e.Events.Append(ctx, tx, "request.deleted", "request", id, actor.ID, nil); err != nil {
		return err
	}
	return tx.Commit()
}

// AttachRequestDocument links an uploaded document to a request.
func (e Engine) AttachRequestDocument(ctx context.Context, actor domain.Actor, id int64, documentPath string) error {
	if err := requireRole(actor, domain.RoleDirectionMember, domain.RoleAdmin); err != nil {
		return err
	}
	if documentPath == "" {
		return fault.ValidationError{Field: "document_path", Reason: "required"}
	}
	if e.Blobs != nil && !e.Blobs.Exists(documentPath) {
		return fault.ValidationError{Field: "document_path", Reason: "unknown document"}
	}
	return e.Repo.SetRequestDocument(ctx, id, documentPath)
}
