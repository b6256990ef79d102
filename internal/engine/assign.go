package engine

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"stagehub/internal/domain"
	"stagehub/internal/engine/fault"
	"stagehub/internal/repo"
)

// requireActivePerson resolves a person and checks they hold the wanted
// role and are active. Availability is not required; use
// requireAssignable for assignment slots.
func (e Engine) requireActivePerson(ctx context.Context, tx *sql.Tx, id int64, role string) error {
	p, err := e.Repo.GetPersonTx(ctx, tx, id)
	if errors.Is(err, repo.ErrNotFound) {
		return fault.ValidationError{Field: role + "_id", Reason: "unknown person"}
	}
	if err != nil {
		return err
	}
	if p.Role != role {
		return fault.ValidationError{Field: role + "_id", Reason: "person does not hold role " + role}
	}
	if !p.Active {
		return fault.UnavailableError{Kind: role, ID: id}
	}
	return nil
}

// requireAssignable validates an assignment target: right role, active,
// and for supervisors also available. Reassigning the same person is a
// no-op and never re-checks availability, so repeating an assignment is
// idempotent.
func (e Engine) requireAssignable(ctx context.Context, tx *sql.Tx, id int64, role string, current *int64) error {
	if current != nil && *current == id {
		return nil
	}
	p, err := e.Repo.GetPersonTx(ctx, tx, id)
	if errors.Is(err, repo.ErrNotFound) {
		return fmt.Errorf("%s %d: %w", role, id, repo.ErrNotFound)
	}
	if err != nil {
		return err
	}
	if p.Role != role {
		return fault.ValidationError{Field: role + "_id", Reason: "person does not hold role " + role}
	}
	if !p.Active {
		return fault.UnavailableError{Kind: role, ID: id}
	}
	// available is a supervisor workload flag; heads are assignable
	// whenever active
	if role == domain.RoleSupervisor && !p.Available {
		return fault.UnavailableError{Kind: role, ID: id}
	}
	return nil
}

// requireDomainInDepartment checks that a domain belongs to a department.
func (e Engine) requireDomainInDepartment(ctx context.Context, tx *sql.Tx, domainID, departmentID int64) error {
	d, err := e.Repo.GetDomainTx(ctx, tx, domainID)
	if errors.Is(err, repo.ErrNotFound) {
		return fault.ValidationError{Field: "domain_id", Reason: "unknown domain"}
	}
	if err != nil {
		return err
	}
	if d.DepartmentID != departmentID {
		return fault.ValidationError{Field: "domain_id", Reason: "domain does not belong to the selected department"}
	}
	return nil
}
