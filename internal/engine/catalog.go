package engine

import (
	"context"

	"stagehub/internal/config"
	"stagehub/internal/domain"
	"stagehub/internal/engine/fault"
	"stagehub/internal/repo"
)

// CreatePerson adds someone to the directory.
func (e Engine) CreatePerson(ctx context.Context, actor domain.Actor, name, role string) (domain.Person, error) {
	if err := requireRole(actor, domain.RoleAdmin); err != nil {
		return domain.Person{}, err
	}
	if name == "" {
		return domain.Person{}, fault.ValidationError{Field: "name", Reason: "required"}
	}
	switch role {
	case domain.RoleAdmin, domain.RoleDirectionMember, domain.RoleDepartmentHead, domain.RoleSupervisor, domain.RoleIntern:
	default:
		return domain.Person{}, fault.ValidationError{Field: "role", Reason: "unknown role"}
	}
	p := domain.Person{
		Name:      name,
		Role:      role,
		Active:    true,
		Available: true,
		CreatedAt: e.timestamp(),
	}
	id, err := e.Repo.InsertPerson(ctx, p)
	if err != nil {
		return domain.Person{}, err
	}
	p.ID = id
	return p, nil
}

// SetPersonFlags toggles the active and available flags.
func (e Engine) SetPersonFlags(ctx context.Context, actor domain.Actor, id int64, active, available *bool) (domain.Person, error) {
	if err := requireRole(actor, domain.RoleAdmin); err != nil {
		return domain.Person{}, err
	}
	if err := e.Repo.UpdatePersonFlags(ctx, id, active, available); err != nil {
		return domain.Person{}, err
	}
	return e.Repo.GetPerson(ctx, id)
}

// CreateDepartment adds a department to the reference catalog.
func (e Engine) CreateDepartment(ctx context.Context, actor domain.Actor, name string) (domain.Department, error) {
	if err := requireRole(actor, domain.RoleAdmin); err != nil {
		return domain.Department{}, err
	}
	if name == "" {
		return domain.Department{}, fault.ValidationError{Field: "name", Reason: "required"}
	}
	id, err := e.Repo.InsertDepartment(ctx, name)
	if err != nil {
		if isUniqueViolation(err) {
			return domain.Department{}, fault.ConflictError{Reason: "department already exists"}
		}
		return domain.Department{}, err
	}
	return domain.Department{ID: id, Name: name}, nil
}

// CreateDomain adds a domain under an existing department.
func (e Engine) CreateDomain(ctx context.Context, actor domain.Actor, name string, departmentID int64) (domain.Domain, error) {
	if err := requireRole(actor, domain.RoleAdmin); err != nil {
		return domain.Domain{}, err
	}
	if name == "" {
		return domain.Domain{}, fault.ValidationError{Field: "name", Reason: "required"}
	}
	if _, err := e.Repo.GetDepartment(ctx, departmentID); err != nil {
		return domain.Domain{}, err
	}
	id, err := e.Repo.InsertDomain(ctx, name, departmentID)
	if err != nil {
		if isUniqueViolation(err) {
			return domain.Domain{}, fault.ConflictError{Reason: "domain already exists in department"}
		}
		return domain.Domain{}, err
	}
	return domain.Domain{ID: id, Name: name, DepartmentID: departmentID}, nil
}

// SeedCatalog loads the reference catalog from config into an empty
// database. Existing rows make it a no-op, so restarts are safe.
func (e Engine) SeedCatalog(ctx context.Context, seed config.Seed) error {
	depts, err := e.Repo.ListDepartments(ctx)
	if err != nil {
		return err
	}
	people, err := e.Repo.ListPeople(ctx, repo.PersonFilters{})
	if err != nil {
		return err
	}
	if len(depts) == 0 {
		for _, d := range seed.Departments {
			deptID, err := e.Repo.InsertDepartment(ctx, d.Name)
			if err != nil {
				return err
			}
			for _, dom := range d.Domains {
				if _, err := e.Repo.InsertDomain(ctx, dom, deptID); err != nil {
					return err
				}
			}
		}
	}
	if len(people) == 0 {
		now := e.timestamp()
		for _, p := range seed.People {
			if _, err := e.Repo.InsertPerson(ctx, domain.Person{
				Name:      p.Name,
				Role:      p.Role,
				Active:    true,
				Available: true,
				CreatedAt: now,
			}); err != nil {
				return err
			}
		}
	}
	return nil
}
