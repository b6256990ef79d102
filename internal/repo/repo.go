package repo

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"strings"

	"stagehub/internal/domain"
)

type Repo struct {
	DB *sql.DB
}

var ErrNotFound = errors.New("not found")

func nullable(v string) any {
	if v == "" {
		return nil
	}
	return v
}

func nullableStringPtr(v *string) any {
	if v == nil {
		return nil
	}
	if *v == "" {
		return nil
	}
	return *v
}

func marshalIDs(ids []int64) string {
	if ids == nil {
		ids = []int64{}
	}
	data, _ := json.Marshal(ids)
	return string(data)
}

func unmarshalIDs(payload string) ([]int64, error) {
	if payload == "" {
		return nil, nil
	}
	var ids []int64
	if err := json.Unmarshal([]byte(payload), &ids); err != nil {
		return nil, err
	}
	return ids, nil
}

func marshalStrings(vals []string) string {
	if vals == nil {
		vals = []string{}
	}
	data, _ := json.Marshal(vals)
	return string(data)
}

func unmarshalStrings(payload string) ([]string, error) {
	if payload == "" {
		return nil, nil
	}
	var vals []string
	if err := json.Unmarshal([]byte(payload), &vals); err != nil {
		return nil, err
	}
	return vals, nil
}

func (r Repo) InsertPerson(ctx context.Context, p domain.Person) (int64, error) {
	res, err := r.DB.ExecContext(ctx, `INSERT INTO people(name,role,active,available,created_at) VALUES (?,?,?,?,?)`,
		p.Name, p.Role, p.Active, p.Available, p.CreatedAt)
	if err != nil {
		return 0, err
	}
	return res.LastInsertId()
}

func scanPerson(row *sql.Row) (domain.Person, error) {
	var p domain.Person
	err := row.Scan(&p.ID, &p.Name, &p.Role, &p.Active, &p.Available, &p.CreatedAt)
	if err == sql.ErrNoRows {
		return p, ErrNotFound
	}
	return p, err
}

func (r Repo) GetPerson(ctx context.Context, id int64) (domain.Person, error) {
	return scanPerson(r.DB.QueryRowContext(ctx, `SELECT id,name,role,active,available,created_at FROM people WHERE id=?`, id))
}

func (r Repo) GetPersonTx(ctx context.Context, tx *sql.Tx, id int64) (domain.Person, error) {
	return scanPerson(tx.QueryRowContext(ctx, `SELECT id,name,role,active,available,created_at FROM people WHERE id=?`, id))
}

type PersonFilters struct {
	Role      string
	Active    *bool
	Available *bool
}

func (r Repo) ListPeople(ctx context.Context, f PersonFilters) ([]domain.Person, error) {
	var clauses []string
	var args []any
	if f.Role != "" {
		clauses = append(clauses, "role=?")
		args = append(args, f.Role)
	}
	if f.Active != nil {
		clauses = append(clauses, "active=?")
		args = append(args, *f.Active)
	}
	if f.Available != nil {
		clauses = append(clauses, "available=?")
		args = append(args, *f.Available)
	}
	where := ""
	if len(clauses) > 0 {
		where = "WHERE " + strings.Join(clauses, " AND ")
	}
	rows, err := r.DB.QueryContext(ctx, `SELECT id,name,role,active,available,created_at FROM people `+where+` ORDER BY id ASC`, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var res []domain.Person
	for rows.Next() {
		var p domain.Person
		if err := rows.Scan(&p.ID, &p.Name, &p.Role, &p.Active, &p.Available, &p.CreatedAt); err != nil {
			return nil, err
		}
		res = append(res, p)
	}
	return res, nil
}

func (r Repo) UpdatePersonFlags(ctx context.Context, id int64, active, available *bool) error {
	var (
		fields []string
		args   []any
	)
	if active != nil {
		fields = append(fields, "active=?")
		args = append(args, *active)
	}
	if available != nil {
		fields = append(fields, "available=?")
		args = append(args, *available)
	}
	if len(fields) == 0 {
		return nil
	}
	args = append(args, id)
	res, err := r.DB.ExecContext(ctx, `UPDATE people SET `+strings.Join(fields, ",")+` WHERE id=?`, args...)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

func (r Repo) InsertDepartment(ctx context.Context, name string) (int64, error) {
	res, err := r.DB.ExecContext(ctx, `INSERT INTO departments(name) VALUES (?)`, name)
	if err != nil {
		return 0, err
	}
	return res.LastInsertId()
}

func (r Repo) GetDepartment(ctx context.Context, id int64) (domain.Department, error) {
	var d domain.Department
	err := r.DB.QueryRowContext(ctx, `SELECT id,name FROM departments WHERE id=?`, id).Scan(&d.ID, &d.Name)
	if err == sql.ErrNoRows {
		return d, ErrNotFound
	}
	return d, err
}

func (r Repo) GetDepartmentTx(ctx context.Context, tx *sql.Tx, id int64) (domain.Department, error) {
	var d domain.Department
	err := tx.QueryRowContext(ctx, `SELECT id,name FROM departments WHERE id=?`, id).Scan(&d.ID, &d.Name)
	if err == sql.ErrNoRows {
		return d, ErrNotFound
	}
	return d, err
}

func (r Repo) ListDepartments(ctx context.Context) ([]domain.Department, error) {
	rows, err := r.DB.QueryContext(ctx, `SELECT id,name FROM departments ORDER BY id ASC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var res []domain.Department
	for rows.Next() {
		var d domain.Department
		if err := rows.Scan(&d.ID, &d.Name); err != nil {
			return nil, err
		}
		res = append(res, d)
	}
	return res, nil
}

func (r Repo) InsertDomain(ctx context.Context, name string, departmentID int64) (int64, error) {
	res, err := r.DB.ExecContext(ctx, `INSERT INTO domains(name,department_id) VALUES (?,?)`, name, departmentID)
	if err != nil {
		return 0, err
	}
	return res.LastInsertId()
}

func (r Repo) GetDomain(ctx context.Context, id int64) (domain.Domain, error) {
	var d domain.Domain
	err := r.DB.QueryRowContext(ctx, `SELECT id,name,department_id FROM domains WHERE id=?`, id).Scan(&d.ID, &d.Name, &d.DepartmentID)
	if err == sql.ErrNoRows {
		return d, ErrNotFound
	}
	return d, err
}

func (r Repo) GetDomainTx(ctx context.Context, tx *sql.Tx, id int64) (domain.Domain, error) {
	var d domain.Domain
	err := tx.QueryRowContext(ctx, `SELECT id,name,department_id FROM domains WHERE id=?`, id).Scan(&d.ID, &d.Name, &d.DepartmentID)
	if err == sql.ErrNoRows {
		return d, ErrNotFound
	}
	return d, err
}

func (r Repo) ListDomains(ctx context.Context, departmentID int64) ([]domain.Domain, error) {
	query := `SELECT id,name,department_id FROM domains`
	var args []any
	if departmentID > 0 {
		query += ` WHERE department_id=?`
		args = append(args, departmentID)
	}
	rows, err := r.DB.QueryContext(ctx, query+` ORDER BY id ASC`, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var res []domain.Domain
	for rows.Next() {
		var d domain.Domain
		if err := rows.Scan(&d.ID, &d.Name, &d.DepartmentID); err != nil {
			return nil, err
		}
		res = append(res, d)
	}
	return res, nil
}
