package repo

import (
	"context"
	"database/sql"
	"strings"

	"stagehub/internal/domain"
)

const agreementCols = `id,request_id,status,theme_name,department_id,domain_id,nature_of_internship,institution,specialty,degree_sought,department_head_id,host_service,start_date,end_date,sessions_per_week,session_duration_hours,supervisor_id,created_at,updated_at`

func (r Repo) InsertAgreementTx(ctx context.Context, tx *sql.Tx, a domain.AgreementRequest) (int64, error) {
	res, err := tx.ExecContext(ctx, `INSERT INTO agreement_requests(request_id,status,created_at,updated_at) VALUES (?,?,?,?)`,
		a.RequestID, a.Status, a.CreatedAt, a.UpdatedAt)
	if err != nil {
		return 0, err
	}
	return res.LastInsertId()
}

type agreementScanner interface {
	Scan(dest ...any) error
}

func scanAgreement(row agreementScanner) (domain.AgreementRequest, error) {
	var a domain.AgreementRequest
	var departmentID, domainID, departmentHeadID, supervisorID sql.NullInt64
	var hostService sql.NullString
	err := row.Scan(&a.ID, &a.RequestID, &a.Status, &a.ThemeName, &departmentID, &domainID,
		&a.NatureOfInternship, &a.Institution, &a.Specialty, &a.DegreeSought, &departmentHeadID,
		&hostService, &a.StartDate, &a.EndDate, &a.SessionsPerWeek, &a.SessionDurationHours,
		&supervisorID, &a.CreatedAt, &a.UpdatedAt)
	if err == sql.ErrNoRows {
		return a, ErrNotFound
	}
	if err != nil {
		return a, err
	}
	if departmentID.Valid {
		a.DepartmentID = &departmentID.Int64
	}
	if domainID.Valid {
		a.DomainID = &domainID.Int64
	}
	if departmentHeadID.Valid {
		a.DepartmentHeadID = &departmentHeadID.Int64
	}
	if hostService.Valid {
		a.HostService = &hostService.String
	}
	if supervisorID.Valid {
		a.SupervisorID = &supervisorID.Int64
	}
	return a, nil
}

func (r Repo) GetAgreement(ctx context.Context, id int64) (domain.AgreementRequest, error) {
	return scanAgreement(r.DB.QueryRowContext(ctx, `SELECT `+agreementCols+` FROM agreement_requests WHERE id=?`, id))
}

func (r Repo) GetAgreementTx(ctx context.Context, tx *sql.Tx, id int64) (domain.AgreementRequest, error) {
	return scanAgreement(tx.QueryRowContext(ctx, `SELECT `+agreementCols+` FROM agreement_requests WHERE id=?`, id))
}

func (r Repo) GetAgreementByRequest(ctx context.Context, requestID int64) (domain.AgreementRequest, error) {
	return scanAgreement(r.DB.QueryRowContext(ctx, `SELECT `+agreementCols+` FROM agreement_requests WHERE request_id=?`, requestID))
}

func (r Repo) GetAgreementByRequestTx(ctx context.Context, tx *sql.Tx, requestID int64) (domain.AgreementRequest, error) {
	return scanAgreement(tx.QueryRowContext(ctx, `SELECT `+agreementCols+` FROM agreement_requests WHERE request_id=?`, requestID))
}

// DeleteAgreementTx hard-deletes an agreement request.
func (r Repo) DeleteAgreementTx(ctx context.Context, tx *sql.Tx, id int64) error {
	res, err := tx.ExecContext(ctx, `DELETE FROM agreement_requests WHERE id=?`, id)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

type AgreementFilters struct {
	Status       string
	SupervisorID int64
	Limit        int
}

func (r Repo) ListAgreements(ctx context.Context, f AgreementFilters) ([]domain.AgreementRequest, error) {
	var clauses []string
	var args []any
	if f.Status != "" && f.Status != domain.AgreementPending {
		clauses = append(clauses, "status=?")
		args = append(args, f.Status)
	}
	if f.SupervisorID > 0 {
		clauses = append(clauses, "supervisor_id=?")
		args = append(args, f.SupervisorID)
	}
	where := ""
	if len(clauses) > 0 {
		where = "WHERE " + strings.Join(clauses, " AND ")
	}
	query := `SELECT ` + agreementCols + ` FROM agreement_requests ` + where + ` ORDER BY id DESC`
	if f.Limit > 0 {
		query += " LIMIT ?"
		args = append(args, f.Limit)
	}
	rows, err := r.DB.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var res []domain.AgreementRequest
	for rows.Next() {
		a, err := scanAgreement(rows)
		if err != nil {
			return nil, err
		}
		// "pending" is a projection, so it has to be filtered after scan.
		if f.Status == domain.AgreementPending && a.EffectiveStatus() != domain.AgreementPending {
			continue
		}
		res = append(res, a)
	}
	return res, rows.Err()
}

// AgreementPatch carries the fields of a section update. Nil means the
// field is not touched.
type AgreementPatch struct {
	ThemeName            *string
	DepartmentID         *int64
	DomainID             *int64
	NatureOfInternship   *string
	Institution          *string
	Specialty            *string
	DegreeSought         *string
	DepartmentHeadID     *int64
	HostService          *string
	StartDate            *string
	EndDate              *string
	SessionsPerWeek      *int
	SessionDurationHours *int
	SupervisorID         *int64
}

// UpdateAgreementTx applies a patch guarded on status='in_progress'.
// Returns false when the row is missing or already decided.
func (r Repo) UpdateAgreementTx(ctx context.Context, tx *sql.Tx, id int64, p AgreementPatch, updatedAt string) (bool, error) {
	var (
		fields []string
		args   []any
	)
	set := func(col string, v any) {
		fields = append(fields, col+"=?")
		args = append(args, v)
	}
	if p.ThemeName != nil {
		set("theme_name", *p.ThemeName)
	}
	if p.DepartmentID != nil {
		set("department_id", *p.DepartmentID)
	}
	if p.DomainID != nil {
		set("domain_id", *p.DomainID)
	}
	if p.NatureOfInternship != nil {
		set("nature_of_internship", *p.NatureOfInternship)
	}
	if p.Institution != nil {
		set("institution", *p.Institution)
	}
	if p.Specialty != nil {
		set("specialty", *p.Specialty)
	}
	if p.DegreeSought != nil {
		set("degree_sought", *p.DegreeSought)
	}
	if p.DepartmentHeadID != nil {
		set("department_head_id", *p.DepartmentHeadID)
	}
	if p.HostService != nil {
		set("host_service", *p.HostService)
	}
	if p.StartDate != nil {
		set("start_date", *p.StartDate)
	}
	if p.EndDate != nil {
		set("end_date", *p.EndDate)
	}
	if p.SessionsPerWeek != nil {
		set("sessions_per_week", *p.SessionsPerWeek)
	}
	if p.SessionDurationHours != nil {
		set("session_duration_hours", *p.SessionDurationHours)
	}
	if p.SupervisorID != nil {
		set("supervisor_id", *p.SupervisorID)
	}
	if len(fields) == 0 {
		return true, nil
	}
	set("updated_at", updatedAt)
	args = append(args, id)
	res, err := tx.ExecContext(ctx, `UPDATE agreement_requests SET `+strings.Join(fields, ",")+` WHERE id=? AND status='in_progress'`, args...)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	return n > 0, err
}

// DecideAgreementTx flips an undecided agreement to accepted or rejected.
// The status guard makes the decision a compare-and-set.
func (r Repo) DecideAgreementTx(ctx context.Context, tx *sql.Tx, id int64, status, updatedAt string) (bool, error) {
	res, err := tx.ExecContext(ctx, `UPDATE agreement_requests SET status=?, updated_at=? WHERE id=? AND status='in_progress'`,
		status, updatedAt, id)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	return n > 0, err
}
