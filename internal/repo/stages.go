package repo

import (
	"context"
	"database/sql"
	"strings"

	"stagehub/internal/domain"
)

const stageCols = `id,agreement_request_id,intern_ids_json,supervisor_id,department_id,domain_id,start_date,end_date,status,created_at`

func (r Repo) InsertStageTx(ctx context.Context, tx *sql.Tx, s domain.Stage) (int64, error) {
	res, err := tx.ExecContext(ctx, `INSERT INTO stages(agreement_request_id,intern_ids_json,supervisor_id,department_id,domain_id,start_date,end_date,status,created_at) VALUES (?,?,?,?,?,?,?,?,?)`,
		s.AgreementRequestID, marshalIDs(s.InternIDs), s.SupervisorID, s.DepartmentID, s.DomainID, s.StartDate, s.EndDate, s.Status, s.CreatedAt)
	if err != nil {
		return 0, err
	}
	return res.LastInsertId()
}

type stageScanner interface {
	Scan(dest ...any) error
}

func scanStage(row stageScanner) (domain.Stage, error) {
	var s domain.Stage
	var internIDs string
	err := row.Scan(&s.ID, &s.AgreementRequestID, &internIDs, &s.SupervisorID, &s.DepartmentID, &s.DomainID, &s.StartDate, &s.EndDate, &s.Status, &s.CreatedAt)
	if err == sql.ErrNoRows {
		return s, ErrNotFound
	}
	if err != nil {
		return s, err
	}
	s.InternIDs, err = unmarshalIDs(internIDs)
	return s, err
}

func (r Repo) GetStage(ctx context.Context, id int64) (domain.Stage, error) {
	return scanStage(r.DB.QueryRowContext(ctx, `SELECT `+stageCols+` FROM stages WHERE id=?`, id))
}

func (r Repo) GetStageTx(ctx context.Context, tx *sql.Tx, id int64) (domain.Stage, error) {
	return scanStage(tx.QueryRowContext(ctx, `SELECT `+stageCols+` FROM stages WHERE id=?`, id))
}

func (r Repo) GetStageByAgreement(ctx context.Context, agreementID int64) (domain.Stage, error) {
	return scanStage(r.DB.QueryRowContext(ctx, `SELECT `+stageCols+` FROM stages WHERE agreement_request_id=?`, agreementID))
}

func (r Repo) GetStageByAgreementTx(ctx context.Context, tx *sql.Tx, agreementID int64) (domain.Stage, error) {
	return scanStage(tx.QueryRowContext(ctx, `SELECT `+stageCols+` FROM stages WHERE agreement_request_id=?`, agreementID))
}

type StageFilters struct {
	Status       string
	SupervisorID int64
	DepartmentID int64
	Limit        int
}

func (r Repo) ListStages(ctx context.Context, f StageFilters) ([]domain.Stage, error) {
	var clauses []string
	var args []any
	if f.Status != "" {
		clauses = append(clauses, "status=?")
		args = append(args, f.Status)
	}
	if f.SupervisorID > 0 {
		clauses = append(clauses, "supervisor_id=?")
		args = append(args, f.SupervisorID)
	}
	if f.DepartmentID > 0 {
		clauses = append(clauses, "department_id=?")
		args = append(args, f.DepartmentID)
	}
	where := ""
	if len(clauses) > 0 {
		where = "WHERE " + strings.Join(clauses, " AND ")
	}
	query := `SELECT ` + stageCols + ` FROM stages ` + where + ` ORDER BY id DESC`
	if f.Limit > 0 {
		query += " LIMIT ?"
		args = append(args, f.Limit)
	}
	rows, err := r.DB.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var res []domain.Stage
	for rows.Next() {
		s, err := scanStage(rows)
		if err != nil {
			return nil, err
		}
		res = append(res, s)
	}
	return res, rows.Err()
}

// SetStageStatusTx moves a stage from one status to another. The from
// guard makes the transition a compare-and-set.
func (r Repo) SetStageStatusTx(ctx context.Context, tx *sql.Tx, id int64, from, to string) (bool, error) {
	res, err := tx.ExecContext(ctx, `UPDATE stages SET status=? WHERE id=? AND status=?`, to, id, from)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	return n > 0, err
}

func (r Repo) ExtendStageTx(ctx context.Context, tx *sql.Tx, id int64, endDate string) (bool, error) {
	res, err := tx.ExecContext(ctx, `UPDATE stages SET end_date=?, status='extended' WHERE id=? AND status IN ('active','extended')`, endDate, id)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	return n > 0, err
}

func (r Repo) CountStagesByStatus(ctx context.Context) (map[string]int, error) {
	rows, err := r.DB.QueryContext(ctx, `SELECT status, count(*) FROM stages GROUP BY status`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	res := map[string]int{}
	for rows.Next() {
		var status string
		var count int
		if err := rows.Scan(&status, &count); err != nil {
			return nil, err
		}
		res[status] = count
	}
	return res, nil
}
