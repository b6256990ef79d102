package repo

import (
	"context"
	"database/sql"
	"strings"

	"stagehub/internal/domain"
)

const depositCols = `id,stage_id,supervisor_name,intern_names_json,theme_lines_json,submitted_at,status,validated_by,validated_at`

func (r Repo) InsertDepositTx(ctx context.Context, tx *sql.Tx, d domain.DepositRequest) (int64, error) {
	res, err := tx.ExecContext(ctx, `INSERT INTO deposit_requests(stage_id,supervisor_name,intern_names_json,theme_lines_json,submitted_at,status) VALUES (?,?,?,?,?,?)`,
		d.StageID, d.SupervisorName, marshalStrings(d.InternNames), nullable(marshalThemeLines(d.ThemeLines)), d.SubmittedAt, d.Status)
	if err != nil {
		return 0, err
	}
	return res.LastInsertId()
}

func marshalThemeLines(lines []string) string {
	if len(lines) == 0 {
		return ""
	}
	return marshalStrings(lines)
}

type depositScanner interface {
	Scan(dest ...any) error
}

func scanDeposit(row depositScanner) (domain.DepositRequest, error) {
	var d domain.DepositRequest
	var internNames string
	var themeLines, validatedAt sql.NullString
	var validatedBy sql.NullInt64
	err := row.Scan(&d.ID, &d.StageID, &d.SupervisorName, &internNames, &themeLines, &d.SubmittedAt, &d.Status, &validatedBy, &validatedAt)
	if err == sql.ErrNoRows {
		return d, ErrNotFound
	}
	if err != nil {
		return d, err
	}
	if d.InternNames, err = unmarshalStrings(internNames); err != nil {
		return d, err
	}
	if themeLines.Valid {
		if d.ThemeLines, err = unmarshalStrings(themeLines.String); err != nil {
			return d, err
		}
	}
	if validatedBy.Valid {
		d.ValidatedBy = &validatedBy.Int64
	}
	if validatedAt.Valid {
		d.ValidatedAt = &validatedAt.String
	}
	return d, nil
}

func (r Repo) GetDeposit(ctx context.Context, id int64) (domain.DepositRequest, error) {
	return scanDeposit(r.DB.QueryRowContext(ctx, `SELECT `+depositCols+` FROM deposit_requests WHERE id=?`, id))
}

func (r Repo) GetDepositTx(ctx context.Context, tx *sql.Tx, id int64) (domain.DepositRequest, error) {
	return scanDeposit(tx.QueryRowContext(ctx, `SELECT `+depositCols+` FROM deposit_requests WHERE id=?`, id))
}

type DepositFilters struct {
	Status  string
	StageID int64
	Limit   int
}

func (r Repo) ListDeposits(ctx context.Context, f DepositFilters) ([]domain.DepositRequest, error) {
	var clauses []string
	var args []any
	if f.Status != "" {
		clauses = append(clauses, "status=?")
		args = append(args, f.Status)
	}
	if f.StageID > 0 {
		clauses = append(clauses, "stage_id=?")
		args = append(args, f.StageID)
	}
	where := ""
	if len(clauses) > 0 {
		where = "WHERE " + strings.Join(clauses, " AND ")
	}
	query := `SELECT ` + depositCols + ` FROM deposit_requests ` + where + ` ORDER BY id DESC`
	if f.Limit > 0 {
		query += " LIMIT ?"
		args = append(args, f.Limit)
	}
	rows, err := r.DB.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var res []domain.DepositRequest
	for rows.Next() {
		d, err := scanDeposit(rows)
		if err != nil {
			return nil, err
		}
		res = append(res, d)
	}
	return res, rows.Err()
}

// DecideDepositTx flips a pending deposit to approved or rejected and
// stamps the validator.
func (r Repo) DecideDepositTx(ctx context.Context, tx *sql.Tx, id int64, status string, validatedBy int64, validatedAt string) (bool, error) {
	res, err := tx.ExecContext(ctx, `UPDATE deposit_requests SET status=?, validated_by=?, validated_at=? WHERE id=? AND status='pending'`,
		status, validatedBy, validatedAt, id)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	return n > 0, err
}

// ArchiveDepositTx archives a decided deposit.
func (r Repo) ArchiveDepositTx(ctx context.Context, tx *sql.Tx, id int64) (bool, error) {
	res, err := tx.ExecContext(ctx, `UPDATE deposit_requests SET status='archived' WHERE id=? AND status IN ('approved','rejected')`, id)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	return n > 0, err
}
