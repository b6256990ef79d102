package repo

import (
	"context"
	"database/sql"

	"stagehub/internal/domain"
)

func (r Repo) InsertConventionTx(ctx context.Context, tx *sql.Tx, c domain.Convention) (int64, error) {
	res, err := tx.ExecContext(ctx, `INSERT INTO conventions(stage_id,document_path,status,comment,created_at) VALUES (?,?,?,?,?)`,
		c.StageID, c.DocumentPath, c.Status, nullableStringPtr(c.Comment), c.CreatedAt)
	if err != nil {
		return 0, err
	}
	return res.LastInsertId()
}

func scanConvention(row *sql.Row) (domain.Convention, error) {
	var c domain.Convention
	var comment sql.NullString
	err := row.Scan(&c.ID, &c.StageID, &c.DocumentPath, &c.Status, &comment, &c.CreatedAt)
	if err == sql.ErrNoRows {
		return c, ErrNotFound
	}
	if comment.Valid {
		c.Comment = &comment.String
	}
	return c, err
}

func (r Repo) GetConvention(ctx context.Context, id int64) (domain.Convention, error) {
	return scanConvention(r.DB.QueryRowContext(ctx, `SELECT id,stage_id,document_path,status,comment,created_at FROM conventions WHERE id=?`, id))
}

func (r Repo) GetConventionTx(ctx context.Context, tx *sql.Tx, id int64) (domain.Convention, error) {
	return scanConvention(tx.QueryRowContext(ctx, `SELECT id,stage_id,document_path,status,comment,created_at FROM conventions WHERE id=?`, id))
}

func (r Repo) GetConventionByStage(ctx context.Context, stageID int64) (domain.Convention, error) {
	return scanConvention(r.DB.QueryRowContext(ctx, `SELECT id,stage_id,document_path,status,comment,created_at FROM conventions WHERE stage_id=?`, stageID))
}

func (r Repo) ListConventions(ctx context.Context, status string) ([]domain.Convention, error) {
	query := `SELECT id,stage_id,document_path,status,comment,created_at FROM conventions`
	var args []any
	if status != "" {
		query += ` WHERE status=?`
		args = append(args, status)
	}
	rows, err := r.DB.QueryContext(ctx, query+` ORDER BY id DESC`, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var res []domain.Convention
	for rows.Next() {
		var c domain.Convention
		var comment sql.NullString
		if err := rows.Scan(&c.ID, &c.StageID, &c.DocumentPath, &c.Status, &comment, &c.CreatedAt); err != nil {
			return nil, err
		}
		if comment.Valid {
			c.Comment = &comment.String
		}
		res = append(res, c)
	}
	return res, rows.Err()
}

func (r Repo) GetConventionByStageTx(ctx context.Context, tx *sql.Tx, stageID int64) (domain.Convention, error) {
	return scanConvention(tx.QueryRowContext(ctx, `SELECT id,stage_id,document_path,status,comment,created_at FROM conventions WHERE stage_id=?`, stageID))
}

// SetConventionDocumentTx replaces the document on the current convention.
func (r Repo) SetConventionDocumentTx(ctx context.Context, tx *sql.Tx, id int64, documentPath string) error {
	res, err := tx.ExecContext(ctx, `UPDATE conventions SET document_path=? WHERE id=?`, documentPath, id)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

// DecideConventionTx flips a pending convention to its terminal status.
func (r Repo) DecideConventionTx(ctx context.Context, tx *sql.Tx, id int64, status string, comment *string) (bool, error) {
	res, err := tx.ExecContext(ctx, `UPDATE conventions SET status=?, comment=? WHERE id=? AND status='pending'`,
		status, nullableStringPtr(comment), id)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	return n > 0, err
}
