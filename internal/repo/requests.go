package repo

import (
	"context"
	"database/sql"
	"strings"

	"stagehub/internal/domain"
)

func (r Repo) InsertRequestTx(ctx context.Context, tx *sql.Tx, req domain.InternshipRequest) (int64, error) {
	res, err := tx.ExecContext(ctx, `INSERT INTO internship_requests(direction_member_id,document_path,status,comment,created_at) VALUES (?,?,?,?,?)`,
		req.DirectionMemberID, nullableStringPtr(req.DocumentPath), req.Status, nullableStringPtr(req.Comment), req.CreatedAt)
	if err != nil {
		return 0, err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, err
	}
	for _, internID := range req.InternIDs {
		if _, err := tx.ExecContext(ctx, `INSERT INTO internship_request_interns(request_id,intern_id) VALUES (?,?)`, id, internID); err != nil {
			return 0, err
		}
	}
	return id, nil
}

func (r Repo) requestInterns(ctx context.Context, q interface {
	QueryContext(context.Context, string, ...any) (*sql.Rows, error)
}, requestID int64) ([]int64, error) {
	rows, err := q.QueryContext(ctx, `SELECT intern_id FROM internship_request_interns WHERE request_id=? ORDER BY intern_id ASC`, requestID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var ids []int64
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, nil
}

func scanRequest(row *sql.Row) (domain.InternshipRequest, error) {
	var req domain.InternshipRequest
	var docPath, comment sql.NullString
	err := row.Scan(&req.ID, &req.DirectionMemberID, &docPath, &req.Status, &comment, &req.CreatedAt)
	if err == sql.ErrNoRows {
		return req, ErrNotFound
	}
	if err != nil {
		return req, err
	}
	if docPath.Valid {
		req.DocumentPath = &docPath.String
	}
	if comment.Valid {
		req.Comment = &comment.String
	}
	return req, nil
}

func (r Repo) GetRequest(ctx context.Context, id int64) (domain.InternshipRequest, error) {
	req, err := scanRequest(r.DB.QueryRowContext(ctx, `SELECT id,direction_member_id,document_path,status,comment,created_at FROM internship_requests WHERE id=?`, id))
	if err != nil {
		return req, err
	}
	req.InternIDs, err = r.requestInterns(ctx, r.DB, id)
	return req, err
}

func (r Repo) GetRequestTx(ctx context.Context, tx *sql.Tx, id int64) (domain.InternshipRequest, error) {
	req, err := scanRequest(tx.QueryRowContext(ctx, `SELECT id,direction_member_id,document_path,status,comment,created_at FROM internship_requests WHERE id=?`, id))
	if err != nil {
		return req, err
	}
	req.InternIDs, err = r.requestInterns(ctx, tx, id)
	return req, err
}

type RequestFilters struct {
	Status            string
	DirectionMemberID int64
	Limit             int
}

func (r Repo) ListRequests(ctx context.Context, f RequestFilters) ([]domain.InternshipRequest, error) {
	var clauses []string
	var args []any
	if f.Status != "" {
		clauses = append(clauses, "status=?")
		args = append(args, f.Status)
	}
	if f.DirectionMemberID > 0 {
		clauses = append(clauses, "direction_member_id=?")
		args = append(args, f.DirectionMemberID)
	}
	where := ""
	if len(clauses) > 0 {
		where = "WHERE " + strings.Join(clauses, " AND ")
	}
	query := `SELECT id,direction_member_id,document_path,status,comment,created_at FROM internship_requests ` + where + ` ORDER BY id DESC`
	if f.Limit > 0 {
		query += " LIMIT ?"
		args = append(args, f.Limit)
	}
	rows, err := r.DB.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var res []domain.InternshipRequest
	for rows.Next() {
		var req domain.InternshipRequest
		var docPath, comment sql.NullString
		if err := rows.Scan(&req.ID, &req.DirectionMemberID, &docPath, &req.Status, &comment, &req.CreatedAt); err != nil {
			return nil, err
		}
		if docPath.Valid {
			req.DocumentPath = &docPath.String
		}
		if comment.Valid {
			req.Comment = &comment.String
		}
		res = append(res, req)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	for i := range res {
		interns, err := r.requestInterns(ctx, r.DB, res[i].ID)
		if err != nil {
			return nil, err
		}
		res[i].InternIDs = interns
	}
	return res, nil
}

// DecideRequestTx flips a pending request to its terminal status. The
// status guard in the WHERE clause makes concurrent decisions race-safe:
// exactly one wins, the rest see zero rows.
func (r Repo) DecideRequestTx(ctx context.Context, tx *sql.Tx, id int64, status string, comment *string) (bool, error) {
	res, err := tx.ExecContext(ctx, `UPDATE internship_requests SET status=?, comment=? WHERE id=? AND status='pending'`,
		status, nullableStringPtr(comment), id)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	return n > 0, err
}

// DeleteRequestTx hard-deletes a request and its intern junction rows.
func (r Repo) DeleteRequestTx(ctx context.Context, tx *sql.Tx, id int64) error {
	if _, err := tx.ExecContext(ctx, `DELETE FROM internship_request_interns WHERE request_id=?`, id); err != nil {
		return err
	}
	res, err := tx.ExecContext(ctx, `DELETE FROM internship_requests WHERE id=?`, id)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

func (r Repo) SetRequestDocument(ctx context.Context, id int64, documentPath string) error {
	res, err := r.DB.ExecContext(ctx, `UPDATE internship_requests SET document_path=? WHERE id=?`, documentPath, id)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}
