package postgres

import (
	"context"
	"database/sql"
	"fmt"

	"ignitia/internal/domain"
)

const requestColumns = `r.id, r.team_id, r.user_id, COALESCE(r.leader_id::text, ''), r.status, r.created_at`

type requestRepository struct {
	DB *sql.DB
}

// NewRequestRepository returns a RequestRepository serving both ledgers. The outbound ledger is the
// join_requests table and the inbound ledger is team_invitations; both share one column layout.
func NewRequestRepository(db *sql.DB) domain.RequestRepository {
	return &requestRepository{DB: db}
}

func ledgerTable(dir domain.Direction) (string, error) {
	switch dir {
	case domain.Outbound:
		return "join_requests", nil
	case domain.Inbound:
		return "team_invitations", nil
	}
	return "", fmt.Errorf("unknown request direction %q", dir)
}

func scanRequest(row rowScanner, dir domain.Direction) (*domain.PendingRequest, error) {
	req := &domain.PendingRequest{Direction: dir}
	if err := row.Scan(&req.ID, &req.TeamID, &req.UserID, &req.LeaderID, &req.Status, &req.CreatedAt); err != nil {
		return nil, err
	}
	return req, nil
}

func (r *requestRepository) Create(ctx context.Context, req *domain.PendingRequest) error {
	table, err := ledgerTable(req.Direction)
	if err != nil {
		return err
	}
	query := `
		INSERT INTO ` + table + ` (team_id, user_id, leader_id, status, created_at)
		VALUES ($1, $2, NULLIF($3, '')::uuid, $4, $5)
		RETURNING id
	`
	err = executorFrom(ctx, r.DB).QueryRowContext(ctx, query,
		req.TeamID, req.UserID, req.LeaderID, string(req.Status), req.CreatedAt,
	).Scan(&req.ID)
	if _, ok := isUniqueViolation(err); ok {
		return domain.ErrRequestAlreadySent
	}
	return err
}

func (r *requestRepository) Get(ctx context.Context, dir domain.Direction, teamID, userID string) (*domain.PendingRequest, error) {
	table, err := ledgerTable(dir)
	if err != nil {
		return nil, err
	}
	query := `SELECT ` + requestColumns + ` FROM ` + table + ` r WHERE r.team_id = $1 AND r.user_id = $2`
	req, err := scanRequest(executorFrom(ctx, r.DB).QueryRowContext(ctx, query, teamID, userID), dir)
	if err != nil {
		return nil, notFound(err)
	}
	return req, nil
}

func (r *requestRepository) ListByUser(ctx context.Context, dir domain.Direction, userID string) ([]*domain.PendingRequest, error) {
	return r.listDetailed(ctx, dir, `r.user_id = $1`, userID)
}

func (r *requestRepository) ListByTeam(ctx context.Context, dir domain.Direction, teamID string) ([]*domain.PendingRequest, error) {
	return r.listDetailed(ctx, dir, `r.team_id = $1`, teamID)
}

func (r *requestRepository) listDetailed(ctx context.Context, dir domain.Direction, where string, arg any) ([]*domain.PendingRequest, error) {
	table, err := ledgerTable(dir)
	if err != nil {
		return nil, err
	}
	query := `
		SELECT ` + requestColumns + `, t.name, u.email, u.first_name, u.last_name, u.mobile_number, u.reg_no
		FROM ` + table + ` r
		JOIN teams t ON t.id = r.team_id
		JOIN users u ON u.id = r.user_id
		WHERE ` + where + `
		ORDER BY r.created_at, r.id`
	rows, err := executorFrom(ctx, r.DB).QueryContext(ctx, query, arg)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := make([]*domain.PendingRequest, 0)
	for rows.Next() {
		req := &domain.PendingRequest{Direction: dir, User: &domain.MemberProfile{}}
		if err := rows.Scan(&req.ID, &req.TeamID, &req.UserID, &req.LeaderID, &req.Status, &req.CreatedAt,
			&req.TeamName, &req.User.Email, &req.User.FirstName, &req.User.LastName, &req.User.MobileNumber, &req.User.RegNo); err != nil {
			return nil, err
		}
		req.User.ID = req.UserID
		out = append(out, req)
	}
	return out, rows.Err()
}

func (r *requestRepository) CountByUser(ctx context.Context, dir domain.Direction, userID string) (int, error) {
	table, err := ledgerTable(dir)
	if err != nil {
		return 0, err
	}
	var n int
	err = executorFrom(ctx, r.DB).QueryRowContext(ctx, `SELECT COUNT(*) FROM `+table+` WHERE user_id = $1`, userID).Scan(&n)
	return n, err
}

func (r *requestRepository) Delete(ctx context.Context, dir domain.Direction, teamID, userID string) error {
	table, err := ledgerTable(dir)
	if err != nil {
		return err
	}
	res, err := executorFrom(ctx, r.DB).ExecContext(ctx, `DELETE FROM `+table+` WHERE team_id = $1 AND user_id = $2`, teamID, userID)
	if err != nil {
		return err
	}
	return expectOneRow(res)
}

func (r *requestRepository) DeleteByUser(ctx context.Context, dir domain.Direction, userID string) ([]*domain.PendingRequest, error) {
	return r.deleteReturning(ctx, dir, `user_id = $1`, userID)
}

func (r *requestRepository) DeleteByTeam(ctx context.Context, dir domain.Direction, teamID string) ([]*domain.PendingRequest, error) {
	return r.deleteReturning(ctx, dir, `team_id = $1`, teamID)
}

func (r *requestRepository) deleteReturning(ctx context.Context, dir domain.Direction, where string, arg any) ([]*domain.PendingRequest, error) {
	table, err := ledgerTable(dir)
	if err != nil {
		return nil, err
	}
	query := `DELETE FROM ` + table + ` r WHERE ` + where + ` RETURNING ` + requestColumns
	rows, err := executorFrom(ctx, r.DB).QueryContext(ctx, query, arg)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := make([]*domain.PendingRequest, 0)
	for rows.Next() {
		req, err := scanRequest(rows, dir)
		if err != nil {
			return nil, err
		}
		out = append(out, req)
	}
	return out, rows.Err()
}
