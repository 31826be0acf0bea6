package postgres

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/lib/pq"

	"ignitia/internal/domain"
)

const userColumns = `id, login_type, COALESCE(username, ''), email, COALESCE(password_hash, ''), COALESCE(salt, ''),
	has_filled_details, first_name, last_name, mobile_number, reg_no, registered_events,
	yantra_team_id, yantra_team_role, yantra_pending_requests, created_at, updated_at`

type userRepository struct {
	DB *sql.DB
}

func NewUserRepository(db *sql.DB) domain.UserRepository {
	return &userRepository{DB: db}
}

func scanUser(row rowScanner) (*domain.User, error) {
	u := &domain.User{}
	var (
		events pq.Int64Array
		teamID sql.NullString
		role   sql.NullString
	)
	err := row.Scan(&u.ID, &u.LoginType, &u.Username, &u.Email, &u.PasswordHash, &u.Salt,
		&u.HasFilledDetails, &u.FirstName, &u.LastName, &u.MobileNumber, &u.RegNo, &events,
		&teamID, &role, &u.PendingRequests, &u.CreatedAt, &u.UpdatedAt)
	if err != nil {
		return nil, err
	}
	for i := 0; i < len(events) && i < domain.NumEvents; i++ {
		u.RegisteredEvents[i] = domain.RegistrationStatus(events[i])
	}
	if teamID.Valid {
		u.Affiliation = &domain.Affiliation{TeamID: teamID.String, Role: domain.TeamRole(role.String)}
	}
	return u, nil
}

func eventsArray(events domain.RegisteredEvents) pq.Int64Array {
	out := make(pq.Int64Array, len(events))
	for i, v := range events {
		out[i] = int64(v)
	}
	return out
}

func (r *userRepository) Create(ctx context.Context, u *domain.User) error {
	query := `
		INSERT INTO users (login_type, username, email, password_hash, salt, registered_events, created_at, updated_at)
		VALUES ($1, NULLIF($2, ''), $3, NULLIF($4, ''), NULLIF($5, ''), $6, $7, $8)
		RETURNING id
	`
	err := executorFrom(ctx, r.DB).QueryRowContext(ctx, query,
		int(u.LoginType), u.Username, u.Email, u.PasswordHash, u.Salt, eventsArray(u.RegisteredEvents), u.CreatedAt, u.UpdatedAt,
	).Scan(&u.ID)
	if pqErr, ok := isUniqueViolation(err); ok {
		if pqErr.Constraint == "users_username_key" {
			return domain.ErrDuplicateUsername
		}
		return domain.ErrDuplicateEmail
	}
	return err
}

func (r *userRepository) getOne(ctx context.Context, where string, arg any, lock bool) (*domain.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE ` + where
	if lock {
		query += ` FOR UPDATE`
	}
	u, err := scanUser(executorFrom(ctx, r.DB).QueryRowContext(ctx, query, arg))
	if err != nil {
		return nil, notFound(err)
	}
	return u, nil
}

func (r *userRepository) GetByID(ctx context.Context, id string) (*domain.User, error) {
	return r.getOne(ctx, `id = $1`, id, false)
}

func (r *userRepository) GetByEmail(ctx context.Context, email string) (*domain.User, error) {
	return r.getOne(ctx, `email = $1`, email, false)
}

func (r *userRepository) GetByUsername(ctx context.Context, username string) (*domain.User, error) {
	return r.getOne(ctx, `username = $1`, username, false)
}

func (r *userRepository) LockByID(ctx context.Context, id string) (*domain.User, error) {
	return r.getOne(ctx, `id = $1`, id, true)
}

func (r *userRepository) LockByEmail(ctx context.Context, email string) (*domain.User, error) {
	return r.getOne(ctx, `email = $1`, email, true)
}

func (r *userRepository) ListByIDs(ctx context.Context, ids []string) ([]*domain.User, error) {
	if len(ids) == 0 {
		return []*domain.User{}, nil
	}
	query := `SELECT ` + userColumns + ` FROM users WHERE id = ANY($1) ORDER BY created_at, id`
	return r.list(ctx, query, pq.Array(ids))
}

func (r *userRepository) list(ctx context.Context, query string, args ...any) ([]*domain.User, error) {
	rows, err := executorFrom(ctx, r.DB).QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	users := make([]*domain.User, 0)
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, err
		}
		users = append(users, u)
	}
	return users, rows.Err()
}

func (r *userRepository) UpdateDetails(ctx context.Context, id string, d domain.UserDetails) error {
	query := `
		UPDATE users
		SET first_name = $1, last_name = $2, mobile_number = $3, reg_no = $4, has_filled_details = true, updated_at = now()
		WHERE id = $5
	`
	res, err := executorFrom(ctx, r.DB).ExecContext(ctx, query, d.FirstName, d.LastName, d.MobileNumber, d.RegNo, id)
	if err != nil {
		return err
	}
	return expectOneRow(res)
}

func (r *userRepository) SetRegisteredEvents(ctx context.Context, id string, events domain.RegisteredEvents) error {
	query := `UPDATE users SET registered_events = $1, updated_at = now() WHERE id = $2`
	res, err := executorFrom(ctx, r.DB).ExecContext(ctx, query, eventsArray(events), id)
	if err != nil {
		return err
	}
	return expectOneRow(res)
}

func (r *userRepository) SetAffiliation(ctx context.Context, id string, a *domain.Affiliation) error {
	var teamID, role sql.NullString
	if a != nil {
		teamID = sql.NullString{String: a.TeamID, Valid: true}
		role = sql.NullString{String: string(a.Role), Valid: true}
	}
	query := `UPDATE users SET yantra_team_id = $1, yantra_team_role = $2, updated_at = now() WHERE id = $3`
	res, err := executorFrom(ctx, r.DB).ExecContext(ctx, query, teamID, role, id)
	if err != nil {
		return err
	}
	return expectOneRow(res)
}

func (r *userRepository) RefreshPendingRequests(ctx context.Context, ids ...string) error {
	if len(ids) == 0 {
		return nil
	}
	query := `
		UPDATE users u
		SET yantra_pending_requests = (SELECT COUNT(*) FROM join_requests j WHERE j.user_id = u.id)
		WHERE u.id = ANY($1)
	`
	_, err := executorFrom(ctx, r.DB).ExecContext(ctx, query, pq.Array(ids))
	return err
}

func (r *userRepository) ListCandidates(ctx context.Context, event domain.EventCode, params domain.PaginationParams) ([]*domain.User, int, error) {
	if !event.Valid() {
		return nil, 0, fmt.Errorf("list candidates: invalid event code %d", event)
	}
	// Postgres arrays are 1-based.
	slot := int(event) + 1
	var total int
	countQuery := `SELECT COUNT(*) FROM users WHERE registered_events[$1] = 1 AND yantra_team_id IS NULL`
	if err := executorFrom(ctx, r.DB).QueryRowContext(ctx, countQuery, slot).Scan(&total); err != nil {
		return nil, 0, err
	}
	query := `SELECT ` + userColumns + `
		FROM users
		WHERE registered_events[$1] = 1 AND yantra_team_id IS NULL
		ORDER BY created_at, id
		LIMIT $2 OFFSET $3`
	users, err := r.list(ctx, query, slot, params.PageSize, params.Offset())
	if err != nil {
		return nil, 0, err
	}
	return users, total, nil
}
