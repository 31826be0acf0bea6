package postgres

import (
	"context"
	"database/sql"

	"github.com/lib/pq"

	"ignitia/internal/domain"
)

const teamColumns = `t.id, t.name, t.leader_id, t.name_changes, t.pending_invites,
	t.project_name, t.tech_stack, t.description, t.video_link, t.github_link, t.file_link, t.submitted_at,
	t.created_at, t.updated_at,
	ARRAY(SELECT m.user_id::text FROM team_members m WHERE m.team_id = t.id ORDER BY m.seq)`

type teamRepository struct {
	DB *sql.DB
}

func NewTeamRepository(db *sql.DB) domain.TeamRepository {
	return &teamRepository{DB: db}
}

func scanTeam(row rowScanner) (*domain.Team, error) {
	t := &domain.Team{}
	var (
		s         domain.Submission
		submitted sql.NullTime
		members   pq.StringArray
	)
	err := row.Scan(&t.ID, &t.Name, &t.LeaderID, &t.NameChanges, &t.PendingInvites,
		&s.ProjectName, &s.TechStack, &s.Description, &s.VideoLink, &s.GithubLink, &s.FileLink, &submitted,
		&t.CreatedAt, &t.UpdatedAt, &members)
	if err != nil {
		return nil, err
	}
	if submitted.Valid {
		t.Submission = &s
	}
	t.Members = []string(members)
	if t.Members == nil {
		t.Members = []string{}
	}
	return t, nil
}

func (r *teamRepository) Create(ctx context.Context, t *domain.Team) error {
	exec := executorFrom(ctx, r.DB)
	query := `
		INSERT INTO teams (name, leader_id, created_at, updated_at)
		VALUES ($1, $2, $3, $4)
		RETURNING id
	`
	err := exec.QueryRowContext(ctx, query, t.Name, t.LeaderID, t.CreatedAt, t.UpdatedAt).Scan(&t.ID)
	if _, ok := isUniqueViolation(err); ok {
		return domain.ErrTeamNameTaken
	}
	if err != nil {
		return err
	}
	for _, userID := range t.Members {
		if err := r.AddMember(ctx, t.ID, userID); err != nil {
			return err
		}
	}
	return nil
}

func (r *teamRepository) getOne(ctx context.Context, where string, arg any, lock bool) (*domain.Team, error) {
	query := `SELECT ` + teamColumns + ` FROM teams t WHERE ` + where
	if lock {
		query += ` FOR UPDATE OF t`
	}
	t, err := scanTeam(executorFrom(ctx, r.DB).QueryRowContext(ctx, query, arg))
	if err != nil {
		return nil, notFound(err)
	}
	return t, nil
}

func (r *teamRepository) GetByID(ctx context.Context, id string) (*domain.Team, error) {
	return r.getOne(ctx, `t.id = $1`, id, false)
}

func (r *teamRepository) GetByName(ctx context.Context, name string) (*domain.Team, error) {
	return r.getOne(ctx, `t.name = $1`, name, false)
}

func (r *teamRepository) LockByID(ctx context.Context, id string) (*domain.Team, error) {
	return r.getOne(ctx, `t.id = $1`, id, true)
}

func (r *teamRepository) ListOpen(ctx context.Context, params domain.PaginationParams) ([]*domain.Team, int, error) {
	exec := executorFrom(ctx, r.DB)
	const open = `(SELECT COUNT(*) FROM team_members m WHERE m.team_id = t.id) < $1`
	var total int
	if err := exec.QueryRowContext(ctx, `SELECT COUNT(*) FROM teams t WHERE `+open, domain.MaxTeamSize).Scan(&total); err != nil {
		return nil, 0, err
	}
	query := `SELECT ` + teamColumns + ` FROM teams t WHERE ` + open + ` ORDER BY t.created_at, t.id LIMIT $2 OFFSET $3`
	rows, err := exec.QueryContext(ctx, query, domain.MaxTeamSize, params.PageSize, params.Offset())
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()
	teams := make([]*domain.Team, 0)
	for rows.Next() {
		t, err := scanTeam(rows)
		if err != nil {
			return nil, 0, err
		}
		teams = append(teams, t)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, err
	}
	return teams, total, nil
}

func (r *teamRepository) AddMember(ctx context.Context, teamID, userID string) error {
	query := `INSERT INTO team_members (team_id, user_id) VALUES ($1, $2)`
	_, err := executorFrom(ctx, r.DB).ExecContext(ctx, query, teamID, userID)
	if _, ok := isUniqueViolation(err); ok {
		return domain.ErrAlreadyInTeam
	}
	return err
}

func (r *teamRepository) RemoveMember(ctx context.Context, teamID, userID string) error {
	query := `DELETE FROM team_members WHERE team_id = $1 AND user_id = $2`
	res, err := executorFrom(ctx, r.DB).ExecContext(ctx, query, teamID, userID)
	if err != nil {
		return err
	}
	return expectOneRow(res)
}

func (r *teamRepository) Rename(ctx context.Context, teamID, name string) error {
	query := `UPDATE teams SET name = $1, name_changes = name_changes + 1, updated_at = now() WHERE id = $2`
	res, err := executorFrom(ctx, r.DB).ExecContext(ctx, query, name, teamID)
	if _, ok := isUniqueViolation(err); ok {
		return domain.ErrTeamNameTaken
	}
	if err != nil {
		return err
	}
	return expectOneRow(res)
}

func (r *teamRepository) UpdateSubmission(ctx context.Context, teamID string, s *domain.Submission) error {
	query := `
		UPDATE teams
		SET project_name = $1, tech_stack = $2, description = $3, video_link = $4, github_link = $5, file_link = $6,
			submitted_at = now(), updated_at = now()
		WHERE id = $7
	`
	res, err := executorFrom(ctx, r.DB).ExecContext(ctx, query,
		s.ProjectName, s.TechStack, s.Description, s.VideoLink, s.GithubLink, s.FileLink, teamID)
	if err != nil {
		return err
	}
	return expectOneRow(res)
}

func (r *teamRepository) Delete(ctx context.Context, id string) error {
	res, err := executorFrom(ctx, r.DB).ExecContext(ctx, `DELETE FROM teams WHERE id = $1`, id)
	if err != nil {
		return err
	}
	return expectOneRow(res)
}

func (r *teamRepository) RefreshPendingInvites(ctx context.Context, ids ...string) error {
	if len(ids) == 0 {
		return nil
	}
	query := `
		UPDATE teams t
		SET pending_invites = (SELECT COUNT(*) FROM team_invitations i WHERE i.team_id = t.id)
		WHERE t.id = ANY($1)
	`
	_, err := executorFrom(ctx, r.DB).ExecContext(ctx, query, pq.Array(ids))
	return err
}
