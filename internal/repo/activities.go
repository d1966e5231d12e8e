package repo

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"taskflow/internal/domain"
)

const activityColumns = `a.id, a.activity_key, a.project_id, p.project_key, a.description, s.enumerator, COALESCE(a.due_date,''), a.created_at, a.updated_at`

const activityJoins = ` FROM activities a
JOIN projects p ON p.id=a.project_id
JOIN activity_statuses s ON s.id=a.status_id`

func scanActivity(row *sql.Row) (domain.Activity, error) {
	var a domain.Activity
	err := row.Scan(&a.ID, &a.Key, &a.ProjectID, &a.ProjectKey, &a.Description, &a.Status, &a.DueDate, &a.CreatedAt, &a.UpdatedAt)
	if err == sql.ErrNoRows {
		return a, ErrNotFound
	}
	return a, err
}

// CreateActivity stages a new activity under the given project with a fresh
// external key and the default "not_started" status.
func (r Repo) CreateActivity(ctx context.Context, tx *sql.Tx, description string, project domain.Project, dueDate, now string) (domain.Activity, error) {
	status, err := r.GetEnumerator(ctx, tx, ActivityStatuses, "not_started")
	if err != nil {
		return domain.Activity{}, err
	}
	a := domain.Activity{
		Key:         uuid.NewString(),
		ProjectID:   project.ID,
		ProjectKey:  project.Key,
		Description: description,
		Status:      status.Enumerator,
		DueDate:     dueDate,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	res, err := tx.ExecContext(ctx, `INSERT INTO activities(activity_key,project_id,status_id,description,due_date,created_at,updated_at) VALUES (?,?,?,?,?,?,?)`,
		a.Key, a.ProjectID, status.ID, a.Description, nullable(a.DueDate), a.CreatedAt, a.UpdatedAt)
	if err != nil {
		return domain.Activity{}, fmt.Errorf("insert activity: %w", err)
	}
	a.ID, err = res.LastInsertId()
	return a, err
}

func (r Repo) GetActivityByKey(ctx context.Context, tx *sql.Tx, key string) (domain.Activity, error) {
	return scanActivity(tx.QueryRowContext(ctx,
		`SELECT `+activityColumns+activityJoins+` WHERE a.activity_key=?`, key))
}

// ActivityUpdate carries partial-update fields; empty means "not supplied".
type ActivityUpdate struct {
	Description string
	Status      string
	DueDate     string
}

func (r Repo) UpdateActivity(ctx context.Context, tx *sql.Tx, a domain.Activity, u ActivityUpdate, now string) (domain.Activity, error) {
	var (
		fields []string
		args   []any
	)
	if u.Description != "" {
		fields = append(fields, "description=?")
		args = append(args, u.Description)
		a.Description = u.Description
	}
	if u.DueDate != "" {
		fields = append(fields, "due_date=?")
		args = append(args, u.DueDate)
		a.DueDate = u.DueDate
	}
	if u.Status != "" {
		status, err := r.GetEnumerator(ctx, tx, ActivityStatuses, u.Status)
		if err != nil {
			return domain.Activity{}, err
		}
		fields = append(fields, "status_id=?")
		args = append(args, status.ID)
		a.Status = status.Enumerator
	}
	if len(fields) == 0 {
		return a, nil
	}
	fields = append(fields, "updated_at=?")
	args = append(args, now, a.ID)
	a.UpdatedAt = now
	if _, err := tx.ExecContext(ctx, fmt.Sprintf(`UPDATE activities SET %s WHERE id=?`, strings.Join(fields, ",")), args...); err != nil {
		return domain.Activity{}, fmt.Errorf("update activity: %w", err)
	}
	return a, nil
}

// ListActivitiesByProjects fetches the activities of all given projects in
// one query, keyed by project id. The list endpoint uses this instead of one
// query per project.
func (r Repo) ListActivitiesByProjects(ctx context.Context, tx *sql.Tx, projectIDs []int64) (map[int64][]domain.Activity, error) {
	res := map[int64][]domain.Activity{}
	if len(projectIDs) == 0 {
		return res, nil
	}
	placeholders := strings.TrimSuffix(strings.Repeat("?,", len(projectIDs)), ",")
	args := make([]any, len(projectIDs))
	for i, id := range projectIDs {
		args[i] = id
	}
	rows, err := tx.QueryContext(ctx,
		`SELECT `+activityColumns+activityJoins+` WHERE a.project_id IN (`+placeholders+`) ORDER BY a.id ASC`, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	for rows.Next() {
		var a domain.Activity
		if err := rows.Scan(&a.ID, &a.Key, &a.ProjectID, &a.ProjectKey, &a.Description, &a.Status, &a.DueDate, &a.CreatedAt, &a.UpdatedAt); err != nil {
			return nil, err
		}
		res[a.ProjectID] = append(res[a.ProjectID], a)
	}
	return res, rows.Err()
}
