package repo

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"taskflow/internal/domain"
)

const projectColumns = `p.id, p.project_key, p.customer_id, c.customer_key, p.name, s.enumerator, COALESCE(p.due_date,''), p.created_at, p.updated_at`

const projectJoins = ` FROM projects p
JOIN customers c ON c.id=p.customer_id
JOIN project_statuses s ON s.id=p.status_id`

func scanProject(row *sql.Row) (domain.Project, error) {
	var p domain.Project
	err := row.Scan(&p.ID, &p.Key, &p.CustomerID, &p.CustomerKey, &p.Name, &p.Status, &p.DueDate, &p.CreatedAt, &p.UpdatedAt)
	if err == sql.ErrNoRows {
		return p, ErrNotFound
	}
	return p, err
}

// CreateProject stages a new project under the given customer with a fresh
// external key and the default "open" status. The customer must already be a
// persisted row; callers resolve it inside the same transaction.
func (r Repo) CreateProject(ctx context.Context, tx *sql.Tx, name string, customer domain.Customer, dueDate, now string) (domain.Project, error) {
	status, err := r.GetEnumerator(ctx, tx, ProjectStatuses, "open")
	if err != nil {
		return domain.Project{}, err
	}
	p := domain.Project{
		Key:         uuid.NewString(),
		CustomerID:  customer.ID,
		CustomerKey: customer.Key,
		Name:        name,
		Status:      status.Enumerator,
		DueDate:     dueDate,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	res, err := tx.ExecContext(ctx, `INSERT INTO projects(project_key,customer_id,status_id,name,due_date,created_at,updated_at) VALUES (?,?,?,?,?,?,?)`,
		p.Key, p.CustomerID, status.ID, p.Name, nullable(p.DueDate), p.CreatedAt, p.UpdatedAt)
	if err != nil {
		return domain.Project{}, fmt.Errorf("insert project: %w", err)
	}
	p.ID, err = res.LastInsertId()
	return p, err
}

func (r Repo) GetProjectByKey(ctx context.Context, tx *sql.Tx, key string) (domain.Project, error) {
	return scanProject(tx.QueryRowContext(ctx,
		`SELECT `+projectColumns+projectJoins+` WHERE p.project_key=?`, key))
}

// ProjectUpdate carries partial-update fields; empty means "not supplied".
type ProjectUpdate struct {
	Name    string
	Status  string
	DueDate string
}

func (r Repo) UpdateProject(ctx context.Context, tx *sql.Tx, p domain.Project, u ProjectUpdate, now string) (domain.Project, error) {
	var (
		fields []string
		args   []any
	)
	if u.Name != "" {
		fields = append(fields, "name=?")
		args = append(args, u.Name)
		p.Name = u.Name
	}
	if u.DueDate != "" {
		fields = append(fields, "due_date=?")
		args = append(args, u.DueDate)
		p.DueDate = u.DueDate
	}
	if u.Status != "" {
		status, err := r.GetEnumerator(ctx, tx, ProjectStatuses, u.Status)
		if err != nil {
			return domain.Project{}, err
		}
		fields = append(fields, "status_id=?")
		args = append(args, status.ID)
		p.Status = status.Enumerator
	}
	if len(fields) == 0 {
		return p, nil
	}
	fields = append(fields, "updated_at=?")
	args = append(args, now, p.ID)
	p.UpdatedAt = now
	if _, err := tx.ExecContext(ctx, fmt.Sprintf(`UPDATE projects SET %s WHERE id=?`, strings.Join(fields, ",")), args...); err != nil {
		return domain.Project{}, fmt.Errorf("update project: %w", err)
	}
	return p, nil
}

// ProjectFilter selects a customer's projects, optionally narrowed to one
// status token and to due dates at or before a cutoff.
type ProjectFilter struct {
	CustomerID int64
	Status     string
	DueBefore  string
}

// projectFilterClauses is shared by count and list so both see the same
// predicate for the same arguments.
func (r Repo) projectFilterClauses(ctx context.Context, tx *sql.Tx, f ProjectFilter) ([]string, []any, error) {
	clauses := []string{"p.customer_id=?"}
	args := []any{f.CustomerID}
	if f.Status != "" {
		status, err := r.GetEnumerator(ctx, tx, ProjectStatuses, f.Status)
		if err != nil {
			return nil, nil, err
		}
		clauses = append(clauses, "p.status_id=?")
		args = append(args, status.ID)
	}
	if f.DueBefore != "" {
		clauses = append(clauses, "p.due_date<=?")
		args = append(args, f.DueBefore)
	}
	return clauses, args, nil
}

func (r Repo) CountProjectsByCustomer(ctx context.Context, tx *sql.Tx, f ProjectFilter) (int, error) {
	clauses, args, err := r.projectFilterClauses(ctx, tx, f)
	if err != nil {
		return 0, err
	}
	var count int
	err = tx.QueryRowContext(ctx,
		`SELECT count(*) FROM projects p WHERE `+strings.Join(clauses, " AND "), args...).Scan(&count)
	return count, err
}

// ListProjectsByCustomer pages through the filtered set in stable id order.
// Pages are 1-based; a page past the end returns an empty slice.
func (r Repo) ListProjectsByCustomer(ctx context.Context, tx *sql.Tx, f ProjectFilter, limit, page int) ([]domain.Project, error) {
	clauses, args, err := r.projectFilterClauses(ctx, tx, f)
	if err != nil {
		return nil, err
	}
	offset := (page - 1) * limit
	args = append(args, limit, offset)
	rows, err := tx.QueryContext(ctx,
		`SELECT `+projectColumns+projectJoins+` WHERE `+strings.Join(clauses, " AND ")+` ORDER BY p.id ASC LIMIT ? OFFSET ?`, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var res []domain.Project
	for rows.Next() {
		var p domain.Project
		if err := rows.Scan(&p.ID, &p.Key, &p.CustomerID, &p.CustomerKey, &p.Name, &p.Status, &p.DueDate, &p.CreatedAt, &p.UpdatedAt); err != nil {
			return nil, err
		}
		res = append(res, p)
	}
	return res, rows.Err()
}
