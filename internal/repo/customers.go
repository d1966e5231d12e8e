package repo

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"taskflow/internal/domain"
)

const customerColumns = `c.id, c.customer_key, c.name, c.email, s.enumerator, c.created_at, c.updated_at`

func scanCustomer(row *sql.Row) (domain.Customer, error) {
	var c domain.Customer
	err := row.Scan(&c.ID, &c.Key, &c.Name, &c.Email, &c.Status, &c.CreatedAt, &c.UpdatedAt)
	if err == sql.ErrNoRows {
		return c, ErrNotFound
	}
	return c, err
}

// CreateCustomer stages a new customer with a fresh external key and the
// default "active" status. The row is not committed here.
func (r Repo) CreateCustomer(ctx context.Context, tx *sql.Tx, name, email, now string) (domain.Customer, error) {
	status, err := r.GetEnumerator(ctx, tx, CustomerStatuses, "active")
	if err != nil {
		return domain.Customer{}, err
	}
	c := domain.Customer{
		Key:       uuid.NewString(),
		Name:      name,
		Email:     email,
		Status:    status.Enumerator,
		CreatedAt: now,
		UpdatedAt: now,
	}
	res, err := tx.ExecContext(ctx, `INSERT INTO customers(customer_key,status_id,name,email,created_at,updated_at) VALUES (?,?,?,?,?,?)`,
		c.Key, status.ID, c.Name, c.Email, c.CreatedAt, c.UpdatedAt)
	if err != nil {
		return domain.Customer{}, fmt.Errorf("insert customer: %w", err)
	}
	c.ID, err = res.LastInsertId()
	return c, err
}

// GetCustomerByKey returns the customer with the given external key, or
// ErrNotFound. Zero rows is a normal outcome, not a failure.
func (r Repo) GetCustomerByKey(ctx context.Context, tx *sql.Tx, key string) (domain.Customer, error) {
	return scanCustomer(tx.QueryRowContext(ctx,
		`SELECT `+customerColumns+` FROM customers c JOIN customer_statuses s ON s.id=c.status_id WHERE c.customer_key=?`, key))
}

// CustomerUpdate carries partial-update fields. An empty string means "not
// supplied": the stored value is left untouched.
type CustomerUpdate struct {
	Name   string
	Email  string
	Status string
}

// UpdateCustomer applies only the supplied fields and refreshes updated_at.
// A status token is resolved against the lookup table first; an unknown
// token fails the whole update.
func (r Repo) UpdateCustomer(ctx context.Context, tx *sql.Tx, c domain.Customer, u CustomerUpdate, now string) (domain.Customer, error) {
	var (
		fields []string
		args   []any
	)
	if u.Name != "" {
		fields = append(fields, "name=?")
		args = append(args, u.Name)
		c.Name = u.Name
	}
	if u.Email != "" {
		fields = append(fields, "email=?")
		args = append(args, u.Email)
		c.Email = u.Email
	}
	if u.Status != "" {
		status, err := r.GetEnumerator(ctx, tx, CustomerStatuses, u.Status)
		if err != nil {
			return domain.Customer{}, err
		}
		fields = append(fields, "status_id=?")
		args = append(args, status.ID)
		c.Status = status.Enumerator
	}
	if len(fields) == 0 {
		return c, nil
	}
	fields = append(fields, "updated_at=?")
	args = append(args, now, c.ID)
	c.UpdatedAt = now
	if _, err := tx.ExecContext(ctx, fmt.Sprintf(`UPDATE customers SET %s WHERE id=?`, strings.Join(fields, ",")), args...); err != nil {
		return domain.Customer{}, fmt.Errorf("update customer: %w", err)
	}
	return c, nil
}
