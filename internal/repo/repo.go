package repo

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"taskflow/internal/domain"
)

// Repo executes entity queries. It carries no state: every method runs
// against the caller's transaction, and committing is the unit-of-work's
// job, never the repository's.
type Repo struct{}

var ErrNotFound = errors.New("not found")

// Status lookup table names. These are interpolated into queries and must
// stay a closed set.
const (
	CustomerStatuses = "customer_statuses"
	ProjectStatuses  = "project_statuses"
	ActivityStatuses = "activity_statuses"
)

func validStatusTable(table string) error {
	switch table {
	case CustomerStatuses, ProjectStatuses, ActivityStatuses:
		return nil
	}
	return fmt.Errorf("unknown status table %q", table)
}

// GetEnumerator resolves a status token to its lookup row. Exactly one row
// must match: an unknown token fails the operation, and more than one match
// means the seed data is broken.
func (r Repo) GetEnumerator(ctx context.Context, tx *sql.Tx, table, enumerator string) (domain.Status, error) {
	if err := validStatusTable(table); err != nil {
		return domain.Status{}, err
	}
	rows, err := tx.QueryContext(ctx,
		fmt.Sprintf(`SELECT id, enumerator, created_at FROM %s WHERE enumerator=?`, table), enumerator)
	if err != nil {
		return domain.Status{}, err
	}
	defer rows.Close()
	var matches []domain.Status
	for rows.Next() {
		var s domain.Status
		if err := rows.Scan(&s.ID, &s.Enumerator, &s.CreatedAt); err != nil {
			return domain.Status{}, err
		}
		matches = append(matches, s)
	}
	if err := rows.Err(); err != nil {
		return domain.Status{}, err
	}
	switch len(matches) {
	case 0:
		return domain.Status{}, fmt.Errorf("%s has no enumerator %q", table, enumerator)
	case 1:
		return matches[0], nil
	default:
		return domain.Status{}, fmt.Errorf("%s has %d rows for enumerator %q", table, len(matches), enumerator)
	}
}

// GetEnumerators returns the rows matching the given tokens. Unknown tokens
// are silently dropped; callers that care about cardinality must check it.
func (r Repo) GetEnumerators(ctx context.Context, tx *sql.Tx, table string, enumerators []string) ([]domain.Status, error) {
	if err := validStatusTable(table); err != nil {
		return nil, err
	}
	if len(enumerators) == 0 {
		return nil, nil
	}
	placeholders := strings.TrimSuffix(strings.Repeat("?,", len(enumerators)), ",")
	args := make([]any, len(enumerators))
	for i, e := range enumerators {
		args[i] = e
	}
	rows, err := tx.QueryContext(ctx,
		fmt.Sprintf(`SELECT id, enumerator, created_at FROM %s WHERE enumerator IN (%s) ORDER BY id`, table, placeholders), args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var res []domain.Status
	for rows.Next() {
		var s domain.Status
		if err := rows.Scan(&s.ID, &s.Enumerator, &s.CreatedAt); err != nil {
			return nil, err
		}
		res = append(res, s)
	}
	return res, rows.Err()
}

func nullable(v string) any {
	if v == "" {
		return nil
	}
	return v
}
