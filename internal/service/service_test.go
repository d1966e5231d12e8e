package service

import (
	"context"
	"database/sql"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"taskflow/internal/db"
	"taskflow/internal/migrate"
)

var fixedNow = time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)

func newTestServices(t *testing.T) (Services, *sql.DB) {
	t.Helper()
	conn, err := db.Open(db.Config{Path: filepath.Join(t.TempDir(), "test.db")})
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	if err := migrate.Migrate(conn); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	t.Cleanup(func() { conn.Close() })
	svcs := New(conn, Options{
		Logger: zerolog.Nop(),
		Now:    func() time.Time { return fixedNow },
	})
	return svcs, conn
}

func TestCreateCustomerDefaults(t *testing.T) {
	svcs, _ := newTestServices(t)
	ctx := context.Background()

	c, err := svcs.Customers.Create(ctx, CreateCustomerInput{Name: "Acme", Email: "ops@acme.test"})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if c.CustomerKey == "" {
		t.Fatal("customer key must be non-empty")
	}
	if c.Status != "active" {
		t.Fatalf("status = %q, want active", c.Status)
	}
	if c.CreatedAt != fixedNow.Format(time.RFC3339) {
		t.Fatalf("created_at = %q", c.CreatedAt)
	}

	other, err := svcs.Customers.Create(ctx, CreateCustomerInput{Name: "Globex", Email: "it@globex.test"})
	if err != nil {
		t.Fatalf("create second: %v", err)
	}
	if other.CustomerKey == c.CustomerKey {
		t.Fatal("customer keys must be distinct")
	}
}

func TestGetCustomerNotFound(t *testing.T) {
	svcs, _ := newTestServices(t)

	_, err := svcs.Customers.Get(context.Background(), "no-such-key")
	var nf NotFoundError
	if !errors.As(err, &nf) {
		t.Fatalf("err = %v, want NotFoundError", err)
	}
	if nf.Entity != "Customer" {
		t.Fatalf("entity = %q, want Customer", nf.Entity)
	}
	if nf.Error() != "Customer not found" {
		t.Fatalf("message = %q", nf.Error())
	}
}

func TestCreateProjectUnknownCustomerStagesNothing(t *testing.T) {
	svcs, conn := newTestServices(t)
	ctx := context.Background()

	_, err := svcs.Projects.Create(ctx, CreateProjectInput{Name: "Ghost", CustomerKey: "missing"})
	var nf NotFoundError
	if !errors.As(err, &nf) || nf.Entity != "Customer" {
		t.Fatalf("err = %v, want Customer not found", err)
	}

	var n int
	if err := conn.QueryRow(`SELECT count(*) FROM projects`).Scan(&n); err != nil {
		t.Fatalf("count projects: %v", err)
	}
	if n != 0 {
		t.Fatalf("projects table has %d rows after failed create", n)
	}
}

func TestCreateActivityUnknownProjectStagesNothing(t *testing.T) {
	svcs, conn := newTestServices(t)
	ctx := context.Background()

	_, err := svcs.Activities.Create(ctx, CreateActivityInput{Description: "orphan", ProjectKey: "missing"})
	var nf NotFoundError
	if !errors.As(err, &nf) || nf.Entity != "Project" {
		t.Fatalf("err = %v, want Project not found", err)
	}

	var n int
	if err := conn.QueryRow(`SELECT count(*) FROM activities`).Scan(&n); err != nil {
		t.Fatalf("count activities: %v", err)
	}
	if n != 0 {
		t.Fatalf("activities table has %d rows after failed create", n)
	}
}

func TestUpdateActivityStatusOnly(t *testing.T) {
	svcs, _ := newTestServices(t)
	ctx := context.Background()

	customer, err := svcs.Customers.Create(ctx, CreateCustomerInput{Name: "Acme", Email: "ops@acme.test"})
	if err != nil {
		t.Fatalf("create customer: %v", err)
	}
	project, err := svcs.Projects.Create(ctx, CreateProjectInput{Name: "Alpha", CustomerKey: customer.CustomerKey})
	if err != nil {
		t.Fatalf("create project: %v", err)
	}
	if project.Status != "open" {
		t.Fatalf("new project status = %q, want open", project.Status)
	}
	activity, err := svcs.Activities.Create(ctx, CreateActivityInput{
		Description: "write docs",
		ProjectKey:  project.ProjectKey,
		DueDate:     "2026-05-01",
	})
	if err != nil {
		t.Fatalf("create activity: %v", err)
	}
	if activity.Status != "not_started" {
		t.Fatalf("new activity status = %q, want not_started", activity.Status)
	}

	updated, err := svcs.Activities.Update(ctx, activity.ActivityKey, UpdateActivityInput{Status: "in_progress"})
	if err != nil {
		t.Fatalf("update activity: %v", err)
	}
	if updated.Status != "in_progress" {
		t.Fatalf("status = %q, want in_progress", updated.Status)
	}
	if updated.Description != "write docs" {
		t.Fatalf("description changed: %q", updated.Description)
	}
	if updated.DueDate != "2026-05-01" {
		t.Fatalf("due date changed: %q", updated.DueDate)
	}
}

func TestUpdateCustomerUnknownStatusIsInternal(t *testing.T) {
	svcs, _ := newTestServices(t)
	ctx := context.Background()

	customer, err := svcs.Customers.Create(ctx, CreateCustomerInput{Name: "Acme", Email: "ops@acme.test"})
	if err != nil {
		t.Fatalf("create customer: %v", err)
	}

	_, err = svcs.Customers.Update(ctx, customer.CustomerKey, UpdateCustomerInput{Status: "deleted"})
	var ie InternalError
	if !errors.As(err, &ie) {
		t.Fatalf("err = %v, want InternalError", err)
	}
	if ie.Error() != "An internal error occurred" {
		t.Fatalf("message = %q, must stay opaque", ie.Error())
	}
	if errors.Unwrap(ie) == nil {
		t.Fatal("cause must still be reachable for logging")
	}

	// The failed update must not have touched the row.
	got, err := svcs.Customers.Get(ctx, customer.CustomerKey)
	if err != nil {
		t.Fatalf("get after failed update: %v", err)
	}
	if got.Status != "active" {
		t.Fatalf("status = %q after failed update, want active", got.Status)
	}
}

func TestListProjectsByCustomer(t *testing.T) {
	svcs, _ := newTestServices(t)
	ctx := context.Background()

	customer, err := svcs.Customers.Create(ctx, CreateCustomerInput{Name: "Acme", Email: "ops@acme.test"})
	if err != nil {
		t.Fatalf("create customer: %v", err)
	}
	onTrack, err := svcs.Projects.Create(ctx, CreateProjectInput{
		Name:        "On track",
		CustomerKey: customer.CustomerKey,
		DueDate:     "2026-04-01",
	})
	if err != nil {
		t.Fatalf("create project: %v", err)
	}
	wrapped, err := svcs.Projects.Create(ctx, CreateProjectInput{
		Name:        "Wrapped up",
		CustomerKey: customer.CustomerKey,
		DueDate:     "2026-04-01",
	})
	if err != nil {
		t.Fatalf("create project: %v", err)
	}
	if _, err := svcs.Projects.Update(ctx, wrapped.ProjectKey, UpdateProjectInput{Status: "closed"}); err != nil {
		t.Fatalf("close project: %v", err)
	}
	if _, err := svcs.Projects.Create(ctx, CreateProjectInput{
		Name:        "Long tail",
		CustomerKey: customer.CustomerKey,
		DueDate:     "2026-09-01",
	}); err != nil {
		t.Fatalf("create project: %v", err)
	}
	if _, err := svcs.Activities.Create(ctx, CreateActivityInput{
		Description: "ship it",
		ProjectKey:  onTrack.ProjectKey,
	}); err != nil {
		t.Fatalf("create activity: %v", err)
	}

	page, err := svcs.Projects.ListByCustomer(ctx, ListProjectsInput{
		CustomerKey:       customer.CustomerKey,
		IncludeActivities: true,
		Status:            "open",
		DueDate:           "2026-06-30",
		Limit:             100,
		Page:              1,
	})
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if page.TotalItems != 1 || page.TotalPages != 1 {
		t.Fatalf("totals = %d/%d, want 1/1", page.TotalItems, page.TotalPages)
	}
	if len(page.Projects) != 1 || page.Projects[0].ProjectKey != onTrack.ProjectKey {
		t.Fatalf("wrong page contents: %+v", page.Projects)
	}
	if len(page.Projects[0].Activities) != 1 {
		t.Fatalf("activities not materialized: %+v", page.Projects[0])
	}
	if page.Projects[0].Activities[0].Description != "ship it" {
		t.Fatalf("unexpected activity: %+v", page.Projects[0].Activities[0])
	}

	// Without include_activities the nested list stays empty.
	bare, err := svcs.Projects.ListByCustomer(ctx, ListProjectsInput{
		CustomerKey: customer.CustomerKey,
		Status:      "open",
		Limit:       100,
		Page:        1,
	})
	if err != nil {
		t.Fatalf("list without activities: %v", err)
	}
	for _, p := range bare.Projects {
		if len(p.Activities) != 0 {
			t.Fatalf("activities included without opt-in: %+v", p)
		}
	}

	_, err = svcs.Projects.ListByCustomer(ctx, ListProjectsInput{
		CustomerKey: "missing",
		Status:      "open",
		Limit:       100,
		Page:        1,
	})
	var nf NotFoundError
	if !errors.As(err, &nf) || nf.Entity != "Customer" {
		t.Fatalf("err = %v, want Customer not found", err)
	}
}

func TestListProjectsPaginationArithmetic(t *testing.T) {
	svcs, _ := newTestServices(t)
	ctx := context.Background()

	customer, err := svcs.Customers.Create(ctx, CreateCustomerInput{Name: "Acme", Email: "ops@acme.test"})
	if err != nil {
		t.Fatalf("create customer: %v", err)
	}
	for i := 0; i < 5; i++ {
		if _, err := svcs.Projects.Create(ctx, CreateProjectInput{
			Name:        "Project",
			CustomerKey: customer.CustomerKey,
		}); err != nil {
			t.Fatalf("create project %d: %v", i, err)
		}
	}

	page, err := svcs.Projects.ListByCustomer(ctx, ListProjectsInput{
		CustomerKey: customer.CustomerKey,
		Status:      "open",
		Limit:       2,
		Page:        2,
	})
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if page.TotalItems != 5 {
		t.Fatalf("total_items = %d, want 5", page.TotalItems)
	}
	if page.TotalPages != 3 {
		t.Fatalf("total_pages = %d, want 3", page.TotalPages)
	}
	if page.CurrentPage != 2 || page.Limit != 2 {
		t.Fatalf("echoed paging wrong: %+v", page)
	}
	if len(page.Projects) != 2 {
		t.Fatalf("page size = %d, want 2", len(page.Projects))
	}

	past, err := svcs.Projects.ListByCustomer(ctx, ListProjectsInput{
		CustomerKey: customer.CustomerKey,
		Status:      "open",
		Limit:       2,
		Page:        4,
	})
	if err != nil {
		t.Fatalf("list past end: %v", err)
	}
	if len(past.Projects) != 0 {
		t.Fatalf("page past end returned %d items", len(past.Projects))
	}
	if past.TotalItems != 5 || past.TotalPages != 3 {
		t.Fatalf("totals must still be reported: %+v", past)
	}
}
