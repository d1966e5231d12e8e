package service

import (
	"context"
	"database/sql"
	"errors"

	"taskflow/internal/repo"
)

type Projects struct {
	base
}

type CreateProjectInput struct {
	Name        string
	CustomerKey string
	DueDate     string
}

type UpdateProjectInput struct {
	Name    string
	Status  string
	DueDate string
}

type ListProjectsInput struct {
	CustomerKey       string
	IncludeActivities bool
	Status            string
	DueDate           string
	Limit             int
	Page              int
}

// Create resolves the customer first, inside the same transaction as the
// insert; an unknown customer key fails not-found before the project
// repository is touched.
func (s Projects) Create(ctx context.Context, in CreateProjectInput) (ProjectResponse, error) {
	var out ProjectResponse
	err := s.withTx(ctx, func(tx *sql.Tx) error {
		customer, err := s.repo.GetCustomerByKey(ctx, tx, in.CustomerKey)
		if errors.Is(err, repo.ErrNotFound) {
			return NotFoundError{Entity: "Customer"}
		}
		if err != nil {
			return err
		}
		p, err := s.repo.CreateProject(ctx, tx, in.Name, customer, in.DueDate, s.timestamp())
		if err != nil {
			return err
		}
		out = projectResponse(p)
		return nil
	})
	if err != nil {
		return ProjectResponse{}, s.classify("create_project", err)
	}
	s.log.Info().Str("project_key", out.ProjectKey).Str("customer_key", out.CustomerKey).Msg("project created")
	return out, nil
}

func (s Projects) Get(ctx context.Context, projectKey string) (ProjectResponse, error) {
	var out ProjectResponse
	err := s.withTx(ctx, func(tx *sql.Tx) error {
		p, err := s.repo.GetProjectByKey(ctx, tx, projectKey)
		if errors.Is(err, repo.ErrNotFound) {
			return NotFoundError{Entity: "Project"}
		}
		if err != nil {
			return err
		}
		out = projectResponse(p)
		return nil
	})
	if err != nil {
		return ProjectResponse{}, s.classify("get_project", err)
	}
	return out, nil
}

func (s Projects) Update(ctx context.Context, projectKey string, in UpdateProjectInput) (ProjectResponse, error) {
	var out ProjectResponse
	err := s.withTx(ctx, func(tx *sql.Tx) error {
		p, err := s.repo.GetProjectByKey(ctx, tx, projectKey)
		if errors.Is(err, repo.ErrNotFound) {
			return NotFoundError{Entity: "Project"}
		}
		if err != nil {
			return err
		}
		updated, err := s.repo.UpdateProject(ctx, tx, p, repo.ProjectUpdate{
			Name:    in.Name,
			Status:  in.Status,
			DueDate: in.DueDate,
		}, s.timestamp())
		if err != nil {
			return err
		}
		out = projectResponse(updated)
		return nil
	})
	if err != nil {
		return ProjectResponse{}, s.classify("update_project", err)
	}
	s.log.Info().Str("project_key", projectKey).Msg("project updated")
	return out, nil
}

// ListByCustomer counts and lists with identical filter arguments so the two
// results agree at the store's default isolation level, then assembles the
// page. Activities, when requested, come from one batched fetch rather than
// one query per project.
func (s Projects) ListByCustomer(ctx context.Context, in ListProjectsInput) (PaginatedProjectsResponse, error) {
	var out PaginatedProjectsResponse
	err := s.withTx(ctx, func(tx *sql.Tx) error {
		customer, err := s.repo.GetCustomerByKey(ctx, tx, in.CustomerKey)
		if errors.Is(err, repo.ErrNotFound) {
			return NotFoundError{Entity: "Customer"}
		}
		if err != nil {
			return err
		}
		filter := repo.ProjectFilter{
			CustomerID: customer.ID,
			Status:     in.Status,
			DueBefore:  in.DueDate,
		}
		totalItems, err := s.repo.CountProjectsByCustomer(ctx, tx, filter)
		if err != nil {
			return err
		}
		projects, err := s.repo.ListProjectsByCustomer(ctx, tx, filter, in.Limit, in.Page)
		if err != nil {
			return err
		}
		responses := make([]ProjectResponse, 0, len(projects))
		if in.IncludeActivities {
			ids := make([]int64, len(projects))
			for i, p := range projects {
				ids[i] = p.ID
			}
			byProject, err := s.repo.ListActivitiesByProjects(ctx, tx, ids)
			if err != nil {
				return err
			}
			for _, p := range projects {
				pr := projectResponse(p)
				for _, a := range byProject[p.ID] {
					pr.Activities = append(pr.Activities, activityResponse(a))
				}
				responses = append(responses, pr)
			}
		} else {
			for _, p := range projects {
				responses = append(responses, projectResponse(p))
			}
		}
		out = PaginatedProjectsResponse{
			Projects:    responses,
			TotalItems:  totalItems,
			TotalPages:  (totalItems + in.Limit - 1) / in.Limit,
			CurrentPage: in.Page,
			Limit:       in.Limit,
		}
		return nil
	})
	if err != nil {
		return PaginatedProjectsResponse{}, s.classify("list_projects_by_customer", err)
	}
	return out, nil
}
