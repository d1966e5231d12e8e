package service

import (
	"context"
	"database/sql"
	"errors"

	"taskflow/internal/repo"
)

type Activities struct {
	base
}

type CreateActivityInput struct {
	Description string
	ProjectKey  string
	DueDate     string
}

type UpdateActivityInput struct {
	Description string
	Status      string
	DueDate     string
}

// Create resolves the project first, inside the same transaction as the
// insert; an unknown project key fails not-found before the activity
// repository is touched.
func (s Activities) Create(ctx context.Context, in CreateActivityInput) (ActivityResponse, error) {
	var out ActivityResponse
	err := s.withTx(ctx, func(tx *sql.Tx) error {
		project, err := s.repo.GetProjectByKey(ctx, tx, in.ProjectKey)
		if errors.Is(err, repo.ErrNotFound) {
			return NotFoundError{Entity: "Project"}
		}
		if err != nil {
			return err
		}
		a, err := s.repo.CreateActivity(ctx, tx, in.Description, project, in.DueDate, s.timestamp())
		if err != nil {
			return err
		}
		out = activityResponse(a)
		return nil
	})
	if err != nil {
		return ActivityResponse{}, s.classify("create_activity", err)
	}
	s.log.Info().Str("activity_key", out.ActivityKey).Str("project_key", out.ProjectKey).Msg("activity created")
	return out, nil
}

func (s Activities) Get(ctx context.Context, activityKey string) (ActivityResponse, error) {
	var out ActivityResponse
	err := s.withTx(ctx, func(tx *sql.Tx) error {
		a, err := s.repo.GetActivityByKey(ctx, tx, activityKey)
		if errors.Is(err, repo.ErrNotFound) {
			return NotFoundError{Entity: "Activity"}
		}
		if err != nil {
			return err
		}
		out = activityResponse(a)
		return nil
	})
	if err != nil {
		return ActivityResponse{}, s.classify("get_activity", err)
	}
	return out, nil
}

func (s Activities) Update(ctx context.Context, activityKey string, in UpdateActivityInput) (ActivityResponse, error) {
	var out ActivityResponse
	err := s.withTx(ctx, func(tx *sql.Tx) error {
		a, err := s.repo.GetActivityByKey(ctx, tx, activityKey)
		if errors.Is(err, repo.ErrNotFound) {
			return NotFoundError{Entity: "Activity"}
		}
		if err != nil {
			return err
		}
		updated, err := s.repo.UpdateActivity(ctx, tx, a, repo.ActivityUpdate{
			Description: in.Description,
			Status:      in.Status,
			DueDate:     in.DueDate,
		}, s.timestamp())
		if err != nil {
			return err
		}
		out = activityResponse(updated)
		return nil
	})
	if err != nil {
		return ActivityResponse{}, s.classify("update_activity", err)
	}
	s.log.Info().Str("activity_key", activityKey).Msg("activity updated")
	return out, nil
}
