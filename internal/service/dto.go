package service

import "taskflow/internal/domain"

// Response shapes are fully materialized before the unit-of-work scope
// closes: status rows flatten to their tokens and parents to their external
// keys. Internal numeric ids never appear.

type CustomerResponse struct {
	CustomerKey string `json:"customer_key"`
	Name        string `json:"name"`
	Email       string `json:"email"`
	Status      string `json:"status" enum:"active,inactive,suspended"`
	CreatedAt   string `json:"created_at" format:"date-time"`
	UpdatedAt   string `json:"updated_at" format:"date-time"`
}

type ProjectResponse struct {
	ProjectKey  string             `json:"project_key"`
	Name        string             `json:"name"`
	Status      string             `json:"status" enum:"open,closed"`
	CustomerKey string             `json:"customer_key"`
	DueDate     string             `json:"due_date,omitempty" format:"date"`
	CreatedAt   string             `json:"created_at" format:"date-time"`
	UpdatedAt   string             `json:"updated_at" format:"date-time"`
	Activities  []ActivityResponse `json:"activities,omitempty"`
}

type ActivityResponse struct {
	ActivityKey string `json:"activity_key"`
	ProjectKey  string `json:"project_key"`
	Description string `json:"description"`
	Status      string `json:"status" enum:"not_started,in_progress,completed,blocked"`
	DueDate     string `json:"due_date,omitempty" format:"date"`
}

type PaginatedProjectsResponse struct {
	Projects    []ProjectResponse `json:"projects"`
	TotalItems  int               `json:"total_items"`
	TotalPages  int               `json:"total_pages"`
	CurrentPage int               `json:"current_page"`
	Limit       int               `json:"limit"`
}

func customerResponse(c domain.Customer) CustomerResponse {
	return CustomerResponse{
		CustomerKey: c.Key,
		Name:        c.Name,
		Email:       c.Email,
		Status:      c.Status,
		CreatedAt:   c.CreatedAt,
		UpdatedAt:   c.UpdatedAt,
	}
}

func projectResponse(p domain.Project) ProjectResponse {
	return ProjectResponse{
		ProjectKey:  p.Key,
		Name:        p.Name,
		Status:      p.Status,
		CustomerKey: p.CustomerKey,
		DueDate:     p.DueDate,
		CreatedAt:   p.CreatedAt,
		UpdatedAt:   p.UpdatedAt,
	}
}

func activityResponse(a domain.Activity) ActivityResponse {
	return ActivityResponse{
		ActivityKey: a.Key,
		ProjectKey:  a.ProjectKey,
		Description: a.Description,
		Status:      a.Status,
		DueDate:     a.DueDate,
	}
}
