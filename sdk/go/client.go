// Package taskflowsdk is a small HTTP client for the task flow API.
package taskflowsdk

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"
)

// Client is a minimal task flow HTTP API client.
type Client struct {
	BaseURL      string
	APIKey       string
	APIKeyHeader string
	BearerToken  string
	HTTPClient   *http.Client
	Timeout      time.Duration
}

// New creates a client with sane defaults.
func New(baseURL, apiKey string) *Client {
	return &Client{
		BaseURL: baseURL,
		APIKey:  apiKey,
		Timeout: 10 * time.Second,
	}
}

type Customer struct {
	CustomerKey string `json:"customer_key"`
	Name        string `json:"name"`
	Email       string `json:"email"`
	Status      string `json:"status"`
	CreatedAt   string `json:"created_at"`
	UpdatedAt   string `json:"updated_at"`
}

type Project struct {
	ProjectKey  string     `json:"project_key"`
	Name        string     `json:"name"`
	Status      string     `json:"status"`
	CustomerKey string     `json:"customer_key"`
	DueDate     string     `json:"due_date,omitempty"`
	CreatedAt   string     `json:"created_at"`
	UpdatedAt   string     `json:"updated_at"`
	Activities  []Activity `json:"activities,omitempty"`
}

type Activity struct {
	ActivityKey string `json:"activity_key"`
	ProjectKey  string `json:"project_key"`
	Description string `json:"description"`
	Status      string `json:"status"`
	DueDate     string `json:"due_date,omitempty"`
}

// ProjectPage is the paginated project listing.
type ProjectPage struct {
	Projects    []Project `json:"projects"`
	TotalItems  int       `json:"total_items"`
	TotalPages  int       `json:"total_pages"`
	CurrentPage int       `json:"current_page"`
	Limit       int       `json:"limit"`
}

// ListProjectsOptions filter the project listing. Zero values fall back to
// the server defaults (status open, limit 100, page 1).
type ListProjectsOptions struct {
	IncludeActivities bool
	Status            string
	DueDate           string
	Limit             int
	Page              int
}

// APIError wraps non-2xx responses.
type APIError struct {
	StatusCode int
	Body       string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("api error: status=%d body=%s", e.StatusCode, e.Body)
}

// CreateCustomer registers a new customer.
func (c *Client) CreateCustomer(ctx context.Context, name, email string) (Customer, error) {
	body := map[string]any{"name": name, "email": email}
	var resp Customer
	err := c.do(ctx, http.MethodPost, "customer", body, &resp)
	return resp, err
}

// GetCustomer fetches a customer by external key.
func (c *Client) GetCustomer(ctx context.Context, customerKey string) (Customer, error) {
	var resp Customer
	err := c.do(ctx, http.MethodGet, "customer/"+url.PathEscape(customerKey), nil, &resp)
	return resp, err
}

// UpdateCustomer changes the supplied fields; empty entries are omitted.
func (c *Client) UpdateCustomer(ctx context.Context, customerKey string, fields map[string]any) (Customer, error) {
	var resp Customer
	err := c.do(ctx, http.MethodPut, "customer/"+url.PathEscape(customerKey), fields, &resp)
	return resp, err
}

// CreateProject opens a project for an existing customer. dueDate may be
// empty.
func (c *Client) CreateProject(ctx context.Context, name, customerKey, dueDate string) (Project, error) {
	body := map[string]any{"name": name, "customer_key": customerKey}
	if dueDate != "" {
		body["due_date"] = dueDate
	}
	var resp Project
	err := c.do(ctx, http.MethodPost, "project", body, &resp)
	return resp, err
}

// GetProject fetches a project by external key.
func (c *Client) GetProject(ctx context.Context, projectKey string) (Project, error) {
	var resp Project
	err := c.do(ctx, http.MethodGet, "project/"+url.PathEscape(projectKey), nil, &resp)
	return resp, err
}

// UpdateProject changes the supplied fields; empty entries are omitted.
func (c *Client) UpdateProject(ctx context.Context, projectKey string, fields map[string]any) (Project, error) {
	var resp Project
	err := c.do(ctx, http.MethodPut, "project/"+url.PathEscape(projectKey), fields, &resp)
	return resp, err
}

// ListProjects returns one page of a customer's projects.
func (c *Client) ListProjects(ctx context.Context, customerKey string, opts ListProjectsOptions) (ProjectPage, error) {
	q := url.Values{}
	if opts.IncludeActivities {
		q.Set("include_activities", "true")
	}
	if opts.Status != "" {
		q.Set("status", opts.Status)
	}
	if opts.DueDate != "" {
		q.Set("due_date", opts.DueDate)
	}
	if opts.Limit > 0 {
		q.Set("limit", strconv.Itoa(opts.Limit))
	}
	if opts.Page > 0 {
		q.Set("page", strconv.Itoa(opts.Page))
	}
	endpoint := "projects/" + url.PathEscape(customerKey)
	if len(q) > 0 {
		endpoint += "?" + q.Encode()
	}
	var resp ProjectPage
	err := c.do(ctx, http.MethodGet, endpoint, nil, &resp)
	return resp, err
}

// CreateActivity records an activity on an existing project. dueDate may be
// empty.
func (c *Client) CreateActivity(ctx context.Context, description, projectKey, dueDate string) (Activity, error) {
	body := map[string]any{"description": description, "project_key": projectKey}
	if dueDate != "" {
		body["due_date"] = dueDate
	}
	var resp Activity
	err := c.do(ctx, http.MethodPost, "activity", body, &resp)
	return resp, err
}

// GetActivity fetches an activity by external key.
func (c *Client) GetActivity(ctx context.Context, activityKey string) (Activity, error) {
	var resp Activity
	err := c.do(ctx, http.MethodGet, "activity/"+url.PathEscape(activityKey), nil, &resp)
	return resp, err
}

// UpdateActivity changes the supplied fields; empty entries are omitted.
func (c *Client) UpdateActivity(ctx context.Context, activityKey string, fields map[string]any) (Activity, error) {
	var resp Activity
	err := c.do(ctx, http.MethodPut, "activity/"+url.PathEscape(activityKey), fields, &resp)
	return resp, err
}

// Health reports whether the API answers its liveness probe.
func (c *Client) Health(ctx context.Context) error {
	return c.do(ctx, http.MethodGet, "health", nil, nil)
}

func (c *Client) do(ctx context.Context, method, endpoint string, body any, out any) error {
	if c.HTTPClient == nil {
		c.HTTPClient = &http.Client{Timeout: c.Timeout}
	}
	url := c.base() + "/v1/" + strings.TrimLeft(endpoint, "/")
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			return err
		}
	}
	req, err := http.NewRequestWithContext(ctx, method, url, &buf)
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	switch {
	case c.BearerToken != "":
		req.Header.Set("Authorization", "Bearer "+c.BearerToken)
	case c.APIKey != "":
		header := c.APIKeyHeader
		if header == "" {
			header = "api-key"
		}
		req.Header.Set(header, c.APIKey)
	}
	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 300 {
		b, _ := io.ReadAll(resp.Body)
		return &APIError{StatusCode: resp.StatusCode, Body: string(b)}
	}
	if out != nil {
		return json.NewDecoder(resp.Body).Decode(out)
	}
	return nil
}

func (c *Client) base() string {
	return strings.TrimRight(c.BaseURL, "/")
}
