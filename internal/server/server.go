package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"path"
	"strings"
	"sync"

	"github.com/danielgtaylor/huma/v2"
	humachi "github.com/danielgtaylor/huma/v2/adapters/humachi"
	"github.com/go-chi/chi/v5"

	"taskflow/internal/service"
)

// Config for the HTTP API handler.
type Config struct {
	Services service.Services
	BasePath string
	Title    string
	Auth     AuthConfig
}

type apiErrorBody struct {
	Code    string         `json:"code" example:"not_found"`
	Message string         `json:"message" example:"Customer not found"`
	Details map[string]any `json:"details,omitempty" jsonschema:"type=object,additionalProperties=true"`
}

// apiError models the error envelope.
type apiError struct {
	status int
	Body   apiErrorBody `json:"error"`
}

func (e *apiError) GetStatus() int { return e.status }
func (e *apiError) Error() string  { return e.Body.Message }

// New returns an HTTP handler exposing the task flow API.
func New(cfg Config) (http.Handler, error) {
	basePath := cfg.BasePath
	if basePath == "" {
		basePath = "/v1"
	}
	if !strings.HasPrefix(basePath, "/") {
		basePath = "/" + basePath
	}
	title := cfg.Title
	if title == "" {
		title = "TASK FLOW API"
	}
	huma.DefaultArrayNullable = false
	// Override Huma errors to use the envelope.
	huma.NewError = func(status int, msg string, errs ...error) huma.StatusError {
		return newAPIError(status, "", msg, nil)
	}
	huma.NewErrorWithContext = func(_ huma.Context, status int, msg string, errs ...error) huma.StatusError {
		if status == http.StatusUnprocessableEntity && strings.Contains(strings.ToLower(msg), "validation") {
			status = http.StatusBadRequest
		}
		var details map[string]any
		if len(errs) > 0 {
			details = map[string]any{"errors": errs}
		}
		return newAPIError(status, "", msg, details)
	}

	router := chi.NewRouter()
	router.Use(newAuthMiddleware(basePath, cfg.Auth))
	hcfg := huma.DefaultConfig(title, "1.0.0")
	hcfg.OpenAPIPath = "/openapi"
	hcfg.DocsPath = "" // custom Swagger UI below
	api := humachi.New(router, hcfg)
	group := huma.NewGroup(api, basePath)

	registerDocs(router, basePath, title)
	registerHealth(group)
	registerCustomers(group, cfg.Services.Customers)
	registerProjects(group, cfg.Services.Projects)
	registerActivities(group, cfg.Services.Activities)
	registerOpenAPI(router, api, basePath, cfg.Auth.headerName())

	return router, nil
}

func newAPIError(status int, code, message string, details map[string]any) huma.StatusError {
	if code == "" {
		code = defaultCodeForStatus(status)
	}
	return &apiError{
		status: status,
		Body: apiErrorBody{
			Code:    code,
			Message: message,
			Details: details,
		},
	}
}

// handleError maps service errors onto HTTP statuses. Not-found carries the
// entity name in its message; everything else surfaces as the opaque
// internal error, already stripped of its cause.
func handleError(err error) huma.StatusError {
	if err == nil {
		return nil
	}
	var nf service.NotFoundError
	if errors.As(err, &nf) {
		return newAPIError(http.StatusNotFound, "not_found", err.Error(), nil)
	}
	return newAPIError(http.StatusInternalServerError, "internal_error", err.Error(), nil)
}

func defaultCodeForStatus(status int) string {
	switch status {
	case http.StatusBadRequest:
		return "bad_request"
	case http.StatusUnauthorized:
		return "unauthorized"
	case http.StatusNotFound:
		return "not_found"
	case http.StatusUnprocessableEntity:
		return "validation_failed"
	case http.StatusInternalServerError:
		return "internal_error"
	default:
		return strings.ToLower(strings.ReplaceAll(http.StatusText(status), " ", "_"))
	}
}

func registerHealth(api huma.API) {
	huma.Register(api, huma.Operation{
		OperationID: "health",
		Method:      http.MethodGet,
		Path:        "/health",
		Summary:     "Health check",
	}, func(ctx context.Context, _ *struct{}) (*struct {
		Body map[string]string `json:"body"`
	}, error) {
		return &struct {
			Body map[string]string `json:"body"`
		}{Body: map[string]string{"status": "ok"}}, nil
	})
}

func registerCustomers(api huma.API, svc service.Customers) {
	huma.Register(api, huma.Operation{
		OperationID:   "create-customer",
		Method:        http.MethodPost,
		Path:          "/customer",
		Summary:       "Create customer",
		DefaultStatus: http.StatusCreated,
		Errors: []int{
			http.StatusBadRequest,
			http.StatusUnauthorized,
			http.StatusInternalServerError,
		},
	}, func(ctx context.Context, input *struct {
		Body CreateCustomerRequest `json:"body"`
	}) (*struct {
		Body service.CustomerResponse `json:"body"`
	}, error) {
		c, err := svc.Create(ctx, service.CreateCustomerInput{
			Name:  input.Body.Name,
			Email: input.Body.Email,
		})
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body service.CustomerResponse `json:"body"`
		}{Body: c}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "get-customer",
		Method:      http.MethodGet,
		Path:        "/customer/{customer_key}",
		Summary:     "Get customer",
		Errors:      []int{http.StatusUnauthorized, http.StatusNotFound},
	}, func(ctx context.Context, input *struct {
		CustomerKey string `path:"customer_key"`
	}) (*struct {
		Body service.CustomerResponse `json:"body"`
	}, error) {
		c, err := svc.Get(ctx, input.CustomerKey)
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body service.CustomerResponse `json:"body"`
		}{Body: c}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "update-customer",
		Method:      http.MethodPut,
		Path:        "/customer/{customer_key}",
		Summary:     "Update customer",
		Errors: []int{
			http.StatusBadRequest,
			http.StatusUnauthorized,
			http.StatusNotFound,
			http.StatusInternalServerError,
		},
	}, func(ctx context.Context, input *struct {
		CustomerKey string                `path:"customer_key"`
		Body        UpdateCustomerRequest `json:"body"`
	}) (*struct {
		Body service.CustomerResponse `json:"body"`
	}, error) {
		c, err := svc.Update(ctx, input.CustomerKey, service.UpdateCustomerInput{
			Name:   stringOrEmpty(input.Body.Name),
			Email:  stringOrEmpty(input.Body.Email),
			Status: stringOrEmpty(input.Body.Status),
		})
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body service.CustomerResponse `json:"body"`
		}{Body: c}, nil
	})
}

func registerProjects(api huma.API, svc service.Projects) {
	huma.Register(api, huma.Operation{
		OperationID:   "create-project",
		Method:        http.MethodPost,
		Path:          "/project",
		Summary:       "Create project",
		DefaultStatus: http.StatusCreated,
		Errors: []int{
			http.StatusBadRequest,
			http.StatusUnauthorized,
			http.StatusNotFound,
			http.StatusInternalServerError,
		},
	}, func(ctx context.Context, input *struct {
		Body CreateProjectRequest `json:"body"`
	}) (*struct {
		Body service.ProjectResponse `json:"body"`
	}, error) {
		p, err := svc.Create(ctx, service.CreateProjectInput{
			Name:        input.Body.Name,
			CustomerKey: input.Body.CustomerKey,
			DueDate:     stringOrEmpty(input.Body.DueDate),
		})
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body service.ProjectResponse `json:"body"`
		}{Body: p}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "get-project",
		Method:      http.MethodGet,
		Path:        "/project/{project_key}",
		Summary:     "Get project",
		Errors:      []int{http.StatusUnauthorized, http.StatusNotFound},
	}, func(ctx context.Context, input *struct {
		ProjectKey string `path:"project_key"`
	}) (*struct {
		Body service.ProjectResponse `json:"body"`
	}, error) {
		p, err := svc.Get(ctx, input.ProjectKey)
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body service.ProjectResponse `json:"body"`
		}{Body: p}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "update-project",
		Method:      http.MethodPut,
		Path:        "/project/{project_key}",
		Summary:     "Update project",
		Errors: []int{
			http.StatusBadRequest,
			http.StatusUnauthorized,
			http.StatusNotFound,
			http.StatusInternalServerError,
		},
	}, func(ctx context.Context, input *struct {
		ProjectKey string               `path:"project_key"`
		Body       UpdateProjectRequest `json:"body"`
	}) (*struct {
		Body service.ProjectResponse `json:"body"`
	}, error) {
		p, err := svc.Update(ctx, input.ProjectKey, service.UpdateProjectInput{
			Name:    stringOrEmpty(input.Body.Name),
			Status:  stringOrEmpty(input.Body.Status),
			DueDate: stringOrEmpty(input.Body.DueDate),
		})
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body service.ProjectResponse `json:"body"`
		}{Body: p}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "list-projects",
		Method:      http.MethodGet,
		Path:        "/projects/{customer_key}",
		Summary:     "List projects for a customer",
		Errors: []int{
			http.StatusBadRequest,
			http.StatusUnauthorized,
			http.StatusNotFound,
		},
	}, func(ctx context.Context, input *struct {
		CustomerKey       string `path:"customer_key"`
		IncludeActivities bool   `query:"include_activities" default:"false"`
		Status            string `query:"status" enum:"open,closed" default:"open"`
		DueDate           string `query:"due_date" format:"date"`
		Limit             int    `query:"limit" default:"100" minimum:"1"`
		Page              int    `query:"page" default:"1" minimum:"1"`
	}) (*struct {
		Body service.PaginatedProjectsResponse `json:"body"`
	}, error) {
		page, err := svc.ListByCustomer(ctx, service.ListProjectsInput{
			CustomerKey:       input.CustomerKey,
			IncludeActivities: input.IncludeActivities,
			Status:            input.Status,
			DueDate:           input.DueDate,
			Limit:             input.Limit,
			Page:              input.Page,
		})
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body service.PaginatedProjectsResponse `json:"body"`
		}{Body: page}, nil
	})
}

func registerActivities(api huma.API, svc service.Activities) {
	huma.Register(api, huma.Operation{
		OperationID:   "create-activity",
		Method:        http.MethodPost,
		Path:          "/activity",
		Summary:       "Create activity",
		DefaultStatus: http.StatusCreated,
		Errors: []int{
			http.StatusBadRequest,
			http.StatusUnauthorized,
			http.StatusNotFound,
			http.StatusInternalServerError,
		},
	}, func(ctx context.Context, input *struct {
		Body CreateActivityRequest `json:"body"`
	}) (*struct {
		Body service.ActivityResponse `json:"body"`
	}, error) {
		a, err := svc.Create(ctx, service.CreateActivityInput{
			Description: input.Body.Description,
			ProjectKey:  input.Body.ProjectKey,
			DueDate:     stringOrEmpty(input.Body.DueDate),
		})
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body service.ActivityResponse `json:"body"`
		}{Body: a}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "get-activity",
		Method:      http.MethodGet,
		Path:        "/activity/{activity_key}",
		Summary:     "Get activity",
		Errors:      []int{http.StatusUnauthorized, http.StatusNotFound},
	}, func(ctx context.Context, input *struct {
		ActivityKey string `path:"activity_key"`
	}) (*struct {
		Body service.ActivityResponse `json:"body"`
	}, error) {
		a, err := svc.Get(ctx, input.ActivityKey)
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body service.ActivityResponse `json:"body"`
		}{Body: a}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "update-activity",
		Method:      http.MethodPut,
		Path:        "/activity/{activity_key}",
		Summary:     "Update activity",
		Errors: []int{
			http.StatusBadRequest,
			http.StatusUnauthorized,
			http.StatusNotFound,
			http.StatusInternalServerError,
		},
	}, func(ctx context.Context, input *struct {
		ActivityKey string                `path:"activity_key"`
		Body        UpdateActivityRequest `json:"body"`
	}) (*struct {
		Body service.ActivityResponse `json:"body"`
	}, error) {
		a, err := svc.Update(ctx, input.ActivityKey, service.UpdateActivityInput{
			Description: stringOrEmpty(input.Body.Description),
			Status:      stringOrEmpty(input.Body.Status),
			DueDate:     stringOrEmpty(input.Body.DueDate),
		})
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body service.ActivityResponse `json:"body"`
		}{Body: a}, nil
	})
}

func registerDocs(r chi.Router, basePath, title string) {
	r.Get("/docs", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html")
		io.WriteString(w, swaggerHTML(basePath, title))
	})
}

func registerOpenAPI(r chi.Router, api huma.API, basePath, apiKeyHeader string) {
	var once sync.Once
	var spec []byte
	specPath := path.Join(basePath, "openapi.json")
	r.Get(specPath, func(w http.ResponseWriter, r *http.Request) {
		once.Do(func() {
			oas := api.OpenAPI()
			applyAuthSecurity(oas, basePath, apiKeyHeader)
			spec, _ = json.Marshal(oas)
		})
		w.Header().Set("Content-Type", "application/json")
		w.Write(spec)
	})
}

func applyAuthSecurity(oas *huma.OpenAPI, basePath, apiKeyHeader string) {
	if oas == nil {
		return
	}
	if oas.Components == nil {
		oas.Components = &huma.Components{}
	}
	if oas.Components.SecuritySchemes == nil {
		oas.Components.SecuritySchemes = map[string]*huma.SecurityScheme{}
	}
	oas.Components.SecuritySchemes["apiKeyAuth"] = &huma.SecurityScheme{
		Type: "apiKey",
		In:   "header",
		Name: apiKeyHeader,
	}
	oas.Components.SecuritySchemes["bearerAuth"] = &huma.SecurityScheme{
		Type:         "http",
		Scheme:       "bearer",
		BearerFormat: "JWT",
	}
	security := []map[string][]string{
		{"apiKeyAuth": {}},
		{"bearerAuth": {}},
	}
	oas.Security = security
	healthPath := path.Join(basePath, "health")
	for route, item := range oas.Paths {
		for _, op := range []*huma.Operation{
			item.Get, item.Put, item.Post, item.Delete, item.Options, item.Head, item.Patch, item.Trace,
		} {
			if op == nil {
				continue
			}
			if route == healthPath {
				op.Security = []map[string][]string{}
				continue
			}
			op.Security = security
		}
	}
}

func swaggerHTML(basePath, title string) string {
	specURL := path.Join("/", path.Join(basePath, "openapi.json"))
	return fmt.Sprintf(`<!doctype html>
<html lang="en">
  <head>
    <meta charset="utf-8"/>
    <meta name="viewport" content="width=device-width, initial-scale=1"/>
    <title>%s Docs</title>
    <link rel="stylesheet" href="https://unpkg.com/swagger-ui-dist@5/swagger-ui.css" />
  </head>
  <body>
    <div id="swagger-ui"></div>
    <script src="https://unpkg.com/swagger-ui-dist@5/swagger-ui-bundle.js" crossorigin></script>
    <script>
      window.onload = () => {
        SwaggerUIBundle({
          url: '%s',
          dom_id: '#swagger-ui'
        });
      };
    </script>
  </body>
</html>`, title, specURL)
}
