package server

// Request bodies. Update requests use pointers so that an absent field can be
// told apart from an explicit empty value; both leave the stored value alone.

type CreateCustomerRequest struct {
	Name  string `json:"name" minLength:"1" maxLength:"255" example:"Acme Corp"`
	Email string `json:"email" minLength:"1" maxLength:"255" format:"email" example:"ops@acme.test"`
}

type UpdateCustomerRequest struct {
	Name   *string `json:"name,omitempty" maxLength:"255"`
	Email  *string `json:"email,omitempty" maxLength:"255" format:"email"`
	Status *string `json:"status,omitempty" enum:"active,inactive,suspended"`
}

type CreateProjectRequest struct {
	Name        string  `json:"name" minLength:"1" maxLength:"255" example:"Website relaunch"`
	CustomerKey string  `json:"customer_key" minLength:"1" example:"d2c4b7e8-0000-4000-8000-000000000000"`
	DueDate     *string `json:"due_date,omitempty" format:"date"`
}

type UpdateProjectRequest struct {
	Name    *string `json:"name,omitempty" maxLength:"255"`
	Status  *string `json:"status,omitempty" enum:"open,closed"`
	DueDate *string `json:"due_date,omitempty" format:"date"`
}

type CreateActivityRequest struct {
	Description string  `json:"description" minLength:"1" example:"Draft landing page copy"`
	ProjectKey  string  `json:"project_key" minLength:"1"`
	DueDate     *string `json:"due_date,omitempty" format:"date"`
}

type UpdateActivityRequest struct {
	Description *string `json:"description,omitempty"`
	Status      *string `json:"status,omitempty" enum:"not_started,in_progress,completed,blocked"`
	DueDate     *string `json:"due_date,omitempty" format:"date"`
}

func stringOrEmpty(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
