package domain

// Customer is a row in the customers table. ID is the storage identity and
// never leaves the process; Key is the external identity used by the API.
type Customer struct {
	ID        int64  `json:"-"`
	Key       string `json:"customer_key"`
	Name      string `json:"name"`
	Email     string `json:"email"`
	Status    string `json:"status" enum:"active,inactive,suspended"`
	CreatedAt string `json:"created_at" format:"date-time"`
	UpdatedAt string `json:"updated_at" format:"date-time"`
}

type Project struct {
	ID          int64  `json:"-"`
	Key         string `json:"project_key"`
	CustomerID  int64  `json:"-"`
	CustomerKey string `json:"customer_key"`
	Name        string `json:"name"`
	Status      string `json:"status" enum:"open,closed"`
	DueDate     string `json:"due_date,omitempty" format:"date"`
	CreatedAt   string `json:"created_at" format:"date-time"`
	UpdatedAt   string `json:"updated_at" format:"date-time"`
}

type Activity struct {
	ID          int64  `json:"-"`
	Key         string `json:"activity_key"`
	ProjectID   int64  `json:"-"`
	ProjectKey  string `json:"project_key"`
	Description string `json:"description"`
	Status      string `json:"status" enum:"not_started,in_progress,completed,blocked"`
	DueDate     string `json:"due_date,omitempty" format:"date"`
	CreatedAt   string `json:"created_at" format:"date-time"`
	UpdatedAt   string `json:"updated_at" format:"date-time"`
}

// Status is one row of a status lookup table (customer_statuses,
// project_statuses, activity_statuses). Enumerator is the stable token the
// API exchanges; owning entities reference the row by ID.
type Status struct {
	ID         int64  `json:"id"`
	Enumerator string `json:"enumerator"`
	CreatedAt  string `json:"created_at" format:"date-time"`
}
