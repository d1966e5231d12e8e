package service

// NotFoundError marks a caller-supplied external key that matched no row.
// Entity names the missing type ("Customer", "Project", "Activity").
type NotFoundError struct {
	Entity string
}

func (e NotFoundError) Error() string { return e.Entity + " not found" }

// InternalError hides the cause behind a fixed message. The wrapped error is
// available to the process (logs, errors.Unwrap) but not to API clients.
type InternalError struct {
	cause error
}

func (e InternalError) Error() string { return "An internal error occurred" }

func (e InternalError) Unwrap() error { return e.cause }
