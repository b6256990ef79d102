package fault

import "fmt"

// ValidationError indicates malformed or missing required input.
type ValidationError struct {
	Field  string
	Reason string
}

func (e ValidationError) Error() string {
	if e.Field == "" {
		return e.Reason
	}
	return fmt.Sprintf("%s: %s", e.Field, e.Reason)
}

// UnavailableError indicates a resource that exists but is inactive or
// not available for assignment.
type UnavailableError struct {
	Kind string
	ID   int64
}

func (e UnavailableError) Error() string {
	return fmt.Sprintf("%s %d is not available", e.Kind, e.ID)
}

// FieldLockedError indicates a write to a write-once field that already
// holds a different non-null value.
type FieldLockedError struct {
	Field string
}

func (e FieldLockedError) Error() string {
	return fmt.Sprintf("field %s is locked and cannot be changed", e.Field)
}

// InvalidTransitionError indicates an operation that is illegal for the
// entity's current status.
type InvalidTransitionError struct {
	Entity string
	From   string
	To     string
}

func (e InvalidTransitionError) Error() string {
	if e.To == "" {
		return fmt.Sprintf("%s status %s does not permit this operation", e.Entity, e.From)
	}
	return fmt.Sprintf("invalid %s status transition %s -> %s", e.Entity, e.From, e.To)
}

// ConflictError indicates a structural dependency violation, such as a
// delete with live dependents.
type ConflictError struct {
	Reason string
}

func (e ConflictError) Error() string { return e.Reason }

// ForbiddenError indicates the caller's role does not own the operation.
type ForbiddenError struct {
	Role     string
	Required string
}

func (e ForbiddenError) Error() string {
	return fmt.Sprintf("role %s required (caller has %s)", e.Required, e.Role)
}
