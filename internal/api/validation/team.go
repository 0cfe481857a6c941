package validation

import "strings"

// CreateTeamRequest mirrors the fields needed for create team validation.
type CreateTeamRequest struct {
	Name string
}

// ValidateCreateTeamRequest validates the fields of a create team request.
func ValidateCreateTeamRequest(req CreateTeamRequest) []FieldError {
	var errs []FieldError

	name := strings.TrimSpace(req.Name)
	if name == "" {
		errs = append(errs, FieldError{Field: "name", Message: "name is required"})
	} else if len(name) > 64 {
		errs = append(errs, FieldError{Field: "name", Message: "name must be at most 64 characters"})
	}

	return errs
}
