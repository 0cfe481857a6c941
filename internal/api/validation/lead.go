package validation

// allowedLeadFields are the lead columns a PATCH request may update.
var allowedLeadFields = map[string]bool{
	"email":       true,
	"company":     true,
	"quarter":     true,
	"campaign":    true,
	"source_file": true,
	"exclusions":  true,
}

// UpdateLeadRequest mirrors the fields needed for lead update validation.
type UpdateLeadRequest struct {
	Fields map[string]string
}

// ValidateUpdateLeadRequest validates the fields of a lead update request.
func ValidateUpdateLeadRequest(req UpdateLeadRequest) []FieldError {
	var errs []FieldError

	if len(req.Fields) == 0 {
		errs = append(errs, FieldError{Field: "fields", Message: "at least one field is required"})
		return errs
	}

	for f := range req.Fields {
		if !allowedLeadFields[f] {
			errs = append(errs, FieldError{Field: "fields." + f, Message: "field is not updatable"})
		}
	}

	return errs
}
