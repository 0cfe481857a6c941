package validation

import "github.com/Techmee-Digital/arkane/internal/dedupe"

// CommitRequest mirrors the fields needed for commit validation.
type CommitRequest struct {
	Mode string
}

// ValidateCommitRequest validates the fields of a commit request.
func ValidateCommitRequest(req CommitRequest) []FieldError {
	var errs []FieldError

	switch dedupe.Mode(req.Mode) {
	case dedupe.ModeAll, dedupe.ModeDuplicatesOnly:
	case "":
		errs = append(errs, FieldError{Field: "mode", Message: "mode is required"})
	default:
		errs = append(errs, FieldError{Field: "mode", Message: `mode must be "all" or "duplicates"`})
	}

	return errs
}
