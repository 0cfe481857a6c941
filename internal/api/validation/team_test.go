package validation_test

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/Techmee-Digital/arkane/internal/api/validation"
)

func TestValidateCreateTeamRequest(t *testing.T) {
	tests := []struct {
		name      string
		req       validation.CreateTeamRequest
		wantField string
	}{
		{"valid", validation.CreateTeamRequest{Name: "ops"}, ""},
		{"missing name", validation.CreateTeamRequest{}, "name"},
		{"whitespace only", validation.CreateTeamRequest{Name: "   "}, "name"},
		{"too long", validation.CreateTeamRequest{Name: strings.Repeat("x", 65)}, "name"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			errs := validation.ValidateCreateTeamRequest(tt.req)

			if tt.wantField == "" {
				assert.Empty(t, errs)
			} else {
				assert.Len(t, errs, 1)
				assert.Equal(t, tt.wantField, errs[0].Field)
			}
		})
	}
}

func TestValidateCreateTeamRequest_MaxLengthBoundary(t *testing.T) {
	errs := validation.ValidateCreateTeamRequest(validation.CreateTeamRequest{
		Name: strings.Repeat("x", 64),
	})

	assert.Empty(t, errs, "64 characters is still valid")
}
