package utils

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Ramsey-B/clover/pkg/models"
)

func TestValidate_SignupCandidate(t *testing.T) {
	tests := []struct {
		name      string
		candidate models.SignupCandidate
		wantErr   string
	}{
		{
			name:      "valid",
			candidate: models.SignupCandidate{AccountType: models.AccountTypeBusiness, DisplayName: "Acme", Email: "a@b.test"},
		},
		{
			name:      "unknown account type",
			candidate: models.SignupCandidate{AccountType: "admin", DisplayName: "Acme"},
			wantErr:   "field 'AccountType' failed rule 'oneof=business customer'",
		},
		{
			name:      "missing name",
			candidate: models.SignupCandidate{AccountType: models.AccountTypeCustomer},
			wantErr:   "field 'DisplayName' failed rule 'required'",
		},
		{
			name:      "bad email",
			candidate: models.SignupCandidate{AccountType: models.AccountTypeCustomer, DisplayName: "Jane", Email: "not-an-email"},
			wantErr:   "field 'Email' failed rule 'email'",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Validate(tt.candidate)
			if tt.wantErr == "" {
				require.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}
