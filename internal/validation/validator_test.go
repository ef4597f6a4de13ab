package validation

import (
	"testing"

	"registrar/internal/models"

	"github.com/go-playground/validator/v10"
	"github.com/stretchr/testify/require"
)

type sample struct {
	Username string      `validate:"required,nospaces"`
	Role     models.Role `validate:"omitempty,role"`
}

func TestValidators(t *testing.T) {
	v := validator.New()
	Register(v)

	tests := []struct {
		name    string
		input   sample
		wantErr bool
	}{
		{name: "Valid", input: sample{Username: "alice", Role: models.RoleFaculty}},
		{name: "Empty Role", input: sample{Username: "alice"}},
		{name: "Inner Space", input: sample{Username: "ali ce"}, wantErr: true},
		{name: "Tab", input: sample{Username: "alice\t"}, wantErr: true},
		{name: "Unknown Role", input: sample{Username: "alice", Role: "dean"}, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := v.Struct(tt.input)
			if tt.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
		})
	}
}

func TestInitializeIdempotent(t *testing.T) {
	require.NotPanics(t, func() {
		Initialize()
		Initialize()
	})
}
