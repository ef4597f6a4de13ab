package apperror

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestKindStatus(t *testing.T) {
	tests := []struct {
		kind Kind
		want int
	}{
		{KindInvalidInput, http.StatusBadRequest},
		{KindUnauthenticated, http.StatusUnauthorized},
		{KindForbidden, http.StatusForbidden},
		{KindNotFound, http.StatusNotFound},
		{KindConflict, http.StatusConflict},
		{KindTooManyRequests, http.StatusTooManyRequests},
		{KindInternal, http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.kind.String(), func(t *testing.T) {
			require.Equal(t, tt.want, tt.kind.Status())
		})
	}
}

func TestAs(t *testing.T) {
	cause := errors.New("connection refused")

	e := As(fmt.Errorf("query users: %w", cause))
	require.Equal(t, KindInternal, e.Kind)
	require.Equal(t, "internal server error", e.Message)
	require.ErrorIs(t, e, cause)

	conflict := Conflict("already configured")
	require.Same(t, conflict, As(fmt.Errorf("wrapped: %w", conflict)))
	require.Equal(t, KindConflict, KindOf(fmt.Errorf("wrapped: %w", conflict)))
}

func TestIsMatchesKindAndMessage(t *testing.T) {
	sentinel := Unauthenticated("invalid username and/or password")
	err := fmt.Errorf("login: %w", Unauthenticated("invalid username and/or password"))

	require.ErrorIs(t, err, sentinel)
	require.NotErrorIs(t, err, Unauthenticated("something else"))
}
