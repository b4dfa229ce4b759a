package apperr

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestKindOf(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want Kind
	}{
		{"not found", NotFound("offer not found"), KindNotFound},
		{"forbidden", Forbidden("not the seller"), KindForbidden},
		{"invalid state", InvalidState("offer is not pending"), KindInvalidState},
		{"validation", Validation("amount must be positive"), KindValidation},
		{"conflict", Conflict("active offer already exists"), KindConflict},
		{"internal", Internal("query failed", errors.New("boom")), KindInternal},
		{"plain error", errors.New("boom"), KindInternal},
		{"wrapped", fmt.Errorf("create offer: %w", Conflict("dup")), KindConflict},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, KindOf(tt.err))
		})
	}
}

func TestMessageOf(t *testing.T) {
	assert.Equal(t, "offer not found", MessageOf(NotFound("offer not found")))
	assert.Equal(t, "internal server error", MessageOf(errors.New("pq: connection refused")))
}

func TestUnwrap(t *testing.T) {
	cause := errors.New("row scan failed")
	err := Internal("load transaction", cause)
	assert.True(t, errors.Is(err, cause))
}
