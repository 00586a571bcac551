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
		{"not found sentinel", ErrNotFound, KindNotFound},
		{"wrapped forbidden", fmt.Errorf("delete post: %w", ErrForbidden), KindForbidden},
		{"invalid token", InvalidToken("invalid or expired login token"), KindInvalidToken},
		{"validation", Field("email", "is required"), KindValidation},
		{"plain error", errors.New("boom"), KindInternal},
		{"nil", nil, KindInternal},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, KindOf(tt.err))
		})
	}
}

func TestSentinelIdentity(t *testing.T) {
	wrapped := fmt.Errorf("lookup: %w", ErrNotFound)

	assert.True(t, errors.Is(wrapped, ErrNotFound))
	assert.False(t, errors.Is(wrapped, NotFound("not found")))
}

func TestValidationError_Error(t *testing.T) {
	err := NewValidationError(nil,
		FieldError{Field: "title", Error: "is required"},
		FieldError{Field: "expiresAt", Error: "must be in the future"},
	)
	assert.Equal(t, "title: is required; expiresAt: must be in the future", err.Error())

	general := NewValidationError(errors.New("unsupported media type"))
	assert.Equal(t, "unsupported media type", general.Error())
}
