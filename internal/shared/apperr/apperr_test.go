package apperr

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

var errInsufficient = errors.New("insufficient funds")

func TestKindMatching(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want error
		kind Kind
	}{
		{"invalid", Invalid("amount", errInsufficient), ErrValidation, KindValidation},
		{"invalidf", Invalidf("description", "description is required"), ErrValidation, KindValidation},
		{"not found", NotFound(errors.New("account not found"), "acc-1"), ErrNotFound, KindNotFound},
		{"internal", Internal(errors.New("connection reset"), "load account"), ErrInternal, KindInternal},
		{"wrapped", fmt.Errorf("create: %w", Invalid("amount", errInsufficient)), ErrValidation, KindValidation},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.ErrorIs(t, tt.err, tt.want)
			assert.Equal(t, tt.kind, KindOf(tt.err))
		})
	}
}

func TestKindsDoNotCrossMatch(t *testing.T) {
	err := Invalid("amount", errInsufficient)
	assert.NotErrorIs(t, err, ErrNotFound)
	assert.NotErrorIs(t, err, ErrInternal)
}

func TestUnwrapReachesDomainSentinel(t *testing.T) {
	err := Invalid("amount", errInsufficient)
	assert.ErrorIs(t, err, errInsufficient)
	assert.Equal(t, "amount: insufficient funds", err.Error())
	assert.Equal(t, "amount", FieldOf(err))
}

func TestNotFoundMessageNamesID(t *testing.T) {
	err := NotFound(errors.New("transaction not found"), "tx-9")
	assert.Contains(t, err.Error(), "tx-9")
}

func TestKindOfForeignError(t *testing.T) {
	assert.Equal(t, KindInternal, KindOf(errors.New("boom")))
	assert.Equal(t, "", FieldOf(errors.New("boom")))
}

func TestWrap(t *testing.T) {
	assert.NoError(t, Wrap(nil, "noop"))

	classified := Invalidf("name", "name is required")
	assert.Same(t, classified, Wrap(classified, "create account"))

	wrapped := Wrap(errors.New("disk full"), "save account")
	assert.ErrorIs(t, wrapped, ErrInternal)
	assert.Contains(t, wrapped.Error(), "failed to save account")
}
