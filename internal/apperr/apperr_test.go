package apperr

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestMessageTableCoversEveryCode(t *testing.T) {
	codes := []Code{
		CodeChitDetailsRequired, CodeChitExists, CodeChitNameRequired, CodeChitNotFound,
		CodeChitEmpty, CodeAmountInvalid, CodeInstallmentInvalid, CodeTenureInvalid,
		CodeSlotIDNegative, CodeSlotNotFound, CodeRequiredNonPositive, CodeRequiredAmountInvalid,
		CodeSplitAmountsInvalid, CodeSplitExceedsSlot, CodeBalanceExceeded, CodeConcurrentUpdate, CodeLedgerUnbalanced,
		CodeUserNumberRequired, CodeUserNotFound, CodeUserExists, CodeUserEmpty,
		CodeUserDetailsRequired, CodeCredentialsRequired, CodePasswordInvalid,
		CodeCounterNameRequired, CodeStorageUnavailable,
	}
	for _, code := range codes {
		_, ok := messages[code]
		assert.True(t, ok, "missing message for %s", code)
	}
}

func TestErrorHidesCauseFromMessage(t *testing.T) {
	cause := errors.New("disk I/O error")
	err := StorageFailure(cause)

	assert.Equal(t, "storage unavailable", err.Message())
	assert.Contains(t, err.Error(), "disk I/O error")
	assert.ErrorIs(t, err, cause)
}

func TestKindOfWrapped(t *testing.T) {
	err := fmt.Errorf("allocate: %w", NotFound(CodeSlotNotFound))

	assert.Equal(t, KindNotFound, KindOf(err))
	assert.Equal(t, CodeSlotNotFound, CodeOf(err))
	assert.ErrorIs(t, err, NotFound(CodeSlotNotFound))
	assert.NotErrorIs(t, err, NotFound(CodeChitNotFound))
	assert.Equal(t, KindUnknown, KindOf(errors.New("plain")))
}

func TestUnknownCodeFallsBackToCode(t *testing.T) {
	assert.Equal(t, "something_else", Message(Code("something_else")))
}
