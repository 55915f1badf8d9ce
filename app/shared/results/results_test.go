package results

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestOperationResult(t *testing.T) {
	ok := SuccessResult[int, error](42)
	assert.True(t, ok.IsSuccess())
	assert.False(t, ok.IsFailure())
	assert.Equal(t, 42, *ok.Success)

	failErr := errors.New("boom")
	fail := FailureResult[int, error](failErr)
	assert.True(t, fail.IsFailure())
	assert.False(t, fail.IsSuccess())
	assert.ErrorIs(t, *fail.Failure, failErr)

	var zero OperationResult[int, error]
	assert.False(t, zero.IsSuccess())
	assert.False(t, zero.IsFailure())
}
