package result_test

import (
	"errors"
	"fmt"
	"testing"

	"github.com/alwitt/halcyon/result"
	"github.com/stretchr/testify/assert"
)

func TestResultBasics(t *testing.T) {
	assert := assert.New(t)

	ok := result.Ok(42)
	assert.True(ok.IsOk())
	assert.Nil(ok.Error())
	val, err := ok.Unwrap()
	assert.Nil(err)
	assert.Equal(42, val)

	failed := result.Err[int](result.Validation("bad"))
	assert.False(failed.IsOk())
	assert.Equal(0, failed.Val())
	val, err = failed.Unwrap()
	assert.Error(err)
	assert.Equal(0, val)
	assert.Equal("bad", err.Error())
	assert.Equal(result.KindValidation, result.KindOf(err))

	// nil failure must never produce an OK result
	assert.False(result.Err[int](nil).IsOk())
}

func TestResultCollect(t *testing.T) {
	assert := assert.New(t)

	// Case 0: all ok keeps order
	{
		merged := result.Collect([]result.Result[string]{
			result.Ok("a"), result.Ok("b"), result.Ok("c"),
		})
		assert.True(merged.IsOk())
		assert.Equal([]string{"a", "b", "c"}, merged.Val())
	}

	// Case 1: first failure wins
	{
		first := result.Validation("first")
		merged := result.Collect([]result.Result[string]{
			result.Ok("a"), result.Err[string](first), result.Err[string](result.Decryption()),
		})
		assert.False(merged.IsOk())
		assert.Same(first, merged.Error())
		assert.Nil(merged.Val())
	}

	// Case 2: empty batch
	{
		merged := result.Collect([]result.Result[int]{})
		assert.True(merged.IsOk())
		assert.Empty(merged.Val())
	}
}

func TestResultMapShortCircuit(t *testing.T) {
	assert := assert.New(t)

	calls := 0
	merged := result.Map([]int{1, 2, 3, 4}, func(v int) result.Result[string] {
		calls++
		if v == 2 {
			return result.Err[string](result.Decryption())
		}
		return result.Ok(fmt.Sprint(v))
	})
	assert.False(merged.IsOk())
	assert.Equal(result.KindDecryption, merged.Error().Kind)
	assert.Equal(2, calls)
}

func TestErrorConversion(t *testing.T) {
	assert := assert.New(t)

	cause := errors.New("connection reset")
	upstream := result.AsError(fmt.Errorf("query failed [%w]", cause))
	assert.Equal(result.KindUpstream, upstream.Kind)
	assert.Equal(result.UpstreamFailedMsg, upstream.Message)
	assert.ErrorIs(upstream, cause)

	wrapped := fmt.Errorf("outer [%w]", result.Authentication())
	assert.Equal(result.KindAuthentication, result.KindOf(wrapped))
	assert.ErrorIs(wrapped, result.Authentication())
	assert.Equal(result.InvalidLoginMsg, result.AsError(wrapped).Message)

	r := result.FromError("", wrapped)
	assert.False(r.IsOk())
	assert.Equal(result.KindAuthentication, r.Error().Kind)

	assert.Nil(result.AsError(nil))
}
