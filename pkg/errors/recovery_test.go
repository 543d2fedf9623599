package errors

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRecover(t *testing.T) {
	t.Run("panic becomes PanicError", func(t *testing.T) {
		fn := func() (err error) {
			defer Recover(&err, "TrainTest")
			panic("index out of range")
		}

		err := fn()
		require.Error(t, err)

		var panicErr *PanicError
		require.True(t, As(err, &panicErr))
		assert.Equal(t, "TrainTest", panicErr.Operation)
		assert.Equal(t, "panic in TrainTest: index out of range", panicErr.Error())
		assert.NotEmpty(t, panicErr.StackTrace)
	})

	t.Run("no panic leaves error untouched", func(t *testing.T) {
		fn := func() (err error) {
			defer Recover(&err, "TrainTest")
			return nil
		}
		assert.NoError(t, fn())
	})

	t.Run("existing error is kept", func(t *testing.T) {
		original := New("learner exited")
		fn := func() (err error) {
			defer Recover(&err, "TrainTest")
			err = original
			panic("after error")
		}

		err := fn()
		var panicErr *PanicError
		require.True(t, As(err, &panicErr))
		assert.Equal(t, "after error", panicErr.PanicValue)
	})

	t.Run("error panic value unwraps", func(t *testing.T) {
		err := SafeExecute("rank", func() error {
			panic(ErrEmptyData)
		})
		assert.True(t, Is(err, ErrEmptyData))
	})
}

func TestSafeCall(t *testing.T) {
	got, err := SafeCall("rank", func() ([]string, error) {
		return []string{"a", "b"}, nil
	})
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "b"}, got)

	got, err = SafeCall("rank", func() ([]string, error) {
		var m map[string][]string
		m["x"] = nil
		return nil, nil
	})
	assert.Error(t, err)
	assert.Nil(t, got)
}
