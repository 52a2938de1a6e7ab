package fn

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOkAndErr(t *testing.T) {
	r := Ok(42)
	assert.True(t, r.IsOk())
	assert.False(t, r.IsErr())
	v, err := r.Unwrap()
	require.NoError(t, err)
	assert.Equal(t, 42, v)

	e := Err[int](errors.New("fail"))
	assert.False(t, e.IsOk())
	assert.True(t, e.IsErr())
	assert.EqualError(t, e.Error(), "fail")
}

func TestErrf(t *testing.T) {
	r := Errf[string]("code %d", 404)
	_, err := r.Unwrap()
	require.Error(t, err)
	assert.Equal(t, "code 404", err.Error())
}

func TestFromPair(t *testing.T) {
	assert.True(t, FromPair("x", nil).IsOk())
	assert.True(t, FromPair("x", errors.New("boom")).IsErr())
}

func TestUnwrapOr(t *testing.T) {
	assert.Equal(t, 1, Ok(1).UnwrapOr(9))
	assert.Equal(t, 9, Err[int](errors.New("x")).UnwrapOr(9))
}

func TestValues_SkipsFailures(t *testing.T) {
	results := []Result[string]{Ok("a"), Err[string](errors.New("x")), Ok("c"), {}}
	assert.Equal(t, []string{"a", "c"}, Values(results))
}
