package apperr

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestKindOf(t *testing.T) {
	t.Run("business error keeps its kind through wrapping", func(t *testing.T) {
		err := fmt.Errorf("follow: %w", Forbidden("tier too low"))
		assert.Equal(t, KindForbidden, KindOf(err))
		assert.True(t, IsKind(err, KindForbidden))
	})

	t.Run("plain error is internal", func(t *testing.T) {
		assert.Equal(t, KindInternal, KindOf(errors.New("boom")))
	})

	t.Run("nil has no kind", func(t *testing.T) {
		assert.Equal(t, Kind(""), KindOf(nil))
		assert.False(t, IsKind(nil, KindNotFound))
	})
}

func TestErrorsIs(t *testing.T) {
	err := NotFound("post not found")

	assert.True(t, errors.Is(err, NotFound("")))
	assert.True(t, errors.Is(err, NotFound("post not found")))
	assert.False(t, errors.Is(err, NotFound("user not found")))
	assert.False(t, errors.Is(err, Forbidden("")))
}

func TestWrap(t *testing.T) {
	cause := errors.New("connection reset")
	err := Wrap(KindInternal, "load user", cause)

	assert.ErrorIs(t, err, cause)
	assert.Equal(t, "load user: connection reset", err.Error())
}
