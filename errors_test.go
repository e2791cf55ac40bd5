package strongbox

import (
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
)

func TestError(t *testing.T) {
	assert.Implements(t, (*error)(nil), new(Error))

	t.Run("NewErrorFormatsMessage", func(t *testing.T) {
		err := NewError(KindNotFound, "Secret %q not found.", "breakfast")
		assert.Error(t, err)
		assert.Equal(t, `Secret "breakfast" not found.`, err.Error())
		assert.True(t, IsNotFound(err))
	})
	t.Run("WrapErrorIncludesCause", func(t *testing.T) {
		cause := errors.New("connection reset")
		err := WrapError(cause, KindListFailed, "listing secrets")
		assert.Error(t, err)
		assert.Equal(t, "listing secrets: connection reset", err.Error())
		assert.Equal(t, cause, errors.Cause(err.Cause))
	})
	t.Run("WrapErrorReturnsNilForNilCause", func(t *testing.T) {
		err := WrapError(nil, KindListFailed, "listing secrets")
		assert.Nil(t, err)
	})
	t.Run("KindOfReportsKind", func(t *testing.T) {
		assert.Equal(t, KindThrottled, KindOf(NewError(KindThrottled, "slow down")))
	})
	t.Run("KindOfReportsUnknownForForeignErrors", func(t *testing.T) {
		assert.Equal(t, KindUnknown, KindOf(errors.New("some error")))
	})
	t.Run("KindMatchersMatchWrappedErrors", func(t *testing.T) {
		err := errors.Wrap(NewError(KindAccessDenied, "not authorized"), "wrapping message")
		assert.True(t, IsAccessDenied(err))
		assert.False(t, IsNotFound(err))
	})
	t.Run("KindMatchersRejectOtherErrors", func(t *testing.T) {
		err := errors.New("some error")
		assert.False(t, IsNotFound(err))
		assert.False(t, IsAccessDenied(err))
		assert.False(t, IsThrottled(err))
		assert.False(t, IsInvalidState(err))
		assert.False(t, IsUnsupportedFormat(err))
	})
}
