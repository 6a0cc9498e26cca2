package errs

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestKindOf(t *testing.T) {
	assert.Equal(t, InvalidArgument, KindOf(InvalidArgumentf("book id is required")))
	assert.Equal(t, NotFound, KindOf(NotFoundf("book", "b1")))
	assert.Equal(t, AlreadyExists, KindOf(AlreadyExistsf("member exists")))
	assert.Equal(t, FailedPrecondition, KindOf(FailedPreconditionf("book unavailable")))
	assert.Equal(t, Internal, KindOf(errors.New("boom")))
	assert.Equal(t, Internal, KindOf(nil))
}

func TestKindOfWrapped(t *testing.T) {
	err := fmt.Errorf("borrow: %w", NotFoundf("member", "m1"))

	assert.True(t, Is(err, NotFound))
	assert.False(t, Is(err, FailedPrecondition))
	assert.Equal(t, "member", ResourceOf(err))
}

func TestInternalUnwraps(t *testing.T) {
	cause := errors.New("connection refused")
	err := Internalf(cause, "failed to begin transaction")

	require.ErrorIs(t, err, cause)
	assert.Equal(t, "failed to begin transaction: connection refused", err.Error())
	assert.Equal(t, Internal, KindOf(err))
}

func TestParseKindRoundTrip(t *testing.T) {
	for _, k := range Kinds {
		parsed, ok := ParseKind(k.String())
		require.True(t, ok, k.String())
		assert.Equal(t, k, parsed)
	}

	_, ok := ParseKind("UNAVAILABLE")
	assert.False(t, ok)
}

func TestOrInternal(t *testing.T) {
	assert.NoError(t, OrInternal(nil, "unused"))

	tagged := FailedPreconditionf("book unavailable")
	assert.Same(t, tagged, OrInternal(tagged, "failed to borrow"))

	cause := errors.New("disk full")
	err := OrInternal(cause, "failed to borrow book %s", "b1")
	assert.Equal(t, Internal, KindOf(err))
	assert.True(t, Is(err, Internal))
	require.ErrorIs(t, err, cause)
	assert.Equal(t, "failed to borrow book b1: disk full", err.Error())
}
