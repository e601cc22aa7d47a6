package ispyb

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestStorageError(t *testing.T) {
	t.Parallel()

	cause := errors.New("driver: bad connection")
	err := NewStorageError("list_sessions", cause)

	assert.True(t, IsStorage(err))
	assert.True(t, errors.Is(err, ErrStorage))
	assert.Contains(t, err.Error(), "list_sessions")
	assert.Contains(t, err.Error(), "bad connection")
}

func TestStorageErrorWrapped(t *testing.T) {
	t.Parallel()

	err := fmt.Errorf("resolving session: %w", NewStorageError("get_session", nil))
	assert.True(t, IsStorage(err))
}

func TestIsStorageOtherErrors(t *testing.T) {
	t.Parallel()

	assert.False(t, IsStorage(nil))
	assert.False(t, IsStorage(errors.New("unrelated")))
}
