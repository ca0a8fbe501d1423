package transaction

import (
	"errors"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
)

func TestGuard_ReleaseOrder(t *testing.T) {
	logger := zerolog.Nop()
	guard := NewGuard(&logger)

	var order []string
	guard.Push("unlock", func() error {
		order = append(order, "unlock")
		return nil
	})
	guard.Push("discard plan", func() error {
		order = append(order, "discard plan")
		return nil
	})
	assert.Equal(t, 2, guard.Pending())

	err := guard.Release()
	assert.NoError(t, err)
	assert.Equal(t, []string{"discard plan", "unlock"}, order)
	assert.Equal(t, 0, guard.Pending())
}

func TestGuard_ReleaseOnlyOnce(t *testing.T) {
	guard := NewGuard(nil)

	calls := 0
	guard.Push("unlock", func() error {
		calls++
		return nil
	})

	assert.NoError(t, guard.Release())
	assert.NoError(t, guard.Release())
	assert.Equal(t, 1, calls)
}

func TestGuard_ReleaseContinuesAfterError(t *testing.T) {
	logger := zerolog.Nop()
	guard := NewGuard(&logger)

	unlockErr := errors.New("unlock failed")
	discarded := false
	guard.Push("unlock", func() error { return unlockErr })
	guard.Push("discard plan", func() error {
		discarded = true
		return nil
	})

	err := guard.Release()
	assert.ErrorIs(t, err, unlockErr)
	assert.Contains(t, err.Error(), "release unlock")
	assert.True(t, discarded)
}

func TestGuard_ReleaseEmpty(t *testing.T) {
	guard := NewGuard(nil)
	assert.NoError(t, guard.Release())
}
