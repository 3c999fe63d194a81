package resilience

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var errFlaky = errors.New("flaky")

func TestGuard_RetriesTransientErrors(t *testing.T) {
	g := NewGuard("test", 3).WithBackoff(time.Millisecond)
	calls := 0

	err := g.Do(context.Background(), func(context.Context) error {
		calls++
		if calls < 3 {
			return errFlaky
		}
		return nil
	})

	require.NoError(t, err)
	assert.Equal(t, 3, calls)
}

func TestGuard_GivesUpAfterMaxRetries(t *testing.T) {
	g := NewGuard("test", 2).WithBackoff(time.Millisecond)
	calls := 0

	err := g.Do(context.Background(), func(context.Context) error {
		calls++
		return errFlaky
	})

	assert.ErrorIs(t, err, errFlaky)
	assert.Equal(t, 3, calls)
}

func TestGuard_PermanentErrorStopsImmediately(t *testing.T) {
	g := NewGuard("test", 5).WithBackoff(time.Millisecond)
	calls := 0

	err := g.Do(context.Background(), func(context.Context) error {
		calls++
		return Permanent(errFlaky)
	})

	assert.ErrorIs(t, err, errFlaky)
	assert.False(t, IsPermanent(err))
	assert.Equal(t, 1, calls)
}

func TestGuard_OpensAfterConsecutiveFailures(t *testing.T) {
	g := NewGuard("test", 0)

	for i := 0; i < 5; i++ {
		_ = g.Do(context.Background(), func(context.Context) error { return errFlaky })
	}

	calls := 0
	err := g.Do(context.Background(), func(context.Context) error {
		calls++
		return nil
	})

	assert.ErrorIs(t, err, ErrCircuitOpen)
	assert.Equal(t, 0, calls)
	assert.Equal(t, "open", g.State())
}

func TestGuard_PermanentErrorsDoNotTrip(t *testing.T) {
	g := NewGuard("test", 0)

	for i := 0; i < 10; i++ {
		_ = g.Do(context.Background(), func(context.Context) error { return Permanent(errFlaky) })
	}

	assert.Equal(t, "closed", g.State())
}

func TestGuard_StopsWhenContextCancelled(t *testing.T) {
	g := NewGuard("test", 3).WithBackoff(time.Hour)
	ctx, cancel := context.WithCancel(context.Background())
	calls := 0

	err := g.Do(ctx, func(context.Context) error {
		calls++
		cancel()
		return errFlaky
	})

	assert.ErrorIs(t, err, errFlaky)
	assert.Equal(t, 1, calls)
}

func TestPermanent_Nil(t *testing.T) {
	assert.NoError(t, Permanent(nil))
}
