package idle_test

import (
	"context"
	"testing"
	"time"

	"github.com/goliatone/go-idle"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCoordinatorContextRoundtrip(t *testing.T) {
	clock := newFakeClock(time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC))
	coordinator := newTestCoordinator(t, clock, &memorySink{}, (&countingLogout{}).Logout)
	defer coordinator.Close()

	ctx := idle.WithContext(context.Background(), coordinator)

	found, err := idle.FromContext(ctx)
	require.NoError(t, err)
	assert.Same(t, coordinator, found)
	assert.Same(t, coordinator, idle.MustFromContext(ctx))
}

func TestFromContextMissingCoordinator(t *testing.T) {
	_, err := idle.FromContext(context.Background())
	require.Error(t, err)
	assert.ErrorIs(t, err, idle.ErrNoCoordinator)
}

func TestMustFromContextPanics(t *testing.T) {
	assert.Panics(t, func() {
		idle.MustFromContext(context.Background())
	})
}
