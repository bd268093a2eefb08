package commands

import (
	"context"
	"testing"
	"time"

	"github.com/eskrenkovic/relay-coop-go/internal/modules/core"
	"github.com/eskrenkovic/relay-coop-go/internal/modules/relay/domain"
	"github.com/eskrenkovic/relay-coop-go/internal/modules/relay/store"

	"github.com/stretchr/testify/require"
)

func Test_PurgeStaleSessions_Abandons_Idle_Sessions_And_Notifies_Hosts(t *testing.T) {
	// Arrange
	ctx := context.Background()
	sessions := store.NewMemorySessionStore()
	notifier := &recordingNotifier{}

	sweeper := domain.NewSweeper(sessions, notifier, testLogger())
	handler := NewPurgeStaleSessionsCommandHandler(
		sweeper,
		core.NewFakeClock(testTime.Add(48*time.Hour)),
	)

	staleID := insertOpenSession(t, sessions, "AAA111", "host-1", "o-1", testTime)
	freshID := insertOpenSession(t, sessions, "BBB222", "host-2", "o-1", testTime.Add(47*time.Hour))

	// Act
	response, err := handler.Handle(ctx, PurgeStaleSessionsCommand{})

	// Assert
	require.NoError(t, err)
	require.Equal(t, []string{staleID}, response.PurgedSessionIDs)
	require.Equal(t, []string{"host-1"}, notifier.recipients())

	stale, err := sessions.Get(ctx, staleID)
	require.NoError(t, err)
	require.Equal(t, domain.StatusAbandoned, stale.Status)

	fresh, err := sessions.Get(ctx, freshID)
	require.NoError(t, err)
	require.Equal(t, domain.StatusOpen, fresh.Status)
}

func Test_PurgeStaleSessions_Spares_Sessions_At_Exactly_One_Idle_Day(t *testing.T) {
	// Arrange
	ctx := context.Background()
	sessions := store.NewMemorySessionStore()

	sweeper := domain.NewSweeper(sessions, &recordingNotifier{}, testLogger())
	handler := NewPurgeStaleSessionsCommandHandler(
		sweeper,
		core.NewFakeClock(testTime.Add(36*time.Hour)),
	)

	insertOpenSession(t, sessions, "AAA111", "host-1", "o-1", testTime)

	// Act
	response, err := handler.Handle(ctx, PurgeStaleSessionsCommand{})

	// Assert
	require.NoError(t, err)
	require.Empty(t, response.PurgedSessionIDs)
}

func Test_PurgeStaleSessions_Is_Idempotent(t *testing.T) {
	// Arrange
	ctx := context.Background()
	sessions := store.NewMemorySessionStore()
	notifier := &recordingNotifier{}

	sweeper := domain.NewSweeper(sessions, notifier, testLogger())
	handler := NewPurgeStaleSessionsCommandHandler(
		sweeper,
		core.NewFakeClock(testTime.Add(72*time.Hour)),
	)

	insertOpenSession(t, sessions, "AAA111", "host-1", "o-1", testTime)

	_, err := handler.Handle(ctx, PurgeStaleSessionsCommand{})
	require.NoError(t, err)

	// Act
	response, err := handler.Handle(ctx, PurgeStaleSessionsCommand{})

	// Assert
	require.NoError(t, err)
	require.Empty(t, response.PurgedSessionIDs)
	require.Len(t, notifier.delivered, 1)
}

func Test_PurgeStaleSessions_Delivery_Failure_Keeps_The_Transition(t *testing.T) {
	// Arrange
	ctx := context.Background()
	sessions := store.NewMemorySessionStore()
	notifier := &recordingNotifier{failFor: map[string]bool{"host-1": true}}

	sweeper := domain.NewSweeper(sessions, notifier, testLogger())
	handler := NewPurgeStaleSessionsCommandHandler(
		sweeper,
		core.NewFakeClock(testTime.Add(72*time.Hour)),
	)

	staleID := insertOpenSession(t, sessions, "AAA111", "host-1", "o-1", testTime)

	// Act
	response, err := handler.Handle(ctx, PurgeStaleSessionsCommand{})

	// Assert
	require.NoError(t, err)
	require.Equal(t, []string{staleID}, response.PurgedSessionIDs)

	stale, err := sessions.Get(ctx, staleID)
	require.NoError(t, err)
	require.Equal(t, domain.StatusAbandoned, stale.Status)
}
