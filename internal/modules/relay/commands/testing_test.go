package commands

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/eskrenkovic/relay-coop-go/internal/modules/core"
	"github.com/eskrenkovic/relay-coop-go/internal/modules/relay/domain"
	"github.com/eskrenkovic/relay-coop-go/internal/modules/relay/store"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

var testTime = time.Date(2023, 3, 10, 12, 0, 0, 0, time.UTC)

type recordingNotifier struct {
	failFor   map[string]bool
	delivered []domain.Notification
}

func (n *recordingNotifier) Deliver(_ context.Context, notification domain.Notification) error {
	if n.failFor[notification.UserID] {
		return fmt.Errorf("delivery to '%s' failed", notification.UserID)
	}

	n.delivered = append(n.delivered, notification)
	return nil
}

func (n *recordingNotifier) recipients() []string {
	recipients := make([]string, 0, len(n.delivered))
	for _, notification := range n.delivered {
		recipients = append(recipients, notification.UserID)
	}
	return recipients
}

type staticResolver struct{}

func (staticResolver) UserName(_ context.Context, userID string) string {
	return "name-" + userID
}

func (staticResolver) ServerName(_ context.Context, originID string) string {
	return "server-" + originID
}

type stubPicker struct {
	path string
	err  error
}

func (p stubPicker) PickRandom(string) (string, error) {
	return p.path, p.err
}

func requireStatusCode(t *testing.T, err error, statusCode int) {
	t.Helper()

	var commandErr core.CommandError
	require.ErrorAs(t, err, &commandErr)
	require.Equal(t, statusCode, commandErr.StatusCode)
}

func insertOpenSession(
	t *testing.T,
	sessions *store.MemorySessionStore,
	code, hostID, originID string,
	hostedAt time.Time,
) string {
	t.Helper()

	id, err := sessions.Insert(context.Background(), domain.Session{
		Code:         code,
		ActivityKind: 1,
		OriginID:     originID,
		Status:       domain.StatusOpen,
		Turns: []domain.Turn{
			{UserID: hostID, OriginID: originID, Timestamp: hostedAt},
		},
	})
	require.NoError(t, err)

	return id
}

func testLogger() *zap.Logger {
	return zap.NewNop()
}
