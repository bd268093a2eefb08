package queries

import (
	"context"
	"testing"
	"time"

	"github.com/eskrenkovic/relay-coop-go/internal/modules/relay/domain"
	"github.com/eskrenkovic/relay-coop-go/internal/modules/relay/store"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

var testTime = time.Date(2023, 3, 10, 12, 0, 0, 0, time.UTC)

type staticResolver struct{}

func (staticResolver) UserName(_ context.Context, userID string) string {
	return "name-" + userID
}

func (staticResolver) ServerName(_ context.Context, originID string) string {
	return "server-" + originID
}

type discardNotifier struct{}

func (discardNotifier) Deliver(context.Context, domain.Notification) error {
	return nil
}

func insertSession(
	t *testing.T,
	sessions *store.MemorySessionStore,
	session domain.Session,
) string {
	t.Helper()

	id, err := sessions.Insert(context.Background(), session)
	require.NoError(t, err)
	return id
}

func openSession(code, hostID, originID string, hostedAt time.Time) domain.Session {
	return domain.Session{
		Code:         code,
		ActivityKind: 1,
		OriginID:     originID,
		Status:       domain.StatusOpen,
		Turns: []domain.Turn{
			{UserID: hostID, OriginID: originID, Timestamp: hostedAt},
		},
	}
}

func testLogger() *zap.Logger {
	return zap.NewNop()
}
