package store

import (
	"context"
	"testing"
	"time"

	"github.com/eskrenkovic/relay-coop-go/internal/modules/relay/domain"

	"github.com/stretchr/testify/require"
)

var testTime = time.Date(2023, 3, 10, 12, 0, 0, 0, time.UTC)

func openSession(code, hostID, originID string) domain.Session {
	return domain.Session{
		Code:         code,
		ActivityKind: 1,
		OriginID:     originID,
		Status:       domain.StatusOpen,
		Turns: []domain.Turn{
			{UserID: hostID, OriginID: originID, Timestamp: testTime},
		},
	}
}

func Test_Insert_Rejects_Duplicate_Open_Code(t *testing.T) {
	// Arrange
	ctx := context.Background()
	sessions := NewMemorySessionStore()

	_, err := sessions.Insert(ctx, openSession("ABC123", "host-1", "o-1"))
	require.NoError(t, err)

	// Act
	_, err = sessions.Insert(ctx, openSession("ABC123", "host-2", "o-2"))

	// Assert
	require.ErrorIs(t, err, domain.ErrDuplicateCode)
}

func Test_Insert_Allows_Code_Reuse_After_Session_Closes(t *testing.T) {
	// Arrange
	ctx := context.Background()
	sessions := NewMemorySessionStore()

	id, err := sessions.Insert(ctx, openSession("ABC123", "host-1", "o-1"))
	require.NoError(t, err)

	success := domain.StatusSuccess
	_, err = sessions.Update(ctx, id, domain.SessionUpdate{Status: &success})
	require.NoError(t, err)

	// Act
	_, err = sessions.Insert(ctx, openSession("ABC123", "host-2", "o-2"))

	// Assert
	require.NoError(t, err)
}

func Test_Get_Returns_ErrNotFound_For_Unknown_ID(t *testing.T) {
	// Arrange
	sessions := NewMemorySessionStore()

	// Act
	_, err := sessions.Get(context.Background(), "missing")

	// Assert
	require.ErrorIs(t, err, domain.ErrNotFound)
}

func Test_Update_Status_Guard_Rejects_Mismatched_Status(t *testing.T) {
	// Arrange
	ctx := context.Background()
	sessions := NewMemorySessionStore()

	id, err := sessions.Insert(ctx, openSession("ABC123", "host-1", "o-1"))
	require.NoError(t, err)

	abandoned := domain.StatusAbandoned
	open := domain.StatusOpen
	_, err = sessions.Update(ctx, id, domain.SessionUpdate{ExpectStatus: &open, Status: &abandoned})
	require.NoError(t, err)

	// Act
	_, err = sessions.Update(ctx, id, domain.SessionUpdate{ExpectStatus: &open, Status: &abandoned})

	// Assert
	require.ErrorIs(t, err, domain.ErrNotOpen)
}

func Test_Update_AppendTurn_Rejects_Repeat_Participant(t *testing.T) {
	// Arrange
	ctx := context.Background()
	sessions := NewMemorySessionStore()

	id, err := sessions.Insert(ctx, openSession("ABC123", "host-1", "o-1"))
	require.NoError(t, err)

	// Act
	_, err = sessions.Update(ctx, id, domain.SessionUpdate{
		AppendTurn: &domain.Turn{UserID: "host-1", OriginID: "o-1", Timestamp: testTime},
	})

	// Assert
	require.ErrorIs(t, err, domain.ErrAlreadyJoined)
}

func Test_Update_Reopen_Fails_When_Code_Is_Held(t *testing.T) {
	// Arrange
	ctx := context.Background()
	sessions := NewMemorySessionStore()

	id, err := sessions.Insert(ctx, openSession("ABC123", "host-1", "o-1"))
	require.NoError(t, err)

	abandoned := domain.StatusAbandoned
	_, err = sessions.Update(ctx, id, domain.SessionUpdate{Status: &abandoned})
	require.NoError(t, err)

	_, err = sessions.Insert(ctx, openSession("ABC123", "host-2", "o-2"))
	require.NoError(t, err)

	// Act
	open := domain.StatusOpen
	_, err = sessions.Update(ctx, id, domain.SessionUpdate{ExpectStatus: &abandoned, Status: &open})

	// Assert
	require.ErrorIs(t, err, domain.ErrCodeTaken)
}

func Test_Update_AppendVote_Deduplicates_By_User(t *testing.T) {
	// Arrange
	ctx := context.Background()
	sessions := NewMemorySessionStore()

	id, err := sessions.Insert(ctx, openSession("ABC123", "host-1", "o-1"))
	require.NoError(t, err)

	vote := domain.DeletionVote{UserID: "v-1", OriginID: "o-1", VotedAt: testTime}

	_, err = sessions.Update(ctx, id, domain.SessionUpdate{AppendVote: &vote})
	require.NoError(t, err)

	// Act
	updated, err := sessions.Update(ctx, id, domain.SessionUpdate{AppendVote: &vote})

	// Assert
	require.NoError(t, err)
	require.Len(t, updated.DeletionVotes, 1)
}

func Test_Update_LastTurnTimestamp_Touches_Only_The_Last_Turn(t *testing.T) {
	// Arrange
	ctx := context.Background()
	sessions := NewMemorySessionStore()

	id, err := sessions.Insert(ctx, openSession("ABC123", "host-1", "o-1"))
	require.NoError(t, err)

	_, err = sessions.Update(ctx, id, domain.SessionUpdate{
		AppendTurn: &domain.Turn{UserID: "u-2", OriginID: "o-1", Timestamp: testTime.Add(time.Hour)},
	})
	require.NoError(t, err)

	// Act
	touched := testTime.Add(48 * time.Hour)
	updated, err := sessions.Update(ctx, id, domain.SessionUpdate{LastTurnTimestamp: &touched})

	// Assert
	require.NoError(t, err)
	require.Equal(t, testTime, updated.Turns[0].Timestamp)
	require.Equal(t, touched, updated.Turns[1].Timestamp)
}

func Test_Query_Filters_And_Orders_By_Host_Timestamp(t *testing.T) {
	// Arrange
	ctx := context.Background()
	sessions := NewMemorySessionStore()

	second := openSession("BBB222", "host-2", "o-1")
	second.Turns[0].Timestamp = testTime.Add(time.Hour)
	_, err := sessions.Insert(ctx, second)
	require.NoError(t, err)

	first := openSession("AAA111", "host-1", "o-1")
	_, err = sessions.Insert(ctx, first)
	require.NoError(t, err)

	closed := openSession("CCC333", "host-3", "o-1")
	closed.Status = domain.StatusSuccess
	_, err = sessions.Insert(ctx, closed)
	require.NoError(t, err)

	// Act
	open := domain.StatusOpen
	results, err := sessions.Query(ctx, domain.SessionQuery{Status: &open})

	// Assert
	require.NoError(t, err)
	require.Len(t, results, 2)
	require.Equal(t, "AAA111", results[0].Code)
	require.Equal(t, "BBB222", results[1].Code)
}

func Test_Query_AllTurnsOrigin_Excludes_Mixed_Origin_Sessions(t *testing.T) {
	// Arrange
	ctx := context.Background()
	sessions := NewMemorySessionStore()

	local := openSession("AAA111", "host-1", "o-1")
	_, err := sessions.Insert(ctx, local)
	require.NoError(t, err)

	mixed := openSession("BBB222", "host-2", "o-1")
	mixed.Turns = append(mixed.Turns, domain.Turn{
		UserID: "u-3", OriginID: "o-2", Timestamp: testTime.Add(time.Hour),
	})
	_, err = sessions.Insert(ctx, mixed)
	require.NoError(t, err)

	// Act
	origin := "o-1"
	results, err := sessions.Query(ctx, domain.SessionQuery{AllTurnsOrigin: &origin})

	// Assert
	require.NoError(t, err)
	require.Len(t, results, 1)
	require.Equal(t, "AAA111", results[0].Code)
}

func Test_Query_AnyTurnUser_Matches_Participation(t *testing.T) {
	// Arrange
	ctx := context.Background()
	sessions := NewMemorySessionStore()

	joined := openSession("AAA111", "host-1", "o-1")
	joined.Turns = append(joined.Turns, domain.Turn{
		UserID: "u-2", OriginID: "o-1", Timestamp: testTime.Add(time.Hour),
	})
	_, err := sessions.Insert(ctx, joined)
	require.NoError(t, err)

	_, err = sessions.Insert(ctx, openSession("BBB222", "host-3", "o-1"))
	require.NoError(t, err)

	// Act
	user := "u-2"
	results, err := sessions.Query(ctx, domain.SessionQuery{AnyTurnUser: &user})

	// Assert
	require.NoError(t, err)
	require.Len(t, results, 1)
	require.Equal(t, "AAA111", results[0].Code)
}

func Test_Query_Codes_Matches_Any_Listed_Code(t *testing.T) {
	// Arrange
	ctx := context.Background()
	sessions := NewMemorySessionStore()

	_, err := sessions.Insert(ctx, openSession("AAA111", "host-1", "o-1"))
	require.NoError(t, err)

	_, err = sessions.Insert(ctx, openSession("BBB222", "host-2", "o-1"))
	require.NoError(t, err)

	// Act
	results, err := sessions.Query(ctx, domain.SessionQuery{Codes: []string{"BBB222", "ZZZ999"}})

	// Assert
	require.NoError(t, err)
	require.Len(t, results, 1)
	require.Equal(t, "BBB222", results[0].Code)
}

func Test_PreferenceStore_Upsert_Overwrites_By_User(t *testing.T) {
	// Arrange
	ctx := context.Background()
	preferences := NewMemoryPreferenceStore()

	err := preferences.UpsertByUser(ctx, domain.NotificationPreference{
		UserID: "u-1", Active: true, ServerScoped: true, HomeOriginID: "o-1",
	})
	require.NoError(t, err)

	// Act
	err = preferences.UpsertByUser(ctx, domain.NotificationPreference{
		UserID: "u-1", Active: false,
	})
	require.NoError(t, err)

	// Assert
	preference, err := preferences.GetByUser(ctx, "u-1")
	require.NoError(t, err)
	require.False(t, preference.Active)
	require.False(t, preference.ServerScoped)
}

func Test_PreferenceStore_Search_Applies_Origin_Or_Unscoped(t *testing.T) {
	// Arrange
	ctx := context.Background()
	preferences := NewMemoryPreferenceStore()

	require.NoError(t, preferences.UpsertByUser(ctx, domain.NotificationPreference{
		UserID: "u-1", Active: true,
	}))
	require.NoError(t, preferences.UpsertByUser(ctx, domain.NotificationPreference{
		UserID: "u-2", Active: true, ServerScoped: true, HomeOriginID: "o-1",
	}))
	require.NoError(t, preferences.UpsertByUser(ctx, domain.NotificationPreference{
		UserID: "u-3", Active: true, ServerScoped: true, HomeOriginID: "o-2",
	}))

	// Act
	active := true
	origin := "o-1"
	results, err := preferences.Search(ctx, domain.PreferenceQuery{
		Active:           &active,
		OriginOrUnscoped: &origin,
	})

	// Assert
	require.NoError(t, err)
	require.Len(t, results, 2)
	require.Equal(t, "u-1", results[0].UserID)
	require.Equal(t, "u-2", results[1].UserID)
}
