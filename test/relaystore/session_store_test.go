package relaystore

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/eskrenkovic/relay-coop-go/internal/modules/relay/domain"
	"github.com/eskrenkovic/relay-coop-go/internal/modules/relay/store"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
)

var sessionTime = time.Date(2023, 3, 10, 12, 0, 0, 0, time.UTC)

// uniqueCode keeps tests independent; the database persists across the run.
func uniqueCode() string {
	return strings.ToUpper(uuid.NewString()[:8])
}

func newOpenSession(code, hostID, originID string) domain.Session {
	return domain.Session{
		Code:         code,
		ActivityKind: 1,
		OriginID:     originID,
		Status:       domain.StatusOpen,
		Turns: []domain.Turn{
			{UserID: hostID, OriginID: originID, Timestamp: sessionTime},
		},
	}
}

func Test_Insert_Then_Get_Roundtrips_The_Session(t *testing.T) {
	// Arrange
	ctx := context.Background()
	sessions := store.NewPostgresSessionStore(db)

	code := uniqueCode()
	session := newOpenSession(code, "host-1", "o-1")
	session.ServerOnly = true
	session.GroupPass = "secret"

	// Act
	id, err := sessions.Insert(ctx, session)

	// Assert
	require.NoError(t, err)

	stored, err := sessions.Get(ctx, id)
	require.NoError(t, err)
	require.Equal(t, code, stored.Code)
	require.Equal(t, 1, stored.ActivityKind)
	require.True(t, stored.ServerOnly)
	require.Equal(t, "secret", stored.GroupPass)
	require.Equal(t, domain.StatusOpen, stored.Status)
	require.Len(t, stored.Turns, 1)
	require.Equal(t, "host-1", stored.Turns[0].UserID)
	require.True(t, sessionTime.Equal(stored.Turns[0].Timestamp))
}

func Test_Insert_Duplicate_Open_Code_Fails(t *testing.T) {
	// Arrange
	ctx := context.Background()
	sessions := store.NewPostgresSessionStore(db)

	code := uniqueCode()
	_, err := sessions.Insert(ctx, newOpenSession(code, "host-1", "o-1"))
	require.NoError(t, err)

	// Act
	_, err = sessions.Insert(ctx, newOpenSession(code, "host-2", "o-2"))

	// Assert
	require.ErrorIs(t, err, domain.ErrDuplicateCode)
}

func Test_Update_Status_Guard_Holds_In_The_Database(t *testing.T) {
	// Arrange
	ctx := context.Background()
	sessions := store.NewPostgresSessionStore(db)

	id, err := sessions.Insert(ctx, newOpenSession(uniqueCode(), "host-1", "o-1"))
	require.NoError(t, err)

	open := domain.StatusOpen
	abandoned := domain.StatusAbandoned
	_, err = sessions.Update(ctx, id, domain.SessionUpdate{ExpectStatus: &open, Status: &abandoned})
	require.NoError(t, err)

	// Act
	_, err = sessions.Update(ctx, id, domain.SessionUpdate{ExpectStatus: &open, Status: &abandoned})

	// Assert
	require.ErrorIs(t, err, domain.ErrNotOpen)
}

func Test_Update_AppendTurn_Orders_Turns_By_Position(t *testing.T) {
	// Arrange
	ctx := context.Background()
	sessions := store.NewPostgresSessionStore(db)

	id, err := sessions.Insert(ctx, newOpenSession(uniqueCode(), "host-1", "o-1"))
	require.NoError(t, err)

	for i, userID := range []string{"u-2", "u-3"} {
		turn := domain.Turn{
			UserID:    userID,
			OriginID:  "o-1",
			Timestamp: sessionTime.Add(time.Duration(i+1) * time.Hour),
		}
		_, err = sessions.Update(ctx, id, domain.SessionUpdate{AppendTurn: &turn})
		require.NoError(t, err)
	}

	// Act
	stored, err := sessions.Get(ctx, id)

	// Assert
	require.NoError(t, err)
	require.Len(t, stored.Turns, 3)
	require.Equal(t, "host-1", stored.Turns[0].UserID)
	require.Equal(t, "u-2", stored.Turns[1].UserID)
	require.Equal(t, "u-3", stored.Turns[2].UserID)
}

func Test_Update_AppendTurn_Rejects_Repeat_Participant(t *testing.T) {
	// Arrange
	ctx := context.Background()
	sessions := store.NewPostgresSessionStore(db)

	id, err := sessions.Insert(ctx, newOpenSession(uniqueCode(), "host-1", "o-1"))
	require.NoError(t, err)

	// Act
	turn := domain.Turn{UserID: "host-1", OriginID: "o-1", Timestamp: sessionTime.Add(time.Hour)}
	_, err = sessions.Update(ctx, id, domain.SessionUpdate{AppendTurn: &turn})

	// Assert
	require.ErrorIs(t, err, domain.ErrAlreadyJoined)
}

func Test_Update_Reopen_Conflicts_With_A_New_Holder_Of_The_Code(t *testing.T) {
	// Arrange
	ctx := context.Background()
	sessions := store.NewPostgresSessionStore(db)

	code := uniqueCode()
	id, err := sessions.Insert(ctx, newOpenSession(code, "host-1", "o-1"))
	require.NoError(t, err)

	abandoned := domain.StatusAbandoned
	_, err = sessions.Update(ctx, id, domain.SessionUpdate{Status: &abandoned})
	require.NoError(t, err)

	_, err = sessions.Insert(ctx, newOpenSession(code, "host-2", "o-2"))
	require.NoError(t, err)

	// Act
	open := domain.StatusOpen
	_, err = sessions.Update(ctx, id, domain.SessionUpdate{ExpectStatus: &abandoned, Status: &open})

	// Assert
	require.ErrorIs(t, err, domain.ErrCodeTaken)
}

func Test_Update_AppendVote_Is_Idempotent_Per_User(t *testing.T) {
	// Arrange
	ctx := context.Background()
	sessions := store.NewPostgresSessionStore(db)

	id, err := sessions.Insert(ctx, newOpenSession(uniqueCode(), "host-1", "o-1"))
	require.NoError(t, err)

	vote := domain.DeletionVote{UserID: "v-1", OriginID: "o-1", VotedAt: sessionTime}

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
	sessions := store.NewPostgresSessionStore(db)

	id, err := sessions.Insert(ctx, newOpenSession(uniqueCode(), "host-1", "o-1"))
	require.NoError(t, err)

	turn := domain.Turn{UserID: "u-2", OriginID: "o-1", Timestamp: sessionTime.Add(time.Hour)}
	_, err = sessions.Update(ctx, id, domain.SessionUpdate{AppendTurn: &turn})
	require.NoError(t, err)

	// Act
	touched := sessionTime.Add(48 * time.Hour)
	updated, err := sessions.Update(ctx, id, domain.SessionUpdate{LastTurnTimestamp: &touched})

	// Assert
	require.NoError(t, err)
	require.True(t, sessionTime.Equal(updated.Turns[0].Timestamp))
	require.True(t, touched.Equal(updated.Turns[1].Timestamp))
}

func Test_Query_Turn_Quantifiers(t *testing.T) {
	// Arrange
	ctx := context.Background()
	sessions := store.NewPostgresSessionStore(db)

	origin := "origin-" + uuid.NewString()
	foreignOrigin := "origin-" + uuid.NewString()
	user := "user-" + uuid.NewString()

	localCode := uniqueCode()
	_, err := sessions.Insert(ctx, newOpenSession(localCode, user, origin))
	require.NoError(t, err)

	mixedCode := uniqueCode()
	mixedID, err := sessions.Insert(ctx, newOpenSession(mixedCode, "host-2", origin))
	require.NoError(t, err)

	foreignTurn := domain.Turn{
		UserID:    "u-3",
		OriginID:  foreignOrigin,
		Timestamp: sessionTime.Add(time.Hour),
	}
	_, err = sessions.Update(ctx, mixedID, domain.SessionUpdate{AppendTurn: &foreignTurn})
	require.NoError(t, err)

	// Act
	allLocal, err := sessions.Query(ctx, domain.SessionQuery{AllTurnsOrigin: &origin})
	require.NoError(t, err)

	byUser, err := sessions.Query(ctx, domain.SessionQuery{AnyTurnUser: &user})
	require.NoError(t, err)

	// Assert
	require.Len(t, allLocal, 1)
	require.Equal(t, localCode, allLocal[0].Code)

	require.Len(t, byUser, 1)
	require.Equal(t, localCode, byUser[0].Code)
}

func Test_Query_Codes_Returns_Matches_Of_Any_Status(t *testing.T) {
	// Arrange
	ctx := context.Background()
	sessions := store.NewPostgresSessionStore(db)

	openCode := uniqueCode()
	_, err := sessions.Insert(ctx, newOpenSession(openCode, "host-1", "o-1"))
	require.NoError(t, err)

	closedCode := uniqueCode()
	closedID, err := sessions.Insert(ctx, newOpenSession(closedCode, "host-2", "o-1"))
	require.NoError(t, err)

	success := domain.StatusSuccess
	_, err = sessions.Update(ctx, closedID, domain.SessionUpdate{Status: &success})
	require.NoError(t, err)

	// Act
	results, err := sessions.Query(ctx, domain.SessionQuery{
		Codes: []string{openCode, closedCode, "NOSUCH"},
	})

	// Assert
	require.NoError(t, err)
	require.Len(t, results, 2)
}
