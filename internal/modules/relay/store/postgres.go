package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/eskrenkovic/relay-coop-go/internal/modules/core"
	"github.com/eskrenkovic/relay-coop-go/internal/modules/relay/domain"

	"github.com/eskrenkovic/tql"
	"github.com/google/uuid"
	"github.com/lib/pq"
)

const (
	openCodeConstraint    = "uq_relay_session_open_code"
	participantConstraint = "uq_relay_turn_participant"
)

type sessionRow struct {
	ID           string    `db:"id"`
	Code         string    `db:"code"`
	ActivityKind int       `db:"activity_kind"`
	ServerOnly   bool      `db:"server_only"`
	GroupPass    string    `db:"group_pass"`
	OriginID     string    `db:"origin_id"`
	Status       string    `db:"status"`
	CreatedAt    time.Time `db:"created_at"`
}

type turnRow struct {
	SessionID string    `db:"session_id"`
	Position  int       `db:"position"`
	UserID    string    `db:"user_id"`
	OriginID  string    `db:"origin_id"`
	CreatedAt time.Time `db:"created_at"`
}

type voteRow struct {
	SessionID string    `db:"session_id"`
	UserID    string    `db:"user_id"`
	OriginID  string    `db:"origin_id"`
	CreatedAt time.Time `db:"created_at"`
}

// PostgresSessionStore persists sessions across three tables: relay_session,
// relay_turn (ordered by position) and relay_vote. Open-code uniqueness rides
// a partial unique index, so concurrent creates and reinstatements settle in
// the database rather than in application code.
type PostgresSessionStore struct {
	db *sql.DB
}

func NewPostgresSessionStore(db *sql.DB) *PostgresSessionStore {
	return &PostgresSessionStore{db}
}

func (s *PostgresSessionStore) Insert(ctx context.Context, session domain.Session) (string, error) {
	session.ID = uuid.NewString()

	row := sessionRow{
		ID:           session.ID,
		Code:         session.Code,
		ActivityKind: session.ActivityKind,
		ServerOnly:   session.ServerOnly,
		GroupPass:    session.GroupPass,
		OriginID:     session.OriginID,
		Status:       string(session.Status),
		CreatedAt:    session.Host().Timestamp,
	}

	txFn := func(ctx context.Context, tx *sql.Tx) error {
		const stmt = `
			INSERT INTO
				relay_session (id, code, activity_kind, server_only, group_pass, origin_id, status, created_at)
			VALUES
				(:id, :code, :activity_kind, :server_only, :group_pass, :origin_id, :status, :created_at);`
		if _, err := tql.Exec(ctx, tx, stmt, row); err != nil {
			return err
		}

		for position, turn := range session.Turns {
			if err := insertTurn(ctx, tx, session.ID, position, turn); err != nil {
				return err
			}
		}

		return nil
	}

	err := core.Tx(ctx, s.db, txFn)
	switch {
	case uniqueViolation(err, openCodeConstraint):
		return "", domain.ErrDuplicateCode
	case err != nil:
		return "", domain.NewStoreError("insert session", err)
	}

	return session.ID, nil
}

func (s *PostgresSessionStore) Get(ctx context.Context, id string) (domain.Session, error) {
	const query = `
		SELECT
			*
		FROM
			relay_session
		WHERE
			id = $1;`
	row, err := tql.QueryFirst[sessionRow](ctx, s.db, query, id)
	switch {
	case errors.Is(err, sql.ErrNoRows):
		return domain.Session{}, domain.ErrNotFound
	case err != nil:
		return domain.Session{}, domain.NewStoreError("get session", err)
	}

	sessions, err := s.attachChildren(ctx, s.db, []sessionRow{row})
	if err != nil {
		return domain.Session{}, domain.NewStoreError("get session", err)
	}

	return sessions[0], nil
}

func (s *PostgresSessionStore) Update(
	ctx context.Context,
	id string,
	update domain.SessionUpdate,
) (domain.Session, error) {
	var updated domain.Session

	txFn := func(ctx context.Context, tx *sql.Tx) error {
		const lockQuery = `
			SELECT
				*
			FROM
				relay_session
			WHERE
				id = $1
			FOR UPDATE;`
		row, err := tql.QueryFirst[sessionRow](ctx, tx, lockQuery, id)
		switch {
		case errors.Is(err, sql.ErrNoRows):
			return domain.ErrNotFound
		case err != nil:
			return err
		}

		if update.ExpectStatus != nil && row.Status != string(*update.ExpectStatus) {
			return domain.StatusGuardError(*update.ExpectStatus)
		}

		if update.Status != nil {
			const stmt = `
				UPDATE
					relay_session
				SET
					status = $2
				WHERE
					id = $1;`
			if _, err := tql.Exec(ctx, tx, stmt, id, string(*update.Status)); err != nil {
				return err
			}
		}

		if update.AppendTurn != nil {
			const positionQuery = `
				SELECT
					COALESCE(MAX(position), -1) + 1
				FROM
					relay_turn
				WHERE
					session_id = $1;`
			position, err := tql.QueryFirst[int](ctx, tx, positionQuery, id)
			if err != nil {
				return err
			}

			if err := insertTurn(ctx, tx, id, position, *update.AppendTurn); err != nil {
				return err
			}
		}

		if update.AppendVote != nil {
			const stmt = `
				INSERT INTO
					relay_vote (session_id, user_id, origin_id, created_at)
				VALUES
					($1, $2, $3, $4)
				ON CONFLICT ON CONSTRAINT pk_relay_vote DO NOTHING;`
			vote := *update.AppendVote
			if _, err := tql.Exec(ctx, tx, stmt, id, vote.UserID, vote.OriginID, vote.VotedAt); err != nil {
				return err
			}
		}

		if update.LastTurnTimestamp != nil {
			const stmt = `
				UPDATE
					relay_turn
				SET
					created_at = $2
				WHERE
					session_id = $1
					AND position = (SELECT MAX(position) FROM relay_turn WHERE session_id = $1);`
			if _, err := tql.Exec(ctx, tx, stmt, id, *update.LastTurnTimestamp); err != nil {
				return err
			}
		}

		const reload = `
			SELECT
				*
			FROM
				relay_session
			WHERE
				id = $1;`
		current, err := tql.QueryFirst[sessionRow](ctx, tx, reload, id)
		if err != nil {
			return err
		}

		sessions, err := s.attachChildren(ctx, tx, []sessionRow{current})
		if err != nil {
			return err
		}
		updated = sessions[0]

		return nil
	}

	err := core.Tx(ctx, s.db, txFn)
	switch {
	case err == nil:
		return updated, nil
	case isGuardError(err):
		return domain.Session{}, err
	case uniqueViolation(err, participantConstraint):
		return domain.Session{}, domain.ErrAlreadyJoined
	case uniqueViolation(err, openCodeConstraint):
		return domain.Session{}, domain.ErrCodeTaken
	default:
		return domain.Session{}, domain.NewStoreError("update session", err)
	}
}

func (s *PostgresSessionStore) Query(
	ctx context.Context,
	query domain.SessionQuery,
) ([]domain.Session, error) {
	stmt, args := buildSessionQuery(query)

	rows, err := tql.Query[sessionRow](ctx, s.db, stmt, args...)
	if err != nil {
		return nil, domain.NewStoreError("query sessions", err)
	}

	sessions, err := s.attachChildren(ctx, s.db, rows)
	if err != nil {
		return nil, domain.NewStoreError("query sessions", err)
	}

	return sessions, nil
}

func buildSessionQuery(query domain.SessionQuery) (string, []interface{}) {
	stmt := `
		SELECT
			*
		FROM
			relay_session s
		WHERE
			1 = 1`
	var args []interface{}

	arg := func(value interface{}) string {
		args = append(args, value)
		return fmt.Sprintf("$%d", len(args))
	}

	if query.Status != nil {
		stmt += fmt.Sprintf(" AND s.status = %s", arg(string(*query.Status)))
	}
	if query.Code != nil {
		stmt += fmt.Sprintf(" AND s.code = %s", arg(*query.Code))
	}
	if len(query.Codes) > 0 {
		stmt += fmt.Sprintf(" AND s.code = ANY(%s)", arg(pq.Array(query.Codes)))
	}
	if query.GroupPass != nil {
		stmt += fmt.Sprintf(" AND s.group_pass = %s", arg(*query.GroupPass))
	}
	if query.ServerOnly != nil {
		stmt += fmt.Sprintf(" AND s.server_only = %s", arg(*query.ServerOnly))
	}
	if query.AllTurnsOrigin != nil {
		stmt += fmt.Sprintf(
			" AND NOT EXISTS (SELECT 1 FROM relay_turn t WHERE t.session_id = s.id AND t.origin_id <> %s)",
			arg(*query.AllTurnsOrigin),
		)
	}
	if query.AnyTurnUser != nil {
		stmt += fmt.Sprintf(
			" AND EXISTS (SELECT 1 FROM relay_turn t WHERE t.session_id = s.id AND t.user_id = %s)",
			arg(*query.AnyTurnUser),
		)
	}

	stmt += " ORDER BY s.created_at, s.id;"

	return stmt, args
}

func (s *PostgresSessionStore) attachChildren(
	ctx context.Context,
	q tql.Querier,
	rows []sessionRow,
) ([]domain.Session, error) {
	if len(rows) == 0 {
		return nil, nil
	}

	ids := make([]string, 0, len(rows))
	for _, row := range rows {
		ids = append(ids, row.ID)
	}

	const turnsQuery = `
		SELECT
			*
		FROM
			relay_turn
		WHERE
			session_id = ANY($1)
		ORDER BY
			session_id, position;`
	turns, err := tql.Query[turnRow](ctx, q, turnsQuery, pq.Array(ids))
	if err != nil {
		return nil, err
	}

	const votesQuery = `
		SELECT
			*
		FROM
			relay_vote
		WHERE
			session_id = ANY($1)
		ORDER BY
			session_id, created_at, user_id;`
	votes, err := tql.Query[voteRow](ctx, q, votesQuery, pq.Array(ids))
	if err != nil {
		return nil, err
	}

	turnsBySession := make(map[string][]domain.Turn, len(rows))
	for _, turn := range turns {
		turnsBySession[turn.SessionID] = append(turnsBySession[turn.SessionID], domain.Turn{
			UserID:    turn.UserID,
			OriginID:  turn.OriginID,
			Timestamp: turn.CreatedAt,
		})
	}

	votesBySession := make(map[string][]domain.DeletionVote, len(rows))
	for _, vote := range votes {
		votesBySession[vote.SessionID] = append(votesBySession[vote.SessionID], domain.DeletionVote{
			UserID:   vote.UserID,
			OriginID: vote.OriginID,
			VotedAt:  vote.CreatedAt,
		})
	}

	sessions := make([]domain.Session, 0, len(rows))
	for _, row := range rows {
		sessions = append(sessions, domain.Session{
			ID:            row.ID,
			Code:          row.Code,
			ActivityKind:  row.ActivityKind,
			ServerOnly:    row.ServerOnly,
			GroupPass:     row.GroupPass,
			OriginID:      row.OriginID,
			Status:        domain.Status(row.Status),
			Turns:         turnsBySession[row.ID],
			DeletionVotes: votesBySession[row.ID],
		})
	}

	return sessions, nil
}

func insertTurn(ctx context.Context, tx *sql.Tx, sessionID string, position int, turn domain.Turn) error {
	const stmt = `
		INSERT INTO
			relay_turn (session_id, position, user_id, origin_id, created_at)
		VALUES
			($1, $2, $3, $4, $5);`
	_, err := tql.Exec(ctx, tx, stmt, sessionID, position, turn.UserID, turn.OriginID, turn.Timestamp)
	return err
}

func uniqueViolation(err error, constraint string) bool {
	var pqErr *pq.Error
	if !errors.As(err, &pqErr) {
		return false
	}
	return pqErr.Code == "23505" && string(pqErr.Constraint) == constraint
}

func isGuardError(err error) bool {
	return errors.Is(err, domain.ErrNotFound) ||
		errors.Is(err, domain.ErrNotOpen) ||
		errors.Is(err, domain.ErrNotAbandoned)
}

// PostgresPreferenceStore persists notification preferences keyed by user.
type PostgresPreferenceStore struct {
	db *sql.DB
}

func NewPostgresPreferenceStore(db *sql.DB) *PostgresPreferenceStore {
	return &PostgresPreferenceStore{db}
}

func (s *PostgresPreferenceStore) GetByUser(
	ctx context.Context,
	userID string,
) (domain.NotificationPreference, error) {
	const query = `
		SELECT
			*
		FROM
			relay_notification_preference
		WHERE
			user_id = $1;`
	preference, err := tql.QueryFirst[domain.NotificationPreference](ctx, s.db, query, userID)
	switch {
	case errors.Is(err, sql.ErrNoRows):
		return domain.NotificationPreference{}, domain.ErrNotFound
	case err != nil:
		return domain.NotificationPreference{}, domain.NewStoreError("get preference", err)
	}

	return preference, nil
}

func (s *PostgresPreferenceStore) UpsertByUser(
	ctx context.Context,
	preference domain.NotificationPreference,
) error {
	const stmt = `
		INSERT INTO
			relay_notification_preference (user_id, active, server_scoped, home_origin_id, passphrase_filter)
		VALUES
			(:user_id, :active, :server_scoped, :home_origin_id, :passphrase_filter)
		ON CONFLICT (user_id) DO UPDATE SET
			active = EXCLUDED.active,
			server_scoped = EXCLUDED.server_scoped,
			home_origin_id = EXCLUDED.home_origin_id,
			passphrase_filter = EXCLUDED.passphrase_filter;`
	if _, err := tql.Exec(ctx, s.db, stmt, preference); err != nil {
		return domain.NewStoreError("upsert preference", err)
	}

	return nil
}

func (s *PostgresPreferenceStore) Search(
	ctx context.Context,
	query domain.PreferenceQuery,
) ([]domain.NotificationPreference, error) {
	stmt := `
		SELECT
			*
		FROM
			relay_notification_preference
		WHERE
			1 = 1`
	var args []interface{}

	arg := func(value interface{}) string {
		args = append(args, value)
		return fmt.Sprintf("$%d", len(args))
	}

	if query.Active != nil {
		stmt += fmt.Sprintf(" AND active = %s", arg(*query.Active))
	}
	if query.PassphraseFilter != nil {
		stmt += fmt.Sprintf(" AND passphrase_filter = %s", arg(*query.PassphraseFilter))
	}
	if query.OriginOrUnscoped != nil {
		stmt += fmt.Sprintf(" AND (server_scoped = false OR home_origin_id = %s)", arg(*query.OriginOrUnscoped))
	}

	stmt += " ORDER BY user_id;"

	preferences, err := tql.Query[domain.NotificationPreference](ctx, s.db, stmt, args...)
	if err != nil {
		return nil, domain.NewStoreError("search preferences", err)
	}

	return preferences, nil
}
