package domain

import (
	"context"
	"time"
)

// SessionQuery is a conjunction of exact-match scalar predicates plus at most
// one turn quantifier clause. AllTurnsOrigin requires every turn to share the
// given origin; AnyTurnUser requires at least one turn by the given user.
type SessionQuery struct {
	Status     *Status
	Code       *string
	Codes      []string
	GroupPass  *string
	ServerOnly *bool

	AllTurnsOrigin *string
	AnyTurnUser    *string
}

// SessionUpdate merges the set fields into the stored record. ExpectStatus is
// a compare-and-swap guard: when set, the update fails with the matching
// guard error unless the stored status equals it at update time. Appends and
// the guard are applied atomically by the store.
type SessionUpdate struct {
	ExpectStatus *Status

	Status            *Status
	AppendTurn        *Turn
	AppendVote        *DeletionVote
	LastTurnTimestamp *time.Time
}

// SessionStore is the persistence contract for sessions. Implementations
// never stamp timestamps; callers supply them. Insert assigns a fresh id and
// fails with ErrDuplicateCode when an open session already holds the code.
// Update returns the record as stored after the merge.
type SessionStore interface {
	Insert(ctx context.Context, session Session) (string, error)
	Get(ctx context.Context, id string) (Session, error)
	Update(ctx context.Context, id string, update SessionUpdate) (Session, error)
	Query(ctx context.Context, query SessionQuery) ([]Session, error)
}

// NotificationPreference is one user's subscription settings, at most one per
// user. A non-empty PassphraseFilter overrides server scoping when matching.
type NotificationPreference struct {
	UserID           string `db:"user_id"`
	Active           bool   `db:"active"`
	ServerScoped     bool   `db:"server_scoped"`
	HomeOriginID     string `db:"home_origin_id"`
	PassphraseFilter string `db:"passphrase_filter"`
}

// PreferenceQuery is a scalar conjunction with one OR-shaped clause:
// OriginOrUnscoped matches preferences that are not server scoped OR whose
// home origin equals the given id.
type PreferenceQuery struct {
	Active           *bool
	PassphraseFilter *string
	OriginOrUnscoped *string
}

type PreferenceStore interface {
	GetByUser(ctx context.Context, userID string) (NotificationPreference, error)
	UpsertByUser(ctx context.Context, preference NotificationPreference) error
	Search(ctx context.Context, query PreferenceQuery) ([]NotificationPreference, error)
}
