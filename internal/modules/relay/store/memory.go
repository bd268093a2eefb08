package store

import (
	"context"
	"sort"
	"sync"

	"github.com/eskrenkovic/relay-coop-go/internal/modules/relay/domain"

	"github.com/google/uuid"
)

// MemorySessionStore keeps the full contract of the Postgres store in a
// mutex-guarded map: open-code uniqueness, participation uniqueness, and the
// compare-and-swap status guard. Single-node deployments and unit tests run
// against it.
type MemorySessionStore struct {
	mu       sync.Mutex
	sessions map[string]domain.Session
}

func NewMemorySessionStore() *MemorySessionStore {
	return &MemorySessionStore{sessions: map[string]domain.Session{}}
}

func (s *MemorySessionStore) Insert(_ context.Context, session domain.Session) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if session.Status == domain.StatusOpen && s.openCodeHeld(session.Code, "") {
		return "", domain.ErrDuplicateCode
	}

	session.ID = uuid.NewString()
	s.sessions[session.ID] = copySession(session)
	return session.ID, nil
}

func (s *MemorySessionStore) Get(_ context.Context, id string) (domain.Session, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	session, found := s.sessions[id]
	if !found {
		return domain.Session{}, domain.ErrNotFound
	}
	return copySession(session), nil
}

func (s *MemorySessionStore) Update(
	_ context.Context,
	id string,
	update domain.SessionUpdate,
) (domain.Session, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	session, found := s.sessions[id]
	if !found {
		return domain.Session{}, domain.ErrNotFound
	}

	if update.ExpectStatus != nil && session.Status != *update.ExpectStatus {
		return domain.Session{}, domain.StatusGuardError(*update.ExpectStatus)
	}

	if update.Status != nil {
		if *update.Status == domain.StatusOpen &&
			session.Status != domain.StatusOpen &&
			s.openCodeHeld(session.Code, session.ID) {
			return domain.Session{}, domain.ErrCodeTaken
		}
		session.Status = *update.Status
	}

	if update.AppendTurn != nil {
		if session.IsParticipant(update.AppendTurn.UserID) {
			return domain.Session{}, domain.ErrAlreadyJoined
		}
		session.Turns = append(session.Turns, *update.AppendTurn)
	}

	if update.AppendVote != nil {
		voted := false
		for _, vote := range session.DeletionVotes {
			if vote.UserID == update.AppendVote.UserID {
				voted = true
				break
			}
		}
		if !voted {
			session.DeletionVotes = append(session.DeletionVotes, *update.AppendVote)
		}
	}

	if update.LastTurnTimestamp != nil && len(session.Turns) > 0 {
		session.Turns[len(session.Turns)-1].Timestamp = *update.LastTurnTimestamp
	}

	s.sessions[id] = copySession(session)
	return copySession(session), nil
}

func (s *MemorySessionStore) Query(
	_ context.Context,
	query domain.SessionQuery,
) ([]domain.Session, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var results []domain.Session
	for _, session := range s.sessions {
		if sessionMatches(session, query) {
			results = append(results, copySession(session))
		}
	}

	sort.Slice(results, func(i, j int) bool {
		return results[i].Host().Timestamp.Before(results[j].Host().Timestamp)
	})

	return results, nil
}

func (s *MemorySessionStore) openCodeHeld(code, excludeID string) bool {
	for _, existing := range s.sessions {
		if existing.ID != excludeID &&
			existing.Code == code &&
			existing.Status == domain.StatusOpen {
			return true
		}
	}
	return false
}

func sessionMatches(session domain.Session, query domain.SessionQuery) bool {
	if query.Status != nil && session.Status != *query.Status {
		return false
	}
	if query.Code != nil && session.Code != *query.Code {
		return false
	}
	if query.GroupPass != nil && session.GroupPass != *query.GroupPass {
		return false
	}
	if query.ServerOnly != nil && session.ServerOnly != *query.ServerOnly {
		return false
	}

	if len(query.Codes) > 0 {
		found := false
		for _, code := range query.Codes {
			if session.Code == code {
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}

	if query.AllTurnsOrigin != nil {
		for _, turn := range session.Turns {
			if turn.OriginID != *query.AllTurnsOrigin {
				return false
			}
		}
	}

	if query.AnyTurnUser != nil && !session.IsParticipant(*query.AnyTurnUser) {
		return false
	}

	return true
}

func copySession(session domain.Session) domain.Session {
	copied := session
	copied.Turns = append([]domain.Turn(nil), session.Turns...)
	copied.DeletionVotes = append([]domain.DeletionVote(nil), session.DeletionVotes...)
	return copied
}

// MemoryPreferenceStore mirrors the preference table contract in memory.
type MemoryPreferenceStore struct {
	mu          sync.Mutex
	preferences map[string]domain.NotificationPreference
}

func NewMemoryPreferenceStore() *MemoryPreferenceStore {
	return &MemoryPreferenceStore{preferences: map[string]domain.NotificationPreference{}}
}

func (s *MemoryPreferenceStore) GetByUser(
	_ context.Context,
	userID string,
) (domain.NotificationPreference, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	preference, found := s.preferences[userID]
	if !found {
		return domain.NotificationPreference{}, domain.ErrNotFound
	}
	return preference, nil
}

func (s *MemoryPreferenceStore) UpsertByUser(
	_ context.Context,
	preference domain.NotificationPreference,
) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.preferences[preference.UserID] = preference
	return nil
}

func (s *MemoryPreferenceStore) Search(
	_ context.Context,
	query domain.PreferenceQuery,
) ([]domain.NotificationPreference, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var results []domain.NotificationPreference
	for _, preference := range s.preferences {
		if preferenceMatchesQuery(preference, query) {
			results = append(results, preference)
		}
	}

	sort.Slice(results, func(i, j int) bool { return results[i].UserID < results[j].UserID })
	return results, nil
}

func preferenceMatchesQuery(
	preference domain.NotificationPreference,
	query domain.PreferenceQuery,
) bool {
	if query.Active != nil && preference.Active != *query.Active {
		return false
	}
	if query.PassphraseFilter != nil && preference.PassphraseFilter != *query.PassphraseFilter {
		return false
	}
	if query.OriginOrUnscoped != nil &&
		preference.ServerScoped &&
		preference.HomeOriginID != *query.OriginOrUnscoped {
		return false
	}
	return true
}
