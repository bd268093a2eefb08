package domain

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"
)

// StaleAfterDays is the idle threshold after which an open session is purged.
const StaleAfterDays = 1

// Sweeper moves stale open sessions to abandoned and tells their hosts how to
// reinstate them. It is the trusted maintenance path: no vote quorum applies.
// Running it twice in a row is a no-op the second time, since purged sessions
// no longer match status=open.
type Sweeper struct {
	sessions SessionStore
	notifier Notifier
	logger   *zap.Logger
}

func NewSweeper(sessions SessionStore, notifier Notifier, logger *zap.Logger) *Sweeper {
	return &Sweeper{sessions: sessions, notifier: notifier, logger: logger}
}

// PurgeStale returns the sessions it transitioned. Delivery failures are
// logged and do not undo the transition.
func (s *Sweeper) PurgeStale(ctx context.Context, now time.Time) ([]Session, error) {
	open := StatusOpen
	candidates, err := s.sessions.Query(ctx, SessionQuery{Status: &open})
	if err != nil {
		return nil, err
	}

	var purged []Session
	for _, session := range candidates {
		if session.DaysSinceLastActivity(now) <= StaleAfterDays {
			continue
		}

		abandoned := StatusAbandoned
		updated, err := s.sessions.Update(ctx, session.ID, SessionUpdate{
			ExpectStatus: &open,
			Status:       &abandoned,
		})
		if err != nil {
			// A racing command may have moved the session already.
			s.logger.Warn("skipping stale session",
				zap.String("session_id", session.ID),
				zap.Error(err),
			)
			continue
		}

		purged = append(purged, updated)

		notice := Notification{
			UserID: updated.Host().UserID,
			Title:  fmt.Sprintf("Session %s was closed for inactivity", updated.Code),
			Body: fmt.Sprintf(
				"Your session %s had no activity for more than %d day(s) and was marked abandoned. You can reinstate it as long as the code is free.",
				updated.Code, StaleAfterDays,
			),
		}
		if err := s.notifier.Deliver(ctx, notice); err != nil {
			s.logger.Warn("failed to deliver reinstatement notice",
				zap.String("session_id", updated.ID),
				zap.String("user_id", notice.UserID),
				zap.Error(err),
			)
		}
	}

	return purged, nil
}
