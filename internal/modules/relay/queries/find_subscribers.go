package queries

import (
	"context"
	"fmt"
	"net/http"

	"github.com/eskrenkovic/relay-coop-go/internal/modules/core"
	"github.com/eskrenkovic/relay-coop-go/internal/modules/relay/domain"

	"github.com/eskrenkovic/mediator-go"
	"github.com/go-chi/chi"
)

// FindSubscribersQuery resolves which users want a notice about a session.
// The creator never notifies themselves.
type FindSubscribersQuery struct {
	SessionID string
	CreatorID string
}

func (q FindSubscribersQuery) Validate() error {
	if q.SessionID == "" {
		return fmt.Errorf("invalid SessionID - '%s'", q.SessionID)
	}

	return nil
}

type FindSubscribersResponse struct {
	UserIDs []string
}

func HandleFindSubscribers(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	query := FindSubscribersQuery{
		SessionID: chi.URLParam(r, "id"),
		CreatorID: core.Session(ctx).UserID,
	}

	response, err := mediator.Send[FindSubscribersQuery, FindSubscribersResponse](ctx, query)
	if err != nil {
		core.WriteCommandError(w, r, err)
		return
	}

	core.WriteOK(w, r, response)
}

type FindSubscribersQueryHandler struct {
	sessions    domain.SessionStore
	preferences domain.PreferenceStore
}

func NewFindSubscribersQueryHandler(
	sessions domain.SessionStore,
	preferences domain.PreferenceStore,
) *FindSubscribersQueryHandler {
	return &FindSubscribersQueryHandler{sessions: sessions, preferences: preferences}
}

func (h *FindSubscribersQueryHandler) Handle(
	ctx context.Context,
	request FindSubscribersQuery,
) (FindSubscribersResponse, error) {
	session, err := h.sessions.Get(ctx, request.SessionID)
	if err != nil {
		return FindSubscribersResponse{}, queryError(err)
	}

	matches, err := h.preferences.Search(ctx, domain.SubscriberSearch(session))
	if err != nil {
		return FindSubscribersResponse{}, queryError(err)
	}

	var userIDs []string
	for _, preference := range matches {
		if preference.UserID == request.CreatorID {
			continue
		}
		if !domain.PreferenceMatches(preference, session) {
			continue
		}
		userIDs = append(userIDs, preference.UserID)
	}

	return FindSubscribersResponse{UserIDs: userIDs}, nil
}
