package commands

import (
	"context"
	"fmt"
	"net/http"

	"github.com/eskrenkovic/relay-coop-go/internal/modules/core"
	"github.com/eskrenkovic/relay-coop-go/internal/modules/relay/domain"

	"github.com/eskrenkovic/mediator-go"
	"github.com/go-chi/chi"
)

// Join is advisory: it verifies the user could take a turn and returns the
// instructions payload. The turn itself is only recorded on advance.
type JoinSessionCommand struct {
	SessionID string
	UserID    string
}

func (c JoinSessionCommand) Validate() error {
	if c.SessionID == "" {
		return fmt.Errorf("invalid SessionID - '%s'", c.SessionID)
	}

	if c.UserID == "" {
		return fmt.Errorf("invalid UserID - '%s'", c.UserID)
	}

	return nil
}

type JoinSessionResponse struct {
	Session  domain.Session
	Activity domain.Activity

	// OfferContinue signals whether the next turn may still keep the session
	// open, or the activity would be at capacity.
	OfferContinue bool
}

func HandleJoinSession(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	command := JoinSessionCommand{
		SessionID: chi.URLParam(r, "id"),
		UserID:    core.Session(ctx).UserID,
	}

	response, err := mediator.Send[JoinSessionCommand, JoinSessionResponse](ctx, command)
	if err != nil {
		core.WriteCommandError(w, r, err)
		return
	}

	core.WriteOK(w, r, response)
}

type JoinSessionCommandHandler struct {
	sessions domain.SessionStore
	catalog  domain.Catalog
}

func NewJoinSessionCommandHandler(
	sessions domain.SessionStore,
	catalog domain.Catalog,
) *JoinSessionCommandHandler {
	return &JoinSessionCommandHandler{sessions: sessions, catalog: catalog}
}

func (h *JoinSessionCommandHandler) Handle(
	ctx context.Context,
	request JoinSessionCommand,
) (JoinSessionResponse, error) {
	session, err := h.sessions.Get(ctx, request.SessionID)
	if err != nil {
		return JoinSessionResponse{}, commandError(err)
	}

	// A session that already left open is as good as gone for joiners.
	if session.Status != domain.StatusOpen {
		return JoinSessionResponse{}, commandError(domain.ErrNotFound)
	}

	if session.IsParticipant(request.UserID) {
		return JoinSessionResponse{}, commandError(domain.ErrAlreadyJoined)
	}

	activity, err := h.catalog.Get(session.ActivityKind)
	if err != nil {
		return JoinSessionResponse{}, commandError(err)
	}

	return JoinSessionResponse{
		Session:       session,
		Activity:      activity,
		OfferContinue: !session.CapacityReached(activity),
	}, nil
}
