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

type ReinstateSessionCommand struct {
	SessionID string
	UserID    string
}

func (c ReinstateSessionCommand) Validate() error {
	if c.SessionID == "" {
		return fmt.Errorf("invalid SessionID - '%s'", c.SessionID)
	}

	if c.UserID == "" {
		return fmt.Errorf("invalid UserID - '%s'", c.UserID)
	}

	return nil
}

type ReinstateSessionResponse struct {
	Session domain.Session
}

func HandleReinstateSession(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	command := ReinstateSessionCommand{
		SessionID: chi.URLParam(r, "id"),
		UserID:    core.Session(ctx).UserID,
	}

	response, err := mediator.Send[ReinstateSessionCommand, ReinstateSessionResponse](ctx, command)
	if err != nil {
		core.WriteCommandError(w, r, err)
		return
	}

	core.WriteOK(w, r, response)
}

type ReinstateSessionCommandHandler struct {
	sessions domain.SessionStore
	clock    core.Clock
}

func NewReinstateSessionCommandHandler(
	sessions domain.SessionStore,
	clock core.Clock,
) *ReinstateSessionCommandHandler {
	return &ReinstateSessionCommandHandler{sessions: sessions, clock: clock}
}

func (h *ReinstateSessionCommandHandler) Handle(
	ctx context.Context,
	request ReinstateSessionCommand,
) (ReinstateSessionResponse, error) {
	session, err := h.sessions.Get(ctx, request.SessionID)
	if err != nil {
		return ReinstateSessionResponse{}, commandError(err)
	}

	if session.Status != domain.StatusAbandoned {
		return ReinstateSessionResponse{}, commandError(domain.ErrNotAbandoned)
	}

	if !session.IsHost(request.UserID) {
		return ReinstateSessionResponse{}, commandError(domain.ErrNotHost)
	}

	open := domain.StatusOpen
	abandoned := domain.StatusAbandoned
	now := h.clock.Now()

	// The open-code uniqueness constraint turns a lost race into ErrCodeTaken
	// here; no separate existence check can close that window.
	updated, err := h.sessions.Update(ctx, request.SessionID, domain.SessionUpdate{
		ExpectStatus:      &abandoned,
		Status:            &open,
		LastTurnTimestamp: &now,
	})
	if err != nil {
		return ReinstateSessionResponse{}, commandError(err)
	}

	return ReinstateSessionResponse{Session: updated}, nil
}
