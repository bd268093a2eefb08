package commands

import (
	"context"
	"fmt"
	"net/http"
	"strings"

	"github.com/eskrenkovic/relay-coop-go/internal/modules/core"
	"github.com/eskrenkovic/relay-coop-go/internal/modules/relay/domain"

	"github.com/eskrenkovic/mediator-go"
	"github.com/go-chi/chi"
	"go.uber.org/zap"
)

type AbandonSessionCommand struct {
	SessionID string
	UserID    string
	OriginID  string
}

func (c AbandonSessionCommand) Validate() error {
	if c.SessionID == "" {
		return fmt.Errorf("invalid SessionID - '%s'", c.SessionID)
	}

	if c.UserID == "" {
		return fmt.Errorf("invalid UserID - '%s'", c.UserID)
	}

	return nil
}

type AbandonSessionResponse struct {
	Session   domain.Session
	Abandoned bool

	// VoteCount reports distinct voters so far when the request was recorded
	// as a deletion vote instead of an immediate transition.
	VoteCount int
}

func HandleAbandonSession(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	session := core.Session(ctx)
	command := AbandonSessionCommand{
		SessionID: chi.URLParam(r, "id"),
		UserID:    session.UserID,
		OriginID:  session.OriginID,
	}

	response, err := mediator.Send[AbandonSessionCommand, AbandonSessionResponse](ctx, command)
	if err != nil {
		core.WriteCommandError(w, r, err)
		return
	}

	core.WriteOK(w, r, response)
}

type AbandonSessionCommandHandler struct {
	sessions domain.SessionStore
	notifier domain.Notifier
	resolver domain.IdentityResolver
	clock    core.Clock
	logger   *zap.Logger
}

func NewAbandonSessionCommandHandler(
	sessions domain.SessionStore,
	notifier domain.Notifier,
	resolver domain.IdentityResolver,
	clock core.Clock,
	logger *zap.Logger,
) *AbandonSessionCommandHandler {
	return &AbandonSessionCommandHandler{
		sessions: sessions,
		notifier: notifier,
		resolver: resolver,
		clock:    clock,
		logger:   logger,
	}
}

func (h *AbandonSessionCommandHandler) Handle(
	ctx context.Context,
	request AbandonSessionCommand,
) (AbandonSessionResponse, error) {
	session, err := h.sessions.Get(ctx, request.SessionID)
	if err != nil {
		return AbandonSessionResponse{}, commandError(err)
	}

	if session.Status != domain.StatusOpen {
		return AbandonSessionResponse{}, commandError(domain.ErrNotOpen)
	}

	now := h.clock.Now()
	if !session.CanAbandon(request.UserID, now) {
		return AbandonSessionResponse{}, commandError(domain.ErrNotAllowed)
	}

	// Hosts and long-idle participants close the session outright. Anyone
	// else only gets a deletion vote; the session falls once quorum holds.
	if session.IsHost(request.UserID) || session.IsParticipant(request.UserID) {
		abandoned, err := h.transition(ctx, request.SessionID)
		if err != nil {
			return AbandonSessionResponse{}, commandError(err)
		}

		h.notifyHost(ctx, abandoned, request.UserID, []string{request.UserID})
		return AbandonSessionResponse{Session: abandoned, Abandoned: true}, nil
	}

	open := domain.StatusOpen
	vote := domain.DeletionVote{
		UserID:   request.UserID,
		OriginID: request.OriginID,
		VotedAt:  now,
	}

	voted, err := h.sessions.Update(ctx, request.SessionID, domain.SessionUpdate{
		ExpectStatus: &open,
		AppendVote:   &vote,
	})
	if err != nil {
		return AbandonSessionResponse{}, commandError(err)
	}

	if !voted.QuorumReached(request.OriginID) {
		return AbandonSessionResponse{
			Session:   voted,
			Abandoned: false,
			VoteCount: voted.DistinctVoters(),
		}, nil
	}

	abandoned, err := h.transition(ctx, request.SessionID)
	if err != nil {
		return AbandonSessionResponse{}, commandError(err)
	}

	voters := make([]string, 0, len(abandoned.DeletionVotes))
	for _, recorded := range abandoned.DeletionVotes {
		voters = append(voters, recorded.UserID)
	}

	h.notifyHost(ctx, abandoned, request.UserID, voters)

	return AbandonSessionResponse{
		Session:   abandoned,
		Abandoned: true,
		VoteCount: abandoned.DistinctVoters(),
	}, nil
}

func (h *AbandonSessionCommandHandler) transition(
	ctx context.Context,
	sessionID string,
) (domain.Session, error) {
	open := domain.StatusOpen
	abandoned := domain.StatusAbandoned

	return h.sessions.Update(ctx, sessionID, domain.SessionUpdate{
		ExpectStatus: &open,
		Status:       &abandoned,
	})
}

// notifyHost tells the host who triggered the abandonment. When the host
// abandoned their own session the command response already says so.
func (h *AbandonSessionCommandHandler) notifyHost(
	ctx context.Context,
	session domain.Session,
	requesterID string,
	triggeredBy []string,
) {
	hostID := session.Host().UserID
	if hostID == requesterID {
		return
	}

	names := make([]string, 0, len(triggeredBy))
	for _, userID := range triggeredBy {
		names = append(names, h.resolver.UserName(ctx, userID))
	}

	notice := domain.Notification{
		UserID: hostID,
		Title:  fmt.Sprintf("Session %s was abandoned", session.Code),
		Body: fmt.Sprintf(
			"Your session %s was marked abandoned, triggered by: %s.",
			session.Code, strings.Join(names, ", "),
		),
	}
	if err := h.notifier.Deliver(ctx, notice); err != nil {
		h.logger.Warn("failed to deliver abandonment notice",
			zap.String("session_id", session.ID),
			zap.String("user_id", hostID),
			zap.Error(err),
		)
	}
}
