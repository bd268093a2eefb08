package commands

import (
	"context"
	"fmt"
	"net/http"

	"github.com/eskrenkovic/relay-coop-go/internal/modules/core"
	"github.com/eskrenkovic/relay-coop-go/internal/modules/relay/domain"

	"github.com/eskrenkovic/mediator-go"
	"github.com/go-chi/chi"
	"go.uber.org/zap"
)

type AdvanceSessionCommand struct {
	SessionID string
	Outcome   domain.Outcome

	UserID   string
	OriginID string
}

func (c AdvanceSessionCommand) Validate() error {
	if c.SessionID == "" {
		return fmt.Errorf("invalid SessionID - '%s'", c.SessionID)
	}

	if c.UserID == "" {
		return fmt.Errorf("invalid UserID - '%s'", c.UserID)
	}

	if !c.Outcome.Valid() {
		return fmt.Errorf("invalid Outcome - '%s'", c.Outcome)
	}

	return nil
}

type AdvanceSessionResponse struct {
	Session  domain.Session
	Notified []string
}

func HandleAdvanceSession(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	command, err := core.RequestBody[AdvanceSessionCommand](r)
	if err != nil {
		core.WriteBadRequest(w, r, err)
		return
	}

	session := core.Session(ctx)
	command.SessionID = chi.URLParam(r, "id")
	command.UserID = session.UserID
	command.OriginID = session.OriginID

	response, err := mediator.Send[AdvanceSessionCommand, AdvanceSessionResponse](ctx, command)
	if err != nil {
		core.WriteCommandError(w, r, err)
		return
	}

	core.WriteOK(w, r, response)
}

type AdvanceSessionCommandHandler struct {
	sessions domain.SessionStore
	images   domain.ImagePicker
	notifier domain.Notifier
	resolver domain.IdentityResolver
	clock    core.Clock
	logger   *zap.Logger
}

func NewAdvanceSessionCommandHandler(
	sessions domain.SessionStore,
	images domain.ImagePicker,
	notifier domain.Notifier,
	resolver domain.IdentityResolver,
	clock core.Clock,
	logger *zap.Logger,
) *AdvanceSessionCommandHandler {
	return &AdvanceSessionCommandHandler{
		sessions: sessions,
		images:   images,
		notifier: notifier,
		resolver: resolver,
		clock:    clock,
		logger:   logger,
	}
}

func (h *AdvanceSessionCommandHandler) Handle(
	ctx context.Context,
	request AdvanceSessionCommand,
) (AdvanceSessionResponse, error) {
	session, err := h.sessions.Get(ctx, request.SessionID)
	if err != nil {
		return AdvanceSessionResponse{}, commandError(err)
	}

	if session.Status != domain.StatusOpen {
		return AdvanceSessionResponse{}, commandError(domain.ErrNotOpen)
	}

	if session.IsParticipant(request.UserID) {
		return AdvanceSessionResponse{}, commandError(domain.ErrAlreadyJoined)
	}

	open := domain.StatusOpen
	next := request.Outcome.ResultingStatus()
	turn := domain.Turn{
		UserID:    request.UserID,
		OriginID:  request.OriginID,
		Timestamp: h.clock.Now(),
	}

	// The store re-checks the status and participation uniqueness atomically,
	// so a racing advance loses here instead of corrupting the turn order.
	updated, err := h.sessions.Update(ctx, request.SessionID, domain.SessionUpdate{
		ExpectStatus: &open,
		Status:       &next,
		AppendTurn:   &turn,
	})
	if err != nil {
		return AdvanceSessionResponse{}, commandError(err)
	}

	if !request.Outcome.Terminal() {
		return AdvanceSessionResponse{Session: updated}, nil
	}

	image, err := h.images.PickRandom(string(next))
	if err != nil {
		// The transition is committed; the missing image only fails this
		// request's notification step.
		return AdvanceSessionResponse{}, commandError(err)
	}

	notified := h.notifyCompletion(ctx, updated, request.UserID, image)

	return AdvanceSessionResponse{Session: updated, Notified: notified}, nil
}

// notifyCompletion sends one completion notice to every participant except
// the one who just ended the session. One failed delivery does not stop the
// rest.
func (h *AdvanceSessionCommandHandler) notifyCompletion(
	ctx context.Context,
	session domain.Session,
	finisherID string,
	image string,
) []string {
	finisherName := h.resolver.UserName(ctx, finisherID)

	var verb string
	if session.Status == domain.StatusSuccess {
		verb = "completed"
	} else {
		verb = "ended"
	}

	var notified []string
	for _, turn := range session.Turns {
		if turn.UserID == finisherID {
			continue
		}

		notice := domain.Notification{
			UserID: turn.UserID,
			Title:  fmt.Sprintf("Session %s %s", session.Code, verb),
			Body: fmt.Sprintf(
				"%s %s session %s.",
				finisherName, verb, session.Code,
			),
			ImagePath: image,
		}
		if err := h.notifier.Deliver(ctx, notice); err != nil {
			h.logger.Warn("failed to deliver completion notice",
				zap.String("session_id", session.ID),
				zap.String("user_id", turn.UserID),
				zap.Error(err),
			)
			continue
		}

		notified = append(notified, turn.UserID)
	}

	return notified
}
