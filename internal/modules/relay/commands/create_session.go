package commands

import (
	"context"
	"fmt"
	"net/http"
	"path"

	"github.com/eskrenkovic/relay-coop-go/internal/modules/core"
	"github.com/eskrenkovic/relay-coop-go/internal/modules/relay/domain"

	"github.com/eskrenkovic/mediator-go"
	"go.uber.org/zap"
)

type CreateSessionCommand struct {
	Code         string
	ActivityKind int
	ServerOnly   bool
	GroupPass    string

	UserID   string
	OriginID string
}

func (c CreateSessionCommand) Validate() error {
	if c.Code == "" {
		return fmt.Errorf("invalid Code - '%s'", c.Code)
	}

	if c.ActivityKind < 1 {
		return fmt.Errorf("invalid ActivityKind - '%d'", c.ActivityKind)
	}

	if c.UserID == "" {
		return fmt.Errorf("invalid UserID - '%s'", c.UserID)
	}

	return nil
}

type CreateSessionResponse struct {
	SessionID string
	Session   domain.Session
	Notified  []string
}

func HandleCreateSession(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	command, err := core.RequestBody[CreateSessionCommand](r)
	if err != nil {
		core.WriteBadRequest(w, r, err)
		return
	}

	session := core.Session(ctx)
	command.UserID = session.UserID
	command.OriginID = session.OriginID

	response, err := mediator.Send[CreateSessionCommand, CreateSessionResponse](ctx, command)
	if err != nil {
		core.WriteCommandError(w, r, err)
		return
	}

	location := path.Join(r.Host, "sessions", response.SessionID)
	core.WriteCreated(w, r, location)
}

type CreateSessionCommandHandler struct {
	sessions    domain.SessionStore
	preferences domain.PreferenceStore
	catalog     domain.Catalog
	notifier    domain.Notifier
	resolver    domain.IdentityResolver
	clock       core.Clock
	logger      *zap.Logger
}

func NewCreateSessionCommandHandler(
	sessions domain.SessionStore,
	preferences domain.PreferenceStore,
	catalog domain.Catalog,
	notifier domain.Notifier,
	resolver domain.IdentityResolver,
	clock core.Clock,
	logger *zap.Logger,
) *CreateSessionCommandHandler {
	return &CreateSessionCommandHandler{
		sessions:    sessions,
		preferences: preferences,
		catalog:     catalog,
		notifier:    notifier,
		resolver:    resolver,
		clock:       clock,
		logger:      logger,
	}
}

func (h *CreateSessionCommandHandler) Handle(
	ctx context.Context,
	request CreateSessionCommand,
) (CreateSessionResponse, error) {
	activity, err := h.catalog.Get(request.ActivityKind)
	if err != nil {
		return CreateSessionResponse{}, commandError(err)
	}

	now := h.clock.Now()

	session := domain.Session{
		Code:         domain.NormalizeCode(request.Code),
		ActivityKind: activity.Kind,
		ServerOnly:   request.ServerOnly,
		GroupPass:    domain.TruncateGroupPass(request.GroupPass),
		OriginID:     request.OriginID,
		Status:       domain.StatusOpen,
		Turns: []domain.Turn{
			{
				UserID:    request.UserID,
				OriginID:  request.OriginID,
				Timestamp: now,
			},
		},
	}

	id, err := h.sessions.Insert(ctx, session)
	if err != nil {
		return CreateSessionResponse{}, commandError(err)
	}
	session.ID = id

	notified := h.notifySubscribers(ctx, session, activity)

	return CreateSessionResponse{SessionID: id, Session: session, Notified: notified}, nil
}

// notifySubscribers is best effort. The session is already committed, so
// matching or delivery failures are logged per recipient and never surfaced.
func (h *CreateSessionCommandHandler) notifySubscribers(
	ctx context.Context,
	session domain.Session,
	activity domain.Activity,
) []string {
	matches, err := h.preferences.Search(ctx, domain.SubscriberSearch(session))
	if err != nil {
		h.logger.Error("subscriber search failed",
			zap.String("session_id", session.ID),
			zap.Error(err),
		)
		return nil
	}

	hostName := h.resolver.UserName(ctx, session.Host().UserID)

	var notified []string
	for _, preference := range matches {
		if preference.UserID == session.Host().UserID {
			continue
		}
		if !domain.PreferenceMatches(preference, session) {
			continue
		}

		notice := domain.Notification{
			UserID: preference.UserID,
			Title:  fmt.Sprintf("New relay session %s", session.Code),
			Body: fmt.Sprintf(
				"%s opened a session on %s (%s).",
				hostName, activity.Name, activity.Difficulty,
			),
		}
		if err := h.notifier.Deliver(ctx, notice); err != nil {
			h.logger.Warn("failed to deliver new-session notice",
				zap.String("session_id", session.ID),
				zap.String("user_id", preference.UserID),
				zap.Error(err),
			)
			continue
		}

		notified = append(notified, preference.UserID)
	}

	return notified
}
