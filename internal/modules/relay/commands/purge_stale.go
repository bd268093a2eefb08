package commands

import (
	"context"
	"net/http"

	"github.com/eskrenkovic/relay-coop-go/internal/modules/core"
	"github.com/eskrenkovic/relay-coop-go/internal/modules/relay/domain"

	"github.com/eskrenkovic/mediator-go"
)

// PurgeStaleSessionsCommand runs the maintenance sweep on demand. The same
// sweep also runs lazily at the start of every listing, so this endpoint only
// exists for operational prodding.
type PurgeStaleSessionsCommand struct{}

func (c PurgeStaleSessionsCommand) Validate() error {
	return nil
}

type PurgeStaleSessionsResponse struct {
	PurgedSessionIDs []string
}

func HandlePurgeStaleSessions(w http.ResponseWriter, r *http.Request) {
	response, err := mediator.Send[PurgeStaleSessionsCommand, PurgeStaleSessionsResponse](
		r.Context(),
		PurgeStaleSessionsCommand{},
	)
	if err != nil {
		core.WriteCommandError(w, r, err)
		return
	}

	core.WriteOK(w, r, response)
}

type PurgeStaleSessionsCommandHandler struct {
	sweeper *domain.Sweeper
	clock   core.Clock
}

func NewPurgeStaleSessionsCommandHandler(
	sweeper *domain.Sweeper,
	clock core.Clock,
) *PurgeStaleSessionsCommandHandler {
	return &PurgeStaleSessionsCommandHandler{sweeper: sweeper, clock: clock}
}

func (h *PurgeStaleSessionsCommandHandler) Handle(
	ctx context.Context,
	_ PurgeStaleSessionsCommand,
) (PurgeStaleSessionsResponse, error) {
	purged, err := h.sweeper.PurgeStale(ctx, h.clock.Now())
	if err != nil {
		return PurgeStaleSessionsResponse{}, commandError(err)
	}

	ids := make([]string, 0, len(purged))
	for _, session := range purged {
		ids = append(ids, session.ID)
	}

	return PurgeStaleSessionsResponse{PurgedSessionIDs: ids}, nil
}
