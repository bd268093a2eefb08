package commands

import (
	"context"
	"fmt"
	"net/http"

	"github.com/eskrenkovic/relay-coop-go/internal/modules/core"
	"github.com/eskrenkovic/relay-coop-go/internal/modules/relay/domain"

	"github.com/eskrenkovic/mediator-go"
)

// Preferences are upserted, never deleted; users opt out by deactivating.
type UpsertPreferenceCommand struct {
	Active           bool
	ServerScoped     bool
	HomeOriginID     string
	PassphraseFilter string

	UserID string
}

func (c UpsertPreferenceCommand) Validate() error {
	if c.UserID == "" {
		return fmt.Errorf("invalid UserID - '%s'", c.UserID)
	}

	if c.ServerScoped && c.HomeOriginID == "" {
		return fmt.Errorf("server scoped preference requires HomeOriginID")
	}

	return nil
}

func HandleUpsertPreference(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	command, err := core.RequestBody[UpsertPreferenceCommand](r)
	if err != nil {
		core.WriteBadRequest(w, r, err)
		return
	}

	session := core.Session(ctx)
	command.UserID = session.UserID
	if command.ServerScoped && command.HomeOriginID == "" {
		command.HomeOriginID = session.OriginID
	}

	if _, err := mediator.Send[UpsertPreferenceCommand, core.Unit](ctx, command); err != nil {
		core.WriteCommandError(w, r, err)
		return
	}

	core.WriteOK(w, r, nil)
}

type UpsertPreferenceCommandHandler struct {
	preferences domain.PreferenceStore
}

func NewUpsertPreferenceCommandHandler(
	preferences domain.PreferenceStore,
) *UpsertPreferenceCommandHandler {
	return &UpsertPreferenceCommandHandler{preferences: preferences}
}

func (h *UpsertPreferenceCommandHandler) Handle(
	ctx context.Context,
	request UpsertPreferenceCommand,
) (core.Unit, error) {
	preference := domain.NotificationPreference{
		UserID:           request.UserID,
		Active:           request.Active,
		ServerScoped:     request.ServerScoped,
		HomeOriginID:     request.HomeOriginID,
		PassphraseFilter: domain.TruncateGroupPass(request.PassphraseFilter),
	}

	// Passphrase subscriptions are scope-exclusive; storing them unscoped
	// keeps the stored row consistent with how matching treats it.
	if preference.PassphraseFilter != "" {
		preference.ServerScoped = false
		preference.HomeOriginID = ""
	}

	if err := h.preferences.UpsertByUser(ctx, preference); err != nil {
		return core.Unit{}, commandError(err)
	}

	return core.Unit{}, nil
}
