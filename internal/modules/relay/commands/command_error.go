package commands

import (
	"errors"

	"github.com/eskrenkovic/relay-coop-go/internal/modules/core"
	"github.com/eskrenkovic/relay-coop-go/internal/modules/relay/domain"
)

// commandError translates guard failures into the status codes the gateway
// understands. Anything unexpected stays a 500.
func commandError(err error) error {
	switch {
	case errors.Is(err, domain.ErrNotFound):
		return core.NewCommandError(404, err)
	case errors.Is(err, domain.ErrUnknownActivity):
		return core.NewCommandError(400, err)
	case errors.Is(err, domain.ErrDuplicateCode),
		errors.Is(err, domain.ErrCodeTaken),
		errors.Is(err, domain.ErrAlreadyJoined),
		errors.Is(err, domain.ErrNotOpen),
		errors.Is(err, domain.ErrNotAbandoned):
		return core.NewCommandError(409, err)
	case errors.Is(err, domain.ErrNotAllowed),
		errors.Is(err, domain.ErrNotHost):
		return core.NewCommandError(403, err)
	default:
		return core.NewCommandError(500, err)
	}
}
