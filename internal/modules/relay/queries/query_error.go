package queries

import (
	"errors"

	"github.com/eskrenkovic/relay-coop-go/internal/modules/core"
	"github.com/eskrenkovic/relay-coop-go/internal/modules/relay/domain"
)

func queryError(err error) error {
	switch {
	case errors.Is(err, domain.ErrNotFound):
		return core.NewCommandError(404, err)
	case errors.Is(err, domain.ErrUnknownActivity):
		return core.NewCommandError(400, err)
	default:
		return core.NewCommandError(500, err)
	}
}
