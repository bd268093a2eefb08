package core

import (
	"context"
)

type ContextKey string

const SessionContextKey ContextKey = "session"

// ContextSession carries the identity the platform gateway resolved for the
// current request. OriginID is empty for direct/private contexts.
type ContextSession struct {
	UserID   string
	OriginID string
}

func Session(ctx context.Context) ContextSession {
	rawVal := ctx.Value(SessionContextKey)

	if rawVal == nil {
		return ContextSession{}
	}

	session, ok := rawVal.(ContextSession)
	if !ok {
		return ContextSession{}
	}

	return session
}

func WithSession(ctx context.Context, session ContextSession) context.Context {
	return context.WithValue(ctx, SessionContextKey, session)
}
