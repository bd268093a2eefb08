package gateway

import (
	"context"
	"net/http"

	"github.com/eskrenkovic/relay-coop-go/internal/modules/core"
	"github.com/eskrenkovic/relay-coop-go/internal/modules/relay/domain"

	"go.uber.org/zap"
)

const (
	UserIDHeader   = "X-User-Id"
	OriginIDHeader = "X-Origin-Id"
)

// Identity trusts the platform gateway to have authenticated the caller and
// to forward the resolved identity as headers. Requests without a user id are
// rejected before reaching any handler.
func Identity(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID := r.Header.Get(UserIDHeader)
		if userID == "" {
			core.WriteUnauthorized(w, r, nil)
			return
		}

		session := core.ContextSession{
			UserID:   userID,
			OriginID: r.Header.Get(OriginIDHeader),
		}

		next.ServeHTTP(w, r.WithContext(core.WithSession(r.Context(), session)))
	}
}

// LogNotifier stands in for the gateway delivery callback: it records every
// outbound notice instead of sending it. Delivery to the chat platform itself
// lives outside this service.
type LogNotifier struct {
	logger *zap.Logger
}

func NewLogNotifier(logger *zap.Logger) *LogNotifier {
	return &LogNotifier{logger: logger}
}

func (n *LogNotifier) Deliver(_ context.Context, notification domain.Notification) error {
	n.logger.Info("outbound notice",
		zap.String("user_id", notification.UserID),
		zap.String("title", notification.Title),
		zap.String("body", notification.Body),
		zap.String("image", notification.ImagePath),
	)
	return nil
}

// PassthroughResolver renders raw platform ids. The gateway swaps in a real
// resolver when display names are available.
type PassthroughResolver struct{}

func (PassthroughResolver) UserName(_ context.Context, userID string) string {
	return userID
}

func (PassthroughResolver) ServerName(_ context.Context, originID string) string {
	return originID
}
