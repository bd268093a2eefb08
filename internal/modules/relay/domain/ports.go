package domain

import "context"

// Notification is one outbound notice for the platform gateway to deliver.
// ImagePath is empty when no image accompanies the notice.
type Notification struct {
	UserID    string
	Title     string
	Body      string
	ImagePath string
}

// Notifier delivers notices to users. Delivery is fire-and-forget: a failed
// delivery must not roll back committed state and must not prevent delivery
// to remaining recipients.
type Notifier interface {
	Deliver(ctx context.Context, notification Notification) error
}

// IdentityResolver turns opaque platform ids into display names. Rendering
// only; never used for logic.
type IdentityResolver interface {
	UserName(ctx context.Context, userID string) string
	ServerName(ctx context.Context, originID string) string
}

// ImagePicker picks a random asset from a status-named collection.
type ImagePicker interface {
	PickRandom(category string) (string, error)
}
