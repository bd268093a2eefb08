package queries

import (
	"context"
	"fmt"
	"net/http"
	"sort"
	"strings"

	"github.com/eskrenkovic/relay-coop-go/internal/modules/core"
	"github.com/eskrenkovic/relay-coop-go/internal/modules/relay/domain"

	"github.com/eskrenkovic/mediator-go"
	"go.uber.org/zap"
)

type ListScope string

const (
	// ScopePublic lists open-to-anyone sessions across servers.
	ScopePublic ListScope = "public"
	// ScopeServer lists sessions whose whole history stays on one server.
	ScopeServer ListScope = "server"
	// ScopeMine lists sessions the viewer has a turn in, any visibility.
	ScopeMine ListScope = "mine"
)

const (
	DefaultMaxDescriptionChars = 4096
	DefaultMaxOptions          = 25
)

type ListSessionsQuery struct {
	Scope     ListScope
	Status    domain.Status
	GroupPass string

	UserID   string
	OriginID string

	MaxDescriptionChars int
	MaxOptions          int
}

func (q ListSessionsQuery) Validate() error {
	switch q.Scope {
	case ScopePublic, ScopeServer, ScopeMine:
	default:
		return fmt.Errorf("invalid Scope - '%s'", q.Scope)
	}

	if q.Scope == ScopeMine && q.UserID == "" {
		return fmt.Errorf("invalid UserID - '%s'", q.UserID)
	}

	if q.Scope == ScopeServer && q.OriginID == "" {
		return fmt.Errorf("invalid OriginID - '%s'", q.OriginID)
	}

	return nil
}

// SessionOption is one selectable listing entry for the gateway's menu.
type SessionOption struct {
	SessionID string
	Code      string
	Label     string
}

type ListSessionsResponse struct {
	Description string
	Options     []SessionOption
}

func HandleListSessions(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	params := r.URL.Query()

	session := core.Session(ctx)
	query := ListSessionsQuery{
		Scope:     ListScope(params.Get("scope")),
		Status:    domain.Status(params.Get("status")),
		GroupPass: params.Get("pass"),
		UserID:    session.UserID,
		OriginID:  session.OriginID,
	}
	if query.Scope == "" {
		query.Scope = ScopePublic
	}

	response, err := mediator.Send[ListSessionsQuery, ListSessionsResponse](ctx, query)
	if err != nil {
		core.WriteCommandError(w, r, err)
		return
	}

	core.WriteOK(w, r, response)
}

type ListSessionsQueryHandler struct {
	sessions domain.SessionStore
	catalog  domain.Catalog
	sweeper  *domain.Sweeper
	resolver domain.IdentityResolver
	clock    core.Clock
	logger   *zap.Logger
}

func NewListSessionsQueryHandler(
	sessions domain.SessionStore,
	catalog domain.Catalog,
	sweeper *domain.Sweeper,
	resolver domain.IdentityResolver,
	clock core.Clock,
	logger *zap.Logger,
) *ListSessionsQueryHandler {
	return &ListSessionsQueryHandler{
		sessions: sessions,
		catalog:  catalog,
		sweeper:  sweeper,
		resolver: resolver,
		clock:    clock,
		logger:   logger,
	}
}

func (h *ListSessionsQueryHandler) Handle(
	ctx context.Context,
	request ListSessionsQuery,
) (ListSessionsResponse, error) {
	// Staleness is resolved lazily: every listing starts with a sweep.
	if _, err := h.sweeper.PurgeStale(ctx, h.clock.Now()); err != nil {
		h.logger.Error("stale session sweep failed", zap.Error(err))
	}

	maxChars := request.MaxDescriptionChars
	if maxChars <= 0 {
		maxChars = DefaultMaxDescriptionChars
	}
	maxOptions := request.MaxOptions
	if maxOptions <= 0 {
		maxOptions = DefaultMaxOptions
	}

	sessions, err := h.sessions.Query(ctx, buildStoreQuery(request))
	if err != nil {
		return ListSessionsResponse{}, queryError(err)
	}

	sessions = applyVisibility(sessions, request)
	sortSessions(sessions, request.Scope)

	if len(sessions) == 0 {
		return ListSessionsResponse{Description: "No sessions found."}, nil
	}

	return h.render(ctx, sessions, maxChars, maxOptions), nil
}

// buildStoreQuery maps the listing request onto the store predicate. The turn
// quantifier for server scope over-approximates visibility (it only proves
// single-origin history), so applyVisibility re-checks each row.
func buildStoreQuery(request ListSessionsQuery) domain.SessionQuery {
	query := domain.SessionQuery{}

	if request.Status != "" {
		status := request.Status
		query.Status = &status
	}

	pass := domain.TruncateGroupPass(request.GroupPass)
	if pass != "" {
		query.GroupPass = &pass
	} else if request.Scope != ScopeMine {
		// Passphrase-protected sessions stay invisible unless the passphrase
		// is presented.
		empty := ""
		query.GroupPass = &empty
	}

	switch request.Scope {
	case ScopeServer:
		origin := request.OriginID
		query.AllTurnsOrigin = &origin
	case ScopeMine:
		user := request.UserID
		query.AnyTurnUser = &user
	}

	return query
}

func applyVisibility(sessions []domain.Session, request ListSessionsQuery) []domain.Session {
	filtered := sessions[:0]
	for _, session := range sessions {
		switch request.Scope {
		case ScopeServer:
			if !session.ServerOnly || session.Host().OriginID != request.OriginID {
				continue
			}
		case ScopePublic:
			if session.ServerOnly && session.Host().OriginID != request.OriginID {
				continue
			}
		}
		filtered = append(filtered, session)
	}
	return filtered
}

// Open listings surface the longest-waiting sessions first; personal listings
// surface the most recently touched first.
func sortSessions(sessions []domain.Session, scope ListScope) {
	if scope == ScopeMine {
		sort.Slice(sessions, func(i, j int) bool {
			return sessions[i].LastTurn().Timestamp.After(sessions[j].LastTurn().Timestamp)
		})
		return
	}

	sort.Slice(sessions, func(i, j int) bool {
		return sessions[i].Host().Timestamp.Before(sessions[j].Host().Timestamp)
	})
}

func (h *ListSessionsQueryHandler) render(
	ctx context.Context,
	sessions []domain.Session,
	maxChars int,
	maxOptions int,
) ListSessionsResponse {
	var description strings.Builder
	var options []SessionOption

	for i, session := range sessions {
		entry := h.renderEntry(ctx, session)
		if i > 0 {
			entry = "\n\n" + entry
		}

		if description.Len()+len(entry) > maxChars {
			remaining := maxChars - description.Len()
			if remaining > 0 {
				description.WriteString(entry[:remaining])
			}
			break
		}

		description.WriteString(entry)

		if len(options) < maxOptions {
			options = append(options, SessionOption{
				SessionID: session.ID,
				Code:      session.Code,
				Label:     h.optionLabel(session),
			})
		}
	}

	return ListSessionsResponse{Description: description.String(), Options: options}
}

func (h *ListSessionsQueryHandler) renderEntry(ctx context.Context, session domain.Session) string {
	var b strings.Builder

	fmt.Fprintf(&b, "**%s** (%s)", session.Code, session.Status)

	if activity, err := h.catalog.Get(session.ActivityKind); err == nil {
		fmt.Fprintf(&b, "\nMap: %s (%s)", activity.Name, activity.Difficulty)
		fmt.Fprintf(&b, "\nTurns: %d (%d players)", len(session.Turns), activity.MaxPlayers)
	}

	host := session.Host()
	fmt.Fprintf(&b, "\nHost: %s", h.resolver.UserName(ctx, host.UserID))
	if session.ServerOnly {
		fmt.Fprintf(&b, " (only for server %s)", h.resolver.ServerName(ctx, host.OriginID))
	}

	// The gateway renders this as a relative timestamp.
	fmt.Fprintf(&b, "\nLast activity: <t:%d:R>", session.LastTurn().Timestamp.Unix())

	return b.String()
}

func (h *ListSessionsQueryHandler) optionLabel(session domain.Session) string {
	if activity, err := h.catalog.Get(session.ActivityKind); err == nil {
		return fmt.Sprintf("%s (%s)", session.Code, activity.Name)
	}
	return session.Code
}
