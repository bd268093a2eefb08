package queries

import (
	"context"
	"fmt"
	"net/http"
	"strings"

	"github.com/eskrenkovic/relay-coop-go/internal/modules/core"
	"github.com/eskrenkovic/relay-coop-go/internal/modules/relay/domain"

	"github.com/eskrenkovic/mediator-go"
)

// maxShowCodes bounds how many candidate codes one message can look up.
const maxShowCodes = 25

// ShowSessionsQuery backs the "show game" message action: every token in the
// message is treated as a candidate code and matched against sessions of any
// status.
type ShowSessionsQuery struct {
	Content string
}

func (q ShowSessionsQuery) Validate() error {
	if q.Content == "" {
		return fmt.Errorf("invalid Content - '%s'", q.Content)
	}

	return nil
}

type ShowSessionsResponse struct {
	Sessions []domain.Session
}

func HandleShowSessions(w http.ResponseWriter, r *http.Request) {
	query, err := core.RequestBody[ShowSessionsQuery](r)
	if err != nil {
		core.WriteBadRequest(w, r, err)
		return
	}

	response, err := mediator.Send[ShowSessionsQuery, ShowSessionsResponse](r.Context(), query)
	if err != nil {
		core.WriteCommandError(w, r, err)
		return
	}

	core.WriteOK(w, r, response)
}

type ShowSessionsQueryHandler struct {
	sessions domain.SessionStore
}

func NewShowSessionsQueryHandler(sessions domain.SessionStore) *ShowSessionsQueryHandler {
	return &ShowSessionsQueryHandler{sessions: sessions}
}

func (h *ShowSessionsQueryHandler) Handle(
	ctx context.Context,
	request ShowSessionsQuery,
) (ShowSessionsResponse, error) {
	codes := candidateCodes(request.Content)
	if len(codes) == 0 {
		return ShowSessionsResponse{}, nil
	}

	sessions, err := h.sessions.Query(ctx, domain.SessionQuery{Codes: codes})
	if err != nil {
		return ShowSessionsResponse{}, queryError(err)
	}

	return ShowSessionsResponse{Sessions: sessions}, nil
}

func candidateCodes(content string) []string {
	seen := map[string]struct{}{}

	var codes []string
	for _, token := range strings.Fields(content) {
		code := domain.NormalizeCode(token)
		if _, duplicate := seen[code]; duplicate {
			continue
		}
		seen[code] = struct{}{}

		codes = append(codes, code)
		if len(codes) == maxShowCodes {
			break
		}
	}

	return codes
}
