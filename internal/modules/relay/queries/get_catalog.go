package queries

import (
	"context"
	"net/http"

	"github.com/eskrenkovic/relay-coop-go/internal/modules/core"
	"github.com/eskrenkovic/relay-coop-go/internal/modules/relay/domain"

	"github.com/eskrenkovic/mediator-go"
)

type GetCatalogQuery struct{}

func (q GetCatalogQuery) Validate() error {
	return nil
}

func HandleGetCatalog(w http.ResponseWriter, r *http.Request) {
	response, err := mediator.Send[GetCatalogQuery, []domain.Activity](r.Context(), GetCatalogQuery{})
	if err != nil {
		core.WriteCommandError(w, r, err)
		return
	}

	core.WriteOK(w, r, response)
}

type GetCatalogQueryHandler struct {
	catalog domain.Catalog
}

func NewGetCatalogQueryHandler(catalog domain.Catalog) *GetCatalogQueryHandler {
	return &GetCatalogQueryHandler{catalog: catalog}
}

func (h *GetCatalogQueryHandler) Handle(
	_ context.Context,
	_ GetCatalogQuery,
) ([]domain.Activity, error) {
	return h.catalog.All(), nil
}
