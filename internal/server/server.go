package server

import (
	"context"
	"database/sql"
	"fmt"
	"net"
	"net/http"

	"github.com/eskrenkovic/relay-coop-go/internal/config"
	"github.com/eskrenkovic/relay-coop-go/internal/modules/core"
	"github.com/eskrenkovic/relay-coop-go/internal/modules/relay/assets"
	relaycommands "github.com/eskrenkovic/relay-coop-go/internal/modules/relay/commands"
	"github.com/eskrenkovic/relay-coop-go/internal/modules/relay/domain"
	"github.com/eskrenkovic/relay-coop-go/internal/modules/relay/gateway"
	relayqueries "github.com/eskrenkovic/relay-coop-go/internal/modules/relay/queries"
	"github.com/eskrenkovic/relay-coop-go/internal/modules/relay/store"

	"github.com/eskrenkovic/mediator-go"
	"github.com/eskrenkovic/migrate-go"
	"github.com/go-chi/chi"
	_ "github.com/lib/pq"
)

type Server interface {
	Start() error
	Stop() error
}

var _ Server = &HTTPServer{}

// HTTPServer acts as the composition root for the application.
type HTTPServer struct {
	server *http.Server
}

func NewHTTPServer(config config.Config) (Server, error) {
	baseCtx := context.Background()

	db, err := sql.Open("postgres", config.DatabaseURL)
	if err != nil {
		return nil, err
	}

	if err := migrate.Run(baseCtx, db, config.MigrationsPath); err != nil {
		return nil, err
	}

	core.SetLogger(config.Logger)

	requestLoggingBehavior := core.RequestLoggingBehavior{Logger: config.Logger}
	handlerErrorLoggingBehavior := core.HandlerErrorLoggingBehavior{Logger: config.Logger}
	requestValidationBehavior := core.RequestValidationBehavior{}

	mediator.RegisterPipelineBehavior(&requestLoggingBehavior)
	mediator.RegisterPipelineBehavior(&handlerErrorLoggingBehavior)
	mediator.RegisterPipelineBehavior(&requestValidationBehavior)

	sessions := store.NewPostgresSessionStore(db)
	preferences := store.NewPostgresPreferenceStore(db)
	catalog := domain.DefaultCatalog()
	clock := core.NewSystemClock()
	notifier := gateway.NewLogNotifier(config.Logger)
	resolver := gateway.PassthroughResolver{}
	images := assets.NewFilesystemPicker(config.AssetsPath)
	sweeper := domain.NewSweeper(sessions, notifier, config.Logger)

	// handler registration

	// relay commands

	createSessionHandler := relaycommands.NewCreateSessionCommandHandler(
		sessions, preferences, catalog, notifier, resolver, clock, config.Logger,
	)
	err = mediator.RegisterRequestHandler[relaycommands.CreateSessionCommand, relaycommands.CreateSessionResponse](
		createSessionHandler,
	)
	if err != nil {
		return nil, err
	}

	joinSessionHandler := relaycommands.NewJoinSessionCommandHandler(sessions, catalog)
	err = mediator.RegisterRequestHandler[relaycommands.JoinSessionCommand, relaycommands.JoinSessionResponse](
		joinSessionHandler,
	)
	if err != nil {
		return nil, err
	}

	advanceSessionHandler := relaycommands.NewAdvanceSessionCommandHandler(
		sessions, images, notifier, resolver, clock, config.Logger,
	)
	err = mediator.RegisterRequestHandler[relaycommands.AdvanceSessionCommand, relaycommands.AdvanceSessionResponse](
		advanceSessionHandler,
	)
	if err != nil {
		return nil, err
	}

	abandonSessionHandler := relaycommands.NewAbandonSessionCommandHandler(
		sessions, notifier, resolver, clock, config.Logger,
	)
	err = mediator.RegisterRequestHandler[relaycommands.AbandonSessionCommand, relaycommands.AbandonSessionResponse](
		abandonSessionHandler,
	)
	if err != nil {
		return nil, err
	}

	reinstateSessionHandler := relaycommands.NewReinstateSessionCommandHandler(sessions, clock)
	err = mediator.RegisterRequestHandler[relaycommands.ReinstateSessionCommand, relaycommands.ReinstateSessionResponse](
		reinstateSessionHandler,
	)
	if err != nil {
		return nil, err
	}

	purgeStaleHandler := relaycommands.NewPurgeStaleSessionsCommandHandler(sweeper, clock)
	err = mediator.RegisterRequestHandler[relaycommands.PurgeStaleSessionsCommand, relaycommands.PurgeStaleSessionsResponse](
		purgeStaleHandler,
	)
	if err != nil {
		return nil, err
	}

	upsertPreferenceHandler := relaycommands.NewUpsertPreferenceCommandHandler(preferences)
	err = mediator.RegisterRequestHandler[relaycommands.UpsertPreferenceCommand, core.Unit](
		upsertPreferenceHandler,
	)
	if err != nil {
		return nil, err
	}

	// relay queries

	listSessionsHandler := relayqueries.NewListSessionsQueryHandler(
		sessions, catalog, sweeper, resolver, clock, config.Logger,
	)
	err = mediator.RegisterRequestHandler[relayqueries.ListSessionsQuery, relayqueries.ListSessionsResponse](
		listSessionsHandler,
	)
	if err != nil {
		return nil, err
	}

	findSubscribersHandler := relayqueries.NewFindSubscribersQueryHandler(sessions, preferences)
	err = mediator.RegisterRequestHandler[relayqueries.FindSubscribersQuery, relayqueries.FindSubscribersResponse](
		findSubscribersHandler,
	)
	if err != nil {
		return nil, err
	}

	showSessionsHandler := relayqueries.NewShowSessionsQueryHandler(sessions)
	err = mediator.RegisterRequestHandler[relayqueries.ShowSessionsQuery, relayqueries.ShowSessionsResponse](
		showSessionsHandler,
	)
	if err != nil {
		return nil, err
	}

	getCatalogHandler := relayqueries.NewGetCatalogQueryHandler(catalog)
	err = mediator.RegisterRequestHandler[relayqueries.GetCatalogQuery, []domain.Activity](
		getCatalogHandler,
	)
	if err != nil {
		return nil, err
	}

	r := router{
		mux: chi.NewRouter(),
		middleware: []httpMiddleware{
			core.CorrelationIDHTTPMiddleware,
		},
	}

	// http

	r.register("GET", "/activities", relayqueries.HandleGetCatalog)

	r.register("GET", "/sessions", relayqueries.HandleListSessions, gateway.Identity)
	r.register("POST", "/sessions", relaycommands.HandleCreateSession, gateway.Identity)
	r.register("POST", "/sessions/actions/show", relayqueries.HandleShowSessions, gateway.Identity)

	r.register("GET", "/sessions/{id}/subscribers", relayqueries.HandleFindSubscribers, gateway.Identity)
	r.register("PUT", "/sessions/{id}/actions/join", relaycommands.HandleJoinSession, gateway.Identity)
	r.register("PUT", "/sessions/{id}/actions/advance", relaycommands.HandleAdvanceSession, gateway.Identity)
	r.register("PUT", "/sessions/{id}/actions/abandon", relaycommands.HandleAbandonSession, gateway.Identity)
	r.register("PUT", "/sessions/{id}/actions/reinstate", relaycommands.HandleReinstateSession, gateway.Identity)

	r.register("PUT", "/notification-preferences", relaycommands.HandleUpsertPreference, gateway.Identity)

	r.register("POST", "/maintenance/actions/purge-stale", relaycommands.HandlePurgeStaleSessions)

	server := http.Server{
		Addr:    net.JoinHostPort("", fmt.Sprintf("%d", config.Port)),
		Handler: r.mux,
	}

	return &HTTPServer{server: &server}, nil
}

func (s *HTTPServer) Start() error {
	return s.server.ListenAndServe()
}

func (s *HTTPServer) Stop() error {
	return s.server.Close()
}

type httpMiddleware func(http.HandlerFunc) http.HandlerFunc

type router struct {
	mux        *chi.Mux
	middleware []httpMiddleware
}

func (r *router) register(method, pattern string, handler http.HandlerFunc, middleware ...httpMiddleware) {
	h := handler

	allMiddleware := append(append([]httpMiddleware{}, r.middleware...), middleware...)

	for i := len(allMiddleware) - 1; i >= 0; i-- {
		h = allMiddleware[i](h)
	}

	r.mux.MethodFunc(method, pattern, h)
}
