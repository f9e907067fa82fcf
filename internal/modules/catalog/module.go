// Package catalog manages movie and series records for the admin panel,
// including TMDB search and import.
package catalog

import (
	"context"

	"github.com/gaborage/go-bricks/app"
	"github.com/gaborage/go-bricks/database"
	"github.com/gaborage/go-bricks/logger"
	"github.com/gaborage/go-bricks/messaging"
	"github.com/gaborage/go-bricks/server"

	"github.com/ugawatch/ugawatch-api/internal/config"
	"github.com/ugawatch/ugawatch-api/internal/modules/catalog/handlers"
	"github.com/ugawatch/ugawatch-api/internal/modules/catalog/repository"
	"github.com/ugawatch/ugawatch-api/internal/modules/catalog/service"
	"github.com/ugawatch/ugawatch-api/internal/modules/shared/secrets"
	"github.com/ugawatch/ugawatch-api/internal/modules/shared/tmdb"
)

type Module struct {
	cfg     config.TMDBConfig
	creds   secrets.CredentialStore
	service *service.MovieService
	handler *handlers.MovieHandler
	repo    repository.Repository
	logger  logger.Logger
	getDB   func(context.Context) (database.Interface, error)
}

func NewModule(cfg *config.Config, creds secrets.CredentialStore) *Module {
	return &Module{
		cfg:   cfg.Custom.TMDB,
		creds: creds,
	}
}

func (m *Module) Name() string {
	return "catalog"
}

// Init wires getDB → MovieRepository → MovieService (with the TMDB client) → MovieHandler.
func (m *Module) Init(deps *app.ModuleDeps) error {
	m.logger = deps.Logger.WithFields(map[string]any{
		"module": "catalog",
	})

	m.logger.Info().Msg("Initializing catalog module")

	m.getDB = deps.DB

	m.repo = repository.NewSQLMovieRepository(m.getDB)
	titles := tmdb.NewClient(m.cfg, m.creds, m.logger)
	m.service = service.NewService(m.repo, titles, m.logger)
	m.handler = handlers.NewMovieHandler(m.service, m.logger)

	m.logger.Info().Str("tmdb", m.cfg.API).Msg("Catalog module initialized successfully")

	return nil
}

func (m *Module) RegisterRoutes(hr *server.HandlerRegistry, r server.RouteRegistrar) {
	m.handler.RegisterRoutes(hr, r)
}

func (m *Module) DeclareMessaging(_ *messaging.Declarations) {}

func (m *Module) RegisterJobs(_ app.JobRegistrar) error {
	return nil
}

func (m *Module) Shutdown() error {
	return nil
}
