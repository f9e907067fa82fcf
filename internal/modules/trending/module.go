// Package trending records view events and ranks the catalog by recent
// interest. View events live in the named "analytics" database; the catalog
// (with its lifetime views counter) lives in the default database.
package trending

import (
	"context"
	"time"

	"github.com/gaborage/go-bricks/app"
	"github.com/gaborage/go-bricks/database"
	"github.com/gaborage/go-bricks/logger"
	"github.com/gaborage/go-bricks/messaging"
	"github.com/gaborage/go-bricks/server"

	"github.com/ugawatch/ugawatch-api/internal/config"
	catalogrepo "github.com/ugawatch/ugawatch-api/internal/modules/catalog/repository"
	catalogservice "github.com/ugawatch/ugawatch-api/internal/modules/catalog/service"
	"github.com/ugawatch/ugawatch-api/internal/modules/trending/handlers"
	"github.com/ugawatch/ugawatch-api/internal/modules/trending/job"
	"github.com/ugawatch/ugawatch-api/internal/modules/trending/repository"
	"github.com/ugawatch/ugawatch-api/internal/modules/trending/service"
)

const (
	// analyticsDBName matches the key under "databases:" in config.yaml.
	analyticsDBName = "analytics"
)

type Module struct {
	cfg     config.TrendingConfig
	service *service.TrendingService
	handler *handlers.TrendingHandler
	repo    repository.Repository
	logger  logger.Logger

	getAnalyticsDB func(context.Context) (database.Interface, error)
}

func NewModule(cfg *config.Config) *Module {
	return &Module{cfg: cfg.Custom.Trending}
}

func (m *Module) Name() string {
	return "trending"
}

// Init wires the analytics DB → ViewRepository, and the default DB → catalog, into TrendingService.
func (m *Module) Init(deps *app.ModuleDeps) error {
	m.logger = deps.Logger.WithFields(map[string]any{
		"module": "trending",
	})

	m.logger.Info().Msg("Initializing trending module")

	m.getAnalyticsDB = func(ctx context.Context) (database.Interface, error) {
		return deps.DBByName(ctx, analyticsDBName)
	}

	m.repo = repository.NewViewRepository(m.getAnalyticsDB)

	// Title lookups are not used here, only catalog reads and the views counter.
	catalog := catalogservice.NewService(catalogrepo.NewSQLMovieRepository(deps.DB), nil, m.logger)

	m.service = service.NewService(m.repo, catalog, m.cfg, m.logger)
	m.handler = handlers.NewTrendingHandler(m.service, m.logger)

	m.logger.Info().
		Str("database", analyticsDBName).
		Str("timezone", m.cfg.Location().String()).
		Int("limit", m.cfg.Limit).
		Msg("Trending module initialized successfully")

	return nil
}

func (m *Module) RegisterRoutes(hr *server.HandlerRegistry, r server.RouteRegistrar) {
	m.handler.RegisterRoutes(hr, r)
}

func (m *Module) DeclareMessaging(_ *messaging.Declarations) {}

// RegisterJobs schedules the view-log rollup.
func (m *Module) RegisterJobs(scheduler app.JobRegistrar) error {
	interval := m.cfg.Interval
	if interval <= 0 {
		interval = time.Hour
	}
	return scheduler.FixedRate("view-rollup", &job.RollupJob{Roller: m.service}, interval)
}

func (m *Module) Shutdown() error {
	m.logger.Info().Msg("Shutting down trending module")
	return nil
}

// Service exposes the trending service to modules that serve alternate views of it.
func (m *Module) Service() *service.TrendingService {
	return m.service
}
