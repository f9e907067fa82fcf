// Package progress tracks playback position per user and title and serves
// continue-watching lists.
package progress

import (
	"time"

	"github.com/gaborage/go-bricks/app"
	"github.com/gaborage/go-bricks/logger"
	"github.com/gaborage/go-bricks/messaging"
	"github.com/gaborage/go-bricks/server"

	"github.com/ugawatch/ugawatch-api/internal/config"
	"github.com/ugawatch/ugawatch-api/internal/modules/progress/handlers"
	"github.com/ugawatch/ugawatch-api/internal/modules/progress/job"
	"github.com/ugawatch/ugawatch-api/internal/modules/progress/repository"
	"github.com/ugawatch/ugawatch-api/internal/modules/progress/service"
)

type Module struct {
	cfg     config.ProgressConfig
	service *service.ProgressService
	handler *handlers.ProgressHandler
	logger  logger.Logger
}

func NewModule(cfg *config.Config) *Module {
	return &Module{cfg: cfg.Custom.Progress}
}

func (m *Module) Name() string {
	return "progress"
}

func (m *Module) Init(deps *app.ModuleDeps) error {
	m.logger = deps.Logger.WithFields(map[string]any{
		"module": "progress",
	})

	repo := repository.NewProgressRepository(deps.DB)
	m.service = service.NewService(repo, m.cfg, m.logger)
	m.handler = handlers.NewProgressHandler(m.service, m.logger)

	m.logger.Info().
		Dur("cache_ttl", m.cfg.Cache.TTL).
		Dur("retention", m.cfg.Retention).
		Msg("Progress module initialized successfully")

	return nil
}

func (m *Module) RegisterRoutes(hr *server.HandlerRegistry, r server.RouteRegistrar) {
	m.handler.RegisterRoutes(hr, r)
}

func (m *Module) DeclareMessaging(_ *messaging.Declarations) {}

func (m *Module) RegisterJobs(scheduler app.JobRegistrar) error {
	interval := m.cfg.Interval
	if interval <= 0 {
		interval = 6 * time.Hour
	}
	return scheduler.FixedRate("progress-retention", &job.RetentionJob{Purger: m.service}, interval)
}

func (m *Module) Shutdown() error {
	if m.service != nil {
		metrics := m.service.CacheMetrics()
		m.logger.Info().
			Int("cache_hits", int(metrics.Hits)).
			Int("cache_misses", int(metrics.Misses)).
			Msg("Shutting down progress module")
		m.service.Close()
	}
	return nil
}

// Service exposes the progress service to modules that serve alternate views of it.
func (m *Module) Service() *service.ProgressService {
	return m.service
}
