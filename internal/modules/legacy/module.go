// Package legacy serves continue-watching and trending data in the shapes
// older mobile builds read, without the APIResponse envelope. Those builds keep
// working while clients migrate to the enveloped routes.
package legacy

import (
	"fmt"

	"github.com/gaborage/go-bricks/app"
	"github.com/gaborage/go-bricks/logger"
	"github.com/gaborage/go-bricks/messaging"
	"github.com/gaborage/go-bricks/server"

	"github.com/ugawatch/ugawatch-api/internal/modules/legacy/handlers"
	"github.com/ugawatch/ugawatch-api/internal/modules/progress"
	"github.com/ugawatch/ugawatch-api/internal/modules/trending"
)

// Module reads through the progress and trending modules so both route sets
// share one progress cache. Register it after them.
type Module struct {
	progress *progress.Module
	trending *trending.Module
	handler  *handlers.LegacyHandler
	logger   logger.Logger
}

func NewModule(p *progress.Module, t *trending.Module) *Module {
	return &Module{progress: p, trending: t}
}

func (m *Module) Name() string {
	return "legacy"
}

func (m *Module) Init(deps *app.ModuleDeps) error {
	m.logger = deps.Logger.WithFields(map[string]any{
		"module": "legacy",
	})

	progressSvc := m.progress.Service()
	trendingSvc := m.trending.Service()
	if progressSvc == nil || trendingSvc == nil {
		return fmt.Errorf("legacy module must be registered after progress and trending")
	}

	m.handler = handlers.NewLegacyHandler(progressSvc, trendingSvc, m.logger)

	m.logger.Info().Msg("Legacy module initialized successfully")

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
