// Package notifications registers device tokens and sends push
// notifications through Firebase Cloud Messaging.
package notifications

import (
	"github.com/gaborage/go-bricks/app"
	"github.com/gaborage/go-bricks/logger"
	"github.com/gaborage/go-bricks/messaging"
	"github.com/gaborage/go-bricks/server"

	"github.com/ugawatch/ugawatch-api/internal/config"
	"github.com/ugawatch/ugawatch-api/internal/modules/notifications/fcm"
	"github.com/ugawatch/ugawatch-api/internal/modules/notifications/handlers"
	"github.com/ugawatch/ugawatch-api/internal/modules/notifications/repository"
	"github.com/ugawatch/ugawatch-api/internal/modules/notifications/service"
	"github.com/ugawatch/ugawatch-api/internal/modules/shared/secrets"
)

type Module struct {
	cfg     config.FCMConfig
	creds   secrets.CredentialStore
	handler *handlers.NotificationHandler
	logger  logger.Logger
}

func NewModule(cfg *config.Config, creds secrets.CredentialStore) *Module {
	return &Module{
		cfg:   cfg.Custom.FCM,
		creds: creds,
	}
}

func (m *Module) Name() string {
	return "notifications"
}

func (m *Module) Init(deps *app.ModuleDeps) error {
	m.logger = deps.Logger.WithFields(map[string]any{
		"module": "notifications",
	})

	repo := repository.NewTokenRepository(deps.DB)
	sender := fcm.NewClient(m.cfg, m.creds, m.logger)
	svc := service.NewService(repo, sender, m.logger)
	m.handler = handlers.NewNotificationHandler(svc, m.logger)

	m.logger.Info().
		Str("endpoint", m.cfg.Endpoint).
		Msg("Notifications module initialized successfully")

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
