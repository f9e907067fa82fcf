// Package main is the entry point for the UgaWatch API.
package main

import (
	"context"
	"time"

	"github.com/gaborage/go-bricks/app"
	"github.com/gaborage/go-bricks/logger"

	"github.com/ugawatch/ugawatch-api/internal/config"
	"github.com/ugawatch/ugawatch-api/internal/modules/catalog"
	"github.com/ugawatch/ugawatch-api/internal/modules/downloads"
	"github.com/ugawatch/ugawatch-api/internal/modules/legacy"
	"github.com/ugawatch/ugawatch-api/internal/modules/notifications"
	"github.com/ugawatch/ugawatch-api/internal/modules/progress"
	"github.com/ugawatch/ugawatch-api/internal/modules/shared/secrets"
	"github.com/ugawatch/ugawatch-api/internal/modules/trending"
)

func main() {
	// Create application instance with environment-based configuration
	application, log, err := app.New()
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to initialize application")
	}

	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to load custom configuration")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	creds, err := secrets.NewCredentialStore(ctx, log, cfg.Custom.Secrets)
	cancel()
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to initialize credential store")
	}

	if err := registerModules(application, getModulesToLoad(cfg, creds), log); err != nil {
		log.Fatal().Err(err).Msg("Failed to register modules")
	}

	if err := application.Run(); err != nil {
		log.Fatal().Err(err).Msg("Failed to start application")
	}
}

type ModuleConfig struct {
	Name    string
	Enabled bool
	Module  app.Module
}

// getModulesToLoad lists modules in registration order. Legacy reads through
// progress and trending, so it comes last.
func getModulesToLoad(cfg *config.Config, creds secrets.CredentialStore) []ModuleConfig {
	progressModule := progress.NewModule(cfg)
	trendingModule := trending.NewModule(cfg)

	return []ModuleConfig{
		{Name: "catalog", Enabled: true, Module: catalog.NewModule(cfg, creds)},
		{Name: "trending", Enabled: true, Module: trendingModule},
		{Name: "progress", Enabled: true, Module: progressModule},
		{Name: "downloads", Enabled: true, Module: downloads.NewModule(cfg)},
		{Name: "notifications", Enabled: cfg.Custom.Notifications.Enabled, Module: notifications.NewModule(cfg, creds)},
		{Name: "legacy", Enabled: true, Module: legacy.NewModule(progressModule, trendingModule)},
	}
}

func registerModules(appInstance *app.App, modules []ModuleConfig, log logger.Logger) error {
	for _, mod := range modules {
		if !mod.Enabled {
			log.Info().Str("module", mod.Name).Msg("Module is disabled, skipping registration")
			continue
		}

		if err := appInstance.RegisterModule(mod.Module); err != nil {
			return err
		}
		log.Info().Str("module", mod.Name).Msg("Module registered successfully")
	}

	return nil
}
