// Package downloads manages offline copies of movies and episodes on local
// disk. Download records survive restarts in an embedded Badger store.
package downloads

import (
	"net/http"

	"github.com/dgraph-io/badger/v4"
	"github.com/gaborage/go-bricks/app"
	"github.com/gaborage/go-bricks/logger"
	"github.com/gaborage/go-bricks/messaging"
	"github.com/gaborage/go-bricks/server"

	"github.com/ugawatch/ugawatch-api/internal/config"
	catalogrepo "github.com/ugawatch/ugawatch-api/internal/modules/catalog/repository"
	catalogservice "github.com/ugawatch/ugawatch-api/internal/modules/catalog/service"
	"github.com/ugawatch/ugawatch-api/internal/modules/downloads/domain"
	"github.com/ugawatch/ugawatch-api/internal/modules/downloads/downloader"
	"github.com/ugawatch/ugawatch-api/internal/modules/downloads/handlers"
	"github.com/ugawatch/ugawatch-api/internal/modules/downloads/service"
	"github.com/ugawatch/ugawatch-api/internal/modules/downloads/store"
)

type Module struct {
	cfg         config.DownloadsConfig
	db          *badger.DB
	downloader  *downloader.Downloader
	handler     *handlers.DownloadHandler
	logger      logger.Logger
	unsubscribe func()
}

func NewModule(cfg *config.Config) *Module {
	return &Module{cfg: cfg.Custom.Downloads}
}

func (m *Module) Name() string {
	return "downloads"
}

// Init opens the record store and wires the catalog lookup into the download service.
func (m *Module) Init(deps *app.ModuleDeps) error {
	m.logger = deps.Logger.WithFields(map[string]any{
		"module": "downloads",
	})

	db, err := store.OpenBadger(m.cfg.Store)
	if err != nil {
		return err
	}
	m.db = db

	st, err := store.New(store.NewBadgerPersister(db))
	if err != nil {
		db.Close()
		return err
	}

	m.downloader = downloader.New(st, m.cfg.Dir, &http.Client{}, m.logger)
	if n := m.downloader.FailInterrupted(); n > 0 {
		m.logger.Warn().Int("count", n).Msg("Marked interrupted downloads as failed")
	}

	m.unsubscribe = st.Subscribe(func(snapshot []*domain.Download) {
		active := 0
		for _, dl := range snapshot {
			if !dl.Finished() {
				active++
			}
		}
		m.logger.Debug().Int("active", active).Int("total", len(snapshot)).Msg("Downloads changed")
	})

	catalog := catalogservice.NewService(catalogrepo.NewSQLMovieRepository(deps.DB), nil, m.logger)
	svc := service.NewService(catalog, m.downloader, st, m.logger)
	m.handler = handlers.NewDownloadHandler(svc, m.logger)

	m.logger.Info().
		Str("dir", m.cfg.Dir).
		Int("records", len(st.List())).
		Msg("Downloads module initialized successfully")

	return nil
}

func (m *Module) RegisterRoutes(hr *server.HandlerRegistry, r server.RouteRegistrar) {
	m.handler.RegisterRoutes(hr, r)
}

func (m *Module) DeclareMessaging(_ *messaging.Declarations) {}

func (m *Module) RegisterJobs(_ app.JobRegistrar) error {
	return nil
}

// Shutdown stops running transfers before closing the store they write to.
func (m *Module) Shutdown() error {
	m.logger.Info().Msg("Shutting down downloads module")
	if m.unsubscribe != nil {
		m.unsubscribe()
	}
	if m.downloader != nil {
		m.downloader.Close()
	}
	if m.db != nil {
		return m.db.Close()
	}
	return nil
}
