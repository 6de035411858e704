package main

import (
	"database/sql"
	"os"
	"os/signal"
	"syscall"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/recover"
	_ "github.com/jackc/pgx/v5/stdlib"
	_ "github.com/lib/pq"
	"go.uber.org/zap"

	"github.com/wichananm65/gift-finder/internal/config"
	"github.com/wichananm65/gift-finder/internal/gift"
	"github.com/wichananm65/gift-finder/internal/logging"
	"github.com/wichananm65/gift-finder/internal/session"
	"github.com/wichananm65/gift-finder/internal/taxonomy"
	"github.com/wichananm65/gift-finder/internal/trending"
)

func main() {
	cfg := config.Load()

	logger, err := logging.New(cfg.LogLevel)
	if err != nil {
		panic(err)
	}
	defer func() { _ = logger.Sync() }()

	if err := cfg.Validate(); err != nil {
		logger.Fatal("invalid configuration", zap.Error(err))
	}

	fetcher, closeFetcher := mustOpenFetcher(cfg, logger)
	defer closeFetcher()

	index := taxonomy.LoadOrEmpty(cfg.TaxonomyPath, logger)

	registry, err := session.NewRegistry(cfg.SessionCacheSize, logger)
	if err != nil {
		logger.Fatal("create session registry", zap.Error(err))
	}
	defer registry.Purge()

	sessions := session.NewService(registry, fetcher, index, session.Settings{
		Variant:          cfg.Variant,
		PageSize:         cfg.PageSize,
		DefaultViewLimit: cfg.DefaultViewLimit,
		SuggestionLimit:  cfg.SuggestionLimit,
		Debounce:         cfg.SearchDebounce,
	}, logger)

	app := fiber.New(fiber.Config{DisableStartupMessage: true})
	app.Use(recover.New())
	setupCORS(app)
	app.Use(logging.RequestLogger(logger))

	app.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{"status": "ok", "sessions": registry.Len(), "taxonomy": !index.IsEmpty()})
	})
	taxonomy.NewHandler(index).RegisterPublicRoutes(app)
	trending.NewHandler(trending.NewLoader(fetcher, cfg.DefaultViewLimit, logger)).RegisterPublicRoutes(app)
	session.NewHandler(sessions).RegisterPublicRoutes(app)

	go func() {
		quit := make(chan os.Signal, 1)
		signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
		<-quit
		logger.Info("shutting down")
		_ = app.Shutdown()
	}()

	logger.Info("starting server", zap.String("addr", cfg.Addr), zap.String("backend", cfg.Backend), zap.String("variant", cfg.Variant))
	if err := app.Listen(cfg.Addr); err != nil {
		logger.Error("server stopped", zap.Error(err))
	}
}

func setupCORS(app *fiber.App) {
	app.Use(cors.New(cors.Config{
		AllowOrigins: "*",
		AllowMethods: "GET,POST,HEAD,PUT,DELETE",
		AllowHeaders: "Origin, Content-Type, Accept",
	}))
}

// mustOpenFetcher connects the selected backend. DATABASE_DRIVER picks the
// registered SQL driver: "pgx" (default) or "postgres" (lib/pq).
func mustOpenFetcher(cfg config.Config, logger *zap.Logger) (gift.Fetcher, func()) {
	if cfg.Backend == config.BackendPostgREST {
		return gift.NewRESTRepository(cfg.SupabaseURL, cfg.SupabaseKey, cfg.RemoteTimeout), func() {}
	}

	db, err := sql.Open(cfg.DatabaseDriver, cfg.DatabaseURL)
	if err != nil {
		logger.Fatal("open database", zap.String("driver", cfg.DatabaseDriver), zap.Error(err))
	}
	if err := db.Ping(); err != nil {
		logger.Fatal("ping database", zap.Error(err))
	}
	return gift.NewPostgresRepository(db), func() { _ = db.Close() }
}
