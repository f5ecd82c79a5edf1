package main

import (
	"fmt"
	"log/slog"

	"github.com/prometheus/client_golang/prometheus"
	"golang.org/x/time/rate"

	"github.com/adonai404/imperial-fiscal/internal/access"
	"github.com/adonai404/imperial-fiscal/internal/domain/company"
	companyhandler "github.com/adonai404/imperial-fiscal/internal/domain/company/handler"
	"github.com/adonai404/imperial-fiscal/internal/domain/fiscal"
	fiscalhandler "github.com/adonai404/imperial-fiscal/internal/domain/fiscal/handler"
	importhandler "github.com/adonai404/imperial-fiscal/internal/domain/importer/handler"
	importservice "github.com/adonai404/imperial-fiscal/internal/domain/importer/service"
	"github.com/adonai404/imperial-fiscal/internal/domain/registry"
	"github.com/adonai404/imperial-fiscal/internal/server"
	"github.com/adonai404/imperial-fiscal/pkg/config"
	"github.com/adonai404/imperial-fiscal/pkg/cron"
	"github.com/adonai404/imperial-fiscal/pkg/db"
	"github.com/adonai404/imperial-fiscal/pkg/metrics"
)

// Dependencies holds all application dependencies
type Dependencies struct {
	Config *config.Config
	DB     *db.DB
	Logger *slog.Logger

	// Observability
	Registry *prometheus.Registry
	Metrics  *metrics.Metrics

	// Repositories
	CompanyRepo *company.PostgresRepository
	FiscalRepo  *fiscal.PostgresRepository

	// Services
	TokenManager   *access.TokenManager
	CompanyService *company.Service
	FiscalService  *fiscal.Service
	ImportService  *importservice.Service
	Exporter       *fiscal.Exporter
	RegistryClient *registry.Client
	Scheduler      *cron.Scheduler

	// Handlers
	CompanyHandler *companyhandler.CompanyHandler
	FiscalHandler  *fiscalhandler.FiscalHandler
	ImportHandler  *importhandler.ImportHandler

	RateLimiter *rate.Limiter
}

// InitDependencies initializes all application dependencies
func InitDependencies(cfg *config.Config, logger *slog.Logger) (*Dependencies, error) {
	deps := &Dependencies{
		Config: cfg,
		Logger: logger,
	}

	if err := deps.initDatabase(); err != nil {
		return nil, fmt.Errorf("failed to init database: %w", err)
	}
	deps.initObservability()
	deps.initRepositories()
	deps.initServices()
	deps.initHandlers()
	return deps, nil
}

func (d *Dependencies) initDatabase() error {
	database, err := db.New(db.Config{
		DSN:             d.Config.Database.DSN(),
		MaxConns:        d.Config.Database.MaxConns,
		MinConns:        d.Config.Database.MinConns,
		MaxConnLifetime: d.Config.Database.MaxConnLifetime,
		MaxConnIdleTime: d.Config.Database.MaxConnIdleTime,
	}, d.Logger)
	if err != nil {
		return err
	}
	if err := database.RunMigrations(); err != nil {
		return fmt.Errorf("failed to run migrations: %w", err)
	}
	d.DB = database
	return nil
}

func (d *Dependencies) initObservability() {
	d.Registry = prometheus.NewRegistry()
	d.Metrics = metrics.New(d.Registry)
	d.RateLimiter = rate.NewLimiter(
		rate.Limit(d.Config.Server.RateLimitPerSecond),
		d.Config.Server.RateLimitBurst,
	)
}

func (d *Dependencies) initRepositories() {
	d.CompanyRepo = company.NewPostgresRepository(d.DB.Pool)
	d.FiscalRepo = fiscal.NewPostgresRepository(d.DB.Pool)
}

func (d *Dependencies) initServices() {
	d.TokenManager = access.NewTokenManager(
		[]byte(d.Config.Access.TokenSecret),
		d.Config.Access.TokenTTL,
	)
	d.FiscalService = fiscal.NewService(d.FiscalRepo, d.CompanyRepo, d.Logger)
	d.CompanyService = company.NewService(d.CompanyRepo, d.FiscalService, d.TokenManager, d.Logger)
	d.ImportService = importservice.NewService(d.CompanyRepo, d.FiscalRepo, d.Metrics, d.Logger)
	d.Exporter = fiscal.NewExporter(d.FiscalService)
	d.RegistryClient = registry.NewClient()
	d.Scheduler = cron.NewScheduler(d.DB, d.Metrics, d.Logger)
}

func (d *Dependencies) initHandlers() {
	d.CompanyHandler = companyhandler.NewCompanyHandler(d.CompanyService, d.RegistryClient)
	d.FiscalHandler = fiscalhandler.NewFiscalHandler(d.FiscalService, d.Exporter)
	d.ImportHandler = importhandler.NewImportHandler(d.ImportService)
}

// Handlers returns the router handler set
func (d *Dependencies) Handlers() server.Handlers {
	return server.Handlers{
		Company: d.CompanyHandler,
		Fiscal:  d.FiscalHandler,
		Import:  d.ImportHandler,
	}
}

// Close releases held resources
func (d *Dependencies) Close() {
	if d.Scheduler != nil {
		<-d.Scheduler.Stop().Done()
	}
	if d.DB != nil {
		d.DB.Close()
	}
}
