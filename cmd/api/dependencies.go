package api

import (
	"fmt"
	"log/slog"
	"sort"
	"time"

	"github.com/FACorreiaa/finance-ingest/internal/domain/categorize"
	dashhandler "github.com/FACorreiaa/finance-ingest/internal/domain/dashboard/handler"
	"github.com/FACorreiaa/finance-ingest/internal/domain/ingest"
	"github.com/FACorreiaa/finance-ingest/internal/domain/source"
	"github.com/FACorreiaa/finance-ingest/internal/domain/transaction"

	"github.com/FACorreiaa/finance-ingest/pkg/config"
	"github.com/FACorreiaa/finance-ingest/pkg/db"
)

// Dependencies holds all application dependencies
type Dependencies struct {
	Config *config.Config
	DB     *db.DB
	Logger *slog.Logger

	// Repositories
	Store transaction.Store

	// Services
	IngestService *ingest.Service
	Categorizer   *categorize.Service
	Runner        *ingest.Runner

	// Handlers
	DashboardHandler *dashhandler.DashboardHandler
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

	deps.Store = transaction.NewPostgresStore(deps.DB.Pool)
	logger.Info("store initialized")

	if err := deps.initPipeline(); err != nil {
		return nil, fmt.Errorf("failed to init pipeline: %w", err)
	}

	deps.DashboardHandler = dashhandler.NewDashboardHandler(deps.Store, logger)

	logger.Info("all dependencies initialized successfully")

	return deps, nil
}

// initDatabase initializes the database connection and runs migrations
func (d *Dependencies) initDatabase() error {
	database, err := db.New(db.Config{
		DSN:             d.Config.Database.DSN(),
		MaxConns:        25,
		MinConns:        5,
		MaxConnLifetime: 5 * time.Minute,
		MaxConnIdleTime: 10 * time.Minute,
	}, d.Logger)
	if err != nil {
		return err
	}

	d.DB = database

	if err := d.DB.RunMigrations(); err != nil {
		return fmt.Errorf("failed to run migrations: %w", err)
	}

	d.Logger.Info("database connected and migrations completed successfully")
	return nil
}

// initPipeline builds the source connectors from the pipeline config and
// wires them into the cycle runner.
func (d *Dependencies) initPipeline() error {
	pipeline := d.Config.Pipeline

	rules := make([]categorize.Rule, 0, len(pipeline.Rules))
	for _, r := range pipeline.Rules {
		rules = append(rules, categorize.Rule{Category: r.Category, Keywords: r.Keywords})
	}

	d.IngestService = ingest.NewService(d.Store, pipeline.Currency, d.Logger)
	d.Categorizer = categorize.NewService(d.Store, rules, d.Logger)

	sources := buildSources(pipeline, d.Logger)
	for _, src := range sources {
		d.Logger.Info("registered source", "tag", src.Tag())
	}

	d.Runner = ingest.NewRunner(sources, d.IngestService, d.Categorizer, pipeline.RefreshInterval, d.Logger)

	d.Logger.Info("pipeline initialized",
		"sources", len(sources),
		"rules", len(rules),
		"interval", pipeline.RefreshInterval)
	return nil
}

// buildSources assembles the enabled connectors. Email queries are
// registered in sorted tag order so cycles visit sources
// deterministically.
func buildSources(pipeline config.PipelineConfig, logger *slog.Logger) []source.Source {
	var sources []source.Source

	if pipeline.Email.Enabled {
		tags := make([]string, 0, len(pipeline.Email.Queries))
		for tag := range pipeline.Email.Queries {
			tags = append(tags, tag)
		}
		sort.Strings(tags)
		for _, tag := range tags {
			sources = append(sources, source.NewEmailSource(
				tag,
				pipeline.Email.FeedURL,
				pipeline.Email.Queries[tag],
				pipeline.Email.MaxResults,
				pipeline.DisplayNames,
			))
		}
	}

	if pipeline.SMS.Enabled {
		sources = append(sources, source.NewSMSSource(pipeline.SMS.GatewayURL))
	}

	if pipeline.Statements.Enabled {
		sources = append(sources, source.NewStatementSource(pipeline.Statements.Folder, logger))
	}

	return sources
}

// Cleanup closes all resources
func (d *Dependencies) Cleanup() {
	if d.DB != nil {
		d.DB.Close()
	}
	d.Logger.Info("cleanup completed")
}
