// Package cron provides scheduled background jobs using robfig/cron.
package cron

import (
	"context"
	"log/slog"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/adonai404/imperial-fiscal/pkg/metrics"
)

// DatasetCounter reports the current dataset sizes. The company and
// fiscal repositories satisfy it through cmd wiring.
type DatasetCounter interface {
	CountCompanies(ctx context.Context) (int64, error)
	CountFiscalRecords(ctx context.Context) (int64, error)
}

// Scheduler refreshes the dataset gauges in the background. It never
// touches fiscal data itself, imports and deletes stay request-driven.
type Scheduler struct {
	cron    *cron.Cron
	counter DatasetCounter
	metrics *metrics.Metrics
	logger  *slog.Logger
}

// NewScheduler creates a new job scheduler.
func NewScheduler(counter DatasetCounter, m *metrics.Metrics, logger *slog.Logger) *Scheduler {
	c := cron.New(cron.WithLogger(cron.VerbosePrintfLogger(slog.NewLogLogger(logger.Handler(), slog.LevelDebug))))

	return &Scheduler{
		cron:    c,
		counter: counter,
		metrics: m,
		logger:  logger,
	}
}

// Start begins scheduled jobs and primes the gauges once.
func (s *Scheduler) Start() error {
	_, err := s.cron.AddFunc("*/5 * * * *", s.refreshDatasetGauges)
	if err != nil {
		return err
	}

	s.cron.Start()
	s.logger.Info("cron scheduler started",
		slog.Int("jobs", len(s.cron.Entries())),
	)
	go s.refreshDatasetGauges()
	return nil
}

// Stop gracefully stops all scheduled jobs.
func (s *Scheduler) Stop() context.Context {
	s.logger.Info("cron scheduler stopping")
	return s.cron.Stop()
}

// refreshDatasetGauges reads the current table sizes into the gauges.
func (s *Scheduler) refreshDatasetGauges() {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	companies, err := s.counter.CountCompanies(ctx)
	if err != nil {
		s.logger.Error("failed to count companies", slog.Any("error", err))
		return
	}
	records, err := s.counter.CountFiscalRecords(ctx)
	if err != nil {
		s.logger.Error("failed to count fiscal records", slog.Any("error", err))
		return
	}

	s.metrics.CompaniesGauge.Set(float64(companies))
	s.metrics.FiscalRowsGauge.Set(float64(records))
}
