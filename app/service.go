// Package app wires configuration, observability and the optimizer
// components into one Service.
package app

import (
	"context"
	"errors"
	"fmt"

	"github.com/kilianp07/railopt/config"
	"github.com/kilianp07/railopt/core/decision"
	"github.com/kilianp07/railopt/core/decision/audit"
	coremetrics "github.com/kilianp07/railopt/core/metrics"
	"github.com/kilianp07/railopt/core/optimizer"
	"github.com/kilianp07/railopt/core/priority"
	"github.com/kilianp07/railopt/core/reopt"
	"github.com/kilianp07/railopt/infra/logger"
	"github.com/kilianp07/railopt/infra/metrics"
	"github.com/kilianp07/railopt/internal/eventbus"
)

// Service holds the components built from one configuration.
type Service struct {
	Config       *config.Config
	Priority     *priority.Engine
	Orchestrator *optimizer.Orchestrator
	Decisions    *decision.Engine
	Reoptimizer  *reopt.Reoptimizer

	bus   *eventbus.Bus
	sink  coremetrics.MetricsSink
	store audit.Store
	log   logger.Logger
}

// New creates a Service from the configuration.
func New(cfg *config.Config) (*Service, error) {
	logger.Configure(logger.Options{Level: cfg.Logging.Level, Console: cfg.Logging.Console})
	logg := logger.New("service")

	sink, err := coremetrics.NewMetricsSink(cfg.Metrics.Sinks)
	if err != nil {
		return nil, fmt.Errorf("metrics: %w", err)
	}
	// The backend is opened by the first resolved batch.
	store, err := audit.NewLazyStore(cfg.Audit)
	if err != nil {
		return nil, fmt.Errorf("audit store: %w", err)
	}

	bus := eventbus.New()
	prio := priority.NewEngine(cfg.Priority)
	orch := optimizer.NewOrchestrator(cfg.Optimizer, prio,
		optimizer.WithLogger(logger.New("optimizer")),
		optimizer.WithMetrics(sink),
		optimizer.WithEventBus(bus),
	)
	decOpts := []decision.Option{
		decision.WithLogger(logger.New("decision")),
		decision.WithAuditStore(store),
		decision.WithEventBus(bus),
	}
	if rec, ok := sink.(coremetrics.DecisionRecorder); ok {
		decOpts = append(decOpts, decision.WithRecorder(rec))
	}
	svc := &Service{
		Config:       cfg,
		Priority:     prio,
		Orchestrator: orch,
		Decisions:    decision.NewEngine(cfg.Decision, prio, decOpts...),
		Reoptimizer: reopt.New(orch, cfg.Reopt,
			reopt.WithLogger(logger.New("reopt")),
			reopt.WithEventBus(bus),
		),
		bus:   bus,
		sink:  sink,
		store: store,
		log:   logg,
	}
	return svc, nil
}

// Bus returns the event bus shared by the components.
func (s *Service) Bus() eventbus.EventBus { return s.bus }

// Start records bus events on the metrics sinks and, when configured,
// serves Prometheus metrics. It returns immediately.
func (s *Service) Start(ctx context.Context) {
	coremetrics.StartEventCollector(ctx, s.bus, s.sink)
	if addr := s.Config.Metrics.PrometheusAddr; addr != "" {
		go func() {
			if err := metrics.StartPromServer(ctx, addr); err != nil {
				s.log.Errorf("prom server: %v", err)
			}
		}()
	}
}

// Run starts the service and blocks until the context is cancelled.
func (s *Service) Run(ctx context.Context) error {
	s.Start(ctx)
	s.log.Infof("service running")
	<-ctx.Done()
	return nil
}

// Close releases resources held by the service.
func (s *Service) Close() error {
	s.bus.Close()
	var errs []error
	if err := s.store.Close(); err != nil {
		errs = append(errs, fmt.Errorf("audit store: %w", err))
	}
	if c, ok := s.sink.(interface{ Close() error }); ok {
		if err := c.Close(); err != nil {
			errs = append(errs, fmt.Errorf("metrics sink: %w", err))
		}
	}
	return errors.Join(errs...)
}
