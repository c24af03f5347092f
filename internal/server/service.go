package server

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/appealai/ticket-intake/constants"
	"github.com/appealai/ticket-intake/internal/async"
	"github.com/appealai/ticket-intake/internal/common"
	"github.com/appealai/ticket-intake/internal/events"
	"github.com/appealai/ticket-intake/internal/export"
	"github.com/appealai/ticket-intake/internal/metrics"
	"github.com/appealai/ticket-intake/internal/pipeline"
	"github.com/appealai/ticket-intake/internal/upload"
)

// Service accepts document candidates, runs each through its own pipeline
// on the worker queue, and tracks run state in the registry. Every job
// gets a fresh orchestrator; queued runs stay in the idle phase until a
// worker picks them up.
type Service struct {
	cfg     *common.Config
	engines pipeline.Engines
	store   *Store
	export  *export.Service
	metrics *metrics.PipelineMetrics
	events  *events.Publisher
	queue   *async.Queue
	logger  *slog.Logger
}

func NewService(
	cfg *common.Config,
	engines pipeline.Engines,
	store *Store,
	exporter *export.Service,
	pm *metrics.PipelineMetrics,
	pub *events.Publisher,
	logger *slog.Logger,
) *Service {
	s := &Service{
		cfg:     cfg,
		engines: engines,
		store:   store,
		export:  exporter,
		metrics: pm,
		events:  pub,
		logger:  logger,
	}
	s.queue = async.NewQueue(s.process, logger,
		async.WithWorkers(cfg.Queue.Workers),
		async.WithQueueSize(cfg.Queue.Size),
		async.WithProcessTimeout(cfg.Queue.ProcessTimeout),
	)
	return s
}

// Submit validates the candidate synchronously so the caller gets an
// immediate rejection, then queues the pipeline run.
func (s *Service) Submit(ctx context.Context, c upload.Candidate) (uuid.UUID, error) {
	if err := upload.Validate(c, s.cfg.Upload); err != nil {
		return uuid.Nil, err
	}

	runID := uuid.New()
	s.store.Put(runID, pipeline.Snapshot{
		RunID:    runID,
		Filename: c.Filename,
		Phase:    constants.PhaseIdle,
	})

	job := async.Job{RunID: runID, Candidate: c, SubmittedAt: time.Now().UTC()}
	if err := s.queue.Enqueue(ctx, job); err != nil {
		return uuid.Nil, err
	}
	return runID, nil
}

func (s *Service) Get(id uuid.UUID) (pipeline.Snapshot, error) {
	return s.store.Get(id)
}

// ExportXLSX renders the settled run as a case-facts workbook.
func (s *Service) ExportXLSX(id uuid.UUID) ([]byte, error) {
	snap, err := s.store.Get(id)
	if err != nil {
		return nil, err
	}
	return s.export.CaseFactsXLSX(snap)
}

func (s *Service) Shutdown(ctx context.Context) {
	s.queue.Shutdown(ctx)
}

func (s *Service) process(ctx context.Context, job async.Job) {
	logger := s.logger.With("run_id", job.RunID, "file", job.Candidate.Filename)

	orch := pipeline.New(s.cfg.Upload, s.engines, pipeline.Callbacks{
		OnTextExtracted: func(text string, _ upload.Candidate) {
			logger.Debug("text extracted", "chars", len(text))
		},
	}, logger)
	orch.Watch(func(snap pipeline.Snapshot) {
		// the orchestrator mints its own run id per Start; the registry is
		// keyed by the id handed out at submission
		snap.RunID = job.RunID
		s.store.Put(job.RunID, snap)
	})

	s.metrics.StartRun()
	start := time.Now()
	snap, err := orch.Run(ctx, job.Candidate)
	if err != nil && snap.Err == nil {
		snap.Err = err
	}
	snap.RunID = job.RunID
	s.store.Put(job.RunID, snap)

	status := metrics.StatusCompleted
	switch {
	case snap.Err != nil:
		status = metrics.StatusFailed
	case snap.NoContent:
		status = metrics.StatusNoContent
	}
	s.metrics.FinishRun(status, time.Since(start))

	ev := events.Completion{
		RunID:      job.RunID.String(),
		Filename:   job.Candidate.Filename,
		Status:     status,
		NoContent:  snap.NoContent,
		TextLength: len(snap.Text),
		Fields:     snap.Fields,
		Warnings:   snap.Warnings,
		SettledAt:  snap.SettledAt,
	}
	if snap.Err != nil {
		ev.Error = common.UserMessage(snap.Err)
	}
	s.events.PublishCompletion(ev)
}
