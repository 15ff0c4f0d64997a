package main

import (
	"context"

	"github.com/go-playground/validator/v10"
	"github.com/jmoiron/sqlx"
	"go.uber.org/zap"

	"github.com/noah-isme/qc-workbench-api/internal/repository"
	"github.com/noah-isme/qc-workbench-api/internal/service"
	"github.com/noah-isme/qc-workbench-api/pkg/config"
	"github.com/noah-isme/qc-workbench-api/pkg/jobs"
	"github.com/noah-isme/qc-workbench-api/pkg/storage"
)

// setupExports wires the report pipeline: generator, worker, queue and the
// orchestrating service. The queue is started and pending jobs replayed.
func setupExports(
	ctx context.Context,
	cfg *config.Config,
	db *sqlx.DB,
	tasks *repository.TaskRepository,
	progress *repository.ProgressRepository,
	subjects *service.SubjectService,
	metrics *service.MetricsService,
	validate *validator.Validate,
	logr *zap.Logger,
) (*service.ReportService, *jobs.Queue, error) {
	store, err := storage.NewLocalStorage(cfg.Exports.StorageDir)
	if err != nil {
		return nil, nil, err
	}
	signer := storage.NewSignedURLSigner(cfg.Exports.SignedURLSecret, cfg.Exports.SignedURLTTL)
	exportRepo := repository.NewExportRepository(db)

	exporter := service.NewExportService(tasks, progress, store, signer, service.ExportConfig{
		APIPrefix:     cfg.APIPrefix,
		ResultTTL:     cfg.Exports.SignedURLTTL,
		QuestionCount: cfg.Work.QuestionCount,
	}, logr)

	worker := service.NewReportWorker(exportRepo, exporter, metrics, logr)
	queue := jobs.NewQueue("exports", worker.Handle, jobs.Config{
		Workers:     cfg.Exports.WorkerConcurrency,
		MaxRetries:  cfg.Exports.WorkerRetries,
		Logger:      logr,
		OnExhausted: worker.Fail,
	})
	queue.Start(ctx)

	reportSvc := service.NewReportService(exportRepo, subjects, queue, exporter, validate, logr, service.ReportServiceConfig{
		ResultTTL:       cfg.Exports.SignedURLTTL,
		CleanupInterval: cfg.Exports.CleanupInterval,
	})
	reportSvc.RecoverPendingJobs(ctx)
	reportSvc.StartCleanup(ctx)
	return reportSvc, queue, nil
}
