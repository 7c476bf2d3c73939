package jobs

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"time"

	"github.com/hibiken/asynq"

	"github.com/helios-fin/helios-pnl/internal/pnl"
)

// ReportBuilder matches the service surface the warmup drives.
type ReportBuilder interface {
	BuildReport(ctx context.Context, req pnl.ReportRequest) (pnl.BuildResult, error)
}

// SubsidiarySource lists the subsidiaries eligible for warmup.
type SubsidiarySource interface {
	Subsidiaries(ctx context.Context) ([]pnl.Subsidiary, error)
}

// ReportWarmupJob pre-builds subsidiary-level reports into the cache so the
// first morning request does not pay the full assembly cost.
type ReportWarmupJob struct {
	Builder ReportBuilder
	Config  SubsidiarySource
	Cache   *pnl.ReportCache
	Logger  *slog.Logger
	clock   func() time.Time
}

// NewReportWarmupJob wires dependencies for the warmup handler.
func NewReportWarmupJob(builder ReportBuilder, config SubsidiarySource, cache *pnl.ReportCache, logger *slog.Logger) *ReportWarmupJob {
	return &ReportWarmupJob{
		Builder: builder,
		Config:  config,
		Cache:   cache,
		Logger:  logger,
		clock:   func() time.Time { return time.Now().UTC() },
	}
}

// Handle processes report warmup tasks.
func (j *ReportWarmupJob) Handle(ctx context.Context, t *asynq.Task) error {
	if j == nil || j.Builder == nil || j.Config == nil {
		return errors.New("report warmup: handler not configured")
	}
	var payload ReportWarmupPayload
	if err := json.Unmarshal(t.Payload(), &payload); err != nil {
		return asynq.SkipRetry
	}

	period := j.clock()
	if payload.Period != "" {
		parsed, err := time.Parse("2006-01", payload.Period)
		if err != nil {
			return asynq.SkipRetry
		}
		period = parsed
	}

	logger := j.logger().With(slog.String("trace_id", payload.TraceID))
	logger.Info("starting report warmup", slog.String("period", period.Format("2006-01")))

	subsidiaries, err := j.Config.Subsidiaries(ctx)
	if err != nil {
		logger.Error("load subsidiaries", slog.Any("error", err))
		return err
	}

	warmed := 0
	for _, subsidiary := range subsidiaries {
		if payload.SubsidiaryID != "" && subsidiary.ID != payload.SubsidiaryID {
			continue
		}
		if err := j.warm(ctx, subsidiary.ID, period); err != nil {
			logger.Error("warm subsidiary", slog.String("subsidiary", subsidiary.ID), slog.Any("error", err))
			return err
		}
		warmed++
	}

	logger.Info("completed report warmup", slog.Int("subsidiaries", warmed))
	return nil
}

func (j *ReportWarmupJob) warm(ctx context.Context, subsidiaryID string, period time.Time) error {
	// Bound each subsidiary so one slow build cannot stall the whole run.
	warmCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	req := pnl.ReportRequest{Level: pnl.LevelSubsidiary, Key: subsidiaryID, Period: period}
	key, err := j.Cache.Key(warmCtx, req)
	if err != nil {
		return err
	}
	_, err = j.Cache.Fetch(warmCtx, key, func(ctx context.Context) (pnl.BuildResult, error) {
		return j.Builder.BuildReport(ctx, req)
	})
	return err
}

func (j *ReportWarmupJob) logger() *slog.Logger {
	if j.Logger != nil {
		return j.Logger
	}
	return slog.Default()
}
