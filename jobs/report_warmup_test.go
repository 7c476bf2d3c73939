package jobs

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync/atomic"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/hibiken/asynq"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"

	"github.com/helios-fin/helios-pnl/internal/pnl"
)

type fakeBuilder struct {
	calls    atomic.Int64
	requests []pnl.ReportRequest
	err      error
}

func (f *fakeBuilder) BuildReport(ctx context.Context, req pnl.ReportRequest) (pnl.BuildResult, error) {
	f.calls.Add(1)
	f.requests = append(f.requests, req)
	if f.err != nil {
		return pnl.BuildResult{}, f.err
	}
	return pnl.BuildResult{Kept: true, Report: pnl.Report{Level: pnl.LevelSubsidiary, Key: req.Key}}, nil
}

type fakeSubs struct {
	subs []pnl.Subsidiary
}

func (f *fakeSubs) Subsidiaries(ctx context.Context) ([]pnl.Subsidiary, error) {
	return f.subs, nil
}

func newWarmupJob(t *testing.T, builder *fakeBuilder, subs *fakeSubs) *ReportWarmupJob {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	job := NewReportWarmupJob(builder, subs, pnl.NewReportCache(client, time.Minute), slog.New(slog.NewTextHandler(io.Discard, nil)))
	job.clock = func() time.Time { return time.Date(2026, 8, 15, 6, 0, 0, 0, time.UTC) }
	return job
}

func warmupTask(t *testing.T, payload ReportWarmupPayload) *asynq.Task {
	t.Helper()
	task, err := NewReportWarmupTask(payload)
	require.NoError(t, err)
	return task
}

func TestReportWarmupWarmsEverySubsidiary(t *testing.T) {
	builder := &fakeBuilder{}
	subs := &fakeSubs{subs: []pnl.Subsidiary{{ID: "s1", Label: "North"}, {ID: "s2", Label: "South"}}}
	job := newWarmupJob(t, builder, subs)

	err := job.Handle(context.Background(), warmupTask(t, ReportWarmupPayload{}))
	require.NoError(t, err)
	require.EqualValues(t, 2, builder.calls.Load())

	for _, req := range builder.requests {
		require.Equal(t, pnl.LevelSubsidiary, req.Level)
		require.Equal(t, "2026-08", req.Period.Format("2006-01"))
	}
}

func TestReportWarmupScopesToSubsidiary(t *testing.T) {
	builder := &fakeBuilder{}
	subs := &fakeSubs{subs: []pnl.Subsidiary{{ID: "s1"}, {ID: "s2"}}}
	job := newWarmupJob(t, builder, subs)

	err := job.Handle(context.Background(), warmupTask(t, ReportWarmupPayload{SubsidiaryID: "s2"}))
	require.NoError(t, err)
	require.EqualValues(t, 1, builder.calls.Load())
	require.Equal(t, "s2", builder.requests[0].Key)
}

func TestReportWarmupSecondRunHitsCache(t *testing.T) {
	builder := &fakeBuilder{}
	subs := &fakeSubs{subs: []pnl.Subsidiary{{ID: "s1"}}}
	job := newWarmupJob(t, builder, subs)

	task := warmupTask(t, ReportWarmupPayload{Period: "2026-07"})
	require.NoError(t, job.Handle(context.Background(), task))
	require.NoError(t, job.Handle(context.Background(), task))

	require.EqualValues(t, 1, builder.calls.Load())
}

func TestReportWarmupSkipsRetryOnBadPeriod(t *testing.T) {
	builder := &fakeBuilder{}
	job := newWarmupJob(t, builder, &fakeSubs{})

	err := job.Handle(context.Background(), warmupTask(t, ReportWarmupPayload{Period: "July 2026"}))
	require.ErrorIs(t, err, asynq.SkipRetry)
	require.Zero(t, builder.calls.Load())
}

func TestReportWarmupPropagatesBuildFailure(t *testing.T) {
	buildErr := errors.New("warehouse down")
	builder := &fakeBuilder{err: buildErr}
	subs := &fakeSubs{subs: []pnl.Subsidiary{{ID: "s1"}}}
	job := newWarmupJob(t, builder, subs)

	err := job.Handle(context.Background(), warmupTask(t, ReportWarmupPayload{}))
	require.ErrorIs(t, err, buildErr)
}
