// Package jobs hosts the background task definitions and the Asynq worker.
package jobs

import (
	"encoding/json"

	"github.com/google/uuid"
	"github.com/hibiken/asynq"
)

const (
	// QueueDefault is the default queue name for background jobs.
	QueueDefault = "default"
	// TaskReportWarmup pre-builds subsidiary reports into the cache.
	TaskReportWarmup = "pnl:report_warmup"
)

// ReportWarmupPayload scopes a warmup run. An empty SubsidiaryID warms every
// configured subsidiary; an empty Period means the current month.
type ReportWarmupPayload struct {
	TraceID      string `json:"trace_id"`
	SubsidiaryID string `json:"subsidiary_id,omitempty"`
	Period       string `json:"period,omitempty"`
}

// NewReportWarmupTask constructs an Asynq task for the warmup handler.
func NewReportWarmupTask(payload ReportWarmupPayload) (*asynq.Task, error) {
	if payload.TraceID == "" {
		payload.TraceID = uuid.NewString()
	}
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskReportWarmup, data), nil
}
