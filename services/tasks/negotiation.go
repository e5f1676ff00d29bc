package tasks

import (
	"encoding/json"
	"time"

	"molbhav/models"

	"github.com/hibiken/asynq"
)

const (
	TypeNegotiationFanout   = "negotiation:fanout"
	TypeNegotiationFinalize = "negotiation:finalize"
)

// NewFanoutTask builds the task that opens negotiation sessions for a
// request. The task id keys on the request so repeated kicks collapse into
// one queued run.
func NewFanoutTask(payload models.FanoutPayload) (*asynq.Task, []asynq.Option, error) {
	b, err := json.Marshal(payload)
	if err != nil {
		return nil, nil, err
	}
	task := asynq.NewTask(TypeNegotiationFanout, b)
	opts := []asynq.Option{
		asynq.TaskID("fanout:" + payload.RequestID),
		asynq.MaxRetry(5),
	}

	return task, opts, nil
}

// NewFinalizeTask builds the deadline sweep for a request, scheduled at the
// negotiation window's end. One per request: the task id is the run-once
// guard.
func NewFinalizeTask(payload models.FinalizePayload, fireAt time.Time) (*asynq.Task, []asynq.Option, error) {
	b, err := json.Marshal(payload)
	if err != nil {
		return nil, nil, err
	}
	task := asynq.NewTask(TypeNegotiationFinalize, b)
	opts := []asynq.Option{
		asynq.TaskID("finalize:" + payload.RequestID),
		asynq.ProcessAt(fireAt),
		asynq.MaxRetry(5),
	}

	return task, opts, nil
}

// NewFinalizeCheckTask builds an immediate, unkeyed finalize pass. Fired
// after a session finishes so a request whose sessions are all done settles
// before the deadline.
func NewFinalizeCheckTask(payload models.FinalizePayload) (*asynq.Task, []asynq.Option, error) {
	b, err := json.Marshal(payload)
	if err != nil {
		return nil, nil, err
	}
	task := asynq.NewTask(TypeNegotiationFinalize, b)
	opts := []asynq.Option{asynq.MaxRetry(3)}

	return task, opts, nil
}
