package tasks

import (
	"errors"
	"fmt"
	"time"

	"molbhav/models"

	"github.com/hibiken/asynq"
)

// Dispatcher hands negotiation work to the background queue. Callers never
// touch asynq directly so tests can swap in a recorder.
type Dispatcher interface {
	// EnqueueFanout queues the provider fan-out for a request. Safe to call
	// more than once for the same request.
	EnqueueFanout(requestID string) error

	// ScheduleFinalize schedules the deadline sweep that force-expires any
	// sessions still open at the window's end. One schedule per request.
	ScheduleFinalize(requestID string, at time.Time) error

	// EnqueueFinalizeCheck queues an immediate settle pass for a request
	// whose sessions may all have finished early.
	EnqueueFinalizeCheck(requestID string) error
}

type AsynqDispatcher struct {
	Client *asynq.Client
}

func NewAsynqDispatcher(client *asynq.Client) (*AsynqDispatcher, error) {
	if client == nil {
		return nil, fmt.Errorf("asynq client is nil")
	}
	return &AsynqDispatcher{Client: client}, nil
}

func (d *AsynqDispatcher) EnqueueFanout(requestID string) error {
	task, opts, err := NewFanoutTask(models.FanoutPayload{RequestID: requestID})
	if err != nil {
		return fmt.Errorf("failed to build fanout task: %w", err)
	}
	if _, err := d.Client.Enqueue(task, opts...); err != nil {
		if errors.Is(err, asynq.ErrTaskIDConflict) {
			return nil
		}
		return fmt.Errorf("failed to enqueue fanout task: %w", err)
	}
	return nil
}

func (d *AsynqDispatcher) ScheduleFinalize(requestID string, at time.Time) error {
	task, opts, err := NewFinalizeTask(models.FinalizePayload{RequestID: requestID, Deadline: true}, at)
	if err != nil {
		return fmt.Errorf("failed to build finalize task: %w", err)
	}
	if _, err := d.Client.Enqueue(task, opts...); err != nil {
		if errors.Is(err, asynq.ErrTaskIDConflict) {
			return nil
		}
		return fmt.Errorf("failed to schedule finalize task: %w", err)
	}
	return nil
}

func (d *AsynqDispatcher) EnqueueFinalizeCheck(requestID string) error {
	task, opts, err := NewFinalizeCheckTask(models.FinalizePayload{RequestID: requestID})
	if err != nil {
		return fmt.Errorf("failed to build finalize check task: %w", err)
	}
	if _, err := d.Client.Enqueue(task, opts...); err != nil {
		return fmt.Errorf("failed to enqueue finalize check task: %w", err)
	}
	return nil
}
