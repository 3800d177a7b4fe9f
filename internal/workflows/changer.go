package workflows

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.temporal.io/sdk/activity"
	"go.temporal.io/sdk/client"
	"go.temporal.io/sdk/worker"

	"github.com/srivastava-utkarsh/ticket-booking/internal/activities"
	"github.com/srivastava-utkarsh/ticket-booking/internal/service"
)

// WorkflowTimeout caps a whole seat change including release retries
const WorkflowTimeout = 5 * time.Minute

// Changer runs seat changes as Temporal workflows
type Changer struct {
	client    client.Client
	taskQueue string
}

// NewChanger creates a changer that starts workflows on taskQueue
func NewChanger(c client.Client, taskQueue string) *Changer {
	return &Changer{client: c, taskQueue: taskQueue}
}

// ChangeSeat starts ChangeSeatWorkflow and waits for its result. The wait
// outlives ctx: a started workflow moves the seat whether or not the
// caller is still listening.
func (c *Changer) ChangeSeat(ctx context.Context, change service.SeatChange) (service.SeatChangeResult, error) {
	opts := client.StartWorkflowOptions{
		ID:                       fmt.Sprintf("seat-change-%d-%s", change.UserID, uuid.NewString()),
		TaskQueue:                c.taskQueue,
		WorkflowExecutionTimeout: WorkflowTimeout,
	}

	run, err := c.client.ExecuteWorkflow(ctx, opts, ChangeSeatWorkflow, change)
	if err != nil {
		return service.SeatChangeResult{}, fmt.Errorf("failed to start seat change workflow: %w", err)
	}

	waitCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), WorkflowTimeout)
	defer cancel()

	var result service.SeatChangeResult
	if err := run.Get(waitCtx, &result); err != nil {
		return service.SeatChangeResult{}, fmt.Errorf("seat change workflow %s failed: %w", run.GetID(), err)
	}
	return result, nil
}

// NewWorker creates a worker with the seat change workflow and activities registered
func NewWorker(c client.Client, taskQueue string, acts *activities.Activities) worker.Worker {
	w := worker.New(c, taskQueue, worker.Options{})

	w.RegisterWorkflow(ChangeSeatWorkflow)
	w.RegisterActivityWithOptions(acts.BookSeat, activity.RegisterOptions{Name: activities.BookSeatName})
	w.RegisterActivityWithOptions(acts.ReleaseSeat, activity.RegisterOptions{Name: activities.ReleaseSeatName})

	return w
}
