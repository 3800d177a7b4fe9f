package workflows

import (
	"errors"
	"fmt"
	"time"

	"go.temporal.io/sdk/temporal"
	"go.temporal.io/sdk/workflow"

	"github.com/srivastava-utkarsh/ticket-booking/internal/activities"
	"github.com/srivastava-utkarsh/ticket-booking/internal/booking"
	"github.com/srivastava-utkarsh/ticket-booking/internal/service"
)

const (
	// BookTimeout bounds a single booking attempt
	BookTimeout = 30 * time.Second
	// ReleaseTimeout bounds a single release attempt
	ReleaseTimeout = 10 * time.Second
	// MaxReleaseAttempts is how often a busy seat release is retried
	MaxReleaseAttempts = 5
)

// ChangeSeatWorkflow moves a user to a new seat. The new seat is booked
// first; the old seat is then released with a refund. When the old seat
// cannot be freed the new booking is released again.
func ChangeSeatWorkflow(ctx workflow.Context, change service.SeatChange) (service.SeatChangeResult, error) {
	logger := workflow.GetLogger(ctx)
	logger.Info("Seat change workflow started", "userId", change.UserID, "from", change.FromSeat, "to", change.ToSeat)

	// Booking charges the wallet, never retry it blindly
	bookCtx := workflow.WithActivityOptions(ctx, workflow.ActivityOptions{
		StartToCloseTimeout: BookTimeout,
		RetryPolicy: &temporal.RetryPolicy{
			MaximumAttempts: 1,
		},
	})
	releaseCtx := workflow.WithActivityOptions(ctx, workflow.ActivityOptions{
		StartToCloseTimeout: ReleaseTimeout,
		RetryPolicy: &temporal.RetryPolicy{
			InitialInterval:    time.Second,
			BackoffCoefficient: 2.0,
			MaximumInterval:    30 * time.Second,
			MaximumAttempts:    MaxReleaseAttempts,
		},
	})

	var booked service.SeatChangeResult
	err := workflow.ExecuteActivity(bookCtx, activities.BookSeatName, activities.BookSeatInput{
		UserID: change.UserID,
		SeatID: change.ToSeat,
	}).Get(ctx, &booked)
	if err != nil {
		logger.Error("Book activity failed", "error", err)
		return service.SeatChangeResult{}, err
	}
	if !booked.Success {
		logger.Info("New seat not booked, keeping old seat", "kind", booked.Kind, "reason", booked.Reason)
		return booked, nil
	}

	var released service.SeatChangeResult
	err = workflow.ExecuteActivity(releaseCtx, activities.ReleaseSeatName, activities.ReleaseSeatInput{
		UserID: change.UserID,
		SeatID: change.FromSeat,
		Refund: change.Refund,
	}).Get(ctx, &released)
	if err == nil && isReleased(released) {
		logger.Info("Seat change completed", "seat", change.ToSeat, "amount", booked.Amount)
		return booked, nil
	}

	kind, reason := released.Kind, released.Reason
	if err != nil {
		kind, reason = failureKind(err), err.Error()
	}
	logger.Warn("Old seat not released, undoing new booking", "seat", change.FromSeat, "kind", kind)

	var undone service.SeatChangeResult
	err = workflow.ExecuteActivity(releaseCtx, activities.ReleaseSeatName, activities.ReleaseSeatInput{
		UserID: change.UserID,
		SeatID: change.ToSeat,
		Refund: booked.Amount,
	}).Get(ctx, &undone)
	if err != nil {
		return service.SeatChangeResult{}, fmt.Errorf("undo booking of seat %s: %w", change.ToSeat, err)
	}
	if !isReleased(undone) {
		return service.SeatChangeResult{}, fmt.Errorf("undo booking of seat %s: %s", change.ToSeat, undone.Reason)
	}

	return service.SeatChangeResult{
		Kind:   kind,
		Reason: fmt.Sprintf("failed to release seat %s: %s", change.FromSeat, reason),
	}, nil
}

// isReleased treats a seat the user no longer holds as released. A retry
// after a lost result sees not_held once the first attempt freed the seat.
func isReleased(r service.SeatChangeResult) bool {
	return r.Success || r.Kind == string(booking.KindNotHeld)
}

func failureKind(err error) string {
	var appErr *temporal.ApplicationError
	if errors.As(err, &appErr) && appErr.Type() != "" {
		return appErr.Type()
	}
	var timeoutErr *temporal.TimeoutError
	if errors.As(err, &timeoutErr) {
		return string(booking.KindTimedOut)
	}
	return string(booking.KindInternal)
}
