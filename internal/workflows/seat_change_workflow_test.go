package workflows

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"
	"go.temporal.io/sdk/activity"
	"go.temporal.io/sdk/client"
	temporalmocks "go.temporal.io/sdk/mocks"
	"go.temporal.io/sdk/temporal"
	"go.temporal.io/sdk/testsuite"

	"github.com/srivastava-utkarsh/ticket-booking/internal/activities"
	"github.com/srivastava-utkarsh/ticket-booking/internal/booking"
	"github.com/srivastava-utkarsh/ticket-booking/internal/service"
)

type SeatChangeWorkflowTestSuite struct {
	suite.Suite
	testsuite.WorkflowTestSuite
	env *testsuite.TestWorkflowEnvironment
}

func (s *SeatChangeWorkflowTestSuite) SetupTest() {
	s.env = s.NewTestWorkflowEnvironment()
	acts := activities.NewActivities(nil)
	s.env.RegisterActivityWithOptions(acts.BookSeat, activity.RegisterOptions{Name: activities.BookSeatName})
	s.env.RegisterActivityWithOptions(acts.ReleaseSeat, activity.RegisterOptions{Name: activities.ReleaseSeatName})
}

func (s *SeatChangeWorkflowTestSuite) AfterTest(suiteName, testName string) {
	s.env.AssertExpectations(s.T())
}

func TestSeatChangeWorkflowTestSuite(t *testing.T) {
	suite.Run(t, new(SeatChangeWorkflowTestSuite))
}

var testChange = service.SeatChange{UserID: 1, FromSeat: "A1", ToSeat: "B1", Refund: 20}

func (s *SeatChangeWorkflowTestSuite) bookInput() activities.BookSeatInput {
	return activities.BookSeatInput{UserID: 1, SeatID: "B1"}
}

func (s *SeatChangeWorkflowTestSuite) releaseInput(seat string, refund int64) activities.ReleaseSeatInput {
	return activities.ReleaseSeatInput{UserID: 1, SeatID: seat, Refund: refund}
}

func (s *SeatChangeWorkflowTestSuite) result() service.SeatChangeResult {
	var result service.SeatChangeResult
	s.True(s.env.IsWorkflowCompleted())
	s.NoError(s.env.GetWorkflowError())
	s.NoError(s.env.GetWorkflowResult(&result))
	return result
}

func (s *SeatChangeWorkflowTestSuite) TestWorkflow_Constants() {
	s.Equal(5, MaxReleaseAttempts, "Busy releases should be retried five times")
	s.Greater(WorkflowTimeout, BookTimeout+MaxReleaseAttempts*ReleaseTimeout)
}

func (s *SeatChangeWorkflowTestSuite) TestWorkflow_Success() {
	s.env.OnActivity(activities.BookSeatName, mock.Anything, s.bookInput()).
		Return(service.ResultFromOutcome(booking.Booked(20, "B1")), nil).Once()
	s.env.OnActivity(activities.ReleaseSeatName, mock.Anything, s.releaseInput("A1", 20)).
		Return(service.ResultFromOutcome(booking.Success()), nil).Once()

	s.env.ExecuteWorkflow(ChangeSeatWorkflow, testChange)

	result := s.result()
	s.True(result.Success)
	s.Equal([]string{"B1"}, result.Seats)
	s.Equal(int64(20), result.Amount)
}

func (s *SeatChangeWorkflowTestSuite) TestWorkflow_NewSeatUnavailable() {
	s.env.OnActivity(activities.BookSeatName, mock.Anything, s.bookInput()).
		Return(service.ResultFromOutcome(booking.Failed(booking.KindAlreadyBooked, "seat B1 is already booked")), nil).Once()

	s.env.ExecuteWorkflow(ChangeSeatWorkflow, testChange)

	result := s.result()
	s.False(result.Success)
	s.Equal(string(booking.KindAlreadyBooked), result.Kind)
}

func (s *SeatChangeWorkflowTestSuite) TestWorkflow_OldSeatMissingUndoesBooking() {
	s.env.OnActivity(activities.BookSeatName, mock.Anything, s.bookInput()).
		Return(service.ResultFromOutcome(booking.Booked(20, "B1")), nil).Once()
	s.env.OnActivity(activities.ReleaseSeatName, mock.Anything, s.releaseInput("A1", 20)).
		Return(service.ResultFromOutcome(booking.Failed(booking.KindNotFound, "seat not found: A1")), nil).Once()
	s.env.OnActivity(activities.ReleaseSeatName, mock.Anything, s.releaseInput("B1", 20)).
		Return(service.ResultFromOutcome(booking.Success()), nil).Once()

	s.env.ExecuteWorkflow(ChangeSeatWorkflow, testChange)

	result := s.result()
	s.False(result.Success)
	s.Equal(string(booking.KindNotFound), result.Kind)
	s.Contains(result.Reason, "A1")
}

func (s *SeatChangeWorkflowTestSuite) TestWorkflow_RetriedReleaseSeesNotHeld() {
	s.env.OnActivity(activities.BookSeatName, mock.Anything, s.bookInput()).
		Return(service.ResultFromOutcome(booking.Booked(20, "B1")), nil).Once()
	// first attempt freed the seat but its result was lost
	s.env.OnActivity(activities.ReleaseSeatName, mock.Anything, s.releaseInput("A1", 20)).
		Return(service.SeatChangeResult{}, temporal.NewApplicationError("activity result lost", string(booking.KindTimedOut))).Once()
	s.env.OnActivity(activities.ReleaseSeatName, mock.Anything, s.releaseInput("A1", 20)).
		Return(service.ResultFromOutcome(booking.Failed(booking.KindNotHeld, "seat A1 is not held by account 1")), nil).Once()

	s.env.ExecuteWorkflow(ChangeSeatWorkflow, testChange)

	result := s.result()
	s.True(result.Success)
	s.Equal([]string{"B1"}, result.Seats)
}

func (s *SeatChangeWorkflowTestSuite) TestWorkflow_ReleaseErrorKeepsKind() {
	s.env.OnActivity(activities.BookSeatName, mock.Anything, s.bookInput()).
		Return(service.ResultFromOutcome(booking.Booked(20, "B1")), nil).Once()
	s.env.OnActivity(activities.ReleaseSeatName, mock.Anything, s.releaseInput("A1", 20)).
		Return(service.SeatChangeResult{}, temporal.NewNonRetryableApplicationError("seat A1 is busy", string(booking.KindBusy), nil))
	s.env.OnActivity(activities.ReleaseSeatName, mock.Anything, s.releaseInput("B1", 20)).
		Return(service.ResultFromOutcome(booking.Success()), nil).Once()

	s.env.ExecuteWorkflow(ChangeSeatWorkflow, testChange)

	result := s.result()
	s.False(result.Success)
	s.Equal(string(booking.KindBusy), result.Kind)
}

func (s *SeatChangeWorkflowTestSuite) TestWorkflow_UndoFailureFailsWorkflow() {
	s.env.OnActivity(activities.BookSeatName, mock.Anything, s.bookInput()).
		Return(service.ResultFromOutcome(booking.Booked(20, "B1")), nil).Once()
	s.env.OnActivity(activities.ReleaseSeatName, mock.Anything, s.releaseInput("A1", 20)).
		Return(service.ResultFromOutcome(booking.Failed(booking.KindNotFound, "seat not found: A1")), nil).Once()
	s.env.OnActivity(activities.ReleaseSeatName, mock.Anything, s.releaseInput("B1", 20)).
		Return(service.ResultFromOutcome(booking.Failed(booking.KindNotFound, "seat not found: B1")), nil).Once()

	s.env.ExecuteWorkflow(ChangeSeatWorkflow, testChange)

	s.True(s.env.IsWorkflowCompleted())
	s.Error(s.env.GetWorkflowError())
}

func (s *SeatChangeWorkflowTestSuite) TestWorkflow_BookErrorFailsWorkflow() {
	s.env.OnActivity(activities.BookSeatName, mock.Anything, s.bookInput()).
		Return(service.SeatChangeResult{}, errors.New("worker lost")).Once()

	s.env.ExecuteWorkflow(ChangeSeatWorkflow, testChange)

	s.True(s.env.IsWorkflowCompleted())
	s.Error(s.env.GetWorkflowError())
}

func TestChanger_ChangeSeat(t *testing.T) {
	c := new(temporalmocks.Client)
	run := new(temporalmocks.WorkflowRun)

	c.On("ExecuteWorkflow", mock.Anything, mock.MatchedBy(func(opts client.StartWorkflowOptions) bool {
		return opts.TaskQueue == "seat-queue" && strings.HasPrefix(opts.ID, "seat-change-1-")
	}), mock.Anything, testChange).Return(run, nil)
	run.On("Get", mock.Anything, mock.Anything).Run(func(args mock.Arguments) {
		*args.Get(1).(*service.SeatChangeResult) = service.ResultFromOutcome(booking.Booked(20, "B1"))
	}).Return(nil)

	result, err := NewChanger(c, "seat-queue").ChangeSeat(context.Background(), testChange)

	require.NoError(t, err)
	require.True(t, result.Success)
	c.AssertExpectations(t)
	run.AssertExpectations(t)
}

func TestChanger_WaitsPastCallerCancellation(t *testing.T) {
	c := new(temporalmocks.Client)
	run := new(temporalmocks.WorkflowRun)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	c.On("ExecuteWorkflow", mock.Anything, mock.Anything, mock.Anything, mock.Anything).Return(run, nil)
	run.On("Get", mock.MatchedBy(func(waitCtx context.Context) bool {
		_, hasDeadline := waitCtx.Deadline()
		return waitCtx.Err() == nil && hasDeadline
	}), mock.Anything).Run(func(args mock.Arguments) {
		*args.Get(1).(*service.SeatChangeResult) = service.ResultFromOutcome(booking.Booked(20, "B1"))
	}).Return(nil)

	result, err := NewChanger(c, "seat-queue").ChangeSeat(ctx, testChange)

	require.NoError(t, err)
	require.True(t, result.Success)
	run.AssertExpectations(t)
}

func TestChanger_StartFailure(t *testing.T) {
	c := new(temporalmocks.Client)
	c.On("ExecuteWorkflow", mock.Anything, mock.Anything, mock.Anything, mock.Anything).
		Return(nil, errors.New("frontend unavailable"))

	_, err := NewChanger(c, "seat-queue").ChangeSeat(context.Background(), testChange)

	require.ErrorContains(t, err, "failed to start seat change workflow")
}

func TestChanger_WorkflowFailure(t *testing.T) {
	c := new(temporalmocks.Client)
	run := new(temporalmocks.WorkflowRun)
	c.On("ExecuteWorkflow", mock.Anything, mock.Anything, mock.Anything, mock.Anything).Return(run, nil)
	run.On("Get", mock.Anything, mock.Anything).Return(errors.New("undo failed"))
	run.On("GetID").Return("seat-change-1-x")

	_, err := NewChanger(c, "seat-queue").ChangeSeat(context.Background(), testChange)

	require.ErrorContains(t, err, "seat-change-1-x")
}
