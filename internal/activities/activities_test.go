package activities

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.temporal.io/sdk/temporal"
	"go.temporal.io/sdk/testsuite"

	"github.com/srivastava-utkarsh/ticket-booking/internal/booking"
	"github.com/srivastava-utkarsh/ticket-booking/internal/service"
)

type mockSeatBooker struct {
	mock.Mock
}

func (m *mockSeatBooker) BookSeat(ctx context.Context, userID int, seatID string) booking.Outcome {
	return m.Called(ctx, userID, seatID).Get(0).(booking.Outcome)
}

func (m *mockSeatBooker) ReleaseSeat(ctx context.Context, userID int, seatID string, refund int64) booking.Outcome {
	return m.Called(ctx, userID, seatID, refund).Get(0).(booking.Outcome)
}

func newActivityEnv(t *testing.T, seats *mockSeatBooker) *testsuite.TestActivityEnvironment {
	t.Helper()
	var ts testsuite.WorkflowTestSuite
	env := ts.NewTestActivityEnvironment()
	acts := NewActivities(seats)
	env.RegisterActivity(acts)
	return env
}

func TestBookSeat_Success(t *testing.T) {
	seats := new(mockSeatBooker)
	seats.On("BookSeat", mock.Anything, 1, "B1").Return(booking.Booked(20, "B1"))
	env := newActivityEnv(t, seats)

	val, err := env.ExecuteActivity(BookSeatName, BookSeatInput{UserID: 1, SeatID: "B1"})
	require.NoError(t, err)

	var result service.SeatChangeResult
	require.NoError(t, val.Get(&result))
	assert.True(t, result.Success)
	assert.Equal(t, int64(20), result.Amount)
	assert.Equal(t, []string{"B1"}, result.Seats)
	seats.AssertExpectations(t)
}

func TestBookSeat_FailureIsAResult(t *testing.T) {
	seats := new(mockSeatBooker)
	seats.On("BookSeat", mock.Anything, 1, "B1").
		Return(booking.Failed(booking.KindInsufficientBalance, "insufficient balance"))
	env := newActivityEnv(t, seats)

	val, err := env.ExecuteActivity(BookSeatName, BookSeatInput{UserID: 1, SeatID: "B1"})
	require.NoError(t, err)

	var result service.SeatChangeResult
	require.NoError(t, val.Get(&result))
	assert.False(t, result.Success)
	assert.Equal(t, string(booking.KindInsufficientBalance), result.Kind)
}

func TestReleaseSeat(t *testing.T) {
	tests := []struct {
		name        string
		outcome     booking.Outcome
		wantErr     bool
		wantSuccess bool
	}{
		{name: "released", outcome: booking.Success(), wantSuccess: true},
		{name: "busy seat is retried", outcome: booking.Failed(booking.KindBusy, "seat A1 is busy"), wantErr: true},
		{name: "not held is final", outcome: booking.Failed(booking.KindNotHeld, "seat A1 is not held by user")},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			seats := new(mockSeatBooker)
			seats.On("ReleaseSeat", mock.Anything, 1, "A1", int64(20)).Return(tt.outcome)

			env := newActivityEnv(t, seats)

			val, err := env.ExecuteActivity(ReleaseSeatName, ReleaseSeatInput{UserID: 1, SeatID: "A1", Refund: 20})
			if tt.wantErr {
				var appErr *temporal.ApplicationError
				require.True(t, errors.As(err, &appErr))
				assert.Equal(t, string(booking.KindBusy), appErr.Type())
				return
			}
			require.NoError(t, err)

			var result service.SeatChangeResult
			require.NoError(t, val.Get(&result))
			assert.Equal(t, tt.wantSuccess, result.Success)
			seats.AssertExpectations(t)
		})
	}
}
