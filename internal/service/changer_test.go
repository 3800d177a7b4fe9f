package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/srivastava-utkarsh/ticket-booking/internal/booking"
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

func TestLocalChanger(t *testing.T) {
	change := SeatChange{UserID: 1, FromSeat: "A1", ToSeat: "B1", Refund: 20}

	tests := []struct {
		name        string
		setup       func(m *mockSeatBooker)
		wantSuccess bool
		wantKind    booking.Kind
		wantErr     bool
	}{
		{
			name: "books new then releases old",
			setup: func(m *mockSeatBooker) {
				m.On("BookSeat", mock.Anything, 1, "B1").Return(booking.Booked(20, "B1"))
				m.On("ReleaseSeat", mock.Anything, 1, "A1", int64(20)).Return(booking.Success())
			},
			wantSuccess: true,
		},
		{
			name: "old seat already released counts as done",
			setup: func(m *mockSeatBooker) {
				m.On("BookSeat", mock.Anything, 1, "B1").Return(booking.Booked(20, "B1"))
				m.On("ReleaseSeat", mock.Anything, 1, "A1", int64(20)).Return(booking.Failed(booking.KindNotHeld, "seat A1 is not held by account 1"))
			},
			wantSuccess: true,
		},
		{
			name: "new seat unavailable keeps old seat",
			setup: func(m *mockSeatBooker) {
				m.On("BookSeat", mock.Anything, 1, "B1").Return(booking.Failed(booking.KindAlreadyBooked, "seat B1 is already booked"))
			},
			wantKind: booking.KindAlreadyBooked,
		},
		{
			name: "old seat stuck undoes new booking",
			setup: func(m *mockSeatBooker) {
				m.On("BookSeat", mock.Anything, 1, "B1").Return(booking.Booked(20, "B1"))
				m.On("ReleaseSeat", mock.Anything, 1, "A1", int64(20)).Return(booking.Failed(booking.KindBusy, "seat A1 is busy, try again later"))
				m.On("ReleaseSeat", mock.Anything, 1, "B1", int64(20)).Return(booking.Success())
			},
			wantKind: booking.KindBusy,
		},
		{
			name: "undo fails too",
			setup: func(m *mockSeatBooker) {
				m.On("BookSeat", mock.Anything, 1, "B1").Return(booking.Booked(20, "B1"))
				m.On("ReleaseSeat", mock.Anything, 1, "A1", int64(20)).Return(booking.Failed(booking.KindBusy, "busy"))
				m.On("ReleaseSeat", mock.Anything, 1, "B1", int64(20)).Return(booking.Failed(booking.KindBusy, "busy"))
			},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			seats := new(mockSeatBooker)
			tt.setup(seats)

			result, err := NewLocalChanger(seats).ChangeSeat(context.Background(), change)
			if tt.wantErr {
				require.Error(t, err)
				seats.AssertExpectations(t)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.wantSuccess, result.Success)
			if !tt.wantSuccess {
				assert.Equal(t, string(tt.wantKind), result.Kind)
			}
			seats.AssertExpectations(t)
		})
	}
}
