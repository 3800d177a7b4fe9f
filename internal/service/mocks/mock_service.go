package mocks

import (
	"context"

	"github.com/stretchr/testify/mock"

	"github.com/srivastava-utkarsh/ticket-booking/internal/models"
)

// MockTicketService is a mock implementation of TicketService
type MockTicketService struct {
	mock.Mock
}

func (m *MockTicketService) PurchaseTicket(ctx context.Context, req models.TicketRequest) (*models.TicketResponse, error) {
	args := m.Called(ctx, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.TicketResponse), args.Error(1)
}

func (m *MockTicketService) ModifySeat(ctx context.Context, userID int, seatID string) (*models.TicketResponse, error) {
	args := m.Called(ctx, userID, seatID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.TicketResponse), args.Error(1)
}

func (m *MockTicketService) Receipt(ctx context.Context, userID int) (*models.Ticket, error) {
	args := m.Called(ctx, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Ticket), args.Error(1)
}

func (m *MockTicketService) GetUser(ctx context.Context, userID int) (*models.User, error) {
	args := m.Called(ctx, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.User), args.Error(1)
}

func (m *MockTicketService) ListUsers(ctx context.Context) []*models.User {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil
	}
	return args.Get(0).([]*models.User)
}

func (m *MockTicketService) ListSeats(ctx context.Context, section string) []*models.Seat {
	args := m.Called(ctx, section)
	if args.Get(0) == nil {
		return nil
	}
	return args.Get(0).([]*models.Seat)
}

func (m *MockTicketService) DeleteUser(ctx context.Context, userID int) error {
	args := m.Called(ctx, userID)
	return args.Error(0)
}

func (m *MockTicketService) History(ctx context.Context, userID, limit int) ([]models.LedgerEntry, error) {
	args := m.Called(ctx, userID, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]models.LedgerEntry), args.Error(1)
}
