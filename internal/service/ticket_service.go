package service

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"sort"
	"strconv"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/srivastava-utkarsh/ticket-booking/internal/booking"
	"github.com/srivastava-utkarsh/ticket-booking/internal/database"
	"github.com/srivastava-utkarsh/ticket-booking/internal/events"
	"github.com/srivastava-utkarsh/ticket-booking/internal/models"
	"github.com/srivastava-utkarsh/ticket-booking/internal/websocket"
)

// SeatNotifier receives seat state changes for live listeners
type SeatNotifier interface {
	BroadcastSeatUpdate(seats ...websocket.SeatUpdate)
}

// passenger pairs an account with profile data and the current ticket.
// opMu serializes purchase, seat change and deletion for one user.
type passenger struct {
	account   *booking.Account
	firstName string
	lastName  string
	email     string

	opMu    sync.Mutex
	deleted bool
	ticket  atomic.Pointer[models.Ticket]
}

// Service implements TicketService on top of the booking engine
type Service struct {
	registry *booking.Registry
	engine   *booking.Engine
	from, to string

	ledger    database.Ledger
	publisher events.Publisher
	notifier  SeatNotifier
	changer   SeatChanger
	logger    *slog.Logger

	mu    sync.RWMutex
	users map[int]*passenger
}

// Option configures a Service
type Option func(*Service)

// WithLedger records every booking attempt in l
func WithLedger(l database.Ledger) Option {
	return func(s *Service) { s.ledger = l }
}

// WithPublisher sends ticket events to p
func WithPublisher(p events.Publisher) Option {
	return func(s *Service) { s.publisher = p }
}

// WithNotifier pushes seat changes to live listeners
func WithNotifier(n SeatNotifier) Option {
	return func(s *Service) { s.notifier = n }
}

func WithLogger(l *slog.Logger) Option {
	return func(s *Service) { s.logger = l }
}

// WithRoute sets the stations printed on tickets when a request omits them
func WithRoute(from, to string) Option {
	return func(s *Service) { s.from, s.to = from, to }
}

// WithSeatChanger replaces the in-process seat change
func WithSeatChanger(c SeatChanger) Option {
	return func(s *Service) { s.changer = c }
}

// NewService creates a service with one passenger per registry account
func NewService(registry *booking.Registry, engine *booking.Engine, opts ...Option) *Service {
	s := &Service{
		registry:  registry,
		engine:    engine,
		from:      models.DefaultFrom,
		to:        models.DefaultTo,
		ledger:    database.NewMemoryLedger(),
		publisher: events.NopPublisher{},
		logger:    slog.New(slog.NewTextHandler(io.Discard, nil)),
		users:     make(map[int]*passenger),
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.changer == nil {
		s.changer = &LocalChanger{seats: s}
	}

	for _, a := range registry.Accounts() {
		n := strconv.Itoa(a.ID())
		s.users[a.ID()] = &passenger{
			account:   a,
			firstName: "User_" + n,
			lastName:  "last_name" + n,
			email:     "user_" + n + "@test.com",
		}
	}
	return s
}

// SetSeatChanger swaps the seat changer after construction. The Temporal
// changer needs the service to exist before its worker can start.
func (s *Service) SetSeatChanger(c SeatChanger) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.changer = c
}

func (s *Service) seatChanger() SeatChanger {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.changer
}

func (s *Service) user(userID int) (*passenger, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	p, ok := s.users[userID]
	return p, ok
}

// lockUser returns the passenger with its operation lock held
func (s *Service) lockUser(userID int) (*passenger, error) {
	p, ok := s.user(userID)
	if !ok {
		return nil, ErrUserNotFound
	}
	p.opMu.Lock()
	if p.deleted {
		p.opMu.Unlock()
		return nil, ErrUserNotFound
	}
	return p, nil
}

func (s *Service) PurchaseTicket(ctx context.Context, req models.TicketRequest) (*models.TicketResponse, error) {
	p, err := s.lockUser(req.UserID)
	if err != nil {
		return nil, err
	}
	defer p.opMu.Unlock()

	if held := p.ticket.Load(); held != nil {
		return nil, fmt.Errorf("%w: seat %s", ErrAlreadyTicketed, held.SeatNumber)
	}
	return s.purchase(ctx, p, req), nil
}

// purchase runs with p.opMu held
func (s *Service) purchase(ctx context.Context, p *passenger, req models.TicketRequest) *models.TicketResponse {
	if req.From == "" {
		req.From = s.from
	}
	if req.To == "" {
		req.To = s.to
	}

	out := s.engine.Book(ctx, p.account, req.SeatID)
	s.record(ctx, p, models.LedgerPurchase, req.SeatID, "", out)
	if !out.Success() {
		return failedResponse(out, p)
	}

	ticket := &models.Ticket{
		ID:         uuid.NewString(),
		From:       req.From,
		To:         req.To,
		Price:      out.Amount(),
		SeatNumber: req.SeatID,
		Section:    s.section(req.SeatID),
		UserID:     p.account.ID(),
		FirstName:  p.firstName,
		LastName:   p.lastName,
		Email:      p.email,
		IssuedAt:   time.Now().UTC(),
	}
	p.ticket.Store(ticket)

	s.publish(ctx, events.TicketEvent{
		Type:     events.TicketPurchased,
		TicketID: ticket.ID,
		UserID:   ticket.UserID,
		Email:    ticket.Email,
		SeatID:   ticket.SeatNumber,
		Amount:   ticket.Price,
	})
	s.notify(req.SeatID)

	return &models.TicketResponse{
		TransactionStatus: models.TransactionSuccess,
		Message:           "ticket purchased successfully",
		Ticket:            copyTicket(ticket),
		User:              p.view(),
	}
}

func (s *Service) ModifySeat(ctx context.Context, userID int, seatID string) (*models.TicketResponse, error) {
	p, err := s.lockUser(userID)
	if err != nil {
		return nil, err
	}
	defer p.opMu.Unlock()

	current := p.ticket.Load()
	if current == nil {
		return s.purchase(ctx, p, models.TicketRequest{UserID: userID, SeatID: seatID}), nil
	}
	if current.SeatNumber == seatID {
		return failedResponse(booking.Failed(booking.KindAlreadyBooked, "cannot book same ticket again"), p), nil
	}

	result, err := s.seatChanger().ChangeSeat(ctx, SeatChange{
		UserID:   userID,
		FromSeat: current.SeatNumber,
		ToSeat:   seatID,
		Refund:   current.Price,
	})
	if err != nil {
		if !s.movedTo(p, current.SeatNumber, seatID) {
			return nil, fmt.Errorf("%w: %v", ErrSeatChangeFailed, err)
		}
		// the change went through even though its result did not reach us
		s.logger.Warn("seat change reported an error after completing",
			"user", userID, "from", current.SeatNumber, "to", seatID, "error", err)
		result = ResultFromOutcome(booking.Booked(s.engine.Price(), seatID))
	}

	out := result.Outcome()
	s.record(ctx, p, models.LedgerSeatChange, seatID, current.SeatNumber, out)
	if !out.Success() {
		return failedResponse(out, p), nil
	}

	updated := *current
	updated.SeatNumber = seatID
	updated.Section = s.section(seatID)
	updated.Price = out.Amount()
	updated.IssuedAt = time.Now().UTC()
	p.ticket.Store(&updated)

	s.publish(ctx, events.TicketEvent{
		Type:         events.TicketSeatChanged,
		TicketID:     updated.ID,
		UserID:       userID,
		Email:        updated.Email,
		SeatID:       seatID,
		PreviousSeat: current.SeatNumber,
		Amount:       updated.Price,
	})
	s.notify(current.SeatNumber, seatID)

	return &models.TicketResponse{
		TransactionStatus: models.TransactionSuccess,
		Message:           "seat changed successfully",
		Ticket:            copyTicket(&updated),
		User:              p.view(),
	}, nil
}

func (s *Service) Receipt(ctx context.Context, userID int) (*models.Ticket, error) {
	p, ok := s.user(userID)
	if !ok {
		return nil, ErrUserNotFound
	}
	ticket := p.ticket.Load()
	if ticket == nil {
		return nil, ErrTicketNotFound
	}
	return copyTicket(ticket), nil
}

func (s *Service) GetUser(ctx context.Context, userID int) (*models.User, error) {
	p, ok := s.user(userID)
	if !ok {
		return nil, ErrUserNotFound
	}
	return p.view(), nil
}

func (s *Service) ListUsers(ctx context.Context) []*models.User {
	s.mu.RLock()
	users := make([]*models.User, 0, len(s.users))
	for _, p := range s.users {
		users = append(users, p.view())
	}
	s.mu.RUnlock()

	sort.Slice(users, func(i, j int) bool { return users[i].ID < users[j].ID })
	return users
}

func (s *Service) ListSeats(ctx context.Context, section string) []*models.Seat {
	seats := make([]*models.Seat, 0)
	for _, seat := range s.registry.Seats() {
		view := seat.Snapshot()
		if section != "" && view.Section != section {
			continue
		}
		seats = append(seats, &models.Seat{
			ID:         view.ID,
			Section:    view.Section,
			Available:  view.Available,
			ReservedBy: view.HolderID,
		})
	}
	return seats
}

// DeleteUser releases the user's seat, if any, and removes the user. The
// ticket price is not refunded.
func (s *Service) DeleteUser(ctx context.Context, userID int) error {
	p, err := s.lockUser(userID)
	if err != nil {
		return err
	}
	defer p.opMu.Unlock()

	if ticket := p.ticket.Load(); ticket != nil {
		out := s.engine.Release(ctx, p.account, ticket.SeatNumber)
		s.record(ctx, p, models.LedgerRelease, ticket.SeatNumber, "", out)
		if !out.Success() && out.Kind() != booking.KindNotHeld {
			return fmt.Errorf("%w: %s", ErrSeatNotReleased, out.Reason())
		}
		p.ticket.Store(nil)
		s.publish(ctx, events.TicketEvent{
			Type:     events.TicketReleased,
			TicketID: ticket.ID,
			UserID:   userID,
			Email:    ticket.Email,
			SeatID:   ticket.SeatNumber,
		})
		s.notify(ticket.SeatNumber)
	}

	p.deleted = true
	s.mu.Lock()
	delete(s.users, userID)
	s.mu.Unlock()
	s.registry.RemoveAccount(userID)

	s.logger.Info("user deleted", "user", userID)
	return nil
}

func (s *Service) History(ctx context.Context, userID, limit int) ([]models.LedgerEntry, error) {
	if _, ok := s.user(userID); !ok {
		return nil, ErrUserNotFound
	}
	entries, err := s.ledger.ListByUser(ctx, userID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to load history: %w", err)
	}
	return entries, nil
}

// BookSeat books seatID for the user without touching their ticket
func (s *Service) BookSeat(ctx context.Context, userID int, seatID string) booking.Outcome {
	p, ok := s.user(userID)
	if !ok {
		return booking.Failed(booking.KindNotFound, "user not found")
	}
	return s.engine.Book(ctx, p.account, seatID)
}

// ReleaseSeat frees seatID if the user holds it and credits refund back
func (s *Service) ReleaseSeat(ctx context.Context, userID int, seatID string, refund int64) booking.Outcome {
	p, ok := s.user(userID)
	if !ok {
		return booking.Failed(booking.KindNotFound, "user not found")
	}
	out := s.engine.Release(ctx, p.account, seatID)
	if out.Success() && refund > 0 {
		p.account.Credit(refund)
		s.logger.Info("seat change refund issued", "user", userID, "seat", seatID, "amount", refund)
	}
	return out
}

// movedTo reports whether p now holds to and no longer holds from
func (s *Service) movedTo(p *passenger, from, to string) bool {
	newSeat, ok := s.registry.Seat(to)
	if !ok || newSeat.Holder() != p.account {
		return false
	}
	oldSeat, ok := s.registry.Seat(from)
	return !ok || oldSeat.Holder() != p.account
}

func (s *Service) section(seatID string) string {
	if seat, ok := s.registry.Seat(seatID); ok {
		return seat.Section()
	}
	return ""
}

func (s *Service) record(ctx context.Context, p *passenger, action models.LedgerAction, seatID, previous string, out booking.Outcome) {
	entry := models.LedgerEntry{
		UserID:       p.account.ID(),
		Action:       action,
		SeatID:       seatID,
		PreviousSeat: previous,
		Success:      out.Success(),
		Kind:         string(out.Kind()),
		Reason:       out.Reason(),
		Amount:       out.Amount(),
	}
	if err := s.ledger.Record(ctx, entry); err != nil {
		s.logger.Warn("failed to record ledger entry", "user", entry.UserID, "action", action, "error", err)
	}
}

func (s *Service) publish(ctx context.Context, event events.TicketEvent) {
	if err := s.publisher.Publish(ctx, event); err != nil {
		s.logger.Warn("failed to publish ticket event", "type", event.Type, "user", event.UserID, "error", err)
	}
}

func (s *Service) notify(seatIDs ...string) {
	if s.notifier == nil {
		return
	}
	updates := make([]websocket.SeatUpdate, 0, len(seatIDs))
	for _, id := range seatIDs {
		seat, ok := s.registry.Seat(id)
		if !ok {
			continue
		}
		view := seat.Snapshot()
		status := "available"
		if !view.Available {
			status = "booked"
		}
		updates = append(updates, websocket.SeatUpdate{
			SeatID:     view.ID,
			Section:    view.Section,
			Status:     status,
			ReservedBy: view.HolderID,
		})
	}
	s.notifier.BroadcastSeatUpdate(updates...)
}

func (p *passenger) view() *models.User {
	u := &models.User{
		ID:        p.account.ID(),
		FirstName: p.firstName,
		LastName:  p.lastName,
		Email:     p.email,
		Balance:   p.account.Balance(),
	}
	if ticket := p.ticket.Load(); ticket != nil {
		u.SeatNumber = ticket.SeatNumber
	}
	return u
}

func failedResponse(out booking.Outcome, p *passenger) *models.TicketResponse {
	return &models.TicketResponse{
		TransactionStatus: models.TransactionFailed,
		Message:           out.Reason(),
		Kind:              string(out.Kind()),
		Retryable:         out.Retryable(),
		User:              p.view(),
	}
}

func copyTicket(t *models.Ticket) *models.Ticket {
	c := *t
	return &c
}
