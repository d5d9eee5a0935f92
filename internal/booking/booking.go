// Package booking implements the traveller flow: find a trip between two
// stations, pick one of your passengers and a free seat, and pay.
package booking

import (
	"context"
	"strconv"

	"railctl/internal/api"
	"railctl/internal/binding"
	"railctl/internal/errors"
	"railctl/internal/filter"
	"railctl/internal/log"
	"railctl/internal/resources"

	"golang.org/x/sync/errgroup"
)

// Service talks to the booking endpoints as the signed-in user.
type Service struct {
	client *api.Client
}

// New returns a Service using c.
func New(c *api.Client) *Service {
	return &Service{client: c}
}

// Search lists trips whose route runs between stations named like
// q.From and q.To, optionally on q.Date.
func (s *Service) Search(ctx context.Context, q resources.ScheduleSearch) ([]resources.Schedule, error) {
	if err := binding.Validate(&q); err != nil {
		return nil, err
	}
	var out []resources.Schedule
	if err := s.client.Get(ctx, "schedules/search", filter.Encode(q.State()), &out); err != nil {
		return nil, err
	}
	if out == nil {
		out = []resources.Schedule{}
	}
	return out, nil
}

// Find returns the trip with id among the search results for q.
func (s *Service) Find(ctx context.Context, q resources.ScheduleSearch, id int64) (resources.Schedule, error) {
	found, err := s.Search(ctx, q)
	if err != nil {
		return resources.Schedule{}, err
	}
	for _, sc := range found {
		if sc.ID == id {
			return sc, nil
		}
	}
	return resources.Schedule{}, errors.NewValidationError("scheduleId",
		"trip "+strconv.FormatInt(id, 10)+" is not among the trips from "+q.From+" to "+q.To, nil)
}

// Options are the choices for buying a ticket on one trip.
type Options struct {
	Schedule   resources.Schedule
	Passengers []resources.Passenger
	Seats      []resources.Seat
}

// Prepare loads the user's passengers and the trip's free seats in
// parallel. Either failure fails the whole step.
func (s *Service) Prepare(ctx context.Context, schedule resources.Schedule) (Options, error) {
	opts := Options{Schedule: schedule}
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		p, err := s.Passengers(gctx)
		opts.Passengers = p
		return err
	})
	g.Go(func() error {
		seats, err := s.AvailableSeats(gctx, schedule.ID)
		opts.Seats = seats
		return err
	})
	if err := g.Wait(); err != nil {
		return Options{}, err
	}
	return opts, nil
}

// Passengers lists the passengers the user registered.
func (s *Service) Passengers(ctx context.Context) ([]resources.Passenger, error) {
	var out []resources.Passenger
	if err := s.client.Get(ctx, "user/passengers", nil, &out); err != nil {
		return nil, err
	}
	if out == nil {
		out = []resources.Passenger{}
	}
	return out, nil
}

// AvailableSeats lists the unsold seats of a trip.
func (s *Service) AvailableSeats(ctx context.Context, scheduleID int64) ([]resources.Seat, error) {
	var out []resources.Seat
	if err := s.client.Get(ctx, "schedules/"+strconv.FormatInt(scheduleID, 10)+"/available-seats", nil, &out); err != nil {
		return nil, err
	}
	if out == nil {
		out = []resources.Seat{}
	}
	return out, nil
}

// AddPassenger registers a passenger under the user's account. The input
// is validated before anything is sent.
func (s *Service) AddPassenger(ctx context.Context, in resources.PassengerInput) (resources.Passenger, error) {
	if err := binding.Validate(&in); err != nil {
		return resources.Passenger{}, err
	}
	var out resources.Passenger
	if err := s.client.Post(ctx, "user/passengers", in, &out); err != nil {
		return resources.Passenger{}, err
	}
	return out, nil
}

// Order is a ticket about to be bought.
type Order struct {
	Schedule  resources.Schedule
	Passenger resources.Passenger
	Seat      resources.Seat
}

// Ticket returns the payload for o: the trip's base price, paid, no luggage.
func (o Order) Ticket() resources.TicketInput {
	return resources.TicketInput{
		ScheduleID:   o.Schedule.ID,
		PassengerID:  o.Passenger.ID,
		SeatID:       o.Seat.ID,
		Price:        o.Schedule.BasePrice,
		TicketStatus: resources.TicketPaid,
	}
}

// Summary describes o for a confirmation prompt.
func (o Order) Summary() string {
	return "Buy a ticket on " + Describe(o.Schedule) + " for " + o.Passenger.FullName() +
		", seat " + o.Seat.SeatNumber + ", " + o.Schedule.BasePrice.StringFixed(2) + "?"
}

// Order picks the passenger and seat by id out of opts.
func (opts Options) Order(passengerID, seatID int64) (Order, error) {
	o := Order{Schedule: opts.Schedule}
	found := false
	for _, p := range opts.Passengers {
		if p.ID == passengerID {
			o.Passenger, found = p, true
		}
	}
	if !found {
		return Order{}, errors.NewValidationError("passengerId", "passenger "+strconv.FormatInt(passengerID, 10)+" is not one of yours", nil)
	}
	found = false
	for _, seat := range opts.Seats {
		if seat.ID == seatID {
			o.Seat, found = seat, true
		}
	}
	if !found {
		return Order{}, errors.NewValidationError("seatId", "seat "+strconv.FormatInt(seatID, 10)+" is not available on this trip", nil)
	}
	return o, nil
}

// Buy purchases the ticket for o.
func (s *Service) Buy(ctx context.Context, o Order) (resources.Ticket, error) {
	t, err := api.NewResource[resources.Ticket](s.client, "tickets").Create(ctx, o.Ticket())
	if err != nil {
		return resources.Ticket{}, err
	}
	log.LogWithFields(log.F("ticket", t.ID), log.F("schedule", o.Schedule.ID)).Info("ticket purchased")
	return t, nil
}

// Tickets lists the tickets bought for the user's passengers.
func (s *Service) Tickets(ctx context.Context) ([]resources.Ticket, error) {
	var out []resources.Ticket
	if err := s.client.Get(ctx, "user/tickets", nil, &out); err != nil {
		return nil, err
	}
	if out == nil {
		out = []resources.Ticket{}
	}
	return out, nil
}

// Describe renders a trip as "702A Northgate Central → Harbor Terminal, 2026-12-01 07:15".
func Describe(sc resources.Schedule) string {
	from, to := "?", "?"
	if sc.Route != nil {
		if sc.Route.StartStation != nil {
			from = sc.Route.StartStation.Name
		}
		if sc.Route.EndStation != nil {
			to = sc.Route.EndStation.Name
		}
	}
	return sc.TrainNumber + " " + from + " → " + to + ", " + sc.DepartureTime.Format("2006-01-02 15:04")
}
