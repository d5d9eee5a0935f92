package fakeapi

import (
	"strings"

	"railctl/internal/errors"
	"railctl/internal/resources"
	"railctl/pkg/types"
)

func (s *Store) defineTravel() {
	s.schedules = &collection[resources.Schedule, resources.ScheduleInput]{
		name: "schedules",
		rows: newTable[resources.ScheduleInput](),
		expand: func(id int64, in resources.ScheduleInput) resources.Schedule {
			sc := resources.Schedule{
				ID:            id,
				TrainNumber:   in.TrainNumber,
				Train:         s.trains.find(in.TrainID),
				Type:          s.trainTypes.findOpt(in.TypeID),
				Route:         s.routes.find(in.RouteID),
				DepartureTime: in.DepartureTime,
				ArrivalTime:   in.ArrivalTime,
				BasePrice:     in.BasePrice,
				TrainStatus:   in.TrainStatus,
			}
			for _, t := range s.tickets.rows.rows {
				if t.ScheduleID != id {
					continue
				}
				sc.TotalTickets++
				switch t.TicketStatus {
				case resources.TicketPaid:
					sc.PaidTickets++
				case resources.TicketReturned:
					sc.ReturnedTickets++
				}
			}
			return sc
		},
		check: func(_ int64, in resources.ScheduleInput) error {
			if err := resources.NotBefore("arrivalTime", "departureTime", in.DepartureTime, in.ArrivalTime); err != nil {
				return err
			}
			switch {
			case !s.trains.exists(in.TrainID):
				return missing("trainId", in.TrainID)
			case in.TypeID != nil && !s.trainTypes.exists(*in.TypeID):
				return missing("typeId", *in.TypeID)
			case !s.routes.exists(in.RouteID):
				return missing("routeId", in.RouteID)
			}
			return nil
		},
		match: where(func(f resources.ScheduleFilter, sc resources.Schedule) bool {
			switch {
			case f.RouteID != 0 && idOf(sc.Route) != f.RouteID:
				return false
			case f.TrainStatus != "" && sc.TrainStatus != f.TrainStatus:
				return false
			case !inRange(&sc.BasePrice, f.MinPrice, f.MaxPrice):
				return false
			}
			return f.MinReturnedTickets == nil || sc.ReturnedTickets >= *f.MinReturnedTickets
		}),
	}

	s.passengers = &collection[resources.Passenger, resources.PassengerInput]{
		name: "passengers",
		rows: newTable[resources.PassengerInput](),
		expand: func(id int64, in resources.PassengerInput) resources.Passenger {
			return resources.Passenger{
				ID:             id,
				FirstName:      in.FirstName,
				LastName:       in.LastName,
				MiddleName:     in.MiddleName,
				BirthDate:      in.BirthDate,
				Gender:         in.Gender,
				PassportSeries: in.PassportSeries,
				PassportNumber: in.PassportNumber,
				Email:          in.Email,
				PhoneNumber:    in.PhoneNumber,
			}
		},
	}

	s.luggage = &collection[resources.Luggage, resources.LuggageInput]{
		name: "luggage",
		rows: newTable[resources.LuggageInput](),
		expand: func(id int64, in resources.LuggageInput) resources.Luggage {
			return resources.Luggage{ID: id, WeightKg: in.WeightKg, Pieces: in.Pieces, Status: in.Status}
		},
	}

	s.tickets = &collection[resources.Ticket, ticketRow]{
		name: "tickets",
		rows: newTable[ticketRow](),
		expand: func(id int64, in ticketRow) resources.Ticket {
			return resources.Ticket{
				ID:           id,
				Schedule:     s.schedules.find(in.ScheduleID),
				Passenger:    s.passengers.find(in.PassengerID),
				Seat:         s.seats.find(in.SeatID),
				Luggage:      s.luggage.findOpt(in.LuggageID),
				Price:        in.Price,
				TicketStatus: in.TicketStatus,
				PurchaseDate: types.DateTime{Time: in.PurchaseDate},
			}
		},
		check: func(id int64, in ticketRow) error {
			switch {
			case !s.schedules.exists(in.ScheduleID):
				return missing("scheduleId", in.ScheduleID)
			case !s.passengers.exists(in.PassengerID):
				return missing("passengerId", in.PassengerID)
			case !s.seats.exists(in.SeatID):
				return missing("seatId", in.SeatID)
			case in.LuggageID != nil && !s.luggage.exists(*in.LuggageID):
				return missing("luggageId", *in.LuggageID)
			}
			if in.TicketStatus != resources.TicketReturned && s.seatTaken(in.ScheduleID, in.SeatID, id) {
				return errors.NewValidationError("seatId", "seat "+itoa(in.SeatID)+" is already sold for this trip", nil)
			}
			return nil
		},
		admit: func(in ticketRow, prev *ticketRow) ticketRow {
			if prev != nil {
				in.PurchaseDate = prev.PurchaseDate
			} else {
				in.PurchaseDate = s.now()
			}
			return in
		},
		match: where(func(f resources.TicketFilter, t resources.Ticket) bool {
			var route *resources.Route
			if t.Schedule != nil {
				route = t.Schedule.Route
			}
			switch {
			case f.RouteID != 0 && idOf(route) != f.RouteID:
				return false
			case f.ScheduleID != 0 && idOf(t.Schedule) != f.ScheduleID:
				return false
			case f.TicketStatus != "" && t.TicketStatus != f.TicketStatus:
				return false
			case !inRange(&t.Price, f.MinPrice, f.MaxPrice):
				return false
			case (f.MinDistance != nil || f.MaxDistance != nil) && (route == nil || !inRange(route.DistanceKm, f.MinDistance, f.MaxDistance)):
				return false
			case !inDates(t.PurchaseDate.Time, f.PurchaseDateFrom, f.PurchaseDateTo):
				return false
			}
			return f.DepartureDate.IsZero() || (t.Schedule != nil && sameDay(t.Schedule.DepartureTime.Time, f.DepartureDate))
		}),
	}
}

// seatTaken reports whether another live ticket holds seat on schedule.
func (s *Store) seatTaken(schedule, seat, except int64) bool {
	for id, t := range s.tickets.rows.rows {
		if id != except && t.ScheduleID == schedule && t.SeatID == seat && t.TicketStatus != resources.TicketReturned {
			return true
		}
	}
	return false
}

// availableSeats lists the free seats of the schedule's train.
func (s *Store) availableSeats(schedule int64) []resources.Seat {
	sc, ok := s.schedules.rows.rows[schedule]
	if !ok {
		return nil
	}
	out := []resources.Seat{}
	for _, seat := range s.seats.all() {
		if !seat.IsAvailable || seat.Car == nil || idOf(seat.Car.Train) != sc.TrainID {
			continue
		}
		if !s.seatTaken(schedule, seat.ID, 0) {
			out = append(out, seat)
		}
	}
	return out
}

// search finds schedules whose route runs between stations named like
// from and to, optionally departing on a given day.
func (s *Store) search(q resources.ScheduleSearch) []resources.Schedule {
	out := []resources.Schedule{}
	like := func(st *resources.Station, name string) bool {
		return st != nil && strings.Contains(strings.ToLower(st.Name), strings.ToLower(strings.TrimSpace(name)))
	}
	for _, sc := range s.schedules.all() {
		if sc.Route == nil || sc.TrainStatus == "cancelled" {
			continue
		}
		if !like(sc.Route.StartStation, q.From) || !like(sc.Route.EndStation, q.To) {
			continue
		}
		if !q.Date.IsZero() && !sameDay(sc.DepartureTime.Time, q.Date) {
			continue
		}
		out = append(out, sc)
	}
	return out
}

// returned counts returned tickets matching f.
func (s *Store) returned(f resources.ReturnedTicketsFilter) int {
	n := 0
	for _, t := range s.tickets.all() {
		if t.TicketStatus != resources.TicketReturned || t.Schedule == nil {
			continue
		}
		switch {
		case f.ScheduleID != 0 && t.Schedule.ID != f.ScheduleID:
			continue
		case f.RouteID != 0 && idOf(t.Schedule.Route) != f.RouteID:
			continue
		case !f.DepartureDate.IsZero() && !sameDay(t.Schedule.DepartureTime.Time, f.DepartureDate):
			continue
		}
		n++
	}
	return n
}
