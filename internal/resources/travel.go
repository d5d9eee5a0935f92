package resources

import (
	"fmt"
	"strings"
	"time"

	"railctl/internal/console"
	"railctl/internal/filter"
	"railctl/internal/resolve"
	"railctl/pkg/types"

	"github.com/shopspring/decimal"
)

// Ticket states.
const (
	TicketBooked   = "booked"
	TicketPaid     = "paid"
	TicketReturned = "returned"
	TicketUsed     = "used"
)

type Schedule struct {
	ID              int64           `json:"id"`
	TrainNumber     string          `json:"trainNumber"`
	Train           *Train          `json:"train,omitempty"`
	Type            *TrainType      `json:"type,omitempty"`
	Route           *Route          `json:"route,omitempty"`
	DepartureTime   types.DateTime  `json:"departureTime"`
	ArrivalTime     types.DateTime  `json:"arrivalTime"`
	BasePrice       decimal.Decimal `json:"basePrice"`
	TrainStatus     string          `json:"trainStatus"`
	TotalTickets    int             `json:"totalTickets"`
	PaidTickets     int             `json:"paidTickets"`
	ReturnedTickets int             `json:"returnedTickets"`
}

func (s Schedule) EntityID() int64 { return s.ID }

// Label is "<train number> <route> <departure>".
func (s Schedule) Label() string {
	parts := []string{s.TrainNumber}
	if s.Route != nil {
		parts = append(parts, s.Route.Name)
	}
	if !s.DepartureTime.IsZero() {
		parts = append(parts, s.DepartureTime.String())
	}
	return strings.Join(parts, " ")
}

type ScheduleInput struct {
	TrainNumber   string          `json:"trainNumber" form:"trainNumber" validate:"required,max=10"`
	TrainID       int64           `json:"trainId" form:"trainId" validate:"required"`
	TypeID        *int64          `json:"typeId" form:"typeId"`
	RouteID       int64           `json:"routeId" form:"routeId" validate:"required"`
	DepartureTime types.DateTime  `json:"departureTime" form:"departureTime" validate:"required"`
	ArrivalTime   types.DateTime  `json:"arrivalTime" form:"arrivalTime" validate:"required"`
	BasePrice     decimal.Decimal `json:"basePrice" form:"basePrice" validate:"gt=0"`
	TrainStatus   string          `json:"trainStatus" form:"trainStatus" validate:"required,oneof=scheduled delayed cancelled completed en_route"`
}

type ScheduleFilter struct {
	RouteID            int64            `form:"routeId"`
	TrainStatus        string           `form:"trainStatus" validate:"omitempty,oneof=scheduled delayed cancelled completed en_route"`
	MinPrice           *decimal.Decimal `form:"minPrice" validate:"omitempty,gte=0"`
	MaxPrice           *decimal.Decimal `form:"maxPrice" validate:"omitempty,gte=0"`
	MinReturnedTickets *int             `form:"minReturnedTickets" validate:"omitempty,gte=0"`
}

func (f ScheduleFilter) State() filter.State {
	return filter.State{}.
		With("routeId", filter.ID(f.RouteID)).
		With("trainStatus", filter.Match(f.TrainStatus)).
		With("price", filter.Between(f.MinPrice, f.MaxPrice)).
		With("returnedTickets", filter.AtLeast(bound(f.MinReturnedTickets)))
}

func schedules() Descriptor {
	return define("travel", console.Spec[Schedule, ScheduleInput]{
		Resource:      "schedules",
		Noun:          "schedule",
		Dependencies:  []string{"trains", "train-types", "routes"},
		Describe:      Schedule.Label,
		DescribeInput: func(in ScheduleInput) string { return in.TrainNumber },
		Blank:         func() ScheduleInput { return ScheduleInput{TrainStatus: "scheduled"} },
		Draft: func(s Schedule) ScheduleInput {
			return ScheduleInput{
				TrainNumber:   s.TrainNumber,
				TrainID:       idOf(s.Train),
				TypeID:        optionalID(s.Type),
				RouteID:       idOf(s.Route),
				DepartureTime: s.DepartureTime,
				ArrivalTime:   s.ArrivalTime,
				BasePrice:     s.BasePrice,
				TrainStatus:   s.TrainStatus,
			}
		},
		Validate: func(in ScheduleInput, deps resolve.Set) error {
			if err := NotBefore("arrivalTime", "departureTime", in.DepartureTime, in.ArrivalTime); err != nil {
				return err
			}
			if _, err := requireRef[Train](deps, "trains", "trainId", in.TrainID, false); err != nil {
				return err
			}
			if in.TypeID != nil {
				if _, err := requireRef[TrainType](deps, "train-types", "typeId", *in.TypeID, false); err != nil {
					return err
				}
			}
			_, err := requireRef[Route](deps, "routes", "routeId", in.RouteID, false)
			return err
		},
		Choices: func(deps resolve.Set) map[string][]console.Choice {
			return map[string][]console.Choice{
				"trainId": choices(deps, "trains", func(t Train) string { return t.Model }),
				"typeId":  choices(deps, "train-types", func(t TrainType) string { return t.Name }),
				"routeId": choices(deps, "routes", func(r Route) string { return r.Name }),
			}
		},
	}, filters[ScheduleFilter](), false)
}

type Passenger struct {
	ID             int64      `json:"id"`
	FirstName      string     `json:"firstName"`
	LastName       string     `json:"lastName"`
	MiddleName     string     `json:"middleName,omitempty"`
	BirthDate      types.Date `json:"birthDate"`
	Gender         string     `json:"gender,omitempty"`
	PassportSeries string     `json:"passportSeries"`
	PassportNumber string     `json:"passportNumber"`
	Email          string     `json:"email,omitempty"`
	PhoneNumber    string     `json:"phoneNumber,omitempty"`
}

func (p Passenger) EntityID() int64 { return p.ID }

// FullName is "Last First Middle".
func (p Passenger) FullName() string {
	return strings.Join(strings.Fields(p.LastName+" "+p.FirstName+" "+p.MiddleName), " ")
}

type PassengerInput struct {
	FirstName      string     `json:"firstName" form:"firstName" validate:"required,max=100"`
	LastName       string     `json:"lastName" form:"lastName" validate:"required,max=100"`
	MiddleName     string     `json:"middleName" form:"middleName" validate:"max=100"`
	BirthDate      types.Date `json:"birthDate" form:"birthDate" validate:"required"`
	Gender         string     `json:"gender" form:"gender" validate:"omitempty,oneof=M F"`
	PassportSeries string     `json:"passportSeries" form:"passportSeries" validate:"required,max=10"`
	PassportNumber string     `json:"passportNumber" form:"passportNumber" validate:"required,max=20"`
	Email          string     `json:"email" form:"email" validate:"omitempty,email"`
	PhoneNumber    string     `json:"phoneNumber" form:"phoneNumber" validate:"omitempty,e164"`
}

// PassengerDraft converts a stored passenger back into its input form.
func PassengerDraft(p Passenger) PassengerInput {
	return PassengerInput{
		FirstName:      p.FirstName,
		LastName:       p.LastName,
		MiddleName:     p.MiddleName,
		BirthDate:      p.BirthDate,
		Gender:         p.Gender,
		PassportSeries: p.PassportSeries,
		PassportNumber: p.PassportNumber,
		Email:          p.Email,
		PhoneNumber:    p.PhoneNumber,
	}
}

func passengers() Descriptor {
	return define("travel", console.Spec[Passenger, PassengerInput]{
		Resource: "passengers",
		Noun:     "passenger",
		Describe: Passenger.FullName,
		DescribeInput: func(in PassengerInput) string {
			return strings.TrimSpace(in.LastName + " " + in.FirstName)
		},
		Draft: PassengerDraft,
	}, unfiltered(), false)
}

type Luggage struct {
	ID       int64           `json:"id"`
	WeightKg decimal.Decimal `json:"weightKg"`
	Pieces   int             `json:"pieces"`
	Status   string          `json:"status"`
}

func (l Luggage) EntityID() int64 { return l.ID }

type LuggageInput struct {
	WeightKg decimal.Decimal `json:"weightKg" form:"weightKg" validate:"gt=0,lte=200"`
	Pieces   int             `json:"pieces" form:"pieces" validate:"gte=1,lte=10"`
	Status   string          `json:"status" form:"status" validate:"required,oneof=registered in_transit delivered lost"`
}

func luggage() Descriptor {
	return define("travel", console.Spec[Luggage, LuggageInput]{
		Resource: "luggage",
		Noun:     "luggage",
		Describe: func(l Luggage) string {
			return fmt.Sprintf("%d pcs, %s kg", l.Pieces, l.WeightKg)
		},
		Blank: func() LuggageInput { return LuggageInput{Pieces: 1, Status: "registered"} },
		Draft: func(l Luggage) LuggageInput {
			return LuggageInput{WeightKg: l.WeightKg, Pieces: l.Pieces, Status: l.Status}
		},
	}, unfiltered(), false)
}

type Ticket struct {
	ID           int64           `json:"id"`
	Schedule     *Schedule       `json:"schedule,omitempty"`
	Passenger    *Passenger      `json:"passenger,omitempty"`
	Seat         *Seat           `json:"seat,omitempty"`
	Luggage      *Luggage        `json:"luggage,omitempty"`
	Price        decimal.Decimal `json:"price"`
	TicketStatus string          `json:"ticketStatus"`
	PurchaseDate types.DateTime  `json:"purchaseDate"`
}

func (t Ticket) EntityID() int64 { return t.ID }

// Label is "<passenger>, <schedule>".
func (t Ticket) Label() string {
	var parts []string
	if t.Passenger != nil {
		parts = append(parts, t.Passenger.FullName())
	}
	if t.Schedule != nil {
		parts = append(parts, t.Schedule.Label())
	}
	return strings.Join(parts, ", ")
}

type TicketInput struct {
	ScheduleID   int64           `json:"scheduleId" form:"scheduleId" validate:"required"`
	PassengerID  int64           `json:"passengerId" form:"passengerId" validate:"required"`
	SeatID       int64           `json:"seatId" form:"seatId" validate:"required"`
	LuggageID    *int64          `json:"luggageId" form:"luggageId"`
	Price        decimal.Decimal `json:"price" form:"price" validate:"gte=0"`
	TicketStatus string          `json:"ticketStatus" form:"ticketStatus" validate:"required,oneof=booked paid returned used"`
}

type TicketFilter struct {
	RouteID          int64            `form:"routeId"`
	ScheduleID       int64            `form:"scheduleId"`
	TicketStatus     string           `form:"ticketStatus" validate:"omitempty,oneof=booked paid returned used"`
	MinPrice         *decimal.Decimal `form:"minPrice" validate:"omitempty,gte=0"`
	MaxPrice         *decimal.Decimal `form:"maxPrice" validate:"omitempty,gte=0"`
	MinDistance      *decimal.Decimal `form:"minDistance" validate:"omitempty,gte=0"`
	MaxDistance      *decimal.Decimal `form:"maxDistance" validate:"omitempty,gte=0"`
	PurchaseDateFrom *time.Time       `form:"purchaseDateFrom"`
	PurchaseDateTo   *time.Time       `form:"purchaseDateTo"`
	DepartureDate    time.Time        `form:"departureDate"`
}

func (f TicketFilter) State() filter.State {
	return filter.State{}.
		With("routeId", filter.ID(f.RouteID)).
		With("scheduleId", filter.ID(f.ScheduleID)).
		With("ticketStatus", filter.Match(f.TicketStatus)).
		With("price", filter.Between(f.MinPrice, f.MaxPrice)).
		With("distance", filter.Between(f.MinDistance, f.MaxDistance)).
		With("purchaseDate", filter.Dates(f.PurchaseDateFrom, f.PurchaseDateTo)).
		With("departureDate", filter.OnDate(f.DepartureDate))
}

func tickets() Descriptor {
	return define("travel", console.Spec[Ticket, TicketInput]{
		Resource:     "tickets",
		Noun:         "ticket",
		Dependencies: []string{"schedules", "passengers", "seats", "luggage"},
		Describe:     Ticket.Label,
		Blank:        func() TicketInput { return TicketInput{TicketStatus: TicketPaid} },
		Draft: func(t Ticket) TicketInput {
			return TicketInput{
				ScheduleID:   idOf(t.Schedule),
				PassengerID:  idOf(t.Passenger),
				SeatID:       idOf(t.Seat),
				LuggageID:    optionalID(t.Luggage),
				Price:        t.Price,
				TicketStatus: t.TicketStatus,
			}
		},
		Validate: func(in TicketInput, deps resolve.Set) error {
			if _, err := requireRef[Schedule](deps, "schedules", "scheduleId", in.ScheduleID, false); err != nil {
				return err
			}
			if _, err := requireRef[Passenger](deps, "passengers", "passengerId", in.PassengerID, false); err != nil {
				return err
			}
			if _, err := requireRef[Seat](deps, "seats", "seatId", in.SeatID, false); err != nil {
				return err
			}
			if in.LuggageID == nil {
				return nil
			}
			_, err := requireRef[Luggage](deps, "luggage", "luggageId", *in.LuggageID, false)
			return err
		},
		Choices: func(deps resolve.Set) map[string][]console.Choice {
			return map[string][]console.Choice{
				"scheduleId":  choices(deps, "schedules", Schedule.Label),
				"passengerId": choices(deps, "passengers", Passenger.FullName),
				"seatId": choices(deps, "seats", func(s Seat) string {
					return fmt.Sprintf("%s (%s)", s.SeatNumber, s.SeatType)
				}),
				"luggageId": choices(deps, "luggage", func(l Luggage) string {
					return fmt.Sprintf("%d pcs, %s kg", l.Pieces, l.WeightKg)
				}),
			}
		},
	}, filters[TicketFilter](), false)
}
