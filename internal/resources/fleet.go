package resources

import (
	"time"

	"railctl/internal/console"
	"railctl/internal/errors"
	"railctl/internal/filter"
	"railctl/internal/resolve"
	"railctl/pkg/types"

	"github.com/shopspring/decimal"
)

// Train states.
const (
	TrainOK             = "ok"
	TrainNeedsRepair    = "needs_repair"
	TrainInRepair       = "in_repair"
	TrainDecommissioned = "decommissioned"
)

type TrainType struct {
	ID          int64  `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
}

func (t TrainType) EntityID() int64 { return t.ID }

type TrainTypeInput struct {
	Name        string `json:"name" form:"name" validate:"required,max=100"`
	Description string `json:"description" form:"description"`
}

func trainTypes() Descriptor {
	return define("fleet", console.Spec[TrainType, TrainTypeInput]{
		Resource:      "train-types",
		Noun:          "train type",
		Describe:      func(t TrainType) string { return t.Name },
		DescribeInput: func(in TrainTypeInput) string { return in.Name },
		Draft: func(t TrainType) TrainTypeInput {
			return TrainTypeInput{Name: t.Name, Description: t.Description}
		},
	}, unfiltered(), false)
}

type Train struct {
	ID                  int64      `json:"id"`
	Model               string     `json:"model"`
	BuildDate           types.Date `json:"buildDate"`
	LastMaintenanceDate types.Date `json:"lastMaintenanceDate"`
	Status              string     `json:"status"`
	TripsCount          int        `json:"tripsCount"`
	MaintenanceCount    int        `json:"maintenanceCount"`
	RepairCount         int        `json:"repairCount"`
}

func (t Train) EntityID() int64 { return t.ID }

type TrainInput struct {
	Model               string     `json:"model" form:"model" validate:"required,max=100"`
	BuildDate           types.Date `json:"buildDate" form:"buildDate" validate:"required"`
	LastMaintenanceDate types.Date `json:"lastMaintenanceDate" form:"lastMaintenanceDate"`
	Status              string     `json:"status" form:"status" validate:"required,oneof=ok needs_repair in_repair decommissioned"`
}

// TrainFilter covers the fleet report: trains serving a route or station,
// by distance travelled, trips, maintenance windows and age in years.
type TrainFilter struct {
	RouteID         int64            `form:"routeId"`
	StationID       int64            `form:"stationId"`
	MinDistance     *decimal.Decimal `form:"minDistance" validate:"omitempty,gte=0"`
	MaxDistance     *decimal.Decimal `form:"maxDistance" validate:"omitempty,gte=0"`
	ArrivalTimeTo   *time.Time       `form:"arrivalTimeTo"`
	MinTrips        *int             `form:"minTrips" validate:"omitempty,gte=0"`
	MaintPlanFrom   *time.Time       `form:"maintPlanFrom"`
	MaintPlanTo     *time.Time       `form:"maintPlanTo"`
	MaintRepairFrom *time.Time       `form:"maintRepairFrom"`
	MaintRepairTo   *time.Time       `form:"maintRepairTo"`
	RepairCount     *int             `form:"repairCount" validate:"omitempty,gte=0"`
	MinAge          *int             `form:"minAge" validate:"omitempty,gte=0"`
	MaxAge          *int             `form:"maxAge" validate:"omitempty,gte=0"`
}

func (f TrainFilter) State() filter.State {
	return filter.State{}.
		With("routeId", filter.ID(f.RouteID)).
		With("stationId", filter.ID(f.StationID)).
		With("distance", filter.Between(f.MinDistance, f.MaxDistance)).
		With("arrivalTime", filter.Times(nil, f.ArrivalTimeTo)).
		With("trips", filter.AtLeast(bound(f.MinTrips))).
		With("maintPlan", filter.Dates(f.MaintPlanFrom, f.MaintPlanTo)).
		With("maintRepair", filter.Dates(f.MaintRepairFrom, f.MaintRepairTo)).
		With("repairCount", filter.Match(count(f.RepairCount))).
		With("age", filter.Between(bound(f.MinAge), bound(f.MaxAge)))
}

func trains() Descriptor {
	return define("fleet", console.Spec[Train, TrainInput]{
		Resource:      "trains",
		Noun:          "train",
		Describe:      func(t Train) string { return t.Model },
		DescribeInput: func(in TrainInput) string { return in.Model },
		Blank:         func() TrainInput { return TrainInput{Status: TrainOK} },
		Draft: func(t Train) TrainInput {
			return TrainInput{
				Model:               t.Model,
				BuildDate:           t.BuildDate,
				LastMaintenanceDate: t.LastMaintenanceDate,
				Status:              t.Status,
			}
		},
		Validate: func(in TrainInput, _ resolve.Set) error {
			if !in.LastMaintenanceDate.IsZero() && in.LastMaintenanceDate.Before(in.BuildDate.Time) {
				return errors.NewValidationError("lastMaintenanceDate", "lastMaintenanceDate must not be before buildDate", nil)
			}
			return nil
		},
	}, filters[TrainFilter](), false)
}

type Car struct {
	ID        int64      `json:"id"`
	CarNumber string     `json:"carNumber"`
	CarType   string     `json:"carType"`
	Capacity  int        `json:"capacity"`
	Status    string     `json:"status"`
	BuildDate types.Date `json:"buildDate"`
	Train     *Train     `json:"train,omitempty"`
}

func (c Car) EntityID() int64 { return c.ID }

type CarInput struct {
	TrainID   int64      `json:"trainId" form:"trainId" validate:"required"`
	CarNumber string     `json:"carNumber" form:"carNumber" validate:"required,max=10"`
	CarType   string     `json:"carType" form:"carType" validate:"required,oneof=third_class compartment sleeper seated restaurant baggage"`
	Capacity  int        `json:"capacity" form:"capacity" validate:"gte=0,lte=200"`
	BuildDate types.Date `json:"buildDate" form:"buildDate"`
	Status    string     `json:"status" form:"status" validate:"required,oneof=in_service in_repair decommissioned"`
}

func cars() Descriptor {
	return define("fleet", console.Spec[Car, CarInput]{
		Resource:     "cars",
		Noun:         "car",
		Dependencies: []string{"trains"},
		Describe: func(c Car) string {
			if c.Train != nil {
				return c.Train.Model + " car " + c.CarNumber
			}
			return "car " + c.CarNumber
		},
		DescribeInput: func(in CarInput) string { return in.CarNumber },
		Blank:         func() CarInput { return CarInput{CarType: "compartment", Status: "in_service"} },
		Draft: func(c Car) CarInput {
			return CarInput{
				TrainID:   idOf(c.Train),
				CarNumber: c.CarNumber,
				CarType:   c.CarType,
				Capacity:  c.Capacity,
				BuildDate: c.BuildDate,
				Status:    c.Status,
			}
		},
		Validate: func(in CarInput, deps resolve.Set) error {
			_, err := requireRef[Train](deps, "trains", "trainId", in.TrainID, false)
			return err
		},
		Choices: func(deps resolve.Set) map[string][]console.Choice {
			return map[string][]console.Choice{
				"trainId": choices(deps, "trains", func(t Train) string { return t.Model }),
			}
		},
	}, unfiltered(), false)
}

type Seat struct {
	ID          int64  `json:"id"`
	SeatNumber  string `json:"seatNumber"`
	SeatType    string `json:"seatType,omitempty"`
	Features    string `json:"features,omitempty"`
	IsAvailable bool   `json:"isAvailable"`
	Car         *Car   `json:"car,omitempty"`
}

func (s Seat) EntityID() int64 { return s.ID }

type SeatInput struct {
	CarID       int64  `json:"carId" form:"carId" validate:"required"`
	SeatNumber  string `json:"seatNumber" form:"seatNumber" validate:"required,max=10"`
	SeatType    string `json:"seatType" form:"seatType" validate:"max=50"`
	Features    string `json:"features" form:"features" validate:"max=255"`
	IsAvailable bool   `json:"isAvailable" form:"isAvailable"`
}

func seats() Descriptor {
	return define("fleet", console.Spec[Seat, SeatInput]{
		Resource:     "seats",
		Noun:         "seat",
		Dependencies: []string{"cars"},
		Describe: func(s Seat) string {
			if s.Car != nil {
				return "car " + s.Car.CarNumber + " seat " + s.SeatNumber
			}
			return "seat " + s.SeatNumber
		},
		DescribeInput: func(in SeatInput) string { return in.SeatNumber },
		Blank:         func() SeatInput { return SeatInput{IsAvailable: true} },
		Draft: func(s Seat) SeatInput {
			return SeatInput{
				CarID:       idOf(s.Car),
				SeatNumber:  s.SeatNumber,
				SeatType:    s.SeatType,
				Features:    s.Features,
				IsAvailable: s.IsAvailable,
			}
		},
		Validate: func(in SeatInput, deps resolve.Set) error {
			_, err := requireRef[Car](deps, "cars", "carId", in.CarID, false)
			return err
		},
		Choices: func(deps resolve.Set) map[string][]console.Choice {
			return map[string][]console.Choice{
				"carId": choices(deps, "cars", func(c Car) string { return c.CarNumber }),
			}
		},
	}, unfiltered(), false)
}

type Maintenance struct {
	ID        int64          `json:"id"`
	Train     *Train         `json:"train,omitempty"`
	Brigade   *Brigade       `json:"brigade,omitempty"`
	StartDate types.DateTime `json:"startDate"`
	EndDate   types.DateTime `json:"endDate"`
	Type      string         `json:"type"`
	Result    string         `json:"result,omitempty"`
	IsRepair  bool           `json:"isRepair"`
}

func (m Maintenance) EntityID() int64 { return m.ID }

type MaintenanceInput struct {
	TrainID   int64          `json:"trainId" form:"trainId" validate:"required"`
	BrigadeID int64          `json:"brigadeId" form:"brigadeId" validate:"required"`
	StartDate types.DateTime `json:"startDate" form:"startDate" validate:"required"`
	EndDate   types.DateTime `json:"endDate" form:"endDate"`
	Type      string         `json:"type" form:"type" validate:"required,oneof=planned unplanned"`
	Result    string         `json:"result" form:"result" validate:"max=500"`
	IsRepair  bool           `json:"isRepair" form:"isRepair"`
}

func maintenances() Descriptor {
	return define("fleet", console.Spec[Maintenance, MaintenanceInput]{
		Resource:     "maintenances",
		Noun:         "maintenance",
		Dependencies: []string{"trains", "brigades"},
		Describe: func(m Maintenance) string {
			label := m.Type + " " + m.StartDate.String()
			if m.Train != nil {
				label = m.Train.Model + " " + label
			}
			return label
		},
		Blank: func() MaintenanceInput { return MaintenanceInput{Type: "planned"} },
		Draft: func(m Maintenance) MaintenanceInput {
			return MaintenanceInput{
				TrainID:   idOf(m.Train),
				BrigadeID: idOf(m.Brigade),
				StartDate: m.StartDate,
				EndDate:   m.EndDate,
				Type:      m.Type,
				Result:    m.Result,
				IsRepair:  m.IsRepair,
			}
		},
		Validate: func(in MaintenanceInput, deps resolve.Set) error {
			if err := NotBefore("endDate", "startDate", in.StartDate, in.EndDate); err != nil {
				return err
			}
			if _, err := requireRef[Train](deps, "trains", "trainId", in.TrainID, false); err != nil {
				return err
			}
			_, err := requireRef[Brigade](deps, "brigades", "brigadeId", in.BrigadeID, false)
			return err
		},
		Choices: func(deps resolve.Set) map[string][]console.Choice {
			return map[string][]console.Choice{
				"trainId":   choices(deps, "trains", func(t Train) string { return t.Model }),
				"brigadeId": choices(deps, "brigades", func(b Brigade) string { return b.Name }),
			}
		},
	}, unfiltered(), false)
}
