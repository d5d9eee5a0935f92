package fakeapi

import (
	"time"

	"railctl/internal/console"
	"railctl/internal/errors"
	"railctl/internal/resources"
	"railctl/pkg/types"

	"github.com/shopspring/decimal"
)

// Demo accounts created by Seed.
const (
	AdminEmail    = "admin@rail.local"
	AdminPassword = "admin123"
	UserEmail     = "user@rail.local"
	UserPassword  = "user1234"
)

// seeder inserts validated rows and keeps the first failure.
type seeder struct {
	s   *Store
	err error
}

func put[T console.Entity, P any](sd *seeder, c *collection[T, P], in P) int64 {
	if sd.err != nil {
		return 0
	}
	if c.admit != nil {
		in = c.admit(in, nil)
	}
	if err := c.validate(0, in); err != nil {
		sd.err = errors.Wrapf(err, "seed %s", c.name)
		return 0
	}
	return c.rows.insert(in)
}

func money(v string) decimal.Decimal {
	return decimal.RequireFromString(v)
}

func moneyPtr(v string) *decimal.Decimal {
	return ptr(money(v))
}

func date(y int, m time.Month, d int) types.Date {
	return types.NewDate(y, m, d)
}

func at(y int, m time.Month, d, hh, mm int) types.DateTime {
	return types.DateTime{Time: time.Date(y, m, d, hh, mm, 0, 0, time.UTC)}
}

// Seed fills an empty store with demo accounts and a small railway:
// three departments, two routes with timetabled trips and a handful of
// sold and returned tickets.
func Seed(s *Store) error {
	if _, err := s.AddUser(AdminEmail, "Administrator", AdminPassword, RoleAdmin); err != nil {
		return err
	}
	uid, err := s.AddUser(UserEmail, "Demo Traveller", UserPassword, RoleUser)
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	sd := &seeder{s: s}

	admin := put(sd, s.departments, resources.DepartmentInput{Name: "Administration", Description: "Station and office staff"})
	ops := put(sd, s.departments, resources.DepartmentInput{Name: "Operations", Description: "Train crews"})
	depot := put(sd, s.departments, resources.DepartmentInput{Name: "Depot", Description: "Rolling stock maintenance"})

	manager := put(sd, s.positions, resources.PositionInput{Name: "Station Manager", MinSalary: moneyPtr("60000"), MaxSalary: moneyPtr("120000"), DepartmentID: admin})
	driver := put(sd, s.positions, resources.PositionInput{Name: "Driver", MinSalary: moneyPtr("40000"), MaxSalary: moneyPtr("90000"), DepartmentID: ops})
	conductor := put(sd, s.positions, resources.PositionInput{Name: "Conductor", MinSalary: moneyPtr("30000"), MaxSalary: moneyPtr("60000"), DepartmentID: ops})
	engineer := put(sd, s.positions, resources.PositionInput{Name: "Engineer", MinSalary: moneyPtr("30000"), MaxSalary: moneyPtr("80000"), DepartmentID: depot})

	put(sd, s.employees, resources.EmployeeInput{FirstName: "Olga", LastName: "Smirnova", HireDate: date(2015, time.March, 2), PositionID: manager, Salary: moneyPtr("85000"), IsActive: true})
	ivan := put(sd, s.employees, resources.EmployeeInput{FirstName: "Ivan", LastName: "Sokolov", HireDate: date(2018, time.June, 11), PositionID: driver, Salary: moneyPtr("62000"), IsActive: true})
	put(sd, s.employees, resources.EmployeeInput{FirstName: "Maria", LastName: "Volkova", HireDate: date(2020, time.September, 1), PositionID: conductor, Salary: moneyPtr("41000"), IsActive: true})
	anna := put(sd, s.employees, resources.EmployeeInput{FirstName: "Anna", LastName: "Petrova", HireDate: date(2019, time.January, 15), PositionID: engineer, Salary: moneyPtr("52000"), IsActive: true})
	put(sd, s.employees, resources.EmployeeInput{FirstName: "Pavel", LastName: "Orlov", HireDate: date(2021, time.April, 20), PositionID: engineer, Salary: moneyPtr("38000"), IsActive: true})
	put(sd, s.employees, resources.EmployeeInput{FirstName: "Sergei", LastName: "Kuznetsov", HireDate: date(2012, time.May, 5), PositionID: engineer, Salary: moneyPtr("45000"), IsActive: false})

	crew := put(sd, s.brigades, resources.BrigadeInput{Name: "Crew A", DepartmentID: ops, ManagerID: &ivan})
	repair := put(sd, s.brigades, resources.BrigadeInput{Name: "Depot Team 1", DepartmentID: depot, ManagerID: &anna})

	put(sd, s.medicalExaminations, resources.MedicalExaminationInput{EmployeeID: ivan, ExaminationDate: date(2024, time.February, 20), Result: true})
	put(sd, s.medicalExaminations, resources.MedicalExaminationInput{EmployeeID: anna, ExaminationDate: date(2024, time.March, 3), Result: false, Notes: "Follow-up in 3 months"})

	north := put(sd, s.stations, resources.StationInput{Name: "Northgate Central", Address: "1 Station Sq", Region: "North"})
	mill := put(sd, s.stations, resources.StationInput{Name: "Millbrook", Region: "North"})
	harbor := put(sd, s.stations, resources.StationInput{Name: "Harbor Terminal", Address: "Quay Road 7", Region: "South"})

	intercity := put(sd, s.routeCategories, resources.RouteCategoryInput{Name: "Intercity"})
	regional := put(sd, s.routeCategories, resources.RouteCategoryInput{Name: "Regional"})

	express := put(sd, s.routes, resources.RouteInput{Name: "Northgate - Harbor Express", CategoryID: intercity, StartStationID: north, EndStationID: harbor, DistanceKm: moneyPtr("412.5")})
	local := put(sd, s.routes, resources.RouteInput{Name: "Millbrook Shuttle", CategoryID: regional, StartStationID: mill, EndStationID: north, DistanceKm: moneyPtr("38")})
	put(sd, s.routeStops, resources.RouteStopInput{RouteID: express, StationID: mill, StopOrder: 1, ArrivalOffset: ptr(42), DepartureOffset: ptr(45), Platform: "2"})

	hs := put(sd, s.trainTypes, resources.TrainTypeInput{Name: "High-speed"})
	emu := put(sd, s.trainTypes, resources.TrainTypeInput{Name: "Suburban EMU"})

	t1 := put(sd, s.trains, resources.TrainInput{Model: "Velaro RUS", BuildDate: date(2010, time.July, 1), LastMaintenanceDate: date(2024, time.January, 20), Status: "ok"})
	t2 := put(sd, s.trains, resources.TrainInput{Model: "ED4M", BuildDate: date(1998, time.May, 12), Status: "needs_repair"})

	car1 := put(sd, s.cars, resources.CarInput{TrainID: t1, CarNumber: "01", CarType: "seated", Capacity: 60, Status: "in_service"})
	car2 := put(sd, s.cars, resources.CarInput{TrainID: t2, CarNumber: "01", CarType: "third_class", Capacity: 80, Status: "in_service"})
	var seats1, seats2 []int64
	for _, n := range []string{"1A", "1B", "2A", "2B"} {
		seats1 = append(seats1, put(sd, s.seats, resources.SeatInput{CarID: car1, SeatNumber: n, SeatType: "window", IsAvailable: true}))
		seats2 = append(seats2, put(sd, s.seats, resources.SeatInput{CarID: car2, SeatNumber: n, IsAvailable: true}))
	}

	put(sd, s.maintenances, resources.MaintenanceInput{TrainID: t1, BrigadeID: repair, StartDate: at(2024, time.January, 18, 8, 0), EndDate: at(2024, time.January, 20, 17, 0), Type: "planned", Result: "Brake pads replaced"})
	put(sd, s.maintenances, resources.MaintenanceInput{TrainID: t2, BrigadeID: repair, StartDate: at(2024, time.February, 5, 9, 30), Type: "unplanned", IsRepair: true})
	put(sd, s.maintenances, resources.MaintenanceInput{TrainID: t1, BrigadeID: crew, StartDate: at(2024, time.February, 1, 6, 0), EndDate: at(2024, time.February, 1, 7, 0), Type: "planned", Result: "Pre-trip inspection"})

	sc1 := put(sd, s.schedules, resources.ScheduleInput{TrainNumber: "701A", TrainID: t1, TypeID: &hs, RouteID: express, DepartureTime: at(2024, time.March, 8, 7, 15), ArrivalTime: at(2024, time.March, 8, 11, 40), BasePrice: money("2450.00"), TrainStatus: "completed"})
	sc2 := put(sd, s.schedules, resources.ScheduleInput{TrainNumber: "702A", TrainID: t1, TypeID: &hs, RouteID: express, DepartureTime: at(2026, time.December, 1, 7, 15), ArrivalTime: at(2026, time.December, 1, 11, 40), BasePrice: money("2600.00"), TrainStatus: "scheduled"})
	sc3 := put(sd, s.schedules, resources.ScheduleInput{TrainNumber: "6101", TrainID: t2, TypeID: &emu, RouteID: local, DepartureTime: at(2026, time.December, 1, 8, 0), ArrivalTime: at(2026, time.December, 1, 8, 52), BasePrice: money("180.00"), TrainStatus: "scheduled"})

	alex := put(sd, s.passengers, resources.PassengerInput{FirstName: "Alexei", LastName: "Morozov", BirthDate: date(1988, time.October, 3), Gender: "M", PassportSeries: "4510", PassportNumber: "123456", Email: "alexei@example.com"})
	elena := put(sd, s.passengers, resources.PassengerInput{FirstName: "Elena", LastName: "Fedorova", BirthDate: date(1995, time.April, 22), Gender: "F", PassportSeries: "4512", PassportNumber: "654321"})
	bag := put(sd, s.luggage, resources.LuggageInput{WeightKg: money("18.5"), Pieces: 1, Status: "delivered"})

	put(sd, s.tickets, ticketRow{TicketInput: resources.TicketInput{ScheduleID: sc1, PassengerID: alex, SeatID: seats1[0], LuggageID: &bag, Price: money("2450.00"), TicketStatus: resources.TicketUsed}})
	put(sd, s.tickets, ticketRow{TicketInput: resources.TicketInput{ScheduleID: sc1, PassengerID: elena, SeatID: seats1[1], Price: money("2450.00"), TicketStatus: resources.TicketReturned}})
	put(sd, s.tickets, ticketRow{TicketInput: resources.TicketInput{ScheduleID: sc2, PassengerID: elena, SeatID: seats1[1], Price: money("2600.00"), TicketStatus: resources.TicketPaid}})
	put(sd, s.tickets, ticketRow{TicketInput: resources.TicketInput{ScheduleID: sc3, PassengerID: alex, SeatID: seats2[0], Price: money("180.00"), TicketStatus: resources.TicketBooked}})

	if sd.err != nil {
		return sd.err
	}
	s.owners[elena] = uid
	return nil
}
